package dialogue

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/myravoice/myra/internal/feed"
	"github.com/myravoice/myra/internal/intent"
	"github.com/myravoice/myra/internal/news"
	"github.com/myravoice/myra/internal/scraper"
	"github.com/myravoice/myra/internal/speech"
	"github.com/myravoice/myra/internal/weather"
)

type fakeNews struct {
	result news.Result
}

func (f *fakeNews) TopHeadlines(ctx context.Context, scope intent.Scope, city string) news.Result {
	return f.result
}

type fakeWeather struct{}

func (f *fakeWeather) Current(ctx context.Context, city string) (weather.Reading, error) {
	if strings.TrimSpace(city) == "" {
		return weather.Reading{}, weather.ErrCityRequired
	}
	return weather.Reading{TemperatureC: "31", Description: "Hazy", FeelsLikeC: "35"}, nil
}

type fakeCompleter struct {
	fn func(prompt string) (string, error)
}

func (f *fakeCompleter) Complete(ctx context.Context, prompt string, temperature float32, maxTokens int32) (string, error) {
	return f.fn(prompt)
}

func testHeadlines() []feed.Headline {
	return []feed.Headline{
		{Title: "Parliament passes the transport bill", Link: "https://example.com/1"},
		{Title: "Monsoon arrives two weeks early", Link: "https://example.com/2"},
		{Title: "Local team wins the championship", Link: "https://example.com/3"},
	}
}

type fixture struct {
	session   *Session
	scheduler *speech.Scheduler
	news      *fakeNews
	completer *fakeCompleter
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	f := &fixture{
		news:      &fakeNews{result: news.Result{Headlines: testHeadlines(), Outcome: news.OutcomeFresh}},
		completer: &fakeCompleter{fn: func(string) (string, error) { return "a witty reply", nil }},
	}
	f.scheduler = speech.NewScheduler(speech.NewConsoleSynthesizer(io.Discard), speech.WithGap(5*time.Millisecond))
	f.session = NewSession(Config{
		Persona:   "Myra",
		Profile:   Profile{Name: "Asha", City: "Delhi"},
		News:      f.news,
		Weather:   &fakeWeather{},
		Completer: f.completer,
		Scheduler: f.scheduler,
		ReadArticle: func(ctx context.Context, url string) (*scraper.Article, error) {
			return &scraper.Article{Title: "story", Content: "full story text", URL: url}, nil
		},
	})
	return f
}

func assistantTurns(transcript []Turn) []Turn {
	var out []Turn
	for _, turn := range transcript {
		if turn.Speaker == SpeakerAssistant {
			out = append(out, turn)
		}
	}
	return out
}

func TestSubmit_NewsTurnDeliversNumberedHeadlinesInOrder(t *testing.T) {
	f := newFixture(t)

	if !f.session.Submit(context.Background(), "india news") {
		t.Fatal("Submit returned false for a valid utterance")
	}
	f.scheduler.Wait()

	transcript := f.session.Transcript()
	if transcript[0].Speaker != SpeakerUser || transcript[0].Text != "india news" {
		t.Fatalf("first turn = %+v, want the user's utterance", transcript[0])
	}

	assistant := assistantTurns(transcript)
	if len(assistant) != 4 {
		t.Fatalf("got %d assistant turns, want intro + 3 headlines: %+v", len(assistant), assistant)
	}
	if !strings.Contains(assistant[0].Text, "national") {
		t.Errorf("intro = %q, want country-scope wording", assistant[0].Text)
	}
	for i, h := range testHeadlines() {
		want := fmt.Sprintf("%d. %s", i+1, h.Title)
		if assistant[i+1].Text != want {
			t.Errorf("assistant turn %d = %q, want %q", i+1, assistant[i+1].Text, want)
		}
	}

	// Transcript timestamps must be non-decreasing: segments are appended
	// when spoken, not when scheduled.
	for i := 1; i < len(transcript); i++ {
		if transcript[i].At.Before(transcript[i-1].At) {
			t.Errorf("turn %d timestamp precedes turn %d", i, i-1)
		}
	}
}

func TestSubmit_ScopeIntrosDiffer(t *testing.T) {
	intros := make(map[string]string)
	for _, utterance := range []string{"world news", "india news", "news"} {
		f := newFixture(t)
		f.session.Submit(context.Background(), utterance)
		f.scheduler.Wait()

		assistant := assistantTurns(f.session.Transcript())
		if len(assistant) == 0 {
			t.Fatalf("no assistant turns for %q", utterance)
		}
		intros[utterance] = assistant[0].Text
	}

	if intros["world news"] == intros["india news"] || intros["india news"] == intros["news"] {
		t.Errorf("scope intros are not distinct: %v", intros)
	}
}

func TestSubmit_SecondInputDroppedWhileProcessing(t *testing.T) {
	f := newFixture(t)

	started := make(chan struct{})
	release := make(chan struct{})
	f.completer.fn = func(string) (string, error) {
		close(started)
		<-release
		return "late reply", nil
	}

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		if !f.session.Submit(context.Background(), "how are you") {
			t.Error("first Submit returned false")
		}
	}()

	<-started
	if f.session.Submit(context.Background(), "india news") {
		t.Error("second Submit accepted while a turn was in flight")
	}

	close(release)
	wg.Wait()

	// The guard must be clear again once the turn finished.
	if f.session.Processing() {
		t.Error("processing guard still set after the turn completed")
	}
	if !f.session.Submit(context.Background(), "news") {
		t.Error("Submit rejected input after the previous turn completed")
	}
	f.scheduler.Wait()
}

func TestSubmit_GuardClearedAfterPanic(t *testing.T) {
	f := newFixture(t)
	f.completer.fn = func(string) (string, error) { panic("completion exploded") }

	if !f.session.Submit(context.Background(), "hello") {
		t.Fatal("Submit returned false")
	}
	if f.session.Processing() {
		t.Error("processing guard still set after a panicking branch")
	}

	// The session keeps working.
	f.completer.fn = func(string) (string, error) { return "recovered", nil }
	if !f.session.Submit(context.Background(), "hello again") {
		t.Error("Submit rejected input after a panicking turn")
	}
	f.scheduler.Wait()
}

func TestSubmit_BlankInputDropped(t *testing.T) {
	f := newFixture(t)
	for _, utterance := range []string{"", "   ", "\t"} {
		if f.session.Submit(context.Background(), utterance) {
			t.Errorf("Submit(%q) = true, want blank input dropped", utterance)
		}
	}
	if len(f.session.Transcript()) != 0 {
		t.Error("blank input reached the transcript")
	}
}

func TestSubmit_UsesPendingInputBuffer(t *testing.T) {
	f := newFixture(t)

	f.session.SetPendingInput("what's happening")
	if !f.session.Submit(context.Background(), "") {
		t.Fatal("Submit did not pick up the pending input buffer")
	}
	f.scheduler.Wait()

	transcript := f.session.Transcript()
	if len(transcript) == 0 || transcript[0].Text != "what's happening" {
		t.Fatalf("transcript = %+v, want the buffered utterance first", transcript)
	}

	// The buffer is cleared on entry, so a second empty submit is a no-op.
	if f.session.Submit(context.Background(), "") {
		t.Error("Submit consumed the pending buffer twice")
	}
}

func TestSubmit_ChatFallbackOnCompletionFailure(t *testing.T) {
	f := newFixture(t)
	f.completer.fn = func(string) (string, error) { return "", errors.New("quota exhausted") }

	if !f.session.Submit(context.Background(), "tell me something fun") {
		t.Fatal("Submit returned false")
	}
	f.scheduler.Wait()

	assistant := assistantTurns(f.session.Transcript())
	if len(assistant) != 1 {
		t.Fatalf("got %d assistant turns, want exactly the fallback", len(assistant))
	}
	if assistant[0].Text != chatFallback {
		t.Errorf("reply = %q, want the fixed fallback line", assistant[0].Text)
	}
}

func TestSubmit_ChatPromptCarriesContext(t *testing.T) {
	f := newFixture(t)

	var captured string
	f.completer.fn = func(prompt string) (string, error) {
		captured = prompt
		return "ok", nil
	}

	f.session.Submit(context.Background(), "how's it going?")
	f.scheduler.Wait()

	for _, want := range []string{"Myra", "Asha", "Delhi", "Hazy", `"how's it going?"`} {
		if !strings.Contains(captured, want) {
			t.Errorf("prompt missing %q:\n%s", want, captured)
		}
	}
}

func TestSubmit_ReadoutSummarizesStoredHeadline(t *testing.T) {
	f := newFixture(t)
	f.completer.fn = func(prompt string) (string, error) {
		if strings.Contains(prompt, "Summarize") {
			return "a short spoken summary", nil
		}
		return "chat reply", nil
	}

	f.session.Submit(context.Background(), "india news")
	f.scheduler.Wait()

	f.session.Submit(context.Background(), "tell me about news 2")
	f.scheduler.Wait()

	assistant := assistantTurns(f.session.Transcript())
	last := assistant[len(assistant)-1]
	if last.Text != "a short spoken summary" {
		t.Errorf("readout reply = %q, want the summary", last.Text)
	}
}

func TestSubmit_ReadoutBoundsChecked(t *testing.T) {
	f := newFixture(t)

	// No headlines delivered yet.
	f.session.Submit(context.Background(), "news 1")
	f.scheduler.Wait()
	assistant := assistantTurns(f.session.Transcript())
	if len(assistant) != 1 || !strings.Contains(assistant[0].Text, "Ask me for the news first") {
		t.Errorf("reply without stored headlines = %+v", assistant)
	}

	f.session.Submit(context.Background(), "india news")
	f.scheduler.Wait()

	f.session.Submit(context.Background(), "news 9")
	f.scheduler.Wait()
	assistant = assistantTurns(f.session.Transcript())
	last := assistant[len(assistant)-1]
	if !strings.Contains(last.Text, "I only have 3 headlines") {
		t.Errorf("out-of-range reply = %q", last.Text)
	}
}

func TestSubmit_ReadoutFetchFailureApologizes(t *testing.T) {
	f := newFixture(t)
	f.session = NewSession(Config{
		Persona:   "Myra",
		Profile:   Profile{City: "Delhi"},
		News:      f.news,
		Weather:   &fakeWeather{},
		Completer: f.completer,
		Scheduler: f.scheduler,
		ReadArticle: func(ctx context.Context, url string) (*scraper.Article, error) {
			return nil, errors.New("paywalled")
		},
	})

	f.session.Submit(context.Background(), "india news")
	f.scheduler.Wait()
	f.session.Submit(context.Background(), "news 1")
	f.scheduler.Wait()

	assistant := assistantTurns(f.session.Transcript())
	last := assistant[len(assistant)-1]
	if !strings.Contains(last.Text, "couldn't pull up that story") {
		t.Errorf("fetch-failure reply = %q", last.Text)
	}
}

func TestWelcome(t *testing.T) {
	f := newFixture(t)
	f.session.Welcome()
	f.scheduler.Wait()

	transcript := f.session.Transcript()
	if len(transcript) != 1 || transcript[0].Speaker != SpeakerAssistant {
		t.Fatalf("transcript after Welcome = %+v, want one assistant turn", transcript)
	}
	for _, want := range []string{"Asha", "Delhi", "Myra"} {
		if !strings.Contains(transcript[0].Text, want) {
			t.Errorf("welcome %q missing %q", transcript[0].Text, want)
		}
	}
}

func TestOnTurnObservesEveryAppend(t *testing.T) {
	f := newFixture(t)

	var mu sync.Mutex
	var seen []string
	f.session.onTurn = func(turn Turn) {
		mu.Lock()
		seen = append(seen, turn.Text)
		mu.Unlock()
	}

	f.session.Submit(context.Background(), "india news")
	f.scheduler.Wait()

	mu.Lock()
	defer mu.Unlock()
	if len(seen) != len(f.session.Transcript()) {
		t.Errorf("observer saw %d turns, transcript has %d", len(seen), len(f.session.Transcript()))
	}
}
