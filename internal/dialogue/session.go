// Package dialogue owns the turn-taking loop: one session holds the
// conversation transcript, the single-flight guard, and the dispatch from
// classified intent to the news, weather and chat collaborators.
package dialogue

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"

	"github.com/myravoice/myra/internal/feed"
	"github.com/myravoice/myra/internal/intent"
	"github.com/myravoice/myra/internal/logger"
	"github.com/myravoice/myra/internal/metrics"
	"github.com/myravoice/myra/internal/news"
	"github.com/myravoice/myra/internal/scraper"
	"github.com/myravoice/myra/internal/speech"
	"github.com/myravoice/myra/internal/weather"
)

var tracer = otel.Tracer("github.com/myravoice/myra/internal/dialogue")

type Speaker string

const (
	SpeakerUser      Speaker = "user"
	SpeakerAssistant Speaker = "assistant"
)

// Turn is one transcript entry. Turns are immutable once created and only
// ever appended, in chronological order.
type Turn struct {
	ID      string
	Speaker Speaker
	Text    string
	At      time.Time
}

// Profile is who the assistant is talking to.
type Profile struct {
	Name string
	City string
}

// NewsProvider never fails; upstream trouble arrives as a tagged fallback.
type NewsProvider interface {
	TopHeadlines(ctx context.Context, scope intent.Scope, city string) news.Result
}

type WeatherProvider interface {
	Current(ctx context.Context, city string) (weather.Reading, error)
}

type Completer interface {
	Complete(ctx context.Context, prompt string, temperature float32, maxTokens int32) (string, error)
}

// ArticleReader fetches readable article text for the headline readout.
type ArticleReader func(ctx context.Context, url string) (*scraper.Article, error)

type Config struct {
	Persona string
	Profile Profile

	Classifier intent.Classifier
	News       NewsProvider
	Weather    WeatherProvider
	Completer  Completer
	Scheduler  *speech.Scheduler

	// ReadArticle defaults to scraper.Extract.
	ReadArticle ArticleReader

	// OnTurn observes every transcript append (rendering). May be nil.
	OnTurn func(Turn)

	// Now defaults to time.Now.
	Now func() time.Time
}

type Session struct {
	persona     string
	profile     Profile
	classifier  intent.Classifier
	news        NewsProvider
	weather     WeatherProvider
	completer   Completer
	scheduler   *speech.Scheduler
	readArticle ArticleReader
	onTurn      func(Turn)
	now         func() time.Time

	mu           sync.Mutex
	processing   bool
	pendingInput string
	transcript   []Turn

	// lastHeadlines backs "news N" follow-ups; lastWeather feeds chat
	// context. Both live only as long as the session.
	lastHeadlines []feed.Headline
	lastWeather   weather.Reading
	hasWeather    bool
}

func NewSession(cfg Config) *Session {
	s := &Session{
		persona:     cfg.Persona,
		profile:     cfg.Profile,
		classifier:  cfg.Classifier,
		news:        cfg.News,
		weather:     cfg.Weather,
		completer:   cfg.Completer,
		scheduler:   cfg.Scheduler,
		readArticle: cfg.ReadArticle,
		onTurn:      cfg.OnTurn,
		now:         cfg.Now,
	}
	if s.persona == "" {
		s.persona = "Myra"
	}
	if s.classifier == nil {
		s.classifier = intent.NewKeywordClassifier()
	}
	if s.readArticle == nil {
		s.readArticle = scraper.Extract
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s
}

// SetPendingInput buffers text the user is still composing; Submit with an
// empty utterance submits the buffer.
func (s *Session) SetPendingInput(text string) {
	s.mu.Lock()
	s.pendingInput = text
	s.mu.Unlock()
}

// Transcript returns a point-in-time copy of the conversation so far.
func (s *Session) Transcript() []Turn {
	s.mu.Lock()
	defer s.mu.Unlock()

	transcript := make([]Turn, len(s.transcript))
	copy(transcript, s.transcript)
	return transcript
}

// Processing reports whether a turn is currently in flight.
func (s *Session) Processing() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.processing
}

// Welcome appends and speaks the opening assistant turn.
func (s *Session) Welcome() {
	var text string
	if s.profile.Name != "" && s.profile.City != "" {
		text = fmt.Sprintf("Namaste %s from %s! I'm %s, your sidekick for weather, news and chit-chat. Say 'news' to hear headlines, or just talk to me.",
			s.profile.Name, s.profile.City, s.persona)
	} else {
		text = fmt.Sprintf("Hey, I'm %s. How can I help?", s.persona)
	}
	s.appendTurn(SpeakerAssistant, text)
	s.scheduler.Deliver(text, nil, nil)
}

// Submit runs one dialogue turn for the utterance (or the pending input
// buffer when the utterance is empty). It returns false when the input was
// dropped: blank text, or a turn already in flight. At most one turn is
// ever in flight; the guard is cleared on every exit path.
func (s *Session) Submit(ctx context.Context, utterance string) bool {
	s.mu.Lock()
	if utterance = strings.TrimSpace(utterance); utterance == "" {
		utterance = strings.TrimSpace(s.pendingInput)
	}
	if utterance == "" {
		s.mu.Unlock()
		return false
	}
	if s.processing {
		s.mu.Unlock()
		metrics.Global.IncrementInputsDropped()
		logger.Debug("input dropped, turn already in flight", "utterance", utterance)
		return false
	}
	s.processing = true
	s.pendingInput = ""
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.processing = false
		s.mu.Unlock()
	}()

	s.appendTurn(SpeakerUser, utterance)
	s.processTurn(ctx, utterance)
	return true
}

// processTurn dispatches on intent. Nothing that happens in a branch may
// crash the session or leave the guard held: errors and panics are caught
// here, logged, and the transcript keeps only the user's own turn.
func (s *Session) processTurn(ctx context.Context, utterance string) {
	ctx, span := tracer.Start(ctx, "dialogue turn")
	defer span.End()

	start := s.now()
	defer func() {
		if r := recover(); r != nil {
			err := fmt.Errorf("turn dispatch panicked: %v", r)
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			logger.Error("turn dispatch panicked", "error", err)
			metrics.Global.SetError(err.Error())
		}
	}()

	classified := s.classifier.Classify(utterance)

	var err error
	switch classified.Kind {
	case intent.KindNews:
		err = s.handleNews(ctx, classified.Scope)
	case intent.KindReadout:
		err = s.handleReadout(ctx, classified.Ordinal)
	default:
		err = s.handleChat(ctx, utterance)
	}

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		logger.Error("turn failed", "error", err)
		metrics.Global.SetError(err.Error())
		return
	}

	metrics.Global.IncrementTurnsProcessed()
	metrics.Global.RecordTurnTime(s.now().Sub(start))
	metrics.Global.SetLastTurn()
}

func (s *Session) handleNews(ctx context.Context, scope intent.Scope) error {
	res := s.news.TopHeadlines(ctx, scope, s.profile.City)

	s.mu.Lock()
	s.lastHeadlines = res.Headlines
	s.mu.Unlock()

	intro := s.newsIntro(scope)
	s.appendTurn(SpeakerAssistant, intro)

	segments := make([]string, 0, len(res.Headlines))
	for i, h := range res.Headlines {
		segments = append(segments, fmt.Sprintf("%d. %s", i+1, h.Title))
	}

	s.scheduler.Deliver(intro, segments, func(text string) {
		s.appendTurn(SpeakerAssistant, text)
	})
	return nil
}

// newsIntro wording is distinct per scope so the user hears what breadth
// they are getting.
func (s *Session) newsIntro(scope intent.Scope) string {
	switch scope {
	case intent.ScopeWorld:
		return "Here's the latest from around the world."
	case intent.ScopeCountry:
		return "Here are today's top national headlines."
	default:
		if s.profile.City != "" {
			return fmt.Sprintf("Here's what's happening around %s right now.", s.profile.City)
		}
		return "Here's what's happening near you right now."
	}
}

const (
	chatTemperature = 0.9
	chatMaxTokens   = 80

	chatFallback = "Sorry, something went wrong on my end. Ask me again?"
)

func (s *Session) handleChat(ctx context.Context, utterance string) error {
	s.refreshWeather(ctx)

	reply, err := s.completer.Complete(ctx, s.chatPrompt(utterance), chatTemperature, chatMaxTokens)
	if err != nil {
		logger.Warn("chat completion failed, serving fallback", "error", err)
		metrics.Global.IncrementChatFailures()
		reply = chatFallback
	} else {
		metrics.Global.IncrementChatCompletions()
	}

	s.appendTurn(SpeakerAssistant, reply)
	s.scheduler.Deliver(reply, nil, nil)
	return nil
}

// refreshWeather keeps the chat context current. The adapter absorbs every
// upstream failure, so the only error here is a missing city.
func (s *Session) refreshWeather(ctx context.Context) {
	if s.profile.City == "" {
		return
	}
	reading, err := s.weather.Current(ctx, s.profile.City)
	if err != nil {
		logger.Debug("weather unavailable for chat context", "error", err)
		return
	}

	s.mu.Lock()
	s.lastWeather = reading
	s.hasWeather = true
	s.mu.Unlock()
}

const (
	readoutTemperature = 0.4
	readoutMaxTokens   = 160
)

func (s *Session) handleReadout(ctx context.Context, ordinal int) error {
	s.mu.Lock()
	headlines := s.lastHeadlines
	s.mu.Unlock()

	if len(headlines) == 0 {
		s.say("I haven't read you any headlines yet. Ask me for the news first!")
		return nil
	}
	if ordinal < 1 || ordinal > len(headlines) {
		s.say(fmt.Sprintf("I only have %d headlines right now. Pick one of those.", len(headlines)))
		return nil
	}

	headline := headlines[ordinal-1]
	if headline.Link == "" {
		s.say(fmt.Sprintf("I only have the headline for that one: %s", headline.Title))
		return nil
	}

	article, err := s.readArticle(ctx, headline.Link)
	if err != nil {
		logger.Warn("article readout failed", "url", headline.Link, "error", err)
		s.say("I couldn't pull up that story just now. Want to hear the headlines again?")
		return nil
	}

	prompt := fmt.Sprintf(
		"Summarize this news article in at most 60 words, in a friendly spoken style.\nHeadline: %s\n\n%s",
		headline.Title, article.Content)
	reply, err := s.completer.Complete(ctx, prompt, readoutTemperature, readoutMaxTokens)
	if err != nil {
		logger.Warn("readout summarization failed, serving fallback", "error", err)
		metrics.Global.IncrementChatFailures()
		s.say("I found the story but couldn't summarize it. Maybe try another one?")
		return nil
	}

	metrics.Global.IncrementArticleReadouts()
	s.say(reply)
	return nil
}

// say appends an assistant turn and delivers it as a single segment.
func (s *Session) say(text string) {
	s.appendTurn(SpeakerAssistant, text)
	s.scheduler.Deliver(text, nil, nil)
}

func (s *Session) appendTurn(speaker Speaker, text string) {
	turn := Turn{
		ID:      uuid.NewString(),
		Speaker: speaker,
		Text:    text,
		At:      s.now(),
	}

	s.mu.Lock()
	s.transcript = append(s.transcript, turn)
	onTurn := s.onTurn
	s.mu.Unlock()

	if onTurn != nil {
		onTurn(turn)
	}
}
