package dialogue

import (
	"fmt"
	"strings"
	"time"
)

// chatPrompt assembles the completion prompt for a free-form turn: persona,
// who and where the user is, the time of day with a matching tone, the last
// known weather and headlines, then the utterance itself.
func (s *Session) chatPrompt(utterance string) string {
	s.mu.Lock()
	reading := s.lastWeather
	hasWeather := s.hasWeather
	headlines := s.lastHeadlines
	s.mu.Unlock()

	greeting, tone := timeOfDay(s.now())

	var b strings.Builder
	fmt.Fprintf(&b, "You are %s, a witty voice assistant", s.persona)
	if s.profile.Name != "" {
		fmt.Fprintf(&b, " for %s", s.profile.Name)
	}
	if s.profile.City != "" {
		fmt.Fprintf(&b, " in %s", s.profile.City)
	}
	b.WriteString(".\n")
	fmt.Fprintf(&b, "It is %s for them; keep the tone %s.\n", strings.ToLower(greeting), tone)

	if hasWeather {
		fmt.Fprintf(&b, "Current weather: %s, %s degrees (feels like %s).\n",
			reading.Description, reading.TemperatureC, reading.FeelsLikeC)
	}
	if len(headlines) > 0 {
		titles := make([]string, 0, len(headlines))
		for _, h := range headlines {
			titles = append(titles, h.Title)
		}
		fmt.Fprintf(&b, "Headlines they just heard: %s.\n", strings.Join(titles, "; "))
	}

	fmt.Fprintf(&b, "User said: %q\n", utterance)
	b.WriteString("Reply in under 50 words, conversational and warm, and end with a short question.")
	return b.String()
}

// timeOfDay buckets the clock into a spoken greeting and a tone hint.
func timeOfDay(t time.Time) (greeting, tone string) {
	switch hour := t.Hour(); {
	case hour < 5:
		return "Late night", "gentle and quiet"
	case hour < 12:
		return "Good morning", "bright and cheerful"
	case hour < 17:
		return "Good afternoon", "upbeat"
	case hour < 21:
		return "Good evening", "relaxed"
	default:
		return "Good night", "calm"
	}
}
