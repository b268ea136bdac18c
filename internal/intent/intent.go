// Package intent maps a raw user utterance to a conversation intent.
// Classification is pure string matching today; the Classifier interface
// exists so a model-based classifier can be dropped in without touching
// the dialogue loop.
package intent

import (
	"regexp"
	"strconv"
	"strings"
)

// Scope is the geographic breadth of a news request.
type Scope string

const (
	ScopeLocal   Scope = "local"
	ScopeCountry Scope = "country"
	ScopeWorld   Scope = "world"
)

// ParseScope maps a query-string value to a scope, defaulting to local.
func ParseScope(s string) Scope {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case string(ScopeWorld):
		return ScopeWorld
	case string(ScopeCountry):
		return ScopeCountry
	default:
		return ScopeLocal
	}
}

type Kind int

const (
	// KindChat is the free-form default, handled by the completion model.
	KindChat Kind = iota
	// KindNews asks for headlines at some scope.
	KindNews
	// KindReadout asks to hear more about an already delivered headline.
	KindReadout
)

type Intent struct {
	Kind    Kind
	Scope   Scope // set for KindNews
	Ordinal int   // 1-based headline index, set for KindReadout
}

type Classifier interface {
	Classify(utterance string) Intent
}

// readoutRe matches follow-ups like "news 2", "headline #3" or
// "tell me about story 1". It never fires without a digit, so the plain
// news patterns below keep their behavior.
var readoutRe = regexp.MustCompile(`(?:news|headline|story|about)\s*#?\s*(\d+)\b`)

var localNewsKeywords = []string{"news", "headlines", "update", "what's happening"}

// nationalRe needs a word boundary so "international" does not get caught
// by the country branch before the world branch runs.
var nationalRe = regexp.MustCompile(`\bnational\b`)

// KeywordClassifier is the first-pass string-pattern classifier.
type KeywordClassifier struct{}

func NewKeywordClassifier() *KeywordClassifier { return &KeywordClassifier{} }

// Classify runs the ordered pattern checks; first match wins. The specific
// scope keywords are deliberately checked before the generic news pattern,
// otherwise "india news" would land in the local branch.
func (c *KeywordClassifier) Classify(utterance string) Intent {
	text := strings.ToLower(strings.TrimSpace(utterance))

	if m := readoutRe.FindStringSubmatch(text); m != nil {
		if n, err := strconv.Atoi(m[1]); err == nil && n > 0 {
			return Intent{Kind: KindReadout, Ordinal: n}
		}
	}

	if strings.Contains(text, "india news") || nationalRe.MatchString(text) {
		return Intent{Kind: KindNews, Scope: ScopeCountry}
	}

	if strings.Contains(text, "world news") || strings.Contains(text, "international") {
		return Intent{Kind: KindNews, Scope: ScopeWorld}
	}

	if containsAny(text, localNewsKeywords) {
		return Intent{Kind: KindNews, Scope: ScopeLocal}
	}

	return Intent{Kind: KindChat}
}

func containsAny(text string, keywords []string) bool {
	for _, k := range keywords {
		if strings.Contains(text, k) {
			return true
		}
	}
	return false
}
