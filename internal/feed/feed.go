// Package feed turns a raw RSS payload into a clean, deduplicated headline
// list. Google News titles carry entity escapes, CDATA wrappers and a
// trailing " - Source" suffix; everything here is tolerant by design and a
// malformed payload yields fewer (possibly zero) results, never an error.
package feed

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

// Headline is one normalized feed entry. Link is kept so a later turn can
// read the full article out loud; it may be empty.
type Headline struct {
	Title string
	Link  string
}

const (
	// DefaultMaxEntries bounds extraction when the caller passes max <= 0.
	DefaultMaxEntries = 10

	// minTitleLength rejects truncated fragments and bare source names.
	minTitleLength = 20

	// sourceSeparator is the feed convention of appending the outlet name.
	sourceSeparator = " - "
)

var (
	itemRe  = regexp.MustCompile(`(?s)<item>.*?</item>`)
	titleRe = regexp.MustCompile(`(?i)<title>(?:<!\[CDATA\[)?(.*?)(?:]]>)?</title>`)
	linkRe  = regexp.MustCompile(`(?i)<link>(?:<!\[CDATA\[)?(.*?)(?:]]>)?</link>`)
)

var entityReplacer = strings.NewReplacer(
	"&amp;", "&",
	"&#39;", "'",
	"&quot;", `"`,
)

// Extract pulls up to max normalized headlines out of payload, preserving
// input order. No two results share a dedup key.
func Extract(payload string, max int) []Headline {
	if max <= 0 {
		max = DefaultMaxEntries
	}

	entries := itemRe.FindAllString(payload, -1)
	if len(entries) == 0 {
		return nil
	}

	seen := make(map[string]struct{}, len(entries))
	headlines := make([]Headline, 0, max)

	for _, entry := range entries {
		title, ok := entryTitle(entry)
		if !ok {
			continue
		}

		key := dedupKey(title)
		if _, dup := seen[key]; dup || utf8.RuneCountInString(title) < minTitleLength {
			continue
		}
		seen[key] = struct{}{}

		headlines = append(headlines, Headline{
			Title: title,
			Link:  entryLink(entry),
		})
		if len(headlines) >= max {
			break
		}
	}

	return headlines
}

// entryTitle extracts and normalizes the title of one <item> block.
// Entries without a parseable, non-empty title are skipped.
func entryTitle(entry string) (string, bool) {
	m := titleRe.FindStringSubmatch(entry)
	if m == nil || m[1] == "" {
		return "", false
	}

	title := entityReplacer.Replace(m[1])
	title = strings.TrimSpace(title)
	// Keep only the part before the appended source name.
	if idx := strings.Index(title, sourceSeparator); idx >= 0 {
		title = title[:idx]
	}
	title = strings.TrimSpace(title)

	return title, title != ""
}

func entryLink(entry string) string {
	m := linkRe.FindStringSubmatch(entry)
	if m == nil {
		return ""
	}
	return strings.TrimSpace(m[1])
}

// dedupKey lowercases the title and strips everything non-alphanumeric so
// near-identical headlines collapse to one entry.
func dedupKey(title string) string {
	var b strings.Builder
	b.Grow(len(title))
	for _, r := range strings.ToLower(title) {
		if r >= 'a' && r <= 'z' || r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
