package feed

import (
	"fmt"
	"strings"
	"testing"
)

func item(title, link string) string {
	return fmt.Sprintf("<item><title>%s</title><link>%s</link></item>", title, link)
}

func TestExtract_MalformedPayloadYieldsNothing(t *testing.T) {
	for _, payload := range []string{
		"",
		"not xml at all",
		"<rss><channel><title>only a channel title</title></channel></rss>",
		"<item><title>unterminated",
	} {
		if got := Extract(payload, 5); len(got) != 0 {
			t.Errorf("Extract(%q) = %v, want empty", payload, got)
		}
	}
}

func TestExtract_NormalizesTitles(t *testing.T) {
	payload := item("Rain &amp; thunder expected across the region - Daily Bugle", "https://example.com/rain")

	got := Extract(payload, 5)
	if len(got) != 1 {
		t.Fatalf("Extract returned %d headlines, want 1", len(got))
	}
	if got[0].Title != "Rain & thunder expected across the region" {
		t.Errorf("title = %q, want entities decoded and source suffix stripped", got[0].Title)
	}
	if got[0].Link != "https://example.com/rain" {
		t.Errorf("link = %q, want %q", got[0].Link, "https://example.com/rain")
	}
}

func TestExtract_HandlesCDATAAndQuoteEntities(t *testing.T) {
	payload := "<item><title><![CDATA[Mayor says &#39;no comment&#39; on the &quot;missing&quot; budget]]></title></item>"

	got := Extract(payload, 5)
	if len(got) != 1 {
		t.Fatalf("Extract returned %d headlines, want 1", len(got))
	}
	want := `Mayor says 'no comment' on the "missing" budget`
	if got[0].Title != want {
		t.Errorf("title = %q, want %q", got[0].Title, want)
	}
}

func TestExtract_DeduplicatesAcrossCaseAndPunctuation(t *testing.T) {
	payload := strings.Join([]string{
		item("Parliament passes the new transport bill", "https://example.com/a"),
		item("PARLIAMENT PASSES the new transport bill!!!", "https://example.com/b"),
		item("Parliament, passes the new transport bill.", "https://example.com/c"),
	}, "\n")

	got := Extract(payload, 5)
	if len(got) != 1 {
		t.Fatalf("Extract returned %d headlines, want 1 after dedup: %v", len(got), got)
	}
	if got[0].Link != "https://example.com/a" {
		t.Errorf("kept %q, want the first occurrence", got[0].Link)
	}
}

func TestExtract_RejectsShortTitles(t *testing.T) {
	payload := strings.Join([]string{
		item("Too short", "https://example.com/short"),
		item("This headline is comfortably long enough", "https://example.com/long"),
	}, "\n")

	got := Extract(payload, 5)
	if len(got) != 1 || got[0].Link != "https://example.com/long" {
		t.Errorf("Extract = %v, want only the long headline", got)
	}
}

func TestExtract_ShortTitleMeasuredInRunes(t *testing.T) {
	// 20 multibyte runes; byte length is well past the threshold either way.
	title := strings.Repeat("ñ", 20)
	got := Extract(item(title, ""), 5)
	if len(got) != 1 {
		t.Errorf("Extract kept %d headlines, want a 20-rune title accepted", len(got))
	}

	got = Extract(item(strings.Repeat("ñ", 19), ""), 5)
	if len(got) != 0 {
		t.Errorf("Extract kept %d headlines, want a 19-rune title rejected", len(got))
	}
}

func TestExtract_CapsAndPreservesOrder(t *testing.T) {
	var items []string
	for i := 0; i < 15; i++ {
		items = append(items, item(fmt.Sprintf("Numbered headline %02d with enough length", i), ""))
	}
	payload := strings.Join(items, "\n")

	got := Extract(payload, 0) // 0 means DefaultMaxEntries
	if len(got) != DefaultMaxEntries {
		t.Fatalf("Extract returned %d headlines, want %d", len(got), DefaultMaxEntries)
	}
	for i, h := range got {
		want := fmt.Sprintf("Numbered headline %02d with enough length", i)
		if h.Title != want {
			t.Errorf("headline %d = %q, want %q (input order)", i, h.Title, want)
		}
	}
}

func TestExtract_Deterministic(t *testing.T) {
	payload := strings.Join([]string{
		item("First stable headline with enough length", ""),
		item("Second stable headline with enough length", ""),
		item("Third stable headline with enough length", ""),
	}, "\n")

	first := Extract(payload, 5)
	for i := 0; i < 10; i++ {
		again := Extract(payload, 5)
		if len(again) != len(first) {
			t.Fatalf("run %d returned %d headlines, want %d", i, len(again), len(first))
		}
		for j := range first {
			if again[j] != first[j] {
				t.Fatalf("run %d headline %d = %v, want %v", i, j, again[j], first[j])
			}
		}
	}
}

func TestExtract_SkipsEntriesWithoutTitles(t *testing.T) {
	payload := strings.Join([]string{
		"<item><link>https://example.com/no-title</link></item>",
		"<item><title></title><link>https://example.com/empty</link></item>",
		item("A perfectly ordinary surviving headline", "https://example.com/ok"),
	}, "\n")

	got := Extract(payload, 5)
	if len(got) != 1 || got[0].Link != "https://example.com/ok" {
		t.Errorf("Extract = %v, want only the titled entry", got)
	}
}
