// Package scraper pulls readable article text out of a news page so the
// assistant can talk about a headline in more depth.
package scraper

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
)

// Article is the extracted text of one news page.
type Article struct {
	Title   string
	Content string
	URL     string
}

const (
	fetchTimeout = 15 * time.Second

	// maxContentLength keeps summarization prompts affordable.
	maxContentLength = 1800
)

// Extract downloads a page and pulls out its title and body text.
func Extract(ctx context.Context, url string) (*Article, error) {
	client := &http.Client{
		Timeout: fetchTimeout,
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("building article request: %w", err)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("error loading page: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != 200 {
		return nil, fmt.Errorf("HTTP error: %d", resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("error parsing HTML: %w", err)
	}

	content := cleanContent(extractContent(doc))
	title := extractTitle(doc)

	if content == "" {
		return nil, fmt.Errorf("can't get content")
	}

	return &Article{
		Title:   title,
		Content: content,
		URL:     url,
	}, nil
}

// extractContent collects body paragraphs, trying the most common article
// selectors first.
func extractContent(doc *goquery.Document) string {
	var paragraphs []string

	selectors := []string{
		"article p",
		".article p",
		".article-body p",
		".content p",
		".post-content p",
		".entry-content p",
		"main p",
		"#content p",
		"p",
	}

	for _, selector := range selectors {
		doc.Find(selector).Each(func(i int, s *goquery.Selection) {
			text := strings.TrimSpace(s.Text())
			if text != "" && len(text) > 20 {
				paragraphs = append(paragraphs, text)
			}
		})
		if len(paragraphs) >= 3 { // Three paragraphs is enough for a readout
			break
		}
	}

	return strings.Join(paragraphs, "\n\n")
}

// extractTitle gets article title
func extractTitle(doc *goquery.Document) string {
	selectors := []string{
		"h1",
		".article-title",
		".headline",
		".entry-title",
		"title",
	}

	for _, selector := range selectors {
		title := doc.Find(selector).First().Text()
		title = strings.TrimSpace(title)
		if title != "" {
			return title
		}
	}

	return ""
}

// cleanContent normalizes whitespace, drops boilerplate lines and bounds
// the total length while keeping whole paragraphs.
func cleanContent(content string) string {
	if content == "" {
		return ""
	}

	junkIndicators := []string{
		"cookie", "gdpr", "subscribe", "newsletter", "sign in",
		"click here", "follow us", "share this", "advertisement",
	}

	var cleanLines []string
	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)
		if len(line) < 8 {
			continue
		}

		lower := strings.ToLower(line)
		isJunk := false
		for _, indicator := range junkIndicators {
			if strings.Contains(lower, indicator) {
				isJunk = true
				break
			}
		}
		if isJunk {
			continue
		}

		cleanLines = append(cleanLines, line)
	}

	result := strings.Join(cleanLines, "\n\n")
	for strings.Contains(result, "  ") {
		result = strings.ReplaceAll(result, "  ", " ")
	}
	result = strings.TrimSpace(result)

	// Limit length, keep full paragraphs
	if len(result) > maxContentLength {
		paragraphs := strings.Split(result, "\n\n")
		var selected []string
		total := 0

		for _, paragraph := range paragraphs {
			if total+len(paragraph) >= maxContentLength-200 {
				break
			}
			selected = append(selected, paragraph)
			total += len(paragraph) + 2
		}

		if len(selected) > 0 {
			result = strings.Join(selected, "\n\n")
		}
	}

	return result
}
