// Package news resolves a requested scope to an upstream feed query and
// produces a ranked, bounded headline list. Upstream trouble never escapes
// this package: every failure path resolves to the fixed placeholder list.
package news

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/myravoice/myra/internal/cache"
	"github.com/myravoice/myra/internal/feed"
	"github.com/myravoice/myra/internal/intent"
	"github.com/myravoice/myra/internal/logger"
	"github.com/myravoice/myra/internal/metrics"
)

const (
	// rawEntryBudget is how many entries we let the normalizer keep before
	// ranking truncates the list for the caller.
	rawEntryBudget = 20

	// MaxHeadlines caps what the dialogue loop receives.
	MaxHeadlines = 5

	userAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36"
)

// FallbackHeadlines stand in whenever the upstream fetch fails or nothing
// survives normalization. The dialogue loop must never see an empty or
// failed news request.
var FallbackHeadlines = []feed.Headline{
	{Title: "Latest updates from around the world."},
	{Title: "We'll have fresh headlines for you shortly."},
}

type Outcome string

const (
	OutcomeFresh    Outcome = "fresh"
	OutcomeCached   Outcome = "cached"
	OutcomeFallback Outcome = "fallback"
)

// Result carries the headline list plus an explicit tag describing where
// it came from, so the fallback path stays observable and testable.
type Result struct {
	Headlines []feed.Headline
	Outcome   Outcome
	// Reason explains a fallback outcome; empty otherwise.
	Reason string
}

type Aggregator struct {
	httpClient *http.Client
	feeds      *ScopeFeeds
	cache      *cache.Cache[[]feed.Headline]
	cacheTTL   time.Duration
}

func NewAggregator(feeds *ScopeFeeds, cacheTTL time.Duration) *Aggregator {
	if feeds == nil {
		feeds = DefaultFeeds()
	}
	return &Aggregator{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		feeds:      feeds,
		cache:      cache.New[[]feed.Headline](),
		cacheTTL:   cacheTTL,
	}
}

// ResolveQuery builds the upstream feed URL for a scope. Priority order is
// world > country > local; only local consults the city, and an absent
// city falls back to the country-wide search term.
func (a *Aggregator) ResolveQuery(scope intent.Scope, city string) string {
	switch scope {
	case intent.ScopeWorld:
		return a.feeds.World
	case intent.ScopeCountry:
		return a.feeds.Country
	default:
		query := a.feeds.CountryTerm
		if city = strings.TrimSpace(city); city != "" {
			query = city + " " + a.feeds.CountryTerm
		}
		return fmt.Sprintf(a.feeds.LocalSearch, url.QueryEscape(query))
	}
}

// TopHeadlines returns at most MaxHeadlines normalized headlines for the
// scope. It never fails: any upstream or parsing trouble yields the fixed
// placeholder list tagged as a fallback.
func (a *Aggregator) TopHeadlines(ctx context.Context, scope intent.Scope, city string) Result {
	metrics.Global.IncrementNewsRequests()

	query := a.ResolveQuery(scope, city)

	if cached, ok := a.cache.Get(query); ok {
		return Result{Headlines: cached, Outcome: OutcomeCached}
	}

	headlines, err := a.Fetch(ctx, scope, city, rawEntryBudget)
	if err != nil {
		logger.Warn("news fetch failed, serving placeholders", "scope", scope, "error", err)
		metrics.Global.IncrementNewsFallbacks()
		return Result{Headlines: FallbackHeadlines, Outcome: OutcomeFallback, Reason: err.Error()}
	}
	if len(headlines) == 0 {
		logger.Warn("no headlines survived normalization, serving placeholders", "scope", scope)
		metrics.Global.IncrementNewsFallbacks()
		return Result{Headlines: FallbackHeadlines, Outcome: OutcomeFallback, Reason: "no headlines survived normalization"}
	}

	if len(headlines) > MaxHeadlines {
		headlines = headlines[:MaxHeadlines]
	}
	a.cache.Set(query, headlines, a.cacheTTL)

	return Result{Headlines: headlines, Outcome: OutcomeFresh}
}

// Fetch downloads the resolved feed and runs it through the normalizer,
// keeping at most max entries. Unlike TopHeadlines it surfaces errors, so
// the HTTP collaborator endpoint can distinguish failure from an empty
// result. The resolved query is logged for diagnosis but never returned
// to the end user.
func (a *Aggregator) Fetch(ctx context.Context, scope intent.Scope, city string, max int) ([]feed.Headline, error) {
	query := a.ResolveQuery(scope, city)
	logger.Debug("resolved news query", "scope", scope, "url", query)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, query, nil)
	if err != nil {
		return nil, fmt.Errorf("building feed request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "application/xml, text/xml, */*")

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching feed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("feed fetch returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading feed body: %w", err)
	}

	return feed.Extract(string(body), max), nil
}
