// Package weather fetches current conditions from wttr.in. A missing city
// is the caller's error and surfaces directly; everything that can go
// wrong upstream is absorbed into a static fallback reading at this
// boundary, so the dialogue loop never sees a weather failure.
package weather

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/myravoice/myra/internal/logger"
	"github.com/myravoice/myra/internal/metrics"
)

// ErrCityRequired is the one error Current can return: an empty city is a
// caller mistake, not an upstream failure, so it is never defaulted.
var ErrCityRequired = errors.New("city required")

// Reading is one weather observation. Values stay strings because wttr.in
// serves them that way and we only ever speak them.
type Reading struct {
	TemperatureC string
	Description  string
	FeelsLikeC   string
	ObservedAt   string
}

// Fallback is served whenever the upstream call fails in any way.
var Fallback = Reading{TemperatureC: "28", Description: "Sunny", FeelsLikeC: "30"}

const DefaultTimeout = 10 * time.Second

type Client struct {
	httpClient *http.Client
	baseURL    string
	timeout    time.Duration
}

type Option func(*Client)

// WithBaseURL points the client at a different upstream (tests).
func WithBaseURL(u string) Option {
	return func(c *Client) { c.baseURL = u }
}

func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.timeout = d }
}

func NewClient(opts ...Option) *Client {
	c := &Client{
		httpClient: &http.Client{},
		baseURL:    "https://wttr.in",
		timeout:    DefaultTimeout,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Current returns the current reading for city. Upstream failure, timeout
// and malformed payloads all resolve to Fallback; only an empty city is an
// error.
func (c *Client) Current(ctx context.Context, city string) (Reading, error) {
	city = strings.TrimSpace(city)
	if city == "" {
		return Reading{}, ErrCityRequired
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	reading, err := c.fetch(ctx, city)
	if err != nil {
		logger.Warn("weather fetch failed, serving fallback", "city", city, "error", err)
		metrics.Global.IncrementWeatherFallbacks()
		return Fallback, nil
	}
	return reading, nil
}

// wttr.in ?format=j1 payload, reduced to the fields we read.
type observation struct {
	CurrentCondition []struct {
		TempC            string `json:"temp_C"`
		FeelsLikeC       string `json:"FeelsLikeC"`
		LocalObsDateTime string `json:"localObsDateTime"`
		WeatherDesc      []struct {
			Value string `json:"value"`
		} `json:"weatherDesc"`
	} `json:"current_condition"`
	NearestArea []struct {
		LocalObsDateTime string `json:"localObsDateTime"`
	} `json:"nearest_area"`
}

func (c *Client) fetch(ctx context.Context, city string) (Reading, error) {
	endpoint := c.baseURL + "/" + url.PathEscape(city) + "?format=j1"

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return Reading{}, fmt.Errorf("building weather request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Reading{}, fmt.Errorf("fetching weather: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Reading{}, fmt.Errorf("weather fetch returned status %d", resp.StatusCode)
	}

	var obs observation
	if err := json.NewDecoder(resp.Body).Decode(&obs); err != nil {
		return Reading{}, fmt.Errorf("decoding weather payload: %w", err)
	}

	if len(obs.CurrentCondition) == 0 || len(obs.CurrentCondition[0].WeatherDesc) == 0 {
		return Reading{}, fmt.Errorf("weather payload missing current conditions")
	}
	cond := obs.CurrentCondition[0]

	// Prefer the location-level timestamp, fall back to the condition-level
	// one, default to empty.
	observedAt := cond.LocalObsDateTime
	if len(obs.NearestArea) > 0 && obs.NearestArea[0].LocalObsDateTime != "" {
		observedAt = obs.NearestArea[0].LocalObsDateTime
	}

	return Reading{
		TemperatureC: cond.TempC,
		Description:  cond.WeatherDesc[0].Value,
		FeelsLikeC:   cond.FeelsLikeC,
		ObservedAt:   observedAt,
	}, nil
}
