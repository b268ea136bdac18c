// Package server exposes the news and weather collaborators over HTTP, so
// other frontends (or a curious operator) can hit the same adapters the
// dialogue loop uses.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/myravoice/myra/internal/feed"
	"github.com/myravoice/myra/internal/intent"
	"github.com/myravoice/myra/internal/logger"
	"github.com/myravoice/myra/internal/news"
	"github.com/myravoice/myra/internal/weather"
)

const (
	// headlineSeparator joins titles into the single spoken-style string the
	// news endpoint returns.
	headlineSeparator = " • "

	emptyHeadlines   = "No headlines right now."
	failureHeadlines = "Latest updates from around the world."
)

type Server struct {
	news    *news.Aggregator
	weather *weather.Client
	httpSrv *http.Server
}

func New(addr string, aggregator *news.Aggregator, weatherClient *weather.Client) *Server {
	s := &Server{
		news:    aggregator,
		weather: weatherClient,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/news", s.handleNews)
	mux.HandleFunc("/weather", s.handleWeather)

	s.httpSrv = &http.Server{
		Addr:         addr,
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 45 * time.Second,
	}
	return s
}

// Start runs the server until it fails or Shutdown is called.
func (s *Server) Start() error {
	logger.Info("collaborator server listening", "addr", s.httpSrv.Addr)
	if err := s.httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("collaborator server: %w", err)
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpSrv.Shutdown(ctx)
}

// Handler exposes the mux for tests.
func (s *Server) Handler() http.Handler {
	return s.httpSrv.Handler
}

type newsResponse struct {
	News string `json:"news"`
}

// handleNews serves up to ten joined headlines for ?scope= and ?city=.
// It always answers 200 with a headline string; upstream failure turns into
// the generic placeholder line.
func (s *Server) handleNews(w http.ResponseWriter, r *http.Request) {
	scope := intent.ParseScope(r.URL.Query().Get("scope"))
	city := r.URL.Query().Get("city")

	headlines, err := s.news.Fetch(r.Context(), scope, city, feed.DefaultMaxEntries)
	if err != nil {
		logger.Warn("news endpoint falling back", "scope", scope, "error", err)
		writeJSON(w, http.StatusOK, newsResponse{News: failureHeadlines})
		return
	}

	if len(headlines) == 0 {
		writeJSON(w, http.StatusOK, newsResponse{News: emptyHeadlines})
		return
	}

	titles := make([]string, 0, len(headlines))
	for _, h := range headlines {
		titles = append(titles, h.Title)
	}
	writeJSON(w, http.StatusOK, newsResponse{News: strings.Join(titles, headlineSeparator)})
}

type weatherResponse struct {
	Temp             string `json:"temp"`
	Desc             string `json:"desc"`
	FeelsLike        string `json:"feelsLike"`
	LocalObsDateTime string `json:"localObsDateTime,omitempty"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// handleWeather serves current conditions for ?city=. A missing city is a
// 400; every upstream failure already resolved to the fallback reading
// inside the adapter, so anything else is a 200.
func (s *Server) handleWeather(w http.ResponseWriter, r *http.Request) {
	city := r.URL.Query().Get("city")

	reading, err := s.weather.Current(r.Context(), city)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "City required"})
		return
	}

	writeJSON(w, http.StatusOK, weatherResponse{
		Temp:             reading.TemperatureC,
		Desc:             reading.Description,
		FeelsLike:        reading.FeelsLikeC,
		LocalObsDateTime: reading.ObservedAt,
	})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		logger.Error("writing response", "error", err)
	}
}
