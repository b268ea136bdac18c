package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/myravoice/myra/internal/news"
	"github.com/myravoice/myra/internal/weather"
)

func upstream(t *testing.T, handler http.HandlerFunc) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return srv
}

func newTestServer(t *testing.T, feedSrv, weatherSrv *httptest.Server) *Server {
	t.Helper()
	feeds := &news.ScopeFeeds{
		World:       feedSrv.URL + "/world",
		Country:     feedSrv.URL + "/country",
		LocalSearch: feedSrv.URL + "/search?q=%s",
		CountryTerm: "india",
	}
	aggregator := news.NewAggregator(feeds, time.Minute)
	weatherClient := weather.NewClient(weather.WithBaseURL(weatherSrv.URL))
	return New(":0", aggregator, weatherClient)
}

func get(t *testing.T, handler http.Handler, target string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
	return rec
}

func TestNewsEndpoint_JoinsHeadlines(t *testing.T) {
	feedSrv := upstream(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w,
			"<item><title>First headline with enough length</title></item>",
			"<item><title>Second headline with enough length</title></item>",
		)
	})
	weatherSrv := upstream(t, func(w http.ResponseWriter, r *http.Request) {})
	srv := newTestServer(t, feedSrv, weatherSrv)

	rec := get(t, srv.Handler(), "/news?scope=world")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var resp struct {
		News string `json:"news"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	want := "First headline with enough length • Second headline with enough length"
	if resp.News != want {
		t.Errorf("news = %q, want %q", resp.News, want)
	}
}

func TestNewsEndpoint_EmptyFeed(t *testing.T) {
	feedSrv := upstream(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "<rss></rss>")
	})
	weatherSrv := upstream(t, func(w http.ResponseWriter, r *http.Request) {})
	srv := newTestServer(t, feedSrv, weatherSrv)

	rec := get(t, srv.Handler(), "/news")
	if !strings.Contains(rec.Body.String(), emptyHeadlines) {
		t.Errorf("body = %q, want the empty-feed sentinel", rec.Body.String())
	}
}

func TestNewsEndpoint_UpstreamFailureStaysOK(t *testing.T) {
	feedSrv := upstream(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "down", http.StatusBadGateway)
	})
	weatherSrv := upstream(t, func(w http.ResponseWriter, r *http.Request) {})
	srv := newTestServer(t, feedSrv, weatherSrv)

	rec := get(t, srv.Handler(), "/news?scope=world")
	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200 even on upstream failure", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), failureHeadlines) {
		t.Errorf("body = %q, want the failure placeholder", rec.Body.String())
	}
}

func TestWeatherEndpoint_RequiresCity(t *testing.T) {
	feedSrv := upstream(t, func(w http.ResponseWriter, r *http.Request) {})
	weatherSrv := upstream(t, func(w http.ResponseWriter, r *http.Request) {})
	srv := newTestServer(t, feedSrv, weatherSrv)

	rec := get(t, srv.Handler(), "/weather")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "City required") {
		t.Errorf("body = %q, want the City required error", rec.Body.String())
	}
}

func TestWeatherEndpoint_ReturnsReading(t *testing.T) {
	feedSrv := upstream(t, func(w http.ResponseWriter, r *http.Request) {})
	weatherSrv := upstream(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{
			"current_condition": [{
				"temp_C": "22", "FeelsLikeC": "21",
				"localObsDateTime": "2025-06-01 08:00 AM",
				"weatherDesc": [{"value": "Clear"}]
			}],
			"nearest_area": []
		}`)
	})
	srv := newTestServer(t, feedSrv, weatherSrv)

	rec := get(t, srv.Handler(), "/weather?city=Delhi")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var resp struct {
		Temp      string `json:"temp"`
		Desc      string `json:"desc"`
		FeelsLike string `json:"feelsLike"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if resp.Temp != "22" || resp.Desc != "Clear" || resp.FeelsLike != "21" {
		t.Errorf("response = %+v, want the upstream reading", resp)
	}
}

func TestWeatherEndpoint_FallbackOnUpstreamFailure(t *testing.T) {
	feedSrv := upstream(t, func(w http.ResponseWriter, r *http.Request) {})
	weatherSrv := upstream(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "down", http.StatusServiceUnavailable)
	})
	srv := newTestServer(t, feedSrv, weatherSrv)

	rec := get(t, srv.Handler(), "/weather?city=Delhi")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 with the fallback reading", rec.Code)
	}
	var resp struct {
		Temp string `json:"temp"`
		Desc string `json:"desc"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if resp.Temp != weather.Fallback.TemperatureC || resp.Desc != weather.Fallback.Description {
		t.Errorf("response = %+v, want the fallback reading", resp)
	}
}
