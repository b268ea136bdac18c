package metrics

import (
	"sync"
	"time"
)

type Metrics struct {
	mu sync.RWMutex

	// Counters
	TurnsProcessed   int64
	InputsDropped    int64
	NewsRequests     int64
	NewsFallbacks    int64
	WeatherFallbacks int64
	ChatCompletions  int64
	ChatFailures     int64
	SegmentsSpoken   int64
	ArticleReadouts  int64

	// Timings
	LastTurnTime    time.Duration
	AverageTurnTime time.Duration
	TotalTurnTime   time.Duration
	TurnCount       int64

	// Status
	LastTurnAt    time.Time
	LastErrorTime time.Time
	LastError     string
	IsHealthy     bool
}

var Global = &Metrics{IsHealthy: true}

func (m *Metrics) IncrementTurnsProcessed() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.TurnsProcessed++
}

func (m *Metrics) IncrementInputsDropped() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.InputsDropped++
}

func (m *Metrics) IncrementNewsRequests() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.NewsRequests++
}

func (m *Metrics) IncrementNewsFallbacks() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.NewsFallbacks++
}

func (m *Metrics) IncrementWeatherFallbacks() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.WeatherFallbacks++
}

func (m *Metrics) IncrementChatCompletions() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ChatCompletions++
}

func (m *Metrics) IncrementChatFailures() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ChatFailures++
}

func (m *Metrics) IncrementSegmentsSpoken() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.SegmentsSpoken++
}

func (m *Metrics) IncrementArticleReadouts() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ArticleReadouts++
}

func (m *Metrics) RecordTurnTime(duration time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.LastTurnTime = duration
	m.TotalTurnTime += duration
	m.TurnCount++

	if m.TurnCount > 0 {
		m.AverageTurnTime = m.TotalTurnTime / time.Duration(m.TurnCount)
	}
}

func (m *Metrics) SetLastTurn() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.LastTurnAt = time.Now()
	m.IsHealthy = true
}

func (m *Metrics) SetError(err string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.LastError = err
	m.LastErrorTime = time.Now()
	m.IsHealthy = false
}

func (m *Metrics) GetStats() map[string]interface{} {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return map[string]interface{}{
		"turns_processed":      m.TurnsProcessed,
		"inputs_dropped":       m.InputsDropped,
		"news_requests":        m.NewsRequests,
		"news_fallbacks":       m.NewsFallbacks,
		"weather_fallbacks":    m.WeatherFallbacks,
		"chat_completions":     m.ChatCompletions,
		"chat_failures":        m.ChatFailures,
		"segments_spoken":      m.SegmentsSpoken,
		"article_readouts":     m.ArticleReadouts,
		"last_turn_time_ms":    m.LastTurnTime.Milliseconds(),
		"average_turn_time_ms": m.AverageTurnTime.Milliseconds(),
		"last_turn_at":         m.LastTurnAt.Format(time.RFC3339),
		"last_error_time":      m.LastErrorTime.Format(time.RFC3339),
		"last_error":           m.LastError,
		"is_healthy":           m.IsHealthy,
	}
}
