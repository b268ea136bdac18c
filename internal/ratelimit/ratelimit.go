// Package ratelimit guards the chat-completion budget: a daily request cap
// plus short-term pacing so a chatty user cannot burn through the quota.
package ratelimit

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

type Limiter struct {
	mu        sync.Mutex
	pacer     *rate.Limiter
	used      int
	maxDaily  int // 0 = unlimited
	resetTime time.Time
}

// New creates a limiter allowing maxDaily requests per day, paced at
// requestsPerSecond with a burst of one.
func New(maxDaily int, requestsPerSecond float64) *Limiter {
	if requestsPerSecond <= 0 {
		requestsPerSecond = 1
	}
	return &Limiter{
		pacer:     rate.NewLimiter(rate.Limit(requestsPerSecond), 1),
		maxDaily:  maxDaily,
		resetTime: time.Now().Add(24 * time.Hour), // Reset daily
	}
}

// Acquire blocks until pacing allows another request, then consumes one
// unit of the daily budget. Returns an error when the budget is exhausted.
func (l *Limiter) Acquire(ctx context.Context) error {
	l.mu.Lock()
	l.checkReset()
	if l.maxDaily > 0 && l.used >= l.maxDaily {
		l.mu.Unlock()
		return fmt.Errorf("chat request budget exceeded (%d/%d)", l.used, l.maxDaily)
	}
	l.used++
	used, max := l.used, l.maxDaily
	l.mu.Unlock()

	if err := l.pacer.Wait(ctx); err != nil {
		return fmt.Errorf("rate limiter wait: %w", err)
	}

	log.Printf("chat usage: %d/%d", used, max)
	return nil
}

func (l *Limiter) GetStats() map[string]interface{} {
	l.mu.Lock()
	defer l.mu.Unlock()

	return map[string]interface{}{
		"chat_used":   l.used,
		"chat_limit":  l.maxDaily,
		"reset_time":  l.resetTime,
	}
}

// checkReset resets the counter if reset time has passed. Caller holds mu.
func (l *Limiter) checkReset() {
	if time.Now().After(l.resetTime) {
		log.Printf("resetting chat request counter (%d used)", l.used)
		l.used = 0
		l.resetTime = time.Now().Add(24 * time.Hour)
	}
}
