// Package speech sequences assistant text into timed, non-overlapping
// spoken output. The scheduler is fire-and-forget relative to the dialogue
// turn that created a delivery: the turn finishes (and the session accepts
// new input) while later segments are still pending.
package speech

import (
	"context"
	"sync"
	"time"

	"github.com/myravoice/myra/internal/logger"
	"github.com/myravoice/myra/internal/metrics"
)

// Synthesizer turns one text segment into audible output. Speak blocks
// until playback finishes or ctx is cancelled; Stop aborts any in-flight
// utterance. Implementations do not need to serialize calls themselves,
// the scheduler never dispatches two segments at once.
type Synthesizer interface {
	Speak(ctx context.Context, text string) error
	Stop()
}

// Policy controls what happens to a previous delivery's pending segments
// when a new delivery starts.
type Policy string

const (
	// PolicyInterleave keeps pending segments running; output from two
	// turns may interleave. This matches the original product behavior.
	PolicyInterleave Policy = "interleave"
	// PolicyCancel aborts pending segments of the previous delivery.
	PolicyCancel Policy = "cancel"
)

// DefaultGap is the offset multiple between scheduled segments.
const DefaultGap = 7500 * time.Millisecond

type Scheduler struct {
	synth  Synthesizer
	gap    time.Duration
	policy Policy

	mu         sync.Mutex
	cancelPrev context.CancelFunc

	// dispatchMu serializes segment dispatch across deliveries so no two
	// segments are ever spoken concurrently.
	dispatchMu sync.Mutex

	wg sync.WaitGroup
}

type SchedulerOption func(*Scheduler)

func WithGap(gap time.Duration) SchedulerOption {
	return func(s *Scheduler) {
		if gap > 0 {
			s.gap = gap
		}
	}
}

func WithPolicy(policy Policy) SchedulerOption {
	return func(s *Scheduler) { s.policy = policy }
}

func NewScheduler(synth Synthesizer, opts ...SchedulerOption) *Scheduler {
	s := &Scheduler{
		synth:  synth,
		gap:    DefaultGap,
		policy: PolicyInterleave,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Deliver schedules intro for immediate dispatch and every following
// segment at gap x its 1-based position, all relative to now. announce is
// called right before each trailing segment is spoken (the caller has
// already announced the intro itself); it may be nil. Deliver returns
// immediately.
func (s *Scheduler) Deliver(intro string, segments []string, announce func(text string)) {
	s.mu.Lock()
	if s.policy == PolicyCancel && s.cancelPrev != nil {
		s.cancelPrev()
	}
	ctx, cancel := context.WithCancel(context.Background())
	s.cancelPrev = cancel
	s.mu.Unlock()

	s.wg.Add(1)
	go s.run(ctx, intro, segments, announce)
}

// Wait blocks until all pending deliveries have finished. Used on
// shutdown and in tests.
func (s *Scheduler) Wait() {
	s.wg.Wait()
}

func (s *Scheduler) run(ctx context.Context, intro string, segments []string, announce func(string)) {
	defer s.wg.Done()

	start := time.Now()
	s.dispatch(ctx, intro)

	for i, segment := range segments {
		due := start.Add(time.Duration(i+1) * s.gap)
		select {
		case <-ctx.Done():
			logger.Debug("pending segments cancelled", "remaining", len(segments)-i)
			return
		case <-time.After(time.Until(due)):
		}

		if announce != nil {
			announce(segment)
		}
		s.dispatch(ctx, segment)
	}
}

// dispatch speaks one segment. Cancel-then-speak: any in-flight utterance
// from an interleaved delivery is stopped before the new one starts, so
// audio never overlaps.
func (s *Scheduler) dispatch(ctx context.Context, text string) {
	if text == "" {
		return
	}

	s.dispatchMu.Lock()
	defer s.dispatchMu.Unlock()

	if ctx.Err() != nil {
		return
	}

	s.synth.Stop()
	if err := s.synth.Speak(ctx, text); err != nil {
		logger.Warn("speech synthesis failed", "error", err)
		return
	}
	metrics.Global.IncrementSegmentsSpoken()
}
