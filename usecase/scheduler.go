package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"bargain-backend/model"
	"bargain-backend/pkg/metrics"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const (
	DefaultMaxConcurrent = 5
	DefaultBatchTimeout  = 300 * time.Second

	reasonTimedOut  = "negotiation timed out"
	reasonCancelled = "negotiation cancelled"
)

type SchedulerConfig struct {
	MaxConcurrent int
	// Timeout is one deadline for the whole batch, not per session.
	Timeout time.Duration
}

// Scheduler fans negotiations out over a bounded set of concurrent sessions.
type Scheduler struct {
	negotiator Negotiator
	cfg        SchedulerConfig
	logger     *zap.Logger
	metrics    *metrics.Recorder
}

type SchedulerOption func(*Scheduler)

func WithSchedulerLogger(logger *zap.Logger) SchedulerOption {
	return func(s *Scheduler) { s.logger = logger }
}

func WithSchedulerMetrics(m *metrics.Recorder) SchedulerOption {
	return func(s *Scheduler) { s.metrics = m }
}

// NewScheduler builds a scheduler. The negotiator must return promptly once
// its context is done.
func NewScheduler(negotiator Negotiator, cfg SchedulerConfig, opts ...SchedulerOption) *Scheduler {
	if cfg.MaxConcurrent < 1 {
		cfg.MaxConcurrent = DefaultMaxConcurrent
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultBatchTimeout
	}
	s := &Scheduler{
		negotiator: negotiator,
		cfg:        cfg,
		logger:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Selected is the prefix of candidates a batch will negotiate with. The rest
// are never contacted.
func (s *Scheduler) Selected(candidates []model.Candidate) []model.Candidate {
	return candidates[:min(len(candidates), s.cfg.MaxConcurrent)]
}

// Negotiate runs one session per selected candidate and returns their
// outcomes in candidate order. Sessions still running at the deadline are
// reported as timed out; sessions that already finished keep their outcome.
func (s *Scheduler) Negotiate(ctx context.Context, candidates []model.Candidate, targetPrice float64) []model.NegotiationOutcome {
	selected := s.Selected(candidates)
	if len(selected) == 0 {
		return []model.NegotiationOutcome{}
	}

	batchCtx, cancel := context.WithTimeout(ctx, s.cfg.Timeout)
	defer cancel()

	batch := newOutcomeBatch(len(selected))

	var g errgroup.Group
	g.SetLimit(s.cfg.MaxConcurrent)
	for i, item := range selected {
		g.Go(func() error {
			out := s.runOne(batchCtx, item, targetPrice)
			if cutShort(batchCtx, out) {
				// seal reports it
				return nil
			}
			batch.set(i, out)
			return nil
		})
	}

	done := make(chan struct{})
	go func() {
		_ = g.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-batchCtx.Done():
		s.logger.Warn("negotiation batch deadline reached",
			zap.Duration("timeout", s.cfg.Timeout),
			zap.Int("finished", batch.finished()),
			zap.Int("total", len(selected)))
	}

	reason := reasonTimedOut
	if errors.Is(ctx.Err(), context.Canceled) {
		reason = reasonCancelled
	}

	outcomes := batch.seal(selected, reason)
	for _, o := range outcomes {
		s.metrics.Outcome(outcomeLabel(o))
	}
	return outcomes
}

func (s *Scheduler) runOne(ctx context.Context, item model.Candidate, targetPrice float64) (out model.NegotiationOutcome) {
	s.metrics.SessionStarted()
	defer s.metrics.SessionFinished()

	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("negotiation session panicked",
				zap.String("seller_id", item.SellerID),
				zap.Any("panic", r))
			out = model.FailedOutcome(item, fmt.Sprintf("%v: %v", ErrSessionPanic, r))
		}
	}()

	return s.negotiator.Run(ctx, item, targetPrice)
}

// cutShort reports whether a session failed only because ctx ended. Other
// failures keep their reason even when they land after the deadline.
func cutShort(ctx context.Context, o model.NegotiationOutcome) bool {
	return !o.Success && ctx.Err() != nil && strings.HasPrefix(o.FailureReason, reasonCancelled)
}

func outcomeLabel(o model.NegotiationOutcome) string {
	switch {
	case o.Success:
		return "settled"
	case o.FailureReason == reasonTimedOut:
		return "timeout"
	default:
		return "failed"
	}
}

// outcomeBatch collects session results. Once sealed, late results are
// dropped so the returned slice never changes under the caller.
type outcomeBatch struct {
	mu       sync.Mutex
	outcomes []model.NegotiationOutcome
	filled   []bool
	sealed   bool
}

func newOutcomeBatch(n int) *outcomeBatch {
	return &outcomeBatch{
		outcomes: make([]model.NegotiationOutcome, n),
		filled:   make([]bool, n),
	}
}

func (b *outcomeBatch) set(i int, o model.NegotiationOutcome) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.sealed {
		return
	}
	b.outcomes[i] = o
	b.filled[i] = true
}

func (b *outcomeBatch) finished() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	n := 0
	for _, ok := range b.filled {
		if ok {
			n++
		}
	}
	return n
}

// seal fills every empty slot with a failure for its candidate and returns a
// copy of the results.
func (b *outcomeBatch) seal(items []model.Candidate, reason string) []model.NegotiationOutcome {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.sealed = true

	out := make([]model.NegotiationOutcome, len(b.outcomes))
	for i := range b.outcomes {
		if b.filled[i] {
			out[i] = b.outcomes[i]
		} else {
			out[i] = model.FailedOutcome(items[i], reason)
		}
	}
	return out
}
