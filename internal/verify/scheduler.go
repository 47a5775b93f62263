package verify

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/Alias1177/footcast/models"
)

// ErrBusy is returned by Trigger while a batch is already running
var ErrBusy = errors.New("verification already running")

// Runner runs one reconciliation batch
type Runner interface {
	Run(ctx context.Context) models.VerificationSummary
}

// SummaryHandler receives every finished batch summary
type SummaryHandler func(ctx context.Context, summary models.VerificationSummary)

// Scheduler runs batches periodically. At most one batch runs at a time.
type Scheduler struct {
	runner    Runner
	interval  time.Duration
	onSummary SummaryHandler
	running   atomic.Bool
	logger    zerolog.Logger
}

// NewScheduler creates a scheduler running r every interval.
// onSummary may be nil.
func NewScheduler(r Runner, interval time.Duration, onSummary SummaryHandler) *Scheduler {
	if interval <= 0 {
		interval = time.Hour
	}
	return &Scheduler{
		runner:    r,
		interval:  interval,
		onSummary: onSummary,
		logger:    log.With().Str("component", "verify_scheduler").Logger(),
	}
}

// Start runs a batch immediately and then on every tick until ctx is done.
// Ticks that arrive while a batch is still running are dropped.
func (s *Scheduler) Start(ctx context.Context) {
	s.logger.Info().Dur("interval", s.interval).Msg("Verification scheduler started")

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.tick(ctx)
	for {
		select {
		case <-ctx.Done():
			s.logger.Info().Msg("Verification scheduler stopped")
			return
		case <-ticker.C:
			s.tick(ctx)
		}
	}
}

func (s *Scheduler) tick(ctx context.Context) {
	if _, err := s.Trigger(ctx); errors.Is(err, ErrBusy) {
		s.logger.Warn().Msg("Previous verification batch still running, skipping tick")
	}
}

// Trigger runs a batch now and returns its summary, or ErrBusy if one is in progress
func (s *Scheduler) Trigger(ctx context.Context) (models.VerificationSummary, error) {
	if !s.running.CompareAndSwap(false, true) {
		return models.VerificationSummary{}, ErrBusy
	}
	defer s.running.Store(false)

	summary := s.runner.Run(ctx)
	if s.onSummary != nil {
		s.onSummary(ctx, summary)
	}
	return summary, nil
}

// Running reports whether a batch is in progress
func (s *Scheduler) Running() bool {
	return s.running.Load()
}
