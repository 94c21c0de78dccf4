package worker

import (
	"context"
	"time"

	"github.com/tair/marketplace-payments/internal/payment/usecase/command"
	"github.com/tair/marketplace-payments/pkg/logger"
)

// SweepHandler runs one pass over stale pending intents.
type SweepHandler interface {
	Handle(ctx context.Context, cmd command.SweepPendingCommand) (*command.SweepResult, error)
}

// Sweeper periodically checks intents whose callback is overdue.
type Sweeper struct {
	Handler   SweepHandler
	Interval  time.Duration
	OlderThan time.Duration
	BatchSize int
}

// NewSweeper creates a sweeper. A non-positive interval disables it.
func NewSweeper(handler SweepHandler, interval, olderThan time.Duration, batchSize int) *Sweeper {
	return &Sweeper{
		Handler:   handler,
		Interval:  interval,
		OlderThan: olderThan,
		BatchSize: batchSize,
	}
}

// Enabled reports whether Run does anything.
func (s *Sweeper) Enabled() bool {
	return s != nil && s.Handler != nil && s.Interval > 0
}

// Run sweeps on every tick until ctx is done.
func (s *Sweeper) Run(ctx context.Context) {
	if !s.Enabled() {
		logger.Info(ctx).Msg("Pending intent sweeper disabled")
		return
	}

	logger.Info(ctx).
		Dur("interval", s.Interval).
		Dur("older_than", s.OlderThan).
		Int("batch_size", s.BatchSize).
		Msg("Pending intent sweeper started")

	ticker := time.NewTicker(s.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Info(context.Background()).Msg("Pending intent sweeper stopped")
			return
		case <-ticker.C:
			if _, err := s.SweepOnce(ctx); err != nil {
				logger.Error(ctx).Err(err).Msg("Pending intent sweep failed")
			}
		}
	}
}

// SweepOnce runs a single pass.
func (s *Sweeper) SweepOnce(ctx context.Context) (*command.SweepResult, error) {
	return s.Handler.Handle(ctx, command.SweepPendingCommand{
		OlderThan: s.OlderThan,
		Limit:     s.BatchSize,
	})
}
