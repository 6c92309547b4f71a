package background

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/BradenHooton/fintrack/internal/monitor"
)

// Sweepable drops idle state.
type Sweepable interface {
	Sweep() monitor.SweepResult
}

// Sweeper periodically evicts source keys whose monitor windows have emptied,
// bounding memory under address churn.
type Sweeper struct {
	target   Sweepable
	logger   *slog.Logger
	interval time.Duration
	stopCh   chan struct{}
	stopOnce sync.Once
}

// NewSweeper creates a new sweeper
func NewSweeper(target Sweepable, logger *slog.Logger, interval time.Duration) *Sweeper {
	if interval <= 0 {
		interval = time.Minute
	}
	return &Sweeper{
		target:   target,
		logger:   logger,
		interval: interval,
		stopCh:   make(chan struct{}),
	}
}

// Start runs the sweep loop until ctx is cancelled or Stop is called.
func (s *Sweeper) Start(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.runSweep()
		case <-s.stopCh:
			s.logger.Info("monitor sweeper stopped")
			return
		case <-ctx.Done():
			s.logger.Info("monitor sweeper context cancelled")
			return
		}
	}
}

func (s *Sweeper) runSweep() {
	res := s.target.Sweep()
	if res.Evicted > 0 {
		s.logger.Debug("monitor sweep completed",
			slog.Int("evicted", res.Evicted),
			slog.Int("tracked", res.Tracked))
	}
}

// Stop signals the sweeper to stop. It is safe to call more than once.
func (s *Sweeper) Stop() {
	s.stopOnce.Do(func() { close(s.stopCh) })
}
