package distribution

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Sweeper invokes the batch sweep on a fixed interval. It is the scheduled
// replacement for ad-hoc top-up triggers: start it once, cancel the context
// to stop it.
type Sweeper struct {
	engine   *Engine
	division string
	interval time.Duration
}

// NewSweeper creates a Sweeper running every interval for one division.
func NewSweeper(engine *Engine, division string, interval time.Duration) *Sweeper {
	if interval <= 0 {
		interval = 15 * time.Minute
	}
	return &Sweeper{engine: engine, division: division, interval: interval}
}

// Run sweeps immediately and then on every tick until the context is
// cancelled. A failed sweep is logged and the loop continues.
func (s *Sweeper) Run(ctx context.Context) {
	log := zap.L().With(zap.String("component", "distribution.sweeper"), zap.String("division", s.division))

	s.sweep(ctx, log)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			log.Info("sweeper stopped")
			return
		case <-ticker.C:
			s.sweep(ctx, log)
		}
	}
}

func (s *Sweeper) sweep(ctx context.Context, log *zap.Logger) {
	result, err := s.engine.BatchSweep(ctx, s.division)
	if err != nil {
		log.Error("scheduled sweep failed", zap.Error(err))
		return
	}
	log.Info("scheduled sweep finished", zap.Int("employees_topped_up", len(result.Results)))
}
