package discount

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Sweeper периодически откатывает просроченные скидки.
type Sweeper struct {
	engine   *Engine
	interval time.Duration
	zaplog   *zap.Logger
}

func NewSweeper(engine *Engine, zaplog *zap.Logger) *Sweeper {
	interval := engine.cfg.SweepInterval
	if interval <= 0 {
		interval = time.Hour
	}
	return &Sweeper{engine: engine, interval: interval, zaplog: zaplog}
}

// Run блокирует до отмены ctx. Первый проход - сразу при запуске.
func (s *Sweeper) Run(ctx context.Context) {
	s.tick(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.tick(ctx)
		}
	}
}

func (s *Sweeper) tick(ctx context.Context) {
	if _, err := s.engine.Sweep(ctx); err != nil && ctx.Err() == nil {
		s.zaplog.Error("discount sweep", zap.Error(err))
	}
}
