package payment

import (
	"context"
	"time"

	"shopora-be/internal/logger"

	"go.uber.org/zap"
)

const sweepBatchSize = 100

// Sweeper cancels orders whose payment session expired without a settlement.
// It is the safety net behind the callback and the IPN: even if neither ever
// arrives, reserved stock comes back within one sweep interval of expiry.
type Sweeper struct {
	sessions   Repository
	reconciler Reconciler
	interval   time.Duration
}

func NewSweeper(sessions Repository, reconciler Reconciler, interval time.Duration) *Sweeper {
	if interval <= 0 {
		interval = time.Minute
	}
	return &Sweeper{sessions: sessions, reconciler: reconciler, interval: interval}
}

// Run blocks until ctx is cancelled, sweeping once per interval.
func (s *Sweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.SweepOnce(ctx)
		}
	}
}

func (s *Sweeper) SweepOnce(ctx context.Context) {
	log := logger.FromCtx(ctx).With(
		zap.String("layer", "worker"),
		zap.String("method", "SweepOnce"),
	)

	sessions, err := s.sessions.ExpiredUnconsumed(ctx, sweepBatchSize)
	if err != nil {
		log.Error("list expired payment sessions", zap.Error(err))
		return
	}

	for _, session := range sessions {
		outcome, err := s.reconciler.Expire(ctx, session.OrderCode, ChannelSweeper)
		if err != nil {
			log.Error("expire payment session",
				zap.String("orderCode", session.OrderCode), zap.Error(err))
			continue
		}
		if outcome == OutcomeCancelled {
			log.Info("expired session swept", zap.String("orderCode", session.OrderCode))
		}
	}
}
