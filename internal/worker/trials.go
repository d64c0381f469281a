// Package worker runs periodic background jobs next to the API server.
package worker

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/01moynul/dayplanner-golang/internal/models"
)

// TrialLister finds subscriptions whose trial should already have converted or ended.
type TrialLister interface {
	LapsedTrials(ctx context.Context, cutoff time.Time, limit int) ([]int64, error)
}

// Reconciler re-reads one user's subscription from the billing provider.
type Reconciler interface {
	Reconcile(ctx context.Context, userID int64) (models.Subscription, error)
}

// TrialSweeper reconciles trials the provider webhook never told us about.
type TrialSweeper struct {
	Trials   TrialLister
	Billing  Reconciler
	Logger   *zap.Logger
	Interval time.Duration
	// Grace is how long after trial end the webhook gets before we ask the provider ourselves.
	Grace time.Duration
	Batch int
	Now   func() time.Time
}

// Run sweeps every Interval until ctx is done.
func (s *TrialSweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(s.Interval)
	defer ticker.Stop()

	s.Logger.Info("trial sweeper started", zap.Duration("interval", s.Interval))
	for {
		select {
		case <-ctx.Done():
			s.Logger.Info("trial sweeper stopped")
			return
		case <-ticker.C:
			if _, err := s.SweepOnce(ctx); err != nil {
				s.Logger.Error("trial sweep failed", zap.Error(err))
			}
		}
	}
}

// SweepOnce reconciles one batch and returns how many records were refreshed.
// A failed user is logged and skipped; it is picked up again next round.
func (s *TrialSweeper) SweepOnce(ctx context.Context) (int, error) {
	now := time.Now
	if s.Now != nil {
		now = s.Now
	}

	ids, err := s.Trials.LapsedTrials(ctx, now().Add(-s.Grace), s.Batch)
	if err != nil {
		return 0, err
	}

	done := 0
	for _, id := range ids {
		if ctx.Err() != nil {
			return done, ctx.Err()
		}
		sub, err := s.Billing.Reconcile(ctx, id)
		if err != nil {
			s.Logger.Warn("trial reconcile failed", zap.Int64("user_id", id), zap.Error(err))
			continue
		}
		s.Logger.Info("lapsed trial reconciled",
			zap.Int64("user_id", id),
			zap.String("plan", string(sub.PlanType)),
			zap.String("status", string(sub.Status)),
		)
		done++
	}
	return done, nil
}
