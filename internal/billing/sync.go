package billing

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/01moynul/dayplanner-golang/internal/apperr"
	"github.com/01moynul/dayplanner-golang/internal/models"
)

// MapProviderStatus folds provider statuses onto the local lifecycle.
func MapProviderStatus(status string) models.SubscriptionStatus {
	switch status {
	case "trialing":
		return models.StatusTrialing
	case "active", "past_due":
		return models.StatusActive
	case "canceled", "unpaid", "incomplete_expired", "paused":
		return models.StatusCanceled
	default:
		return models.StatusNone
	}
}

// PlanForPrice resolves a provider price id to a tier; ok is false for unknown prices.
func (s *Service) PlanForPrice(priceID string) (models.PlanType, bool) {
	if priceID == "" {
		return "", false
	}
	for plan, id := range s.cfg.PriceIDs {
		if id == priceID {
			return plan, true
		}
	}
	return "", false
}

// SyncSubscription pulls a provider subscription and mirrors it onto the owning user's record.
func (s *Service) SyncSubscription(ctx context.Context, subscriptionID, reason string) (models.Subscription, error) {
	ps, err := s.provider.RetrieveSubscription(ctx, subscriptionID)
	if err != nil {
		return models.Subscription{}, apperr.Wrap(apperr.ExternalService, "failed to retrieve subscription", err)
	}

	userID := ps.UserID
	if userID == 0 {
		userID, err = s.store.UserIDForCustomer(ctx, ps.CustomerID)
		if err != nil {
			if errors.Is(err, ErrUnknownCustomer) {
				return models.Subscription{}, apperr.Wrap(apperr.NotFound, "unknown billing customer", err)
			}
			return models.Subscription{}, apperr.Wrap(apperr.ExternalService, "failed to resolve customer", err)
		}
	}

	return s.ApplyProviderSubscription(ctx, userID, *ps, reason)
}

// Reconcile re-reads the user's provider subscription and overwrites the local mirror.
// Used to repair partial failures by hand.
func (s *Service) Reconcile(ctx context.Context, userID int64) (models.Subscription, error) {
	sub, err := s.store.GetSubscription(ctx, userID)
	if err != nil {
		return models.Subscription{}, apperr.Wrap(apperr.ExternalService, "failed to load subscription", err)
	}
	if sub.SubscriptionID() == "" {
		return models.Subscription{}, ErrNoActiveSubscription
	}
	return s.SyncSubscription(ctx, sub.SubscriptionID(), models.ReasonProviderSync)
}

// ApplyProviderSubscription maps ps onto the local record of userID and stores it.
// A tier change appends one plan change entry with reason.
func (s *Service) ApplyProviderSubscription(ctx context.Context, userID int64, ps ProviderSubscription, reason string) (models.Subscription, error) {
	now := s.now()

	sub, err := s.store.GetSubscription(ctx, userID)
	if err != nil {
		return models.Subscription{}, apperr.Wrap(apperr.ExternalService, "failed to load subscription", err)
	}

	// Events arrive out of order and are retried. An ended subscription that is not the
	// one on file must not overwrite the record.
	if stored := sub.SubscriptionID(); stored != "" && ps.ID != stored && !isLive(MapProviderStatus(ps.Status)) {
		s.logger.Warn("ignoring provider event for a subscription that is not on file",
			zap.Int64("user_id", userID),
			zap.String("stripe_subscription_id", ps.ID),
			zap.String("stored_subscription_id", stored),
			zap.String("provider_status", ps.Status),
		)
		return sub, nil
	}

	next := applyProvider(sub, ps, s.planForSync(sub, ps), now)

	var change *models.PlanChangeLogEntry
	if next.PlanType != sub.PlanType && !isBonusUpgrade(sub, next, ps) {
		change = &models.PlanChangeLogEntry{
			UserID:    userID,
			FromPlan:  sub.PlanType,
			ToPlan:    next.PlanType,
			Reason:    reason,
			CreatedAt: now,
		}
	}

	if err := s.store.UpsertSubscription(ctx, next, change); err != nil {
		return models.Subscription{}, apperr.Wrap(apperr.ExternalService, "failed to save subscription", err)
	}

	s.logger.Info("subscription synced",
		zap.Int64("user_id", userID),
		zap.String("stripe_subscription_id", ps.ID),
		zap.String("plan", string(next.PlanType)),
		zap.String("status", string(next.Status)),
		zap.String("reason", reason),
	)
	return next, nil
}

func isLive(status models.SubscriptionStatus) bool {
	return status == models.StatusActive || status == models.StatusTrialing
}

// isBonusUpgrade reports whether a sync observes the provider side of a loyalty bonus claim
// that has not been committed locally yet. The claim writes its own log entry.
func isBonusUpgrade(sub, next models.Subscription, ps ProviderSubscription) bool {
	return sub.PlanType == models.PlanPro &&
		next.PlanType == models.PlanPremium &&
		next.Status == models.StatusTrialing &&
		ps.TrialEnd != nil &&
		!sub.PremiumBonusClaimed
}

func (s *Service) planForSync(sub models.Subscription, ps ProviderSubscription) models.PlanType {
	plan, ok := s.PlanForPrice(ps.PriceID)
	if ok {
		return plan
	}
	s.logger.Warn("unknown provider price; keeping current plan",
		zap.Int64("user_id", sub.UserID),
		zap.String("stripe_price_id", ps.PriceID),
	)
	if sub.PlanType.Valid() {
		return sub.PlanType
	}
	return models.PlanFree
}

func applyProvider(sub models.Subscription, ps ProviderSubscription, plan models.PlanType, now time.Time) models.Subscription {
	next := sub
	next.Status = MapProviderStatus(ps.Status)
	next.PlanType = plan
	if next.Status == models.StatusCanceled || next.Status == models.StatusNone {
		next.PlanType = models.PlanFree
	}

	if ps.CustomerID != "" {
		next.StripeCustomerID = strPtr(ps.CustomerID)
	}
	if ps.ID != "" {
		// The bonus is once per subscription lifetime. Only a live subscription that replaces
		// an ended (or absent) one starts a new lifetime.
		if ps.ID != sub.SubscriptionID() && !isLive(sub.Status) && isLive(next.Status) {
			next.PremiumBonusClaimed = false
		}
		next.StripeSubscriptionID = strPtr(ps.ID)
	}
	if ps.PriceID != "" {
		next.StripePriceID = strPtr(ps.PriceID)
	}
	next.TrialEnd = ps.TrialEnd
	next.CurrentPeriodEnd = ps.CurrentPeriodEnd
	next.CancelAtPeriodEnd = ps.CancelAtPeriodEnd

	if next.PlanType.Paid() {
		// Continuous run: the start only moves when the run was broken.
		if next.ProStartedAt == nil {
			start := now
			if ps.StartDate != nil {
				start = *ps.StartDate
			}
			next.ProStartedAt = &start
		}
	} else {
		next.ProStartedAt = nil
	}

	if next.PlanType == models.PlanPro && next.Status == models.StatusTrialing {
		next.ProTrialUsed = true
	}
	next.UpdatedAt = now
	return next
}

// PatchPlan overwrites tier and status outside of the provider, for support tooling.
func (s *Service) PatchPlan(ctx context.Context, userID int64, plan models.PlanType, status models.SubscriptionStatus, reason string) (models.Subscription, error) {
	if !plan.Valid() {
		return models.Subscription{}, ErrInvalidPlan
	}
	if reason == "" {
		reason = models.ReasonManualPatch
	}
	now := s.now()

	sub, err := s.store.GetSubscription(ctx, userID)
	if err != nil {
		return models.Subscription{}, apperr.Wrap(apperr.ExternalService, "failed to load subscription", err)
	}
	next := sub
	next.PlanType = plan
	next.Status = status
	if plan.Paid() && next.ProStartedAt == nil {
		next.ProStartedAt = &now
	}
	if !plan.Paid() {
		next.ProStartedAt = nil
	}
	next.UpdatedAt = now

	var change *models.PlanChangeLogEntry
	if sub.PlanType != plan {
		change = &models.PlanChangeLogEntry{
			UserID:    userID,
			FromPlan:  sub.PlanType,
			ToPlan:    plan,
			Reason:    reason,
			CreatedAt: now,
		}
	}
	if err := s.store.UpsertSubscription(ctx, next, change); err != nil {
		return models.Subscription{}, apperr.Wrap(apperr.ExternalService, "failed to save subscription", err)
	}
	return next, nil
}

func strPtr(s string) *string { return &s }
