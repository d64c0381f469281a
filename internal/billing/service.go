// Package billing holds the subscription state machine: plan tiers, billing status,
// trials, the loyalty bonus and the entitlements that follow from them.
package billing

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/01moynul/dayplanner-golang/internal/apperr"
	"github.com/01moynul/dayplanner-golang/internal/models"
)

const (
	// ProTrialDays is granted on a user's first pro checkout only.
	ProTrialDays = 14
	// BonusTrialDays is the complimentary premium window of the loyalty bonus.
	BonusTrialDays = 30
)

// Store persists subscriptions and the plan change log.
type Store interface {
	// GetSubscription returns the user's record, or models.DefaultSubscription when none exists.
	GetSubscription(ctx context.Context, userID int64) (models.Subscription, error)
	SaveCustomerID(ctx context.Context, userID int64, customerID string) error
	// UpsertSubscription writes sub and, when change is non-nil, appends it in the same transaction.
	UpsertSubscription(ctx context.Context, sub models.Subscription, change *models.PlanChangeLogEntry) error
	// ClaimPremiumBonus writes sub only while premium_bonus_claimed is still false and appends entry.
	// It returns ErrBonusAlreadyClaimed when another request got there first.
	ClaimPremiumBonus(ctx context.Context, sub models.Subscription, entry models.PlanChangeLogEntry) error
	UserIDForCustomer(ctx context.Context, customerID string) (int64, error)
}

// Profile is what the identity collaborator knows about a user.
type Profile struct {
	UserID int64
	Email  string
	Name   string
}

// Identity looks up the profile of an authenticated user.
type Identity interface {
	Profile(ctx context.Context, userID int64) (Profile, error)
}

// Config holds provider price ids and redirect targets.
type Config struct {
	PriceIDs    map[models.PlanType]string
	FrontendURL string
}

// Service runs the subscription state transitions. It owns no I/O of its own;
// the provider, store and identity are injected.
type Service struct {
	provider Provider
	store    Store
	identity Identity
	cfg      Config
	logger   *zap.Logger
	now      func() time.Time
}

// NewService wires a Service.
func NewService(cfg Config, provider Provider, store Store, identity Identity, logger *zap.Logger) *Service {
	cfg.FrontendURL = strings.TrimRight(cfg.FrontendURL, "/")
	return &Service{
		provider: provider,
		store:    store,
		identity: identity,
		cfg:      cfg,
		logger:   logger.Named("billing"),
		now:      time.Now,
	}
}

// WithClock replaces the time source.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// SubscriptionView is the subscription as returned to clients.
type SubscriptionView struct {
	models.Subscription
	EligibleForPremiumBonus bool         `json:"eligibleForPremiumBonus"`
	Entitlements            Entitlements `json:"entitlements"`
}

func (s *Service) view(sub models.Subscription) SubscriptionView {
	now := s.now()
	return SubscriptionView{
		Subscription:            sub,
		EligibleForPremiumBonus: IsEligibleForPremiumBonus(sub, now),
		Entitlements:            EntitlementsFor(sub, now),
	}
}

// GetSubscription returns the stored record (or the free/none default) with derived flags.
func (s *Service) GetSubscription(ctx context.Context, userID int64) (SubscriptionView, error) {
	sub, err := s.store.GetSubscription(ctx, userID)
	if err != nil {
		return SubscriptionView{}, apperr.Wrap(apperr.ExternalService, "failed to load subscription", err)
	}
	return s.view(sub), nil
}

// Entitlements returns what the user's current tier unlocks.
func (s *Service) Entitlements(ctx context.Context, userID int64) (Entitlements, error) {
	v, err := s.GetSubscription(ctx, userID)
	if err != nil {
		return Entitlements{}, err
	}
	return v.Entitlements, nil
}

// CheckoutResult is the outcome of StartCheckout.
type CheckoutResult struct {
	URL       string `json:"url"`
	TrialDays int64  `json:"trialDays"`
}

// StartCheckout opens a provider checkout for plan, creating the provider customer on first use.
func (s *Service) StartCheckout(ctx context.Context, userID int64, plan models.PlanType) (CheckoutResult, error) {
	// 1. --- Validate Plan ---
	if !plan.Paid() {
		return CheckoutResult{}, ErrInvalidPlan
	}
	priceID := s.cfg.PriceIDs[plan]
	if priceID == "" || s.cfg.FrontendURL == "" {
		return CheckoutResult{}, ErrNotConfigured
	}

	// 2. --- Load Local Record ---
	sub, err := s.store.GetSubscription(ctx, userID)
	if err != nil {
		return CheckoutResult{}, apperr.Wrap(apperr.ExternalService, "failed to load subscription", err)
	}

	// 3. --- Ensure Provider Customer ---
	customerID, err := s.ensureCustomer(ctx, userID, sub)
	if err != nil {
		return CheckoutResult{}, err
	}

	// 4. --- Open Checkout ---
	var trialDays int64
	if plan == models.PlanPro && !sub.ProTrialUsed {
		trialDays = ProTrialDays
	}

	url, err := s.provider.CreateCheckoutSession(ctx, CheckoutRequest{
		CustomerID: customerID,
		PriceID:    priceID,
		UserID:     userID,
		TrialDays:  trialDays,
		SuccessURL: s.cfg.FrontendURL + "/billing/success",
		CancelURL:  s.cfg.FrontendURL + "/billing/cancel",
	})
	if err != nil {
		return CheckoutResult{}, apperr.Wrap(apperr.ExternalService, "failed to create checkout session", err)
	}

	s.logger.Info("checkout session created",
		zap.Int64("user_id", userID),
		zap.String("plan", string(plan)),
		zap.Int64("trial_days", trialDays),
	)
	return CheckoutResult{URL: url, TrialDays: trialDays}, nil
}

func (s *Service) ensureCustomer(ctx context.Context, userID int64, sub models.Subscription) (string, error) {
	if id := sub.CustomerID(); id != "" {
		return id, nil
	}

	profile, err := s.identity.Profile(ctx, userID)
	if err != nil {
		return "", apperr.Wrap(apperr.ExternalService, "failed to load profile", err)
	}
	if strings.TrimSpace(profile.Email) == "" {
		return "", ErrNoEmailOnFile
	}

	customerID, err := s.provider.CreateCustomer(ctx, CustomerRequest{
		Email:  profile.Email,
		UserID: userID,
		Name:   profile.Name,
	})
	if err != nil {
		return "", apperr.Wrap(apperr.ExternalService, "failed to prepare billing", err)
	}

	if err := s.store.SaveCustomerID(ctx, userID, customerID); err != nil {
		s.logPartialFailure("create_customer", userID, customerID, "", err)
		return "", apperr.Wrap(apperr.PartialFailure, "failed to prepare billing", err)
	}
	return customerID, nil
}

// ClaimPremiumBonus upgrades a long-standing pro subscriber to a complimentary premium trial.
// The provider write happens first; a failed local write afterwards is a partial failure.
func (s *Service) ClaimPremiumBonus(ctx context.Context, userID int64) (SubscriptionView, error) {
	now := s.now()

	// 1. --- Check Eligibility ---
	sub, err := s.store.GetSubscription(ctx, userID)
	if err != nil {
		return SubscriptionView{}, apperr.Wrap(apperr.ExternalService, "failed to load subscription", err)
	}
	if !IsEligibleForPremiumBonus(sub, now) {
		return SubscriptionView{}, ErrNotEligible
	}
	subscriptionID := sub.SubscriptionID()
	if subscriptionID == "" {
		return SubscriptionView{}, ErrNoActiveSubscription
	}
	premiumPrice := s.cfg.PriceIDs[models.PlanPremium]
	if premiumPrice == "" {
		return SubscriptionView{}, ErrNotConfigured
	}

	// 2. --- Upgrade At Provider ---
	trialEnd := now.AddDate(0, 0, BonusTrialDays)
	updated, err := s.provider.UpdateSubscription(ctx, subscriptionID, SubscriptionUpdate{
		PriceID:           premiumPrice,
		TrialEnd:          &trialEnd,
		ProrationBehavior: ProrationNone,
		IdempotencyKey:    "loyalty-bonus-" + subscriptionID,
	})
	if errors.Is(err, ErrRequestReplayed) {
		// The bonus was already applied under this key by an earlier or concurrent claim.
		s.logger.Warn("premium bonus already applied at provider",
			zap.Int64("user_id", userID),
			zap.String("stripe_subscription_id", subscriptionID),
			zap.Error(err),
		)
		return SubscriptionView{}, ErrNotEligible
	}
	if err != nil {
		return SubscriptionView{}, apperr.Wrap(apperr.ExternalService, "failed to upgrade subscription", err)
	}

	// 3. --- Persist Locally ---
	next := sub
	next.PlanType = models.PlanPremium
	next.Status = models.StatusTrialing
	next.TrialEnd = &trialEnd
	next.StripePriceID = &premiumPrice
	next.PremiumBonusClaimed = true
	next.UpdatedAt = now
	if updated != nil && updated.CurrentPeriodEnd != nil {
		next.CurrentPeriodEnd = updated.CurrentPeriodEnd
	}

	entry := models.PlanChangeLogEntry{
		UserID:    userID,
		FromPlan:  models.PlanPro,
		ToPlan:    models.PlanPremium,
		Reason:    models.ReasonLoyaltyBonusClaimed,
		CreatedAt: now,
	}

	if err := s.store.ClaimPremiumBonus(ctx, next, entry); err != nil {
		if errors.Is(err, ErrBonusAlreadyClaimed) {
			// A concurrent claim won; the provider call above reused its idempotency key.
			return SubscriptionView{}, ErrNotEligible
		}
		s.logPartialFailure("claim_premium_bonus", userID, sub.CustomerID(), subscriptionID, err)
		return SubscriptionView{}, apperr.Wrap(apperr.PartialFailure, "bonus applied at provider but not saved", err)
	}

	s.logger.Info("premium bonus claimed",
		zap.Int64("user_id", userID),
		zap.String("stripe_subscription_id", subscriptionID),
		zap.Time("trial_end", trialEnd),
	)
	return s.view(next), nil
}

// OpenBillingPortal returns a provider-hosted management URL.
func (s *Service) OpenBillingPortal(ctx context.Context, userID int64) (string, error) {
	sub, err := s.store.GetSubscription(ctx, userID)
	if err != nil {
		return "", apperr.Wrap(apperr.ExternalService, "failed to load subscription", err)
	}
	customerID := sub.CustomerID()
	if customerID == "" {
		return "", ErrNoActiveSubscription
	}
	if s.cfg.FrontendURL == "" {
		return "", ErrNotConfigured
	}

	url, err := s.provider.CreatePortalSession(ctx, customerID, s.cfg.FrontendURL+"/settings/billing")
	if err != nil {
		return "", apperr.Wrap(apperr.ExternalService, "failed to create portal session", err)
	}
	return url, nil
}

// logPartialFailure records everything needed to reconcile by hand.
func (s *Service) logPartialFailure(op string, userID int64, customerID, subscriptionID string, err error) {
	s.logger.Error("partial failure: provider write succeeded, local write failed",
		zap.String("operation", op),
		zap.Int64("user_id", userID),
		zap.String("stripe_customer_id", customerID),
		zap.String("stripe_subscription_id", subscriptionID),
		zap.Error(err),
	)
}
