package models

import "time"

// PlanType is the billing tier, independent of billing status.
type PlanType string

const (
	PlanFree    PlanType = "free"
	PlanPro     PlanType = "pro"
	PlanPremium PlanType = "premium"
)

// Valid reports whether p is a known tier.
func (p PlanType) Valid() bool {
	switch p {
	case PlanFree, PlanPro, PlanPremium:
		return true
	}
	return false
}

// Paid reports whether p is a purchasable tier.
func (p PlanType) Paid() bool {
	return p == PlanPro || p == PlanPremium
}

// SubscriptionStatus is where the subscription sits in its billing lifecycle.
type SubscriptionStatus string

const (
	StatusNone     SubscriptionStatus = "none"
	StatusTrialing SubscriptionStatus = "trialing"
	StatusActive   SubscriptionStatus = "active"
	StatusCanceled SubscriptionStatus = "canceled"
)

// Subscription is the model for the 'subscriptions' table (one row per user).
// Rows are never hard-deleted.
type Subscription struct {
	UserID               int64              `json:"userId" db:"user_id"`
	PlanType             PlanType           `json:"planType" db:"plan_type"`
	Status               SubscriptionStatus `json:"status" db:"status"`
	StripeCustomerID     *string            `json:"stripeCustomerId,omitempty" db:"stripe_customer_id"`
	StripeSubscriptionID *string            `json:"stripeSubscriptionId,omitempty" db:"stripe_subscription_id"`
	StripePriceID        *string            `json:"stripePriceId,omitempty" db:"stripe_price_id"`
	TrialEnd             *time.Time         `json:"trialEnd,omitempty" db:"trial_end"`
	CurrentPeriodEnd     *time.Time         `json:"currentPeriodEnd,omitempty" db:"current_period_end"`
	CancelAtPeriodEnd    bool               `json:"cancelAtPeriodEnd" db:"cancel_at_period_end"`

	// ProStartedAt marks the start of the current continuous pro (or higher) run.
	ProStartedAt        *time.Time `json:"proStartedAt,omitempty" db:"pro_started_at"`
	ProTrialUsed        bool       `json:"proTrialUsed" db:"pro_trial_used"`
	PremiumBonusClaimed bool       `json:"premiumBonusClaimed" db:"premium_bonus_claimed"`

	CreatedAt time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt time.Time `json:"updatedAt" db:"updated_at"`
}

// DefaultSubscription is the implicit record for a user with no billing history.
func DefaultSubscription(userID int64) Subscription {
	return Subscription{
		UserID:   userID,
		PlanType: PlanFree,
		Status:   StatusNone,
	}
}

// CustomerID returns the provider customer id or "".
func (s Subscription) CustomerID() string {
	if s.StripeCustomerID == nil {
		return ""
	}
	return *s.StripeCustomerID
}

// SubscriptionID returns the provider subscription id or "".
func (s Subscription) SubscriptionID() string {
	if s.StripeSubscriptionID == nil {
		return ""
	}
	return *s.StripeSubscriptionID
}

// PlanChangeLogEntry is the append-only audit record in 'plan_change_log'.
type PlanChangeLogEntry struct {
	ID        int64     `json:"id" db:"id"`
	UserID    int64     `json:"userId" db:"user_id"`
	FromPlan  PlanType  `json:"fromPlan" db:"from_plan"`
	ToPlan    PlanType  `json:"toPlan" db:"to_plan"`
	Reason    string    `json:"reason" db:"reason"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
}

// Plan change reasons written to the audit log.
const (
	ReasonLoyaltyBonusClaimed  = "loyalty_bonus_claimed"
	ReasonProviderSync         = "provider_sync"
	ReasonSubscriptionCanceled = "subscription_canceled"
	ReasonManualPatch          = "manual_patch"
)
