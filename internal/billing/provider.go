package billing

import (
	"context"
	"time"
)

// Provider is the external billing system. Every call is one blocking round trip;
// retries and timeouts are left to the provider client.
type Provider interface {
	CreateCustomer(ctx context.Context, req CustomerRequest) (string, error)
	CreateCheckoutSession(ctx context.Context, req CheckoutRequest) (string, error)
	CreatePortalSession(ctx context.Context, customerID, returnURL string) (string, error)
	UpdateSubscription(ctx context.Context, subscriptionID string, upd SubscriptionUpdate) (*ProviderSubscription, error)
	RetrieveSubscription(ctx context.Context, subscriptionID string) (*ProviderSubscription, error)
}

// CustomerRequest creates a provider customer for one of our users.
type CustomerRequest struct {
	Email  string
	UserID int64
	Name   string
}

// CheckoutRequest opens a hosted checkout for a subscription price.
type CheckoutRequest struct {
	CustomerID string
	PriceID    string
	UserID     int64
	TrialDays  int64 // 0 means no trial
	SuccessURL string
	CancelURL  string
}

// ProrationNone tells the provider not to charge for a mid-period price change.
const ProrationNone = "none"

// SubscriptionUpdate changes an existing provider subscription. Zero fields are left alone.
type SubscriptionUpdate struct {
	PriceID           string
	TrialEnd          *time.Time
	ProrationBehavior string
	CancelAtPeriodEnd *bool
	IdempotencyKey    string
}

// ProviderSubscription is the provider's view of a subscription.
type ProviderSubscription struct {
	ID                string
	CustomerID        string
	UserID            int64 // from metadata; 0 when the provider has none
	Status            string
	PriceID           string
	ItemID            string
	TrialEnd          *time.Time
	CurrentPeriodEnd  *time.Time
	StartDate         *time.Time
	CancelAtPeriodEnd bool
}
