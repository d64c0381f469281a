package billing

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/stripe/stripe-go/v79"
	"github.com/stripe/stripe-go/v79/client"
	"github.com/stripe/stripe-go/v79/webhook"
)

const metadataUserID = "user_id"

// StripeProvider implements Provider on top of an injected Stripe API client.
type StripeProvider struct {
	api *client.API
}

// NewStripeProvider builds a provider with its own client; no global stripe.Key is set.
func NewStripeProvider(secretKey string) *StripeProvider {
	return &StripeProvider{api: client.New(secretKey, nil)}
}

// NewStripeProviderWithClient wraps an existing client, for example one built on custom backends.
func NewStripeProviderWithClient(api *client.API) *StripeProvider {
	return &StripeProvider{api: api}
}

func (p *StripeProvider) CreateCustomer(ctx context.Context, req CustomerRequest) (string, error) {
	params := &stripe.CustomerParams{
		Email: stripe.String(req.Email),
		Metadata: map[string]string{
			metadataUserID: strconv.FormatInt(req.UserID, 10),
		},
	}
	if req.Name != "" {
		params.Name = stripe.String(req.Name)
	}
	params.Context = ctx

	cust, err := p.api.Customers.New(params)
	if err != nil {
		return "", fmt.Errorf("stripe create customer: %w", err)
	}
	return cust.ID, nil
}

func (p *StripeProvider) CreateCheckoutSession(ctx context.Context, req CheckoutRequest) (string, error) {
	userID := strconv.FormatInt(req.UserID, 10)
	params := &stripe.CheckoutSessionParams{
		Mode:              stripe.String(string(stripe.CheckoutSessionModeSubscription)),
		Customer:          stripe.String(req.CustomerID),
		ClientReferenceID: stripe.String(userID),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				Price:    stripe.String(req.PriceID),
				Quantity: stripe.Int64(1),
			},
		},
		SuccessURL: stripe.String(req.SuccessURL),
		CancelURL:  stripe.String(req.CancelURL),
		SubscriptionData: &stripe.CheckoutSessionSubscriptionDataParams{
			Metadata: map[string]string{metadataUserID: userID},
		},
	}
	if req.TrialDays > 0 {
		params.SubscriptionData.TrialPeriodDays = stripe.Int64(req.TrialDays)
	}
	params.Context = ctx

	sess, err := p.api.CheckoutSessions.New(params)
	if err != nil {
		return "", fmt.Errorf("stripe checkout session: %w", err)
	}
	return sess.URL, nil
}

func (p *StripeProvider) CreatePortalSession(ctx context.Context, customerID, returnURL string) (string, error) {
	params := &stripe.BillingPortalSessionParams{
		Customer:  stripe.String(customerID),
		ReturnURL: stripe.String(returnURL),
	}
	params.Context = ctx

	sess, err := p.api.BillingPortalSessions.New(params)
	if err != nil {
		return "", fmt.Errorf("stripe portal session: %w", err)
	}
	return sess.URL, nil
}

// UpdateSubscription swaps the price of the first subscription item when PriceID is set.
func (p *StripeProvider) UpdateSubscription(ctx context.Context, subscriptionID string, upd SubscriptionUpdate) (*ProviderSubscription, error) {
	params := &stripe.SubscriptionParams{}
	params.Context = ctx

	if upd.PriceID != "" {
		current, err := p.api.Subscriptions.Get(subscriptionID, &stripe.SubscriptionParams{Params: stripe.Params{Context: ctx}})
		if err != nil {
			return nil, fmt.Errorf("stripe retrieve subscription: %w", err)
		}
		if current.Items == nil || len(current.Items.Data) == 0 {
			return nil, errors.New("stripe subscription has no items")
		}
		params.Items = []*stripe.SubscriptionItemsParams{
			{
				ID:    stripe.String(current.Items.Data[0].ID),
				Price: stripe.String(upd.PriceID),
			},
		}
	}
	if upd.TrialEnd != nil {
		params.TrialEnd = stripe.Int64(upd.TrialEnd.Unix())
	}
	if upd.ProrationBehavior != "" {
		params.ProrationBehavior = stripe.String(upd.ProrationBehavior)
	}
	if upd.CancelAtPeriodEnd != nil {
		params.CancelAtPeriodEnd = stripe.Bool(*upd.CancelAtPeriodEnd)
	}
	if upd.IdempotencyKey != "" {
		params.SetIdempotencyKey(upd.IdempotencyKey)
	}

	sub, err := p.api.Subscriptions.Update(subscriptionID, params)
	if err != nil {
		var serr *stripe.Error
		if errors.As(err, &serr) && serr.Type == stripe.ErrorTypeIdempotency {
			return nil, fmt.Errorf("stripe update subscription: %w: %s", ErrRequestReplayed, serr.Msg)
		}
		return nil, fmt.Errorf("stripe update subscription: %w", err)
	}
	return fromStripeSubscription(sub), nil
}

func (p *StripeProvider) RetrieveSubscription(ctx context.Context, subscriptionID string) (*ProviderSubscription, error) {
	sub, err := p.api.Subscriptions.Get(subscriptionID, &stripe.SubscriptionParams{Params: stripe.Params{Context: ctx}})
	if err != nil {
		return nil, fmt.Errorf("stripe retrieve subscription: %w", err)
	}
	return fromStripeSubscription(sub), nil
}

func fromStripeSubscription(s *stripe.Subscription) *ProviderSubscription {
	ps := &ProviderSubscription{
		ID:                s.ID,
		Status:            string(s.Status),
		TrialEnd:          unixTime(s.TrialEnd),
		CurrentPeriodEnd:  unixTime(s.CurrentPeriodEnd),
		StartDate:         unixTime(s.StartDate),
		CancelAtPeriodEnd: s.CancelAtPeriodEnd,
	}
	if s.Customer != nil {
		ps.CustomerID = s.Customer.ID
	}
	if s.Items != nil && len(s.Items.Data) > 0 {
		item := s.Items.Data[0]
		ps.ItemID = item.ID
		if item.Price != nil {
			ps.PriceID = item.Price.ID
		}
	}
	if raw := s.Metadata[metadataUserID]; raw != "" {
		if id, err := strconv.ParseInt(raw, 10, 64); err == nil {
			ps.UserID = id
		}
	}
	return ps
}

func unixTime(sec int64) *time.Time {
	if sec == 0 {
		return nil
	}
	t := time.Unix(sec, 0).UTC()
	return &t
}

// ProviderEvent is the part of a webhook event the service acts on.
type ProviderEvent struct {
	ID             string
	Type           string
	SubscriptionID string
}

// Webhook event types that change local subscription state.
const (
	EventCheckoutCompleted   = "checkout.session.completed"
	EventSubscriptionUpdated = "customer.subscription.updated"
	EventSubscriptionDeleted = "customer.subscription.deleted"
)

// ErrUnhandledEvent is returned for verified events that carry no subscription change.
var ErrUnhandledEvent = errors.New("unhandled event type")

// ParseStripeEvent verifies the signature and extracts the subscription an event refers to.
func ParseStripeEvent(payload []byte, sigHeader, secret string) (*ProviderEvent, error) {
	event, err := webhook.ConstructEventWithOptions(
		payload,
		sigHeader,
		secret,
		webhook.ConstructEventOptions{
			IgnoreAPIVersionMismatch: true,
		},
	)
	if err != nil {
		return nil, fmt.Errorf("verify webhook signature: %w", err)
	}

	out := &ProviderEvent{ID: event.ID, Type: string(event.Type)}
	switch out.Type {
	case EventCheckoutCompleted:
		var sess stripe.CheckoutSession
		if err := json.Unmarshal(event.Data.Raw, &sess); err != nil {
			return nil, fmt.Errorf("decode checkout session: %w", err)
		}
		if sess.Subscription == nil || sess.Subscription.ID == "" {
			return nil, ErrUnhandledEvent
		}
		out.SubscriptionID = sess.Subscription.ID
	case EventSubscriptionUpdated, EventSubscriptionDeleted:
		var sub stripe.Subscription
		if err := json.Unmarshal(event.Data.Raw, &sub); err != nil {
			return nil, fmt.Errorf("decode subscription: %w", err)
		}
		if sub.ID == "" {
			return nil, errors.New("subscription event without id")
		}
		out.SubscriptionID = sub.ID
	default:
		return out, ErrUnhandledEvent
	}
	return out, nil
}
