package billing

import (
	"context"
	"errors"
	"sync"

	"github.com/01moynul/dayplanner-golang/internal/models"
)

type fakeStore struct {
	mu      sync.Mutex
	subs    map[int64]models.Subscription
	log     []models.PlanChangeLogEntry
	saveErr error
	getErr  error
}

func newFakeStore() *fakeStore {
	return &fakeStore{subs: map[int64]models.Subscription{}}
}

func (f *fakeStore) GetSubscription(_ context.Context, userID int64) (models.Subscription, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.getErr != nil {
		return models.Subscription{}, f.getErr
	}
	if sub, ok := f.subs[userID]; ok {
		return sub, nil
	}
	return models.DefaultSubscription(userID), nil
}

func (f *fakeStore) SaveCustomerID(_ context.Context, userID int64, customerID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.saveErr != nil {
		return f.saveErr
	}
	sub, ok := f.subs[userID]
	if !ok {
		sub = models.DefaultSubscription(userID)
	}
	sub.StripeCustomerID = &customerID
	f.subs[userID] = sub
	return nil
}

func (f *fakeStore) UpsertSubscription(_ context.Context, sub models.Subscription, change *models.PlanChangeLogEntry) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.saveErr != nil {
		return f.saveErr
	}
	f.subs[sub.UserID] = sub
	if change != nil {
		f.log = append(f.log, *change)
	}
	return nil
}

func (f *fakeStore) ClaimPremiumBonus(_ context.Context, sub models.Subscription, entry models.PlanChangeLogEntry) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.saveErr != nil {
		return f.saveErr
	}
	if cur, ok := f.subs[sub.UserID]; ok && cur.PremiumBonusClaimed {
		return ErrBonusAlreadyClaimed
	}
	f.subs[sub.UserID] = sub
	f.log = append(f.log, entry)
	return nil
}

func (f *fakeStore) UserIDForCustomer(_ context.Context, customerID string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for id, sub := range f.subs {
		if sub.CustomerID() == customerID {
			return id, nil
		}
	}
	return 0, ErrUnknownCustomer
}

type fakeProvider struct {
	mu        sync.Mutex
	customers []CustomerRequest
	checkouts []CheckoutRequest
	updates   []SubscriptionUpdate
	portals   []string
	subs      map[string]*ProviderSubscription
	err       error
	// afterUpdate runs once UpdateSubscription has succeeded, outside the lock.
	afterUpdate func(id string, upd SubscriptionUpdate)
}

func newFakeProvider() *fakeProvider {
	return &fakeProvider{subs: map[string]*ProviderSubscription{}}
}

func (f *fakeProvider) CreateCustomer(_ context.Context, req CustomerRequest) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return "", f.err
	}
	f.customers = append(f.customers, req)
	return "cus_new", nil
}

func (f *fakeProvider) CreateCheckoutSession(_ context.Context, req CheckoutRequest) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return "", f.err
	}
	f.checkouts = append(f.checkouts, req)
	return "https://checkout.test/session", nil
}

func (f *fakeProvider) CreatePortalSession(_ context.Context, customerID, _ string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return "", f.err
	}
	f.portals = append(f.portals, customerID)
	return "https://portal.test/" + customerID, nil
}

func (f *fakeProvider) UpdateSubscription(_ context.Context, id string, upd SubscriptionUpdate) (*ProviderSubscription, error) {
	f.mu.Lock()
	if f.err != nil {
		f.mu.Unlock()
		return nil, f.err
	}
	f.updates = append(f.updates, upd)
	hook := f.afterUpdate
	f.mu.Unlock()

	if hook != nil {
		hook(id, upd)
	}
	return &ProviderSubscription{ID: id, Status: "trialing", PriceID: upd.PriceID, TrialEnd: upd.TrialEnd}, nil
}

func (f *fakeProvider) RetrieveSubscription(_ context.Context, id string) (*ProviderSubscription, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	ps, ok := f.subs[id]
	if !ok {
		return nil, errors.New("no such subscription")
	}
	cp := *ps
	return &cp, nil
}

type fakeIdentity map[int64]Profile

func (f fakeIdentity) Profile(_ context.Context, userID int64) (Profile, error) {
	p, ok := f[userID]
	if !ok {
		return Profile{UserID: userID}, nil
	}
	return p, nil
}
