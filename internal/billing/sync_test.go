package billing

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/01moynul/dayplanner-golang/internal/apperr"
	"github.com/01moynul/dayplanner-golang/internal/models"
)

func TestMapProviderStatus(t *testing.T) {
	tests := map[string]models.SubscriptionStatus{
		"trialing":           models.StatusTrialing,
		"active":             models.StatusActive,
		"past_due":           models.StatusActive,
		"canceled":           models.StatusCanceled,
		"unpaid":             models.StatusCanceled,
		"incomplete_expired": models.StatusCanceled,
		"incomplete":         models.StatusNone,
		"":                   models.StatusNone,
	}
	for in, want := range tests {
		assert.Equal(t, want, MapProviderStatus(in), in)
	}
}

func TestSyncCheckoutCompletedStartsProRun(t *testing.T) {
	h := newHarness(t)
	h.store.subs[1] = models.Subscription{UserID: 1, PlanType: models.PlanFree, Status: models.StatusNone, StripeCustomerID: strPtr("cus_1")}

	trialEnd := testNow.AddDate(0, 0, 14)
	start := testNow.Add(-time.Minute)
	h.provider.subs["sub_9"] = &ProviderSubscription{
		ID: "sub_9", CustomerID: "cus_1", Status: "trialing", PriceID: "price_pro",
		TrialEnd: &trialEnd, StartDate: &start,
	}

	sub, err := h.svc.SyncSubscription(context.Background(), "sub_9", models.ReasonProviderSync)
	require.NoError(t, err)
	assert.Equal(t, models.PlanPro, sub.PlanType)
	assert.Equal(t, models.StatusTrialing, sub.Status)
	assert.True(t, sub.ProTrialUsed)
	require.NotNil(t, sub.ProStartedAt)
	assert.Equal(t, start, *sub.ProStartedAt)
	assert.Equal(t, "sub_9", sub.SubscriptionID())

	require.Len(t, h.store.log, 1)
	assert.Equal(t, models.PlanFree, h.store.log[0].FromPlan)
	assert.Equal(t, models.PlanPro, h.store.log[0].ToPlan)
}

func TestSyncKeepsContinuousStart(t *testing.T) {
	h := newHarness(t)
	h.seedLongPro(1)
	original := *h.store.subs[1].ProStartedAt

	h.provider.subs["sub_1"] = &ProviderSubscription{ID: "sub_1", UserID: 1, Status: "active", PriceID: "price_pro"}

	sub, err := h.svc.SyncSubscription(context.Background(), "sub_1", models.ReasonProviderSync)
	require.NoError(t, err)
	assert.Equal(t, original, *sub.ProStartedAt)
	assert.Empty(t, h.store.log, "no tier change, no log entry")
}

func TestSyncCanceledDropsToFree(t *testing.T) {
	h := newHarness(t)
	h.seedLongPro(1)
	h.provider.subs["sub_1"] = &ProviderSubscription{ID: "sub_1", UserID: 1, Status: "canceled", PriceID: "price_pro"}

	sub, err := h.svc.SyncSubscription(context.Background(), "sub_1", models.ReasonSubscriptionCanceled)
	require.NoError(t, err)
	assert.Equal(t, models.PlanFree, sub.PlanType)
	assert.Equal(t, models.StatusCanceled, sub.Status)
	assert.Nil(t, sub.ProStartedAt)
	assert.True(t, sub.ProTrialUsed, "trial history survives cancelation")

	require.Len(t, h.store.log, 1)
	assert.Equal(t, models.ReasonSubscriptionCanceled, h.store.log[0].Reason)
}

func TestSyncUnknownPriceKeepsPlan(t *testing.T) {
	h := newHarness(t)
	h.seedLongPro(1)
	h.provider.subs["sub_1"] = &ProviderSubscription{ID: "sub_1", UserID: 1, Status: "active", PriceID: "price_legacy"}

	sub, err := h.svc.SyncSubscription(context.Background(), "sub_1", models.ReasonProviderSync)
	require.NoError(t, err)
	assert.Equal(t, models.PlanPro, sub.PlanType)
	assert.Equal(t, 1, h.logs.FilterMessageSnippet("unknown provider price").Len())
}

func TestSyncUnknownCustomer(t *testing.T) {
	h := newHarness(t)
	h.provider.subs["sub_x"] = &ProviderSubscription{ID: "sub_x", CustomerID: "cus_nobody", Status: "active", PriceID: "price_pro"}

	_, err := h.svc.SyncSubscription(context.Background(), "sub_x", models.ReasonProviderSync)
	assert.Equal(t, apperr.NotFound, apperr.KindOf(err))
}

func TestSyncNewSubscriptionResetsBonus(t *testing.T) {
	h := newHarness(t)
	h.seedLongPro(1)
	sub := h.store.subs[1]
	sub.PlanType = models.PlanFree
	sub.Status = models.StatusCanceled
	sub.ProStartedAt = nil
	sub.PremiumBonusClaimed = true
	h.store.subs[1] = sub

	h.provider.subs["sub_2"] = &ProviderSubscription{ID: "sub_2", UserID: 1, Status: "active", PriceID: "price_pro"}
	got, err := h.svc.SyncSubscription(context.Background(), "sub_2", models.ReasonProviderSync)
	require.NoError(t, err)
	assert.False(t, got.PremiumBonusClaimed)
	assert.Equal(t, "sub_2", got.SubscriptionID())

	got.PremiumBonusClaimed = true
	h.store.subs[1] = got
	got, err = h.svc.SyncSubscription(context.Background(), "sub_2", models.ReasonProviderSync)
	require.NoError(t, err)
	assert.True(t, got.PremiumBonusClaimed, "same subscription keeps the flag")
}

func TestSyncLiveReplacementKeepsBonusFlag(t *testing.T) {
	h := newHarness(t)
	h.seedLongPro(1)
	sub := h.store.subs[1]
	sub.PremiumBonusClaimed = true
	h.store.subs[1] = sub

	h.provider.subs["sub_2"] = &ProviderSubscription{ID: "sub_2", UserID: 1, Status: "active", PriceID: "price_pro"}
	got, err := h.svc.SyncSubscription(context.Background(), "sub_2", models.ReasonProviderSync)
	require.NoError(t, err)
	assert.Equal(t, "sub_2", got.SubscriptionID())
	assert.True(t, got.PremiumBonusClaimed)
}

func TestSyncIgnoresEndedSubscriptionNotOnFile(t *testing.T) {
	h := newHarness(t)
	h.seedLongPro(1)
	sub := h.store.subs[1]
	sub.PremiumBonusClaimed = true
	h.store.subs[1] = sub
	before := h.store.subs[1]

	h.provider.subs["sub_old"] = &ProviderSubscription{ID: "sub_old", CustomerID: "cus_1", Status: "canceled", PriceID: "price_pro"}

	got, err := h.svc.SyncSubscription(context.Background(), "sub_old", models.ReasonSubscriptionCanceled)
	require.NoError(t, err)
	assert.Equal(t, before, got)
	assert.Equal(t, before, h.store.subs[1], "record must not change")
	assert.Empty(t, h.store.log)
	assert.Equal(t, 1, h.logs.FilterMessageSnippet("not on file").Len())
}

func TestBonusCannotBeClaimedTwiceAfterStaleEvent(t *testing.T) {
	h := newHarness(t)
	h.seedLongPro(1)
	ctx := context.Background()

	_, err := h.svc.ClaimPremiumBonus(ctx, 1)
	require.NoError(t, err)

	h.provider.subs["sub_old"] = &ProviderSubscription{ID: "sub_old", CustomerID: "cus_1", Status: "canceled", PriceID: "price_pro"}
	_, err = h.svc.SyncSubscription(ctx, "sub_old", models.ReasonSubscriptionCanceled)
	require.NoError(t, err)

	// The bonus trial ends and the live subscription falls back to pro.
	h.provider.subs["sub_1"] = &ProviderSubscription{ID: "sub_1", CustomerID: "cus_1", Status: "active", PriceID: "price_pro"}
	sub, err := h.svc.SyncSubscription(ctx, "sub_1", models.ReasonProviderSync)
	require.NoError(t, err)
	assert.Equal(t, models.PlanPro, sub.PlanType)
	assert.True(t, sub.PremiumBonusClaimed)
	require.NotNil(t, sub.ProStartedAt, "continuous run survives")

	_, err = h.svc.ClaimPremiumBonus(ctx, 1)
	assert.ErrorIs(t, err, ErrNotEligible)

	claims := 0
	for _, e := range h.store.log {
		if e.Reason == models.ReasonLoyaltyBonusClaimed {
			claims++
		}
	}
	assert.Equal(t, 1, claims)
}

func TestSyncDuringBonusClaimLogsOnce(t *testing.T) {
	h := newHarness(t)
	h.seedLongPro(1)
	ctx := context.Background()

	// The provider's subscription.updated webhook lands between the provider
	// update and the local commit of the claim.
	h.provider.afterUpdate = func(id string, upd SubscriptionUpdate) {
		h.provider.mu.Lock()
		h.provider.subs[id] = &ProviderSubscription{
			ID: id, CustomerID: "cus_1", Status: "trialing", PriceID: upd.PriceID, TrialEnd: upd.TrialEnd,
		}
		h.provider.mu.Unlock()

		sub, err := h.svc.SyncSubscription(ctx, id, models.ReasonProviderSync)
		require.NoError(t, err)
		assert.Equal(t, models.PlanPremium, sub.PlanType)
	}

	view, err := h.svc.ClaimPremiumBonus(ctx, 1)
	require.NoError(t, err)
	assert.True(t, view.PremiumBonusClaimed)

	require.Len(t, h.store.log, 1)
	assert.Equal(t, models.ReasonLoyaltyBonusClaimed, h.store.log[0].Reason)
}

func TestReconcile(t *testing.T) {
	h := newHarness(t)

	_, err := h.svc.Reconcile(context.Background(), 1)
	assert.ErrorIs(t, err, ErrNoActiveSubscription)

	h.seedLongPro(1)
	trialEnd := testNow.AddDate(0, 0, 30)
	h.provider.subs["sub_1"] = &ProviderSubscription{ID: "sub_1", UserID: 1, Status: "trialing", PriceID: "price_premium", TrialEnd: &trialEnd}

	sub, err := h.svc.Reconcile(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, models.PlanPremium, sub.PlanType)
	assert.Equal(t, models.StatusTrialing, sub.Status)
}

func TestPatchPlan(t *testing.T) {
	h := newHarness(t)

	_, err := h.svc.PatchPlan(context.Background(), 1, "gold", models.StatusActive, "")
	assert.ErrorIs(t, err, ErrInvalidPlan)

	sub, err := h.svc.PatchPlan(context.Background(), 1, models.PlanPro, models.StatusActive, "")
	require.NoError(t, err)
	assert.Equal(t, models.PlanPro, sub.PlanType)
	require.NotNil(t, sub.ProStartedAt)
	assert.Equal(t, testNow, *sub.ProStartedAt)
	require.Len(t, h.store.log, 1)
	assert.Equal(t, models.ReasonManualPatch, h.store.log[0].Reason)
}
