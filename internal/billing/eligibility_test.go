package billing

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/01moynul/dayplanner-golang/internal/models"
)

func TestIsEligibleForPremiumBonus(t *testing.T) {
	now := time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC)
	ago := func(months, days int) *time.Time {
		t := now.AddDate(0, -months, -days)
		return &t
	}

	tests := []struct {
		name string
		sub  models.Subscription
		want bool
	}{
		{
			name: "pro active four months",
			sub:  models.Subscription{PlanType: models.PlanPro, Status: models.StatusActive, ProStartedAt: ago(4, 0)},
			want: true,
		},
		{
			name: "pro trialing exactly three months",
			sub:  models.Subscription{PlanType: models.PlanPro, Status: models.StatusTrialing, ProStartedAt: ago(3, 0)},
			want: true,
		},
		{
			name: "one day short of three months",
			sub:  models.Subscription{PlanType: models.PlanPro, Status: models.StatusActive, ProStartedAt: ago(3, -1)},
			want: false,
		},
		{
			name: "already claimed",
			sub:  models.Subscription{PlanType: models.PlanPro, Status: models.StatusActive, ProStartedAt: ago(12, 0), PremiumBonusClaimed: true},
			want: false,
		},
		{
			name: "premium tier",
			sub:  models.Subscription{PlanType: models.PlanPremium, Status: models.StatusActive, ProStartedAt: ago(12, 0)},
			want: false,
		},
		{
			name: "canceled pro",
			sub:  models.Subscription{PlanType: models.PlanPro, Status: models.StatusCanceled, ProStartedAt: ago(12, 0)},
			want: false,
		},
		{
			name: "no start timestamp",
			sub:  models.Subscription{PlanType: models.PlanPro, Status: models.StatusActive},
			want: false,
		},
		{
			name: "default free",
			sub:  models.DefaultSubscription(1),
			want: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsEligibleForPremiumBonus(tt.sub, now))
		})
	}
}

func TestEligibilityUsesCalendarMonths(t *testing.T) {
	// Nov 30 + 3 months normalises to Mar 1 (Feb 30 does not exist).
	start := time.Date(2023, 11, 30, 0, 0, 0, 0, time.UTC)
	sub := models.Subscription{PlanType: models.PlanPro, Status: models.StatusActive, ProStartedAt: &start}

	assert.False(t, IsEligibleForPremiumBonus(sub, time.Date(2024, 2, 29, 23, 0, 0, 0, time.UTC)))
	assert.True(t, IsEligibleForPremiumBonus(sub, time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)))
}
