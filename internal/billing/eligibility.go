package billing

import (
	"time"

	"github.com/01moynul/dayplanner-golang/internal/models"
)

// BonusTenureMonths is how long a continuous pro run must last before the loyalty bonus unlocks.
const BonusTenureMonths = 3

// IsEligibleForPremiumBonus is derived from stored timestamps on every call.
// Provider webhooks can move trial and active windows at any time, so the result is never cached.
func IsEligibleForPremiumBonus(sub models.Subscription, now time.Time) bool {
	if sub.PlanType != models.PlanPro {
		return false
	}
	if sub.Status != models.StatusActive && sub.Status != models.StatusTrialing {
		return false
	}
	if sub.PremiumBonusClaimed {
		return false
	}
	if sub.ProStartedAt == nil {
		return false
	}
	// Calendar months, not 90 days.
	unlocksAt := sub.ProStartedAt.AddDate(0, BonusTenureMonths, 0)
	return !now.Before(unlocksAt)
}
