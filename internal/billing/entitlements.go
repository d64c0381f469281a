package billing

import (
	"time"

	"github.com/01moynul/dayplanner-golang/internal/models"
)

// Unlimited marks a limit that is not enforced.
const Unlimited = -1

// Entitlements are what the user's effective tier unlocks.
type Entitlements struct {
	Tier               models.PlanType `json:"tier"`
	MaxActiveRoutines  int             `json:"maxActiveRoutines"`
	AIChat             bool            `json:"aiChat"`
	AIMessagesPerDay   int             `json:"aiMessagesPerDay"`
	AnalyticsRangeDays int             `json:"analyticsRangeDays"`
}

var tierEntitlements = map[models.PlanType]Entitlements{
	models.PlanFree: {
		Tier:               models.PlanFree,
		MaxActiveRoutines:  5,
		AnalyticsRangeDays: 7,
	},
	models.PlanPro: {
		Tier:               models.PlanPro,
		MaxActiveRoutines:  50,
		AIChat:             true,
		AIMessagesPerDay:   50,
		AnalyticsRangeDays: 90,
	},
	models.PlanPremium: {
		Tier:               models.PlanPremium,
		MaxActiveRoutines:  Unlimited,
		AIChat:             true,
		AIMessagesPerDay:   500,
		AnalyticsRangeDays: 365,
	},
}

// EffectiveTier is the plan the user is currently entitled to.
// A trial only counts until its trial end passes; the provider flips the status afterwards.
func EffectiveTier(sub models.Subscription, now time.Time) models.PlanType {
	switch sub.Status {
	case models.StatusActive:
	case models.StatusTrialing:
		if sub.TrialEnd != nil && !now.Before(*sub.TrialEnd) {
			return models.PlanFree
		}
	default:
		return models.PlanFree
	}
	if !sub.PlanType.Valid() {
		return models.PlanFree
	}
	return sub.PlanType
}

// EntitlementsFor returns the entitlements of sub's effective tier.
func EntitlementsFor(sub models.Subscription, now time.Time) Entitlements {
	return tierEntitlements[EffectiveTier(sub, now)]
}

// AllowsRoutines reports whether a user with active routines may add one more.
func (e Entitlements) AllowsRoutines(active int) bool {
	return e.MaxActiveRoutines == Unlimited || active < e.MaxActiveRoutines
}
