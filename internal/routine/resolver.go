// Package routine decides which recurring routines apply to a calendar date.
package routine

import (
	"slices"
	"time"

	"github.com/01moynul/dayplanner-golang/internal/models"
)

// DateContext is a calendar date broken into the parts the frequency rules look at.
type DateContext struct {
	DayOfWeek  int // 0-6, Sunday = 0
	DayOfMonth int // 1-31
	IsWeekend  bool
}

// NewDateContext decomposes date in its own location.
func NewDateContext(date time.Time) DateContext {
	weekday := int(date.Weekday())
	return DateContext{
		DayOfWeek:  weekday,
		DayOfMonth: date.Day(),
		IsWeekend:  weekday == int(time.Saturday) || weekday == int(time.Sunday),
	}
}

// IsDue reports whether r falls on the date described by dc.
// Unknown frequency types are never due.
func IsDue(r models.Routine, dc DateContext) bool {
	switch r.FrequencyType {
	case models.FrequencyDaily:
		return !(r.SkipWeekends && dc.IsWeekend)
	case models.FrequencyWeekly:
		return slices.Contains(r.WeeklyDays, dc.DayOfWeek)
	case models.FrequencyMonthly:
		// A day the month doesn't have (e.g. 31 in April) is skipped, not rolled to month end.
		return slices.Contains(r.MonthlyDays, dc.DayOfMonth)
	default:
		return false
	}
}

// ResolveDueRoutines returns the routines due on date, keeping their input order.
// Callers pass one user's active routines; activity and ownership are not re-checked.
func ResolveDueRoutines(routines []models.Routine, date time.Time) []models.Routine {
	dc := NewDateContext(date)

	due := make([]models.Routine, 0, len(routines))
	for _, r := range routines {
		if IsDue(r, dc) {
			due = append(due, r)
		}
	}
	return due
}
