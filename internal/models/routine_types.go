package models

import (
	"errors"
	"time"
)

// FrequencyType is how often a routine recurs.
type FrequencyType string

const (
	FrequencyDaily   FrequencyType = "daily"
	FrequencyWeekly  FrequencyType = "weekly"
	FrequencyMonthly FrequencyType = "monthly"
)

// Routine is the model for the 'routines' table.
// WeeklyDays uses 0-6 with Sunday = 0; MonthlyDays uses 1-31.
type Routine struct {
	ID            int64         `json:"id" db:"id"`
	UserID        int64         `json:"userId" db:"user_id"`
	Title         string        `json:"title" db:"title" validate:"required,max=200"`
	FrequencyType FrequencyType `json:"frequencyType" db:"frequency_type" validate:"required,oneof=daily weekly monthly"`
	WeeklyDays    []int         `json:"weeklyDays,omitempty" db:"weekly_days" validate:"omitempty,max=7,dive,min=0,max=6"`
	MonthlyDays   []int         `json:"monthlyDays,omitempty" db:"monthly_days" validate:"omitempty,max=31,dive,min=1,max=31"`
	SkipWeekends  bool          `json:"skipWeekends" db:"skip_weekends"`
	IsActive      bool          `json:"isActive" db:"is_active"`
	CreatedAt     time.Time     `json:"createdAt" db:"created_at"`
	UpdatedAt     time.Time     `json:"updatedAt" db:"updated_at"`
}

var (
	ErrWeeklyDaysRequired  = errors.New("weekly routines need at least one weekday")
	ErrMonthlyDaysRequired = errors.New("monthly routines need at least one day of month")
	ErrDaysNotAllowed      = errors.New("day lists only apply to their own frequency type")
)

// Validate checks the routine against its frequency rules.
// Day sets are only allowed on the matching frequency type.
func (r *Routine) Validate() error {
	if err := validate.Struct(r); err != nil {
		return err
	}

	switch r.FrequencyType {
	case FrequencyWeekly:
		if len(r.WeeklyDays) == 0 {
			return ErrWeeklyDaysRequired
		}
		if len(r.MonthlyDays) > 0 {
			return ErrDaysNotAllowed
		}
	case FrequencyMonthly:
		if len(r.MonthlyDays) == 0 {
			return ErrMonthlyDaysRequired
		}
		if len(r.WeeklyDays) > 0 {
			return ErrDaysNotAllowed
		}
	default:
		if len(r.WeeklyDays) > 0 || len(r.MonthlyDays) > 0 {
			return ErrDaysNotAllowed
		}
	}
	return nil
}
