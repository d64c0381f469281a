package billing

import (
	"errors"

	"github.com/01moynul/dayplanner-golang/internal/apperr"
)

var (
	ErrInvalidPlan          = apperr.New(apperr.InvalidInput, "invalid plan")
	ErrNoEmailOnFile        = apperr.New(apperr.InvalidInput, "no email on file for this account")
	ErrNotEligible          = apperr.New(apperr.NotEligible, "not eligible for the premium bonus")
	ErrNoActiveSubscription = apperr.New(apperr.NotFound, "no active subscription")
	ErrNotConfigured        = apperr.New(apperr.Internal, "billing not configured")
)

// Storage-level conditions a Store reports back to the service.
var (
	ErrBonusAlreadyClaimed = errors.New("premium bonus already claimed")
	ErrUnknownCustomer     = errors.New("no user for provider customer")
)

// ErrRequestReplayed is returned by a Provider when an idempotency key was already used
// with different parameters.
var ErrRequestReplayed = errors.New("provider rejected a replayed request")
