package core

import (
	"errors"
	"fmt"
)

// Error kinds. Every error returned by the engine, the services and the
// stores wraps exactly one of these so callers can classify with errors.Is.
var (
	ErrValidation  = errors.New("validation error")
	ErrNotFound    = errors.New("not found")
	ErrPersistence = errors.New("persistence error")
	ErrAuthExpired = errors.New("session expired")
)

var (
	ErrInvalidAmount     = fmt.Errorf("%w: invalid amount", ErrValidation)
	ErrInvalidDate       = fmt.Errorf("%w: invalid date", ErrValidation)
	ErrEmptyUser         = fmt.Errorf("%w: missing user", ErrValidation)
	ErrEmptyCategory     = fmt.Errorf("%w: empty category", ErrValidation)
	ErrDescriptionLength = fmt.Errorf("%w: description too long (max 200 characters)", ErrValidation)
	ErrUnknownBucket     = fmt.Errorf("%w: unknown bucket", ErrValidation)
	ErrSameBucket        = fmt.Errorf("%w: source and target bucket must differ", ErrValidation)
	ErrNotOverspent      = fmt.Errorf("%w: target bucket is not overspent", ErrValidation)
	ErrNothingAvailable  = fmt.Errorf("%w: source bucket has no available funds", ErrValidation)
	ErrNothingToCollect  = fmt.Errorf("%w: bucket has no leftover to collect", ErrValidation)
	ErrAlreadyCollected  = fmt.Errorf("%w: bucket already collected this week", ErrValidation)
	ErrDateOutsideWeek   = fmt.Errorf("%w: date outside week range", ErrValidation)
	ErrLockedBucket      = fmt.Errorf("%w: bucket is locked for this transaction", ErrValidation)
	ErrProtectedGoal     = fmt.Errorf("%w: goal cannot be deleted", ErrValidation)
	ErrEmptyGoalKey      = fmt.Errorf("%w: empty goal key", ErrValidation)
	ErrEmptyGoalTitle    = fmt.Errorf("%w: empty goal title", ErrValidation)
	ErrInvalidWeekday    = fmt.Errorf("%w: weekday must be between 0 and 6", ErrValidation)
	ErrInvalidDirection  = fmt.Errorf("%w: direction must be add or subtract", ErrValidation)

	ErrWeekNotFound        = fmt.Errorf("week %w", ErrNotFound)
	ErrTransactionNotFound = fmt.Errorf("transaction %w", ErrNotFound)
	ErrGoalNotFound        = fmt.Errorf("goal %w", ErrNotFound)
	ErrMappingNotFound     = fmt.Errorf("category mapping %w", ErrNotFound)
)

// Validationf builds an ad-hoc validation error.
func Validationf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

// Error kind names, shared with the log field error_type.
const (
	KindValidation  = "validation_error"
	KindNotFound    = "not_found_error"
	KindPersistence = "database_error"
	KindAuth        = "auth_error"
	KindInternal    = "internal_error"
)

// Kind classifies err into one of the Kind* names.
func Kind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrValidation):
		return KindValidation
	case errors.Is(err, ErrNotFound):
		return KindNotFound
	case errors.Is(err, ErrAuthExpired):
		return KindAuth
	case errors.Is(err, ErrPersistence):
		return KindPersistence
	default:
		return KindInternal
	}
}
