package services

import (
	"errors"
	"fmt"

	"github.com/ortelius/tenancy-backend/database"
)

// Failure kinds. Callers match with errors.Is; the text after the kind is safe to show to clients
// for every kind except ErrInternal.
var (
	ErrValidation      = errors.New("validation error")
	ErrConflict        = errors.New("conflict")
	ErrUnauthenticated = errors.New("unauthenticated")
	ErrForbidden       = errors.New("forbidden")
	ErrNotFound        = errors.New("not found")
	ErrInvalidRole     = errors.New("invalid role")
	ErrAlreadyMember   = errors.New("already a member")
	ErrInternal        = errors.New("internal error")
)

// kinds lists every kind in match order.
var kinds = []error{
	ErrValidation,
	ErrConflict,
	ErrUnauthenticated,
	ErrForbidden,
	ErrNotFound,
	ErrInvalidRole,
	ErrAlreadyMember,
	ErrInternal,
}

// Kind returns the failure kind of err, or ErrInternal for anything unclassified.
func Kind(err error) error {
	for _, k := range kinds {
		if errors.Is(err, k) {
			return k
		}
	}
	return ErrInternal
}

func failf(kind error, format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", kind, fmt.Sprintf(format, args...))
}

// storeErr classifies a store error for the entity named what.
func storeErr(err error, what string) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, database.ErrNotFound):
		return failf(ErrNotFound, "%s not found", what)
	case errors.Is(err, database.ErrAlreadyMember):
		return failf(ErrAlreadyMember, "user is already a member of this organization")
	case errors.Is(err, database.ErrConflict):
		return failf(ErrConflict, "%s already exists", what)
	case Kind(err) != ErrInternal:
		return err
	default:
		return fmt.Errorf("%w: %s: %w", ErrInternal, what, err)
	}
}
