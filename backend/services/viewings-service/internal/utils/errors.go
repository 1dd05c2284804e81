package utils

import (
	"errors"
	"fmt"
)

/*
Sentinel errors for the viewing request lifecycle.
The controller can do: if errors.Is(err, ErrXYZ) { ... }
*/
var (
	ErrUnauthorized      = errors.New("unauthorized")
	ErrInvalidTransition = errors.New("invalid_transition")
	ErrNotFound          = errors.New("viewing_request_not_found")
	ErrPropertyNotFound  = errors.New("property_not_found")
	ErrReleaseNotFound   = errors.New("payment_release_not_found")
	ErrNoLandlordAccount = errors.New("landlord_payout_account_missing")
	ErrNoHeldPayment     = errors.New("no_held_payment")
)

// ValidationError is returned for malformed caller input (missing date or
// time, dates in the past, too many preferred dates).
type ValidationError struct {
	Field  string `json:"field"`
	Reason string `json:"reason"`
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation_error: %s %s", e.Field, e.Reason)
}

func NewValidationError(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}

// PersistenceError wraps a failed or timed-out gateway call. No state was changed.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persistence_error: %s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

func NewPersistenceError(op string, err error) error {
	return &PersistenceError{Op: op, Err: err}
}

// TransitionError explains which transition was refused from which state.
type TransitionError struct {
	Action string
	From   string
	Reason string
}

func (e *TransitionError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("invalid_transition: cannot %s from %s: %s", e.Action, e.From, e.Reason)
	}
	return fmt.Sprintf("invalid_transition: cannot %s from %s", e.Action, e.From)
}

func (e *TransitionError) Is(target error) bool { return target == ErrInvalidTransition }

func NewTransitionError(action, from, reason string) error {
	return &TransitionError{Action: action, From: from, Reason: reason}
}
