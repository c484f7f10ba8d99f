package services

import (
	"errors"
)

// Sentinel errors for the record-access and reminder core. Handlers map
// these onto HTTP statuses; services wrap them with fmt.Errorf("...: %w")
// to carry detail.
var (
	// ErrNotFound means the entity does not exist, or does not exist for
	// the acting user.
	ErrNotFound = errors.New("not found")

	// ErrInvalidTransition means a state-machine precondition failed, such
	// as responding to a consent that is not pending.
	ErrInvalidTransition = errors.New("invalid state transition")

	// ErrConflict means a uniqueness rule would be violated, such as a
	// duplicate pending consent or an occupied bed.
	ErrConflict = errors.New("conflict")

	// ErrAccessDenied means the access resolver rejected the request.
	ErrAccessDenied = errors.New("access denied")

	// ErrValidation means the input to a service was malformed.
	ErrValidation = errors.New("validation failed")
)
