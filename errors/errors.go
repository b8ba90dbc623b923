// Package errors defines the error taxonomy surfaced at the gateway
// boundary. Every handler failure is classified into one of the five
// categories before being reported to the originating session.
package errors

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound     = fmt.Errorf("not found")
	ErrForbidden    = fmt.Errorf("forbidden")
	ErrConflict     = fmt.Errorf("conflict")
	ErrInvalidInput = fmt.Errorf("invalid input")
	ErrUnavailable  = fmt.Errorf("unavailable")

	ErrWorkerPanic = fmt.Errorf("worker panic")
)

// Domain-specific sentinels, each wrapping its taxonomy category so
// callers can match on either level.
var (
	ErrRoomNameTaken         = fmt.Errorf("room name already taken: %w", ErrConflict)
	ErrRoomKindMismatch      = fmt.Errorf("room name collides with a different room kind: %w", ErrConflict)
	ErrAlreadyValidated      = fmt.Errorf("message already validated: %w", ErrConflict)
	ErrNotYetValidated       = fmt.Errorf("message not yet validated: %w", ErrConflict)
	ErrAlreadyRewarded       = fmt.Errorf("message already rewarded: %w", ErrConflict)
	ErrNotValidator          = fmt.Errorf("user is not a validator: %w", ErrForbidden)
	ErrReplyWrongRoom        = fmt.Errorf("reply target belongs to another room: %w", ErrNotFound)
	ErrReplyToReply          = fmt.Errorf("replies may only target top-level messages: %w", ErrInvalidInput)
	ErrUnvalidateUnsupported = fmt.Errorf("un-validation is not supported: %w", ErrInvalidInput)
)

// Classify maps an arbitrary error to its taxonomy sentinel. Errors
// outside the taxonomy are treated as store or collaborator failures
// and reported as Unavailable without leaking internal detail.
func Classify(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, ErrNotFound):
		return ErrNotFound
	case errors.Is(err, ErrForbidden):
		return ErrForbidden
	case errors.Is(err, ErrConflict):
		return ErrConflict
	case errors.Is(err, ErrInvalidInput):
		return ErrInvalidInput
	default:
		return ErrUnavailable
	}
}
