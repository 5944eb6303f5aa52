package service

import (
	"errors"
	"fmt"
)

// Error kinds returned by Lifecycle.  Each one maps to exactly one HTTP
// status in the handler layer; anything else is an internal error.
var (
	// ErrUnauthenticated means no caller identity was supplied.
	ErrUnauthenticated = errors.New("missing caller identity")
	// ErrValidation means a required field was missing or malformed.
	ErrValidation = errors.New("invalid input")
	// ErrInvalidStatus is the validation failure for a decision status
	// other than accepted or rejected.
	ErrInvalidStatus = fmt.Errorf("%w: status must be 'accepted' or 'rejected'", ErrValidation)
	// ErrNotFound means the outing does not exist.
	ErrNotFound = errors.New("not found")
	// ErrForbidden means the caller is not the host of an existing outing.
	ErrForbidden = errors.New("forbidden")
	// ErrOutingClosed means the outing no longer accepts interest requests.
	ErrOutingClosed = errors.New("outing is closed, no new requests allowed")
	// ErrConflict covers a missing request, a non-host caller and an
	// already decided request without saying which.
	ErrConflict = errors.New("not found, forbidden, or already decided")
)

var errOutingNotFound = fmt.Errorf("outing %w", ErrNotFound)

func validationError(msg string) error {
	return fmt.Errorf("%w: %s", ErrValidation, msg)
}
