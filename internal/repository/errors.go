// Package repository defines error types that are reused across multiple
// repositories. These sentinel values allow higher layers such as the
// lifecycle service to distinguish between different failure scenarios.
package repository

import "errors"

// ErrOutingNotFound is returned when an outing lookup matches no row.
var ErrOutingNotFound = errors.New("outing not found")

// ErrInterestRequestNotFound is returned when a request lookup matches no row.
var ErrInterestRequestNotFound = errors.New("interest request not found")

// ErrConflict is returned when a conditional update matched zero rows.
// For request decisions this covers a missing request, a caller who is
// not the host and a request that was already decided; the three cases
// are deliberately indistinguishable to the caller.
var ErrConflict = errors.New("conflict")
