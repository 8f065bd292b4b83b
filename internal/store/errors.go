package store

import "errors"

var (
	// ErrNotFound reports that a referenced shop/tenant/agreement/payment
	// does not exist.
	ErrNotFound = errors.New("store: not found")
	// ErrConflict reports that a shop already has an active agreement, or
	// that the agreement number is taken.
	ErrConflict = errors.New("store: conflict")
	// ErrValidation reports input violating a domain rule (due day out of
	// 1..31, payment exceeds remaining due, non-positive amount).
	ErrValidation = errors.New("store: validation failed")
	// ErrUnavailable reports an underlying storage I/O failure.
	ErrUnavailable = errors.New("store: storage unavailable")
)
