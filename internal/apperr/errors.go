// Package apperr holds the sentinel errors shared across packages.
package apperr

import "errors"

var (
	ErrNotFound      = errors.New("not found")
	ErrAlreadyExists = errors.New("already exists")
	ErrInvalid       = errors.New("invalid")
	ErrUnknownSlot   = errors.New("unknown slot")
	// ErrIO marks filesystem failures so callers can tell them apart from
	// validation failures.
	ErrIO = errors.New("io failure")
)
