package models

import "errors"

// Error taxonomy shared by services and handlers. Services wrap these with
// fmt.Errorf("...: %w", Err...) so handlers can map them to status codes
// with errors.Is.
var (
	// ErrValidation marks bad input shape or length.
	ErrValidation = errors.New("validation failed")
	// ErrNotFound marks an absent referenced entity.
	ErrNotFound = errors.New("not found")
	// ErrConflict marks a duplicate unique key, e.g. a wallet that already applied.
	ErrConflict = errors.New("conflict")
	// ErrUnauthorized marks a caller that does not own the resource.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrUpstream marks a room service, RPC or price feed failure.
	ErrUpstream = errors.New("upstream failure")
)
