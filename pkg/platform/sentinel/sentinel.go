package sentinel

import "errors"

// Sentinel errors for infrastructure facts. Stores return these (optionally
// wrapped) so services can translate them into domain errors.
//
//   - ErrNotFound: row does not exist (or is hidden by soft-delete)
//   - ErrConflict: a uniqueness constraint rejected the write
//   - ErrInvalidState: row is in the wrong state for the requested write
//   - ErrUnavailable: backing store temporarily unavailable
//
// For validation errors use pkg/domain-errors directly.
var (
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("conflict")
	ErrInvalidState = errors.New("invalid state")
	ErrUnavailable  = errors.New("unavailable")
)
