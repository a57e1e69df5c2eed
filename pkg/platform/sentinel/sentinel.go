package sentinel

import "errors"

// Sentinel errors for infrastructure facts. Stores and transports return these
// (optionally wrapped) so services can translate them into domain errors.
//
// These represent factual states about resources, not validation failures:
// - ErrNotFound: entity does not exist in the store
// - ErrClosed: channel, subscription, or client already torn down
// - ErrUnavailable: store or transport temporarily unreachable
//
// For validation failures (bad input, missing fields), use pkg/domain-errors
// or the gate's field-error set; those never leave the gate boundary.
var (
	ErrNotFound    = errors.New("not found")
	ErrConflict    = errors.New("conflict")
	ErrClosed      = errors.New("closed")
	ErrUnavailable = errors.New("unavailable")
)
