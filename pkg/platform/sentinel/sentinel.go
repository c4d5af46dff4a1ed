package sentinel

import "errors"

// Sentinel errors for infrastructure facts. Stores and external-service
// clients return these (optionally wrapped) so services can translate them
// into coded application errors.
//
// These represent factual states about resources, not validation failures:
// - ErrNotFound: entity does not exist in the store or content store
// - ErrUnavailable: backing service unreachable or returned an I/O error
//
// For validation errors (bad input, missing fields), use pkg/apperr directly.
var (
	ErrNotFound    = errors.New("not found")
	ErrUnavailable = errors.New("unavailable")
)
