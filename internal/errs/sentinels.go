// Package errs contains sentinel errors used across layers for stable error mapping.
package errs

import "errors"

// Common sentinels across api/service/ui layers.
var (
	// ErrNotFound indicates the requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrUnauthorized indicates a missing or rejected bearer token.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrForbidden indicates the server refused access to an owned resource.
	ErrForbidden = errors.New("access denied")

	// ErrOverloaded indicates the upstream model is temporarily unavailable (503).
	ErrOverloaded = errors.New("service overloaded")

	// ErrNetwork indicates the API could not be reached at all.
	ErrNetwork = errors.New("network error")

	// ErrValidation indicates input rejected before or by the server.
	ErrValidation = errors.New("validation")

	// ErrNoSession indicates no usable token is stored locally.
	ErrNoSession = errors.New("no valid session (login required)")

	// ErrNotDeletable indicates a book that is still processing.
	ErrNotDeletable = errors.New("book is not deletable until processing completes")
)
