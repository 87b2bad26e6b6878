// Package common defines shared constants and sentinel errors used across
// the service layers. Callers should use errors.Is to match these values.
package common

import "errors"

var (
	// Repository-level errors.
	ErrorNotFound      = errors.New("not found")
	ErrorAlreadyExists = errors.New("already exists")

	// Service-level errors.
	ErrorInternal     = errors.New("internal error")
	ErrorDependency   = errors.New("dependency unavailable")
	ErrorValidation   = errors.New("validation error")
	ErrorUnauthorized = errors.New("unauthorized")
	ErrorForbidden    = errors.New("forbidden")

	// Verification lifecycle errors.
	ErrInvalidToken       = errors.New("invalid or expired token")
	ErrorAlreadyVerified  = errors.New("already verified")
	ErrorUnsupportedMedia = errors.New("unsupported media type")
	ErrorTooLarge         = errors.New("payload too large")
)
