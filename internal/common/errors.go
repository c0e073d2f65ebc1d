// Package common defines shared constants, sentinel errors and small helpers
// used across the gateway client, the ledger and the HTTP layer. Callers should
// use errors.Is to match these values.
package common

import "errors"

var (
	// Repository-level errors.
	ErrorNotFound      = errors.New("not found")
	ErrorAlreadyExists = errors.New("already exists")

	// Validation errors for caller supplied input.
	ErrorValidation = errors.New("validation error")

	// Payment lifecycle errors.
	ErrAlreadyRefunded = errors.New("payment already refunded")

	// Configuration errors.
	ErrMissingCredentials = errors.New("bkash credentials are not configured")
)
