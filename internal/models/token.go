// Package models holds the records shared by the token cache, the payment
// ledger and the orchestrator.
package models

import "time"

// Token is a cached bearer (id_token) or refresh token.
type Token struct {
	Value     string
	ExpiresAt time.Time
	Tenant    string
}

// Expired reports whether the token is no longer usable at now.
func (t *Token) Expired(now time.Time) bool {
	return !now.Before(t.ExpiresAt)
}
