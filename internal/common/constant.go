package common

// Upstream header names.
const (
	UsernameHeaderName      = "username"
	PasswordHeaderName      = "password"
	AuthorizationHeaderName = "Authorization"
	AppKeyHeaderName        = "X-APP-Key"
)

// TenantHeaderName carries the optional tenant scope on inbound API requests.
const TenantHeaderName = "X-Tenant-ID"

// Transaction statuses reported by the provider that the ledger reasons about.
const (
	StatusCompleted = "Completed"
	StatusRefunded  = "REFUNDED"
)
