// Package gateway is a thin HTTP client for the bKash tokenized checkout API.
//
// It knows endpoint paths, headers and JSON bodies, nothing more. Non-2xx
// responses are returned to the caller as a Response, not as an error; only
// transport failures produce errors. The client never retries.
package gateway
