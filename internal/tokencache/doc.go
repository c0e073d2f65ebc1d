// Package tokencache keeps bKash bearer and refresh tokens between requests.
//
// Entries are stored under "bkash_token" and "bkash_refresh_token". When a
// tenant is given the key becomes "tenant_{tenant}_{key}", so tenants never see
// each other's tokens and never collide with the default entries.
//
// Writes are last-writer-wins. Two concurrent cache misses may both fetch a
// token upstream; the later write simply replaces the earlier one.
package tokencache
