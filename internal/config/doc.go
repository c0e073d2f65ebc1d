// Package config assembles runtime settings for the bKash gateway service and
// the bkashctl tool.
//
// Values are layered in this order, later layers winning:
//
//	defaults < .env file < process environment < JSON file (-c/-config) < flags
//
// A Config is read once at startup and treated as immutable afterwards.
package config
