package bkash

import (
	"regexp"
	"strings"
	"time"
)

// bKash sends refund completion times like "2024-01-15T10:30:45:123 GMT+0600",
// with the fractional seconds separated by a colon.
var fractionColon = regexp.MustCompile(`(\d{2}):(\d{3})`)

var completedTimeLayouts = []string{
	"2006-01-02T15:04:05.000 GMT-0700",
	"2006-01-02T15:04:05 GMT-0700",
	"2006-01-02T15:04.000 GMT-0700",
	"2006-01-02T15:04:05.000Z07:00",
	time.RFC3339Nano,
	"2006-01-02T15:04:05.000",
	"2006-01-02 15:04:05.000",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
}

// ParseCompletedTime parses an upstream completedTime. A trailing ":MMM"
// group is read as milliseconds, so "11:49:677" is 11:49 plus 677ms. It never
// fails: empty or unreadable input yields now.
func ParseCompletedTime(s string, now time.Time) time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return now
	}
	s = fractionColon.ReplaceAllString(s, "$1.$2")

	for _, layout := range completedTimeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return now
}
