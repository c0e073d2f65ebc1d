package common

import (
	"crypto/rand"
	"strings"
)

// GenerateRandByteArray returns size cryptographically random bytes.
// It panics if the system random source fails.
func GenerateRandByteArray(size int) []byte {
	b := make([]byte, size)
	if _, err := rand.Read(b); err != nil {
		panic(err)
	}
	return b
}

// WipeByteArray overwrites b with zeros. A nil slice is ignored.
func WipeByteArray(b []byte) {
	for i := range b {
		b[i] = 0
	}
}

// MaskSecret keeps the first visible characters of s and replaces the rest
// with an ellipsis. Strings that are not longer than visible are masked fully.
func MaskSecret(s string, visible int) string {
	if visible <= 0 || len(s) <= visible {
		return strings.Repeat("*", len(s))
	}
	return s[:visible] + "..."
}
