// Package limiter defines interfaces and implementations for upload rate limiting.
package limiter

import (
	"context"
	"crypto/sha256"
	"time"
)

// Limiter decides whether a client may start another upload.
type Limiter interface {
	// Allow records an attempt by client and reports whether it is within budget,
	// with a retry-after hint when it is not.
	Allow(ctx context.Context, client string) (bool, time.Duration, error)
}

// HashIP returns a stable hash for an IP string to avoid storing raw addresses.
func HashIP(ip string) []byte {
	h := sha256.Sum256([]byte(ip))
	return h[:]
}
