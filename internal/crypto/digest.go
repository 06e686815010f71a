// Package crypto computes content digests for uploaded media.
package crypto

import (
	"encoding/hex"

	"golang.org/x/crypto/blake2b"
)

// ShortLen is the digest length, in bytes, embedded in blob keys.
const ShortLen = 8

// Digest returns the hex BLAKE2b-256 digest of b.
func Digest(b []byte) string {
	sum := blake2b.Sum256(b)
	return hex.EncodeToString(sum[:])
}

// ShortDigest returns a hex BLAKE2b digest of ShortLen bytes.
func ShortDigest(b []byte) string {
	h, _ := blake2b.New(ShortLen, nil) // only fails for invalid size/key
	_, _ = h.Write(b)
	return hex.EncodeToString(h.Sum(nil))
}
