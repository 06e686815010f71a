package blob

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrBadSignature is returned for missing, expired or foreign URL signatures.
var ErrBadSignature = errors.New("blob: bad signature")

// Signer issues and checks HS256 tokens that grant read access to one blob key.
type Signer struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewSigner constructs a Signer. A zero ttl issues tokens without expiry.
func NewSigner(secret []byte, ttl time.Duration) *Signer {
	return &Signer{secret: secret, ttl: ttl, now: time.Now}
}

// Sign returns a token for key.
func (s *Signer) Sign(key string) (string, error) {
	claims := jwt.RegisteredClaims{
		Subject:  key,
		IssuedAt: jwt.NewNumericDate(s.now()),
	}
	if s.ttl > 0 {
		claims.ExpiresAt = jwt.NewNumericDate(s.now().Add(s.ttl))
	}
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("sign %s: %w", key, err)
	}
	return tok, nil
}

// Verify checks that token is valid and was issued for key.
func (s *Signer) Verify(token, key string) error {
	if token == "" {
		return ErrBadSignature
	}
	var claims jwt.RegisteredClaims
	_, err := jwt.ParseWithClaims(token, &claims, func(*jwt.Token) (any, error) {
		return s.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(s.now))
	if err != nil {
		return fmt.Errorf("%w: %w", ErrBadSignature, err)
	}
	if claims.Subject != key {
		return fmt.Errorf("%w: issued for another key", ErrBadSignature)
	}
	return nil
}
