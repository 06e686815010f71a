// Package errs contains sentinel errors used across layers for stable error mapping.
package errs

import "errors"

// Failure classes surfaced to the user. Wrap them with fmt.Errorf("%w: ...", ErrX)
// and classify with errors.Is.
var (
	// ErrValidation indicates rejected client input; nothing was written.
	ErrValidation = errors.New("validation")

	// ErrStorage indicates a blob upload or public URL resolution failure.
	ErrStorage = errors.New("storage")

	// ErrPersistence indicates a media record or tag insert failure.
	ErrPersistence = errors.New("persistence")

	// ErrFetch indicates a failed gallery load or filter query.
	ErrFetch = errors.New("fetch")

	// ErrPartialTags marks a media record that was stored without its complete tag set.
	ErrPartialTags = errors.New("media stored without complete tags")
)

// Common sentinels across repo/service layers.
var (
	// ErrNotFound indicates the requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrAlreadyExists indicates a unique constraint violation (e.g., media URL taken).
	ErrAlreadyExists = errors.New("already exists")

	// ErrRateLimited indicates the client exceeded its upload budget.
	ErrRateLimited = errors.New("rate limited")
)
