package domain

import "errors"

// Sentinel errors returned by the domain layer. Handlers map these to HTTP
// status codes with errors.Is; anything not listed here is treated as
// internal.
var (
	// ErrInvalidContent means the content field was missing or not text.
	ErrInvalidContent = errors.New("invalid content")

	// ErrContentTooShort means the trimmed content is below the minimum length.
	ErrContentTooShort = errors.New("content too short")

	// ErrContentTooLong means the trimmed content exceeds the maximum length.
	ErrContentTooLong = errors.New("content too long")

	// ErrUnauthorized means the credential is missing, invalid, or does not
	// authorize the attempted action.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrTokenExpired means the PDS rejected the credential as expired. Kept
	// distinct from ErrUnauthorized so clients can prompt a re-login.
	ErrTokenExpired = errors.New("token expired")

	// ErrDIDMismatch means the credential is valid but belongs to a different
	// identity than the one claimed.
	ErrDIDMismatch = errors.New("did mismatch")

	// ErrNotFound means no post exists for the given short URL.
	ErrNotFound = errors.New("post not found")

	// ErrRateLimited means the client exceeded the creation rate limit.
	ErrRateLimited = errors.New("rate limited")

	// ErrShortURLTaken means an insert collided with an existing short URL.
	// The service retries generation on this error.
	ErrShortURLTaken = errors.New("short url taken")

	// ErrIDGenerationFailed means short URL generation exhausted its retries.
	ErrIDGenerationFailed = errors.New("short url generation failed")

	// ErrUpstream means the database or the PDS was unreachable or failed
	// unexpectedly.
	ErrUpstream = errors.New("upstream failure")
)
