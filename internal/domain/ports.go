package domain

import (
	"context"
	"time"
)

// PostRepository defines persistence operations for posts.
type PostRepository interface {
	// CreatePost inserts a new post and fills in the assigned ID. Returns
	// ErrShortURLTaken if the short URL collides with an existing row.
	CreatePost(ctx context.Context, post *Post) error

	// ListRecent retrieves the most recent posts, newest first.
	ListRecent(ctx context.Context, limit int) ([]Post, error)

	// GetByShortURL retrieves a post by its short URL. Returns ErrNotFound
	// if no such post exists.
	GetByShortURL(ctx context.Context, shortURL string) (*Post, error)

	// ListByAuthor retrieves all posts by the given author, newest first.
	ListByAuthor(ctx context.Context, authorDID string) ([]Post, error)

	// UpdateContent replaces the content of the post with the given short URL.
	UpdateContent(ctx context.Context, shortURL, content string) error

	// DeleteByShortURL removes the post with the given short URL.
	DeleteByShortURL(ctx context.Context, shortURL string) error
}

// SessionVerifier validates a bearer credential against a claimed DID.
type SessionVerifier interface {
	// ResumeSession asks the PDS to confirm the session. Returns
	// ErrDIDMismatch when the credential is valid but belongs to a DID other
	// than the claimed one, ErrTokenExpired when the credential has expired,
	// and ErrUnauthorized for any other rejection.
	ResumeSession(ctx context.Context, did, accessJwt string) (*Session, error)
}

// Authenticator exchanges account credentials for a session.
type Authenticator interface {
	// CreateSession logs in with an identifier and app password. Returns
	// ErrUnauthorized on rejected credentials.
	CreateSession(ctx context.Context, identifier, password string) (*AuthSession, error)
}

// ProfileFetcher retrieves public actor profiles from the AppView.
type ProfileFetcher interface {
	GetProfile(ctx context.Context, actor string) (*Profile, error)
}

// Limiter is an admission control for post creation, keyed by client address.
type Limiter interface {
	// Allow reports whether a request from the given key may proceed at the
	// given time, recording it if so. Safe for concurrent use.
	Allow(key string, now time.Time) bool
}
