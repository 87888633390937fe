package domain

import "time"

// Post is a long-form post stored in our database.
type Post struct {
	// ID is the database-assigned numeric identity.
	ID int64

	// Content is the sanitized post body.
	Content string

	// ShortURL is the random public identifier used in place of ID.
	ShortURL string

	// AuthorDID is the DID of the post's author, as confirmed by the PDS
	// at creation time. It is the ownership key for edits and deletes.
	AuthorDID string

	// CreatedAt is when the post was created.
	CreatedAt time.Time
}

// Session is the result of a successful session verification. It is never
// persisted; it exists for the duration of a single authorization check.
type Session struct {
	// DID is the PDS-confirmed identity of the session holder.
	DID string

	// Handle is the account handle at verification time.
	Handle string
}

// AuthSession is a full session returned by login, including the tokens the
// client needs for subsequent requests.
type AuthSession struct {
	DID        string
	Handle     string
	AccessJwt  string
	RefreshJwt string
}

// Profile is a subset of a Bluesky actor profile, used to enrich the public
// post view with author details.
type Profile struct {
	DID         string
	Handle      string
	DisplayName string
	Avatar      string
}
