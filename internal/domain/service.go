package domain

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"log/slog"
	"time"
)

// shortURLAlphabet must stay at 64 characters: generateShortURL maps random
// bytes with a modulo, which is only uniform for a power-of-two alphabet.
const shortURLAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789-_"

const (
	shortURLMinLen      = 8
	shortURLMaxLen      = 10
	maxShortURLAttempts = 5
	defaultRecentLimit  = 10
)

// ContentBounds are the length limits applied to post content.
type ContentBounds struct {
	Min int
	Max int
}

// PostService owns the business logic for publishing, reading, editing and
// deleting long-form posts. Every mutation re-verifies the caller's session
// against the PDS; ownership is decided by the stored author DID, never by a
// client-supplied claim.
type PostService struct {
	repo     PostRepository
	verifier SessionVerifier
	profiles ProfileFetcher
	limiter  Limiter
	bounds   ContentBounds
	logger   *slog.Logger
}

// NewPostService creates a PostService with the given collaborators.
func NewPostService(repo PostRepository, verifier SessionVerifier, profiles ProfileFetcher, limiter Limiter, bounds ContentBounds, logger *slog.Logger) *PostService {
	return &PostService{
		repo:     repo,
		verifier: verifier,
		profiles: profiles,
		limiter:  limiter,
		bounds:   bounds,
		logger:   logger,
	}
}

// CreatePost publishes a new post for authorDID. The steps run in a fixed
// order: the rate limit sheds load before any external call, validation and
// sanitization run before the PDS round trip, and persistence only happens
// for a verified session.
func (s *PostService) CreatePost(ctx context.Context, clientKey, authorDID, accessJwt, content string) (*Post, error) {
	if !s.limiter.Allow(clientKey, time.Now()) {
		return nil, ErrRateLimited
	}

	if authorDID == "" || accessJwt == "" {
		return nil, ErrUnauthorized
	}
	if err := ValidateContent(content, s.bounds.Min, s.bounds.Max); err != nil {
		return nil, err
	}
	sanitized := Sanitize(content)

	session, err := s.verifier.ResumeSession(ctx, authorDID, accessJwt)
	if err != nil {
		return nil, fmt.Errorf("verify session: %w", err)
	}

	post, err := s.insertWithFreshShortURL(ctx, sanitized, session.DID)
	if err != nil {
		return nil, err
	}

	s.logger.Info("post created", "shortUrl", post.ShortURL, "author", post.AuthorDID)
	return post, nil
}

// insertWithFreshShortURL generates a short URL and inserts the post,
// regenerating on a uniqueness collision. The token starts at 8 characters
// and grows by one per retry up to 10.
func (s *PostService) insertWithFreshShortURL(ctx context.Context, content, authorDID string) (*Post, error) {
	for attempt := 0; attempt < maxShortURLAttempts; attempt++ {
		length := shortURLMinLen + attempt
		if length > shortURLMaxLen {
			length = shortURLMaxLen
		}

		shortURL, err := generateShortURL(length)
		if err != nil {
			return nil, fmt.Errorf("generate short url: %w", err)
		}

		post := &Post{
			Content:   content,
			ShortURL:  shortURL,
			AuthorDID: authorDID,
		}
		err = s.repo.CreatePost(ctx, post)
		if errors.Is(err, ErrShortURLTaken) {
			s.logger.Warn("short url collision, regenerating", "shortUrl", shortURL, "attempt", attempt+1)
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("create post: %w", err)
		}
		return post, nil
	}
	return nil, ErrIDGenerationFailed
}

// UpdatePost replaces the content of an existing post. Authorization is
// checked against the stored author DID: the bearer token must resume a
// session for that exact identity.
func (s *PostService) UpdatePost(ctx context.Context, shortURL, accessJwt, content string) error {
	if accessJwt == "" {
		return ErrUnauthorized
	}

	post, err := s.repo.GetByShortURL(ctx, shortURL)
	if err != nil {
		return fmt.Errorf("lookup post: %w", err)
	}

	if err := ValidateContent(content, s.bounds.Min, s.bounds.Max); err != nil {
		return err
	}
	sanitized := Sanitize(content)

	if err := s.authorizeOwner(ctx, post, accessJwt); err != nil {
		return err
	}

	if err := s.repo.UpdateContent(ctx, shortURL, sanitized); err != nil {
		return fmt.Errorf("update post: %w", err)
	}

	s.logger.Info("post updated", "shortUrl", shortURL, "author", post.AuthorDID)
	return nil
}

// DeletePost removes an existing post after verifying the caller owns it.
func (s *PostService) DeletePost(ctx context.Context, shortURL, accessJwt string) error {
	if accessJwt == "" {
		return ErrUnauthorized
	}

	post, err := s.repo.GetByShortURL(ctx, shortURL)
	if err != nil {
		return fmt.Errorf("lookup post: %w", err)
	}

	if err := s.authorizeOwner(ctx, post, accessJwt); err != nil {
		return err
	}

	if err := s.repo.DeleteByShortURL(ctx, shortURL); err != nil {
		return fmt.Errorf("delete post: %w", err)
	}

	s.logger.Info("post deleted", "shortUrl", shortURL, "author", post.AuthorDID)
	return nil
}

// authorizeOwner verifies the bearer token against the post's stored author.
// A valid token for any other identity is rejected as unauthorized.
func (s *PostService) authorizeOwner(ctx context.Context, post *Post, accessJwt string) error {
	_, err := s.verifier.ResumeSession(ctx, post.AuthorDID, accessJwt)
	if errors.Is(err, ErrDIDMismatch) {
		// The token is real, just not the owner's. Do not reveal whose.
		return fmt.Errorf("%w: not the author", ErrUnauthorized)
	}
	if err != nil {
		return fmt.Errorf("verify session: %w", err)
	}
	return nil
}

// GetPost retrieves a post by short URL along with its author's profile. A
// profile lookup failure degrades to a post without author details rather
// than failing the read.
func (s *PostService) GetPost(ctx context.Context, shortURL string) (*Post, *Profile, error) {
	post, err := s.repo.GetByShortURL(ctx, shortURL)
	if err != nil {
		return nil, nil, fmt.Errorf("lookup post: %w", err)
	}

	profile, err := s.profiles.GetProfile(ctx, post.AuthorDID)
	if err != nil {
		s.logger.Warn("profile lookup failed", "author", post.AuthorDID, "error", err)
		return post, nil, nil
	}
	return post, profile, nil
}

// ListRecent returns the latest posts, newest first.
func (s *PostService) ListRecent(ctx context.Context) ([]Post, error) {
	posts, err := s.repo.ListRecent(ctx, defaultRecentLimit)
	if err != nil {
		return nil, fmt.Errorf("list recent posts: %w", err)
	}
	return posts, nil
}

// ListMine returns the caller's posts. The claimed DID is only used as input
// to session verification; the query filters by the PDS-confirmed identity.
func (s *PostService) ListMine(ctx context.Context, claimedDID, accessJwt string) ([]Post, error) {
	if claimedDID == "" || accessJwt == "" {
		return nil, ErrUnauthorized
	}

	session, err := s.verifier.ResumeSession(ctx, claimedDID, accessJwt)
	if err != nil {
		return nil, fmt.Errorf("verify session: %w", err)
	}

	posts, err := s.repo.ListByAuthor(ctx, session.DID)
	if err != nil {
		return nil, fmt.Errorf("list posts by author: %w", err)
	}
	return posts, nil
}

func generateShortURL(length int) (string, error) {
	buf := make([]byte, length)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	for i, b := range buf {
		buf[i] = shortURLAlphabet[int(b)%len(shortURLAlphabet)]
	}
	return string(buf), nil
}
