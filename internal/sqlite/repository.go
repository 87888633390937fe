// Package sqlite implements domain.PostRepository on SQLite so the service
// runs locally with zero infrastructure.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/blackmichael/bluesky-longpost/internal/domain"
)

// Repository implements domain.PostRepository using SQLite.
type Repository struct {
	db *sql.DB
}

// NewRepository opens (or creates) the SQLite database at path and creates
// the posts table if it does not exist. Use ":memory:" for an ephemeral
// store. The caller should call Close when the repository is no longer
// needed.
func NewRepository(ctx context.Context, path string) (*Repository, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// A single connection sidesteps SQLITE_BUSY under concurrent writes.
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := createTable(ctx, db); err != nil {
		db.Close()
		return nil, fmt.Errorf("create tables: %w", err)
	}

	return &Repository{db: db}, nil
}

// Close closes the underlying database connection.
func (r *Repository) Close() error {
	return r.db.Close()
}

func createTable(ctx context.Context, db *sql.DB) error {
	// created_at holds unix milliseconds; SQLite has no native timestamp type.
	_, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS posts (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			content TEXT NOT NULL,
			short_url TEXT UNIQUE NOT NULL,
			author_did TEXT NOT NULL,
			created_at INTEGER NOT NULL
		)`)
	return err
}

// CreatePost inserts a new post and fills in the assigned ID.
func (r *Repository) CreatePost(ctx context.Context, post *domain.Post) error {
	if post.CreatedAt.IsZero() {
		post.CreatedAt = time.Now().UTC()
	}

	res, err := r.db.ExecContext(ctx, `
		INSERT INTO posts (content, short_url, author_did, created_at)
		VALUES (?, ?, ?, ?)`,
		post.Content,
		post.ShortURL,
		post.AuthorDID,
		post.CreatedAt.UnixMilli(),
	)
	if err != nil {
		var serr *sqlite.Error
		if errors.As(err, &serr) && serr.Code()&0xff == sqlite3.SQLITE_CONSTRAINT {
			return domain.ErrShortURLTaken
		}
		return fmt.Errorf("insert post: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("last insert id: %w", err)
	}
	post.ID = id
	return nil
}

// ListRecent retrieves the most recent posts, newest first.
func (r *Repository) ListRecent(ctx context.Context, limit int) ([]domain.Post, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, content, short_url, author_did, created_at
		FROM posts
		ORDER BY created_at DESC, id DESC
		LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query recent posts: %w", err)
	}
	defer rows.Close()

	return scanPosts(rows)
}

// GetByShortURL retrieves a post by its short URL.
func (r *Repository) GetByShortURL(ctx context.Context, shortURL string) (*domain.Post, error) {
	var (
		p      domain.Post
		millis int64
	)
	err := r.db.QueryRowContext(ctx, `
		SELECT id, content, short_url, author_did, created_at
		FROM posts
		WHERE short_url = ?`,
		shortURL,
	).Scan(&p.ID, &p.Content, &p.ShortURL, &p.AuthorDID, &millis)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query post: %w", err)
	}
	p.CreatedAt = time.UnixMilli(millis).UTC()
	return &p, nil
}

// ListByAuthor retrieves all posts by the given author, newest first.
func (r *Repository) ListByAuthor(ctx context.Context, authorDID string) ([]domain.Post, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, content, short_url, author_did, created_at
		FROM posts
		WHERE author_did = ?
		ORDER BY created_at DESC, id DESC`,
		authorDID,
	)
	if err != nil {
		return nil, fmt.Errorf("query posts by author: %w", err)
	}
	defer rows.Close()

	return scanPosts(rows)
}

// UpdateContent replaces the content of the post with the given short URL.
func (r *Repository) UpdateContent(ctx context.Context, shortURL, content string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE posts SET content = ? WHERE short_url = ?`,
		content, shortURL,
	)
	if err != nil {
		return fmt.Errorf("update post: %w", err)
	}
	return nil
}

// DeleteByShortURL removes the post with the given short URL.
func (r *Repository) DeleteByShortURL(ctx context.Context, shortURL string) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM posts WHERE short_url = ?`,
		shortURL,
	)
	if err != nil {
		return fmt.Errorf("delete post: %w", err)
	}
	return nil
}

func scanPosts(rows *sql.Rows) ([]domain.Post, error) {
	var posts []domain.Post
	for rows.Next() {
		var (
			p      domain.Post
			millis int64
		)
		if err := rows.Scan(&p.ID, &p.Content, &p.ShortURL, &p.AuthorDID, &millis); err != nil {
			return nil, fmt.Errorf("scan post: %w", err)
		}
		p.CreatedAt = time.UnixMilli(millis).UTC()
		posts = append(posts, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate posts: %w", err)
	}
	return posts, nil
}
