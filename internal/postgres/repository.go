// Package postgres implements domain.PostRepository on PostgreSQL via the
// pgx stdlib driver. This is the store for hosted deployments.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/blackmichael/bluesky-longpost/internal/domain"
)

const (
	maxOpenConnections = 5
	maxIdleConnections = 2
	connMaxIdleTime    = 2 * time.Minute
	connMaxLifetime    = 30 * time.Minute
	pingTimeout        = 5 * time.Second
)

const pgErrCodeUniqueViolation = "23505"

// Repository implements domain.PostRepository using PostgreSQL.
type Repository struct {
	db *sql.DB
}

// NewRepository connects to PostgreSQL at the given URL, verifies the
// connection, and creates the posts table if it does not exist. The caller
// should call Close when the repository is no longer needed.
func NewRepository(ctx context.Context, databaseURL string) (*Repository, error) {
	db, err := sql.Open("pgx", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	db.SetMaxOpenConns(maxOpenConnections)
	db.SetMaxIdleConns(maxIdleConnections)
	db.SetConnMaxIdleTime(connMaxIdleTime)
	db.SetConnMaxLifetime(connMaxLifetime)

	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
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
	_, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS posts (
			id SERIAL PRIMARY KEY,
			content TEXT NOT NULL,
			short_url VARCHAR(255) UNIQUE NOT NULL,
			author_did VARCHAR(255) NOT NULL,
			created_at TIMESTAMP WITH TIME ZONE DEFAULT CURRENT_TIMESTAMP
		)`)
	return err
}

// CreatePost inserts a new post and fills in the assigned ID.
func (r *Repository) CreatePost(ctx context.Context, post *domain.Post) error {
	if post.CreatedAt.IsZero() {
		post.CreatedAt = time.Now().UTC()
	}

	err := r.db.QueryRowContext(ctx, `
		INSERT INTO posts (content, short_url, author_did, created_at)
		VALUES ($1, $2, $3, $4)
		RETURNING id`,
		post.Content,
		post.ShortURL,
		post.AuthorDID,
		post.CreatedAt,
	).Scan(&post.ID)

	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgErrCodeUniqueViolation {
			return domain.ErrShortURLTaken
		}
		return fmt.Errorf("insert post: %w", err)
	}
	return nil
}

// ListRecent retrieves the most recent posts, newest first.
func (r *Repository) ListRecent(ctx context.Context, limit int) ([]domain.Post, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, content, short_url, author_did, created_at
		FROM posts
		ORDER BY created_at DESC
		LIMIT $1`,
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
	var p domain.Post
	err := r.db.QueryRowContext(ctx, `
		SELECT id, content, short_url, author_did, created_at
		FROM posts
		WHERE short_url = $1`,
		shortURL,
	).Scan(&p.ID, &p.Content, &p.ShortURL, &p.AuthorDID, &p.CreatedAt)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query post: %w", err)
	}
	return &p, nil
}

// ListByAuthor retrieves all posts by the given author, newest first.
func (r *Repository) ListByAuthor(ctx context.Context, authorDID string) ([]domain.Post, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, content, short_url, author_did, created_at
		FROM posts
		WHERE author_did = $1
		ORDER BY created_at DESC`,
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
		`UPDATE posts SET content = $1 WHERE short_url = $2`,
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
		`DELETE FROM posts WHERE short_url = $1`,
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
		var p domain.Post
		if err := rows.Scan(&p.ID, &p.Content, &p.ShortURL, &p.AuthorDID, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan post: %w", err)
		}
		posts = append(posts, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate posts: %w", err)
	}
	return posts, nil
}
