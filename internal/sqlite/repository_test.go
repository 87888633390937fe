package sqlite

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blackmichael/bluesky-longpost/internal/domain"
)

func newTestRepo(t *testing.T) *Repository {
	t.Helper()
	repo, err := NewRepository(context.Background(), ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close() })
	return repo
}

func seedPost(t *testing.T, repo *Repository, shortURL, authorDID string, createdAt time.Time) *domain.Post {
	t.Helper()
	post := &domain.Post{
		Content:   strings.Repeat("a", 300),
		ShortURL:  shortURL,
		AuthorDID: authorDID,
		CreatedAt: createdAt,
	}
	require.NoError(t, repo.CreatePost(context.Background(), post))
	return post
}

func TestCreateAndGetPost(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	created := seedPost(t, repo, "abcd1234", "did:plc:alice", time.Time{})
	assert.NotZero(t, created.ID)
	assert.False(t, created.CreatedAt.IsZero())

	got, err := repo.GetByShortURL(ctx, "abcd1234")
	require.NoError(t, err)
	assert.Equal(t, created.ID, got.ID)
	assert.Equal(t, created.Content, got.Content)
	assert.Equal(t, "did:plc:alice", got.AuthorDID)
	assert.WithinDuration(t, created.CreatedAt, got.CreatedAt, time.Millisecond)
}

func TestCreatePostShortURLCollision(t *testing.T) {
	repo := newTestRepo(t)

	seedPost(t, repo, "abcd1234", "did:plc:alice", time.Time{})

	err := repo.CreatePost(context.Background(), &domain.Post{
		Content:   "other",
		ShortURL:  "abcd1234",
		AuthorDID: "did:plc:bob",
	})
	assert.ErrorIs(t, err, domain.ErrShortURLTaken)
}

func TestGetByShortURLNotFound(t *testing.T) {
	repo := newTestRepo(t)

	_, err := repo.GetByShortURL(context.Background(), "missing1")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestListRecentOrdering(t *testing.T) {
	repo := newTestRepo(t)
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	seedPost(t, repo, "oldest01", "did:plc:alice", base)
	seedPost(t, repo, "middle01", "did:plc:alice", base.Add(time.Hour))
	seedPost(t, repo, "newest01", "did:plc:bob", base.Add(2*time.Hour))

	posts, err := repo.ListRecent(context.Background(), 2)
	require.NoError(t, err)
	require.Len(t, posts, 2)
	assert.Equal(t, "newest01", posts[0].ShortURL)
	assert.Equal(t, "middle01", posts[1].ShortURL)
}

func TestListByAuthor(t *testing.T) {
	repo := newTestRepo(t)
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	seedPost(t, repo, "alice001", "did:plc:alice", base)
	seedPost(t, repo, "alice002", "did:plc:alice", base.Add(time.Hour))
	seedPost(t, repo, "bob00001", "did:plc:bob", base.Add(2*time.Hour))

	posts, err := repo.ListByAuthor(context.Background(), "did:plc:alice")
	require.NoError(t, err)
	require.Len(t, posts, 2)
	assert.Equal(t, "alice002", posts[0].ShortURL)
	assert.Equal(t, "alice001", posts[1].ShortURL)
}

func TestUpdateContent(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	seedPost(t, repo, "abcd1234", "did:plc:alice", time.Time{})
	require.NoError(t, repo.UpdateContent(ctx, "abcd1234", "updated content"))

	got, err := repo.GetByShortURL(ctx, "abcd1234")
	require.NoError(t, err)
	assert.Equal(t, "updated content", got.Content)
}

func TestDeleteByShortURL(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	seedPost(t, repo, "abcd1234", "did:plc:alice", time.Time{})
	require.NoError(t, repo.DeleteByShortURL(ctx, "abcd1234"))

	_, err := repo.GetByShortURL(ctx, "abcd1234")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
