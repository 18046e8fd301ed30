package service

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/divakaivan/my-reddit-server/internal/model"
	"github.com/divakaivan/my-reddit-server/internal/repository/sqlite"
	"github.com/divakaivan/my-reddit-server/internal/requestctx"
)

var testLog = zerolog.Nop()

func openStore(t *testing.T) *sqlite.Store {
	t.Helper()
	s, err := sqlite.Open(filepath.Join(t.TempDir(), "feed.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func seedUser(t *testing.T, s *sqlite.Store, name string) *model.Author {
	t.Helper()
	a, err := s.CreateUser(context.Background(), name, name+"@example.com", "hash", time.Now())
	require.NoError(t, err)
	return a
}

func seedPost(t *testing.T, s *sqlite.Store, authorID int64, title string, created time.Time) *model.Post {
	t.Helper()
	p, err := s.CreatePost(context.Background(), model.Post{
		Title: title, Body: "body of " + title, AuthorID: authorID,
		CreatedAt: created, UpdatedAt: created,
	})
	require.NoError(t, err)
	return p
}

func postScore(t *testing.T, s *sqlite.Store, postID int64) int64 {
	t.Helper()
	p, err := s.GetPost(context.Background(), postID)
	require.NoError(t, err)
	return p.Score
}

// countingSource records the loader batch calls made against a store.
type countingSource struct {
	inner interface {
		AuthorsByIDs(ctx context.Context, ids []int64) ([]model.Author, error)
		VotesByKeys(ctx context.Context, keys []model.VoteKey) ([]model.Vote, error)
	}

	mu          sync.Mutex
	authorCalls [][]int64
	voteCalls   [][]model.VoteKey
}

func (c *countingSource) AuthorsByIDs(ctx context.Context, ids []int64) ([]model.Author, error) {
	c.mu.Lock()
	c.authorCalls = append(c.authorCalls, append([]int64(nil), ids...))
	c.mu.Unlock()
	return c.inner.AuthorsByIDs(ctx, ids)
}

func (c *countingSource) VotesByKeys(ctx context.Context, keys []model.VoteKey) ([]model.Vote, error) {
	c.mu.Lock()
	c.voteCalls = append(c.voteCalls, append([]model.VoteKey(nil), keys...))
	c.mu.Unlock()
	return c.inner.VotesByKeys(ctx, keys)
}

func viewer(s *sqlite.Store, id int64) *requestctx.Request {
	return requestctx.New(id, s)
}

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}
