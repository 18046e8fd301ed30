package service

import (
	"context"

	"github.com/divakaivan/my-reddit-server/internal/apperr"
	"github.com/divakaivan/my-reddit-server/internal/cursor"
	"github.com/divakaivan/my-reddit-server/internal/metrics"
	"github.com/divakaivan/my-reddit-server/internal/model"
)

const (
	DefaultPageSize = 10
	MaxPageSize     = 50
)

// FeedStore is the read surface the feed needs.
type FeedStore interface {
	ListFeed(ctx context.Context, before *cursor.Cursor, limit int) ([]model.Post, error)
}

// FeedService serves the reverse-chronological feed.
type FeedService struct {
	store FeedStore
}

func NewFeedService(store FeedStore) *FeedService {
	return &FeedService{store: store}
}

// ClampPageSize caps n at MaxPageSize; non-positive values get DefaultPageSize.
func ClampPageSize(n int) int {
	switch {
	case n <= 0:
		return DefaultPageSize
	case n > MaxPageSize:
		return MaxPageSize
	default:
		return n
	}
}

// List returns up to pageSize posts, newest first, starting strictly after the
// position encoded in token (empty token = first page).
func (s *FeedService) List(ctx context.Context, pageSize int, token string) (*model.FeedPage, error) {
	limit := ClampPageSize(pageSize)

	var before *cursor.Cursor
	if token != "" {
		c, err := cursor.Decode(token)
		if err != nil {
			return nil, apperr.Wrap(apperr.CodeInvalidArgument, "invalid cursor", err)
		}
		before = &c
	}

	// One extra row tells us whether another page exists.
	posts, err := s.store.ListFeed(ctx, before, limit+1)
	if err != nil {
		return nil, apperr.Wrap(apperr.CodeInternal, "list feed", err)
	}

	page := &model.FeedPage{Items: posts}
	if len(posts) > limit {
		page.Items = posts[:limit]
		page.HasMore = true
		last := page.Items[limit-1]
		page.NextCursor = cursor.Encode(cursor.After(last.CreatedAt, last.ID))
	}
	if page.Items == nil {
		page.Items = []model.Post{}
	}
	metrics.ObserveFeedPage()
	return page, nil
}
