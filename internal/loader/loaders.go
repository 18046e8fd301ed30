package loader

import (
	"context"
	"errors"

	"github.com/divakaivan/my-reddit-server/internal/metrics"
	"github.com/divakaivan/my-reddit-server/internal/model"
)

// Source is the batch-capable store surface the loaders read from.
type Source interface {
	AuthorsByIDs(ctx context.Context, ids []int64) ([]model.Author, error)
	VotesByKeys(ctx context.Context, keys []model.VoteKey) ([]model.Vote, error)
}

// Loaders bundles the per-response loaders. Create one per request.
type Loaders struct {
	Authors *Loader[int64, model.Author]
	Votes   *Loader[model.VoteKey, model.Direction]
}

// NewLoaders creates a fresh, empty set of loaders over src.
func NewLoaders(src Source) *Loaders {
	return &Loaders{
		Authors: New(AuthorBatch(src), func(n int) { metrics.ObserveLoaderBatch("author", n) }),
		Votes:   New(VoteBatch(src), func(n int) { metrics.ObserveLoaderBatch("vote", n) }),
	}
}

// Flush flushes every loader kind once.
func (l *Loaders) Flush(ctx context.Context) error {
	return errors.Join(l.Authors.Flush(ctx), l.Votes.Flush(ctx))
}

// AuthorBatch resolves author ids with one AuthorsByIDs call.
func AuthorBatch(src Source) BatchFunc[int64, model.Author] {
	return func(ctx context.Context, ids []int64) (map[int64]model.Author, error) {
		authors, err := src.AuthorsByIDs(ctx, ids)
		if err != nil {
			return nil, err
		}
		byID := make(map[int64]model.Author, len(authors))
		for _, a := range authors {
			byID[a.ID] = a
		}
		return byID, nil
	}
}

// VoteBatch resolves (viewer, post) pairs with one VotesByKeys call.
func VoteBatch(src Source) BatchFunc[model.VoteKey, model.Direction] {
	return func(ctx context.Context, keys []model.VoteKey) (map[model.VoteKey]model.Direction, error) {
		votes, err := src.VotesByKeys(ctx, keys)
		if err != nil {
			return nil, err
		}
		byKey := make(map[model.VoteKey]model.Direction, len(votes))
		for _, v := range votes {
			byKey[model.VoteKey{ViewerID: v.ViewerID, PostID: v.PostID}] = v.Direction
		}
		return byKey, nil
	}
}
