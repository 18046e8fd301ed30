package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/divakaivan/my-reddit-server/internal/apperr"
	"github.com/divakaivan/my-reddit-server/internal/model"
	"github.com/divakaivan/my-reddit-server/internal/repository"
	"github.com/divakaivan/my-reddit-server/internal/requestctx"
)

// PostStore is the storage surface for post lifecycle operations.
type PostStore interface {
	repository.TxRunner
	GetPost(ctx context.Context, postID int64) (*model.Post, error)
	CreatePost(ctx context.Context, post model.Post) (*model.Post, error)
}

// PostService creates, reads, edits and deletes posts.
type PostService struct {
	store PostStore
	now   func() time.Time
	log   zerolog.Logger
}

func NewPostService(store PostStore, now func() time.Time, log zerolog.Logger) *PostService {
	if now == nil {
		now = time.Now
	}
	return &PostService{store: store, now: now, log: log.With().Str("component", "post").Logger()}
}

// Create publishes a post owned by the viewer. New posts start with score 0.
func (s *PostService) Create(ctx context.Context, req *requestctx.Request, title, body string) (*model.PostView, error) {
	viewerID, ok := req.Viewer()
	if !ok {
		return nil, apperr.ErrUnauthenticated
	}
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, apperr.New(apperr.CodeInvalidArgument, "title is required")
	}

	now := s.now().UTC()
	p, err := s.store.CreatePost(ctx, model.Post{
		Title:     title,
		Body:      body,
		AuthorID:  viewerID,
		CreatedAt: now,
		UpdatedAt: now,
	})
	if err != nil {
		return nil, storeError("create post", err)
	}
	s.log.Info().Int64("post_id", p.ID).Int64("author_id", viewerID).Msg("post created")
	return s.present(ctx, req, p)
}

// Get returns one post as seen by the viewer.
func (s *PostService) Get(ctx context.Context, req *requestctx.Request, postID int64) (*model.PostView, error) {
	p, err := s.store.GetPost(ctx, postID)
	if err != nil {
		return nil, storeError("get post", err)
	}
	return s.present(ctx, req, p)
}

// Update replaces the title and body of a post the viewer owns.
func (s *PostService) Update(ctx context.Context, req *requestctx.Request, postID int64, title, body string) (*model.PostView, error) {
	viewerID, ok := req.Viewer()
	if !ok {
		return nil, apperr.ErrUnauthenticated
	}
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, apperr.New(apperr.CodeInvalidArgument, "title is required")
	}

	var updated *model.Post
	err := s.store.InTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		p, err := tx.GetPost(ctx, postID)
		if err != nil {
			return err
		}
		if p.AuthorID != viewerID {
			return apperr.ErrForbidden
		}
		updated, err = tx.UpdatePost(ctx, postID, title, body, s.now().UTC())
		return err
	})
	if err != nil {
		return nil, storeError("update post", err)
	}
	return s.present(ctx, req, updated)
}

// Delete removes a post the viewer owns together with its ledger entries.
func (s *PostService) Delete(ctx context.Context, req *requestctx.Request, postID int64) error {
	viewerID, ok := req.Viewer()
	if !ok {
		return apperr.ErrUnauthenticated
	}

	err := s.store.InTx(context.WithoutCancel(ctx), func(ctx context.Context, tx repository.Tx) error {
		p, err := tx.GetPost(ctx, postID)
		if err != nil {
			return err
		}
		if p.AuthorID != viewerID {
			return apperr.ErrForbidden
		}
		if err := tx.DeleteVotesForPost(ctx, postID); err != nil {
			return err
		}
		return tx.DeletePost(ctx, postID)
	})
	if err != nil {
		return storeError("delete post", err)
	}
	s.log.Info().Int64("post_id", postID).Int64("author_id", viewerID).Msg("post deleted")
	return nil
}

func (s *PostService) present(ctx context.Context, req *requestctx.Request, p *model.Post) (*model.PostView, error) {
	views, err := Present(ctx, req, []model.Post{*p})
	if err != nil {
		return nil, err
	}
	return &views[0], nil
}

// storeError maps repository sentinels onto domain codes. Domain errors pass through.
func storeError(op string, err error) error {
	var domain *apperr.Error
	switch {
	case errors.As(err, &domain):
		return err
	case errors.Is(err, repository.ErrNotFound):
		return apperr.Wrap(apperr.CodeNotFound, "post not found", err)
	case errors.Is(err, repository.ErrConflict):
		return apperr.Wrap(apperr.CodeTransientFailure, op+": concurrent update, try again", err)
	case errors.Is(err, repository.ErrDuplicate):
		return apperr.Wrap(apperr.CodeConflict, op, err)
	default:
		return apperr.Wrap(apperr.CodeInternal, op, err)
	}
}
