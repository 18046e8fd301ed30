package service

import (
	"context"

	"github.com/divakaivan/my-reddit-server/internal/apperr"
	"github.com/divakaivan/my-reddit-server/internal/loader"
	"github.com/divakaivan/my-reddit-server/internal/model"
	"github.com/divakaivan/my-reddit-server/internal/requestctx"
)

type pendingView struct {
	author *loader.Thunk[int64, model.Author]
	vote   *loader.Thunk[model.VoteKey, model.Direction]
}

// Present enriches posts with their author and the viewer's vote status.
// All lookups are queued first and resolved by a single flush, so a page costs
// at most one author query and one vote query regardless of its length.
func Present(ctx context.Context, req *requestctx.Request, posts []model.Post) ([]model.PostView, error) {
	viewerID, signedIn := req.Viewer()

	pending := make([]pendingView, len(posts))
	for i, p := range posts {
		pending[i].author = req.Loaders.Authors.Load(p.AuthorID)
		if signedIn {
			pending[i].vote = req.Loaders.Votes.Load(model.VoteKey{ViewerID: viewerID, PostID: p.ID})
		}
	}

	if err := req.Loaders.Flush(ctx); err != nil {
		return nil, apperr.Wrap(apperr.CodeInternal, "load post associations", err)
	}

	views := make([]model.PostView, len(posts))
	for i, p := range posts {
		v := model.PostView{
			ID:          p.ID,
			Title:       p.Title,
			Text:        p.Body,
			TextSnippet: p.TextSnippet(),
			Points:      p.Score,
			CreatorID:   p.AuthorID,
			CreatedAt:   p.CreatedAt,
			UpdatedAt:   p.UpdatedAt,
		}

		author, found, err := pending[i].author.Get()
		if err != nil {
			return nil, apperr.Wrap(apperr.CodeInternal, "resolve author", err)
		}
		if found {
			// Email is only visible to its owner.
			if author.ID != viewerID {
				author.Email = ""
			}
			v.Creator = &author
		}

		if pending[i].vote != nil {
			dir, found, err := pending[i].vote.Get()
			if err != nil {
				return nil, apperr.Wrap(apperr.CodeInternal, "resolve vote status", err)
			}
			if found {
				v.VoteStatus = &dir
			}
		}
		views[i] = v
	}
	return views, nil
}

// PresentPage presents a feed page as the API response.
func PresentPage(ctx context.Context, req *requestctx.Request, page *model.FeedPage) (*model.PaginatedPosts, error) {
	views, err := Present(ctx, req, page.Items)
	if err != nil {
		return nil, err
	}
	return &model.PaginatedPosts{Posts: views, HasMore: page.HasMore, NextCursor: page.NextCursor}, nil
}
