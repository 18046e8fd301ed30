// Package seed loads the demo data set: one author and a fixed list of posts.
package seed

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/divakaivan/my-reddit-server/internal/model"
	"github.com/divakaivan/my-reddit-server/internal/repository"
	"github.com/divakaivan/my-reddit-server/pkg/hash"
)

//go:embed posts.json
var postsJSON []byte

// Post is one demo post.
type Post struct {
	Title     string    `json:"title"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"createdAt"`
}

// Posts returns the demo posts in file order.
func Posts() ([]Post, error) {
	var posts []Post
	if err := json.Unmarshal(postsJSON, &posts); err != nil {
		return nil, fmt.Errorf("decode seed posts: %w", err)
	}
	return posts, nil
}

// Store is the storage surface the seeder writes through.
type Store interface {
	CreateUser(ctx context.Context, username, email, passwordHash string, now time.Time) (*model.Author, error)
	CredentialByLogin(ctx context.Context, login string) (*model.Credential, error)
	CreatePost(ctx context.Context, post model.Post) (*model.Post, error)
}

type Options struct {
	Username string
	Email    string
	Password string
	// Limit caps the number of posts; zero means all.
	Limit int
}

type Result struct {
	AuthorID int64
	Posts    int
	// Skipped is set when the seed author already existed.
	Skipped bool
}

// Run creates the seed author and their posts. It does nothing when the
// author already exists, so running it twice does not duplicate posts.
func Run(ctx context.Context, store Store, opts Options, log zerolog.Logger) (*Result, error) {
	if existing, err := store.CredentialByLogin(ctx, opts.Username); err == nil {
		log.Info().Int64("author_id", existing.ID).Msg("seed author exists, skipping")
		return &Result{AuthorID: existing.ID, Skipped: true}, nil
	} else if !errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("look up seed author: %w", err)
	}

	posts, err := Posts()
	if err != nil {
		return nil, err
	}
	if opts.Limit > 0 && opts.Limit < len(posts) {
		posts = posts[:opts.Limit]
	}

	pwHash, err := hash.HashPassword(opts.Password)
	if err != nil {
		return nil, err
	}
	author, err := store.CreateUser(ctx, opts.Username, opts.Email, pwHash, time.Now().UTC())
	if err != nil {
		return nil, fmt.Errorf("create seed author: %w", err)
	}

	for i, p := range posts {
		_, err := store.CreatePost(ctx, model.Post{
			Title:     p.Title,
			Body:      p.Text,
			AuthorID:  author.ID,
			CreatedAt: p.CreatedAt,
			UpdatedAt: p.CreatedAt,
		})
		if err != nil {
			return nil, fmt.Errorf("create seed post %d: %w", i, err)
		}
	}
	log.Info().Int64("author_id", author.ID).Int("posts", len(posts)).Msg("seed complete")
	return &Result{AuthorID: author.ID, Posts: len(posts)}, nil
}
