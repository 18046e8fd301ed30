// Package repository defines the storage contract shared by the Postgres and
// SQLite backends.
package repository

import (
	"context"
	"errors"
	"time"

	"github.com/divakaivan/my-reddit-server/internal/cursor"
	"github.com/divakaivan/my-reddit-server/internal/model"
)

var (
	// ErrNotFound is returned when a referenced post or user does not exist.
	ErrNotFound = errors.New("record not found")
	// ErrConflict is returned when a transaction lost a race with a concurrent
	// write (serialization failure, deadlock, duplicate ledger key, stale flip).
	ErrConflict = errors.New("concurrent write conflict")
	// ErrDuplicate is returned when a unique username or email is taken.
	ErrDuplicate = errors.New("duplicate record")
)

// Tx is a handle to one open store transaction.
type Tx interface {
	// GetVote reads the ledger entry for (viewerID, postID).
	GetVote(ctx context.Context, viewerID, postID int64) (model.Direction, bool, error)
	// InsertVote creates a ledger entry. A duplicate key yields ErrConflict and
	// a missing post yields ErrNotFound.
	InsertVote(ctx context.Context, viewerID, postID int64, dir model.Direction) error
	// FlipVote changes an entry from one direction to the other. It yields
	// ErrConflict when the entry no longer holds the from direction.
	FlipVote(ctx context.Context, viewerID, postID int64, from, to model.Direction) error
	// AddScore adds delta to the post's score and returns the new score.
	AddScore(ctx context.Context, postID int64, delta int64) (int64, error)

	GetPost(ctx context.Context, postID int64) (*model.Post, error)
	UpdatePost(ctx context.Context, postID int64, title, body string, updatedAt time.Time) (*model.Post, error)
	DeleteVotesForPost(ctx context.Context, postID int64) error
	DeletePost(ctx context.Context, postID int64) error

	// LedgerSum returns the signed sum of the post's ledger entries.
	LedgerSum(ctx context.Context, postID int64) (int64, error)
	SetScore(ctx context.Context, postID int64, score int64) error
}

// TxRunner executes fn inside one atomic transaction: fn's writes are committed
// together when it returns nil and rolled back otherwise.
type TxRunner interface {
	InTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error
}

// Store is the full storage contract.
type Store interface {
	TxRunner

	// ListFeed returns up to limit posts ordered by (created_at, id) descending,
	// strictly before the given position when one is supplied.
	ListFeed(ctx context.Context, before *cursor.Cursor, limit int) ([]model.Post, error)
	GetPost(ctx context.Context, postID int64) (*model.Post, error)
	CreatePost(ctx context.Context, post model.Post) (*model.Post, error)

	// AuthorsByIDs and VotesByKeys serve the batched loaders. Result order is
	// unspecified and missing keys are simply absent.
	AuthorsByIDs(ctx context.Context, ids []int64) ([]model.Author, error)
	VotesByKeys(ctx context.Context, keys []model.VoteKey) ([]model.Vote, error)

	CreateUser(ctx context.Context, username, email, passwordHash string, now time.Time) (*model.Author, error)
	CredentialByLogin(ctx context.Context, login string) (*model.Credential, error)

	ScoreDrift(ctx context.Context) ([]model.ScoreDrift, error)

	Ping(ctx context.Context) error
	Close() error
}
