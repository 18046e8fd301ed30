package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/divakaivan/my-reddit-server/internal/model"
	"github.com/divakaivan/my-reddit-server/internal/repository"
)

// txStore implements repository.Tx on an open database/sql transaction.
type txStore struct {
	tx *sql.Tx
}

func (t *txStore) GetVote(ctx context.Context, viewerID, postID int64) (model.Direction, bool, error) {
	var dir int64
	err := t.tx.QueryRowContext(ctx, `
		SELECT direction FROM votes WHERE viewer_id = ? AND post_id = ?`,
		viewerID, postID).Scan(&dir)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, classify(err)
	}
	return model.Direction(dir), true, nil
}

func (t *txStore) InsertVote(ctx context.Context, viewerID, postID int64, dir model.Direction) error {
	_, err := t.tx.ExecContext(ctx, `
		INSERT INTO votes (viewer_id, post_id, direction) VALUES (?, ?, ?)`,
		viewerID, postID, int64(dir))
	return classify(err)
}

func (t *txStore) FlipVote(ctx context.Context, viewerID, postID int64, from, to model.Direction) error {
	res, err := t.tx.ExecContext(ctx, `
		UPDATE votes SET direction = ?
		WHERE viewer_id = ? AND post_id = ? AND direction = ?`,
		int64(to), viewerID, postID, int64(from))
	if err != nil {
		return classify(err)
	}
	if n, err := res.RowsAffected(); err != nil || n != 1 {
		return repository.ErrConflict
	}
	return nil
}

func (t *txStore) AddScore(ctx context.Context, postID int64, delta int64) (int64, error) {
	var score int64
	err := t.tx.QueryRowContext(ctx, `
		UPDATE posts SET score = score + ? WHERE id = ? RETURNING score`,
		delta, postID).Scan(&score)
	if err != nil {
		return 0, classify(err)
	}
	return score, nil
}

func (t *txStore) GetPost(ctx context.Context, postID int64) (*model.Post, error) {
	return getPost(ctx, t.tx, postID)
}

func (t *txStore) UpdatePost(ctx context.Context, postID int64, title, body string, updatedAt time.Time) (*model.Post, error) {
	return scanPost(t.tx.QueryRowContext(ctx, `
		UPDATE posts SET title = ?, body = ?, updated_at = ?
		WHERE id = ?
		RETURNING `+postColumns,
		title, body, toMicros(updatedAt), postID))
}

func (t *txStore) DeleteVotesForPost(ctx context.Context, postID int64) error {
	_, err := t.tx.ExecContext(ctx, `DELETE FROM votes WHERE post_id = ?`, postID)
	return classify(err)
}

func (t *txStore) DeletePost(ctx context.Context, postID int64) error {
	res, err := t.tx.ExecContext(ctx, `DELETE FROM posts WHERE id = ?`, postID)
	if err != nil {
		return classify(err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (t *txStore) LedgerSum(ctx context.Context, postID int64) (int64, error) {
	var sum int64
	err := t.tx.QueryRowContext(ctx, `
		SELECT COALESCE(SUM(direction), 0) FROM votes WHERE post_id = ?`, postID).Scan(&sum)
	return sum, classify(err)
}

func (t *txStore) SetScore(ctx context.Context, postID int64, score int64) error {
	res, err := t.tx.ExecContext(ctx, `UPDATE posts SET score = ? WHERE id = ?`, score, postID)
	if err != nil {
		return classify(err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// VotesByKeys loads the ledger entries for arbitrary (viewer, post) pairs in
// one query using a row-value IN list.
func (s *Store) VotesByKeys(ctx context.Context, keys []model.VoteKey) ([]model.Vote, error) {
	if len(keys) == 0 {
		return nil, nil
	}
	args := make([]any, 0, 2*len(keys))
	for _, k := range keys {
		args = append(args, k.ViewerID, k.PostID)
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT viewer_id, post_id, direction
		FROM votes
		WHERE (viewer_id, post_id) IN (VALUES `+placeholders(len(keys), "(?, ?)")+`)`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	votes := make([]model.Vote, 0, len(keys))
	for rows.Next() {
		var v model.Vote
		var dir int64
		if err := rows.Scan(&v.ViewerID, &v.PostID, &dir); err != nil {
			return nil, err
		}
		v.Direction = model.Direction(dir)
		votes = append(votes, v)
	}
	return votes, rows.Err()
}

var _ repository.Tx = (*txStore)(nil)
