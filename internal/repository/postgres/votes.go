package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/divakaivan/my-reddit-server/internal/model"
	"github.com/divakaivan/my-reddit-server/internal/repository"
)

// txStore implements repository.Tx on an open pgx transaction.
type txStore struct {
	tx pgx.Tx
}

func (t *txStore) GetVote(ctx context.Context, viewerID, postID int64) (model.Direction, bool, error) {
	var dir int16
	err := t.tx.QueryRow(ctx, `
		SELECT direction FROM votes WHERE viewer_id = $1 AND post_id = $2`,
		viewerID, postID).Scan(&dir)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, classify(err)
	}
	return model.Direction(dir), true, nil
}

func (t *txStore) InsertVote(ctx context.Context, viewerID, postID int64, dir model.Direction) error {
	_, err := t.tx.Exec(ctx, `
		INSERT INTO votes (viewer_id, post_id, direction) VALUES ($1, $2, $3)`,
		viewerID, postID, int16(dir))
	return classify(err)
}

// FlipVote only updates the entry while it still holds from, so two racing
// flips cannot both apply their score delta.
func (t *txStore) FlipVote(ctx context.Context, viewerID, postID int64, from, to model.Direction) error {
	tag, err := t.tx.Exec(ctx, `
		UPDATE votes SET direction = $1
		WHERE viewer_id = $2 AND post_id = $3 AND direction = $4`,
		int16(to), viewerID, postID, int16(from))
	if err != nil {
		return classify(err)
	}
	if tag.RowsAffected() != 1 {
		return repository.ErrConflict
	}
	return nil
}

func (t *txStore) AddScore(ctx context.Context, postID int64, delta int64) (int64, error) {
	var score int64
	err := t.tx.QueryRow(ctx, `
		UPDATE posts SET score = score + $1 WHERE id = $2 RETURNING score`,
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
	return scanPost(t.tx.QueryRow(ctx, `
		UPDATE posts SET title = $1, body = $2, updated_at = $3
		WHERE id = $4
		RETURNING `+postColumns,
		title, body, micros(updatedAt), postID))
}

func (t *txStore) DeleteVotesForPost(ctx context.Context, postID int64) error {
	_, err := t.tx.Exec(ctx, `DELETE FROM votes WHERE post_id = $1`, postID)
	return classify(err)
}

func (t *txStore) DeletePost(ctx context.Context, postID int64) error {
	tag, err := t.tx.Exec(ctx, `DELETE FROM posts WHERE id = $1`, postID)
	if err != nil {
		return classify(err)
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (t *txStore) LedgerSum(ctx context.Context, postID int64) (int64, error) {
	var sum int64
	err := t.tx.QueryRow(ctx, `
		SELECT COALESCE(SUM(direction), 0) FROM votes WHERE post_id = $1`, postID).Scan(&sum)
	return sum, classify(err)
}

func (t *txStore) SetScore(ctx context.Context, postID int64, score int64) error {
	tag, err := t.tx.Exec(ctx, `UPDATE posts SET score = $1 WHERE id = $2`, score, postID)
	if err != nil {
		return classify(err)
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// VotesByKeys loads the ledger entries for arbitrary (viewer, post) pairs in
// one round trip by joining against the unnested key arrays.
func (s *Store) VotesByKeys(ctx context.Context, keys []model.VoteKey) ([]model.Vote, error) {
	viewers := make([]int64, len(keys))
	posts := make([]int64, len(keys))
	for i, k := range keys {
		viewers[i] = k.ViewerID
		posts[i] = k.PostID
	}

	rows, err := s.pool.Query(ctx, `
		SELECT v.viewer_id, v.post_id, v.direction
		FROM votes v
		JOIN unnest($1::bigint[], $2::bigint[]) AS k (viewer_id, post_id)
		  ON v.viewer_id = k.viewer_id AND v.post_id = k.post_id`,
		viewers, posts)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	votes := make([]model.Vote, 0, len(keys))
	for rows.Next() {
		var v model.Vote
		var dir int16
		if err := rows.Scan(&v.ViewerID, &v.PostID, &dir); err != nil {
			return nil, err
		}
		v.Direction = model.Direction(dir)
		votes = append(votes, v)
	}
	return votes, rows.Err()
}

var _ repository.Tx = (*txStore)(nil)
