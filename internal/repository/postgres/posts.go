package postgres

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/divakaivan/my-reddit-server/internal/cursor"
	"github.com/divakaivan/my-reddit-server/internal/model"
)

const postColumns = `id, title, body, score, author_id, created_at, updated_at`

func scanPost(row pgx.Row) (*model.Post, error) {
	var p model.Post
	err := row.Scan(&p.ID, &p.Title, &p.Body, &p.Score, &p.AuthorID, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, classify(err)
	}
	return &p, nil
}

// ListFeed pages posts newest first, (created_at, id) descending.
func (s *Store) ListFeed(ctx context.Context, before *cursor.Cursor, limit int) ([]model.Post, error) {
	var (
		rows pgx.Rows
		err  error
	)
	if before == nil {
		rows, err = s.pool.Query(ctx, `
			SELECT `+postColumns+`
			FROM posts
			ORDER BY created_at DESC, id DESC
			LIMIT $1`, limit)
	} else {
		rows, err = s.pool.Query(ctx, `
			SELECT `+postColumns+`
			FROM posts
			WHERE (created_at, id) < ($1, $2)
			ORDER BY created_at DESC, id DESC
			LIMIT $3`, before.Time(), before.ID, limit)
	}
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	posts := make([]model.Post, 0, limit)
	for rows.Next() {
		p, err := scanPost(rows)
		if err != nil {
			return nil, err
		}
		posts = append(posts, *p)
	}
	return posts, rows.Err()
}

func (s *Store) GetPost(ctx context.Context, postID int64) (*model.Post, error) {
	return getPost(ctx, s.pool, postID)
}

func getPost(ctx context.Context, q querier, postID int64) (*model.Post, error) {
	return scanPost(q.QueryRow(ctx, `SELECT `+postColumns+` FROM posts WHERE id = $1`, postID))
}

// CreatePost inserts a post with score 0.
func (s *Store) CreatePost(ctx context.Context, post model.Post) (*model.Post, error) {
	return scanPost(s.pool.QueryRow(ctx, `
		INSERT INTO posts (title, body, score, author_id, created_at, updated_at)
		VALUES ($1, $2, 0, $3, $4, $5)
		RETURNING `+postColumns,
		post.Title, post.Body, post.AuthorID, micros(post.CreatedAt), micros(post.UpdatedAt)))
}

// AuthorsByIDs loads every user whose id is in ids in one query.
func (s *Store) AuthorsByIDs(ctx context.Context, ids []int64) ([]model.Author, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, username, email, created_at, updated_at
		FROM users
		WHERE id = ANY($1)`, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	authors := make([]model.Author, 0, len(ids))
	for rows.Next() {
		var a model.Author
		if err := rows.Scan(&a.ID, &a.Username, &a.Email, &a.CreatedAt, &a.UpdatedAt); err != nil {
			return nil, err
		}
		authors = append(authors, a)
	}
	return authors, rows.Err()
}

// ScoreDrift lists posts whose score differs from their ledger sum.
func (s *Store) ScoreDrift(ctx context.Context) ([]model.ScoreDrift, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT p.id, p.score, COALESCE(SUM(v.direction), 0) AS ledger_sum
		FROM posts p
		LEFT JOIN votes v ON v.post_id = p.id
		GROUP BY p.id, p.score
		HAVING p.score <> COALESCE(SUM(v.direction), 0)
		ORDER BY p.id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var drifts []model.ScoreDrift
	for rows.Next() {
		var d model.ScoreDrift
		if err := rows.Scan(&d.PostID, &d.Score, &d.LedgerSum); err != nil {
			return nil, err
		}
		drifts = append(drifts, d)
	}
	return drifts, rows.Err()
}
