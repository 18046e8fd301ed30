package sqlite

import (
	"context"
	"strings"

	"github.com/divakaivan/my-reddit-server/internal/cursor"
	"github.com/divakaivan/my-reddit-server/internal/model"
)

const postColumns = `id, title, body, score, author_id, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPost(row rowScanner) (*model.Post, error) {
	var p model.Post
	var created, updated int64
	if err := row.Scan(&p.ID, &p.Title, &p.Body, &p.Score, &p.AuthorID, &created, &updated); err != nil {
		return nil, classify(err)
	}
	p.CreatedAt = fromMicros(created)
	p.UpdatedAt = fromMicros(updated)
	return &p, nil
}

// ListFeed pages posts newest first, (created_at, id) descending.
func (s *Store) ListFeed(ctx context.Context, before *cursor.Cursor, limit int) ([]model.Post, error) {
	query := `SELECT ` + postColumns + ` FROM posts`
	args := []any{}
	if before != nil {
		query += ` WHERE created_at < ? OR (created_at = ? AND id < ?)`
		args = append(args, before.CreatedAt, before.CreatedAt, before.ID)
	}
	query += ` ORDER BY created_at DESC, id DESC LIMIT ?`
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
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
	return getPost(ctx, s.db, postID)
}

func getPost(ctx context.Context, q querier, postID int64) (*model.Post, error) {
	return scanPost(q.QueryRowContext(ctx, `SELECT `+postColumns+` FROM posts WHERE id = ?`, postID))
}

// CreatePost inserts a post with score 0.
func (s *Store) CreatePost(ctx context.Context, post model.Post) (*model.Post, error) {
	return scanPost(s.db.QueryRowContext(ctx, `
		INSERT INTO posts (title, body, score, author_id, created_at, updated_at)
		VALUES (?, ?, 0, ?, ?, ?)
		RETURNING `+postColumns,
		post.Title, post.Body, post.AuthorID, toMicros(post.CreatedAt), toMicros(post.UpdatedAt)))
}

// AuthorsByIDs loads every user whose id is in ids in one query.
func (s *Store) AuthorsByIDs(ctx context.Context, ids []int64) ([]model.Author, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, username, email, created_at, updated_at
		FROM users
		WHERE id IN (`+placeholders(len(ids), "?")+`)`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	authors := make([]model.Author, 0, len(ids))
	for rows.Next() {
		var a model.Author
		var created, updated int64
		if err := rows.Scan(&a.ID, &a.Username, &a.Email, &created, &updated); err != nil {
			return nil, err
		}
		a.CreatedAt = fromMicros(created)
		a.UpdatedAt = fromMicros(updated)
		authors = append(authors, a)
	}
	return authors, rows.Err()
}

// ScoreDrift lists posts whose score differs from their ledger sum.
func (s *Store) ScoreDrift(ctx context.Context) ([]model.ScoreDrift, error) {
	rows, err := s.db.QueryContext(ctx, `
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

// placeholders returns n comma-separated copies of p.
func placeholders(n int, p string) string {
	return strings.TrimSuffix(strings.Repeat(p+", ", n), ", ")
}
