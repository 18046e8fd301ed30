package sqlite

import (
	"context"
	"time"

	"github.com/divakaivan/my-reddit-server/internal/model"
)

func (s *Store) CreateUser(ctx context.Context, username, email, passwordHash string, now time.Time) (*model.Author, error) {
	var a model.Author
	var created, updated int64
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO users (username, email, password_hash, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
		RETURNING id, username, email, created_at, updated_at`,
		username, email, passwordHash, toMicros(now), toMicros(now),
	).Scan(&a.ID, &a.Username, &a.Email, &created, &updated)
	if err != nil {
		return nil, classify(err)
	}
	a.CreatedAt = fromMicros(created)
	a.UpdatedAt = fromMicros(updated)
	return &a, nil
}

// CredentialByLogin finds a user by username or email.
func (s *Store) CredentialByLogin(ctx context.Context, login string) (*model.Credential, error) {
	var c model.Credential
	var created, updated int64
	err := s.db.QueryRowContext(ctx, `
		SELECT id, username, email, created_at, updated_at, password_hash
		FROM users
		WHERE username = ? OR email = ?`, login, login,
	).Scan(&c.ID, &c.Username, &c.Email, &created, &updated, &c.PasswordHash)
	if err != nil {
		return nil, classify(err)
	}
	c.CreatedAt = fromMicros(created)
	c.UpdatedAt = fromMicros(updated)
	return &c, nil
}
