package postgres

import (
	"context"
	"time"

	"github.com/divakaivan/my-reddit-server/internal/model"
)

func (s *Store) CreateUser(ctx context.Context, username, email, passwordHash string, now time.Time) (*model.Author, error) {
	var a model.Author
	err := s.pool.QueryRow(ctx, `
		INSERT INTO users (username, email, password_hash, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $4)
		RETURNING id, username, email, created_at, updated_at`,
		username, email, passwordHash, micros(now),
	).Scan(&a.ID, &a.Username, &a.Email, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return nil, classify(err)
	}
	return &a, nil
}

// CredentialByLogin finds a user by username or email.
func (s *Store) CredentialByLogin(ctx context.Context, login string) (*model.Credential, error) {
	var c model.Credential
	err := s.pool.QueryRow(ctx, `
		SELECT id, username, email, created_at, updated_at, password_hash
		FROM users
		WHERE username = $1 OR email = $1`, login,
	).Scan(&c.ID, &c.Username, &c.Email, &c.CreatedAt, &c.UpdatedAt, &c.PasswordHash)
	if err != nil {
		return nil, classify(err)
	}
	return &c, nil
}
