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
	"github.com/divakaivan/my-reddit-server/pkg/hash"
)

// UserStore is the storage surface for accounts.
type UserStore interface {
	CreateUser(ctx context.Context, username, email, passwordHash string, now time.Time) (*model.Author, error)
	CredentialByLogin(ctx context.Context, login string) (*model.Credential, error)
}

// UserService registers and authenticates accounts.
type UserService struct {
	store UserStore
	now   func() time.Time
	log   zerolog.Logger
}

func NewUserService(store UserStore, now func() time.Time, log zerolog.Logger) *UserService {
	if now == nil {
		now = time.Now
	}
	return &UserService{store: store, now: now, log: log.With().Str("component", "user").Logger()}
}

// ValidateRegistration returns one field error per broken rule, or nil.
func ValidateRegistration(req model.RegisterRequest) []model.FieldError {
	var errs []model.FieldError
	if len(req.Username) <= 2 {
		errs = append(errs, model.FieldError{Field: "username", Message: "length must be greater than 2"})
	} else if strings.Contains(req.Username, "@") {
		errs = append(errs, model.FieldError{Field: "username", Message: "cannot include an @"})
	}
	if !strings.Contains(req.Email, "@") {
		errs = append(errs, model.FieldError{Field: "email", Message: "invalid email"})
	}
	if len(req.Password) <= 2 {
		errs = append(errs, model.FieldError{Field: "password", Message: "length must be greater than 2"})
	}
	return errs
}

// Register creates an account. Validation problems come back as field errors
// with a nil error. A taken username or email comes back as a field error
// together with a CONFLICT error.
func (s *UserService) Register(ctx context.Context, req model.RegisterRequest) (*model.Author, []model.FieldError, error) {
	req.Username = strings.TrimSpace(req.Username)
	req.Email = strings.TrimSpace(strings.ToLower(req.Email))
	if errs := ValidateRegistration(req); len(errs) > 0 {
		return nil, errs, nil
	}

	pwHash, err := hash.HashPassword(req.Password)
	if err != nil {
		return nil, nil, apperr.Wrap(apperr.CodeInternal, "hash password", err)
	}

	author, err := s.store.CreateUser(ctx, req.Username, req.Email, pwHash, s.now().UTC())
	if errors.Is(err, repository.ErrDuplicate) {
		field := "username"
		if strings.Contains(strings.ToLower(err.Error()), "email") {
			field = "email"
		}
		return nil, []model.FieldError{{Field: field, Message: field + " already taken"}},
			apperr.Wrap(apperr.CodeConflict, field+" already taken", err)
	}
	if err != nil {
		return nil, nil, apperr.Wrap(apperr.CodeInternal, "create user", err)
	}
	s.log.Info().Int64("user_id", author.ID).Msg("user registered")
	return author, nil, nil
}

// Login checks a username-or-email and password pair.
func (s *UserService) Login(ctx context.Context, login, password string) (*model.Author, []model.FieldError, error) {
	login = strings.TrimSpace(login)
	if strings.Contains(login, "@") {
		login = strings.ToLower(login)
	}

	cred, err := s.store.CredentialByLogin(ctx, login)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, []model.FieldError{{Field: "usernameOrEmail", Message: "that user doesn't exist"}}, nil
	}
	if err != nil {
		return nil, nil, apperr.Wrap(apperr.CodeInternal, "find user", err)
	}

	ok, err := hash.VerifyPassword(cred.PasswordHash, password)
	if err != nil {
		return nil, nil, apperr.Wrap(apperr.CodeInternal, "verify password", err)
	}
	if !ok {
		return nil, []model.FieldError{{Field: "password", Message: "incorrect password"}}, nil
	}
	return &cred.Author, nil, nil
}

// Me returns the signed-in viewer's account, or nil for an anonymous viewer.
func (s *UserService) Me(ctx context.Context, req *requestctx.Request) (*model.Author, error) {
	viewerID, ok := req.Viewer()
	if !ok {
		return nil, nil
	}
	author, found, err := req.Loaders.Authors.Get(ctx, viewerID)
	if err != nil {
		return nil, apperr.Wrap(apperr.CodeInternal, "load viewer", err)
	}
	if !found {
		return nil, nil
	}
	return &author, nil
}
