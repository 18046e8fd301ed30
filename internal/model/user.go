package model

import "time"

// Author is the public view of a user.
type Author struct {
	ID        int64     `json:"id"`
	Username  string    `json:"username"`
	Email     string    `json:"email,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Credential is an author together with their password hash.
type Credential struct {
	Author
	PasswordHash string `json:"-"`
}

// RegisterRequest is the API request body for registration.
type RegisterRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginRequest is the API request body for login. Login may be a username or email.
type LoginRequest struct {
	Login    string `json:"usernameOrEmail"`
	Password string `json:"password"`
}

// FieldError is a per-field validation failure.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// UserResponse is the API response for register/login/me.
type UserResponse struct {
	Errors []FieldError `json:"errors,omitempty"`
	User   *Author      `json:"user,omitempty"`
}
