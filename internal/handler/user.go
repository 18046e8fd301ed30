package handler

import (
	"time"

	"github.com/gofiber/fiber/v3"

	"github.com/divakaivan/my-reddit-server/internal/apperr"
	"github.com/divakaivan/my-reddit-server/internal/middleware"
	"github.com/divakaivan/my-reddit-server/internal/model"
	"github.com/divakaivan/my-reddit-server/internal/service"
)

// CookieConfig describes the session cookie.
type CookieConfig struct {
	Name   string
	TTL    time.Duration
	Secure bool
}

type UserHandler struct {
	users    *service.UserService
	sessions *service.SessionService
	cookie   CookieConfig
}

func NewUserHandler(users *service.UserService, sessions *service.SessionService, cookie CookieConfig) *UserHandler {
	return &UserHandler{users: users, sessions: sessions, cookie: cookie}
}

// Register handles POST /api/users/register
func (h *UserHandler) Register(c fiber.Ctx) error {
	var req model.RegisterRequest
	if err := c.Bind().JSON(&req); err != nil {
		return middleware.ErrorResponse(c, fiber.StatusBadRequest, "INVALID_BODY", "Invalid request body")
	}

	author, fieldErrs, err := h.users.Register(c.Context(), req)
	if len(fieldErrs) > 0 {
		status := fiber.StatusBadRequest
		if apperr.HasCode(err, apperr.CodeConflict) {
			status = fiber.StatusConflict
		}
		return c.Status(status).JSON(model.UserResponse{Errors: fieldErrs})
	}
	if err != nil {
		return middleware.AppError(c, err)
	}
	return h.startSession(c, fiber.StatusCreated, author)
}

// Login handles POST /api/users/login
func (h *UserHandler) Login(c fiber.Ctx) error {
	var req model.LoginRequest
	if err := c.Bind().JSON(&req); err != nil {
		return middleware.ErrorResponse(c, fiber.StatusBadRequest, "INVALID_BODY", "Invalid request body")
	}

	author, fieldErrs, err := h.users.Login(c.Context(), req.Login, req.Password)
	if err != nil {
		return middleware.AppError(c, err)
	}
	if len(fieldErrs) > 0 {
		return c.Status(fiber.StatusUnauthorized).JSON(model.UserResponse{Errors: fieldErrs})
	}
	return h.startSession(c, fiber.StatusOK, author)
}

// Logout handles POST /api/users/logout
func (h *UserHandler) Logout(c fiber.Ctx) error {
	if err := h.sessions.Destroy(c.Context(), c.Cookies(h.cookie.Name)); err != nil {
		middleware.Logger.Warn().Err(err).Str("request_id", middleware.RequestID(c)).Msg("session destroy failed")
		return c.JSON(fiber.Map{"success": false})
	}
	middleware.ClearSessionCookie(c, h.cookie.Name)
	return c.JSON(fiber.Map{"success": true})
}

// Me handles GET /api/users/me
func (h *UserHandler) Me(c fiber.Ctx) error {
	author, err := h.users.Me(c.Context(), middleware.Request(c))
	if err != nil {
		return middleware.AppError(c, err)
	}
	return c.JSON(model.UserResponse{User: author})
}

func (h *UserHandler) startSession(c fiber.Ctx, status int, author *model.Author) error {
	token, err := h.sessions.Create(c.Context(), author.ID)
	if err != nil {
		return middleware.AppError(c, err)
	}
	middleware.SetSessionCookie(c, h.cookie.Name, token, h.cookie.TTL, h.cookie.Secure)
	return c.Status(status).JSON(model.UserResponse{User: author})
}
