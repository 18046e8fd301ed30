package middleware

import (
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/gofiber/fiber/v3"

	"github.com/divakaivan/my-reddit-server/internal/apperr"
	"github.com/divakaivan/my-reddit-server/internal/model"
)

// Field length limits.
const (
	MaxTitleLen = 300
	MaxBodyLen  = 10000
)

// ErrorResponse is a helper that returns a standard API error response.
func ErrorResponse(c fiber.Ctx, status int, code, message string) error {
	return c.Status(status).JSON(fiber.Map{
		"error": fiber.Map{
			"code":    code,
			"message": message,
		},
	})
}

// StatusFor maps a domain error code to its HTTP status.
func StatusFor(code apperr.Code) int {
	switch code {
	case apperr.CodeInvalidArgument:
		return fiber.StatusBadRequest
	case apperr.CodeUnauthenticated:
		return fiber.StatusUnauthorized
	case apperr.CodeForbidden:
		return fiber.StatusForbidden
	case apperr.CodeNotFound:
		return fiber.StatusNotFound
	case apperr.CodeConflict:
		return fiber.StatusConflict
	case apperr.CodeTransientFailure:
		return fiber.StatusServiceUnavailable
	default:
		return fiber.StatusInternalServerError
	}
}

// AppError renders a service error. Server-side failures are logged and
// rendered without internal detail.
func AppError(c fiber.Ctx, err error) error {
	code := apperr.CodeOf(err)
	status := StatusFor(code)

	message := err.Error()
	switch {
	case code == apperr.CodeTransientFailure:
		c.Set(fiber.HeaderRetryAfter, "1")
		message = "Temporary conflict, please retry"
	case status >= fiber.StatusInternalServerError:
		Logger.Error().Err(err).Str("code", string(code)).Str("request_id", RequestID(c)).Msg("request failed")
		message = "Internal server error"
	}
	return ErrorResponse(c, status, string(code), message)
}

// ValidatePostID parses a positive post id path parameter.
func ValidatePostID(raw string) (int64, string) {
	id, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil || id <= 0 {
		return 0, "id must be a positive integer"
	}
	return id, ""
}

// ValidateTitle trims a post title and checks its length.
func ValidateTitle(title string) (string, string) {
	title = strings.TrimSpace(title)
	if title == "" {
		return "", "title is required"
	}
	if utf8.RuneCountInString(title) > MaxTitleLen {
		return "", "title must be at most 300 characters"
	}
	return title, ""
}

// ValidateBody checks a post body's length.
func ValidateBody(body string) (string, string) {
	if utf8.RuneCountInString(body) > MaxBodyLen {
		return "", "text must be at most 10000 characters"
	}
	return body, ""
}

// ValidateLimit parses the optional page size query parameter. Clamping is
// left to the feed service; only syntax is checked here.
func ValidateLimit(raw string) (int, string) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, ""
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, "limit must be an integer"
	}
	return n, ""
}

// ValidateVote extracts the direction from a vote request body. Either a
// numeric value (1 or -1) or a direction name is accepted.
func ValidateVote(req model.VoteRequest) (model.Direction, string) {
	if req.Value != nil {
		d := model.Direction(*req.Value)
		if *req.Value != 1 && *req.Value != -1 {
			return 0, "value must be 1 or -1"
		}
		return d, ""
	}
	if req.Direction == "" {
		return 0, "value or direction is required"
	}
	d, err := model.ParseDirection(req.Direction)
	if err != nil {
		return 0, "direction must be up or down"
	}
	return d, ""
}
