package middleware

import (
	"context"
	"errors"
	"time"

	"github.com/gofiber/fiber/v3"

	"github.com/divakaivan/my-reddit-server/internal/loader"
	"github.com/divakaivan/my-reddit-server/internal/metrics"
	"github.com/divakaivan/my-reddit-server/internal/requestctx"
	"github.com/divakaivan/my-reddit-server/internal/service"
)

const requestKey = "request"

// SessionResolver maps a session token to a user id.
type SessionResolver interface {
	Resolve(ctx context.Context, token string) (int64, error)
}

// NewSession resolves the session cookie to a viewer and attaches a fresh
// request context (viewer + loaders) to every request. Unknown or expired
// sessions are treated as anonymous.
func NewSession(cookieName string, sessions SessionResolver, src loader.Source) fiber.Handler {
	return func(c fiber.Ctx) error {
		var viewerID int64
		if token := c.Cookies(cookieName); token != "" {
			id, err := sessions.Resolve(c.Context(), token)
			switch {
			case err == nil:
				viewerID = id
				metrics.ObserveSessionLookup("hit")
			case errors.Is(err, service.ErrNoSession):
				metrics.ObserveSessionLookup("miss")
			default:
				metrics.ObserveSessionLookup("error")
				Logger.Warn().Err(err).Str("request_id", RequestID(c)).Msg("session lookup failed")
			}
		}
		c.Locals(requestKey, requestctx.New(viewerID, src))
		return c.Next()
	}
}

// Request returns the request context attached by NewSession, or nil.
func Request(c fiber.Ctx) *requestctx.Request {
	r, _ := c.Locals(requestKey).(*requestctx.Request)
	return r
}

// SetSessionCookie writes the session cookie.
func SetSessionCookie(c fiber.Ctx, name, token string, ttl time.Duration, secure bool) {
	c.Cookie(&fiber.Cookie{
		Name:     name,
		Value:    token,
		Path:     "/",
		MaxAge:   int(ttl.Seconds()),
		HTTPOnly: true,
		Secure:   secure,
		SameSite: fiber.CookieSameSiteLaxMode,
	})
}

// ClearSessionCookie expires the session cookie.
func ClearSessionCookie(c fiber.Ctx, name string) {
	c.Cookie(&fiber.Cookie{
		Name:     name,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HTTPOnly: true,
		SameSite: fiber.CookieSameSiteLaxMode,
	})
}
