package router

import (
	"github.com/gofiber/fiber/v3"
	recoverer "github.com/gofiber/fiber/v3/middleware/recover"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/divakaivan/my-reddit-server/internal/handler"
	"github.com/divakaivan/my-reddit-server/internal/loader"
	"github.com/divakaivan/my-reddit-server/internal/metrics"
	"github.com/divakaivan/my-reddit-server/internal/middleware"
)

// Handlers holds all handler instances needed by the router.
type Handlers struct {
	Post   *handler.PostHandler
	Vote   *handler.VoteHandler
	User   *handler.UserHandler
	Health *handler.HealthHandler
}

// Options configures the middleware stack.
type Options struct {
	CORSOrigins   string
	SessionCookie string
	Sessions      middleware.SessionResolver
	// Source backs the per-request association loaders.
	Source loader.Source
	// Gatherer serves /metrics; nil disables the endpoint.
	Gatherer prometheus.Gatherer
	// RateLimits toggles the per-route limiters (off in tests).
	RateLimits bool
}

// Setup configures the middleware stack and all API routes on the given Fiber app.
func Setup(app *fiber.App, h *Handlers, opts Options) {
	// Middleware stack (order matters)
	app.Use(recoverer.New())
	app.Use(middleware.NewRequestID())
	app.Use(metrics.Middleware())
	app.Use(middleware.NewCORS(opts.CORSOrigins))
	app.Use(middleware.NewSession(opts.SessionCookie, opts.Sessions, opts.Source))
	app.Use(middleware.NewRequestLogger())

	app.Get("/health/live", h.Health.Live)
	app.Get("/health/ready", h.Health.Ready)
	if opts.Gatherer != nil {
		app.Get("/metrics", metrics.Handler(opts.Gatherer))
	}

	read, write, vote, auth := passThrough, passThrough, passThrough, passThrough
	if opts.RateLimits {
		read = middleware.NewReadRateLimiter().Handler()
		write = middleware.NewPostWriteRateLimiter().Handler()
		vote = middleware.NewVoteRateLimiter().Handler()
		auth = middleware.NewAuthRateLimiter().Handler()
	}

	api := app.Group("/api")

	// Post routes
	api.Get("/posts", read, h.Post.List)
	api.Get("/posts/:id", read, h.Post.Get)
	api.Post("/posts", write, h.Post.Create)
	api.Patch("/posts/:id", write, h.Post.Update)
	api.Delete("/posts/:id", write, h.Post.Delete)

	// Vote routes
	api.Post("/posts/:id/vote", vote, h.Vote.Cast)

	// User routes
	api.Post("/users/register", auth, h.User.Register)
	api.Post("/users/login", auth, h.User.Login)
	api.Post("/users/logout", h.User.Logout)
	api.Get("/users/me", h.User.Me)
}

func passThrough(c fiber.Ctx) error {
	return c.Next()
}
