package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/divakaivan/my-reddit-server/internal/config"
	"github.com/divakaivan/my-reddit-server/internal/db"
	"github.com/divakaivan/my-reddit-server/internal/handler"
	"github.com/divakaivan/my-reddit-server/internal/metrics"
	"github.com/divakaivan/my-reddit-server/internal/middleware"
	"github.com/divakaivan/my-reddit-server/internal/router"
	"github.com/divakaivan/my-reddit-server/internal/service"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		middleware.InitLogger("info", "feed-api").Fatal().Err(err).Msg("invalid configuration")
	}
	log := middleware.InitLogger(cfg.LogLevel, "feed-api")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, pool, err := db.OpenStore(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Str("driver", cfg.StoreDriver).Msg("failed to open store")
	}
	defer store.Close()

	metrics.Init(prometheus.DefaultRegisterer, pool)

	sessions := service.NewSessionService(cfg.RedisURL, cfg.SessionTTL, log)
	defer sessions.Close()

	posts := service.NewPostService(store, time.Now, log)
	scores := service.NewScoreService(store, log)

	if cfg.AuditInterval > 0 {
		worker := service.NewAuditWorker(scores, cfg.AuditInterval, log)
		go worker.Start(ctx)
	}

	app := fiber.New(fiber.Config{
		AppName:      "Feed API",
		ServerHeader: "feed",
	})

	router.Setup(app, &router.Handlers{
		Post: handler.NewPostHandler(service.NewFeedService(store), posts),
		Vote: handler.NewVoteHandler(service.NewVoteService(store, log), posts),
		User: handler.NewUserHandler(service.NewUserService(store, time.Now, log), sessions, handler.CookieConfig{
			Name:   cfg.SessionCookie,
			TTL:    cfg.SessionTTL,
			Secure: cfg.Production(),
		}),
		Health: handler.NewHealthHandler(store, sessions.Client()),
	}, router.Options{
		CORSOrigins:   cfg.CORSOrigins,
		SessionCookie: cfg.SessionCookie,
		Sessions:      sessions,
		Source:        store,
		Gatherer:      prometheus.DefaultGatherer,
		RateLimits:    true,
	})

	go func() {
		<-ctx.Done()
		log.Info().Msg("shutting down")
		if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
			log.Error().Err(err).Msg("shutdown failed")
		}
	}()

	log.Info().Str("port", cfg.Port).Str("env", cfg.Environment).Str("driver", cfg.StoreDriver).Msg("feed backend starting")
	if err := app.Listen(":"+cfg.Port, fiber.ListenConfig{DisableStartupMessage: true}); err != nil {
		log.Error().Err(err).Msg("server stopped")
	}
}
