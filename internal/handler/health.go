package handler

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/redis/go-redis/v9"
)

// Pinger reports whether a dependency is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

type HealthHandler struct {
	store   Pinger
	rdb     *redis.Client
	startAt time.Time
}

func NewHealthHandler(store Pinger, rdb *redis.Client) *HealthHandler {
	return &HealthHandler{
		store:   store,
		rdb:     rdb,
		startAt: time.Now(),
	}
}

// Live handles GET /health/live.
func (h *HealthHandler) Live(c fiber.Ctx) error {
	return c.JSON(fiber.Map{"status": "ok"})
}

// Ready handles GET /health/ready.
// Redis being down degrades the service (sessions fall back to memory) but
// only a database failure makes it unready.
func (h *HealthHandler) Ready(c fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.Context(), 3*time.Second)
	defer cancel()

	db := checkPing(ctx, h.store)
	checks := fiber.Map{"database": db}
	status := "healthy"
	if db["status"] != "up" {
		status = "unhealthy"
	}

	var cache fiber.Map
	if h.rdb == nil {
		cache = fiber.Map{"status": "disabled"}
	} else {
		cache = checkPing(ctx, redisPinger{h.rdb})
		if cache["status"] != "up" && status == "healthy" {
			status = "degraded"
		}
	}
	checks["redis"] = cache

	code := fiber.StatusOK
	if status == "unhealthy" {
		code = fiber.StatusServiceUnavailable
	}
	return c.Status(code).JSON(fiber.Map{
		"status":         status,
		"checks":         checks,
		"uptime_seconds": int(time.Since(h.startAt).Seconds()),
	})
}

type redisPinger struct{ rdb *redis.Client }

func (r redisPinger) Ping(ctx context.Context) error {
	return r.rdb.Ping(ctx).Err()
}

func checkPing(ctx context.Context, p Pinger) fiber.Map {
	start := time.Now()
	err := p.Ping(ctx)
	latency := time.Since(start).Milliseconds()

	if err != nil {
		return fiber.Map{
			"status":     "down",
			"latency_ms": latency,
			"error":      "connection failed",
		}
	}
	return fiber.Map{
		"status":     "up",
		"latency_ms": latency,
	}
}
