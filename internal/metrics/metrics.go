// Package metrics holds the Prometheus collectors for the feed backend.
package metrics

import (
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/valyala/fasthttp/fasthttpadaptor"
)

// Metrics holds all Prometheus collectors. Fields are nil until Init runs;
// the helper functions below are safe to call either way.
var Metrics = struct {
	VotesTotal       *prometheus.CounterVec
	RequestDuration  *prometheus.HistogramVec
	RequestsInFlight prometheus.Gauge
	LoaderBatchKeys  *prometheus.HistogramVec
	FeedPagesServed  prometheus.Counter
	SessionLookups   *prometheus.CounterVec
	ScoreDrift       prometheus.Gauge
	DBPoolActive     prometheus.GaugeFunc
	DBPoolIdle       prometheus.GaugeFunc
}{}

// Init registers all collectors with reg. pool may be nil (sqlite backend).
func Init(reg prometheus.Registerer, pool *pgxpool.Pool) {
	Metrics.VotesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "feed_votes_total",
			Help: "Vote attempts, by direction and outcome.",
		},
		[]string{"direction", "outcome"},
	)

	Metrics.RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "feed_api_request_duration_seconds",
			Help:    "HTTP request duration in seconds, by endpoint and method.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"endpoint", "method", "status"},
	)

	Metrics.RequestsInFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "feed_requests_in_flight",
			Help: "Number of HTTP requests currently being served.",
		},
	)

	Metrics.LoaderBatchKeys = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "feed_loader_batch_keys",
			Help:    "Number of distinct keys per association loader batch.",
			Buckets: []float64{1, 2, 5, 10, 20, 50, 100},
		},
		[]string{"kind"},
	)

	Metrics.FeedPagesServed = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "feed_pages_served_total",
			Help: "Feed pages returned to clients.",
		},
	)

	Metrics.SessionLookups = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "feed_session_lookups_total",
			Help: "Session cookie lookups, by result.",
		},
		[]string{"result"},
	)

	Metrics.ScoreDrift = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "feed_score_drift_posts",
			Help: "Posts whose score disagreed with the vote ledger at the last audit.",
		},
	)

	if pool != nil {
		Metrics.DBPoolActive = prometheus.NewGaugeFunc(
			prometheus.GaugeOpts{
				Name: "feed_db_connection_pool_active",
				Help: "Number of active database connections.",
			},
			func() float64 {
				return float64(pool.Stat().AcquiredConns())
			},
		)

		Metrics.DBPoolIdle = prometheus.NewGaugeFunc(
			prometheus.GaugeOpts{
				Name: "feed_db_connection_pool_idle",
				Help: "Number of idle database connections.",
			},
			func() float64 {
				return float64(pool.Stat().IdleConns())
			},
		)

		reg.MustRegister(Metrics.DBPoolActive, Metrics.DBPoolIdle)
	}

	reg.MustRegister(
		Metrics.VotesTotal,
		Metrics.RequestDuration,
		Metrics.RequestsInFlight,
		Metrics.LoaderBatchKeys,
		Metrics.FeedPagesServed,
		Metrics.SessionLookups,
		Metrics.ScoreDrift,
	)
}

// ObserveVote counts one vote attempt.
func ObserveVote(direction, outcome string) {
	if Metrics.VotesTotal != nil {
		Metrics.VotesTotal.WithLabelValues(direction, outcome).Inc()
	}
}

// ObserveLoaderBatch records the size of one loader batch.
func ObserveLoaderBatch(kind string, keys int) {
	if Metrics.LoaderBatchKeys != nil {
		Metrics.LoaderBatchKeys.WithLabelValues(kind).Observe(float64(keys))
	}
}

// ObserveFeedPage counts one served feed page.
func ObserveFeedPage() {
	if Metrics.FeedPagesServed != nil {
		Metrics.FeedPagesServed.Inc()
	}
}

// ObserveSessionLookup counts one session resolution ("hit", "miss", "error").
func ObserveSessionLookup(result string) {
	if Metrics.SessionLookups != nil {
		Metrics.SessionLookups.WithLabelValues(result).Inc()
	}
}

// SetScoreDrift records the drifted post count from the last audit.
func SetScoreDrift(n int) {
	if Metrics.ScoreDrift != nil {
		Metrics.ScoreDrift.Set(float64(n))
	}
}

// Middleware records request duration and in-flight count.
func Middleware() fiber.Handler {
	return func(c fiber.Ctx) error {
		if c.Path() == "/metrics" || Metrics.RequestDuration == nil {
			return c.Next()
		}

		// Fiber returns slices backed by the fasthttp buffer; copy before c.Next().
		path := string([]byte(c.Path()))
		method := string([]byte(c.Method()))
		endpoint := SanitizeEndpoint(path)

		Metrics.RequestsInFlight.Inc()
		start := time.Now()

		err := c.Next()

		duration := time.Since(start).Seconds()
		status := strconv.Itoa(c.Response().StatusCode())

		Metrics.RequestDuration.WithLabelValues(endpoint, method, status).Observe(duration)
		Metrics.RequestsInFlight.Dec()

		return err
	}
}

// SanitizeEndpoint replaces numeric post ids with a placeholder to bound label cardinality.
func SanitizeEndpoint(path string) string {
	const prefix = "/api/posts/"
	if !strings.HasPrefix(path, prefix) || len(path) == len(prefix) {
		return path
	}
	rest := path[len(prefix):]
	if i := strings.IndexByte(rest, '/'); i >= 0 {
		return prefix + ":id" + rest[i:]
	}
	return prefix + ":id"
}

// Handler serves the Prometheus /metrics endpoint via Fiber.
func Handler(g prometheus.Gatherer) fiber.Handler {
	httpHandler := fasthttpadaptor.NewFastHTTPHandler(promhttp.HandlerFor(g, promhttp.HandlerOpts{}))
	return func(c fiber.Ctx) error {
		httpHandler(c.RequestCtx())
		return nil
	}
}
