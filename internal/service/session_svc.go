package service

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/divakaivan/my-reddit-server/pkg/hash"
)

// ErrNoSession is returned when a token does not map to a live session.
var ErrNoSession = errors.New("session not found")

// SessionService maps opaque cookie tokens to user ids. Sessions live in Redis
// when it is reachable and in process memory otherwise.
type SessionService struct {
	rdb *redis.Client
	ttl time.Duration
	now func() time.Time
	log zerolog.Logger

	mu    sync.Mutex
	local map[string]localSession
	swept time.Time
}

type localSession struct {
	userID  int64
	expires time.Time
}

// sweepInterval bounds how often Create scans the in-memory store for
// expired sessions.
const sweepInterval = time.Minute

// NewSessionService connects to redisURL. If redisURL is empty or the
// connection fails, sessions are kept in memory.
func NewSessionService(redisURL string, ttl time.Duration, log zerolog.Logger) *SessionService {
	log = log.With().Str("component", "session").Logger()
	if redisURL == "" {
		log.Info().Msg("redis: no URL configured, sessions kept in memory")
		return NewSessionServiceWithClient(nil, ttl, log)
	}

	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		log.Warn().Err(err).Msg("redis: invalid URL, sessions kept in memory")
		return NewSessionServiceWithClient(nil, ttl, log)
	}

	rdb := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		log.Warn().Err(err).Msg("redis: connection failed, sessions kept in memory")
		_ = rdb.Close()
		return NewSessionServiceWithClient(nil, ttl, log)
	}

	log.Info().Msg("redis: connected, sessions stored in redis")
	return NewSessionServiceWithClient(rdb, ttl, log)
}

// NewSessionServiceWithClient uses an existing client; nil selects the in-memory store.
func NewSessionServiceWithClient(rdb *redis.Client, ttl time.Duration, log zerolog.Logger) *SessionService {
	return &SessionService{
		rdb:   rdb,
		ttl:   ttl,
		now:   time.Now,
		log:   log,
		local: make(map[string]localSession),
	}
}

// Client returns the underlying Redis client (for health checks). May be nil.
func (s *SessionService) Client() *redis.Client {
	return s.rdb
}

// Create starts a session for userID and returns its token.
func (s *SessionService) Create(ctx context.Context, userID int64) (string, error) {
	token := uuid.NewString()
	key := hash.SessionKey(token)

	if s.rdb != nil {
		if err := s.rdb.Set(ctx, key, strconv.FormatInt(userID, 10), s.ttl).Err(); err != nil {
			return "", err
		}
		return token, nil
	}

	s.mu.Lock()
	now := s.now()
	if now.Sub(s.swept) >= sweepInterval {
		s.sweepLocked(now)
	}
	s.local[key] = localSession{userID: userID, expires: now.Add(s.ttl)}
	s.mu.Unlock()
	return token, nil
}

// sweepLocked drops expired in-memory sessions. s.mu must be held.
func (s *SessionService) sweepLocked(now time.Time) {
	for key, sess := range s.local {
		if now.After(sess.expires) {
			delete(s.local, key)
		}
	}
	s.swept = now
}

// Resolve returns the user id behind token, or ErrNoSession.
func (s *SessionService) Resolve(ctx context.Context, token string) (int64, error) {
	if token == "" {
		return 0, ErrNoSession
	}
	key := hash.SessionKey(token)

	if s.rdb != nil {
		val, err := s.rdb.Get(ctx, key).Result()
		if errors.Is(err, redis.Nil) {
			return 0, ErrNoSession
		}
		if err != nil {
			return 0, err
		}
		id, err := strconv.ParseInt(val, 10, 64)
		if err != nil || id <= 0 {
			return 0, ErrNoSession
		}
		return id, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.local[key]
	if !ok {
		return 0, ErrNoSession
	}
	if s.now().After(sess.expires) {
		delete(s.local, key)
		return 0, ErrNoSession
	}
	return sess.userID, nil
}

// Destroy ends the session behind token. Unknown tokens are ignored.
func (s *SessionService) Destroy(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	key := hash.SessionKey(token)

	if s.rdb != nil {
		return s.rdb.Del(ctx, key).Err()
	}

	s.mu.Lock()
	delete(s.local, key)
	s.mu.Unlock()
	return nil
}

// Close shuts down the Redis connection.
func (s *SessionService) Close() error {
	if s.rdb == nil {
		return nil
	}
	return s.rdb.Close()
}
