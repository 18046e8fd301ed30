package service

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/divakaivan/my-reddit-server/pkg/hash"
)

func TestSessionService_InMemory(t *testing.T) {
	svc := NewSessionService("", time.Hour, testLog)
	require.Nil(t, svc.Client())
	ctx := context.Background()

	token, err := svc.Create(ctx, 42)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	id, err := svc.Resolve(ctx, token)
	require.NoError(t, err)
	assert.EqualValues(t, 42, id)

	require.NoError(t, svc.Destroy(ctx, token))
	_, err = svc.Resolve(ctx, token)
	assert.ErrorIs(t, err, ErrNoSession)
}

func TestSessionService_UnknownAndEmptyTokens(t *testing.T) {
	svc := NewSessionService("", time.Hour, testLog)
	ctx := context.Background()

	_, err := svc.Resolve(ctx, "")
	assert.ErrorIs(t, err, ErrNoSession)
	_, err = svc.Resolve(ctx, "does-not-exist")
	assert.ErrorIs(t, err, ErrNoSession)
	assert.NoError(t, svc.Destroy(ctx, "does-not-exist"))
}

func TestSessionService_Expiry(t *testing.T) {
	svc := NewSessionService("", time.Minute, testLog)
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return now }
	ctx := context.Background()

	token, err := svc.Create(ctx, 7)
	require.NoError(t, err)

	now = now.Add(59 * time.Second)
	_, err = svc.Resolve(ctx, token)
	require.NoError(t, err)

	now = now.Add(2 * time.Second)
	_, err = svc.Resolve(ctx, token)
	assert.ErrorIs(t, err, ErrNoSession)
}

func TestSessionService_InvalidRedisURLFallsBack(t *testing.T) {
	svc := NewSessionService("not a url", time.Hour, testLog)
	assert.Nil(t, svc.Client())

	token, err := svc.Create(context.Background(), 1)
	require.NoError(t, err)
	id, err := svc.Resolve(context.Background(), token)
	require.NoError(t, err)
	assert.EqualValues(t, 1, id)
}

func TestSessionService_SweepsAbandonedSessions(t *testing.T) {
	svc := NewSessionService("", time.Minute, testLog)
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return now }
	ctx := context.Background()

	for i := int64(1); i <= 3; i++ {
		_, err := svc.Create(ctx, i)
		require.NoError(t, err)
	}
	require.Len(t, svc.local, 3)

	now = now.Add(2 * time.Minute)
	fresh, err := svc.Create(ctx, 4)
	require.NoError(t, err)

	assert.Len(t, svc.local, 1)
	id, err := svc.Resolve(ctx, fresh)
	require.NoError(t, err)
	assert.EqualValues(t, 4, id)
}

func newRedisSessions(t *testing.T, ttl time.Duration) (*SessionService, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	svc := NewSessionService("redis://"+mr.Addr(), ttl, testLog)
	require.NotNil(t, svc.Client(), "expected a redis-backed store")
	t.Cleanup(func() { _ = svc.Close() })
	return svc, mr
}

func TestSessionService_Redis(t *testing.T) {
	svc, mr := newRedisSessions(t, time.Hour)
	ctx := context.Background()

	token, err := svc.Create(ctx, 42)
	require.NoError(t, err)

	key := hash.SessionKey(token)
	require.True(t, mr.Exists(key))
	assert.Equal(t, time.Hour, mr.TTL(key))
	assert.Empty(t, svc.local)

	id, err := svc.Resolve(ctx, token)
	require.NoError(t, err)
	assert.EqualValues(t, 42, id)

	require.NoError(t, svc.Destroy(ctx, token))
	assert.False(t, mr.Exists(key))
	_, err = svc.Resolve(ctx, token)
	assert.ErrorIs(t, err, ErrNoSession)
}

func TestSessionService_RedisMissingAndMalformed(t *testing.T) {
	svc, mr := newRedisSessions(t, time.Hour)
	ctx := context.Background()

	_, err := svc.Resolve(ctx, "never-issued")
	assert.ErrorIs(t, err, ErrNoSession)

	require.NoError(t, mr.Set(hash.SessionKey("garbage"), "not-a-number"))
	_, err = svc.Resolve(ctx, "garbage")
	assert.ErrorIs(t, err, ErrNoSession)

	require.NoError(t, mr.Set(hash.SessionKey("zero"), "0"))
	_, err = svc.Resolve(ctx, "zero")
	assert.ErrorIs(t, err, ErrNoSession)
}

func TestSessionService_RedisExpiry(t *testing.T) {
	svc, mr := newRedisSessions(t, time.Minute)
	ctx := context.Background()

	token, err := svc.Create(ctx, 7)
	require.NoError(t, err)

	mr.FastForward(2 * time.Minute)
	_, err = svc.Resolve(ctx, token)
	assert.ErrorIs(t, err, ErrNoSession)
}

func TestSessionService_RedisUnavailable(t *testing.T) {
	mr := miniredis.NewMiniRedis()
	require.NoError(t, mr.Start())
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	svc := NewSessionServiceWithClient(rdb, time.Hour, testLog)
	t.Cleanup(func() { _ = svc.Close() })
	ctx := context.Background()

	token, err := svc.Create(ctx, 1)
	require.NoError(t, err)

	mr.Close()
	_, err = svc.Resolve(ctx, token)
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrNoSession)
}
