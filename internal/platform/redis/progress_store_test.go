package redis_test

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/phrazzld/scry-fsrs/internal/domain/srs"
	"github.com/phrazzld/scry-fsrs/internal/platform/redis"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newStore(t *testing.T, opts ...redis.Option) (*redis.ProgressStore, *miniredis.Miniredis) {
	t.Helper()
	srv := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: srv.Addr()})
	s := redis.NewProgressStore(client, slog.New(slog.DiscardHandler), opts...)
	t.Cleanup(func() { _ = s.Close() })
	return s, srv
}

func TestProgressStore_GetEmpty(t *testing.T) {
	s, _ := newStore(t)

	got, err := s.Get(context.Background(), uuid.New(), time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Equal(t, srs.DailyProgress{}, got)
}

func TestProgressStore_Add(t *testing.T) {
	ctx := context.Background()
	s, srv := newStore(t)
	deckID := uuid.New()
	day := time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)

	got, err := s.Add(ctx, deckID, day, srs.DailyProgress{NewCardsSeen: 1})
	require.NoError(t, err)
	assert.Equal(t, srs.DailyProgress{NewCardsSeen: 1}, got)

	got, err = s.Add(ctx, deckID, day, srs.DailyProgress{ReviewCardsSeen: 3})
	require.NoError(t, err)
	assert.Equal(t, srs.DailyProgress{NewCardsSeen: 1, ReviewCardsSeen: 3}, got)

	got, err = s.Get(ctx, deckID, day)
	require.NoError(t, err)
	assert.Equal(t, srs.DailyProgress{NewCardsSeen: 1, ReviewCardsSeen: 3}, got)

	key := redis.Key(deckID, day)
	assert.Equal(t, "scry:progress:"+deckID.String()+":2025-03-10", key)
	assert.Equal(t, "1", srv.HGet(key, "new"))
	assert.Equal(t, redis.DefaultTTL, srv.TTL(key))

	other, err := s.Get(ctx, deckID, day.AddDate(0, 0, 1))
	require.NoError(t, err)
	assert.Equal(t, srs.DailyProgress{}, other, "each day has its own counters")
}

func TestProgressStore_Expiry(t *testing.T) {
	ctx := context.Background()
	s, srv := newStore(t, redis.WithTTL(time.Hour))
	deckID := uuid.New()
	day := time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)

	_, err := s.Add(ctx, deckID, day, srs.DailyProgress{NewCardsSeen: 2})
	require.NoError(t, err)

	srv.FastForward(2 * time.Hour)
	assert.False(t, srv.Exists(redis.Key(deckID, day)))

	got, err := s.Get(ctx, deckID, day)
	require.NoError(t, err)
	assert.Equal(t, srs.DailyProgress{}, got)
}

func TestProgressStore_CorruptCounter(t *testing.T) {
	ctx := context.Background()
	s, srv := newStore(t)
	deckID := uuid.New()
	day := time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)

	srv.HSet(redis.Key(deckID, day), "new", "lots")
	_, err := s.Get(ctx, deckID, day)
	assert.Error(t, err)
}

func TestProgressStore_ServerDown(t *testing.T) {
	ctx := context.Background()
	s, srv := newStore(t)
	srv.Close()

	_, err := s.Add(ctx, uuid.New(), time.Now(), srs.DailyProgress{NewCardsSeen: 1})
	assert.Error(t, err)
}

func TestConnect(t *testing.T) {
	ctx := context.Background()
	srv := miniredis.RunT(t)

	s, err := redis.Connect(ctx, "redis://"+srv.Addr()+"/0", nil)
	require.NoError(t, err)
	defer func() { _ = s.Close() }()

	_, err = redis.Connect(ctx, "not a url", nil)
	assert.Error(t, err)
}
