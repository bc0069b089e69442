package redis

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/scry-fsrs/internal/domain/srs"
	"github.com/phrazzld/scry-fsrs/internal/store"
	goredis "github.com/redis/go-redis/v9"
)

const (
	keyPrefix   = "scry:progress:"
	fieldNew    = "new"
	fieldReview = "review"

	// DefaultTTL keeps a day's counters long enough to cover every time zone.
	DefaultTTL = 48 * time.Hour
)

// ProgressStore implements store.ProgressStore with one Redis hash per deck
// and review day. Counters expire on their own once the day is over.
type ProgressStore struct {
	client *goredis.Client
	ttl    time.Duration
	logger *slog.Logger
}

var _ store.ProgressStore = (*ProgressStore)(nil)

// Option configures a ProgressStore.
type Option func(*ProgressStore)

// WithTTL overrides DefaultTTL.
func WithTTL(ttl time.Duration) Option {
	return func(s *ProgressStore) { s.ttl = ttl }
}

// Connect parses redisURL, connects and pings the server.
func Connect(ctx context.Context, redisURL string, logger *slog.Logger, opts ...Option) (*ProgressStore, error) {
	options, err := goredis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := goredis.NewClient(options)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return NewProgressStore(client, logger, opts...), nil
}

// NewProgressStore wraps an existing client.
func NewProgressStore(client *goredis.Client, logger *slog.Logger, opts ...Option) *ProgressStore {
	if client == nil {
		panic("client cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	s := &ProgressStore{
		client: client,
		ttl:    DefaultTTL,
		logger: logger.With(slog.String("component", "redis_progress_store")),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Key returns the hash key holding a deck's counters for day.
func Key(deckID uuid.UUID, day time.Time) string {
	return keyPrefix + deckID.String() + ":" + store.DayKey(day)
}

// Get implements store.ProgressStore.
func (s *ProgressStore) Get(ctx context.Context, deckID uuid.UUID, day time.Time) (srs.DailyProgress, error) {
	values, err := s.client.HMGet(ctx, Key(deckID, day), fieldNew, fieldReview).Result()
	if err != nil {
		return srs.DailyProgress{}, store.NewStoreError("progress", "get", "failed to read counters", err)
	}

	newSeen, err := counter(values[0])
	if err != nil {
		return srs.DailyProgress{}, store.NewStoreError("progress", "get", "corrupt new counter", err)
	}
	reviewSeen, err := counter(values[1])
	if err != nil {
		return srs.DailyProgress{}, store.NewStoreError("progress", "get", "corrupt review counter", err)
	}
	return srs.DailyProgress{NewCardsSeen: newSeen, ReviewCardsSeen: reviewSeen}, nil
}

// Add implements store.ProgressStore. Both counters and the expiry are
// updated in one MULTI/EXEC block.
func (s *ProgressStore) Add(ctx context.Context, deckID uuid.UUID, day time.Time, delta srs.DailyProgress) (srs.DailyProgress, error) {
	key := Key(deckID, day)

	var newCmd, reviewCmd *goredis.IntCmd
	_, err := s.client.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
		newCmd = pipe.HIncrBy(ctx, key, fieldNew, int64(delta.NewCardsSeen))
		reviewCmd = pipe.HIncrBy(ctx, key, fieldReview, int64(delta.ReviewCardsSeen))
		pipe.Expire(ctx, key, s.ttl)
		return nil
	})
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to increment progress",
			slog.String("key", key),
			slog.String("error", err.Error()))
		return srs.DailyProgress{}, store.NewStoreError("progress", "add", "failed to increment counters", err)
	}

	return srs.DailyProgress{
		NewCardsSeen:    int(newCmd.Val()),
		ReviewCardsSeen: int(reviewCmd.Val()),
	}, nil
}

// Close closes the underlying client.
func (s *ProgressStore) Close() error {
	return s.client.Close()
}

var errUnexpectedType = errors.New("unexpected counter type")

func counter(v any) (int, error) {
	switch v := v.(type) {
	case nil:
		return 0, nil
	case string:
		return strconv.Atoi(v)
	default:
		return 0, fmt.Errorf("%w: %T", errUnexpectedType, v)
	}
}
