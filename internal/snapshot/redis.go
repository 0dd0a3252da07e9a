package snapshot

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"MarketPulse/internal/model"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// RedisConfig holds connection parameters for the Redis-backed store.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	// TTL bounds how long an entry may serve as the cached tier. Zero keeps
	// entries until overwritten.
	TTL time.Duration
}

// RedisStore keeps snapshots as JSON values at "snapshot:{SYMBOL}". Redis
// errors degrade to a miss on Get and are logged and dropped on Put.
type RedisStore struct {
	rdb *redis.Client
	ttl time.Duration
	log zerolog.Logger
}

// Ensure RedisStore implements Store.
var _ Store = (*RedisStore)(nil)

// NewRedisStore connects to Redis and verifies the connection with a ping.
func NewRedisStore(ctx context.Context, cfg RedisConfig, logger zerolog.Logger) (*RedisStore, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis: ping: %w", err)
	}
	return newRedisStore(rdb, cfg.TTL, logger), nil
}

func newRedisStore(rdb *redis.Client, ttl time.Duration, logger zerolog.Logger) *RedisStore {
	return &RedisStore{
		rdb: rdb,
		ttl: ttl,
		log: logger.With().Str("component", "redis-store").Logger(),
	}
}

func snapshotKey(symbol string) string {
	return "snapshot:" + symbol
}

func (s *RedisStore) Get(ctx context.Context, symbol string) (model.Snapshot, bool) {
	raw, err := s.rdb.Get(ctx, snapshotKey(symbol)).Bytes()
	if errors.Is(err, redis.Nil) {
		return model.Snapshot{}, false
	}
	if err != nil {
		s.log.Warn().Err(err).Str("symbol", symbol).Msg("redis get failed, treating as miss")
		return model.Snapshot{}, false
	}
	var snap model.Snapshot
	if err := json.Unmarshal(raw, &snap); err != nil {
		s.log.Warn().Err(err).Str("symbol", symbol).Msg("corrupt cached snapshot")
		return model.Snapshot{}, false
	}
	return snap, true
}

func (s *RedisStore) Put(ctx context.Context, snap model.Snapshot) {
	raw, err := json.Marshal(snap)
	if err != nil {
		s.log.Warn().Err(err).Str("symbol", snap.Symbol).Msg("encode snapshot")
		return
	}
	if err := s.rdb.Set(ctx, snapshotKey(snap.Symbol), raw, s.ttl).Err(); err != nil {
		s.log.Warn().Err(err).Str("symbol", snap.Symbol).Msg("redis set failed")
	}
}

// Close closes the Redis connection.
func (s *RedisStore) Close() error {
	return s.rdb.Close()
}
