package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/0xcro3dile/netra-go/internal/domain/entities"
	"github.com/0xcro3dile/netra-go/internal/domain/ports"
)

// DefaultRedisPrefix namespaces every key the cache writes.
const DefaultRedisPrefix = "netra:answer:"

// RedisConfig configures the Redis cache.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	Prefix   string
	MaxSize  int
	TTL      time.Duration
}

// Redis shares cached answers between instances. Hit and miss counters
// live in Redis too. Redis failures degrade to cache misses.
type Redis struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
	max    int
	logger *zap.Logger
}

// NewRedis connects and pings the server.
func NewRedis(ctx context.Context, cfg RedisConfig, logger *zap.Logger) (*Redis, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("connecting to redis at %s: %w", cfg.Addr, err)
	}
	return NewRedisFromClient(client, cfg, logger), nil
}

// NewRedisFromClient wraps an existing client.
func NewRedisFromClient(client *redis.Client, cfg RedisConfig, logger *zap.Logger) *Redis {
	if cfg.Prefix == "" {
		cfg.Prefix = DefaultRedisPrefix
	}
	if cfg.TTL <= 0 {
		cfg.TTL = 24 * time.Hour
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Redis{
		client: client,
		prefix: cfg.Prefix,
		ttl:    cfg.TTL,
		max:    cfg.MaxSize,
		logger: logger.With(zap.String("backend", "redis")),
	}
}

func (r *Redis) key(question string) string { return r.prefix + Key(question) }
func (r *Redis) hitsKey() string            { return r.prefix + "stats:hits" }
func (r *Redis) missesKey() string          { return r.prefix + "stats:misses" }

func (r *Redis) Get(ctx context.Context, question string) (*entities.Answer, bool) {
	data, err := r.client.Get(ctx, r.key(question)).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			r.logger.Warn("cache read failed", zap.Error(err))
		}
		r.client.Incr(ctx, r.missesKey())
		return nil, false
	}

	var answer entities.Answer
	if err := json.Unmarshal(data, &answer); err != nil {
		r.logger.Warn("discarding corrupt cache entry", zap.Error(err))
		r.client.Del(ctx, r.key(question))
		r.client.Incr(ctx, r.missesKey())
		return nil, false
	}
	r.client.Incr(ctx, r.hitsKey())
	return &answer, true
}

func (r *Redis) Set(ctx context.Context, question string, answer *entities.Answer) {
	if answer == nil {
		return
	}
	data, err := json.Marshal(answer)
	if err != nil {
		r.logger.Warn("cache encode failed", zap.Error(err))
		return
	}
	if err := r.client.Set(ctx, r.key(question), data, r.ttl).Err(); err != nil {
		r.logger.Warn("cache write failed", zap.Error(err))
	}
}

// scanAnswerKeys lists answer keys, excluding the counters.
func (r *Redis) scanAnswerKeys(ctx context.Context) ([]string, error) {
	var (
		keys   []string
		cursor uint64
	)
	for {
		batch, next, err := r.client.Scan(ctx, cursor, r.prefix+"*", 100).Result()
		if err != nil {
			return nil, err
		}
		for _, k := range batch {
			if k != r.hitsKey() && k != r.missesKey() {
				keys = append(keys, k)
			}
		}
		if next == 0 {
			return keys, nil
		}
		cursor = next
	}
}

// Clear removes cached answers and resets the counters.
func (r *Redis) Clear(ctx context.Context) error {
	keys, err := r.scanAnswerKeys(ctx)
	if err != nil {
		return fmt.Errorf("scanning cache keys: %w", err)
	}
	keys = append(keys, r.hitsKey(), r.missesKey())
	if err := r.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("deleting cache keys: %w", err)
	}
	r.logger.Info("response cache cleared", zap.Int("keys", len(keys)-2))
	return nil
}

func (r *Redis) Stats(ctx context.Context) ports.CacheStats {
	stats := ports.CacheStats{
		Backend:    "redis",
		MaxSize:    r.max,
		TTLSeconds: int(r.ttl / time.Second),
	}
	if keys, err := r.scanAnswerKeys(ctx); err == nil {
		stats.Size = len(keys)
	} else {
		r.logger.Warn("cache stats unavailable", zap.Error(err))
	}
	stats.Hits, _ = r.client.Get(ctx, r.hitsKey()).Int64()
	stats.Misses, _ = r.client.Get(ctx, r.missesKey()).Int64()
	stats.HitRate = hitRate(stats.Hits, stats.Misses)
	return stats
}

// Close releases the connection pool.
func (r *Redis) Close() error {
	return r.client.Close()
}
