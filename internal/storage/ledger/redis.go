package ledger

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/newthinker/pulse/internal/core"
)

// RedisConfig configures the Redis store.
type RedisConfig struct {
	Addr      string
	Password  string
	DB        int
	Prefix    string
	Retention time.Duration
}

// RedisOption configures the Redis store.
type RedisOption func(*RedisConfig)

func WithRedisAddr(addr string) RedisOption {
	return func(c *RedisConfig) { c.Addr = addr }
}

func WithRedisPassword(password string) RedisOption {
	return func(c *RedisConfig) { c.Password = password }
}

func WithRedisDB(db int) RedisOption {
	return func(c *RedisConfig) { c.DB = db }
}

func WithRedisPrefix(prefix string) RedisOption {
	return func(c *RedisConfig) { c.Prefix = prefix }
}

// WithRedisRetention bounds how long a key suppresses repeats.
func WithRedisRetention(d time.Duration) RedisOption {
	return func(c *RedisConfig) { c.Retention = d }
}

// Redis keeps keys in a sorted set scored by first-seen unix time.
type Redis struct {
	client    *redis.Client
	key       string
	retention time.Duration
	now       func() time.Time
}

// NewRedis connects and pings the server.
func NewRedis(opts ...RedisOption) (*Redis, error) {
	cfg := &RedisConfig{
		Addr:      "localhost:6379",
		Prefix:    "pulse",
		Retention: 24 * time.Hour,
	}
	for _, opt := range opts {
		opt(cfg)
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, core.WrapError(core.ErrStoreFailed, fmt.Errorf("redis ping: %w", err))
	}

	return newRedis(client, cfg), nil
}

func newRedis(client *redis.Client, cfg *RedisConfig) *Redis {
	return &Redis{
		client:    client,
		key:       setKey(cfg.Prefix),
		retention: cfg.Retention,
		now:       time.Now,
	}
}

func setKey(prefix string) string {
	if prefix == "" {
		return "dedup:keys"
	}
	return prefix + ":dedup:keys"
}

func (r *Redis) minScore() string {
	if r.retention <= 0 {
		return "-inf"
	}
	return strconv.FormatInt(r.now().Add(-r.retention).Unix(), 10)
}

// Load returns keys first seen within the retention window.
func (r *Redis) Load(ctx context.Context) ([]string, error) {
	keys, err := r.client.ZRangeByScore(ctx, r.key, &redis.ZRangeBy{
		Min: r.minScore(),
		Max: "+inf",
	}).Result()
	if err != nil {
		return nil, core.WrapError(core.ErrStoreFailed, fmt.Errorf("load keys: %w", err))
	}
	return keys, nil
}

// Save adds new keys without touching existing scores and trims expired ones.
func (r *Redis) Save(ctx context.Context, keys []string) error {
	if len(keys) == 0 {
		return nil
	}

	score := float64(r.now().Unix())
	members := make([]redis.Z, len(keys))
	for i, k := range keys {
		members[i] = redis.Z{Score: score, Member: k}
	}

	pipe := r.client.TxPipeline()
	pipe.ZAddNX(ctx, r.key, members...)
	if r.retention > 0 {
		pipe.ZRemRangeByScore(ctx, r.key, "-inf", "("+r.minScore())
		pipe.Expire(ctx, r.key, r.retention)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return core.WrapError(core.ErrStoreFailed, fmt.Errorf("save keys: %w", err))
	}
	return nil
}

// Close closes the Redis connection.
func (r *Redis) Close() error {
	return r.client.Close()
}
