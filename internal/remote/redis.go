package remote

import (
	"context"
	"crypto/tls"
	"errors"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/sony/gobreaker/v2"

	"github.com/mealtier/mealtier/internal/policy"
)

// redisClient implements Client against a Redis-protocol backend.
//
// Every command runs under the configured timeout and inside a circuit
// breaker. Failures (including timeouts and an open breaker) degrade to the
// command's neutral value; only Ping reports them.
type redisClient struct {
	rdb     *redis.Client
	breaker *gobreaker.CircuitBreaker[any]
	log     zerolog.Logger
	pol     policy.Degradation
	timeout time.Duration
	closed  atomic.Bool
}

var _ Client = (*redisClient)(nil)

// newRedisClient creates a Redis-backed client.
func newRedisClient(cfg *Config, pol policy.Degradation) *redisClient {
	log := logger().With().Str("backend", "redis").Logger()

	opts := &redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	}
	if cfg.Redis.TLS {
		opts.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	}

	breaker := gobreaker.NewCircuitBreaker[any](gobreaker.Settings{
		Name:    "remote-cache",
		Timeout: pol.BreakerCooldown,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= pol.BreakerFailureThreshold
		},
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, redis.Nil)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn().
				Str("breaker", name).
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("remote cache breaker state change")
		},
	})

	log.Info().
		Str("addr", cfg.Redis.Addr).
		Int("db", cfg.Redis.DB).
		Bool("tls", cfg.Redis.TLS).
		Dur("timeout", cfg.Timeout).
		Msg("redis client created")

	return &redisClient{
		rdb:     redis.NewClient(opts),
		breaker: breaker,
		log:     log,
		pol:     pol,
		timeout: cfg.Timeout,
	}
}

// run executes one command under the timeout and breaker, mapping any
// failure to the fallback value. redis.Nil passes through as a miss
// without being counted against the breaker.
func run[T any](c *redisClient, ctx context.Context, op, key string, fallback T, fn func(ctx context.Context) (T, error)) T {
	if c.closed.Load() {
		return fallback
	}

	tctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	v, err := c.breaker.Execute(func() (any, error) {
		return fn(tctx)
	})
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return fallback
		}
		evt := c.log.Warn()
		if !c.pol.SoftCacheFailures {
			evt = c.log.Error()
		}
		evt.Err(err).Str("op", op).Str("key", key).Msg("remote cache command failed")
		return fallback
	}

	out, ok := v.(T)
	if !ok {
		return fallback
	}
	return out
}

func (c *redisClient) Get(ctx context.Context, key string) string {
	return run(c, ctx, "get", key, "", func(ctx context.Context) (string, error) {
		return c.rdb.Get(ctx, key).Result()
	})
}

func (c *redisClient) Set(ctx context.Context, key, value string, ttl time.Duration) bool {
	return run(c, ctx, "set", key, false, func(ctx context.Context) (bool, error) {
		if err := c.rdb.Set(ctx, key, value, ttl).Err(); err != nil {
			return false, err
		}
		return true, nil
	})
}

func (c *redisClient) SetNX(ctx context.Context, key, value string, ttl time.Duration) bool {
	return run(c, ctx, "setnx", key, false, func(ctx context.Context) (bool, error) {
		return c.rdb.SetNX(ctx, key, value, ttl).Result()
	})
}

func (c *redisClient) Del(ctx context.Context, keys ...string) int64 {
	if len(keys) == 0 {
		return 0
	}
	return run(c, ctx, "del", keys[0], 0, func(ctx context.Context) (int64, error) {
		return c.rdb.Del(ctx, keys...).Result()
	})
}

func (c *redisClient) Exists(ctx context.Context, key string) bool {
	return run(c, ctx, "exists", key, false, func(ctx context.Context) (bool, error) {
		n, err := c.rdb.Exists(ctx, key).Result()
		return n > 0, err
	})
}

func (c *redisClient) Expire(ctx context.Context, key string, ttl time.Duration) bool {
	return run(c, ctx, "expire", key, false, func(ctx context.Context) (bool, error) {
		return c.rdb.Expire(ctx, key, ttl).Result()
	})
}

func (c *redisClient) Incr(ctx context.Context, key string) int64 {
	return run(c, ctx, "incr", key, 0, func(ctx context.Context) (int64, error) {
		return c.rdb.Incr(ctx, key).Result()
	})
}

func (c *redisClient) HGet(ctx context.Context, key, field string) string {
	return run(c, ctx, "hget", key, "", func(ctx context.Context) (string, error) {
		return c.rdb.HGet(ctx, key, field).Result()
	})
}

func (c *redisClient) HSet(ctx context.Context, key string, fields map[string]string) bool {
	return run(c, ctx, "hset", key, false, func(ctx context.Context) (bool, error) {
		if err := c.rdb.HSet(ctx, key, fields).Err(); err != nil {
			return false, err
		}
		return true, nil
	})
}

func (c *redisClient) HGetAll(ctx context.Context, key string) map[string]string {
	return run(c, ctx, "hgetall", key, map[string]string{}, func(ctx context.Context) (map[string]string, error) {
		return c.rdb.HGetAll(ctx, key).Result()
	})
}

func (c *redisClient) RPush(ctx context.Context, key string, values ...string) int64 {
	args := make([]any, len(values))
	for i, v := range values {
		args[i] = v
	}
	return run(c, ctx, "rpush", key, 0, func(ctx context.Context) (int64, error) {
		return c.rdb.RPush(ctx, key, args...).Result()
	})
}

func (c *redisClient) LRange(ctx context.Context, key string, start, stop int64) []string {
	return run(c, ctx, "lrange", key, []string(nil), func(ctx context.Context) ([]string, error) {
		return c.rdb.LRange(ctx, key, start, stop).Result()
	})
}

func (c *redisClient) LRem(ctx context.Context, key string, count int64, value string) int64 {
	return run(c, ctx, "lrem", key, 0, func(ctx context.Context) (int64, error) {
		return c.rdb.LRem(ctx, key, count, value).Result()
	})
}

func (c *redisClient) ZAdd(ctx context.Context, key string, score float64, member string) bool {
	return run(c, ctx, "zadd", key, false, func(ctx context.Context) (bool, error) {
		if err := c.rdb.ZAdd(ctx, key, redis.Z{Score: score, Member: member}).Err(); err != nil {
			return false, err
		}
		return true, nil
	})
}

func (c *redisClient) ZCard(ctx context.Context, key string) int64 {
	return run(c, ctx, "zcard", key, 0, func(ctx context.Context) (int64, error) {
		return c.rdb.ZCard(ctx, key).Result()
	})
}

func (c *redisClient) ZRangeWithScores(ctx context.Context, key string, start, stop int64) []Z {
	return run(c, ctx, "zrange", key, []Z(nil), func(ctx context.Context) ([]Z, error) {
		zs, err := c.rdb.ZRangeWithScores(ctx, key, start, stop).Result()
		if err != nil {
			return nil, err
		}
		out := make([]Z, len(zs))
		for i, z := range zs {
			member, _ := z.Member.(string)
			out[i] = Z{Score: z.Score, Member: member}
		}
		return out, nil
	})
}

func (c *redisClient) ZRemRangeByScore(ctx context.Context, key string, min, max float64) int64 {
	lo := strconv.FormatFloat(min, 'f', -1, 64)
	hi := strconv.FormatFloat(max, 'f', -1, 64)
	return run(c, ctx, "zremrangebyscore", key, 0, func(ctx context.Context) (int64, error) {
		return c.rdb.ZRemRangeByScore(ctx, key, lo, hi).Result()
	})
}

func (c *redisClient) Scan(ctx context.Context, pattern string, count int64) []string {
	return run(c, ctx, "scan", pattern, []string(nil), func(ctx context.Context) ([]string, error) {
		var (
			cursor uint64
			out    []string
		)
		for {
			keys, next, err := c.rdb.Scan(ctx, cursor, pattern, count).Result()
			if err != nil {
				return nil, err
			}
			out = append(out, keys...)
			if next == 0 {
				return out, nil
			}
			cursor = next
		}
	})
}

func (c *redisClient) Pipeline() Pipeline {
	return &redisPipeline{client: c, pipe: c.rdb.Pipeline()}
}

func (c *redisClient) Ping(ctx context.Context) error {
	if c.closed.Load() {
		return ErrClosed
	}

	tctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	_, err := c.breaker.Execute(func() (any, error) {
		return nil, c.rdb.Ping(tctx).Err()
	})
	if errors.Is(err, gobreaker.ErrOpenState) {
		return ErrBreakerOpen
	}
	return err
}

func (c *redisClient) Enabled() bool {
	return !c.closed.Load()
}

func (c *redisClient) Close() error {
	if c.closed.Load() {
		return nil
	}
	c.closed.Store(true)
	err := c.rdb.Close()
	c.log.Info().Msg("redis client closed")
	return err
}

// redisPipeline batches commands onto a go-redis pipeliner.
type redisPipeline struct {
	client *redisClient
	pipe   redis.Pipeliner
}

var _ Pipeline = (*redisPipeline)(nil)

func (p *redisPipeline) Set(key, value string, ttl time.Duration) {
	p.pipe.Set(context.Background(), key, value, ttl)
}

func (p *redisPipeline) Del(keys ...string) {
	if len(keys) == 0 {
		return
	}
	p.pipe.Del(context.Background(), keys...)
}

func (p *redisPipeline) RPush(key string, values ...string) {
	args := make([]any, len(values))
	for i, v := range values {
		args[i] = v
	}
	p.pipe.RPush(context.Background(), key, args...)
}

func (p *redisPipeline) Expire(key string, ttl time.Duration) {
	p.pipe.Expire(context.Background(), key, ttl)
}

func (p *redisPipeline) ZAdd(key string, score float64, member string) {
	p.pipe.ZAdd(context.Background(), key, redis.Z{Score: score, Member: member})
}

func (p *redisPipeline) ZRemRangeByScore(key string, min, max float64) {
	lo := strconv.FormatFloat(min, 'f', -1, 64)
	hi := strconv.FormatFloat(max, 'f', -1, 64)
	p.pipe.ZRemRangeByScore(context.Background(), key, lo, hi)
}

func (p *redisPipeline) Exec(ctx context.Context) bool {
	c := p.client
	return run(c, ctx, "pipeline", "", false, func(ctx context.Context) (bool, error) {
		if _, err := p.pipe.Exec(ctx); err != nil && !errors.Is(err, redis.Nil) {
			return false, err
		}
		return true, nil
	})
}
