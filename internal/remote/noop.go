package remote

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
)

// noopClient is the client used when no cache backend is configured.
// Every read misses, every write is dropped, Enabled reports false.
type noopClient struct {
	log    zerolog.Logger
	closed atomic.Bool
}

var _ Client = (*noopClient)(nil)

// newNoopClient creates a disabled client.
func newNoopClient() *noopClient {
	log := logger().With().Str("backend", "noop").Logger()
	log.Debug().Str("note", "remote cache is disabled").Msg("noop client created")
	return &noopClient{log: log}
}

func (c *noopClient) Get(context.Context, string) string { return "" }

func (c *noopClient) Set(context.Context, string, string, time.Duration) bool { return false }

func (c *noopClient) SetNX(context.Context, string, string, time.Duration) bool { return false }

func (c *noopClient) Del(context.Context, ...string) int64 { return 0 }

func (c *noopClient) Exists(context.Context, string) bool { return false }

func (c *noopClient) Expire(context.Context, string, time.Duration) bool { return false }

func (c *noopClient) Incr(context.Context, string) int64 { return 0 }

func (c *noopClient) HGet(context.Context, string, string) string { return "" }

func (c *noopClient) HSet(context.Context, string, map[string]string) bool { return false }

func (c *noopClient) HGetAll(context.Context, string) map[string]string {
	return map[string]string{}
}

func (c *noopClient) RPush(context.Context, string, ...string) int64 { return 0 }

func (c *noopClient) LRange(context.Context, string, int64, int64) []string { return nil }

func (c *noopClient) LRem(context.Context, string, int64, string) int64 { return 0 }

func (c *noopClient) ZAdd(context.Context, string, float64, string) bool { return false }

func (c *noopClient) ZCard(context.Context, string) int64 { return 0 }

func (c *noopClient) ZRangeWithScores(context.Context, string, int64, int64) []Z { return nil }

func (c *noopClient) ZRemRangeByScore(context.Context, string, float64, float64) int64 { return 0 }

func (c *noopClient) Scan(context.Context, string, int64) []string { return nil }

func (c *noopClient) Pipeline() Pipeline { return &noopPipeline{} }

func (c *noopClient) Ping(context.Context) error {
	if c.closed.Load() {
		return ErrClosed
	}
	return ErrNotConfigured
}

// Enabled reports false: there is no backend to populate.
func (c *noopClient) Enabled() bool { return false }

func (c *noopClient) Close() error {
	if c.closed.Load() {
		return nil
	}
	c.closed.Store(true)
	c.log.Debug().Msg("noop client closed")
	return nil
}

type noopPipeline struct{}

var _ Pipeline = (*noopPipeline)(nil)

func (noopPipeline) Set(string, string, time.Duration)         {}
func (noopPipeline) Del(...string)                             {}
func (noopPipeline) RPush(string, ...string)                   {}
func (noopPipeline) Expire(string, time.Duration)              {}
func (noopPipeline) ZAdd(string, float64, string)              {}
func (noopPipeline) ZRemRangeByScore(string, float64, float64) {}
func (noopPipeline) Exec(context.Context) bool                 { return false }
