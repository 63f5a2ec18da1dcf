package remote

import (
	"context"
	"path"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
)

// memoryClient implements Client with an in-process map.
//
// It mirrors the Redis backend's visible semantics closely enough for
// tests and offline development: per-key TTLs checked lazily on access,
// hashes, lists, sorted sets, glob Scan, and a batched pipeline. It is not
// shared across processes and does not survive a restart.
type memoryClient struct {
	mu     sync.Mutex
	data   map[string]*memEntry
	log    zerolog.Logger
	closed atomic.Bool

	// now is swappable so TTL tests can travel in time.
	now func() time.Time
}

type memEntry struct {
	str       string
	hash      map[string]string
	list      []string
	zset      map[string]float64
	expiresAt time.Time // zero means no expiry
}

var _ Client = (*memoryClient)(nil)

// newMemoryClient creates an in-process client.
func newMemoryClient() *memoryClient {
	log := logger().With().Str("backend", "memory").Logger()
	log.Debug().Msg("memory client created")
	return &memoryClient{
		data: make(map[string]*memEntry),
		log:  log,
		now:  time.Now,
	}
}

// entry returns the live entry for key, expiring it lazily.
// Caller must hold mu.
func (m *memoryClient) entry(key string) *memEntry {
	e, ok := m.data[key]
	if !ok {
		return nil
	}
	if !e.expiresAt.IsZero() && m.now().After(e.expiresAt) {
		delete(m.data, key)
		return nil
	}
	return e
}

// upsert returns the entry for key, creating it if needed.
// Caller must hold mu.
func (m *memoryClient) upsert(key string) *memEntry {
	if e := m.entry(key); e != nil {
		return e
	}
	e := &memEntry{}
	m.data[key] = e
	return e
}

func expiry(now func() time.Time, ttl time.Duration) time.Time {
	if ttl <= 0 {
		return time.Time{}
	}
	return now().Add(ttl)
}

func (m *memoryClient) Get(_ context.Context, key string) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if e := m.entry(key); e != nil {
		return e.str
	}
	return ""
}

func (m *memoryClient) Set(_ context.Context, key, value string, ttl time.Duration) bool {
	if m.closed.Load() {
		return false
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = &memEntry{str: value, expiresAt: expiry(m.now, ttl)}
	return true
}

func (m *memoryClient) SetNX(_ context.Context, key, value string, ttl time.Duration) bool {
	if m.closed.Load() {
		return false
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.entry(key) != nil {
		return false
	}
	m.data[key] = &memEntry{str: value, expiresAt: expiry(m.now, ttl)}
	return true
}

func (m *memoryClient) Del(_ context.Context, keys ...string) int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for _, k := range keys {
		if m.entry(k) != nil {
			delete(m.data, k)
			n++
		}
	}
	return n
}

func (m *memoryClient) Exists(_ context.Context, key string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.entry(key) != nil
}

func (m *memoryClient) Expire(_ context.Context, key string, ttl time.Duration) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	e := m.entry(key)
	if e == nil {
		return false
	}
	e.expiresAt = expiry(m.now, ttl)
	return true
}

func (m *memoryClient) Incr(_ context.Context, key string) int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	e := m.upsert(key)
	var n int64
	for _, c := range e.str {
		if c < '0' || c > '9' {
			return 0
		}
		n = n*10 + int64(c-'0')
	}
	n++
	e.str = itoa(n)
	return n
}

func itoa(n int64) string {
	if n == 0 {
		return "0"
	}
	var buf [20]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	return string(buf[i:])
}

func (m *memoryClient) HGet(_ context.Context, key, field string) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if e := m.entry(key); e != nil {
		return e.hash[field]
	}
	return ""
}

func (m *memoryClient) HSet(_ context.Context, key string, fields map[string]string) bool {
	if m.closed.Load() {
		return false
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	e := m.upsert(key)
	if e.hash == nil {
		e.hash = make(map[string]string, len(fields))
	}
	for f, v := range fields {
		e.hash[f] = v
	}
	return true
}

func (m *memoryClient) HGetAll(_ context.Context, key string) map[string]string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string]string)
	if e := m.entry(key); e != nil {
		for f, v := range e.hash {
			out[f] = v
		}
	}
	return out
}

func (m *memoryClient) RPush(_ context.Context, key string, values ...string) int64 {
	if m.closed.Load() {
		return 0
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	e := m.upsert(key)
	e.list = append(e.list, values...)
	return int64(len(e.list))
}

func (m *memoryClient) LRange(_ context.Context, key string, start, stop int64) []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	e := m.entry(key)
	if e == nil {
		return nil
	}
	n := int64(len(e.list))
	if start < 0 {
		start += n
	}
	if stop < 0 {
		stop += n
	}
	if start < 0 {
		start = 0
	}
	if stop >= n {
		stop = n - 1
	}
	if start > stop || n == 0 {
		return nil
	}
	out := make([]string, stop-start+1)
	copy(out, e.list[start:stop+1])
	return out
}

func (m *memoryClient) LRem(_ context.Context, key string, count int64, value string) int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	e := m.entry(key)
	if e == nil {
		return 0
	}
	var removed int64
	kept := e.list[:0]
	for _, v := range e.list {
		if v == value && (count == 0 || removed < count) {
			removed++
			continue
		}
		kept = append(kept, v)
	}
	e.list = kept
	return removed
}

func (m *memoryClient) ZAdd(_ context.Context, key string, score float64, member string) bool {
	if m.closed.Load() {
		return false
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	e := m.upsert(key)
	if e.zset == nil {
		e.zset = make(map[string]float64)
	}
	e.zset[member] = score
	return true
}

func (m *memoryClient) ZCard(_ context.Context, key string) int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	if e := m.entry(key); e != nil {
		return int64(len(e.zset))
	}
	return 0
}

func (m *memoryClient) ZRangeWithScores(_ context.Context, key string, start, stop int64) []Z {
	m.mu.Lock()
	defer m.mu.Unlock()
	e := m.entry(key)
	if e == nil {
		return nil
	}
	all := make([]Z, 0, len(e.zset))
	for member, score := range e.zset {
		all = append(all, Z{Score: score, Member: member})
	}
	sort.Slice(all, func(i, j int) bool {
		if all[i].Score != all[j].Score {
			return all[i].Score < all[j].Score
		}
		return all[i].Member < all[j].Member
	})
	n := int64(len(all))
	if start < 0 {
		start += n
	}
	if stop < 0 {
		stop += n
	}
	if start < 0 {
		start = 0
	}
	if stop >= n {
		stop = n - 1
	}
	if start > stop || n == 0 {
		return nil
	}
	return all[start : stop+1]
}

func (m *memoryClient) ZRemRangeByScore(_ context.Context, key string, min, max float64) int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	e := m.entry(key)
	if e == nil {
		return 0
	}
	var removed int64
	for member, score := range e.zset {
		if score >= min && score <= max {
			delete(e.zset, member)
			removed++
		}
	}
	return removed
}

func (m *memoryClient) Scan(_ context.Context, pattern string, _ int64) []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []string
	for k := range m.data {
		if m.entry(k) == nil {
			continue
		}
		if ok, err := path.Match(pattern, k); err == nil && ok {
			out = append(out, k)
		}
	}
	sort.Strings(out)
	return out
}

func (m *memoryClient) Pipeline() Pipeline {
	return &memoryPipeline{client: m}
}

func (m *memoryClient) Ping(_ context.Context) error {
	if m.closed.Load() {
		return ErrClosed
	}
	return nil
}

func (m *memoryClient) Enabled() bool {
	return !m.closed.Load()
}

func (m *memoryClient) Close() error {
	if m.closed.Load() {
		return nil
	}
	m.closed.Store(true)
	m.mu.Lock()
	m.data = make(map[string]*memEntry)
	m.mu.Unlock()
	m.log.Debug().Msg("memory client closed")
	return nil
}

// memoryPipeline queues closures and replays them on Exec. There is no
// round trip to save in-process; the type exists so pipeline-using code
// paths behave identically across backends.
type memoryPipeline struct {
	client *memoryClient
	ops    []func(ctx context.Context)
}

var _ Pipeline = (*memoryPipeline)(nil)

func (p *memoryPipeline) Set(key, value string, ttl time.Duration) {
	p.ops = append(p.ops, func(ctx context.Context) { p.client.Set(ctx, key, value, ttl) })
}

func (p *memoryPipeline) Del(keys ...string) {
	p.ops = append(p.ops, func(ctx context.Context) { p.client.Del(ctx, keys...) })
}

func (p *memoryPipeline) RPush(key string, values ...string) {
	p.ops = append(p.ops, func(ctx context.Context) { p.client.RPush(ctx, key, values...) })
}

func (p *memoryPipeline) Expire(key string, ttl time.Duration) {
	p.ops = append(p.ops, func(ctx context.Context) { p.client.Expire(ctx, key, ttl) })
}

func (p *memoryPipeline) ZAdd(key string, score float64, member string) {
	p.ops = append(p.ops, func(ctx context.Context) { p.client.ZAdd(ctx, key, score, member) })
}

func (p *memoryPipeline) ZRemRangeByScore(key string, min, max float64) {
	p.ops = append(p.ops, func(ctx context.Context) { p.client.ZRemRangeByScore(ctx, key, min, max) })
}

func (p *memoryPipeline) Exec(ctx context.Context) bool {
	if p.client.closed.Load() {
		return false
	}
	for _, op := range p.ops {
		op(ctx)
	}
	p.ops = nil
	return true
}
