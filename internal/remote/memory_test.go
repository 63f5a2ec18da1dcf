package remote

import (
	"context"
	"errors"
	"testing"
	"time"
)

func newTestMemoryClient(t *testing.T) *memoryClient {
	t.Helper()
	c := newMemoryClient()
	t.Cleanup(func() {
		_ = c.Close()
	})
	return c
}

func TestMemoryClient_GetSet(t *testing.T) {
	c := newTestMemoryClient(t)
	ctx := context.Background()

	if got := c.Get(ctx, "missing"); got != "" {
		t.Errorf("Get missing key = %q, want empty", got)
	}

	if !c.Set(ctx, "k", "v", 0) {
		t.Fatal("Set failed")
	}
	if got := c.Get(ctx, "k"); got != "v" {
		t.Errorf("Get = %q, want %q", got, "v")
	}

	if n := c.Del(ctx, "k", "never-existed"); n != 1 {
		t.Errorf("Del removed %d keys, want 1", n)
	}
	if c.Exists(ctx, "k") {
		t.Error("key still exists after Del")
	}
}

func TestMemoryClient_TTLExpiry(t *testing.T) {
	c := newTestMemoryClient(t)
	ctx := context.Background()

	now := time.Now()
	c.now = func() time.Time { return now }

	c.Set(ctx, "k", "v", time.Minute)
	if got := c.Get(ctx, "k"); got != "v" {
		t.Fatalf("Get before expiry = %q, want %q", got, "v")
	}

	now = now.Add(time.Minute + time.Second)
	if got := c.Get(ctx, "k"); got != "" {
		t.Errorf("Get after expiry = %q, want empty", got)
	}
	if c.Exists(ctx, "k") {
		t.Error("expired key still reported by Exists")
	}
}

func TestMemoryClient_SetNX(t *testing.T) {
	c := newTestMemoryClient(t)
	ctx := context.Background()

	if !c.SetNX(ctx, "k", "first", 0) {
		t.Fatal("SetNX on empty key failed")
	}
	if c.SetNX(ctx, "k", "second", 0) {
		t.Error("SetNX overwrote an existing key")
	}
	if got := c.Get(ctx, "k"); got != "first" {
		t.Errorf("Get = %q, want %q", got, "first")
	}
}

func TestMemoryClient_Incr(t *testing.T) {
	c := newTestMemoryClient(t)
	ctx := context.Background()

	for want := int64(1); want <= 3; want++ {
		if got := c.Incr(ctx, "counter"); got != want {
			t.Errorf("Incr = %d, want %d", got, want)
		}
	}
}

func TestMemoryClient_ListOps(t *testing.T) {
	c := newTestMemoryClient(t)
	ctx := context.Background()

	if n := c.RPush(ctx, "l", "a", "b", "c"); n != 3 {
		t.Fatalf("RPush returned %d, want 3", n)
	}

	got := c.LRange(ctx, "l", 0, -1)
	want := []string{"a", "b", "c"}
	if len(got) != len(want) {
		t.Fatalf("LRange = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("LRange[%d] = %q, want %q", i, got[i], want[i])
		}
	}

	if n := c.LRem(ctx, "l", 0, "b"); n != 1 {
		t.Errorf("LRem removed %d, want 1", n)
	}
	if got := c.LRange(ctx, "l", 0, -1); len(got) != 2 {
		t.Errorf("list length after LRem = %d, want 2", len(got))
	}
}

func TestMemoryClient_SortedSetOps(t *testing.T) {
	c := newTestMemoryClient(t)
	ctx := context.Background()

	c.ZAdd(ctx, "z", 3, "three")
	c.ZAdd(ctx, "z", 1, "one")
	c.ZAdd(ctx, "z", 2, "two")

	if n := c.ZCard(ctx, "z"); n != 3 {
		t.Fatalf("ZCard = %d, want 3", n)
	}

	first := c.ZRangeWithScores(ctx, "z", 0, 0)
	if len(first) != 1 || first[0].Member != "one" {
		t.Errorf("ZRangeWithScores lowest = %+v, want member %q", first, "one")
	}

	if n := c.ZRemRangeByScore(ctx, "z", 0, 2); n != 2 {
		t.Errorf("ZRemRangeByScore removed %d, want 2", n)
	}
	if n := c.ZCard(ctx, "z"); n != 1 {
		t.Errorf("ZCard after removal = %d, want 1", n)
	}
}

func TestMemoryClient_HashOps(t *testing.T) {
	c := newTestMemoryClient(t)
	ctx := context.Background()

	c.HSet(ctx, "h", map[string]string{"a": "1", "b": "2"})
	if got := c.HGet(ctx, "h", "a"); got != "1" {
		t.Errorf("HGet = %q, want %q", got, "1")
	}
	all := c.HGetAll(ctx, "h")
	if len(all) != 2 || all["b"] != "2" {
		t.Errorf("HGetAll = %v", all)
	}
}

func TestMemoryClient_Scan(t *testing.T) {
	c := newTestMemoryClient(t)
	ctx := context.Background()

	c.Set(ctx, "meals:u1:2025-01-01", "a", 0)
	c.Set(ctx, "meals:u1:2025-01-02", "b", 0)
	c.Set(ctx, "profile:u1", "c", 0)

	got := c.Scan(ctx, "meals:u1:*", 100)
	if len(got) != 2 {
		t.Errorf("Scan matched %d keys, want 2: %v", len(got), got)
	}
}

func TestMemoryClient_Pipeline(t *testing.T) {
	c := newTestMemoryClient(t)
	ctx := context.Background()

	pipe := c.Pipeline()
	pipe.Set("a", "1", 0)
	pipe.Set("b", "2", 0)
	pipe.RPush("l", "x")
	pipe.Del("b")

	// Nothing applied until Exec.
	if c.Exists(ctx, "a") {
		t.Error("pipeline applied command before Exec")
	}

	if !pipe.Exec(ctx) {
		t.Fatal("pipeline Exec failed")
	}
	if got := c.Get(ctx, "a"); got != "1" {
		t.Errorf("a = %q after pipeline, want %q", got, "1")
	}
	if c.Exists(ctx, "b") {
		t.Error("b survived pipeline Del")
	}
	if got := c.LRange(ctx, "l", 0, -1); len(got) != 1 {
		t.Errorf("list length = %d, want 1", len(got))
	}
}

func TestMemoryClient_Close(t *testing.T) {
	c := newMemoryClient()

	c.Set(context.Background(), "k", "v", 0)
	if err := c.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if err := c.Close(); err != nil {
		t.Errorf("second Close failed: %v", err)
	}
	if c.Enabled() {
		t.Error("Enabled after Close")
	}
	if err := c.Ping(context.Background()); !errors.Is(err, ErrClosed) {
		t.Errorf("Ping after Close = %v, want ErrClosed", err)
	}
	if c.Set(context.Background(), "k2", "v", 0) {
		t.Error("Set succeeded after Close")
	}
}
