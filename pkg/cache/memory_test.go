package cache

import (
	"context"
	"errors"
	"testing"
	"time"
)

type entry struct {
	UserID int64  `json:"user_id"`
	Email  string `json:"email"`
}

func TestMemoryCacheRoundTripsStructs(t *testing.T) {
	ctx := context.Background()
	mc := NewMemoryCache()
	defer mc.Close()

	if err := mc.Set(ctx, "k", entry{UserID: 7, Email: "a@b.c"}, time.Minute); err != nil {
		t.Fatalf("set: %v", err)
	}
	var got entry
	if err := mc.Get(ctx, "k", &got); err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.UserID != 7 || got.Email != "a@b.c" {
		t.Fatalf("unexpected value %+v", got)
	}
}

func TestMemoryCacheExpiry(t *testing.T) {
	ctx := context.Background()
	mc := NewMemoryCache()
	defer mc.Close()

	_ = mc.Set(ctx, "short", "v", time.Millisecond)
	time.Sleep(5 * time.Millisecond)

	var s string
	if err := mc.Get(ctx, "short", &s); !errors.Is(err, ErrCacheMiss) {
		t.Fatalf("expected miss, got %v", err)
	}
	if ok, _ := mc.Exists(ctx, "short"); ok {
		t.Fatalf("expired key should not exist")
	}
}

func TestMemoryCacheTakeIsSingleUse(t *testing.T) {
	ctx := context.Background()
	mc := NewMemoryCache()
	defer mc.Close()

	_ = mc.Set(ctx, "once", "payload", time.Minute)

	var s string
	if err := mc.Take(ctx, "once", &s); err != nil || s != "payload" {
		t.Fatalf("take: %q %v", s, err)
	}
	if err := mc.Take(ctx, "once", &s); !errors.Is(err, ErrCacheMiss) {
		t.Fatalf("second take should miss, got %v", err)
	}
}

func TestMemoryCacheEvictsLeastRecentlyUsed(t *testing.T) {
	ctx := context.Background()
	mc := NewMemoryCache(WithMemoryMaxSize(2))
	defer mc.Close()

	_ = mc.Set(ctx, "a", 1, time.Minute)
	time.Sleep(time.Millisecond)
	_ = mc.Set(ctx, "b", 2, time.Minute)
	time.Sleep(time.Millisecond)

	var n int
	_ = mc.Get(ctx, "a", &n)
	time.Sleep(time.Millisecond)
	_ = mc.Set(ctx, "c", 3, time.Minute)

	if ok, _ := mc.Exists(ctx, "b"); ok {
		t.Fatalf("expected b to be evicted")
	}
	if ok, _ := mc.Exists(ctx, "a", "c"); !ok {
		t.Fatalf("expected a and c to remain")
	}
}

func TestMemoryCacheIncrementAndLock(t *testing.T) {
	ctx := context.Background()
	mc := NewMemoryCache()
	defer mc.Close()

	for i := int64(1); i <= 3; i++ {
		v, err := mc.Increment(ctx, "ctr")
		if err != nil || v != i {
			t.Fatalf("increment %d: %d %v", i, v, err)
		}
	}

	ok, _ := mc.TryLock(ctx, "lock", time.Minute)
	if !ok {
		t.Fatalf("expected first lock to succeed")
	}
	if ok, _ := mc.TryLock(ctx, "lock", time.Minute); ok {
		t.Fatalf("expected second lock to fail")
	}
	_ = mc.Unlock(ctx, "lock")
	if ok, _ := mc.TryLock(ctx, "lock", time.Minute); !ok {
		t.Fatalf("expected lock after unlock")
	}
}

func TestGetOrLoadCachesResult(t *testing.T) {
	ctx := context.Background()
	mc := NewMemoryCache()
	defer mc.Close()

	calls := 0
	load := func(context.Context) ([]string, error) {
		calls++
		return []string{"AAPL", "MSFT"}, nil
	}
	for i := 0; i < 2; i++ {
		v, err := GetOrLoad(ctx, mc, "dir", time.Minute, load)
		if err != nil || len(v) != 2 {
			t.Fatalf("load %d: %v %v", i, v, err)
		}
	}
	if calls != 1 {
		t.Fatalf("expected one load, got %d", calls)
	}
}
