package cache

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

type payload struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

func newTestCache(t *testing.T, ttl time.Duration) (*Cache, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	t.Cleanup(mr.Close)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return New(client, ttl), mr
}

func TestSetGetRoundTrip(t *testing.T) {
	c, _ := newTestCache(t, time.Minute)
	ctx := context.Background()

	if err := c.SetJSON(ctx, "docs:v1", payload{Name: "quotations", Count: 3}); err != nil {
		t.Fatalf("set: %v", err)
	}
	var got payload
	found, err := c.GetJSON(ctx, "docs:v1", &got)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if !found {
		t.Fatal("expected hit")
	}
	if got.Name != "quotations" || got.Count != 3 {
		t.Fatalf("unexpected payload %+v", got)
	}
}

func TestGetMiss(t *testing.T) {
	c, _ := newTestCache(t, time.Minute)
	var got payload
	found, err := c.GetJSON(context.Background(), "absent", &got)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if found {
		t.Fatal("expected miss")
	}
}

func TestInvalidate(t *testing.T) {
	c, _ := newTestCache(t, time.Minute)
	ctx := context.Background()
	if err := c.SetJSON(ctx, "k", payload{Name: "x"}); err != nil {
		t.Fatalf("set: %v", err)
	}
	if err := c.Invalidate(ctx, "k", "also-missing"); err != nil {
		t.Fatalf("invalidate: %v", err)
	}
	var got payload
	found, err := c.GetJSON(ctx, "k", &got)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if found {
		t.Fatal("expected key to be gone")
	}
}

func TestTTLExpiry(t *testing.T) {
	c, mr := newTestCache(t, time.Second)
	ctx := context.Background()
	if err := c.SetJSON(ctx, "k", payload{Name: "x"}); err != nil {
		t.Fatalf("set: %v", err)
	}
	mr.FastForward(2 * time.Second)
	var got payload
	found, err := c.GetJSON(ctx, "k", &got)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if found {
		t.Fatal("expected expiry")
	}
}

func TestNilCacheIsNoop(t *testing.T) {
	var c *Cache
	ctx := context.Background()
	if err := c.SetJSON(ctx, "k", payload{}); err != nil {
		t.Fatalf("nil set: %v", err)
	}
	found, err := c.GetJSON(ctx, "k", &payload{})
	if err != nil || found {
		t.Fatalf("nil get: found=%v err=%v", found, err)
	}
	if err := c.Invalidate(ctx, "k"); err != nil {
		t.Fatalf("nil invalidate: %v", err)
	}
}
