package cache

import (
	"context"
	"os"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap/zaptest"

	"github.com/SebastienCoste/RealTimeSpeechValidation/internal/model"
)

func TestCacheKey(t *testing.T) {
	t.Run("normalizes case and whitespace", func(t *testing.T) {
		k1 := CacheKey("The  Earth is ROUND", "")
		k2 := CacheKey("the earth is round", "")
		if k1 != k2 {
			t.Errorf("expected equal keys, got %q and %q", k1, k2)
		}
	})

	t.Run("context changes key", func(t *testing.T) {
		k1 := CacheKey("water is wet", "")
		k2 := CacheKey("water is wet", "chemistry lecture")
		if k1 == k2 {
			t.Errorf("context did not change key %q", k1)
		}
	})

	t.Run("has prefix", func(t *testing.T) {
		if k := CacheKey("x", ""); !strings.HasPrefix(k, keyPrefix) {
			t.Errorf("expected %s prefix, got %q", keyPrefix, k)
		}
	})
}

func TestMemoryCache(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryCache(time.Minute, time.Minute)

	if _, ok := c.Get(ctx, "missing"); ok {
		t.Fatal("expected miss on empty cache")
	}

	if err := c.Set(ctx, "k", []byte("v"), 0); err != nil {
		t.Fatalf("Set: %v", err)
	}
	got, ok := c.Get(ctx, "k")
	if !ok || string(got) != "v" {
		t.Fatalf("Get = %q, %v; want v, true", got, ok)
	}
	if c.Len() != 1 {
		t.Errorf("Len = %d, want 1", c.Len())
	}

	_ = c.Delete(ctx, "k")
	if _, ok := c.Get(ctx, "k"); ok {
		t.Error("expected miss after Delete")
	}
}

func TestMemoryCacheExpiry(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryCache(time.Minute, time.Minute)

	_ = c.Set(ctx, "short", []byte("v"), 10*time.Millisecond)
	time.Sleep(30 * time.Millisecond)

	if _, ok := c.Get(ctx, "short"); ok {
		t.Error("expected expired entry to miss")
	}
}

func TestDiskCache(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	c := NewDiskCache(dir, time.Minute)

	key := CacheKey("gravity pulls things down", "")
	if err := c.Set(ctx, key, []byte(`{"verdict":"True"}`), 0); err != nil {
		t.Fatalf("Set: %v", err)
	}

	got, ok := c.Get(ctx, key)
	if !ok || string(got) != `{"verdict":"True"}` {
		t.Fatalf("Get = %q, %v", got, ok)
	}

	if err := c.Delete(ctx, key); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if err := c.Delete(ctx, key); err != nil {
		t.Errorf("second Delete should be a no-op, got %v", err)
	}
}

func TestDiskCacheExpired(t *testing.T) {
	ctx := context.Background()
	c := NewDiskCache(t.TempDir(), time.Minute)

	_ = c.Set(ctx, "k", []byte("v"), time.Nanosecond)
	time.Sleep(5 * time.Millisecond)

	if _, ok := c.Get(ctx, "k"); ok {
		t.Error("expected expired disk entry to miss")
	}
}

func TestLayeredCachePromotes(t *testing.T) {
	ctx := context.Background()
	l1 := NewMemoryCache(time.Minute, time.Minute)
	l2 := NewDiskCache(t.TempDir(), time.Minute)
	c := NewLayeredCache(l1, l2)

	_ = l2.Set(ctx, "k", []byte("from-disk"), 0)

	got, ok := c.Get(ctx, "k")
	if !ok || string(got) != "from-disk" {
		t.Fatalf("Get = %q, %v", got, ok)
	}
	if _, ok := l1.Get(ctx, "k"); !ok {
		t.Error("expected L2 hit to be promoted into L1")
	}

	if _, ok := c.Get(ctx, "absent"); ok {
		t.Error("expected miss")
	}
	hits, misses := c.Stats()
	if hits != 1 || misses != 1 {
		t.Errorf("Stats = %d/%d, want 1/1", hits, misses)
	}
}

func TestNewSelectsBackend(t *testing.T) {
	ctx := context.Background()
	logger := zaptest.NewLogger(t)

	tests := []struct {
		name string
		cfg  model.CacheConfig
		want string
	}{
		{"disabled", model.CacheConfig{Enabled: false}, "nil"},
		{"memory", model.CacheConfig{Enabled: true, TTL: time.Minute}, "memory"},
		{"disk", model.CacheConfig{Enabled: true, TTL: time.Minute, Dir: t.TempDir()}, "layered"},
		{"bad redis falls back", model.CacheConfig{Enabled: true, TTL: time.Minute, RedisURL: "not a url"}, "memory"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := New(ctx, tt.cfg, logger)
			if err != nil {
				t.Fatalf("New: %v", err)
			}
			var got string
			switch c.(type) {
			case nil:
				got = "nil"
			case *MemoryCache:
				got = "memory"
			case *LayeredCache:
				got = "layered"
			default:
				got = "other"
			}
			if got != tt.want {
				t.Errorf("backend = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestRedisCache(t *testing.T) {
	url := os.Getenv("TRUTHSEEKER_TEST_REDIS_URL")
	if url == "" {
		t.Skip("TRUTHSEEKER_TEST_REDIS_URL not set")
	}
	ctx := context.Background()

	c, err := NewRedisCache(ctx, url, time.Minute)
	if err != nil {
		t.Fatalf("NewRedisCache: %v", err)
	}
	defer c.Close()

	key := CacheKey("redis round trip", t.Name())
	if err := c.Set(ctx, key, []byte("v"), 0); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if got, ok := c.Get(ctx, key); !ok || string(got) != "v" {
		t.Fatalf("Get = %q, %v", got, ok)
	}
	if err := c.Delete(ctx, key); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, ok := c.Get(ctx, key); ok {
		t.Error("expected miss after Delete")
	}
}
