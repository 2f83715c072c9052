package cache

import (
	"context"
	"io"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/playperu/drawcast/internal/drawday"
)

func deadRedis() *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:         "localhost:1",
		DialTimeout:  10 * time.Millisecond,
		ReadTimeout:  10 * time.Millisecond,
		WriteTimeout: 10 * time.Millisecond,
		MaxRetries:   -1,
	})
}

func TestDeadRedisDegradesToMiss(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	c := NewDayCache(deadRedis(), time.Minute, logger)
	ctx := context.Background()

	if v := c.Version(ctx, "2025-12-06"); v != "" {
		t.Errorf("Version on dead redis = %q, want empty", v)
	}
	c.Set(ctx, "2025-12-06", "0:0", []drawday.Result{{ID: "r1", GameID: "G1", Value: "07"}})
	if got, ok := c.Get(ctx, "2025-12-06"); ok {
		t.Errorf("Get on dead redis = %v, want miss", got)
	}
	c.Invalidate(ctx, "2025-12-06")
	c.Purge(ctx)

	if err := c.Check(ctx); err == nil {
		t.Error("Check on dead redis: expected error")
	}
}

func TestOpenRejectsBadURL(t *testing.T) {
	if _, err := Open(context.Background(), "not a url"); err == nil {
		t.Error("expected error for malformed url")
	}
}

func TestNewDayCacheDefaultTTL(t *testing.T) {
	c := NewDayCache(deadRedis(), 0, slog.Default())
	if c.ttl != 10*time.Minute {
		t.Errorf("ttl = %s, want 10m", c.ttl)
	}
}

// liveRedis connects to REDIS_TEST_URL and skips when it is unset.
func liveRedis(t *testing.T) *redis.Client {
	t.Helper()
	url := os.Getenv("REDIS_TEST_URL")
	if url == "" {
		t.Skip("REDIS_TEST_URL not set")
	}
	client, err := Open(context.Background(), url)
	if err != nil {
		t.Fatalf("connecting: %v", err)
	}
	t.Cleanup(func() { client.Close() })
	return client
}

func TestSetSkipsListingReadBeforeInvalidate(t *testing.T) {
	client := liveRedis(t)
	c := NewDayCache(client, time.Minute, slog.New(slog.NewTextHandler(io.Discard, nil)))
	ctx := context.Background()
	day := "test-" + time.Now().Format("150405.000000000")
	t.Cleanup(func() { client.Del(ctx, keyPrefix+day, versionPrefix+day) })

	stale := []drawday.Result{}
	fresh := []drawday.Result{{ID: "r1", GameID: "G1", GameDay: day, Value: "07"}}

	tests := []struct {
		name    string
		between func()
		want    bool
	}{
		{"unchanged", func() {}, true},
		{"invalidated", func() { c.Invalidate(ctx, day) }, false},
		{"purged", func() { c.Purge(ctx) }, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c.Invalidate(ctx, day)

			version := c.Version(ctx, day)
			tt.between()
			c.Set(ctx, day, version, stale)

			_, ok := c.Get(ctx, day)
			if ok != tt.want {
				t.Fatalf("cached = %v, want %v", ok, tt.want)
			}
		})
	}

	c.Invalidate(ctx, day)
	c.Set(ctx, day, c.Version(ctx, day), fresh)
	got, ok := c.Get(ctx, day)
	if !ok || len(got) != 1 || got[0].Value != "07" {
		t.Errorf("Get = %+v, %v; want the fresh listing", got, ok)
	}
}
