package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"repairdesk_backend/platform/geo"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

func newTestCache(t *testing.T, ttl time.Duration) (*RedisPositionCache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return NewRedisPositionCache(rdb, ttl), mr
}

func TestRedisPositionCacheRoundTrip(t *testing.T) {
	cache, mr := newTestCache(t, 30*time.Minute)
	ctx := context.Background()

	recorded := time.Date(2024, 1, 3, 11, 59, 58, 0, time.UTC)
	want := LivePosition{
		TechnicianID: uuid.New(),
		Position:     geo.Position{Lat: 40.416775, Lng: -3.70379},
		Bearing:      87.5,
		Accuracy:     6,
		RecordedAt:   recorded,
		ReceivedAt:   recorded.Add(2 * time.Second),
	}
	if err := cache.Store(ctx, want); err != nil {
		t.Fatalf("Store() error = %v", err)
	}

	got, err := cache.Get(ctx, want.TechnicianID)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got.Position != want.Position || got.Bearing != want.Bearing || got.Accuracy != want.Accuracy {
		t.Fatalf("Get() = %+v, want %+v", got, want)
	}
	if !got.RecordedAt.Equal(want.RecordedAt) || !got.ReceivedAt.Equal(want.ReceivedAt) {
		t.Fatalf("timestamps = %v/%v", got.RecordedAt, got.ReceivedAt)
	}

	if ttl := mr.TTL(positionKey(want.TechnicianID)); ttl != 30*time.Minute {
		t.Fatalf("TTL = %v, want 30m", ttl)
	}
}

func TestRedisPositionCacheExpiry(t *testing.T) {
	cache, mr := newTestCache(t, time.Minute)
	ctx := context.Background()

	pos := LivePosition{TechnicianID: uuid.New(), RecordedAt: time.Now(), ReceivedAt: time.Now()}
	if err := cache.Store(ctx, pos); err != nil {
		t.Fatalf("Store() error = %v", err)
	}
	mr.FastForward(2 * time.Minute)

	if _, err := cache.Get(ctx, pos.TechnicianID); !errors.Is(err, ErrPositionNotFound) {
		t.Fatalf("Get() error = %v, want ErrPositionNotFound", err)
	}
}

func TestRedisPositionCacheUnavailable(t *testing.T) {
	cache, mr := newTestCache(t, time.Minute)
	mr.Close()

	if _, err := cache.Get(context.Background(), uuid.New()); err == nil || errors.Is(err, ErrPositionNotFound) {
		t.Fatalf("Get() error = %v, want connection error", err)
	}
}
