package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"repairdesk_backend/platform/geo"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const positionKeyPrefix = "tracking:position:"

// ErrPositionNotFound is returned when no live position is known.
var ErrPositionNotFound = errors.New("position not found")

// PositionCache shares the latest filtered position across processes.
type PositionCache interface {
	Store(ctx context.Context, pos LivePosition) error
	Get(ctx context.Context, technicianID uuid.UUID) (LivePosition, error)
}

// RedisPositionCache keeps one hash per technician with a sliding TTL.
type RedisPositionCache struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewRedisPositionCache creates a cache. A non-positive ttl keeps entries forever.
func NewRedisPositionCache(rdb *redis.Client, ttl time.Duration) *RedisPositionCache {
	return &RedisPositionCache{rdb: rdb, ttl: ttl}
}

// NewRedisClient parses a redis:// or rediss:// URL.
func NewRedisClient(redisURL string, tlsInsecure bool) (*redis.Client, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	if tlsInsecure && opt.TLSConfig != nil {
		opt.TLSConfig.InsecureSkipVerify = true
	}
	return redis.NewClient(opt), nil
}

func positionKey(id uuid.UUID) string {
	return positionKeyPrefix + id.String()
}

// Store writes pos and refreshes its expiry in one round trip.
func (c *RedisPositionCache) Store(ctx context.Context, pos LivePosition) error {
	key := positionKey(pos.TechnicianID)
	_, err := c.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, key, map[string]any{
			"lat":        strconv.FormatFloat(pos.Position.Lat, 'f', -1, 64),
			"lng":        strconv.FormatFloat(pos.Position.Lng, 'f', -1, 64),
			"bearing":    strconv.FormatFloat(pos.Bearing, 'f', -1, 64),
			"accuracy":   strconv.FormatFloat(pos.Accuracy, 'f', -1, 64),
			"recordedAt": pos.RecordedAt.UTC().Format(time.RFC3339Nano),
			"receivedAt": pos.ReceivedAt.UTC().Format(time.RFC3339Nano),
		})
		if c.ttl > 0 {
			pipe.Expire(ctx, key, c.ttl)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("store position: %w", err)
	}
	return nil
}

// Get reads the cached position of one technician.
func (c *RedisPositionCache) Get(ctx context.Context, technicianID uuid.UUID) (LivePosition, error) {
	fields, err := c.rdb.HGetAll(ctx, positionKey(technicianID)).Result()
	if err != nil {
		return LivePosition{}, fmt.Errorf("get position: %w", err)
	}
	if len(fields) == 0 {
		return LivePosition{}, ErrPositionNotFound
	}

	pos := LivePosition{TechnicianID: technicianID}
	var parseErr error
	parseFloat := func(name string) float64 {
		v, err := strconv.ParseFloat(fields[name], 64)
		if err != nil && parseErr == nil {
			parseErr = fmt.Errorf("field %s: %w", name, err)
		}
		return v
	}
	parseTime := func(name string) time.Time {
		v, err := time.Parse(time.RFC3339Nano, fields[name])
		if err != nil && parseErr == nil {
			parseErr = fmt.Errorf("field %s: %w", name, err)
		}
		return v
	}

	pos.Position = geo.Position{Lat: parseFloat("lat"), Lng: parseFloat("lng")}
	pos.Bearing = parseFloat("bearing")
	pos.Accuracy = parseFloat("accuracy")
	pos.RecordedAt = parseTime("recordedAt")
	pos.ReceivedAt = parseTime("receivedAt")
	if parseErr != nil {
		return LivePosition{}, fmt.Errorf("decode cached position: %w", parseErr)
	}
	return pos, nil
}
