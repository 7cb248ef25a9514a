// Package cache keeps per-event seat maps in Redis and purges the public
// catalogue response cache when events change.  Every method is a no-op
// on a nil receiver or nil client so callers can run without Redis.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/iliyamo/event-ticketing/internal/model"
)

// SeatKey is the Redis key holding the seat map of an event.
func SeatKey(eventID uint64) string { return fmt.Sprintf("seats:%d", eventID) }

// SeatMaps caches GET /events/:id/seats payloads.  Every booking or status
// change deletes the event's entry after commit; the TTL bounds staleness
// if that delete fails.
type SeatMaps struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewSeatMaps returns a seat map cache, or nil when rdb is nil.
func NewSeatMaps(rdb *redis.Client, ttl time.Duration) *SeatMaps {
	if rdb == nil {
		return nil
	}
	if ttl <= 0 {
		ttl = 2 * time.Minute
	}
	return &SeatMaps{rdb: rdb, ttl: ttl}
}

// Get returns the cached seat map of an event.  Misses and Redis errors
// both report ok=false.
func (s *SeatMaps) Get(ctx context.Context, eventID uint64) ([]model.Seat, bool) {
	if s == nil {
		return nil, false
	}
	bs, err := s.rdb.Get(ctx, SeatKey(eventID)).Bytes()
	if err != nil {
		return nil, false
	}
	var seats []model.Seat
	if err := json.Unmarshal(bs, &seats); err != nil {
		return nil, false
	}
	return seats, true
}

// Set stores a seat map.
func (s *SeatMaps) Set(ctx context.Context, eventID uint64, seats []model.Seat) error {
	if s == nil {
		return nil
	}
	bs, err := json.Marshal(seats)
	if err != nil {
		return err
	}
	return s.rdb.Set(ctx, SeatKey(eventID), bs, s.ttl).Err()
}

// Invalidate drops the cached seat map of an event.
func (s *SeatMaps) Invalidate(ctx context.Context, eventID uint64) error {
	if s == nil {
		return nil
	}
	return s.rdb.Del(ctx, SeatKey(eventID)).Err()
}

// Responses purges cached catalogue responses stored under a key prefix.
type Responses struct {
	rdb    *redis.Client
	prefix string
}

// NewResponses returns a purger for keys "<prefix>:*", or nil when rdb is
// nil.
func NewResponses(rdb *redis.Client, prefix string) *Responses {
	if rdb == nil {
		return nil
	}
	return &Responses{rdb: rdb, prefix: prefix}
}

// Purge deletes every cached response and returns how many keys went.
func (r *Responses) Purge(ctx context.Context) (int, error) {
	if r == nil {
		return 0, nil
	}
	var (
		cursor  uint64
		deleted int
	)
	for {
		keys, next, err := r.rdb.Scan(ctx, cursor, r.prefix+":*", 200).Result()
		if err != nil {
			return deleted, err
		}
		if len(keys) > 0 {
			n, err := r.rdb.Del(ctx, keys...).Result()
			if err != nil && !errors.Is(err, redis.Nil) {
				return deleted, err
			}
			deleted += int(n)
		}
		if next == 0 {
			return deleted, nil
		}
		cursor = next
	}
}
