package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// Redis is the go-redis-backed Cache implementation.
type Redis struct {
	cl *redis.Client
}

func NewRedis(addr string) *Redis {
	return &Redis{cl: redis.NewClient(&redis.Options{Addr: addr})}
}

func (r *Redis) SetActive(ctx context.Context, userID, skuID, reservationID string, ttl time.Duration) error {
	if err := r.cl.Set(ctx, activeKey(userID, skuID), reservationID, ttl).Err(); err != nil {
		return fmt.Errorf("cache: set active %s/%s: %w", userID, skuID, err)
	}
	return nil
}

func (r *Redis) GetActive(ctx context.Context, userID, skuID string) (string, bool, error) {
	v, err := r.cl.Get(ctx, activeKey(userID, skuID)).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("cache: get active %s/%s: %w", userID, skuID, err)
	}
	return v, true, nil
}

func (r *Redis) DelActive(ctx context.Context, userID, skuID string) error {
	if err := r.cl.Del(ctx, activeKey(userID, skuID)).Err(); err != nil {
		return fmt.Errorf("cache: del active %s/%s: %w", userID, skuID, err)
	}
	return nil
}

func (r *Redis) SetReject(ctx context.Context, userID, skuID string, entry RejectEntry, ttl time.Duration) error {
	b, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("cache: marshal reject entry: %w", err)
	}
	if err := r.cl.Set(ctx, rejectKey(userID, skuID), b, ttl).Err(); err != nil {
		return fmt.Errorf("cache: set reject %s/%s: %w", userID, skuID, err)
	}
	return nil
}

// GetAndDelReject reads the reject entry and then deletes it with a
// separate DEL, matching the Poller's "read; if present, clear it" step
// (spec §4.4). The two calls are not atomic.
func (r *Redis) GetAndDelReject(ctx context.Context, userID, skuID string) (RejectEntry, bool, error) {
	key := rejectKey(userID, skuID)
	getCmd := r.cl.Get(ctx, key)
	v, err := getCmd.Result()
	if errors.Is(err, redis.Nil) {
		return RejectEntry{}, false, nil
	}
	if err != nil {
		return RejectEntry{}, false, fmt.Errorf("cache: get reject %s/%s: %w", userID, skuID, err)
	}
	r.cl.Del(ctx, key) // best-effort; a lost race just means a future poll sees it again harmlessly
	var entry RejectEntry
	if err := json.Unmarshal([]byte(v), &entry); err != nil {
		return RejectEntry{}, false, fmt.Errorf("cache: unmarshal reject %s/%s: %w", userID, skuID, err)
	}
	return entry, true, nil
}

func (r *Redis) SetStock(ctx context.Context, skuID string, available int, ttl time.Duration) error {
	if err := r.cl.Set(ctx, stockKey(skuID), available, ttl).Err(); err != nil {
		return fmt.Errorf("cache: set stock %s: %w", skuID, err)
	}
	return nil
}

func (r *Redis) GetStock(ctx context.Context, skuID string) (int, bool, error) {
	v, err := r.cl.Get(ctx, stockKey(skuID)).Result()
	if errors.Is(err, redis.Nil) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("cache: get stock %s: %w", skuID, err)
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, false, fmt.Errorf("cache: parse stock %s: %w", skuID, err)
	}
	return n, true, nil
}

func (r *Redis) SetPurchased(ctx context.Context, userID, skuID string) error {
	if err := r.cl.Set(ctx, purchasedKey(userID, skuID), "1", 0).Err(); err != nil {
		return fmt.Errorf("cache: set purchased %s/%s: %w", userID, skuID, err)
	}
	return nil
}

func (r *Redis) GetPurchased(ctx context.Context, userID, skuID string) (bool, error) {
	_, err := r.cl.Get(ctx, purchasedKey(userID, skuID)).Result()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("cache: get purchased %s/%s: %w", userID, skuID, err)
	}
	return true, nil
}
