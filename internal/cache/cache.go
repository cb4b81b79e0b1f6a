// Package cache formalizes spec §6's cache keys/TTLs as a Go port. Cache
// is the sole signal the Poller uses (spec §4.3); the submitter's
// pre-validation also reads it as an advisory fast path.
package cache

import (
	"context"
	"time"
)

// RejectEntry is the value stored under reject:{user}:{sku}.
type RejectEntry struct {
	Code    string
	Message string
}

// Cache is the response/availability cache port, backed by Redis in
// production (internal/cache/redis.go) and by an in-memory map in tests
// (internal/cache/memcache.go).
type Cache interface {
	// SetActive publishes a successful reservation id under
	// active:{user}:{sku}, TTL >= hold duration.
	SetActive(ctx context.Context, userID, skuID, reservationID string, ttl time.Duration) error
	GetActive(ctx context.Context, userID, skuID string) (string, bool, error)
	DelActive(ctx context.Context, userID, skuID string) error

	// SetReject publishes a rejection under reject:{user}:{sku}, short TTL.
	SetReject(ctx context.Context, userID, skuID string, entry RejectEntry, ttl time.Duration) error
	GetAndDelReject(ctx context.Context, userID, skuID string) (RejectEntry, bool, error)

	// SetStock/GetStock back stock:{sku}, TTL per config.StockCacheTTL;
	// its safety TTL means a missed invalidation self-heals (spec §5).
	SetStock(ctx context.Context, skuID string, available int, ttl time.Duration) error
	GetStock(ctx context.Context, skuID string) (int, bool, error)

	// SetPurchased/GetPurchased back purchased:{user}:{sku}, long TTL,
	// set once when a UserPurchase row is written.
	SetPurchased(ctx context.Context, userID, skuID string) error
	GetPurchased(ctx context.Context, userID, skuID string) (bool, error)
}

func activeKey(userID, skuID string) string    { return "active:" + userID + ":" + skuID }
func rejectKey(userID, skuID string) string    { return "reject:" + userID + ":" + skuID }
func stockKey(skuID string) string             { return "stock:" + skuID }
func purchasedKey(userID, skuID string) string { return "purchased:" + userID + ":" + skuID }
