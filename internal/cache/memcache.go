package cache

import (
	"context"
	"sync"
	"time"
)

// Mem is an in-memory Cache used by tests. TTLs are honored via a
// deadline recorded at write time and checked on every read, so tests
// that exercise the reject/stock TTLs do not need a real Redis.
type Mem struct {
	mu     sync.Mutex
	active map[string]entry[string]
	reject map[string]entry[RejectEntry]
	stock  map[string]entry[int]
	bought map[string]bool
}

type entry[T any] struct {
	val T
	exp time.Time // zero means no expiry
}

func (e entry[T]) expired(now time.Time) bool {
	return !e.exp.IsZero() && now.After(e.exp)
}

func NewMem() *Mem {
	return &Mem{
		active: make(map[string]entry[string]),
		reject: make(map[string]entry[RejectEntry]),
		stock:  make(map[string]entry[int]),
		bought: make(map[string]bool),
	}
}

func deadline(ttl time.Duration) time.Time {
	if ttl <= 0 {
		return time.Time{}
	}
	return time.Now().Add(ttl)
}

func (m *Mem) SetActive(_ context.Context, userID, skuID, reservationID string, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.active[activeKey(userID, skuID)] = entry[string]{val: reservationID, exp: deadline(ttl)}
	return nil
}

func (m *Mem) GetActive(_ context.Context, userID, skuID string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.active[activeKey(userID, skuID)]
	if !ok || e.expired(time.Now()) {
		return "", false, nil
	}
	return e.val, true, nil
}

func (m *Mem) DelActive(_ context.Context, userID, skuID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.active, activeKey(userID, skuID))
	return nil
}

func (m *Mem) SetReject(_ context.Context, userID, skuID string, re RejectEntry, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reject[rejectKey(userID, skuID)] = entry[RejectEntry]{val: re, exp: deadline(ttl)}
	return nil
}

func (m *Mem) GetAndDelReject(_ context.Context, userID, skuID string) (RejectEntry, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := rejectKey(userID, skuID)
	e, ok := m.reject[key]
	if !ok || e.expired(time.Now()) {
		delete(m.reject, key)
		return RejectEntry{}, false, nil
	}
	delete(m.reject, key)
	return e.val, true, nil
}

func (m *Mem) SetStock(_ context.Context, skuID string, available int, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stock[stockKey(skuID)] = entry[int]{val: available, exp: deadline(ttl)}
	return nil
}

func (m *Mem) GetStock(_ context.Context, skuID string) (int, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.stock[stockKey(skuID)]
	if !ok || e.expired(time.Now()) {
		return 0, false, nil
	}
	return e.val, true, nil
}

func (m *Mem) SetPurchased(_ context.Context, userID, skuID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.bought[purchasedKey(userID, skuID)] = true
	return nil
}

func (m *Mem) GetPurchased(_ context.Context, userID, skuID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.bought[purchasedKey(userID, skuID)], nil
}
