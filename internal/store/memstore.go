package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/sanchit2222/flashsale/internal/model"
)

// MemStore is an in-process Store used by tests. It enforces the same
// invariants the Postgres schema enforces via CHECK constraints and
// unique indexes, so property tests exercise identical semantics without
// a live database.
type MemStore struct {
	mu           sync.Mutex
	products     map[string]model.Product
	inventory    map[string]model.Inventory
	reservations map[string]model.Reservation
	purchases    map[string]model.UserPurchase // keyed by user:sku
}

func NewMemStore() *MemStore {
	return &MemStore{
		products:     make(map[string]model.Product),
		inventory:    make(map[string]model.Inventory),
		reservations: make(map[string]model.Reservation),
		purchases:    make(map[string]model.UserPurchase),
	}
}

// Seed installs a product and its starting inventory row. Test helper
// only; not part of the Store interface.
func (m *MemStore) Seed(p model.Product, inv model.Inventory) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.products[p.SKUID] = p
	m.inventory[inv.SKUID] = inv
}

func (m *MemStore) GetProduct(_ context.Context, skuID string) (model.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.products[skuID]
	if !ok {
		return model.Product{}, ErrNotFound
	}
	return p, nil
}

func (m *MemStore) GetAvailable(_ context.Context, skuID string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	inv, ok := m.inventory[skuID]
	if !ok {
		return 0, ErrNotFound
	}
	return inv.Available, nil
}

func (m *MemStore) HasPurchased(_ context.Context, userID, skuID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.purchases[userID+":"+skuID]
	return ok, nil
}

func (m *MemStore) HasActiveHold(_ context.Context, userID, skuID string, now time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.hasActiveHoldLocked(userID, skuID, now), nil
}

func (m *MemStore) hasActiveHoldLocked(userID, skuID string, now time.Time) bool {
	for _, r := range m.reservations {
		if r.UserID == userID && r.SKUID == skuID && r.IsLiveHold(now) {
			return true
		}
	}
	return false
}

func (m *MemStore) GetReservationByIdempotencyKey(_ context.Context, key string) (model.Reservation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.reservations {
		if r.IdempotencyKey == key && r.Status == model.StatusReserved {
			return r, nil
		}
	}
	return model.Reservation{}, ErrNotFound
}

func (m *MemStore) GetReservation(_ context.Context, reservationID string) (model.Reservation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.reservations[reservationID]
	if !ok {
		return model.Reservation{}, ErrNotFound
	}
	return r, nil
}

func (m *MemStore) ExpiredReservations(_ context.Context, before time.Time, limit int, afterID string) ([]model.Reservation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var all []model.Reservation
	for _, r := range m.reservations {
		if r.Status == model.StatusReserved && r.ExpiresAt.Before(before) && r.ReservationID > afterID {
			all = append(all, r)
		}
	}
	sort.Slice(all, func(i, j int) bool { return all[i].ReservationID < all[j].ReservationID })
	if len(all) > limit {
		all = all[:limit]
	}
	return all, nil
}

// WithTx runs fn under the store's single mutex: MemStore has exactly
// one writer at a time by construction, mirroring the single-writer
// partition invariant spec §4.2/§5 describes for the real store.
func (m *MemStore) WithTx(_ context.Context, fn func(TxStore) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return fn(&memTx{m: m})
}

type memTx struct{ m *MemStore }

func (t *memTx) GetInventoryForUpdate(_ context.Context, skuID string) (model.Inventory, error) {
	inv, ok := t.m.inventory[skuID]
	if !ok {
		return model.Inventory{}, ErrNotFound
	}
	return inv, nil
}

func (t *memTx) SaveInventory(_ context.Context, inv model.Inventory) error {
	if err := inv.Validate(); err != nil {
		return err
	}
	t.m.inventory[inv.SKUID] = inv
	return nil
}

func (t *memTx) InsertReservation(_ context.Context, r model.Reservation) error {
	for _, existing := range t.m.reservations {
		if existing.IdempotencyKey == r.IdempotencyKey && existing.Status == model.StatusReserved {
			return ErrIdempotencyConflict
		}
	}
	t.m.reservations[r.ReservationID] = r
	return nil
}

func (t *memTx) GetReservationByIdempotencyKeyForUpdate(_ context.Context, key string) (model.Reservation, error) {
	for _, r := range t.m.reservations {
		if r.IdempotencyKey == key && r.Status == model.StatusReserved {
			return r, nil
		}
	}
	return model.Reservation{}, ErrNotFound
}

func (t *memTx) GetReservationForUpdate(_ context.Context, reservationID string) (model.Reservation, error) {
	r, ok := t.m.reservations[reservationID]
	if !ok {
		return model.Reservation{}, ErrNotFound
	}
	return r, nil
}

func (t *memTx) HasActiveHoldForUpdate(_ context.Context, userID, skuID string, now time.Time) (bool, error) {
	return t.m.hasActiveHoldLocked(userID, skuID, now), nil
}

func (t *memTx) transition(reservationID string, to model.Status, at time.Time, stamp func(*model.Reservation)) (model.Reservation, error) {
	r, ok := t.m.reservations[reservationID]
	if !ok {
		return model.Reservation{}, ErrNotFound
	}
	if r.Status != model.StatusReserved {
		return model.Reservation{}, ErrNotFound
	}
	r.Status = to
	stamp(&r)
	t.m.reservations[reservationID] = r
	return r, nil
}

func (t *memTx) TransitionConfirmed(_ context.Context, reservationID string, at time.Time) (model.Reservation, error) {
	return t.transition(reservationID, model.StatusConfirmed, at, func(r *model.Reservation) { r.ConfirmedAt = &at })
}

func (t *memTx) TransitionCancelled(_ context.Context, reservationID string, at time.Time) (model.Reservation, error) {
	return t.transition(reservationID, model.StatusCancelled, at, func(r *model.Reservation) { r.CancelledAt = &at })
}

func (t *memTx) TransitionExpired(_ context.Context, reservationID string, at time.Time) (model.Reservation, error) {
	return t.transition(reservationID, model.StatusExpired, at, func(r *model.Reservation) { r.ExpiredAt = &at })
}

func (t *memTx) InsertUserPurchase(_ context.Context, up model.UserPurchase) error {
	key := up.UserID + ":" + up.SKUID
	if _, ok := t.m.purchases[key]; ok {
		return nil
	}
	t.m.purchases[key] = up
	return nil
}
