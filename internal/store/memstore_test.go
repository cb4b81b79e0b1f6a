package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/sanchit2222/flashsale/internal/model"
)

func seededStore(t *testing.T, available int) *MemStore {
	t.Helper()
	m := NewMemStore()
	m.Seed(model.Product{SKUID: "sku-1", Name: "Test Widget", IsActive: true},
		model.Inventory{SKUID: "sku-1", Total: available, Available: available})
	return m
}

func TestMemStoreInsertReservationRejectsDuplicateIdempotencyKey(t *testing.T) {
	ctx := context.Background()
	m := seededStore(t, 5)
	now := time.Now()

	err := m.WithTx(ctx, func(tx TxStore) error {
		r := model.NewReservation("res-1", "user-1", "sku-1", now, time.Minute)
		if err := tx.InsertReservation(ctx, r); err != nil {
			return err
		}
		dup := model.NewReservation("res-2", "user-1", "sku-1", now, time.Minute)
		err := tx.InsertReservation(ctx, dup)
		if !errors.Is(err, ErrIdempotencyConflict) {
			t.Fatalf("expected ErrIdempotencyConflict, got %v", err)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("WithTx: %v", err)
	}
}

func TestMemStoreTransitionConfirmedIsOneShot(t *testing.T) {
	ctx := context.Background()
	m := seededStore(t, 5)
	now := time.Now()

	_ = m.WithTx(ctx, func(tx TxStore) error {
		r := model.NewReservation("res-1", "user-1", "sku-1", now, time.Minute)
		return tx.InsertReservation(ctx, r)
	})

	err := m.WithTx(ctx, func(tx TxStore) error {
		if _, err := tx.TransitionConfirmed(ctx, "res-1", now); err != nil {
			return err
		}
		// Second transition on an already-CONFIRMED row must fail: the
		// row is no longer RESERVED.
		_, err := tx.TransitionConfirmed(ctx, "res-1", now)
		if !errors.Is(err, ErrNotFound) {
			t.Fatalf("expected ErrNotFound re-confirming, got %v", err)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("WithTx: %v", err)
	}
}

func TestMemStoreExpiredReservationsPagesInOrder(t *testing.T) {
	ctx := context.Background()
	m := seededStore(t, 10)
	past := time.Now().Add(-time.Hour)

	_ = m.WithTx(ctx, func(tx TxStore) error {
		for _, id := range []string{"res-a", "res-b", "res-c"} {
			r := model.NewReservation(id, "user-"+id, "sku-1", past, time.Minute)
			if err := tx.InsertReservation(ctx, r); err != nil {
				return err
			}
		}
		return nil
	})

	page1, err := m.ExpiredReservations(ctx, time.Now(), 2, "")
	if err != nil {
		t.Fatalf("ExpiredReservations: %v", err)
	}
	if len(page1) != 2 {
		t.Fatalf("expected page of 2, got %d", len(page1))
	}
	if page1[0].ReservationID != "res-a" || page1[1].ReservationID != "res-b" {
		t.Fatalf("expected first page [res-a res-b], got [%s %s]", page1[0].ReservationID, page1[1].ReservationID)
	}

	page2, err := m.ExpiredReservations(ctx, time.Now(), 2, page1[len(page1)-1].ReservationID)
	if err != nil {
		t.Fatalf("ExpiredReservations page 2: %v", err)
	}
	if len(page2) != 1 {
		t.Fatalf("expected final page of 1, got %d", len(page2))
	}
	if page2[0].ReservationID != "res-c" {
		t.Fatalf("expected final page [res-c], got [%s]", page2[0].ReservationID)
	}
}

func TestMemStoreHasActiveHold(t *testing.T) {
	ctx := context.Background()
	m := seededStore(t, 5)
	now := time.Now()

	_ = m.WithTx(ctx, func(tx TxStore) error {
		r := model.NewReservation("res-1", "user-1", "sku-1", now, time.Minute)
		return tx.InsertReservation(ctx, r)
	})

	has, err := m.HasActiveHold(ctx, "user-1", "sku-1", now)
	if err != nil {
		t.Fatalf("HasActiveHold: %v", err)
	}
	if !has {
		t.Fatal("expected active hold")
	}

	has, err = m.HasActiveHold(ctx, "user-1", "sku-1", now.Add(2*time.Minute))
	if err != nil {
		t.Fatalf("HasActiveHold after expiry: %v", err)
	}
	if has {
		t.Fatal("expected no active hold after expiry")
	}
}
