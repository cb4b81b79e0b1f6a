package model

import (
	"testing"
	"time"
)

func TestIdempotencyKeyIsStablePerUserSKU(t *testing.T) {
	k1 := IdempotencyKey("user-1", "sku-1")
	k2 := IdempotencyKey("user-1", "sku-1")
	if k1 != k2 {
		t.Fatalf("expected stable key, got %q and %q", k1, k2)
	}
	if k1 == IdempotencyKey("user-2", "sku-1") {
		t.Fatal("expected distinct keys for distinct users")
	}
}

func TestNewReservationExpiry(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	r := NewReservation("res-1", "user-1", "sku-1", now, 2*time.Minute)

	if r.Status != StatusReserved {
		t.Fatalf("expected StatusReserved, got %s", r.Status)
	}
	if !r.ExpiresAt.Equal(now.Add(2 * time.Minute)) {
		t.Fatalf("expected expiry 2m after creation, got %v", r.ExpiresAt)
	}
	if r.Quantity != 1 {
		t.Fatalf("expected quantity 1, got %d", r.Quantity)
	}
}

func TestIsLiveHold(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	r := NewReservation("res-1", "user-1", "sku-1", now, time.Minute)

	if !r.IsLiveHold(now.Add(30 * time.Second)) {
		t.Fatal("expected live hold before expiry")
	}
	if r.IsLiveHold(now.Add(2 * time.Minute)) {
		t.Fatal("expected no live hold after expiry")
	}

	r.Status = StatusConfirmed
	if r.IsLiveHold(now) {
		t.Fatal("a confirmed reservation is never a live hold")
	}
}

func TestStatusTerminal(t *testing.T) {
	if StatusReserved.Terminal() {
		t.Fatal("RESERVED must not be terminal")
	}
	for _, s := range []Status{StatusConfirmed, StatusExpired, StatusCancelled, StatusFailed} {
		if !s.Terminal() {
			t.Fatalf("%s must be terminal", s)
		}
	}
}
