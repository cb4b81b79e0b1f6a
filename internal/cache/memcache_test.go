package cache

import (
	"context"
	"testing"
	"time"
)

func TestMemActiveRoundTrip(t *testing.T) {
	ctx := context.Background()
	m := NewMem()

	if err := m.SetActive(ctx, "user-1", "sku-1", "res-1", time.Minute); err != nil {
		t.Fatalf("SetActive: %v", err)
	}
	id, ok, err := m.GetActive(ctx, "user-1", "sku-1")
	if err != nil || !ok || id != "res-1" {
		t.Fatalf("GetActive = %q, %v, %v", id, ok, err)
	}

	if err := m.DelActive(ctx, "user-1", "sku-1"); err != nil {
		t.Fatalf("DelActive: %v", err)
	}
	if _, ok, _ := m.GetActive(ctx, "user-1", "sku-1"); ok {
		t.Fatal("expected active entry gone after DelActive")
	}
}

func TestMemActiveExpires(t *testing.T) {
	ctx := context.Background()
	m := NewMem()

	if err := m.SetActive(ctx, "user-1", "sku-1", "res-1", time.Nanosecond); err != nil {
		t.Fatalf("SetActive: %v", err)
	}
	time.Sleep(time.Millisecond)
	if _, ok, _ := m.GetActive(ctx, "user-1", "sku-1"); ok {
		t.Fatal("expected entry expired")
	}
}

func TestMemGetAndDelRejectIsOneShot(t *testing.T) {
	ctx := context.Background()
	m := NewMem()

	entry := RejectEntry{Code: "OUT_OF_STOCK", Message: "no stock"}
	if err := m.SetReject(ctx, "user-1", "sku-1", entry, time.Minute); err != nil {
		t.Fatalf("SetReject: %v", err)
	}

	got, ok, err := m.GetAndDelReject(ctx, "user-1", "sku-1")
	if err != nil || !ok || got != entry {
		t.Fatalf("GetAndDelReject = %+v, %v, %v", got, ok, err)
	}

	if _, ok, _ := m.GetAndDelReject(ctx, "user-1", "sku-1"); ok {
		t.Fatal("expected reject entry consumed after first read")
	}
}

func TestMemStockRoundTrip(t *testing.T) {
	ctx := context.Background()
	m := NewMem()

	if err := m.SetStock(ctx, "sku-1", 42, time.Minute); err != nil {
		t.Fatalf("SetStock: %v", err)
	}
	n, ok, err := m.GetStock(ctx, "sku-1")
	if err != nil || !ok || n != 42 {
		t.Fatalf("GetStock = %d, %v, %v", n, ok, err)
	}
}

func TestMemPurchasedIsSticky(t *testing.T) {
	ctx := context.Background()
	m := NewMem()

	if got, _ := m.GetPurchased(ctx, "user-1", "sku-1"); got {
		t.Fatal("expected not purchased initially")
	}
	if err := m.SetPurchased(ctx, "user-1", "sku-1"); err != nil {
		t.Fatalf("SetPurchased: %v", err)
	}
	if got, _ := m.GetPurchased(ctx, "user-1", "sku-1"); !got {
		t.Fatal("expected purchased after SetPurchased")
	}
}
