package poller

import (
	"context"
	"testing"
	"time"

	"github.com/sanchit2222/flashsale/internal/cache"
	"github.com/sanchit2222/flashsale/internal/config"
	"github.com/sanchit2222/flashsale/internal/errs"
	"github.com/sanchit2222/flashsale/internal/model"
	"github.com/sanchit2222/flashsale/internal/store"
)

func fastConfig() config.Config {
	return config.New(config.WithPoll(20, time.Millisecond, 5*time.Millisecond, 3))
}

func TestWaitForReturnsRejectImmediately(t *testing.T) {
	ctx := context.Background()
	c := cache.NewMem()
	st := store.NewMemStore()

	_ = c.SetReject(ctx, "user-1", "sku-1", cache.RejectEntry{Code: string(errs.OutOfStock), Message: "no stock"}, time.Minute)

	p := New(c, st, fastConfig())
	out := p.WaitFor(ctx, "user-1", "sku-1")
	if out.Code != errs.OutOfStock {
		t.Fatalf("expected OUT_OF_STOCK, got %s", out.Code)
	}
}

func TestWaitForReturnsSuccessOnceActiveAndReserved(t *testing.T) {
	ctx := context.Background()
	c := cache.NewMem()
	st := store.NewMemStore()
	st.Seed(model.Product{SKUID: "sku-1", IsActive: true}, model.Inventory{SKUID: "sku-1", Total: 1, Available: 0, Reserved: 1})

	now := time.Now()
	_ = st.WithTx(ctx, func(tx store.TxStore) error {
		r := model.NewReservation("res-1", "user-1", "sku-1", now, time.Minute)
		return tx.InsertReservation(ctx, r)
	})

	p := New(c, st, fastConfig())

	go func() {
		time.Sleep(10 * time.Millisecond)
		_ = c.SetActive(ctx, "user-1", "sku-1", "res-1", time.Minute)
	}()

	out := p.WaitFor(ctx, "user-1", "sku-1")
	if out.Code != errs.Success || out.ReservationID != "res-1" {
		t.Fatalf("expected SUCCESS with res-1, got %+v", out)
	}
}

func TestWaitForTimesOutWithoutOutcome(t *testing.T) {
	ctx := context.Background()
	c := cache.NewMem()
	st := store.NewMemStore()

	p := New(c, st, fastConfig())
	out := p.WaitFor(ctx, "user-1", "sku-1")
	if out.Code != errs.Timeout {
		t.Fatalf("expected TIMEOUT, got %s", out.Code)
	}
}
