package submitter

import (
	"context"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/sanchit2222/flashsale/internal/cache"
	"github.com/sanchit2222/flashsale/internal/config"
	"github.com/sanchit2222/flashsale/internal/errs"
	"github.com/sanchit2222/flashsale/internal/model"
	"github.com/sanchit2222/flashsale/internal/poller"
	"github.com/sanchit2222/flashsale/internal/queue"
	"github.com/sanchit2222/flashsale/internal/store"
)

func TestSubmitRejectsAlreadyPurchased(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemStore()
	st.Seed(model.Product{SKUID: "sku-1", IsActive: true}, model.Inventory{SKUID: "sku-1", Total: 5, Available: 5})
	ca := cache.NewMem()
	_ = ca.SetPurchased(ctx, "user-1", "sku-1")

	log := queue.NewFakeLog()
	sub := New(st, ca, log, poller.New(ca, st, config.New()), zap.NewNop())

	_, err := sub.Submit(ctx, "user-1", "sku-1", 1)
	de, ok := errs.AsDomainError(err)
	if !ok || de.Code != errs.UserAlreadyPurchased {
		t.Fatalf("expected USER_ALREADY_PURCHASED, got %v", err)
	}
}

func TestSubmitRejectsQuantityNotOne(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemStore()
	ca := cache.NewMem()
	log := queue.NewFakeLog()
	sub := New(st, ca, log, poller.New(ca, st, config.New()), zap.NewNop())

	_, err := sub.Submit(ctx, "user-1", "sku-1", 2)
	de, ok := errs.AsDomainError(err)
	if !ok || de.Code != errs.InvalidRequest {
		t.Fatalf("expected INVALID_REQUEST, got %v", err)
	}
}

func TestSubmitRejectsExistingActiveHold(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemStore()
	st.Seed(model.Product{SKUID: "sku-1", IsActive: true}, model.Inventory{SKUID: "sku-1", Total: 5, Available: 4, Reserved: 1})
	ca := cache.NewMem()
	log := queue.NewFakeLog()
	sub := New(st, ca, log, poller.New(ca, st, config.New()), zap.NewNop())

	now := time.Now()
	_ = st.WithTx(ctx, func(tx store.TxStore) error {
		r := model.NewReservation("res-1", "user-1", "sku-1", now, time.Minute)
		return tx.InsertReservation(ctx, r)
	})

	_, err := sub.Submit(ctx, "user-1", "sku-1", 1)
	de, ok := errs.AsDomainError(err)
	if !ok || de.Code != errs.UserHasActiveReservation {
		t.Fatalf("expected USER_HAS_ACTIVE_RESERVATION, got %v", err)
	}
}

func TestSubmitEnqueuesRequestKeyedBySKU(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemStore()
	st.Seed(model.Product{SKUID: "sku-1", IsActive: true}, model.Inventory{SKUID: "sku-1", Total: 5, Available: 5})
	ca := cache.NewMem()
	log := queue.NewFakeLog()
	sub := New(st, ca, log, poller.New(ca, st, config.New()), zap.NewNop())

	reqID, err := sub.Submit(ctx, "user-1", "sku-1", 1)
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if reqID == "" {
		t.Fatal("expected non-empty request id")
	}

	batch, err := log.Consumer(queue.RequestTopic).PollBatch(ctx, 10)
	if err != nil {
		t.Fatalf("PollBatch: %v", err)
	}
	if len(batch.Records) != 1 || batch.Records[0].Key != "sku-1" {
		t.Fatalf("expected one record keyed sku-1, got %+v", batch.Records)
	}
}
