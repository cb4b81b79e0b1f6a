// Package consumer implements the partitioned batch consumer of spec
// §4.2: the single writer per sku_id that drains the ordered log in
// batches, allocates inventory in arrival order, and commits one
// transaction per sku group. It is the core of the system's throughput
// story — see spec §2's component table.
package consumer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/sanchit2222/flashsale/internal/config"
	"github.com/sanchit2222/flashsale/internal/errs"
	"github.com/sanchit2222/flashsale/internal/model"
	"github.com/sanchit2222/flashsale/internal/outcome"
	"github.com/sanchit2222/flashsale/internal/queue"
	"github.com/sanchit2222/flashsale/internal/store"
)

// Worker owns one partition's worth of sku_ids. There is exactly one
// Worker goroutine per partition; within a partition there is no
// parallelism (spec §5), which is what lets allocation skip locking
// entirely.
type Worker struct {
	st     store.Store
	q      queue.Consumer
	oc     *outcome.Writer
	cfg    config.Config
	logger *zap.Logger
}

func NewWorker(st store.Store, q queue.Consumer, oc *outcome.Writer, cfg config.Config, logger *zap.Logger) *Worker {
	return &Worker{st: st, q: q, oc: oc, cfg: cfg, logger: logger}
}

// Run drives the batch loop (spec §4.2) until ctx is done. A failed
// iteration is logged and the loop resumes after a 200ms pause.
func (w *Worker) Run(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			return nil
		}
		if err := w.runOnce(ctx); err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return nil
			}
			w.logger.Error("batch consumer: pull failed, backing off", zap.Error(err))
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(200 * time.Millisecond):
			}
		}
	}
}

// runOnce performs one iteration of the batch loop: pull, group, apply,
// ack, publish outcomes.
func (w *Worker) runOnce(ctx context.Context) error {
	pullCtx, cancel := context.WithTimeout(ctx, w.cfg.BatchWait)
	defer cancel()

	batch, err := w.q.PollBatch(pullCtx, w.cfg.BatchSize)
	if err != nil && !errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("consumer: poll batch: %w", err)
	}
	if len(batch.Records) == 0 {
		return nil
	}

	requests := make([]queue.Request, 0, len(batch.Records))
	for _, rec := range batch.Records {
		var req queue.Request
		if err := json.Unmarshal(rec.Value, &req); err != nil {
			// Poison message: log and drop, advancing past it rather
			// than blocking the partition forever.
			w.logger.Warn("consumer: dropping undecodable message", zap.Error(err))
			continue
		}
		requests = append(requests, req)
	}

	groups := groupBySKU(requests)
	results := make(map[string]outcome.Result, len(requests))
	stock := make(map[string]int, len(groups))
	for skuID, group := range groups {
		skuResults, available, err := w.applySKUGroup(ctx, skuID, group)
		if err != nil {
			return fmt.Errorf("consumer: apply sku group %s: %w", skuID, err)
		}
		for id, res := range skuResults {
			results[id] = res
		}
		stock[skuID] = available
	}

	if err := w.q.Ack(ctx, batch); err != nil {
		return fmt.Errorf("consumer: ack batch: %w", err)
	}

	for _, req := range requests {
		res, ok := results[req.RequestID]
		if !ok {
			continue
		}
		w.oc.Publish(ctx, req, res)
	}
	for skuID, available := range stock {
		w.oc.PublishStock(ctx, skuID, available)
	}
	return nil
}

func groupBySKU(requests []queue.Request) map[string][]queue.Request {
	groups := make(map[string][]queue.Request)
	for _, r := range requests {
		groups[r.SKUID] = append(groups[r.SKUID], r)
	}
	return groups
}

// applySKUGroup runs spec §4.2 steps 3-4 for one sku_id's slice of a
// batch, inside a single transaction. Messages are processed in arrival
// order, which is also the order they appear in group (batch order is
// preserved by groupBySKU).
func (w *Worker) applySKUGroup(ctx context.Context, skuID string, group []queue.Request) (map[string]outcome.Result, int, error) {
	results := make(map[string]outcome.Result, len(group))
	now := time.Now()
	var available int

	err := w.st.WithTx(ctx, func(tx store.TxStore) error {
		seenInBatch := make(map[string]bool, len(group))
		var toAllocate []queue.Request

		for _, req := range group {
			switch req.Type {
			case queue.TypeConfirm:
				results[req.RequestID] = w.applyConfirm(ctx, tx, req, now)
				continue
			case queue.TypeCancel:
				results[req.RequestID] = w.applyCancel(ctx, tx, req, now)
				continue
			case queue.TypeExpire:
				results[req.RequestID] = w.applyExpire(ctx, tx, req, now)
				continue
			}

			// TypeReserve: dedupe within the batch first (spec §4.2
			// step 3a).
			if seenInBatch[req.IdempotencyKey] {
				results[req.RequestID] = outcome.Result{Code: errs.DuplicateRequest, Message: "duplicate request within batch"}
				continue
			}
			seenInBatch[req.IdempotencyKey] = true

			// Authoritative idempotency check (step 3c): a live
			// RESERVED row for this key already exists, surface it.
			if existing, err := tx.GetReservationByIdempotencyKeyForUpdate(ctx, req.IdempotencyKey); err == nil {
				results[req.RequestID] = outcome.Result{Code: errs.Success, ReservationID: existing.ReservationID}
				continue
			} else if !errors.Is(err, store.ErrNotFound) {
				return fmt.Errorf("check idempotency key: %w", err)
			}

			// Authoritative per-user uniqueness recheck (step 3b).
			if hasHold, err := tx.HasActiveHoldForUpdate(ctx, req.UserID, req.SKUID, now); err != nil {
				return fmt.Errorf("check active hold: %w", err)
			} else if hasHold {
				results[req.RequestID] = outcome.Result{Code: errs.UserHasActiveReservation, Message: "user already holds a reservation"}
				continue
			}

			toAllocate = append(toAllocate, req)
		}

		if len(toAllocate) == 0 {
			return nil
		}

		inv, err := tx.GetInventoryForUpdate(ctx, skuID)
		if err != nil {
			return fmt.Errorf("get inventory: %w", err)
		}

		winners, rejected := allocate(inv.Available, toAllocate)
		for _, req := range rejected {
			results[req.RequestID] = outcome.Result{Code: errs.OutOfStock, Message: "insufficient stock"}
		}

		for _, req := range winners {
			if err := inv.Allocate(1); err != nil {
				return fmt.Errorf("allocate: %w", err)
			}
			reservationID := uuid.NewString()
			r := model.NewReservation(reservationID, req.UserID, req.SKUID, now, w.cfg.HoldDuration)
			if err := tx.InsertReservation(ctx, r); err != nil {
				if errors.Is(err, store.ErrIdempotencyConflict) {
					// Lost a race against an in-flight row from a
					// prior batch that hadn't yet become visible;
					// surface it as a duplicate rather than failing
					// the whole sku group.
					results[req.RequestID] = outcome.Result{Code: errs.DuplicateRequest, Message: "idempotency key already in use"}
					if err := inv.Release(1); err != nil {
						return fmt.Errorf("release after conflict: %w", err)
					}
					continue
				}
				return fmt.Errorf("insert reservation: %w", err)
			}
			results[req.RequestID] = outcome.Result{Code: errs.Success, ReservationID: reservationID}
		}

		if err := tx.SaveInventory(ctx, inv); err != nil {
			return fmt.Errorf("save inventory: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, 0, err
	}

	// Best-effort post-commit read to seed the stock cache (spec §6);
	// its own TTL means a stale or failed read here is self-healing,
	// not a correctness issue.
	if a, err := w.st.GetAvailable(ctx, skuID); err == nil {
		available = a
	}
	return results, available, nil
}

// allocate computes how many of requests (in arrival order) can be
// satisfied from available units, per spec §4.2 step 3d. This ordering
// is load-bearing: SPEC_FULL.md fixes it as arrival order and a
// property-based test (consumer_test.go) guards against silent
// reordering by a future optimizer.
func allocate(available int, requests []queue.Request) (winners, rejected []queue.Request) {
	remaining := available
	for _, req := range requests {
		if remaining > 0 {
			winners = append(winners, req)
			remaining--
		} else {
			rejected = append(rejected, req)
		}
	}
	return winners, rejected
}

func (w *Worker) applyConfirm(ctx context.Context, tx store.TxStore, req queue.Request, now time.Time) outcome.Result {
	r, err := confirmReservation(ctx, tx, req, now)
	if err != nil {
		if errors.Is(err, errAlreadyConfirmed) {
			return outcome.Result{Code: errs.Success, ReservationID: req.ReservationID}
		}
		return outcome.Result{Code: errs.CannotConfirm, Message: err.Error()}
	}
	return outcome.Result{Code: errs.Success, ReservationID: r.ReservationID}
}

var errAlreadyConfirmed = errors.New("already confirmed")

// confirmReservation implements spec §4.2's CONFIRM transition: find
// RESERVED and unexpired, move reserved->sold, insert UserPurchase. If
// already CONFIRMED, it is an idempotent no-op success; if EXPIRED or
// missing, CANNOT_CONFIRM.
func confirmReservation(ctx context.Context, tx store.TxStore, req queue.Request, now time.Time) (model.Reservation, error) {
	current, err := getByIDOrKey(ctx, tx, req)
	if err != nil {
		return model.Reservation{}, fmt.Errorf("reservation not found: %w", err)
	}
	if current.Status == model.StatusConfirmed {
		return current, errAlreadyConfirmed
	}
	if current.Status != model.StatusReserved || !current.ExpiresAt.After(now) {
		return model.Reservation{}, fmt.Errorf("reservation %s is %s, not confirmable", current.ReservationID, current.Status)
	}

	r, err := tx.TransitionConfirmed(ctx, current.ReservationID, now)
	if err != nil {
		return model.Reservation{}, fmt.Errorf("transition confirmed: %w", err)
	}

	inv, err := tx.GetInventoryForUpdate(ctx, r.SKUID)
	if err != nil {
		return model.Reservation{}, fmt.Errorf("get inventory: %w", err)
	}
	if err := inv.Settle(r.Quantity); err != nil {
		return model.Reservation{}, fmt.Errorf("settle inventory: %w", err)
	}
	if err := tx.SaveInventory(ctx, inv); err != nil {
		return model.Reservation{}, fmt.Errorf("save inventory: %w", err)
	}

	if err := tx.InsertUserPurchase(ctx, model.UserPurchase{
		UserID:        r.UserID,
		SKUID:         r.SKUID,
		OrderID:       req.RequestID,
		ReservationID: r.ReservationID,
		Quantity:      r.Quantity,
		CreatedAt:     now,
	}); err != nil {
		return model.Reservation{}, fmt.Errorf("insert user purchase: %w", err)
	}

	return r, nil
}

func (w *Worker) applyCancel(ctx context.Context, tx store.TxStore, req queue.Request, now time.Time) outcome.Result {
	current, err := getByIDOrKey(ctx, tx, req)
	if err != nil {
		return outcome.Result{Code: errs.CannotConfirm, Message: "reservation not found"}
	}
	if current.Status != model.StatusReserved {
		// Already terminal: whichever of CANCEL/CONFIRM/EXPIRE landed
		// first through this single writer wins; the rest are no-ops
		// (spec §4.5).
		return outcome.Result{Code: errs.Success, ReservationID: current.ReservationID}
	}
	r, err := tx.TransitionCancelled(ctx, current.ReservationID, now)
	if err != nil {
		return outcome.Result{Code: errs.CannotConfirm, Message: err.Error()}
	}
	if err := releaseInventory(ctx, tx, r); err != nil {
		return outcome.Result{Code: errs.ProcessingError, Message: err.Error()}
	}
	return outcome.Result{Code: errs.Success, ReservationID: r.ReservationID}
}

func (w *Worker) applyExpire(ctx context.Context, tx store.TxStore, req queue.Request, now time.Time) outcome.Result {
	current, err := getByIDOrKey(ctx, tx, req)
	if err != nil {
		return outcome.Result{Code: errs.Success, Message: "reservation already resolved"}
	}
	if current.Status != model.StatusReserved {
		return outcome.Result{Code: errs.Success, ReservationID: current.ReservationID}
	}
	r, err := tx.TransitionExpired(ctx, current.ReservationID, now)
	if err != nil {
		return outcome.Result{Code: errs.ProcessingError, Message: err.Error()}
	}
	if err := releaseInventory(ctx, tx, r); err != nil {
		return outcome.Result{Code: errs.ProcessingError, Message: err.Error()}
	}
	return outcome.Result{Code: errs.Success, ReservationID: r.ReservationID}
}

func releaseInventory(ctx context.Context, tx store.TxStore, r model.Reservation) error {
	inv, err := tx.GetInventoryForUpdate(ctx, r.SKUID)
	if err != nil {
		return fmt.Errorf("get inventory: %w", err)
	}
	if err := inv.Release(r.Quantity); err != nil {
		return fmt.Errorf("release inventory: %w", err)
	}
	return tx.SaveInventory(ctx, inv)
}

func getByIDOrKey(ctx context.Context, tx store.TxStore, req queue.Request) (model.Reservation, error) {
	return tx.GetReservationForUpdate(ctx, req.ReservationID)
}
