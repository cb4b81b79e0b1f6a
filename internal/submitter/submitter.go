// Package submitter implements the request-ingress / pre-validation path
// of spec §4.1: fast-fail checks that bypass the log entirely on
// failure, followed by a non-blocking enqueue keyed by sku_id.
package submitter

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/sanchit2222/flashsale/internal/cache"
	"github.com/sanchit2222/flashsale/internal/errs"
	"github.com/sanchit2222/flashsale/internal/model"
	"github.com/sanchit2222/flashsale/internal/poller"
	"github.com/sanchit2222/flashsale/internal/queue"
	"github.com/sanchit2222/flashsale/internal/store"
)

// precheckTimeout bounds every cache/DB call the submitter makes before
// enqueuing. A timeout here is never a hard failure (spec §5: "on
// failure treat as cache miss and proceed").
const precheckTimeout = 50 * time.Millisecond

// Submitter is the request-ingress component. It owns no state of its
// own beyond its dependencies; one instance is constructed at process
// startup and shared across requests, per SPEC_FULL.md's ambient-stack
// convention of explicit dependency injection rather than globals.
type Submitter struct {
	store  store.Store
	cache  cache.Cache
	log    queue.Producer
	poller *poller.Poller
	logger *zap.Logger
}

func New(st store.Store, ca cache.Cache, log queue.Producer, p *poller.Poller, logger *zap.Logger) *Submitter {
	return &Submitter{store: st, cache: ca, log: log, poller: p, logger: logger}
}

// Submit runs the four ordered pre-validation checks from spec §4.1
// (the first also rejects a sku with no product row as INVALID_REQUEST),
// then enqueues the request keyed by sku_id. It returns immediately
// after the log publish acknowledges; it does not wait for the batch
// consumer.
func (s *Submitter) Submit(ctx context.Context, userID, skuID string, quantity int) (requestID string, err error) {
	if quantity != 1 {
		return "", errs.New(errs.InvalidRequest, "quantity must be exactly 1")
	}

	pctx, cancel := context.WithTimeout(ctx, precheckTimeout)
	defer cancel()

	if _, err := s.store.GetProduct(pctx, skuID); errors.Is(err, store.ErrNotFound) {
		return "", errs.New(errs.InvalidRequest, "unknown sku")
	}
	if purchased, err := s.userHasPurchased(pctx, userID, skuID); err == nil && purchased {
		return "", errs.New(errs.UserAlreadyPurchased, "user already purchased this sku")
	}
	if hasHold, err := s.userHasActiveHold(pctx, userID, skuID); err == nil && hasHold {
		return "", errs.New(errs.UserHasActiveReservation, "user already holds a reservation for this sku")
	}
	if available, ok := s.cachedAvailable(pctx, skuID); ok && available < quantity {
		return "", errs.New(errs.OutOfStock, "sku is out of stock")
	}

	req := queue.Request{
		Type:           queue.TypeReserve,
		RequestID:      uuid.NewString(),
		UserID:         userID,
		SKUID:          skuID,
		Quantity:       quantity,
		IdempotencyKey: model.IdempotencyKey(userID, skuID),
		CorrelationID:  uuid.NewString(),
		SubmittedAt:    time.Now(),
	}
	payload, err := json.Marshal(req)
	if err != nil {
		return "", errs.Transientf("marshal request", err)
	}
	if err := s.log.Publish(ctx, queue.RequestTopic, req.Key(), payload); err != nil {
		s.logger.Error("submit: publish failed", zap.String("sku_id", skuID), zap.Error(err))
		return "", errs.Transientf("publish reservation request", err)
	}
	return req.RequestID, nil
}

// SubmitAndWait runs Submit and then blocks (via the Poller) until an
// outcome appears or the poll budget is exhausted, giving callers the
// "synchronous reservation" contract spec §4.1 describes.
func (s *Submitter) SubmitAndWait(ctx context.Context, userID, skuID string, quantity int) (poller.Outcome, error) {
	if _, err := s.Submit(ctx, userID, skuID, quantity); err != nil {
		var de *errs.DomainError
		if errors.As(err, &de) {
			return poller.Outcome{Code: de.Code, Message: de.Message}, nil
		}
		return poller.Outcome{}, err
	}
	return s.poller.WaitFor(ctx, userID, skuID), nil
}

func (s *Submitter) userHasPurchased(ctx context.Context, userID, skuID string) (bool, error) {
	if v, err := s.cache.GetPurchased(ctx, userID, skuID); err == nil && v {
		return true, nil
	}
	purchased, err := s.store.HasPurchased(ctx, userID, skuID)
	if err != nil {
		return false, fmt.Errorf("submitter: has purchased: %w", err)
	}
	if purchased {
		_ = s.cache.SetPurchased(ctx, userID, skuID)
	}
	return purchased, nil
}

// userHasActiveHold implements spec §4.1 step 3: a cache lookup against
// active:{user}:{sku} first (the same key the Outcome Writer populates on
// a successful allocation), falling back to a single authoritative row
// lookup on a miss.
func (s *Submitter) userHasActiveHold(ctx context.Context, userID, skuID string) (bool, error) {
	if _, ok, err := s.cache.GetActive(ctx, userID, skuID); err == nil && ok {
		return true, nil
	}
	return s.store.HasActiveHold(ctx, userID, skuID, time.Now())
}

// cachedAvailable returns (available, true) only when the stock cache
// has a value; absence is not a negative per spec §4.1 step 4, so the
// caller must treat ok==false as "proceed."
func (s *Submitter) cachedAvailable(ctx context.Context, skuID string) (int, bool) {
	n, ok, err := s.cache.GetStock(ctx, skuID)
	if err != nil || !ok {
		return 0, false
	}
	return n, true
}
