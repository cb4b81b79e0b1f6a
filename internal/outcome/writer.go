// Package outcome implements the Outcome Writer of spec §4.3: the sole
// bridge between the batch consumer's transaction commits and the
// Poller's reads. It writes the response cache and, best-effort, emits
// lifecycle events for non-core consumers.
package outcome

import (
	"context"
	"encoding/json"
	"time"

	"go.uber.org/zap"

	"github.com/sanchit2222/flashsale/internal/cache"
	"github.com/sanchit2222/flashsale/internal/config"
	"github.com/sanchit2222/flashsale/internal/errs"
	"github.com/sanchit2222/flashsale/internal/queue"
)

// Result is what the batch consumer hands to the Outcome Writer for one
// processed message.
type Result struct {
	Code          errs.Code
	Message       string
	ReservationID string
}

// Writer publishes Results to the response cache and lifecycle log.
type Writer struct {
	cache  cache.Cache
	lc     queue.Producer // may be nil: lifecycle events are best-effort
	cfg    config.Config
	logger *zap.Logger
}

func New(c cache.Cache, lifecycle queue.Producer, cfg config.Config, logger *zap.Logger) *Writer {
	return &Writer{cache: c, lc: lifecycle, cfg: cfg, logger: logger}
}

// Publish records the outcome of req and, on success, a lifecycle event
// whose Type is the request's own message type (RESERVE, CONFIRM, CANCEL
// or EXPIRE); there are no separate CREATED/CONFIRMED/EXPIRED/CANCELLED
// event types. The available count is written by PublishStock, not
// here. Cache-write failures
// are logged, not returned: the batch consumer has already committed,
// and a missed cache write just means the Poller falls through to
// TIMEOUT, which is safe per spec §7.
func (w *Writer) Publish(ctx context.Context, req queue.Request, res Result) {
	switch res.Code {
	case errs.Success:
		w.publishSuccess(ctx, req, res)
	default:
		w.publishRejection(ctx, req, res)
	}
}

func (w *Writer) publishSuccess(ctx context.Context, req queue.Request, res Result) {
	var eventType queue.MessageType
	switch req.Type {
	case queue.TypeConfirm:
		eventType = queue.TypeConfirm
		_ = w.cache.DelActive(ctx, req.UserID, req.SKUID)
		_ = w.cache.SetPurchased(ctx, req.UserID, req.SKUID)
	case queue.TypeCancel:
		eventType = queue.TypeCancel
		_ = w.cache.DelActive(ctx, req.UserID, req.SKUID)
	case queue.TypeExpire:
		eventType = queue.TypeExpire
		_ = w.cache.DelActive(ctx, req.UserID, req.SKUID)
	default:
		eventType = queue.TypeReserve
		if err := w.cache.SetActive(ctx, req.UserID, req.SKUID, res.ReservationID, w.cfg.HoldDuration); err != nil {
			w.logger.Warn("outcome: set active failed", zap.String("sku_id", req.SKUID), zap.Error(err))
		}
	}

	w.emitLifecycle(ctx, queue.LifecycleEvent{
		Type:          eventType,
		ReservationID: res.ReservationID,
		UserID:        req.UserID,
		SKUID:         req.SKUID,
		At:            time.Now(),
	})
}

func (w *Writer) publishRejection(ctx context.Context, req queue.Request, res Result) {
	entry := cache.RejectEntry{Code: string(res.Code), Message: res.Message}
	if err := w.cache.SetReject(ctx, req.UserID, req.SKUID, entry, w.cfg.RejectCacheTTL); err != nil {
		w.logger.Warn("outcome: set reject failed", zap.String("sku_id", req.SKUID), zap.Error(err))
	}
}

// PublishStock is called whenever the consumer commits an inventory
// change, updating stock:{sku} per spec §6; the submitter's step 4
// pre-check and the external availability read both consume it.
func (w *Writer) PublishStock(ctx context.Context, skuID string, available int) {
	if err := w.cache.SetStock(ctx, skuID, available, w.cfg.StockCacheTTL); err != nil {
		w.logger.Warn("outcome: set stock failed", zap.String("sku_id", skuID), zap.Error(err))
	}
}

func (w *Writer) emitLifecycle(ctx context.Context, ev queue.LifecycleEvent) {
	if w.lc == nil {
		return
	}
	payload, err := json.Marshal(ev)
	if err != nil {
		w.logger.Warn("outcome: marshal lifecycle event failed", zap.Error(err))
		return
	}
	if err := w.lc.Publish(ctx, queue.LifecycleTopic, ev.Key(), payload); err != nil {
		// Best-effort per spec §4.3: lifecycle events are "not required
		// for core correctness."
		w.logger.Warn("outcome: publish lifecycle event failed", zap.Error(err))
	}
}
