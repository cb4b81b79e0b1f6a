// Package sweeper implements the expiry sweeper of spec §4.5: a
// background loop that finds RESERVED holds past their expires_at and
// re-injects EXPIRE messages through the same partitioned log the batch
// consumer already drains, so expiry goes through the identical
// single-writer transition path as CONFIRM/CANCEL.
package sweeper

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/sanchit2222/flashsale/internal/config"
	"github.com/sanchit2222/flashsale/internal/queue"
	"github.com/sanchit2222/flashsale/internal/store"
)

// Sweeper periodically scans for expired reservations and republishes
// them as EXPIRE requests.
type Sweeper struct {
	st     store.Store
	q      queue.Producer
	cfg    config.Config
	logger *zap.Logger

	// now is overridable in tests; defaults to time.Now.
	now func() time.Time
}

func New(st store.Store, q queue.Producer, cfg config.Config, logger *zap.Logger) *Sweeper {
	return &Sweeper{st: st, q: q, cfg: cfg, logger: logger, now: time.Now}
}

// Run ticks every cfg.SweeperInterval until ctx is done, running one
// full paginated sweep per tick.
func (s *Sweeper) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.cfg.SweeperInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if err := s.sweepOnce(ctx); err != nil {
				s.logger.Error("sweeper: sweep failed", zap.Error(err))
			}
		}
	}
}

// sweepOnce pages through every RESERVED row with expires_at in the
// past, in ascending reservation_id order, publishing one EXPIRE message per
// row. Pagination bounds memory for a sale with a large simultaneous
// expiry wave (spec §4.5 edge case).
func (s *Sweeper) sweepOnce(ctx context.Context) error {
	before := s.now()
	afterID := ""
	total := 0

	for {
		batch, err := s.st.ExpiredReservations(ctx, before, s.cfg.SweeperPageSize, afterID)
		if err != nil {
			return fmt.Errorf("sweeper: list expired: %w", err)
		}
		if len(batch) == 0 {
			break
		}

		for _, r := range batch {
			req := queue.Request{
				Type:          queue.TypeExpire,
				RequestID:     "sweep-" + r.ReservationID,
				UserID:        r.UserID,
				SKUID:         r.SKUID,
				ReservationID: r.ReservationID,
				SubmittedAt:   s.now(),
			}
			payload, err := json.Marshal(req)
			if err != nil {
				return fmt.Errorf("sweeper: marshal expire request: %w", err)
			}
			if err := s.q.Publish(ctx, queue.RequestTopic, req.Key(), payload); err != nil {
				return fmt.Errorf("sweeper: publish expire for %s: %w", r.ReservationID, err)
			}
		}

		total += len(batch)
		afterID = batch[len(batch)-1].ReservationID
		if len(batch) < s.cfg.SweeperPageSize {
			break
		}
	}

	if total > 0 {
		s.logger.Info("sweeper: swept expired reservations", zap.Int("count", total))
	}
	return nil
}
