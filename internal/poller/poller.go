// Package poller implements the per-request wait loop of spec §4.4: a
// synchronous caller blocks on WaitFor while the batch consumer posts
// outcomes to the response cache on its own schedule. The poller never
// subscribes to anything; it only reads.
package poller

import (
	"context"
	"time"

	"github.com/sanchit2222/flashsale/internal/cache"
	"github.com/sanchit2222/flashsale/internal/config"
	"github.com/sanchit2222/flashsale/internal/errs"
	"github.com/sanchit2222/flashsale/internal/model"
	"github.com/sanchit2222/flashsale/internal/store"
)

// Outcome is what WaitFor returns: either a terminal code with a message,
// or the TIMEOUT code if the poll budget ran out without a visible
// outcome. A TIMEOUT is not an error in the reservation itself (spec
// §4.4) — the reservation may still complete moments later.
type Outcome struct {
	Code          errs.Code
	Message       string
	ReservationID string
}

// Poller reads the response cache on behalf of blocked callers.
type Poller struct {
	cache cache.Cache
	store store.Store
	cfg   config.Config
}

func New(c cache.Cache, st store.Store, cfg config.Config) *Poller {
	return &Poller{cache: c, store: st, cfg: cfg}
}

// WaitFor polls up to cfg.PollMaxAttempts times for an outcome of a
// reservation request for (userID, skuID), with the progressive backoff
// spec §4.4 specifies: the interval holds at PollInitialInterval for the
// first PollBackoffAfter attempts (tuned to the batch consumer's ~10ms
// rhythm), then doubles each attempt up to PollMaxInterval. The whole
// wait is also capped at one second; hitting the cap returns TIMEOUT.
func (p *Poller) WaitFor(ctx context.Context, userID, skuID string) Outcome {
	ctx, cancel := context.WithTimeout(ctx, time.Second)
	defer cancel()

	interval := p.cfg.PollInitialInterval
	for attempt := 0; attempt < p.cfg.PollMaxAttempts; attempt++ {
		if rej, ok, err := p.cache.GetAndDelReject(ctx, userID, skuID); err == nil && ok {
			return Outcome{Code: errs.Code(rej.Code), Message: rej.Message}
		}

		if resID, ok, err := p.cache.GetActive(ctx, userID, skuID); err == nil && ok {
			r, err := p.store.GetReservation(ctx, resID)
			if err == nil && r.Status == model.StatusReserved {
				return Outcome{Code: errs.Success, ReservationID: resID}
			}
		}

		select {
		case <-ctx.Done():
			return Outcome{Code: errs.Timeout, Message: ctx.Err().Error()}
		case <-time.After(interval):
		}

		if attempt+1 >= p.cfg.PollBackoffAfter {
			interval *= 2
			if interval > p.cfg.PollMaxInterval {
				interval = p.cfg.PollMaxInterval
			}
		}
	}
	return Outcome{Code: errs.Timeout, Message: "no outcome within poll budget"}
}
