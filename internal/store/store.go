// Package store formalizes spec §6's durable-store schema as a Go port.
// Store is the full surface the batch consumer, submitter, sweeper, and
// availability reads need; TxStore scopes the single transaction per sku group
// that spec §4.2 step 4 requires.
package store

import (
	"context"
	"time"

	"github.com/sanchit2222/flashsale/internal/model"
)

// ErrNotFound is returned by single-row lookups that find nothing.
var ErrNotFound = &notFoundError{}

type notFoundError struct{}

func (*notFoundError) Error() string { return "store: not found" }

// Store is the durable-store port. All mutation of Inventory/Reservation
// rows happens inside WithTx, scoped to one sku group, matching the
// single-writer-per-partition invariant (spec §4.2, §5).
type Store interface {
	// GetProduct returns the catalog row for skuID, or ErrNotFound.
	GetProduct(ctx context.Context, skuID string) (model.Product, error)

	// GetAvailable reads the committed available count. The batch
	// consumer calls it after each sku group commits to seed the stock
	// cache; the submitter does not fall back to it on a stock-cache miss.
	GetAvailable(ctx context.Context, skuID string) (int, error)

	// HasPurchased backs the submitter's step 2 DB fallback.
	HasPurchased(ctx context.Context, userID, skuID string) (bool, error)

	// HasActiveHold backs the submitter's step 3 DB fallback: a RESERVED
	// row for (userID, skuID) with expires_at > now.
	HasActiveHold(ctx context.Context, userID, skuID string, now time.Time) (bool, error)

	// GetReservationByIdempotencyKey returns the RESERVED row for key, or
	// ErrNotFound. The batch consumer's idempotent-replay check (spec
	// §4.2 step 3c) uses the TxStore variant inside its transaction.
	GetReservationByIdempotencyKey(ctx context.Context, key string) (model.Reservation, error)

	// GetReservation returns a single reservation by id, used by CONFIRM/
	// CANCEL/EXPIRE appliers.
	GetReservation(ctx context.Context, reservationID string) (model.Reservation, error)

	// ExpiredReservations pages through RESERVED rows with expires_at <
	// before, in ascending reservation_id order starting after afterID,
	// for the sweeper (spec §4.5).
	ExpiredReservations(ctx context.Context, before time.Time, limit int, afterID string) ([]model.Reservation, error)

	// WithTx runs fn inside a single transaction, scoped to the caller
	// (the batch consumer owns one sku group per call). fn's TxStore
	// reflects writes made so far within the same transaction.
	WithTx(ctx context.Context, fn func(TxStore) error) error
}

// TxStore is the write surface available inside one Store.WithTx call.
// It is intentionally narrow: every write it exposes is a transition
// spec §4.2/§4.5 describes, never a raw field update.
type TxStore interface {
	// GetInventoryForUpdate locks and returns the Inventory row for
	// skuID. Because the sku has exactly one writer, this needs no
	// stronger isolation than the transaction's own write-set (spec
	// §4.2 correctness notes), but the method name documents intent for
	// anyone reading the SQL.
	GetInventoryForUpdate(ctx context.Context, skuID string) (model.Inventory, error)
	SaveInventory(ctx context.Context, inv model.Inventory) error

	// InsertReservation inserts a new RESERVED row. It must fail with
	// ErrIdempotencyConflict if idempotency_key already identifies a
	// RESERVED row (the unique-index backed authoritative check, spec §4.2 step 3b/c).
	InsertReservation(ctx context.Context, r model.Reservation) error

	// GetReservationByIdempotencyKeyForUpdate is InsertReservation's
	// read-before-write companion, used inside the same transaction to
	// resolve a duplicate to the existing row.
	GetReservationByIdempotencyKeyForUpdate(ctx context.Context, key string) (model.Reservation, error)

	// GetReservationForUpdate locks and returns a single reservation by
	// id, used by the CONFIRM/CANCEL/EXPIRE appliers (spec §4.2), which
	// all address a reservation by its id rather than its idempotency
	// key.
	GetReservationForUpdate(ctx context.Context, reservationID string) (model.Reservation, error)

	// HasActiveHoldForUpdate is the authoritative recheck behind spec
	// §4.2 step 3b, evaluated inside the writer's own transaction.
	HasActiveHoldForUpdate(ctx context.Context, userID, skuID string, now time.Time) (bool, error)

	TransitionConfirmed(ctx context.Context, reservationID string, at time.Time) (model.Reservation, error)
	TransitionCancelled(ctx context.Context, reservationID string, at time.Time) (model.Reservation, error)
	TransitionExpired(ctx context.Context, reservationID string, at time.Time) (model.Reservation, error)

	InsertUserPurchase(ctx context.Context, p model.UserPurchase) error
}

// ErrIdempotencyConflict is returned by InsertReservation when the
// idempotency key already identifies a live row.
var ErrIdempotencyConflict = &idempotencyConflictError{}

type idempotencyConflictError struct{}

func (*idempotencyConflictError) Error() string { return "store: idempotency key already reserved" }
