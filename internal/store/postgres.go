package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/sanchit2222/flashsale/internal/model"
)

// Postgres is the pgx-backed Store implementation, matching the schema in
// migrations/0001_init.sql.
type Postgres struct {
	pool *pgxpool.Pool
}

func NewPostgres(ctx context.Context, dsn string) (*Postgres, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("store: connect: %w", err)
	}
	return &Postgres{pool: pool}, nil
}

func (p *Postgres) Close() { p.pool.Close() }

func (p *Postgres) GetProduct(ctx context.Context, skuID string) (model.Product, error) {
	row := p.pool.QueryRow(ctx, `SELECT sku_id, name, category, image_url, base_price, sale_price, event_id, is_active, created_at, updated_at
		FROM products WHERE sku_id = $1`, skuID)
	var pr model.Product
	var base, sale decimal.Decimal
	if err := row.Scan(&pr.SKUID, &pr.Name, &pr.Category, &pr.ImageURL, &base, &sale, &pr.EventID, &pr.IsActive, &pr.CreatedAt, &pr.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.Product{}, ErrNotFound
		}
		return model.Product{}, fmt.Errorf("store: get product %s: %w", skuID, err)
	}
	pr.BasePrice, pr.SalePrice = base, sale
	return pr, nil
}

func (p *Postgres) GetAvailable(ctx context.Context, skuID string) (int, error) {
	var available int
	err := p.pool.QueryRow(ctx, `SELECT available FROM inventory WHERE sku_id = $1`, skuID).Scan(&available)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, ErrNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("store: get available %s: %w", skuID, err)
	}
	return available, nil
}

func (p *Postgres) HasPurchased(ctx context.Context, userID, skuID string) (bool, error) {
	var exists bool
	err := p.pool.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM user_purchases WHERE user_id=$1 AND sku_id=$2)`, userID, skuID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("store: has purchased %s/%s: %w", userID, skuID, err)
	}
	return exists, nil
}

func (p *Postgres) HasActiveHold(ctx context.Context, userID, skuID string, now time.Time) (bool, error) {
	var exists bool
	err := p.pool.QueryRow(ctx, `SELECT EXISTS(
		SELECT 1 FROM reservations
		WHERE user_id=$1 AND sku_id=$2 AND status='RESERVED' AND expires_at > $3)`,
		userID, skuID, now).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("store: has active hold %s/%s: %w", userID, skuID, err)
	}
	return exists, nil
}

func (p *Postgres) GetReservationByIdempotencyKey(ctx context.Context, key string) (model.Reservation, error) {
	return scanReservation(p.pool.QueryRow(ctx, reservationSelect+` WHERE idempotency_key = $1 AND status = 'RESERVED'`, key))
}

func (p *Postgres) GetReservation(ctx context.Context, reservationID string) (model.Reservation, error) {
	return scanReservation(p.pool.QueryRow(ctx, reservationSelect+` WHERE reservation_id = $1`, reservationID))
}

func (p *Postgres) ExpiredReservations(ctx context.Context, before time.Time, limit int, afterID string) ([]model.Reservation, error) {
	rows, err := p.pool.Query(ctx, reservationSelect+`
		WHERE status = 'RESERVED' AND expires_at < $1 AND reservation_id > $2
		ORDER BY reservation_id ASC LIMIT $3`, before, afterID, limit)
	if err != nil {
		return nil, fmt.Errorf("store: expired reservations: %w", err)
	}
	defer rows.Close()
	var out []model.Reservation
	for rows.Next() {
		r, err := scanReservationRows(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (p *Postgres) WithTx(ctx context.Context, fn func(TxStore) error) error {
	tx, err := p.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("store: begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	if err := fn(&pgTx{tx: tx}); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("store: commit tx: %w", err)
	}
	return nil
}

const reservationSelect = `SELECT reservation_id, user_id, sku_id, quantity, status, expires_at, idempotency_key,
	created_at, confirmed_at, expired_at, cancelled_at FROM reservations`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanReservation(row pgx.Row) (model.Reservation, error) {
	return scanReservationRows(row)
}

func scanReservationRows(row rowScanner) (model.Reservation, error) {
	var r model.Reservation
	err := row.Scan(&r.ReservationID, &r.UserID, &r.SKUID, &r.Quantity, &r.Status, &r.ExpiresAt, &r.IdempotencyKey,
		&r.CreatedAt, &r.ConfirmedAt, &r.ExpiredAt, &r.CancelledAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return model.Reservation{}, ErrNotFound
	}
	if err != nil {
		return model.Reservation{}, fmt.Errorf("store: scan reservation: %w", err)
	}
	return r, nil
}

// pgTx implements TxStore over a single pgx.Tx, used inside Postgres.WithTx.
type pgTx struct {
	tx pgx.Tx
}

func (t *pgTx) GetInventoryForUpdate(ctx context.Context, skuID string) (model.Inventory, error) {
	var inv model.Inventory
	err := t.tx.QueryRow(ctx, `SELECT sku_id, total, reserved, sold, available, updated_at
		FROM inventory WHERE sku_id = $1 FOR UPDATE`, skuID).
		Scan(&inv.SKUID, &inv.Total, &inv.Reserved, &inv.Sold, &inv.Available, &inv.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return model.Inventory{}, ErrNotFound
	}
	if err != nil {
		return model.Inventory{}, fmt.Errorf("store: get inventory for update %s: %w", skuID, err)
	}
	return inv, nil
}

func (t *pgTx) SaveInventory(ctx context.Context, inv model.Inventory) error {
	if err := inv.Validate(); err != nil {
		return fmt.Errorf("store: refusing to save invalid inventory: %w", err)
	}
	_, err := t.tx.Exec(ctx, `UPDATE inventory SET reserved=$2, sold=$3, available=$4, updated_at=now()
		WHERE sku_id=$1`, inv.SKUID, inv.Reserved, inv.Sold, inv.Available)
	if err != nil {
		return fmt.Errorf("store: save inventory %s: %w", inv.SKUID, err)
	}
	return nil
}

func (t *pgTx) InsertReservation(ctx context.Context, r model.Reservation) error {
	_, err := t.tx.Exec(ctx, `INSERT INTO reservations
		(reservation_id, user_id, sku_id, quantity, status, expires_at, idempotency_key, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`,
		r.ReservationID, r.UserID, r.SKUID, r.Quantity, r.Status, r.ExpiresAt, r.IdempotencyKey, r.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" { // unique_violation
			return ErrIdempotencyConflict
		}
		return fmt.Errorf("store: insert reservation %s: %w", r.ReservationID, err)
	}
	return nil
}

func (t *pgTx) GetReservationByIdempotencyKeyForUpdate(ctx context.Context, key string) (model.Reservation, error) {
	return scanReservationRows(t.tx.QueryRow(ctx, reservationSelect+` WHERE idempotency_key = $1 AND status = 'RESERVED' FOR UPDATE`, key))
}

func (t *pgTx) GetReservationForUpdate(ctx context.Context, reservationID string) (model.Reservation, error) {
	return scanReservationRows(t.tx.QueryRow(ctx, reservationSelect+` WHERE reservation_id = $1 FOR UPDATE`, reservationID))
}

func (t *pgTx) HasActiveHoldForUpdate(ctx context.Context, userID, skuID string, now time.Time) (bool, error) {
	var exists bool
	err := t.tx.QueryRow(ctx, `SELECT EXISTS(
		SELECT 1 FROM reservations
		WHERE user_id=$1 AND sku_id=$2 AND status='RESERVED' AND expires_at > $3 FOR UPDATE)`,
		userID, skuID, now).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("store: has active hold for update %s/%s: %w", userID, skuID, err)
	}
	return exists, nil
}

func (t *pgTx) transition(ctx context.Context, reservationID, fromStatus, toStatus, col string, at time.Time) (model.Reservation, error) {
	row := t.tx.QueryRow(ctx, fmt.Sprintf(`UPDATE reservations SET status=$1, %s=$2
		WHERE reservation_id=$3 AND status=$4
		RETURNING reservation_id, user_id, sku_id, quantity, status, expires_at, idempotency_key,
		          created_at, confirmed_at, expired_at, cancelled_at`, col),
		toStatus, at, reservationID, fromStatus)
	return scanReservationRows(row)
}

func (t *pgTx) TransitionConfirmed(ctx context.Context, reservationID string, at time.Time) (model.Reservation, error) {
	return t.transition(ctx, reservationID, string(model.StatusReserved), string(model.StatusConfirmed), "confirmed_at", at)
}

func (t *pgTx) TransitionCancelled(ctx context.Context, reservationID string, at time.Time) (model.Reservation, error) {
	return t.transition(ctx, reservationID, string(model.StatusReserved), string(model.StatusCancelled), "cancelled_at", at)
}

func (t *pgTx) TransitionExpired(ctx context.Context, reservationID string, at time.Time) (model.Reservation, error) {
	return t.transition(ctx, reservationID, string(model.StatusReserved), string(model.StatusExpired), "expired_at", at)
}

func (t *pgTx) InsertUserPurchase(ctx context.Context, up model.UserPurchase) error {
	_, err := t.tx.Exec(ctx, `INSERT INTO user_purchases (user_id, sku_id, order_id, reservation_id, quantity, created_at)
		VALUES ($1,$2,$3,$4,$5,$6) ON CONFLICT (user_id, sku_id) DO NOTHING`,
		up.UserID, up.SKUID, up.OrderID, up.ReservationID, up.Quantity, up.CreatedAt)
	if err != nil {
		return fmt.Errorf("store: insert user purchase %s/%s: %w", up.UserID, up.SKUID, err)
	}
	return nil
}
