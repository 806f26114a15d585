// README: Order store backed by PostgreSQL.
package order

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"harvest/internal/types"
)

type PGStore struct {
	db *pgxpool.Pool
}

func NewStore(db *pgxpool.Pool) *PGStore {
	return &PGStore{db: db}
}

// Create inserts the order and bumps the product's order counter in one
// transaction, so a failed insert never inflates the counter.
func (s *PGStore) Create(ctx context.Context, o *Order) error {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	_, err = tx.Exec(ctx, `
        INSERT INTO orders (
            id, product_id, product_name, product_image,
            farmer_id, buyer_id, quantity,
            price_amount, price_currency,
            status, farmer_confirmed, buyer_confirmed, created_at
        ) VALUES (
            $1, $2, $3, $4,
            $5, $6, $7,
            $8, $9,
            $10, $11, $12, $13
        )`,
		string(o.ID),
		string(o.ProductID),
		o.ProductName,
		o.ProductImage,
		string(o.FarmerID),
		string(o.BuyerID),
		o.Quantity,
		o.Price.Amount,
		o.Price.Currency,
		string(o.Status),
		o.FarmerConfirmed,
		o.BuyerConfirmed,
		o.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert order: %w", err)
	}

	tag, err := tx.Exec(ctx, `
        UPDATE products SET order_count = order_count + 1 WHERE id = $1`,
		string(o.ProductID),
	)
	if err != nil {
		return fmt.Errorf("increment order count: %w", err)
	}
	if tag.RowsAffected() != 1 {
		return ErrNotFound
	}

	return tx.Commit(ctx)
}

func (s *PGStore) Get(ctx context.Context, id types.ID) (*Order, error) {
	row := s.db.QueryRow(ctx, `
        SELECT id, product_id, product_name, product_image,
               farmer_id, buyer_id, quantity,
               price_amount, price_currency,
               status, decline_reason, farmer_confirmed, buyer_confirmed,
               created_at, accepted_at, declined_at, completed_at, cancelled_at
        FROM orders
        WHERE id = $1`, string(id),
	)

	var o Order
	var declineReason sql.NullString
	var acceptedAt, declinedAt, completedAt, cancelledAt sql.NullTime

	err := row.Scan(
		&o.ID, &o.ProductID, &o.ProductName, &o.ProductImage,
		&o.FarmerID, &o.BuyerID, &o.Quantity,
		&o.Price.Amount, &o.Price.Currency,
		&o.Status, &declineReason, &o.FarmerConfirmed, &o.BuyerConfirmed,
		&o.CreatedAt, &acceptedAt, &declinedAt, &completedAt, &cancelledAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	if declineReason.Valid {
		o.DeclineReason = &declineReason.String
	}
	o.AcceptedAt = toTimePtr(acceptedAt)
	o.DeclinedAt = toTimePtr(declinedAt)
	o.CompletedAt = toTimePtr(completedAt)
	o.CancelledAt = toTimePtr(cancelledAt)
	return &o, nil
}

// UpdateStatus performs a conditional single-row transition. The WHERE clause
// pins the expected current status so two racing transitions cannot both win.
func (s *PGStore) UpdateStatus(ctx context.Context, id types.ID, from, to Status, declineReason *string) (bool, error) {
	tag, err := s.db.Exec(ctx, `
        UPDATE orders
        SET status = $1,
            decline_reason = COALESCE($2, decline_reason),
            farmer_confirmed = CASE WHEN $1 = 'accepted' THEN TRUE ELSE farmer_confirmed END,
            accepted_at = CASE WHEN $1 = 'accepted' THEN NOW() ELSE accepted_at END,
            declined_at = CASE WHEN $1 = 'declined' THEN NOW() ELSE declined_at END,
            completed_at = CASE WHEN $1 = 'completed' THEN NOW() ELSE completed_at END,
            cancelled_at = CASE WHEN $1 = 'cancelled' THEN NOW() ELSE cancelled_at END
        WHERE id = $3 AND status = $4`,
		string(to),
		declineReason,
		string(id),
		string(from),
	)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func (s *PGStore) AppendEvent(ctx context.Context, e *Event) error {
	_, err := s.db.Exec(ctx, `
        INSERT INTO order_state_events (
            order_id, from_status, to_status, actor_type, actor_id, created_at
        ) VALUES ($1, $2, $3, $4, $5, $6)`,
		string(e.OrderID),
		string(e.FromStatus),
		string(e.ToStatus),
		e.ActorType,
		toStringPtr(e.ActorID),
		e.CreatedAt,
	)
	return err
}

func toStringPtr(v *types.ID) *string {
	if v == nil {
		return nil
	}
	s := string(*v)
	return &s
}

func toTimePtr(v sql.NullTime) *time.Time {
	if !v.Valid {
		return nil
	}
	t := v.Time
	return &t
}
