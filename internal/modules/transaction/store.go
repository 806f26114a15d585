// README: Transaction store backed by PostgreSQL; all mutations are conditional single-row updates.
package transaction

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"harvest/internal/types"
)

type PGStore struct {
	db *pgxpool.Pool
}

func NewStore(db *pgxpool.Pool) *PGStore {
	return &PGStore{db: db}
}

const txColumns = `
    id, order_id, farmer_id, buyer_id, status,
    farmer_confirmed, buyer_confirmed, completed, terminated,
    created_at, termination_deadline, completed_at, cancelled_at, terminated_at`

func (s *PGStore) Create(ctx context.Context, t *Transaction) error {
	_, err := s.db.Exec(ctx, `
        INSERT INTO transactions (
            id, order_id, farmer_id, buyer_id, status,
            farmer_confirmed, buyer_confirmed, completed, terminated,
            created_at, termination_deadline
        ) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		string(t.ID),
		string(t.OrderID),
		string(t.FarmerID),
		string(t.BuyerID),
		string(t.Status),
		t.FarmerConfirmed,
		t.BuyerConfirmed,
		t.Completed,
		t.Terminated,
		t.CreatedAt,
		t.TerminationDeadline,
	)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return ErrDuplicate
	}
	return err
}

func (s *PGStore) Get(ctx context.Context, id types.ID) (*Transaction, error) {
	row := s.db.QueryRow(ctx,
		`SELECT `+txColumns+` FROM transactions WHERE id = $1`, string(id))
	return scanTransaction(row)
}

func (s *PGStore) GetByOrder(ctx context.Context, orderID types.ID) (*Transaction, error) {
	row := s.db.QueryRow(ctx,
		`SELECT `+txColumns+` FROM transactions WHERE order_id = $1`, string(orderID))
	return scanTransaction(row)
}

// Confirm records one party's confirmation. The status and deadline checks
// share the UPDATE with the flag write, so a confirm racing the termination
// sweep resolves on whichever statement commits first. Returns the updated
// row, or applied=false when the row was missing, terminal, or past deadline.
func (s *PGStore) Confirm(ctx context.Context, id types.ID, role types.Role, now time.Time) (*Transaction, bool, error) {
	row := s.db.QueryRow(ctx, `
        UPDATE transactions
        SET farmer_confirmed = CASE WHEN $2 = 'farmer' THEN TRUE ELSE farmer_confirmed END,
            buyer_confirmed  = CASE WHEN $2 = 'buyer'  THEN TRUE ELSE buyer_confirmed END
        WHERE id = $1 AND status = 'pending' AND termination_deadline > $3
        RETURNING `+txColumns,
		string(id), string(role), now,
	)
	t, err := scanTransaction(row)
	if errors.Is(err, ErrNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return t, true, nil
}

// Complete flips a fully-confirmed pending transaction to completed.
func (s *PGStore) Complete(ctx context.Context, id types.ID, now time.Time) (bool, error) {
	tag, err := s.db.Exec(ctx, `
        UPDATE transactions
        SET status = 'completed', completed = TRUE, completed_at = $2
        WHERE id = $1 AND status = 'pending' AND farmer_confirmed AND buyer_confirmed`,
		string(id), now,
	)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func (s *PGStore) CancelByOrder(ctx context.Context, orderID types.ID, now time.Time) (bool, error) {
	tag, err := s.db.Exec(ctx, `
        UPDATE transactions
        SET status = 'cancelled', cancelled_at = $2
        WHERE order_id = $1 AND status = 'pending'`,
		string(orderID), now,
	)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

// TerminateDue expires every pending transaction whose deadline has passed
// and returns the affected rows so the caller can notify both parties.
func (s *PGStore) TerminateDue(ctx context.Context, now time.Time) ([]*Transaction, error) {
	rows, err := s.db.Query(ctx, `
        UPDATE transactions
        SET status = 'terminated', terminated = TRUE, terminated_at = $1
        WHERE status = 'pending' AND termination_deadline <= $1
        RETURNING `+txColumns,
		now,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*Transaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTransaction(row rowScanner) (*Transaction, error) {
	var t Transaction
	var completedAt, cancelledAt, terminatedAt sql.NullTime

	err := row.Scan(
		&t.ID, &t.OrderID, &t.FarmerID, &t.BuyerID, &t.Status,
		&t.FarmerConfirmed, &t.BuyerConfirmed, &t.Completed, &t.Terminated,
		&t.CreatedAt, &t.TerminationDeadline, &completedAt, &cancelledAt, &terminatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	t.CompletedAt = toTimePtr(completedAt)
	t.CancelledAt = toTimePtr(cancelledAt)
	t.TerminatedAt = toTimePtr(terminatedAt)
	return &t, nil
}

func toTimePtr(v sql.NullTime) *time.Time {
	if !v.Valid {
		return nil
	}
	t := v.Time
	return &t
}
