// README: User store backed by PostgreSQL (email lookup only).
package profile

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"harvest/internal/types"
)

var ErrNotFound = errors.New("user not found")

type Store struct {
	db *pgxpool.Pool
}

func NewStore(db *pgxpool.Pool) *Store {
	return &Store{db: db}
}

func (s *Store) GetEmail(ctx context.Context, id types.ID, role types.Role) (string, error) {
	row := s.db.QueryRow(ctx, `
        SELECT email FROM users WHERE id = $1 AND role = $2`,
		string(id), string(role),
	)
	var email string
	err := row.Scan(&email)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", err
	}
	return email, nil
}
