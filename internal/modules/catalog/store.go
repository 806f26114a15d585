// README: Product store backed by PostgreSQL with a Redis read-through cache.
package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"harvest/internal/types"
)

const (
	productKeyPrefix = "catalog:product:%s"
	// Products change rarely; a short TTL keeps order-count drift bounded.
	cacheTTL = 5 * time.Minute
)

var ErrNotFound = errors.New("product not found")

type Store struct {
	db    *pgxpool.Pool
	redis *redis.Client
}

func NewStore(db *pgxpool.Pool, rdb *redis.Client) *Store {
	return &Store{db: db, redis: rdb}
}

func (s *Store) Get(ctx context.Context, id types.ID) (*Product, error) {
	key := fmt.Sprintf(productKeyPrefix, id)
	if s.redis != nil {
		if raw, err := s.redis.Get(ctx, key).Bytes(); err == nil {
			var p Product
			if err := json.Unmarshal(raw, &p); err == nil {
				return &p, nil
			}
		}
	}

	row := s.db.QueryRow(ctx, `
        SELECT id, farmer_id, name, image_url, price_amount, price_currency, order_count, created_at
        FROM products
        WHERE id = $1`, string(id),
	)

	var p Product
	err := row.Scan(
		&p.ID, &p.FarmerID, &p.Name, &p.ImageURL,
		&p.Price.Amount, &p.Price.Currency, &p.OrderCount, &p.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	if s.redis != nil {
		if raw, err := json.Marshal(&p); err == nil {
			_ = s.redis.Set(ctx, key, raw, cacheTTL).Err()
		}
	}
	return &p, nil
}

// Invalidate drops the cached snapshot after the order counter moves.
func (s *Store) Invalidate(ctx context.Context, id types.ID) {
	if s.redis == nil {
		return
	}
	_ = s.redis.Del(ctx, fmt.Sprintf(productKeyPrefix, id)).Err()
}
