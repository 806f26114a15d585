// README: Catalog read service consumed by the order manager.
package catalog

import (
	"context"

	"harvest/internal/types"
)

type Service struct {
	store *Store
}

func NewService(store *Store) *Service {
	return &Service{store: store}
}

func (s *Service) Product(ctx context.Context, id types.ID) (*Product, error) {
	return s.store.Get(ctx, id)
}

func (s *Service) InvalidateProduct(ctx context.Context, id types.ID) {
	s.store.Invalidate(ctx, id)
}
