// README: Profile lookup service used by the notifier worker, never by core state logic.
package profile

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

func (s *Service) Email(ctx context.Context, id types.ID, role types.Role) (string, error) {
	return s.store.GetEmail(ctx, id, role)
}
