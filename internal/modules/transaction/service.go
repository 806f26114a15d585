// README: Settlement tracker implements the confirm handshake and the termination sweep.
package transaction

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"harvest/internal/modules/notification"
	"harvest/internal/types"
)

var (
	ErrNotFound     = errors.New("transaction not found")
	ErrDuplicate    = errors.New("transaction already exists for this order")
	ErrForbidden    = errors.New("actor is not a party to this transaction")
	ErrInvalidState = errors.New("transaction is already settled")
	ErrExpired      = errors.New("settlement window has expired")
)

const defaultSweepInterval = time.Minute

type Store interface {
	Create(ctx context.Context, t *Transaction) error
	Get(ctx context.Context, id types.ID) (*Transaction, error)
	GetByOrder(ctx context.Context, orderID types.ID) (*Transaction, error)
	Confirm(ctx context.Context, id types.ID, role types.Role, now time.Time) (*Transaction, bool, error)
	Complete(ctx context.Context, id types.ID, now time.Time) (bool, error)
	CancelByOrder(ctx context.Context, orderID types.ID, now time.Time) (bool, error)
	TerminateDue(ctx context.Context, now time.Time) ([]*Transaction, error)
}

// Orders is the slice of the order manager the tracker needs.
type Orders interface {
	MarkCompleted(ctx context.Context, orderID types.ID) error
}

type Service struct {
	store         Store
	orders        Orders
	notifier      notification.Notifier
	logger        *slog.Logger
	sweepInterval time.Duration
}

func NewService(store Store, orders Orders, notifier notification.Notifier, logger *slog.Logger, sweepInterval time.Duration) *Service {
	if sweepInterval <= 0 {
		sweepInterval = defaultSweepInterval
	}
	return &Service{
		store:         store,
		orders:        orders,
		notifier:      notifier,
		logger:        logger,
		sweepInterval: sweepInterval,
	}
}

type ConfirmCommand struct {
	TransactionID types.ID
	ActorID       types.ID
	Role          types.Role
}

// CreateForOrder is invoked by the order manager's accept transition, and
// again when a retried accept repairs a missing settlement. Returns whether a
// new transaction was inserted; the order_id unique constraint guarantees at
// most one per order, so a duplicate insert reports created=false, not an
// error.
func (s *Service) CreateForOrder(ctx context.Context, orderID, farmerID, buyerID types.ID) (bool, error) {
	now := time.Now()
	t := &Transaction{
		ID:                  types.NewID(),
		OrderID:             orderID,
		FarmerID:            farmerID,
		BuyerID:             buyerID,
		Status:              StatusPending,
		CreatedAt:           now,
		TerminationDeadline: now.Add(SettlementWindow),
	}
	if err := s.store.Create(ctx, t); err != nil {
		if errors.Is(err, ErrDuplicate) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// Confirm records one party's settlement confirmation. Re-confirming by a
// party that already confirmed is a no-op returning the current state. When
// the second confirmation lands, the transaction completes and the owning
// order is marked completed.
func (s *Service) Confirm(ctx context.Context, cmd ConfirmCommand) (*Transaction, error) {
	t, err := s.store.Get(ctx, cmd.TransactionID)
	if err != nil {
		return nil, err
	}
	switch cmd.Role {
	case types.RoleFarmer:
		if t.FarmerID != cmd.ActorID {
			return nil, ErrForbidden
		}
	case types.RoleBuyer:
		if t.BuyerID != cmd.ActorID {
			return nil, ErrForbidden
		}
	default:
		return nil, ErrForbidden
	}

	now := time.Now()
	t, applied, err := s.store.Confirm(ctx, cmd.TransactionID, cmd.Role, now)
	if err != nil {
		return nil, err
	}
	if !applied {
		return nil, s.classifyRejectedConfirm(ctx, cmd.TransactionID, now)
	}

	if t.FarmerConfirmed && t.BuyerConfirmed {
		ok, err := s.store.Complete(ctx, t.ID, time.Now())
		if err != nil {
			return nil, err
		}
		if ok {
			if err := s.orders.MarkCompleted(ctx, t.OrderID); err != nil {
				// The transaction is committed as completed; the order-side
				// failure is logged, not propagated to the confirming user.
				s.logger.Error("mark order completed failed",
					"order_id", t.OrderID, "transaction_id", t.ID, "error", err)
			}
			s.notifyBoth(ctx, t, "Settlement complete",
				"Both parties confirmed the handover. The transaction is complete.")
		}
		return s.store.Get(ctx, t.ID)
	}
	return t, nil
}

// classifyRejectedConfirm turns a lost conditional update into the right
// caller-facing error: the deadline race must surface as expiry, not as a
// generic failure, even before the sweeper has run.
func (s *Service) classifyRejectedConfirm(ctx context.Context, id types.ID, now time.Time) error {
	t, err := s.store.Get(ctx, id)
	if err != nil {
		return err
	}
	if t.Terminated {
		return ErrExpired
	}
	if t.Status == StatusPending && !now.Before(t.TerminationDeadline) {
		return ErrExpired
	}
	return ErrInvalidState
}

// CancelForOrder is invoked by the order manager when an order is cancelled.
// It fails only when the settlement has already completed, which means the
// order is past the point of cancellation.
func (s *Service) CancelForOrder(ctx context.Context, orderID types.ID) error {
	t, err := s.store.GetByOrder(ctx, orderID)
	if errors.Is(err, ErrNotFound) {
		return nil // pending orders have no transaction yet
	}
	if err != nil {
		return err
	}
	if t.Completed {
		return ErrInvalidState
	}
	ok, err := s.store.CancelByOrder(ctx, orderID, time.Now())
	if err != nil {
		return err
	}
	if !ok {
		// Lost a race; re-read to make sure a confirm did not complete it.
		t, err := s.store.GetByOrder(ctx, orderID)
		if err != nil {
			return err
		}
		if t.Completed {
			return ErrInvalidState
		}
	}
	return nil
}

func (s *Service) Get(ctx context.Context, id types.ID) (*Transaction, error) {
	return s.store.Get(ctx, id)
}

// ByOrder looks up the settlement transaction of an accepted order.
func (s *Service) ByOrder(ctx context.Context, orderID types.ID) (*Transaction, error) {
	return s.store.GetByOrder(ctx, orderID)
}

// RunTerminationSweeper expires overdue pending transactions on a fixed
// interval until ctx is cancelled. Sweep failures are retried on the next
// tick; they never reach a user.
func (s *Service) RunTerminationSweeper(ctx context.Context) {
	ticker := time.NewTicker(s.sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.SweepOnce(ctx)
		}
	}
}

// SweepOnce terminates every pending transaction past its deadline and
// notifies both parties of each expiry.
func (s *Service) SweepOnce(ctx context.Context) {
	terminated, err := s.store.TerminateDue(ctx, time.Now())
	if err != nil {
		s.logger.Error("termination sweep failed", "error", err)
		return
	}
	for _, t := range terminated {
		s.notifyBoth(ctx, t, "Settlement expired",
			"The 48-hour confirmation window elapsed before both parties confirmed.")
	}
	if len(terminated) > 0 {
		s.logger.Info("terminated expired transactions", "count", len(terminated))
	}
}

func (s *Service) notifyBoth(ctx context.Context, t *Transaction, title, message string) {
	s.notifier.Notify(ctx, notification.Notification{
		RecipientID:   t.FarmerID,
		RecipientRole: types.RoleFarmer,
		Title:         title,
		Message:       message,
		EntityType:    notification.EntityTransaction,
		EntityID:      t.ID,
	})
	s.notifier.Notify(ctx, notification.Notification{
		RecipientID:   t.BuyerID,
		RecipientRole: types.RoleBuyer,
		Title:         title,
		Message:       message,
		EntityType:    notification.EntityTransaction,
		EntityID:      t.ID,
	})
}
