// README: Order manager implements state transitions, authorization, and side effects.
package order

import (
	"context"
	"errors"
	"fmt"
	"time"

	"harvest/internal/modules/catalog"
	"harvest/internal/modules/notification"
	"harvest/internal/types"
)

var (
	ErrNotFound     = errors.New("order not found")
	ErrForbidden    = errors.New("actor is not a party to this order")
	ErrInvalidState = errors.New("invalid state transition")
	ErrConflict     = errors.New("order state conflict")
	ErrValidation   = errors.New("bad request")
)

const defaultDeclineReason = "No reason provided"

type Store interface {
	Create(ctx context.Context, o *Order) error
	Get(ctx context.Context, id types.ID) (*Order, error)
	UpdateStatus(ctx context.Context, id types.ID, from, to Status, declineReason *string) (bool, error)
	AppendEvent(ctx context.Context, e *Event) error
}

type Catalog interface {
	Product(ctx context.Context, id types.ID) (*catalog.Product, error)
	InvalidateProduct(ctx context.Context, id types.ID)
}

// Settlements is implemented by the transaction service; wired after
// construction because each service holds an interface to the other.
// CreateForOrder reports whether a new settlement was inserted; created=false
// means one already existed for the order.
type Settlements interface {
	CreateForOrder(ctx context.Context, orderID, farmerID, buyerID types.ID) (bool, error)
	CancelForOrder(ctx context.Context, orderID types.ID) error
}

type Service struct {
	store       Store
	catalog     Catalog
	settlements Settlements
	notifier    notification.Notifier
}

func NewService(store Store, cat Catalog, notifier notification.Notifier) *Service {
	return &Service{store: store, catalog: cat, notifier: notifier}
}

func (s *Service) SetSettlements(settlements Settlements) {
	s.settlements = settlements
}

type CreateCommand struct {
	ProductID types.ID
	BuyerID   types.ID
	Quantity  int
	// Zero Price means "use the catalog price".
	Price types.Money
}

type AcceptCommand struct {
	OrderID  types.ID
	FarmerID types.ID
}

type DeclineCommand struct {
	OrderID  types.ID
	FarmerID types.ID
	Reason   string
}

type CancelCommand struct {
	OrderID types.ID
	ActorID types.ID
	Role    types.Role
}

func (s *Service) Create(ctx context.Context, cmd CreateCommand) (*Order, error) {
	if cmd.ProductID == "" || cmd.BuyerID == "" {
		return nil, ErrValidation
	}
	if cmd.Quantity <= 0 {
		return nil, ErrValidation
	}
	if cmd.Price.Amount < 0 {
		return nil, ErrValidation
	}

	p, err := s.catalog.Product(ctx, cmd.ProductID)
	if err != nil {
		if errors.Is(err, catalog.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	price := cmd.Price
	if price.IsZero() {
		price = p.Price
	}

	now := time.Now()
	o := &Order{
		ID:           types.NewID(),
		ProductID:    p.ID,
		ProductName:  p.Name,
		ProductImage: p.ImageURL,
		FarmerID:     p.FarmerID,
		BuyerID:      cmd.BuyerID,
		Quantity:     cmd.Quantity,
		Price:        price,
		Status:       StatusPending,
		CreatedAt:    now,
	}
	if err := s.store.Create(ctx, o); err != nil {
		return nil, err
	}
	// The create bumped the product's order counter; drop the cached snapshot.
	s.catalog.InvalidateProduct(ctx, p.ID)
	_ = s.store.AppendEvent(ctx, &Event{
		OrderID:    o.ID,
		FromStatus: StatusNone,
		ToStatus:   StatusPending,
		ActorType:  string(types.RoleBuyer),
		ActorID:    &cmd.BuyerID,
		CreatedAt:  now,
	})

	s.notifier.Notify(ctx, notification.Notification{
		RecipientID:   o.FarmerID,
		RecipientRole: types.RoleFarmer,
		Title:         "New order received",
		Message:       fmt.Sprintf("You have a new order for %d x %s", o.Quantity, o.ProductName),
		EntityType:    notification.EntityOrder,
		EntityID:      o.ID,
	})
	s.notifier.Notify(ctx, notification.Notification{
		RecipientID:   o.BuyerID,
		RecipientRole: types.RoleBuyer,
		Title:         "Order placed",
		Message:       fmt.Sprintf("Your order for %s is waiting for the farmer's response", o.ProductName),
		EntityType:    notification.EntityOrder,
		EntityID:      o.ID,
	})
	return o, nil
}

func (s *Service) Accept(ctx context.Context, cmd AcceptCommand) (*Order, error) {
	o, err := s.store.Get(ctx, cmd.OrderID)
	if err != nil {
		return nil, err
	}
	if o.FarmerID != cmd.FarmerID {
		return nil, ErrForbidden
	}

	// An order can sit accepted without a settlement if an earlier accept
	// flipped the row and then the settlement insert failed. A retried accept
	// repairs that instead of wedging the order forever.
	retried := o.Status == StatusAccepted
	if !retried {
		if !CanTransition(o.Status, StatusAccepted) {
			return nil, ErrInvalidState
		}
		ok, err := s.store.UpdateStatus(ctx, o.ID, o.Status, StatusAccepted, nil)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, ErrConflict
		}
	}

	created, err := s.settlements.CreateForOrder(ctx, o.ID, o.FarmerID, o.BuyerID)
	if err != nil {
		return nil, fmt.Errorf("create settlement: %w", err)
	}
	if retried && !created {
		// The settlement was there all along: a plain duplicate accept.
		return nil, ErrInvalidState
	}

	if created {
		_ = s.store.AppendEvent(ctx, &Event{
			OrderID:    o.ID,
			FromStatus: StatusPending,
			ToStatus:   StatusAccepted,
			ActorType:  string(types.RoleFarmer),
			ActorID:    &cmd.FarmerID,
			CreatedAt:  time.Now(),
		})

		s.notifier.Notify(ctx, notification.Notification{
			RecipientID:   o.BuyerID,
			RecipientRole: types.RoleBuyer,
			Title:         "Order accepted",
			Message:       fmt.Sprintf("The farmer accepted your order for %s. Confirm the handover within 48 hours.", o.ProductName),
			EntityType:    notification.EntityOrder,
			EntityID:      o.ID,
		})
	}

	out, err := s.store.Get(ctx, o.ID)
	if err != nil {
		return nil, err
	}
	if out.Status == StatusCancelled {
		// A cancel landed between the row flip and the settlement insert, so
		// its own settlement sweep could not see the new row yet.
		if err := s.settlements.CancelForOrder(ctx, o.ID); err != nil {
			return nil, err
		}
		return s.store.Get(ctx, o.ID)
	}
	return out, nil
}

func (s *Service) Decline(ctx context.Context, cmd DeclineCommand) (*Order, error) {
	o, err := s.store.Get(ctx, cmd.OrderID)
	if err != nil {
		return nil, err
	}
	if o.FarmerID != cmd.FarmerID {
		return nil, ErrForbidden
	}
	if !CanTransition(o.Status, StatusDeclined) {
		return nil, ErrInvalidState
	}
	reason := cmd.Reason
	if reason == "" {
		reason = defaultDeclineReason
	}
	ok, err := s.store.UpdateStatus(ctx, o.ID, o.Status, StatusDeclined, &reason)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrConflict
	}
	_ = s.store.AppendEvent(ctx, &Event{
		OrderID:    o.ID,
		FromStatus: StatusPending,
		ToStatus:   StatusDeclined,
		ActorType:  string(types.RoleFarmer),
		ActorID:    &cmd.FarmerID,
		CreatedAt:  time.Now(),
	})

	s.notifier.Notify(ctx, notification.Notification{
		RecipientID:   o.BuyerID,
		RecipientRole: types.RoleBuyer,
		Title:         "Order declined",
		Message:       fmt.Sprintf("The farmer declined your order for %s: %s", o.ProductName, reason),
		EntityType:    notification.EntityOrder,
		EntityID:      o.ID,
	})
	return s.store.Get(ctx, o.ID)
}

func (s *Service) Cancel(ctx context.Context, cmd CancelCommand) (*Order, error) {
	o, err := s.store.Get(ctx, cmd.OrderID)
	if err != nil {
		return nil, err
	}
	switch cmd.Role {
	case types.RoleFarmer:
		if o.FarmerID != cmd.ActorID {
			return nil, ErrForbidden
		}
	case types.RoleBuyer:
		if o.BuyerID != cmd.ActorID {
			return nil, ErrForbidden
		}
	default:
		return nil, ErrValidation
	}
	if !CanTransition(o.Status, StatusCancelled) {
		return nil, ErrInvalidState
	}

	// Settle the transaction first: if both parties already confirmed, the
	// settlement wins and the cancel is rejected, so a completed transaction
	// can never hang off a cancelled order.
	if err := s.settlements.CancelForOrder(ctx, o.ID); err != nil {
		return nil, err
	}

	ok, err := s.store.UpdateStatus(ctx, o.ID, o.Status, StatusCancelled, nil)
	if err != nil {
		return nil, err
	}
	if !ok {
		// Lost the row to a concurrent transition, typically an accept that
		// committed after our read. Finish the cancel from the fresh status
		// when it is still legal, and sweep the settlement that accept
		// created after our first CancelForOrder could see it.
		o, err = s.store.Get(ctx, o.ID)
		if err != nil {
			return nil, err
		}
		if !CanTransition(o.Status, StatusCancelled) {
			return nil, ErrInvalidState
		}
		ok, err = s.store.UpdateStatus(ctx, o.ID, o.Status, StatusCancelled, nil)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, ErrConflict
		}
		if err := s.settlements.CancelForOrder(ctx, o.ID); err != nil {
			return nil, err
		}
	}

	_ = s.store.AppendEvent(ctx, &Event{
		OrderID:    o.ID,
		FromStatus: o.Status,
		ToStatus:   StatusCancelled,
		ActorType:  string(cmd.Role),
		ActorID:    &cmd.ActorID,
		CreatedAt:  time.Now(),
	})

	s.notifyBoth(ctx, o, "Order cancelled",
		fmt.Sprintf("The order for %s was cancelled by the %s", o.ProductName, cmd.Role))
	return s.store.Get(ctx, o.ID)
}

// MarkCompleted is invoked by the settlement tracker once both parties have
// confirmed; it is never exposed to end users directly.
func (s *Service) MarkCompleted(ctx context.Context, orderID types.ID) error {
	o, err := s.store.Get(ctx, orderID)
	if err != nil {
		return err
	}
	if !CanTransition(o.Status, StatusCompleted) {
		return ErrInvalidState
	}
	ok, err := s.store.UpdateStatus(ctx, o.ID, o.Status, StatusCompleted, nil)
	if err != nil {
		return err
	}
	if !ok {
		return ErrConflict
	}
	_ = s.store.AppendEvent(ctx, &Event{
		OrderID:    o.ID,
		FromStatus: StatusAccepted,
		ToStatus:   StatusCompleted,
		ActorType:  "system",
		CreatedAt:  time.Now(),
	})

	s.notifyBoth(ctx, o, "Order completed",
		fmt.Sprintf("The order for %s is complete", o.ProductName))
	return nil
}

func (s *Service) Get(ctx context.Context, id types.ID) (*Order, error) {
	return s.store.Get(ctx, id)
}

func (s *Service) notifyBoth(ctx context.Context, o *Order, title, message string) {
	s.notifier.Notify(ctx, notification.Notification{
		RecipientID:   o.FarmerID,
		RecipientRole: types.RoleFarmer,
		Title:         title,
		Message:       message,
		EntityType:    notification.EntityOrder,
		EntityID:      o.ID,
	})
	s.notifier.Notify(ctx, notification.Notification{
		RecipientID:   o.BuyerID,
		RecipientRole: types.RoleBuyer,
		Title:         title,
		Message:       message,
		EntityType:    notification.EntityOrder,
		EntityID:      o.ID,
	})
}
