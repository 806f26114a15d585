// README: Order aggregate and status definitions.
package order

import (
	"time"

	"harvest/internal/types"
)

type Status string

const (
	StatusNone      Status = "none"
	StatusPending   Status = "pending"
	StatusAccepted  Status = "accepted"
	StatusDeclined  Status = "declined"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
)

type Order struct {
	ID        types.ID
	ProductID types.ID
	// Snapshots taken at creation; later catalog edits never touch past orders.
	ProductName  string
	ProductImage string
	FarmerID     types.ID
	BuyerID      types.ID
	Quantity     int
	Price        types.Money
	Status       Status
	DeclineReason *string
	// Audit flags only; settlement confirmation lives on the transaction.
	FarmerConfirmed bool
	BuyerConfirmed  bool
	CreatedAt       time.Time
	AcceptedAt      *time.Time
	DeclinedAt      *time.Time
	CompletedAt     *time.Time
	CancelledAt     *time.Time
}

type Event struct {
	ID         int64
	OrderID    types.ID
	FromStatus Status
	ToStatus   Status
	ActorType  string
	ActorID    *types.ID
	CreatedAt  time.Time
}

// AllowedTransitions represents the order state flow (diagram) as code.
var AllowedTransitions = map[Status][]Status{
	StatusPending:  {StatusAccepted, StatusDeclined, StatusCancelled},
	StatusAccepted: {StatusCompleted, StatusCancelled},
}

func CanTransition(from, to Status) bool {
	next, ok := AllowedTransitions[from]
	if !ok {
		return false
	}
	for _, s := range next {
		if s == to {
			return true
		}
	}
	return false
}

func IsTerminal(s Status) bool {
	return len(AllowedTransitions[s]) == 0
}
