// README: Settlement transaction aggregate and status definitions.
package transaction

import (
	"time"

	"harvest/internal/types"
)

type Status string

const (
	StatusPending    Status = "pending"
	StatusCompleted  Status = "completed"
	StatusCancelled  Status = "cancelled"
	StatusTerminated Status = "terminated"
)

// SettlementWindow is how long both parties have to confirm the handover.
// Fixed at transaction creation and immutable afterwards.
const SettlementWindow = 48 * time.Hour

type Transaction struct {
	ID      types.ID
	OrderID types.ID
	// Party ids are copied from the order at creation so confirm-time
	// authorization needs no join.
	FarmerID            types.ID
	BuyerID             types.ID
	Status              Status
	FarmerConfirmed     bool
	BuyerConfirmed      bool
	Completed           bool
	Terminated          bool
	CreatedAt           time.Time
	TerminationDeadline time.Time
	CompletedAt         *time.Time
	CancelledAt         *time.Time
	TerminatedAt        *time.Time
}

var AllowedTransitions = map[Status][]Status{
	StatusPending: {StatusCompleted, StatusCancelled, StatusTerminated},
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

// ConfirmedBy reports whether the given role has already confirmed.
func (t *Transaction) ConfirmedBy(role types.Role) bool {
	if role == types.RoleFarmer {
		return t.FarmerConfirmed
	}
	return t.BuyerConfirmed
}
