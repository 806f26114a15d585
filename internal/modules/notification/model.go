// README: Notification payload emitted on user-visible order/transaction transitions.
package notification

import (
	"time"

	"harvest/internal/types"
)

type EntityType string

const (
	EntityOrder       EntityType = "order"
	EntityTransaction EntityType = "transaction"
)

type Notification struct {
	RecipientID   types.ID   `json:"recipient_id"`
	RecipientRole types.Role `json:"recipient_role"`
	Title         string     `json:"title"`
	Message       string     `json:"message"`
	EntityType    EntityType `json:"entity_type"`
	EntityID      types.ID   `json:"entity_id"`
	CreatedAt     time.Time  `json:"created_at"`
}
