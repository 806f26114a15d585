// README: Product snapshot read model (catalog itself is owned elsewhere).
package catalog

import (
	"time"

	"harvest/internal/types"
)

type Product struct {
	ID         types.ID    `json:"id"`
	FarmerID   types.ID    `json:"farmer_id"`
	Name       string      `json:"name"`
	ImageURL   string      `json:"image_url"`
	Price      types.Money `json:"price"`
	OrderCount int         `json:"order_count"`
	CreatedAt  time.Time   `json:"created_at"`
}
