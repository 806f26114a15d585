// README: JSON helpers and domain-error to HTTP status mapping.
package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"harvest/internal/modules/order"
	"harvest/internal/modules/transaction"
)

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(c *gin.Context, status int, v any) {
	c.JSON(status, v)
}

func writeError(c *gin.Context, status int, msg string) {
	c.JSON(status, errorResponse{Error: msg})
}

func writeDomainError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, order.ErrValidation):
		writeError(c, http.StatusBadRequest, err.Error())
	case errors.Is(err, order.ErrNotFound), errors.Is(err, transaction.ErrNotFound):
		writeError(c, http.StatusNotFound, err.Error())
	case errors.Is(err, order.ErrForbidden), errors.Is(err, transaction.ErrForbidden):
		writeError(c, http.StatusForbidden, err.Error())
	case errors.Is(err, order.ErrInvalidState), errors.Is(err, order.ErrConflict),
		errors.Is(err, transaction.ErrInvalidState):
		writeError(c, http.StatusConflict, err.Error())
	case errors.Is(err, transaction.ErrExpired):
		writeError(c, http.StatusGone, err.Error())
	default:
		writeError(c, http.StatusInternalServerError, "internal error")
	}
}

type orderResponse struct {
	ID            string     `json:"id"`
	ProductID     string     `json:"product_id"`
	ProductName   string     `json:"product_name"`
	ProductImage  string     `json:"product_image,omitempty"`
	FarmerID      string     `json:"farmer_id"`
	BuyerID       string     `json:"buyer_id"`
	Quantity      int        `json:"quantity"`
	PriceAmount   int64      `json:"price_amount"`
	PriceCurrency string     `json:"price_currency"`
	Status        string     `json:"status"`
	DeclineReason *string    `json:"decline_reason,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	CompletedAt   *time.Time `json:"completed_at,omitempty"`
}

func toOrderResponse(o *order.Order) orderResponse {
	return orderResponse{
		ID:            string(o.ID),
		ProductID:     string(o.ProductID),
		ProductName:   o.ProductName,
		ProductImage:  o.ProductImage,
		FarmerID:      string(o.FarmerID),
		BuyerID:       string(o.BuyerID),
		Quantity:      o.Quantity,
		PriceAmount:   o.Price.Amount,
		PriceCurrency: o.Price.Currency,
		Status:        string(o.Status),
		DeclineReason: o.DeclineReason,
		CreatedAt:     o.CreatedAt,
		CompletedAt:   o.CompletedAt,
	}
}

type transactionResponse struct {
	ID                  string    `json:"id"`
	OrderID             string    `json:"order_id"`
	Status              string    `json:"status"`
	FarmerConfirmed     bool      `json:"farmer_confirmed"`
	BuyerConfirmed      bool      `json:"buyer_confirmed"`
	Completed           bool      `json:"completed"`
	Terminated          bool      `json:"terminated"`
	CreatedAt           time.Time `json:"created_at"`
	TerminationDeadline time.Time `json:"termination_deadline"`
}

func toTransactionResponse(t *transaction.Transaction) transactionResponse {
	return transactionResponse{
		ID:                  string(t.ID),
		OrderID:             string(t.OrderID),
		Status:              string(t.Status),
		FarmerConfirmed:     t.FarmerConfirmed,
		BuyerConfirmed:      t.BuyerConfirmed,
		Completed:           t.Completed,
		Terminated:          t.Terminated,
		CreatedAt:           t.CreatedAt,
		TerminationDeadline: t.TerminationDeadline,
	}
}
