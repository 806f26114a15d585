// README: Order handlers for create/get/accept/decline/cancel.
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"harvest/internal/modules/order"
	"harvest/internal/types"
)

type OrderHandler struct {
	order *order.Service
}

func NewOrderHandler(svc *order.Service) *OrderHandler {
	return &OrderHandler{order: svc}
}

type createOrderReq struct {
	ProductID     string `json:"product_id"`
	BuyerID       string `json:"buyer_id"`
	Quantity      int    `json:"quantity"`
	PriceAmount   int64  `json:"price_amount"`
	PriceCurrency string `json:"price_currency"`
}

func (h *OrderHandler) Create(c *gin.Context) {
	var req createOrderReq
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid json")
		return
	}
	o, err := h.order.Create(c.Request.Context(), order.CreateCommand{
		ProductID: types.ID(req.ProductID),
		BuyerID:   types.ID(req.BuyerID),
		Quantity:  req.Quantity,
		Price:     types.Money{Amount: req.PriceAmount, Currency: req.PriceCurrency},
	})
	if err != nil {
		writeDomainError(c, err)
		return
	}
	writeJSON(c, http.StatusCreated, toOrderResponse(o))
}

func (h *OrderHandler) Get(c *gin.Context) {
	id := c.Param("id")
	if id == "" {
		writeError(c, http.StatusBadRequest, "missing order id")
		return
	}
	o, err := h.order.Get(c.Request.Context(), types.ID(id))
	if err != nil {
		writeDomainError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, toOrderResponse(o))
}

type acceptOrderReq struct {
	FarmerID string `json:"farmer_id"`
}

func (h *OrderHandler) Accept(c *gin.Context) {
	var req acceptOrderReq
	if err := c.ShouldBindJSON(&req); err != nil || req.FarmerID == "" {
		writeError(c, http.StatusBadRequest, "missing farmer_id")
		return
	}
	o, err := h.order.Accept(c.Request.Context(), order.AcceptCommand{
		OrderID:  types.ID(c.Param("id")),
		FarmerID: types.ID(req.FarmerID),
	})
	if err != nil {
		writeDomainError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, toOrderResponse(o))
}

type declineOrderReq struct {
	FarmerID string `json:"farmer_id"`
	Reason   string `json:"reason"`
}

func (h *OrderHandler) Decline(c *gin.Context) {
	var req declineOrderReq
	if err := c.ShouldBindJSON(&req); err != nil || req.FarmerID == "" {
		writeError(c, http.StatusBadRequest, "missing farmer_id")
		return
	}
	o, err := h.order.Decline(c.Request.Context(), order.DeclineCommand{
		OrderID:  types.ID(c.Param("id")),
		FarmerID: types.ID(req.FarmerID),
		Reason:   req.Reason,
	})
	if err != nil {
		writeDomainError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, toOrderResponse(o))
}

type cancelOrderReq struct {
	ActorID string `json:"actor_id"`
	Role    string `json:"role"`
}

func (h *OrderHandler) Cancel(c *gin.Context) {
	var req cancelOrderReq
	if err := c.ShouldBindJSON(&req); err != nil || req.ActorID == "" {
		writeError(c, http.StatusBadRequest, "missing actor_id")
		return
	}
	role, ok := types.ParseRole(req.Role)
	if !ok {
		writeError(c, http.StatusBadRequest, "role must be farmer or buyer")
		return
	}
	o, err := h.order.Cancel(c.Request.Context(), order.CancelCommand{
		OrderID: types.ID(c.Param("id")),
		ActorID: types.ID(req.ActorID),
		Role:    role,
	})
	if err != nil {
		writeDomainError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, toOrderResponse(o))
}
