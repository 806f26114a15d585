// README: Transaction handlers for get/confirm.
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"harvest/internal/modules/transaction"
	"harvest/internal/types"
)

type TransactionHandler struct {
	transactions *transaction.Service
}

func NewTransactionHandler(svc *transaction.Service) *TransactionHandler {
	return &TransactionHandler{transactions: svc}
}

func (h *TransactionHandler) Get(c *gin.Context) {
	id := c.Param("id")
	if id == "" {
		writeError(c, http.StatusBadRequest, "missing transaction id")
		return
	}
	t, err := h.transactions.Get(c.Request.Context(), types.ID(id))
	if err != nil {
		writeDomainError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, toTransactionResponse(t))
}

// GetByOrder resolves the settlement that accepting an order created, so
// clients never have to persist the transaction id themselves.
func (h *TransactionHandler) GetByOrder(c *gin.Context) {
	id := c.Param("id")
	if id == "" {
		writeError(c, http.StatusBadRequest, "missing order id")
		return
	}
	t, err := h.transactions.ByOrder(c.Request.Context(), types.ID(id))
	if err != nil {
		writeDomainError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, toTransactionResponse(t))
}

type confirmReq struct {
	ActorID string `json:"actor_id"`
	Role    string `json:"role"`
}

func (h *TransactionHandler) Confirm(c *gin.Context) {
	var req confirmReq
	if err := c.ShouldBindJSON(&req); err != nil || req.ActorID == "" {
		writeError(c, http.StatusBadRequest, "missing actor_id")
		return
	}
	role, ok := types.ParseRole(req.Role)
	if !ok {
		writeError(c, http.StatusBadRequest, "role must be farmer or buyer")
		return
	}
	t, err := h.transactions.Confirm(c.Request.Context(), transaction.ConfirmCommand{
		TransactionID: types.ID(c.Param("id")),
		ActorID:       types.ID(req.ActorID),
		Role:          role,
	})
	if err != nil {
		writeDomainError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, toTransactionResponse(t))
}
