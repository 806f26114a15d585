// README: HTTP router registration.
package http

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"harvest/internal/http/handlers"
	"harvest/internal/http/middleware"
	"harvest/internal/modules/order"
	"harvest/internal/modules/transaction"
)

func NewRouter(
	orderService *order.Service,
	transactionService *transaction.Service,
	logger *slog.Logger,
) *gin.Engine {
	r := gin.New()
	r.Use(middleware.Logging(logger), middleware.Recovery(logger))

	orderHandler := handlers.NewOrderHandler(orderService)
	r.POST("/api/orders", orderHandler.Create)
	r.GET("/api/orders/:id", orderHandler.Get)
	r.POST("/api/orders/:id/accept", orderHandler.Accept)
	r.POST("/api/orders/:id/decline", orderHandler.Decline)
	r.POST("/api/orders/:id/cancel", orderHandler.Cancel)

	transactionHandler := handlers.NewTransactionHandler(transactionService)
	r.GET("/api/orders/:id/transaction", transactionHandler.GetByOrder)
	r.GET("/api/transactions/:id", transactionHandler.Get)
	r.POST("/api/transactions/:id/confirm", transactionHandler.Confirm)

	r.GET("/health", func(c *gin.Context) {
		c.String(http.StatusOK, "OK")
	})

	return r
}
