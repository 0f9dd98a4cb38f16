package api

import (
	"errors"
	"net/http"

	"storefront/internal/domain/order"
	reqdto "storefront/internal/handler/dto/request"
	"storefront/internal/usecase/commands"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// PaymentHandler receives gateway callbacks. The gateway retries on
// timeout, so the underlying command is idempotent per order.
type PaymentHandler struct {
	orders commands.OrderCommands
}

func NewPaymentHandler(orders commands.OrderCommands) *PaymentHandler {
	return &PaymentHandler{orders: orders}
}

// @Summary Payment callback
// @Description Record the payment result reported by the gateway
// @Tags payments
// @Accept json
// @Produce json
// @Param id path string true "Order ID"
// @Param request body reqdto.PaymentCallbackRequest true "Payment result"
// @Success 200 {object} map[string]string
// @Failure 400 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Router /payments/{id}/callback [post]
func (h *PaymentHandler) Callback(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid order ID format",
		})
		return
	}

	var req reqdto.PaymentCallbackRequest
	if bindErr := c.ShouldBindJSON(&req); bindErr != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid request format",
		})
		return
	}

	err = h.orders.MarkPaid(c.Request.Context(), id, order.PaymentStatus(req.Status))
	if err != nil {
		switch {
		case errors.Is(err, commands.ErrOrderNotFound):
			c.JSON(http.StatusNotFound, gin.H{
				"error": "Order not found",
			})
		case errors.Is(err, commands.ErrInvalidOrder):
			c.JSON(http.StatusBadRequest, gin.H{
				"error": "Invalid payment status",
			})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{
				"error": "Internal server error",
			})
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status": "recorded",
	})
}
