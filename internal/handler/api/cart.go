package api

import (
	"errors"
	"net/http"

	reqdto "storefront/internal/handler/dto/request"
	resdto "storefront/internal/handler/dto/response"
	"storefront/internal/handler/middleware"
	"storefront/internal/usecase/commands"
	"storefront/internal/usecase/queries"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type CartHandler struct {
	carts       commands.CartCommands
	cartQueries queries.CartQueries
}

func NewCartHandler(carts commands.CartCommands, cartQueries queries.CartQueries) *CartHandler {
	return &CartHandler{
		carts:       carts,
		cartQueries: cartQueries,
	}
}

// @Summary Get cart
// @Description Get the authenticated user's cart lines
// @Tags cart
// @Produce json
// @Security BearerAuth
// @Success 200 {array} resdto.CartLineResponse
// @Failure 401 {object} map[string]string
// @Router /cart [get]
func (h *CartHandler) GetCart(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Internal server error",
		})
		return
	}

	lines, err := h.cartQueries.GetCart(c.Request.Context(), userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Internal server error",
		})
		return
	}

	c.JSON(http.StatusOK, resdto.FromCartLines(lines))
}

// @Summary Put cart line
// @Description Upsert a cart line with the current selling price snapshot
// @Tags cart
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body reqdto.PutCartLineRequest true "Cart line"
// @Success 204
// @Failure 400 {object} map[string]string
// @Failure 401 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Router /cart/items [put]
func (h *CartHandler) PutLine(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Internal server error",
		})
		return
	}

	var req reqdto.PutCartLineRequest
	if bindErr := c.ShouldBindJSON(&req); bindErr != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid request format",
		})
		return
	}

	err := h.carts.PutLine(c.Request.Context(), userID, commands.PutCartLineCommand{
		ProductID: req.ProductID,
		ColorID:   req.ColorID,
		SizeID:    req.SizeID,
		Quantity:  req.Quantity,
	})
	if err != nil {
		switch {
		case errors.Is(err, commands.ErrItemUnavailable):
			c.JSON(http.StatusNotFound, gin.H{
				"error": "Item is not available for sale",
			})
		case errors.Is(err, commands.ErrInvalidOrder):
			c.JSON(http.StatusBadRequest, gin.H{
				"error": "Invalid cart line",
			})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{
				"error": "Internal server error",
			})
		}
		return
	}

	c.Status(http.StatusNoContent)
}

// @Summary Remove cart line
// @Description Remove one (product, color, size) line from the cart
// @Tags cart
// @Produce json
// @Security BearerAuth
// @Param productId path string true "Product ID"
// @Param colorId query string true "Color ID"
// @Param sizeId query string true "Size ID"
// @Success 204
// @Failure 400 {object} map[string]string
// @Failure 401 {object} map[string]string
// @Router /cart/items/{productId} [delete]
func (h *CartHandler) RemoveLine(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Internal server error",
		})
		return
	}

	productID, err := uuid.Parse(c.Param("productId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid product ID format",
		})
		return
	}
	colorID, err := uuid.Parse(c.Query("colorId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid color ID format",
		})
		return
	}
	sizeID, err := uuid.Parse(c.Query("sizeId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid size ID format",
		})
		return
	}

	if err := h.carts.RemoveLine(c.Request.Context(), userID, productID, colorID, sizeID); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Internal server error",
		})
		return
	}

	c.Status(http.StatusNoContent)
}

// @Summary Quote cart
// @Description Price selected lines against live availability with an optional voucher preview
// @Tags cart
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body reqdto.QuoteRequest true "Lines to quote"
// @Success 200 {object} resdto.QuoteResponse
// @Failure 400 {object} map[string]string
// @Failure 401 {object} map[string]string
// @Router /cart/quote [post]
func (h *CartHandler) Quote(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Internal server error",
		})
		return
	}

	var req reqdto.QuoteRequest
	if bindErr := c.ShouldBindJSON(&req); bindErr != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid request format",
		})
		return
	}

	quote, err := h.cartQueries.Quote(c.Request.Context(), userID, req.ToInputs(), req.GetVoucherCode())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Internal server error",
		})
		return
	}

	c.JSON(http.StatusOK, resdto.FromQuote(quote))
}
