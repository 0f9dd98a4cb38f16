package api

import (
	"net/http"

	resdto "storefront/internal/handler/dto/response"
	"storefront/internal/usecase/queries"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type CatalogHandler struct {
	stockQueries queries.StockQueries
}

func NewCatalogHandler(stockQueries queries.StockQueries) *CatalogHandler {
	return &CatalogHandler{stockQueries: stockQueries}
}

// @Summary Get availability
// @Description Get live availability for one (product, color, size)
// @Tags catalog
// @Produce json
// @Param productId path string true "Product ID"
// @Param colorId query string true "Color ID"
// @Param sizeId query string true "Size ID"
// @Success 200 {object} resdto.AvailabilityResponse
// @Failure 400 {object} map[string]string
// @Router /products/{productId}/availability [get]
func (h *CatalogHandler) GetAvailability(c *gin.Context) {
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

	available, err := h.stockQueries.Availability(c.Request.Context(), productID, colorID, sizeID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Internal server error",
		})
		return
	}

	c.JSON(http.StatusOK, resdto.AvailabilityResponse{
		ProductID: productID,
		ColorID:   colorID,
		SizeID:    sizeID,
		Available: available,
	})
}
