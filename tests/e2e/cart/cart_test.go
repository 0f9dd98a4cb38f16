//go:build e2e

package cart_test

import (
	"fmt"
	"net/http"
	"testing"

	"storefront/internal/domain/user"
	"storefront/internal/handler/dto/request"
	"storefront/internal/handler/dto/response"
	"storefront/tests/common/authtest"
	"storefront/tests/common/dbtest"
	commonhttp "storefront/tests/common/httptest"
	"storefront/tests/e2e"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

const (
	cartURL         = "/api/cart"
	cartItemsURL    = "/api/cart/items"
	quoteURL        = "/api/cart/quote"
	availabilityURL = "/api/products/%s/availability?colorId=%s&sizeId=%s"
)

type CartSuite struct {
	e2e.SharedSuite
}

func TestCartSuite(t *testing.T) {
	t.Parallel()
	suite.Run(t, new(CartSuite))
}

func putLineRequest(key dbtest.SaleItemKey, quantity int32) request.PutCartLineRequest {
	return request.PutCartLineRequest{
		ProductID: key.ProductID,
		ColorID:   key.ColorID,
		SizeID:    key.SizeID,
		Quantity:  quantity,
	}
}

func (s *CartSuite) TestCartLines() {
	s.Run("Normal case: put, read and remove a cart line", func() {
		t := s.T()

		userID := dbtest.CreateTestUser(t, s.DB, "cart@example.com", string(user.RoleCustomer))
		// Selling price snapshot should be 150000 - 30000.
		item := dbtest.CreateTestSaleItem(t, s.DB, "Basic Tee", 150000, 30000, 10)
		token := authtest.TokenFor(t, s.Config, userID, user.RoleCustomer)

		w := commonhttp.PerformRequest(t, s.Router, http.MethodPut, cartItemsURL, putLineRequest(item, 2), token)
		require.Equal(t, http.StatusNoContent, w.Code)

		gw := commonhttp.PerformRequest(t, s.Router, http.MethodGet, cartURL, nil, token)
		require.Equal(t, http.StatusOK, gw.Code)

		var lines []response.CartLineResponse
		require.NoError(t, commonhttp.DecodeResponseBody(t, gw.Body, &lines))
		require.Len(t, lines, 1)
		require.Equal(t, item.ProductID, lines[0].ProductID)
		require.Equal(t, int32(2), lines[0].Quantity)
		require.Equal(t, int64(120000), lines[0].PriceSnapshot)

		// Upsert replaces the quantity instead of stacking a second line.
		w2 := commonhttp.PerformRequest(t, s.Router, http.MethodPut, cartItemsURL, putLineRequest(item, 5), token)
		require.Equal(t, http.StatusNoContent, w2.Code)

		gw2 := commonhttp.PerformRequest(t, s.Router, http.MethodGet, cartURL, nil, token)
		require.NoError(t, commonhttp.DecodeResponseBody(t, gw2.Body, &lines))
		require.Len(t, lines, 1)
		require.Equal(t, int32(5), lines[0].Quantity)

		deleteURL := fmt.Sprintf("%s/%s?colorId=%s&sizeId=%s", cartItemsURL, item.ProductID, item.ColorID, item.SizeID)
		dw := commonhttp.PerformRequest(t, s.Router, http.MethodDelete, deleteURL, nil, token)
		require.Equal(t, http.StatusNoContent, dw.Code)

		gw3 := commonhttp.PerformRequest(t, s.Router, http.MethodGet, cartURL, nil, token)
		require.NoError(t, commonhttp.DecodeResponseBody(t, gw3.Body, &lines))
		require.Empty(t, lines)
	})

	s.Run("Error case: unknown items cannot enter the cart", func() {
		t := s.T()

		userID := dbtest.CreateTestUser(t, s.DB, "cart2@example.com", string(user.RoleCustomer))
		token := authtest.TokenFor(t, s.Config, userID, user.RoleCustomer)

		ghost := dbtest.SaleItemKey{ProductID: uuid.New(), ColorID: uuid.New(), SizeID: uuid.New()}
		w := commonhttp.PerformRequest(t, s.Router, http.MethodPut, cartItemsURL, putLineRequest(ghost, 1), token)
		require.Equal(t, http.StatusNotFound, w.Code)
	})
}

func (s *CartSuite) TestQuote() {
	s.Run("Normal case: quote clamps to live availability", func() {
		t := s.T()

		userID := dbtest.CreateTestUser(t, s.DB, "quote@example.com", string(user.RoleCustomer))
		item := dbtest.CreateTestSaleItem(t, s.DB, "Linen Shorts", 80000, 0, 2)
		token := authtest.TokenFor(t, s.Config, userID, user.RoleCustomer)

		body := request.QuoteRequest{
			Lines: []request.QuoteLineRequest{{
				ProductID: item.ProductID,
				ColorID:   item.ColorID,
				SizeID:    item.SizeID,
				Quantity:  5,
			}},
		}

		w := commonhttp.PerformRequest(t, s.Router, http.MethodPost, quoteURL, body, token)
		require.Equal(t, http.StatusOK, w.Code)

		var quote response.QuoteResponse
		require.NoError(t, commonhttp.DecodeResponseBody(t, w.Body, &quote))
		require.Len(t, quote.Lines, 1)

		line := quote.Lines[0]
		require.True(t, line.Included)
		require.Equal(t, "clamped", line.Reason)
		require.Equal(t, int32(5), line.Requested)
		require.Equal(t, int32(2), line.Quantity)
		require.Equal(t, int64(160000), line.LineTotal)
		require.Equal(t, int64(160000), quote.Subtotal)
		require.Equal(t, int64(30000), quote.ShippingFee)
		require.Equal(t, int64(190000), quote.Total)
	})

	s.Run("Voucher preview: ineligible voucher reports a reason", func() {
		t := s.T()

		userID := dbtest.CreateTestUser(t, s.DB, "quote2@example.com", string(user.RoleCustomer))
		item := dbtest.CreateTestSaleItem(t, s.DB, "Basic Tee", 150000, 0, 10)
		dbtest.CreateTestPromotion(t, s.DB, dbtest.PromotionParams{
			Code: "BIGSPENDER", Type: "percent", Discount: 10, MinOrderValue: 1000000,
		})
		token := authtest.TokenFor(t, s.Config, userID, user.RoleCustomer)

		voucher := "BIGSPENDER"
		body := request.QuoteRequest{
			Lines: []request.QuoteLineRequest{{
				ProductID: item.ProductID,
				ColorID:   item.ColorID,
				SizeID:    item.SizeID,
				Quantity:  1,
			}},
			VoucherCode: &voucher,
		}

		w := commonhttp.PerformRequest(t, s.Router, http.MethodPost, quoteURL, body, token)
		require.Equal(t, http.StatusOK, w.Code)

		var quote response.QuoteResponse
		require.NoError(t, commonhttp.DecodeResponseBody(t, w.Body, &quote))
		require.NotNil(t, quote.Voucher)
		require.False(t, quote.Voucher.Eligible)
		require.Equal(t, "below_minimum", quote.Voucher.Reason)
		require.Equal(t, int64(0), quote.Discount)

		// The preview consumed nothing.
		require.Equal(t, int32(0), dbtest.UsedCount(t, s.DB, "BIGSPENDER"))
	})
}

func (s *CartSuite) TestAvailability() {
	s.Run("Normal case: public availability endpoint", func() {
		t := s.T()

		item := dbtest.CreateTestSaleItem(t, s.DB, "Basic Tee", 150000, 0, 7)

		url := fmt.Sprintf(availabilityURL, item.ProductID, item.ColorID, item.SizeID)
		w := commonhttp.PerformRequest(t, s.Router, http.MethodGet, url, nil, "")
		require.Equal(t, http.StatusOK, w.Code)

		var availability response.AvailabilityResponse
		require.NoError(t, commonhttp.DecodeResponseBody(t, w.Body, &availability))
		require.Equal(t, int32(7), availability.Available)
	})

	s.Run("Deactivated product reads as zero", func() {
		t := s.T()

		// The size row still holds stock; only the product is off.
		item := dbtest.CreateTestSaleItem(t, s.DB, "Retired Tee", 150000, 0, 7)
		dbtest.DeactivateProduct(t, s.DB, item.ProductID)

		url := fmt.Sprintf(availabilityURL, item.ProductID, item.ColorID, item.SizeID)
		w := commonhttp.PerformRequest(t, s.Router, http.MethodGet, url, nil, "")
		require.Equal(t, http.StatusOK, w.Code)

		var availability response.AvailabilityResponse
		require.NoError(t, commonhttp.DecodeResponseBody(t, w.Body, &availability))
		require.Equal(t, int32(0), availability.Available)
	})

	s.Run("Unknown size reads as zero", func() {
		t := s.T()

		url := fmt.Sprintf(availabilityURL, uuid.New(), uuid.New(), uuid.New())
		w := commonhttp.PerformRequest(t, s.Router, http.MethodGet, url, nil, "")
		require.Equal(t, http.StatusOK, w.Code)

		var availability response.AvailabilityResponse
		require.NoError(t, commonhttp.DecodeResponseBody(t, w.Body, &availability))
		require.Equal(t, int32(0), availability.Available)
	})
}
