package response

import (
	"storefront/internal/domain/cart"
	"storefront/internal/usecase/queries"

	"github.com/google/uuid"
)

type CartLineResponse struct {
	ProductID     uuid.UUID `json:"productId"`
	ColorID       uuid.UUID `json:"colorId"`
	SizeID        uuid.UUID `json:"sizeId"`
	Quantity      int32     `json:"quantity"`
	PriceSnapshot int64     `json:"priceSnapshot"`
}

func FromCartLines(lines []cart.Line) []CartLineResponse {
	resp := make([]CartLineResponse, len(lines))
	for i, line := range lines {
		resp[i] = CartLineResponse{
			ProductID:     line.ProductID,
			ColorID:       line.ColorID,
			SizeID:        line.SizeID,
			Quantity:      line.Quantity,
			PriceSnapshot: line.PriceSnapshot,
		}
	}
	return resp
}

type QuoteLineResponse struct {
	ProductID uuid.UUID `json:"productId"`
	ColorID   uuid.UUID `json:"colorId"`
	SizeID    uuid.UUID `json:"sizeId"`
	Name      string    `json:"name,omitempty"`
	Image     string    `json:"image,omitempty"`
	UnitPrice int64     `json:"unitPrice"`
	Requested int32     `json:"requested"`
	Quantity  int32     `json:"quantity"`
	Available int32     `json:"available"`
	LineTotal int64     `json:"lineTotal"`
	Included  bool      `json:"included"`
	Reason    string    `json:"reason,omitempty"`
}

type VoucherPreviewResponse struct {
	Code     string `json:"code"`
	Eligible bool   `json:"eligible"`
	Discount int64  `json:"discount"`
	Reason   string `json:"reason,omitempty"`
}

type QuoteResponse struct {
	Lines       []QuoteLineResponse     `json:"lines"`
	Subtotal    int64                   `json:"subtotal"`
	Discount    int64                   `json:"discount"`
	ShippingFee int64                   `json:"shippingFee"`
	Total       int64                   `json:"total"`
	Voucher     *VoucherPreviewResponse `json:"voucher,omitempty"`
}

func FromQuote(quote *queries.Quote) *QuoteResponse {
	resp := &QuoteResponse{
		Lines:       make([]QuoteLineResponse, len(quote.Lines)),
		Subtotal:    quote.Subtotal,
		Discount:    quote.Discount,
		ShippingFee: quote.ShippingFee,
		Total:       quote.Total,
	}
	for i, line := range quote.Lines {
		resp.Lines[i] = QuoteLineResponse{
			ProductID: line.ProductID,
			ColorID:   line.ColorID,
			SizeID:    line.SizeID,
			Name:      line.Name,
			Image:     line.Image,
			UnitPrice: line.UnitPrice,
			Requested: line.Requested,
			Quantity:  line.Quantity,
			Available: line.Available,
			LineTotal: line.LineTotal,
			Included:  line.Included,
			Reason:    line.Reason,
		}
	}
	if quote.Voucher != nil {
		resp.Voucher = &VoucherPreviewResponse{
			Code:     quote.Voucher.Code,
			Eligible: quote.Voucher.Eligible,
			Discount: quote.Voucher.Discount,
			Reason:   quote.Voucher.Reason,
		}
	}
	return resp
}

type AvailabilityResponse struct {
	ProductID uuid.UUID `json:"productId"`
	ColorID   uuid.UUID `json:"colorId"`
	SizeID    uuid.UUID `json:"sizeId"`
	Available int32     `json:"available"`
}
