package request

import (
	"strings"

	"storefront/internal/usecase/queries"

	"github.com/google/uuid"
)

type PutCartLineRequest struct {
	ProductID uuid.UUID `json:"product_id" binding:"required"`
	ColorID   uuid.UUID `json:"color_id" binding:"required"`
	SizeID    uuid.UUID `json:"size_id" binding:"required"`
	Quantity  int32     `json:"quantity" binding:"required,gt=0"`
}

type QuoteLineRequest struct {
	ProductID uuid.UUID `json:"product_id" binding:"required"`
	ColorID   uuid.UUID `json:"color_id" binding:"required"`
	SizeID    uuid.UUID `json:"size_id" binding:"required"`
	Quantity  int32     `json:"quantity" binding:"required,gt=0"`
}

type QuoteRequest struct {
	Lines       []QuoteLineRequest `json:"lines" binding:"required,min=1,dive"`
	VoucherCode *string            `json:"voucher_code,omitempty"`
}

func (r QuoteRequest) GetVoucherCode() *string {
	if r.VoucherCode == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*r.VoucherCode)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

func (r QuoteRequest) ToInputs() []queries.QuoteLineInput {
	inputs := make([]queries.QuoteLineInput, len(r.Lines))
	for i, line := range r.Lines {
		inputs[i] = queries.QuoteLineInput{
			ProductID: line.ProductID,
			ColorID:   line.ColorID,
			SizeID:    line.SizeID,
			Quantity:  line.Quantity,
		}
	}
	return inputs
}
