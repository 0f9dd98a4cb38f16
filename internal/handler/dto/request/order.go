package request

import (
	"strings"

	"storefront/internal/usecase/commands"

	"github.com/google/uuid"
)

type OrderLineRequest struct {
	ProductID uuid.UUID `json:"product_id" binding:"required"`
	ColorID   uuid.UUID `json:"color_id" binding:"required"`
	SizeID    uuid.UUID `json:"size_id" binding:"required"`
	Quantity  int32     `json:"quantity" binding:"required,gt=0"`
}

type CreateOrderRequest struct {
	Items       []OrderLineRequest `json:"items" binding:"required,min=1,dive"`
	Address     string             `json:"address" binding:"required"`
	Note        string             `json:"note"`
	PaymentType string             `json:"payment_type" binding:"required,oneof=cod vnpay"`
	VoucherCode *string            `json:"voucher_code,omitempty"`
}

func (r CreateOrderRequest) GetVoucherCode() *string {
	if r.VoucherCode == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*r.VoucherCode)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

func (r CreateOrderRequest) ToCommand() commands.CreateOrderCommand {
	items := make([]commands.OrderLineCommand, len(r.Items))
	for i, item := range r.Items {
		items[i] = commands.OrderLineCommand{
			ProductID: item.ProductID,
			ColorID:   item.ColorID,
			SizeID:    item.SizeID,
			Quantity:  item.Quantity,
		}
	}
	return commands.CreateOrderCommand{
		Items:       items,
		Address:     strings.TrimSpace(r.Address),
		Note:        strings.TrimSpace(r.Note),
		PaymentType: r.PaymentType,
		VoucherCode: r.GetVoucherCode(),
	}
}

type CancelOrderRequest struct {
	ReasonCode string `json:"reason_code" binding:"required"`
	ReasonText string `json:"reason_text"`
}
