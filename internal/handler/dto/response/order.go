package response

import (
	"log/slog"
	"time"

	"storefront/internal/usecase/queries"

	"github.com/google/uuid"
	"github.com/jinzhu/copier"
)

type OrderItemResponse struct {
	ProductID uuid.UUID `json:"productId"`
	ColorID   uuid.UUID `json:"colorId"`
	SizeID    uuid.UUID `json:"sizeId"`
	Name      string    `json:"name"`
	Image     string    `json:"image"`
	Price     int64     `json:"price"`
	Quantity  int32     `json:"quantity"`
}

type VoucherResponse struct {
	Code          string `json:"code"`
	Type          string `json:"type"`
	Discount      int64  `json:"discount"`
	MaxDiscount   int64  `json:"maxDiscount"`
	MinOrderValue int64  `json:"minOrderValue"`
}

type CancellationResponse struct {
	ReasonCode  string    `json:"reasonCode"`
	ReasonText  string    `json:"reasonText,omitempty"`
	CancelledAt time.Time `json:"cancelledAt"`
}

type OrderResponse struct {
	ID            uuid.UUID             `json:"id"`
	OrderCode     string                `json:"orderCode"`
	UserID        uuid.UUID             `json:"userId"`
	Items         []OrderItemResponse   `json:"items"`
	Address       string                `json:"address"`
	Note          string                `json:"note,omitempty"`
	ShippingFee   int64                 `json:"shippingFee"`
	Subtotal      int64                 `json:"subtotal"`
	Discount      int64                 `json:"discount"`
	Total         int64                 `json:"total"`
	Voucher       *VoucherResponse      `json:"voucher,omitempty"`
	PaymentType   string                `json:"paymentType"`
	PaymentStatus string                `json:"paymentStatus"`
	Status        string                `json:"status"`
	Cancellation  *CancellationResponse `json:"cancellation,omitempty"`
	CreatedAt     time.Time             `json:"createdAt"`
	UpdatedAt     time.Time             `json:"updatedAt"`
}

type OrderListResponse struct {
	ID            uuid.UUID `json:"id"`
	OrderCode     string    `json:"orderCode"`
	Status        string    `json:"status"`
	PaymentStatus string    `json:"paymentStatus"`
	Total         int64     `json:"total"`
	ItemCount     int32     `json:"itemCount"`
	CreatedAt     time.Time `json:"createdAt"`
}

type AdvanceOrderResponse struct {
	ID     uuid.UUID `json:"id"`
	Status string    `json:"status"`
}

func FromOrderView(view *queries.OrderView) *OrderResponse {
	var resp OrderResponse
	if err := copier.Copy(&resp, view); err != nil {
		slog.Warn("failed to map order view", "error", err.Error())
	}
	return &resp
}

func FromOrderListItem(item *queries.OrderListItem) *OrderListResponse {
	var resp OrderListResponse
	if err := copier.Copy(&resp, item); err != nil {
		slog.Warn("failed to map order list item", "error", err.Error())
	}
	return &resp
}
