package shared

import (
	"time"

	"storefront/internal/domain/order"

	"github.com/google/uuid"
)

// Write-side snapshots prevent dependency on read-side query types.

// SaleItemSnapshot is what checkout needs to freeze an order line:
// display fields plus live availability for the advisory pre-check.
type SaleItemSnapshot struct {
	ProductID uuid.UUID
	VariantID uuid.UUID
	ColorID   uuid.UUID
	SizeID    uuid.UUID
	Name      string
	Image     string
	UnitPrice int64
	Available int32
}

// StockLine identifies one size row plus the quantity to reserve or
// release against it.
type StockLine struct {
	ProductID uuid.UUID
	ColorID   uuid.UUID
	SizeID    uuid.UUID
	Quantity  int32
}

type OrderLineSnapshot struct {
	ProductID uuid.UUID
	ColorID   uuid.UUID
	SizeID    uuid.UUID
	Quantity  int32
}

// OrderSnapshot carries the minimal order state command handlers need
// to drive status transitions.
type OrderSnapshot struct {
	ID            uuid.UUID
	OrderCode     string
	UserID        uuid.UUID
	Status        order.Status
	PaymentStatus order.PaymentStatus
	PaymentType   order.PaymentType
	VoucherCode   *string
	Subtotal      int64
	Total         int64
	StockReleased bool
	Items         []OrderLineSnapshot
}

type IdempotencyRecord struct {
	Key           uuid.UUID
	UserID        uuid.UUID
	Status        string
	RequestHash   string
	ResultOrderID *uuid.UUID
	ExpiresAt     time.Time
}
