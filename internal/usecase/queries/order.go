package queries

import (
	"context"
	"time"

	"storefront/internal/pkg/errs"

	"github.com/google/uuid"
)

var ErrOrderNotFound = errs.New("order not found")

type OrderItemView struct {
	ProductID uuid.UUID
	ColorID   uuid.UUID
	SizeID    uuid.UUID
	Name      string
	Image     string
	Price     int64
	Quantity  int32
}

type VoucherView struct {
	Code          string
	Type          string
	Discount      int64
	MaxDiscount   int64
	MinOrderValue int64
}

type CancellationView struct {
	ReasonCode  string
	ReasonText  string
	CancelledAt time.Time
}

// OrderView renders entirely from frozen snapshots; no joins back to
// live catalog or promotion state.
type OrderView struct {
	ID            uuid.UUID
	OrderCode     string
	UserID        uuid.UUID
	Items         []OrderItemView
	Address       string
	Note          string
	ShippingFee   int64
	Subtotal      int64
	Discount      int64
	Total         int64
	Voucher       *VoucherView
	PaymentType   string
	PaymentStatus string
	Status        string
	Cancellation  *CancellationView
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

type OrderListItem struct {
	ID            uuid.UUID
	OrderCode     string
	Status        string
	PaymentStatus string
	Total         int64
	ItemCount     int32
	CreatedAt     time.Time
}

type OrderQueries interface {
	// GetByID scopes the read to the owning user.
	GetByID(ctx context.Context, id, userID uuid.UUID) (*OrderView, error)
	// GetByIDSystem skips the ownership check; used for idempotency
	// replays and admin reads.
	GetByIDSystem(ctx context.Context, id uuid.UUID) (*OrderView, error)
	ListByUser(ctx context.Context, userID uuid.UUID) ([]*OrderListItem, error)
}
