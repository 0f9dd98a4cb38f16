package shared

import (
	"context"
	"time"

	"storefront/internal/domain/order"
	"storefront/internal/domain/promotion"

	"github.com/google/uuid"
)

type UnitOfWork interface {
	// Within: full transaction for write operations with retry logic
	Within(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error
	// CommandReads: pool-bound reads for validation outside transactions
	CommandReads() CommandReads
}

type Tx interface {
	Stock() StockRepository
	Promotions() PromotionRepository
	Orders() OrderRepository
	Carts() CartRepository
	Idempotency() IdempotencyRepository
	Outbox() OutboxRepository
	Reads() CommandReads
}

type CommandReads interface {
	SaleItem(ctx context.Context, productID, colorID, sizeID uuid.UUID) (*SaleItemSnapshot, error)
	PromotionByCode(ctx context.Context, code promotion.Code) (*promotion.Promotion, error)
	OrderByID(ctx context.Context, orderID uuid.UUID) (*OrderSnapshot, error)
}

// StockRepository owns the sold counters. Reserve and Release are
// single conditional updates at the storage layer; two concurrent
// reservations on the same size row can never jointly oversell it.
type StockRepository interface {
	// Reserve increments sold by line.Quantity only if the guard
	// sold + qty <= quantity holds in the same atomic statement.
	// Fails with catalog.InsufficientStockError carrying the actual
	// availability.
	Reserve(ctx context.Context, line StockLine) error
	// Release decrements sold by line.Quantity, floored at zero.
	Release(ctx context.Context, line StockLine) error
}

type RedeemOutcome int

const (
	RedeemApplied RedeemOutcome = iota
	// RedeemAlreadyApplied: the (orderID, code) marker already exists;
	// the counters were not touched again.
	RedeemAlreadyApplied
)

type RedeemRequest struct {
	Code       promotion.Code
	UserID     uuid.UUID
	OrderID    uuid.UUID
	OrderTotal int64
	Now        time.Time
}

// PromotionRepository owns usedCount/usedBy. Redeem re-checks every
// eligibility guard inside its atomic update and is idempotent per
// (orderID, code).
type PromotionRepository interface {
	Redeem(ctx context.Context, req RedeemRequest) (RedeemOutcome, error)
}

type OrderRepository interface {
	Create(ctx context.Context, o *order.Order, now time.Time) (uuid.UUID, error)
	// AdvanceStatus moves id from exactly `from` to `to`; reports false
	// when the order was not in `from` anymore.
	AdvanceStatus(ctx context.Context, id uuid.UUID, from, to order.Status) (bool, error)
	// SetPaymentStatus records the status reported by the gateway and
	// reports whether it actually changed; a repeat of the current
	// status affects nothing and reports false.
	SetPaymentStatus(ctx context.Context, id uuid.UUID, status order.PaymentStatus) (bool, error)
	// ClaimCancellation atomically flips a still-cancellable order to
	// cancelled and marks its reservation as released, so stock can be
	// returned at most once per order. Reports false when nothing was
	// claimed (already cancelled, or past the cancellable states).
	ClaimCancellation(ctx context.Context, id uuid.UUID, reasonCode, reasonText string, now time.Time) (bool, error)
}

type CartRepository interface {
	Put(ctx context.Context, userID, productID, colorID, sizeID uuid.UUID, quantity int32, priceSnapshot int64) error
	Remove(ctx context.Context, userID, productID, colorID, sizeID uuid.UUID) error
	RemoveLines(ctx context.Context, userID uuid.UUID, lines []StockLine) error
}

type IdempotencyRepository interface {
	// TryInsert claims the key for this request. Reports false when the
	// key already exists (a concurrent or earlier request holds it).
	TryInsert(ctx context.Context, key, userID uuid.UUID, endpoint, requestHash string, expiresAt time.Time) (bool, error)
	Get(ctx context.Context, key, userID uuid.UUID) (*IdempotencyRecord, error)
	MarkCompleted(ctx context.Context, key, userID uuid.UUID, resultOrderID uuid.UUID) error
}

type OutboxRepository interface {
	CreateJob(ctx context.Context, kind, topic string, payload []byte, runAt time.Time) error
}
