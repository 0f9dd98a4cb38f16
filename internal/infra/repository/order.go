package repository

import (
	"context"
	"time"

	"storefront/internal/domain/order"
	"storefront/internal/infra"
	"storefront/internal/infra/db"
	"storefront/internal/pkg/pgconv"
	"storefront/internal/usecase/shared"

	"github.com/google/uuid"
)

type OrderRepository struct {
	db db.DBTX
}

func NewOrderRepository(dbtx db.DBTX) *OrderRepository {
	return &OrderRepository{db: dbtx}
}

const insertOrderQuery = `
INSERT INTO orders (
    id, order_code, user_id, address, note,
    shipping_fee, subtotal, discount, total,
    voucher_code, voucher_type, voucher_discount,
    voucher_max_discount, voucher_min_order_value,
    payment_type, payment_status, status,
    stock_released, created_at, updated_at
) VALUES (
    $1, $2, $3, $4, $5,
    $6, $7, $8, $9,
    $10, $11, $12,
    $13, $14,
    $15, $16, $17,
    FALSE, $18, $18
)
`

const insertOrderItemQuery = `
INSERT INTO order_items (
    id, order_id, product_id, variant_id, color_id, size_id,
    name, image, price, quantity
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
`

func (r *OrderRepository) Create(ctx context.Context, o *order.Order, now time.Time) (uuid.UUID, error) {
	var (
		voucherCode, voucherType *string
		voucherDiscount          *int64
		voucherMaxDiscount       *int64
		voucherMinOrderValue     *int64
	)
	if v := o.Voucher(); v != nil {
		voucherCode = &v.Code
		voucherType = &v.Type
		voucherDiscount = &v.Discount
		voucherMaxDiscount = &v.MaxDiscount
		voucherMinOrderValue = &v.MinOrderValue
	}

	_, err := r.db.Exec(ctx, insertOrderQuery,
		o.ID(), o.OrderCode(), o.UserID(), o.Address(), o.Note(),
		o.ShippingFee(), o.Subtotal(), o.Discount(), o.Total(),
		voucherCode, voucherType, voucherDiscount,
		voucherMaxDiscount, voucherMinOrderValue,
		o.PaymentType().String(), o.PaymentStatus().String(), o.Status().String(),
		now,
	)
	if err != nil {
		if pgconv.IsUniqueViolation(err) {
			return uuid.Nil, infra.WrapRepoErr("order already exists", err, infra.KindDuplicateKey)
		}
		if pgconv.IsForeignKeyViolation(err) {
			return uuid.Nil, infra.WrapRepoErr("order references a missing row", err, infra.KindForeignKeyViolated)
		}
		return uuid.Nil, infra.WrapRepoErr("failed to insert order", err)
	}

	for _, item := range o.Items() {
		_, err := r.db.Exec(ctx, insertOrderItemQuery,
			uuid.New(), o.ID(), item.ProductID(), item.VariantID(),
			item.ColorID(), item.SizeID(),
			item.Name(), item.Image(), item.Price(), item.Quantity(),
		)
		if err != nil {
			return uuid.Nil, infra.WrapRepoErr("failed to insert order item", err)
		}
	}

	return o.ID(), nil
}

const advanceStatusQuery = `
UPDATE orders
SET status = $3, updated_at = now()
WHERE id = $1 AND status = $2
`

func (r *OrderRepository) AdvanceStatus(ctx context.Context, id uuid.UUID, from, to order.Status) (bool, error) {
	tag, err := r.db.Exec(ctx, advanceStatusQuery, id, from.String(), to.String())
	if err != nil {
		return false, infra.WrapRepoErr("failed to advance order status", err)
	}
	return tag.RowsAffected() > 0, nil
}

const setPaymentStatusQuery = `
UPDATE orders
SET payment_status = $2, updated_at = now()
WHERE id = $1 AND payment_status <> $2
`

// SetPaymentStatus claims the transition to the given status. A retried
// callback reporting the current status affects no rows, so the claim
// is won exactly once per transition.
func (r *OrderRepository) SetPaymentStatus(ctx context.Context, id uuid.UUID, status order.PaymentStatus) (bool, error) {
	tag, err := r.db.Exec(ctx, setPaymentStatusQuery, id, status.String())
	if err != nil {
		return false, infra.WrapRepoErr("failed to set payment status", err)
	}
	return tag.RowsAffected() > 0, nil
}

const claimCancellationQuery = `
UPDATE orders
SET status = 'cancelled',
    cancel_reason_code = $2,
    cancel_reason_text = $3,
    cancelled_at = $4,
    stock_released = TRUE,
    updated_at = now()
WHERE id = $1
  AND status = ANY($5)
  AND NOT stock_released
`

// ClaimCancellation flips the order to cancelled in a single guarded
// statement. The stock_released flag is part of the guard, so only one
// caller ever wins the claim and returns the reserved stock.
func (r *OrderRepository) ClaimCancellation(ctx context.Context, id uuid.UUID, reasonCode, reasonText string, now time.Time) (bool, error) {
	cancellable := order.CancellableStatuses()
	states := make([]string, len(cancellable))
	for i, s := range cancellable {
		states[i] = s.String()
	}

	tag, err := r.db.Exec(ctx, claimCancellationQuery, id, reasonCode, reasonText, now, states)
	if err != nil {
		return false, infra.WrapRepoErr("failed to claim order cancellation", err)
	}
	return tag.RowsAffected() > 0, nil
}

var _ shared.OrderRepository = (*OrderRepository)(nil)
