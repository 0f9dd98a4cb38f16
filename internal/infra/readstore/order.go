package readstore

import (
	"context"
	"time"

	"storefront/internal/domain/order"
	"storefront/internal/infra"
	"storefront/internal/infra/db"
	"storefront/internal/pkg/errs"
	"storefront/internal/pkg/pgconv"
	"storefront/internal/usecase/queries"
	"storefront/internal/usecase/shared"

	"github.com/google/uuid"
)

// OrderReadStore serves both the public order views and the snapshots
// the command handlers read before a transition. Everything renders
// from the frozen order columns; the live catalog is never joined in.
type OrderReadStore struct {
	db db.DBTX
}

func NewOrderReadStore(dbtx db.DBTX) *OrderReadStore {
	return &OrderReadStore{db: dbtx}
}

const orderViewQuery = `
SELECT id, order_code, user_id, address, note,
       shipping_fee, subtotal, discount, total,
       voucher_code, voucher_type, voucher_discount,
       voucher_max_discount, voucher_min_order_value,
       payment_type, payment_status, status,
       cancel_reason_code, cancel_reason_text, cancelled_at,
       created_at, updated_at
FROM orders
WHERE id = $1
`

const orderItemViewQuery = `
SELECT product_id, color_id, size_id, name, image, price, quantity
FROM order_items
WHERE order_id = $1
ORDER BY created_at
`

func (s *OrderReadStore) GetByID(ctx context.Context, id, userID uuid.UUID) (*queries.OrderView, error) {
	view, err := s.GetByIDSystem(ctx, id)
	if err != nil {
		return nil, err
	}
	if view.UserID != userID {
		// Do not confirm the order exists to a non-owner.
		return nil, queries.ErrOrderNotFound
	}
	return view, nil
}

func (s *OrderReadStore) GetByIDSystem(ctx context.Context, id uuid.UUID) (*queries.OrderView, error) {
	row := s.db.QueryRow(ctx, orderViewQuery, id)

	var (
		view                 queries.OrderView
		voucherCode          *string
		voucherType          *string
		voucherDiscount      *int64
		voucherMaxDiscount   *int64
		voucherMinOrderValue *int64
		cancelReasonCode     *string
		cancelReasonText     *string
		cancelledAt          *time.Time
	)
	err := row.Scan(
		&view.ID, &view.OrderCode, &view.UserID, &view.Address, &view.Note,
		&view.ShippingFee, &view.Subtotal, &view.Discount, &view.Total,
		&voucherCode, &voucherType, &voucherDiscount,
		&voucherMaxDiscount, &voucherMinOrderValue,
		&view.PaymentType, &view.PaymentStatus, &view.Status,
		&cancelReasonCode, &cancelReasonText, &cancelledAt,
		&view.CreatedAt, &view.UpdatedAt,
	)
	if err != nil {
		if pgconv.IsNoRows(err) {
			return nil, errs.Mark(err, queries.ErrOrderNotFound)
		}
		return nil, infra.WrapRepoErr("failed to read order", err)
	}

	if voucherCode != nil {
		view.Voucher = &queries.VoucherView{
			Code:          *voucherCode,
			Type:          derefString(voucherType),
			Discount:      derefInt64(voucherDiscount),
			MaxDiscount:   derefInt64(voucherMaxDiscount),
			MinOrderValue: derefInt64(voucherMinOrderValue),
		}
	}
	if cancelledAt != nil {
		view.Cancellation = &queries.CancellationView{
			ReasonCode:  derefString(cancelReasonCode),
			ReasonText:  derefString(cancelReasonText),
			CancelledAt: *cancelledAt,
		}
	}

	items, err := s.itemViews(ctx, id)
	if err != nil {
		return nil, err
	}
	view.Items = items
	return &view, nil
}

func (s *OrderReadStore) itemViews(ctx context.Context, orderID uuid.UUID) ([]queries.OrderItemView, error) {
	rows, err := s.db.Query(ctx, orderItemViewQuery, orderID)
	if err != nil {
		return nil, infra.WrapRepoErr("failed to read order items", err)
	}
	defer rows.Close()

	var items []queries.OrderItemView
	for rows.Next() {
		var item queries.OrderItemView
		if err := rows.Scan(
			&item.ProductID, &item.ColorID, &item.SizeID,
			&item.Name, &item.Image, &item.Price, &item.Quantity,
		); err != nil {
			return nil, infra.WrapRepoErr("failed to scan order item", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, infra.WrapRepoErr("failed to iterate order items", err)
	}
	return items, nil
}

const orderListQuery = `
SELECT o.id, o.order_code, o.status, o.payment_status, o.total,
       (SELECT COALESCE(SUM(oi.quantity), 0) FROM order_items oi WHERE oi.order_id = o.id),
       o.created_at
FROM orders o
WHERE o.user_id = $1
ORDER BY o.created_at DESC
`

func (s *OrderReadStore) ListByUser(ctx context.Context, userID uuid.UUID) ([]*queries.OrderListItem, error) {
	rows, err := s.db.Query(ctx, orderListQuery, userID)
	if err != nil {
		return nil, infra.WrapRepoErr("failed to list orders", err)
	}
	defer rows.Close()

	var list []*queries.OrderListItem
	for rows.Next() {
		var item queries.OrderListItem
		if err := rows.Scan(
			&item.ID, &item.OrderCode, &item.Status, &item.PaymentStatus,
			&item.Total, &item.ItemCount, &item.CreatedAt,
		); err != nil {
			return nil, infra.WrapRepoErr("failed to scan order list item", err)
		}
		list = append(list, &item)
	}
	if err := rows.Err(); err != nil {
		return nil, infra.WrapRepoErr("failed to iterate order list", err)
	}
	return list, nil
}

const orderSnapshotQuery = `
SELECT id, order_code, user_id, status, payment_status, payment_type,
       voucher_code, subtotal, total, stock_released
FROM orders
WHERE id = $1
`

const orderSnapshotItemsQuery = `
SELECT product_id, color_id, size_id, quantity
FROM order_items
WHERE order_id = $1
`

// SnapshotByID reads the minimal state a command handler needs before a
// transition, including the lines to release on cancellation.
func (s *OrderReadStore) SnapshotByID(ctx context.Context, id uuid.UUID) (*shared.OrderSnapshot, error) {
	var (
		snap          shared.OrderSnapshot
		status        string
		paymentStatus string
		paymentType   string
	)
	err := s.db.QueryRow(ctx, orderSnapshotQuery, id).Scan(
		&snap.ID, &snap.OrderCode, &snap.UserID,
		&status, &paymentStatus, &paymentType,
		&snap.VoucherCode, &snap.Subtotal, &snap.Total, &snap.StockReleased,
	)
	if err != nil {
		if pgconv.IsNoRows(err) {
			return nil, infra.WrapRepoErr("order not found", err, infra.KindNotFound)
		}
		return nil, infra.WrapRepoErr("failed to read order snapshot", err)
	}
	snap.Status = order.Status(status)
	snap.PaymentStatus = order.PaymentStatus(paymentStatus)
	snap.PaymentType = order.PaymentType(paymentType)

	rows, err := s.db.Query(ctx, orderSnapshotItemsQuery, id)
	if err != nil {
		return nil, infra.WrapRepoErr("failed to read order snapshot items", err)
	}
	defer rows.Close()

	for rows.Next() {
		var line shared.OrderLineSnapshot
		if err := rows.Scan(&line.ProductID, &line.ColorID, &line.SizeID, &line.Quantity); err != nil {
			return nil, infra.WrapRepoErr("failed to scan order snapshot item", err)
		}
		snap.Items = append(snap.Items, line)
	}
	if err := rows.Err(); err != nil {
		return nil, infra.WrapRepoErr("failed to iterate order snapshot items", err)
	}
	return &snap, nil
}

func derefString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func derefInt64(v *int64) int64 {
	if v == nil {
		return 0
	}
	return *v
}

var _ queries.OrderQueries = (*OrderReadStore)(nil)
