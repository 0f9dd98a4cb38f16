package commands

import (
	"context"

	"storefront/internal/pkg/errs"
)

var (
	ErrInvalidOrder            = errs.New("order validation failed")
	ErrItemUnavailable         = errs.New("order line is not sellable")
	ErrInsufficientStock       = errs.New("insufficient stock")
	ErrVoucherNotFound         = errs.New("voucher not found")
	ErrVoucherIneligible       = errs.New("voucher is not eligible")
	ErrOrderNotFound           = errs.New("order not found")
	ErrInvalidTransition       = errs.New("invalid order status transition")
	ErrIdempotencyKeyRequired  = errs.New("idempotency key required")
	ErrIdempotencyInProgress   = errs.New("idempotency in progress")
	ErrDuplicateCheckout       = errs.New("duplicate checkout request with different parameters")
	ErrIdempotencyCheckFailed  = errs.New("idempotency check failed")
	ErrDatabaseOperationFailed = errs.New("database operation failed")
)

// EventPublisher pushes order lifecycle events to the message broker.
// Publishing is best effort: the authoritative record is the outbox row
// written in the same transaction as the state change.
type EventPublisher interface {
	Publish(ctx context.Context, topic string, payload []byte) error
}

const (
	TopicOrderCreated       = "order.created"
	TopicOrderPaid          = "order.paid"
	TopicOrderCancelled     = "order.cancelled"
	TopicOrderStatusChanged = "order.status_changed"
)
