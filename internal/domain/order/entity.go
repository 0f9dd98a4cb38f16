package order

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	ErrEmptyItems       = errors.New("order must contain at least one item")
	ErrMissingAddress   = errors.New("order must have a shipping address")
	ErrInvalidQuantity  = errors.New("order line quantity must be positive")
	ErrAlreadyCancelled = errors.New("order is already cancelled")
)

// Item is a frozen snapshot of a product line at order time. Name,
// image and price are copied from the live catalog and never re-derived,
// so later catalog edits do not alter historical orders.
type Item struct {
	productID uuid.UUID
	variantID uuid.UUID
	colorID   uuid.UUID
	sizeID    uuid.UUID
	name      string
	image     string
	price     int64
	quantity  int32
}

func NewItem(productID, variantID, colorID, sizeID uuid.UUID, name, image string, price int64, quantity int32) (Item, error) {
	if quantity <= 0 {
		return Item{}, ErrInvalidQuantity
	}
	return Item{
		productID: productID,
		variantID: variantID,
		colorID:   colorID,
		sizeID:    sizeID,
		name:      name,
		image:     image,
		price:     price,
		quantity:  quantity,
	}, nil
}

func (i Item) ProductID() uuid.UUID { return i.productID }
func (i Item) VariantID() uuid.UUID { return i.variantID }
func (i Item) ColorID() uuid.UUID   { return i.colorID }
func (i Item) SizeID() uuid.UUID    { return i.sizeID }
func (i Item) Name() string         { return i.name }
func (i Item) Image() string        { return i.image }
func (i Item) Price() int64         { return i.price }
func (i Item) Quantity() int32      { return i.quantity }

func (i Item) LineTotal() int64 {
	return i.price * int64(i.quantity)
}

// VoucherSnapshot freezes the promotion terms applied to an order.
// It is a copy, not a reference: voucher edits after checkout leave
// the order's discount untouched.
type VoucherSnapshot struct {
	Code          string
	Type          string
	Discount      int64
	MaxDiscount   int64
	MinOrderValue int64
}

type Cancellation struct {
	ReasonCode  string
	ReasonText  string
	CancelledAt time.Time
}

type Order struct {
	id            uuid.UUID
	orderCode     string
	userID        uuid.UUID
	items         []Item
	address       string
	note          string
	shippingFee   int64
	subtotal      int64
	discount      int64
	total         int64
	voucher       *VoucherSnapshot
	paymentType   PaymentType
	paymentStatus PaymentStatus
	status        Status
	cancellation  *Cancellation
	createdAt     time.Time
	updatedAt     time.Time
}

// NewOrder assembles the aggregate at checkout time. The total is
// computed exactly once here (subtotal - discount + shippingFee) and
// persisted; it is never re-derived from live catalog state.
func NewOrder(
	id uuid.UUID,
	orderCode string,
	userID uuid.UUID,
	items []Item,
	address, note string,
	shippingFee, discount int64,
	voucher *VoucherSnapshot,
	paymentType PaymentType,
) (*Order, error) {
	if len(items) == 0 {
		return nil, ErrEmptyItems
	}
	if address == "" {
		return nil, ErrMissingAddress
	}
	if !paymentType.IsValid() {
		return nil, errors.New("invalid payment type")
	}

	var subtotal int64
	for _, item := range items {
		subtotal += item.LineTotal()
	}
	if discount > subtotal {
		discount = subtotal
	}

	return &Order{
		id:            id,
		orderCode:     orderCode,
		userID:        userID,
		items:         items,
		address:       address,
		note:          note,
		shippingFee:   shippingFee,
		subtotal:      subtotal,
		discount:      discount,
		total:         subtotal - discount + shippingFee,
		voucher:       voucher,
		paymentType:   paymentType,
		paymentStatus: PaymentUnpaid,
		status:        StatusPending,
	}, nil
}

func ReconstructOrder(
	id uuid.UUID,
	orderCode string,
	userID uuid.UUID,
	items []Item,
	address, note string,
	shippingFee, subtotal, discount, total int64,
	voucher *VoucherSnapshot,
	paymentType PaymentType,
	paymentStatus PaymentStatus,
	status Status,
	cancellation *Cancellation,
	createdAt, updatedAt time.Time,
) *Order {
	return &Order{
		id:            id,
		orderCode:     orderCode,
		userID:        userID,
		items:         items,
		address:       address,
		note:          note,
		shippingFee:   shippingFee,
		subtotal:      subtotal,
		discount:      discount,
		total:         total,
		voucher:       voucher,
		paymentType:   paymentType,
		paymentStatus: paymentStatus,
		status:        status,
		cancellation:  cancellation,
		createdAt:     createdAt,
		updatedAt:     updatedAt,
	}
}

// Advance moves the order one step forward along the status chain.
func (o *Order) Advance() error {
	next, err := NextStatus(o.status)
	if err != nil {
		return err
	}
	o.status = next
	return nil
}

// Cancel marks the order cancelled with a reason. Re-cancelling an
// already cancelled order is a no-op so retries stay safe.
func (o *Order) Cancel(reasonCode, reasonText string, now time.Time) error {
	if o.status == StatusCancelled {
		return ErrAlreadyCancelled
	}
	if !CanCancelFrom(o.status) {
		return ErrInvalidTransition
	}
	o.status = StatusCancelled
	o.cancellation = &Cancellation{
		ReasonCode:  reasonCode,
		ReasonText:  reasonText,
		CancelledAt: now,
	}
	return nil
}

func (o *Order) MarkPaymentStatus(status PaymentStatus) {
	o.paymentStatus = status
}

func (o *Order) IsCancelled() bool {
	return o.status == StatusCancelled
}

func (o *Order) HasVoucher() bool {
	return o.voucher != nil
}

func (o *Order) ID() uuid.UUID                { return o.id }
func (o *Order) OrderCode() string            { return o.orderCode }
func (o *Order) UserID() uuid.UUID            { return o.userID }
func (o *Order) Items() []Item                { return o.items }
func (o *Order) Address() string              { return o.address }
func (o *Order) Note() string                 { return o.note }
func (o *Order) ShippingFee() int64           { return o.shippingFee }
func (o *Order) Subtotal() int64              { return o.subtotal }
func (o *Order) Discount() int64              { return o.discount }
func (o *Order) Total() int64                 { return o.total }
func (o *Order) Voucher() *VoucherSnapshot    { return o.voucher }
func (o *Order) PaymentType() PaymentType     { return o.paymentType }
func (o *Order) PaymentStatus() PaymentStatus { return o.paymentStatus }
func (o *Order) Status() Status               { return o.status }
func (o *Order) Cancellation() *Cancellation  { return o.cancellation }
func (o *Order) CreatedAt() time.Time         { return o.createdAt }
func (o *Order) UpdatedAt() time.Time         { return o.updatedAt }
