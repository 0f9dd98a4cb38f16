package queries

import (
	"context"

	"storefront/internal/domain/cart"
	"storefront/internal/domain/promotion"
	"storefront/internal/infra"
	"storefront/internal/pkg/clock"
	"storefront/internal/pkg/config"
	"storefront/internal/usecase/shared"

	"github.com/google/uuid"
)

// Line exclusion reasons in a quote. Excluded lines stay visible and
// flagged; they are never silently dropped from the cart.
const (
	LineReasonUnavailable = "unavailable"
	LineReasonClamped     = "clamped"
)

type QuoteLineInput struct {
	ProductID uuid.UUID
	ColorID   uuid.UUID
	SizeID    uuid.UUID
	Quantity  int32
}

type QuoteLine struct {
	ProductID uuid.UUID
	ColorID   uuid.UUID
	SizeID    uuid.UUID
	Name      string
	Image     string
	UnitPrice int64
	Requested int32
	Quantity  int32
	Available int32
	LineTotal int64
	Included  bool
	Reason    string
}

type VoucherPreview struct {
	Code     string
	Eligible bool
	Discount int64
	Reason   string
}

type Quote struct {
	Lines       []QuoteLine
	Subtotal    int64
	Discount    int64
	ShippingFee int64
	Total       int64
	Voucher     *VoucherPreview
}

type CatalogReadStore interface {
	SaleItem(ctx context.Context, productID, colorID, sizeID uuid.UUID) (*shared.SaleItemSnapshot, error)
}

type PromotionReadStore interface {
	ByCode(ctx context.Context, code promotion.Code) (*promotion.Promotion, error)
}

type CartReadStore interface {
	Lines(ctx context.Context, userID uuid.UUID) ([]cart.Line, error)
}

type CartQueries interface {
	// Quote prices the selected lines against live availability and an
	// optional voucher preview. Pure read path: no counter is touched
	// and no voucher slot is consumed.
	Quote(ctx context.Context, userID uuid.UUID, lines []QuoteLineInput, voucherCode *string) (*Quote, error)
	GetCart(ctx context.Context, userID uuid.UUID) ([]cart.Line, error)
}

type cartQueriesImpl struct {
	catalog    CatalogReadStore
	promotions PromotionReadStore
	carts      CartReadStore
	clock      clock.Clock
	checkout   config.CheckoutConfig
}

func NewCartQueries(
	catalog CatalogReadStore,
	promotions PromotionReadStore,
	carts CartReadStore,
	clk clock.Clock,
	checkout config.CheckoutConfig,
) CartQueries {
	return &cartQueriesImpl{
		catalog:    catalog,
		promotions: promotions,
		carts:      carts,
		clock:      clk,
		checkout:   checkout,
	}
}

func (q *cartQueriesImpl) GetCart(ctx context.Context, userID uuid.UUID) ([]cart.Line, error) {
	return q.carts.Lines(ctx, userID)
}

func (q *cartQueriesImpl) Quote(ctx context.Context, userID uuid.UUID, lines []QuoteLineInput, voucherCode *string) (*Quote, error) {
	quote := &Quote{Lines: make([]QuoteLine, 0, len(lines))}

	for _, in := range lines {
		line, err := q.priceLine(ctx, in)
		if err != nil {
			return nil, err
		}
		if line.Included {
			quote.Subtotal += line.LineTotal
		}
		quote.Lines = append(quote.Lines, line)
	}

	if voucherCode != nil {
		quote.Voucher = q.previewVoucher(ctx, userID, *voucherCode, quote.Subtotal)
		if quote.Voucher.Eligible {
			quote.Discount = quote.Voucher.Discount
		}
	}

	quote.ShippingFee = q.shippingFee(quote.Subtotal)
	quote.Total = quote.Subtotal - quote.Discount + quote.ShippingFee
	return quote, nil
}

func (q *cartQueriesImpl) priceLine(ctx context.Context, in QuoteLineInput) (QuoteLine, error) {
	line := QuoteLine{
		ProductID: in.ProductID,
		ColorID:   in.ColorID,
		SizeID:    in.SizeID,
		Requested: in.Quantity,
	}

	item, err := q.catalog.SaleItem(ctx, in.ProductID, in.ColorID, in.SizeID)
	if err != nil {
		if infra.IsKind(err, infra.KindNotFound) {
			line.Reason = LineReasonUnavailable
			return line, nil
		}
		return QuoteLine{}, err
	}

	line.Name = item.Name
	line.Image = item.Image
	line.UnitPrice = item.UnitPrice
	line.Available = item.Available

	if item.Available <= 0 {
		line.Reason = LineReasonUnavailable
		return line, nil
	}

	// Clamp the displayed quantity to what is actually sellable; the
	// persisted cart line keeps the user's requested quantity.
	line.Quantity = in.Quantity
	if line.Quantity > item.Available {
		line.Quantity = item.Available
		line.Reason = LineReasonClamped
	}
	line.LineTotal = item.UnitPrice * int64(line.Quantity)
	line.Included = true
	return line, nil
}

func (q *cartQueriesImpl) previewVoucher(ctx context.Context, userID uuid.UUID, rawCode string, subtotal int64) *VoucherPreview {
	preview := &VoucherPreview{Code: rawCode}

	code, err := promotion.NewCode(rawCode)
	if err != nil {
		preview.Reason = promotion.ReasonNotFound
		return preview
	}
	preview.Code = code.String()

	promo, err := q.promotions.ByCode(ctx, code)
	if err != nil {
		preview.Reason = promotion.ReasonNotFound
		return preview
	}

	if err := promo.CheckEligibility(q.clock.Now(), userID, subtotal); err != nil {
		preview.Reason = promotion.ReasonOf(err)
		return preview
	}

	preview.Eligible = true
	preview.Discount = promo.DiscountValue(subtotal)
	return preview
}

func (q *cartQueriesImpl) shippingFee(subtotal int64) int64 {
	if subtotal <= 0 {
		return 0
	}
	if q.checkout.FreeShippingThreshold > 0 && subtotal >= q.checkout.FreeShippingThreshold {
		return 0
	}
	return q.checkout.ShippingFee
}
