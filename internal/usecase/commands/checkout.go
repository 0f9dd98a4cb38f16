package commands

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"storefront/internal/domain/catalog"
	"storefront/internal/domain/order"
	"storefront/internal/domain/promotion"
	"storefront/internal/infra"
	"storefront/internal/pkg/clock"
	"storefront/internal/pkg/config"
	"storefront/internal/pkg/errs"
	"storefront/internal/usecase/queries"
	"storefront/internal/usecase/shared"

	"github.com/google/uuid"
)

const checkoutEndpoint = "POST /orders"

type OrderLineCommand struct {
	ProductID uuid.UUID `json:"product_id"`
	ColorID   uuid.UUID `json:"color_id"`
	SizeID    uuid.UUID `json:"size_id"`
	Quantity  int32     `json:"quantity"`
}

type CreateOrderCommand struct {
	Items       []OrderLineCommand `json:"items"`
	Address     string             `json:"address"`
	Note        string             `json:"note"`
	PaymentType string             `json:"payment_type"`
	VoucherCode *string            `json:"voucher_code"`
}

type CreateOrderResult struct {
	Order      *queries.OrderView
	IsReplayed bool
}

type CheckoutCommands interface {
	CreateOrder(ctx context.Context, cmd CreateOrderCommand, userID uuid.UUID, idempotencyKey uuid.UUID) (*CreateOrderResult, error)
}

type checkoutUseCaseImpl struct {
	uow             shared.UnitOfWork
	idempotencyRepo shared.IdempotencyRepository
	orderQueries    queries.OrderQueries
	publisher       EventPublisher
	clock           clock.Clock
	checkout        config.CheckoutConfig
}

func NewCheckoutUseCase(
	uow shared.UnitOfWork,
	idempotencyRepo shared.IdempotencyRepository,
	orderQueries queries.OrderQueries,
	publisher EventPublisher,
	clk clock.Clock,
	checkout config.CheckoutConfig,
) CheckoutCommands {
	return &checkoutUseCaseImpl{
		uow:             uow,
		idempotencyRepo: idempotencyRepo,
		orderQueries:    orderQueries,
		publisher:       publisher,
		clock:           clk,
		checkout:        checkout,
	}
}

func (c *checkoutUseCaseImpl) CreateOrder(
	ctx context.Context,
	cmd CreateOrderCommand,
	userID uuid.UUID,
	idempotencyKey uuid.UUID,
) (*CreateOrderResult, error) {
	requestHash := calculateRequestHash(cmd)
	expiresAt := c.clock.Now().Add(c.checkout.IdempotencyTTL)

	replayed, err := c.handleIdempotency(ctx, idempotencyKey, userID, requestHash, expiresAt)
	if err != nil {
		return nil, err
	}
	if replayed != nil {
		return &CreateOrderResult{Order: replayed, IsReplayed: true}, nil
	}

	orderView, err := c.createNewOrder(ctx, cmd, userID, idempotencyKey)
	if err != nil {
		return nil, err
	}
	return &CreateOrderResult{Order: orderView, IsReplayed: false}, nil
}

func (c *checkoutUseCaseImpl) handleIdempotency(
	ctx context.Context,
	idempotencyKey, userID uuid.UUID,
	requestHash string,
	expiresAt time.Time,
) (*queries.OrderView, error) {
	claimed, err := c.idempotencyRepo.TryInsert(ctx, idempotencyKey, userID, checkoutEndpoint, requestHash, expiresAt)
	if err != nil {
		return nil, errs.Mark(err, ErrIdempotencyCheckFailed)
	}
	if claimed {
		return nil, nil
	}

	existing, err := c.idempotencyRepo.Get(ctx, idempotencyKey, userID)
	if err != nil {
		return nil, errs.Mark(err, ErrIdempotencyCheckFailed)
	}

	switch existing.Status {
	case "completed":
		if existing.ResultOrderID != nil {
			return c.orderQueries.GetByIDSystem(ctx, *existing.ResultOrderID)
		}
		return nil, errs.New("completed checkout missing result order ID")

	case "processing":
		if existing.RequestHash != requestHash {
			return nil, ErrDuplicateCheckout
		}
		return nil, ErrIdempotencyInProgress

	default:
		return nil, errs.New("invalid idempotency key status")
	}
}

func (c *checkoutUseCaseImpl) createNewOrder(
	ctx context.Context,
	cmd CreateOrderCommand,
	userID, idempotencyKey uuid.UUID,
) (*queries.OrderView, error) {
	now := c.clock.Now()

	paymentType := order.PaymentType(cmd.PaymentType)
	if len(cmd.Items) == 0 {
		return nil, errs.Mark(order.ErrEmptyItems, ErrInvalidOrder)
	}
	if cmd.Address == "" {
		return nil, errs.Mark(order.ErrMissingAddress, ErrInvalidOrder)
	}
	if !paymentType.IsValid() {
		return nil, errs.Mark(errs.New("unknown payment type: "+cmd.PaymentType), ErrInvalidOrder)
	}

	items, stockLines, subtotal, err := c.freezeLines(ctx, cmd.Items)
	if err != nil {
		return nil, err
	}

	voucher, promoCode, discount, err := c.resolveVoucher(ctx, cmd.VoucherCode, userID, subtotal, now)
	if err != nil {
		return nil, err
	}

	newOrder, err := order.NewOrder(
		uuid.New(),
		order.GenerateOrderCode(now),
		userID,
		items,
		cmd.Address,
		cmd.Note,
		c.shippingFee(subtotal),
		discount,
		voucher,
		paymentType,
	)
	if err != nil {
		return nil, errs.Mark(err, ErrInvalidOrder)
	}

	orderID, err := c.executeCheckoutTransaction(ctx, newOrder, stockLines, promoCode, idempotencyKey, now)
	if err != nil {
		return nil, err
	}

	c.publishEvent(ctx, TopicOrderCreated, map[string]any{
		"order_id":   orderID,
		"order_code": newOrder.OrderCode(),
		"user_id":    userID,
		"total":      newOrder.Total(),
	})

	return c.orderQueries.GetByIDSystem(ctx, orderID)
}

// freezeLines resolves each requested line against the live catalog and
// copies the display/pricing fields into order item snapshots. The
// availability returned here is advisory; the reservation inside the
// checkout transaction is the authoritative check.
func (c *checkoutUseCaseImpl) freezeLines(
	ctx context.Context,
	lines []OrderLineCommand,
) ([]order.Item, []shared.StockLine, int64, error) {
	reads := c.uow.CommandReads()

	items := make([]order.Item, 0, len(lines))
	stockLines := make([]shared.StockLine, 0, len(lines))
	var subtotal int64

	for _, line := range lines {
		if line.Quantity <= 0 {
			return nil, nil, 0, errs.Mark(order.ErrInvalidQuantity, ErrInvalidOrder)
		}

		sale, err := reads.SaleItem(ctx, line.ProductID, line.ColorID, line.SizeID)
		if err != nil {
			if infra.IsKind(err, infra.KindNotFound) {
				return nil, nil, 0, errs.Mark(err, ErrItemUnavailable)
			}
			return nil, nil, 0, errs.Mark(err, ErrDatabaseOperationFailed)
		}

		item, err := order.NewItem(
			sale.ProductID, sale.VariantID, sale.ColorID, sale.SizeID,
			sale.Name, sale.Image, sale.UnitPrice, line.Quantity,
		)
		if err != nil {
			return nil, nil, 0, errs.Mark(err, ErrInvalidOrder)
		}

		items = append(items, item)
		stockLines = append(stockLines, shared.StockLine{
			ProductID: line.ProductID,
			ColorID:   line.ColorID,
			SizeID:    line.SizeID,
			Quantity:  line.Quantity,
		})
		subtotal += item.LineTotal()
	}

	return items, stockLines, subtotal, nil
}

func (c *checkoutUseCaseImpl) resolveVoucher(
	ctx context.Context,
	rawCode *string,
	userID uuid.UUID,
	subtotal int64,
	now time.Time,
) (*order.VoucherSnapshot, *promotion.Code, int64, error) {
	if rawCode == nil {
		return nil, nil, 0, nil
	}

	code, err := promotion.NewCode(*rawCode)
	if err != nil {
		return nil, nil, 0, errs.Mark(err, ErrVoucherNotFound)
	}

	promo, err := c.uow.CommandReads().PromotionByCode(ctx, code)
	if err != nil {
		if infra.IsKind(err, infra.KindNotFound) {
			return nil, nil, 0, errs.Mark(err, ErrVoucherNotFound)
		}
		return nil, nil, 0, errs.Mark(err, ErrDatabaseOperationFailed)
	}

	if eligErr := promo.CheckEligibility(now, userID, subtotal); eligErr != nil {
		return nil, nil, 0, errs.Mark(eligErr, ErrVoucherIneligible)
	}

	snapshot := &order.VoucherSnapshot{
		Code:          promo.Code().String(),
		Type:          promo.Type().String(),
		Discount:      promo.Discount(),
		MaxDiscount:   promo.MaxDiscount(),
		MinOrderValue: promo.MinOrderValue(),
	}
	return snapshot, ptrOf(promo.Code()), promo.DiscountValue(subtotal), nil
}

// executeCheckoutTransaction reserves every line, persists the order
// and, for COD, commits the voucher redemption inside one transaction.
// Any line failure rolls back the prior reservations, so checkout is
// all-or-nothing across the whole cart.
func (c *checkoutUseCaseImpl) executeCheckoutTransaction(
	ctx context.Context,
	newOrder *order.Order,
	stockLines []shared.StockLine,
	promoCode *promotion.Code,
	idempotencyKey uuid.UUID,
	now time.Time,
) (uuid.UUID, error) {
	userID := newOrder.UserID()
	orderID := newOrder.ID()

	err := c.uow.Within(ctx, func(ctx context.Context, tx shared.Tx) error {
		for _, line := range stockLines {
			if reserveErr := tx.Stock().Reserve(ctx, line); reserveErr != nil {
				var insufficient *catalog.InsufficientStockError
				if errors.As(reserveErr, &insufficient) {
					return errs.Mark(reserveErr, ErrInsufficientStock)
				}
				return errs.Mark(reserveErr, ErrDatabaseOperationFailed)
			}
		}

		if _, createErr := tx.Orders().Create(ctx, newOrder, now); createErr != nil {
			return errs.Mark(createErr, ErrDatabaseOperationFailed)
		}

		if promoCode != nil && newOrder.PaymentType().CommitsAtCreate() {
			_, redeemErr := tx.Promotions().Redeem(ctx, shared.RedeemRequest{
				Code:       *promoCode,
				UserID:     userID,
				OrderID:    orderID,
				OrderTotal: newOrder.Subtotal(),
				Now:        now,
			})
			if redeemErr != nil {
				return errs.Mark(redeemErr, ErrVoucherIneligible)
			}
		}

		// Purchased lines leave the cart; other lines stay.
		if cartErr := tx.Carts().RemoveLines(ctx, userID, stockLines); cartErr != nil {
			return errs.Mark(cartErr, ErrDatabaseOperationFailed)
		}

		if outboxErr := c.createOutboxJob(ctx, tx, TopicOrderCreated, orderID, now); outboxErr != nil {
			return errs.Mark(outboxErr, ErrDatabaseOperationFailed)
		}

		if idemErr := tx.Idempotency().MarkCompleted(ctx, idempotencyKey, userID, orderID); idemErr != nil {
			return errs.Mark(idemErr, ErrDatabaseOperationFailed)
		}
		return nil
	})
	if err != nil {
		return uuid.Nil, err
	}
	return orderID, nil
}

func (c *checkoutUseCaseImpl) createOutboxJob(ctx context.Context, tx shared.Tx, topic string, orderID uuid.UUID, now time.Time) error {
	payload, err := json.Marshal(map[string]any{
		"order_id": orderID,
		"type":     topic,
	})
	if err != nil {
		return err
	}
	return tx.Outbox().CreateJob(ctx, "event", topic, payload, now)
}

func (c *checkoutUseCaseImpl) publishEvent(ctx context.Context, topic string, body map[string]any) {
	payload, err := json.Marshal(body)
	if err != nil {
		slog.Warn("failed to marshal order event", "topic", topic, "error", err.Error())
		return
	}
	if err := c.publisher.Publish(ctx, topic, payload); err != nil {
		slog.Warn("failed to publish order event", "topic", topic, "error", err.Error())
	}
}

func (c *checkoutUseCaseImpl) shippingFee(subtotal int64) int64 {
	if subtotal <= 0 {
		return 0
	}
	if c.checkout.FreeShippingThreshold > 0 && subtotal >= c.checkout.FreeShippingThreshold {
		return 0
	}
	return c.checkout.ShippingFee
}

func calculateRequestHash(cmd CreateOrderCommand) string {
	data, _ := json.Marshal(cmd)
	hash := sha256.Sum256(data)
	return hex.EncodeToString(hash[:])
}

func ptrOf[T any](v T) *T {
	return &v
}
