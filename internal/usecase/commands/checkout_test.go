//go:build unit

package commands_test

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"storefront/internal/domain/catalog"
	"storefront/internal/domain/promotion"
	"storefront/internal/pkg/clock"
	"storefront/internal/pkg/config"
	"storefront/internal/usecase/commands"
	"storefront/internal/usecase/shared"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var checkoutNow = time.Date(2025, 6, 15, 10, 0, 0, 0, time.UTC)

type checkoutFixture struct {
	world *fakeWorld
	pub   *fakePublisher
	clk   *clock.MockClock
	uc    commands.CheckoutCommands

	tee    stockKey
	shorts stockKey
}

func newCheckoutFixture(t *testing.T) *checkoutFixture {
	t.Helper()

	world := newFakeWorld()
	f := &checkoutFixture{
		world: world,
		pub:   &fakePublisher{},
		clk:   clock.NewMockClock(checkoutNow),
		tee:   stockKey{productID: uuid.New(), colorID: uuid.New(), sizeID: uuid.New()},
		shorts: stockKey{
			productID: uuid.New(), colorID: uuid.New(), sizeID: uuid.New(),
		},
	}
	world.clk = f.clk
	world.addStock(f.tee, stockRow{name: "Basic Tee", image: "tee.jpg", unitPrice: 150000, quantity: 10, active: true})
	world.addStock(f.shorts, stockRow{name: "Linen Shorts", image: "shorts.jpg", unitPrice: 80000, quantity: 5, active: true})

	f.uc = commands.NewCheckoutUseCase(
		&fakeUoW{world: world},
		&fakeIdemRepo{world: world},
		&fakeOrderQueries{world: world},
		f.pub,
		f.clk,
		config.NewTestConfig().Checkout,
	)
	return f
}

func (f *checkoutFixture) addPromotion(t *testing.T, usageLimit, limitPerUser int32) {
	t.Helper()
	code, err := promotion.NewCode("SUMMER10")
	require.NoError(t, err)

	f.world.mu.Lock()
	defer f.world.mu.Unlock()
	f.world.promo = &promoState{
		id:            uuid.New(),
		code:          code,
		typ:           promotion.TypePercent,
		discount:      10,
		minOrderValue: 100000,
		startsAt:      checkoutNow.Add(-24 * time.Hour),
		endsAt:        checkoutNow.Add(24 * time.Hour),
		usageLimit:    usageLimit,
		limitPerUser:  limitPerUser,
		usedBy:        map[uuid.UUID]int32{},
		markers:       map[uuid.UUID]bool{},
		active:        true,
	}
}

func lineOf(key stockKey, quantity int32) commands.OrderLineCommand {
	return commands.OrderLineCommand{
		ProductID: key.productID,
		ColorID:   key.colorID,
		SizeID:    key.sizeID,
		Quantity:  quantity,
	}
}

func baseCommand(f *checkoutFixture) commands.CreateOrderCommand {
	return commands.CreateOrderCommand{
		Items:       []commands.OrderLineCommand{lineOf(f.tee, 2), lineOf(f.shorts, 3)},
		Address:     "12 Nguyen Hue, District 1",
		PaymentType: "cod",
	}
}

func TestCreateOrder_Success(t *testing.T) {
	f := newCheckoutFixture(t)
	userID := uuid.New()

	result, err := f.uc.CreateOrder(context.Background(), baseCommand(f), userID, uuid.New())
	require.NoError(t, err)
	require.False(t, result.IsReplayed)

	view := result.Order
	assert.Equal(t, int64(540000), view.Subtotal)
	assert.Equal(t, int64(0), view.Discount)
	// Subtotal crosses the free shipping threshold.
	assert.Equal(t, int64(0), view.ShippingFee)
	assert.Equal(t, int64(540000), view.Total)
	assert.Equal(t, "pending", view.Status)
	assert.Equal(t, "unpaid", view.PaymentStatus)
	assert.Len(t, view.Items, 2)

	assert.Equal(t, int32(2), f.world.soldCount(f.tee))
	assert.Equal(t, int32(3), f.world.soldCount(f.shorts))

	f.world.mu.Lock()
	require.Len(t, f.world.cartRemoved, 1)
	assert.Len(t, f.world.cartRemoved[0], 2)
	require.Len(t, f.world.outbox, 1)
	assert.Equal(t, commands.TopicOrderCreated, f.world.outbox[0].topic)
	f.world.mu.Unlock()

	assert.Equal(t, []string{commands.TopicOrderCreated}, f.pub.published())
}

func TestCreateOrder_ShippingFeeBelowThreshold(t *testing.T) {
	f := newCheckoutFixture(t)

	cmd := baseCommand(f)
	cmd.Items = []commands.OrderLineCommand{lineOf(f.tee, 2)}

	result, err := f.uc.CreateOrder(context.Background(), cmd, uuid.New(), uuid.New())
	require.NoError(t, err)

	assert.Equal(t, int64(300000), result.Order.Subtotal)
	assert.Equal(t, int64(30000), result.Order.ShippingFee)
	assert.Equal(t, int64(330000), result.Order.Total)
}

func TestCreateOrder_InsufficientStockRollsBackEverything(t *testing.T) {
	f := newCheckoutFixture(t)

	cmd := baseCommand(f)
	// Second line exceeds availability (5 in stock, 8 requested).
	cmd.Items = []commands.OrderLineCommand{lineOf(f.tee, 2), lineOf(f.shorts, 8)}

	_, err := f.uc.CreateOrder(context.Background(), cmd, uuid.New(), uuid.New())
	require.ErrorIs(t, err, commands.ErrInsufficientStock)

	var insufficient *catalog.InsufficientStockError
	require.ErrorAs(t, err, &insufficient)
	assert.Equal(t, int32(8), insufficient.Requested)
	assert.Equal(t, int32(5), insufficient.Available)

	// The first line's reservation did not survive the rollback.
	assert.Equal(t, int32(0), f.world.soldCount(f.tee))
	assert.Equal(t, int32(0), f.world.soldCount(f.shorts))

	f.world.mu.Lock()
	assert.Empty(t, f.world.orders)
	assert.Empty(t, f.world.outbox)
	f.world.mu.Unlock()
	assert.Empty(t, f.pub.published())
}

func TestCreateOrder_ItemUnavailable(t *testing.T) {
	f := newCheckoutFixture(t)

	cmd := baseCommand(f)
	cmd.Items = append(cmd.Items, commands.OrderLineCommand{
		ProductID: uuid.New(), ColorID: uuid.New(), SizeID: uuid.New(), Quantity: 1,
	})

	_, err := f.uc.CreateOrder(context.Background(), cmd, uuid.New(), uuid.New())
	assert.ErrorIs(t, err, commands.ErrItemUnavailable)
	assert.Equal(t, int32(0), f.world.soldCount(f.tee))
}

func TestCreateOrder_IdempotentReplay(t *testing.T) {
	f := newCheckoutFixture(t)
	userID := uuid.New()
	key := uuid.New()
	cmd := baseCommand(f)

	first, err := f.uc.CreateOrder(context.Background(), cmd, userID, key)
	require.NoError(t, err)
	require.False(t, first.IsReplayed)

	second, err := f.uc.CreateOrder(context.Background(), cmd, userID, key)
	require.NoError(t, err)
	assert.True(t, second.IsReplayed)
	assert.Equal(t, first.Order.ID, second.Order.ID)

	// The replay did not reserve stock again.
	assert.Equal(t, int32(2), f.world.soldCount(f.tee))
}

func TestCreateOrder_ExpiredKeyIsReclaimed(t *testing.T) {
	f := newCheckoutFixture(t)
	userID := uuid.New()
	key := uuid.New()
	cmd := baseCommand(f)

	first, err := f.uc.CreateOrder(context.Background(), cmd, userID, key)
	require.NoError(t, err)

	// Past the TTL the key no longer shields the request: the same key
	// runs a fresh checkout with its own reservation.
	f.clk.Add(config.NewTestConfig().Checkout.IdempotencyTTL + time.Hour)

	second, err := f.uc.CreateOrder(context.Background(), cmd, userID, key)
	require.NoError(t, err)
	assert.False(t, second.IsReplayed)
	assert.NotEqual(t, first.Order.ID, second.Order.ID)
	assert.Equal(t, int32(4), f.world.soldCount(f.tee))
}

func TestCreateOrder_ConcurrentDuplicateKey(t *testing.T) {
	f := newCheckoutFixture(t)
	userID := uuid.New()
	key := uuid.New()
	cmd := baseCommand(f)

	sameHash := func(c commands.CreateOrderCommand) string {
		data, _ := json.Marshal(c)
		sum := sha256.Sum256(data)
		return hex.EncodeToString(sum[:])
	}

	t.Run("same payload still in flight", func(t *testing.T) {
		f.world.mu.Lock()
		f.world.idem[key] = &shared.IdempotencyRecord{
			Key:         key,
			UserID:      userID,
			Status:      "processing",
			RequestHash: sameHash(cmd),
			ExpiresAt:   checkoutNow.Add(24 * time.Hour),
		}
		f.world.mu.Unlock()

		_, err := f.uc.CreateOrder(context.Background(), cmd, userID, key)
		assert.ErrorIs(t, err, commands.ErrIdempotencyInProgress)
	})

	t.Run("same key with different payload", func(t *testing.T) {
		f.world.mu.Lock()
		f.world.idem[key].RequestHash = "different"
		f.world.mu.Unlock()

		_, err := f.uc.CreateOrder(context.Background(), cmd, userID, key)
		assert.ErrorIs(t, err, commands.ErrDuplicateCheckout)
	})
}

func TestCreateOrder_CODRedeemsVoucherAtCreate(t *testing.T) {
	f := newCheckoutFixture(t)
	f.addPromotion(t, 10, 3)
	userID := uuid.New()

	cmd := baseCommand(f)
	voucher := "SUMMER10"
	cmd.VoucherCode = &voucher

	result, err := f.uc.CreateOrder(context.Background(), cmd, userID, uuid.New())
	require.NoError(t, err)

	view := result.Order
	assert.Equal(t, int64(540000), view.Subtotal)
	assert.Equal(t, int64(54000), view.Discount)
	assert.Equal(t, int64(486000), view.Total)
	require.NotNil(t, view.Voucher)
	assert.Equal(t, "SUMMER10", view.Voucher.Code)

	f.world.mu.Lock()
	assert.Equal(t, int32(1), f.world.promo.usedCount)
	assert.Equal(t, int32(1), f.world.promo.usedBy[userID])
	assert.True(t, f.world.promo.markers[view.ID])
	f.world.mu.Unlock()
}

func TestCreateOrder_VNPayDefersRedemption(t *testing.T) {
	f := newCheckoutFixture(t)
	f.addPromotion(t, 10, 3)

	cmd := baseCommand(f)
	cmd.PaymentType = "vnpay"
	voucher := "SUMMER10"
	cmd.VoucherCode = &voucher

	result, err := f.uc.CreateOrder(context.Background(), cmd, uuid.New(), uuid.New())
	require.NoError(t, err)

	// Discount is applied to the totals, but usage is only counted when
	// the gateway confirms the payment.
	assert.Equal(t, int64(54000), result.Order.Discount)
	require.NotNil(t, result.Order.Voucher)

	f.world.mu.Lock()
	assert.Equal(t, int32(0), f.world.promo.usedCount)
	assert.Empty(t, f.world.promo.markers)
	f.world.mu.Unlock()
}

func TestCreateOrder_VoucherErrors(t *testing.T) {
	t.Run("unknown code", func(t *testing.T) {
		f := newCheckoutFixture(t)
		cmd := baseCommand(f)
		voucher := "NOSUCHCODE"
		cmd.VoucherCode = &voucher

		_, err := f.uc.CreateOrder(context.Background(), cmd, uuid.New(), uuid.New())
		assert.ErrorIs(t, err, commands.ErrVoucherNotFound)
	})

	t.Run("below minimum order value", func(t *testing.T) {
		f := newCheckoutFixture(t)
		f.addPromotion(t, 10, 3)
		f.world.mu.Lock()
		f.world.promo.minOrderValue = 1000000
		f.world.mu.Unlock()

		cmd := baseCommand(f)
		voucher := "SUMMER10"
		cmd.VoucherCode = &voucher

		_, err := f.uc.CreateOrder(context.Background(), cmd, uuid.New(), uuid.New())
		assert.ErrorIs(t, err, commands.ErrVoucherIneligible)
		assert.Equal(t, int32(0), f.world.soldCount(f.tee))
	})
}

func TestCreateOrder_InvalidInput(t *testing.T) {
	f := newCheckoutFixture(t)

	tests := []struct {
		name   string
		mutate func(*commands.CreateOrderCommand)
	}{
		{name: "empty items", mutate: func(c *commands.CreateOrderCommand) { c.Items = nil }},
		{name: "missing address", mutate: func(c *commands.CreateOrderCommand) { c.Address = "" }},
		{name: "unknown payment type", mutate: func(c *commands.CreateOrderCommand) { c.PaymentType = "paypal" }},
		{name: "zero quantity", mutate: func(c *commands.CreateOrderCommand) { c.Items[0].Quantity = 0 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd := baseCommand(f)
			tt.mutate(&cmd)
			_, err := f.uc.CreateOrder(context.Background(), cmd, uuid.New(), uuid.New())
			assert.ErrorIs(t, err, commands.ErrInvalidOrder)
		})
	}
}

func TestCreateOrder_ConcurrentReservationNeverOversells(t *testing.T) {
	f := newCheckoutFixture(t)
	lastOne := stockKey{productID: uuid.New(), colorID: uuid.New(), sizeID: uuid.New()}
	f.world.addStock(lastOne, stockRow{name: "Limited Tee", image: "ltd.jpg", unitPrice: 200000, quantity: 1, active: true})

	const attempts = 16
	errCh := make(chan error, attempts)

	var wg sync.WaitGroup
	for range attempts {
		wg.Add(1)
		go func() {
			defer wg.Done()
			cmd := commands.CreateOrderCommand{
				Items:       []commands.OrderLineCommand{lineOf(lastOne, 1)},
				Address:     "12 Nguyen Hue, District 1",
				PaymentType: "cod",
			}
			_, err := f.uc.CreateOrder(context.Background(), cmd, uuid.New(), uuid.New())
			errCh <- err
		}()
	}
	wg.Wait()
	close(errCh)

	var succeeded, insufficient int
	for err := range errCh {
		switch {
		case err == nil:
			succeeded++
		default:
			require.ErrorIs(t, err, commands.ErrInsufficientStock)
			insufficient++
		}
	}

	assert.Equal(t, 1, succeeded)
	assert.Equal(t, attempts-1, insufficient)
	assert.Equal(t, int32(1), f.world.soldCount(lastOne))

	f.world.mu.Lock()
	assert.Len(t, f.world.orders, 1)
	f.world.mu.Unlock()
}

func TestCreateOrder_VoucherCeilingUnderConcurrency(t *testing.T) {
	f := newCheckoutFixture(t)
	f.addPromotion(t, 3, 1)
	plenty := stockKey{productID: uuid.New(), colorID: uuid.New(), sizeID: uuid.New()}
	f.world.addStock(plenty, stockRow{name: "Basic Tee", image: "tee.jpg", unitPrice: 200000, quantity: 100, active: true})

	const attempts = 8
	errCh := make(chan error, attempts)

	var wg sync.WaitGroup
	for range attempts {
		wg.Add(1)
		go func() {
			defer wg.Done()
			voucher := "SUMMER10"
			cmd := commands.CreateOrderCommand{
				Items:       []commands.OrderLineCommand{lineOf(plenty, 1)},
				Address:     "12 Nguyen Hue, District 1",
				PaymentType: "cod",
				VoucherCode: &voucher,
			}
			_, err := f.uc.CreateOrder(context.Background(), cmd, uuid.New(), uuid.New())
			errCh <- err
		}()
	}
	wg.Wait()
	close(errCh)

	var succeeded int
	for err := range errCh {
		if err == nil {
			succeeded++
			continue
		}
		require.ErrorIs(t, err, commands.ErrVoucherIneligible)
	}

	assert.Equal(t, 3, succeeded)

	f.world.mu.Lock()
	assert.Equal(t, int32(3), f.world.promo.usedCount)
	f.world.mu.Unlock()
	// Failed checkouts rolled their reservations back.
	assert.Equal(t, int32(3), f.world.soldCount(plenty))
}
