//go:build unit

package commands_test

import (
	"context"
	"sync"
	"time"

	"storefront/internal/domain/catalog"
	"storefront/internal/domain/order"
	"storefront/internal/domain/promotion"
	"storefront/internal/infra"
	"storefront/internal/pkg/clock"
	"storefront/internal/pkg/errs"
	"storefront/internal/usecase/queries"
	"storefront/internal/usecase/shared"

	"github.com/google/uuid"
)

type stockKey struct {
	productID uuid.UUID
	colorID   uuid.UUID
	sizeID    uuid.UUID
}

type stockRow struct {
	name      string
	image     string
	unitPrice int64
	variantID uuid.UUID
	quantity  int32
	sold      int32
	active    bool
}

type promoState struct {
	id            uuid.UUID
	code          promotion.Code
	typ           promotion.Type
	discount      int64
	minOrderValue int64
	maxDiscount   int64
	startsAt      time.Time
	endsAt        time.Time
	usageLimit    int32
	usedCount     int32
	limitPerUser  int32
	usedBy        map[uuid.UUID]int32
	active        bool
	markers       map[uuid.UUID]bool // orderID -> redeemed
}

type orderRecord struct {
	order         *order.Order
	status        order.Status
	paymentStatus order.PaymentStatus
	stockReleased bool
	cancellation  *order.Cancellation
}

type outboxJob struct {
	kind  string
	topic string
}

// fakeWorld emulates the persistence layer with the same conditional
// update semantics the SQL repositories implement. Transactions are
// serialized and rolled back by snapshot, except the idempotency table,
// which is written pool-bound like in production.
type fakeWorld struct {
	mu   sync.Mutex
	txMu sync.Mutex

	clk         clock.Clock
	stock       map[stockKey]*stockRow
	promo       *promoState
	orders      map[uuid.UUID]*orderRecord
	idem        map[uuid.UUID]*shared.IdempotencyRecord
	cartRemoved [][]shared.StockLine
	outbox      []outboxJob
}

func newFakeWorld() *fakeWorld {
	return &fakeWorld{
		stock:  make(map[stockKey]*stockRow),
		orders: make(map[uuid.UUID]*orderRecord),
		idem:   make(map[uuid.UUID]*shared.IdempotencyRecord),
	}
}

// now follows the fixture clock so TTL comparisons stay inside the
// frozen test timeline instead of drifting with the wall clock.
func (w *fakeWorld) now() time.Time {
	if w.clk != nil {
		return w.clk.Now()
	}
	return time.Now()
}

func (w *fakeWorld) addStock(key stockKey, row stockRow) {
	w.mu.Lock()
	defer w.mu.Unlock()
	r := row
	if r.variantID == uuid.Nil {
		r.variantID = uuid.New()
	}
	w.stock[key] = &r
}

func (w *fakeWorld) soldCount(key stockKey) int32 {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.stock[key].sold
}

type worldSnapshot struct {
	stock       map[stockKey]*stockRow
	promo       *promoState
	orders      map[uuid.UUID]*orderRecord
	cartRemoved [][]shared.StockLine
	outbox      []outboxJob
}

func (w *fakeWorld) snapshot() worldSnapshot {
	w.mu.Lock()
	defer w.mu.Unlock()

	snap := worldSnapshot{
		stock:       make(map[stockKey]*stockRow, len(w.stock)),
		orders:      make(map[uuid.UUID]*orderRecord, len(w.orders)),
		cartRemoved: append([][]shared.StockLine(nil), w.cartRemoved...),
		outbox:      append([]outboxJob(nil), w.outbox...),
	}
	for k, v := range w.stock {
		row := *v
		snap.stock[k] = &row
	}
	for k, v := range w.orders {
		rec := *v
		snap.orders[k] = &rec
	}
	if w.promo != nil {
		p := *w.promo
		p.usedBy = make(map[uuid.UUID]int32, len(w.promo.usedBy))
		for k, v := range w.promo.usedBy {
			p.usedBy[k] = v
		}
		p.markers = make(map[uuid.UUID]bool, len(w.promo.markers))
		for k, v := range w.promo.markers {
			p.markers[k] = v
		}
		snap.promo = &p
	}
	return snap
}

func (w *fakeWorld) restore(snap worldSnapshot) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.stock = snap.stock
	w.promo = snap.promo
	w.orders = snap.orders
	w.cartRemoved = snap.cartRemoved
	w.outbox = snap.outbox
}

// --- unit of work ---

type fakeUoW struct {
	world *fakeWorld
}

func (u *fakeUoW) Within(ctx context.Context, fn func(ctx context.Context, tx shared.Tx) error) error {
	u.world.txMu.Lock()
	defer u.world.txMu.Unlock()

	snap := u.world.snapshot()
	if err := fn(ctx, &fakeTx{world: u.world}); err != nil {
		u.world.restore(snap)
		return err
	}
	return nil
}

func (u *fakeUoW) CommandReads() shared.CommandReads {
	return &fakeReads{world: u.world}
}

type fakeTx struct {
	world *fakeWorld
}

func (t *fakeTx) Stock() shared.StockRepository             { return &fakeStockRepo{world: t.world} }
func (t *fakeTx) Promotions() shared.PromotionRepository    { return &fakePromotionRepo{world: t.world} }
func (t *fakeTx) Orders() shared.OrderRepository            { return &fakeOrderRepo{world: t.world} }
func (t *fakeTx) Carts() shared.CartRepository              { return &fakeCartRepo{world: t.world} }
func (t *fakeTx) Idempotency() shared.IdempotencyRepository { return &fakeIdemRepo{world: t.world} }
func (t *fakeTx) Outbox() shared.OutboxRepository           { return &fakeOutboxRepo{world: t.world} }
func (t *fakeTx) Reads() shared.CommandReads                { return &fakeReads{world: t.world} }

// --- command reads ---

type fakeReads struct {
	world *fakeWorld
}

func (r *fakeReads) SaleItem(_ context.Context, productID, colorID, sizeID uuid.UUID) (*shared.SaleItemSnapshot, error) {
	r.world.mu.Lock()
	defer r.world.mu.Unlock()

	key := stockKey{productID: productID, colorID: colorID, sizeID: sizeID}
	row, ok := r.world.stock[key]
	if !ok || !row.active {
		return nil, infra.WrapRepoErr("sale item not found", errs.New("no such row"), infra.KindNotFound)
	}
	return &shared.SaleItemSnapshot{
		ProductID: productID,
		VariantID: row.variantID,
		ColorID:   colorID,
		SizeID:    sizeID,
		Name:      row.name,
		Image:     row.image,
		UnitPrice: row.unitPrice,
		Available: row.quantity - row.sold,
	}, nil
}

func (r *fakeReads) PromotionByCode(_ context.Context, code promotion.Code) (*promotion.Promotion, error) {
	r.world.mu.Lock()
	defer r.world.mu.Unlock()

	p := r.world.promo
	if p == nil || p.code != code {
		return nil, infra.WrapRepoErr("voucher not found", errs.New("no such code"), infra.KindNotFound)
	}
	return reconstructPromo(p), nil
}

func reconstructPromo(p *promoState) *promotion.Promotion {
	usedBy := make(map[uuid.UUID]int32, len(p.usedBy))
	for k, v := range p.usedBy {
		usedBy[k] = v
	}
	return promotion.ReconstructPromotion(
		p.id, p.code, p.typ, p.discount,
		p.minOrderValue, p.maxDiscount,
		p.startsAt, p.endsAt,
		p.usageLimit, p.usedCount, p.limitPerUser,
		usedBy, p.active,
	)
}

func (r *fakeReads) OrderByID(_ context.Context, orderID uuid.UUID) (*shared.OrderSnapshot, error) {
	r.world.mu.Lock()
	defer r.world.mu.Unlock()

	rec, ok := r.world.orders[orderID]
	if !ok {
		return nil, infra.WrapRepoErr("order not found", errs.New("no such order"), infra.KindNotFound)
	}

	snap := &shared.OrderSnapshot{
		ID:            rec.order.ID(),
		OrderCode:     rec.order.OrderCode(),
		UserID:        rec.order.UserID(),
		Status:        rec.status,
		PaymentStatus: rec.paymentStatus,
		PaymentType:   rec.order.PaymentType(),
		Subtotal:      rec.order.Subtotal(),
		Total:         rec.order.Total(),
		StockReleased: rec.stockReleased,
	}
	if v := rec.order.Voucher(); v != nil {
		code := v.Code
		snap.VoucherCode = &code
	}
	for _, item := range rec.order.Items() {
		snap.Items = append(snap.Items, shared.OrderLineSnapshot{
			ProductID: item.ProductID(),
			ColorID:   item.ColorID(),
			SizeID:    item.SizeID(),
			Quantity:  item.Quantity(),
		})
	}
	return snap, nil
}

// --- repositories ---

type fakeStockRepo struct {
	world *fakeWorld
}

func (r *fakeStockRepo) Reserve(_ context.Context, line shared.StockLine) error {
	r.world.mu.Lock()
	defer r.world.mu.Unlock()

	key := stockKey{productID: line.ProductID, colorID: line.ColorID, sizeID: line.SizeID}
	row, ok := r.world.stock[key]
	if !ok || !row.active || row.sold+line.Quantity > row.quantity {
		var available int32
		if ok && row.active {
			available = row.quantity - row.sold
		}
		return infra.WrapRepoErr("insufficient stock", &catalog.InsufficientStockError{
			ProductID: line.ProductID,
			ColorID:   line.ColorID,
			SizeID:    line.SizeID,
			Requested: line.Quantity,
			Available: available,
		}, infra.KindConflict)
	}
	row.sold += line.Quantity
	return nil
}

func (r *fakeStockRepo) Release(_ context.Context, line shared.StockLine) error {
	r.world.mu.Lock()
	defer r.world.mu.Unlock()

	key := stockKey{productID: line.ProductID, colorID: line.ColorID, sizeID: line.SizeID}
	if row, ok := r.world.stock[key]; ok {
		row.sold -= line.Quantity
		if row.sold < 0 {
			row.sold = 0
		}
	}
	return nil
}

type fakePromotionRepo struct {
	world *fakeWorld
}

func (r *fakePromotionRepo) Redeem(_ context.Context, req shared.RedeemRequest) (shared.RedeemOutcome, error) {
	r.world.mu.Lock()
	defer r.world.mu.Unlock()

	p := r.world.promo
	if p == nil || p.code != req.Code {
		return 0, infra.WrapRepoErr("voucher not found", errs.New("no such code"), infra.KindNotFound)
	}
	if p.markers[req.OrderID] {
		return shared.RedeemAlreadyApplied, nil
	}
	if err := reconstructPromo(p).CheckEligibility(req.Now, req.UserID, req.OrderTotal); err != nil {
		return 0, infra.WrapRepoErr("voucher not eligible", err, infra.KindConflict)
	}
	p.usedCount++
	if p.usedBy == nil {
		p.usedBy = make(map[uuid.UUID]int32)
	}
	p.usedBy[req.UserID]++
	if p.markers == nil {
		p.markers = make(map[uuid.UUID]bool)
	}
	p.markers[req.OrderID] = true
	return shared.RedeemApplied, nil
}

type fakeOrderRepo struct {
	world *fakeWorld
}

func (r *fakeOrderRepo) Create(_ context.Context, o *order.Order, _ time.Time) (uuid.UUID, error) {
	r.world.mu.Lock()
	defer r.world.mu.Unlock()

	r.world.orders[o.ID()] = &orderRecord{
		order:         o,
		status:        o.Status(),
		paymentStatus: o.PaymentStatus(),
	}
	return o.ID(), nil
}

func (r *fakeOrderRepo) AdvanceStatus(_ context.Context, id uuid.UUID, from, to order.Status) (bool, error) {
	r.world.mu.Lock()
	defer r.world.mu.Unlock()

	rec, ok := r.world.orders[id]
	if !ok || rec.status != from {
		return false, nil
	}
	rec.status = to
	return true, nil
}

func (r *fakeOrderRepo) SetPaymentStatus(_ context.Context, id uuid.UUID, status order.PaymentStatus) (bool, error) {
	r.world.mu.Lock()
	defer r.world.mu.Unlock()

	rec, ok := r.world.orders[id]
	if !ok || rec.paymentStatus == status {
		return false, nil
	}
	rec.paymentStatus = status
	return true, nil
}

func (r *fakeOrderRepo) ClaimCancellation(_ context.Context, id uuid.UUID, reasonCode, reasonText string, now time.Time) (bool, error) {
	r.world.mu.Lock()
	defer r.world.mu.Unlock()

	rec, ok := r.world.orders[id]
	if !ok || !order.CanCancelFrom(rec.status) || rec.stockReleased {
		return false, nil
	}
	rec.status = order.StatusCancelled
	rec.stockReleased = true
	rec.cancellation = &order.Cancellation{
		ReasonCode:  reasonCode,
		ReasonText:  reasonText,
		CancelledAt: now,
	}
	return true, nil
}

type fakeCartRepo struct {
	world *fakeWorld
}

func (r *fakeCartRepo) Put(context.Context, uuid.UUID, uuid.UUID, uuid.UUID, uuid.UUID, int32, int64) error {
	return nil
}

func (r *fakeCartRepo) Remove(context.Context, uuid.UUID, uuid.UUID, uuid.UUID, uuid.UUID) error {
	return nil
}

func (r *fakeCartRepo) RemoveLines(_ context.Context, _ uuid.UUID, lines []shared.StockLine) error {
	r.world.mu.Lock()
	defer r.world.mu.Unlock()
	r.world.cartRemoved = append(r.world.cartRemoved, lines)
	return nil
}

type fakeIdemRepo struct {
	world *fakeWorld
}

func (r *fakeIdemRepo) TryInsert(_ context.Context, key, userID uuid.UUID, _ string, requestHash string, expiresAt time.Time) (bool, error) {
	r.world.mu.Lock()
	defer r.world.mu.Unlock()

	if existing, ok := r.world.idem[key]; ok && existing.ExpiresAt.After(r.world.now()) {
		return false, nil
	}
	r.world.idem[key] = &shared.IdempotencyRecord{
		Key:         key,
		UserID:      userID,
		Status:      "processing",
		RequestHash: requestHash,
		ExpiresAt:   expiresAt,
	}
	return true, nil
}

func (r *fakeIdemRepo) Get(_ context.Context, key, _ uuid.UUID) (*shared.IdempotencyRecord, error) {
	r.world.mu.Lock()
	defer r.world.mu.Unlock()

	rec, ok := r.world.idem[key]
	if !ok {
		return nil, infra.WrapRepoErr("idempotency key not found", errs.New("no such key"), infra.KindNotFound)
	}
	copied := *rec
	return &copied, nil
}

func (r *fakeIdemRepo) MarkCompleted(_ context.Context, key, _ uuid.UUID, resultOrderID uuid.UUID) error {
	r.world.mu.Lock()
	defer r.world.mu.Unlock()

	if rec, ok := r.world.idem[key]; ok {
		rec.Status = "completed"
		id := resultOrderID
		rec.ResultOrderID = &id
	}
	return nil
}

type fakeOutboxRepo struct {
	world *fakeWorld
}

func (r *fakeOutboxRepo) CreateJob(_ context.Context, kind, topic string, _ []byte, _ time.Time) error {
	r.world.mu.Lock()
	defer r.world.mu.Unlock()
	r.world.outbox = append(r.world.outbox, outboxJob{kind: kind, topic: topic})
	return nil
}

// --- order queries over the world ---

type fakeOrderQueries struct {
	world *fakeWorld
}

func (q *fakeOrderQueries) GetByID(ctx context.Context, id, userID uuid.UUID) (*queries.OrderView, error) {
	view, err := q.GetByIDSystem(ctx, id)
	if err != nil {
		return nil, err
	}
	if view.UserID != userID {
		return nil, queries.ErrOrderNotFound
	}
	return view, nil
}

func (q *fakeOrderQueries) GetByIDSystem(_ context.Context, id uuid.UUID) (*queries.OrderView, error) {
	q.world.mu.Lock()
	defer q.world.mu.Unlock()

	rec, ok := q.world.orders[id]
	if !ok {
		return nil, queries.ErrOrderNotFound
	}

	o := rec.order
	view := &queries.OrderView{
		ID:            o.ID(),
		OrderCode:     o.OrderCode(),
		UserID:        o.UserID(),
		Address:       o.Address(),
		Note:          o.Note(),
		ShippingFee:   o.ShippingFee(),
		Subtotal:      o.Subtotal(),
		Discount:      o.Discount(),
		Total:         o.Total(),
		PaymentType:   o.PaymentType().String(),
		PaymentStatus: rec.paymentStatus.String(),
		Status:        rec.status.String(),
	}
	if v := o.Voucher(); v != nil {
		view.Voucher = &queries.VoucherView{
			Code:          v.Code,
			Type:          v.Type,
			Discount:      v.Discount,
			MaxDiscount:   v.MaxDiscount,
			MinOrderValue: v.MinOrderValue,
		}
	}
	if rec.cancellation != nil {
		view.Cancellation = &queries.CancellationView{
			ReasonCode:  rec.cancellation.ReasonCode,
			ReasonText:  rec.cancellation.ReasonText,
			CancelledAt: rec.cancellation.CancelledAt,
		}
	}
	for _, item := range o.Items() {
		view.Items = append(view.Items, queries.OrderItemView{
			ProductID: item.ProductID(),
			ColorID:   item.ColorID(),
			SizeID:    item.SizeID(),
			Name:      item.Name(),
			Image:     item.Image(),
			Price:     item.Price(),
			Quantity:  item.Quantity(),
		})
	}
	return view, nil
}

func (q *fakeOrderQueries) ListByUser(_ context.Context, userID uuid.UUID) ([]*queries.OrderListItem, error) {
	q.world.mu.Lock()
	defer q.world.mu.Unlock()

	var list []*queries.OrderListItem
	for _, rec := range q.world.orders {
		if rec.order.UserID() != userID {
			continue
		}
		var count int32
		for _, item := range rec.order.Items() {
			count += item.Quantity()
		}
		list = append(list, &queries.OrderListItem{
			ID:            rec.order.ID(),
			OrderCode:     rec.order.OrderCode(),
			Status:        rec.status.String(),
			PaymentStatus: rec.paymentStatus.String(),
			Total:         rec.order.Total(),
			ItemCount:     count,
		})
	}
	return list, nil
}

// --- publisher ---

type fakePublisher struct {
	mu     sync.Mutex
	topics []string
}

func (p *fakePublisher) Publish(_ context.Context, topic string, _ []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.topics = append(p.topics, topic)
	return nil
}

func (p *fakePublisher) published() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.topics...)
}
