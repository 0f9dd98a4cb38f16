package commands

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"storefront/internal/domain/order"
	"storefront/internal/domain/promotion"
	"storefront/internal/infra"
	"storefront/internal/pkg/clock"
	"storefront/internal/pkg/errs"
	"storefront/internal/usecase/shared"

	"github.com/google/uuid"
)

type CancelOrderCommand struct {
	OrderID    uuid.UUID
	ActorID    uuid.UUID
	IsAdmin    bool
	ReasonCode string
	ReasonText string
}

type OrderCommands interface {
	// Advance moves the order exactly one step forward along the chain
	// pending -> confirmed -> processing -> shipping -> completed.
	// A plain status write: stock and promotion effects were committed
	// at creation/payment time.
	Advance(ctx context.Context, orderID uuid.UUID) (order.Status, error)
	// MarkPaid records the payment status reported by the gateway. On
	// the first transition to paid it commits the voucher redemption
	// for this order, exactly once.
	MarkPaid(ctx context.Context, orderID uuid.UUID, status order.PaymentStatus) error
	// Cancel flips a still-cancellable order to cancelled and returns
	// its reserved stock to the pool, at most once per order.
	// Re-cancelling is a no-op success.
	Cancel(ctx context.Context, cmd CancelOrderCommand) error
}

type orderUseCaseImpl struct {
	uow       shared.UnitOfWork
	publisher EventPublisher
	clock     clock.Clock
}

func NewOrderUseCase(uow shared.UnitOfWork, publisher EventPublisher, clk clock.Clock) OrderCommands {
	return &orderUseCaseImpl{
		uow:       uow,
		publisher: publisher,
		clock:     clk,
	}
}

func (u *orderUseCaseImpl) Advance(ctx context.Context, orderID uuid.UUID) (order.Status, error) {
	snap, err := u.findOrder(ctx, orderID)
	if err != nil {
		return "", err
	}

	next, err := order.NextStatus(snap.Status)
	if err != nil {
		return "", errs.Mark(errs.New("cannot advance from status "+snap.Status.String()), ErrInvalidTransition)
	}

	err = u.uow.Within(ctx, func(ctx context.Context, tx shared.Tx) error {
		moved, advErr := tx.Orders().AdvanceStatus(ctx, orderID, snap.Status, next)
		if advErr != nil {
			return errs.Mark(advErr, ErrDatabaseOperationFailed)
		}
		if !moved {
			// Lost the race with another transition; the caller should
			// refresh and retry against the current status.
			return ErrInvalidTransition
		}
		return u.createOutboxJob(ctx, tx, TopicOrderStatusChanged, orderID)
	})
	if err != nil {
		return "", err
	}

	u.publishEvent(ctx, TopicOrderStatusChanged, map[string]any{
		"order_id": orderID,
		"from":     snap.Status,
		"to":       next,
	})
	return next, nil
}

func (u *orderUseCaseImpl) MarkPaid(ctx context.Context, orderID uuid.UUID, status order.PaymentStatus) error {
	if !status.IsValid() {
		return errs.Mark(errs.New("unknown payment status"), ErrInvalidOrder)
	}

	snap, err := u.findOrder(ctx, orderID)
	if err != nil {
		return err
	}

	now := u.clock.Now()
	var transitioned bool
	err = u.uow.Within(ctx, func(ctx context.Context, tx shared.Tx) error {
		var payErr error
		transitioned, payErr = tx.Orders().SetPaymentStatus(ctx, orderID, status)
		if payErr != nil {
			return errs.Mark(payErr, ErrDatabaseOperationFailed)
		}
		if !transitioned {
			// Gateway retry reporting the same status; everything below
			// already ran on the callback that won the transition.
			return nil
		}

		if status == order.PaymentPaid && snap.VoucherCode != nil {
			if redeemErr := u.redeemVoucher(ctx, tx, snap, now); redeemErr != nil {
				return redeemErr
			}
		}

		if status == order.PaymentPaid {
			return u.createOutboxJob(ctx, tx, TopicOrderPaid, orderID)
		}
		return nil
	})
	if err != nil {
		return err
	}

	if transitioned && status == order.PaymentPaid {
		u.publishEvent(ctx, TopicOrderPaid, map[string]any{
			"order_id":   orderID,
			"order_code": snap.OrderCode,
		})
	}
	return nil
}

// redeemVoucher commits voucher usage after payment. The marker keyed
// (orderID, code) makes retried callbacks a no-op. An ineligibility at
// this point (limits filled between checkout and payment) is logged
// rather than failing the callback: the payment record must survive.
// The guards re-check against the pre-discount subtotal, the same
// figure checkout validated; the discounted total would re-fail the
// minimum for every voucher that earned its own discount.
func (u *orderUseCaseImpl) redeemVoucher(ctx context.Context, tx shared.Tx, snap *shared.OrderSnapshot, now time.Time) error {
	code, err := promotion.NewCode(*snap.VoucherCode)
	if err != nil {
		slog.Warn("order carries a malformed voucher code", "order_id", snap.ID, "error", err.Error())
		return nil
	}

	_, err = tx.Promotions().Redeem(ctx, shared.RedeemRequest{
		Code:       code,
		UserID:     snap.UserID,
		OrderID:    snap.ID,
		OrderTotal: snap.Subtotal,
		Now:        now,
	})
	if err != nil {
		if isIneligibility(err) {
			slog.Warn("voucher no longer eligible at payment time; keeping payment record",
				"order_id", snap.ID,
				"code", code.String(),
				"reason", promotion.ReasonOf(err))
			return nil
		}
		return errs.Mark(err, ErrDatabaseOperationFailed)
	}
	return nil
}

func isIneligibility(err error) bool {
	for _, sentinel := range []error{
		promotion.ErrInactive,
		promotion.ErrExpired,
		promotion.ErrBelowMinimum,
		promotion.ErrGlobalLimitReached,
		promotion.ErrUserLimitReached,
	} {
		if errors.Is(err, sentinel) {
			return true
		}
	}
	return false
}

func (u *orderUseCaseImpl) Cancel(ctx context.Context, cmd CancelOrderCommand) error {
	snap, err := u.findOrder(ctx, cmd.OrderID)
	if err != nil {
		return err
	}
	if !cmd.IsAdmin && snap.UserID != cmd.ActorID {
		// Hide other users' orders rather than confirming they exist.
		return ErrOrderNotFound
	}

	now := u.clock.Now()
	var claimed bool
	err = u.uow.Within(ctx, func(ctx context.Context, tx shared.Tx) error {
		var claimErr error
		claimed, claimErr = tx.Orders().ClaimCancellation(ctx, cmd.OrderID, cmd.ReasonCode, cmd.ReasonText, now)
		if claimErr != nil {
			return errs.Mark(claimErr, ErrDatabaseOperationFailed)
		}
		if !claimed {
			current, readErr := tx.Reads().OrderByID(ctx, cmd.OrderID)
			if readErr != nil {
				return errs.Mark(readErr, ErrDatabaseOperationFailed)
			}
			if current.Status == order.StatusCancelled {
				// Already cancelled; retries succeed without touching stock.
				return nil
			}
			return errs.Mark(errs.New("cannot cancel from status "+current.Status.String()), ErrInvalidTransition)
		}

		// The claim above flipped stock_released, so this release runs
		// at most once per order even under concurrent cancels.
		for _, item := range snap.Items {
			line := shared.StockLine{
				ProductID: item.ProductID,
				ColorID:   item.ColorID,
				SizeID:    item.SizeID,
				Quantity:  item.Quantity,
			}
			if relErr := tx.Stock().Release(ctx, line); relErr != nil {
				return errs.Mark(relErr, ErrDatabaseOperationFailed)
			}
		}

		return u.createOutboxJob(ctx, tx, TopicOrderCancelled, cmd.OrderID)
	})
	if err != nil {
		return err
	}

	if claimed {
		u.publishEvent(ctx, TopicOrderCancelled, map[string]any{
			"order_id":    cmd.OrderID,
			"order_code":  snap.OrderCode,
			"reason_code": cmd.ReasonCode,
		})
	}
	return nil
}

func (u *orderUseCaseImpl) findOrder(ctx context.Context, orderID uuid.UUID) (*shared.OrderSnapshot, error) {
	snap, err := u.uow.CommandReads().OrderByID(ctx, orderID)
	if err != nil {
		if infra.IsKind(err, infra.KindNotFound) {
			return nil, errs.Mark(err, ErrOrderNotFound)
		}
		return nil, errs.Mark(err, ErrDatabaseOperationFailed)
	}
	return snap, nil
}

func (u *orderUseCaseImpl) createOutboxJob(ctx context.Context, tx shared.Tx, topic string, orderID uuid.UUID) error {
	payload, err := json.Marshal(map[string]any{
		"order_id": orderID,
		"type":     topic,
	})
	if err != nil {
		return err
	}
	if outboxErr := tx.Outbox().CreateJob(ctx, "event", topic, payload, u.clock.Now()); outboxErr != nil {
		return errs.Mark(outboxErr, ErrDatabaseOperationFailed)
	}
	return nil
}

func (u *orderUseCaseImpl) publishEvent(ctx context.Context, topic string, body map[string]any) {
	payload, err := json.Marshal(body)
	if err != nil {
		slog.Warn("failed to marshal order event", "topic", topic, "error", err.Error())
		return
	}
	if err := u.publisher.Publish(ctx, topic, payload); err != nil {
		slog.Warn("failed to publish order event", "topic", topic, "error", err.Error())
	}
}
