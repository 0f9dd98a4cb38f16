package commands

import (
	"context"

	"storefront/internal/domain/cart"
	"storefront/internal/infra"
	"storefront/internal/pkg/errs"
	"storefront/internal/usecase/shared"

	"github.com/google/uuid"
)

type PutCartLineCommand struct {
	ProductID uuid.UUID
	ColorID   uuid.UUID
	SizeID    uuid.UUID
	Quantity  int32
}

type CartCommands interface {
	// PutLine upserts a cart line, capturing the current selling price
	// as an advisory snapshot. Stock is not reserved here.
	PutLine(ctx context.Context, userID uuid.UUID, cmd PutCartLineCommand) error
	RemoveLine(ctx context.Context, userID, productID, colorID, sizeID uuid.UUID) error
}

type cartUseCaseImpl struct {
	carts shared.CartRepository
	uow   shared.UnitOfWork
}

func NewCartUseCase(carts shared.CartRepository, uow shared.UnitOfWork) CartCommands {
	return &cartUseCaseImpl{
		carts: carts,
		uow:   uow,
	}
}

func (u *cartUseCaseImpl) PutLine(ctx context.Context, userID uuid.UUID, cmd PutCartLineCommand) error {
	if cmd.Quantity <= 0 {
		return errs.Mark(cart.ErrInvalidQuantity, ErrInvalidOrder)
	}

	sale, err := u.uow.CommandReads().SaleItem(ctx, cmd.ProductID, cmd.ColorID, cmd.SizeID)
	if err != nil {
		if infra.IsKind(err, infra.KindNotFound) {
			return errs.Mark(err, ErrItemUnavailable)
		}
		return errs.Mark(err, ErrDatabaseOperationFailed)
	}

	if err := u.carts.Put(ctx, userID, cmd.ProductID, cmd.ColorID, cmd.SizeID, cmd.Quantity, sale.UnitPrice); err != nil {
		return errs.Mark(err, ErrDatabaseOperationFailed)
	}
	return nil
}

func (u *cartUseCaseImpl) RemoveLine(ctx context.Context, userID, productID, colorID, sizeID uuid.UUID) error {
	if err := u.carts.Remove(ctx, userID, productID, colorID, sizeID); err != nil {
		return errs.Mark(err, ErrDatabaseOperationFailed)
	}
	return nil
}
