package repository

import (
	"context"

	"storefront/internal/infra"
	"storefront/internal/infra/db"
	"storefront/internal/pkg/pgconv"
	"storefront/internal/usecase/shared"

	"github.com/google/uuid"
)

type CartRepository struct {
	db db.DBTX
}

func NewCartRepository(dbtx db.DBTX) *CartRepository {
	return &CartRepository{db: dbtx}
}

const upsertCartQuery = `
INSERT INTO carts (id, user_id, created_at, updated_at)
VALUES ($1, $2, now(), now())
ON CONFLICT (user_id) DO UPDATE SET updated_at = now()
RETURNING id
`

const upsertCartLineQuery = `
INSERT INTO cart_items (
    id, cart_id, product_id, color_id, size_id, quantity, price_snapshot, created_at, updated_at
) VALUES ($1, $2, $3, $4, $5, $6, $7, now(), now())
ON CONFLICT (cart_id, product_id, color_id, size_id)
DO UPDATE SET quantity = EXCLUDED.quantity,
              price_snapshot = EXCLUDED.price_snapshot,
              updated_at = now()
`

func (r *CartRepository) Put(ctx context.Context, userID, productID, colorID, sizeID uuid.UUID, quantity int32, priceSnapshot int64) error {
	cartID, err := r.ensureCart(ctx, userID)
	if err != nil {
		return err
	}

	_, err = r.db.Exec(ctx, upsertCartLineQuery,
		uuid.New(), cartID, productID, colorID, sizeID, quantity, priceSnapshot)
	if err != nil {
		if pgconv.IsForeignKeyViolation(err) {
			return infra.WrapRepoErr("cart line references a missing row", err, infra.KindForeignKeyViolated)
		}
		return infra.WrapRepoErr("failed to upsert cart line", err)
	}
	return nil
}

const removeCartLineQuery = `
DELETE FROM cart_items ci
USING carts c
WHERE ci.cart_id = c.id AND c.user_id = $1
  AND ci.product_id = $2 AND ci.color_id = $3 AND ci.size_id = $4
`

func (r *CartRepository) Remove(ctx context.Context, userID, productID, colorID, sizeID uuid.UUID) error {
	// Removing an absent line succeeds; the cart ends in the asked state.
	_, err := r.db.Exec(ctx, removeCartLineQuery, userID, productID, colorID, sizeID)
	if err != nil {
		return infra.WrapRepoErr("failed to remove cart line", err)
	}
	return nil
}

func (r *CartRepository) RemoveLines(ctx context.Context, userID uuid.UUID, lines []shared.StockLine) error {
	for _, line := range lines {
		if err := r.Remove(ctx, userID, line.ProductID, line.ColorID, line.SizeID); err != nil {
			return err
		}
	}
	return nil
}

func (r *CartRepository) ensureCart(ctx context.Context, userID uuid.UUID) (uuid.UUID, error) {
	var cartID uuid.UUID
	err := r.db.QueryRow(ctx, upsertCartQuery, uuid.New(), userID).Scan(&cartID)
	if err != nil {
		return uuid.Nil, infra.WrapRepoErr("failed to upsert cart", err)
	}
	return cartID, nil
}

var _ shared.CartRepository = (*CartRepository)(nil)
