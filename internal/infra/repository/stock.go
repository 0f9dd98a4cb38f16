package repository

import (
	"context"

	"storefront/internal/domain/catalog"
	"storefront/internal/infra"
	"storefront/internal/infra/db"
	"storefront/internal/pkg/pgconv"
	"storefront/internal/usecase/shared"
)

// StockRepository mutates sold counters with single guarded UPDATEs.
// The guard and the increment live in one statement, so concurrent
// reservations against the same size row serialize on the row lock and
// the loser re-evaluates the guard against the committed value.
type StockRepository struct {
	db db.DBTX
}

func NewStockRepository(dbtx db.DBTX) *StockRepository {
	return &StockRepository{db: dbtx}
}

const reserveStockQuery = `
UPDATE size_stocks ss
SET sold = ss.sold + $4, updated_at = now()
WHERE ss.product_id = $1
  AND ss.color_id = $2
  AND ss.size_id = $3
  AND ss.is_active
  AND ss.sold + $4 <= ss.quantity
  AND EXISTS (
      SELECT 1 FROM product_variants pv
      WHERE pv.product_id = ss.product_id AND pv.color_id = ss.color_id AND pv.is_active
  )
  AND EXISTS (
      SELECT 1 FROM products p
      WHERE p.id = ss.product_id AND p.is_active
  )
`

const stockAvailabilityQuery = `
SELECT GREATEST(ss.quantity - ss.sold, 0)
FROM size_stocks ss
JOIN product_variants pv ON pv.product_id = ss.product_id AND pv.color_id = ss.color_id
JOIN products p ON p.id = ss.product_id
WHERE ss.product_id = $1 AND ss.color_id = $2 AND ss.size_id = $3
  AND ss.is_active AND pv.is_active AND p.is_active
`

func (r *StockRepository) Reserve(ctx context.Context, line shared.StockLine) error {
	tag, err := r.db.Exec(ctx, reserveStockQuery,
		line.ProductID, line.ColorID, line.SizeID, line.Quantity)
	if err != nil {
		return infra.WrapRepoErr("failed to reserve stock", err)
	}
	if tag.RowsAffected() > 0 {
		return nil
	}

	// The guard failed. Report the availability the caller lost to, or
	// zero when the size row is missing or inactive.
	var available int32
	err = r.db.QueryRow(ctx, stockAvailabilityQuery,
		line.ProductID, line.ColorID, line.SizeID).Scan(&available)
	if err != nil && !pgconv.IsNoRows(err) {
		return infra.WrapRepoErr("failed to read stock availability", err)
	}

	return infra.WrapRepoErr("insufficient stock", &catalog.InsufficientStockError{
		ProductID: line.ProductID,
		ColorID:   line.ColorID,
		SizeID:    line.SizeID,
		Requested: line.Quantity,
		Available: available,
	}, infra.KindConflict)
}

const releaseStockQuery = `
UPDATE size_stocks
SET sold = GREATEST(sold - $4, 0), updated_at = now()
WHERE product_id = $1 AND color_id = $2 AND size_id = $3
`

func (r *StockRepository) Release(ctx context.Context, line shared.StockLine) error {
	// Best effort: a vanished size row means there is nothing to return
	// the stock to, not a failed cancellation.
	_, err := r.db.Exec(ctx, releaseStockQuery,
		line.ProductID, line.ColorID, line.SizeID, line.Quantity)
	if err != nil {
		return infra.WrapRepoErr("failed to release stock", err)
	}
	return nil
}

var _ shared.StockRepository = (*StockRepository)(nil)
