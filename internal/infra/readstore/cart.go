package readstore

import (
	"context"

	"storefront/internal/domain/cart"
	"storefront/internal/infra"
	"storefront/internal/infra/db"
	"storefront/internal/usecase/queries"

	"github.com/google/uuid"
)

type CartReadStore struct {
	db db.DBTX
}

func NewCartReadStore(dbtx db.DBTX) *CartReadStore {
	return &CartReadStore{db: dbtx}
}

const cartLinesQuery = `
SELECT ci.product_id, ci.color_id, ci.size_id, ci.quantity, ci.price_snapshot
FROM cart_items ci
JOIN carts c ON c.id = ci.cart_id
WHERE c.user_id = $1
ORDER BY ci.created_at
`

func (s *CartReadStore) Lines(ctx context.Context, userID uuid.UUID) ([]cart.Line, error) {
	rows, err := s.db.Query(ctx, cartLinesQuery, userID)
	if err != nil {
		return nil, infra.WrapRepoErr("failed to read cart lines", err)
	}
	defer rows.Close()

	var lines []cart.Line
	for rows.Next() {
		var line cart.Line
		if err := rows.Scan(&line.ProductID, &line.ColorID, &line.SizeID, &line.Quantity, &line.PriceSnapshot); err != nil {
			return nil, infra.WrapRepoErr("failed to scan cart line", err)
		}
		lines = append(lines, line)
	}
	if err := rows.Err(); err != nil {
		return nil, infra.WrapRepoErr("failed to iterate cart lines", err)
	}
	return lines, nil
}

var _ queries.CartReadStore = (*CartReadStore)(nil)
