package queries

import (
	"context"

	"storefront/internal/infra"

	"github.com/google/uuid"
)

type StockQueries interface {
	// Availability returns quantity - sold for an active size row.
	// Inactive or unknown product/variant/size resolves to zero, not an
	// error: an unsellable size and a sold-out size look the same to
	// the storefront.
	Availability(ctx context.Context, productID, colorID, sizeID uuid.UUID) (int32, error)
}

type stockQueriesImpl struct {
	catalog CatalogReadStore
}

func NewStockQueries(catalog CatalogReadStore) StockQueries {
	return &stockQueriesImpl{catalog: catalog}
}

func (q *stockQueriesImpl) Availability(ctx context.Context, productID, colorID, sizeID uuid.UUID) (int32, error) {
	item, err := q.catalog.SaleItem(ctx, productID, colorID, sizeID)
	if err != nil {
		if infra.IsKind(err, infra.KindNotFound) {
			return 0, nil
		}
		return 0, err
	}
	if item.Available < 0 {
		return 0, nil
	}
	return item.Available, nil
}
