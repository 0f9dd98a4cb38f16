package readstore

import (
	"context"

	"storefront/internal/domain/catalog"
	"storefront/internal/infra"
	"storefront/internal/infra/db"
	"storefront/internal/pkg/pgconv"
	"storefront/internal/usecase/queries"
	"storefront/internal/usecase/shared"

	"github.com/google/uuid"
)

type CatalogReadStore struct {
	db db.DBTX
}

func NewCatalogReadStore(dbtx db.DBTX) *CatalogReadStore {
	return &CatalogReadStore{db: dbtx}
}

const saleItemQuery = `
SELECT p.id,
       p.name,
       p.price,
       p.discount,
       p.is_active,
       pv.id,
       pv.image,
       pv.is_active,
       ss.quantity,
       ss.sold,
       ss.is_active
FROM size_stocks ss
JOIN product_variants pv ON pv.product_id = ss.product_id AND pv.color_id = ss.color_id
JOIN products p ON p.id = ss.product_id
WHERE ss.product_id = $1 AND ss.color_id = $2 AND ss.size_id = $3
`

// SaleItem resolves a sellable (product, color, size) through the catalog
// aggregate, so selling price, availability and active-state rules live in
// one place. An inactive row at any level resolves to not-found, the same
// as a missing one.
func (s *CatalogReadStore) SaleItem(ctx context.Context, productID, colorID, sizeID uuid.UUID) (*shared.SaleItemSnapshot, error) {
	var (
		scannedProductID, variantID uuid.UUID
		name, image                 string
		price, discount             int64
		quantity, sold              int32
		productActive               bool
		variantActive, sizeActive   bool
	)
	err := s.db.QueryRow(ctx, saleItemQuery, productID, colorID, sizeID).Scan(
		&scannedProductID, &name, &price, &discount, &productActive,
		&variantID, &image, &variantActive,
		&quantity, &sold, &sizeActive,
	)
	if err != nil {
		if pgconv.IsNoRows(err) {
			return nil, infra.WrapRepoErr("sale item not found", err, infra.KindNotFound)
		}
		return nil, infra.WrapRepoErr("failed to read sale item", err)
	}

	size := catalog.ReconstructSizeStock(sizeID, quantity, sold, sizeActive)
	variant := catalog.ReconstructVariant(variantID, colorID, image, variantActive, []catalog.SizeStock{size})
	product, err := catalog.ReconstructProduct(scannedProductID, name, price, discount, productActive, []catalog.Variant{variant})
	if err != nil {
		return nil, infra.WrapRepoErr("catalog row violates product invariants", err)
	}

	stock, ok := product.FindSize(colorID, sizeID)
	if !ok {
		return nil, infra.WrapRepoErr("sale item not found", catalog.ErrNotSellable, infra.KindNotFound)
	}

	return &shared.SaleItemSnapshot{
		ProductID: product.ID(),
		VariantID: variant.ID(),
		ColorID:   colorID,
		SizeID:    sizeID,
		Name:      product.Name(),
		Image:     variant.Image(),
		UnitPrice: product.SellingPrice(),
		Available: stock.Available(),
	}, nil
}

var _ queries.CatalogReadStore = (*CatalogReadStore)(nil)
