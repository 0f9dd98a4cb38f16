//go:build e2e

package dbtest

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/require"
)

// Truncation order follows foreign keys child-first.
var allTables = []string{
	"outbox_jobs",
	"idempotency_keys",
	"cart_items",
	"carts",
	"order_items",
	"orders",
	"promotion_redemptions",
	"promotions",
	"size_stocks",
	"product_variants",
	"products",
	"users",
}

// ResetDB wipes every table between subtests.
func ResetDB(pool *pgxpool.Pool) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	for _, table := range allTables {
		if _, err := pool.Exec(ctx, "TRUNCATE TABLE "+table+" CASCADE"); err != nil {
			return err
		}
	}
	return nil
}

func CreateTestUser(t *testing.T, pool *pgxpool.Pool, email, role string) uuid.UUID {
	t.Helper()

	var id uuid.UUID
	err := pool.QueryRow(context.Background(),
		`INSERT INTO users (email, password_hash, role) VALUES ($1, 'x', $2) RETURNING id`,
		email, role,
	).Scan(&id)
	require.NoError(t, err, "failed to insert test user")
	return id
}

// SaleItemKey identifies one sellable (product, color, size) row.
type SaleItemKey struct {
	ProductID uuid.UUID
	ColorID   uuid.UUID
	SizeID    uuid.UUID
}

// CreateTestSaleItem inserts an active product with one variant and one
// size row and returns the key checkout requests address it by.
func CreateTestSaleItem(t *testing.T, pool *pgxpool.Pool, name string, price, discount int64, quantity int32) SaleItemKey {
	t.Helper()
	ctx := context.Background()

	key := SaleItemKey{ColorID: uuid.New(), SizeID: uuid.New()}

	err := pool.QueryRow(ctx,
		`INSERT INTO products (name, price, discount) VALUES ($1, $2, $3) RETURNING id`,
		name, price, discount,
	).Scan(&key.ProductID)
	require.NoError(t, err, "failed to insert test product")

	_, err = pool.Exec(ctx,
		`INSERT INTO product_variants (product_id, color_id, image) VALUES ($1, $2, $3)`,
		key.ProductID, key.ColorID, name+".jpg",
	)
	require.NoError(t, err, "failed to insert test variant")

	_, err = pool.Exec(ctx,
		`INSERT INTO size_stocks (product_id, color_id, size_id, quantity) VALUES ($1, $2, $3, $4)`,
		key.ProductID, key.ColorID, key.SizeID, quantity,
	)
	require.NoError(t, err, "failed to insert test size stock")
	return key
}

type PromotionParams struct {
	Code          string
	Type          string
	Discount      int64
	MinOrderValue int64
	MaxDiscount   int64
	UsageLimit    int32
	LimitPerUser  int32
}

func CreateTestPromotion(t *testing.T, pool *pgxpool.Pool, p PromotionParams) uuid.UUID {
	t.Helper()

	now := time.Now()
	var id uuid.UUID
	err := pool.QueryRow(context.Background(),
		`INSERT INTO promotions (code, type, discount, min_order_value, max_discount, starts_at, ends_at, usage_limit, limit_per_user)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		 RETURNING id`,
		p.Code, p.Type, p.Discount, p.MinOrderValue, p.MaxDiscount,
		now.Add(-24*time.Hour), now.Add(24*time.Hour), p.UsageLimit, p.LimitPerUser,
	).Scan(&id)
	require.NoError(t, err, "failed to insert test promotion")
	return id
}

// DeactivateProduct flips a product off without touching its variant or
// size rows.
func DeactivateProduct(t *testing.T, pool *pgxpool.Pool, productID uuid.UUID) {
	t.Helper()

	_, err := pool.Exec(context.Background(),
		`UPDATE products SET is_active = FALSE WHERE id = $1`, productID,
	)
	require.NoError(t, err, "failed to deactivate test product")
}

// SoldCount reads the live sold counter for a size row.
func SoldCount(t *testing.T, pool *pgxpool.Pool, key SaleItemKey) int32 {
	t.Helper()

	var sold int32
	err := pool.QueryRow(context.Background(),
		`SELECT sold FROM size_stocks WHERE product_id = $1 AND color_id = $2 AND size_id = $3`,
		key.ProductID, key.ColorID, key.SizeID,
	).Scan(&sold)
	require.NoError(t, err, "failed to read sold counter")
	return sold
}

// UsedCount reads the global usage counter for a voucher code.
func UsedCount(t *testing.T, pool *pgxpool.Pool, code string) int32 {
	t.Helper()

	var used int32
	err := pool.QueryRow(context.Background(),
		`SELECT used_count FROM promotions WHERE code = $1`, code,
	).Scan(&used)
	require.NoError(t, err, "failed to read used_count")
	return used
}

// RedemptionCount counts marker rows for a voucher.
func RedemptionCount(t *testing.T, pool *pgxpool.Pool, promotionID uuid.UUID) int {
	t.Helper()

	var count int
	err := pool.QueryRow(context.Background(),
		`SELECT COUNT(*) FROM promotion_redemptions WHERE promotion_id = $1`, promotionID,
	).Scan(&count)
	require.NoError(t, err, "failed to count redemptions")
	return count
}
