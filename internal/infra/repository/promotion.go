package repository

import (
	"context"
	"time"

	"storefront/internal/domain/promotion"
	"storefront/internal/infra"
	"storefront/internal/infra/db"
	"storefront/internal/pkg/pgconv"
	"storefront/internal/usecase/shared"

	"github.com/google/uuid"
)

// PromotionRepository owns the usage counters. Redeem runs inside the
// caller's transaction: the (promotion_id, order_id) marker makes it
// idempotent per order, and the guarded UPDATE re-checks every
// eligibility condition against committed state, so the ceilings hold
// under concurrent redemptions.
type PromotionRepository struct {
	db db.DBTX
}

func NewPromotionRepository(dbtx db.DBTX) *PromotionRepository {
	return &PromotionRepository{db: dbtx}
}

const promotionIDByCodeQuery = `
SELECT id FROM promotions WHERE code = $1
`

const insertRedemptionMarkerQuery = `
INSERT INTO promotion_redemptions (promotion_id, order_id, user_id, redeemed_at)
VALUES ($1, $2, $3, $4)
ON CONFLICT (promotion_id, order_id) DO NOTHING
`

const deleteRedemptionMarkerQuery = `
DELETE FROM promotion_redemptions WHERE promotion_id = $1 AND order_id = $2
`

const redeemPromotionQuery = `
UPDATE promotions
SET used_count = used_count + 1,
    used_by = jsonb_set(
        COALESCE(used_by, '{}'::jsonb),
        ARRAY[$2],
        to_jsonb(COALESCE((used_by ->> $2)::int, 0) + 1)
    ),
    updated_at = now()
WHERE id = $1
  AND is_active
  AND $3::timestamptz >= starts_at
  AND $3::timestamptz <= ends_at
  AND $4 >= min_order_value
  AND (usage_limit = 0 OR used_count < usage_limit)
  AND (limit_per_user = 0 OR COALESCE((used_by ->> $2)::int, 0) < limit_per_user)
`

func (r *PromotionRepository) Redeem(ctx context.Context, req shared.RedeemRequest) (shared.RedeemOutcome, error) {
	var promoID uuid.UUID
	err := r.db.QueryRow(ctx, promotionIDByCodeQuery, req.Code.String()).Scan(&promoID)
	if err != nil {
		if pgconv.IsNoRows(err) {
			return 0, infra.WrapRepoErr("voucher not found", err, infra.KindNotFound)
		}
		return 0, infra.WrapRepoErr("failed to look up voucher", err)
	}

	tag, err := r.db.Exec(ctx, insertRedemptionMarkerQuery,
		promoID, req.OrderID, req.UserID, req.Now)
	if err != nil {
		return 0, infra.WrapRepoErr("failed to record redemption marker", err)
	}
	if tag.RowsAffected() == 0 {
		// This order already redeemed this voucher; counters stand.
		return shared.RedeemAlreadyApplied, nil
	}

	tag, err = r.db.Exec(ctx, redeemPromotionQuery,
		promoID, req.UserID.String(), req.Now, req.OrderTotal)
	if err != nil {
		return 0, infra.WrapRepoErr("failed to redeem voucher", err)
	}
	if tag.RowsAffected() > 0 {
		return shared.RedeemApplied, nil
	}

	// The guards rejected the redemption. Drop the marker so a caller
	// that tolerates the failure does not commit a phantom redemption,
	// then classify against the committed row.
	if _, delErr := r.db.Exec(ctx, deleteRedemptionMarkerQuery, promoID, req.OrderID); delErr != nil {
		return 0, infra.WrapRepoErr("failed to roll back redemption marker", delErr)
	}

	return 0, r.classifyRejection(ctx, promoID, req)
}

func (r *PromotionRepository) classifyRejection(ctx context.Context, promoID uuid.UUID, req shared.RedeemRequest) error {
	promo, err := r.findByID(ctx, promoID)
	if err != nil {
		return err
	}
	if eligErr := promo.CheckEligibility(req.Now, req.UserID, req.OrderTotal); eligErr != nil {
		return infra.WrapRepoErr("voucher not eligible", eligErr, infra.KindConflict)
	}
	// The guard failed but the re-read passes: a concurrent redemption
	// landed between the two statements. Treat as a limit race.
	return infra.WrapRepoErr("voucher redemption lost a concurrent race",
		promotion.ErrGlobalLimitReached, infra.KindConflict)
}

const promotionByIDQuery = `
SELECT id, code, type, discount, min_order_value, max_discount,
       starts_at, ends_at, usage_limit, used_count, limit_per_user,
       COALESCE(used_by, '{}'::jsonb), is_active
FROM promotions
WHERE id = $1
`

func (r *PromotionRepository) findByID(ctx context.Context, id uuid.UUID) (*promotion.Promotion, error) {
	row := r.db.QueryRow(ctx, promotionByIDQuery, id)
	promo, err := scanPromotion(row)
	if err != nil {
		if pgconv.IsNoRows(err) {
			return nil, infra.WrapRepoErr("voucher not found", err, infra.KindNotFound)
		}
		return nil, infra.WrapRepoErr("failed to read voucher", err)
	}
	return promo, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPromotion(row rowScanner) (*promotion.Promotion, error) {
	var (
		id                       uuid.UUID
		codeRaw, typRaw          string
		discount, minVal, maxVal int64
		startsAt, endsAt         time.Time
		usageLimit, usedCount    int32
		limitPerUser             int32
		usedByRaw                map[string]int32
		active                   bool
	)
	if err := row.Scan(
		&id, &codeRaw, &typRaw, &discount, &minVal, &maxVal,
		&startsAt, &endsAt, &usageLimit, &usedCount, &limitPerUser,
		&usedByRaw, &active,
	); err != nil {
		return nil, err
	}

	code, err := promotion.NewCode(codeRaw)
	if err != nil {
		return nil, err
	}
	typ, err := promotion.NewType(typRaw)
	if err != nil {
		return nil, err
	}

	usedBy := make(map[uuid.UUID]int32, len(usedByRaw))
	for k, v := range usedByRaw {
		userID, parseErr := uuid.Parse(k)
		if parseErr != nil {
			continue
		}
		usedBy[userID] = v
	}

	return promotion.ReconstructPromotion(
		id, code, typ, discount, minVal, maxVal,
		startsAt, endsAt, usageLimit, usedCount, limitPerUser,
		usedBy, active,
	), nil
}

var _ shared.PromotionRepository = (*PromotionRepository)(nil)
