package readstore

import (
	"context"
	"time"

	"storefront/internal/domain/promotion"
	"storefront/internal/infra"
	"storefront/internal/infra/db"
	"storefront/internal/pkg/pgconv"
	"storefront/internal/usecase/queries"

	"github.com/google/uuid"
)

type PromotionReadStore struct {
	db db.DBTX
}

func NewPromotionReadStore(dbtx db.DBTX) *PromotionReadStore {
	return &PromotionReadStore{db: dbtx}
}

const promotionByCodeQuery = `
SELECT id, code, type, discount, min_order_value, max_discount,
       starts_at, ends_at, usage_limit, used_count, limit_per_user,
       COALESCE(used_by, '{}'::jsonb), is_active
FROM promotions
WHERE code = $1
`

func (s *PromotionReadStore) ByCode(ctx context.Context, code promotion.Code) (*promotion.Promotion, error) {
	row := s.db.QueryRow(ctx, promotionByCodeQuery, code.String())

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
	err := row.Scan(
		&id, &codeRaw, &typRaw, &discount, &minVal, &maxVal,
		&startsAt, &endsAt, &usageLimit, &usedCount, &limitPerUser,
		&usedByRaw, &active,
	)
	if err != nil {
		if pgconv.IsNoRows(err) {
			return nil, infra.WrapRepoErr("voucher not found", err, infra.KindNotFound)
		}
		return nil, infra.WrapRepoErr("failed to read voucher", err)
	}

	promoCode, err := promotion.NewCode(codeRaw)
	if err != nil {
		return nil, infra.WrapRepoErr("stored voucher code is malformed", err)
	}
	promoType, err := promotion.NewType(typRaw)
	if err != nil {
		return nil, infra.WrapRepoErr("stored voucher type is malformed", err)
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
		id, promoCode, promoType, discount, minVal, maxVal,
		startsAt, endsAt, usageLimit, usedCount, limitPerUser,
		usedBy, active,
	), nil
}

var _ queries.PromotionReadStore = (*PromotionReadStore)(nil)
