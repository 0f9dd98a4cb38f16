package repository

import (
	"context"
	"time"

	"storefront/internal/infra"
	"storefront/internal/infra/db"
	"storefront/internal/pkg/pgconv"
	"storefront/internal/usecase/shared"

	"github.com/google/uuid"
)

type IdempotencyRepository struct {
	db db.DBTX
}

func NewIdempotencyRepository(dbtx db.DBTX) *IdempotencyRepository {
	return &IdempotencyRepository{db: dbtx}
}

const tryInsertIdempotencyKeyQuery = `
INSERT INTO idempotency_keys (key, user_id, endpoint, request_hash, status, expires_at, created_at)
VALUES ($1, $2, $3, $4, 'processing', $5, now())
ON CONFLICT (key, user_id) DO NOTHING
`

const reclaimExpiredIdempotencyKeyQuery = `
UPDATE idempotency_keys
SET endpoint = $3, request_hash = $4, status = 'processing',
    result_order_id = NULL, expires_at = $5, created_at = now()
WHERE key = $1 AND user_id = $2 AND expires_at < now()
`

// TryInsert claims the key for this request. An expired row is reclaimed
// in place, so a key can be reused after its TTL passes.
func (r *IdempotencyRepository) TryInsert(ctx context.Context, key, userID uuid.UUID, endpoint, requestHash string, expiresAt time.Time) (bool, error) {
	tag, err := r.db.Exec(ctx, tryInsertIdempotencyKeyQuery,
		key, userID, endpoint, requestHash, expiresAt)
	if err != nil {
		return false, infra.WrapRepoErr("failed to try insert idempotency key", err)
	}
	if tag.RowsAffected() > 0 {
		return true, nil
	}

	tag, err = r.db.Exec(ctx, reclaimExpiredIdempotencyKeyQuery,
		key, userID, endpoint, requestHash, expiresAt)
	if err != nil {
		return false, infra.WrapRepoErr("failed to reclaim idempotency key", err)
	}
	return tag.RowsAffected() > 0, nil
}

const getIdempotencyKeyQuery = `
SELECT key, user_id, status, request_hash, result_order_id, expires_at
FROM idempotency_keys
WHERE key = $1 AND user_id = $2
`

func (r *IdempotencyRepository) Get(ctx context.Context, key, userID uuid.UUID) (*shared.IdempotencyRecord, error) {
	var rec shared.IdempotencyRecord
	err := r.db.QueryRow(ctx, getIdempotencyKeyQuery, key, userID).Scan(
		&rec.Key, &rec.UserID, &rec.Status, &rec.RequestHash,
		&rec.ResultOrderID, &rec.ExpiresAt,
	)
	if err != nil {
		if pgconv.IsNoRows(err) {
			return nil, infra.WrapRepoErr("idempotency key not found", err, infra.KindNotFound)
		}
		return nil, infra.WrapRepoErr("failed to get idempotency key", err)
	}
	return &rec, nil
}

const markIdempotencyKeyCompletedQuery = `
UPDATE idempotency_keys
SET status = 'completed', result_order_id = $3
WHERE key = $1 AND user_id = $2
`

func (r *IdempotencyRepository) MarkCompleted(ctx context.Context, key, userID uuid.UUID, resultOrderID uuid.UUID) error {
	_, err := r.db.Exec(ctx, markIdempotencyKeyCompletedQuery, key, userID, resultOrderID)
	if err != nil {
		return infra.WrapRepoErr("failed to mark idempotency key completed", err)
	}
	return nil
}

const deleteExpiredIdempotencyKeysQuery = `
DELETE FROM idempotency_keys WHERE expires_at < now()
`

func (r *IdempotencyRepository) DeleteExpired(ctx context.Context) (int64, error) {
	tag, err := r.db.Exec(ctx, deleteExpiredIdempotencyKeysQuery)
	if err != nil {
		return 0, infra.WrapRepoErr("failed to delete expired idempotency keys", err)
	}
	return tag.RowsAffected(), nil
}

var _ shared.IdempotencyRepository = (*IdempotencyRepository)(nil)
