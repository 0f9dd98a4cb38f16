package repository

import (
	"context"
	"time"

	"storefront/internal/infra"
	"storefront/internal/infra/db"
	"storefront/internal/usecase/shared"

	"github.com/google/uuid"
)

// OutboxRepository records jobs in the same transaction as the state
// change they announce. A relay drains the table and re-publishes, so
// a broker outage never loses an event.
type OutboxRepository struct {
	db db.DBTX
}

func NewOutboxRepository(dbtx db.DBTX) *OutboxRepository {
	return &OutboxRepository{db: dbtx}
}

const createOutboxJobQuery = `
INSERT INTO outbox_jobs (id, kind, topic, payload, status, run_at, created_at)
VALUES ($1, $2, $3, $4, 'pending', $5, now())
`

func (r *OutboxRepository) CreateJob(ctx context.Context, kind, topic string, payload []byte, runAt time.Time) error {
	_, err := r.db.Exec(ctx, createOutboxJobQuery, uuid.New(), kind, topic, payload, runAt)
	if err != nil {
		return infra.WrapRepoErr("failed to create outbox job", err)
	}
	return nil
}

var _ shared.OutboxRepository = (*OutboxRepository)(nil)
