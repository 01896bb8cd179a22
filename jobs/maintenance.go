package jobs

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/quickbill/quickbill/internal/shared"
)

// IdempotencyCleanupJob prunes idempotency keys past the retention window.
type IdempotencyCleanupJob struct {
	store  *shared.IdempotencyStore
	logger *slog.Logger
}

// NewIdempotencyCleanupJob constructs IdempotencyCleanupJob.
func NewIdempotencyCleanupJob(store *shared.IdempotencyStore, logger *slog.Logger) *IdempotencyCleanupJob {
	return &IdempotencyCleanupJob{store: store, logger: logger}
}

// Handle processes TaskIdempotencyCleanup tasks.
func (j *IdempotencyCleanupJob) Handle(ctx context.Context, t *asynq.Task) error {
	var payload IdempotencyCleanupPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}
	retention := time.Duration(payload.RetentionHours) * time.Hour
	if retention <= 0 {
		retention = 7 * 24 * time.Hour
	}
	removed, err := j.store.Cleanup(ctx, retention)
	if err != nil {
		j.logger.Error("idempotency cleanup", slog.Any("error", err))
		return err
	}
	j.logger.Info("idempotency cleanup done", slog.Int64("removed", removed))
	return nil
}

// DueRefreshJob flags pending invoices whose due date has passed.
type DueRefreshJob struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

// NewDueRefreshJob constructs DueRefreshJob.
func NewDueRefreshJob(pool *pgxpool.Pool, logger *slog.Logger) *DueRefreshJob {
	return &DueRefreshJob{pool: pool, logger: logger}
}

// Handle processes TaskDueRefresh tasks.
func (j *DueRefreshJob) Handle(ctx context.Context, t *asynq.Task) error {
	tag, err := j.pool.Exec(ctx, `UPDATE invoices SET due_status='OVERDUE', updated_at=NOW()
WHERE due_status='PENDING' AND due_date IS NOT NULL AND due_date < NOW()`)
	if err != nil {
		j.logger.Error("due refresh", slog.Any("error", err))
		return err
	}
	j.logger.Info("due refresh done", slog.Int64("flagged", tag.RowsAffected()))
	return nil
}
