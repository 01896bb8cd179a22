package jobs

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskIdempotencyCleanup prunes expired idempotency keys.
	TaskIdempotencyCleanup = "billing:idempotency_cleanup"
	// TaskDueRefresh marks overdue invoices.
	TaskDueRefresh = "billing:due_refresh"
)

// IdempotencyCleanupPayload selects which keys the cleanup pass removes.
type IdempotencyCleanupPayload struct {
	RetentionHours int `json:"retention_hours"`
}

// NewIdempotencyCleanupTask constructs the cleanup task.
func NewIdempotencyCleanupTask(retentionHours int) (*asynq.Task, error) {
	data, err := json.Marshal(IdempotencyCleanupPayload{RetentionHours: retentionHours})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskIdempotencyCleanup, data), nil
}

// NewDueRefreshTask constructs the due-status refresh task.
func NewDueRefreshTask() (*asynq.Task, error) {
	return asynq.NewTask(TaskDueRefresh, nil), nil
}
