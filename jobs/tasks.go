package jobs

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskAuditPrune is the task type for audit trail retention.
	TaskAuditPrune = "audit:prune"
)

// AuditPrunePayload selects which audit records to remove.
type AuditPrunePayload struct {
	OlderThan time.Duration `json:"older_than"`
}

// NewAuditPruneTask constructs an Asynq task.
func NewAuditPruneTask(payload AuditPrunePayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("jobs: marshal audit prune payload: %w", err)
	}
	return asynq.NewTask(TaskAuditPrune, data), nil
}
