package jobs

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"
)

const defaultAuditRetention = 90 * 24 * time.Hour

// AuditPruner removes audit records that fell out of the retention window.
type AuditPruner interface {
	PruneBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// PostgresAuditPruner prunes the audit_logs table.
type PostgresAuditPruner struct {
	pool *pgxpool.Pool
}

// NewPostgresAuditPruner constructs a pruner over the given pool.
func NewPostgresAuditPruner(pool *pgxpool.Pool) *PostgresAuditPruner {
	return &PostgresAuditPruner{pool: pool}
}

// PruneBefore deletes audit rows older than cutoff and returns the count.
func (p *PostgresAuditPruner) PruneBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := p.pool.Exec(ctx, `DELETE FROM audit_logs WHERE occurred_at < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("jobs: prune audit logs: %w", err)
	}
	return tag.RowsAffected(), nil
}

// NewAuditPruneHandler builds the Asynq handler for TaskAuditPrune.
func NewAuditPruneHandler(pruner AuditPruner, logger *slog.Logger, metrics *Metrics) asynq.HandlerFunc {
	return func(ctx context.Context, task *asynq.Task) error {
		tracker := metrics.Track(TaskAuditPrune)
		var payload AuditPrunePayload
		if err := json.Unmarshal(task.Payload(), &payload); err != nil {
			return tracker.End(fmt.Errorf("jobs: decode audit prune payload: %w", err))
		}
		retention := payload.OlderThan
		if retention <= 0 {
			retention = defaultAuditRetention
		}
		cutoff := time.Now().Add(-retention)
		removed, err := pruner.PruneBefore(ctx, cutoff)
		if err != nil {
			return tracker.End(err)
		}
		if logger != nil {
			logger.Info("audit prune complete",
				slog.Time("cutoff", cutoff),
				slog.Int64("removed", removed),
			)
		}
		return tracker.End(nil)
	}
}
