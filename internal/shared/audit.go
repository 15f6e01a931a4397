package shared

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/prodvault/prodvault/internal/access"
)

// AuditLog represents one auditable action. Summary is the human-readable
// line; Meta carries enough structured detail to reconstruct the action.
type AuditLog struct {
	Actor   access.Principal
	Action  string
	Entity  string
	EntityID string
	Summary string
	Meta    map[string]any
	At      time.Time
}

// AuditRecorder receives audit records. The trail is append-only and
// write-only; the core never reads it back.
type AuditRecorder interface {
	Record(ctx context.Context, log AuditLog) error
}

// AuditLogger persists records into the audit_logs table.
type AuditLogger struct {
	pool *pgxpool.Pool
}

// NewAuditLogger returns a new AuditLogger.
func NewAuditLogger(pool *pgxpool.Pool) *AuditLogger {
	return &AuditLogger{pool: pool}
}

// EnsureSchema creates the audit_logs table when it does not exist yet.
func (l *AuditLogger) EnsureSchema(ctx context.Context) error {
	_, err := l.pool.Exec(ctx, `CREATE TABLE IF NOT EXISTS audit_logs (id BIGSERIAL PRIMARY KEY, actor TEXT NOT NULL, action TEXT NOT NULL, entity TEXT NOT NULL, entity_id TEXT NOT NULL, summary TEXT NOT NULL DEFAULT '', meta JSONB, occurred_at TIMESTAMPTZ NOT NULL DEFAULT NOW())`)
	return err
}

// Record persists the log entry.
func (l *AuditLogger) Record(ctx context.Context, log AuditLog) error {
	if l == nil {
		return errors.New("audit logger not initialised")
	}
	if log.Action == "" || log.Entity == "" {
		return errors.New("audit log requires action/entity")
	}
	metaJSON, err := json.Marshal(log.Meta)
	if err != nil {
		return err
	}
	at := log.At
	if at.IsZero() {
		at = time.Now()
	}
	_, err = l.pool.Exec(ctx, `INSERT INTO audit_logs (actor, action, entity, entity_id, summary, meta, occurred_at) VALUES ($1, $2, $3, $4, $5, $6, $7)`, string(log.Actor), log.Action, log.Entity, log.EntityID, log.Summary, metaJSON, at)
	return err
}

// LogAuditRecorder emits audit records to the structured log. Used when no
// Postgres pool is configured; the log stream is the append-only sink.
type LogAuditRecorder struct {
	logger *slog.Logger
}

// NewLogAuditRecorder returns a recorder writing to logger.
func NewLogAuditRecorder(logger *slog.Logger) *LogAuditRecorder {
	return &LogAuditRecorder{logger: logger}
}

// Record writes the entry as a single structured log line.
func (l *LogAuditRecorder) Record(_ context.Context, log AuditLog) error {
	if l == nil || l.logger == nil {
		return errors.New("audit recorder not initialised")
	}
	l.logger.Info("audit",
		slog.String("actor", string(log.Actor)),
		slog.String("action", log.Action),
		slog.String("entity", log.Entity),
		slog.String("entity_id", log.EntityID),
		slog.String("summary", log.Summary),
		slog.Any("meta", log.Meta),
	)
	return nil
}
