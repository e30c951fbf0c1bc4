package audit

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresLog writes entries into parametro_changes.
type PostgresLog struct {
	pool *pgxpool.Pool
}

// NewPostgresLog returns a new PostgresLog.
func NewPostgresLog(pool *pgxpool.Pool) *PostgresLog {
	return &PostgresLog{pool: pool}
}

// Append persists the entry. Replayed entries are ignored by id.
func (l *PostgresLog) Append(ctx context.Context, entry Entry) error {
	if l == nil || l.pool == nil {
		return errors.New("audit: postgres log not initialised")
	}
	if err := entry.Validate(); err != nil {
		return err
	}
	var fields any
	if len(entry.Fields) > 0 {
		fields = string(entry.Fields)
	}
	_, err := l.pool.Exec(ctx, `INSERT INTO parametro_changes (id, action, kind, record_id, version, fields, actor, request_id, occurred_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, COALESCE($9, NOW()))
ON CONFLICT (id) DO NOTHING`,
		entry.ID, string(entry.Action), entry.Kind, entry.RecordID, entry.Version, fields, entry.Actor, entry.RequestID, nullTime(entry))
	if err != nil {
		return fmt.Errorf("audit: insert change: %w", err)
	}
	return nil
}

func nullTime(entry Entry) any {
	if entry.At.IsZero() {
		return nil
	}
	return entry.At
}
