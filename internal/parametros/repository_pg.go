package parametros

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/auditoria360/auditoria360/internal/platform/db"
)

const uniqueViolation = "23505"

const selectColumns = `id::text, kind, fields, effective_start, effective_end, version, created_at, updated_at`

// PostgresRepository stores records in the parametros table.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository returns a Repository backed by pool.
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

// GetAll lists records of kind ordered by creation.
func (r *PostgresRepository) GetAll(ctx context.Context, kind Kind) ([]Record, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+selectColumns+` FROM parametros WHERE kind = $1 ORDER BY created_at, id`, string(kind))
	if err != nil {
		return nil, storageErr("get_all", err)
	}
	defer rows.Close()

	records := []Record{}
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, storageErr("get_all", err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr("get_all", err)
	}
	return records, nil
}

// Get loads one record.
func (r *PostgresRepository) Get(ctx context.Context, kind Kind, id string) (Record, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+selectColumns+` FROM parametros WHERE kind = $1 AND id = $2`, string(kind), id)
	rec, err := scanRecord(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Record{}, notFound(kind, id)
		}
		return Record{}, storageErr("get", err)
	}
	return rec, nil
}

// Put inserts version 1 or compare-and-sets later versions.
func (r *PostgresRepository) Put(ctx context.Context, kind Kind, record Record) (Record, error) {
	fields, err := json.Marshal(record.Fields)
	if err != nil {
		return Record{}, NewValidationError("fields", err.Error())
	}
	start, end := periodColumns(record.EffectivePeriod)

	if record.Version <= 1 {
		row := r.pool.QueryRow(ctx, `INSERT INTO parametros (id, kind, fields, effective_start, effective_end, version, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, 1, $6, $7)
RETURNING `+selectColumns,
			record.ID, string(kind), string(fields), start, end, record.CreatedAt, record.UpdatedAt)
		stored, err := scanRecord(row)
		if err != nil {
			return Record{}, putError(kind, record.ID, 0, 1, err)
		}
		return stored, nil
	}

	var stored Record
	err = db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		row := tx.QueryRow(ctx, `UPDATE parametros
SET fields = $3, effective_start = $4, effective_end = $5, version = $6, updated_at = $7
WHERE kind = $1 AND id = $2 AND version = $6 - 1
RETURNING `+selectColumns,
			string(kind), record.ID, string(fields), start, end, record.Version, record.UpdatedAt)
		rec, err := scanRecord(row)
		if err == nil {
			stored = rec
			return nil
		}
		if !errors.Is(err, pgx.ErrNoRows) {
			return storageErr("put", err)
		}
		var current int64
		err = tx.QueryRow(ctx, `SELECT version FROM parametros WHERE kind = $1 AND id = $2`, string(kind), record.ID).Scan(&current)
		if errors.Is(err, pgx.ErrNoRows) {
			return notFound(kind, record.ID)
		}
		if err != nil {
			return storageErr("put", err)
		}
		return conflict(kind, record.ID, record.Version-1, current)
	})
	if err != nil {
		return Record{}, putError(kind, record.ID, record.Version-1, record.Version, err)
	}
	return stored, nil
}

// putError maps a failed write onto the package errors. A duplicate id or a
// lost serialization race both mean another writer got there first.
func putError(kind Kind, id string, want, got int64, err error) error {
	if errors.Is(err, ErrNotFound) || errors.Is(err, ErrConflict) {
		return err
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return conflict(kind, id, want, got)
	}
	if db.IsSerializationFailure(err) {
		return conflict(kind, id, want, got)
	}
	return storageErr("put", err)
}

// Delete removes a record.
func (r *PostgresRepository) Delete(ctx context.Context, kind Kind, id string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM parametros WHERE kind = $1 AND id = $2`, string(kind), id)
	if err != nil {
		return storageErr("delete", err)
	}
	return deleteResult(kind, id, tag.RowsAffected())
}

func deleteResult(kind Kind, id string, rows int64) error {
	if rows == 0 {
		return notFound(kind, id)
	}
	return nil
}

func scanRecord(row pgx.Row) (Record, error) {
	var (
		rec        Record
		kind       string
		fields     []byte
		start, end pgtype.Date
	)
	if err := row.Scan(&rec.ID, &kind, &fields, &start, &end, &rec.Version, &rec.CreatedAt, &rec.UpdatedAt); err != nil {
		return Record{}, err
	}
	rec.Kind = Kind(kind)
	if err := json.Unmarshal(fields, &rec.Fields); err != nil {
		return Record{}, fmt.Errorf("decode fields of %s: %w", rec.ID, err)
	}
	if start.Valid {
		period := Period{Start: start.Time.UTC()}
		if end.Valid {
			e := end.Time.UTC()
			period.End = &e
		}
		rec.EffectivePeriod = &period
	}
	rec.CreatedAt = rec.CreatedAt.UTC()
	rec.UpdatedAt = rec.UpdatedAt.UTC()
	return rec, nil
}

func periodColumns(p *Period) (start, end pgtype.Date) {
	if p == nil {
		return pgtype.Date{}, pgtype.Date{}
	}
	start = pgtype.Date{Time: truncateDay(p.Start), Valid: true}
	if p.End != nil {
		end = pgtype.Date{Time: truncateDay(*p.End), Valid: true}
	}
	return start, end
}

var _ Repository = (*PostgresRepository)(nil)
var _ Repository = (*MemoryRepository)(nil)
