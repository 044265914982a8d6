package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/heri/availabilities/libs/db"
	"github.com/heri/availabilities/services/availability-service/internal/model"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

const intervalColumns = `id::text, kind, recurrence, starts_at, ends_at, COALESCE(external_id, ''), created_at, updated_at`

type IntervalRepository struct {
	pool *db.Pool
}

func NewIntervalRepository(pool *db.Pool) *IntervalRepository {
	return &IntervalRepository{pool: pool}
}

func (r *IntervalRepository) Begin(ctx context.Context) (pgx.Tx, error) {
	return r.pool.Begin(ctx)
}

// Create assigns a new id and fills the timestamps from the database.
func (r *IntervalRepository) Create(ctx context.Context, tx pgx.Tx, iv *model.Interval) error {
	iv.ID = uuid.NewString()
	return tx.QueryRow(ctx, `
		INSERT INTO intervals (id, kind, recurrence, starts_at, ends_at, external_id)
		VALUES ($1, $2, $3, $4, $5, NULLIF($6, ''))
		RETURNING created_at, updated_at
	`, iv.ID, iv.Kind, iv.Recurrence, iv.Start, iv.End, iv.ExternalID).Scan(&iv.CreatedAt, &iv.UpdatedAt)
}

func (r *IntervalRepository) Update(ctx context.Context, tx pgx.Tx, iv *model.Interval) error {
	return tx.QueryRow(ctx, `
		UPDATE intervals
		SET kind = $2,
			recurrence = $3,
			starts_at = $4,
			ends_at = $5,
			updated_at = now()
		WHERE id = $1
		RETURNING COALESCE(external_id, ''), created_at, updated_at
	`, iv.ID, iv.Kind, iv.Recurrence, iv.Start, iv.End).Scan(&iv.ExternalID, &iv.CreatedAt, &iv.UpdatedAt)
}

// Delete returns pgx.ErrNoRows when the id does not exist.
func (r *IntervalRepository) Delete(ctx context.Context, tx pgx.Tx, id string) error {
	tag, err := tx.Exec(ctx, `DELETE FROM intervals WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *IntervalRepository) GetForUpdate(ctx context.Context, tx pgx.Tx, id string) (model.Interval, error) {
	row := tx.QueryRow(ctx, `SELECT `+intervalColumns+` FROM intervals WHERE id = $1 FOR UPDATE`, id)
	return scanInterval(row)
}

func (r *IntervalRepository) GetByExternalIDForUpdate(ctx context.Context, tx pgx.Tx, externalID string) (model.Interval, error) {
	row := tx.QueryRow(ctx, `SELECT `+intervalColumns+` FROM intervals WHERE external_id = $1 FOR UPDATE`, externalID)
	return scanInterval(row)
}

func (r *IntervalRepository) Get(ctx context.Context, id string) (model.Interval, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+intervalColumns+` FROM intervals WHERE id = $1`, id)
	return scanInterval(row)
}

// ListIntervals serves both the availability engine and the interval listing API.
func (r *IntervalRepository) ListIntervals(ctx context.Context, filter model.IntervalFilter) ([]model.Interval, error) {
	query, args := buildListQuery(filter)
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query intervals: %w", err)
	}
	defer rows.Close()

	var out []model.Interval
	for rows.Next() {
		iv, err := scanInterval(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, iv)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return out, nil
}

func buildListQuery(f model.IntervalFilter) (string, []any) {
	var where []string
	var args []any
	add := func(cond string, v any) {
		args = append(args, v)
		where = append(where, fmt.Sprintf(cond, len(args)))
	}

	if f.Kind != "" {
		add("kind = $%d", string(f.Kind))
	}
	if f.Recurrence != "" {
		add("recurrence = $%d", string(f.Recurrence))
	}
	if !f.StartFrom.IsZero() {
		add("starts_at >= $%d", f.StartFrom)
	}
	if !f.EndUntil.IsZero() {
		add("ends_at <= $%d", f.EndUntil)
	}
	if !f.StartBefore.IsZero() {
		add("starts_at < $%d", f.StartBefore)
	}

	var b strings.Builder
	b.WriteString(`SELECT ` + intervalColumns + ` FROM intervals`)
	if len(where) > 0 {
		b.WriteString(" WHERE " + strings.Join(where, " AND "))
	}
	b.WriteString(" ORDER BY starts_at ASC, id ASC")
	if f.Limit > 0 {
		args = append(args, f.Limit)
		fmt.Fprintf(&b, " LIMIT $%d", len(args))
	}
	return b.String(), args
}

func scanInterval(row pgx.Row) (model.Interval, error) {
	var iv model.Interval
	var kind, recurrence string
	if err := row.Scan(&iv.ID, &kind, &recurrence, &iv.Start, &iv.End, &iv.ExternalID, &iv.CreatedAt, &iv.UpdatedAt); err != nil {
		return model.Interval{}, err
	}
	iv.Kind = model.Kind(kind)
	iv.Recurrence = model.Recurrence(recurrence)
	return iv, nil
}

func IsNotFound(err error) bool {
	return errors.Is(err, pgx.ErrNoRows)
}

// IsConflict reports a unique violation, e.g. a second interval for one booking.
func IsConflict(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
