package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/iliyamo/outing-coordinator/internal/model"
)

// OutingRepo encapsulates all database queries related to outings.  It
// depends on a sql.DB connection which should be configured elsewhere.
type OutingRepo struct {
	db *sql.DB
}

// NewOutingRepo constructs an OutingRepo with the provided DB handle.
func NewOutingRepo(db *sql.DB) *OutingRepo {
	return &OutingRepo{db: db}
}

// DB exposes the underlying pool for health checks.
func (r *OutingRepo) DB() *sql.DB { return r.db }

const outingColumns = `id, title, activity_type, date_time, location, outing_mode, host_user_id, is_closed, created_at`

// Create inserts a new outing.  The caller supplies the id and created_at
// so the record returned to clients matches what was stored.
func (r *OutingRepo) Create(ctx context.Context, o *model.Outing) error {
	const q = `INSERT INTO outings (` + outingColumns + `)
	           VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := r.db.ExecContext(ctx, q,
		o.ID, o.Title, o.ActivityType, o.DateTime, nullString(o.Location),
		o.OutingMode, o.HostUserID, o.IsClosed, o.CreatedAt.UTC(),
	)
	return err
}

// GetByID fetches an outing by id.  It returns ErrOutingNotFound when no
// row matches.
func (r *OutingRepo) GetByID(ctx context.Context, id string) (*model.Outing, error) {
	const q = `SELECT ` + outingColumns + ` FROM outings WHERE id = ?`
	o, err := scanOuting(r.db.QueryRowContext(ctx, q, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrOutingNotFound
		}
		return nil, err
	}
	return o, nil
}

// ListAll returns every outing, newest first.
func (r *OutingRepo) ListAll(ctx context.Context) ([]model.Outing, error) {
	const q = `SELECT ` + outingColumns + ` FROM outings ORDER BY created_at DESC, id DESC`
	rows, err := r.db.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]model.Outing, 0)
	for rows.Next() {
		o, err := scanOuting(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *o)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// MarkClosed sets is_closed on the outing.  The flag is never cleared,
// so closing an already closed outing is a no-op.  MySQL reports zero
// affected rows in that case, which is why RowsAffected is not checked.
func (r *OutingRepo) MarkClosed(ctx context.Context, id string) error {
	const q = `UPDATE outings SET is_closed = 1 WHERE id = ?`
	_, err := r.db.ExecContext(ctx, q, id)
	return err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanOuting(s rowScanner) (*model.Outing, error) {
	var (
		o        model.Outing
		location sql.NullString
	)
	if err := s.Scan(&o.ID, &o.Title, &o.ActivityType, &o.DateTime, &location,
		&o.OutingMode, &o.HostUserID, &o.IsClosed, &o.CreatedAt); err != nil {
		return nil, err
	}
	if location.Valid {
		loc := location.String
		o.Location = &loc
	}
	o.CreatedAt = o.CreatedAt.UTC()
	return &o, nil
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}
