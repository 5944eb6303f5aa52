package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/iliyamo/outing-coordinator/internal/model"
)

// InterestRequestRepo provides data access to the interest_requests table.
// All timestamps are stored and returned in UTC.
type InterestRequestRepo struct {
	db *sql.DB
}

// NewInterestRequestRepo returns a new InterestRequestRepo bound to the given database.
func NewInterestRequestRepo(db *sql.DB) *InterestRequestRepo { return &InterestRequestRepo{db: db} }

const requestColumns = `id, outing_id, requester_user_id, status, created_at`

// Create inserts a new interest request.  The outing_id foreign key
// guarantees the referenced outing exists at insert time.
func (r *InterestRequestRepo) Create(ctx context.Context, ir *model.InterestRequest) error {
	const q = `INSERT INTO interest_requests (` + requestColumns + `) VALUES (?, ?, ?, ?, ?)`
	_, err := r.db.ExecContext(ctx, q, ir.ID, ir.OutingID, ir.RequesterUserID, string(ir.Status), ir.CreatedAt.UTC())
	return err
}

// GetByID fetches a single request.  It returns ErrInterestRequestNotFound
// when no row matches.
func (r *InterestRequestRepo) GetByID(ctx context.Context, id string) (*model.InterestRequest, error) {
	const q = `SELECT ` + requestColumns + ` FROM interest_requests WHERE id = ?`
	ir, err := scanRequest(r.db.QueryRowContext(ctx, q, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrInterestRequestNotFound
		}
		return nil, err
	}
	return ir, nil
}

// ListByOuting returns all requests for an outing, oldest first so hosts
// see them in arrival order.
func (r *InterestRequestRepo) ListByOuting(ctx context.Context, outingID string) ([]model.InterestRequest, error) {
	const q = `SELECT ` + requestColumns + `
	           FROM interest_requests
	           WHERE outing_id = ?
	           ORDER BY created_at ASC, id ASC`
	return r.list(ctx, q, outingID)
}

// ListByRequester returns every request a user has created, newest first.
func (r *InterestRequestRepo) ListByRequester(ctx context.Context, requesterID string) ([]model.InterestRequest, error) {
	const q = `SELECT ` + requestColumns + `
	           FROM interest_requests
	           WHERE requester_user_id = ?
	           ORDER BY created_at DESC, id DESC`
	return r.list(ctx, q, requesterID)
}

// ListDetailedByRequester returns the user's requests joined with the
// descriptive fields and closed flag of each outing, newest first.
func (r *InterestRequestRepo) ListDetailedByRequester(ctx context.Context, requesterID string) ([]model.InterestRequestDetail, error) {
	const q = `SELECT ir.id, ir.outing_id, ir.status, ir.created_at,
	                  o.title, o.activity_type, o.date_time, o.location, o.is_closed
	           FROM interest_requests ir
	           JOIN outings o ON ir.outing_id = o.id
	           WHERE ir.requester_user_id = ?
	           ORDER BY ir.created_at DESC, ir.id DESC`
	rows, err := r.db.QueryContext(ctx, q, requesterID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]model.InterestRequestDetail, 0)
	for rows.Next() {
		var (
			d        model.InterestRequestDetail
			status   string
			location sql.NullString
		)
		if err := rows.Scan(&d.ID, &d.OutingID, &status, &d.CreatedAt,
			&d.Title, &d.ActivityType, &d.DateTime, &location, &d.IsClosed); err != nil {
			return nil, err
		}
		d.Status = model.RequestStatus(status)
		d.CreatedAt = d.CreatedAt.UTC()
		if location.Valid {
			loc := location.String
			d.Location = &loc
		}
		out = append(out, d)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// DecideIfPending moves a request from pending to status in one
// conditional statement.  The row only matches while it is still pending
// and belongs to an outing hosted by hostID; InnoDB's row lock makes a
// second concurrent writer re-evaluate the predicate and match nothing.
// Zero affected rows is reported as ErrConflict.
func (r *InterestRequestRepo) DecideIfPending(ctx context.Context, id, hostID string, status model.RequestStatus) error {
	const q = `UPDATE interest_requests
	           SET status = ?
	           WHERE id = ?
	             AND status = 'pending'
	             AND outing_id IN (SELECT id FROM outings WHERE host_user_id = ?)`
	res, err := r.db.ExecContext(ctx, q, string(status), id, hostID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrConflict
	}
	return nil
}

func (r *InterestRequestRepo) list(ctx context.Context, q string, args ...any) ([]model.InterestRequest, error) {
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]model.InterestRequest, 0)
	for rows.Next() {
		ir, err := scanRequest(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *ir)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func scanRequest(s rowScanner) (*model.InterestRequest, error) {
	var (
		ir     model.InterestRequest
		status string
	)
	if err := s.Scan(&ir.ID, &ir.OutingID, &ir.RequesterUserID, &status, &ir.CreatedAt); err != nil {
		return nil, err
	}
	ir.Status = model.RequestStatus(status)
	ir.CreatedAt = ir.CreatedAt.UTC()
	return &ir, nil
}
