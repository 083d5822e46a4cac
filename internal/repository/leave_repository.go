package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/brgy-records-api/internal/models"
)

// ErrLeaveAlreadyReviewed is returned when a decision targets a non-pending request.
var ErrLeaveAlreadyReviewed = errors.New("leave request already reviewed")

const leaveSelect = `SELECT l.id, l.user_id, u.full_name AS user_name, l.leave_type, l.start_date, l.end_date, l.reason, l.status, l.reviewed_by, l.reviewed_at, l.note, l.created_at
FROM leave_requests l JOIN users u ON u.id = l.user_id`

// LeaveRepository persists staff leave requests.
type LeaveRepository struct {
	db  *sqlx.DB
	now func() time.Time
}

// NewLeaveRepository constructs the repository.
func NewLeaveRepository(db *sqlx.DB) *LeaveRepository {
	return &LeaveRepository{db: db, now: func() time.Time { return time.Now().UTC() }}
}

// Create inserts a PENDING request and fills ID, Status and CreatedAt.
func (r *LeaveRepository) Create(ctx context.Context, leave *models.LeaveRequest) error {
	if leave.ID == "" {
		leave.ID = uuid.NewString()
	}
	leave.Status = models.LeavePending
	leave.CreatedAt = r.now()

	const query = `INSERT INTO leave_requests (id, user_id, leave_type, start_date, end_date, reason, status, created_at)
VALUES (:id, :user_id, :leave_type, :start_date, :end_date, :reason, :status, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, leave); err != nil {
		return fmt.Errorf("create leave request: %w", err)
	}
	return nil
}

// FindByID returns one request with the requester's name.
func (r *LeaveRepository) FindByID(ctx context.Context, id string) (*models.LeaveRequest, error) {
	var leave models.LeaveRequest
	if err := r.db.GetContext(ctx, &leave, leaveSelect+` WHERE l.id = $1`, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("find leave request: %w", err)
	}
	return &leave, nil
}

// List returns requests newest first with the total count.
func (r *LeaveRepository) List(ctx context.Context, filter models.LeaveFilter) ([]models.LeaveRequest, int, error) {
	var p predicates
	if filter.UserID != nil {
		p.add("l.user_id = " + p.bind(*filter.UserID))
	}
	if filter.Status != nil {
		p.add("l.status = " + p.bind(*filter.Status))
	}
	where, args := p.where(), p.args
	query := leaveSelect + where + " ORDER BY l.created_at DESC, l.id DESC" + page(filter.Page, filter.PageSize)

	var leaves []models.LeaveRequest
	if err := r.db.SelectContext(ctx, &leaves, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list leave requests: %w", err)
	}
	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) FROM leave_requests l"+where, args...); err != nil {
		return nil, 0, fmt.Errorf("count leave requests: %w", err)
	}
	return leaves, total, nil
}

// Review moves a PENDING request to status. A missing request yields
// sql.ErrNoRows; one already decided yields ErrLeaveAlreadyReviewed.
func (r *LeaveRepository) Review(ctx context.Context, id string, status models.LeaveStatus, reviewer string, note *string) (*models.LeaveRequest, error) {
	var reviewed models.LeaveRequest
	err := withTx(ctx, r.db, "review leave request", func(tx *sqlx.Tx) error {
		var current models.LeaveStatus
		if err := tx.GetContext(ctx, &current, `SELECT status FROM leave_requests WHERE id = $1 FOR UPDATE`, id); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return err
			}
			return fmt.Errorf("lock leave request: %w", err)
		}
		if current != models.LeavePending {
			return ErrLeaveAlreadyReviewed
		}
		const update = `UPDATE leave_requests SET status = $2, reviewed_by = $3, reviewed_at = $4, note = $5 WHERE id = $1`
		if _, err := tx.ExecContext(ctx, update, id, status, reviewer, r.now(), note); err != nil {
			return fmt.Errorf("update leave request: %w", err)
		}
		if err := tx.GetContext(ctx, &reviewed, leaveSelect+` WHERE l.id = $1`, id); err != nil {
			return fmt.Errorf("reload leave request: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &reviewed, nil
}

// CountPending returns how many requests await review.
func (r *LeaveRepository) CountPending(ctx context.Context) (int, error) {
	var n int
	if err := r.db.GetContext(ctx, &n, `SELECT COUNT(*) FROM leave_requests WHERE status = $1`, models.LeavePending); err != nil {
		return 0, fmt.Errorf("count pending leave requests: %w", err)
	}
	return n, nil
}

func normalizePage(page, size int) (int, int) {
	if page < 1 {
		page = 1
	}
	if size <= 0 {
		size = 20
	}
	if size > 100 {
		size = 100
	}
	return page, size
}
