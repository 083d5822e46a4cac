package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/brgy-records-api/internal/models"
)

var leaveColumns = []string{"id", "user_id", "user_name", "leave_type", "start_date", "end_date", "reason", "status", "reviewed_by", "reviewed_at", "note", "created_at"}

func newLeaveRepo(t *testing.T) (*LeaveRepository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock := newRecordRepoMock(t)
	repo := NewLeaveRepository(db)
	repo.now = func() time.Time { return fixedNow }
	return repo, mock
}

func TestLeaveCreateStartsPending(t *testing.T) {
	repo, mock := newLeaveRepo(t)

	mock.ExpectExec("INSERT INTO leave_requests").WillReturnResult(sqlmock.NewResult(1, 1))

	leave := &models.LeaveRequest{
		UserID:    "u1",
		LeaveType: models.LeaveSick,
		StartDate: models.NewDate(2024, time.March, 4),
		EndDate:   models.NewDate(2024, time.March, 6),
		Status:    models.LeaveApproved,
	}
	require.NoError(t, repo.Create(context.Background(), leave))
	assert.NotEmpty(t, leave.ID)
	assert.Equal(t, models.LeavePending, leave.Status)
	assert.Equal(t, 3, leave.Days())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLeaveListForUser(t *testing.T) {
	repo, mock := newLeaveRepo(t)
	user := "u1"
	status := models.LeavePending

	mock.ExpectQuery(regexp.QuoteMeta("JOIN users u ON u.id = l.user_id WHERE l.user_id = $1 AND l.status = $2 ORDER BY l.created_at DESC, l.id DESC LIMIT 20 OFFSET 0")).
		WithArgs(user, status).
		WillReturnRows(sqlmock.NewRows(leaveColumns).
			AddRow("l1", user, "Ana Cruz", "SICK", "2024-03-04", "2024-03-06", "flu", "PENDING", nil, nil, nil, fixedNow))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM leave_requests l WHERE l.user_id = $1 AND l.status = $2")).
		WithArgs(user, status).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	leaves, total, err := repo.List(context.Background(), models.LeaveFilter{UserID: &user, Status: &status})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	require.Len(t, leaves, 1)
	assert.Equal(t, "Ana Cruz", leaves[0].UserName)
	assert.Equal(t, "2024-03-06", leaves[0].EndDate.String())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLeaveReviewApprovesPending(t *testing.T) {
	repo, mock := newLeaveRepo(t)
	note := "get well"

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT status FROM leave_requests WHERE id = $1 FOR UPDATE")).
		WithArgs("l1").
		WillReturnRows(sqlmock.NewRows([]string{"status"}).AddRow("PENDING"))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE leave_requests SET status = $2")).
		WithArgs("l1", models.LeaveApproved, "admin-1", fixedNow, &note).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(regexp.QuoteMeta("WHERE l.id = $1")).
		WithArgs("l1").
		WillReturnRows(sqlmock.NewRows(leaveColumns).
			AddRow("l1", "u1", "Ana Cruz", "SICK", "2024-03-04", "2024-03-06", "flu", "APPROVED", "admin-1", fixedNow, note, fixedNow))
	mock.ExpectCommit()

	leave, err := repo.Review(context.Background(), "l1", models.LeaveApproved, "admin-1", &note)
	require.NoError(t, err)
	assert.Equal(t, models.LeaveApproved, leave.Status)
	assert.Equal(t, "admin-1", *leave.ReviewedBy)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLeaveReviewRejectsDecided(t *testing.T) {
	repo, mock := newLeaveRepo(t)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT status FROM leave_requests WHERE id = $1 FOR UPDATE")).
		WillReturnRows(sqlmock.NewRows([]string{"status"}).AddRow("REJECTED"))
	mock.ExpectRollback()

	_, err := repo.Review(context.Background(), "l1", models.LeaveApproved, "admin-1", nil)
	assert.ErrorIs(t, err, ErrLeaveAlreadyReviewed)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLeaveReviewMissing(t *testing.T) {
	repo, mock := newLeaveRepo(t)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT status FROM leave_requests")).WillReturnError(sql.ErrNoRows)
	mock.ExpectRollback()

	_, err := repo.Review(context.Background(), "nope", models.LeaveRejected, "admin-1", nil)
	assert.ErrorIs(t, err, sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLeaveCountPending(t *testing.T) {
	repo, mock := newLeaveRepo(t)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM leave_requests WHERE status = $1")).
		WithArgs(models.LeavePending).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(5))

	n, err := repo.CountPending(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 5, n)
}
