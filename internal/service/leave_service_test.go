package service

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/brgy-records-api/internal/models"
	"github.com/noah-isme/brgy-records-api/internal/repository"
	appErrors "github.com/noah-isme/brgy-records-api/pkg/errors"
)

type fakeLeaveStore struct {
	created    []*models.LeaveRequest
	listFilter models.LeaveFilter
	reviewErr  error
	reviewed   *models.LeaveRequest
	reviewNote *string
}

func (f *fakeLeaveStore) Create(ctx context.Context, leave *models.LeaveRequest) error {
	leave.ID = "leave-1"
	leave.Status = models.LeavePending
	f.created = append(f.created, leave)
	return nil
}

func (f *fakeLeaveStore) List(ctx context.Context, filter models.LeaveFilter) ([]models.LeaveRequest, int, error) {
	f.listFilter = filter
	return []models.LeaveRequest{}, 0, nil
}

func (f *fakeLeaveStore) Review(ctx context.Context, id string, status models.LeaveStatus, reviewer string, note *string) (*models.LeaveRequest, error) {
	if f.reviewErr != nil {
		return nil, f.reviewErr
	}
	f.reviewNote = note
	leave := *f.reviewed
	leave.Status = status
	leave.ReviewedBy = &reviewer
	return &leave, nil
}

type fakeReviewers struct {
	ids []string
	err error
}

func (f fakeReviewers) ListActiveIDsByRole(ctx context.Context, roles ...models.UserRole) ([]string, error) {
	return append([]string(nil), f.ids...), f.err
}

type sentNotification struct {
	userIDs []string
	kind    string
	title   string
	body    string
}

type fakeNotifier struct {
	sent []sentNotification
}

func (f *fakeNotifier) Notify(ctx context.Context, userIDs []string, kind, title, body string) {
	f.sent = append(f.sent, sentNotification{userIDs: userIDs, kind: kind, title: title, body: body})
}

func newLeaveFixture(store *fakeLeaveStore, reviewers fakeReviewers) (*LeaveService, *fakeNotifier, *fakeCacheRepo, *fakeAuditRepo) {
	notifier := &fakeNotifier{}
	cache := &fakeCacheRepo{}
	audit := &fakeAuditRepo{}
	svc := NewLeaveService(store, reviewers, notifier, NewAuditService(audit, nil), NewCacheService(cache, nil, time.Minute, nil, true), nil, nil)
	return svc, notifier, cache, audit
}

func TestLeaveFileNotifiesOtherAdmins(t *testing.T) {
	store := &fakeLeaveStore{}
	svc, notifier, cache, _ := newLeaveFixture(store, fakeReviewers{ids: []string{"admin-a", staffCaller.UserID, "admin-b"}})

	leave, err := svc.File(context.Background(), staffCaller, models.FileLeaveRequest{
		LeaveType: models.LeaveSick,
		StartDate: models.NewDate(2025, time.June, 2),
		EndDate:   models.NewDate(2025, time.June, 4),
		Reason:    "  flu ",
	})
	require.NoError(t, err)
	assert.Equal(t, models.LeavePending, leave.Status)
	assert.Equal(t, staffCaller.UserID, leave.UserID)
	assert.Equal(t, "flu", leave.Reason)
	assert.Contains(t, cache.deleted, cacheKeyDashboard)

	require.Len(t, notifier.sent, 1)
	assert.Equal(t, []string{"admin-a", "admin-b"}, notifier.sent[0].userIDs)
	assert.Equal(t, models.NotificationLeaveFiled, notifier.sent[0].kind)
	assert.Equal(t, "Sick leave from 2025-06-02 to 2025-06-04 (3 day(s)).", notifier.sent[0].body)
}

func TestLeaveFileReviewerLookupFailureStillFiles(t *testing.T) {
	store := &fakeLeaveStore{}
	svc, notifier, _, _ := newLeaveFixture(store, fakeReviewers{err: errors.New("db down")})

	_, err := svc.File(context.Background(), staffCaller, models.FileLeaveRequest{
		LeaveType: models.LeaveVacation,
		StartDate: models.NewDate(2025, time.June, 2),
		EndDate:   models.NewDate(2025, time.June, 2),
	})
	require.NoError(t, err)
	assert.Len(t, store.created, 1)
	assert.Empty(t, notifier.sent)
}

func TestLeaveFileValidation(t *testing.T) {
	svc, _, _, _ := newLeaveFixture(&fakeLeaveStore{}, fakeReviewers{})

	_, err := svc.File(context.Background(), staffCaller, models.FileLeaveRequest{
		LeaveType: models.LeaveSick,
		StartDate: models.NewDate(2025, time.June, 4),
		EndDate:   models.NewDate(2025, time.June, 2),
	})
	assert.True(t, appErrors.Is(err, appErrors.ErrValidation))

	_, err = svc.File(context.Background(), staffCaller, models.FileLeaveRequest{LeaveType: models.LeaveSick})
	assert.True(t, appErrors.Is(err, appErrors.ErrValidation))

	_, err = svc.File(context.Background(), staffCaller, models.FileLeaveRequest{
		LeaveType: "SABBATICAL",
		StartDate: models.NewDate(2025, time.June, 2),
		EndDate:   models.NewDate(2025, time.June, 2),
	})
	assert.True(t, appErrors.Is(err, appErrors.ErrValidation))

	_, err = svc.File(context.Background(), studentCaller, models.FileLeaveRequest{})
	assert.True(t, appErrors.Is(err, appErrors.ErrForbidden))
}

func TestLeaveListScopesNonAdmins(t *testing.T) {
	store := &fakeLeaveStore{}
	svc, _, _, _ := newLeaveFixture(store, fakeReviewers{})

	other := "someone"
	_, _, err := svc.List(context.Background(), staffCaller, models.LeaveFilter{UserID: &other})
	require.NoError(t, err)
	assert.Equal(t, staffCaller.UserID, *store.listFilter.UserID)
	assert.Equal(t, 20, store.listFilter.PageSize)

	_, _, err = svc.List(context.Background(), adminCaller, models.LeaveFilter{UserID: &other})
	require.NoError(t, err)
	assert.Equal(t, other, *store.listFilter.UserID)

	bad := models.LeaveStatus("LOST")
	_, _, err = svc.List(context.Background(), adminCaller, models.LeaveFilter{Status: &bad})
	assert.True(t, appErrors.Is(err, appErrors.ErrValidation))
}

func TestLeaveApproveNotifiesRequester(t *testing.T) {
	store := &fakeLeaveStore{reviewed: &models.LeaveRequest{
		ID: "leave-1", UserID: staffCaller.UserID, LeaveType: models.LeaveVacation,
		StartDate: models.NewDate(2025, time.July, 1), EndDate: models.NewDate(2025, time.July, 2),
	}}
	svc, notifier, cache, audit := newLeaveFixture(store, fakeReviewers{})

	leave, err := svc.Approve(context.Background(), adminCaller, "leave-1", models.ReviewLeaveRequest{Note: " enjoy "})
	require.NoError(t, err)
	assert.Equal(t, models.LeaveApproved, leave.Status)
	assert.Equal(t, "enjoy", *store.reviewNote)
	assert.Contains(t, cache.deleted, cacheKeyDashboard)

	require.Len(t, audit.entries, 1)
	assert.Equal(t, models.AuditActionLeaveReview, audit.entries[0].Action)

	require.Len(t, notifier.sent, 1)
	assert.Equal(t, []string{staffCaller.UserID}, notifier.sent[0].userIDs)
	assert.Equal(t, models.NotificationLeaveApproved, notifier.sent[0].kind)
	assert.Equal(t, "Your vacation leave from 2025-07-01 to 2025-07-02 was approved. Note: enjoy", notifier.sent[0].body)
}

func TestLeaveRejectWithoutNote(t *testing.T) {
	store := &fakeLeaveStore{reviewed: &models.LeaveRequest{ID: "leave-1", UserID: "u", LeaveType: models.LeaveOther}}
	svc, notifier, _, _ := newLeaveFixture(store, fakeReviewers{})

	leave, err := svc.Reject(context.Background(), adminCaller, "leave-1", models.ReviewLeaveRequest{})
	require.NoError(t, err)
	assert.Equal(t, models.LeaveRejected, leave.Status)
	assert.Nil(t, store.reviewNote)
	assert.Equal(t, models.NotificationLeaveRejected, notifier.sent[0].kind)
}

func TestLeaveReviewErrors(t *testing.T) {
	cases := []struct {
		err    error
		target *appErrors.Error
	}{
		{sql.ErrNoRows, appErrors.ErrNotFound},
		{repository.ErrLeaveAlreadyReviewed, appErrors.ErrConflict},
		{errors.New("boom"), appErrors.ErrStorage},
	}
	for _, tc := range cases {
		svc, notifier, _, _ := newLeaveFixture(&fakeLeaveStore{reviewErr: tc.err}, fakeReviewers{})
		_, err := svc.Approve(context.Background(), adminCaller, "x", models.ReviewLeaveRequest{})
		assert.True(t, appErrors.Is(err, tc.target), "for %v got %v", tc.err, err)
		assert.Empty(t, notifier.sent)
	}

	svc, _, _, _ := newLeaveFixture(&fakeLeaveStore{}, fakeReviewers{})
	_, err := svc.Approve(context.Background(), staffCaller, "x", models.ReviewLeaveRequest{})
	assert.True(t, appErrors.Is(err, appErrors.ErrForbidden))
}
