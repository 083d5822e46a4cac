package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/brgy-records-api/internal/models"
	"github.com/noah-isme/brgy-records-api/internal/repository"
	appErrors "github.com/noah-isme/brgy-records-api/pkg/errors"
)

type leaveStore interface {
	Create(ctx context.Context, leave *models.LeaveRequest) error
	List(ctx context.Context, filter models.LeaveFilter) ([]models.LeaveRequest, int, error)
	Review(ctx context.Context, id string, status models.LeaveStatus, reviewer string, note *string) (*models.LeaveRequest, error)
}

type reviewerDirectory interface {
	ListActiveIDsByRole(ctx context.Context, roles ...models.UserRole) ([]string, error)
}

type notifier interface {
	Notify(ctx context.Context, userIDs []string, kind, title, body string)
}

// LeaveService lets staff file leave requests and admins decide them.
// Notifications go out after the write and never undo it.
type LeaveService struct {
	store     leaveStore
	reviewers reviewerDirectory
	notifier  notifier
	audit     *AuditService
	cache     *CacheService
	validator *validator.Validate
	logger    *zap.Logger
}

// NewLeaveService constructs the service.
func NewLeaveService(store leaveStore, reviewers reviewerDirectory, notifier notifier, audit *AuditService, cache *CacheService, validate *validator.Validate, logger *zap.Logger) *LeaveService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = NewValidator()
	}
	return &LeaveService{store: store, reviewers: reviewers, notifier: notifier, audit: audit, cache: cache, validator: validate, logger: logger}
}

// File records a PENDING leave for the caller and alerts the admins.
func (s *LeaveService) File(ctx context.Context, caller models.Caller, req models.FileLeaveRequest) (*models.LeaveRequest, error) {
	if err := requireWriter(caller); err != nil {
		return nil, err
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid leave request")
	}
	if req.StartDate.IsZero() || req.EndDate.IsZero() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "start_date and end_date are required")
	}
	if req.EndDate.Before(req.StartDate.Time) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "end_date must not be before start_date")
	}

	leave := &models.LeaveRequest{
		UserID:    caller.UserID,
		LeaveType: req.LeaveType,
		StartDate: req.StartDate,
		EndDate:   req.EndDate,
		Reason:    strings.TrimSpace(req.Reason),
	}
	if err := s.store.Create(ctx, leave); err != nil {
		return nil, appErrors.Storage(err, "failed to file leave request")
	}
	s.cache.Invalidate(ctx, cacheKeyDashboard)

	s.notifyAdmins(ctx, caller, leave)
	return leave, nil
}

// List returns leave requests. Non-admins only see their own.
func (s *LeaveService) List(ctx context.Context, caller models.Caller, filter models.LeaveFilter) ([]models.LeaveRequest, *models.Pagination, error) {
	if err := requireCaller(caller); err != nil {
		return nil, nil, err
	}
	if !caller.IsAdmin() {
		uid := caller.UserID
		filter.UserID = &uid
	}
	if filter.Status != nil {
		switch *filter.Status {
		case models.LeavePending, models.LeaveApproved, models.LeaveRejected:
		default:
			return nil, nil, appErrors.Clone(appErrors.ErrValidation, "unknown leave status")
		}
	}
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.PageSize <= 0 || filter.PageSize > 100 {
		filter.PageSize = 20
	}
	leaves, total, err := s.store.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Storage(err, "failed to list leave requests")
	}
	return leaves, models.NewPagination(filter.Page, filter.PageSize, total), nil
}

// Approve accepts a pending request.
func (s *LeaveService) Approve(ctx context.Context, caller models.Caller, id string, req models.ReviewLeaveRequest) (*models.LeaveRequest, error) {
	return s.review(ctx, caller, id, models.LeaveApproved, req)
}

// Reject declines a pending request.
func (s *LeaveService) Reject(ctx context.Context, caller models.Caller, id string, req models.ReviewLeaveRequest) (*models.LeaveRequest, error) {
	return s.review(ctx, caller, id, models.LeaveRejected, req)
}

func (s *LeaveService) review(ctx context.Context, caller models.Caller, id string, status models.LeaveStatus, req models.ReviewLeaveRequest) (*models.LeaveRequest, error) {
	if err := requireAdmin(caller); err != nil {
		return nil, err
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid review payload")
	}
	var note *string
	if trimmed := strings.TrimSpace(req.Note); trimmed != "" {
		note = &trimmed
	}

	leave, err := s.store.Review(ctx, id, status, caller.UserID, note)
	if err != nil {
		switch {
		case errors.Is(err, sql.ErrNoRows):
			return nil, appErrors.Clone(appErrors.ErrNotFound, "leave request not found")
		case errors.Is(err, repository.ErrLeaveAlreadyReviewed):
			return nil, appErrors.Clone(appErrors.ErrConflict, "leave request already reviewed")
		default:
			return nil, appErrors.Storage(err, "failed to review leave request")
		}
	}
	s.cache.Invalidate(ctx, cacheKeyDashboard)
	s.audit.Record(ctx, caller, models.AuditActionLeaveReview, models.AuditResourceLeaveRequest, id,
		map[string]models.LeaveStatus{"status": models.LeavePending}, map[string]interface{}{"status": status, "note": note})

	kind, verb := models.NotificationLeaveApproved, "approved"
	if status == models.LeaveRejected {
		kind, verb = models.NotificationLeaveRejected, "rejected"
	}
	body := fmt.Sprintf("Your %s leave from %s to %s was %s.", strings.ToLower(string(leave.LeaveType)), leave.StartDate, leave.EndDate, verb)
	if note != nil {
		body += " Note: " + *note
	}
	s.notify(ctx, []string{leave.UserID}, kind, "Leave request "+verb, body)
	return leave, nil
}

func (s *LeaveService) notifyAdmins(ctx context.Context, caller models.Caller, leave *models.LeaveRequest) {
	if s.reviewers == nil {
		return
	}
	ids, err := s.reviewers.ListActiveIDsByRole(ctx, models.RoleSuperAdmin, models.RoleAdmin)
	if err != nil {
		s.logger.Warn("failed to resolve leave reviewers", zap.String("leave_id", leave.ID), zap.Error(err))
		return
	}
	recipients := ids[:0]
	for _, id := range ids {
		if id != caller.UserID {
			recipients = append(recipients, id)
		}
	}
	label := strings.ToLower(string(leave.LeaveType))
	body := fmt.Sprintf("%s%s leave from %s to %s (%d day(s)).", strings.ToUpper(label[:1]), label[1:], leave.StartDate, leave.EndDate, leave.Days())
	s.notify(ctx, recipients, models.NotificationLeaveFiled, "New leave request", body)
}

func (s *LeaveService) notify(ctx context.Context, userIDs []string, kind, title, body string) {
	if s.notifier == nil || len(userIDs) == 0 {
		return
	}
	s.notifier.Notify(ctx, userIDs, kind, title, body)
}
