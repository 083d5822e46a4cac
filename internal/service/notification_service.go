package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/brgy-records-api/internal/models"
	appErrors "github.com/noah-isme/brgy-records-api/pkg/errors"
	"github.com/noah-isme/brgy-records-api/pkg/jobs"
	"github.com/noah-isme/brgy-records-api/pkg/notify"
)

// JobTypeNotification tags notification deliveries on the job queue.
const JobTypeNotification = "notification"

type notificationStore interface {
	Create(ctx context.Context, n *models.Notification) error
	List(ctx context.Context, userID string, filter models.NotificationFilter) ([]models.Notification, int, error)
	MarkRead(ctx context.Context, userID, id string) error
	CountUnread(ctx context.Context, userID string) (int, error)
}

type jobQueue interface {
	Enqueue(job jobs.Job) error
}

// NotificationPage is one page of a user's inbox.
type NotificationPage struct {
	Items      []models.Notification `json:"items"`
	Unread     int                   `json:"unread"`
	Pagination *models.Pagination    `json:"pagination"`
}

// NotificationService owns the inbox and fans messages out to the configured
// sink. Notify never blocks and never fails its caller; delivery happens on
// the job queue.
type NotificationService struct {
	store   notificationStore
	sink    notify.Sink
	queue   jobQueue
	metrics *MetricsService
	logger  *zap.Logger
	now     func() time.Time
}

// NewNotificationService constructs the service. Call AttachQueue before
// Notify is used; without a queue messages are delivered inline.
func NewNotificationService(store notificationStore, sink notify.Sink, metrics *MetricsService, logger *zap.Logger) *NotificationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if sink == nil {
		sink = notify.NewLogSink(logger)
	}
	return &NotificationService{store: store, sink: sink, metrics: metrics, logger: logger, now: func() time.Time { return time.Now().UTC() }}
}

// AttachQueue sets the queue that Notify enqueues onto. The queue's handler
// should be Handle.
func (s *NotificationService) AttachQueue(q jobQueue) {
	s.queue = q
}

// Notify schedules one notification per recipient.
func (s *NotificationService) Notify(ctx context.Context, userIDs []string, kind, title, body string) {
	for _, uid := range userIDs {
		n := models.Notification{
			ID:        uuid.NewString(),
			UserID:    uid,
			Kind:      kind,
			Title:     title,
			Body:      body,
			CreatedAt: s.now(),
		}
		if s.queue == nil {
			if err := s.deliver(ctx, n); err != nil {
				s.logger.Warn("notification delivery failed", zap.String("user_id", uid), zap.String("kind", kind), zap.Error(err))
			}
			continue
		}
		err := s.queue.Enqueue(jobs.Job{ID: n.ID, Type: JobTypeNotification, Payload: n, Enqueued: n.CreatedAt})
		if err != nil {
			s.metrics.ObserveNotification("queue", err)
			s.logger.Warn("notification dropped", zap.String("user_id", uid), zap.String("kind", kind), zap.Error(err))
		}
	}
}

// Handle is the job queue handler for JobTypeNotification.
func (s *NotificationService) Handle(ctx context.Context, job jobs.Job) error {
	n, ok := job.Payload.(models.Notification)
	if !ok {
		return fmt.Errorf("unexpected notification payload %T", job.Payload)
	}
	return s.deliver(ctx, n)
}

// deliver stores the inbox row then pushes to the sink. The inbox insert is
// idempotent so a retried job does not duplicate it.
func (s *NotificationService) deliver(ctx context.Context, n models.Notification) error {
	if err := s.store.Create(ctx, &n); err != nil {
		s.metrics.ObserveNotification("inbox", err)
		return err
	}
	err := s.sink.Send(ctx, notify.Message{
		ID:        n.ID,
		UserID:    n.UserID,
		Kind:      n.Kind,
		Title:     n.Title,
		Body:      n.Body,
		CreatedAt: n.CreatedAt,
	})
	s.metrics.ObserveNotification(s.sink.Name(), err)
	return err
}

// List returns the caller's inbox.
func (s *NotificationService) List(ctx context.Context, caller models.Caller, filter models.NotificationFilter) (*NotificationPage, error) {
	if err := requireCaller(caller); err != nil {
		return nil, err
	}
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.PageSize <= 0 || filter.PageSize > 100 {
		filter.PageSize = 20
	}
	items, total, err := s.store.List(ctx, caller.UserID, filter)
	if err != nil {
		return nil, appErrors.Storage(err, "failed to list notifications")
	}
	unread, err := s.store.CountUnread(ctx, caller.UserID)
	if err != nil {
		return nil, appErrors.Storage(err, "failed to count notifications")
	}
	if items == nil {
		items = []models.Notification{}
	}
	return &NotificationPage{Items: items, Unread: unread, Pagination: models.NewPagination(filter.Page, filter.PageSize, total)}, nil
}

// MarkRead marks one of the caller's notifications as read.
func (s *NotificationService) MarkRead(ctx context.Context, caller models.Caller, id string) error {
	if err := requireCaller(caller); err != nil {
		return err
	}
	if err := s.store.MarkRead(ctx, caller.UserID, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "notification not found")
		}
		return appErrors.Storage(err, "failed to mark notification read")
	}
	return nil
}
