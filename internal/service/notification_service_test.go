package service

import (
	"context"
	"database/sql"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/brgy-records-api/internal/models"
	appErrors "github.com/noah-isme/brgy-records-api/pkg/errors"
	"github.com/noah-isme/brgy-records-api/pkg/jobs"
	"github.com/noah-isme/brgy-records-api/pkg/notify"
)

type fakeNotificationStore struct {
	mu         sync.Mutex
	created    map[string]models.Notification
	createErr  error
	listFilter models.NotificationFilter
	unread     int
	markErr    error
}

func (f *fakeNotificationStore) Create(ctx context.Context, n *models.Notification) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return f.createErr
	}
	if f.created == nil {
		f.created = map[string]models.Notification{}
	}
	f.created[n.ID] = *n
	return nil
}

func (f *fakeNotificationStore) List(ctx context.Context, userID string, filter models.NotificationFilter) ([]models.Notification, int, error) {
	f.listFilter = filter
	return nil, 0, nil
}

func (f *fakeNotificationStore) MarkRead(ctx context.Context, userID, id string) error {
	return f.markErr
}

func (f *fakeNotificationStore) CountUnread(ctx context.Context, userID string) (int, error) {
	return f.unread, nil
}

func (f *fakeNotificationStore) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.created)
}

type recordingSink struct {
	mu   sync.Mutex
	msgs []notify.Message
	err  error
}

func (s *recordingSink) Name() string { return "test" }

func (s *recordingSink) Send(ctx context.Context, msg notify.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.msgs = append(s.msgs, msg)
	return s.err
}

func (s *recordingSink) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.msgs)
}

func TestNotificationNotifyInlineWithoutQueue(t *testing.T) {
	store := &fakeNotificationStore{}
	sink := &recordingSink{}
	metrics := NewMetricsService()
	svc := NewNotificationService(store, sink, metrics, nil)

	svc.Notify(context.Background(), []string{"a", "b"}, models.NotificationLeaveFiled, "New leave request", "body")

	assert.Equal(t, 2, store.count())
	require.Equal(t, 2, sink.count())
	assert.Equal(t, "New leave request", sink.msgs[0].Title)
	assert.NotEqual(t, sink.msgs[0].ID, sink.msgs[1].ID)
	assert.Equal(t, float64(2), testutil.ToFloat64(metrics.notifications.WithLabelValues("test", outcomeOK)))
}

func TestNotificationSinkFailureIsSwallowed(t *testing.T) {
	store := &fakeNotificationStore{}
	sink := &recordingSink{err: errors.New("broker offline")}
	metrics := NewMetricsService()
	svc := NewNotificationService(store, sink, metrics, nil)

	assert.NotPanics(t, func() {
		svc.Notify(context.Background(), []string{"a"}, models.NotificationLeaveApproved, "t", "b")
	})
	assert.Equal(t, 1, store.count())
	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.notifications.WithLabelValues("test", outcomeError)))
}

func TestNotificationInboxFailureSkipsSink(t *testing.T) {
	store := &fakeNotificationStore{createErr: errors.New("insert failed")}
	sink := &recordingSink{}
	svc := NewNotificationService(store, sink, nil, nil)

	svc.Notify(context.Background(), []string{"a"}, models.NotificationLeaveApproved, "t", "b")
	assert.Equal(t, 0, sink.count())
}

func TestNotificationDeliveredThroughQueue(t *testing.T) {
	store := &fakeNotificationStore{}
	sink := &recordingSink{}
	svc := NewNotificationService(store, sink, nil, nil)

	queue := jobs.NewQueue("notifications", svc.Handle, jobs.QueueConfig{Workers: 2, BufferSize: 8, MaxRetries: 1, RetryDelay: time.Millisecond})
	queue.Start(context.Background())
	defer queue.Stop()
	svc.AttachQueue(queue)

	svc.Notify(context.Background(), []string{"a", "b", "c"}, models.NotificationLeaveFiled, "t", "b")

	require.Eventually(t, func() bool { return sink.count() == 3 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, 3, store.count())
}

func TestNotificationStoppedQueueDropsQuietly(t *testing.T) {
	store := &fakeNotificationStore{}
	svc := NewNotificationService(store, &recordingSink{}, NewMetricsService(), nil)
	svc.AttachQueue(jobs.NewQueue("notifications", svc.Handle, jobs.QueueConfig{Workers: 1, BufferSize: 1}))

	svc.Notify(context.Background(), []string{"a"}, models.NotificationLeaveFiled, "t", "b")
	assert.Equal(t, 0, store.count())
}

func TestNotificationHandleRejectsForeignPayload(t *testing.T) {
	svc := NewNotificationService(&fakeNotificationStore{}, &recordingSink{}, nil, nil)
	err := svc.Handle(context.Background(), jobs.Job{Type: JobTypeNotification, Payload: "nope"})
	assert.Error(t, err)
}

func TestNotificationListAndMarkRead(t *testing.T) {
	store := &fakeNotificationStore{unread: 4}
	svc := NewNotificationService(store, nil, nil, nil)

	page, err := svc.List(context.Background(), staffCaller, models.NotificationFilter{UnreadOnly: true, PageSize: 500})
	require.NoError(t, err)
	assert.Equal(t, 4, page.Unread)
	assert.NotNil(t, page.Items)
	assert.Equal(t, 20, store.listFilter.PageSize)
	assert.True(t, store.listFilter.UnreadOnly)

	require.NoError(t, svc.MarkRead(context.Background(), staffCaller, "n1"))

	store.markErr = sql.ErrNoRows
	assert.True(t, appErrors.Is(svc.MarkRead(context.Background(), staffCaller, "n1"), appErrors.ErrNotFound))

	_, err = svc.List(context.Background(), models.Caller{}, models.NotificationFilter{})
	assert.True(t, appErrors.Is(err, appErrors.ErrUnauthorized))
}
