package notify

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/noah-isme/brgy-records-api/pkg/config"
)

func sampleMessage() Message {
	return Message{ID: "n-1", UserID: "u-1", Kind: "LEAVE_FILED", Title: "New leave request", CreatedAt: time.Unix(0, 0).UTC()}
}

func TestLogSink(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	require.NoError(t, NewLogSink(zap.New(core)).Send(context.Background(), sampleMessage()))
	require.Equal(t, 1, logs.Len())
	assert.Equal(t, "LEAVE_FILED", logs.All()[0].ContextMap()["kind"])
}

func TestWebhookSinkPostsJSON(t *testing.T) {
	var got Message
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "n-1", r.Header.Get("X-Notification-ID"))
		body, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(body, &got)
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	sink, err := NewWebhookSink(config.NotifyConfig{WebhookURL: srv.URL, WebhookTimeout: time.Second})
	require.NoError(t, err)
	require.NoError(t, sink.Send(context.Background(), sampleMessage()))
	assert.Equal(t, "New leave request", got.Title)
}

func TestWebhookSinkRetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	sink, err := NewWebhookSink(config.NotifyConfig{WebhookURL: srv.URL, WebhookTimeout: time.Second, WebhookRetries: 2})
	require.NoError(t, err)
	err = sink.Send(context.Background(), sampleMessage())
	require.Error(t, err)
	assert.Equal(t, int32(3), calls.Load())
}

func TestWebhookSinkRequiresURL(t *testing.T) {
	_, err := NewWebhookSink(config.NotifyConfig{})
	assert.Error(t, err)
}

type fakeToken struct {
	err  error
	done chan struct{}
}

func newFakeToken(err error) *fakeToken {
	t := &fakeToken{err: err, done: make(chan struct{})}
	close(t.done)
	return t
}

func (t *fakeToken) Wait() bool                     { return true }
func (t *fakeToken) WaitTimeout(time.Duration) bool { return true }
func (t *fakeToken) Done() <-chan struct{}          { return t.done }
func (t *fakeToken) Error() error                   { return t.err }

type fakePublisher struct {
	topic   string
	payload []byte
	err     error
}

func (p *fakePublisher) Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token {
	p.topic = topic
	p.payload, _ = payload.([]byte)
	return newFakeToken(p.err)
}

func TestMQTTSinkPublishesPerUserTopic(t *testing.T) {
	pub := &fakePublisher{}
	sink := newMQTTSink(pub, "barangay/notifications/")

	require.NoError(t, sink.Send(context.Background(), sampleMessage()))
	assert.Equal(t, "barangay/notifications/u-1", pub.topic)

	var decoded Message
	require.NoError(t, json.Unmarshal(pub.payload, &decoded))
	assert.Equal(t, "n-1", decoded.ID)
}

func TestMQTTSinkSurfacesPublishError(t *testing.T) {
	sink := newMQTTSink(&fakePublisher{err: errors.New("not connected")}, "t")
	assert.ErrorContains(t, sink.Send(context.Background(), sampleMessage()), "not connected")
}

func TestNewSelectsDriver(t *testing.T) {
	sink, closer, err := New(config.NotifyConfig{Driver: config.NotifyDriverLog}, nil)
	require.NoError(t, err)
	closer()
	assert.Equal(t, "log", sink.Name())

	_, _, err = New(config.NotifyConfig{Driver: "pigeon"}, nil)
	assert.Error(t, err)
}
