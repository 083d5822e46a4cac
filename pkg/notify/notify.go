// Package notify delivers user notifications to an external sink. The inbox
// row is owned by the caller; sinks only fan the message out.
package notify

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/brgy-records-api/pkg/config"
)

// Message is the payload pushed to every sink.
type Message struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Kind      string    `json:"kind"`
	Title     string    `json:"title"`
	Body      string    `json:"body,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Sink sends a message somewhere outside the database.
type Sink interface {
	Name() string
	Send(ctx context.Context, msg Message) error
}

// Closer releases sink resources on shutdown.
type Closer func()

// LogSink writes messages to the structured log only.
type LogSink struct {
	logger *zap.Logger
}

// NewLogSink builds a log-only sink.
func NewLogSink(logger *zap.Logger) *LogSink {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogSink{logger: logger}
}

func (s *LogSink) Name() string { return config.NotifyDriverLog }

func (s *LogSink) Send(_ context.Context, msg Message) error {
	s.logger.Info("notification",
		zap.String("notification_id", msg.ID),
		zap.String("user_id", msg.UserID),
		zap.String("kind", msg.Kind),
		zap.String("title", msg.Title),
	)
	return nil
}

// New builds the sink selected by cfg.Driver.
func New(cfg config.NotifyConfig, logger *zap.Logger) (Sink, Closer, error) {
	switch cfg.Driver {
	case "", config.NotifyDriverLog:
		return NewLogSink(logger), func() {}, nil
	case config.NotifyDriverWebhook:
		sink, err := NewWebhookSink(cfg)
		if err != nil {
			return nil, nil, err
		}
		return sink, func() {}, nil
	case config.NotifyDriverMQTT:
		sink, err := DialMQTT(cfg)
		if err != nil {
			return nil, nil, err
		}
		return sink, sink.Close, nil
	default:
		return nil, nil, fmt.Errorf("unknown notify driver %q", cfg.Driver)
	}
}
