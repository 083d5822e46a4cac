package notify

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/noah-isme/brgy-records-api/pkg/config"
)

// WebhookSink POSTs each message as JSON to a configured URL.
type WebhookSink struct {
	client *resty.Client
	url    string
}

// NewWebhookSink configures a resty client with the timeout and retry budget from cfg.
func NewWebhookSink(cfg config.NotifyConfig) (*WebhookSink, error) {
	if cfg.WebhookURL == "" {
		return nil, fmt.Errorf("webhook url required")
	}
	client := resty.New().
		SetTimeout(cfg.WebhookTimeout).
		SetRetryCount(cfg.WebhookRetries).
		SetRetryWaitTime(200*time.Millisecond).
		SetRetryMaxWaitTime(2*time.Second).
		AddRetryCondition(func(r *resty.Response, err error) bool {
			return err != nil || r.StatusCode() >= 500
		}).
		SetHeader("Content-Type", "application/json")
	return &WebhookSink{client: client, url: cfg.WebhookURL}, nil
}

func (s *WebhookSink) Name() string { return config.NotifyDriverWebhook }

func (s *WebhookSink) Send(ctx context.Context, msg Message) error {
	resp, err := s.client.R().
		SetContext(ctx).
		SetHeader("X-Notification-ID", msg.ID).
		SetBody(msg).
		Post(s.url)
	if err != nil {
		return fmt.Errorf("post webhook: %w", err)
	}
	if resp.IsError() {
		return fmt.Errorf("webhook responded %d", resp.StatusCode())
	}
	return nil
}
