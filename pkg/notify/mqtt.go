package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/noah-isme/brgy-records-api/pkg/config"
)

const mqttQoS byte = 1

type publisher interface {
	Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token
}

// MQTTSink publishes messages to <topic>/<user_id>.
type MQTTSink struct {
	client  publisher
	topic   string
	timeout time.Duration
	close   func()
}

// DialMQTT connects to the broker in cfg.
func DialMQTT(cfg config.NotifyConfig) (*MQTTSink, error) {
	opts := mqtt.NewClientOptions().
		AddBroker(cfg.MQTTBroker).
		SetClientID(cfg.MQTTClientID).
		SetAutoReconnect(true).
		SetCleanSession(true).
		SetConnectTimeout(10 * time.Second)
	if cfg.MQTTUsername != "" {
		opts.SetUsername(cfg.MQTTUsername)
	}
	if cfg.MQTTPassword != "" {
		opts.SetPassword(cfg.MQTTPassword)
	}

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("connect mqtt broker: %w", token.Error())
	}

	sink := newMQTTSink(client, cfg.MQTTTopic)
	sink.close = func() { client.Disconnect(250) }
	return sink, nil
}

func newMQTTSink(client publisher, topic string) *MQTTSink {
	return &MQTTSink{client: client, topic: strings.TrimRight(topic, "/"), timeout: 5 * time.Second, close: func() {}}
}

func (s *MQTTSink) Name() string { return config.NotifyDriverMQTT }

func (s *MQTTSink) Send(ctx context.Context, msg Message) error {
	payload, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("encode notification: %w", err)
	}
	topic := s.topic + "/" + msg.UserID
	token := s.client.Publish(topic, mqttQoS, false, payload)

	select {
	case <-token.Done():
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(s.timeout):
		return fmt.Errorf("publish to %s timed out", topic)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("publish to %s: %w", topic, err)
	}
	return nil
}

// Close disconnects from the broker.
func (s *MQTTSink) Close() {
	s.close()
}
