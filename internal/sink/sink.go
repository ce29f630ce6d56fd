package sink

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-redis/redis/v8"
)

// Sink is the remote notification endpoint. It exists for human-readable
// audit and cross-device visibility; it is not the durability layer and
// gives no delivery acknowledgement.
type Sink interface {
	Send(ctx context.Context, payload interface{}) error
}

// WebhookSink posts JSON payloads to an HTTP endpoint
type WebhookSink struct {
	url    string
	client *http.Client
}

// NewWebhookSink creates a sink posting to url
func NewWebhookSink(url string) *WebhookSink {
	return &WebhookSink{
		url:    url,
		client: &http.Client{Timeout: 10 * time.Second},
	}
}

func (s *WebhookSink) Send(ctx context.Context, payload interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal sink payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("sink returned status %d", resp.StatusCode)
	}
	return nil
}

// RedisSink pushes JSON payloads onto a Redis list
type RedisSink struct {
	client *redis.Client
	key    string
}

// NewRedisSink creates a sink appending to the given list key
func NewRedisSink(client *redis.Client, key string) *RedisSink {
	return &RedisSink{client: client, key: key}
}

func (s *RedisSink) Send(ctx context.Context, payload interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal sink payload: %w", err)
	}
	return s.client.RPush(ctx, s.key, body).Err()
}

// NopSink discards every payload
type NopSink struct{}

func (NopSink) Send(ctx context.Context, payload interface{}) error {
	return nil
}
