// Package notifier posts user notifications to the downstream notification
// service.
package notifier

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/angelmondragon/events-aggregator/pkg/httpclient"
)

const (
	notificationsPath = "/api/notifications"
	apiKeyHeader      = "X-API-key"
)

var (
	errAPIKeyRequired  = errors.New("notification api key is required")
	errBaseURLRequired = errors.New("notification base url is required")
)

// Notification is the rendered body accepted by the notification service.
// IdempotencyKey lets the service drop duplicates of a redelivered item.
type Notification struct {
	Message        string `json:"message"`
	ReferenceID    string `json:"reference_id"`
	IdempotencyKey string `json:"idempotency_key"`
}

// Config carries the connection settings of the notification service.
type Config struct {
	BaseURL     string
	APIKey      string
	Timeouts    httpclient.Timeouts
	MaxAttempts int
	RetryBase   time.Duration
}

// Client is the production notification client.
type Client struct {
	http *httpclient.Client
}

func NewClient(cfg Config, opts ...httpclient.Option) (*Client, error) {
	if strings.TrimSpace(cfg.BaseURL) == "" {
		return nil, errBaseURLRequired
	}
	apiKey := strings.TrimSpace(cfg.APIKey)
	if apiKey == "" {
		return nil, errAPIKeyRequired
	}

	base := []httpclient.Option{
		httpclient.WithName("notification service"),
		httpclient.WithHeader(apiKeyHeader, apiKey),
		httpclient.WithRetry(cfg.MaxAttempts, cfg.RetryBase),
	}
	httpClient, err := httpclient.New(cfg.BaseURL, cfg.Timeouts, append(base, opts...)...)
	if err != nil {
		return nil, fmt.Errorf("notification client: %w", err)
	}
	return &Client{http: httpClient}, nil
}

// Notify posts one notification.
func (c *Client) Notify(ctx context.Context, n Notification) error {
	return c.http.Do(ctx, http.MethodPost, notificationsPath, nil, n, nil)
}
