// Package eventsprovider talks to the upstream events provider: cursor
// pages of changed events, seat availability and member registration.
package eventsprovider

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/events-aggregator/pkg/httpclient"
)

const (
	DefaultBaseURL  = "http://events-provider.dev-1.python-labs.ru"
	apiKeyHeader    = "x-api-key"
	changedAtLayout = "2006-01-02"
)

// ErrUnavailable is returned once transient provider failures exhaust retries.
var ErrUnavailable = httpclient.ErrUnavailable

var errAPIKeyRequired = errors.New("events provider api key is required")

// Config carries the connection settings of the provider.
type Config struct {
	BaseURL     string
	APIKey      string
	Timeouts    httpclient.Timeouts
	MaxAttempts int
	RetryBase   time.Duration
}

// Client is the production provider client.
type Client struct {
	http *httpclient.Client
}

// NewClient builds the provider client. Extra options are applied after the
// defaults derived from cfg.
func NewClient(cfg Config, opts ...httpclient.Option) (*Client, error) {
	apiKey := strings.TrimSpace(cfg.APIKey)
	if apiKey == "" {
		return nil, errAPIKeyRequired
	}
	baseURL := cfg.BaseURL
	if strings.TrimSpace(baseURL) == "" {
		baseURL = DefaultBaseURL
	}

	base := []httpclient.Option{
		httpclient.WithName("events provider"),
		httpclient.WithHeader(apiKeyHeader, apiKey),
		httpclient.WithRetry(cfg.MaxAttempts, cfg.RetryBase),
	}
	httpClient, err := httpclient.New(baseURL, cfg.Timeouts, append(base, opts...)...)
	if err != nil {
		return nil, fmt.Errorf("events provider client: %w", err)
	}
	return &Client{http: httpClient}, nil
}

// FetchChangedPage returns one page of events changed since changedAt. An
// empty cursor requests the first page.
func (c *Client) FetchChangedPage(ctx context.Context, changedAt time.Time, cursor string) (*Page, error) {
	query := url.Values{}
	query.Set("changed_at", changedAt.UTC().Format(changedAtLayout))
	if cursor != "" {
		query.Set("cursor", cursor)
	}

	var page Page
	if err := c.http.Do(ctx, http.MethodGet, "/api/events/", query, nil, &page); err != nil {
		return nil, err
	}
	return &page, nil
}

// FetchSeats lists the seats still free for an event.
func (c *Client) FetchSeats(ctx context.Context, eventID uuid.UUID) ([]string, error) {
	var resp struct {
		Seats []string `json:"seats"`
	}
	path := fmt.Sprintf("/api/events/%s/seats/", eventID)
	if err := c.http.Do(ctx, http.MethodGet, path, nil, nil, &resp); err != nil {
		return nil, err
	}
	if resp.Seats == nil {
		resp.Seats = []string{}
	}
	return resp.Seats, nil
}

// Register books a seat and returns the ticket issued by the provider.
func (c *Client) Register(ctx context.Context, eventID uuid.UUID, member Member) (uuid.UUID, error) {
	var resp struct {
		TicketID uuid.UUID `json:"ticket_id"`
	}
	path := fmt.Sprintf("/api/events/%s/register/", eventID)
	if err := c.http.Do(ctx, http.MethodPost, path, nil, member, &resp); err != nil {
		return uuid.Nil, err
	}
	if resp.TicketID == uuid.Nil {
		return uuid.Nil, errors.New("events provider returned no ticket id")
	}
	return resp.TicketID, nil
}

// Unregister releases a ticket on the provider side.
func (c *Client) Unregister(ctx context.Context, eventID, ticketID uuid.UUID) error {
	path := fmt.Sprintf("/api/events/%s/unregister/", eventID)
	body := map[string]string{"ticket_id": ticketID.String()}
	return c.http.Do(ctx, http.MethodDelete, path, nil, body, nil)
}
