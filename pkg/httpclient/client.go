// Package httpclient is the JSON transport shared by upstream API clients.
package httpclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sethvargo/go-retry"

	"github.com/angelmondragon/events-aggregator/pkg/logger"
)

const (
	defaultMaxAttempts        = 3
	defaultRetryBase          = 200 * time.Millisecond
	maxRetryDelay             = 5 * time.Second
	responseBodyLimit   int64 = 1 << 20
	errorMessageLimit         = 1024
)

var errBaseURLRequired = errors.New("base url is required")

// Timeouts bounds a single upstream request.
type Timeouts struct {
	Total   time.Duration
	Connect time.Duration
}

// Validate requires both bounds and a connect timeout strictly shorter than
// the total one.
func (t Timeouts) Validate() error {
	if t.Total <= 0 || t.Connect <= 0 {
		return fmt.Errorf("timeouts must be positive (total=%s connect=%s)", t.Total, t.Connect)
	}
	if t.Connect >= t.Total {
		return fmt.Errorf("connect timeout %s must be shorter than total timeout %s", t.Connect, t.Total)
	}
	return nil
}

// Client issues JSON requests against one base URL and retries transient
// failures with exponential backoff.
type Client struct {
	name        string
	baseURL     string
	httpClient  *http.Client
	headers     http.Header
	maxAttempts int
	retryBase   time.Duration
	logg        *logger.Logger
}

// Option configures optional client behavior.
type Option func(*Client)

// WithHTTPClient overrides the timeout-bound default client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithHeader adds a header sent on every request.
func WithHeader(key, value string) Option {
	return func(c *Client) {
		c.headers.Set(key, value)
	}
}

// WithRetry sets the attempt cap (first try included) and the initial backoff.
func WithRetry(maxAttempts int, base time.Duration) Option {
	return func(c *Client) {
		if maxAttempts > 0 {
			c.maxAttempts = maxAttempts
		}
		if base > 0 {
			c.retryBase = base
		}
	}
}

// WithLogger logs every retried failure.
func WithLogger(logg *logger.Logger) Option {
	return func(c *Client) {
		c.logg = logg
	}
}

// WithName labels log lines for this upstream.
func WithName(name string) Option {
	return func(c *Client) {
		c.name = strings.TrimSpace(name)
	}
}

// New builds a client whose transport enforces the connect and total timeouts.
func New(baseURL string, timeouts Timeouts, opts ...Option) (*Client, error) {
	trimmed := strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if trimmed == "" {
		return nil, errBaseURLRequired
	}
	if err := timeouts.Validate(); err != nil {
		return nil, err
	}

	client := &Client{
		name:        "upstream",
		baseURL:     trimmed,
		httpClient:  newHTTPClient(timeouts),
		headers:     http.Header{},
		maxAttempts: defaultMaxAttempts,
		retryBase:   defaultRetryBase,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(client)
		}
	}
	return client, nil
}

func newHTTPClient(timeouts Timeouts) *http.Client {
	dialer := &net.Dialer{Timeout: timeouts.Connect, KeepAlive: 30 * time.Second}
	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.DialContext = dialer.DialContext
	transport.TLSHandshakeTimeout = timeouts.Connect
	return &http.Client{Transport: transport, Timeout: timeouts.Total}
}

// Do sends body as JSON and decodes a 2xx response into out. Transient
// failures are retried; once the attempts run out the last failure comes
// back wrapped in an UnavailableError. Terminal failures return as is.
func (c *Client) Do(ctx context.Context, method, path string, query url.Values, body, out any) error {
	target := c.buildURL(path, query)

	var payload []byte
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal %s request: %w", c.name, err)
		}
		payload = encoded
	}

	backoff := retry.NewExponential(c.retryBase)
	backoff = retry.WithCappedDuration(maxRetryDelay, backoff)
	backoff = retry.WithMaxRetries(uint64(c.maxAttempts-1), backoff)

	attempts := 0
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		attempts++
		err := c.once(ctx, method, target, payload, out)
		if err == nil || !Retryable(err) {
			return err
		}
		if c.logg != nil && attempts < c.maxAttempts {
			logCtx := c.logg.WithFields(ctx, map[string]any{
				"upstream": c.name,
				"method":   method,
				"url":      target,
				"attempt":  attempts,
			})
			c.logg.Warn(logCtx, fmt.Sprintf("%s request failed, retrying: %v", c.name, err))
		}
		return retry.RetryableError(err)
	})
	if err != nil && Retryable(err) {
		return &UnavailableError{Attempts: attempts, Err: err}
	}
	return err
}

func (c *Client) once(ctx context.Context, method, target string, payload []byte, out any) error {
	var reader io.Reader
	if payload != nil {
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return fmt.Errorf("build %s request: %w", c.name, err)
	}
	for key, values := range c.headers {
		for _, value := range values {
			req.Header.Add(key, value)
		}
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(io.LimitReader(resp.Body, responseBodyLimit))
	if err != nil {
		return err
	}
	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return &StatusError{
			StatusCode: resp.StatusCode,
			Message:    errorMessage(resp.StatusCode, data),
			URL:        target,
		}
	}
	if out == nil || len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode %s response: %w", c.name, err)
	}
	return nil
}

func (c *Client) buildURL(path string, query url.Values) string {
	target := fmt.Sprintf("%s/%s", c.baseURL, strings.TrimLeft(path, "/"))
	if len(query) > 0 {
		target += "?" + query.Encode()
	}
	return target
}

// errorMessage prefers the upstream's "detail" or "message" field and falls
// back to the raw body.
func errorMessage(status int, body []byte) string {
	var parsed struct {
		Detail  any    `json:"detail"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body, &parsed); err == nil {
		if detail, ok := parsed.Detail.(string); ok && detail != "" {
			return detail
		}
		if parsed.Message != "" {
			return parsed.Message
		}
	}
	msg := strings.TrimSpace(string(body))
	if len(msg) > errorMessageLimit {
		msg = msg[:errorMessageLimit]
	}
	if msg == "" {
		return http.StatusText(status)
	}
	return msg
}
