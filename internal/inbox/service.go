// Package inbox guards network writes with persisted idempotency records.
package inbox

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/angelmondragon/events-aggregator/internal/uow"
	"github.com/angelmondragon/events-aggregator/pkg/db/models"
	"github.com/angelmondragon/events-aggregator/pkg/logger"
	"github.com/angelmondragon/events-aggregator/pkg/metrics"
)

const (
	// KeyField is the request body field carrying the idempotency key.
	KeyField = "idempotency_key"
	// MaxKeyLength matches the width of the inbox primary key.
	MaxKeyLength = 128
	DefaultTTL   = 24 * time.Hour
)

var ErrInvalidKey = errors.New("idempotency key must be 1-128 characters")

// Status is the outcome of an idempotency check.
type Status string

const (
	StatusNew      Status = "new"
	StatusCached   Status = "cached"
	StatusConflict Status = "conflict"
)

// CheckResult carries the hash to record for a new request, or the stored
// response for a replay.
type CheckResult struct {
	Status      Status
	RequestHash string
	Response    json.RawMessage
}

type ServiceParams struct {
	UnitOfWork uow.UnitOfWork
	Logger     *logger.Logger
	Metrics    *metrics.PipelineMetrics
	TTL        time.Duration
	// ServerFields are top-level body fields filled in by the server; they
	// never take part in the request hash.
	ServerFields []string
	Now          func() time.Time
}

type Service struct {
	uow     uow.UnitOfWork
	logg    *logger.Logger
	metrics *metrics.PipelineMetrics
	ttl     time.Duration
	ignored []string
	now     func() time.Time
}

func NewService(params ServiceParams) (*Service, error) {
	if params.UnitOfWork == nil {
		return nil, errors.New("unit of work is required")
	}
	if params.Logger == nil {
		return nil, errors.New("logger is required")
	}
	ttl := params.TTL
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	ignored := append([]string{KeyField}, params.ServerFields...)
	return &Service{
		uow:     params.UnitOfWork,
		logg:    params.Logger,
		metrics: params.Metrics,
		ttl:     ttl,
		ignored: ignored,
		now:     now,
	}, nil
}

// ValidateKey rejects empty keys and keys wider than the inbox column.
func ValidateKey(key string) error {
	_, err := NormalizeKey(key)
	return err
}

// NormalizeKey returns the stored form of key: surrounding whitespace
// removed, then validated.
func NormalizeKey(key string) (string, error) {
	trimmed := strings.TrimSpace(key)
	if trimmed == "" || len(trimmed) > MaxKeyLength {
		return "", ErrInvalidKey
	}
	return trimmed, nil
}

// Hash digests the canonical JSON form of body: object keys sorted, numbers
// kept verbatim, the idempotency key and server fields dropped.
func (s *Service) Hash(body any) (string, error) {
	raw, err := json.Marshal(body)
	if err != nil {
		return "", fmt.Errorf("marshal request body: %w", err)
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var value any
	if err := dec.Decode(&value); err != nil {
		return "", fmt.Errorf("decode request body: %w", err)
	}
	if object, ok := value.(map[string]any); ok {
		for _, field := range s.ignored {
			delete(object, field)
		}
	}
	canonical, err := json.Marshal(value)
	if err != nil {
		return "", fmt.Errorf("encode canonical body: %w", err)
	}
	sum := sha256.Sum256(canonical)
	return hex.EncodeToString(sum[:]), nil
}

// Check classifies a request carrying key. A record past its expiry still
// counts until the sweeper removes it.
func (s *Service) Check(ctx context.Context, key string, body any) (CheckResult, error) {
	key, err := NormalizeKey(key)
	if err != nil {
		return CheckResult{}, err
	}
	hash, err := s.Hash(body)
	if err != nil {
		return CheckResult{}, err
	}

	var stored *models.InboxItem
	err = uow.Run(ctx, s.uow, func(sess uow.Session) error {
		var err error
		stored, err = sess.Inbox().Get(ctx, key)
		return err
	})
	if err != nil {
		return CheckResult{}, fmt.Errorf("load inbox record: %w", err)
	}

	switch {
	case stored == nil:
		return CheckResult{Status: StatusNew, RequestHash: hash}, nil
	case stored.RequestHash == hash:
		return CheckResult{Status: StatusCached, RequestHash: hash, Response: json.RawMessage(stored.Response)}, nil
	default:
		return CheckResult{Status: StatusConflict, RequestHash: hash}, nil
	}
}

// Record stores the response of a completed request through repo, which
// must belong to the session holding the request's own writes.
func (s *Service) Record(ctx context.Context, repo uow.InboxRepository, key, requestHash string, response any) error {
	key, err := NormalizeKey(key)
	if err != nil {
		return err
	}
	raw, err := json.Marshal(response)
	if err != nil {
		return fmt.Errorf("marshal inbox response: %w", err)
	}
	return repo.Create(ctx, &models.InboxItem{
		Key:         key,
		RequestHash: requestHash,
		Response:    raw,
		ExpiresAt:   s.now().UTC().Add(s.ttl),
	})
}

// SweepExpired deletes every expired record and reports how many went.
func (s *Service) SweepExpired(ctx context.Context) (int64, error) {
	var deleted int64
	err := uow.Run(ctx, s.uow, func(sess uow.Session) error {
		var err error
		deleted, err = sess.Inbox().DeleteExpired(ctx, s.now().UTC())
		if err != nil {
			return err
		}
		return sess.Commit()
	})
	if err != nil {
		return 0, fmt.Errorf("sweep inbox: %w", err)
	}

	s.metrics.ObserveInboxSweep(deleted)
	s.logg.Info(s.logg.WithField(ctx, "rows_deleted", deleted), "expired idempotency keys removed")
	return deleted, nil
}
