package uow

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/events-aggregator/pkg/db/models"
	"github.com/angelmondragon/events-aggregator/pkg/enums"
)

// EventRepository persists events mirrored from the provider.
type EventRepository interface {
	Upsert(ctx context.Context, events []models.Event) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Event, error)
	List(ctx context.Context, filter EventFilter) ([]models.Event, int64, error)
}

// EventFilter narrows and pages the events listing. A zero PageSize returns
// every matching row.
type EventFilter struct {
	DateFrom *time.Time
	Page     int
	PageSize int
}

// PlaceRepository persists venues mirrored from the provider.
type PlaceRepository interface {
	Upsert(ctx context.Context, places []models.Place) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Place, error)
}

// MemberRepository persists local ticket holders.
type MemberRepository interface {
	Create(ctx context.Context, member *models.Member) error
	GetByTicketID(ctx context.Context, ticketID uuid.UUID, loadEvent bool) (*models.Member, error)
	Delete(ctx context.Context, ticketID uuid.UUID) error
	CountByEvents(ctx context.Context, eventIDs []uuid.UUID) (map[uuid.UUID]int64, error)
}

// SyncMetaRepository owns the sync_meta singleton row.
type SyncMetaRepository interface {
	// GetOrAdd returns the singleton, creating it with status never when
	// missing. created is true only for the caller whose insert won.
	GetOrAdd(ctx context.Context, forUpdate bool) (meta *models.SyncMeta, created bool, err error)
	Update(ctx context.Context, meta *models.SyncMeta) error
}

// OutboxRepository persists pending outbound side effects.
type OutboxRepository interface {
	Create(ctx context.Context, item *models.OutboxItem) error
	ListWaiting(ctx context.Context, forUpdate bool) ([]models.OutboxItem, error)
	// LockWaiting re-locks one item and returns nil when it is no longer
	// waiting.
	LockWaiting(ctx context.Context, id int64) (*models.OutboxItem, error)
	UpdateStatus(ctx context.Context, id int64, status enums.OutboxStatus) error
}

// InboxRepository persists idempotency records.
type InboxRepository interface {
	// Get returns nil when the key has never been recorded.
	Get(ctx context.Context, key string) (*models.InboxItem, error)
	Create(ctx context.Context, item *models.InboxItem) error
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

// Repositories exposes every repository bound to the session's current
// transaction. Accessors must be called again after Commit or Rollback.
type Repositories interface {
	Events() EventRepository
	Places() PlaceRepository
	Members() MemberRepository
	SyncMeta() SyncMetaRepository
	Outbox() OutboxRepository
	Inbox() InboxRepository
}

// Session is one logical storage conversation. A transaction opens lazily on
// the first repository access and stays open until Commit or Rollback; the
// next access opens a fresh one.
type Session interface {
	Repositories

	// Atomic runs fn in the current transaction (opening one if needed),
	// committing when fn returns nil and rolling back otherwise.
	Atomic(fn func() error) error
	Commit() error
	Rollback() error
	// Close rolls back anything left uncommitted.
	Close() error
}

// UnitOfWork hands out sessions.
type UnitOfWork interface {
	Session(ctx context.Context) Session
}

// Run opens a session, passes it to fn and always closes it. Work that fn
// did not commit is rolled back.
func Run(ctx context.Context, u UnitOfWork, fn func(Session) error) (err error) {
	session := u.Session(ctx)
	defer func() {
		if closeErr := session.Close(); closeErr != nil && err == nil {
			err = closeErr
		}
	}()
	return fn(session)
}
