// Package gormuow binds the repositories to gorm transactions.
package gormuow

import (
	"context"
	"database/sql"
	"errors"

	"go.uber.org/multierr"
	"gorm.io/gorm"

	"github.com/angelmondragon/events-aggregator/internal/events"
	"github.com/angelmondragon/events-aggregator/internal/inbox"
	"github.com/angelmondragon/events-aggregator/internal/syncmeta"
	"github.com/angelmondragon/events-aggregator/internal/tickets"
	"github.com/angelmondragon/events-aggregator/internal/uow"
	"github.com/angelmondragon/events-aggregator/pkg/outbox"
)

// UnitOfWork hands out gorm backed sessions.
type UnitOfWork struct {
	db *gorm.DB
}

// New returns a unit of work over the shared connection pool.
func New(db *gorm.DB) *UnitOfWork {
	return &UnitOfWork{db: db}
}

var _ uow.UnitOfWork = (*UnitOfWork)(nil)

func (u *UnitOfWork) Session(ctx context.Context) uow.Session {
	if ctx == nil {
		ctx = context.Background()
	}
	return &session{ctx: ctx, db: u.db}
}

type session struct {
	ctx context.Context
	db  *gorm.DB
	tx  *gorm.DB
}

// conn returns the open transaction, beginning one on first use. A failed
// begin is kept on the handle so the next query reports it.
func (s *session) conn() *gorm.DB {
	if s.tx == nil {
		s.tx = s.db.WithContext(s.ctx).Begin()
	}
	return s.tx
}

func (s *session) Events() uow.EventRepository {
	return events.NewRepository(s.conn())
}

func (s *session) Places() uow.PlaceRepository {
	return events.NewPlaceRepository(s.conn())
}

func (s *session) Members() uow.MemberRepository {
	return tickets.NewRepository(s.conn())
}

func (s *session) SyncMeta() uow.SyncMetaRepository {
	return syncmeta.NewRepository(s.conn())
}

func (s *session) Outbox() uow.OutboxRepository {
	return outbox.NewRepository(s.conn())
}

func (s *session) Inbox() uow.InboxRepository {
	return inbox.NewRepository(s.conn())
}

func (s *session) Atomic(fn func() error) (err error) {
	if tx := s.conn(); tx.Error != nil {
		s.tx = nil
		return tx.Error
	}

	defer func() {
		if r := recover(); r != nil {
			_ = s.Rollback()
			panic(r)
		}
	}()

	if err := fn(); err != nil {
		if rbErr := s.Rollback(); rbErr != nil {
			return multierr.Append(err, rbErr)
		}
		return err
	}
	return s.Commit()
}

func (s *session) Commit() error {
	if s.tx == nil {
		return nil
	}
	tx := s.tx
	s.tx = nil
	if tx.Error != nil {
		return tx.Error
	}
	return tx.Commit().Error
}

func (s *session) Rollback() error {
	if s.tx == nil {
		return nil
	}
	tx := s.tx
	s.tx = nil
	if tx.Error != nil {
		return nil
	}
	if err := tx.Rollback().Error; err != nil && !errors.Is(err, sql.ErrTxDone) {
		return err
	}
	return nil
}

func (s *session) Close() error {
	return s.Rollback()
}
