// Package memuow is an in-memory unit of work for service tests. A session
// holds the store lock for the whole of its transaction, which serializes
// writers the way row locks do.
package memuow

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/angelmondragon/events-aggregator/internal/uow"
	"github.com/angelmondragon/events-aggregator/pkg/db/models"
)

// State is the full content of the store.
type State struct {
	Events       map[uuid.UUID]models.Event
	Places       map[uuid.UUID]models.Place
	Members      map[uuid.UUID]models.Member
	SyncMeta     *models.SyncMeta
	Outbox       map[int64]models.OutboxItem
	Inbox        map[string]models.InboxItem
	NextOutboxID int64
}

func newState() State {
	return State{
		Events:  map[uuid.UUID]models.Event{},
		Places:  map[uuid.UUID]models.Place{},
		Members: map[uuid.UUID]models.Member{},
		Outbox:  map[int64]models.OutboxItem{},
		Inbox:   map[string]models.InboxItem{},
	}
}

func (s State) clone() State {
	out := newState()
	for k, v := range s.Events {
		out.Events[k] = v
	}
	for k, v := range s.Places {
		out.Places[k] = v
	}
	for k, v := range s.Members {
		out.Members[k] = v
	}
	for k, v := range s.Outbox {
		out.Outbox[k] = v
	}
	for k, v := range s.Inbox {
		out.Inbox[k] = v
	}
	if s.SyncMeta != nil {
		meta := *s.SyncMeta
		out.SyncMeta = &meta
	}
	out.NextOutboxID = s.NextOutboxID
	return out
}

// Store is the shared backing state of every session.
type Store struct {
	mu    sync.Mutex
	state State

	statsMu     sync.Mutex
	commits     int
	rollbacks   int
	faults      map[string]error
	afterCommit func(*State)
}

// New returns an empty store.
func New() *Store {
	return &Store{state: newState(), faults: map[string]error{}}
}

var _ uow.UnitOfWork = (*Store)(nil)

func (st *Store) Session(ctx context.Context) uow.Session {
	return &session{store: st}
}

// Seed mutates the committed state directly.
func (st *Store) Seed(fn func(*State)) {
	st.mu.Lock()
	defer st.mu.Unlock()
	fn(&st.state)
}

// Snapshot returns a copy of the committed state.
func (st *Store) Snapshot() State {
	st.mu.Lock()
	defer st.mu.Unlock()
	return st.state.clone()
}

// FailOn makes the named repository operation (for example
// "events.upsert") return err until cleared with a nil err.
func (st *Store) FailOn(op string, err error) {
	st.statsMu.Lock()
	defer st.statsMu.Unlock()
	if err == nil {
		delete(st.faults, op)
		return
	}
	st.faults[op] = err
}

// AfterCommit runs fn against the committed state right after every commit,
// before any other session can start. Tests use it to land a concurrent
// writer between two transactions.
func (st *Store) AfterCommit(fn func(*State)) {
	st.statsMu.Lock()
	defer st.statsMu.Unlock()
	st.afterCommit = fn
}

func (st *Store) fault(op string) error {
	st.statsMu.Lock()
	defer st.statsMu.Unlock()
	return st.faults[op]
}

func (st *Store) Commits() int {
	st.statsMu.Lock()
	defer st.statsMu.Unlock()
	return st.commits
}

func (st *Store) Rollbacks() int {
	st.statsMu.Lock()
	defer st.statsMu.Unlock()
	return st.rollbacks
}

type session struct {
	store *Store
	work  *State
}

func (s *session) begin() *State {
	if s.work == nil {
		s.store.mu.Lock()
		work := s.store.state.clone()
		s.work = &work
	}
	return s.work
}

func (s *session) Events() uow.EventRepository {
	return &eventRepo{s: s}
}

func (s *session) Places() uow.PlaceRepository {
	return &placeRepo{s: s}
}

func (s *session) Members() uow.MemberRepository {
	return &memberRepo{s: s}
}

func (s *session) SyncMeta() uow.SyncMetaRepository {
	return &syncMetaRepo{s: s}
}

func (s *session) Outbox() uow.OutboxRepository {
	return &outboxRepo{s: s}
}

func (s *session) Inbox() uow.InboxRepository {
	return &inboxRepo{s: s}
}

func (s *session) Atomic(fn func() error) (err error) {
	s.begin()
	defer func() {
		if r := recover(); r != nil {
			_ = s.Rollback()
			panic(r)
		}
	}()
	if err := fn(); err != nil {
		_ = s.Rollback()
		return err
	}
	return s.Commit()
}

func (s *session) Commit() error {
	if s.work == nil {
		return nil
	}
	s.store.state = *s.work
	s.work = nil

	s.store.statsMu.Lock()
	s.store.commits++
	hook := s.store.afterCommit
	s.store.statsMu.Unlock()

	if hook != nil {
		hook(&s.store.state)
	}
	s.store.mu.Unlock()
	return nil
}

func (s *session) Rollback() error {
	if s.work == nil {
		return nil
	}
	s.work = nil
	s.store.mu.Unlock()

	s.store.statsMu.Lock()
	s.store.rollbacks++
	s.store.statsMu.Unlock()
	return nil
}

func (s *session) Close() error {
	return s.Rollback()
}

func duplicateKey(table string, key any) error {
	return fmt.Errorf("duplicate key value violates unique constraint %q (%v)", table+"_pkey", key)
}
