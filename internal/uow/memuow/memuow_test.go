package memuow

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/events-aggregator/internal/uow"
	"github.com/angelmondragon/events-aggregator/pkg/db/models"
	"github.com/angelmondragon/events-aggregator/pkg/enums"
)

func TestAtomicCommitAndRollback(t *testing.T) {
	store := New()
	ctx := context.Background()
	place := models.Place{ID: uuid.New(), Name: "Hall"}

	boom := errors.New("boom")
	err := uow.Run(ctx, store, func(s uow.Session) error {
		return s.Atomic(func() error {
			if err := s.Places().Upsert(ctx, []models.Place{place}); err != nil {
				return err
			}
			return boom
		})
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}
	if len(store.Snapshot().Places) != 0 {
		t.Fatalf("rolled back write must not be visible")
	}

	err = uow.Run(ctx, store, func(s uow.Session) error {
		return s.Atomic(func() error {
			return s.Places().Upsert(ctx, []models.Place{place})
		})
	})
	if err != nil {
		t.Fatalf("atomic: %v", err)
	}
	if len(store.Snapshot().Places) != 1 {
		t.Fatalf("committed write must be visible")
	}
	if store.Commits() != 1 || store.Rollbacks() != 1 {
		t.Fatalf("unexpected counters commits=%d rollbacks=%d", store.Commits(), store.Rollbacks())
	}
}

func TestCloseDiscardsUncommitted(t *testing.T) {
	store := New()
	ctx := context.Background()

	_ = uow.Run(ctx, store, func(s uow.Session) error {
		return s.Outbox().Create(ctx, &models.OutboxItem{})
	})
	if len(store.Snapshot().Outbox) != 0 {
		t.Fatalf("uncommitted outbox item leaked")
	}
}

func TestInboxDeleteExpired(t *testing.T) {
	store := New()
	ctx := context.Background()
	now := time.Now().UTC()
	store.Seed(func(st *State) {
		st.Inbox["old"] = models.InboxItem{Key: "old", ExpiresAt: now.Add(-time.Minute)}
		st.Inbox["new"] = models.InboxItem{Key: "new", ExpiresAt: now.Add(time.Minute)}
	})

	var deleted int64
	err := uow.Run(ctx, store, func(s uow.Session) error {
		var err error
		deleted, err = s.Inbox().DeleteExpired(ctx, now)
		if err != nil {
			return err
		}
		return s.Commit()
	})
	if err != nil {
		t.Fatalf("delete expired: %v", err)
	}
	if deleted != 1 {
		t.Fatalf("expected 1 deleted, got %d", deleted)
	}
	if _, ok := store.Snapshot().Inbox["new"]; !ok {
		t.Fatalf("unexpired record removed")
	}
}

func TestFailOn(t *testing.T) {
	store := New()
	ctx := context.Background()
	boom := errors.New("boom")
	store.FailOn("events.upsert", boom)

	err := uow.Run(ctx, store, func(s uow.Session) error {
		return s.Events().Upsert(ctx, []models.Event{{ID: uuid.New()}})
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected injected error, got %v", err)
	}

	store.FailOn("events.upsert", nil)
	err = uow.Run(ctx, store, func(s uow.Session) error {
		return s.Events().Upsert(ctx, []models.Event{{ID: uuid.New()}})
	})
	if err != nil {
		t.Fatalf("expected fault to be cleared, got %v", err)
	}
}

func TestAfterCommitSeesCommittedState(t *testing.T) {
	store := New()
	var seen int
	store.AfterCommit(func(st *State) {
		seen = len(st.Outbox)
	})

	ctx := context.Background()
	s := store.Session(ctx)
	defer s.Close()
	if err := s.Outbox().Create(ctx, &models.OutboxItem{Type: enums.OutboxTypeTicketRegister}); err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := s.Commit(); err != nil {
		t.Fatalf("commit: %v", err)
	}
	if seen != 1 {
		t.Fatalf("expected hook to see the committed item, saw %d", seen)
	}
}
