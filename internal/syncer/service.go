// Package syncer reconciles local events and places with the events provider.
//
// The sync_meta row is the single-flight guard: a run claims it by flipping
// the status to pending in a short locked transaction, fetches without any
// lock held, then records the outcome in a second short transaction.
package syncer

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/multierr"

	"github.com/angelmondragon/events-aggregator/internal/scheduler"
	"github.com/angelmondragon/events-aggregator/internal/uow"
	"github.com/angelmondragon/events-aggregator/pkg/db/models"
	"github.com/angelmondragon/events-aggregator/pkg/enums"
	"github.com/angelmondragon/events-aggregator/pkg/eventsprovider"
	"github.com/angelmondragon/events-aggregator/pkg/logger"
	"github.com/angelmondragon/events-aggregator/pkg/metrics"
)

const (
	JobID           = "sync-events"
	DefaultInterval = 24 * time.Hour

	restoreTimeout = 5 * time.Second
)

// DefaultWatermark is the changed-since date used before any sync completed.
var DefaultWatermark = time.Date(2000, time.January, 1, 0, 0, 0, 0, time.UTC)

// Scheduler is the part of the job scheduler the sync service drives.
type Scheduler interface {
	AddJob(spec scheduler.JobSpec) error
	Trigger(id string) error
}

type ServiceParams struct {
	UnitOfWork uow.UnitOfWork
	Provider   eventsprovider.PageFetcher
	Scheduler  Scheduler
	Logger     *logger.Logger
	Metrics    *metrics.PipelineMetrics
	Interval   time.Duration
	Now        func() time.Time
}

type Service struct {
	uow       uow.UnitOfWork
	provider  eventsprovider.PageFetcher
	scheduler Scheduler
	logg      *logger.Logger
	metrics   *metrics.PipelineMetrics
	interval  time.Duration
	now       func() time.Time
}

// Result summarizes one Sync call.
type Result struct {
	Skipped   bool
	Events    int
	Places    int
	Watermark time.Time
}

func NewService(params ServiceParams) (*Service, error) {
	if params.UnitOfWork == nil {
		return nil, errors.New("unit of work is required")
	}
	if params.Provider == nil {
		return nil, errors.New("events provider is required")
	}
	if params.Scheduler == nil {
		return nil, errors.New("scheduler is required")
	}
	if params.Logger == nil {
		return nil, errors.New("logger is required")
	}
	interval := params.Interval
	if interval <= 0 {
		interval = DefaultInterval
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	return &Service{
		uow:       params.UnitOfWork,
		provider:  params.Provider,
		scheduler: params.Scheduler,
		logg:      params.Logger,
		metrics:   params.Metrics,
		interval:  interval,
		now:       now,
	}, nil
}

// Init heals a pending status left by a crashed process and registers the
// periodic job. The first run is due immediately when nothing has synced
// yet, otherwise one interval after the last successful sync.
func (s *Service) Init(ctx context.Context) error {
	var lastSync *time.Time
	err := uow.Run(ctx, s.uow, func(sess uow.Session) error {
		return sess.Atomic(func() error {
			meta, _, err := sess.SyncMeta().GetOrAdd(ctx, true)
			if err != nil {
				return err
			}
			lastSync = meta.LastSyncTime
			if meta.SyncStatus != enums.SyncStatusPending {
				return nil
			}
			healed := enums.SyncStatusSynced
			if meta.LastSyncTime == nil {
				healed = enums.SyncStatusNever
			}
			s.logg.Warn(s.logg.WithField(ctx, "sync_status", healed), "healing sync status left pending")
			meta.SyncStatus = healed
			return sess.SyncMeta().Update(ctx, meta)
		})
	})
	if err != nil {
		return fmt.Errorf("init sync meta: %w", err)
	}

	firstRun := s.now()
	if lastSync != nil {
		firstRun = lastSync.Add(s.interval)
	}
	return s.scheduler.AddJob(scheduler.JobSpec{
		ID:       JobID,
		Interval: s.interval,
		FirstRun: firstRun,
		Run: func(ctx context.Context) error {
			_, err := s.Sync(ctx)
			return err
		},
	})
}

// Trigger requests an immediate sync without waiting for it.
func (s *Service) Trigger() error {
	return s.scheduler.Trigger(JobID)
}

// Sync runs one reconciliation pass. It is a no-op when another runner holds
// the pending status. Any failure after the claim restores the status seen
// before the run.
func (s *Service) Sync(ctx context.Context) (Result, error) {
	prev, watermark, claimed, err := s.claim(ctx)
	if err != nil {
		return Result{}, err
	}
	if !claimed {
		s.logg.Info(ctx, "sync already pending; skipping")
		return Result{Skipped: true}, nil
	}

	result, err := s.reconcile(ctx, watermark)
	if err != nil {
		// The run context may already be canceled by a shutdown deadline.
		restoreCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), restoreTimeout)
		restoreErr := s.restore(restoreCtx, prev)
		cancel()
		if restoreErr != nil {
			err = multierr.Append(err, restoreErr)
		}
		return Result{}, err
	}

	s.metrics.ObserveSync(result.Events, result.Places, s.now())
	logCtx := s.logg.WithFields(ctx, map[string]any{
		"events":    result.Events,
		"places":    result.Places,
		"watermark": result.Watermark.Format(time.DateOnly),
	})
	s.logg.Info(logCtx, "sync completed")
	return result, nil
}

func (s *Service) claim(ctx context.Context) (prev enums.SyncStatus, watermark time.Time, claimed bool, err error) {
	err = uow.Run(ctx, s.uow, func(sess uow.Session) error {
		return sess.Atomic(func() error {
			meta, _, err := sess.SyncMeta().GetOrAdd(ctx, true)
			if err != nil {
				return err
			}
			if meta.SyncStatus == enums.SyncStatusPending {
				return nil
			}
			prev = meta.SyncStatus
			watermark = DefaultWatermark
			if meta.LastChangedAt != nil {
				watermark = dateOf(*meta.LastChangedAt)
			}
			meta.SyncStatus = enums.SyncStatusPending
			if err := sess.SyncMeta().Update(ctx, meta); err != nil {
				return err
			}
			claimed = true
			return nil
		})
	})
	if err != nil {
		return "", time.Time{}, false, fmt.Errorf("claim sync: %w", err)
	}
	return prev, watermark, claimed, nil
}

func (s *Service) reconcile(ctx context.Context, watermark time.Time) (Result, error) {
	events, places, latest, err := s.fetch(ctx, watermark)
	if err != nil {
		return Result{}, err
	}

	err = uow.Run(ctx, s.uow, func(sess uow.Session) error {
		return sess.Atomic(func() error {
			if err := sess.Places().Upsert(ctx, valuesOf(places)); err != nil {
				return fmt.Errorf("upsert places: %w", err)
			}
			if err := sess.Events().Upsert(ctx, valuesOf(events)); err != nil {
				return fmt.Errorf("upsert events: %w", err)
			}
			meta, _, err := sess.SyncMeta().GetOrAdd(ctx, true)
			if err != nil {
				return err
			}
			syncedAt := s.now().UTC()
			meta.SyncStatus = enums.SyncStatusSynced
			meta.LastSyncTime = &syncedAt
			meta.LastChangedAt = &latest
			return sess.SyncMeta().Update(ctx, meta)
		})
	})
	if err != nil {
		return Result{}, fmt.Errorf("store synced events: %w", err)
	}
	return Result{Events: len(events), Places: len(places), Watermark: latest}, nil
}

// fetch drains every change since watermark. Records are keyed by ID so a
// later copy of the same entity replaces an earlier one.
func (s *Service) fetch(ctx context.Context, watermark time.Time) (map[uuid.UUID]models.Event, map[uuid.UUID]models.Place, time.Time, error) {
	events := make(map[uuid.UUID]models.Event)
	places := make(map[uuid.UUID]models.Place)
	latest := watermark

	pages := eventsprovider.NewPaginator(s.provider, watermark)
	for {
		raw, ok, err := pages.Next(ctx)
		if err != nil {
			return nil, nil, time.Time{}, fmt.Errorf("fetch changed events: %w", err)
		}
		if !ok {
			break
		}
		event, place, err := eventsprovider.ParseEvent(raw)
		if err != nil {
			return nil, nil, time.Time{}, fmt.Errorf("parse changed event: %w", err)
		}
		events[event.ID] = event
		places[place.ID] = place
		if changed := dateOf(event.ChangedAt); changed.After(latest) {
			latest = changed
		}
	}
	return events, places, latest, nil
}

func (s *Service) restore(ctx context.Context, status enums.SyncStatus) error {
	err := uow.Run(ctx, s.uow, func(sess uow.Session) error {
		return sess.Atomic(func() error {
			meta, _, err := sess.SyncMeta().GetOrAdd(ctx, true)
			if err != nil {
				return err
			}
			meta.SyncStatus = status
			return sess.SyncMeta().Update(ctx, meta)
		})
	})
	if err != nil {
		s.logg.Error(ctx, "failed to restore sync status", err)
		return fmt.Errorf("restore sync status: %w", err)
	}
	s.logg.Warn(s.logg.WithField(ctx, "sync_status", status), "sync failed; status restored")
	return nil
}

func dateOf(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
}

func valuesOf[T any](m map[uuid.UUID]T) []T {
	out := make([]T, 0, len(m))
	for _, v := range m {
		out = append(out, v)
	}
	return out
}
