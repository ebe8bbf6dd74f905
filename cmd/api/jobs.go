package main

import (
	"context"

	"github.com/angelmondragon/events-aggregator/internal/scheduler"
	"github.com/angelmondragon/events-aggregator/pkg/config"
	"github.com/angelmondragon/events-aggregator/pkg/outbox"
)

const (
	outboxJobID     = "outbox-drain"
	inboxSweepJobID = "inbox-sweep"
)

type jobRegistrar interface {
	AddJob(spec scheduler.JobSpec) error
}

type outboxDrainer interface {
	ProcessWaiting(ctx context.Context) (outbox.Result, error)
}

type inboxSweeper interface {
	SweepExpired(ctx context.Context) (int64, error)
}

// registerJobs adds the outbox drain and inbox sweep timers. The sync job is
// registered by the sync service itself.
func registerJobs(sched jobRegistrar, cfg config.JobsConfig, drainer outboxDrainer, sweeper inboxSweeper) error {
	if err := sched.AddJob(scheduler.JobSpec{
		ID:       outboxJobID,
		Interval: cfg.OutboxInterval,
		Run: func(ctx context.Context) error {
			_, err := drainer.ProcessWaiting(ctx)
			return err
		},
	}); err != nil {
		return err
	}
	return sched.AddJob(scheduler.JobSpec{
		ID:       inboxSweepJobID,
		Interval: cfg.InboxSweepInterval,
		Run: func(ctx context.Context) error {
			_, err := sweeper.SweepExpired(ctx)
			return err
		},
	})
}
