package scheduler

import (
	"context"
	"errors"
	"io"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/angelmondragon/events-aggregator/pkg/logger"
	"github.com/angelmondragon/events-aggregator/pkg/metrics"
	"github.com/prometheus/client_golang/prometheus"
)

func newTestScheduler(t *testing.T, reg prometheus.Registerer) *Scheduler {
	t.Helper()
	s, err := New(Params{
		Logger:  logger.New(logger.Options{ServiceName: "scheduler-test", Output: io.Discard}),
		Metrics: metrics.NewJobMetrics(reg),
	})
	if err != nil {
		t.Fatalf("new scheduler: %v", err)
	}
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = s.Stop(ctx)
	})
	return s
}

func waitFor(t *testing.T, ch <-chan struct{}, what string) {
	t.Helper()
	select {
	case <-ch:
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for %s", what)
	}
}

func TestAddJobValidation(t *testing.T) {
	s := newTestScheduler(t, nil)
	noop := func(context.Context) error { return nil }

	cases := []JobSpec{
		{Interval: time.Second, Run: noop},
		{ID: "a", Run: noop},
		{ID: "a", Interval: time.Second},
	}
	for _, spec := range cases {
		if err := s.AddJob(spec); err == nil {
			t.Fatalf("expected error for %+v", spec)
		}
	}

	if err := s.AddJob(JobSpec{ID: "a", Interval: time.Second, Run: noop}); err != nil {
		t.Fatalf("add job: %v", err)
	}
	if err := s.AddJob(JobSpec{ID: "a", Interval: time.Second, Run: noop}); !errors.Is(err, ErrJobExists) {
		t.Fatalf("expected ErrJobExists, got %v", err)
	}
	if err := s.Trigger("missing"); !errors.Is(err, ErrUnknownJob) {
		t.Fatalf("expected ErrUnknownJob, got %v", err)
	}
}

func TestTriggerRunsJobImmediately(t *testing.T) {
	s := newTestScheduler(t, nil)
	ran := make(chan struct{}, 1)
	err := s.AddJob(JobSpec{
		ID:       "sync",
		Interval: time.Hour,
		FirstRun: time.Now().Add(time.Hour),
		Run: func(context.Context) error {
			ran <- struct{}{}
			return nil
		},
	})
	if err != nil {
		t.Fatalf("add job: %v", err)
	}
	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	if err := s.Trigger("sync"); err != nil {
		t.Fatalf("trigger: %v", err)
	}
	waitFor(t, ran, "triggered run")
}

func TestTriggersWhileRunningCoalesceWithoutOverlap(t *testing.T) {
	reg := prometheus.NewRegistry()
	s := newTestScheduler(t, reg)

	started := make(chan struct{}, 4)
	release := make(chan struct{})
	var running, maxRunning, runs int32
	err := s.AddJob(JobSpec{
		ID:       "sync",
		Interval: time.Hour,
		FirstRun: time.Now().Add(time.Hour),
		Run: func(context.Context) error {
			current := atomic.AddInt32(&running, 1)
			for {
				prev := atomic.LoadInt32(&maxRunning)
				if current <= prev || atomic.CompareAndSwapInt32(&maxRunning, prev, current) {
					break
				}
			}
			atomic.AddInt32(&runs, 1)
			started <- struct{}{}
			<-release
			atomic.AddInt32(&running, -1)
			return nil
		},
	})
	if err != nil {
		t.Fatalf("add job: %v", err)
	}
	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}

	if err := s.Trigger("sync"); err != nil {
		t.Fatalf("trigger: %v", err)
	}
	waitFor(t, started, "first run")
	for i := 0; i < 3; i++ {
		if err := s.Trigger("sync"); err != nil {
			t.Fatalf("trigger while running: %v", err)
		}
	}
	release <- struct{}{}
	waitFor(t, started, "follow-up run")
	release <- struct{}{}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := s.Stop(ctx); err != nil {
		t.Fatalf("stop: %v", err)
	}
	if got := atomic.LoadInt32(&runs); got != 2 {
		t.Fatalf("expected 2 runs, got %d", got)
	}
	if got := atomic.LoadInt32(&maxRunning); got != 1 {
		t.Fatalf("expected no overlap, max concurrency %d", got)
	}

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	var coalesced float64
	for _, mf := range mfs {
		if mf.GetName() == "aggregator_job_coalesced_total" {
			coalesced = mf.GetMetric()[0].GetCounter().GetValue()
		}
	}
	if coalesced != 2 {
		t.Fatalf("expected 2 coalesced triggers, got %f", coalesced)
	}
}

func TestPeriodicJobRunsRepeatedly(t *testing.T) {
	s := newTestScheduler(t, nil)
	ticks := make(chan struct{}, 16)
	err := s.AddJob(JobSpec{
		ID:       "outbox",
		Interval: 10 * time.Millisecond,
		Run: func(context.Context) error {
			select {
			case ticks <- struct{}{}:
			default:
			}
			return errors.New("failures do not stop the cadence")
		},
	})
	if err != nil {
		t.Fatalf("add job: %v", err)
	}
	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	for i := 0; i < 3; i++ {
		waitFor(t, ticks, "periodic run")
	}
}

func TestStopAbandonsInFlightRunAfterDeadline(t *testing.T) {
	s := newTestScheduler(t, nil)
	started := make(chan struct{})
	canceled := make(chan struct{})
	var once sync.Once
	err := s.AddJob(JobSpec{
		ID:       "slow",
		Interval: time.Hour,
		Run: func(ctx context.Context) error {
			once.Do(func() { close(started) })
			<-ctx.Done()
			close(canceled)
			return ctx.Err()
		},
	})
	if err != nil {
		t.Fatalf("add job: %v", err)
	}
	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	waitFor(t, started, "slow run")

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if err := s.Stop(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
	waitFor(t, canceled, "run context cancellation")

	if err := s.Trigger("slow"); !errors.Is(err, ErrStopped) {
		t.Fatalf("expected ErrStopped after stop, got %v", err)
	}
}

func TestStopWaitsForInFlightRun(t *testing.T) {
	s := newTestScheduler(t, nil)
	started := make(chan struct{})
	var finished atomic.Bool
	err := s.AddJob(JobSpec{
		ID:       "short",
		Interval: time.Hour,
		Run: func(context.Context) error {
			close(started)
			time.Sleep(30 * time.Millisecond)
			finished.Store(true)
			return nil
		},
	})
	if err != nil {
		t.Fatalf("add job: %v", err)
	}
	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	waitFor(t, started, "run")

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := s.Stop(ctx); err != nil {
		t.Fatalf("stop: %v", err)
	}
	if !finished.Load() {
		t.Fatalf("stop returned before the in-flight run finished")
	}
}
