// Package scheduler runs periodic background jobs inside a single process.
// A job never overlaps itself; triggers that arrive while it runs collapse
// into one follow-up run.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/angelmondragon/events-aggregator/pkg/logger"
	"github.com/angelmondragon/events-aggregator/pkg/metrics"
)

var (
	ErrJobExists  = errors.New("job already registered")
	ErrUnknownJob = errors.New("unknown job")
	ErrStopped    = errors.New("scheduler stopped")
)

// JobFunc is the unit of work executed on every run.
type JobFunc func(ctx context.Context) error

// JobSpec describes a periodic job. A zero FirstRun means "run immediately".
type JobSpec struct {
	ID       string
	Interval time.Duration
	FirstRun time.Time
	Run      JobFunc
}

func (s JobSpec) validate() error {
	if s.ID == "" {
		return errors.New("job id is required")
	}
	if s.Interval <= 0 {
		return fmt.Errorf("job %s: interval must be positive", s.ID)
	}
	if s.Run == nil {
		return fmt.Errorf("job %s: run func is required", s.ID)
	}
	return nil
}

// Params configure the scheduler.
type Params struct {
	Logger  *logger.Logger
	Metrics *metrics.JobMetrics
	Now     func() time.Time
}

type job struct {
	spec    JobSpec
	trigger chan struct{}
}

// Scheduler owns one goroutine per registered job.
type Scheduler struct {
	logg    *logger.Logger
	metrics *metrics.JobMetrics
	now     func() time.Time

	mu      sync.Mutex
	jobs    map[string]*job
	started bool
	stopped bool
	stop    chan struct{}
	runCtx  context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// New builds an idle scheduler; jobs start firing after Start.
func New(params Params) (*Scheduler, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	return &Scheduler{
		logg:    params.Logger,
		metrics: params.Metrics,
		now:     now,
		jobs:    make(map[string]*job),
		stop:    make(chan struct{}),
	}, nil
}

// AddJob registers a job. Jobs added after Start begin immediately.
func (s *Scheduler) AddJob(spec JobSpec) error {
	if err := spec.validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return ErrStopped
	}
	if _, ok := s.jobs[spec.ID]; ok {
		return fmt.Errorf("%w: %s", ErrJobExists, spec.ID)
	}
	j := &job{spec: spec, trigger: make(chan struct{}, 1)}
	s.jobs[spec.ID] = j
	if s.started {
		s.launch(j)
	}
	return nil
}

// Trigger asks for an immediate run of the job without waiting for it. A
// trigger arriving while a run is already queued is folded into that run.
func (s *Scheduler) Trigger(id string) error {
	s.mu.Lock()
	j, ok := s.jobs[id]
	stopped := s.stopped
	s.mu.Unlock()
	if stopped {
		return ErrStopped
	}
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownJob, id)
	}

	select {
	case j.trigger <- struct{}{}:
	default:
		s.metrics.IncCoalesced(id)
	}
	return nil
}

// Start launches every registered job. Runs get a context detached from
// ctx's cancellation; Stop decides when in-flight runs are abandoned.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return ErrStopped
	}
	if s.started {
		return nil
	}
	s.runCtx, s.cancel = context.WithCancel(context.WithoutCancel(ctx))
	s.started = true
	for _, j := range s.jobs {
		s.launch(j)
	}
	s.logg.Info(ctx, "scheduler started")
	return nil
}

// Stop prevents new runs and waits for in-flight runs until ctx expires,
// after which their contexts are canceled and ctx's error is returned.
func (s *Scheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return nil
	}
	s.stopped = true
	close(s.stop)
	started := s.started
	s.mu.Unlock()
	if !started {
		return nil
	}

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.cancel()
		s.logg.Info(ctx, "scheduler stopped")
		return nil
	case <-ctx.Done():
		s.cancel()
		s.logg.Warn(ctx, "scheduler stop deadline reached; abandoning in-flight jobs")
		return ctx.Err()
	}
}

func (s *Scheduler) launch(j *job) {
	s.wg.Add(1)
	go s.loop(j)
}

func (s *Scheduler) loop(j *job) {
	defer s.wg.Done()

	next := j.spec.FirstRun
	if next.IsZero() {
		next = s.now()
	}
	timer := time.NewTimer(time.Until(next))
	defer timer.Stop()

	for {
		select {
		case <-s.stop:
			return
		case <-timer.C:
			if s.stopping() {
				return
			}
			s.runJob(j)
			now := s.now()
			for !next.After(now) {
				next = next.Add(j.spec.Interval)
			}
			timer.Reset(next.Sub(now))
		case <-j.trigger:
			if s.stopping() {
				return
			}
			s.runJob(j)
		}
	}
}

func (s *Scheduler) stopping() bool {
	select {
	case <-s.stop:
		return true
	default:
		return false
	}
}

func (s *Scheduler) runJob(j *job) {
	ctx := s.logg.WithJob(s.runCtx, j.spec.ID)
	s.logg.Info(ctx, "job start")
	start := time.Now()
	err := safeRun(ctx, j.spec.Run)
	duration := time.Since(start)
	s.metrics.ObserveDuration(j.spec.ID, duration)
	ctx = s.logg.WithField(ctx, "duration_ms", duration.Milliseconds())
	if err != nil {
		s.logg.Error(ctx, "job failed", err)
		s.metrics.IncFailure(j.spec.ID)
		return
	}
	s.logg.Info(ctx, "job completed")
	s.metrics.IncSuccess(j.spec.ID)
}

func safeRun(ctx context.Context, fn JobFunc) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("job panic: %v", r)
		}
	}()
	return fn(ctx)
}
