package outbox

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/multierr"

	"github.com/angelmondragon/events-aggregator/internal/uow"
	"github.com/angelmondragon/events-aggregator/pkg/enums"
	"github.com/angelmondragon/events-aggregator/pkg/logger"
	"github.com/angelmondragon/events-aggregator/pkg/metrics"
	"github.com/angelmondragon/events-aggregator/pkg/notifier"
)

// Notifier delivers rendered notifications.
type Notifier interface {
	Notify(ctx context.Context, n notifier.Notification) error
}

type ProcessorParams struct {
	UnitOfWork uow.UnitOfWork
	Notifier   Notifier
	Registry   *RendererRegistry
	Logger     *logger.Logger
	Metrics    *metrics.PipelineMetrics
}

// Processor drains waiting outbox items.
type Processor struct {
	uow      uow.UnitOfWork
	notifier Notifier
	registry *RendererRegistry
	logg     *logger.Logger
	metrics  *metrics.PipelineMetrics
}

// Result summarizes one drain.
type Result struct {
	Total   int
	Sent    int
	Failed  int
	Skipped int
}

func NewProcessor(params ProcessorParams) (*Processor, error) {
	if params.UnitOfWork == nil {
		return nil, errors.New("unit of work is required")
	}
	if params.Notifier == nil {
		return nil, errors.New("notifier is required")
	}
	if params.Logger == nil {
		return nil, errors.New("logger is required")
	}
	registry := params.Registry
	if registry == nil {
		registry = DefaultRegistry()
	}
	return &Processor{
		uow:      params.UnitOfWork,
		notifier: params.Notifier,
		registry: registry,
		logg:     params.Logger,
		metrics:  params.Metrics,
	}, nil
}

// ProcessWaiting locks the waiting items and delivers them one by one. Each
// delivered item is marked sent and committed on its own, so a later
// failure never undoes it. Every item is re-locked and re-checked before
// delivery, and items another drain already sent are skipped. A failed item stays waiting for the next run; the
// returned error aggregates those failures. Storage errors abort the run.
func (p *Processor) ProcessWaiting(ctx context.Context) (Result, error) {
	var result Result
	var failures error

	err := uow.Run(ctx, p.uow, func(s uow.Session) error {
		items, err := s.Outbox().ListWaiting(ctx, true)
		if err != nil {
			return fmt.Errorf("list waiting outbox items: %w", err)
		}
		result.Total = len(items)

		for _, listed := range items {
			itemCtx := p.logg.WithFields(ctx, map[string]any{
				"outbox_id":   listed.ID,
				"outbox_type": listed.Type,
			})

			// Earlier commits released the batch locks; another drain may
			// have delivered this item since.
			item, err := s.Outbox().LockWaiting(ctx, listed.ID)
			if err != nil {
				return fmt.Errorf("lock outbox item %d: %w", listed.ID, err)
			}
			if item == nil {
				result.Skipped++
				p.logg.Debug(itemCtx, "outbox item already delivered elsewhere")
				continue
			}

			n, err := p.registry.Render(*item)
			if err == nil {
				err = p.notifier.Notify(itemCtx, n)
			}
			if err != nil {
				result.Failed++
				failures = multierr.Append(failures, fmt.Errorf("outbox item %d: %w", item.ID, err))
				p.logg.Warn(p.logg.WithField(itemCtx, "error", err.Error()), "outbox delivery failed, item stays waiting")
				continue
			}

			if err := s.Outbox().UpdateStatus(ctx, item.ID, enums.OutboxStatusSent); err != nil {
				return fmt.Errorf("mark outbox item %d sent: %w", item.ID, err)
			}
			if err := s.Commit(); err != nil {
				return fmt.Errorf("commit outbox item %d: %w", item.ID, err)
			}
			result.Sent++
		}
		return nil
	})

	p.metrics.ObserveOutbox(result.Sent, result.Failed)
	logCtx := p.logg.WithFields(ctx, map[string]any{
		"processed": result.Sent,
		"failed":    result.Failed,
		"skipped":   result.Skipped,
		"total":     result.Total,
	})
	p.logg.Info(logCtx, "outbox drain finished")

	if err != nil {
		return result, err
	}
	return result, failures
}
