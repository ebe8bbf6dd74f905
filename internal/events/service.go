package events

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/events-aggregator/internal/uow"
	"github.com/angelmondragon/events-aggregator/pkg/db/models"
	pkgerrors "github.com/angelmondragon/events-aggregator/pkg/errors"
	"github.com/angelmondragon/events-aggregator/pkg/eventsprovider"
	"github.com/angelmondragon/events-aggregator/pkg/httpclient"
	"github.com/angelmondragon/events-aggregator/pkg/logger"
	"github.com/angelmondragon/events-aggregator/pkg/pagination"
)

// View is an event together with its locally registered member count.
type View struct {
	Event            models.Event
	NumberOfVisitors int64
}

// ListFilter narrows the events listing.
type ListFilter struct {
	DateFrom *time.Time
	pagination.Params
}

type seatSource interface {
	Seats(ctx context.Context, eventID uuid.UUID) ([]string, error)
}

type ServiceParams struct {
	UnitOfWork uow.UnitOfWork
	Seats      seatSource
	Logger     *logger.Logger
}

// Service serves the read side of events.
type Service struct {
	uow   uow.UnitOfWork
	seats seatSource
	logg  *logger.Logger
}

func NewService(params ServiceParams) (*Service, error) {
	if params.UnitOfWork == nil {
		return nil, errors.New("unit of work is required")
	}
	if params.Seats == nil {
		return nil, errors.New("seat source is required")
	}
	if params.Logger == nil {
		return nil, errors.New("logger is required")
	}
	return &Service{uow: params.UnitOfWork, seats: params.Seats, logg: params.Logger}, nil
}

// List returns one page of events ordered by event time, plus the total
// number of events matching the filter.
func (s *Service) List(ctx context.Context, filter ListFilter) ([]View, int64, error) {
	var (
		rows   []models.Event
		total  int64
		counts map[uuid.UUID]int64
	)
	err := uow.Run(ctx, s.uow, func(sess uow.Session) error {
		var err error
		rows, total, err = sess.Events().List(ctx, uow.EventFilter{
			DateFrom: filter.DateFrom,
			Page:     filter.Page,
			PageSize: filter.PageSize,
		})
		if err != nil {
			return err
		}
		ids := make([]uuid.UUID, 0, len(rows))
		for _, row := range rows {
			ids = append(ids, row.ID)
		}
		counts, err = sess.Members().CountByEvents(ctx, ids)
		return err
	})
	if err != nil {
		return nil, 0, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list events")
	}

	views := make([]View, 0, len(rows))
	for _, row := range rows {
		views = append(views, View{Event: row, NumberOfVisitors: counts[row.ID]})
	}
	return views, total, nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*View, error) {
	var view *View
	err := uow.Run(ctx, s.uow, func(sess uow.Session) error {
		event, err := sess.Events().GetByID(ctx, id)
		if err != nil || event == nil {
			return err
		}
		counts, err := sess.Members().CountByEvents(ctx, []uuid.UUID{id})
		if err != nil {
			return err
		}
		view = &View{Event: *event, NumberOfVisitors: counts[id]}
		return nil
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load event")
	}
	if view == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "Event not found")
	}
	return view, nil
}

// Seats lists the free seats of a known event.
func (s *Service) Seats(ctx context.Context, id uuid.UUID) ([]string, error) {
	if _, err := s.Get(ctx, id); err != nil {
		return nil, err
	}
	seats, err := s.seats.Seats(ctx, id)
	if err != nil {
		s.logg.Error(s.logg.WithEventID(ctx, id.String()), "seat lookup failed", err)
		return nil, mapSeatError(err)
	}
	return seats, nil
}

func mapSeatError(err error) error {
	if errors.Is(err, eventsprovider.ErrUnavailable) {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "events provider is unavailable")
	}
	if httpclient.StatusCode(err) == http.StatusNotFound {
		return pkgerrors.Wrap(pkgerrors.CodeNotFound, err, "Event not found")
	}
	return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "fetch seats")
}
