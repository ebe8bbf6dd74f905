package controllers

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/events-aggregator/api/responses"
	"github.com/angelmondragon/events-aggregator/api/validators"
	"github.com/angelmondragon/events-aggregator/internal/events"
	"github.com/angelmondragon/events-aggregator/pkg/db/models"
	pkgerrors "github.com/angelmondragon/events-aggregator/pkg/errors"
	"github.com/angelmondragon/events-aggregator/pkg/logger"
	"github.com/angelmondragon/events-aggregator/pkg/pagination"
	"github.com/angelmondragon/events-aggregator/pkg/types"
)

type eventsReader interface {
	List(ctx context.Context, filter events.ListFilter) ([]events.View, int64, error)
	Get(ctx context.Context, id uuid.UUID) (*events.View, error)
	Seats(ctx context.Context, id uuid.UUID) ([]string, error)
}

type placeDTO struct {
	ID           uuid.UUID `json:"id"`
	Name         string    `json:"name"`
	City         string    `json:"city"`
	Address      string    `json:"address"`
	SeatsPattern string    `json:"seats_pattern"`
	ChangedAt    time.Time `json:"changed_at"`
	CreatedAt    time.Time `json:"created_at"`
}

type eventDTO struct {
	ID                   uuid.UUID `json:"id"`
	Name                 string    `json:"name"`
	Place                *placeDTO `json:"place"`
	EventTime            time.Time `json:"event_time"`
	RegistrationDeadline time.Time `json:"registration_deadline"`
	Status               string    `json:"status"`
	NumberOfVisitors     int64     `json:"number_of_visitors"`
	ChangedAt            time.Time `json:"changed_at"`
	CreatedAt            time.Time `json:"created_at"`
	StatusChangedAt      time.Time `json:"status_changed_at"`
}

type seatsDTO struct {
	Seats []string `json:"seats"`
}

func newPlaceDTO(place *models.Place) *placeDTO {
	if place == nil {
		return nil
	}
	return &placeDTO{
		ID:           place.ID,
		Name:         place.Name,
		City:         place.City,
		Address:      place.Address,
		SeatsPattern: place.SeatsPattern,
		ChangedAt:    place.ChangedAt,
		CreatedAt:    place.CreatedAt,
	}
}

func newEventDTO(view events.View) eventDTO {
	e := view.Event
	return eventDTO{
		ID:                   e.ID,
		Name:                 e.Name,
		Place:                newPlaceDTO(e.Place),
		EventTime:            e.EventTime,
		RegistrationDeadline: e.RegistrationDeadline,
		Status:               string(e.Status),
		NumberOfVisitors:     view.NumberOfVisitors,
		ChangedAt:            e.ChangedAt,
		CreatedAt:            e.CreatedAt,
		StatusChangedAt:      e.StatusChangedAt,
	}
}

// EventsList pages through local events, optionally from a date onwards.
func EventsList(svc eventsReader, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		dateFrom, err := validators.ParseQueryDate(r, "date_from")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		params, err := pagination.ParseParams(r.URL.Query())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, err.Error()))
			return
		}

		views, total, err := svc.List(r.Context(), events.ListFilter{DateFrom: dateFrom, Params: params})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		results := make([]eventDTO, 0, len(views))
		for _, view := range views {
			results = append(results, newEventDTO(view))
		}
		next, previous := pagination.Links(requestURL(r), params, total)
		responses.WriteSuccess(w, types.NewPage(total, next, previous, results))
	}
}

func EventDetail(svc eventsReader, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := validators.ParsePathUUID(r, "eventId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		view, err := svc.Get(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newEventDTO(*view))
	}
}

// EventSeats lists the seats the provider still offers for an event.
func EventSeats(svc eventsReader, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := validators.ParsePathUUID(r, "eventId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		ctx := logg.WithEventID(r.Context(), id.String())
		seats, err := svc.Seats(ctx, id)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		if seats == nil {
			seats = []string{}
		}
		responses.WriteSuccess(w, seatsDTO{Seats: seats})
	}
}
