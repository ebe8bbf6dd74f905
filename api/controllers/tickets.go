package controllers

import (
	"context"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/angelmondragon/events-aggregator/api/middleware"
	"github.com/angelmondragon/events-aggregator/api/responses"
	"github.com/angelmondragon/events-aggregator/api/validators"
	"github.com/angelmondragon/events-aggregator/internal/inbox"
	"github.com/angelmondragon/events-aggregator/internal/tickets"
	pkgerrors "github.com/angelmondragon/events-aggregator/pkg/errors"
	"github.com/angelmondragon/events-aggregator/pkg/logger"
)

type ticketsService interface {
	Register(ctx context.Context, input tickets.RegisterInput, idempotencyKey string) (tickets.RegisterResult, error)
	Unregister(ctx context.Context, ticketID uuid.UUID) error
}

type registerRequest struct {
	EventID        uuid.UUID `json:"event_id" validate:"required"`
	FirstName      string    `json:"first_name" validate:"required,min=2,max=32,person_name"`
	LastName       string    `json:"last_name" validate:"required,min=2,max=32,person_name"`
	Email          string    `json:"email" validate:"required,email"`
	Seat           string    `json:"seat" validate:"required,seat"`
	IdempotencyKey *string   `json:"idempotency_key,omitempty"`
}

// TicketRegister books a seat. The idempotency key comes from the body or,
// failing that, from the Idempotency-Key header.
func TicketRegister(svc ticketsService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req registerRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		key := middleware.IdempotencyKeyFromContext(r.Context())
		if req.IdempotencyKey != nil {
			if err := inbox.ValidateKey(*req.IdempotencyKey); err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, err.Error()).
					WithDetails(map[string]string{"idempotency_key": "must be between 1 and 128 characters"}))
				return
			}
			key = strings.TrimSpace(*req.IdempotencyKey)
		}

		result, err := svc.Register(r.Context(), tickets.RegisterInput{
			EventID:   req.EventID,
			FirstName: req.FirstName,
			LastName:  req.LastName,
			Email:     req.Email,
			Seat:      req.Seat,
		}, key)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, result)
	}
}

func TicketUnregister(svc ticketsService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ticketID, err := validators.ParsePathUUID(r, "ticketId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := svc.Unregister(r.Context(), ticketID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]bool{"success": true})
	}
}
