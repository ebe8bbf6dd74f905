package tickets

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"slices"
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/events-aggregator/internal/inbox"
	"github.com/angelmondragon/events-aggregator/internal/uow"
	"github.com/angelmondragon/events-aggregator/pkg/db"
	"github.com/angelmondragon/events-aggregator/pkg/db/models"
	"github.com/angelmondragon/events-aggregator/pkg/enums"
	pkgerrors "github.com/angelmondragon/events-aggregator/pkg/errors"
	"github.com/angelmondragon/events-aggregator/pkg/eventsprovider"
	"github.com/angelmondragon/events-aggregator/pkg/httpclient"
	"github.com/angelmondragon/events-aggregator/pkg/logger"
	"github.com/angelmondragon/events-aggregator/pkg/outbox/payloads"
)

const (
	msgEventNotFound     = "Event not found"
	msgNotPublished      = "Event is not published"
	msgDeadlineExpired   = "The registration time has expired"
	msgSeatNotAvailable  = "Seat is not available"
	msgMemberNotFound    = "Member not found"
	msgEventPassed       = "The event has already passed"
	msgIdempotencyReused = "Idempotency key already exists"
)

// Provider is the registration surface of the events provider.
type Provider interface {
	Register(ctx context.Context, eventID uuid.UUID, member eventsprovider.Member) (uuid.UUID, error)
	Unregister(ctx context.Context, eventID, ticketID uuid.UUID) error
}

type seatSource interface {
	Seats(ctx context.Context, eventID uuid.UUID) ([]string, error)
}

type idempotencyGuard interface {
	Check(ctx context.Context, key string, body any) (inbox.CheckResult, error)
	Record(ctx context.Context, repo uow.InboxRepository, key, requestHash string, response any) error
}

type outboxEnqueuer interface {
	Enqueue(ctx context.Context, repo uow.OutboxRepository, outboxType enums.OutboxType, payload any) (*models.OutboxItem, error)
}

// RegisterInput is the member data of a registration request.
type RegisterInput struct {
	EventID   uuid.UUID `json:"event_id"`
	FirstName string    `json:"first_name"`
	LastName  string    `json:"last_name"`
	Email     string    `json:"email"`
	Seat      string    `json:"seat"`
}

type RegisterResult struct {
	TicketID uuid.UUID `json:"ticket_id"`
}

type ServiceParams struct {
	UnitOfWork uow.UnitOfWork
	Provider   Provider
	Seats      seatSource
	Inbox      idempotencyGuard
	Outbox     outboxEnqueuer
	Logger     *logger.Logger
	Now        func() time.Time
}

// Service registers and unregisters members with the provider and mirrors
// the result locally.
type Service struct {
	uow      uow.UnitOfWork
	provider Provider
	seats    seatSource
	inbox    idempotencyGuard
	outbox   outboxEnqueuer
	logg     *logger.Logger
	now      func() time.Time
}

func NewService(params ServiceParams) (*Service, error) {
	if params.UnitOfWork == nil {
		return nil, errors.New("unit of work is required")
	}
	if params.Provider == nil {
		return nil, errors.New("events provider is required")
	}
	if params.Seats == nil {
		return nil, errors.New("seat source is required")
	}
	if params.Inbox == nil {
		return nil, errors.New("inbox service is required")
	}
	if params.Outbox == nil {
		return nil, errors.New("outbox service is required")
	}
	if params.Logger == nil {
		return nil, errors.New("logger is required")
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	return &Service{
		uow:      params.UnitOfWork,
		provider: params.Provider,
		seats:    params.Seats,
		inbox:    params.Inbox,
		outbox:   params.Outbox,
		logg:     params.Logger,
		now:      now,
	}, nil
}

// Register books a seat. With an idempotency key a replay returns the first
// response and a different body under the same key is rejected. The member
// row, the notification and the inbox record commit together.
func (s *Service) Register(ctx context.Context, input RegisterInput, idempotencyKey string) (RegisterResult, error) {
	ctx = s.logg.WithEventID(ctx, input.EventID.String())

	var requestHash string
	if idempotencyKey != "" {
		check, replay, err := s.checkKey(ctx, idempotencyKey, input)
		if err != nil || check.Status != inbox.StatusNew {
			return replay, err
		}
		requestHash = check.RequestHash
	}

	if err := s.checkRegistrable(ctx, input); err != nil {
		return RegisterResult{}, err
	}

	ticketID, err := s.provider.Register(ctx, input.EventID, eventsprovider.Member{
		FirstName: input.FirstName,
		LastName:  input.LastName,
		Email:     input.Email,
		Seat:      input.Seat,
	})
	if err != nil {
		return RegisterResult{}, providerError(err, "register member")
	}

	result := RegisterResult{TicketID: ticketID}
	member := &models.Member{
		TicketID:  ticketID,
		FirstName: input.FirstName,
		LastName:  input.LastName,
		Email:     input.Email,
		Seat:      input.Seat,
		EventID:   input.EventID,
	}
	err = uow.Run(ctx, s.uow, func(sess uow.Session) error {
		return sess.Atomic(func() error {
			if err := sess.Members().Create(ctx, member); err != nil {
				return fmt.Errorf("create member: %w", err)
			}
			payload := payloads.TicketRegisteredEvent{
				EventID:   input.EventID,
				TicketID:  ticketID,
				Seat:      input.Seat,
				FirstName: input.FirstName,
				LastName:  input.LastName,
				Email:     input.Email,
			}
			if _, err := s.outbox.Enqueue(ctx, sess.Outbox(), enums.OutboxTypeTicketRegister, payload); err != nil {
				return fmt.Errorf("enqueue notification: %w", err)
			}
			if idempotencyKey == "" {
				return nil
			}
			return s.inbox.Record(ctx, sess.Inbox(), idempotencyKey, requestHash, result)
		})
	})
	if err != nil {
		logCtx := s.logg.WithField(ctx, "ticket_id", ticketID.String())
		s.logg.Error(logCtx, "provider registration succeeded but local write failed", err)
		if idempotencyKey != "" && db.IsUniqueViolation(err, "inbox") {
			return s.lostKeyRace(ctx, input, idempotencyKey, ticketID, err)
		}
		return RegisterResult{}, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "store registration")
	}

	s.logg.Info(s.logg.WithField(ctx, "ticket_id", ticketID.String()), "member registered")
	return result, nil
}

// checkKey classifies idempotencyKey. For anything but a new key it returns
// the response to send back: the cached result or the reuse error.
func (s *Service) checkKey(ctx context.Context, key string, input RegisterInput) (inbox.CheckResult, RegisterResult, error) {
	check, err := s.inbox.Check(ctx, key, input)
	if err != nil {
		if errors.Is(err, inbox.ErrInvalidKey) {
			return check, RegisterResult{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, err.Error())
		}
		return check, RegisterResult{}, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "check idempotency key")
	}
	switch check.Status {
	case inbox.StatusConflict:
		return check, RegisterResult{}, pkgerrors.New(pkgerrors.CodeIdempotency, msgIdempotencyReused)
	case inbox.StatusCached:
		var cached RegisterResult
		if err := json.Unmarshal(check.Response, &cached); err != nil {
			return check, RegisterResult{}, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "decode cached response")
		}
		return check, cached, nil
	}
	return check, RegisterResult{}, nil
}

// lostKeyRace handles a concurrent request that recorded the same key first.
// The seat booked by this request is released upstream and the caller gets
// whatever the winner stored.
func (s *Service) lostKeyRace(ctx context.Context, input RegisterInput, key string, ticketID uuid.UUID, cause error) (RegisterResult, error) {
	logCtx := s.logg.WithField(ctx, "ticket_id", ticketID.String())
	if err := s.provider.Unregister(ctx, input.EventID, ticketID); err != nil {
		s.logg.Error(logCtx, "failed to release duplicate registration", err)
	} else {
		s.logg.Warn(logCtx, "duplicate registration released")
	}

	check, replay, err := s.checkKey(ctx, key, input)
	if err != nil {
		return RegisterResult{}, err
	}
	if check.Status == inbox.StatusNew {
		return RegisterResult{}, pkgerrors.Wrap(pkgerrors.CodeIdempotency, cause, msgIdempotencyReused)
	}
	return replay, nil
}

func (s *Service) checkRegistrable(ctx context.Context, input RegisterInput) error {
	var event *models.Event
	err := uow.Run(ctx, s.uow, func(sess uow.Session) error {
		var err error
		event, err = sess.Events().GetByID(ctx, input.EventID)
		return err
	})
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load event")
	}
	if event == nil {
		return pkgerrors.New(pkgerrors.CodeNotFound, msgEventNotFound)
	}
	if !event.IsPublished() {
		return pkgerrors.New(pkgerrors.CodeValidation, msgNotPublished)
	}
	if s.now().After(event.RegistrationDeadline) {
		return pkgerrors.New(pkgerrors.CodeValidation, msgDeadlineExpired)
	}

	seats, err := s.seats.Seats(ctx, input.EventID)
	if err != nil {
		return providerError(err, "fetch seats")
	}
	if !slices.Contains(seats, input.Seat) {
		return pkgerrors.New(pkgerrors.CodeValidation, msgSeatNotAvailable)
	}
	return nil
}

// Unregister cancels a ticket upstream and removes the local member. Tickets
// of events that already took place cannot be cancelled.
func (s *Service) Unregister(ctx context.Context, ticketID uuid.UUID) error {
	ctx = s.logg.WithField(ctx, "ticket_id", ticketID.String())

	var member *models.Member
	err := uow.Run(ctx, s.uow, func(sess uow.Session) error {
		var err error
		member, err = sess.Members().GetByTicketID(ctx, ticketID, true)
		return err
	})
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load member")
	}
	if member == nil {
		return pkgerrors.New(pkgerrors.CodeNotFound, msgMemberNotFound)
	}
	if member.Event != nil && member.Event.EventTime.Before(s.now()) {
		return pkgerrors.New(pkgerrors.CodeValidation, msgEventPassed)
	}

	if err := s.provider.Unregister(ctx, member.EventID, ticketID); err != nil {
		return providerError(err, "unregister member")
	}

	err = uow.Run(ctx, s.uow, func(sess uow.Session) error {
		return sess.Atomic(func() error {
			return sess.Members().Delete(ctx, ticketID)
		})
	})
	if err != nil {
		s.logg.Error(ctx, "provider unregistration succeeded but local delete failed", err)
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "delete member")
	}
	s.logg.Info(s.logg.WithEventID(ctx, member.EventID.String()), "member unregistered")
	return nil
}

// providerError surfaces a provider 400 with its own message; anything else
// is an internal failure of the request.
func providerError(err error, action string) error {
	var statusErr *httpclient.StatusError
	if errors.As(err, &statusErr) && statusErr.StatusCode == http.StatusBadRequest {
		message := statusErr.Message
		if message == "" {
			message = "events provider rejected the request"
		}
		return pkgerrors.Wrap(pkgerrors.CodeValidation, err, message)
	}
	return pkgerrors.Wrap(pkgerrors.CodeInternal, err, action)
}
