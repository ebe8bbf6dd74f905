package tickets

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/angelmondragon/events-aggregator/pkg/db"
	"github.com/angelmondragon/events-aggregator/pkg/db/dbtest"
	"github.com/angelmondragon/events-aggregator/pkg/db/models"
	"github.com/angelmondragon/events-aggregator/pkg/enums"
)

func seedEvent(t *testing.T, conn *gorm.DB) models.Event {
	t.Helper()
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	place := models.Place{ID: uuid.New(), Name: "Hall", City: "Moscow", Address: "Arbat 1", SeatsPattern: "A1-10", ChangedAt: now, CreatedAt: now}
	require.NoError(t, conn.Create(&place).Error)
	event := models.Event{
		ID:                   uuid.New(),
		Name:                 "Opening",
		PlaceID:              place.ID,
		EventTime:            now.Add(30 * 24 * time.Hour),
		RegistrationDeadline: now.Add(29 * 24 * time.Hour),
		Status:               enums.EventStatusPublished,
		ChangedAt:            now,
		CreatedAt:            now,
		StatusChangedAt:      now,
	}
	require.NoError(t, conn.Omit("Place").Create(&event).Error)
	return event
}

func newMember(eventID uuid.UUID, seat string) *models.Member {
	return &models.Member{
		TicketID:  uuid.New(),
		FirstName: "Ivan",
		LastName:  "Petrov",
		Email:     "ivan@example.com",
		Seat:      seat,
		EventID:   eventID,
	}
}

func TestMemberLifecycle(t *testing.T) {
	conn := dbtest.Open(t)
	repo := NewRepository(conn)
	ctx := context.Background()
	event := seedEvent(t, conn)

	member := newMember(event.ID, "A1")
	require.NoError(t, repo.Create(ctx, member))

	got, err := repo.GetByTicketID(ctx, member.TicketID, false)
	require.NoError(t, err)
	require.NotNil(t, got)
	require.Nil(t, got.Event)
	require.Equal(t, "A1", got.Seat)

	withEvent, err := repo.GetByTicketID(ctx, member.TicketID, true)
	require.NoError(t, err)
	require.NotNil(t, withEvent.Event)
	require.Equal(t, event.ID, withEvent.Event.ID)

	require.NoError(t, repo.Delete(ctx, member.TicketID))
	gone, err := repo.GetByTicketID(ctx, member.TicketID, false)
	require.NoError(t, err)
	require.Nil(t, gone)
}

func TestCreateDuplicateTicketIsUniqueViolation(t *testing.T) {
	conn := dbtest.Open(t)
	repo := NewRepository(conn)
	ctx := context.Background()
	event := seedEvent(t, conn)

	member := newMember(event.ID, "A1")
	require.NoError(t, repo.Create(ctx, member))
	dup := *member
	err := repo.Create(ctx, &dup)
	require.Error(t, err)
	require.True(t, db.IsUniqueViolation(err, ""))
}

func TestCountByEvents(t *testing.T) {
	conn := dbtest.Open(t)
	repo := NewRepository(conn)
	ctx := context.Background()
	first := seedEvent(t, conn)
	second := seedEvent(t, conn)

	require.NoError(t, repo.Create(ctx, newMember(first.ID, "A1")))
	require.NoError(t, repo.Create(ctx, newMember(first.ID, "A2")))

	counts, err := repo.CountByEvents(ctx, []uuid.UUID{first.ID, second.ID})
	require.NoError(t, err)
	require.Equal(t, int64(2), counts[first.ID])
	require.Equal(t, int64(0), counts[second.ID])

	empty, err := repo.CountByEvents(ctx, nil)
	require.NoError(t, err)
	require.Empty(t, empty)
}
