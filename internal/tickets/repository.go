package tickets

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/events-aggregator/internal/repo"
	"github.com/angelmondragon/events-aggregator/internal/uow"
	"github.com/angelmondragon/events-aggregator/pkg/db/models"
)

// Repository persists ticket holders.
type Repository struct {
	repo.Base
}

// NewRepository returns a members repository bound to the provided database.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{Base: repo.NewBase(db)}
}

var _ uow.MemberRepository = (*Repository)(nil)

func (r *Repository) Create(ctx context.Context, member *models.Member) error {
	return r.DB(ctx).Omit("Event").Create(member).Error
}

// GetByTicketID returns nil when the ticket is unknown. The event is only
// loaded when asked for.
func (r *Repository) GetByTicketID(ctx context.Context, ticketID uuid.UUID, loadEvent bool) (*models.Member, error) {
	query := r.DB(ctx)
	if loadEvent {
		query = query.Preload("Event")
	}
	var member models.Member
	err := query.Where("ticket_id = ?", ticketID).First(&member).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &member, nil
}

func (r *Repository) Delete(ctx context.Context, ticketID uuid.UUID) error {
	return r.DB(ctx).Where("ticket_id = ?", ticketID).Delete(&models.Member{}).Error
}

// CountByEvents returns the number of local members per event. Events with
// no members are absent from the map.
func (r *Repository) CountByEvents(ctx context.Context, eventIDs []uuid.UUID) (map[uuid.UUID]int64, error) {
	counts := make(map[uuid.UUID]int64, len(eventIDs))
	if len(eventIDs) == 0 {
		return counts, nil
	}

	var rows []struct {
		EventID uuid.UUID
		Total   int64
	}
	err := r.DB(ctx).
		Model(&models.Member{}).
		Select("event_id, COUNT(*) AS total").
		Where("event_id IN ?", eventIDs).
		Group("event_id").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	for _, row := range rows {
		counts[row.EventID] = row.Total
	}
	return counts, nil
}
