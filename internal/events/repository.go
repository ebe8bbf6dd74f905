package events

import (
	"context"
	"errors"
	"sort"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/events-aggregator/internal/repo"
	"github.com/angelmondragon/events-aggregator/internal/uow"
	"github.com/angelmondragon/events-aggregator/pkg/db/models"
)

// Repository persists events mirrored from the provider.
type Repository struct {
	repo.Base
}

// NewRepository returns an events repository bound to the provided database.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{Base: repo.NewBase(db)}
}

var _ uow.EventRepository = (*Repository)(nil)

// Upsert overwrites every event by primary key in one statement. Input is
// sorted by ID so concurrent writers lock rows in the same order.
func (r *Repository) Upsert(ctx context.Context, events []models.Event) error {
	if len(events) == 0 {
		return nil
	}
	rows := append([]models.Event(nil), events...)
	sort.Slice(rows, func(i, j int) bool {
		return rows[i].ID.String() < rows[j].ID.String()
	})
	for i := range rows {
		rows[i].Place = nil
	}
	return r.UpsertByID(ctx, "id").Create(&rows).Error
}

// GetByID returns the event with its place preloaded, or nil when missing.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*models.Event, error) {
	var event models.Event
	err := r.DB(ctx).Preload("Place").Where("id = ?", id).First(&event).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &event, nil
}

func (r *Repository) List(ctx context.Context, filter uow.EventFilter) ([]models.Event, int64, error) {
	query := r.DB(ctx).Model(&models.Event{})
	if filter.DateFrom != nil {
		query = query.Where("event_time >= ?", filter.DateFrom.UTC())
	}

	var count int64
	if err := query.Count(&count).Error; err != nil {
		return nil, 0, err
	}

	query = query.Preload("Place").Order("event_time ASC, id ASC")
	if filter.PageSize > 0 {
		page := filter.Page
		if page < 1 {
			page = 1
		}
		query = query.Offset((page - 1) * filter.PageSize).Limit(filter.PageSize)
	}

	var events []models.Event
	if err := query.Find(&events).Error; err != nil {
		return nil, 0, err
	}
	return events, count, nil
}

// PlaceRepository persists venues mirrored from the provider.
type PlaceRepository struct {
	repo.Base
}

// NewPlaceRepository returns a places repository bound to the provided database.
func NewPlaceRepository(db *gorm.DB) *PlaceRepository {
	return &PlaceRepository{Base: repo.NewBase(db)}
}

var _ uow.PlaceRepository = (*PlaceRepository)(nil)

func (r *PlaceRepository) Upsert(ctx context.Context, places []models.Place) error {
	if len(places) == 0 {
		return nil
	}
	rows := append([]models.Place(nil), places...)
	sort.Slice(rows, func(i, j int) bool {
		return rows[i].ID.String() < rows[j].ID.String()
	})
	return r.UpsertByID(ctx, "id").Create(&rows).Error
}

func (r *PlaceRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Place, error) {
	var place models.Place
	err := r.DB(ctx).Where("id = ?", id).First(&place).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &place, nil
}
