package inbox

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/angelmondragon/events-aggregator/internal/repo"
	"github.com/angelmondragon/events-aggregator/internal/uow"
	"github.com/angelmondragon/events-aggregator/pkg/db/models"
)

// Repository persists idempotency records.
type Repository struct {
	repo.Base
}

// NewRepository returns an inbox repository bound to the provided database.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{Base: repo.NewBase(db)}
}

var _ uow.InboxRepository = (*Repository)(nil)

func (r *Repository) Get(ctx context.Context, key string) (*models.InboxItem, error) {
	var item models.InboxItem
	err := r.DB(ctx).First(&item, `"key" = ?`, key).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (r *Repository) Create(ctx context.Context, item *models.InboxItem) error {
	return r.DB(ctx).Create(item).Error
}

// DeleteExpired removes every record whose expiry is at or before now.
func (r *Repository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	result := r.DB(ctx).Where("expires_at <= ?", now.UTC()).Delete(&models.InboxItem{})
	return result.RowsAffected, result.Error
}
