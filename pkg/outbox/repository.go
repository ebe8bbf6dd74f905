package outbox

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/angelmondragon/events-aggregator/internal/repo"
	"github.com/angelmondragon/events-aggregator/internal/uow"
	"github.com/angelmondragon/events-aggregator/pkg/db/models"
	"github.com/angelmondragon/events-aggregator/pkg/enums"
)

type Repository struct {
	repo.Base
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{Base: repo.NewBase(db)}
}

var _ uow.OutboxRepository = (*Repository)(nil)

func (r *Repository) Create(ctx context.Context, item *models.OutboxItem) error {
	if item == nil {
		return errors.New("outbox item required")
	}
	if item.Status == "" {
		item.Status = enums.OutboxStatusWaiting
	}
	return r.DB(ctx).Create(item).Error
}

// ListWaiting returns every waiting item oldest first, locking the rows when
// forUpdate is set so concurrent drains do not pick up the same batch.
func (r *Repository) ListWaiting(ctx context.Context, forUpdate bool) ([]models.OutboxItem, error) {
	var rows []models.OutboxItem
	err := r.Locked(ctx, forUpdate).
		Where("status = ?", enums.OutboxStatusWaiting).
		Order("id ASC").
		Find(&rows).Error
	return rows, err
}

func (r *Repository) LockWaiting(ctx context.Context, id int64) (*models.OutboxItem, error) {
	var row models.OutboxItem
	err := r.Locked(ctx, true).
		Where("id = ? AND status = ?", id, enums.OutboxStatusWaiting).
		Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &row, nil
}

func (r *Repository) UpdateStatus(ctx context.Context, id int64, status enums.OutboxStatus) error {
	return r.DB(ctx).Model(&models.OutboxItem{}).
		Where("id = ?", id).
		Update("status", status).Error
}
