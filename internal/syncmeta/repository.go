// Package syncmeta stores the singleton row tracking reconciliation with the
// events provider.
package syncmeta

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/angelmondragon/events-aggregator/internal/repo"
	"github.com/angelmondragon/events-aggregator/internal/uow"
	"github.com/angelmondragon/events-aggregator/pkg/db/models"
	"github.com/angelmondragon/events-aggregator/pkg/enums"
)

// Repository owns the sync_meta row.
type Repository struct {
	repo.Base
}

// NewRepository returns a sync meta repository bound to the provided database.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{Base: repo.NewBase(db)}
}

var _ uow.SyncMetaRepository = (*Repository)(nil)

// GetOrAdd inserts the singleton when it is missing and then reads it,
// optionally under a row lock. Losing the insert race is not an error: the
// conflicting insert is discarded and the winner's row is returned.
func (r *Repository) GetOrAdd(ctx context.Context, forUpdate bool) (*models.SyncMeta, bool, error) {
	seed := models.SyncMeta{
		ID:         models.SyncMetaID,
		SyncStatus: enums.SyncStatusNever,
	}
	result := r.DB(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			DoNothing: true,
		}).
		Create(&seed)
	if result.Error != nil {
		return nil, false, result.Error
	}
	created := result.RowsAffected == 1

	var meta models.SyncMeta
	if err := r.Locked(ctx, forUpdate).Where("id = ?", models.SyncMetaID).First(&meta).Error; err != nil {
		return nil, false, err
	}
	return &meta, created, nil
}

func (r *Repository) Update(ctx context.Context, meta *models.SyncMeta) error {
	meta.ID = models.SyncMetaID
	return r.DB(ctx).
		Model(&models.SyncMeta{}).
		Where("id = ?", models.SyncMetaID).
		Updates(map[string]any{
			"last_sync_time":  meta.LastSyncTime,
			"last_changed_at": meta.LastChangedAt,
			"sync_status":     meta.SyncStatus,
		}).Error
}
