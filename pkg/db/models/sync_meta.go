package models

import (
	"time"

	"github.com/angelmondragon/events-aggregator/pkg/enums"
)

// SyncMetaID is the fixed primary key of the sync_meta singleton row.
const SyncMetaID = 1

// SyncMeta tracks the reconciliation state against the events provider.
type SyncMeta struct {
	ID            int              `gorm:"column:id;primaryKey;autoIncrement:false"`
	LastSyncTime  *time.Time       `gorm:"column:last_sync_time"`
	LastChangedAt *time.Time       `gorm:"column:last_changed_at;type:date"`
	SyncStatus    enums.SyncStatus `gorm:"column:sync_status;type:sync_status_enum;not null"`
}

func (SyncMeta) TableName() string {
	return "sync_meta"
}
