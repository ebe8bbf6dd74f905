package models

import (
	"time"

	"gorm.io/datatypes"

	"github.com/angelmondragon/events-aggregator/pkg/enums"
)

// OutboxItem is a pending outbound side effect written in the same
// transaction as the domain change that produced it.
type OutboxItem struct {
	ID        int64              `gorm:"column:id;primaryKey;autoIncrement"`
	Type      enums.OutboxType   `gorm:"column:type;type:outbox_type_enum;not null"`
	Payload   datatypes.JSON     `gorm:"column:payload;type:jsonb;not null"`
	Status    enums.OutboxStatus `gorm:"column:status;type:outbox_status_enum;not null;index"`
	CreatedAt time.Time          `gorm:"column:created_at;autoCreateTime"`
}

func (OutboxItem) TableName() string {
	return "outbox"
}
