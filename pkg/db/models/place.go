package models

import (
	"time"

	"github.com/google/uuid"
)

// Place is a venue mirrored from the events provider.
type Place struct {
	ID           uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	Name         string    `gorm:"column:name;not null"`
	City         string    `gorm:"column:city;not null"`
	Address      string    `gorm:"column:address;not null"`
	SeatsPattern string    `gorm:"column:seats_pattern;not null"`
	ChangedAt    time.Time `gorm:"column:changed_at;not null"`
	CreatedAt    time.Time `gorm:"column:created_at;not null;autoCreateTime:false"`
}
