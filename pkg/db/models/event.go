package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/events-aggregator/pkg/enums"
)

// Event is an upstream event keyed by the provider's UUID. Place is only
// populated when explicitly preloaded.
type Event struct {
	ID                   uuid.UUID         `gorm:"column:id;type:uuid;primaryKey"`
	Name                 string            `gorm:"column:name;not null"`
	PlaceID              uuid.UUID         `gorm:"column:place_id;type:uuid;not null;index"`
	Place                *Place            `gorm:"foreignKey:PlaceID;references:ID"`
	EventTime            time.Time         `gorm:"column:event_time;not null"`
	RegistrationDeadline time.Time         `gorm:"column:registration_deadline;not null"`
	Status               enums.EventStatus `gorm:"column:status;type:event_status_enum;not null"`
	ChangedAt            time.Time         `gorm:"column:changed_at;not null"`
	CreatedAt            time.Time         `gorm:"column:created_at;not null;autoCreateTime:false"`
	StatusChangedAt      time.Time         `gorm:"column:status_changed_at;not null"`
}

// IsPublished reports whether registrations are open on the provider side.
func (e Event) IsPublished() bool {
	return e.Status == enums.EventStatusPublished
}
