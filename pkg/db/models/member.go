package models

import "github.com/google/uuid"

// Member is a local registration record; TicketID is issued by the provider.
type Member struct {
	TicketID  uuid.UUID `gorm:"column:ticket_id;type:uuid;primaryKey"`
	FirstName string    `gorm:"column:first_name;not null"`
	LastName  string    `gorm:"column:last_name;not null"`
	Email     string    `gorm:"column:email;not null"`
	Seat      string    `gorm:"column:seat;not null"`
	EventID   uuid.UUID `gorm:"column:event_id;type:uuid;not null;index"`
	Event     *Event    `gorm:"foreignKey:EventID;references:ID"`
}
