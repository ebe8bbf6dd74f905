package eventsprovider

import (
	"net/url"

	"github.com/google/uuid"
)

// RawPlace is a venue exactly as the provider serializes it.
type RawPlace struct {
	ID           uuid.UUID `json:"id"`
	Name         string    `json:"name"`
	City         string    `json:"city"`
	Address      string    `json:"address"`
	SeatsPattern string    `json:"seats_pattern"`
	ChangedAt    string    `json:"changed_at"`
	CreatedAt    string    `json:"created_at"`
}

// RawEvent is an event exactly as the provider serializes it. Datetimes stay
// strings until ParseEvent normalizes them.
type RawEvent struct {
	ID                   uuid.UUID `json:"id"`
	Name                 string    `json:"name"`
	Place                RawPlace  `json:"place"`
	EventTime            string    `json:"event_time"`
	RegistrationDeadline string    `json:"registration_deadline"`
	Status               string    `json:"status"`
	NumberOfVisitors     int       `json:"number_of_visitors"`
	ChangedAt            string    `json:"changed_at"`
	CreatedAt            string    `json:"created_at"`
	StatusChangedAt      string    `json:"status_changed_at"`
}

// Page is one cursor page of changed events.
type Page struct {
	Count    int        `json:"count"`
	Next     *string    `json:"next"`
	Previous *string    `json:"previous"`
	Results  []RawEvent `json:"results"`
}

// NextCursor extracts the cursor query parameter of the next link; empty when
// this is the last page.
func (p *Page) NextCursor() string {
	if p == nil || p.Next == nil || *p.Next == "" {
		return ""
	}
	u, err := url.Parse(*p.Next)
	if err != nil {
		return ""
	}
	return u.Query().Get("cursor")
}

// Member is the registration payload forwarded to the provider.
type Member struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Email     string `json:"email"`
	Seat      string `json:"seat"`
}
