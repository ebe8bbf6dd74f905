package payloads

import "github.com/google/uuid"

// TicketRegisteredEvent is queued when a member books a seat; it carries
// everything needed to notify the member later.
type TicketRegisteredEvent struct {
	EventID   uuid.UUID `json:"event_id"`
	TicketID  uuid.UUID `json:"ticket_id"`
	Seat      string    `json:"seat"`
	FirstName string    `json:"first_name"`
	LastName  string    `json:"last_name"`
	Email     string    `json:"email"`
}
