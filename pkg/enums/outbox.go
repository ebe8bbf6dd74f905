package enums

import "fmt"

// OutboxStatus maps to the outbox_status_enum in Postgres.
type OutboxStatus string

const (
	OutboxStatusWaiting OutboxStatus = "waiting"
	OutboxStatusSent    OutboxStatus = "sent"
)

var validOutboxStatuses = []OutboxStatus{
	OutboxStatusWaiting,
	OutboxStatusSent,
}

// String implements fmt.Stringer.
func (s OutboxStatus) String() string {
	return string(s)
}

// IsValid reports whether the value matches the canonical outbox_status enum.
func (s OutboxStatus) IsValid() bool {
	for _, candidate := range validOutboxStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// ParseOutboxStatus converts raw input into OutboxStatus.
func ParseOutboxStatus(value string) (OutboxStatus, error) {
	for _, candidate := range validOutboxStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid outbox status %q", value)
}

// OutboxType maps to the outbox_type_enum in Postgres.
type OutboxType string

const (
	OutboxTypeTicketRegister OutboxType = "ticket_register"
)

var validOutboxTypes = []OutboxType{
	OutboxTypeTicketRegister,
}

// String implements fmt.Stringer.
func (t OutboxType) String() string {
	return string(t)
}

// IsValid reports whether the value matches the canonical outbox_type enum.
func (t OutboxType) IsValid() bool {
	for _, candidate := range validOutboxTypes {
		if candidate == t {
			return true
		}
	}
	return false
}

// ParseOutboxType converts raw input into OutboxType.
func ParseOutboxType(value string) (OutboxType, error) {
	for _, candidate := range validOutboxTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid outbox type %q", value)
}
