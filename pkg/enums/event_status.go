package enums

import (
	"fmt"
	"strings"
)

// EventStatus mirrors the upstream provider's event lifecycle.
type EventStatus string

const (
	EventStatusNew       EventStatus = "new"
	EventStatusPublished EventStatus = "published"
)

var validEventStatuses = []EventStatus{
	EventStatusNew,
	EventStatusPublished,
}

// String implements fmt.Stringer.
func (s EventStatus) String() string {
	return string(s)
}

// IsValid reports whether the value is a known EventStatus.
func (s EventStatus) IsValid() bool {
	for _, candidate := range validEventStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// ParseEventStatus converts raw provider input into an EventStatus.
func ParseEventStatus(value string) (EventStatus, error) {
	normalized := strings.ToLower(strings.TrimSpace(value))
	for _, candidate := range validEventStatuses {
		if string(candidate) == normalized {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid event status %q", value)
}
