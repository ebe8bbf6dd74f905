package eventsprovider

import (
	"fmt"
	"strings"
	"time"

	"github.com/angelmondragon/events-aggregator/pkg/db/models"
	"github.com/angelmondragon/events-aggregator/pkg/enums"
)

// Zone-less layouts are read as UTC.
var naiveLayouts = []string{
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04",
}

// ParseTime reads an ISO-8601 datetime and returns it in UTC. Inputs without
// an offset are taken to already be UTC.
func ParseTime(value string) (time.Time, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return time.Time{}, fmt.Errorf("empty datetime")
	}
	if t, err := time.Parse(time.RFC3339Nano, trimmed); err == nil {
		return t.UTC(), nil
	}
	if t, err := time.Parse("2006-01-02 15:04:05.999999999Z07:00", trimmed); err == nil {
		return t.UTC(), nil
	}
	for _, layout := range naiveLayouts {
		if t, err := time.ParseInLocation(layout, trimmed, time.UTC); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid datetime %q", value)
}

// ParseEvent splits a raw record into storage rows. The event references its
// place by ID only; the visitor count is dropped since members are counted
// locally.
func ParseEvent(raw RawEvent) (models.Event, models.Place, error) {
	place, err := parsePlace(raw.Place)
	if err != nil {
		return models.Event{}, models.Place{}, fmt.Errorf("event %s: %w", raw.ID, err)
	}

	status, err := enums.ParseEventStatus(raw.Status)
	if err != nil {
		return models.Event{}, models.Place{}, fmt.Errorf("event %s: %w", raw.ID, err)
	}

	event := models.Event{
		ID:      raw.ID,
		Name:    raw.Name,
		PlaceID: place.ID,
		Status:  status,
	}
	fields := []struct {
		name  string
		value string
		dst   *time.Time
	}{
		{"event_time", raw.EventTime, &event.EventTime},
		{"registration_deadline", raw.RegistrationDeadline, &event.RegistrationDeadline},
		{"changed_at", raw.ChangedAt, &event.ChangedAt},
		{"created_at", raw.CreatedAt, &event.CreatedAt},
		{"status_changed_at", raw.StatusChangedAt, &event.StatusChangedAt},
	}
	for _, f := range fields {
		parsed, err := ParseTime(f.value)
		if err != nil {
			return models.Event{}, models.Place{}, fmt.Errorf("event %s %s: %w", raw.ID, f.name, err)
		}
		*f.dst = parsed
	}
	return event, place, nil
}

func parsePlace(raw RawPlace) (models.Place, error) {
	changedAt, err := ParseTime(raw.ChangedAt)
	if err != nil {
		return models.Place{}, fmt.Errorf("place %s changed_at: %w", raw.ID, err)
	}
	createdAt, err := ParseTime(raw.CreatedAt)
	if err != nil {
		return models.Place{}, fmt.Errorf("place %s created_at: %w", raw.ID, err)
	}
	return models.Place{
		ID:           raw.ID,
		Name:         raw.Name,
		City:         raw.City,
		Address:      raw.Address,
		SeatsPattern: raw.SeatsPattern,
		ChangedAt:    changedAt,
		CreatedAt:    createdAt,
	}, nil
}
