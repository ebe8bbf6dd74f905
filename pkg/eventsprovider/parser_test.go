package eventsprovider

import (
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/events-aggregator/pkg/enums"
)

func rawEvent() RawEvent {
	return RawEvent{
		ID:   uuid.New(),
		Name: "Jazz night",
		Place: RawPlace{
			ID:           uuid.New(),
			Name:         "Club",
			City:         "Moscow",
			Address:      "Tverskaya 1",
			SeatsPattern: "A1-100",
			ChangedAt:    "2024-05-01T10:00:00+03:00",
			CreatedAt:    "2024-01-01T00:00:00Z",
		},
		EventTime:            "2024-06-01T19:00:00+03:00",
		RegistrationDeadline: "2024-05-31T19:00:00+03:00",
		Status:               "Published",
		NumberOfVisitors:     42,
		ChangedAt:            "2024-05-02T01:30:00+03:00",
		CreatedAt:            "2024-01-01T00:00:00",
		StatusChangedAt:      "2024-05-01T00:00:00.123456Z",
	}
}

func TestParseEvent(t *testing.T) {
	raw := rawEvent()
	event, place, err := ParseEvent(raw)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if place.ID != raw.Place.ID || event.PlaceID != raw.Place.ID {
		t.Fatalf("place reference not preserved")
	}
	if event.Place != nil {
		t.Fatalf("place must not be embedded in the event")
	}
	if event.Status != enums.EventStatusPublished {
		t.Fatalf("unexpected status %q", event.Status)
	}
	if want := time.Date(2024, 6, 1, 16, 0, 0, 0, time.UTC); !event.EventTime.Equal(want) || event.EventTime.Location() != time.UTC {
		t.Fatalf("unexpected event time %s", event.EventTime)
	}
	if want := time.Date(2024, 5, 1, 22, 30, 0, 0, time.UTC); !event.ChangedAt.Equal(want) {
		t.Fatalf("unexpected changed_at %s", event.ChangedAt)
	}
	if want := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC); !event.CreatedAt.Equal(want) {
		t.Fatalf("zone-less created_at must be read as UTC, got %s", event.CreatedAt)
	}
	if want := time.Date(2024, 5, 1, 7, 0, 0, 0, time.UTC); !place.ChangedAt.Equal(want) {
		t.Fatalf("unexpected place changed_at %s", place.ChangedAt)
	}
}

func TestParseEventRejectsUnknownStatus(t *testing.T) {
	raw := rawEvent()
	raw.Status = "archived"
	if _, _, err := ParseEvent(raw); err == nil {
		t.Fatalf("expected unknown status to be rejected")
	}
}

func TestParseEventRejectsBadDatetime(t *testing.T) {
	raw := rawEvent()
	raw.RegistrationDeadline = "tomorrow"
	if _, _, err := ParseEvent(raw); err == nil {
		t.Fatalf("expected invalid datetime to be rejected")
	}
}

func TestParseTime(t *testing.T) {
	cases := []struct {
		in   string
		want time.Time
	}{
		{"2024-05-01T10:00:00Z", time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)},
		{"2024-05-01T10:00:00+02:00", time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC)},
		{"2024-05-01T10:00:00", time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)},
		{"2024-05-01 10:00:00.5", time.Date(2024, 5, 1, 10, 0, 0, 500000000, time.UTC)},
		{"2024-05-01 10:00:00+00:00", time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)},
	}
	for _, tc := range cases {
		got, err := ParseTime(tc.in)
		if err != nil {
			t.Fatalf("ParseTime(%q): %v", tc.in, err)
		}
		if !got.Equal(tc.want) || got.Location() != time.UTC {
			t.Fatalf("ParseTime(%q) = %s, want %s", tc.in, got, tc.want)
		}
	}
	if _, err := ParseTime(""); err == nil {
		t.Fatalf("expected empty input to be rejected")
	}
}
