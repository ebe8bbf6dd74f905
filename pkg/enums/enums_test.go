package enums

import "testing"

func TestParseEventStatus(t *testing.T) {
	tests := []struct {
		in      string
		want    EventStatus
		wantErr bool
	}{
		{in: "new", want: EventStatusNew},
		{in: "published", want: EventStatusPublished},
		{in: " Published ", want: EventStatusPublished},
		{in: "archived", wantErr: true},
		{in: "", wantErr: true},
	}
	for _, tt := range tests {
		got, err := ParseEventStatus(tt.in)
		if (err != nil) != tt.wantErr {
			t.Fatalf("ParseEventStatus(%q) error=%v wantErr=%v", tt.in, err, tt.wantErr)
		}
		if got != tt.want {
			t.Fatalf("ParseEventStatus(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestSyncStatusValidity(t *testing.T) {
	for _, s := range []SyncStatus{SyncStatusNever, SyncStatusPending, SyncStatusSynced} {
		if !s.IsValid() {
			t.Fatalf("expected %q to be valid", s)
		}
	}
	if SyncStatus("running").IsValid() {
		t.Fatalf("unexpected valid status")
	}
	if _, err := ParseOutboxType("ticket_unregister"); err == nil {
		t.Fatalf("expected unknown outbox type to fail")
	}
}
