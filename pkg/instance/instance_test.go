package instance

import "testing"

func TestGetIDPrefersExplicitID(t *testing.T) {
	t.Setenv("AGGREGATOR_INSTANCE_ID", "replica-2")
	t.Setenv("HOSTNAME", "pod-abc")
	if got := GetID(); got != "replica-2" {
		t.Fatalf("expected replica-2, got %q", got)
	}
}

func TestGetIDFallsBackToHostname(t *testing.T) {
	t.Setenv("AGGREGATOR_INSTANCE_ID", "")
	t.Setenv("HOSTNAME", "pod-abc")
	if got := GetID(); got != "pod-abc" {
		t.Fatalf("expected pod-abc, got %q", got)
	}

	t.Setenv("HOSTNAME", "")
	if got := GetID(); got != "local" {
		t.Fatalf("expected local, got %q", got)
	}
}
