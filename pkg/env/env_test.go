package env

import "testing"

func TestGetTrimsAndFallsBack(t *testing.T) {
	t.Setenv("AGGREGATOR_TEST_VALUE", "  console ")
	if got := Get("AGGREGATOR_TEST_VALUE", "json"); got != "console" {
		t.Fatalf("expected trimmed value, got %q", got)
	}

	t.Setenv("AGGREGATOR_TEST_VALUE", "   ")
	if got := Get("AGGREGATOR_TEST_VALUE", "json"); got != "json" {
		t.Fatalf("expected fallback for blank value, got %q", got)
	}
}

func TestFirstPicksEarliestSetKey(t *testing.T) {
	t.Setenv("AGGREGATOR_TEST_A", "")
	t.Setenv("AGGREGATOR_TEST_B", "b")
	t.Setenv("AGGREGATOR_TEST_C", "c")

	if got := First("none", "AGGREGATOR_TEST_A", "AGGREGATOR_TEST_B", "AGGREGATOR_TEST_C"); got != "b" {
		t.Fatalf("expected b, got %q", got)
	}
	if got := First("none", "AGGREGATOR_TEST_A"); got != "none" {
		t.Fatalf("expected fallback, got %q", got)
	}
}
