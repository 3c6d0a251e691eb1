package clock

import (
	"testing"
	"time"

	"github.com/angelmondragon/adspace-backend/pkg/types"
)

func TestTodayUsesConfiguredLocation(t *testing.T) {
	loc := time.FixedZone("UTC-5", -5*60*60)
	instant := time.Date(2026, 3, 2, 2, 0, 0, 0, time.UTC)

	got := types.DateOf(instant.In(loc))
	if got.String() != "2026-03-01" {
		t.Fatalf("expected previous local day, got %s", got)
	}

	c := New(loc)
	if c.Today().IsZero() {
		t.Fatalf("system clock returned zero date")
	}
}

func TestFixedDate(t *testing.T) {
	c := FixedDate(types.MustParseDate("2026-03-01"))
	if c.Today().String() != "2026-03-01" {
		t.Fatalf("unexpected today %s", c.Today())
	}
}
