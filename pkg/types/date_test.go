package types

import (
	"encoding/json"
	"testing"
	"time"
)

func TestDateJSONRoundTrip(t *testing.T) {
	type payload struct {
		Start Date  `json:"start"`
		End   *Date `json:"end"`
	}

	var got payload
	if err := json.Unmarshal([]byte(`{"start":"2026-01-01","end":null}`), &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if got.Start.String() != "2026-01-01" {
		t.Fatalf("unexpected start %s", got.Start)
	}
	if got.End != nil && !got.End.IsZero() {
		t.Fatalf("expected empty end, got %v", got.End)
	}

	encoded, err := json.Marshal(got.Start)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(encoded) != `"2026-01-01"` {
		t.Fatalf("unexpected encoding %s", encoded)
	}

	if err := json.Unmarshal([]byte(`{"start":"01/02/2026"}`), &got); err == nil {
		t.Fatalf("expected invalid layout to fail")
	}
}

func TestDateArithmetic(t *testing.T) {
	start := MustParseDate("2026-03-01")
	end := MustParseDate("2026-03-05")

	if got := end.DaysSince(start); got != 4 {
		t.Fatalf("expected 4 days, got %d", got)
	}
	if got := start.AddDays(31).String(); got != "2026-04-01" {
		t.Fatalf("unexpected add result %s", got)
	}
	if !start.Before(end) || end.Before(start) {
		t.Fatalf("ordering is wrong")
	}
}

func TestOverlapsIsInclusive(t *testing.T) {
	a1, a2 := MustParseDate("2026-02-01"), MustParseDate("2026-02-10")

	cases := []struct {
		name   string
		b1, b2 string
		want   bool
	}{
		{"shared tail", "2026-02-08", "2026-02-15", true},
		{"touching end", "2026-02-10", "2026-02-12", true},
		{"touching start", "2026-01-20", "2026-02-01", true},
		{"disjoint after", "2026-02-11", "2026-02-20", false},
		{"disjoint before", "2026-01-01", "2026-01-31", false},
		{"contained", "2026-02-03", "2026-02-04", true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := Overlaps(a1, a2, MustParseDate(tc.b1), MustParseDate(tc.b2))
			if got != tc.want {
				t.Fatalf("Overlaps = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestDateScan(t *testing.T) {
	var d Date
	if err := d.Scan(time.Date(2026, 1, 7, 0, 0, 0, 0, time.UTC)); err != nil {
		t.Fatalf("scan time: %v", err)
	}
	if d.String() != "2026-01-07" {
		t.Fatalf("unexpected scanned date %s", d)
	}
	if err := d.Scan([]byte("2026-01-08 00:00:00+00:00")); err != nil {
		t.Fatalf("scan bytes: %v", err)
	}
	if d.String() != "2026-01-08" {
		t.Fatalf("unexpected scanned date %s", d)
	}
	v, err := d.Value()
	if err != nil || v != "2026-01-08" {
		t.Fatalf("unexpected value %v (%v)", v, err)
	}
}
