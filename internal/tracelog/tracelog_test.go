package tracelog

import (
	"path/filepath"
	"testing"
)

func TestRecordSeenOnDayRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "trace.db")

	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	s.Record("abc123", "2026-08-06", 1000, 5000, 42)
	s.Record("def456", "2026-08-06", 2000, 3000, 7)
	s.Record("abc123", "2026-08-05", 500, 600, 1)
	if err := s.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	s2, err := Open(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer s2.Close()

	hexes, err := s2.SeenOnDay("2026-08-06")
	if err != nil {
		t.Fatalf("SeenOnDay: %v", err)
	}
	want := []string{"abc123", "def456"}
	if len(hexes) != len(want) {
		t.Fatalf("SeenOnDay(2026-08-06) = %v, want %v", hexes, want)
	}
	for i, h := range want {
		if hexes[i] != h {
			t.Errorf("SeenOnDay(2026-08-06)[%d] = %q, want %q", i, hexes[i], h)
		}
	}

	other, err := s2.SeenOnDay("2026-08-05")
	if err != nil {
		t.Fatalf("SeenOnDay: %v", err)
	}
	if len(other) != 1 || other[0] != "abc123" {
		t.Errorf("SeenOnDay(2026-08-05) = %v, want [abc123]", other)
	}

	none, err := s2.SeenOnDay("2020-01-01")
	if err != nil {
		t.Fatalf("SeenOnDay: %v", err)
	}
	if len(none) != 0 {
		t.Errorf("SeenOnDay(2020-01-01) = %v, want empty", none)
	}
}

// TestRecordUpsertMergesFirstLastAndPointCount exercises the
// ON CONFLICT clause in upsert: a second Record for the same hex/day
// widens FirstTsMS/LastTsMS to the min/max seen so far and replaces
// PointCount with the latest report rather than summing it.
func TestRecordUpsertMergesFirstLastAndPointCount(t *testing.T) {
	path := filepath.Join(t.TempDir(), "trace.db")

	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	s.Record("abc123", "2026-08-06", 2000, 2500, 10)
	s.Record("abc123", "2026-08-06", 1000, 5000, 25)
	if err := s.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	s2, err := Open(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer s2.Close()

	var firstTs, lastTs int64
	var pointCount int
	row := s2.db.QueryRow("SELECT FirstTsMS, LastTsMS, PointCount FROM trace_summary WHERE Hex = ? AND Day = ?", "abc123", "2026-08-06")
	if err := row.Scan(&firstTs, &lastTs, &pointCount); err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if firstTs != 1000 {
		t.Errorf("FirstTsMS = %d, want 1000", firstTs)
	}
	if lastTs != 5000 {
		t.Errorf("LastTsMS = %d, want 5000", lastTs)
	}
	if pointCount != 25 {
		t.Errorf("PointCount = %d, want 25 (latest report, not a sum)", pointCount)
	}
}
