package stats

import (
	"strings"
	"testing"
	"time"

	"github.com/b3nn0/adsbd/internal/clock"
	"github.com/b3nn0/adsbd/internal/message"
)

func TestAddMessageCountsInCurrentBucketAndAllTime(t *testing.T) {
	clk := clock.NewStopped()
	s := New(clk)

	s.AddMessage(message.ADSB)
	s.AddMessage(message.MLAT)

	snap := s.Snapshot(clk.Now())
	if snap.OneMin.Messages != 2 {
		t.Fatalf("OneMin.Messages = %d, want 2", snap.OneMin.Messages)
	}
	if snap.AllTime.Messages != 2 {
		t.Fatalf("AllTime.Messages = %d, want 2", snap.AllTime.Messages)
	}
	if snap.OneMin.PositionsBySrc != nil && len(snap.OneMin.PositionsBySrc) != 0 {
		t.Errorf("expected no positions recorded yet")
	}
}

func TestRollAdvancesBucketsAndPreservesAlltime(t *testing.T) {
	clk := clock.NewStopped()
	s := New(clk)

	s.AddMessage(message.ADSB)
	start := clk.Now()

	// Advance past several bucket boundaries.
	s.Roll(start.Add(35 * time.Second))

	snap := s.Snapshot(start.Add(35 * time.Second))
	if snap.AllTime.Messages != 1 {
		t.Fatalf("AllTime.Messages after roll = %d, want 1", snap.AllTime.Messages)
	}
	// The message was recorded in the first (now-folded) bucket; the
	// current in-progress bucket is empty, but the folded bucket is still
	// inside the 1-minute window.
	if snap.OneMin.Messages != 1 {
		t.Fatalf("OneMin.Messages after roll = %d, want 1 (bucket still within the 1-min window)", snap.OneMin.Messages)
	}
}

func TestRollPastFullRingKeepsAlltimeAndDropsFromWindow(t *testing.T) {
	clk := clock.NewStopped()
	s := New(clk)

	s.AddMessage(message.ADSB)
	start := clk.Now()

	// Roll forward well past the 15-minute ring, past the point where
	// the one message can still appear in any window sum.
	later := start.Add(20 * time.Minute)
	s.Roll(later)

	snap := s.Snapshot(later)
	if snap.AllTime.Messages != 1 {
		t.Fatalf("AllTime.Messages = %d, want 1 (all-time never drops)", snap.AllTime.Messages)
	}
	if snap.FifteenMin.Messages != 0 {
		t.Fatalf("FifteenMin.Messages = %d, want 0 (message aged out of the ring)", snap.FifteenMin.Messages)
	}
}

func TestObserveRangeReportsWindowMax(t *testing.T) {
	clk := clock.NewStopped()
	s := New(clk)

	s.ObserveRange(12.5)
	s.ObserveRange(88.0)
	s.ObserveRange(40.0)

	snap := s.Snapshot(clk.Now())
	if snap.OneMin.DistanceMaxNM != 88.0 {
		t.Errorf("DistanceMaxNM = %v, want 88.0", snap.OneMin.DistanceMaxNM)
	}
}

func TestPrometheusTextIncludesRegisteredMetrics(t *testing.T) {
	clk := clock.NewStopped()
	s := New(clk)
	s.AddMessage(message.ADSB)
	s.AddBytesForwarded(1024)

	text, err := s.PrometheusText()
	if err != nil {
		t.Fatalf("PrometheusText: %v", err)
	}
	if !strings.Contains(string(text), "adsbd_messages_total") {
		t.Errorf("expected adsbd_messages_total in output:\n%s", text)
	}
	if !strings.Contains(string(text), "adsbd_bytes_forwarded_total") {
		t.Errorf("expected adsbd_bytes_forwarded_total in output:\n%s", text)
	}
}

func TestSummaryStringIsHumanReadable(t *testing.T) {
	clk := clock.NewStopped()
	s := New(clk)
	for i := 0; i < 1500; i++ {
		s.AddMessage(message.ADSB)
	}
	snap := s.Snapshot(clk.Now())
	if !strings.Contains(snap.OneMin.Summary, "1,500") {
		t.Errorf("Summary = %q, want a comma-grouped message count", snap.OneMin.Summary)
	}
}
