package trace

import (
	"testing"
	"time"

	"github.com/b3nn0/adsbd/internal/aircraft"
	"github.com/b3nn0/adsbd/internal/message"
)

func newTestAircraft(now time.Time, lat, lon float64) *aircraft.Aircraft {
	a := aircraft.New(aircraft.Key{Icao: 0xABCDEF}, now)
	a.Lat, a.Lon = lat, lon
	a.PositionValid.Source = message.ADSB
	a.PositionValid.Updated = now
	a.BaroAlt.Source = message.ADSB
	a.BaroAlt.Updated = now
	a.BaroAltV = 10000
	a.GroundAir = aircraft.StateAirborne
	return a
}

func TestShouldAppendEmptyTraceAlwaysAppends(t *testing.T) {
	tr := New(time.Now())
	a := newTestAircraft(time.Now(), 40, -80)
	if !ShouldAppend(tr, a, time.Now(), TraceInterval) {
		t.Fatalf("expected append on empty trace")
	}
}

// TraceInterval mirrors the tracker package's constant; redeclared here
// to keep this test independent of internal/tracker (which imports
// internal/trace, so the reverse import would cycle).
const TraceInterval = 10 * time.Second

func TestShouldAppendRespectsIntervalWhenStateUnchanged(t *testing.T) {
	now := time.Now()
	a := newTestAircraft(now, 40, -80)
	tr := New(now)
	Append(tr, a, now)

	if ShouldAppend(tr, a, now.Add(2*time.Second), TraceInterval) {
		t.Errorf("expected no append: interval not elapsed and state unchanged")
	}
	if !ShouldAppend(tr, a, now.Add(11*time.Second), TraceInterval) {
		t.Errorf("expected append once the trace interval elapses")
	}
}

func TestShouldAppendOnAltitudeChange(t *testing.T) {
	now := time.Now()
	a := newTestAircraft(now, 40, -80)
	tr := New(now)
	Append(tr, a, now)

	a.BaroAltV += 500
	if !ShouldAppend(tr, a, now.Add(1*time.Second), TraceInterval) {
		t.Errorf("expected append on altitude change beyond threshold")
	}
}

func TestShouldAppendOnPositionJump(t *testing.T) {
	now := time.Now()
	a := newTestAircraft(now, 40, -80)
	tr := New(now)
	Append(tr, a, now)

	a.Lat += 1.0 // far more than a 1 NM jump
	if !ShouldAppend(tr, a, now.Add(1*time.Second), TraceInterval) {
		t.Errorf("expected append on position jump")
	}
}

func TestShouldAppendOnGroundStateChange(t *testing.T) {
	now := time.Now()
	a := newTestAircraft(now, 40, -80)
	tr := New(now)
	Append(tr, a, now)

	a.GroundAir = aircraft.StateGround
	if !ShouldAppend(tr, a, now.Add(1*time.Second), TraceInterval) {
		t.Errorf("expected append on ground/air transition")
	}
}

func TestAppendRecordsQuarterRateStateAll(t *testing.T) {
	now := time.Now()
	a := newTestAircraft(now, 40, -80)
	tr := New(now)

	for i := 0; i < 9; i++ {
		Append(tr, a, now.Add(time.Duration(i)*TraceInterval))
	}

	if len(tr.Points) != 9 {
		t.Fatalf("expected 9 points, got %d", len(tr.Points))
	}
	if len(tr.All) != 3 { // points 0, 4, 8
		t.Errorf("expected 3 StateAll snapshots at quarter rate, got %d", len(tr.All))
	}
}

func TestAppendEvictsOldestPastMaxPoints(t *testing.T) {
	now := time.Now()
	a := newTestAircraft(now, 40, -80)
	tr := New(now)

	for i := 0; i < MaxPoints+10; i++ {
		Append(tr, a, now.Add(time.Duration(i)*TraceInterval))
	}

	if len(tr.Points) != MaxPoints {
		t.Fatalf("expected trace capped at %d points, got %d", MaxPoints, len(tr.Points))
	}
	// The oldest surviving point should be the 11th appended (index 10),
	// since the first 10 were evicted one-by-one past the cap.
	oldest := tr.Points[0]
	wantTS := now.Add(10 * TraceInterval).UnixMilli()
	if oldest.TimestampMS != wantTS {
		t.Errorf("oldest point timestamp = %d, want %d", oldest.TimestampMS, wantTS)
	}
}
