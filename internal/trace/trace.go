package trace

import (
	"time"

	"github.com/b3nn0/adsbd/internal/aircraft"
	"github.com/b3nn0/adsbd/internal/geo"
)

// MaxPoints is TRACE_SIZE: the cap on a single aircraft's in-memory
// trace, past which the oldest point is evicted on append.
const MaxPoints = 4500

// Trace is the per-aircraft append-only trajectory the Aircraft record
// points to via aircraft.TraceHandle. It is guarded by the aircraft's
// own mutex; Trace itself holds no lock.
type Trace struct {
	Points []StatePoint
	All    []StateAll // All[k] pairs with Points[k*4]

	LastLegRun    int // len(Points) at the last MarkLegs call
	WriteCount    int // full-trace writes so far, for the ~122-write cadence
	FullDeadline  time.Time
	HistoryDayKey string // "" until the first write of the current UTC day
}

// New creates an empty trace; fullDeadline should be jittered by the
// caller so many aircraft don't all hit their full-trace rewrite in the
// same tick ("jittered to spread I/O").
func New(fullDeadline time.Time) *Trace {
	return &Trace{FullDeadline: fullDeadline}
}

// Len satisfies aircraft.TraceHandle.
func (t *Trace) Len() int {
	return len(t.Points)
}

// appendTriggers bundles the thresholds lists for whether a
// new reliable position warrants a fresh trace point rather than being
// folded into the most recent one.
const (
	minTrackChangeDeg = 2.0
	minAltChangeFt    = 300
	jumpThresholdNM   = 1.0
)

// ShouldAppend reports whether a's current fused state warrants a new
// trace point, given the trace interval configured and the last point
// recorded (if any).
func ShouldAppend(t *Trace, a *aircraft.Aircraft, now time.Time, traceInterval time.Duration) bool {
	if len(t.Points) == 0 {
		return true
	}
	last := t.Points[len(t.Points)-1]

	if now.UnixMilli()-last.TimestampMS >= traceInterval.Milliseconds() {
		return true
	}

	if track, ok := last.TrackDeg(); ok {
		if geo.AngleDiffDeg(track, a.TrackV) > minTrackChangeDeg {
			return true
		}
	}

	lastAlt, _, lastAltUnknown, _ := UnpackAltitude(last.AltPacked)
	if !lastAltUnknown && abs32(lastAlt-a.BaroAltV) > minAltChangeFt {
		return true
	}

	_, lastOnGround, _, _ := UnpackAltitude(last.AltPacked)
	nowOnGround := a.GroundAir == aircraft.StateGround
	if lastOnGround != nowOnGround {
		return true
	}

	dist := geo.DistanceNM(geo.Point{Lat: float64(last.Lat), Lon: float64(last.Lon)}, geo.Point{Lat: a.Lat, Lon: a.Lon})
	if dist > jumpThresholdNM {
		return true
	}

	return false
}

// Append builds and records a new StatePoint (and, every fourth point, a
// paired StateAll) from a's current fused state, evicting the oldest
// point once MaxPoints is reached.
func Append(t *Trace, a *aircraft.Aircraft, now time.Time) {
	onGround := a.GroundAir == aircraft.StateGround
	altUnknown := a.BaroAlt.Stale && a.GeomAlt.Stale
	altFt := a.BaroAltV
	isGeom := false
	if a.BaroAlt.Stale && !a.GeomAlt.Stale {
		altFt = a.GeomAltV
		isGeom = true
	}

	p := StatePoint{
		TimestampMS: now.UnixMilli(),
		Lat:         float32(a.Lat),
		Lon:         float32(a.Lon),
		AltPacked:   PackAltitude(altFt, onGround, altUnknown, false),
		IsGeomAlt:   isGeom,
		GroundSpeed: packGroundSpeed(a.GroundSpeedV, !a.GroundSpeed.Stale && !a.GroundSpeed.Updated.IsZero()),
		Track:       packTrack(a.TrackV, !a.Track.Stale && !a.Track.Updated.IsZero()),
		Rate:        packRate(float64(rateForTrace(a)), hasRate(a)),
		IsGeomRate:  !a.GeomRate.Updated.IsZero() && !a.GeomRate.Stale,
		Stale:       a.PositionValid.Stale,
	}

	t.Points = append(t.Points, p)
	if (len(t.Points)-1)%4 == 0 {
		t.All = append(t.All, ToStateAll(a))
	}

	if len(t.Points) > MaxPoints {
		t.Points = t.Points[1:]
		// All[] is quarter-rate and indices shift non-trivially on a
		// single-point evict; rebuild lazily by dropping the oldest
		// dense snapshot only when the alignment actually drifts.
		if len(t.All) > MaxPoints/4 {
			t.All = t.All[1:]
		}
	}
}

func rateForTrace(a *aircraft.Aircraft) int16 {
	if !a.GeomRate.Updated.IsZero() && !a.GeomRate.Stale {
		return a.GeomRateV
	}
	return a.BaroRateV
}

func hasRate(a *aircraft.Aircraft) bool {
	if !a.GeomRate.Updated.IsZero() && !a.GeomRate.Stale {
		return true
	}
	return !a.BaroRate.Updated.IsZero() && !a.BaroRate.Stale
}
