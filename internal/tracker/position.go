package tracker

import (
	"math"
	"time"

	"github.com/b3nn0/adsbd/internal/aircraft"
	"github.com/b3nn0/adsbd/internal/cpr"
	"github.com/b3nn0/adsbd/internal/geo"
	"github.com/b3nn0/adsbd/internal/message"
)

// Max gap between an odd/even CPR frame pair to still be considered a
// matched global-decode pair (original_source/track.c's global-decode
// dispatch, ~lines 681-691): airborne is a flat 10s; surface is
// speed-dependent, 50s for a slow-moving or speed-unknown aircraft and
// 25s once it is known to be moving faster than 25kt (a faster aircraft
// covers too much ground for a stale frame pair to still agree).
const (
	maxGapAirborne       = 10 * time.Second
	maxGapSurfaceSlow    = 50 * time.Second
	maxGapSurfaceFast    = 25 * time.Second
	surfaceFastThreshold = 25 // kt

	localRefMaxAge = 10 * time.Minute
	fastTrackDistanceNM = 12000.0 / 1852.0
	fastTrackGapMin     = 2 * time.Minute
)

// surfaceMaxGap picks the surface max-gap threshold for a, per the
// original's groundspeed-dependent rule.
func surfaceMaxGap(a *aircraft.Aircraft, now time.Time) time.Duration {
	if !a.GroundSpeed.Updated.IsZero() && a.GroundSpeed.Fresh(now, 30*time.Second) && a.GroundSpeedV > surfaceFastThreshold {
		return maxGapSurfaceFast
	}
	return maxGapSurfaceSlow
}

// applyPosition runs a freshly-received CPR frame through global or
// local decode and the acceptance gates ("CPR position
// decoding" / "Position acceptance").
func (c *Context) applyPosition(a *aircraft.Aircraft, msg *message.Message, now time.Time) {
	frame := msg.CPR
	if frame.Odd {
		a.CPR.Odd = frame
	} else {
		a.CPR.Even = frame
	}

	lat, lon, ok, global := c.decodeCPR(a, frame, now)
	if !ok {
		msg.Garbage = true
		return
	}

	msg.DecodedLat, msg.DecodedLon, msg.HaveDecodedPos = lat, lon, true
	c.acceptDecodedPosition(a, msg, lat, lon, frame.Surface, global, now)
}

// applyDecodedPosition handles messages that arrive with an
// already-decoded lat/lon (e.g. SBS/MLAT input, which carries no raw
// CPR frame at all).
func (c *Context) applyDecodedPosition(a *aircraft.Aircraft, msg *message.Message, now time.Time) {
	c.acceptDecodedPosition(a, msg, msg.DecodedLat, msg.DecodedLon, false, false, now)
}

func (c *Context) decodeCPR(a *aircraft.Aircraft, frame *message.CPRFrame, now time.Time) (lat, lon float64, ok, global bool) {
	var other *message.CPRFrame
	if frame.Odd {
		other = a.CPR.Even
	} else {
		other = a.CPR.Odd
	}

	maxGap := maxGapAirborne
	if frame.Surface {
		maxGap = surfaceMaxGap(a, now)
	}

	if other != nil && other.Surface == frame.Surface && other.Source == frame.Source &&
		absDuration(frame.Timestamp.Sub(other.Timestamp)) <= maxGap {

		evenFrame, oddFrame := frame, other
		if frame.Odd {
			evenFrame, oddFrame = other, frame
		}

		if frame.Surface {
			ref, haveRef := c.surfaceReference(a)
			if haveRef {
				lat, lon, ok = cpr.DecodeGlobalSurface(evenFrame.RawLat, evenFrame.RawLon, oddFrame.RawLat, oddFrame.RawLon, frame.Odd, ref)
			}
		} else {
			lat, lon, ok = cpr.DecodeGlobalAirborne(evenFrame.RawLat, evenFrame.RawLon, oddFrame.RawLat, oddFrame.RawLon, frame.Odd)
		}
		if ok {
			return lat, lon, true, true
		}
	}

	ref, haveRef := c.localReference(a, now)
	if !haveRef {
		return 0, 0, false, false
	}
	lat, lon, ok = cpr.DecodeLocal(frame.RawLat, frame.RawLon, frame.Odd, ref, !frame.Surface)
	return lat, lon, ok, false
}

// localReference picks the single-frame decode anchor: the aircraft's
// own last known position if recent enough, else the configured
// receiver location ("Local").
func (c *Context) localReference(a *aircraft.Aircraft, now time.Time) (cpr.Position, bool) {
	if !a.PositionValid.Updated.IsZero() && now.Sub(a.PositionValid.Updated) < localRefMaxAge {
		return cpr.Position{Lat: a.Lat, Lon: a.Lon}, true
	}
	if c.Config.HaveReceiverPos {
		return cpr.Position{Lat: c.Config.ReceiverLat, Lon: c.Config.ReceiverLon}, true
	}
	return cpr.Position{}, false
}

// surfaceReference picks the global-surface-decode disambiguation
// anchor: the aircraft's last position, else the receiver location.
// A receiver-estimated location would be preferred when known, but
// this Context does not model per-receiver position estimation.
func (c *Context) surfaceReference(a *aircraft.Aircraft) (cpr.Position, bool) {
	if !a.PositionValid.Updated.IsZero() {
		return cpr.Position{Lat: a.Lat, Lon: a.Lon}, true
	}
	if c.Config.HaveReceiverPos {
		return cpr.Position{Lat: c.Config.ReceiverLat, Lon: c.Config.ReceiverLon}, true
	}
	return cpr.Position{}, false
}

func bogusLatLon(lat, lon float64) bool {
	return math.Abs(lat) > 90 || math.Abs(lon) > 180 || (lat == 0 && lon == 0)
}

func absDuration(d time.Duration) time.Duration {
	if d < 0 {
		return -d
	}
	return d
}

// acceptDecodedPosition runs the range/speed gates and, on success,
// commits the position and advances the reliability counters. A decode
// that lands close to the last known-reliable position, after a gap
// long enough that reliability had already bottomed out, fast-tracks
// both counters back to JSONReliable instead of rebuilding trust one
// frame at a time.
func (c *Context) acceptDecodedPosition(a *aircraft.Aircraft, msg *message.Message, lat, lon float64, surface, global bool, now time.Time) {
	if bogusLatLon(lat, lon) {
		msg.PosIgnore = true
		return
	}

	if !a.PositionValid.Updated.IsZero() && lat == a.Lat && lon == a.Lon &&
		now.Sub(a.PositionValid.Updated) < 3*time.Second {
		msg.Duplicate = true
		// Don't let a duplicate position carry another field's
		// reduce-forward eligibility onto the reduced-bandwidth path.
		msg.ReduceForward = false
		return
	}

	if c.Config.MaxRangeNM > 0 && c.Config.HaveReceiverPos {
		d := geo.DistanceNM(geo.Point{Lat: c.Config.ReceiverLat, Lon: c.Config.ReceiverLon}, geo.Point{Lat: lat, Lon: lon})
		if d > c.Config.MaxRangeNM {
			msg.PosBad = true
			c.positionBad(a, msg, now)
			return
		}
	}

	inrange, posIgnore := c.speedCheck(a, msg, lat, lon, surface, now)
	if !inrange {
		msg.PosBad = true
		if posIgnore {
			msg.PosIgnore = true
		}
		c.positionBad(a, msg, now)
		return
	}

	prevUpdated := a.PositionValid.Updated
	prevOdd, prevEven := a.PosReliableOdd, a.PosReliableEven

	if !aircraft.Accept(&a.PositionValid, msg.Source, msg.SysTime, now, c.Config.StaleWindow) {
		return
	}
	if aircraft.ReduceForward(&a.PositionValid, msg.SysTime, c.Config.ReduceInterval, 2) {
		msg.ReduceForward = true
	}

	prevReliableSet := a.EverReliable
	prevLat, prevLon := a.LatReliable, a.LonReliable

	a.Lat, a.Lon = lat, lon
	a.Surface = surface

	if global {
		a.PosReliableOdd++
		a.PosReliableEven++
		if a.PosReliableOdd > c.Config.FilterPersistence {
			a.PosReliableOdd = c.Config.FilterPersistence
		}
		if a.PosReliableEven > c.Config.FilterPersistence {
			a.PosReliableEven = c.Config.FilterPersistence
		}
	}

	if prevReliableSet && prevOdd <= 0 && prevEven <= 0 && !prevUpdated.IsZero() &&
		now.Sub(prevUpdated) > fastTrackGapMin &&
		geo.DistanceNM(geo.Point{Lat: prevLat, Lon: prevLon}, geo.Point{Lat: lat, Lon: lon}) <= fastTrackDistanceNM {
		a.PosReliableOdd = c.Config.JSONReliable
		a.PosReliableEven = c.Config.JSONReliable
	}

	if a.PosReliableOdd >= c.Config.JSONReliable && a.PosReliableEven >= c.Config.JSONReliable {
		a.LatReliable, a.LonReliable = lat, lon
		a.EverReliable = true
		if c.Tiles != nil {
			a.TileIndex = c.Tiles.Lookup(lat, lon)
			a.HasTileIndex = true
		}
		c.appendTracePoint(a, now)
	}
}

// positionBad mirrors original_source/track.c's position_bad: a message
// that looked like transient garbage, or was explicitly marked
// pos_ignore, never decrements reliability; and critically, neither
// does one whose source is strictly worse than the position's current
// source -- this is the guard scenario 2 ("Source downgrade
// guard") exercises, not the speed check itself.
func (c *Context) positionBad(a *aircraft.Aircraft, msg *message.Message, now time.Time) {
	if msg.Garbage || msg.PosIgnore {
		return
	}
	if msg.Source < a.PositionValid.Source {
		return
	}
	c.decrementReliability(a, now)
}

// decrementReliability lowers both CPR reliability counters on a failed
// gate, invalidating the position once either counter reaches zero so a
// lower-priority source can immediately reclaim the field, and dropping
// the cached CPR odd/even frames since they can no longer be trusted as
// a decode anchor.
func (c *Context) decrementReliability(a *aircraft.Aircraft, now time.Time) {
	a.PosReliableOdd--
	a.PosReliableEven--
	if a.PosReliableOdd < 0 {
		a.PosReliableOdd = 0
	}
	if a.PosReliableEven < 0 {
		a.PosReliableEven = 0
	}
	if a.PosReliableOdd == 0 || a.PosReliableEven == 0 {
		aircraft.Invalidate(&a.PositionValid)
		a.CPR.Odd = nil
		a.CPR.Even = nil
	}
}
