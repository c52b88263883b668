package tracker

import (
	"time"

	"github.com/b3nn0/adsbd/internal/aircraft"
	"github.com/b3nn0/adsbd/internal/message"
)

const (
	altBaseToleranceFtPerMin = 1500
	altMaxToleranceFtPerMin  = 11000
	altReliableCap           = 20
	altJumpThresholdFt       = 300
	altDefaultMinFpm         = -12500
	altDefaultMaxFpm         = 12500

	// ageIfUnset stands in for the original's trackDataAge on a field
	// that has never been set: effectively infinitely stale, so a rate
	// field that was never reported never wins the "which rate is
	// fresher" comparison below.
	ageIfUnset = 365 * 24 * time.Hour
)

// applyAltitude implements altitude fusion: a barometric reading is only
// plausible if its implied climb/descent rate since the last accepted
// value falls inside a window centered on the known vertical rate, with
// the window's growing allowance keyed to how stale that rate is (capped
// at altMaxToleranceFtPerMin). Grounded directly on the inline
// altitude-consistency block inside trackUpdateFromMessage
// (original_source/track.c:1266-1360).
func (c *Context) applyAltitude(a *aircraft.Aircraft, msg *message.Message, now time.Time) {
	if msg.HaveBaroRate {
		if aircraft.Accept(&a.BaroRate, msg.Source, msg.SysTime, now, c.Config.StaleWindow) {
			a.BaroRateV = msg.BaroRate
		}
	}
	if msg.HaveGeomRate {
		if aircraft.Accept(&a.GeomRate, msg.Source, msg.SysTime, now, c.Config.StaleWindow) {
			a.GeomRateV = msg.GeomRate
		}
	}

	if msg.HaveBaroAlt {
		first := a.BaroAlt.Updated.IsZero()
		plausible := first
		if !first {
			plausible = altPlausible(a, msg.BaroAlt, now)
		}

		if plausible {
			if aircraft.Accept(&a.BaroAlt, msg.Source, msg.SysTime, now, c.Config.StaleWindow) {
				a.BaroAltV = msg.BaroAlt
				a.AltReliable += altGoodCRC(msg.Source) + 1
				if a.AltReliable > altReliableCap {
					a.AltReliable = altReliableCap
				}
				if aircraft.ReduceForward(&a.BaroAlt, msg.SysTime, c.Config.ReduceInterval, 2) {
					msg.ReduceForward = true
				}
			}
		} else {
			a.AltReliable -= altGoodCRC(msg.Source) + 1
			if a.AltReliable <= 0 {
				a.AltReliable = 0
				// A reliability washout only invalidates the field once
				// there's a trustworthy position to have noticed the bad
				// reports against in the first place (track.c:1354-1355's
				// "a->position_valid.source > SOURCE_JAERO" guard).
				if a.PositionValid.Source > message.Jaero {
					aircraft.Invalidate(&a.BaroAlt)
				}
			}
		}
	}

	switch {
	case msg.HaveGeomAlt:
		if aircraft.Accept(&a.GeomAlt, msg.Source, msg.SysTime, now, c.Config.StaleWindow) {
			a.GeomAltV = msg.GeomAlt
		}
	case msg.HaveGeomAltDelta && a.BaroAlt.Fresh(now, 5*time.Second):
		a.GeomAltV = a.BaroAltV + msg.GeomAltDelta
		a.GeomAlt.Updated = now
		a.GeomAlt.Stale = false
	}
}

// altPlausible reports whether newAlt is consistent with a's last
// accepted barometric altitude, mirroring track.c:1279-1296: small
// changes (<300ft) are always plausible; larger ones must imply a
// climb/descent rate that falls inside a window centered on whichever
// vertical-rate field is fresher, widened the longer that rate field
// has gone unrefreshed.
func altPlausible(a *aircraft.Aircraft, newAlt int32, now time.Time) bool {
	delta := int64(newAlt) - int64(a.BaroAltV)
	if delta < 0 {
		delta = -delta
	}
	if delta < altJumpThresholdFt {
		return true
	}

	geomAge, baroAge := ageIfUnset, ageIfUnset
	if !a.GeomRate.Updated.IsZero() {
		geomAge = now.Sub(a.GeomRate.Updated)
	}
	if !a.BaroRate.Updated.IsZero() {
		baroAge = now.Sub(a.BaroRate.Updated)
	}

	minFpm, maxFpm := int64(altDefaultMinFpm), int64(altDefaultMaxFpm)
	switch {
	case !a.GeomRate.Updated.IsZero() && geomAge < baroAge:
		minFpm, maxFpm = altRateWindow(int64(a.GeomRateV), geomAge)
	case !a.BaroRate.Updated.IsZero():
		minFpm, maxFpm = altRateWindow(int64(a.BaroRateV), baroAge)
	}

	ageMS := now.Sub(a.BaroAlt.Updated).Milliseconds()
	fpm := (int64(newAlt) - int64(a.BaroAltV)) * 60 * 10 / (ageMS/100 + 10)
	return fpm < maxFpm && fpm > minFpm
}

// altRateWindow derives the [min,max] fpm acceptance window centered on
// rate, growing by up to altMaxToleranceFtPerMin the staler rateAge is.
func altRateWindow(rate int64, rateAge time.Duration) (min, max int64) {
	allowance := rateAge.Milliseconds() / 2
	if allowance > altMaxToleranceFtPerMin {
		allowance = altMaxToleranceFtPerMin
	}
	return rate - altBaseToleranceFtPerMin - allowance, rate + altBaseToleranceFtPerMin + allowance
}

// altGoodCRC approximates the original's good_crc weight
// (track.c:1304-1308). track.c derives part of its condition from
// whether the Mode S CRC residual was exactly zero (mm->crc == 0), a
// decode-level detail this module's message.Message does not carry;
// source >= Jaero stands in for that half of the check (matching the
// original's own "Jaero-or-above" threshold), and SBS/MLAT keep the
// original's fixed weight regardless of CRC.
func altGoodCRC(source message.Source) int {
	switch {
	case source == message.SBS || source == message.MLAT:
		return altReliableCap/2 - 1
	case source >= message.Jaero:
		return 4
	default:
		return 0
	}
}
