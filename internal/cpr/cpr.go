// Package cpr implements the Compact Position Reporting codec: global
// (matched odd/even pair) and local (single frame against a reference)
// decoding for both airborne and surface position reports.
//
// The math is the standard CPR algorithm as implemented by readsb's
// track.c (decodeCPRairborne/decodeCPRsurface/decodeCPRrelative) and
// cross-checked against the retrieved pack's awade12-skywatch cpr.go,
// which implements the same NL()/local-decode formulas independently.
package cpr

import "math"

const cprScale = 131072.0 // 2^17

// NL returns the number of longitude zones for a given latitude, per the
// standard CPR NL table function.
func NL(lat float64) int {
	if lat == 0 {
		return 59
	}
	if lat == 87 || lat == -87 {
		return 2
	}
	if math.Abs(lat) > 87 {
		return 1
	}
	const nz = 15.0
	a := 1 - math.Cos(math.Pi/(2*nz))
	b := math.Pow(math.Cos(math.Pi/180*lat), 2)
	x := 1 - a/b
	if x < -1 {
		x = -1
	}
	if x > 1 {
		x = 1
	}
	return int(math.Floor(2 * math.Pi / math.Acos(x)))
}

func modf(a, b float64) float64 {
	r := math.Mod(a, b)
	if r < 0 {
		r += b
	}
	return r
}

// DecodeGlobalAirborne decodes a matched even/odd airborne CPR pair. The
// caller passes whichever of the two is "newer" via useOdd, matching
// readsb's convention of deciding lat/lon from the most recent frame.
func DecodeGlobalAirborne(evenLat, evenLon, oddLat, oddLon uint32, useOdd bool) (lat, lon float64, ok bool) {
	const dLatEven = 360.0 / 60.0
	const dLatOdd = 360.0 / 59.0

	latE := float64(evenLat) / cprScale
	lonE := float64(evenLon) / cprScale
	latO := float64(oddLat) / cprScale
	lonO := float64(oddLon) / cprScale

	j := math.Floor(59*latE - 60*latO + 0.5)

	rlatE := dLatEven * (modf(j, 60) + latE)
	rlatO := dLatOdd * (modf(j, 59) + latO)

	if rlatE >= 270 {
		rlatE -= 360
	}
	if rlatO >= 270 {
		rlatO -= 360
	}

	if rlatE < -90 || rlatE > 90 || rlatO < -90 || rlatO > 90 {
		return 0, 0, false
	}

	nlE := NL(rlatE)
	nlO := NL(rlatO)
	if nlE != nlO {
		return 0, 0, false // airplane moved between latitude zones during the pair
	}

	var rlat float64
	var nl int
	if useOdd {
		rlat, nl = rlatO, nlO
	} else {
		rlat, nl = rlatE, nlE
	}

	var rlon float64
	if useOdd {
		ni := nl - 1
		if ni < 1 {
			ni = 1
		}
		m := math.Floor(lonE*float64(nl-1)-lonO*float64(nl)+0.5)
		rlon = (360.0 / float64(ni)) * (modf(m, float64(ni)) + lonO)
	} else {
		ni := nl
		if ni < 1 {
			ni = 1
		}
		m := math.Floor(lonE*float64(nl-1)-lonO*float64(nl)+0.5)
		rlon = (360.0 / float64(ni)) * (modf(m, float64(ni)) + lonE)
	}

	if rlon > 180 {
		rlon -= 360
	}
	if rlon < -180 {
		rlon += 360
	}
	if rlat < -90 || rlat > 90 {
		return 0, 0, false
	}
	return rlat, rlon, true
}

// DecodeGlobalSurface decodes a matched even/odd surface CPR pair against
// a reference point, needed because the surface encoding covers only a
// 90-degree span and is otherwise ambiguous.
func DecodeGlobalSurface(evenLat, evenLon, oddLat, oddLon uint32, useOdd bool, ref Position) (lat, lon float64, ok bool) {
	const dLatEven = 90.0 / 60.0
	const dLatOdd = 90.0 / 59.0

	latE := float64(evenLat) / cprScale
	lonE := float64(evenLon) / cprScale
	latO := float64(oddLat) / cprScale
	lonO := float64(oddLon) / cprScale

	j := math.Floor(59*latE - 60*latO + 0.5)

	rlatE := dLatEven * (modf(j, 60) + latE)
	rlatO := dLatOdd * (modf(j, 59) + latO)

	// Surface positions are ambiguous across the four quadrants; pick the
	// solution nearest the reference latitude.
	rlatE = nearestQuadrant(rlatE, ref.Lat, 90)
	rlatO = nearestQuadrant(rlatO, ref.Lat, 90)

	nlE := NL(rlatE)
	nlO := NL(rlatO)
	if nlE != nlO {
		return 0, 0, false
	}

	var rlat float64
	var nl int
	if useOdd {
		rlat, nl = rlatO, nlO
	} else {
		rlat, nl = rlatE, nlE
	}
	if nl < 1 {
		nl = 1
	}

	var rlon float64
	if useOdd {
		m := math.Floor(lonE*float64(nl-1) - lonO*float64(nl) + 0.5)
		rlon = (90.0 / float64(nl)) * (modf(m, float64(nl)) + lonO)
	} else {
		m := math.Floor(lonE*float64(nl) - lonO*float64(nl-1) + 0.5)
		rlon = (90.0 / float64(nl)) * (modf(m, float64(nl)) + lonE)
	}
	rlon = nearestQuadrant(rlon, ref.Lon, 360)

	if rlat < -90 || rlat > 90 {
		return 0, 0, false
	}
	return rlat, rlon, true
}

func nearestQuadrant(v, ref float64, period float64) float64 {
	best := v
	bestDiff := math.Abs(v - ref)
	for _, cand := range []float64{v - period, v, v + period, v - period/2, v + period/2} {
		d := math.Abs(cand - ref)
		if d < bestDiff {
			best, bestDiff = cand, d
		}
	}
	return best
}

// Position is a plain decoded (lat, lon) pair, used as a decode
// reference point.
type Position struct {
	Lat, Lon float64
}

// DecodeLocal decodes a single CPR frame (odd or even) against a
// reference position, as used when only one of the two frames is fresh.
// airborne selects the 360-zone (airborne) vs 90-zone (surface) variant.
func DecodeLocal(rawLat, rawLon uint32, odd bool, ref Position, airborne bool) (lat, lon float64, ok bool) {
	span := 360.0
	if !airborne {
		span = 90.0
	}

	dLatEven := span / 60.0
	dLatOdd := span / 59.0
	dLat := dLatEven
	if odd {
		dLat = dLatOdd
	}

	latCpr := float64(rawLat) / cprScale
	lonCpr := float64(rawLon) / cprScale

	j := math.Floor(ref.Lat/dLat) + math.Floor(0.5+modf(ref.Lat, dLat)/dLat-latCpr)
	rlat := dLat * (j + latCpr)

	if rlat < -90 || rlat > 90 {
		return 0, 0, false
	}

	nl := NL(rlat)
	if odd {
		nl--
	}
	if nl < 1 {
		nl = 1
	}

	dLon := span / float64(nl)
	m := math.Floor(ref.Lon/dLon) + math.Floor(0.5+modf(ref.Lon, dLon)/dLon-lonCpr)
	rlon := dLon * (m + lonCpr)

	if rlon > 180 {
		rlon -= 360
	}
	if rlon < -180 {
		rlon += 360
	}
	return rlat, rlon, true
}
