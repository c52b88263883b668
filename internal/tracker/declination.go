package tracker

import "math"

// declination returns an approximate magnetic declination in degrees
// (positive east) for (lat, lon) in the given year.
//
// No world-magnetic-model library appears anywhere in the retrieved
// reference sources (gen_gdl90.go only has a comment about needing
// true heading, with no WMM import), so rather than wire an
// unwired third-party dependency this uses a low-order dipole
// approximation referenced to the WMM's published north geomagnetic
// pole location and drifts it linearly with the epoch -- adequate for
// sizing the crab-angle plausibility gate, not for real navigation.
// See DESIGN.md for why this stays on the standard library.
func declination(lat, lon float64, year int) float64 {
	const (
		poleLat    = 80.7 // approximate geomagnetic north pole, 2020 epoch
		poleLon    = -72.7
		epochYear  = 2020
		driftLonPerYear = 0.15 // degrees of pole longitude drift per year
	)

	adjustedPoleLon := poleLon + float64(year-epochYear)*driftLonPerYear

	latR := lat * math.Pi / 180
	lonR := lon * math.Pi / 180
	poleLatR := poleLat * math.Pi / 180
	poleLonR := adjustedPoleLon * math.Pi / 180

	dLon := poleLonR - lonR
	y := math.Sin(dLon) * math.Cos(poleLatR)
	x := math.Cos(latR)*math.Sin(poleLatR) - math.Sin(latR)*math.Cos(poleLatR)*math.Cos(dLon)
	bearingToPole := math.Atan2(y, x) * 180 / math.Pi

	// Declination is the angle from true north to the direction of the
	// geomagnetic pole as seen from (lat, lon).
	decl := bearingToPole
	if decl > 180 {
		decl -= 360
	}
	if decl < -180 {
		decl += 360
	}
	return decl
}
