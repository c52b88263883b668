// Package geo provides the distance and containment math shared by the
// tracker's plausibility gates and the tile index. Distance and bearing
// calculations are backed by github.com/kellydunn/golang-geo, the same
// dependency other retrieved aviation repos (and equations.go, which
// hand-rolled the same formulas) reach for.
package geo

import (
	"math"

	geolib "github.com/kellydunn/golang-geo"
)

// EarthRadiusNM is the mean earth radius in nautical miles (6371 km, the
// radius golang-geo's distance math uses). DistanceNM does not read it;
// it converts golang-geo's kilometer result instead.
const EarthRadiusNM = 3440.065

// Point is a plain (lat, lon) pair in degrees.
type Point struct {
	Lat float64
	Lon float64
}

// DistanceNM returns the great-circle distance between a and b, in
// nautical miles.
func DistanceNM(a, b Point) float64 {
	pa := geolib.NewPoint(a.Lat, a.Lon)
	pb := geolib.NewPoint(b.Lat, b.Lon)
	// golang-geo's GreatCircleDistance returns kilometers.
	km := pa.GreatCircleDistance(pb)
	return km / 1.852
}

// BearingDeg returns the initial bearing from a to b, in degrees
// [0, 360).
func BearingDeg(a, b Point) float64 {
	pa := geolib.NewPoint(a.Lat, a.Lon)
	pb := geolib.NewPoint(b.Lat, b.Lon)
	brng := pa.BearingTo(pb)
	if brng < 0 {
		brng += 360
	}
	return brng
}

// AngleDiffDeg returns the absolute smallest difference between two
// headings in degrees, in [0, 180].
func AngleDiffDeg(a, b float64) float64 {
	d := math.Mod(math.Abs(a-b), 360)
	if d > 180 {
		d = 360 - d
	}
	return d
}

// Rect is a rectangular region of the globe, expressed the way the tile
// index's hand-authored special regions are: south/west/north/east
// bounds, where West > East denotes a wrap across the antimeridian.
type Rect struct {
	South, West, North, East float64
}

// Contains reports whether (lat, lon) falls inside r, handling the
// antimeridian-wrap case explicitly.
func (r Rect) Contains(lat, lon float64) bool {
	if lat < r.South || lat > r.North {
		return false
	}
	if r.West <= r.East {
		return lon >= r.West && lon <= r.East
	}
	// Wraps across +/-180: valid range is [West, 180] U [-180, East].
	return lon >= r.West || lon <= r.East
}
