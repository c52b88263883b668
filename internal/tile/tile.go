// Package tile implements the geographic tile index: a
// fixed set of hand-authored rectangles covering busy/special regions,
// falling back to a uniform lat/lon grid elsewhere. Every tracked
// aircraft with a reliable position belongs to exactly one tile, used to
// bucket the globe_<tile>.json/.bin snapshot writers.
//
// Grounded on original_source/globe_index.c's init_globe_index/
// globe_index/globe_index_index, generalized into a Go type instead of a
// package-level array + package-level function pair so multiple Index
// values (and their tests) can coexist, matching the explicit-Context
// redesign the rest of this module follows.
package tile

import (
	"github.com/gansidui/geohash"
	"golang.org/x/exp/slices"
)

// Grid is the fallback grid's cell size in degrees, matching the
// original's GLOBE_INDEX_GRID.
const Grid = 1

// LatMult is the row multiplier used to fold a (row, col) grid cell into
// a single integer id, matching the original's GLOBE_LAT_MULT. It must
// be large enough to hold every column (360/Grid) without collision.
const LatMult = 360

// MinIndex is the first id available to the uniform grid; ids below this
// are reserved for the hand-authored special rectangles.
const MinIndex = 1000

// MaxIndex is the highest id the uniform grid can produce, reached at
// the pole/antimeridian corner (90, 180).
const MaxIndex = MinIndex + (180/Grid)*LatMult + 360/Grid

// special is one hand-authored rectangle: first match wins.
type special struct {
	name              string
	south, west, north, east float64
}

// Index is a geographic tile index. The zero value is not usable; use
// New.
type Index struct {
	specials []special
}

// New builds an Index with the standard set of special regions, carried
// over verbatim from the original's init_globe_index (region boundaries
// are a deliberate editorial choice about where traffic is dense enough
// to warrant a dedicated tile rather than sharing the 1-degree grid).
func New() *Index {
	return &Index{specials: defaultSpecials()}
}

func defaultSpecials() []special {
	return []special{
		{"Arctic", 60, -130, 90, 150},
		{"North Pacific", 10, 150, 90, -130},
		{"Northern Canada", 50, -130, 60, -70},
		{"Northwest USA", 40, -130, 50, -100},
		{"West Russia", 40, 20, 60, 50},
		{"Central Russia", 30, 50, 60, 90},
		{"East Russia", 30, 90, 60, 120},
		{"Koreas, Japan, East Russia", 30, 120, 60, 150},
		{"Persian Gulf / Arabian Sea", 10, 50, 30, 70},
		{"India", 10, 70, 30, 90},
		{"South China, ICAO special use", 10, 90, 30, 110},
		{"Southeast Asia", 10, 110, 30, 150},
		{"South Atlantic and Indian Ocean", -90, -40, 10, 110},
		{"Australia", -90, 110, 10, 160},
		{"South Pacific and NZ", -90, 160, 10, -90},
		{"North South America", -10, -90, 10, -40},
		{"South South America", -90, -90, -10, -40},
		{"Guatemala / Mexico", 10, -130, 30, -90},
		{"Cuba / Haiti / Honduras", 10, -90, 20, -70},
		{"North Africa", 10, -10, 40, 30},
		{"Middle East", 10, 30, 40, 50},
		{"North Atlantic", 10, -70, 60, -10},
	}
}

// quantize snaps a (lat, lon) pair down to its grid cell's southwest
// corner, the way the original truncates via integer division.
func quantize(latIn, lonIn float64) (lat, lon int) {
	lat = Grid*int((latIn+90)/Grid) - 90
	lon = Grid*int((lonIn+180)/Grid) - 180
	return
}

// Lookup returns the tile id for (lat, lon): the index of the first
// matching special rectangle, or else the folded grid cell id offset by
// MinIndex.
func (idx *Index) Lookup(lat, lon float64) int {
	qlat, qlon := quantize(lat, lon)

	if i := slices.IndexFunc(idx.specials, func(s special) bool {
		return specialContains(s, qlat, qlon)
	}); i >= 0 {
		return i
	}

	i := (qlat + 90) / Grid
	j := (qlon + 180) / Grid
	return i*LatMult + j + MinIndex
}

// specialContains reports whether (qlat, qlon) falls inside s. Special
// rectangles are half-open on longitude ([west, east)), unlike geo.Rect's
// inclusive convention, so the wrap case is checked directly rather than
// via geo.Rect.Contains.
func specialContains(s special, qlat, qlon int) bool {
	if float64(qlat) < s.south || float64(qlat) >= s.north {
		return false
	}
	if s.west < s.east {
		return float64(qlon) >= s.west && float64(qlon) < s.east
	}
	return float64(qlon) >= s.west || float64(qlon) < s.east
}

// Inverse returns the (south, west) corner of the rectangle tile id
// covers, for a grid-derived id. Special-rectangle ids are returned
// as-is via their stored bounds. ok is false for an out-of-range id.
func (idx *Index) Inverse(id int) (south, west, north, east float64, ok bool) {
	if id >= 0 && id < len(idx.specials) {
		s := idx.specials[id]
		return s.south, s.west, s.north, s.east, true
	}
	if id < MinIndex || id > MaxIndex {
		return 0, 0, 0, 0, false
	}
	i := (id - MinIndex) / LatMult
	j := (id - MinIndex) % LatMult
	south = float64(i*Grid) - 90
	west = float64(j*Grid) - 180
	return south, west, south + Grid, west + Grid, true
}

// IsSpecial reports whether id names one of the hand-authored
// rectangles rather than a uniform-grid cell.
func (idx *Index) IsSpecial(id int) bool {
	return id >= 0 && id < len(idx.specials)
}

// Name returns the editorial name of a special tile, or "" for a grid
// cell or out-of-range id.
func (idx *Index) Name(id int) string {
	if !idx.IsSpecial(id) {
		return ""
	}
	return idx.specials[id].name
}

// GeohashPrefix returns a coarse geohash tag for the tile's approximate
// center, a convenience shard key for clients that prefer it to the
// small integer id.
func (idx *Index) GeohashPrefix(id int, precision uint) string {
	south, west, north, east, ok := idx.Inverse(id)
	if !ok {
		return ""
	}
	centerLat := (south + north) / 2
	centerLon := (west + east) / 2
	hash, _ := geohash.Encode(centerLat, centerLon, int(precision))
	return hash
}
