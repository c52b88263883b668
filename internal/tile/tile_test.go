package tile

import "testing"

func TestLookupSpecialRegions(t *testing.T) {
	idx := New()

	cases := []struct {
		name     string
		lat, lon float64
		want     int
	}{
		{"mid-Atlantic equator", 0, 0, 12},
		{"Sydney", -34, 151, 13},
		{"near-pole antimeridian", 89.9, 179.9, 1},
	}
	for _, c := range cases {
		got := idx.Lookup(c.lat, c.lon)
		if got != c.want {
			t.Errorf("%s: Lookup(%v,%v) = %d, want %d", c.name, c.lat, c.lon, got, c.want)
		}
		if !idx.IsSpecial(got) {
			t.Errorf("%s: expected a special tile id, got grid id %d", c.name, got)
		}
	}
}

func TestLookupGridFallback(t *testing.T) {
	idx := New()

	cases := []struct {
		name     string
		lat, lon float64
		want     int
	}{
		{"Georgia USA", 35, -85, 46095},
		{"Central USA", 40, -95, 47885},
		{"London", 51.5, -0.1, 51939},
	}
	for _, c := range cases {
		got := idx.Lookup(c.lat, c.lon)
		if got != c.want {
			t.Errorf("%s: Lookup(%v,%v) = %d, want %d", c.name, c.lat, c.lon, got, c.want)
		}
		if idx.IsSpecial(got) {
			t.Errorf("%s: expected a grid tile id, got special id %d", c.name, got)
		}
	}
}

func TestInverseRoundTripsGridCell(t *testing.T) {
	idx := New()
	id := idx.Lookup(35, -85)

	south, west, north, east, ok := idx.Inverse(id)
	if !ok {
		t.Fatalf("Inverse(%d) failed", id)
	}
	if 35 < south || 35 >= north || -85 < west || -85 >= east {
		t.Fatalf("original point (35,-85) not inside returned cell [%v,%v)x[%v,%v)", south, north, west, east)
	}
	// Re-deriving the tile id from the cell's own southwest corner must
	// reproduce the same id.
	if got := idx.Lookup(south, west); got != id {
		t.Errorf("Lookup(south,west) = %d, want original id %d", got, id)
	}
}

func TestNameOnlySpecialTiles(t *testing.T) {
	idx := New()
	specialID := idx.Lookup(0, 0)
	if idx.Name(specialID) == "" {
		t.Errorf("expected a non-empty name for special tile %d", specialID)
	}
	gridID := idx.Lookup(35, -85)
	if idx.Name(gridID) != "" {
		t.Errorf("expected empty name for grid tile %d, got %q", gridID, idx.Name(gridID))
	}
}

func TestGeohashPrefixNonEmpty(t *testing.T) {
	idx := New()
	id := idx.Lookup(47.4, 8.5)
	hash := idx.GeohashPrefix(id, 5)
	if hash == "" {
		t.Errorf("expected non-empty geohash prefix for tile %d", id)
	}
}
