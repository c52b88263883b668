package snapshot

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/b3nn0/adsbd/internal/aircraft"
	"github.com/b3nn0/adsbd/internal/message"
)

// populate fills in a representative set of fields on a store-owned
// Aircraft pointer. Tests mutate the pointer returned by
// Store.GetOrCreate directly rather than building a separate Aircraft
// value and copying it in, since Aircraft embeds a sync.Mutex that must
// never be copied.
func populate(a *aircraft.Aircraft, now time.Time) {
	a.Seen = now
	a.CallsignV = "UAL123  "
	a.PositionValid.Source = message.ADSB
	a.PositionValid.Updated = now
	a.Lat, a.Lon = 37.5, -122.3
	a.BaroAlt.Source = message.ADSB
	a.BaroAltV = 35000
	a.GroundSpeed.Source = message.ADSB
	a.GroundSpeedV = 450
	a.Track.Source = message.ADSB
	a.TrackV = 270
	a.Squawk.Source = message.ADSB
	a.SquawkV = 0o1200
	a.Acc.NIC = 8
	a.Acc.Rc = 186
	a.CategoryV = 0xA3
	a.Category.Source = message.ADSB
}

func newStoredAircraft(t *testing.T, store *aircraft.Store, icao uint32, now time.Time) *aircraft.Aircraft {
	t.Helper()
	key := aircraft.Key{Icao: icao}
	a, _ := store.GetOrCreate(key, now)
	populate(a, now)
	return a
}

func TestFromAircraftRendersPopulatedFields(t *testing.T) {
	now := time.Now()
	store := aircraft.NewStore()
	a := newStoredAircraft(t, store, 0xABCDEF, now)
	r := fromAircraft(a, now)

	if r.Hex != "abcdef" {
		t.Errorf("Hex = %q, want abcdef", r.Hex)
	}
	if r.Flight != "UAL123" {
		t.Errorf("Flight = %q, want trimmed UAL123", r.Flight)
	}
	if !r.HavePos || r.Lat != 37.5 {
		t.Errorf("position not rendered: %+v", r)
	}
	if r.AltBaro == nil || *r.AltBaro != 35000 {
		t.Errorf("AltBaro = %v, want 35000", r.AltBaro)
	}
	if r.Squawk != "1200" {
		t.Errorf("Squawk = %q, want 1200", r.Squawk)
	}
	if r.Category != "A3" {
		t.Errorf("Category = %q, want A3", r.Category)
	}
}

func TestBuildAircraftJSONSkipsStaleUnlessRecentJaero(t *testing.T) {
	now := time.Now()
	store := aircraft.NewStore()

	newStoredAircraft(t, store, 0x111111, now)

	stale := newStoredAircraft(t, store, 0x222222, now)
	stale.Seen = now.Add(-10 * time.Minute)

	staleJaero := newStoredAircraft(t, store, 0x333333, now)
	staleJaero.Seen = now.Add(-10 * time.Minute)
	staleJaero.PositionValid.Source = message.Jaero
	staleJaero.PositionValid.Updated = now.Add(-30 * time.Second)

	doc := BuildAircraftJSON(store, now, 5*time.Minute, 42)

	hexes := map[string]bool{}
	for _, r := range doc.Aircraft {
		hexes[r.Hex] = true
	}
	if !hexes["111111"] {
		t.Errorf("expected fresh aircraft present")
	}
	if hexes["222222"] {
		t.Errorf("expected stale aircraft without recent JAERO to be skipped")
	}
	if !hexes["333333"] {
		t.Errorf("expected stale aircraft with recent JAERO position to be kept")
	}
}

func TestWriteAircraftJSONProducesValidFile(t *testing.T) {
	dir := t.TempDir()
	doc := AircraftJSON{Now: 123, Messages: 7}
	if err := WriteAircraftJSON(dir, doc); err != nil {
		t.Fatalf("WriteAircraftJSON: %v", err)
	}
	data, err := os.ReadFile(filepath.Join(dir, "aircraft.json"))
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	var got AircraftJSON
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if got.Messages != 7 {
		t.Errorf("Messages = %d, want 7", got.Messages)
	}
	if _, err := os.Stat(filepath.Join(dir, "aircraft.json.tmp")); !os.IsNotExist(err) {
		t.Errorf("expected no leftover .tmp file")
	}
}

func TestBuildGlobeJSONFiltersByTile(t *testing.T) {
	now := time.Now()
	store := aircraft.NewStore()

	inTile := newStoredAircraft(t, store, 0x444444, now)
	inTile.HasTileIndex = true
	inTile.TileIndex = 42

	otherTile := newStoredAircraft(t, store, 0x555555, now)
	otherTile.HasTileIndex = true
	otherTile.TileIndex = 99

	doc := BuildGlobeJSON(store, 42, now)
	if len(doc.Aircraft) != 1 || doc.Aircraft[0].Hex != "444444" {
		t.Fatalf("globe tile filter failed: %+v", doc.Aircraft)
	}
}

func TestBuildGlobeBinProducesFixedSizeRecords(t *testing.T) {
	now := time.Now()
	store := aircraft.NewStore()
	a := newStoredAircraft(t, store, 0x666666, now)
	a.HasTileIndex = true
	a.TileIndex = 5

	data, err := BuildGlobeBin(store, 5, now)
	if err != nil {
		t.Fatalf("BuildGlobeBin: %v", err)
	}
	if len(data) == 0 {
		t.Fatalf("expected non-empty binary output")
	}
	if len(data)%4 != 0 {
		t.Errorf("record size %d not 4-byte aligned", len(data))
	}
}

func TestBuildVRSPartShardsByIcao(t *testing.T) {
	now := time.Now()
	store := aircraft.NewStore()
	for i := uint32(0); i < VRSParts*2; i++ {
		newStoredAircraft(t, store, i, now)
	}

	total := 0
	for part := 0; part < VRSParts; part++ {
		doc := BuildVRSPart(store, part, now)
		total += len(doc.Aircraft)
	}
	if total != VRSParts*2 {
		t.Errorf("total aircraft across all VRS parts = %d, want %d", total, VRSParts*2)
	}
}
