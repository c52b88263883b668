package snapshot

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"time"

	"github.com/b3nn0/adsbd/internal/aircraft"
)

// GlobeJSON is one globe_<tile>.json document: every aircraft currently
// bucketed into that tile.
type GlobeJSON struct {
	Now      float64  `json:"now"`
	Tile     int      `json:"tile"`
	Aircraft []Record `json:"aircraft"`
}

// BuildGlobeJSON renders the document for tileID from every aircraft
// whose TileIndex currently matches it.
func BuildGlobeJSON(store *aircraft.Store, tileID int, now time.Time) GlobeJSON {
	doc := GlobeJSON{Now: timeAsUnixFloat(now), Tile: tileID}
	store.ForEach(func(a *aircraft.Aircraft) {
		if !a.HasTileIndex || a.TileIndex != tileID {
			return
		}
		doc.Aircraft = append(doc.Aircraft, fromAircraft(a, now))
	})
	return doc
}

// WriteGlobeJSON atomically writes doc to <dir>/globe_<tile>.json.
func WriteGlobeJSON(dir string, doc GlobeJSON) error {
	data, err := json.Marshal(doc)
	if err != nil {
		return err
	}
	return writeAtomic(pathJoin(dir, globeFilename(doc.Tile, "json")), data)
}

func globeFilename(tile int, ext string) string {
	return "globe_" + itoa(tile) + "." + ext
}

func itoa(v int) string {
	if v == 0 {
		return "0"
	}
	neg := v < 0
	if neg {
		v = -v
	}
	var buf [12]byte
	i := len(buf)
	for v > 0 {
		i--
		buf[i] = byte('0' + v%10)
		v /= 10
	}
	if neg {
		i--
		buf[i] = '-'
	}
	return string(buf[i:])
}

// BinCraftRecord is the fixed-size binary twin of Record, matching the
// original's BinCraft on-wire layout. Field widths and scale
// factors follow the same conventions readsb's binCraft.c uses: lat/lon
// as 1e-6-degree fixed point, speeds/altitudes as whole units, angles as
// tenths of a degree.
type BinCraftRecord struct {
	Icao       uint32
	LatE6      int32
	LonE6      int32
	AltBaro    int32
	AltGeom    int32
	GSTenths   int16
	TrackTenths int16
	BaroRate   int16
	GeomRate   int16
	Squawk     uint16
	NIC        uint8
	Rc         uint8
	Flags      uint8 // bit0: have position, bit1: on ground
	_          [3]byte // padding to keep the record a multiple of 4 bytes
}

const (
	binFlagHavePosition = 1 << 0
	binFlagOnGround     = 1 << 1
)

func toBinCraftRecord(r Record) BinCraftRecord {
	b := BinCraftRecord{
		Squawk: squawkUint16(r.Squawk),
		NIC:    uint8(r.NIC),
		Rc:     uint8(r.Rc),
	}
	if r.HavePos {
		b.LatE6 = int32(r.Lat * 1e6)
		b.LonE6 = int32(r.Lon * 1e6)
		b.Flags |= binFlagHavePosition
	}
	if r.OnGround {
		b.Flags |= binFlagOnGround
	}
	if r.AltBaro != nil {
		b.AltBaro = *r.AltBaro
	}
	if r.AltGeom != nil {
		b.AltGeom = *r.AltGeom
	}
	if r.GroundSpeed != nil {
		b.GSTenths = int16(*r.GroundSpeed * 10)
	}
	if r.Track != nil {
		b.TrackTenths = int16(*r.Track * 10)
	}
	if r.BaroRate != nil {
		b.BaroRate = *r.BaroRate
	}
	if r.GeomRate != nil {
		b.GeomRate = *r.GeomRate
	}
	return b
}

func squawkUint16(s string) uint16 {
	if len(s) != 4 {
		return 0
	}
	var v uint16
	for i := 0; i < 4; i++ {
		d := s[i]
		if d < '0' || d > '7' {
			return 0
		}
		v = v<<3 | uint16(d-'0')
	}
	return v
}

// BuildGlobeBin renders tileID's aircraft as a sequence of fixed-size
// BinCraftRecord entries, little-endian, with no header -- the consumer
// already knows the tile and record count from the accompanying JSON.
func BuildGlobeBin(store *aircraft.Store, tileID int, now time.Time) ([]byte, error) {
	var buf bytes.Buffer
	var err error
	store.ForEach(func(a *aircraft.Aircraft) {
		if err != nil || !a.HasTileIndex || a.TileIndex != tileID {
			return
		}
		rec := fromAircraft(a, now)
		rec2 := toBinCraftRecord(rec)
		rec2.Icao = a.Key.Icao
		err = binary.Write(&buf, binary.LittleEndian, rec2)
	})
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// WriteGlobeBin atomically writes the binary form to
// <dir>/globe_<tile>.bin.
func WriteGlobeBin(dir string, tileID int, data []byte) error {
	return writeAtomic(pathJoin(dir, globeFilename(tileID, "bin")), data)
}
