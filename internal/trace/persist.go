package trace

import (
	"bytes"
	"encoding/gob"
	"errors"
	"fmt"
	"math/rand"
	"path/filepath"
	"time"

	"github.com/b3nn0/adsbd/internal/aircraft"
	"github.com/b3nn0/adsbd/internal/message"
	"github.com/b3nn0/adsbd/internal/stateio"
)

// SchemaVersion is the stateio version tag for the persisted-aircraft
// blob. Bump it whenever persisted's field set changes; old files then
// fail stateio.Read with ErrVersionMismatch and are discarded rather
// than being misinterpreted.
const SchemaVersion = 1

// persisted is the on-disk warm-restart record: the Aircraft's key
// fields plus its full trace, gob-encoded. It intentionally does not
// carry aircraft.Validity bookkeeping (source/staleness is re-established
// from live traffic after restart) -- only the values needed to seed
// lat/lon, the trace, and the dense snapshot fields survive a restart.
type persisted struct {
	Icao     uint32
	AddrType message.AddrType

	Registration string
	TypeCode     string

	Lat, Lon        float64
	LatReliable     float64
	LonReliable     float64
	EverReliable    bool
	PosReliableOdd  int
	PosReliableEven int
	Surface         bool

	State StateAll

	Points []StatePoint
	All    []StateAll
}

// Save writes a's key fields and trace to path under SchemaVersion.
func Save(path string, a *aircraft.Aircraft, tr *Trace) error {
	p := persisted{
		Icao:            a.Key.Icao,
		AddrType:        a.Key.AddrType,
		Registration:    a.Registration,
		TypeCode:        a.TypeCode,
		Lat:             a.Lat,
		Lon:             a.Lon,
		LatReliable:     a.LatReliable,
		LonReliable:     a.LonReliable,
		EverReliable:    a.EverReliable,
		PosReliableOdd:  a.PosReliableOdd,
		PosReliableEven: a.PosReliableEven,
		Surface:         a.Surface,
		State:           ToStateAll(a),
		Points:          tr.Points,
		All:             tr.All,
	}

	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(p); err != nil {
		return err
	}
	return stateio.Write(path, SchemaVersion, buf.Bytes())
}

// Load reads a persisted aircraft+trace back from path, stamping the
// restored record with now and scheduling its next full-trace rewrite
// within the next 2 minutes, jittered so a cold start with many
// restored aircraft does not write them all back out at once. A
// version mismatch or corrupt blob is reported so the caller can
// unlink and continue.
func Load(path string, now time.Time) (*aircraft.Aircraft, *Trace, error) {
	payload, err := stateio.Read(path, SchemaVersion)
	if err != nil {
		return nil, nil, err
	}

	var p persisted
	if err := gob.NewDecoder(bytes.NewReader(payload)).Decode(&p); err != nil {
		return nil, nil, fmt.Errorf("%w: %v", errors.New("stateio: corrupt payload"), err)
	}

	key := aircraft.Key{Icao: p.Icao, AddrType: p.AddrType}
	a := aircraft.New(key, now)
	a.Registration = p.Registration
	a.TypeCode = p.TypeCode
	a.Lat, a.Lon = p.Lat, p.Lon
	a.LatReliable, a.LonReliable = p.LatReliable, p.LonReliable
	a.EverReliable = p.EverReliable
	a.PosReliableOdd = p.PosReliableOdd
	a.PosReliableEven = p.PosReliableEven
	a.Surface = p.Surface
	ApplyStateAll(a, p.State)

	jitter := time.Duration(rand.Int63n(int64(2 * time.Minute)))
	tr := New(now.Add(jitter))
	tr.Points = p.Points
	tr.All = p.All
	a.Trace = tr

	return a, tr, nil
}

// StatePath builds the internal_state/<hex>/<addr> path // documents, rooted at dir.
func StatePath(dir string, icao uint32) string {
	return filepath.Join(dir, bucketHex(icao), hexAddr(icao))
}
