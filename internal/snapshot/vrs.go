package snapshot

import (
	"encoding/json"
	"time"

	"github.com/b3nn0/adsbd/internal/aircraft"
)

// VRSParts is the number of shards vrs.json is split across, produced
// in 16 parts so only a fraction of aircraft are re-serialized per
// tick, keyed by icao % VRSParts so the same aircraft always lands in
// the same part between ticks.
const VRSParts = 16

// VRSAircraft is one entry of the VRS-compatible array: VRS's field
// names are itself a terse single/two-letter convention (Id, Lat, Long,
// ...), kept here for wire compatibility with existing VRS-format
// consumers rather than renamed to match Record's verbose field names.
type VRSAircraft struct {
	Icao    string   `json:"Icao"`
	Lat     float64  `json:"Lat,omitempty"`
	Long    float64  `json:"Long,omitempty"`
	Alt     *int32   `json:"Alt,omitempty"`
	Spd     *float64 `json:"Spd,omitempty"`
	Trak    *float64 `json:"Trak,omitempty"`
	Call    string   `json:"Call,omitempty"`
	Sqk     string   `json:"Sqk,omitempty"`
	Gnd     bool     `json:"Gnd,omitempty"`
}

// VRSDocument is one vrs.json shard.
type VRSDocument struct {
	Part     int           `json:"part"`
	Aircraft []VRSAircraft `json:"acList"`
}

func toVRS(a *aircraft.Aircraft, now time.Time) VRSAircraft {
	r := fromAircraft(a, now)
	v := VRSAircraft{
		Icao: r.Hex,
		Call: r.Flight,
		Sqk:  r.Squawk,
		Gnd:  r.OnGround,
		Alt:  r.AltBaro,
		Spd:  r.GroundSpeed,
		Trak: r.Track,
	}
	if r.HavePos {
		v.Lat, v.Long = r.Lat, r.Lon
	}
	return v
}

// BuildVRSPart renders the part'th shard (0-based, part < VRSParts) of
// the VRS-compatible feed: every aircraft whose ICAO address hashes to
// this part.
func BuildVRSPart(store *aircraft.Store, part int, now time.Time) VRSDocument {
	doc := VRSDocument{Part: part}
	store.ForEach(func(a *aircraft.Aircraft) {
		if int(a.Key.Icao%VRSParts) != part {
			return
		}
		doc.Aircraft = append(doc.Aircraft, toVRS(a, now))
	})
	return doc
}

// WriteVRSPart atomically writes doc to <dir>/vrs_<part>.json.
func WriteVRSPart(dir string, doc VRSDocument) error {
	data, err := json.Marshal(doc)
	if err != nil {
		return err
	}
	return writeAtomic(pathJoin(dir, "vrs_"+itoa(doc.Part)+".json"), data)
}
