// Package snapshot implements the periodic JSON/binary document
// emitters: the global aircraft.json, per-tile globe_<n>.json/.bin,
// the VRS-compatible feed, and (via internal/stats) stats.json. All
// writers go through writeAtomic so a concurrent reader never observes a
// partially-written file.
//
// The aircraft record field set is recovered from
// original_source/track.c's accepted-field list (the same fields
// internal/tracker fuses onto each Aircraft) rather than any one
// reference JSON-writer file, since the reference codebase emits GDL90
// binary traffic reports, not a JSON snapshot document, for its own
// traffic display.
package snapshot

import (
	"time"

	"github.com/b3nn0/adsbd/internal/aircraft"
	"github.com/b3nn0/adsbd/internal/message"
)

// Record is one aircraft's externally-visible JSON representation,
// shared by aircraft.json and globe_<n>.json.
type Record struct {
	Hex          string  `json:"hex"`
	Flight       string  `json:"flight,omitempty"`
	Registration string  `json:"r,omitempty"`
	Type         string  `json:"t,omitempty"`

	Lat        float64 `json:"lat,omitempty"`
	Lon        float64 `json:"lon,omitempty"`
	HavePos    bool    `json:"-"`

	AltBaro   *int32 `json:"alt_baro,omitempty"`
	AltGeom   *int32 `json:"alt_geom,omitempty"`
	BaroRate  *int16 `json:"baro_rate,omitempty"`
	GeomRate  *int16 `json:"geom_rate,omitempty"`

	GroundSpeed *float64 `json:"gs,omitempty"`
	IAS         *float64 `json:"ias,omitempty"`
	TAS         *float64 `json:"tas,omitempty"`
	Mach        *float64 `json:"mach,omitempty"`

	Track       *float64 `json:"track,omitempty"`
	MagHeading  *float64 `json:"mag_heading,omitempty"`
	TrueHeading *float64 `json:"true_heading,omitempty"`

	Squawk     string `json:"squawk,omitempty"`
	Emergency  string `json:"emergency,omitempty"`
	Category   string `json:"category,omitempty"`

	NIC int `json:"nic,omitempty"`
	Rc  int `json:"rc,omitempty"`

	SeenSeconds        float64 `json:"seen"`
	LastMessageSeconds float64 `json:"seen_pos,omitempty"`
	RSSI               float64 `json:"rssi"`

	OnGround bool `json:"ground,omitempty"`

	Messages int64 `json:"messages,omitempty"`
}

// fromAircraft builds a Record from a live Aircraft. now is the snapshot
// time, used to compute the "seen" age fields the wire format expects in
// seconds rather than absolute timestamps.
func fromAircraft(a *aircraft.Aircraft, now time.Time) Record {
	r := Record{
		Hex:          hex6(a.Key.Icao),
		Flight:       trimmed(a.CallsignV),
		Registration: a.Registration,
		Type:         a.TypeCode,
		NIC:          a.Acc.NIC,
		Rc:           a.Acc.Rc,
		RSSI:         a.Sig.Mean(),
		OnGround:     a.GroundAir == aircraft.StateGround,
	}

	if !a.Seen.IsZero() {
		r.SeenSeconds = now.Sub(a.Seen).Seconds()
	}
	if a.PositionValid.Source != message.Invalid {
		r.Lat, r.Lon = a.Lat, a.Lon
		r.HavePos = true
		if !a.PositionValid.Updated.IsZero() {
			r.LastMessageSeconds = now.Sub(a.PositionValid.Updated).Seconds()
		}
	}
	if a.BaroAlt.Source != message.Invalid {
		v := a.BaroAltV
		r.AltBaro = &v
	}
	if a.GeomAlt.Source != message.Invalid {
		v := a.GeomAltV
		r.AltGeom = &v
	}
	if a.BaroRate.Source != message.Invalid {
		v := a.BaroRateV
		r.BaroRate = &v
	}
	if a.GeomRate.Source != message.Invalid {
		v := a.GeomRateV
		r.GeomRate = &v
	}
	if a.GroundSpeed.Source != message.Invalid {
		v := a.GroundSpeedV
		r.GroundSpeed = &v
	}
	if a.IAS.Source != message.Invalid {
		v := a.IASV
		r.IAS = &v
	}
	if a.TAS.Source != message.Invalid {
		v := a.TASV
		r.TAS = &v
	}
	if a.Mach.Source != message.Invalid {
		v := a.MachV
		r.Mach = &v
	}
	if a.Track.Source != message.Invalid {
		v := a.TrackV
		r.Track = &v
	}
	if a.MagHeading.Source != message.Invalid {
		v := a.MagHeadingV
		r.MagHeading = &v
	}
	if a.TrueHeading.Source != message.Invalid {
		v := a.TrueHeadingV
		r.TrueHeading = &v
	}
	if a.Squawk.Source != message.Invalid {
		r.Squawk = squawkString(a.SquawkV)
	}
	if a.Squawk7500 {
		r.Emergency = "7500"
	} else if a.Squawk7600 {
		r.Emergency = "7600"
	} else if a.Squawk7700 {
		r.Emergency = "7700"
	}
	if a.Category.Source != message.Invalid {
		r.Category = categoryString(a.CategoryV)
	}
	return r
}

func hex6(icao uint32) string {
	const hexDigits = "0123456789abcdef"
	b := make([]byte, 6)
	v := icao & 0xffffff
	for i := 5; i >= 0; i-- {
		b[i] = hexDigits[v&0xf]
		v >>= 4
	}
	return string(b)
}

func trimmed(s string) string {
	i := len(s)
	for i > 0 && s[i-1] == ' ' {
		i--
	}
	return s[:i]
}

func squawkString(v int) string {
	const digits = "0123456789"
	if v < 0 || v > 0o7777 {
		return ""
	}
	return string([]byte{digits[(v>>9)&7], digits[(v>>6)&7], digits[(v>>3)&7], digits[v&7]})
}

// categoryString renders the emitter category byte as the original's
// "A0-D7 encoded as a single hex byte" convention (original_source/
// track.c): the hex digits already spell the set letter and subcategory
// directly, e.g. 0xA2 -> "A2".
func categoryString(v uint8) string {
	if v == 0 {
		return ""
	}
	const hexDigits = "0123456789ABCDEF"
	return string([]byte{hexDigits[v>>4], hexDigits[v&0xf]})
}
