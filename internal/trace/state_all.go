package trace

import (
	"github.com/b3nn0/adsbd/internal/aircraft"
)

// StateAll is the dense quarter-rate snapshot paired with every fourth
// StatePoint (invariant: "a trace's trace_all[i] is populated
// iff i % 4 == 0"), used to reconstruct most of the aircraft's fused
// state during playback without replaying every raw message.
//
// Track/heading fields are quantized to 0.01 degree units and altitude
// fields to 25 ft units, the documented round-trip quantization of
// ("to_state_all(a); from_state_all(...) -> a' preserves all
// scalar fields modulo documented quantization").
type StateAll struct {
	Callsign string
	Squawk   int

	BaroAltQ25 int32 // baro altitude / 25, rounded
	GeomAltQ25 int32
	BaroRate   int16
	GeomRate   int16

	TrackQ       uint16 // degrees * 100
	TrueHeadingQ uint16
	MagHeadingQ  uint16

	GroundSpeed float64
	IAS         float64
	TAS         float64
	Mach        float64

	Category  uint8
	Emergency uint8

	NIC, Rc, NACp, NACv, SIL, GVA, SDA int

	GroundAir aircraft.GroundAirState
}

func quantizeAlt25(v int32) int32 {
	if v >= 0 {
		return (v + 12) / 25
	}
	return -((-v + 12) / 25)
}

func quantizeDeg(v float64) uint16 {
	for v < 0 {
		v += 360
	}
	for v >= 360 {
		v -= 360
	}
	return uint16(v*100 + 0.5)
}

// ToStateAll snapshots a's currently fused scalar fields.
func ToStateAll(a *aircraft.Aircraft) StateAll {
	return StateAll{
		Callsign:     a.CallsignV,
		Squawk:       a.SquawkV,
		BaroAltQ25:   quantizeAlt25(a.BaroAltV),
		GeomAltQ25:   quantizeAlt25(a.GeomAltV),
		BaroRate:     a.BaroRateV,
		GeomRate:     a.GeomRateV,
		TrackQ:       quantizeDeg(a.TrackV),
		TrueHeadingQ: quantizeDeg(a.TrueHeadingV),
		MagHeadingQ:  quantizeDeg(a.MagHeadingV),
		GroundSpeed:  a.GroundSpeedV,
		IAS:          a.IASV,
		TAS:          a.TASV,
		Mach:         a.MachV,
		Category:     a.CategoryV,
		Emergency:    a.EmergencyV,
		NIC:          a.Acc.NIC,
		Rc:           a.Acc.Rc,
		NACp:         a.Acc.NACp,
		NACv:         a.Acc.NACv,
		SIL:          a.Acc.SIL,
		GVA:          a.Acc.GVA,
		SDA:          a.Acc.SDA,
		GroundAir:    a.GroundAir,
	}
}

// ApplyStateAll restores s's fields onto a, used by playback/warm
// restart; it does not touch Validity bookkeeping, only the values
// (playback has no notion of message source/staleness to restore).
func ApplyStateAll(a *aircraft.Aircraft, s StateAll) {
	a.CallsignV = s.Callsign
	a.SquawkV = s.Squawk
	a.BaroAltV = s.BaroAltQ25 * 25
	a.GeomAltV = s.GeomAltQ25 * 25
	a.BaroRateV = s.BaroRate
	a.GeomRateV = s.GeomRate
	a.TrackV = float64(s.TrackQ) / 100
	a.TrueHeadingV = float64(s.TrueHeadingQ) / 100
	a.MagHeadingV = float64(s.MagHeadingQ) / 100
	a.GroundSpeedV = s.GroundSpeed
	a.IASV = s.IAS
	a.TASV = s.TAS
	a.MachV = s.Mach
	a.CategoryV = s.Category
	a.EmergencyV = s.Emergency
	a.Acc = aircraft.Accuracy{NIC: s.NIC, Rc: s.Rc, NACp: s.NACp, NACv: s.NACv, SIL: s.SIL, GVA: s.GVA, SDA: s.SDA}
	a.GroundAir = s.GroundAir
}
