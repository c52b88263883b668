// Package aircraft defines the long-lived per-aircraft record and the
// hash-bucketed registry that owns it.
//
// Grounded on traffic.go's TrafficInfo map/mutex pair, generalized
// from a single flat map guarded by one mutex into
// per-bucket locking so destructive maintenance (stale sweep) and the
// tracker's insert-at-head hot path do not contend on every message
// ("Shared-resource policy").
package aircraft

import (
	"sync"
	"time"

	"github.com/b3nn0/adsbd/internal/message"
)

// NavIntent holds the autopilot/FMS target state, when known.
type NavIntent struct {
	MCPAlt      int32
	FMSAlt      int32
	Heading     float64
	HaveHeading bool
	QNH         float64
	HaveQNH     bool
	Modes       uint16
}

// Accuracy holds the ADS-B accuracy/integrity category fields.
type Accuracy struct {
	NACp, NACv, SIL, GVA, SDA, NIC, Rc int
}

// CPRScratch is the latest odd/even CPR frame cache for global decoding.
type CPRScratch struct {
	Odd, Even *message.CPRFrame
}

// Signal is the ring of the 8 most recent RSSI samples.
type Signal struct {
	Samples  [8]float64
	Next     int
	Count    int
	NoSignal int
}

// Add records a new RSSI sample, wrapping the ring.
func (s *Signal) Add(rssi float64) {
	s.Samples[s.Next] = rssi
	s.Next = (s.Next + 1) % len(s.Samples)
	if s.Count < len(s.Samples) {
		s.Count++
	}
}

// Mean returns the mean of the recorded samples, or 0 if none.
func (s *Signal) Mean() float64 {
	if s.Count == 0 {
		return 0
	}
	var sum float64
	for i := 0; i < s.Count; i++ {
		sum += s.Samples[i]
	}
	return sum / float64(s.Count)
}

// GroundAirState is the tracker's ground/air state machine.
type GroundAirState uint8

const (
	StateInvalid GroundAirState = iota
	StateGround
	StateAirborne
	StateUncertain
)

// Key identifies an aircraft uniquely: 24-bit address plus the
// non-ICAO bit, forming the 25-bit logical identity.
type Key = message.AircraftKey

// Aircraft is the long-lived tracked record for one address.
type Aircraft struct {
	mu sync.Mutex // guards Trace and the fields the trace writer snapshots

	Key          Key
	Registration string
	TypeCode     string

	Callsign  Validity
	CallsignV string

	BaroAlt     Validity
	BaroAltV    int32
	GeomAlt     Validity
	GeomAltV    int32
	AltReliable int // reliability counter
	GroundSpeed Validity
	GroundSpeedV float64
	IAS         Validity
	IASV        float64
	TAS         Validity
	TASV        float64
	Mach        Validity
	MachV       float64

	Track       Validity
	TrackV      float64
	MagHeading  Validity
	MagHeadingV float64
	TrueHeading Validity
	TrueHeadingV float64
	HRDCached   bool // opstatus-cached heading-reference-direction bit
	TAHCached   bool

	BaroRate Validity
	BaroRateV int16
	GeomRate Validity
	GeomRateV int16

	Squawk     Validity
	SquawkV    int
	Squawk7500 bool
	Squawk7600 bool
	Squawk7700 bool

	Emergency Validity
	EmergencyV uint8

	Category  Validity
	CategoryV uint8

	Nav NavIntent
	Acc Accuracy

	// Position state.
	Lat, Lon         float64
	PositionValid    Validity
	Surface          bool
	LatReliable      float64
	LonReliable      float64
	EverReliable     bool
	PosReliableOdd   int
	PosReliableEven  int

	CPR CPRScratch

	Sig Signal

	GroundAir        GroundAirState
	GroundAirUpdated time.Time

	Trace TraceHandle // set by the trace store; nil until first appended position

	// Derived.
	WindSpeed, WindDir   float64
	WindRefAlt           int32
	WindTimestamp        time.Time
	OAT, TAT             float64
	OATTimestamp         time.Time
	DeclinationCache     float64
	DeclinationCacheYear int

	// Lifecycle bookkeeping.
	Created         time.Time
	Seen            time.Time // last address-reliable message
	LastMessage     time.Time // last message of any kind
	AddrTypeUpdated time.Time

	TileIndex    int
	HasTileIndex bool

	TraceWrite bool // set when the trace writer owes this aircraft a flush

	bucket int // which Store bucket this record currently lives in
}

// TraceHandle is the narrow interface Aircraft needs from the trace
// store, kept here to avoid an import cycle between aircraft and trace.
type TraceHandle interface {
	Len() int
}

// Lock acquires the per-aircraft mutex that guards the trace append
// path: held briefly by the tracker to append and by the trace
// writer to snapshot.
func (a *Aircraft) Lock()   { a.mu.Lock() }
func (a *Aircraft) Unlock() { a.mu.Unlock() }

// EligibleForGlobalCPR reports whether the aircraft is eligible for global-CPR
// anchored output (invariant: both reliability counters must
// be positive).
func (a *Aircraft) EligibleForGlobalCPR() bool {
	return a.PosReliableOdd > 0 && a.PosReliableEven > 0
}

// HasReliablePosition reports whether LatReliable/LonReliable have ever
// been set, i.e. the aircraft has crossed json_reliable at some point.
func (a *Aircraft) HasReliablePosition() bool {
	return a.EverReliable
}

// New creates a fresh Aircraft record for key, stamped with creation
// time now.
func New(key Key, now time.Time) *Aircraft {
	return &Aircraft{
		Key:       key,
		Created:   now,
		GroundAir: StateInvalid,
	}
}
