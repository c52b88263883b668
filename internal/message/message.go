package message

import "time"

// AddrType distinguishes ICAO vs. non-ICAO (TIS-B track file, ADS-R
// relayed, etc.) 24-bit addresses. Combined with Icao it forms the
// 25-bit logical identity describes.
type AddrType uint8

const (
	AddrICAO AddrType = iota
	AddrNonICAO
)

// GroundState is the tri-state air/ground indication a message may carry.
type GroundState uint8

const (
	GroundStateUnknown GroundState = iota
	GroundStateGround
	GroundStateAirborne
)

// HeadingKind disambiguates which of several heading flavors a message
// carries; the tracker resolves all of them to a true heading/track.
type HeadingKind uint8

const (
	HeadingNone HeadingKind = iota
	HeadingGroundTrack
	HeadingTrue
	HeadingMagnetic
	HeadingMagneticOrTrue // disambiguated by cached HRD bit
	HeadingTrackOrHeading // disambiguated by cached TAH bit
)

// CPRFrame is a single odd or even CPR-encoded position report, kept
// until it is consumed by a global or local decode, or ages out.
type CPRFrame struct {
	RawLat, RawLon uint32
	Odd            bool
	Surface        bool
	NIC            int
	Rc             int
	Source         Source
	Timestamp      time.Time
}

// Client is the accounting back-pointer a Message carries to the
// connection it arrived on; see ingest.Client. Kept as an interface here
// to avoid an import cycle between message and ingest.
type Client interface {
	Key() string
}

// Message is the decoded-frame record handed to the tracker. It is never
// persisted: the tracker consumes it inline on the goroutine that read
// it and discards it immediately after (or on rejection).
type Message struct {
	Icao     uint32
	AddrType AddrType

	// AddressReliable is true for DF17/DF18 extended squitter, CRC-good
	// DF11 all-call, or SBS-origin messages; only these may create a new
	// Aircraft record or refresh its "seen" timestamp.
	AddressReliable bool

	Source     Source
	SysTime    time.Time // system-time stamp at receipt
	HWTime     uint64    // 12MHz hardware timestamp, 0 if unavailable
	Remote     bool      // arrived over the network rather than local SDR
	SignalRSSI float64

	CallSign string
	Squawk   int
	HaveSquawk bool

	BaroAlt      int32
	HaveBaroAlt  bool
	GeomAlt      int32
	HaveGeomAlt  bool
	GeomAltDelta int32
	HaveGeomAltDelta bool

	BaroRate     int16
	HaveBaroRate bool
	GeomRate     int16
	HaveGeomRate bool

	GroundSpeed    float64
	HaveGroundSpeed bool
	IAS            float64
	HaveIAS        bool
	TAS            float64
	HaveTAS        bool
	Mach           float64
	HaveMach       bool

	Heading     float64
	HeadingKind HeadingKind
	HaveHeading bool

	Category    uint8
	HaveCategory bool

	Ground      GroundState

	CPR        *CPRFrame // non-nil if this message carries a position report
	DecodedLat float64
	DecodedLon float64
	HaveDecodedPos bool // set by the tracker once CPR decoding succeeds

	NIC int
	Rc  int
	NACp int
	NACv int
	SIL  int
	GVA  int
	SDA  int

	MCPAlt    int32
	HaveMCPAlt bool
	FMSAlt    int32
	HaveFMSAlt bool
	NavHeading float64
	HaveNavHeading bool
	QNH        float64
	HaveQNH    bool
	NavModes   uint16

	Emergency    uint8
	HaveEmergency bool

	// Outcome flags, set by the tracker as the message is processed.
	// These mirror readsb's per-message mm->garbage / pos_bad /
	// duplicate bookkeeping and are consulted by the stats package.
	Garbage        bool
	PosBad         bool
	PosIgnore      bool
	Duplicate      bool
	ReduceForward  bool

	Client Client
}

// AircraftKey is the 25-bit logical identity (24-bit address plus the
// non-ICAO bit) used to key the Aircraft registry.
type AircraftKey struct {
	Icao     uint32
	AddrType AddrType
}
