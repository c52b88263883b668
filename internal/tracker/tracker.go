// Package tracker implements update_from_message, the core per-message
// fusion engine: address reliability, field acceptance,
// altitude fusion, heading resolution, CPR position decode/acceptance,
// duplicate suppression, and the ground/air state machine.
//
// Grounded on original_source/track.c's trackUpdateFromMessage and the
// teacher's traffic.go update path, generalized away from the single
// process-wide traffic map into an explicit Context, and
// from track.c's goto-heavy early-exit control flow into the
// scratch-copy/commit pattern calls for.
package tracker

import (
	"time"

	"github.com/b3nn0/adsbd/internal/aircraft"
	"github.com/b3nn0/adsbd/internal/clock"
	"github.com/b3nn0/adsbd/internal/message"
	"github.com/b3nn0/adsbd/internal/tile"
)

// Config holds the tunables the original exposes as Modes.* globals.
// Defaults below match commonly documented readsb defaults; the exact
// numeric #defines were not present in the retrieved original_source
// fragment, so these are the DESIGN.md-recorded best estimate.
type Config struct {
	StaleWindow      time.Duration // TRACK_STALE
	SeenExpire       time.Duration // 45s address-reliability refresh window
	TrackExpire      time.Duration // TRACK_EXPIRE
	TrackExpireLong  time.Duration // TRACK_EXPIRE_LONG
	FilterPersistence int          // filter_persistence, reliability counter cap
	JSONReliable     int           // Modes.json_reliable threshold
	MaxRangeNM       float64       // 0 disables the range gate
	ReceiverLat      float64
	ReceiverLon      float64
	HaveReceiverPos  bool
	ReduceInterval   time.Duration // net_output_beast_reduce_interval
}

// DefaultConfig returns the tunables used when the embedding binary does
// not override them.
func DefaultConfig() Config {
	return Config{
		StaleWindow:       aircraft.DefaultStale,
		SeenExpire:        45 * time.Second,
		TrackExpire:       5 * time.Minute,
		TrackExpireLong:   30 * time.Minute,
		FilterPersistence: 4,
		JSONReliable:      1,
		ReduceInterval:    aircraft.DefaultReduceInterval,
	}
}

// Context owns one independent tracking universe: its aircraft store,
// clock, tile index, and config. Multiple Contexts may coexist in the
// same process (the explicit-context redesign of ).
type Context struct {
	Store  *aircraft.Store
	Clock  *clock.Clock
	Tiles  *tile.Index
	Config Config
}

// NewContext wires a fresh tracking universe.
func NewContext(store *aircraft.Store, clk *clock.Clock, tiles *tile.Index, cfg Config) *Context {
	return &Context{Store: store, Clock: clk, Tiles: tiles, Config: cfg}
}

// supersonicKt is the groundspeed above which nicToRc prefers the looser
// of a NIC level's two containment radii -- over this speed a stale
// position ages into a much larger footprint per second than the radius
// itself implies.
const supersonicKt = 661 // ~Mach 1 at sea level

// nicRcMeters is the DO-260B NIC -> Rc (radius of containment, meters)
// table, condensed from compute_rc's per-metype branches: index is the
// NIC value itself (0-11), inner pair is {subsonic, supersonic}. 0 means
// Rc is unknown/unbounded.
var nicRcMeters = [12][2]int{
	0:  {0, 0},
	1:  {37040, 37040},
	2:  {14816, 14816},
	3:  {7408, 7408},
	4:  {3704, 3704},
	5:  {1852, 1852},
	6:  {1111, 1852},
	7:  {370, 556},
	8:  {185, 371},
	9:  {75, 186},
	10: {25, 75},
	11: {7, 25},
}

// nicToRc derives the radius of containment paired with a NIC value
// ("navigation integrity category"), matching track.c's nic/rc pair
// handling but collapsed from its metype/version/nic-supplement
// branching into the single published NIC table, disambiguated by
// whether the aircraft is currently supersonic rather than by message
// subtype.
func nicToRc(nic int, supersonic bool) int {
	if nic < 0 || nic >= len(nicRcMeters) {
		return 0
	}
	if supersonic {
		return nicRcMeters[nic][1]
	}
	return nicRcMeters[nic][0]
}

// addressReliable reports whether msg may create a new aircraft record
// and refresh `seen` ("Address reliability").
func addressReliable(msg *message.Message) bool {
	return msg.AddressReliable
}

// Update runs one message through the full fusion pipeline and returns
// the aircraft it updated, or nil if the message could not be applied
// (unknown address with no address-reliability, or the record has
// expired past SeenExpire with no refreshing message).
func (c *Context) Update(msg *message.Message) *aircraft.Aircraft {
	now := c.Clock.Now()
	key := aircraft.Key{Icao: msg.Icao, AddrType: msg.AddrType}

	a := c.Store.Get(key)
	if a == nil {
		if !addressReliable(msg) {
			return nil
		}
		var created bool
		a, created = c.Store.GetOrCreate(key, now)
		if created {
			a.Lock()
			a.Seen = now
			a.Unlock()
		}
	}

	a.Lock()
	defer a.Unlock()

	if addressReliable(msg) {
		a.Seen = now
	} else if now.Sub(a.Seen) > c.Config.SeenExpire {
		// Stale record with no recent address-reliable refresh: any
		// non-address-reliable message is dropped rather than applied.
		return nil
	}
	a.LastMessage = now
	a.AddrTypeUpdated = now

	c.applyAltitude(a, msg, now)
	c.applyKinematics(a, msg, now)
	c.applyHeading(a, msg, now)
	c.applyGroundAir(a, msg, now)

	if msg.CPR != nil {
		c.applyPosition(a, msg, now)
	} else if msg.HaveDecodedPos {
		c.applyDecodedPosition(a, msg, now)
	}

	if msg.HaveSquawk {
		if aircraft.Accept(&a.Squawk, msg.Source, msg.SysTime, now, c.Config.StaleWindow) {
			a.SquawkV = msg.Squawk
			a.Squawk7500 = msg.Squawk == 7500
			a.Squawk7600 = msg.Squawk == 7600
			a.Squawk7700 = msg.Squawk == 7700
			if aircraft.ReduceForward(&a.Squawk, msg.SysTime, c.Config.ReduceInterval, 0) {
				msg.ReduceForward = true
			}
			// An emergency squawk always goes out on the full-rate path;
			// never hold it back for the reduced-bandwidth one.
			if a.Squawk7500 || a.Squawk7600 || a.Squawk7700 {
				msg.ReduceForward = false
			}
		}
	}
	if msg.HaveCategory {
		if aircraft.Accept(&a.Category, msg.Source, msg.SysTime, now, c.Config.StaleWindow) {
			a.CategoryV = msg.Category
		}
	}
	if msg.HaveEmergency {
		if aircraft.Accept(&a.Emergency, msg.Source, msg.SysTime, now, c.Config.StaleWindow) {
			a.EmergencyV = msg.Emergency
		}
	}
	if msg.CallSign != "" {
		if aircraft.Accept(&a.Callsign, msg.Source, msg.SysTime, now, c.Config.StaleWindow) {
			a.CallsignV = msg.CallSign
		}
	}
	if msg.Source != message.Invalid {
		a.Sig.Add(msg.SignalRSSI)
	}
	a.Acc.NIC = msg.NIC
	a.Acc.Rc = nicToRc(msg.NIC, a.GroundSpeedV > supersonicKt)
	a.Acc.NACp = msg.NACp
	a.Acc.NACv = msg.NACv
	a.Acc.SIL = msg.SIL
	a.Acc.GVA = msg.GVA
	a.Acc.SDA = msg.SDA

	return a
}
