package tracker

import (
	"time"

	"github.com/b3nn0/adsbd/internal/aircraft"
	"github.com/b3nn0/adsbd/internal/message"
)

// applyGroundAir runs the ground/air state machine:
// transitions out of a CERTAIN state (GROUND/AIRBORNE) require either a
// fresher CERTAIN message of the opposite value, the current state
// having aged past TrackExpireLong, or a surface/airborne CPR crossing
// (which also forces mm.reduce_forward).
func (c *Context) applyGroundAir(a *aircraft.Aircraft, msg *message.Message, now time.Time) {
	want := groundStateToState(msg.Ground)
	if msg.CPR != nil && want == aircraft.StateUncertain {
		if msg.CPR.Surface {
			want = aircraft.StateGround
		} else {
			want = aircraft.StateAirborne
		}
	}
	if want == aircraft.StateUncertain {
		return // message carries no ground/air information at all
	}

	switch a.GroundAir {
	case aircraft.StateInvalid, aircraft.StateUncertain:
		a.GroundAir = want
		a.GroundAirUpdated = now

	case aircraft.StateGround, aircraft.StateAirborne:
		aged := now.Sub(a.GroundAirUpdated) > c.Config.TrackExpireLong
		crossed := want != a.GroundAir
		if crossed && (aged || msg.Ground != message.GroundStateUnknown || msg.CPR != nil) {
			a.GroundAir = want
			a.GroundAirUpdated = now
			msg.ReduceForward = true
		}
	}
}

func groundStateToState(g message.GroundState) aircraft.GroundAirState {
	switch g {
	case message.GroundStateGround:
		return aircraft.StateGround
	case message.GroundStateAirborne:
		return aircraft.StateAirborne
	default:
		return aircraft.StateUncertain
	}
}
