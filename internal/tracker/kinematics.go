package tracker

import (
	"time"

	"github.com/b3nn0/adsbd/internal/aircraft"
	"github.com/b3nn0/adsbd/internal/message"
)

// applyKinematics wires the straightforward scalar fields -- ground
// speed, IAS, TAS, Mach -- through the same accept_data gate as
// altitude, without any extra plausibility modeling (the original does
// not second-guess these beyond accept_data either).
func (c *Context) applyKinematics(a *aircraft.Aircraft, msg *message.Message, now time.Time) {
	if msg.HaveGroundSpeed {
		if aircraft.Accept(&a.GroundSpeed, msg.Source, msg.SysTime, now, c.Config.StaleWindow) {
			a.GroundSpeedV = msg.GroundSpeed
		}
	}
	if msg.HaveIAS {
		if aircraft.Accept(&a.IAS, msg.Source, msg.SysTime, now, c.Config.StaleWindow) {
			a.IASV = msg.IAS
		}
	}
	if msg.HaveTAS {
		if aircraft.Accept(&a.TAS, msg.Source, msg.SysTime, now, c.Config.StaleWindow) {
			a.TASV = msg.TAS
		}
	}
	if msg.HaveMach {
		if aircraft.Accept(&a.Mach, msg.Source, msg.SysTime, now, c.Config.StaleWindow) {
			a.MachV = msg.Mach
		}
	}
}
