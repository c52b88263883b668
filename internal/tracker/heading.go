package tracker

import (
	"math"
	"time"

	"github.com/b3nn0/adsbd/internal/aircraft"
	"github.com/b3nn0/adsbd/internal/geo"
	"github.com/b3nn0/adsbd/internal/message"
)

// maxCrabDeg is the largest magnetic-to-true derived heading/ground
// track disagreement tolerated before the derived true heading is
// rejected ("Heading resolution").
const maxCrabDeg = 45.0

// applyHeading resolves msg's tagged heading (ground-track, true,
// magnetic, magnetic-or-true, track-or-heading) into the aircraft's
// Track/MagHeading/TrueHeading fields, converting magnetic to true via
// declination and rejecting the conversion when it implies an
// implausible crab angle versus the known ground track.
func (c *Context) applyHeading(a *aircraft.Aircraft, msg *message.Message, now time.Time) {
	if !msg.HaveHeading {
		return
	}

	switch msg.HeadingKind {
	case message.HeadingGroundTrack:
		acceptTrack(a, msg, now, c.Config.StaleWindow)

	case message.HeadingTrue:
		acceptTrue(a, msg, now, c.Config.StaleWindow)

	case message.HeadingMagnetic:
		c.acceptMagnetic(a, msg, now)

	case message.HeadingMagneticOrTrue:
		if a.HRDCached {
			acceptTrue(a, msg, now, c.Config.StaleWindow)
		} else {
			c.acceptMagnetic(a, msg, now)
		}

	case message.HeadingTrackOrHeading:
		if a.TAHCached {
			acceptTrack(a, msg, now, c.Config.StaleWindow)
		} else {
			c.acceptMagnetic(a, msg, now)
		}
	}
}

func acceptTrack(a *aircraft.Aircraft, msg *message.Message, now time.Time, stale time.Duration) {
	if aircraft.Accept(&a.Track, msg.Source, msg.SysTime, now, stale) {
		a.TrackV = msg.Heading
	}
}

func acceptTrue(a *aircraft.Aircraft, msg *message.Message, now time.Time, stale time.Duration) {
	if aircraft.Accept(&a.TrueHeading, msg.Source, msg.SysTime, now, stale) {
		a.TrueHeadingV = msg.Heading
	}
}

// acceptMagnetic converts a magnetic heading to true via the
// declination model. A derived true heading is always tagged Indirect
// priority when accepted at all (it is a conversion, never a directly
// reported value) -- and when a fresh ground track is known and the
// implied crab angle versus it is implausible (>=45 degrees), the
// derived heading is not applied at all rather than merely
// deprioritized, matching track.c:1417-1431's skip-on-failure (no
// accept_data call for true_heading_valid in that branch).
func (c *Context) acceptMagnetic(a *aircraft.Aircraft, msg *message.Message, now time.Time) {
	if aircraft.Accept(&a.MagHeading, msg.Source, msg.SysTime, now, c.Config.StaleWindow) {
		a.MagHeadingV = msg.Heading
	}

	decl := declination(a.Lat, a.Lon, now.Year())
	derived := math.Mod(msg.Heading+decl+360, 360)

	if a.Track.Fresh(now, 10*time.Second) {
		crab := geo.AngleDiffDeg(derived, a.TrackV)
		if crab >= maxCrabDeg {
			return
		}
	}
	if aircraft.Accept(&a.TrueHeading, message.Indirect, msg.SysTime, now, c.Config.StaleWindow) {
		a.TrueHeadingV = derived
	}
}
