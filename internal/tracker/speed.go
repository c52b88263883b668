package tracker

import (
	"time"

	"github.com/b3nn0/adsbd/internal/aircraft"
	"github.com/b3nn0/adsbd/internal/geo"
	"github.com/b3nn0/adsbd/internal/message"
)

// speedCheck implements speed gate, grounded directly on
// original_source/track.c's speed_check. Distances and speeds are kept
// in nautical miles / knots throughout (1 kt == 1 NM/hour), which lets
// the elapsed-time-times-speed range math skip the original's
// meters-vs-knots unit juggling entirely.
func (c *Context) speedCheck(a *aircraft.Aircraft, msg *message.Message, lat, lon float64, surface bool, now time.Time) (inrange, posIgnore bool) {
	if a.PosReliableOdd < 1 && a.PosReliableEven < 1 {
		return true, false
	}
	if now.Sub(a.PositionValid.Updated) > 120*time.Second {
		return true, false
	}
	if msg.Source > a.PositionValid.LastSource {
		return true, false
	}

	elapsed := now.Sub(a.PositionValid.Updated)

	var speed float64
	if surface {
		speed = 150
	} else {
		speed = 900
	}

	switch {
	case !a.GroundSpeed.Updated.IsZero():
		speed = a.GroundSpeedV + 3*now.Sub(a.GroundSpeed.Updated).Seconds()
	case !a.TAS.Updated.IsZero():
		speed = a.TASV * 4 / 3
	case !a.IAS.Updated.IsZero():
		speed = a.IASV * 2
	}

	if msg.Source <= message.MLAT {
		if elapsed > 25*time.Second {
			return true, false
		}
		speed *= 2
		if speed > 2400 {
			speed = 2400
		}
	}

	speed *= 1.3
	if surface {
		if speed < 20 {
			speed = 20
		}
		if speed > 150 {
			speed = 150
		}
	} else if speed < 200 {
		speed = 200
	}

	distance := geo.DistanceNM(geo.Point{Lat: a.Lat, Lon: a.Lon}, geo.Point{Lat: lat, Lon: lon})

	if !surface && distance > 0.54 && msg.Source > message.MLAT &&
		a.Track.Fresh(now, 7*time.Second) && a.PositionValid.Fresh(now, 7*time.Second) &&
		(a.Lat != lat || a.Lon != lon) &&
		a.PosReliableOdd >= c.Config.JSONReliable && a.PosReliableEven >= c.Config.JSONReliable {

		calcTrack := geo.BearingDeg(geo.Point{Lat: a.Lat, Lon: a.Lon}, geo.Point{Lat: lat, Lon: lon})
		trackDiff := geo.AngleDiffDeg(a.TrackV, calcTrack)
		trackBonus := speed * (90.0 - trackDiff) / 90.0
		trackAgeFrac := 1.1 - now.Sub(a.Track.Updated).Seconds()/5.0
		speed += trackBonus * trackAgeFrac
		if trackDiff > 160 {
			posIgnore = true
		}
	}

	var baseNM float64
	if surface {
		baseNM = 0.1 * 1000 / 1852 // 100m expressed in NM
	}
	rangeNM := baseNM + ((elapsed.Seconds()+1.0)/3600.0)*speed

	return distance <= rangeNM, posIgnore
}
