package trace

import "testing"

func TestPackUnpackAltitudeRoundTrip(t *testing.T) {
	cases := []struct {
		alt               int32
		onGround, unknown bool
	}{
		{alt: 35000, onGround: false, unknown: false},
		{alt: 0, onGround: true, unknown: false},
		{alt: -500, onGround: false, unknown: false},
		{alt: 0, onGround: false, unknown: true},
	}
	for _, c := range cases {
		packed := PackAltitude(c.alt, c.onGround, c.unknown, false)
		alt, onGround, unknown, leg := UnpackAltitude(packed)
		if alt != c.alt || onGround != c.onGround || unknown != c.unknown || leg {
			t.Errorf("round trip(%+v) = (%d,%v,%v,%v)", c, alt, onGround, unknown, leg)
		}
	}
}

func TestWithLegTogglesOnlyLegBit(t *testing.T) {
	packed := PackAltitude(10000, false, false, false)
	withLeg := WithLeg(packed, true)
	if !HasLeg(withLeg) {
		t.Fatalf("expected leg bit set")
	}
	alt, onGround, unknown, _ := UnpackAltitude(withLeg)
	if alt != 10000 || onGround || unknown {
		t.Errorf("leg toggle disturbed other fields: alt=%d onGround=%v unknown=%v", alt, onGround, unknown)
	}
	cleared := WithLeg(withLeg, false)
	if HasLeg(cleared) {
		t.Errorf("expected leg bit cleared")
	}
}

func TestGroundSpeedTrackRateRoundTrip(t *testing.T) {
	p := StatePoint{
		GroundSpeed: packGroundSpeed(123.4, true),
		Track:       packTrack(359.99, true),
		Rate:        packRate(-640, true),
	}
	if gs, ok := p.GroundSpeedKt(); !ok || gs < 123.3 || gs > 123.5 {
		t.Errorf("groundspeed round trip = %v, %v", gs, ok)
	}
	if tr, ok := p.TrackDeg(); !ok || tr < 359.9 || tr > 360.0 {
		t.Errorf("track round trip = %v, %v", tr, ok)
	}
	if rate, ok := p.RateFpm(); !ok || rate != -640 {
		t.Errorf("rate round trip = %v, %v", rate, ok)
	}

	unknown := StatePoint{GroundSpeed: packGroundSpeed(0, false), Track: packTrack(0, false), Rate: packRate(0, false)}
	if _, ok := unknown.GroundSpeedKt(); ok {
		t.Errorf("expected groundspeed unknown")
	}
	if _, ok := unknown.TrackDeg(); ok {
		t.Errorf("expected track unknown")
	}
	if _, ok := unknown.RateFpm(); ok {
		t.Errorf("expected rate unknown")
	}
}

func TestJSONBitfield(t *testing.T) {
	p := StatePoint{
		AltPacked:  WithLeg(PackAltitude(1000, false, false, false), true),
		IsGeomAlt:  true,
		IsGeomRate: true,
		Stale:      true,
	}
	got := p.JSONBitfield()
	want := (1 << 3) | (1 << 2) | (1 << 1) | 1
	if got != want {
		t.Errorf("bitfield = %b, want %b", got, want)
	}
}
