package trace

import (
	"bytes"
	"compress/gzip"
	"encoding/json"
)

// jsonPoint is the compact wire array form documents for
// trace_*.json: [dt_s, lat, lon, alt_or_"ground"|null, gs|null,
// track|null, bitfield, rate|null, state_all|null].
type jsonPoint [9]interface{}

func toJSONPoint(p StatePoint, all *StateAll) jsonPoint {
	altFt, onGround, altUnknown, _ := UnpackAltitude(p.AltPacked)

	var altField interface{}
	switch {
	case onGround:
		altField = "ground"
	case altUnknown:
		altField = nil
	default:
		altField = altFt
	}

	var gsField, trackField, rateField interface{}
	if gs, ok := p.GroundSpeedKt(); ok {
		gsField = gs
	}
	if tr, ok := p.TrackDeg(); ok {
		trackField = tr
	}
	if rate, ok := p.RateFpm(); ok {
		rateField = rate
	}

	var stateAllField interface{}
	if all != nil {
		stateAllField = all
	}

	return jsonPoint{
		float64(p.TimestampMS) / 1000.0,
		p.Lat,
		p.Lon,
		altField,
		gsField,
		trackField,
		p.JSONBitfield(),
		rateField,
		stateAllField,
	}
}

// EncodeJSON renders points (paired with all, the quarter-rate dense
// snapshots) into the compact trace_*.json array form, gzip-compressed
// ("trace_*.json uses a compact array form").
func EncodeJSON(points []StatePoint, all []StateAll) ([]byte, error) {
	rows := make([]jsonPoint, len(points))
	for i, p := range points {
		var dense *StateAll
		if i%4 == 0 && i/4 < len(all) {
			s := all[i/4]
			dense = &s
		}
		rows[i] = toJSONPoint(p, dense)
	}

	raw, err := json.Marshal(rows)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	gw := gzip.NewWriter(&buf)
	if _, err := gw.Write(raw); err != nil {
		return nil, err
	}
	if err := gw.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
