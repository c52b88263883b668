package snapshot

import (
	"encoding/json"
	"time"

	"github.com/b3nn0/adsbd/internal/aircraft"
	"github.com/b3nn0/adsbd/internal/message"
)

// AircraftJSON is the aircraft.json document: a global
// snapshot of every currently-tracked aircraft, refreshed every
// json_interval.
type AircraftJSON struct {
	Now       float64  `json:"now"`
	Messages  int64    `json:"messages"`
	Aircraft  []Record `json:"aircraft"`
}

// BuildAircraftJSON walks every aircraft in store and renders the global
// snapshot document. An aircraft is skipped when its "seen" age exceeds
// staleWindow (TRACK_EXPIRE/2 ) unless it carries a
// position updated by JAERO within the last minute -- JAERO (satellite
// ADS-C) reports arrive minutes apart by nature, so the ordinary
// staleness rule would otherwise hide every JAERO-only aircraft between
// reports.
func BuildAircraftJSON(store *aircraft.Store, now time.Time, staleWindow time.Duration, messages int64) AircraftJSON {
	doc := AircraftJSON{Now: timeAsUnixFloat(now), Messages: messages}
	store.ForEach(func(a *aircraft.Aircraft) {
		if isStaleForSnapshot(a, now, staleWindow) {
			return
		}
		doc.Aircraft = append(doc.Aircraft, fromAircraft(a, now))
	})
	return doc
}

func isStaleForSnapshot(a *aircraft.Aircraft, now time.Time, staleWindow time.Duration) bool {
	if a.Seen.IsZero() || now.Sub(a.Seen) <= staleWindow {
		return false
	}
	if a.PositionValid.Source == message.Jaero && !a.PositionValid.Updated.IsZero() &&
		now.Sub(a.PositionValid.Updated) < time.Minute {
		return false
	}
	return true
}

func timeAsUnixFloat(t time.Time) float64 {
	return float64(t.UnixNano()) / 1e9
}

// WriteAircraftJSON renders doc and atomically writes it to
// <dir>/aircraft.json.
func WriteAircraftJSON(dir string, doc AircraftJSON) error {
	data, err := json.Marshal(doc)
	if err != nil {
		return err
	}
	return writeAtomic(pathJoin(dir, "aircraft.json"), data)
}
