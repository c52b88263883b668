package sched

import (
	"time"

	"github.com/b3nn0/adsbd/internal/aircraft"
	"github.com/b3nn0/adsbd/internal/trace"
)

// MiscWorker runs the single misc thread: heatmap writing, state-blob
// writing (one of 256 shards per cycle), API update, client snapshot,
// and the metadata-DB hot-reload. Only state-blob persistence (the
// warm-restart mechanism internal/trace's
// Save/Load implement) has a concrete wire format this module defines;
// the other four duties are exposed as optional hook functions so
// cmd/adsbd can wire in whatever heatmap/API/metadata-DB implementation
// it ends up needing without this package guessing at their shape.
type MiscWorker struct {
	Store    *aircraft.Store
	StateDir string

	Heatmap          func(now time.Time)
	APIUpdate        func(now time.Time)
	ClientSnapshot   func(now time.Time)
	MetadataReload   func(now time.Time)

	shard int
}

// NewMiscWorker creates a worker persisting state blobs under stateDir.
func NewMiscWorker(store *aircraft.Store, stateDir string) *MiscWorker {
	return &MiscWorker{Store: store, StateDir: stateDir}
}

// Tick persists one of aircraft.BucketCount state-blob shards (advancing
// one shard per call, so a full sweep takes BucketCount calls) and runs
// whichever optional hooks are set. Returns the first persistence error
// encountered, continuing to the rest of the shard's aircraft.
func (m *MiscWorker) Tick(now time.Time) error {
	bucket := m.shard % aircraft.BucketCount
	m.shard++

	var firstErr error
	m.Store.ForEachInBucket(bucket, bucket+1, func(a *aircraft.Aircraft) {
		a.Lock()
		tr, ok := a.Trace.(*trace.Trace)
		var err error
		if ok && tr != nil {
			path := trace.StatePath(m.StateDir, a.Key.Icao)
			err = trace.Save(path, a, tr)
		}
		a.Unlock()
		if err != nil && firstErr == nil {
			firstErr = err
		}
	})

	if m.Heatmap != nil {
		m.Heatmap(now)
	}
	if m.APIUpdate != nil {
		m.APIUpdate(now)
	}
	if m.ClientSnapshot != nil {
		m.ClientSnapshot(now)
	}
	if m.MetadataReload != nil {
		m.MetadataReload(now)
	}
	return firstErr
}
