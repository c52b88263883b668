package sched

import (
	"os"
	"testing"
	"time"

	"github.com/b3nn0/adsbd/internal/aircraft"
	"github.com/b3nn0/adsbd/internal/trace"
)

func TestMiscWorkerTickPersistsAircraftWithATrace(t *testing.T) {
	dir := t.TempDir()
	store := aircraft.NewStore()
	now := time.Now()

	key := aircraft.Key{Icao: 0xabcdef}
	a, _ := store.GetOrCreate(key, now)
	tr := trace.New(now.Add(time.Hour))
	trace.Append(tr, a, now)
	a.Lock()
	a.Trace = tr
	a.Unlock()

	m := NewMiscWorker(store, dir)
	bucket := aircraft.BucketFor(key)
	for i := 0; i <= bucket; i++ {
		if err := m.Tick(now); err != nil {
			t.Fatalf("Tick: %v", err)
		}
	}

	path := trace.StatePath(dir, key.Icao)
	if _, err := os.Stat(path); err != nil {
		t.Errorf("expected state blob at %s, got stat error: %v", path, err)
	}
}

func TestMiscWorkerTickSkipsAircraftWithoutATrace(t *testing.T) {
	dir := t.TempDir()
	store := aircraft.NewStore()
	now := time.Now()

	key := aircraft.Key{Icao: 0x101010}
	store.GetOrCreate(key, now) // no Trace set

	m := NewMiscWorker(store, dir)
	bucket := aircraft.BucketFor(key)
	for i := 0; i <= bucket; i++ {
		if err := m.Tick(now); err != nil {
			t.Fatalf("Tick: %v", err)
		}
	}

	path := trace.StatePath(dir, key.Icao)
	if _, err := os.Stat(path); err == nil {
		t.Errorf("expected no state blob for a traceless aircraft, found one at %s", path)
	}
}

func TestMiscWorkerTickRunsOptionalHooksEveryCall(t *testing.T) {
	store := aircraft.NewStore()
	m := NewMiscWorker(store, t.TempDir())

	var heatmap, apiUpdate, clientSnapshot, metadataReload int
	m.Heatmap = func(time.Time) { heatmap++ }
	m.APIUpdate = func(time.Time) { apiUpdate++ }
	m.ClientSnapshot = func(time.Time) { clientSnapshot++ }
	m.MetadataReload = func(time.Time) { metadataReload++ }

	now := time.Now()
	for i := 0; i < 3; i++ {
		if err := m.Tick(now); err != nil {
			t.Fatalf("Tick: %v", err)
		}
	}

	if heatmap != 3 || apiUpdate != 3 || clientSnapshot != 3 || metadataReload != 3 {
		t.Errorf("hook counts = %d,%d,%d,%d, want 3,3,3,3", heatmap, apiUpdate, clientSnapshot, metadataReload)
	}
}

func TestMiscWorkerTickRotatesAcrossAllShards(t *testing.T) {
	store := aircraft.NewStore()
	m := NewMiscWorker(store, t.TempDir())
	now := time.Now()

	for i := 0; i < aircraft.BucketCount*2; i++ {
		if err := m.Tick(now); err != nil {
			t.Fatalf("Tick: %v", err)
		}
	}
	if m.shard != aircraft.BucketCount*2 {
		t.Errorf("shard = %d, want %d", m.shard, aircraft.BucketCount*2)
	}
}
