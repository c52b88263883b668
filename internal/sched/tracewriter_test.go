package sched

import (
	"testing"
	"time"

	"github.com/b3nn0/adsbd/internal/aircraft"
	"github.com/b3nn0/adsbd/internal/trace"
)

func TestTraceWriterPoolTickAdvancesEveryShardRotor(t *testing.T) {
	store := aircraft.NewStore()
	w := trace.NewWriter(t.TempDir(), "")
	pool := NewTraceWriterPool(w, store)

	now := time.Now()
	for i := 0; i < trace.RotorSteps+1; i++ {
		if err := pool.Tick(now); err != nil {
			t.Fatalf("Tick: %v", err)
		}
	}

	for shard, pos := range pool.pos {
		if pos != 1 {
			t.Errorf("shard %d rotor position = %d, want 1 after %d ticks", shard, pos, trace.RotorSteps+1)
		}
	}
}

func TestTraceWriterPoolTickFlushesDueAircraftOnMatchingRotorSlot(t *testing.T) {
	store := aircraft.NewStore()
	dir := t.TempDir()
	w := trace.NewWriter(dir, "")
	pool := NewTraceWriterPool(w, store)

	now := time.Now()
	// Icao 0 hashes to rotor position 0, so the first Tick (pos=0) must
	// visit it.
	a, _ := store.GetOrCreate(aircraft.Key{Icao: 0}, now)
	tr := trace.New(now.Add(time.Hour))
	trace.Append(tr, a, now)
	a.Lock()
	a.Trace = tr
	a.TraceWrite = true
	a.Unlock()

	if err := pool.Tick(now); err != nil {
		t.Fatalf("Tick: %v", err)
	}

	a.Lock()
	due := a.TraceWrite
	a.Unlock()
	if due {
		t.Errorf("expected TraceWrite to be cleared after a matching rotor tick")
	}
}

func TestTraceWriterPoolTickSkipsAircraftOutsideRotorSlot(t *testing.T) {
	store := aircraft.NewStore()
	w := trace.NewWriter(t.TempDir(), "")
	pool := NewTraceWriterPool(w, store)

	now := time.Now()
	// Icao 1 hashes to rotor position 1, so a Tick at pos=0 must not
	// touch it.
	a, _ := store.GetOrCreate(aircraft.Key{Icao: 1}, now)
	tr := trace.New(now.Add(time.Hour))
	trace.Append(tr, a, now)
	a.Lock()
	a.Trace = tr
	a.TraceWrite = true
	a.Unlock()

	if err := pool.Tick(now); err != nil {
		t.Fatalf("Tick: %v", err)
	}

	a.Lock()
	due := a.TraceWrite
	a.Unlock()
	if !due {
		t.Errorf("expected TraceWrite to remain set for an aircraft outside this tick's rotor slot")
	}
}
