package sched

import (
	"testing"
	"time"

	"github.com/b3nn0/adsbd/internal/aircraft"
	"github.com/b3nn0/adsbd/internal/message"
)

func TestRunAllRemovesAircraftPastTTL(t *testing.T) {
	now := time.Now()
	store := aircraft.NewStore()

	fresh, _ := store.GetOrCreate(aircraft.Key{Icao: 0x111111}, now)
	fresh.LastMessage = now

	expired, _ := store.GetOrCreate(aircraft.Key{Icao: 0x222222}, now)
	expired.LastMessage = now.Add(-time.Hour)

	pool := NewStaleSweepPool(store, 30*time.Minute, 60*time.Second)
	if err := pool.RunAll(now); err != nil {
		t.Fatalf("RunAll: %v", err)
	}

	if store.Get(aircraft.Key{Icao: 0x111111}) == nil {
		t.Errorf("expected fresh aircraft to survive the sweep")
	}
	if store.Get(aircraft.Key{Icao: 0x222222}) != nil {
		t.Errorf("expected expired aircraft to be removed")
	}
}

func TestRunAllMarksFieldsStalePastWindow(t *testing.T) {
	now := time.Now()
	store := aircraft.NewStore()

	a, _ := store.GetOrCreate(aircraft.Key{Icao: 0x333333}, now)
	a.LastMessage = now
	a.PositionValid.Source = message.ADSB
	a.PositionValid.Updated = now.Add(-2 * time.Minute)

	pool := NewStaleSweepPool(store, time.Hour, time.Minute)
	if err := pool.RunAll(now); err != nil {
		t.Fatalf("RunAll: %v", err)
	}

	got := store.Get(aircraft.Key{Icao: 0x333333})
	if got == nil {
		t.Fatalf("aircraft unexpectedly removed")
	}
	if !got.PositionValid.Stale {
		t.Errorf("expected PositionValid to be marked stale")
	}
}

func TestRunAllPartitionsByContiguousBucketRanges(t *testing.T) {
	now := time.Now()
	store := aircraft.NewStore()
	for i := uint32(0); i < 50; i++ {
		a, _ := store.GetOrCreate(aircraft.Key{Icao: i * 104729}, now)
		a.LastMessage = now
	}

	pool := NewStaleSweepPool(store, time.Hour, time.Minute)
	if err := pool.RunAll(now); err != nil {
		t.Fatalf("RunAll: %v", err)
	}
	if store.Len() != 50 {
		t.Fatalf("Len() = %d, want 50 (sweep must visit every bucket exactly once)", store.Len())
	}
}
