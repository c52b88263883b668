package aircraft

import (
	"testing"
	"time"

	"github.com/b3nn0/adsbd/internal/message"
)

func TestStoreGetOrCreate(t *testing.T) {
	s := NewStore()
	k := Key{Icao: 0x4B1803, AddrType: message.AddrICAO}
	now := time.Now()

	a, created := s.GetOrCreate(k, now)
	if !created {
		t.Fatalf("expected new aircraft to be created")
	}
	if a.Key != k {
		t.Fatalf("key mismatch: got %v", a.Key)
	}

	a2, created2 := s.GetOrCreate(k, now)
	if created2 {
		t.Fatalf("expected existing aircraft to be reused")
	}
	if a2 != a {
		t.Fatalf("expected same pointer on second lookup")
	}

	if s.Len() != 1 {
		t.Fatalf("Len() = %d, want 1", s.Len())
	}

	s.Delete(k)
	if s.Len() != 0 {
		t.Fatalf("Len() after delete = %d, want 0", s.Len())
	}
	if s.Get(k) != nil {
		t.Fatalf("expected nil after delete")
	}
}

func TestValidityAcceptSourcePriority(t *testing.T) {
	now := time.Now()
	var v Validity

	if !Accept(&v, message.ADSB, now, now, DefaultStale) {
		t.Fatalf("expected first ADSB write to be accepted")
	}
	if v.Source != message.ADSB || v.LastSource != message.ADSB {
		t.Fatalf("unexpected validity state: %+v", v)
	}

	// A lower-priority MLAT report within the MLAT guard window must be
	// rejected outright ("MLAT ... may not overwrite
	// anything within 30s of a higher source's update").
	if Accept(&v, message.MLAT, now.Add(1*time.Second), now.Add(1*time.Second), DefaultStale) {
		t.Fatalf("expected MLAT downgrade within 30s to be rejected")
	}

	// Same MLAT report well past the guard window, but still within the
	// staleness window, is still rejected because ADSB has not gone
	// stale yet.
	if Accept(&v, message.MLAT, now.Add(40*time.Second), now.Add(40*time.Second), DefaultStale) {
		t.Fatalf("expected MLAT downgrade before staleness to be rejected")
	}

	// Once ADSB has gone stale (60s+), MLAT may take over.
	later := now.Add(65 * time.Second)
	if !Accept(&v, message.MLAT, later, later, DefaultStale) {
		t.Fatalf("expected MLAT to be accepted once ADSB is stale")
	}
	if v.Source != message.MLAT {
		t.Fatalf("source = %v, want MLAT", v.Source)
	}
	// last_source never regresses even though current source dropped.
	if v.LastSource != message.ADSB {
		t.Fatalf("last_source = %v, want ADSB (monotone)", v.LastSource)
	}
}

func TestValidityPrioRecordedAsADSB(t *testing.T) {
	now := time.Now()
	var v Validity
	if !Accept(&v, message.Prio, now, now, DefaultStale) {
		t.Fatalf("expected PRIO write to be accepted")
	}
	if v.Source != message.ADSB {
		t.Fatalf("PRIO should be recorded internally as ADSB, got %v", v.Source)
	}

	// A later real ADSB report must not then "downgrade" the PRIO value,
	// since both are recorded at the same priority and the ADSB write is
	// newer -- it is accepted (same priority, fresher timestamp), which
	// is the expected behavior: PRIO cannot be *outranked* by ADSB, but
	// an equal-or-fresher same-rank report still updates the value.
	later := now.Add(1 * time.Second)
	if !Accept(&v, message.ADSB, later, later, DefaultStale) {
		t.Fatalf("expected same-priority fresher ADSB write to be accepted")
	}
}

func TestValidityRejectsStaleTimestamp(t *testing.T) {
	now := time.Now()
	var v Validity
	Accept(&v, message.ADSB, now, now, DefaultStale)

	older := now.Add(-1 * time.Second)
	if Accept(&v, message.ADSB, older, now, DefaultStale) {
		t.Fatalf("expected older timestamp to be rejected")
	}
}

func TestMarkStaleIfExpired(t *testing.T) {
	now := time.Now()
	var v Validity
	Accept(&v, message.ADSB, now, now, DefaultStale)

	MarkStaleIfExpired(&v, now.Add(30*time.Second), DefaultStale)
	if v.Stale {
		t.Fatalf("should not be stale yet")
	}
	MarkStaleIfExpired(&v, now.Add(61*time.Second), DefaultStale)
	if !v.Stale {
		t.Fatalf("expected stale after window elapsed")
	}
}

func TestInvalidateLetsLowerSourceReclaim(t *testing.T) {
	now := time.Now()
	var v Validity
	Accept(&v, message.ADSB, now, now, DefaultStale)

	soon := now.Add(time.Second)
	if Accept(&v, message.MLAT, soon, soon, DefaultStale) {
		t.Fatalf("expected fresh ADSB value to block a downgrade to MLAT")
	}

	Invalidate(&v)
	if v.Source != message.Invalid {
		t.Fatalf("Invalidate did not reset Source, got %v", v.Source)
	}
	if !Accept(&v, message.MLAT, soon, soon, DefaultStale) {
		t.Fatalf("expected MLAT to reclaim the field once invalidated")
	}
	if v.LastSource != message.ADSB {
		t.Fatalf("LastSource must not move backwards, got %v", v.LastSource)
	}
}

func TestReduceForwardCadence(t *testing.T) {
	now := time.Now()
	var v Validity

	if !ReduceForward(&v, now, DefaultReduceInterval, 2) {
		t.Fatalf("expected first call to fire")
	}
	if ReduceForward(&v, now.Add(100*time.Millisecond), DefaultReduceInterval, 2) {
		t.Fatalf("expected call inside the interval to be suppressed")
	}
	if !ReduceForward(&v, now.Add(DefaultReduceInterval), DefaultReduceInterval, 2) {
		t.Fatalf("expected call past the interval to fire")
	}
}

func TestReduceForwardOftenScalesInterval(t *testing.T) {
	now := time.Now()

	var discrete Validity
	ReduceForward(&discrete, now, DefaultReduceInterval, 0)
	if discrete.NextReduceForward.Before(now.Add(4 * DefaultReduceInterval)) {
		t.Fatalf("reduceOften=0 should schedule the next slot 4x the interval out")
	}

	var aggressive Validity
	ReduceForward(&aggressive, now, DefaultReduceInterval, 2)
	if !aggressive.NextReduceForward.Equal(now.Add(DefaultReduceInterval / 2)) {
		t.Fatalf("reduceOften=2 should schedule the next slot at half the interval, got %v", aggressive.NextReduceForward)
	}
}
