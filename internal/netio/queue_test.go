package netio

import (
	"testing"
	"time"

	"github.com/b3nn0/adsbd/internal/clock"
)

func TestQueueOrdersByPriority(t *testing.T) {
	clk := clock.NewStopped()
	q := New(clk, 10)

	q.Put(5, time.Minute, []byte("low"))
	q.Put(1, time.Minute, []byte("high"))
	q.Put(3, time.Minute, []byte("mid"))

	data, prio := q.PopFirst()
	if string(data) != "high" || prio != 1 {
		t.Fatalf("got %q/%d, want high/1", data, prio)
	}
	data, _ = q.PopFirst()
	if string(data) != "mid" {
		t.Errorf("got %q, want mid", data)
	}
}

func TestQueuePreservesInsertionOrderWithinPriority(t *testing.T) {
	clk := clock.NewStopped()
	q := New(clk, 10)
	q.Put(1, time.Minute, []byte("first"))
	q.Put(1, time.Minute, []byte("second"))

	data, _ := q.PopFirst()
	if string(data) != "first" {
		t.Errorf("got %q, want first", data)
	}
	data, _ = q.PopFirst()
	if string(data) != "second" {
		t.Errorf("got %q, want second", data)
	}
}

func TestQueueExpiresOldEntries(t *testing.T) {
	clk := clock.NewStopped()
	q := New(clk, 10)
	q.Put(1, time.Second, []byte("short-lived"))

	clk.Advance(2 * time.Second)
	if data, _ := q.PeekFirst(); data != nil {
		t.Errorf("expected expired entry to be skipped, got %q", data)
	}
}

func TestQueuePrunesLowestPriorityFirstWhenOverCapacity(t *testing.T) {
	clk := clock.NewStopped()
	q := New(clk, 4)

	for i := 0; i < 3; i++ {
		q.Put(10, time.Minute, []byte("low"))
	}
	q.Put(1, time.Minute, []byte("high"))
	// One more low-priority push tips it over the 10% overuse threshold
	// and triggers a prune.
	q.Put(10, time.Minute, []byte("low"))

	dump := q.Dump(true)
	if len(dump) > 4 {
		t.Fatalf("expected queue pruned to capacity, got %d entries", len(dump))
	}
	foundHigh := false
	for _, d := range dump {
		if string(d) == "high" {
			foundHigh = true
		}
	}
	if !foundHigh {
		t.Errorf("expected the high-priority entry to survive pruning")
	}
}

func TestQueueClosedRejectsPut(t *testing.T) {
	clk := clock.NewStopped()
	q := New(clk, 10)
	q.Close()
	q.Put(1, time.Minute, []byte("dropped"))

	if q.Len() != 0 {
		t.Errorf("expected closed queue to reject Put, len=%d", q.Len())
	}
}
