/*
	Copyright (c) 2021 Adrian Batzill
	Distributable under the terms of The "BSD New" License
	that can be found in the LICENSE file, herein included
	as part of this header.

	queue.go: Prioritizing queue for slow network connections, adapted from messagequeue.go
*/

// Package netio implements the per-client outbound buffering shared by
// every ingest.Connection: a priority queue that degrades gracefully on
// a slow peer by dropping the oldest, lowest-priority entries first
// rather than blocking the writer or growing without bound.
//
// Grounded on main/messagequeue.go's MessageQueue almost unchanged; the
// only generalization is taking an explicit clock.Clock instead of
// stratux's package-level stratuxClock, so independent tracker.Context
// values don't share queue expiry state.
package netio

import (
	"sort"
	"sync"
	"time"

	"github.com/b3nn0/adsbd/internal/clock"
)

// Entry is one queued outbound payload.
type Entry struct {
	Priority   int32
	OutdatedAt time.Time
	Data       []byte
}

// MessageQueue is a priority queue of outbound frames for a single
// ingest.Connection. Lower Priority values sort first (// "each client has its own send queue ... a queue that would exceed
// capacity triggers client drop"); this queue instead prunes rather than
// drops the whole client, leaving that decision to the caller.
type MessageQueue struct {
	clk     *clock.Clock
	maxSize int

	mu            sync.Mutex
	entries       []Entry
	DataAvailable chan bool
	Closed        bool
}

// New creates a queue capped at maxSize entries (post-prune).
func New(clk *clock.Clock, maxSize int) *MessageQueue {
	return &MessageQueue{
		clk:           clk,
		maxSize:       maxSize,
		entries:       make([]Entry, 0),
		DataAvailable: make(chan bool, 1),
	}
}

// Put enqueues data at the given priority, expiring automatically after
// maxAge. Entries are kept sorted by priority, preserving insertion order
// among equal priorities.
func (q *MessageQueue) Put(priority int32, maxAge time.Duration, data []byte) {
	if q.Closed {
		return
	}
	q.mu.Lock()
	defer q.mu.Unlock()

	entry := Entry{Priority: priority, OutdatedAt: q.clk.Now().Add(maxAge), Data: data}
	idx := q.findInsertPosition(priority)
	if idx == len(q.entries) {
		q.entries = append(q.entries, entry)
	} else {
		q.entries = append(q.entries[:idx+1], q.entries[idx:]...)
		q.entries[idx] = entry
	}

	// Allow 10% overuse before pruning, so pruning happens in batches.
	if float64(len(q.entries)) > float64(q.maxSize)*1.1 {
		q.prune()
	}
	q.notifyData()
}

// PeekFirst returns the first non-expired entry without removing it.
func (q *MessageQueue) PeekFirst() ([]byte, int32) {
	return q.getFirst(false)
}

// PopFirst returns and removes the first non-expired entry.
func (q *MessageQueue) PopFirst() ([]byte, int32) {
	return q.getFirst(true)
}

func (q *MessageQueue) getFirst(remove bool) ([]byte, int32) {
	q.mu.Lock()
	defer q.mu.Unlock()

	idx := q.firstUsableIndexLocked()
	if idx < 0 {
		return nil, 0
	}
	entry := q.entries[idx]
	if remove {
		q.entries = q.entries[idx+1:]
	} else {
		q.entries = q.entries[idx:]
	}
	return entry.Data, entry.Priority
}

func (q *MessageQueue) firstUsableIndexLocked() int {
	now := q.clk.Now()
	for i, e := range q.entries {
		if e.OutdatedAt.Before(now) {
			continue
		}
		return i
	}
	if len(q.entries) > 0 {
		q.entries = q.entries[:0]
	}
	return -1
}

// Dump returns a snapshot of all currently queued payloads, pruning
// expired/overflow entries first if requested.
func (q *MessageQueue) Dump(pruneFirst bool) [][]byte {
	q.mu.Lock()
	defer q.mu.Unlock()
	if pruneFirst {
		q.prune()
	}
	out := make([][]byte, len(q.entries))
	for i, e := range q.entries {
		out[i] = e.Data
	}
	return out
}

// Len reports the current queue depth, including not-yet-pruned expired
// entries.
func (q *MessageQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.entries)
}

// ByteLen reports the total payload bytes currently queued, the
// quantity "send queue of ≤128 KiB" bounds.
func (q *MessageQueue) ByteLen() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	total := 0
	for _, e := range q.entries {
		total += len(e.Data)
	}
	return total
}

// prune drops expired entries entirely, then, if still over maxSize,
// drops the oldest entries starting with the lowest-priority category
// until the queue fits. Callers must hold q.mu.
func (q *MessageQueue) prune() {
	var byPrio [][]Entry
	total := 0
	prevPrio := int32(1<<31 - 1)
	now := q.clk.Now()
	for _, e := range q.entries {
		if e.OutdatedAt.Before(now) {
			continue
		}
		total++
		if len(byPrio) == 0 || e.Priority != prevPrio {
			byPrio = append(byPrio, nil)
		}
		byPrio[len(byPrio)-1] = append(byPrio[len(byPrio)-1], e)
		prevPrio = e.Priority
	}

	toRemove := total - q.maxSize
	if toRemove > 0 {
		for i := len(byPrio) - 1; i >= 0 && toRemove > 0; i-- {
			if len(byPrio[i]) >= toRemove {
				byPrio[i] = byPrio[i][toRemove:]
				toRemove = 0
			} else {
				toRemove -= len(byPrio[i])
				byPrio[i] = nil
			}
		}
	}

	q.entries = q.entries[:0]
	for _, category := range byPrio {
		q.entries = append(q.entries, category...)
	}
}

func (q *MessageQueue) findInsertPosition(priority int32) int {
	return sort.Search(len(q.entries), func(i int) bool {
		return q.entries[i].Priority > priority
	})
}

func (q *MessageQueue) notifyData() {
	select {
	case q.DataAvailable <- true:
	default:
	}
}

// Close marks the queue closed; further Put calls are no-ops.
func (q *MessageQueue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.Closed {
		return
	}
	q.Closed = true
	q.notifyData()
}
