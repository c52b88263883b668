package aircraft

import (
	"sync"
	"time"
)

// BucketCount is the number of hash buckets the registry is split into.
// It matches the stale-sweep pool size from (4 workers) times
// a generous fan-out so each sweep worker's contiguous bucket range is
// independently lockable without false-sharing across workers.
const BucketCount = 256

// bucket is one shard of the registry: its own mutex plus a plain map.
// The tracker inserts new aircraft without taking the coarse barrier,
// but does take this bucket's mutex -- describes the original
// as a lock-free head-insert; a per-bucket mutex gives the same
// single-writer-many-reader behavior with much simpler Go code and is
// still O(1) amortized.
type bucket struct {
	mu  sync.RWMutex
	m   map[Key]*Aircraft
}

// Store is the hash-bucketed registry of all currently tracked
// Aircraft, keyed by the 25-bit logical identity.
type Store struct {
	buckets [BucketCount]*bucket
}

// NewStore creates an empty registry.
func NewStore() *Store {
	s := &Store{}
	for i := range s.buckets {
		s.buckets[i] = &bucket{m: make(map[Key]*Aircraft)}
	}
	return s
}

func bucketIndex(k Key) int {
	h := uint32(k.Icao)*2654435761 + uint32(k.AddrType)
	return int(h % BucketCount)
}

// BucketFor returns the shard index a key belongs to, exposed so the
// stale-sweep pool can partition work by contiguous bucket ranges.
func BucketFor(k Key) int {
	return bucketIndex(k)
}

// Get returns the Aircraft for key, or nil if not tracked.
func (s *Store) Get(k Key) *Aircraft {
	b := s.buckets[bucketIndex(k)]
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.m[k]
}

// GetOrCreate returns the existing Aircraft for key, or creates and
// inserts one stamped with now. The returned bool is true if a new
// record was created.
func (s *Store) GetOrCreate(k Key, now time.Time) (*Aircraft, bool) {
	idx := bucketIndex(k)
	b := s.buckets[idx]

	b.mu.RLock()
	if a, ok := b.m[k]; ok {
		b.mu.RUnlock()
		return a, false
	}
	b.mu.RUnlock()

	b.mu.Lock()
	defer b.mu.Unlock()
	if a, ok := b.m[k]; ok {
		return a, false
	}
	a := New(k, now)
	a.bucket = idx
	b.m[k] = a
	return a, true
}

// Delete removes an aircraft from the registry. Only the stale-sweep
// worker performing destructive maintenance under the coarse barrier
// calls this.
func (s *Store) Delete(k Key) {
	b := s.buckets[bucketIndex(k)]
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.m, k)
}

// Len returns the total number of tracked aircraft.
func (s *Store) Len() int {
	total := 0
	for _, b := range s.buckets {
		b.mu.RLock()
		total += len(b.m)
		b.mu.RUnlock()
	}
	return total
}

// ForEachInBucket calls fn for every aircraft in the given bucket range
// [lo, hi), under that bucket's read lock. Used by snapshot emitters and
// read-only scans.
func (s *Store) ForEachInBucket(lo, hi int, fn func(*Aircraft)) {
	for i := lo; i < hi && i < BucketCount; i++ {
		b := s.buckets[i]
		b.mu.RLock()
		for _, a := range b.m {
			fn(a)
		}
		b.mu.RUnlock()
	}
}

// ForEach calls fn for every tracked aircraft, across all buckets.
func (s *Store) ForEach(fn func(*Aircraft)) {
	s.ForEachInBucket(0, BucketCount, fn)
}

// SweepBucket calls fn for every aircraft in bucket i under an exclusive
// lock, allowing fn to mutate or request deletion. fn returns true to
// keep the aircraft, false to remove it. This is the destructive
// maintenance path the coarse barrier protects.
func (s *Store) SweepBucket(i int, fn func(*Aircraft) bool) {
	b := s.buckets[i]
	b.mu.Lock()
	defer b.mu.Unlock()
	for k, a := range b.m {
		if !fn(a) {
			delete(b.m, k)
		}
	}
}
