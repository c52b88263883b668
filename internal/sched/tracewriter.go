package sched

import (
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/b3nn0/adsbd/internal/aircraft"
	"github.com/b3nn0/adsbd/internal/trace"
)

// TraceWriterPool drives internal/trace.Writer's rotor: trace.ShardCount
// (8) workers, each owning a contiguous bucket range, each advancing its
// own rotor position by one step per Tick.
type TraceWriterPool struct {
	Writer *trace.Writer
	Store  *aircraft.Store

	pos [trace.ShardCount]int
}

// NewTraceWriterPool creates a pool writing through w against store.
func NewTraceWriterPool(w *trace.Writer, store *aircraft.Store) *TraceWriterPool {
	return &TraceWriterPool{Writer: w, Store: store}
}

// Tick runs one rotor step on every shard concurrently, then advances
// each shard's rotor position. cmd/adsbd's top-level wiring calls it
// once per TickInterval (25s).
func (p *TraceWriterPool) Tick(now time.Time) error {
	var eg errgroup.Group
	positions := p.pos // snapshot this tick's positions before any worker advances them
	for shard := 0; shard < trace.ShardCount; shard++ {
		shard := shard
		pos := positions[shard]
		eg.Go(func() error {
			p.Writer.RunRotorTick(p.Store, shard, pos, now)
			return nil
		})
	}
	err := eg.Wait()
	for shard := range p.pos {
		p.pos[shard] = (p.pos[shard] + 1) % trace.RotorSteps
	}
	return err
}

// TickInterval is the rotor step cadence ("25s rotor").
const TickInterval = 25 * time.Second
