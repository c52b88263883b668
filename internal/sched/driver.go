// Package sched implements the periodic scheduler: a driver tick that
// accepts/drains clients, emits snapshots, fires heartbeats, and runs
// the outbound reconnector every tick, plus coarser-cadence
// maintenance (stale sweep, Mode A/C correlation, stats rollup, API
// indexing); a stale-sweep worker pool sharded by contiguous
// aircraft-registry bucket ranges; and a trace-writer pool driving
// internal/trace.Writer's 25s rotor.
//
// No reference implementation covers this driver/worker-pool shape at
// this scale, so the worker-pool fan-out is grounded in the
// `mmp-vice` wxingest tool's `errgroup.Group` usage pattern
// (cmd/wxingest/main.go), generalized from "launch N independent tasks,
// wait for all" into a recurring per-tick fan-out.
package sched

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/b3nn0/adsbd/internal/clock"
)

// Hooks are the per-tick actions the driver invokes; nil hooks are
// skipped. Each is owned by a different subsystem (ingestion, snapshot,
// tracker) and wired together by cmd/adsbd -- the driver itself only
// knows the schedule, not the implementations (explicit-
// Context redesign: no package-level wiring).
type Hooks struct {
	// Every tick (≤ PERIODIC_UPDATE, default 200ms):
	AcceptAndDrainClients func(now time.Time)
	EmitSnapshots         func(now time.Time)
	FireHeartbeats        func(now time.Time)
	Reconnect             func(now time.Time)

	// Coarser cadence, run every CoarseEvery ticks:
	RequestStaleSweep func(now time.Time)
	MatchModeAC       func(now time.Time)
	RefreshStats      func(now time.Time)
	APIIndex          func(now time.Time)
}

// DefaultInterval is PERIODIC_UPDATE's default.
const DefaultInterval = 200 * time.Millisecond

// DefaultCoarseEvery runs the coarser-cadence tasks once per second at
// the default interval.
const DefaultCoarseEvery = 5

// Driver runs Hooks on a fixed schedule, driven by an injected Clock so
// tests can step it deterministically instead of sleeping.
type Driver struct {
	Clock       *clock.Clock
	Interval    time.Duration
	CoarseEvery int
	Hooks       Hooks

	ticks int
}

// NewDriver creates a Driver with defaults.
func NewDriver(clk *clock.Clock, hooks Hooks) *Driver {
	return &Driver{Clock: clk, Interval: DefaultInterval, CoarseEvery: DefaultCoarseEvery, Hooks: hooks}
}

// Tick runs one scheduler pass at time now. Safe to call directly from
// tests without a running clock/ticker.
func (d *Driver) Tick(now time.Time) {
	if d.Hooks.AcceptAndDrainClients != nil {
		d.Hooks.AcceptAndDrainClients(now)
	}
	if d.Hooks.EmitSnapshots != nil {
		d.Hooks.EmitSnapshots(now)
	}
	if d.Hooks.FireHeartbeats != nil {
		d.Hooks.FireHeartbeats(now)
	}
	if d.Hooks.Reconnect != nil {
		d.Hooks.Reconnect(now)
	}

	d.ticks++
	coarseEvery := d.CoarseEvery
	if coarseEvery <= 0 {
		coarseEvery = DefaultCoarseEvery
	}
	if d.ticks%coarseEvery != 0 {
		return
	}
	if d.Hooks.RequestStaleSweep != nil {
		d.Hooks.RequestStaleSweep(now)
	}
	if d.Hooks.MatchModeAC != nil {
		d.Hooks.MatchModeAC(now)
	}
	if d.Hooks.RefreshStats != nil {
		d.Hooks.RefreshStats(now)
	}
	if d.Hooks.APIIndex != nil {
		d.Hooks.APIIndex(now)
	}
}

// Run drives the ticker loop until ctx is cancelled, inside an
// errgroup.Group of one whose Wait returns the loop's error. errgroup
// does not recover panics: a panic inside a tick still crashes the
// process.
func (d *Driver) Run(ctx context.Context) error {
	ticker := time.NewTicker(d.Interval)
	defer ticker.Stop()

	var eg errgroup.Group
	eg.Go(func() error {
		for {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-ticker.C:
				d.Tick(d.Clock.Now())
			}
		}
	})
	return eg.Wait()
}
