package tracker

import (
	"time"

	"github.com/b3nn0/adsbd/internal/aircraft"
	"github.com/b3nn0/adsbd/internal/trace"
)

// TraceInterval is json_trace_interval: the minimum spacing between
// trace points absent a track/altitude/ground-state/position trigger.
const TraceInterval = 10 * time.Second

// appendTracePoint runs the append-trigger check and, if it fires,
// records a new StatePoint and flags the aircraft for the trace
// writer to flush. Called with a already locked by the caller.
func (c *Context) appendTracePoint(a *aircraft.Aircraft, now time.Time) {
	tr, ok := a.Trace.(*trace.Trace)
	if !ok {
		tr = trace.New(now.Add(2 * time.Minute))
		a.Trace = tr
	}

	if !trace.ShouldAppend(tr, a, now, TraceInterval) {
		return
	}

	trace.Append(tr, a, now)
	a.TraceWrite = true
}
