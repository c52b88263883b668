package aircraft

import (
	"time"

	"github.com/b3nn0/adsbd/internal/message"
)

// DefaultStale is the default staleness window (TRACK_STALE in the
// original) after which a lower-priority source may overwrite a field.
const DefaultStale = 60 * time.Second

// DefaultReduceInterval is the base cadence ("net_output_beast_reduce_interval"
// in the original) that ReduceForward scales per field by reduceOften.
const DefaultReduceInterval = 1 * time.Second

// Validity tracks, for a single scalar field, who last wrote it, when,
// and whether it is stale. Source priority is monotone non-decreasing on
// LastSource: once a higher-priority source has touched a field,
// LastSource never drops, even if the current value later goes stale and
// gets overwritten by something lower-priority (invariant).
type Validity struct {
	Source           message.Source
	LastSource       message.Source
	Updated          time.Time
	Stale            bool
	NextReduceForward time.Time
}

// Fresh reports whether the field was updated within window of now.
func (v Validity) Fresh(now time.Time, window time.Duration) bool {
	return !v.Updated.IsZero() && now.Sub(v.Updated) < window
}

// Accept applies accept_data rule for a single field and
// returns whether the write should be committed. It mutates v in place
// when the write is accepted.
//
// Guards implemented, in order:
//  1. source == Invalid, or msgTime older than the current value: reject.
//  2. source strictly worse than current AND current still fresh (within
//     staleWindow): reject.
//  3. MLAT-or-below may not overwrite anything within 30s of a higher
//     source's update.
//  4. Jaero may not overwrite anything within 600s of a higher source's
//     update.
func Accept(v *Validity, source message.Source, msgTime time.Time, now time.Time, staleWindow time.Duration) bool {
	if source == message.Invalid {
		return false
	}
	if !v.Updated.IsZero() && msgTime.Before(v.Updated) {
		return false
	}
	if source < v.Source && v.Fresh(now, staleWindow) {
		return false
	}
	if source <= message.MLAT && source < v.Source && now.Sub(v.Updated) < 30*time.Second {
		return false
	}
	if source == message.Jaero && source < v.Source && now.Sub(v.Updated) < 600*time.Second {
		return false
	}

	// PRIO is recorded internally as ADSB so it can never again be
	// displaced by a later ADSB-sourced report.
	effective := source
	if effective == message.Prio {
		effective = message.ADSB
	}

	v.Source = effective
	if effective > v.LastSource {
		v.LastSource = effective
	}
	v.Updated = msgTime
	v.Stale = false
	return true
}

// ReduceForward reports whether an accepted write to v should also go out
// on the reduced-bandwidth forwarding path, and advances
// v.NextReduceForward accordingly. reduceOften tunes how aggressively this
// field is pushed onto that path relative to reduceInterval: 2 is most
// aggressive (half the interval, position/altitude), 1 is the interval
// itself (kinematic fields), 0 is least aggressive (four times the
// interval; discrete fields like squawk/callsign). Must only be called
// after Accept has already committed the write for this message.
func ReduceForward(v *Validity, msgTime time.Time, reduceInterval time.Duration, reduceOften int) bool {
	if !v.NextReduceForward.IsZero() && msgTime.Before(v.NextReduceForward) {
		return false
	}

	interval := reduceInterval * 4
	switch reduceOften {
	case 1:
		interval = reduceInterval
	case 2:
		interval = reduceInterval / 2
	}
	v.NextReduceForward = msgTime.Add(interval)
	return true
}

// MarkStaleIfExpired sets Stale if the field has not been refreshed
// within window; called by the stale-sweep worker.
func MarkStaleIfExpired(v *Validity, now time.Time, window time.Duration) {
	if v.Updated.IsZero() {
		return
	}
	if now.Sub(v.Updated) >= window {
		v.Stale = true
	}
}

// Invalidate resets v.Source to Invalid, which is what actually lets a
// lower-priority source immediately reclaim the field on the next
// Accept call -- Stale alone is never consulted by Accept, only
// v.Source and v.Fresh(). LastSource is left untouched; it only ever
// moves forward.
func Invalidate(v *Validity) {
	v.Source = message.Invalid
	v.Stale = true
}
