package trace

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/b3nn0/adsbd/internal/aircraft"
)

// summaryRecorder is the subset of tracelog.Store's API Writer depends
// on, so this package doesn't need a direct import of database/sql's
// driver machinery.
type summaryRecorder interface {
	Record(hex, day string, firstTsMS, lastTsMS int64, pointCount int)
}

// ShardCount is the number of trace-writer workers.
const ShardCount = 8

// RotorSteps is how many ticks a worker takes to cover its entire shard
// once, approximating "visits a 1/64 slice of its shard"
// on a 25s rotor.
const RotorSteps = 64

// recentPoints caps the "recent" trace.json.gz variant.
const recentPoints = 142

// fullWriteEvery is the write-count cadence for a full-trace rewrite.
const fullWriteEvery = 122

// Writer owns the JSON output tree and the lazy per-UTC-day history
// directory bookkeeping, via a lock-guarded map of directories already
// created rather than an unsynchronized static variable.
type Writer struct {
	JSONDir    string
	HistoryDir string // empty disables the historical tree

	// SummaryLog, if set, receives one Record call per aircraft per day
	// whenever that day's historical trace is finalized, so a
	// tracelog.Store can answer "who was seen on day X" without scanning
	// the trace tree itself.
	SummaryLog summaryRecorder

	mu       sync.Mutex
	madeDirs map[string]bool
}

// NewWriter creates a Writer rooted at jsonDir (and, optionally,
// historyDir for the daily history tree).
func NewWriter(jsonDir, historyDir string) *Writer {
	return &Writer{JSONDir: jsonDir, HistoryDir: historyDir, madeDirs: make(map[string]bool)}
}

func (w *Writer) ensureDir(dir string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.madeDirs[dir] {
		return nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	w.madeDirs[dir] = true
	return nil
}

// bucketHex is the two-hex-digit directory fanout key the
// `json_dir/traces/<bb>/...` layout uses: the top byte of the 24-bit
// ICAO address.
func bucketHex(icao uint32) string {
	return fmt.Sprintf("%02x", (icao>>16)&0xff)
}

func hexAddr(icao uint32) string {
	return fmt.Sprintf("%06x", icao&0xffffff)
}

// writeAtomic writes data to a temp file beside path and renames it into
// place, so a concurrent reader never observes a partially-written file.
func writeAtomic(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

// WriteRecent serializes the last recentPoints entries to
// trace_recent_<hex>.json.gz.
func (w *Writer) WriteRecent(icao uint32, t *Trace) error {
	points := t.Points
	if len(points) > recentPoints {
		points = points[len(points)-recentPoints:]
	}
	// The recent slice starts mid-stream; find the dense snapshots that
	// still land on a multiple of 4 within the *full* trace so playback
	// indices stay meaningful.
	offset := len(t.Points) - len(points)
	var all []StateAll
	if offset%4 == 0 {
		all = t.All[offset/4:]
	}

	data, err := EncodeJSON(points, all)
	if err != nil {
		return err
	}
	dir := filepath.Join(w.JSONDir, "traces", bucketHex(icao))
	return writeAtomic(filepath.Join(dir, fmt.Sprintf("trace_recent_%s.json.gz", hexAddr(icao))), data)
}

// WriteFull serializes the entire trace to trace_full_<hex>.json.gz.
func (w *Writer) WriteFull(icao uint32, t *Trace) error {
	data, err := EncodeJSON(t.Points, t.All)
	if err != nil {
		return err
	}
	dir := filepath.Join(w.JSONDir, "traces", bucketHex(icao))
	return writeAtomic(filepath.Join(dir, fmt.Sprintf("trace_full_%s.json.gz", hexAddr(icao))), data)
}

// WriteHistorical serializes the portion of the trace after the current
// UTC day's start to the history tree, at most once per process per
// aircraft per day (tracked via Trace.HistoryDayKey).
func (w *Writer) WriteHistorical(icao uint32, t *Trace, now time.Time) error {
	if w.HistoryDir == "" {
		return nil
	}
	dayKey := now.UTC().Format("2006-01-02")
	if t.HistoryDayKey == dayKey {
		return nil
	}

	dayStart := time.Date(now.UTC().Year(), now.UTC().Month(), now.UTC().Day(), 0, 0, 0, 0, time.UTC).UnixMilli()
	startIdx := 0
	for startIdx < len(t.Points) && t.Points[startIdx].TimestampMS < dayStart {
		startIdx++
	}
	points := t.Points[startIdx:]
	var all []StateAll
	if startIdx%4 == 0 {
		all = t.All[startIdx/4:]
	}

	data, err := EncodeJSON(points, all)
	if err != nil {
		return err
	}
	dir := filepath.Join(w.HistoryDir, dayKey, "traces", bucketHex(icao))
	if err := w.ensureDir(dir); err != nil {
		return err
	}
	if err := writeAtomic(filepath.Join(dir, fmt.Sprintf("trace_full_%s.json.gz", hexAddr(icao))), data); err != nil {
		return err
	}
	if w.SummaryLog != nil && len(points) > 0 {
		w.SummaryLog.Record(hexAddr(icao), dayKey, points[0].TimestampMS, points[len(points)-1].TimestampMS, len(points))
	}
	t.HistoryDayKey = dayKey
	return nil
}

// RunRotorTick is one 25s rotor step for worker shard `shard` (in
// [0, ShardCount)) at rotor position `pos` (in [0, RotorSteps)): it owns
// buckets [shard*step, (shard+1)*step) of the registry and, within that
// range, visits the 1/64 slice of aircraft whose address hashes to pos,
// flushing any whose TraceWrite flag is set.
func (w *Writer) RunRotorTick(store *aircraft.Store, shard, pos int, now time.Time) {
	bucketsPerShard := aircraft.BucketCount / ShardCount
	lo := shard * bucketsPerShard
	hi := lo + bucketsPerShard

	store.ForEachInBucket(lo, hi, func(a *aircraft.Aircraft) {
		if int(a.Key.Icao)%RotorSteps != pos {
			return
		}

		a.Lock()
		due := a.TraceWrite
		tr, _ := a.Trace.(*Trace)
		var snapshot *Trace
		if due && tr != nil {
			MarkLegs(tr.Points)
			cp := *tr
			cp.Points = append([]StatePoint(nil), tr.Points...)
			cp.All = append([]StateAll(nil), tr.All...)
			snapshot = &cp
			a.TraceWrite = false
		}
		icao := a.Key.Icao
		a.Unlock()

		if snapshot == nil {
			return
		}

		w.WriteRecent(icao, snapshot)
		// WriteCount/FullDeadline are only ever touched by the single
		// rotor worker this aircraft's bucket+address hash to, so this
		// is safe unlocked.
		tr.WriteCount++
		if tr.WriteCount%fullWriteEvery == 0 || now.After(tr.FullDeadline) {
			w.WriteFull(icao, snapshot)
			tr.FullDeadline = now.Add(2 * time.Minute)
		}
		w.WriteHistorical(icao, snapshot, now)
	})
}
