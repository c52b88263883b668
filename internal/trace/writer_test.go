package trace

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/b3nn0/adsbd/internal/aircraft"
	"github.com/b3nn0/adsbd/internal/message"
)

func TestWriteAtomicLeavesNoTempFileBehind(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "sub", "out.json")

	if err := writeAtomic(path, []byte(`{"ok":true}`)); err != nil {
		t.Fatalf("writeAtomic: %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("expected final file to exist: %v", err)
	}
	if _, err := os.Stat(path + ".tmp"); !os.IsNotExist(err) {
		t.Errorf("expected no leftover .tmp file, stat err = %v", err)
	}
}

func TestWriteRecentAndWriteFullProduceFiles(t *testing.T) {
	dir := t.TempDir()
	w := NewWriter(dir, "")

	now := time.Now()
	tr := New(now)
	a := newTestAircraft(now, 51.5, -0.1)
	for i := 0; i < 200; i++ {
		Append(tr, a, now.Add(time.Duration(i)*TraceInterval))
	}

	const icao = uint32(0x3c6444)
	if err := w.WriteRecent(icao, tr); err != nil {
		t.Fatalf("WriteRecent: %v", err)
	}
	if err := w.WriteFull(icao, tr); err != nil {
		t.Fatalf("WriteFull: %v", err)
	}

	bucketDir := filepath.Join(dir, "traces", bucketHex(icao))
	recentPath := filepath.Join(bucketDir, "trace_recent_"+hexAddr(icao)+".json.gz")
	fullPath := filepath.Join(bucketDir, "trace_full_"+hexAddr(icao)+".json.gz")

	if _, err := os.Stat(recentPath); err != nil {
		t.Errorf("expected recent trace file: %v", err)
	}
	if _, err := os.Stat(fullPath); err != nil {
		t.Errorf("expected full trace file: %v", err)
	}
}

func TestRunRotorTickWritesDueAircraftAndClearsFlag(t *testing.T) {
	dir := t.TempDir()
	w := NewWriter(dir, "")
	store := aircraft.NewStore()

	now := time.Now()
	const icao = uint32(0x4b1a2c)
	key := aircraft.Key{Icao: icao, AddrType: message.AddrICAO}
	a, _ := store.GetOrCreate(key, now)
	a.Lat, a.Lon = 48.8, 2.3
	a.BaroAlt.Source = message.ADSB
	a.BaroAlt.Updated = now
	a.BaroAltV = 5000
	a.GroundAir = aircraft.StateAirborne

	tr := New(now)
	Append(tr, a, now)
	a.Trace = tr
	a.TraceWrite = true

	shard := aircraft.BucketFor(key) / (aircraft.BucketCount / ShardCount)
	pos := int(icao) % RotorSteps

	w.RunRotorTick(store, shard, pos, now)

	if a.TraceWrite {
		t.Errorf("expected TraceWrite cleared after a due rotor tick")
	}
	recentPath := filepath.Join(dir, "traces", bucketHex(icao), "trace_recent_"+hexAddr(icao)+".json.gz")
	if _, err := os.Stat(recentPath); err != nil {
		t.Errorf("expected rotor tick to write recent trace file: %v", err)
	}
}

type fakeSummaryLog struct {
	calls []string
}

func (f *fakeSummaryLog) Record(hex, day string, firstTsMS, lastTsMS int64, pointCount int) {
	f.calls = append(f.calls, hex+"/"+day)
}

func TestWriteHistoricalRecordsSummaryOnce(t *testing.T) {
	dir := t.TempDir()
	w := NewWriter(dir, filepath.Join(dir, "history"))
	log := &fakeSummaryLog{}
	w.SummaryLog = log

	now := time.Now()
	tr := New(now)
	for i := 0; i < 10; i++ {
		a := newTestAircraft(now, 51.5, -0.1)
		Append(tr, a, now.Add(time.Duration(i)*TraceInterval))
	}

	const icao = uint32(0x3c6444)
	if err := w.WriteHistorical(icao, tr, now); err != nil {
		t.Fatalf("WriteHistorical: %v", err)
	}
	if len(log.calls) != 1 {
		t.Fatalf("summary log calls = %d, want 1", len(log.calls))
	}
	if want := hexAddr(icao) + "/" + now.UTC().Format("2006-01-02"); log.calls[0] != want {
		t.Errorf("summary log call = %q, want %q", log.calls[0], want)
	}

	// A second call the same day is a no-op (HistoryDayKey already set).
	if err := w.WriteHistorical(icao, tr, now); err != nil {
		t.Fatalf("WriteHistorical (second call): %v", err)
	}
	if len(log.calls) != 1 {
		t.Errorf("summary log calls after repeat = %d, want still 1", len(log.calls))
	}
}

func TestRunRotorTickSkipsAircraftNotDueThisStep(t *testing.T) {
	dir := t.TempDir()
	w := NewWriter(dir, "")
	store := aircraft.NewStore()

	now := time.Now()
	const icao = uint32(0x4b1a2c)
	key := aircraft.Key{Icao: icao, AddrType: message.AddrICAO}
	a, _ := store.GetOrCreate(key, now)
	tr := New(now)
	Append(tr, a, now)
	a.Trace = tr
	a.TraceWrite = true

	shard := aircraft.BucketFor(key) / (aircraft.BucketCount / ShardCount)
	wrongPos := (int(icao)%RotorSteps + 1) % RotorSteps

	w.RunRotorTick(store, shard, wrongPos, now)

	if !a.TraceWrite {
		t.Errorf("expected TraceWrite to remain set when this rotor step doesn't own the aircraft")
	}
}
