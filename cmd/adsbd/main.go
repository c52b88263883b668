// Command adsbd is the aircraft-tracking server: it accepts Beast/
// raw-ASCII/SBS input connections, fuses decoded messages into the
// aircraft registry, maintains per-aircraft trajectory traces, and
// serves live snapshot/management HTTP endpoints.
//
// Grounded on main/gen_gdl90.go's main() (log setup, signal loop,
// background goroutines for the heartbeat sender and the management
// interface) and fancontrol_main/fancontrol.go's daemon.Daemon/Service
// wrapper, generalized from stratux's single process-wide globals into
// one explicitly-constructed wiring pass.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/takama/daemon"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"

	"github.com/b3nn0/adsbd/internal/aircraft"
	"github.com/b3nn0/adsbd/internal/clock"
	"github.com/b3nn0/adsbd/internal/config"
	"github.com/b3nn0/adsbd/internal/ingest"
	"github.com/b3nn0/adsbd/internal/logging"
	"github.com/b3nn0/adsbd/internal/mgmt"
	"github.com/b3nn0/adsbd/internal/sched"
	"github.com/b3nn0/adsbd/internal/snapshot"
	"github.com/b3nn0/adsbd/internal/stats"
	"github.com/b3nn0/adsbd/internal/tile"
	"github.com/b3nn0/adsbd/internal/trace"
	"github.com/b3nn0/adsbd/internal/tracelog"
	"github.com/b3nn0/adsbd/internal/tracker"
)

const (
	name        = "adsbd"
	description = "ADS-B/Mode-S aircraft tracking server"
)

// flags models only the subset of command-line inputs needed to
// construct a tracker.Context. No SDR-front-end flags are defined, since
// SDR front-end handling is out of scope here; flag.Parse rejects them
// like any other undefined flag.
type flags struct {
	dataDir        string
	beastAddr      string
	managementAddr string
}

var (
	flagDataDir        = flag.String("data-dir", "/var/lib/adsbd", "base directory for state, traces, and snapshots")
	flagBeastAddr      = flag.String("beast-addr", ":30005", "inbound Beast TCP listen address")
	flagManagementAddr = flag.String("management-addr", ":8080", "management/status HTTP listen address")
)

func parseFlags() flags {
	return flags{
		dataDir:        *flagDataDir,
		beastAddr:      *flagBeastAddr,
		managementAddr: *flagManagementAddr,
	}
}

// server is the Context every worker goroutine this process starts is
// built from; no package-level mutable state.
type server struct {
	flags  flags
	clock  *clock.Clock
	cfg    *config.Store
	logger *logging.Logger

	tracker  *tracker.Context
	writer   *trace.Writer
	traceLog *tracelog.Store
	stats    *stats.Stats
	tiles    *tile.Index

	netWriter *ingest.NetWriter
	beastIn   *ingest.Service
	sleepMon  *ingest.SleepMonitor

	traceWriters *sched.TraceWriterPool
	misc         *sched.MiscWorker

	driver *sched.Driver
	mgmt   *mgmt.Server
}

func newServer(f flags) (*server, error) {
	if err := os.MkdirAll(f.dataDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating data dir: %w", err)
	}

	logger, err := logging.Open(filepath.Join(f.dataDir, "logs"), "adsbd.log")
	if err != nil {
		return nil, fmt.Errorf("opening log: %w", err)
	}

	cfg := config.NewStore(filepath.Join(f.dataDir, "settings.json"))
	logger.SetDebug(cfg.Settings().DEBUG)

	clk := clock.New()
	store := aircraft.NewStore()
	tiles := tile.New()
	tctx := tracker.NewContext(store, clk, tiles, tracker.DefaultConfig())

	writer := trace.NewWriter(filepath.Join(f.dataDir, "json"), filepath.Join(f.dataDir, "history"))
	traceLog, err := tracelog.Open(filepath.Join(f.dataDir, "tracelog.db"))
	if err != nil {
		return nil, fmt.Errorf("opening trace log: %w", err)
	}
	writer.SummaryLog = traceLog
	st := stats.New(clk)

	netWriter := ingest.NewNetWriter(ingest.ClientBufferSize)
	beastSvc := &ingest.Service{
		Name:              "beast-in",
		Framing:           ingest.FramingBeast,
		Capability:        ingest.CapBeastIn,
		HeartbeatInterval: ingest.DefaultHeartbeatInterval,
		// Decode is left nil: turning a framed Beast payload into a
		// message.Message requires Mode-S bit-level decoding, which is
		// out of scope and supplied by the embedding binary.
	}

	s := &server{
		flags:     f,
		clock:     clk,
		cfg:       cfg,
		logger:    logger,
		tracker:   tctx,
		writer:    writer,
		traceLog:  traceLog,
		stats:     st,
		tiles:     tiles,
		netWriter: netWriter,
		beastIn:   beastSvc,
		sleepMon:  ingest.NewSleepMonitor(netWriter, clk, 5*time.Second),
	}

	s.mgmt = mgmt.New(f.managementAddr, filepath.Join(f.dataDir, "json"), cfg, st, clk, s.clientsSnapshot)
	s.driver = sched.NewDriver(clk, s.hooks())
	return s, nil
}

// clientsSnapshot is the mgmt.ClientsProvider hook; only the inbound
// Beast service is wired so far, so this reports its connection keys.
func (s *server) clientsSnapshot() interface{} {
	keys := []string{}
	for _, c := range s.netWriter.Clients() {
		keys = append(keys, c.Key())
	}
	return keys
}

func (s *server) hooks() sched.Hooks {
	staleSweep := sched.NewStaleSweepPool(s.tracker.Store,
		time.Duration(s.cfg.Settings().StaleTTLSeconds)*time.Second,
		time.Duration(s.cfg.Settings().FieldStaleSeconds)*time.Second)
	s.traceWriters = sched.NewTraceWriterPool(s.writer, s.tracker.Store)
	s.misc = sched.NewMiscWorker(s.tracker.Store, filepath.Join(s.flags.dataDir, "internal_state"))

	var nextTraceTick time.Time
	return sched.Hooks{
		AcceptAndDrainClients: func(now time.Time) {
			s.netWriter.Flush(now, 10*time.Second)
		},
		EmitSnapshots: func(now time.Time) {
			s.emitSnapshots(now)
		},
		FireHeartbeats: func(now time.Time) {
			s.netWriter.SendHeartbeats(now, ingest.BeastHeartbeat())
		},
		Reconnect: func(now time.Time) {},

		RequestStaleSweep: func(now time.Time) {
			if err := staleSweep.RunAll(now); err != nil {
				log.Printf("stale sweep: %v", err)
			}
			if !now.Before(nextTraceTick) {
				nextTraceTick = now.Add(sched.TickInterval)
				if err := s.traceWriters.Tick(now); err != nil {
					log.Printf("trace writer tick: %v", err)
				}
			}
			if err := s.misc.Tick(now); err != nil {
				log.Printf("misc worker tick: %v", err)
			}
		},
		MatchModeAC: func(now time.Time) {},
		RefreshStats: func(now time.Time) {
			s.cfg.UpdateStatus(config.Status{
				Version:       "adsbd-dev",
				UptimeSeconds: int64(s.clock.Since(startTime) / time.Second),
				AircraftCount: s.tracker.Store.Len(),
			})
		},
		APIIndex: func(now time.Time) {},
	}
}

func (s *server) emitSnapshots(now time.Time) {
	dir := filepath.Join(s.flags.dataDir, "json")
	doc := snapshot.BuildAircraftJSON(s.tracker.Store, now, s.tracker.Config.TrackExpire/2, s.stats.Snapshot(now).AllTime.Messages)
	if err := snapshot.WriteAircraftJSON(dir, doc); err != nil {
		log.Printf("emitSnapshots: aircraft.json: %v", err)
	}

	seen := map[int]bool{}
	s.tracker.Store.ForEach(func(a *aircraft.Aircraft) {
		a.Lock()
		idx, has := a.TileIndex, a.HasTileIndex
		a.Unlock()
		if has {
			seen[idx] = true
		}
	})
	// Write in a fixed order rather than whatever order ranging over
	// seen happens to yield, so repeated runs touch globe_<n>.json files
	// in the same sequence.
	tileIDs := maps.Keys(seen)
	slices.Sort(tileIDs)
	for _, tileID := range tileIDs {
		globeDoc := snapshot.BuildGlobeJSON(s.tracker.Store, tileID, now)
		if err := snapshot.WriteGlobeJSON(dir, globeDoc); err != nil {
			log.Printf("emitSnapshots: globe_%d.json: %v", tileID, err)
		}
	}
}

// acceptLoop accepts inbound Beast TCP connections and runs each one's
// bounded read loop in its own goroutine, one per client, rather than
// a single-threaded poll loop over every connection.
func (s *server) acceptLoop(ctx context.Context, ln net.Listener) {
	for {
		conn, err := ln.Accept()
		if err != nil {
			select {
			case <-ctx.Done():
				return
			default:
				log.Printf("accept: %v", err)
				continue
			}
		}
		tcpConn, ok := conn.(*net.TCPConn)
		if !ok {
			conn.Close()
			continue
		}
		key := conn.RemoteAddr().String()
		ingestConn := ingest.NewTCPConnection(tcpConn, key, ingest.CapBeastIn, s.clock, s.netWriter.RemoveClient)
		s.netWriter.AddClient(ingestConn)
		go s.serveClient(ctx, ingestConn, tcpConn)
	}
}

func (s *server) serveClient(ctx context.Context, conn *ingest.TCPConnection, raw net.Conn) {
	defer conn.Close()
	reader := ingest.NewClientReader(conn, raw, s.beastIn)
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}
		if err := reader.RunOnce(s.clock.Now()); err != nil {
			return
		}
	}
}

var startTime time.Time

// Manage implements the daemon.Daemon install/remove/start/stop/status
// commands, falling through to running the server in the foreground
// otherwise (teacher's fancontrol_main/fancontrol.go Service.Manage).
type Service struct {
	daemon.Daemon
}

func (svc *Service) Manage() (string, error) {
	flag.Parse()
	usage := "Usage: " + name + " install | remove | start | stop | status"
	if flag.NArg() > 0 {
		switch flag.Arg(0) {
		case "install":
			return svc.Install()
		case "remove":
			return svc.Remove()
		case "start":
			return svc.Start()
		case "stop":
			return svc.Stop()
		case "status":
			return svc.Status()
		default:
			return usage, nil
		}
	}

	f := parseFlags()
	s, err := newServer(f)
	if err != nil {
		return "", err
	}
	defer s.logger.Close()
	defer s.traceLog.Close()

	startTime = s.clock.Now()
	log.Printf("%s starting, data dir %s", name, f.dataDir)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ln, err := net.Listen("tcp", f.beastAddr)
	if err != nil {
		return "", fmt.Errorf("listening on %s: %w", f.beastAddr, err)
	}
	defer ln.Close()
	go s.acceptLoop(ctx, ln)

	go func() {
		if err := s.mgmt.ListenAndServe(); err != nil {
			log.Printf("management interface: %v", err)
		}
	}()

	go func() {
		if err := s.driver.Run(ctx); err != nil && err != context.Canceled {
			log.Printf("scheduler stopped: %v", err)
		}
	}()

	go func() {
		if err := s.sleepMon.Run(ctx); err != nil && err != context.Canceled {
			log.Printf("sleep monitor stopped: %v", err)
		}
	}()

	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, syscall.SIGINT, syscall.SIGTERM)
	killSignal := <-interrupt
	log.Printf("got signal: %v", killSignal)
	return "daemon was killed", nil
}

func main() {
	srv, err := daemon.New(name, description, daemon.SystemDaemon)
	if err != nil {
		log.Fatalf("daemon.New: %v", err)
	}
	service := &Service{srv}
	status, err := service.Manage()
	if err != nil {
		log.Fatalf("%s: %v", status, err)
	}
	fmt.Println(status)
}
