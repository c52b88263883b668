// Package mgmt implements the management/status HTTP interface,
// recovering the only externally observable control surface
// managementinterface.go ships other than the CLI: live
// aircraft.json/globe_<n>.json/stats.json/clients.json, a websocket
// status push, and a Prometheus /metrics endpoint.
//
// Grounded on main/managementinterface.go's managementInterface/
// handleManagementConnection/statusSender, generalized from
// package-level globalSettings/globalStatus/traffic to an explicit
// *Server holding references to this repo's config.Store and
// stats.Stats, and from AHRS/GPS status booleans to tracker/ingestion
// health fields.
package mgmt

import (
	"encoding/json"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/net/websocket"

	"github.com/b3nn0/adsbd/internal/clock"
	"github.com/b3nn0/adsbd/internal/config"
	"github.com/b3nn0/adsbd/internal/stats"
)

// StatusLine is pushed once a second over the /control websocket
// (teacher's InfoMessage, generalized from AHRS/GPS booleans to
// tracker/ingestion health).
type StatusLine struct {
	Settings config.Settings `json:"settings"`
	Status   config.Status   `json:"status"`
}

// SettingMessage is the client->server toggle message the /control
// websocket accepts (teacher's SettingMessage, unchanged shape).
type SettingMessage struct {
	Setting string `json:"setting"`
	Value   bool   `json:"state"`
}

// ClientsProvider supplies the live per-Client/Service connection table
// for /clients.json. Its concrete shape is owned by cmd/adsbd's wiring,
// since this package does not define one (stratux's own traffic table
// is GDL90-specific and does not generalize directly).
type ClientsProvider func() interface{}

// Server bundles everything the management HTTP server needs to answer
// requests. SnapshotDir is where internal/snapshot's atomic writers
// leave aircraft.json/globe_<n>.json; this server reads them back
// rather than recomputing them, so the served documents always match
// whatever the scheduler last wrote to disk.
type Server struct {
	Addr        string
	SnapshotDir string
	Config      *config.Store
	Stats       *stats.Stats
	Clock       *clock.Clock
	Clients     ClientsProvider

	mux *http.ServeMux
}

// New builds a Server ready to Handler() or ListenAndServe.
func New(addr, snapshotDir string, cfg *config.Store, st *stats.Stats, clk *clock.Clock, clients ClientsProvider) *Server {
	s := &Server{Addr: addr, SnapshotDir: snapshotDir, Config: cfg, Stats: st, Clock: clk, Clients: clients}
	s.mux = http.NewServeMux()
	s.routes()
	return s
}

func (s *Server) routes() {
	s.mux.HandleFunc("/aircraft.json", s.handleSnapshotFile("aircraft.json"))
	s.mux.HandleFunc("/stats.json", s.handleStatsJSON)
	s.mux.HandleFunc("/clients.json", s.handleClientsJSON)
	s.mux.HandleFunc("/getSettings", s.handleGetSettings)
	s.mux.Handle("/metrics", promhttp.HandlerFor(s.Stats.Registry(), promhttp.HandlerOpts{}))
	s.mux.Handle("/control", websocket.Handler(s.handleControl))
	// /globe_<n>.json has no fixed suffix ServeMux can match exactly, so
	// it lives behind a "/" catch-all; routes registered above still win
	// since ServeMux prefers the most specific matching pattern.
	s.mux.HandleFunc("/", s.handleGlobeFile)
}

// Handler returns the http.Handler to mount (e.g. in tests, or behind a
// custom listener cmd/adsbd already owns).
func (s *Server) Handler() http.Handler { return s.mux }

// ListenAndServe blocks serving on Addr (teacher's managementInterface).
func (s *Server) ListenAndServe() error {
	return http.ListenAndServe(s.Addr, s.mux)
}

func setCORS(w http.ResponseWriter) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
}

// handleSnapshotFile serves name directly out of SnapshotDir -- the
// live documents are whatever the scheduler's EmitSnapshots hook most
// recently wrote via internal/snapshot's atomic writer.
func (s *Server) handleSnapshotFile(name string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		setCORS(w)
		http.ServeFile(w, r, filepath.Join(s.SnapshotDir, name))
	}
}

// handleGlobeFile serves /globe_<n>.json, validating that the requested
// path resolves to a plain filename inside SnapshotDir before opening it
// (no "..", no path separators) -- stratux trusted http.FileServer for
// this; we build the path ourselves to also honor the same-name
// convention internal/snapshot.globeFilename uses without exposing the
// rest of SnapshotDir.
func (s *Server) handleGlobeFile(w http.ResponseWriter, r *http.Request) {
	setCORS(w)
	name := filepath.Base(r.URL.Path)
	if !strings.HasPrefix(name, "globe_") || !strings.HasSuffix(name, ".json") || name != filepath.Clean(name) {
		http.NotFound(w, r)
		return
	}
	http.ServeFile(w, r, filepath.Join(s.SnapshotDir, name))
}

func (s *Server) handleStatsJSON(w http.ResponseWriter, r *http.Request) {
	setCORS(w)
	now := time.Now()
	if s.Clock != nil {
		now = s.Clock.Now()
	}
	snap := s.Stats.Snapshot(now)
	data, err := json.Marshal(snap)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Write(data)
}

func (s *Server) handleClientsJSON(w http.ResponseWriter, r *http.Request) {
	setCORS(w)
	var payload interface{} = []struct{}{}
	if s.Clients != nil {
		payload = s.Clients()
	}
	data, err := json.Marshal(payload)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Write(data)
}

func (s *Server) handleGetSettings(w http.ResponseWriter, r *http.Request) {
	setCORS(w)
	data, err := json.Marshal(s.Config.Settings())
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Write(data)
}

// handleControl serves the /control websocket: a StatusLine pushed once
// a second, and inbound SettingMessage toggles applied to Config
// (teacher's handleManagementConnection, split into statusSender's
// duties here).
func (s *Server) handleControl(conn *websocket.Conn) {
	done := make(chan struct{})
	go s.statusSender(conn, done)
	defer close(done)

	for {
		var msg SettingMessage
		if err := websocket.JSON.Receive(conn, &msg); err != nil {
			return
		}
		if s.Config.SetBool(msg.Setting, msg.Value) {
			s.Config.Save()
		}
	}
}

func (s *Server) statusSender(conn *websocket.Conn, done <-chan struct{}) {
	ticker := time.NewTicker(1 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			line := StatusLine{Settings: s.Config.Settings(), Status: s.Config.Status()}
			data, err := json.Marshal(line)
			if err != nil {
				continue
			}
			if _, err := conn.Write(data); err != nil {
				return
			}
		}
	}
}
