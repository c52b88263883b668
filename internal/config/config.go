// Package config models the settings/status pair: a JSON-persisted
// Settings document the management interface can read and patch at
// runtime, plus a Status document the server publishes describing its
// own health.
//
// Grounded on gen_gdl90.go's globalSettings/globalStatus pair and its
// readSettings/saveSettings functions, generalized from package-level
// globals into an explicit *Store a caller owns, deliberately avoiding
// a process-wide singleton.
package config

import (
	"encoding/json"
	"log"
	"os"
	"sync"
)

// Settings is the mutable, persisted configuration document. Field names
// match the management interface's SettingMessage.Setting strings.
type Settings struct {
	BeastInputEnabled bool `json:"BeastInputEnabled"`
	RawInputEnabled   bool `json:"RawInputEnabled"`
	SBSInputEnabled   bool `json:"SBSInputEnabled"`

	TraceHistoryEnabled bool `json:"TraceHistoryEnabled"`
	DEBUG               bool `json:"DEBUG"`

	StaleTTLSeconds     int `json:"StaleTTLSeconds"`
	FieldStaleSeconds   int `json:"FieldStaleSeconds"`

	ListenAddr string `json:"ListenAddr"`
}

// DefaultSettings matches defaultSettings(): reasonable production
// defaults rather than a zero Settings value.
func DefaultSettings() Settings {
	return Settings{
		BeastInputEnabled:   true,
		RawInputEnabled:     true,
		SBSInputEnabled:     false,
		TraceHistoryEnabled: true,
		DEBUG:               false,
		StaleTTLSeconds:     300,
		FieldStaleSeconds:   60,
		ListenAddr:          ":8080",
	}
}

// Status is the read-only, process-reported health document, refreshed
// by the periodic scheduler's RefreshStats hook.
type Status struct {
	Version        string `json:"Version"`
	UptimeSeconds  int64  `json:"UptimeSeconds"`
	AircraftCount  int    `json:"AircraftCount"`
	ConnectedPeers int    `json:"ConnectedPeers"`
	MessagesTotal  int64  `json:"MessagesTotal"`
}

// Store owns one Settings/Status pair plus the path Settings is
// persisted to, guarded by a mutex since both the management HTTP
// handlers and the scheduler's RefreshStats hook touch it concurrently.
type Store struct {
	mu       sync.Mutex
	path     string
	settings Settings
	status   Status
}

// NewStore creates a Store backed by path, loading existing settings if
// present and otherwise keeping DefaultSettings in memory (teacher's
// readSettings fallback-to-defaults behavior); nothing is written to
// path until Save is called.
func NewStore(path string) *Store {
	s := &Store{path: path, settings: DefaultSettings()}
	s.load()
	return s
}

func (s *Store) load() {
	data, err := os.ReadFile(s.path)
	if err != nil {
		log.Printf("config: can't read %s: %v, using defaults", s.path, err)
		return
	}
	var loaded Settings
	if err := json.Unmarshal(data, &loaded); err != nil {
		log.Printf("config: can't parse %s: %v, using defaults", s.path, err)
		return
	}
	s.settings = loaded
}

// Save persists the current settings to disk (teacher's saveSettings).
func (s *Store) Save() error {
	s.mu.Lock()
	data, err := json.Marshal(&s.settings)
	s.mu.Unlock()
	if err != nil {
		return err
	}
	return os.WriteFile(s.path, data, 0o644)
}

// Settings returns a copy of the current settings.
func (s *Store) Settings() Settings {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.settings
}

// SetBool applies one SettingMessage-style toggle by name, reporting
// whether name was recognized (teacher's handleManagementConnection
// if-chain, generalized to a switch dispatch instead of four literal ifs).
func (s *Store) SetBool(name string, value bool) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch name {
	case "BeastInputEnabled":
		s.settings.BeastInputEnabled = value
	case "RawInputEnabled":
		s.settings.RawInputEnabled = value
	case "SBSInputEnabled":
		s.settings.SBSInputEnabled = value
	case "TraceHistoryEnabled":
		s.settings.TraceHistoryEnabled = value
	case "DEBUG":
		s.settings.DEBUG = value
	default:
		return false
	}
	return true
}

// Status returns a copy of the current status document.
func (s *Store) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

// UpdateStatus replaces the status document wholesale, called by the
// scheduler's RefreshStats hook once per coarse tick.
func (s *Store) UpdateStatus(st Status) {
	s.mu.Lock()
	s.status = st
	s.mu.Unlock()
}
