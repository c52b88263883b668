/*
	Copyright (c) 2023 Adrian Batzill
	Distributable under the terms of The "BSD New" License
	that can be found in the LICENSE file, herein included
	as part of this header.

	logging.go: rotating debug log and disk-space-aware eviction, adapted from logging.go
*/

// Package logging implements the rotating debug log the server writes
// to disk alongside stdout, and the disk-space-aware eviction policy
// that keeps it from filling the filesystem.
//
// Grounded on main/logging.go (openLogFile, rotateLogs, logFileWatcher,
// deleteOldestLog), generalized from package-level
// globals (logFileHandle, debugLogf) into a *Logger a caller owns and
// from a fixed 30-second sleep loop into a ticker-driven Watch method
// with a stop channel; tests call Sweep directly instead of waiting on it.
package logging

import (
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/ricochet2200/go-disk-usage/du"
)

// MaxSizeBytes is the per-file rotation threshold (teacher: 10MB).
const MaxSizeBytes = 10 * 1024 * 1024

// MinFreeBytes is the free-space floor the eviction loop maintains
// (teacher: 50MB).
const MinFreeBytes = 50 * 1024 * 1024

// MaxRotations caps how many numbered backups are kept (teacher: .1
// through .9, ten files total including the active one).
const MaxRotations = 9

// Logger owns one rotating log file under Dir named Name, and a
// combined stdout+file io.Writer installed on the standard log package.
type Logger struct {
	Dir  string
	Name string

	debug bool
	file  *os.File
}

// Open creates dir if necessary and opens (or creates) the active log
// file, installing an io.MultiWriter(file, os.Stdout) as the standard
// library logger's output (teacher's openLogFile).
func Open(dir, name string) (*Logger, error) {
	l := &Logger{Dir: dir, Name: name}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	if err := l.reopen(); err != nil {
		return nil, err
	}
	return l, nil
}

func (l *Logger) activePath() string {
	return filepath.Join(l.Dir, l.Name)
}

func (l *Logger) reopen() error {
	old := l.file
	fp, err := os.OpenFile(l.activePath(), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o666)
	if err != nil {
		return err
	}
	l.file = fp
	log.SetOutput(io.MultiWriter(fp, os.Stdout))
	if old != nil {
		old.Close()
	}
	return nil
}

// SetDebug toggles whether Debugf actually writes (teacher's
// globalSettings.DEBUG gate on logDbg).
func (l *Logger) SetDebug(enabled bool) {
	l.debug = enabled
}

// Debugf logs msg only when debug logging is enabled.
func (l *Logger) Debugf(format string, args ...interface{}) {
	if !l.debug {
		return
	}
	log.Printf(format, args...)
}

func (l *Logger) backupFiles() []string {
	entries, err := os.ReadDir(l.Dir)
	if err != nil {
		return nil
	}
	var backups []string
	prefix := l.Name + "."
	for _, e := range entries {
		if strings.HasPrefix(e.Name(), prefix) {
			backups = append(backups, filepath.Join(l.Dir, e.Name()))
		}
	}
	sort.Strings(backups)
	return backups
}

// Rotate renames the active file to <name>.1 (after bumping existing
// <name>.N to <name>.N+1, dropping anything past MaxRotations) and opens
// a fresh active file (teacher's rotateLogs).
func (l *Logger) Rotate() error {
	backups := l.backupFiles()
	for i := len(backups) - 1; i >= 0; i-- {
		parts := strings.Split(backups[i], ".")
		n, err := strconv.Atoi(parts[len(parts)-1])
		if err != nil {
			continue
		}
		if n >= MaxRotations {
			os.Remove(backups[i])
			continue
		}
		newPath := filepath.Join(l.Dir, fmt.Sprintf("%s.%d", l.Name, n+1))
		os.Rename(backups[i], newPath)
	}
	os.Rename(l.activePath(), l.activePath()+".1")
	return l.reopen()
}

// Size returns the active log file's current size.
func (l *Logger) Size() int64 {
	if l.file == nil {
		return 0
	}
	info, err := l.file.Stat()
	if err != nil {
		return 0
	}
	return info.Size()
}

// deleteOldest removes the single oldest backup file, returning the
// bytes freed (0 if there was nothing to delete).
func (l *Logger) deleteOldest() int64 {
	backups := l.backupFiles()
	if len(backups) == 0 {
		return 0
	}
	oldest := backups[len(backups)-1]
	info, err := os.Stat(oldest)
	if err != nil {
		return 0
	}
	if os.Remove(oldest) != nil {
		return 0
	}
	return info.Size()
}

// Sweep checks the active file's size and disk free space once, rotating
// past MaxSizeBytes and evicting backups until MinFreeBytes is free
// (teacher's logFileWatcher body, called by a caller-owned ticker rather
// than a fixed 30s sleep loop built into the package).
func (l *Logger) Sweep() {
	if l.Size() > MaxSizeBytes {
		if err := l.Rotate(); err != nil {
			log.Printf("logging: rotate failed: %v", err)
		}
	}

	usage := du.NewDiskUsage(l.Dir)
	free := int64(usage.Free())
	for free < MinFreeBytes {
		freed := l.deleteOldest()
		if freed == 0 {
			break
		}
		free += freed
	}
}

// Watch runs Sweep every interval until stop is closed. Intended to be
// launched in its own goroutine from cmd/adsbd.
func (l *Logger) Watch(interval time.Duration, stop <-chan struct{}) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			l.Sweep()
		}
	}
}

// Close closes the active log file.
func (l *Logger) Close() error {
	if l.file == nil {
		return nil
	}
	return l.file.Close()
}
