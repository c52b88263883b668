/*
	Copyright (c) 2015-2016 Christopher Young
	Distributable under the terms of The "BSD New" License
	that can be found in the LICENSE file, herein included
	as part of this header.

	tracelog.go: rolling per-aircraft trace summary index, adapted from datalog.go
*/

// Package tracelog writes a rolling SQLite index of per-aircraft,
// per-day trace summaries alongside the JSON/gzip trace files, so a
// client can answer "which aircraft were seen on day X" without
// scanning the trace tree.
//
// Grounded on main/datalog.go: the channel-fed background writer
// goroutine and the reflect-driven struct-to-SQL marshal table
// (sqliteMarshalFunctions/makeTable/insertData) are reused verbatim in
// spirit, generalized from per-field avionics sensor logging to one
// summary row per aircraft per day.
package tracelog

import (
	"database/sql"
	"fmt"
	"log"
	"reflect"
	"strings"

	_ "github.com/mattn/go-sqlite3"
)

// Row is one summary record: (hex, day, first_ts, last_ts, point_count)
// per aircraft per UTC day.
type Row struct {
	Hex        string
	Day        string // YYYY-MM-DD
	FirstTsMS  int64
	LastTsMS   int64
	PointCount int
}

type marshalFunc func(v reflect.Value) (sqlType string, value interface{})

var marshalByKind = map[reflect.Kind]marshalFunc{
	reflect.String: func(v reflect.Value) (string, interface{}) { return "TEXT", v.String() },
	reflect.Int:    func(v reflect.Value) (string, interface{}) { return "INTEGER", v.Int() },
	reflect.Int64:  func(v reflect.Value) (string, interface{}) { return "INTEGER", v.Int() },
}

// makeTable issues a CREATE TABLE IF NOT EXISTS for the exported fields
// of sample, deriving each column's SQL type from its Go kind the same
// way main/datalog.go's makeTable does.
func makeTable(db *sql.DB, tbl string, sample interface{}) error {
	val := reflect.ValueOf(sample)
	typ := val.Type()

	cols := make([]string, 0, typ.NumField())
	for i := 0; i < typ.NumField(); i++ {
		fn, ok := marshalByKind[val.Field(i).Kind()]
		if !ok {
			continue
		}
		sqlType, _ := fn(val.Field(i))
		cols = append(cols, typ.Field(i).Name+" "+sqlType)
	}

	stmt := fmt.Sprintf(
		"CREATE TABLE IF NOT EXISTS %s (id INTEGER NOT NULL PRIMARY KEY AUTOINCREMENT, %s, UNIQUE(Hex, Day))",
		tbl, strings.Join(cols, ", "))
	_, err := db.Exec(stmt)
	return err
}

// Store owns the SQLite connection and background upsert channel.
type Store struct {
	db   *sql.DB
	rows chan Row
	done chan struct{}
}

// Open opens (creating if needed) the SQLite file at path and starts
// the background writer goroutine.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}
	if err := makeTable(db, "trace_summary", Row{}); err != nil {
		db.Close()
		return nil, err
	}

	s := &Store{db: db, rows: make(chan Row, 1024), done: make(chan struct{})}
	go s.writer()
	return s, nil
}

func (s *Store) writer() {
	defer close(s.done)
	for r := range s.rows {
		s.upsert(r)
	}
}

func (s *Store) upsert(r Row) {
	_, err := s.db.Exec(`
		INSERT INTO trace_summary (Hex, Day, FirstTsMS, LastTsMS, PointCount)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(Hex, Day) DO UPDATE SET
			FirstTsMS = MIN(FirstTsMS, excluded.FirstTsMS),
			LastTsMS = MAX(LastTsMS, excluded.LastTsMS),
			PointCount = excluded.PointCount`,
		r.Hex, r.Day, r.FirstTsMS, r.LastTsMS, r.PointCount)
	if err != nil {
		// Summary index is a convenience query surface, not the
		// source of truth (the JSON/gzip trace tree is); a failed
		// upsert is logged and dropped rather than blocking ingestion.
		log.Printf("tracelog: upsert %s/%s: %v", r.Hex, r.Day, err)
	}
}

// Record enqueues a summary upsert for hex/day on main/datalog.go's
// style of buffered-channel writer. It never blocks: when the queue is
// full the record is dropped.
func (s *Store) Record(hex, day string, firstTsMS, lastTsMS int64, pointCount int) {
	select {
	case s.rows <- Row{Hex: hex, Day: day, FirstTsMS: firstTsMS, LastTsMS: lastTsMS, PointCount: pointCount}:
	default:
	}
}

// SeenOnDay returns the hex addresses with a summary row for day.
func (s *Store) SeenOnDay(day string) ([]string, error) {
	rows, err := s.db.Query("SELECT Hex FROM trace_summary WHERE Day = ? ORDER BY Hex", day)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var hexes []string
	for rows.Next() {
		var hex string
		if err := rows.Scan(&hex); err != nil {
			return nil, err
		}
		hexes = append(hexes, hex)
	}
	return hexes, rows.Err()
}

// Close stops the writer and closes the database.
func (s *Store) Close() error {
	close(s.rows)
	<-s.done
	return s.db.Close()
}
