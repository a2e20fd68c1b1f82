// Package trace persists engine events so that runs can be inspected after
// the simulation ends.
package trace

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"sync"

	// Need to use SQLite connections.
	_ "github.com/mattn/go-sqlite3"

	"github.com/rs/xid"
	"github.com/sarchlab/akita/v4/sim"
	"github.com/tebeka/atexit"

	"github.com/sarchlab/tomasim/timing/tomasulo"
)

// Record is one persisted event.
type Record struct {
	RunID    string
	Seq      int
	Cycle    int
	Kind     string
	Station  string
	ROBIndex int
	Phys     int
	Inst     string
	Text     string
}

// SQLiteRecorder is a hook that writes every engine event to a SQLite
// database. Events are buffered and written in batches.
type SQLiteRecorder struct {
	*sql.DB
	statement *sql.Stmt

	lock      sync.Mutex
	path      string
	runID     string
	seq       int
	pending   []tomasulo.Event
	batchSize int
}

// NewSQLiteRecorder creates a recorder that writes to path. An empty path
// picks a unique file name in the working directory. Buffered events are
// flushed when the program exits through atexit.
func NewSQLiteRecorder(path string) *SQLiteRecorder {
	r := &SQLiteRecorder{
		path:      path,
		runID:     xid.New().String(),
		batchSize: 10000,
	}

	if r.path == "" {
		r.path = "tomasim_trace_" + r.runID + ".sqlite3"
	}

	atexit.Register(func() { _ = r.Close() })

	return r
}

// Path returns the database file.
func (r *SQLiteRecorder) Path() string {
	return r.path
}

// RunID returns the identifier stored with every event of this recorder.
func (r *SQLiteRecorder) RunID() string {
	return r.runID
}

// Init opens the database and prepares the event table. Several runs may
// share one database file; they are told apart by run ID.
func (r *SQLiteRecorder) Init() error {
	db, err := sql.Open("sqlite3", r.path)
	if err != nil {
		return fmt.Errorf("failed to open trace database: %w", err)
	}
	r.DB = db

	_, err = r.Exec(`CREATE TABLE IF NOT EXISTS events (
		run_id    TEXT NOT NULL,
		seq       INTEGER NOT NULL,
		cycle     INTEGER NOT NULL,
		kind      TEXT NOT NULL,
		station   TEXT,
		rob_index INTEGER,
		phys      INTEGER,
		inst      TEXT,
		text      TEXT NOT NULL,
		PRIMARY KEY (run_id, seq)
	)`)
	if err != nil {
		return fmt.Errorf("failed to create events table: %w", err)
	}

	r.statement, err = r.Prepare(`INSERT INTO events
		(run_id, seq, cycle, kind, station, rob_index, phys, inst, text)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare insert statement: %w", err)
	}

	return nil
}

// Func records the event carried by a hook invocation. Items that are not
// engine events are ignored.
func (r *SQLiteRecorder) Func(ctx sim.HookCtx) {
	evt, ok := ctx.Item.(tomasulo.Event)
	if !ok {
		return
	}

	r.lock.Lock()
	r.pending = append(r.pending, evt)
	full := len(r.pending) >= r.batchSize
	r.lock.Unlock()

	if full {
		if err := r.Flush(); err != nil {
			panic(err)
		}
	}
}

// Flush writes all buffered events in one transaction.
func (r *SQLiteRecorder) Flush() error {
	r.lock.Lock()
	defer r.lock.Unlock()

	if len(r.pending) == 0 {
		return nil
	}
	if r.DB == nil {
		return errors.New("trace database not initialized")
	}

	tx, err := r.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin trace transaction: %w", err)
	}

	stmt := tx.Stmt(r.statement)
	for _, evt := range r.pending {
		r.seq++
		_, err := stmt.Exec(
			r.runID,
			r.seq,
			evt.Cycle,
			evt.Kind,
			evt.Station,
			evt.ROBIndex,
			int(evt.Phys),
			evt.Inst,
			evt.Text,
		)
		if err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("failed to insert event %d: %w", r.seq, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit trace transaction: %w", err)
	}

	r.pending = nil

	return nil
}

// Close flushes buffered events and closes the database.
func (r *SQLiteRecorder) Close() error {
	if err := r.Flush(); err != nil {
		return err
	}

	r.lock.Lock()
	defer r.lock.Unlock()

	if r.DB == nil {
		return nil
	}

	if r.statement != nil {
		_ = r.statement.Close()
		r.statement = nil
	}

	err := r.DB.Close()
	r.DB = nil

	return err
}

// ReadRecords returns the events stored in a trace database, in recording
// order. An empty runID returns every run.
func ReadRecords(path, runID string) ([]Record, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("trace database not found: %w", err)
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open trace database: %w", err)
	}
	defer func() { _ = db.Close() }()

	query := `SELECT run_id, seq, cycle, kind, station, rob_index, phys, inst, text
		FROM events`
	var args []any
	if runID != "" {
		query += " WHERE run_id = ?"
		args = append(args, runID)
	}
	query += " ORDER BY run_id, seq"

	rows, err := db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query events: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var records []Record
	for rows.Next() {
		var rec Record
		err := rows.Scan(&rec.RunID, &rec.Seq, &rec.Cycle, &rec.Kind,
			&rec.Station, &rec.ROBIndex, &rec.Phys, &rec.Inst, &rec.Text)
		if err != nil {
			return nil, fmt.Errorf("failed to read event: %w", err)
		}
		records = append(records, rec)
	}

	return records, rows.Err()
}
