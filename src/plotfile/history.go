package plotfile

import (
	"database/sql"
	"fmt"
	"os"

	// Need to use SQLite connections.
	_ "github.com/mattn/go-sqlite3"

	"github.com/rs/xid"
	"github.com/tebeka/atexit"
)

// Entry is the record of one completed step.
type Entry struct {
	Step       int
	Time       float64
	Min        float64
	Max        float64
	Mean       float64
	Iterations int
	Residual   float64
}

// History records one Entry per step in a SQLite database. Entries are
// buffered and written in batches inside a transaction.
type History struct {
	db        *sql.DB
	statement *sql.Stmt

	dbName    string
	runID     string
	entries   []Entry
	batchSize int
}

// NewHistory creates a history writer for <path>.sqlite3. An empty path
// picks a unique name. Buffered entries are flushed when the program exits
// through atexit.
func NewHistory(path string) *History {
	h := &History{
		dbName:    path,
		runID:     xid.New().String(),
		batchSize: 1000,
	}

	atexit.Register(func() { _ = h.Flush() })

	return h
}

// RunID identifies the run in the history table.
func (h *History) RunID() string { return h.runID }

// Path is the database file name.
func (h *History) Path() string { return h.dbName + ".sqlite3" }

// Init creates the database. When the named file already exists, the run
// id is appended to the name so earlier runs are kept.
func (h *History) Init() error {
	if h.dbName == "" {
		h.dbName = "magnon_history_" + h.runID
	}
	if _, err := os.Stat(h.Path()); err == nil {
		h.dbName += "_" + h.runID
	}

	filename := h.Path()
	if _, err := os.Stat(filename); err == nil {
		return fmt.Errorf("file %s already exists", filename)
	}

	db, err := sql.Open("sqlite3", filename)
	if err != nil {
		return fmt.Errorf("cannot open history database: %w", err)
	}
	h.db = db

	_, err = h.db.Exec(`
		create table steps
		(
			run_id     varchar(20) not null,
			step       int         not null,
			time       float       not null,
			phi_min    float       not null,
			phi_max    float       not null,
			phi_mean   float       not null,
			iterations int         not null,
			residual   float       not null
		);
	`)
	if err != nil {
		return fmt.Errorf("cannot create steps table: %w", err)
	}

	h.statement, err = h.db.Prepare(`
		insert into steps(run_id, step, time, phi_min, phi_max, phi_mean, iterations, residual)
		values(?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("cannot prepare insert: %w", err)
	}
	return nil
}

// Record buffers e and flushes once the batch is full.
func (h *History) Record(e Entry) error {
	h.entries = append(h.entries, e)
	if len(h.entries) >= h.batchSize {
		return h.Flush()
	}
	return nil
}

// Flush writes all buffered entries.
func (h *History) Flush() error {
	if len(h.entries) == 0 || h.db == nil {
		return nil
	}

	tx, err := h.db.Begin()
	if err != nil {
		return fmt.Errorf("cannot begin history transaction: %w", err)
	}
	stmt := tx.Stmt(h.statement)
	for _, e := range h.entries {
		_, err := stmt.Exec(h.runID, e.Step, e.Time, e.Min, e.Max, e.Mean, e.Iterations, e.Residual)
		if err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("cannot insert step %d: %w", e.Step, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("cannot commit history: %w", err)
	}

	h.entries = nil
	return nil
}

// Entries reads back the recorded steps in step order.
func (h *History) Entries() ([]Entry, error) {
	if err := h.Flush(); err != nil {
		return nil, err
	}
	rows, err := h.db.Query(`
		select step, time, phi_min, phi_max, phi_mean, iterations, residual
		from steps where run_id = ? order by step
	`, h.runID)
	if err != nil {
		return nil, fmt.Errorf("cannot query history: %w", err)
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.Step, &e.Time, &e.Min, &e.Max, &e.Mean, &e.Iterations, &e.Residual); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// Close flushes and closes the database.
func (h *History) Close() error {
	if h.db == nil {
		return nil
	}
	err := h.Flush()
	if cerr := h.statement.Close(); err == nil {
		err = cerr
	}
	if cerr := h.db.Close(); err == nil {
		err = cerr
	}
	h.db = nil
	return err
}
