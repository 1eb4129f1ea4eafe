// Package engine hosts the embedded SQLite store on a dedicated goroutine.
//
// The engine is the only owner of the database handle. Callers never touch
// it directly: requests and responses cross a channel boundary, mirroring a
// worker postMessage protocol, and the engine processes requests strictly
// one at a time in arrival order. Serial processing sidesteps write-write
// races within a session at the cost of serializing throughput.
//
// Protocol:
//   - The first INIT request opens the store and initializes the schema.
//     A durable file-backed store is attempted first; if that fails the
//     engine falls back to a transient in-memory store with identical query
//     semantics. INIT is answered by a READY response (no correlation ID),
//     or by an ERROR response without an ID if no store can be opened.
//   - exec, get, and getAll each carry a caller-supplied correlation ID.
//     The matching SUCCESS or ERROR response echoes that ID so callers can
//     demultiplex concurrent in-flight requests.
//   - Unknown verbs and queries issued before INIT produce ERROR responses
//     carrying the request's ID.
package engine

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"

	"github.com/griiettner/eventos-finais/internal/store/schema"
	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"
)

// Verb identifies a request type.
type Verb string

const (
	// VerbInit opens the store and initializes the schema.
	VerbInit Verb = "INIT"
	// VerbExec runs a statement that may mutate state.
	VerbExec Verb = "exec"
	// VerbGet returns at most one row as a column map.
	VerbGet Verb = "get"
	// VerbGetAll returns every matching row as a slice of column maps.
	VerbGetAll Verb = "getAll"
)

// Kind identifies a response type.
type Kind string

const (
	// KindReady signals successful initialization. Carries no ID.
	KindReady Kind = "READY"
	// KindSuccess answers a query request, echoing its ID.
	KindSuccess Kind = "SUCCESS"
	// KindError reports a failure. Query errors echo the request's ID;
	// init-time errors carry none.
	KindError Kind = "ERROR"
)

// Request is one inbound message. ID is empty only for INIT.
type Request struct {
	ID     string
	Verb   Verb
	SQL    string
	Params []any
}

// Response is one outbound message.
//
// Result holds int64 (rows affected) for exec, map[string]any or nil for
// get, and []map[string]any for getAll.
type Response struct {
	ID     string
	Kind   Kind
	Result any
	Err    string
}

// Engine runs the embedded store on its own goroutine.
type Engine struct {
	path   string
	logger *log.Logger

	requests  chan Request
	responses chan Response

	db        *sql.DB
	transient bool

	wg sync.WaitGroup
}

// New creates an engine for the store file at path. The store is not
// opened until an INIT request arrives; use Start to launch the goroutine.
//
// If logger is nil, a default logger writing to stderr is used.
func New(path string, logger *log.Logger) *Engine {
	if logger == nil {
		logger = log.New(os.Stderr, "[engine] ", log.LstdFlags)
	}
	return &Engine{
		path:      path,
		logger:    logger,
		requests:  make(chan Request, 64),
		responses: make(chan Response, 64),
	}
}

// Start launches the engine goroutine. It must be called exactly once.
func (e *Engine) Start() {
	e.wg.Add(1)
	go e.run()
}

// Requests returns the channel requests are sent on. Closing it via Close
// shuts the engine down.
func (e *Engine) Requests() chan<- Request {
	return e.requests
}

// Responses returns the channel responses arrive on. It is closed after
// the engine drains its final request.
func (e *Engine) Responses() <-chan Response {
	return e.responses
}

// Close shuts the engine down, waits for in-flight work to drain, and
// closes the database.
func (e *Engine) Close() error {
	close(e.requests)
	e.wg.Wait()
	return nil
}

// run processes requests to completion, one at a time.
func (e *Engine) run() {
	defer e.wg.Done()
	defer close(e.responses)
	defer e.closeDB()

	for req := range e.requests {
		switch req.Verb {
		case VerbInit:
			e.handleInit()
		case VerbExec, VerbGet, VerbGetAll:
			e.responses <- e.handleQuery(req)
		default:
			e.responses <- Response{
				ID:   req.ID,
				Kind: KindError,
				Err:  fmt.Sprintf("unknown message type: %s", req.Verb),
			}
		}
	}
}

// handleInit opens the store, creates tables, and runs migrations.
//
// Migration failures are logged but non-fatal: the engine still signals
// readiness so the caller can degrade gracefully instead of hard-failing.
func (e *Engine) handleInit() {
	if e.db != nil {
		e.responses <- Response{Kind: KindReady}
		return
	}

	db, transient, err := e.openDB()
	if err != nil {
		e.logger.Printf("Failed to initialize database: %v", err)
		e.responses <- Response{Kind: KindError, Err: err.Error()}
		return
	}

	ctx := context.Background()
	if err := schema.Create(ctx, db); err != nil {
		_ = db.Close()
		e.logger.Printf("Failed to create schema: %v", err)
		e.responses <- Response{Kind: KindError, Err: err.Error()}
		return
	}
	if err := schema.Migrate(ctx, db, e.logger); err != nil {
		e.logger.Printf("WARNING: migrations incomplete: %v", err)
	}

	e.db = db
	e.transient = transient
	if transient {
		e.logger.Printf("Transient database initialized (durable storage unavailable)")
	} else {
		e.logger.Printf("Database initialized at %s", e.path)
	}
	e.responses <- Response{Kind: KindReady}
}

// openDB opens the durable store, falling back to a transient in-memory
// store when the file cannot be opened. The fallback is invisible to
// callers; both expose identical query semantics.
func (e *Engine) openDB() (*sql.DB, bool, error) {
	db, err := e.openAt(fmt.Sprintf("file:%s", e.path), true)
	if err == nil {
		return db, false, nil
	}
	e.logger.Printf("WARNING: durable store unavailable at %s: %v", e.path, err)

	db, err = e.openAt(":memory:", false)
	if err != nil {
		return nil, false, fmt.Errorf("failed to open transient store: %w", err)
	}
	return db, true, nil
}

func (e *Engine) openAt(dsn string, durable bool) (*sql.DB, error) {
	if durable {
		if err := os.MkdirAll(filepath.Dir(e.path), 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	// Single connection: the engine is the sole writer, and the transient
	// store only exists on one connection anyway.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA foreign_keys=ON",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to apply %q: %w", pragma, err)
		}
	}

	return db, nil
}

// handleQuery answers a single exec/get/getAll request.
func (e *Engine) handleQuery(req Request) Response {
	if e.db == nil {
		return Response{ID: req.ID, Kind: KindError, Err: "database not initialized"}
	}

	ctx := context.Background()
	var (
		result any
		err    error
	)
	switch req.Verb {
	case VerbExec:
		result, err = e.exec(ctx, req.SQL, req.Params)
	case VerbGet:
		// Assign only non-nil values: a typed-nil map boxed into the
		// any field would not compare equal to nil on the caller's side.
		var row map[string]any
		if row, err = e.get(ctx, req.SQL, req.Params); row != nil {
			result = row
		}
	case VerbGetAll:
		var rows []map[string]any
		if rows, err = e.getAll(ctx, req.SQL, req.Params); rows != nil {
			result = rows
		}
	}
	if err != nil {
		e.logger.Printf("Query error: %v", err)
		return Response{ID: req.ID, Kind: KindError, Err: err.Error()}
	}
	return Response{ID: req.ID, Kind: KindSuccess, Result: result}
}

func (e *Engine) exec(ctx context.Context, query string, params []any) (int64, error) {
	res, err := e.db.ExecContext(ctx, query, params...)
	if err != nil {
		return 0, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	return affected, nil
}

func (e *Engine) get(ctx context.Context, query string, params []any) (map[string]any, error) {
	rows, err := e.getAll(ctx, query, params)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return rows[0], nil
}

func (e *Engine) getAll(ctx context.Context, query string, params []any) ([]map[string]any, error) {
	rows, err := e.db.QueryContext(ctx, query, params...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, err
	}

	var out []map[string]any
	for rows.Next() {
		values := make([]any, len(cols))
		scan := make([]any, len(cols))
		for i := range values {
			scan[i] = &values[i]
		}
		if err := rows.Scan(scan...); err != nil {
			return nil, err
		}

		row := make(map[string]any, len(cols))
		for i, col := range cols {
			if b, ok := values[i].([]byte); ok {
				row[col] = string(b)
			} else {
				row[col] = values[i]
			}
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

// closeDB checkpoints the WAL and closes the handle.
func (e *Engine) closeDB() {
	if e.db == nil {
		return
	}
	if !e.transient {
		if _, err := e.db.Exec("PRAGMA wal_checkpoint(TRUNCATE)"); err != nil {
			e.logger.Printf("WARNING: failed to checkpoint WAL: %v", err)
		}
	}
	if err := e.db.Close(); err != nil {
		e.logger.Printf("WARNING: failed to close database: %v", err)
	}
	e.db = nil
}
