// Package store presents the engine's asynchronous message protocol as a
// set of awaitable calls.
//
// A Store is an explicit handle threaded through the call sites that need
// it. Init is idempotent: however many goroutines race to call it, exactly
// one engine is started and every caller observes the same readiness
// outcome. Queries are correlation-matched, so concurrent calls are safe
// regardless of the order responses arrive in.
package store

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/griiettner/eventos-finais/internal/store/engine"
)

// Engine is the message-passing boundary the store drives. Satisfied by
// *engine.Engine.
type Engine interface {
	Start()
	Requests() chan<- engine.Request
	Responses() <-chan engine.Response
	Close() error
}

// QueryError is an error reported by the engine for a specific query.
// It is distinct from context errors, which mean the caller stopped
// waiting, not that the engine rejected the query.
type QueryError struct {
	Verb    engine.Verb
	Message string
}

func (e *QueryError) Error() string {
	return fmt.Sprintf("%s failed: %s", e.Verb, e.Message)
}

// Store is the awaitable client API over one engine instance.
type Store struct {
	eng    Engine
	logger *log.Logger

	initOnce  sync.Once
	readyOnce sync.Once
	started   atomic.Bool
	ready     chan struct{}
	initErr   error

	mu      sync.Mutex
	pending map[string]chan engine.Response

	dispatchDone chan struct{}
}

// Open creates a store backed by a new engine for the database at path.
// The engine is not started until Init is called.
func Open(path string, logger *log.Logger) *Store {
	return New(engine.New(path, logger), logger)
}

// New creates a store over an existing engine.
func New(eng Engine, logger *log.Logger) *Store {
	if logger == nil {
		logger = log.New(os.Stderr, "[store] ", log.LstdFlags)
	}
	return &Store{
		eng:          eng,
		logger:       logger,
		ready:        make(chan struct{}),
		pending:      make(map[string]chan engine.Response),
		dispatchDone: make(chan struct{}),
	}
}

// Init starts the engine exactly once and waits for it to become ready.
//
// Every caller shares the same outcome: all resolve together when the
// engine signals READY, or all receive the same init error. Waiting is
// bounded by ctx; a caller that stops waiting does not disturb the
// initialization itself.
func (s *Store) Init(ctx context.Context) error {
	s.initOnce.Do(func() {
		s.started.Store(true)
		s.eng.Start()
		go s.dispatch()
		s.eng.Requests() <- engine.Request{Verb: engine.VerbInit}
	})

	select {
	case <-s.ready:
		return s.initErr
	case <-ctx.Done():
		return fmt.Errorf("awaiting store readiness: %w", ctx.Err())
	}
}

// Exec runs a mutating statement and returns the number of affected rows.
func (s *Store) Exec(ctx context.Context, query string, params ...any) (int64, error) {
	result, err := s.query(ctx, engine.VerbExec, query, params)
	if err != nil {
		return 0, err
	}
	affected, ok := result.(int64)
	if !ok {
		return 0, fmt.Errorf("unexpected exec result type %T", result)
	}
	return affected, nil
}

// Get returns at most one row as a column map, or nil when nothing matches.
func (s *Store) Get(ctx context.Context, query string, params ...any) (map[string]any, error) {
	result, err := s.query(ctx, engine.VerbGet, query, params)
	if err != nil {
		return nil, err
	}
	if result == nil {
		return nil, nil
	}
	row, ok := result.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("unexpected get result type %T", result)
	}
	return row, nil
}

// GetAll returns every matching row as a slice of column maps.
func (s *Store) GetAll(ctx context.Context, query string, params ...any) ([]map[string]any, error) {
	result, err := s.query(ctx, engine.VerbGetAll, query, params)
	if err != nil {
		return nil, err
	}
	if result == nil {
		return nil, nil
	}
	rows, ok := result.([]map[string]any)
	if !ok {
		return nil, fmt.Errorf("unexpected getAll result type %T", result)
	}
	return rows, nil
}

// Close shuts down the engine and releases the dispatch goroutine.
// Outstanding queries fail rather than hang.
func (s *Store) Close() error {
	if !s.started.Load() {
		return nil
	}
	err := s.eng.Close()
	<-s.dispatchDone
	return err
}

// query awaits readiness, sends one correlated request, and waits for the
// matching response or the caller's deadline.
func (s *Store) query(ctx context.Context, verb engine.Verb, query string, params []any) (any, error) {
	select {
	case <-s.ready:
		if s.initErr != nil {
			return nil, fmt.Errorf("store unavailable: %w", s.initErr)
		}
	case <-ctx.Done():
		return nil, fmt.Errorf("awaiting store readiness: %w", ctx.Err())
	}

	id := uuid.NewString()
	ch := make(chan engine.Response, 1)

	s.mu.Lock()
	s.pending[id] = ch
	s.mu.Unlock()

	req := engine.Request{ID: id, Verb: verb, SQL: query, Params: params}
	select {
	case s.eng.Requests() <- req:
	case <-ctx.Done():
		s.unregister(id)
		return nil, fmt.Errorf("sending %s request: %w", verb, ctx.Err())
	}

	select {
	case resp := <-ch:
		if resp.Kind == engine.KindError {
			return nil, &QueryError{Verb: verb, Message: resp.Err}
		}
		return resp.Result, nil
	case <-ctx.Done():
		s.unregister(id)
		return nil, fmt.Errorf("awaiting %s response: %w", verb, ctx.Err())
	}
}

// dispatch routes engine responses to their pending callers by correlation
// ID. Responses without an ID are init-time signals.
func (s *Store) dispatch() {
	defer close(s.dispatchDone)

	for resp := range s.eng.Responses() {
		if resp.ID == "" {
			switch resp.Kind {
			case engine.KindReady:
				s.resolveReady(nil)
			case engine.KindError:
				s.resolveReady(errors.New(resp.Err))
			}
			continue
		}

		s.mu.Lock()
		ch, ok := s.pending[resp.ID]
		if ok {
			delete(s.pending, resp.ID)
		}
		s.mu.Unlock()

		if !ok {
			// Caller gave up before the response arrived.
			continue
		}
		ch <- resp
	}

	// Engine shut down: fail anything still in flight.
	s.mu.Lock()
	for id, ch := range s.pending {
		ch <- engine.Response{ID: id, Kind: engine.KindError, Err: "engine closed"}
		delete(s.pending, id)
	}
	s.mu.Unlock()
	s.resolveReady(errors.New("engine closed before becoming ready"))
}

// resolveReady records the init outcome once; later calls are no-ops.
func (s *Store) resolveReady(err error) {
	s.readyOnce.Do(func() {
		s.initErr = err
		close(s.ready)
	})
}

// unregister drops a pending entry after its caller stopped waiting.
func (s *Store) unregister(id string) {
	s.mu.Lock()
	delete(s.pending, id)
	s.mu.Unlock()
}
