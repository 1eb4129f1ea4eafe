// Package syncer moves locally buffered answers to the remote store and
// tracks connectivity state.
//
// The manager runs a three-state machine: online (idle), offline (no
// network), and syncing (a push is in flight). A push failure is soft: the
// manager returns to online, leaves the affected rows unsynced, and relies
// on the next trigger to retry. There is no backoff; retries are driven by
// connectivity transitions and the periodic ticker alone. The remote
// upsert is idempotent by composite key, so repeating a push after an
// ambiguous failure is always safe.
package syncer

import (
	"context"
	"log"
	"os"
	"sync"
	"time"

	"github.com/griiettner/eventos-finais/internal/models"
	"github.com/griiettner/eventos-finais/internal/repo"
)

// Status is the sync manager's externally visible state.
type Status string

const (
	// StatusOnline means the last push succeeded or nothing is pending.
	StatusOnline Status = "online"
	// StatusOffline means the remote store is unreachable.
	StatusOffline Status = "offline"
	// StatusSyncing means a push is in flight.
	StatusSyncing Status = "syncing"
)

// Remote is the slice of the backend the manager drives.
type Remote interface {
	// Health reports whether the remote store is reachable.
	Health(ctx context.Context) error
	// PutAnswer idempotently upserts one answer for the user.
	PutAnswer(ctx context.Context, userID string, a models.UserAnswer) error
}

// Result summarizes one sync pass.
type Result struct {
	// Pushed counts rows confirmed by the remote store and marked synced.
	Pushed int
	// Failed counts rows whose push or local mark failed; they stay
	// unsynced for the next pass.
	Failed int
}

// Config holds manager configuration.
type Config struct {
	// UserID scopes remote answer keys to the authenticated user.
	UserID string

	// Interval is the periodic sync trigger. Offline, the same tick
	// doubles as the reconnect probe.
	Interval time.Duration

	// StartDelay postpones the first attempt briefly after Run starts.
	StartDelay time.Duration

	// Logger for sync activity.
	Logger *log.Logger
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Interval:   30 * time.Second,
		StartDelay: 100 * time.Millisecond,
		Logger:     log.New(os.Stderr, "[sync] ", log.LstdFlags),
	}
}

// Manager reconciles the local write-ahead buffer with the remote store.
type Manager struct {
	repo   *repo.Repo
	remote Remote
	config *Config

	mu         sync.Mutex
	status     Status
	lastSync   time.Time
	hasSynced  bool
	onStatus   []func(Status)
	onComplete []func(Result)

	connectivity chan bool
	trigger      chan struct{}
}

// New creates a manager. Run starts the loop.
func New(r *repo.Repo, remote Remote, config *Config) *Manager {
	if config == nil {
		config = DefaultConfig()
	}
	if config.Logger == nil {
		config.Logger = log.New(os.Stderr, "[sync] ", log.LstdFlags)
	}
	return &Manager{
		repo:         r,
		remote:       remote,
		config:       config,
		status:       StatusOnline,
		connectivity: make(chan bool, 8),
		trigger:      make(chan struct{}, 1),
	}
}

// Status returns the current state.
func (m *Manager) Status() Status {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.status
}

// LastSync returns when the last fully successful pass finished. The
// timestamp is for display only and carries no correctness semantics.
func (m *Manager) LastSync() (time.Time, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastSync, m.hasSynced
}

// OnStatusChange registers a listener called on every state transition.
// Must be called before Run.
func (m *Manager) OnStatusChange(fn func(Status)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onStatus = append(m.onStatus, fn)
}

// OnSyncComplete registers a listener called after every sync pass.
// Must be called before Run.
func (m *Manager) OnSyncComplete(fn func(Result)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onComplete = append(m.onComplete, fn)
}

// SetConnectivity feeds a network-state signal into the loop. Restored
// connectivity triggers an immediate sync attempt; lost connectivity
// moves the manager offline without starting new attempts.
func (m *Manager) SetConnectivity(online bool) {
	select {
	case m.connectivity <- online:
	default:
	}
}

// TriggerSync requests a sync pass outside the regular schedule. Ignored
// while offline.
func (m *Manager) TriggerSync() {
	select {
	case m.trigger <- struct{}{}:
	default:
	}
}

// Run drives the state machine until ctx is cancelled.
func (m *Manager) Run(ctx context.Context) error {
	m.config.Logger.Printf("Starting sync manager (interval %v)", m.config.Interval)

	start := time.NewTimer(m.config.StartDelay)
	defer start.Stop()
	ticker := time.NewTicker(m.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			m.config.Logger.Println("Sync manager stopped")
			return nil

		case <-start.C:
			if err := m.remote.Health(ctx); err != nil {
				m.config.Logger.Printf("Remote unreachable at start: %v", err)
				m.setStatus(StatusOffline)
				continue
			}
			m.setStatus(StatusOnline)
			m.syncOnce(ctx)

		case online := <-m.connectivity:
			if !online {
				// A pass already in flight fails on its own; no new one
				// is started.
				m.setStatus(StatusOffline)
				continue
			}
			if m.Status() == StatusOffline {
				m.setStatus(StatusOnline)
				m.syncOnce(ctx)
			}

		case <-ticker.C:
			if m.Status() == StatusOffline {
				// Reconnect probe: a reachable remote flips us online and
				// kicks off the pending backlog.
				if err := m.remote.Health(ctx); err != nil {
					continue
				}
				m.setStatus(StatusOnline)
			}
			m.syncOnce(ctx)

		case <-m.trigger:
			if m.Status() == StatusOffline {
				continue
			}
			m.syncOnce(ctx)
		}
	}
}

// SyncOnce performs a single pass immediately, regardless of the loop.
// Used by the CLI's one-shot sync command.
func (m *Manager) SyncOnce(ctx context.Context) Result {
	return m.syncOnce(ctx)
}

// syncOnce pushes every unsynced answer row-by-row.
//
// Each row's synced flag is flipped independently and only after that
// row's own confirmed success, so a failed batch never marks unconfirmed
// rows. Order does not matter: rows are independent by identity.
func (m *Manager) syncOnce(ctx context.Context) Result {
	m.setStatus(StatusSyncing)
	var result Result
	defer func() {
		m.setStatus(StatusOnline)
		m.notifyComplete(result)
	}()

	rows, err := m.repo.UnsyncedAnswers(ctx)
	if err != nil {
		m.config.Logger.Printf("Sync failed to read unsynced rows: %v", err)
		result.Failed = 1
		return result
	}
	if len(rows) == 0 {
		m.mu.Lock()
		m.lastSync = time.Now()
		m.hasSynced = true
		m.mu.Unlock()
		return result
	}

	m.config.Logger.Printf("Syncing %d answers", len(rows))
	for _, a := range rows {
		if err := m.remote.PutAnswer(ctx, m.config.UserID, a); err != nil {
			m.config.Logger.Printf("WARNING: failed to push answer %s/%s: %v",
				a.ChapterID, a.QuestionID, err)
			result.Failed++
			continue
		}
		if err := m.repo.MarkAnswerSynced(ctx, a.ChapterID, a.QuestionID); err != nil {
			m.config.Logger.Printf("WARNING: failed to mark answer %s/%s synced: %v",
				a.ChapterID, a.QuestionID, err)
			result.Failed++
			continue
		}
		result.Pushed++
	}

	if result.Failed == 0 {
		m.mu.Lock()
		m.lastSync = time.Now()
		m.hasSynced = true
		m.mu.Unlock()
	}

	m.config.Logger.Printf("Sync complete: pushed=%d failed=%d", result.Pushed, result.Failed)
	return result
}

// setStatus transitions the state machine, notifying listeners on change.
func (m *Manager) setStatus(s Status) {
	m.mu.Lock()
	if m.status == s {
		m.mu.Unlock()
		return
	}
	m.status = s
	listeners := make([]func(Status), len(m.onStatus))
	copy(listeners, m.onStatus)
	m.mu.Unlock()

	for _, fn := range listeners {
		fn(s)
	}
}

func (m *Manager) notifyComplete(result Result) {
	m.mu.Lock()
	listeners := make([]func(Result), len(m.onComplete))
	copy(listeners, m.onComplete)
	m.mu.Unlock()

	for _, fn := range listeners {
		fn(result)
	}
}
