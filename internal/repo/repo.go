// Package repo provides typed queries over the store façade.
//
// The repository is the only place SQL for the local cache lives. Reads
// return models; writes that buffer offline mutations reset the synced
// flag so the sync manager picks them up.
package repo

import (
	"time"

	"github.com/griiettner/eventos-finais/internal/store"
)

// timeLayout is the canonical timestamp encoding in the local store.
const timeLayout = time.RFC3339

// Repo wraps a store with the application's query set.
type Repo struct {
	store *store.Store
}

// New creates a repository over an initialized store.
func New(s *store.Store) *Repo {
	return &Repo{store: s}
}

// Store exposes the underlying façade for callers that need raw access,
// such as the CLI's status command.
func (r *Repo) Store() *store.Store {
	return r.store
}

func fieldString(row map[string]any, key string) string {
	if v, ok := row[key].(string); ok {
		return v
	}
	return ""
}

func fieldInt(row map[string]any, key string) int {
	switch v := row[key].(type) {
	case int64:
		return int(v)
	case float64:
		return int(v)
	}
	return 0
}

func fieldFloat(row map[string]any, key string) float64 {
	switch v := row[key].(type) {
	case float64:
		return v
	case int64:
		return float64(v)
	}
	return 0
}

func fieldBool(row map[string]any, key string) bool {
	return fieldInt(row, key) != 0
}

func fieldTime(row map[string]any, key string) *time.Time {
	s := fieldString(row, key)
	if s == "" {
		return nil
	}
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		return nil
	}
	return &t
}

func formatTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UTC().Format(timeLayout)
}
