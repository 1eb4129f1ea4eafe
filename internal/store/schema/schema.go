// Package schema declares the local cache tables and applies additive
// column migrations on startup.
//
// The local database is a cache plus a write-ahead buffer for offline
// mutations, so the migration policy is deliberately a one-way ratchet:
// columns are only ever added, never dropped, renamed, or retyped. A store
// created by an older build is upgraded in place by diffing its live column
// set against the declared one and issuing ALTER TABLE ADD COLUMN for
// whatever is missing.
package schema

import (
	"context"
	"database/sql"
	"fmt"
	"log"
)

// Column describes one expected column of a table.
type Column struct {
	// Name is the column name.
	Name string
	// DDL is the type and constraints used when the column has to be
	// added to an existing table, e.g. "INTEGER NOT NULL DEFAULT 0".
	DDL string
}

// Table pairs the idempotent creation statement of a table with the full
// set of columns the current build expects.
//
// CreateSQL intentionally reflects the table's first shipped shape; columns
// introduced later appear only in Columns and are applied by Migrate. This
// keeps a fresh store and an upgraded store on the exact same path.
type Table struct {
	Name      string
	CreateSQL string
	Columns   []Column
}

// Tables lists every table of the local cache, in creation order.
// Foreign keys cascade deletes from chapters down to their dependents.
var Tables = []Table{
	{
		Name: "chapters",
		CreateSQL: `
		CREATE TABLE IF NOT EXISTS chapters (
			id TEXT PRIMARY KEY,
			title TEXT NOT NULL,
			summary TEXT,
			content TEXT,
			audio_url TEXT,
			order_index INTEGER NOT NULL DEFAULT 0,
			created_at TEXT,
			updated_at TEXT
		)`,
		Columns: []Column{
			{Name: "id"},
			{Name: "title"},
			{Name: "summary"},
			{Name: "content"},
			{Name: "audio_url"},
			{Name: "order_index"},
			{Name: "created_at"},
			{Name: "updated_at"},
		},
	},
	{
		Name: "questions",
		CreateSQL: `
		CREATE TABLE IF NOT EXISTS questions (
			id TEXT PRIMARY KEY,
			chapter_id TEXT NOT NULL REFERENCES chapters(id) ON DELETE CASCADE,
			text TEXT NOT NULL,
			order_index INTEGER NOT NULL DEFAULT 0,
			created_at TEXT
		)`,
		Columns: []Column{
			{Name: "id"},
			{Name: "chapter_id"},
			{Name: "text"},
			{Name: "order_index"},
			{Name: "created_at"},
		},
	},
	{
		Name: "chapter_pages",
		CreateSQL: `
		CREATE TABLE IF NOT EXISTS chapter_pages (
			id TEXT PRIMARY KEY,
			chapter_id TEXT NOT NULL REFERENCES chapters(id) ON DELETE CASCADE,
			subtitle TEXT,
			page_number INTEGER NOT NULL,
			content TEXT,
			order_index INTEGER NOT NULL DEFAULT 0,
			created_at TEXT,
			updated_at TEXT
		)`,
		Columns: []Column{
			{Name: "id"},
			{Name: "chapter_id"},
			{Name: "subtitle"},
			{Name: "page_number"},
			{Name: "content"},
			{Name: "order_index"},
			{Name: "created_at"},
			{Name: "updated_at"},
		},
	},
	{
		Name: "user_answers",
		CreateSQL: `
		CREATE TABLE IF NOT EXISTS user_answers (
			chapter_id TEXT NOT NULL REFERENCES chapters(id) ON DELETE CASCADE,
			question_id TEXT NOT NULL,
			answer TEXT,
			updated_at TEXT,
			PRIMARY KEY (chapter_id, question_id)
		)`,
		Columns: []Column{
			{Name: "chapter_id"},
			{Name: "question_id"},
			{Name: "answer"},
			{Name: "updated_at"},
			// Added for offline buffering: 0 = not yet confirmed by the
			// remote store, 1 = confirmed.
			{Name: "synced", DDL: "INTEGER NOT NULL DEFAULT 0"},
		},
	},
	{
		Name: "progress",
		CreateSQL: `
		CREATE TABLE IF NOT EXISTS progress (
			chapter_id TEXT PRIMARY KEY REFERENCES chapters(id) ON DELETE CASCADE,
			is_read INTEGER NOT NULL DEFAULT 0,
			audio_progress REAL NOT NULL DEFAULT 0
		)`,
		Columns: []Column{
			{Name: "chapter_id"},
			{Name: "is_read"},
			{Name: "audio_progress"},
			{Name: "is_completed", DDL: "INTEGER NOT NULL DEFAULT 0"},
			{Name: "completed_at", DDL: "TEXT"},
			{Name: "is_audio_finished", DDL: "INTEGER NOT NULL DEFAULT 0"},
			{Name: "audio_play_count", DDL: "INTEGER NOT NULL DEFAULT 0"},
		},
	},
	{
		Name: "page_read_progress",
		CreateSQL: `
		CREATE TABLE IF NOT EXISTS page_read_progress (
			chapter_id TEXT NOT NULL REFERENCES chapters(id) ON DELETE CASCADE,
			page_id TEXT NOT NULL,
			is_read INTEGER NOT NULL DEFAULT 0,
			created_at TEXT,
			updated_at TEXT,
			PRIMARY KEY (chapter_id, page_id)
		)`,
		Columns: []Column{
			{Name: "chapter_id"},
			{Name: "page_id"},
			{Name: "is_read"},
			{Name: "created_at"},
			{Name: "updated_at"},
		},
	},
	{
		Name: "user_profile",
		CreateSQL: `
		CREATE TABLE IF NOT EXISTS user_profile (
			id INTEGER PRIMARY KEY CHECK (id = 1),
			username TEXT,
			email TEXT,
			is_verified INTEGER NOT NULL DEFAULT 0
		)`,
		Columns: []Column{
			{Name: "id"},
			{Name: "username"},
			{Name: "email"},
			{Name: "is_verified"},
			{Name: "is_admin", DDL: "INTEGER NOT NULL DEFAULT 0"},
		},
	},
}

// Create creates every declared table if it does not already exist.
// Safe to call on every startup.
func Create(ctx context.Context, db *sql.DB) error {
	for _, tbl := range Tables {
		if _, err := db.ExecContext(ctx, tbl.CreateSQL); err != nil {
			return fmt.Errorf("failed to create table %s: %w", tbl.Name, err)
		}
	}
	return nil
}

// Migrate applies additive column migrations to every declared table.
//
// For each table the live column set is read via PRAGMA table_info and
// diffed against the declared set; missing columns are added with their
// declared DDL. Individual failures are logged and skipped so a partially
// upgraded store still comes up; queries touching a missing column fail on
// their own terms later.
func Migrate(ctx context.Context, db *sql.DB, logger *log.Logger) error {
	for _, tbl := range Tables {
		existing, err := tableColumns(ctx, db, tbl.Name)
		if err != nil {
			return fmt.Errorf("failed to inspect table %s: %w", tbl.Name, err)
		}

		for _, col := range tbl.Columns {
			if existing[col.Name] {
				continue
			}
			if col.DDL == "" {
				// Base column missing but not declaratively addable; the
				// CREATE statement owns it, so leave it alone.
				logger.Printf("WARNING: table %s is missing base column %s", tbl.Name, col.Name)
				continue
			}

			stmt := fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s %s", tbl.Name, col.Name, col.DDL)
			if _, err := db.ExecContext(ctx, stmt); err != nil {
				logger.Printf("WARNING: failed to add column %s.%s: %v", tbl.Name, col.Name, err)
				continue
			}
			logger.Printf("Added column %s.%s", tbl.Name, col.Name)
		}
	}
	return nil
}

// tableColumns returns the set of column names currently present on a table.
func tableColumns(ctx context.Context, db *sql.DB, table string) (map[string]bool, error) {
	rows, err := db.QueryContext(ctx, fmt.Sprintf("PRAGMA table_info(%s)", table))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	cols := make(map[string]bool)
	for rows.Next() {
		var (
			cid        int
			name, typ  string
			notNull    int
			defaultVal sql.NullString
			pk         int
		)
		if err := rows.Scan(&cid, &name, &typ, &notNull, &defaultVal, &pk); err != nil {
			return nil, err
		}
		cols[name] = true
	}
	return cols, rows.Err()
}
