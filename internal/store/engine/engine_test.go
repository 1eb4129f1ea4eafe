package engine

import (
	"io"
	"log"
	"path/filepath"
	"testing"
	"time"
)

const responseTimeout = 10 * time.Second

// startEngine launches an engine for a fresh store under tmp and waits for
// READY.
func startEngine(t *testing.T, path string) *Engine {
	t.Helper()

	eng := New(path, log.New(io.Discard, "", 0))
	eng.Start()
	t.Cleanup(func() { eng.Close() })

	eng.Requests() <- Request{Verb: VerbInit}
	resp := nextResponse(t, eng)
	if resp.Kind != KindReady {
		t.Fatalf("Expected READY, got %s (%s)", resp.Kind, resp.Err)
	}
	if resp.ID != "" {
		t.Fatalf("READY must carry no correlation ID, got %q", resp.ID)
	}
	return eng
}

func nextResponse(t *testing.T, eng *Engine) Response {
	t.Helper()

	select {
	case resp, ok := <-eng.Responses():
		if !ok {
			t.Fatal("Response channel closed unexpectedly")
		}
		return resp
	case <-time.After(responseTimeout):
		t.Fatal("Timed out waiting for engine response")
		return Response{}
	}
}

func TestInitReady(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache.db")
	eng := startEngine(t, path)

	if eng.transient {
		t.Error("Expected durable store when the path is writable")
	}
}

func TestInitFallsBackToTransientStore(t *testing.T) {
	// Pointing the engine at an existing directory makes the durable open
	// fail; it must still come up READY on the transient store.
	eng := startEngine(t, t.TempDir())

	if !eng.transient {
		t.Fatal("Expected transient fallback")
	}

	// Queries work against the fallback store.
	eng.Requests() <- Request{
		ID:     "q1",
		Verb:   VerbExec,
		SQL:    "INSERT INTO chapters (id, title, order_index) VALUES (?, ?, ?)",
		Params: []any{"c1", "Chapter One", 1},
	}
	resp := nextResponse(t, eng)
	if resp.Kind != KindSuccess {
		t.Fatalf("exec failed on transient store: %s", resp.Err)
	}

	eng.Requests() <- Request{
		ID:     "q2",
		Verb:   VerbGet,
		SQL:    "SELECT title FROM chapters WHERE id = ?",
		Params: []any{"c1"},
	}
	resp = nextResponse(t, eng)
	if resp.Kind != KindSuccess {
		t.Fatalf("get failed on transient store: %s", resp.Err)
	}
	row, ok := resp.Result.(map[string]any)
	if !ok || row["title"] != "Chapter One" {
		t.Errorf("Unexpected row: %#v", resp.Result)
	}
}

func TestQueryBeforeInit(t *testing.T) {
	eng := New(filepath.Join(t.TempDir(), "cache.db"), log.New(io.Discard, "", 0))
	eng.Start()
	defer eng.Close()

	eng.Requests() <- Request{ID: "early", Verb: VerbGet, SQL: "SELECT 1"}
	resp := nextResponse(t, eng)
	if resp.Kind != KindError {
		t.Fatalf("Expected ERROR before INIT, got %s", resp.Kind)
	}
	if resp.ID != "early" {
		t.Errorf("Error must echo the request ID, got %q", resp.ID)
	}
}

func TestUnknownVerb(t *testing.T) {
	eng := startEngine(t, filepath.Join(t.TempDir(), "cache.db"))

	eng.Requests() <- Request{ID: "bad", Verb: Verb("vacuum")}
	resp := nextResponse(t, eng)
	if resp.Kind != KindError {
		t.Fatalf("Expected ERROR for unknown verb, got %s", resp.Kind)
	}
	if resp.ID != "bad" {
		t.Errorf("Error must echo the request ID, got %q", resp.ID)
	}
}

func TestQueryErrorDoesNotKillEngine(t *testing.T) {
	eng := startEngine(t, filepath.Join(t.TempDir(), "cache.db"))

	eng.Requests() <- Request{ID: "bad-sql", Verb: VerbGet, SQL: "SELECT FROM nowhere"}
	resp := nextResponse(t, eng)
	if resp.Kind != KindError {
		t.Fatalf("Expected ERROR for bad SQL, got %s", resp.Kind)
	}
	if resp.ID != "bad-sql" {
		t.Errorf("Error must echo the request ID, got %q", resp.ID)
	}

	// Engine keeps serving other requests.
	eng.Requests() <- Request{ID: "ok", Verb: VerbGet, SQL: "SELECT COUNT(*) AS n FROM chapters"}
	resp = nextResponse(t, eng)
	if resp.Kind != KindSuccess {
		t.Fatalf("Engine stopped serving after a query error: %s", resp.Err)
	}
}

func TestExecGetGetAll(t *testing.T) {
	eng := startEngine(t, filepath.Join(t.TempDir(), "cache.db"))

	eng.Requests() <- Request{
		ID:     "ins",
		Verb:   VerbExec,
		SQL:    "INSERT INTO chapters (id, title, order_index) VALUES (?, ?, ?), (?, ?, ?)",
		Params: []any{"c1", "One", 1, "c2", "Two", 2},
	}
	resp := nextResponse(t, eng)
	if resp.Kind != KindSuccess {
		t.Fatalf("exec failed: %s", resp.Err)
	}
	if affected, ok := resp.Result.(int64); !ok || affected != 2 {
		t.Errorf("Expected 2 rows affected, got %#v", resp.Result)
	}

	eng.Requests() <- Request{
		ID:     "one",
		Verb:   VerbGet,
		SQL:    "SELECT id, title FROM chapters WHERE id = ?",
		Params: []any{"c2"},
	}
	resp = nextResponse(t, eng)
	if resp.Kind != KindSuccess {
		t.Fatalf("get failed: %s", resp.Err)
	}
	row, ok := resp.Result.(map[string]any)
	if !ok || row["id"] != "c2" || row["title"] != "Two" {
		t.Errorf("Unexpected get result: %#v", resp.Result)
	}

	eng.Requests() <- Request{
		ID:     "none",
		Verb:   VerbGet,
		SQL:    "SELECT id FROM chapters WHERE id = ?",
		Params: []any{"missing"},
	}
	resp = nextResponse(t, eng)
	if resp.Kind != KindSuccess || resp.Result != nil {
		t.Errorf("get with no match must succeed with nil result, got %#v (%s)", resp.Result, resp.Err)
	}

	eng.Requests() <- Request{
		ID:   "all",
		Verb: VerbGetAll,
		SQL:  "SELECT id FROM chapters ORDER BY order_index",
	}
	resp = nextResponse(t, eng)
	if resp.Kind != KindSuccess {
		t.Fatalf("getAll failed: %s", resp.Err)
	}
	rows, ok := resp.Result.([]map[string]any)
	if !ok || len(rows) != 2 {
		t.Fatalf("Expected 2 rows, got %#v", resp.Result)
	}
	if rows[0]["id"] != "c1" || rows[1]["id"] != "c2" {
		t.Errorf("Rows out of order: %#v", rows)
	}

	eng.Requests() <- Request{
		ID:     "empty",
		Verb:   VerbGetAll,
		SQL:    "SELECT id FROM chapters WHERE id = ?",
		Params: []any{"missing"},
	}
	resp = nextResponse(t, eng)
	if resp.Kind != KindSuccess || resp.Result != nil {
		t.Errorf("getAll with no rows must succeed with nil result, got %#v (%s)", resp.Result, resp.Err)
	}
}

func TestSerialOrdering(t *testing.T) {
	eng := startEngine(t, filepath.Join(t.TempDir(), "cache.db"))

	// Requests are processed in arrival order, so responses come back in
	// the same order they were sent.
	ids := []string{"a", "b", "c", "d"}
	for _, id := range ids {
		eng.Requests() <- Request{ID: id, Verb: VerbGet, SQL: "SELECT 1 AS one"}
	}
	for _, want := range ids {
		resp := nextResponse(t, eng)
		if resp.ID != want {
			t.Fatalf("Expected response for %q, got %q", want, resp.ID)
		}
	}
}

func TestDurableStoreSurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache.db")

	eng := New(path, log.New(io.Discard, "", 0))
	eng.Start()
	eng.Requests() <- Request{Verb: VerbInit}
	if resp := nextResponse(t, eng); resp.Kind != KindReady {
		t.Fatalf("Expected READY, got %s (%s)", resp.Kind, resp.Err)
	}
	eng.Requests() <- Request{
		ID:   "w",
		Verb: VerbExec,
		SQL:  "INSERT INTO chapters (id, title, order_index) VALUES ('c1', 'Persisted', 1)",
	}
	if resp := nextResponse(t, eng); resp.Kind != KindSuccess {
		t.Fatalf("exec failed: %s", resp.Err)
	}
	if err := eng.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	reopened := startEngine(t, path)
	reopened.Requests() <- Request{
		ID:   "r",
		Verb: VerbGet,
		SQL:  "SELECT title FROM chapters WHERE id = 'c1'",
	}
	resp := nextResponse(t, reopened)
	if resp.Kind != KindSuccess {
		t.Fatalf("get failed: %s", resp.Err)
	}
	row, ok := resp.Result.(map[string]any)
	if !ok || row["title"] != "Persisted" {
		t.Errorf("Row did not survive reopen: %#v", resp.Result)
	}
}
