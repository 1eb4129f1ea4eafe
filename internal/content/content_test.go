package content

import (
	"context"
	"encoding/json"
	"io"
	"log"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/griiettner/eventos-finais/internal/models"
	"github.com/griiettner/eventos-finais/internal/repo"
	"github.com/griiettner/eventos-finais/internal/store"
)

func setupContent(t *testing.T) (*Importer, *repo.Repo) {
	t.Helper()

	logger := log.New(io.Discard, "", 0)
	s := store.Open(filepath.Join(t.TempDir(), "content.db"), logger)
	t.Cleanup(func() { s.Close() })
	if err := s.Init(context.Background()); err != nil {
		t.Fatalf("init store: %v", err)
	}

	r := repo.New(s)
	return NewImporter(r, logger), r
}

func writeDocument(t *testing.T, dir, name string, doc ChapterDocument) string {
	t.Helper()
	data, err := json.Marshal(doc)
	if err != nil {
		t.Fatalf("marshal document: %v", err)
	}
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write document: %v", err)
	}
	return path
}

func sampleDocument(id, title string) ChapterDocument {
	return ChapterDocument{
		Chapter: models.Chapter{ID: id, Title: title, OrderIndex: 1},
		Pages: []models.ChapterPage{
			{ID: id + "-p1", PageNumber: 1, OrderIndex: 1, Content: "first"},
			{ID: id + "-p2", PageNumber: 2, OrderIndex: 2, Content: "second"},
		},
		Questions: []models.Question{
			{ID: id + "-q1", Text: "Why?", OrderIndex: 1},
		},
	}
}

func TestImportFileCachesChapterTree(t *testing.T) {
	im, r := setupContent(t)
	ctx := context.Background()
	dir := t.TempDir()

	path := writeDocument(t, dir, "ch1.json", sampleDocument("ch1", "Chapter One"))
	if err := im.ImportFile(ctx, path); err != nil {
		t.Fatalf("import: %v", err)
	}

	ch, err := r.Chapter(ctx, "ch1")
	if err != nil {
		t.Fatalf("chapter: %v", err)
	}
	if ch == nil || ch.Title != "Chapter One" {
		t.Fatalf("chapter = %+v, want Chapter One", ch)
	}

	pages, err := r.PagesForChapter(ctx, "ch1")
	if err != nil {
		t.Fatalf("pages: %v", err)
	}
	if len(pages) != 2 {
		t.Fatalf("got %d pages, want 2", len(pages))
	}
	if pages[0].ChapterID != "ch1" {
		t.Fatalf("page chapter id = %q, want ch1", pages[0].ChapterID)
	}

	questions, err := r.QuestionsForChapter(ctx, "ch1")
	if err != nil {
		t.Fatalf("questions: %v", err)
	}
	if len(questions) != 1 {
		t.Fatalf("got %d questions, want 1", len(questions))
	}
}

func TestImportFileIsIdempotent(t *testing.T) {
	im, r := setupContent(t)
	ctx := context.Background()
	dir := t.TempDir()

	path := writeDocument(t, dir, "ch1.json", sampleDocument("ch1", "Chapter One"))
	if err := im.ImportFile(ctx, path); err != nil {
		t.Fatalf("first import: %v", err)
	}
	if err := im.ImportFile(ctx, path); err != nil {
		t.Fatalf("second import: %v", err)
	}

	pages, err := r.PagesForChapter(ctx, "ch1")
	if err != nil {
		t.Fatalf("pages: %v", err)
	}
	if len(pages) != 2 {
		t.Fatalf("got %d pages after re-import, want 2", len(pages))
	}
}

func TestImportDirSkipsBadDocuments(t *testing.T) {
	im, r := setupContent(t)
	ctx := context.Background()
	dir := t.TempDir()

	writeDocument(t, dir, "ch1.json", sampleDocument("ch1", "Chapter One"))
	writeDocument(t, dir, "ch2.json", sampleDocument("ch2", "Chapter Two"))
	if err := os.WriteFile(filepath.Join(dir, "broken.json"), []byte("{not json"), 0o644); err != nil {
		t.Fatalf("write broken file: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("ignore me"), 0o644); err != nil {
		t.Fatalf("write notes: %v", err)
	}

	n, err := im.ImportDir(ctx, dir)
	if err != nil {
		t.Fatalf("import dir: %v", err)
	}
	if n != 2 {
		t.Fatalf("imported %d documents, want 2", n)
	}

	chapters, err := r.Chapters(ctx)
	if err != nil {
		t.Fatalf("chapters: %v", err)
	}
	if len(chapters) != 2 {
		t.Fatalf("got %d chapters, want 2", len(chapters))
	}
}

func TestDocumentValidation(t *testing.T) {
	doc := sampleDocument("", "No ID")
	if err := doc.Validate(); err == nil {
		t.Fatal("expected error for missing chapter id")
	}

	doc = sampleDocument("ch1", "Chapter One")
	doc.Pages[1].ID = ""
	if err := doc.Validate(); err == nil {
		t.Fatal("expected error for missing page id")
	}
}

func TestWatcherReimportsOnChange(t *testing.T) {
	im, r := setupContent(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	dir := t.TempDir()

	w, err := NewWatcher(im, log.New(io.Discard, "", 0))
	if err != nil {
		t.Fatalf("new watcher: %v", err)
	}
	w.debounce = 20 * time.Millisecond
	if err := w.Start(ctx, dir); err != nil {
		t.Fatalf("start watcher: %v", err)
	}
	defer w.Stop()

	writeDocument(t, dir, "ch1.json", sampleDocument("ch1", "Original Title"))
	waitForTitle(t, r, "ch1", "Original Title")

	writeDocument(t, dir, "ch1.json", sampleDocument("ch1", "Edited Title"))
	waitForTitle(t, r, "ch1", "Edited Title")
}

func TestWatcherStopPreventsLateImports(t *testing.T) {
	logger := log.New(io.Discard, "", 0)
	s := store.Open(filepath.Join(t.TempDir(), "late.db"), logger)
	ctx := context.Background()
	if err := s.Init(ctx); err != nil {
		t.Fatalf("init store: %v", err)
	}
	r := repo.New(s)
	im := NewImporter(r, logger)
	dir := t.TempDir()

	w, err := NewWatcher(im, logger)
	if err != nil {
		t.Fatalf("new watcher: %v", err)
	}
	w.debounce = 50 * time.Millisecond
	if err := w.Start(ctx, dir); err != nil {
		t.Fatalf("start watcher: %v", err)
	}

	// Save lands inside the debounce window, then the watcher stops.
	writeDocument(t, dir, "ch1.json", sampleDocument("ch1", "Late Save"))
	time.Sleep(15 * time.Millisecond)
	if err := w.Stop(); err != nil {
		t.Fatalf("stop: %v", err)
	}

	ch, err := r.Chapter(ctx, "ch1")
	if err != nil {
		t.Fatalf("chapter: %v", err)
	}
	if ch != nil {
		t.Fatalf("import ran after Stop returned: %+v", ch)
	}

	// The armed timer must not reach the store once it is closed.
	s.Close()
	time.Sleep(100 * time.Millisecond)
}

func TestWatcherStopIsIdempotent(t *testing.T) {
	im, _ := setupContent(t)
	ctx := context.Background()

	w, err := NewWatcher(im, log.New(io.Discard, "", 0))
	if err != nil {
		t.Fatalf("new watcher: %v", err)
	}
	if err := w.Start(ctx, t.TempDir()); err != nil {
		t.Fatalf("start: %v", err)
	}
	if !w.IsRunning() {
		t.Fatal("watcher not running after Start")
	}
	if err := w.Stop(); err != nil {
		t.Fatalf("stop: %v", err)
	}
	if err := w.Stop(); err != nil {
		t.Fatalf("second stop: %v", err)
	}
	if w.IsRunning() {
		t.Fatal("watcher still running after Stop")
	}
}

func waitForTitle(t *testing.T, r *repo.Repo, chapterID, want string) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		ch, err := r.Chapter(context.Background(), chapterID)
		if err == nil && ch != nil && ch.Title == want {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("chapter %s never reached title %q", chapterID, want)
}
