// Package content loads chapter documents from disk into the local store.
//
// Each chapter lives in its own JSON file holding the chapter record, its
// ordered pages, and its questions. The importer is what seeds a fresh
// store before the remote cache refresh has ever run, and the watcher
// keeps a running daemon's cache current while authors edit documents.
package content

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/griiettner/eventos-finais/internal/models"
	"github.com/griiettner/eventos-finais/internal/repo"
)

// ChapterDocument is the on-disk shape of one chapter file.
type ChapterDocument struct {
	Chapter   models.Chapter       `json:"chapter"`
	Pages     []models.ChapterPage `json:"pages"`
	Questions []models.Question    `json:"questions"`
}

// Validate checks the document for the problems the store cannot express.
func (d *ChapterDocument) Validate() error {
	if d.Chapter.ID == "" {
		return fmt.Errorf("chapter is missing an id")
	}
	if d.Chapter.Title == "" {
		return fmt.Errorf("chapter %s is missing a title", d.Chapter.ID)
	}
	for i, p := range d.Pages {
		if p.ID == "" {
			return fmt.Errorf("chapter %s: page %d is missing an id", d.Chapter.ID, i)
		}
	}
	for i, q := range d.Questions {
		if q.ID == "" {
			return fmt.Errorf("chapter %s: question %d is missing an id", d.Chapter.ID, i)
		}
	}
	return nil
}

// LoadDocument reads and validates a single chapter file.
func LoadDocument(path string) (*ChapterDocument, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	var doc ChapterDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	if err := doc.Validate(); err != nil {
		return nil, fmt.Errorf("invalid chapter document %s: %w", path, err)
	}
	return &doc, nil
}

// Importer caches chapter documents into the local store.
type Importer struct {
	repo   *repo.Repo
	logger *log.Logger
}

// NewImporter creates an importer writing through the given repository.
func NewImporter(r *repo.Repo, logger *log.Logger) *Importer {
	if logger == nil {
		logger = log.New(os.Stderr, "[content] ", log.LstdFlags)
	}
	return &Importer{repo: r, logger: logger}
}

// ImportFile caches one chapter document. The upsert keyed by ID makes
// re-importing the same file safe.
func (im *Importer) ImportFile(ctx context.Context, path string) error {
	doc, err := LoadDocument(path)
	if err != nil {
		return err
	}

	if err := im.repo.CacheChapter(ctx, doc.Chapter); err != nil {
		return fmt.Errorf("failed to cache chapter %s: %w", doc.Chapter.ID, err)
	}
	for _, p := range doc.Pages {
		p.ChapterID = doc.Chapter.ID
		if err := im.repo.CacheChapterPage(ctx, p); err != nil {
			return fmt.Errorf("failed to cache page %s: %w", p.ID, err)
		}
	}
	for _, q := range doc.Questions {
		q.ChapterID = doc.Chapter.ID
		if err := im.repo.CacheQuestion(ctx, q); err != nil {
			return fmt.Errorf("failed to cache question %s: %w", q.ID, err)
		}
	}

	im.logger.Printf("Imported chapter %s (%d pages, %d questions)",
		doc.Chapter.ID, len(doc.Pages), len(doc.Questions))
	return nil
}

// ImportDir caches every *.json chapter document in dir, in name order.
// A bad document is logged and skipped; the rest of the directory still
// imports. Returns the number of documents imported.
func (im *Importer) ImportDir(ctx context.Context, dir string) (int, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return 0, fmt.Errorf("failed to read content directory %s: %w", dir, err)
	}

	var paths []string
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		paths = append(paths, filepath.Join(dir, entry.Name()))
	}
	sort.Strings(paths)

	imported := 0
	for _, path := range paths {
		if err := im.ImportFile(ctx, path); err != nil {
			im.logger.Printf("WARNING: skipping %s: %v", path, err)
			continue
		}
		imported++
	}
	return imported, nil
}
