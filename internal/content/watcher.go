package content

import (
	"context"
	"fmt"
	"log"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Watcher re-imports chapter documents as they change on disk.
// Events for the same file are debounced so an editor's save sequence
// (truncate, write, rename) triggers a single import.
type Watcher struct {
	importer *Importer
	watcher  *fsnotify.Watcher
	logger   *log.Logger
	debounce time.Duration

	mu      sync.Mutex
	running bool
	done    chan struct{}
	fired   chan string
	wg      sync.WaitGroup
}

// NewWatcher creates a watcher feeding the given importer.
func NewWatcher(im *Importer, logger *log.Logger) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}
	if logger == nil {
		logger = log.New(os.Stderr, "[content] ", log.LstdFlags)
	}
	return &Watcher{
		importer: im,
		watcher:  fw,
		logger:   logger,
		debounce: 250 * time.Millisecond,
		done:     make(chan struct{}),
		fired:    make(chan string, 16),
	}, nil
}

// Start begins watching dir for chapter document changes.
func (w *Watcher) Start(ctx context.Context, dir string) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.running {
		return fmt.Errorf("watcher already running")
	}
	if err := w.watcher.Add(dir); err != nil {
		return fmt.Errorf("failed to watch content directory %s: %w", dir, err)
	}

	w.running = true
	w.wg.Add(1)
	go w.processEvents(ctx)

	w.logger.Printf("Watching %s for chapter changes", dir)
	return nil
}

// Stop stops the watcher and waits for the event loop to exit.
func (w *Watcher) Stop() error {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return nil
	}
	w.running = false
	w.mu.Unlock()

	close(w.done)
	if err := w.watcher.Close(); err != nil {
		return fmt.Errorf("failed to close watcher: %w", err)
	}
	w.wg.Wait()
	return nil
}

// IsRunning reports whether the watcher is active.
func (w *Watcher) IsRunning() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.running
}

// processEvents drains fsnotify events, debouncing per path before
// re-importing the changed document. Imports run on this goroutine so
// Stop's wg.Wait covers them; the debounce timers only hand the path
// back through the fired channel.
func (w *Watcher) processEvents(ctx context.Context) {
	defer w.wg.Done()

	pending := make(map[string]*time.Timer)
	defer func() {
		for _, t := range pending {
			t.Stop()
		}
	}()

	for {
		select {
		case <-w.done:
			return
		case <-ctx.Done():
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if !w.wanted(event) {
				continue
			}
			path := event.Name
			if timer, exists := pending[path]; exists {
				timer.Reset(w.debounce)
				continue
			}
			pending[path] = time.AfterFunc(w.debounce, func() {
				select {
				case w.fired <- path:
				case <-w.done:
				case <-ctx.Done():
				}
			})

		case path := <-w.fired:
			delete(pending, path)
			if err := w.importer.ImportFile(ctx, path); err != nil {
				w.logger.Printf("WARNING: re-import of %s failed: %v", path, err)
			}

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Printf("WARNING: watcher error: %v", err)
		}
	}
}

// wanted filters to create and write events on *.json files. Removes are
// ignored: deleting a document does not evict cached content, only a
// remote refresh does that.
func (w *Watcher) wanted(event fsnotify.Event) bool {
	if !strings.HasSuffix(event.Name, ".json") {
		return false
	}
	return event.Has(fsnotify.Create) || event.Has(fsnotify.Write)
}
