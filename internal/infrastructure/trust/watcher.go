package trust

import (
	"fmt"
	"path/filepath"
	"sync"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	"github.com/productlens/backend/internal/domain"
	"go.uber.org/zap"
)

// Watcher serves the active trust table and hot-reloads it from a YAML file.
// A failed reload keeps the previous table.
type Watcher struct {
	path    string
	current atomic.Pointer[Table]
	logger  *zap.Logger

	mu       sync.Mutex
	watcher  *fsnotify.Watcher
	stopCh   chan struct{}
	started  bool
	handlers []func(*Table)
}

// NewWatcher creates a watcher serving the table at path. An empty path
// serves DefaultTable and never reloads.
func NewWatcher(path string, logger *zap.Logger) (*Watcher, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	w := &Watcher{path: path, logger: logger}

	if path == "" {
		w.current.Store(DefaultTable())
		return w, nil
	}

	table, err := LoadFile(path)
	if err != nil {
		return nil, err
	}
	w.current.Store(table)
	return w, nil
}

// OnReload registers a handler called after each successful reload
func (w *Watcher) OnReload(fn func(*Table)) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.handlers = append(w.handlers, fn)
}

// Start begins watching the table file's directory for changes
func (w *Watcher) Start() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.started || w.path == "" {
		return nil
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}
	// Watch the directory: editors often replace the file rather than write it.
	if err := fw.Add(filepath.Dir(w.path)); err != nil {
		fw.Close()
		return fmt.Errorf("failed to watch trust table directory: %w", err)
	}

	w.watcher = fw
	w.stopCh = make(chan struct{})
	w.started = true
	go w.watchLoop(fw, w.stopCh)

	w.logger.Info("Trust table watcher started", zap.String("path", w.path))
	return nil
}

// Stop stops watching for changes
func (w *Watcher) Stop() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if !w.started {
		return nil
	}
	close(w.stopCh)
	w.started = false
	return w.watcher.Close()
}

// Reload re-reads the table file and swaps it in
func (w *Watcher) Reload() error {
	if w.path == "" {
		return nil
	}
	table, err := LoadFile(w.path)
	if err != nil {
		w.logger.Error("Trust table reload failed, keeping previous table",
			zap.String("path", w.path), zap.Error(err))
		return err
	}
	w.current.Store(table)

	w.mu.Lock()
	handlers := append([]func(*Table){}, w.handlers...)
	w.mu.Unlock()
	for _, h := range handlers {
		h(table)
	}

	w.logger.Info("Trust table reloaded",
		zap.String("path", w.path), zap.Int("rules", len(table.rules)))
	return nil
}

func (w *Watcher) watchLoop(fw *fsnotify.Watcher, stopCh chan struct{}) {
	target := filepath.Clean(w.path)
	for {
		select {
		case <-stopCh:
			return
		case event, ok := <-fw.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != target {
				continue
			}
			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) || event.Has(fsnotify.Rename) {
				_ = w.Reload()
			}
		case err, ok := <-fw.Errors:
			if !ok {
				return
			}
			w.logger.Error("Trust table watcher error", zap.Error(err))
		}
	}
}

// Table returns the active table
func (w *Watcher) Table() *Table {
	return w.current.Load()
}

// Score implements domain.DomainTrust
func (w *Watcher) Score(host, brandSlug string) domain.TrustClass {
	return w.Table().Score(host, brandSlug)
}

// IsBlacklisted implements domain.DomainTrust
func (w *Watcher) IsBlacklisted(host string) bool {
	return w.Table().IsBlacklisted(host)
}

// IsNonCommerce implements domain.DomainTrust
func (w *Watcher) IsNonCommerce(host string) bool {
	return w.Table().IsNonCommerce(host)
}

// Retailers implements domain.DomainTrust
func (w *Watcher) Retailers() []string {
	return w.Table().Retailers()
}
