package vault

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"

	"linkcal/internal/domain"
)

type watcher struct {
	fs   *fsnotify.Watcher
	done chan struct{}
}

// Watch re-indexes documents as they change on disk until ctx is done or
// the host is closed. Each re-index fires the links-resolved notification.
func (h *Host) Watch(ctx context.Context) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	w := &watcher{fs: fw, done: make(chan struct{})}

	// Add vault root and all subdirectories (recursive)
	if err := h.addWatcherDirs(fw, h.VaultPath()); err != nil {
		fw.Close()
		return fmt.Errorf("add directories to watcher: %w", err)
	}

	h.mu.Lock()
	if h.watcher != nil {
		h.mu.Unlock()
		fw.Close()
		return fmt.Errorf("already watching %s", h.VaultPath())
	}
	h.watcher = w
	h.mu.Unlock()

	go h.watchLoop(ctx, w)
	return nil
}

// addWatcherDirs recursively adds directories to the watcher, skipping hidden dirs
func (h *Host) addWatcherDirs(fw *fsnotify.Watcher, root string) error {
	return filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return nil // skip errors
		}
		if !info.IsDir() {
			return nil
		}
		// Skip hidden directories (.obsidian, .git, etc)
		if strings.HasPrefix(info.Name(), ".") && path != root {
			return filepath.SkipDir
		}
		return fw.Add(path)
	})
}

func (h *Host) watchLoop(ctx context.Context, w *watcher) {
	defer close(w.done)
	for {
		select {
		case <-ctx.Done():
			w.fs.Close()
			return
		case event, ok := <-w.fs.Events:
			if !ok {
				return // watcher closed
			}
			h.handleEvent(w.fs, event)
		case err, ok := <-w.fs.Errors:
			if !ok {
				return // watcher closed
			}
			h.log.Warn("watcher error", "error", err)
		}
	}
}

// handleEvent processes a single fsnotify event
func (h *Host) handleEvent(fw *fsnotify.Watcher, event fsnotify.Event) {
	rel, err := h.repo.RelPath(event.Name)
	if err != nil {
		return
	}
	// Skip hidden files and directories
	for _, part := range strings.Split(rel, "/") {
		if strings.HasPrefix(part, ".") {
			return
		}
	}

	if event.Has(fsnotify.Create) {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			if err := h.addWatcherDirs(fw, event.Name); err != nil {
				h.log.Warn("failed to watch new directory", "path", rel, "error", err)
			}
			return
		}
	}

	if domain.DocumentKindOf(rel) == domain.DocumentUnknown {
		return
	}

	switch {
	case event.Has(fsnotify.Create), event.Has(fsnotify.Write):
		h.log.Debug("document changed", "path", rel)
		h.reindex(rel)
	case event.Has(fsnotify.Remove), event.Has(fsnotify.Rename):
		// Rename reports the old name; the new one arrives as Create
		h.log.Debug("document removed", "path", rel)
		if err := h.index.RemoveFile(rel); err != nil {
			h.log.Warn("failed to drop document from index", "path", rel, "error", err)
			return
		}
		h.resolved()
	}
}

func (w *watcher) close() error {
	err := w.fs.Close()
	<-w.done
	return err
}
