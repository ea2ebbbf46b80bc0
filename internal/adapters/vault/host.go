// Package vault implements the host capabilities on top of a vault
// directory: documents on disk, links in the SQLite index, and change
// notifications from fsnotify.
package vault

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sync"

	"linkcal/internal/adapters/filesystem"
	"linkcal/internal/adapters/sqlite"
	"linkcal/internal/domain"
	"linkcal/internal/ports"
)

// Host implements ports.Host
type Host struct {
	repo  *filesystem.Repository
	index ports.LinkIndex
	log   *slog.Logger

	mu      sync.Mutex
	subs    map[int]func()
	nextSub int
	active  string

	watcher *watcher
	owned   bool // index opened by Open and closed with the host
}

// Ensure Host implements ports.Host
var (
	_ ports.Host       = (*Host)(nil)
	_ ports.LinkSource = (*Host)(nil)
)

// NewHost creates a host over an opened index
func NewHost(repo *filesystem.Repository, index ports.LinkIndex, logger *slog.Logger) *Host {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Host{
		repo:  repo,
		index: index,
		log:   logger.With("component", "vault"),
		subs:  make(map[int]func()),
	}
}

// VaultPath returns the vault root
func (h *Host) VaultPath() string {
	return h.repo.VaultPath()
}

// Sync brings the index up to date, fully when the schema or vault changed
func (h *Host) Sync() (*domain.SyncStats, error) {
	var (
		stats *domain.SyncStats
		err   error
	)
	if h.index.NeedsFullRebuild() {
		stats, err = h.index.SyncFull()
	} else {
		stats, err = h.index.SyncIncremental()
	}
	if err != nil {
		return stats, fmt.Errorf("failed to sync index: %w", err)
	}
	h.log.Info("index synced",
		"scanned", stats.FilesScanned, "added", stats.NodesAdded,
		"updated", stats.NodesUpdated, "deleted", stats.NodesDeleted, "duration", stats.Duration)
	h.resolved()
	return stats, nil
}

// LinksTo sums the occurrences of every source linking to path
func (h *Host) LinksTo(ctx context.Context, path string) (map[string]int, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	edges, err := h.index.LinksTo(path)
	if err != nil {
		return nil, err
	}
	links := make(map[string]int, len(edges))
	for _, e := range edges {
		if e.SourcePath == path {
			continue
		}
		links[e.SourcePath] += e.Occurrences
	}
	return links, nil
}

// LinksFrom returns the outgoing links of a document, one edge per target
func (h *Host) LinksFrom(ctx context.Context, path string) ([]domain.Edge, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return h.index.LinksFrom(path)
}

// OnLinksResolved registers fn to run after every re-index
func (h *Host) OnLinksResolved(fn func()) func() {
	h.mu.Lock()
	defer h.mu.Unlock()

	id := h.nextSub
	h.nextSub++
	h.subs[id] = fn

	var once sync.Once
	return func() {
		once.Do(func() {
			h.mu.Lock()
			defer h.mu.Unlock()
			delete(h.subs, id)
		})
	}
}

// resolved notifies every subscriber. Subscribers run outside the lock.
func (h *Host) resolved() {
	h.mu.Lock()
	fns := make([]func(), 0, len(h.subs))
	for _, fn := range h.subs {
		fns = append(fns, fn)
	}
	h.mu.Unlock()

	for _, fn := range fns {
		fn()
	}
}

// ReadDocument returns the text of a vault document
func (h *Host) ReadDocument(ctx context.Context, path string) (string, error) {
	return h.repo.ReadDocument(ctx, path)
}

// WriteDocument replaces a document, re-indexes it and fires the
// links-resolved notification, exactly as an external edit would
func (h *Host) WriteDocument(ctx context.Context, path, text string) error {
	if err := h.repo.WriteDocument(ctx, path, text); err != nil {
		return err
	}
	h.reindex(path)
	return nil
}

// LookupDocument returns nil when the document does not exist
func (h *Host) LookupDocument(ctx context.Context, path string) (*domain.Document, error) {
	return h.repo.LookupDocument(ctx, path)
}

// ActiveGraphDocument returns the focused canvas, if any
func (h *Host) ActiveGraphDocument() (string, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.active, h.active != ""
}

// SetActiveGraphDocument focuses a canvas; an empty path clears the focus
func (h *Host) SetActiveGraphDocument(path string) error {
	if path != "" && domain.DocumentKindOf(path) != domain.DocumentCanvas {
		return fmt.Errorf("not a canvas: %s", path)
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	h.active = path
	return nil
}

func (h *Host) reindex(path string) {
	if err := h.index.SyncFile(path); err != nil {
		h.log.Warn("failed to re-index document", "path", path, "error", err)
		return
	}
	h.resolved()
}

// Open opens the vault at vaultPath: its document store, its link index
// and an initial sync. The returned host owns the index.
func Open(vaultPath string, logger *slog.Logger) (*Host, error) {
	repo := filesystem.NewRepository(vaultPath)
	if info, err := os.Stat(repo.VaultPath()); err != nil || !info.IsDir() {
		return nil, fmt.Errorf("vault not found: %s", repo.VaultPath())
	}

	index := sqlite.NewIndex()
	if err := index.Open(repo.VaultPath()); err != nil {
		return nil, err
	}

	h := NewHost(repo, index, logger)
	h.owned = true
	if _, err := h.Sync(); err != nil {
		index.Close()
		return nil, err
	}
	return h, nil
}

// Close stops the watcher, if any, and closes an owned index
func (h *Host) Close() error {
	h.mu.Lock()
	w := h.watcher
	h.watcher = nil
	h.mu.Unlock()

	var err error
	if w != nil {
		err = w.close()
	}
	if h.owned {
		if cerr := h.index.Close(); err == nil {
			err = cerr
		}
	}
	return err
}
