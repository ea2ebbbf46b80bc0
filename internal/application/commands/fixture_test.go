package commands

import (
	"context"
	"sync"
	"time"

	"linkcal/internal/application"
	"linkcal/internal/application/analysis"
	"linkcal/internal/application/configsync"
	"linkcal/internal/domain"
)

// Saturday
var testNow = time.Date(2025, 11, 8, 15, 30, 0, 0, time.Local)

// memHost is an in-memory vault: documents plus a fixed backlink table
type memHost struct {
	mu    sync.Mutex
	docs  map[string]string
	links map[string]map[string]int
}

func newMemHost(docs map[string]string, links map[string]map[string]int) *memHost {
	if docs == nil {
		docs = map[string]string{}
	}
	return &memHost{docs: docs, links: links}
}

func (h *memHost) LinksTo(_ context.Context, path string) (map[string]int, error) {
	return h.links[path], nil
}

func (h *memHost) OnLinksResolved(func()) func() { return func() {} }

func (h *memHost) ReadDocument(_ context.Context, path string) (string, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	text, ok := h.docs[path]
	if !ok {
		return "", &application.NotFoundError{What: "document", ID: path}
	}
	return text, nil
}

func (h *memHost) WriteDocument(_ context.Context, path, text string) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.docs[path] = text
	return nil
}

func (h *memHost) LookupDocument(_ context.Context, path string) (*domain.Document, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.docs[path]; !ok {
		return nil, nil
	}
	return &domain.Document{Path: path, Kind: domain.DocumentKindOf(path)}, nil
}

func (h *memHost) ActiveGraphDocument() (string, bool) { return "", false }

func (h *memHost) doc(path string) string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.docs[path]
}

func newTestService(h *memHost) *analysis.Service {
	return analysis.NewService(h, h, analysis.Options{
		DailyFolder:    "Daily",
		FirstDayOfWeek: time.Monday,
		Now:            func() time.Time { return testNow },
	})
}

func newTestEngine(h *memHost) *configsync.Engine {
	return configsync.NewEngine(h, newTestService(h), configsync.Options{
		DebounceDelay: 10 * time.Millisecond,
		GraceDelay:    10 * time.Millisecond,
		Now:           func() time.Time { return testNow },
	})
}

func atlasLinks() map[string]map[string]int {
	return map[string]map[string]int{
		"Projects/Atlas.md": {
			"Daily/2025-11-02.md": 1,
			"Daily/2025-11-05.md": 2,
			"Daily/2024-03-01.md": 4,
			"Projects/Roadmap.md": 7,
		},
	}
}
