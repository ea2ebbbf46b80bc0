package tui

import (
	"context"
	"fmt"
	"strconv"
	"sync"

	"linkcal/internal/application/analysis"
	"linkcal/internal/application/configsync"
	"linkcal/internal/domain"
)

// Bounder computes the navigable year window of notes
type Bounder interface {
	BoundsMany(ctx context.Context, paths []string, g domain.Granularity) (domain.RangeBounds, error)
}

// HeatmapInstance binds a mounted heatmap block to the view
type HeatmapInstance struct {
	engine  *configsync.Engine
	bounder Bounder
	mu      sync.Mutex
	handle  configsync.Handle
	carrier string
	id      string
	events  *Events
}

// MountHeatmap registers the heatmap block id found in carrier with the engine.
// Host refreshes are delivered to events.
func MountHeatmap(ctx context.Context, engine *configsync.Engine, bounder Bounder, carrier, id string, events *Events) (*HeatmapInstance, *domain.HeatmapConfig, error) {
	loc := configsync.Location{Kind: configsync.CarrierFor(carrier), Path: carrier}
	h, cfg, err := engine.Mount(ctx, loc, domain.KindHeatmap, id, events.Refreshed)
	if err != nil {
		return nil, nil, err
	}
	heat, ok := cfg.(*domain.HeatmapConfig)
	if !ok {
		engine.Dispose(h)
		return nil, nil, fmt.Errorf("block %s is a %s, not a heatmap", id, cfg.Kind())
	}
	return &HeatmapInstance{engine: engine, bounder: bounder, handle: h, carrier: carrier, id: id, events: events}, heat, nil
}

// Carrier implements views.Instance
func (i *HeatmapInstance) Carrier() string { return i.carrier }

// Watched implements views.Instance
func (i *HeatmapInstance) Watched() []string {
	cfg, ok := i.engine.Config(i.current())
	if !ok {
		return nil
	}
	return cfg.WatchedPaths()
}

// Load implements views.Instance
func (i *HeatmapInstance) Load(ctx context.Context) (*analysis.Analysis, error) {
	return i.engine.View(ctx, i.current())
}

// SetYear implements views.Instance
func (i *HeatmapInstance) SetYear(ctx context.Context, year int) (*analysis.Analysis, error) {
	if _, err := i.engine.UpdateProperty(ctx, i.current(), domain.KeyYear, strconv.Itoa(year)); err != nil {
		return nil, err
	}
	return i.engine.View(ctx, i.current())
}

// Reload implements views.Instance. The block is decoded again from its
// carrier, picking up edits made outside the view.
func (i *HeatmapInstance) Reload(ctx context.Context) (*analysis.Analysis, error) {
	i.mu.Lock()
	i.engine.Dispose(i.handle)
	next, _, err := MountHeatmap(ctx, i.engine, i.bounder, i.carrier, i.id, i.events)
	if err == nil {
		i.handle = next.handle
	}
	i.mu.Unlock()
	if err != nil {
		return nil, err
	}
	return i.Load(ctx)
}

// Bounds implements views.Instance
func (i *HeatmapInstance) Bounds(ctx context.Context) (domain.RangeBounds, error) {
	paths := i.Watched()
	if len(paths) == 0 {
		paths = []string{i.carrier}
	}
	return i.bounder.BoundsMany(ctx, paths, domain.GranularityYear)
}

// Close disposes the engine instance
func (i *HeatmapInstance) Close() {
	i.engine.Dispose(i.current())
}

func (i *HeatmapInstance) current() configsync.Handle {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.handle
}
