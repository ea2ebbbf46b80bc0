// Package configsync keeps rendered instances and their persisted
// configuration blocks consistent, in both directions, without feedback loops.
//
// A user edit moves the instance to Persisting, patches the carrier document
// with a single read, transform and write, and only returns to Idle after a
// grace delay so the host's echo of that write is ignored. Host link-graph
// notifications are debounced and fanned out to Idle instances.
package configsync

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"linkcal/internal/application"
	"linkcal/internal/application/analysis"
	"linkcal/internal/domain"
	"linkcal/internal/ports"
)

const (
	DefaultDebounceDelay = 300 * time.Millisecond
	DefaultGraceDelay    = 500 * time.Millisecond
)

// ErrAlreadyRegistered is returned when a live instance already owns the block
var ErrAlreadyRegistered = fmt.Errorf("%w: block already registered", application.ErrInvalidOperation)

// Analyzer is the part of the analysis facade the engine needs
type Analyzer interface {
	AnalyzeMany(ctx context.Context, paths []string, q analysis.Query) (*analysis.Analysis, error)
}

// Options configures an Engine
type Options struct {
	DebounceDelay time.Duration
	GraceDelay    time.Duration
	Logger        *slog.Logger
	Notifier      ports.Notifier
	Now           func() time.Time
}

// UpdateResult reports what a property update touched
type UpdateResult struct {
	Path    string // Carrier document actually written
	Updated int    // Blocks patched; above 1 means duplicates
}

// Engine owns every live instance
type Engine struct {
	host     ports.Host
	analyzer Analyzer
	opts     Options
	log      *slog.Logger

	mu        sync.Mutex
	next      Handle
	instances map[Handle]*instance
	carriers  map[string]*sync.Mutex
	closed    bool

	debouncer   *batchDebouncer[Handle]
	unsubscribe func()
}

// NewEngine creates an engine and subscribes it to the host's link-resolved notification
func NewEngine(host ports.Host, analyzer Analyzer, opts Options) *Engine {
	if opts.DebounceDelay <= 0 {
		opts.DebounceDelay = DefaultDebounceDelay
	}
	if opts.GraceDelay <= 0 {
		opts.GraceDelay = DefaultGraceDelay
	}
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.DiscardHandler)
	}
	if opts.Notifier == nil {
		opts.Notifier = nopNotifier{}
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	e := &Engine{
		host:      host,
		analyzer:  analyzer,
		opts:      opts,
		log:       opts.Logger.With("component", "configsync"),
		instances: make(map[Handle]*instance),
		carriers:  make(map[string]*sync.Mutex),
	}
	e.debouncer = newBatchDebouncer(opts.DebounceDelay, e.refreshBatch)
	e.unsubscribe = host.OnLinksResolved(e.linksResolved)
	return e
}

// Register creates a live instance for a decoded configuration. When a live
// instance already owns the same block at the same location, its handle is
// returned together with ErrAlreadyRegistered.
func (e *Engine) Register(loc Location, cfg domain.Config, onRefresh RefreshFunc) (Handle, error) {
	if cfg == nil || strings.TrimSpace(cfg.BlockID()) == "" {
		return 0, &application.ValidationError{Field: "blockID", Message: "block ID is required"}
	}
	if loc.Kind == CarrierLinear && loc.Path == "" {
		return 0, &application.ValidationError{Field: "carrierPath", Message: "carrier path is required"}
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return 0, fmt.Errorf("%w: engine closed", application.ErrInvalidOperation)
	}
	for h, in := range e.instances {
		if in.loc == loc && in.cfg.Kind() == cfg.Kind() && in.cfg.BlockID() == cfg.BlockID() {
			return h, ErrAlreadyRegistered
		}
	}

	e.next++
	h := e.next
	e.instances[h] = &instance{handle: h, loc: loc, cfg: cfg, onRefresh: onRefresh}
	e.log.Debug("instance registered", "handle", h, "id", cfg.BlockID(), "kind", cfg.Kind(), "carrier", loc)
	return h, nil
}

// Mount reads the carrier document, decodes the block with the given id and
// registers it. A block without an id fails; malformed properties fall back
// to their defaults and are logged.
func (e *Engine) Mount(ctx context.Context, loc Location, kind domain.ComponentKind, id string, onRefresh RefreshFunc) (Handle, domain.Config, error) {
	path, err := e.carrierPath(loc)
	if err != nil {
		return 0, nil, err
	}
	text, err := e.host.ReadDocument(ctx, path)
	if err != nil {
		return 0, nil, err
	}

	var blocks []domain.BlockRef
	if loc.Kind == CarrierGraph {
		doc, err := domain.ParseGraphDocument([]byte(text))
		if err != nil {
			return 0, nil, &application.ValidationError{Field: "carrierPath", Message: err.Error()}
		}
		for _, m := range doc.LocateBlocks(string(kind), id) {
			nodeText, _ := doc.NodeText(m.Index)
			blocks = append(blocks, domain.LocateBlocks(nodeText, string(kind), id)...)
		}
	} else {
		blocks = domain.LocateBlocks(text, string(kind), id)
	}
	if len(blocks) == 0 {
		return 0, nil, &application.NotFoundError{What: "block", ID: id}
	}

	cfg, fallbacks, err := domain.DecodeConfig(blocks[0].Block, e.opts.Now())
	if err != nil {
		return 0, nil, &application.ValidationError{Field: "blockID", Message: err.Error()}
	}
	for _, f := range fallbacks {
		e.log.Warn("malformed property, using default", "id", id, "path", path, "key", f.Key, "value", f.Raw, "default", f.Default)
	}

	h, err := e.Register(loc, cfg, onRefresh)
	return h, cfg, err
}

// Dispose removes an instance. Pending timers for it become no-ops.
func (e *Engine) Dispose(h Handle) {
	e.mu.Lock()
	defer e.mu.Unlock()

	in, ok := e.instances[h]
	if !ok {
		return
	}
	if in.grace != nil {
		in.grace.Stop()
	}
	delete(e.instances, h)
	e.log.Debug("instance disposed", "handle", h, "id", in.cfg.BlockID())
}

// State returns the current state of an instance
func (e *Engine) State(h Handle) (State, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	in, ok := e.instances[h]
	if !ok {
		return StateIdle, false
	}
	return in.state, true
}

// Config returns the in-memory configuration of an instance
func (e *Engine) Config(h Handle) (domain.Config, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	in, ok := e.instances[h]
	if !ok {
		return nil, false
	}
	return in.cfg, true
}

// Len returns the number of live instances
func (e *Engine) Len() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.instances)
}

// UpdateProperty applies a user-driven change to an instance and persists it
// to every block carrying its id. A missing carrier or block is a logged no-op
// with Updated == 0. A failed write returns an IOError; the instance stays usable.
func (e *Engine) UpdateProperty(ctx context.Context, h Handle, key string, values ...string) (UpdateResult, error) {
	if err := validateProperty(key, values); err != nil {
		return UpdateResult{}, err
	}

	e.mu.Lock()
	in, ok := e.instances[h]
	if !ok {
		e.mu.Unlock()
		return UpdateResult{}, &application.NotFoundError{What: "instance", ID: fmt.Sprint(h)}
	}
	cfg, err := applyProperty(in.cfg, key, values, e.opts.Now())
	if err != nil {
		e.mu.Unlock()
		return UpdateResult{}, err
	}
	in.cfg = cfg
	gen := in.beginPersist()
	loc := in.loc
	e.mu.Unlock()

	// The flag clears after the grace delay whatever the outcome
	defer e.scheduleGrace(h, gen)

	log := e.log.With("id", cfg.BlockID(), "key", key)

	path, err := e.carrierPath(loc)
	if err != nil {
		log.Info("no carrier document, update not persisted", "carrier", loc)
		return UpdateResult{}, nil
	}
	log = log.With("path", path)

	unlock := e.lockCarrier(path)
	defer unlock()

	doc, err := e.host.LookupDocument(ctx, path)
	if err != nil {
		return e.failed(log, path, err)
	}
	if doc == nil {
		log.Info("carrier document not found, update not persisted")
		return UpdateResult{Path: path}, nil
	}

	text, err := e.host.ReadDocument(ctx, path)
	if errors.Is(err, application.ErrNotFound) {
		log.Info("carrier document not found, update not persisted")
		return UpdateResult{Path: path}, nil
	}
	if err != nil {
		return e.failed(log, path, err)
	}

	patched, n, err := patch(loc.Kind, text, cfg, key, values)
	if err != nil {
		log.Warn("carrier document is malformed, update not persisted", "error", err)
		return UpdateResult{Path: path}, nil
	}
	if n == 0 {
		log.Info("block not found, update not persisted")
		return UpdateResult{Path: path}, nil
	}

	if patched != text {
		if err := e.host.WriteDocument(ctx, path, patched); err != nil {
			return e.failed(log, path, err)
		}
	}

	log.Debug("property persisted", "updated", n)
	if n > 1 {
		e.opts.Notifier.Notify(fmt.Sprintf("%d duplicates updated", n))
	}
	return UpdateResult{Path: path, Updated: n}, nil
}

// Refresh recomputes one instance now, for its initial render or on demand
func (e *Engine) Refresh(ctx context.Context, h Handle) (*analysis.Analysis, error) {
	return e.refresh(ctx, h)
}

// View computes the analysis for the instance's current configuration
// without a state transition and without calling its RefreshFunc. It serves
// the instance's own rendering right after it persisted a change.
func (e *Engine) View(ctx context.Context, h Handle) (*analysis.Analysis, error) {
	e.mu.Lock()
	in, ok := e.instances[h]
	if !ok {
		e.mu.Unlock()
		return nil, &application.NotFoundError{What: "instance", ID: fmt.Sprint(h)}
	}
	cfg, loc := in.cfg, in.loc
	e.mu.Unlock()

	paths := e.watched(cfg, loc)
	if len(paths) == 0 {
		return nil, &application.NotFoundError{What: "watched note", ID: cfg.BlockID()}
	}
	return e.analyzer.AnalyzeMany(ctx, paths, query(cfg))
}

// Flush runs any debounced refresh immediately
func (e *Engine) Flush() {
	e.debouncer.Flush()
}

// Pending returns the number of instances waiting for a debounced refresh
func (e *Engine) Pending() int {
	return e.debouncer.Len()
}

// Close unsubscribes from the host and stops every timer
func (e *Engine) Close() {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return
	}
	e.closed = true
	for _, in := range e.instances {
		if in.grace != nil {
			in.grace.Stop()
		}
	}
	e.instances = make(map[Handle]*instance)
	e.mu.Unlock()

	if e.unsubscribe != nil {
		e.unsubscribe()
	}
	e.debouncer.Cancel()
}

// linksResolved queues every instance that is Idle when the notification
// arrives. Refreshing instances are marked dirty and queued again once their
// refresh ends. Instances persisting their own edit drop it.
func (e *Engine) linksResolved() {
	e.mu.Lock()
	var idle []Handle
	for h, in := range e.instances {
		switch in.state {
		case StateIdle:
			idle = append(idle, h)
		case StateRefreshing:
			in.dirty = true
		}
	}
	e.mu.Unlock()

	if len(idle) > 0 {
		e.debouncer.Add(idle...)
	}
}

// refreshBatch fans a debounced burst out to the queued instances, one at a time
func (e *Engine) refreshBatch(handles []Handle) {
	ctx := context.Background()
	refreshed := 0
	for _, h := range handles {
		if _, err := e.refresh(ctx, h); err == nil {
			refreshed++
		}
	}
	e.log.Debug("links resolved", "queued", len(handles), "refreshed", refreshed)
}

func (e *Engine) refresh(ctx context.Context, h Handle) (*analysis.Analysis, error) {
	e.mu.Lock()
	in, ok := e.instances[h]
	if !ok {
		e.mu.Unlock()
		return nil, &application.NotFoundError{What: "instance", ID: fmt.Sprint(h)}
	}
	if err := in.beginRefresh(); err != nil {
		e.mu.Unlock()
		return nil, err
	}
	cfg, loc := in.cfg, in.loc
	e.mu.Unlock()

	paths := e.watched(cfg, loc)

	var (
		result *analysis.Analysis
		err    error
	)
	if len(paths) == 0 {
		err = &application.NotFoundError{What: "watched note", ID: cfg.BlockID()}
	} else {
		result, err = e.analyzer.AnalyzeMany(ctx, paths, query(cfg))
	}

	e.mu.Lock()
	in, ok = e.instances[h]
	if !ok {
		e.mu.Unlock()
		return result, err
	}
	current := in.endRefresh(result)
	requeue := in.takeDirty()
	onRefresh := in.onRefresh
	cfg = in.cfg
	e.mu.Unlock()

	if requeue {
		e.debouncer.Add(h)
	}

	if err != nil {
		e.log.Warn("refresh failed", "id", cfg.BlockID(), "error", err)
		return nil, err
	}
	if !current {
		return result, ErrBusy
	}
	if onRefresh != nil {
		onRefresh(Refreshed{Handle: h, Config: cfg, Analysis: result})
	}
	return result, nil
}

// watched returns the notes an instance counts; a block without paths
// watches its own carrier
func (e *Engine) watched(cfg domain.Config, loc Location) []string {
	if paths := cfg.WatchedPaths(); len(paths) > 0 {
		return paths
	}
	if p, err := e.carrierPath(loc); err == nil {
		return []string{p}
	}
	return nil
}

func (e *Engine) scheduleGrace(h Handle, gen uint64) {
	e.mu.Lock()
	defer e.mu.Unlock()

	in, ok := e.instances[h]
	if !ok || in.gen != gen {
		return
	}
	in.grace = time.AfterFunc(e.opts.GraceDelay, func() {
		e.mu.Lock()
		defer e.mu.Unlock()
		if in, ok := e.instances[h]; ok && in.endPersist(gen) {
			e.log.Debug("grace delay elapsed", "id", in.cfg.BlockID())
		}
	})
}

func (e *Engine) carrierPath(loc Location) (string, error) {
	if loc.Path != "" {
		return loc.Path, nil
	}
	if loc.Kind == CarrierGraph {
		if p, ok := e.host.ActiveGraphDocument(); ok {
			return p, nil
		}
	}
	return "", &application.NotFoundError{What: "carrier document", ID: loc.String()}
}

// lockCarrier serializes read-modify-write cycles on one document
func (e *Engine) lockCarrier(path string) func() {
	e.mu.Lock()
	m, ok := e.carriers[path]
	if !ok {
		m = &sync.Mutex{}
		e.carriers[path] = m
	}
	e.mu.Unlock()

	m.Lock()
	return m.Unlock
}

func (e *Engine) failed(log *slog.Logger, path string, err error) (UpdateResult, error) {
	log.Error("failed to persist property", "error", err)
	e.opts.Notifier.Notify(fmt.Sprintf("Could not save %s: %v", path, err))
	return UpdateResult{Path: path}, &application.IOError{Path: path, Err: err}
}

// patch applies the property change to the carrier text
func patch(kind CarrierKind, text string, cfg domain.Config, key string, values []string) (string, int, error) {
	fence := string(cfg.Kind())
	if kind == CarrierGraph {
		out, n, err := domain.PatchGraphProperty([]byte(text), fence, cfg.BlockID(), key, values)
		return string(out), n, err
	}
	out, n := domain.PatchProperty(text, fence, cfg.BlockID(), key, values)
	return out, n, nil
}

// applyProperty returns the configuration with key replaced. Values that would
// only fall back to a default are rejected rather than persisted.
func applyProperty(cfg domain.Config, key string, values []string, now time.Time) (domain.Config, error) {
	b := domain.Block{Kind: string(cfg.Kind())}
	for _, p := range cfg.Properties() {
		b.Set(p.Key, p.Values...)
	}
	b.Set(key, values...)

	updated, fallbacks, err := domain.DecodeConfig(b, now)
	if err != nil {
		return nil, &application.ValidationError{Field: key, Message: err.Error()}
	}
	for _, f := range fallbacks {
		if f.Key == key {
			return nil, &application.ValidationError{Field: key, Message: f.String()}
		}
	}
	return updated, nil
}

func validateProperty(key string, values []string) error {
	if key == domain.IDKey {
		return &application.ValidationError{Field: key, Message: "the block ID never changes"}
	}
	if k, _, ok := domain.ParsePropertyLine(key + ": x"); !ok || k != key {
		return &application.ValidationError{Field: "key", Message: fmt.Sprintf("invalid property key %q", key)}
	}
	for _, v := range values {
		if strings.ContainsAny(v, "\r\n") {
			return &application.ValidationError{Field: key, Message: "values must be single-line"}
		}
	}
	return nil
}

type nopNotifier struct{}

func (nopNotifier) Notify(string) {}
