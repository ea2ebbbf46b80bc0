package configsync

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"linkcal/internal/application"
	"linkcal/internal/application/analysis"
	"linkcal/internal/domain"
)

const (
	testDebounce = 20 * time.Millisecond
	testGrace    = 60 * time.Millisecond
)

var testNow = time.Date(2025, 11, 8, 15, 30, 0, 0, time.Local)

type fakeHost struct {
	mu          sync.Mutex
	docs        map[string]string
	writes      int
	writeErr    error
	active      string
	subscribers map[int]func()
	nextSub     int
}

func newFakeHost(docs map[string]string) *fakeHost {
	return &fakeHost{docs: docs, subscribers: make(map[int]func())}
}

func (h *fakeHost) LinksTo(context.Context, string) (map[string]int, error) { return nil, nil }

func (h *fakeHost) OnLinksResolved(fn func()) func() {
	h.mu.Lock()
	defer h.mu.Unlock()
	id := h.nextSub
	h.nextSub++
	h.subscribers[id] = fn
	return func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		delete(h.subscribers, id)
	}
}

func (h *fakeHost) fireResolved() {
	h.mu.Lock()
	var fns []func()
	for _, fn := range h.subscribers {
		fns = append(fns, fn)
	}
	h.mu.Unlock()
	for _, fn := range fns {
		fn()
	}
}

func (h *fakeHost) ReadDocument(_ context.Context, path string) (string, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	text, ok := h.docs[path]
	if !ok {
		return "", &application.NotFoundError{What: "document", ID: path}
	}
	return text, nil
}

func (h *fakeHost) WriteDocument(_ context.Context, path, text string) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.writeErr != nil {
		return h.writeErr
	}
	h.writes++
	h.docs[path] = text
	return nil
}

func (h *fakeHost) LookupDocument(_ context.Context, path string) (*domain.Document, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.docs[path]; !ok {
		return nil, nil
	}
	return &domain.Document{Path: path, Kind: domain.DocumentKindOf(path)}, nil
}

func (h *fakeHost) ActiveGraphDocument() (string, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.active, h.active != ""
}

func (h *fakeHost) doc(path string) string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.docs[path]
}

type fakeAnalyzer struct {
	mu      sync.Mutex
	calls   int
	paths   [][]string
	queries []analysis.Query
	err     error
}

func (a *fakeAnalyzer) AnalyzeMany(_ context.Context, paths []string, q analysis.Query) (*analysis.Analysis, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.calls++
	a.paths = append(a.paths, paths)
	a.queries = append(a.queries, q)
	if a.err != nil {
		return nil, a.err
	}
	return &analysis.Analysis{Paths: paths, Year: q.Year}, nil
}

func (a *fakeAnalyzer) count() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.calls
}

type recordingNotifier struct {
	mu   sync.Mutex
	msgs []string
}

func (n *recordingNotifier) Notify(msg string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.msgs = append(n.msgs, msg)
}

func (n *recordingNotifier) messages() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]string(nil), n.msgs...)
}

const journal = "# Reading\n\n```backlink-heatmap\nid: heat-1\npath: Books/Dune.md\nyear: 2024\n```\n\nNotes after.\n"

type fixture struct {
	host     *fakeHost
	analyzer *fakeAnalyzer
	notifier *recordingNotifier
	engine   *Engine
}

func newFixture(t *testing.T, docs map[string]string) *fixture {
	t.Helper()
	f := &fixture{
		host:     newFakeHost(docs),
		analyzer: &fakeAnalyzer{},
		notifier: &recordingNotifier{},
	}
	f.engine = NewEngine(f.host, f.analyzer, Options{
		DebounceDelay: testDebounce,
		GraceDelay:    testGrace,
		Notifier:      f.notifier,
		Now:           func() time.Time { return testNow },
	})
	t.Cleanup(f.engine.Close)
	return f
}

func heatmap(id string, year int) *domain.HeatmapConfig {
	return &domain.HeatmapConfig{ID: id, Paths: []string{"Books/Dune.md"}, Year: year}
}

func (f *fixture) waitIdle(t *testing.T, h Handle) {
	t.Helper()
	require.Eventually(t, func() bool {
		s, _ := f.engine.State(h)
		return s == StateIdle
	}, time.Second, 5*time.Millisecond)
}

func TestRegister_Validation(t *testing.T) {
	f := newFixture(t, map[string]string{})

	_, err := f.engine.Register(Location{Path: "a.md"}, &domain.HeatmapConfig{}, nil)
	assert.ErrorIs(t, err, application.ErrMalformed, "missing id")

	_, err = f.engine.Register(Location{}, heatmap("h", 2024), nil)
	assert.ErrorIs(t, err, application.ErrMalformed, "missing carrier path")

	_, err = f.engine.Register(Location{Kind: CarrierGraph}, heatmap("h", 2024), nil)
	assert.NoError(t, err, "graph carriers may follow the active document")
}

func TestRegister_SameBlockTwice(t *testing.T) {
	f := newFixture(t, map[string]string{"Journal.md": journal})
	loc := Location{Path: "Journal.md"}

	h1, err := f.engine.Register(loc, heatmap("heat-1", 2024), nil)
	require.NoError(t, err)

	h2, err := f.engine.Register(loc, heatmap("heat-1", 2024), nil)
	assert.ErrorIs(t, err, ErrAlreadyRegistered)
	assert.Equal(t, h1, h2)

	h3, err := f.engine.Register(Location{Path: "Other.md"}, heatmap("heat-1", 2024), nil)
	require.NoError(t, err)
	assert.NotEqual(t, h1, h3)
	assert.Equal(t, 2, f.engine.Len())
}

func TestUpdateProperty_PatchesLinearCarrier(t *testing.T) {
	f := newFixture(t, map[string]string{"Journal.md": journal})
	h, err := f.engine.Register(Location{Path: "Journal.md"}, heatmap("heat-1", 2024), nil)
	require.NoError(t, err)

	res, err := f.engine.UpdateProperty(context.Background(), h, domain.KeyYear, "2025")

	require.NoError(t, err)
	assert.Equal(t, UpdateResult{Path: "Journal.md", Updated: 1}, res)
	assert.Equal(t, strings.Replace(journal, "year: 2024", "year: 2025", 1), f.host.doc("Journal.md"))

	cfg, _ := f.engine.Config(h)
	assert.Equal(t, 2025, cfg.(*domain.HeatmapConfig).Year)

	state, _ := f.engine.State(h)
	assert.Equal(t, StatePersisting, state, "flag stays set during the grace delay")
	f.waitIdle(t, h)
	assert.Empty(t, f.notifier.messages())
}

func TestUpdateProperty_MultiValuedPaths(t *testing.T) {
	f := newFixture(t, map[string]string{"Journal.md": journal})
	h, _ := f.engine.Register(Location{Path: "Journal.md"}, heatmap("heat-1", 2024), nil)

	_, err := f.engine.UpdateProperty(context.Background(), h, domain.KeyPath, "A.md", "B.md")

	require.NoError(t, err)
	assert.Contains(t, f.host.doc("Journal.md"), "id: heat-1\npath: A.md\npath: B.md\nyear: 2024\n```")
}

func TestUpdateProperty_EchoDuringGraceIsIgnored(t *testing.T) {
	f := newFixture(t, map[string]string{"Journal.md": journal})
	refreshed := 0
	var mu sync.Mutex
	h, _ := f.engine.Register(Location{Path: "Journal.md"}, heatmap("heat-1", 2024), func(Refreshed) {
		mu.Lock()
		refreshed++
		mu.Unlock()
	})

	_, err := f.engine.UpdateProperty(context.Background(), h, domain.KeyYear, "2023")
	require.NoError(t, err)

	// The host echoes the write while the flag is still set
	f.host.fireResolved()
	f.engine.Flush()
	assert.Equal(t, 0, f.analyzer.count(), "self-triggered notification must not refresh")

	f.waitIdle(t, h)

	// A later, external change refreshes
	f.host.fireResolved()
	f.engine.Flush()
	assert.Equal(t, 1, f.analyzer.count())
	mu.Lock()
	assert.Equal(t, 1, refreshed)
	mu.Unlock()
	assert.Equal(t, 2023, f.analyzer.queries[0].Year, "refresh uses the updated configuration")
}

func TestLinksResolved_BurstIsDebounced(t *testing.T) {
	f := newFixture(t, map[string]string{"Journal.md": journal})
	h1, _ := f.engine.Register(Location{Path: "Journal.md"}, heatmap("heat-1", 2024), nil)
	_, _ = f.engine.Register(Location{Path: "Other.md"}, &domain.CounterConfig{ID: "c1", Period: domain.PeriodThisWeek}, nil)

	for i := 0; i < 10; i++ {
		f.host.fireResolved()
	}
	assert.Equal(t, 2, f.engine.Pending())

	require.Eventually(t, func() bool { return f.analyzer.count() == 2 }, time.Second, 5*time.Millisecond)
	assert.Never(t, func() bool { return f.analyzer.count() > 2 }, 5*testDebounce, 5*time.Millisecond)

	state, _ := f.engine.State(h1)
	assert.Equal(t, StateIdle, state)
}

func TestRefresh_QueryPerKind(t *testing.T) {
	f := newFixture(t, map[string]string{})
	ctx := context.Background()

	cal, _ := f.engine.Register(Location{Path: "Plan.md"}, &domain.CalendarConfig{ID: "cal", Year: 2024, Month: time.June}, nil)
	cnt, _ := f.engine.Register(Location{Path: "Plan.md"}, &domain.CounterConfig{ID: "cnt", Paths: []string{"A.md", "B.md"}, Period: domain.PeriodToday}, nil)

	_, err := f.engine.Refresh(ctx, cal)
	require.NoError(t, err)
	_, err = f.engine.Refresh(ctx, cnt)
	require.NoError(t, err)

	assert.Equal(t, analysis.Query{Year: 2024, Month: time.June}, f.analyzer.queries[0])
	assert.Equal(t, []string{"Plan.md"}, f.analyzer.paths[0], "no path watches the carrier itself")
	assert.Equal(t, analysis.Query{Period: domain.PeriodToday}, f.analyzer.queries[1])
	assert.Equal(t, []string{"A.md", "B.md"}, f.analyzer.paths[1])
}

func TestRefresh_BusyWhilePersisting(t *testing.T) {
	f := newFixture(t, map[string]string{"Journal.md": journal})
	h, _ := f.engine.Register(Location{Path: "Journal.md"}, heatmap("heat-1", 2024), nil)

	_, err := f.engine.UpdateProperty(context.Background(), h, domain.KeyYear, "2025")
	require.NoError(t, err)

	_, err = f.engine.Refresh(context.Background(), h)
	assert.ErrorIs(t, err, ErrBusy)
	assert.ErrorIs(t, err, application.ErrInvalidOperation)
}

// gatedAnalyzer holds its first call until release is closed
type gatedAnalyzer struct {
	*fakeAnalyzer
	once    sync.Once
	entered chan struct{}
	release chan struct{}
}

func (a *gatedAnalyzer) AnalyzeMany(ctx context.Context, paths []string, q analysis.Query) (*analysis.Analysis, error) {
	first := false
	a.once.Do(func() { first = true })
	if first {
		close(a.entered)
		<-a.release
	}
	return a.fakeAnalyzer.AnalyzeMany(ctx, paths, q)
}

func TestLinksResolved_DuringRefreshIsQueuedAgain(t *testing.T) {
	host := newFakeHost(map[string]string{"Journal.md": journal})
	gate := &gatedAnalyzer{
		fakeAnalyzer: &fakeAnalyzer{},
		entered:      make(chan struct{}),
		release:      make(chan struct{}),
	}
	engine := NewEngine(host, gate, Options{DebounceDelay: testDebounce, GraceDelay: testGrace})
	t.Cleanup(engine.Close)
	h, err := engine.Register(Location{Path: "Journal.md"}, heatmap("heat-1", 2024), nil)
	require.NoError(t, err)

	host.fireResolved()
	<-gate.entered
	state, _ := engine.State(h)
	require.Equal(t, StateRefreshing, state)

	host.fireResolved()
	close(gate.release)

	require.Eventually(t, func() bool { return gate.count() == 2 }, time.Second, 5*time.Millisecond)
	assert.Never(t, func() bool { return gate.count() > 2 }, 5*testDebounce, 5*time.Millisecond)
}

func TestRefresh_AnalyzerErrorReturnsToIdle(t *testing.T) {
	f := newFixture(t, map[string]string{})
	f.analyzer.err = errors.New("index closed")
	h, _ := f.engine.Register(Location{Path: "Plan.md"}, heatmap("h", 2024), nil)

	_, err := f.engine.Refresh(context.Background(), h)

	assert.ErrorIs(t, err, f.analyzer.err)
	state, _ := f.engine.State(h)
	assert.Equal(t, StateIdle, state)
}

func TestUpdateProperty_GraphDuplicates(t *testing.T) {
	block := "```backlink-counter\\nid: dup\\nperiod: today\\n```"
	canvas := `{"nodes":[` +
		`{"id":"a","type":"text","text":"` + block + `","x":0,"y":0},` +
		`{"id":"b","type":"text","text":"copy\n` + block + `","x":10,"y":0},` +
		`{"id":"c","type":"file","file":"Books/Dune.md"}` +
		`],"edges":[]}`
	f := newFixture(t, map[string]string{"Board.canvas": canvas})
	h, _ := f.engine.Register(Location{Kind: CarrierGraph, Path: "Board.canvas"}, &domain.CounterConfig{ID: "dup", Period: domain.PeriodToday}, nil)

	res, err := f.engine.UpdateProperty(context.Background(), h, domain.KeyPeriod, domain.PeriodThisWeek)

	require.NoError(t, err)
	assert.Equal(t, 2, res.Updated)
	assert.Equal(t, []string{"2 duplicates updated"}, f.notifier.messages())

	doc, err := domain.ParseGraphDocument([]byte(f.host.doc("Board.canvas")))
	require.NoError(t, err)
	for _, i := range []int{0, 1} {
		text, _ := doc.NodeText(i)
		assert.Contains(t, text, "period: this-week")
	}
}

func TestUpdateProperty_ActiveGraphDocument(t *testing.T) {
	canvas := `[{"id":"a","text":"` + "```backlink-heatmap\\nid: h\\nyear: 2024\\n```" + `"}]`
	f := newFixture(t, map[string]string{"Boards/Now.canvas": canvas})
	h, _ := f.engine.Register(Location{Kind: CarrierGraph}, heatmap("h", 2024), nil)

	res, err := f.engine.UpdateProperty(context.Background(), h, domain.KeyYear, "2022")
	require.NoError(t, err)
	assert.Equal(t, 0, res.Updated, "no focused graph document")

	f.host.active = "Boards/Now.canvas"
	f.waitIdle(t, h)
	res, err = f.engine.UpdateProperty(context.Background(), h, domain.KeyYear, "2022")
	require.NoError(t, err)
	assert.Equal(t, UpdateResult{Path: "Boards/Now.canvas", Updated: 1}, res)
}

func TestUpdateProperty_NotFoundIsNoOp(t *testing.T) {
	f := newFixture(t, map[string]string{"Journal.md": journal, "Board.canvas": "not json"})
	ctx := context.Background()

	missingBlock, _ := f.engine.Register(Location{Path: "Journal.md"}, heatmap("gone", 2024), nil)
	missingDoc, _ := f.engine.Register(Location{Path: "Deleted.md"}, heatmap("heat-1", 2024), nil)
	malformed, _ := f.engine.Register(Location{Kind: CarrierGraph, Path: "Board.canvas"}, heatmap("heat-1", 2024), nil)

	for _, h := range []Handle{missingBlock, missingDoc, malformed} {
		res, err := f.engine.UpdateProperty(ctx, h, domain.KeyYear, "2020")
		assert.NoError(t, err)
		assert.Equal(t, 0, res.Updated)
	}
	assert.Equal(t, 0, f.host.writes)
	assert.Equal(t, journal, f.host.doc("Journal.md"))
	assert.Empty(t, f.notifier.messages())
}

func TestUpdateProperty_WriteFailure(t *testing.T) {
	f := newFixture(t, map[string]string{"Journal.md": journal})
	f.host.writeErr = errors.New("read-only file system")
	h, _ := f.engine.Register(Location{Path: "Journal.md"}, heatmap("heat-1", 2024), nil)

	_, err := f.engine.UpdateProperty(context.Background(), h, domain.KeyYear, "2025")

	assert.ErrorIs(t, err, application.ErrIOFailure)
	assert.ErrorIs(t, err, f.host.writeErr)
	require.Len(t, f.notifier.messages(), 1)
	assert.Contains(t, f.notifier.messages()[0], "Journal.md")

	// The instance stays usable and retries succeed
	f.waitIdle(t, h)
	f.host.writeErr = nil
	res, err := f.engine.UpdateProperty(context.Background(), h, domain.KeyYear, "2025")
	require.NoError(t, err)
	assert.Equal(t, 1, res.Updated)
}

func TestUpdateProperty_UnchangedValueSkipsWrite(t *testing.T) {
	f := newFixture(t, map[string]string{"Journal.md": journal})
	h, _ := f.engine.Register(Location{Path: "Journal.md"}, heatmap("heat-1", 2024), nil)

	res, err := f.engine.UpdateProperty(context.Background(), h, domain.KeyYear, "2024")

	require.NoError(t, err)
	assert.Equal(t, 1, res.Updated)
	assert.Equal(t, 0, f.host.writes)
}

func TestUpdateProperty_RejectsInvalidInput(t *testing.T) {
	f := newFixture(t, map[string]string{"Journal.md": journal})
	h, _ := f.engine.Register(Location{Path: "Journal.md"}, heatmap("heat-1", 2024), nil)
	ctx := context.Background()

	tests := []struct {
		name   string
		key    string
		values []string
	}{
		{"id never changes", "id", []string{"other"}},
		{"bad key", "two words", []string{"x"}},
		{"multi-line value", "label", []string{"a\nb"}},
		{"malformed year", "year", []string{"soon"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.engine.UpdateProperty(ctx, h, tt.key, tt.values...)
			assert.ErrorIs(t, err, application.ErrMalformed)
		})
	}
	assert.Equal(t, journal, f.host.doc("Journal.md"))
	state, _ := f.engine.State(h)
	assert.Equal(t, StateIdle, state, "rejected updates never start persisting")
}

func TestDispose(t *testing.T) {
	f := newFixture(t, map[string]string{"Journal.md": journal})
	h, _ := f.engine.Register(Location{Path: "Journal.md"}, heatmap("heat-1", 2024), nil)
	_, err := f.engine.UpdateProperty(context.Background(), h, domain.KeyYear, "2025")
	require.NoError(t, err)

	f.engine.Dispose(h)

	_, err = f.engine.UpdateProperty(context.Background(), h, domain.KeyYear, "2026")
	assert.ErrorIs(t, err, application.ErrNotFound)
	_, ok := f.engine.State(h)
	assert.False(t, ok)

	f.host.fireResolved()
	f.engine.Flush()
	assert.Equal(t, 0, f.analyzer.count())
}

func TestMount(t *testing.T) {
	text := journal + "\n```backlink-calendar\nid: cal\nyear: 2024\nmonth: 99\n```\n\n```backlink-counter\nperiod: today\n```\n"
	f := newFixture(t, map[string]string{"Journal.md": text})
	ctx := context.Background()
	loc := Location{Path: "Journal.md"}

	h, cfg, err := f.engine.Mount(ctx, loc, domain.KindCalendar, "cal", nil)
	require.NoError(t, err)
	assert.NotZero(t, h)
	assert.Equal(t, time.November, cfg.(*domain.CalendarConfig).Month, "malformed month falls back alone")
	assert.Equal(t, 2024, cfg.(*domain.CalendarConfig).Year)

	_, _, err = f.engine.Mount(ctx, loc, domain.KindCalendar, "nope", nil)
	assert.ErrorIs(t, err, application.ErrNotFound)

	_, _, err = f.engine.Mount(ctx, Location{Path: "Missing.md"}, domain.KindHeatmap, "heat-1", nil)
	assert.ErrorIs(t, err, application.ErrNotFound)
}

func TestClose_Unsubscribes(t *testing.T) {
	f := newFixture(t, map[string]string{})
	_, _ = f.engine.Register(Location{Path: "Plan.md"}, heatmap("h", 2024), nil)

	f.engine.Close()
	f.host.fireResolved()
	f.engine.Flush()

	assert.Equal(t, 0, f.analyzer.count())
	assert.Empty(t, f.host.subscribers)
	_, err := f.engine.Register(Location{Path: "Plan.md"}, heatmap("h2", 2024), nil)
	assert.ErrorIs(t, err, application.ErrInvalidOperation)
}

func TestView_DuringGraceUsesNewConfig(t *testing.T) {
	f := newFixture(t, map[string]string{"Journal.md": journal})
	refreshed := false
	h, _ := f.engine.Register(Location{Path: "Journal.md"}, heatmap("heat-1", 2024), func(Refreshed) { refreshed = true })

	_, err := f.engine.UpdateProperty(context.Background(), h, domain.KeyYear, "2022")
	require.NoError(t, err)

	a, err := f.engine.View(context.Background(), h)

	require.NoError(t, err)
	assert.Equal(t, 2022, a.Year)
	state, _ := f.engine.State(h)
	assert.Equal(t, StatePersisting, state, "View does not touch the state")
	assert.False(t, refreshed)

	_, err = f.engine.View(context.Background(), Handle(999))
	assert.ErrorIs(t, err, application.ErrNotFound)
}
