package views

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"linkcal/internal/adapters/tui/styles"
	"linkcal/internal/application/analysis"
	"linkcal/internal/domain"
)

// Instance is the live heatmap block the view renders and edits
type Instance interface {
	// Carrier is the vault-relative document holding the block
	Carrier() string
	// Watched lists the notes whose references are counted
	Watched() []string
	// Load computes the current view without changing the block
	Load(ctx context.Context) (*analysis.Analysis, error)
	// SetYear persists a new year into the block and recomputes
	SetYear(ctx context.Context, year int) (*analysis.Analysis, error)
	// Reload decodes the block again from its carrier and recomputes
	Reload(ctx context.Context) (*analysis.Analysis, error)
	// Bounds returns the navigable year window
	Bounds(ctx context.Context) (domain.RangeBounds, error)
}

// HeatmapKeyMap defines key bindings for the heatmap view
type HeatmapKeyMap struct {
	PrevYear key.Binding
	NextYear key.Binding
	Refresh  key.Binding
	Copy     key.Binding
	Edit     key.Binding
	Obsidian key.Binding
	Help     key.Binding
	Quit     key.Binding
}

var HeatmapKeys = HeatmapKeyMap{
	PrevYear: key.NewBinding(
		key.WithKeys("h", "left"),
		key.WithHelp("h/←", "previous year"),
	),
	NextYear: key.NewBinding(
		key.WithKeys("l", "right"),
		key.WithHelp("l/→", "next year"),
	),
	Refresh: key.NewBinding(
		key.WithKeys("r"),
		key.WithHelp("r", "refresh"),
	),
	Copy: key.NewBinding(
		key.WithKeys("y"),
		key.WithHelp("y", "copy summary"),
	),
	Edit: key.NewBinding(
		key.WithKeys("e"),
		key.WithHelp("e", "edit block"),
	),
	Obsidian: key.NewBinding(
		key.WithKeys("o"),
		key.WithHelp("o", "open in Obsidian"),
	),
	Help: key.NewBinding(
		key.WithKeys("?"),
		key.WithHelp("?", "help"),
	),
	Quit: key.NewBinding(
		key.WithKeys("q", "ctrl+c"),
		key.WithHelp("q", "quit"),
	),
}

// ShortHelp implements help.KeyMap
func (k HeatmapKeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.PrevYear, k.NextYear, k.Copy, k.Edit, k.Help, k.Quit}
}

// FullHelp implements help.KeyMap
func (k HeatmapKeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.PrevYear, k.NextYear, k.Refresh},
		{k.Copy, k.Edit, k.Obsidian},
		{k.Help, k.Quit},
	}
}

// Messages

// AnalysisMsg carries a recomputed view, from a key press or a host refresh
type AnalysisMsg struct {
	Analysis *analysis.Analysis
	Err      error
}

// NoticeMsg carries a user-facing notice
type NoticeMsg struct {
	Text  string
	IsErr bool
}

type boundsMsg struct {
	bounds domain.RangeBounds
	err    error
}

// OpenEditorMsg asks the app to open the carrier in $EDITOR
type OpenEditorMsg struct{ Path string }

// OpenObsidianMsg asks the app to open a note in Obsidian
type OpenObsidianMsg struct{ Path string }

// SwitchToHelpMsg shows the help view
type SwitchToHelpMsg struct{}

// SwitchToHeatmapMsg returns to the heatmap
type SwitchToHeatmapMsg struct{}

// HeatmapModel renders one heatmap block
type HeatmapModel struct {
	status   statusLine
	inst     Instance
	firstDay time.Weekday
	now      func() time.Time
	copy     func(string) error
	help     help.Model

	analysis *analysis.Analysis
	bounds   *domain.RangeBounds
	year     int
	loading  bool
}

// NewHeatmapModel creates a heatmap view over a live instance
func NewHeatmapModel(inst Instance, year int, firstDay time.Weekday) *HeatmapModel {
	return &HeatmapModel{
		inst:     inst,
		firstDay: firstDay,
		now:      time.Now,
		copy:     clipboard.WriteAll,
		help:     help.New(),
		year:     year,
	}
}

// Init loads the first view and the year bounds
func (m *HeatmapModel) Init() tea.Cmd {
	m.loading = true
	return tea.Batch(m.load, m.loadBounds)
}

func (m *HeatmapModel) load() tea.Msg {
	a, err := m.inst.Load(context.Background())
	return AnalysisMsg{Analysis: a, Err: err}
}

func (m *HeatmapModel) reload() tea.Msg {
	a, err := m.inst.Reload(context.Background())
	return AnalysisMsg{Analysis: a, Err: err}
}

// Reload returns a command that re-reads the block, e.g. after an external edit
func (m *HeatmapModel) Reload() tea.Cmd {
	m.loading = true
	return tea.Batch(m.reload, m.loadBounds)
}

func (m *HeatmapModel) loadBounds() tea.Msg {
	b, err := m.inst.Bounds(context.Background())
	return boundsMsg{bounds: b, err: err}
}

func (m *HeatmapModel) setYear(year int) tea.Cmd {
	return func() tea.Msg {
		a, err := m.inst.SetYear(context.Background(), year)
		return AnalysisMsg{Analysis: a, Err: err}
	}
}

// Year returns the year on display
func (m *HeatmapModel) Year() int { return m.year }

// Status returns the current notice text
func (m *HeatmapModel) Status() string { return m.status.text }

// Update handles messages for the heatmap
func (m *HeatmapModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.help.Width = msg.Width
		return m, nil

	case AnalysisMsg:
		m.loading = false
		if msg.Err != nil {
			if m.analysis != nil {
				m.year = m.analysis.Year
			}
			m.status.set(msg.Err.Error(), true)
			return m, nil
		}
		if msg.Analysis != nil {
			m.analysis = msg.Analysis
			m.year = msg.Analysis.Year
		}
		return m, nil

	case boundsMsg:
		if msg.err == nil {
			m.bounds = &msg.bounds
		}
		return m, nil

	case NoticeMsg:
		m.status.set(msg.Text, msg.IsErr)
		return m, nil

	case tea.KeyMsg:
		return m, m.handleKey(msg)
	}
	return m, nil
}

func (m *HeatmapModel) handleKey(msg tea.KeyMsg) tea.Cmd {
	switch {
	case key.Matches(msg, HeatmapKeys.Quit):
		return tea.Quit

	case key.Matches(msg, HeatmapKeys.PrevYear):
		return m.stepYear(-1)

	case key.Matches(msg, HeatmapKeys.NextYear):
		return m.stepYear(1)

	case key.Matches(msg, HeatmapKeys.Refresh):
		m.loading = true
		return tea.Batch(m.load, m.loadBounds)

	case key.Matches(msg, HeatmapKeys.Copy):
		if m.analysis == nil {
			return nil
		}
		if err := m.copy(m.Summary()); err != nil {
			m.status.set("Copy failed: "+err.Error(), true)
		} else {
			m.status.set("Summary copied", false)
		}
		return nil

	case key.Matches(msg, HeatmapKeys.Edit):
		path := m.inst.Carrier()
		return func() tea.Msg { return OpenEditorMsg{Path: path} }

	case key.Matches(msg, HeatmapKeys.Obsidian):
		path := m.inst.Carrier()
		if w := m.inst.Watched(); len(w) > 0 {
			path = w[0]
		}
		return func() tea.Msg { return OpenObsidianMsg{Path: path} }

	case key.Matches(msg, HeatmapKeys.Help):
		return func() tea.Msg { return SwitchToHelpMsg{} }
	}
	return nil
}

// stepYear moves within the navigable bounds and persists the new year
func (m *HeatmapModel) stepYear(delta int) tea.Cmd {
	if m.loading {
		return nil
	}
	year := m.year + delta
	if m.bounds != nil && (year < m.bounds.Min.Year || year > m.bounds.Max.Year) {
		return nil
	}
	m.year = year
	m.loading = true
	m.status.clear()
	return m.setYear(year)
}

// Summary is the plain-text digest copied to the clipboard
func (m *HeatmapModel) Summary() string {
	a := m.analysis
	if a == nil {
		return ""
	}
	notes := strings.Join(m.inst.Watched(), ", ")
	if notes == "" {
		notes = m.inst.Carrier()
	}
	busiest, peak := "", 0
	for _, k := range a.Days.Keys() {
		if c := a.Days.Count(k); c > peak {
			busiest, peak = k, c
		}
	}

	s := fmt.Sprintf("%s in %d: %d references across %d days; %s: %d",
		notes, a.Year, a.Total, len(a.Days), a.Period.Token, a.CurrentPeriodCount)
	if peak > 0 {
		s += fmt.Sprintf("; busiest %s (%d)", busiest, peak)
	}
	return s
}

// View renders the heatmap view
func (m *HeatmapModel) View() string {
	var b strings.Builder

	title := m.inst.Carrier()
	if w := m.inst.Watched(); len(w) > 0 {
		title = strings.Join(w, " + ")
	}
	b.WriteString(styles.Title.Render(fmt.Sprintf("%s  ‹ %d ›", title, m.year)))
	b.WriteString("\n")

	switch {
	case m.analysis == nil && m.loading:
		b.WriteString(styles.Subtitle.Render("Loading..."))
		b.WriteString("\n")
	case m.analysis != nil:
		a := m.analysis
		b.WriteString(RenderYear(a.Days, a.Year, m.firstDay, m.now()))
		b.WriteString("\n")
		b.WriteString(styles.Count.Render(fmt.Sprint(a.Total)))
		b.WriteString(styles.MutedText.Render(fmt.Sprintf(" references in %d   ", a.Year)))
		b.WriteString(styles.Count.Render(fmt.Sprint(a.CurrentPeriodCount)))
		b.WriteString(styles.MutedText.Render(" " + a.Period.Token))
		b.WriteString("\n")
	}

	if line := m.status.render(); line != "" {
		b.WriteString("\n")
		b.WriteString(line)
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(m.help.View(HeatmapKeys))
	return styles.App.Render(b.String())
}
