package tui

import (
	"path/filepath"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"linkcal/internal/adapters/tui/views"
	"linkcal/internal/application/configsync"
	"linkcal/internal/ports"
)

// ViewState represents the current view
type ViewState int

const (
	ViewHeatmap ViewState = iota
	ViewHelp
)

// Events bridges engine callbacks, which run on engine goroutines, into the
// bubbletea loop. Only the newest pending analysis is kept; notices queue.
type Events struct {
	latest  chan tea.Msg
	notices chan tea.Msg
}

// NewEvents creates an event bridge
func NewEvents() *Events {
	return &Events{
		latest:  make(chan tea.Msg, 1),
		notices: make(chan tea.Msg, 16),
	}
}

// Refreshed is the configsync.RefreshFunc of the mounted instance
func (e *Events) Refreshed(r configsync.Refreshed) {
	msg := views.AnalysisMsg{Analysis: r.Analysis}
	for {
		select {
		case e.latest <- msg:
			return
		default:
		}
		// Replace the stale analysis still waiting
		select {
		case <-e.latest:
		default:
		}
	}
}

// Notify implements ports.Notifier as a status line notice. A full buffer
// drops the notice.
func (e *Events) Notify(msg string) {
	select {
	case e.notices <- views.NoticeMsg{Text: msg}:
	default:
	}
}

func (e *Events) wait() tea.Msg {
	select {
	case msg := <-e.latest:
		return eventMsg{msg}
	case msg := <-e.notices:
		return eventMsg{msg}
	}
}

type eventMsg struct{ msg tea.Msg }

// App is the main TUI application model
type App struct {
	vaultPath string
	line      int
	events    *Events
	editor    ports.EditorOpener
	obsidian  ports.ObsidianOpener

	state   ViewState
	heatmap *views.HeatmapModel
	help    *views.HelpModel
}

// Options configures the App
type Options struct {
	VaultPath      string
	Line           int // Line of the block in its carrier, for the editor
	Year           int
	FirstDayOfWeek time.Weekday
	Editor         ports.EditorOpener
	Obsidian       ports.ObsidianOpener
}

// NewApp creates a new TUI application over a mounted instance
func NewApp(inst views.Instance, events *Events, opts Options) *App {
	return &App{
		vaultPath: opts.VaultPath,
		line:      opts.Line,
		events:    events,
		editor:    opts.Editor,
		obsidian:  opts.Obsidian,
		state:     ViewHeatmap,
		heatmap:   views.NewHeatmapModel(inst, opts.Year, opts.FirstDayOfWeek),
		help:      views.NewHelpModel(),
	}
}

// Init initializes the application
func (a *App) Init() tea.Cmd {
	return tea.Batch(a.heatmap.Init(), a.events.wait)
}

// Update handles messages for the application
func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case eventMsg:
		_, cmd := a.heatmap.Update(msg.msg)
		return a, tea.Batch(cmd, a.events.wait)

	case views.SwitchToHelpMsg:
		a.state = ViewHelp
		return a, nil

	case views.SwitchToHeatmapMsg:
		a.state = ViewHeatmap
		return a, nil

	case views.OpenEditorMsg:
		return a, a.openEditor(msg.Path)

	case views.OpenObsidianMsg:
		return a, a.openObsidian(msg.Path)

	case editorFinishedMsg:
		if msg.err != nil {
			a.heatmap.Update(views.NoticeMsg{Text: "Editor: " + msg.err.Error(), IsErr: true})
			return a, nil
		}
		return a, a.heatmap.Reload()
	}

	var cmd tea.Cmd
	switch a.state {
	case ViewHelp:
		_, cmd = a.help.Update(msg)
	default:
		_, cmd = a.heatmap.Update(msg)
	}
	return a, cmd
}

type editorFinishedMsg struct{ err error }

func (a *App) openEditor(path string) tea.Cmd {
	if a.editor == nil {
		return nil
	}

	cmd, err := a.editor.Command(filepath.Join(a.vaultPath, filepath.FromSlash(path)), a.line)
	if err != nil {
		return func() tea.Msg {
			return editorFinishedMsg{err: err}
		}
	}

	return tea.ExecProcess(cmd, func(err error) tea.Msg {
		return editorFinishedMsg{err: err}
	})
}

func (a *App) openObsidian(path string) tea.Cmd {
	if a.obsidian == nil {
		return nil
	}
	return func() tea.Msg {
		if err := a.obsidian.OpenFile(path); err != nil {
			return views.NoticeMsg{Text: "Obsidian: " + err.Error(), IsErr: true}
		}
		return views.NoticeMsg{Text: "Opened " + path + " in Obsidian"}
	}
}

// View renders the current view
func (a *App) View() string {
	if a.state == ViewHelp {
		return a.help.View()
	}
	return a.heatmap.View()
}
