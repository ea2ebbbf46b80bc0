package configsync

import (
	"fmt"
	"time"

	"linkcal/internal/application"
	"linkcal/internal/application/analysis"
	"linkcal/internal/domain"
)

// State is the lifecycle state of a live instance
type State int

const (
	StateIdle State = iota
	StatePersisting
	StateRefreshing
)

func (s State) String() string {
	switch s {
	case StatePersisting:
		return "persisting"
	case StateRefreshing:
		return "refreshing"
	default:
		return "idle"
	}
}

// ErrBusy is returned when a transition is not allowed from the current state
var ErrBusy = fmt.Errorf("%w: instance is busy", application.ErrInvalidOperation)

// CarrierKind tells how a carrier document stores its blocks
type CarrierKind int

const (
	CarrierLinear CarrierKind = iota // Markdown text
	CarrierGraph                     // Canvas node array
)

func (k CarrierKind) String() string {
	if k == CarrierGraph {
		return "graph"
	}
	return "linear"
}

// CarrierFor picks the carrier kind from a document path
func CarrierFor(path string) CarrierKind {
	if domain.DocumentKindOf(path) == domain.DocumentCanvas {
		return CarrierGraph
	}
	return CarrierLinear
}

// Location identifies the carrier document of a block. An empty graph path
// means the currently focused graph document.
type Location struct {
	Kind CarrierKind
	Path string
}

func (l Location) String() string {
	if l.Path == "" {
		return l.Kind.String() + ":<active>"
	}
	return l.Kind.String() + ":" + l.Path
}

// Handle is an opaque reference to a registered instance
type Handle uint64

// Refreshed carries a recomputed view to a rendered instance
type Refreshed struct {
	Handle   Handle
	Config   domain.Config
	Analysis *analysis.Analysis
}

// RefreshFunc receives recomputed views. It runs on the engine's goroutine.
type RefreshFunc func(Refreshed)

// instance is the bookkeeping of one rendered component
type instance struct {
	handle    Handle
	loc       Location
	cfg       domain.Config
	state     State
	gen       uint64 // Bumped by every persist, guards stale grace timers
	last      *analysis.Analysis
	onRefresh RefreshFunc
	grace     *time.Timer
	dirty     bool // Links resolved while refreshing; the result may be stale
}

// beginPersist moves to Persisting. A persist may start from any state; a
// user edit always wins over a refresh in flight.
func (in *instance) beginPersist() uint64 {
	if in.grace != nil {
		in.grace.Stop()
		in.grace = nil
	}
	in.state = StatePersisting
	in.gen++
	return in.gen
}

// endPersist returns to Idle unless a newer persist started since gen
func (in *instance) endPersist(gen uint64) bool {
	if in.state != StatePersisting || in.gen != gen {
		return false
	}
	in.state = StateIdle
	in.grace = nil
	return true
}

// beginRefresh moves Idle to Refreshing
func (in *instance) beginRefresh() error {
	if in.state != StateIdle {
		return ErrBusy
	}
	in.state = StateRefreshing
	return nil
}

// endRefresh stores the result and returns to Idle. It reports false when a
// persist took over meanwhile, in which case the result is stale.
func (in *instance) endRefresh(a *analysis.Analysis) bool {
	if in.state != StateRefreshing {
		return false
	}
	in.state = StateIdle
	if a != nil {
		in.last = a
	}
	return true
}

// takeDirty reports and clears a notification missed during a refresh
func (in *instance) takeDirty() bool {
	d := in.dirty
	in.dirty = false
	return d
}

// query builds the analysis request for the instance's component kind
func query(cfg domain.Config) analysis.Query {
	switch c := cfg.(type) {
	case *domain.HeatmapConfig:
		return analysis.Query{Year: c.Year}
	case *domain.CalendarConfig:
		return analysis.Query{Year: c.Year, Month: c.Month}
	case *domain.CounterConfig:
		return analysis.Query{Period: c.Period}
	default:
		return analysis.Query{}
	}
}
