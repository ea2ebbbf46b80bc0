package domain

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ComponentKind names the fence of a rendered component's block
type ComponentKind string

const (
	KindHeatmap  ComponentKind = "backlink-heatmap"  // Year grid
	KindCalendar ComponentKind = "backlink-calendar" // Month grid
	KindCounter  ComponentKind = "backlink-counter"  // Count for a period
)

// Property keys
const (
	KeyPath   = "path"
	KeyYear   = "year"
	KeyMonth  = "month"
	KeyPeriod = "period"
	KeyLabel  = "label"
)

var (
	ErrMissingID   = errors.New("block has no id")
	ErrUnknownKind = errors.New("unknown component kind")
)

// ComponentKinds lists every supported kind
func ComponentKinds() []ComponentKind {
	return []ComponentKind{KindHeatmap, KindCalendar, KindCounter}
}

// ParseComponentKind validates a fence kind
func ParseComponentKind(s string) (ComponentKind, bool) {
	for _, k := range ComponentKinds() {
		if string(k) == strings.TrimSpace(s) {
			return k, true
		}
	}
	return "", false
}

// Config is the typed configuration of one rendered component
type Config interface {
	Kind() ComponentKind
	BlockID() string
	WatchedPaths() []string
	Properties() []Property
}

// HeatmapConfig configures a year heatmap
type HeatmapConfig struct {
	ID    string
	Paths []string
	Year  int
}

func (c *HeatmapConfig) Kind() ComponentKind    { return KindHeatmap }
func (c *HeatmapConfig) BlockID() string        { return c.ID }
func (c *HeatmapConfig) WatchedPaths() []string { return c.Paths }

func (c *HeatmapConfig) Properties() []Property {
	props := []Property{{Key: IDKey, Values: []string{c.ID}}}
	if len(c.Paths) > 0 {
		props = append(props, Property{Key: KeyPath, Values: c.Paths})
	}
	return append(props, Property{Key: KeyYear, Values: []string{strconv.Itoa(c.Year)}})
}

// CalendarConfig configures a month calendar
type CalendarConfig struct {
	ID    string
	Paths []string
	Year  int
	Month time.Month
}

func (c *CalendarConfig) Kind() ComponentKind    { return KindCalendar }
func (c *CalendarConfig) BlockID() string        { return c.ID }
func (c *CalendarConfig) WatchedPaths() []string { return c.Paths }

func (c *CalendarConfig) Properties() []Property {
	props := []Property{{Key: IDKey, Values: []string{c.ID}}}
	if len(c.Paths) > 0 {
		props = append(props, Property{Key: KeyPath, Values: c.Paths})
	}
	return append(props,
		Property{Key: KeyYear, Values: []string{strconv.Itoa(c.Year)}},
		Property{Key: KeyMonth, Values: []string{strconv.Itoa(int(c.Month))}},
	)
}

// CounterConfig configures a period counter
type CounterConfig struct {
	ID     string
	Paths  []string
	Period string
	Label  string
}

func (c *CounterConfig) Kind() ComponentKind    { return KindCounter }
func (c *CounterConfig) BlockID() string        { return c.ID }
func (c *CounterConfig) WatchedPaths() []string { return c.Paths }

func (c *CounterConfig) Properties() []Property {
	props := []Property{{Key: IDKey, Values: []string{c.ID}}}
	if len(c.Paths) > 0 {
		props = append(props, Property{Key: KeyPath, Values: c.Paths})
	}
	props = append(props, Property{Key: KeyPeriod, Values: []string{c.Period}})
	if c.Label != "" {
		props = append(props, Property{Key: KeyLabel, Values: []string{c.Label}})
	}
	return props
}

// Fallback records a malformed property replaced by its default
type Fallback struct {
	Key     string
	Raw     string
	Default string
}

func (f Fallback) String() string {
	return fmt.Sprintf("%s: %q is invalid, using %s", f.Key, f.Raw, f.Default)
}

// DecodeConfig converts a parsed block into its typed configuration. A missing id
// fails the whole block; a malformed property falls back to its default alone.
func DecodeConfig(b Block, now time.Time) (Config, []Fallback, error) {
	kind, ok := ParseComponentKind(b.Kind)
	if !ok {
		return nil, nil, fmt.Errorf("%w: %s", ErrUnknownKind, b.Kind)
	}
	id := b.ID()
	if id == "" {
		return nil, nil, ErrMissingID
	}

	var fallbacks []Fallback
	paths := cleanValues(b.Values(KeyPath))

	year := func() int {
		raw, ok := b.Value(KeyYear)
		if !ok {
			return now.Year()
		}
		y, err := strconv.Atoi(raw)
		if err != nil || y < MinBoundsYear || y > 9999 {
			fallbacks = append(fallbacks, Fallback{Key: KeyYear, Raw: raw, Default: strconv.Itoa(now.Year())})
			return now.Year()
		}
		return y
	}

	switch kind {
	case KindHeatmap:
		return &HeatmapConfig{ID: id, Paths: paths, Year: year()}, fallbacks, nil

	case KindCalendar:
		cfg := &CalendarConfig{ID: id, Paths: paths, Year: year(), Month: now.Month()}
		if raw, ok := b.Value(KeyMonth); ok {
			m, err := strconv.Atoi(raw)
			if err != nil || m < 1 || m > 12 {
				fallbacks = append(fallbacks, Fallback{Key: KeyMonth, Raw: raw, Default: strconv.Itoa(int(now.Month()))})
			} else {
				cfg.Month = time.Month(m)
			}
		}
		return cfg, fallbacks, nil

	default:
		cfg := &CounterConfig{ID: id, Paths: paths, Period: DefaultPeriodToken}
		if raw, ok := b.Value(KeyPeriod); ok {
			if IsPeriodToken(raw) {
				cfg.Period = raw
			} else {
				fallbacks = append(fallbacks, Fallback{Key: KeyPeriod, Raw: raw, Default: DefaultPeriodToken})
			}
		}
		cfg.Label, _ = b.Value(KeyLabel)
		return cfg, fallbacks, nil
	}
}

// NewConfig builds a fresh configuration with a newly assigned block id
func NewConfig(kind ComponentKind, paths []string, now time.Time) (Config, error) {
	id := NewBlockID()
	switch kind {
	case KindHeatmap:
		return &HeatmapConfig{ID: id, Paths: paths, Year: now.Year()}, nil
	case KindCalendar:
		return &CalendarConfig{ID: id, Paths: paths, Year: now.Year(), Month: now.Month()}, nil
	case KindCounter:
		return &CounterConfig{ID: id, Paths: paths, Period: DefaultPeriodToken}, nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownKind, kind)
	}
}

// NewBlockID returns an opaque id. It is assigned once and never changes.
func NewBlockID() string {
	return uuid.NewString()
}

// cleanValues trims values and unwraps [[wiki links]], dropping empties
func cleanValues(values []string) []string {
	var out []string
	for _, v := range values {
		v = strings.TrimSpace(v)
		if strings.HasPrefix(v, "[[") && strings.HasSuffix(v, "]]") {
			v = strings.TrimSpace(strings.SplitN(v[2:len(v)-2], "|", 2)[0])
		}
		if v != "" {
			out = append(out, v)
		}
	}
	return out
}
