package view

import (
	"fmt"
	"time"

	"scoreview/internal/metrics"
)

// View kinds.
const (
	KindHistory       = "history"
	KindMissingChecks = "missing-checks"
	KindStatus        = "status"
	KindScoreboard    = "scoreboard"
)

// Kinds lists all view kinds.
var Kinds = []string{KindScoreboard, KindStatus, KindHistory, KindMissingChecks}

// Selectable reports whether a view kind is loaded for a selected service.
func Selectable(kind string) bool {
	return kind == KindHistory || kind == KindMissingChecks
}

// Prototype column names.
const (
	ColumnRank     = "rank"
	ColumnImage    = "image"
	ColumnName     = "name"
	ColumnServices = "services"
	ColumnOffense  = "offense"
	ColumnDefense  = "defense"
	ColumnSLA      = "sla"
	ColumnTotal    = "total"
)

// Page is an immutable snapshot of a rendered view.
type Page struct {
	Kind       string                     `json:"kind"`
	Title      string                     `json:"title,omitempty"`
	Slug       string                     `json:"slug,omitempty"`
	MinTick    *int                       `json:"min_tick,omitempty"`
	MaxTick    *int                       `json:"max_tick,omitempty"`
	Tick       *int                       `json:"tick,omitempty"`
	Header     []HeaderCell               `json:"header,omitempty"`
	Rows       []Row                      `json:"rows,omitempty"`
	Items      []ListItem                 `json:"items,omitempty"`
	Summary    []metrics.TeamAvailability `json:"summary,omitempty"`
	Hidden     bool                       `json:"hidden"`
	RenderedAt time.Time                  `json:"rendered_at"`
}

// View is a renderer that keeps the last rendered content.
type View interface {
	Render(payload []byte) error
	Page() Page
}

// Options configure view construction.
type Options struct {
	Density Density
	// StatusPath is the page scoreboard service cells link to.
	StatusPath string
}

// New creates the renderer for kind.
func New(kind string, opts Options) (View, error) {
	if opts.Density == (Density{}) {
		opts.Density = DefaultDensity()
	}
	switch kind {
	case KindHistory:
		return NewHistoryView(opts.Density), nil
	case KindMissingChecks:
		return NewMissingChecksView(), nil
	case KindStatus:
		return NewStatusView(opts.Density), nil
	case KindScoreboard:
		return NewScoreboardView(opts.StatusPath), nil
	default:
		return nil, fmt.Errorf("unknown view %q", kind)
	}
}

func tickColumn(tick int) string {
	return fmt.Sprintf("tick-%d", tick)
}

func teamRowID(id int) string {
	return fmt.Sprintf("team-%d-row", id)
}

func intPtr(v int) *int {
	return &v
}
