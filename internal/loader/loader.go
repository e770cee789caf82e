// Package loader fetches the payload of a dynamic view and hands it to a renderer,
// keeping track of the busy indicator and editable state of the view's controls.
package loader

import (
	"context"
	"errors"
	"net/url"
	"sync"

	"github.com/rs/zerolog"

	"scoreview/internal/query"
)

// Fetcher retrieves a JSON document from a gameserver endpoint.
type Fetcher interface {
	FetchJSON(ctx context.Context, path string, params url.Values) ([]byte, error)
}

// Renderer turns a payload into view content.
type Renderer interface {
	Render(payload []byte) error
}

// RenderFunc adapts a function to Renderer.
type RenderFunc func(payload []byte) error

func (f RenderFunc) Render(payload []byte) error { return f(payload) }

// Outcome classifies how a load ended.
type Outcome int

const (
	Loaded Outcome = iota
	NoSelection
	InvalidBounds
	Failed
	Stale
	Ignored
)

func (o Outcome) String() string {
	switch o {
	case Loaded:
		return "loaded"
	case NoSelection:
		return "no-selection"
	case InvalidBounds:
		return "invalid-bounds"
	case Failed:
		return "failed"
	case Stale:
		return "stale"
	case Ignored:
		return "ignored"
	default:
		return "unknown"
	}
}

func (o Outcome) MarshalText() ([]byte, error) {
	return []byte(o.String()), nil
}

// Controls is the state of the query editing controls of a view.
type Controls struct {
	Editable bool   `json:"editable"`
	Busy     bool   `json:"busy"`
	Error    string `json:"error,omitempty"`
}

// Result is the explicit outcome of one load.
type Result struct {
	Generation uint64      `json:"generation"`
	Outcome    Outcome     `json:"outcome"`
	State      query.State `json:"state"`
	Payload    []byte      `json:"-"`
	Err        error       `json:"-"`
}

// Option customises a Loader.
type Option func(*Loader)

// WithLogger sets the logger used for load diagnostics.
func WithLogger(logger zerolog.Logger) Option {
	return func(l *Loader) { l.logger = logger }
}

// WithObserver registers a callback invoked after every controls change.
func WithObserver(fn func(Controls)) Option {
	return func(l *Loader) { l.observer = fn }
}

// Loader loads one endpoint into one renderer. Each load gets a generation number;
// a response that arrives after a newer load started is discarded.
type Loader struct {
	fetcher  Fetcher
	endpoint string
	renderer Renderer
	logger   zerolog.Logger
	observer func(Controls)

	mu         sync.Mutex
	generation uint64
	controls   Controls
}

// New creates a loader for endpoint.
func New(fetcher Fetcher, endpoint string, renderer Renderer, opts ...Option) *Loader {
	l := &Loader{
		fetcher:  fetcher,
		endpoint: endpoint,
		renderer: renderer,
		logger:   zerolog.Nop(),
		controls: Controls{Editable: true},
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Controls returns the current controls state.
func (l *Loader) Controls() Controls {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.controls
}

// Load reads the form and, when it names a selection and valid tick bounds, fetches
// the endpoint and renders the payload. With ignoreUpperTick the to-tick parameter is
// omitted so the server answers up to its latest tick.
func (l *Loader) Load(ctx context.Context, form query.Form, ignoreUpperTick bool) Result {
	state, err := form.State()
	if err != nil {
		outcome := InvalidBounds
		if errors.Is(err, query.ErrNoSelection) {
			outcome = NoSelection
		}
		gen := l.settle(Controls{Editable: true})
		l.logger.Debug().Str("endpoint", l.endpoint).Str("outcome", outcome.String()).Err(err).Msg("load skipped")
		return Result{Generation: gen, Outcome: outcome, Err: err}
	}

	l.mu.Lock()
	l.generation++
	gen := l.generation
	l.controls = Controls{Busy: true}
	l.mu.Unlock()
	l.notify(Controls{Busy: true})

	params := state.Params(ignoreUpperTick)
	payload, err := l.fetcher.FetchJSON(ctx, l.endpoint, params)

	l.mu.Lock()
	if gen != l.generation {
		l.mu.Unlock()
		l.logger.Debug().Str("endpoint", l.endpoint).Uint64("generation", gen).Msg("discarding stale response")
		return Result{Generation: gen, Outcome: Stale, State: state, Err: err}
	}
	if err == nil {
		err = l.renderer.Render(payload)
	}
	controls := Controls{Editable: true}
	if err != nil {
		controls.Error = err.Error()
	}
	l.controls = controls
	l.mu.Unlock()
	l.notify(controls)

	if err != nil {
		l.logger.Warn().Str("endpoint", l.endpoint).Str("service", state.Slug).Err(err).Msg("load failed")
		return Result{Generation: gen, Outcome: Failed, State: state, Err: err}
	}
	l.logger.Debug().Str("endpoint", l.endpoint).Str("service", state.Slug).Int("bytes", len(payload)).Msg("loaded")
	return Result{Generation: gen, Outcome: Loaded, State: state, Payload: payload}
}

// settle supersedes any load in flight and applies controls.
func (l *Loader) settle(controls Controls) uint64 {
	l.mu.Lock()
	l.generation++
	gen := l.generation
	l.controls = controls
	l.mu.Unlock()
	l.notify(controls)
	return gen
}

func (l *Loader) notify(controls Controls) {
	if l.observer != nil {
		l.observer(controls)
	}
}
