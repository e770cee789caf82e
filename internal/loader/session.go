package loader

import (
	"context"
	"errors"
	"strconv"
	"sync"

	"scoreview/internal/query"
)

// ErrUnknownEvent is returned for events a session does not understand.
var ErrUnknownEvent = errors.New("unknown event")

// Event names accepted by Dispatch.
const (
	EventHashChange  = "hashchange"
	EventMinTick     = "min-tick"
	EventMaxTick     = "max-tick"
	EventRefresh     = "refresh"
	EventLoadCurrent = "load-current"
)

// Event is a trigger coming from the user interface.
type Event struct {
	Name  string `json:"event"`
	Value string `json:"value,omitempty"`
}

// TickRanger is implemented by renderers that know the tick range they last rendered.
// Sessions copy that range back into the tick fields.
type TickRanger interface {
	TickRange() (minTick, maxTick int, ok bool)
}

// Session binds a loader to the form of one view and exposes its triggers.
type Session struct {
	loader   *Loader
	renderer Renderer

	mu   sync.Mutex
	form query.Form
}

// Setup wires endpoint and renderer to a new session and performs the initial load.
func Setup(ctx context.Context, fetcher Fetcher, endpoint string, renderer Renderer, form query.Form, opts ...Option) (*Session, Result) {
	s := &Session{
		loader:   New(fetcher, endpoint, renderer, opts...),
		renderer: renderer,
		form:     form,
	}
	return s, s.load(ctx, false)
}

// Form returns the current form values.
func (s *Session) Form() query.Form {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.form
}

// Controls returns the current controls state.
func (s *Session) Controls() Controls {
	return s.loader.Controls()
}

// HashChange selects another resource. It is processed even while a load is in flight;
// the older response is then discarded.
func (s *Session) HashChange(ctx context.Context, fragment string) Result {
	s.mu.Lock()
	s.form.Fragment = fragment
	s.mu.Unlock()
	return s.load(ctx, false)
}

// SetMinTick updates the lower tick field and reloads.
func (s *Session) SetMinTick(ctx context.Context, value string) Result {
	return s.editField(ctx, func(f *query.Form) { f.MinTick = value })
}

// SetMaxTick updates the upper tick field and reloads.
func (s *Session) SetMaxTick(ctx context.Context, value string) Result {
	return s.editField(ctx, func(f *query.Form) { f.MaxTick = value })
}

// Refresh reloads with the current form.
func (s *Session) Refresh(ctx context.Context) Result {
	if !s.loader.Controls().Editable {
		return Result{Outcome: Ignored}
	}
	return s.load(ctx, false)
}

// LoadCurrent reloads without an upper bound, so the latest tick is included even if
// the upper tick field is outdated.
func (s *Session) LoadCurrent(ctx context.Context) Result {
	if !s.loader.Controls().Editable {
		return Result{Outcome: Ignored}
	}
	return s.load(ctx, true)
}

// Dispatch routes an interface event to its trigger.
func (s *Session) Dispatch(ctx context.Context, ev Event) Result {
	switch ev.Name {
	case EventHashChange:
		return s.HashChange(ctx, ev.Value)
	case EventMinTick:
		return s.SetMinTick(ctx, ev.Value)
	case EventMaxTick:
		return s.SetMaxTick(ctx, ev.Value)
	case EventRefresh:
		return s.Refresh(ctx)
	case EventLoadCurrent:
		return s.LoadCurrent(ctx)
	default:
		return Result{Outcome: Ignored, Err: ErrUnknownEvent}
	}
}

func (s *Session) editField(ctx context.Context, edit func(*query.Form)) Result {
	if !s.loader.Controls().Editable {
		return Result{Outcome: Ignored}
	}
	s.mu.Lock()
	edit(&s.form)
	s.mu.Unlock()
	return s.load(ctx, false)
}

func (s *Session) load(ctx context.Context, ignoreUpperTick bool) Result {
	res := s.loader.Load(ctx, s.Form(), ignoreUpperTick)
	if res.Outcome != Loaded {
		return res
	}
	if ranger, ok := s.renderer.(TickRanger); ok {
		if minTick, maxTick, ok := ranger.TickRange(); ok {
			s.mu.Lock()
			s.form.MinTick = strconv.Itoa(minTick)
			s.form.MaxTick = strconv.Itoa(maxTick)
			s.mu.Unlock()
		}
	}
	return res
}
