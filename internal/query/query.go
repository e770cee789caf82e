// Package query resolves the selection and tick range a view is loaded for.
package query

import (
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

var (
	// ErrNoSelection means the fragment names no resource. Loads stop silently.
	ErrNoSelection = errors.New("no resource selected")
	// ErrInvalidTickBounds means a tick field does not hold an integer.
	ErrInvalidTickBounds = errors.New("invalid tick bounds")
)

// Request parameter names understood by the gameserver.
const (
	ParamService  = "service"
	ParamFromTick = "from-tick"
	ParamToTick   = "to-tick"
)

// Form holds the raw, user editable inputs of a dynamic view.
type Form struct {
	Fragment string `json:"fragment"`
	MinTick  string `json:"min_tick"`
	MaxTick  string `json:"max_tick"`
}

// State is the parsed query a load is issued for. ToTick is inclusive.
type State struct {
	Slug     string `json:"slug"`
	FromTick int    `json:"from_tick"`
	ToTick   *int   `json:"to_tick,omitempty"`
}

// SlugFromFragment strips the leading '#' of a URL fragment.
func SlugFromFragment(fragment string) string {
	return strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(fragment), "#"))
}

// Selection returns the selected slug or ErrNoSelection.
func (f Form) Selection() (string, error) {
	slug := SlugFromFragment(f.Fragment)
	if slug == "" {
		return "", ErrNoSelection
	}
	return slug, nil
}

// State parses the form. The selection is checked before the tick fields.
func (f Form) State() (State, error) {
	slug, err := f.Selection()
	if err != nil {
		return State{}, err
	}
	from, err := strconv.Atoi(strings.TrimSpace(f.MinTick))
	if err != nil {
		return State{}, fmt.Errorf("%w: min tick %q", ErrInvalidTickBounds, f.MinTick)
	}
	to, err := strconv.Atoi(strings.TrimSpace(f.MaxTick))
	if err != nil {
		return State{}, fmt.Errorf("%w: max tick %q", ErrInvalidTickBounds, f.MaxTick)
	}
	return State{Slug: slug, FromTick: from, ToTick: &to}, nil
}

// Params builds the request parameters. The gameserver treats to-tick as exclusive,
// so the inclusive upper bound is sent incremented by one. With ignoreUpperTick the
// parameter is left out and the server answers up to its latest tick.
func (s State) Params(ignoreUpperTick bool) url.Values {
	params := url.Values{}
	params.Set(ParamService, s.Slug)
	params.Set(ParamFromTick, strconv.Itoa(s.FromTick))
	if !ignoreUpperTick && s.ToTick != nil {
		params.Set(ParamToTick, strconv.Itoa(*s.ToTick+1))
	}
	return params
}

// DefaultSpan is how many ticks the tick fields cover before the user edits them.
const DefaultSpan = 30

// DefaultBounds returns the initial tick fields for the given current tick. With
// excludeCurrent the range ends one tick earlier, for views where the current tick may
// still be in progress.
func DefaultBounds(current int, excludeCurrent bool) (minTick, maxTick int) {
	maxTick = current
	if excludeCurrent {
		maxTick--
	}
	minTick = maxTick - DefaultSpan
	if minTick < 0 {
		minTick = 0
	}
	return minTick, maxTick
}
