package storage

import (
	"context"
	"net/url"
	"strconv"
	"time"

	"github.com/rs/zerolog"
)

// Fetcher mirrors the loader's fetch contract.
type Fetcher interface {
	FetchJSON(ctx context.Context, path string, params url.Values) ([]byte, error)
}

// Recorder saves every successful payload fetched through it. Paths that are not
// mapped to a view are passed through unrecorded.
type Recorder struct {
	next   Fetcher
	store  Store
	views  map[string]string
	logger zerolog.Logger
}

// NewRecorder wraps next. views maps endpoint paths to view kinds.
func NewRecorder(next Fetcher, store Store, views map[string]string, logger zerolog.Logger) *Recorder {
	return &Recorder{next: next, store: store, views: views, logger: logger}
}

// FetchJSON delegates to the wrapped fetcher and records the payload. A failed save
// is logged and does not fail the fetch.
func (r *Recorder) FetchJSON(ctx context.Context, path string, params url.Values) ([]byte, error) {
	body, err := r.next.FetchJSON(ctx, path, params)
	if err != nil {
		return nil, err
	}
	view, ok := r.views[path]
	if !ok {
		return body, nil
	}

	snap := Snapshot{
		View:      view,
		Slug:      params.Get("service"),
		FromTick:  paramInt(params, "from-tick", 0),
		ToTick:    paramInt(params, "to-tick", -1),
		FetchedAt: time.Now().UTC(),
		Payload:   body,
	}
	if _, err := r.store.Save(snap); err != nil {
		r.logger.Warn().Err(err).Str("view", view).Msg("save snapshot")
	}
	return body, nil
}

// paramInt reads an integer parameter and shifts it by delta. The gameserver's
// to-tick is exclusive, snapshots keep the inclusive bound.
func paramInt(params url.Values, key string, delta int) *int {
	raw := params.Get(key)
	if raw == "" {
		return nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return nil
	}
	v += delta
	return &v
}
