// Package watch keeps the public views rendered by polling the gameserver.
package watch

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"scoreview/internal/loader"
	"scoreview/internal/models"
	"scoreview/internal/view"
)

const (
	minInterval       = time.Second
	defaultMaxHistory = 2048
)

// Target is a view refreshed on every pass.
type Target struct {
	Kind     string
	Endpoint string
	View     view.View
}

// Watcher periodically fetches its targets and renders them.
type Watcher struct {
	fetcher    loader.Fetcher
	targets    []Target
	interval   time.Duration
	maxHistory int
	logger     zerolog.Logger

	mu      sync.RWMutex
	latest  *models.FetchSample
	history []models.FetchSample

	subMu   sync.Mutex
	nextSub int
	subs    map[int]chan struct{}

	lifeMu  sync.Mutex
	started bool
	stopped bool
	stopCh  chan struct{}
	doneCh  chan struct{}
}

// New creates a watcher. Intervals below one second are raised.
func New(fetcher loader.Fetcher, interval time.Duration, logger zerolog.Logger, targets ...Target) *Watcher {
	if interval < minInterval {
		interval = minInterval
	}
	return &Watcher{
		fetcher:    fetcher,
		targets:    targets,
		interval:   interval,
		maxHistory: defaultMaxHistory,
		logger:     logger,
		subs:       make(map[int]chan struct{}),
		stopCh:     make(chan struct{}),
		doneCh:     make(chan struct{}),
	}
}

// Interval returns the polling period.
func (w *Watcher) Interval() time.Duration {
	return w.interval
}

// Start launches the polling loop in a goroutine. A stopped watcher does not restart.
func (w *Watcher) Start() {
	w.lifeMu.Lock()
	defer w.lifeMu.Unlock()
	if w.started || w.stopped {
		return
	}
	w.started = true
	go w.run()
}

// Stop requests graceful loop termination and waits until it is done. It returns
// immediately when the loop was never started.
func (w *Watcher) Stop() {
	w.lifeMu.Lock()
	if !w.stopped {
		w.stopped = true
		close(w.stopCh)
	}
	started := w.started
	w.lifeMu.Unlock()

	if started {
		<-w.doneCh
	}
}

// RunOnce fetches and renders every target once. The returned error joins the
// failures of individual targets.
func (w *Watcher) RunOnce(ctx context.Context) error {
	var errs []error
	for _, target := range w.targets {
		if err := w.refresh(ctx, target); err != nil {
			errs = append(errs, err)
		}
	}
	w.notify()
	return errors.Join(errs...)
}

func (w *Watcher) refresh(ctx context.Context, target Target) error {
	started := time.Now()
	body, err := w.fetcher.FetchJSON(ctx, target.Endpoint, nil)
	if err == nil {
		err = target.View.Render(body)
	}

	sample := models.FetchSample{
		Endpoint:  target.Endpoint,
		OK:        err == nil,
		LatencyMs: time.Since(started).Milliseconds(),
		CheckedAt: time.Now().UTC(),
	}
	if err != nil {
		sample.Error = err.Error()
		w.logger.Warn().Err(err).Str("view", target.Kind).Msg("refresh failed")
	}
	w.record(sample)
	return err
}

func (w *Watcher) run() {
	defer close(w.doneCh)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		select {
		case <-w.stopCh:
			cancel()
		case <-ctx.Done():
		}
	}()

	_ = w.RunOnce(ctx)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			_ = w.RunOnce(ctx)
		case <-w.stopCh:
			return
		}
	}
}

// Page returns the current page of a target view.
func (w *Watcher) Page(kind string) (view.Page, bool) {
	for _, target := range w.targets {
		if target.Kind == kind {
			return target.View.Page(), true
		}
	}
	return view.Page{}, false
}

// Subscribe returns a channel signalled after every pass. Signals coalesce when the
// subscriber lags behind. The returned function unsubscribes.
func (w *Watcher) Subscribe() (<-chan struct{}, func()) {
	ch := make(chan struct{}, 1)

	w.subMu.Lock()
	id := w.nextSub
	w.nextSub++
	w.subs[id] = ch
	w.subMu.Unlock()

	return ch, func() {
		w.subMu.Lock()
		delete(w.subs, id)
		w.subMu.Unlock()
	}
}

func (w *Watcher) notify() {
	w.subMu.Lock()
	defer w.subMu.Unlock()
	for _, ch := range w.subs {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}

func (w *Watcher) record(sample models.FetchSample) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.latest = &sample
	w.history = append(w.history, sample)
	if len(w.history) > w.maxHistory {
		w.history = w.history[len(w.history)-w.maxHistory:]
	}
}

// Latest returns the most recent upstream sample.
func (w *Watcher) Latest() (models.FetchSample, bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()

	if w.latest == nil {
		return models.FetchSample{}, false
	}
	return *w.latest, true
}

// History returns a copy of the kept samples, oldest first.
func (w *Watcher) History() []models.FetchSample {
	return w.HistorySince(time.Time{})
}

// HistorySince returns samples whose timestamp is >= cutoff.
func (w *Watcher) HistorySince(cutoff time.Time) []models.FetchSample {
	w.mu.RLock()
	defer w.mu.RUnlock()

	if len(w.history) == 0 {
		return nil
	}
	idx := 0
	if !cutoff.IsZero() {
		idx = sort.Search(len(w.history), func(i int) bool {
			return !w.history[i].CheckedAt.Before(cutoff)
		})
	}
	if idx >= len(w.history) {
		return nil
	}
	out := make([]models.FetchSample, len(w.history)-idx)
	copy(out, w.history[idx:])
	return out
}
