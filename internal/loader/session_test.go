package loader

import (
	"context"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"scoreview/internal/query"
)

type rangedRenderer struct {
	recordingRenderer
	minTick, maxTick int
}

func (r *rangedRenderer) TickRange() (int, int, bool) {
	return r.minTick, r.maxTick, true
}

func TestSetupPerformsInitialLoad(t *testing.T) {
	fetcher := &fakeFetcher{}
	session, res := Setup(context.Background(), fetcher, "service-history.json", &recordingRenderer{},
		query.Form{Fragment: "#web", MinTick: "0", MaxTick: "3"})

	require.NotNil(t, session)
	assert.Equal(t, Loaded, res.Outcome)
	assert.Equal(t, 1, fetcher.callCount())
}

func TestSetupWithoutFragmentDoesNotFetch(t *testing.T) {
	fetcher := &fakeFetcher{}
	_, res := Setup(context.Background(), fetcher, "service-history.json", &recordingRenderer{},
		query.Form{MinTick: "0", MaxTick: "3"})

	assert.Equal(t, NoSelection, res.Outcome)
	assert.Equal(t, 0, fetcher.callCount())
}

func TestSessionTriggers(t *testing.T) {
	fetcher := &fakeFetcher{}
	ctx := context.Background()
	session, _ := Setup(ctx, fetcher, "service-history.json", &recordingRenderer{},
		query.Form{MinTick: "0", MaxTick: "3"})

	res := session.HashChange(ctx, "#db")
	require.Equal(t, Loaded, res.Outcome)
	assert.Equal(t, "db", fetcher.calls[0].Get("service"))

	res = session.SetMinTick(ctx, "2")
	require.Equal(t, Loaded, res.Outcome)
	assert.Equal(t, "2", fetcher.calls[1].Get("from-tick"))

	res = session.SetMaxTick(ctx, "6")
	require.Equal(t, Loaded, res.Outcome)
	assert.Equal(t, "7", fetcher.calls[2].Get("to-tick"))

	res = session.Refresh(ctx)
	require.Equal(t, Loaded, res.Outcome)
	assert.Equal(t, fetcher.calls[2], fetcher.calls[3])

	res = session.LoadCurrent(ctx)
	require.Equal(t, Loaded, res.Outcome)
	assert.False(t, fetcher.calls[4].Has("to-tick"))
}

func TestSessionIgnoresFieldEventsWhileBusy(t *testing.T) {
	release := make(chan struct{})
	started := make(chan struct{})
	fetcher := &fakeFetcher{respond: func(call int, _ url.Values) ([]byte, error) {
		if call == 0 {
			close(started)
			<-release
		}
		return []byte(`{}`), nil
	}}
	ctx := context.Background()
	session := &Session{
		loader:   New(fetcher, "service-history.json", &recordingRenderer{}),
		renderer: &recordingRenderer{},
		form:     query.Form{Fragment: "#web", MinTick: "0", MaxTick: "3"},
	}

	done := make(chan Result, 1)
	go func() { done <- session.Refresh(ctx) }()
	<-started

	assert.Equal(t, Ignored, session.SetMinTick(ctx, "1").Outcome)
	assert.Equal(t, Ignored, session.Refresh(ctx).Outcome)
	assert.Equal(t, Ignored, session.LoadCurrent(ctx).Outcome)
	assert.Equal(t, "0", session.Form().MinTick)

	close(release)
	assert.Equal(t, Loaded, (<-done).Outcome)
	assert.Equal(t, 1, fetcher.callCount())
}

func TestSessionCopiesRenderedTickRangeIntoForm(t *testing.T) {
	renderer := &rangedRenderer{minTick: 10, maxTick: 42}
	session, res := Setup(context.Background(), &fakeFetcher{}, "missing-checks.json", renderer,
		query.Form{Fragment: "#web", MinTick: "10", MaxTick: "20"})

	require.Equal(t, Loaded, res.Outcome)
	assert.Equal(t, query.Form{Fragment: "#web", MinTick: "10", MaxTick: "42"}, session.Form())
}

func TestDispatch(t *testing.T) {
	fetcher := &fakeFetcher{}
	ctx := context.Background()
	session, _ := Setup(ctx, fetcher, "service-history.json", &recordingRenderer{}, query.Form{MinTick: "0", MaxTick: "3"})

	assert.Equal(t, Loaded, session.Dispatch(ctx, Event{Name: EventHashChange, Value: "web"}).Outcome)
	assert.Equal(t, InvalidBounds, session.Dispatch(ctx, Event{Name: EventMaxTick, Value: "x"}).Outcome)

	res := session.Dispatch(ctx, Event{Name: "scroll"})
	assert.Equal(t, Ignored, res.Outcome)
	assert.ErrorIs(t, res.Err, ErrUnknownEvent)
}
