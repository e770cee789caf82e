package main

import (
	"bytes"
	"context"
	"errors"
	"net/url"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"scoreview/internal/config"
	"scoreview/internal/query"
	"scoreview/internal/storage"
	"scoreview/internal/view"
)

const (
	scoreboardJSON = `{"tick": 40, "services": ["web"], "teams": [{"rank": 1, "id": 1, "name": "A",
		"services": [{"status": 0, "offense": 1, "defense": 0, "sla": 2}],
		"offense": 1, "defense": 0, "sla": 2, "total": 3}]}`
	historyJSON = `{"min-tick": 0, "max-tick": 2, "service-name": "Web", "service-slug": "web",
		"teams": [{"id": 1, "name": "A", "net_number": 11, "checks": [0, 1, -1]}]}`
)

type stubFetcher struct {
	responses map[string][]byte
	errs      map[string]error
	params    map[string]url.Values
}

func newStub(cfg config.Config) *stubFetcher {
	e := cfg.Gameserver.Endpoints
	return &stubFetcher{
		responses: map[string][]byte{
			e.Scoreboard: []byte(scoreboardJSON),
			e.History:    []byte(historyJSON),
		},
		errs:   map[string]error{},
		params: map[string]url.Values{},
	}
}

func (s *stubFetcher) FetchJSON(_ context.Context, path string, params url.Values) ([]byte, error) {
	s.params[path] = params
	if err, ok := s.errs[path]; ok {
		return nil, err
	}
	return s.responses[path], nil
}

func TestRenderLivePublicView(t *testing.T) {
	cfg := config.DefaultConfig()
	f := newStub(cfg)

	page, err := renderLive(context.Background(), f, cfg, renderRequest{Kind: view.KindScoreboard}, zerolog.Nop())
	require.NoError(t, err)
	assert.Equal(t, view.KindScoreboard, page.Kind)
	require.NotNil(t, page.Tick)
	assert.Equal(t, 40, *page.Tick)
}

func TestRenderLiveHistoryDefaultsTicks(t *testing.T) {
	cfg := config.DefaultConfig()
	f := newStub(cfg)

	page, err := renderLive(context.Background(), f, cfg, renderRequest{Kind: view.KindHistory, Service: "web"}, zerolog.Nop())
	require.NoError(t, err)
	assert.Equal(t, view.KindHistory, page.Kind)
	assert.Equal(t, "web", page.Slug)

	params := f.params[cfg.Gameserver.Endpoints.History]
	assert.Equal(t, "web", params.Get("service"))
	assert.Equal(t, "10", params.Get(query.ParamFromTick))
	assert.Equal(t, "41", params.Get(query.ParamToTick))
}

func TestRenderLiveCurrentOmitsUpperTick(t *testing.T) {
	cfg := config.DefaultConfig()
	f := newStub(cfg)

	req := renderRequest{Kind: view.KindHistory, Service: "web", MinTick: "0", MaxTick: "2", Current: true}
	_, err := renderLive(context.Background(), f, cfg, req, zerolog.Nop())
	require.NoError(t, err)

	params := f.params[cfg.Gameserver.Endpoints.History]
	assert.Equal(t, "0", params.Get(query.ParamFromTick))
	assert.False(t, params.Has(query.ParamToTick))
	_, fetchedBoard := f.params[cfg.Gameserver.Endpoints.Scoreboard]
	assert.False(t, fetchedBoard)
}

func TestRenderLiveErrors(t *testing.T) {
	cfg := config.DefaultConfig()

	_, err := renderLive(context.Background(), newStub(cfg), cfg, renderRequest{Kind: view.KindHistory, MinTick: "0", MaxTick: "2"}, zerolog.Nop())
	assert.ErrorContains(t, err, "--service")

	_, err = renderLive(context.Background(), newStub(cfg), cfg, renderRequest{Kind: view.KindHistory, Service: "web", MinTick: "5", MaxTick: "x"}, zerolog.Nop())
	assert.Error(t, err)

	_, err = renderLive(context.Background(), newStub(cfg), cfg, renderRequest{Kind: "bogus"}, zerolog.Nop())
	assert.ErrorContains(t, err, "unknown view")

	f := newStub(cfg)
	f.errs[cfg.Gameserver.Endpoints.History] = errors.New("boom")
	_, err = renderLive(context.Background(), f, cfg, renderRequest{Kind: view.KindHistory, Service: "web", MinTick: "0", MaxTick: "2"}, zerolog.Nop())
	assert.ErrorContains(t, err, "boom")
}

func TestRenderStored(t *testing.T) {
	cfg := config.DefaultConfig()
	store, err := storage.NewFileStore(filepath.Join(t.TempDir(), "snapshots.json"), 10)
	require.NoError(t, err)

	_, err = renderStored(store, cfg, renderRequest{Kind: view.KindHistory, Service: "web"})
	assert.ErrorContains(t, err, "no stored history snapshot")

	_, err = store.Save(storage.Snapshot{View: view.KindHistory, Slug: "web", Payload: []byte(historyJSON)})
	require.NoError(t, err)

	page, err := renderStored(store, cfg, renderRequest{Kind: view.KindHistory, Service: "#web"})
	require.NoError(t, err)
	assert.Equal(t, "web", page.Slug)
}

func TestEndpointViews(t *testing.T) {
	cfg := config.DefaultConfig()
	views := endpointViews(cfg)
	assert.Len(t, views, len(view.Kinds))
	assert.Equal(t, view.KindMissingChecks, views["/internal/missing-checks.json"])
}

func TestPrintSnapshots(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, printSnapshots(&buf, nil))
	assert.Equal(t, "no snapshots stored\n", buf.String())

	buf.Reset()
	from := 3
	require.NoError(t, printSnapshots(&buf, []storage.Snapshot{{ID: 7, View: view.KindHistory, Slug: "web", FromTick: &from, Payload: []byte("{}")}}))
	out := buf.String()
	assert.Contains(t, out, "SERVICE")
	assert.Contains(t, out, "history")
	assert.Contains(t, out, "web")
}
