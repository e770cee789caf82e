package server

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"scoreview/internal/config"
	"scoreview/internal/gameserver"
	"scoreview/internal/storage"
	"scoreview/internal/view"
	"scoreview/internal/watch"
)

const (
	scoreboardJSON = `{"tick": 40, "services": ["web"], "teams": [{"rank": 1, "id": 1, "name": "A",
		"services": [{"status": 0, "offense": 1, "defense": 0, "sla": 2}],
		"offense": 1, "defense": 0, "sla": 2, "total": 3}]}`
	statusJSON  = `{"ticks": [39, 40], "services": ["web"], "teams": [{"id": 1, "nop": true, "name": "NOP", "ticks": [[0], [""]]}]}`
	historyJSON = `{"min-tick": 0, "max-tick": 2, "service-name": "Web", "service-slug": "web",
		"teams": [{"id": 1, "name": "A", "net_number": 11, "checks": [0, 1, -1]}]}`
)

type request struct {
	path   string
	params url.Values
}

type stubFetcher struct {
	mu        sync.Mutex
	responses map[string][]byte
	errs      map[string]error
	requests  []request
}

func (s *stubFetcher) FetchJSON(_ context.Context, path string, params url.Values) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.requests = append(s.requests, request{path: path, params: params})
	if err, ok := s.errs[path]; ok {
		return nil, err
	}
	return s.responses[path], nil
}

func (s *stubFetcher) last() request {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.requests[len(s.requests)-1]
}

type fixture struct {
	cfg     config.Config
	fetcher *stubFetcher
	watcher *watch.Watcher
	store   storage.Store
	server  *Server
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.Services = []config.Service{{Slug: "web", Name: "Web"}}
	e := cfg.Gameserver.Endpoints
	f := &stubFetcher{
		responses: map[string][]byte{
			e.Scoreboard: []byte(scoreboardJSON),
			e.Status:     []byte(statusJSON),
			e.History:    []byte(historyJSON),
		},
		errs: map[string]error{},
	}

	w := watch.New(f, time.Minute, zerolog.Nop(),
		watch.Target{Kind: view.KindScoreboard, Endpoint: e.Scoreboard, View: view.NewScoreboardView("/status")},
		watch.Target{Kind: view.KindStatus, Endpoint: e.Status, View: view.NewStatusView(cfg.Density)},
	)
	require.NoError(t, w.RunOnce(context.Background()))

	store, err := storage.NewFileStore(filepath.Join(t.TempDir(), "snapshots.json"), 10)
	require.NoError(t, err)

	srv, err := New(Options{Config: cfg, Fetcher: f, Watcher: w, Store: store, Logger: zerolog.Nop()})
	require.NoError(t, err)
	return &fixture{cfg: cfg, fetcher: f, watcher: w, store: store, server: srv}
}

func (fx *fixture) get(t *testing.T, target string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	fx.server.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, dest any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), dest), rec.Body.String())
}

func TestHealth(t *testing.T) {
	fx := newFixture(t)
	rec := fx.get(t, "/health")
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]any
	decodeBody(t, rec, &body)
	assert.Equal(t, "ok", body["status"])
	assert.NotNil(t, body["upstream"])
}

func TestViewJSONFromWatcher(t *testing.T) {
	fx := newFixture(t)
	before := len(fx.fetcher.requests)

	rec := fx.get(t, "/api/views/scoreboard")
	require.Equal(t, http.StatusOK, rec.Code)
	var page view.Page
	decodeBody(t, rec, &page)
	assert.Equal(t, 40, *page.Tick)
	assert.Len(t, page.Rows, 1)
	assert.Len(t, fx.fetcher.requests, before)

	rec = fx.get(t, "/api/views/scoreboard?live=1")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, fx.fetcher.requests, before+1)
}

func TestViewJSONHistory(t *testing.T) {
	fx := newFixture(t)

	rec := fx.get(t, "/api/views/history?service=web&from-tick=0&max-tick=2")
	require.Equal(t, http.StatusOK, rec.Code)
	var page view.Page
	decodeBody(t, rec, &page)
	require.Len(t, page.Rows, 1)
	var classes []string
	for _, cell := range page.Rows[0].Cells[1:] {
		classes = append(classes, cell.Class)
	}
	assert.Equal(t, []string{"success", "danger", "muted"}, classes)
	require.Len(t, page.Summary, 1)

	last := fx.fetcher.last()
	assert.Equal(t, fx.cfg.Gameserver.Endpoints.History, last.path)
	assert.Equal(t, "web", last.params.Get("service"))
	assert.Equal(t, "0", last.params.Get("from-tick"))
	assert.Equal(t, "3", last.params.Get("to-tick"))

	rec = fx.get(t, "/api/views/history?service=web&from-tick=0&to-tick=3&current=1")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.False(t, fx.fetcher.last().params.Has("to-tick"))
}

func TestViewJSONDefaultsTicksFromScoreboard(t *testing.T) {
	fx := newFixture(t)
	rec := fx.get(t, "/api/views/history?service=web")
	require.Equal(t, http.StatusOK, rec.Code)

	last := fx.fetcher.last()
	assert.Equal(t, "10", last.params.Get("from-tick"))
	assert.Equal(t, "41", last.params.Get("to-tick"))
}

func TestViewJSONErrors(t *testing.T) {
	fx := newFixture(t)
	fx.fetcher.errs[fx.cfg.Gameserver.Endpoints.MissingChecks] = &gameserver.HTTPError{Status: http.StatusNotFound, Message: "Unknown service"}
	requests := len(fx.fetcher.requests)

	cases := []struct {
		target string
		code   int
	}{
		{"/api/views/unknown", http.StatusNotFound},
		{"/api/views/history", http.StatusBadRequest},
		{"/api/views/history?service=web&from-tick=x", http.StatusBadRequest},
		{"/api/views/missing-checks?service=nope", http.StatusNotFound},
	}
	for _, tc := range cases {
		rec := fx.get(t, tc.target)
		assert.Equal(t, tc.code, rec.Code, tc.target)
		var body map[string]string
		decodeBody(t, rec, &body)
		assert.NotEmpty(t, body["error"], tc.target)
	}
	assert.Len(t, fx.fetcher.requests, requests+1)
}

func TestPages(t *testing.T) {
	fx := newFixture(t)

	rec := fx.get(t, "/")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `href="/history?service=web"`)

	rec = fx.get(t, "/scoreboard")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `id="team-1-row"`)
	assert.Contains(t, rec.Body.String(), `href="/status#team-1-row"`)

	rec = fx.get(t, "/status")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `class="nop"`)

	rec = fx.get(t, "/history?service=web&min-tick=0&max-tick=2")
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, `<td class="success" title="OK">`)
	assert.Contains(t, body, `<option value="web" selected>Web</option>`)
	assert.Contains(t, body, `id="max-tick" type="number" value="2"`)
	assert.Contains(t, body, "Availability")

	rec = fx.get(t, "/history")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Nothing loaded.")
	assert.Contains(t, rec.Body.String(), `id="min-tick" type="number" value="10"`)
}

func TestPageShowsLoadError(t *testing.T) {
	fx := newFixture(t)
	fx.fetcher.errs[fx.cfg.Gameserver.Endpoints.History] = &gameserver.HTTPError{Status: http.StatusBadGateway}

	rec := fx.get(t, "/history?service=web")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `id="load-error"`)
}

func TestSnapshotsAndUpstream(t *testing.T) {
	fx := newFixture(t)
	_, err := fx.store.Save(storage.Snapshot{View: "history", Slug: "web", Payload: []byte(historyJSON)})
	require.NoError(t, err)

	rec := fx.get(t, "/api/snapshots?limit=5")
	require.Equal(t, http.StatusOK, rec.Code)
	var snaps []storage.Snapshot
	decodeBody(t, rec, &snaps)
	require.Len(t, snaps, 1)
	assert.Equal(t, "web", snaps[0].Slug)

	assert.Equal(t, http.StatusNotFound, fx.get(t, "/api/snapshots?view=status").Code)

	rec = fx.get(t, "/api/upstream")
	require.Equal(t, http.StatusOK, rec.Code)
	var upstream upstreamSnapshot
	decodeBody(t, rec, &upstream)
	require.Len(t, upstream.Endpoints, 2)
	buckets := upstream.Endpoints[0].Buckets
	require.Len(t, buckets, upstreamBucketCount)
	assert.Equal(t, upstreamStateOK, buckets[len(buckets)-1].State)
	assert.NotNil(t, upstream.Latest)
}

func TestOptionalCollaborators(t *testing.T) {
	cfg := config.DefaultConfig()
	srv, err := New(Options{Config: cfg, Fetcher: &stubFetcher{}, Logger: zerolog.Nop()})
	require.NoError(t, err)

	for _, target := range []string{"/api/snapshots", "/api/upstream"} {
		rec := httptest.NewRecorder()
		srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
		assert.Equal(t, http.StatusServiceUnavailable, rec.Code, target)
	}

	_, err = New(Options{Config: cfg})
	assert.Error(t, err)
}

func TestSwaggerAndStatic(t *testing.T) {
	fx := newFixture(t)

	rec := fx.get(t, "/swagger/doc.json")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "scoreview API")

	rec = fx.get(t, "/static/scoreview.js")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "WebSocket")
	assert.Contains(t, rec.Body.String(), "selector.disabled = !controls.editable")
}

func dial(t *testing.T, srv *httptest.Server, path string, header http.Header) (*websocket.Conn, *http.Response, error) {
	t.Helper()
	u := "ws" + strings.TrimPrefix(srv.URL, "http") + path
	return websocket.DefaultDialer.Dial(u, header)
}

func readUntil(t *testing.T, conn *websocket.Conn, match func(pushMessage) bool) pushMessage {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	for {
		var msg pushMessage
		require.NoError(t, conn.ReadJSON(&msg))
		if match(msg) {
			return msg
		}
	}
}

func TestWebsocketSession(t *testing.T) {
	fx := newFixture(t)
	srv := httptest.NewServer(fx.server.Handler())
	defer srv.Close()

	conn, _, err := dial(t, srv, "/ws/history?fragment=%23web&min-tick=0&max-tick=2", nil)
	require.NoError(t, err)
	defer conn.Close()

	busy := readUntil(t, conn, func(m pushMessage) bool { return m.Controls != nil })
	assert.True(t, busy.Controls.Busy)
	assert.False(t, busy.Controls.Editable)

	loaded := readUntil(t, conn, func(m pushMessage) bool { return m.HTML != "" })
	assert.Equal(t, "loaded", loaded.Outcome)
	assert.Contains(t, loaded.HTML, `id="team-1-row"`)
	assert.Equal(t, "2", loaded.Form.MaxTick)

	require.NoError(t, conn.WriteJSON(map[string]string{"event": "load-current"}))
	readUntil(t, conn, func(m pushMessage) bool { return m.HTML != "" })
	assert.False(t, fx.fetcher.last().params.Has("to-tick"))

	require.NoError(t, conn.WriteJSON(map[string]string{"event": "bogus"}))
	msg := readUntil(t, conn, func(m pushMessage) bool { return m.Error != "" })
	assert.Equal(t, "ignored", msg.Outcome)

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("{")))
	msg = readUntil(t, conn, func(m pushMessage) bool { return m.Error != "" })
	assert.Equal(t, "invalid event", msg.Error)

	require.NoError(t, conn.WriteJSON(map[string]string{"event": "hashchange", "value": ""}))
	msg = readUntil(t, conn, func(m pushMessage) bool { return m.Outcome != "" })
	assert.Equal(t, "no-selection", msg.Outcome)
}

func TestWebsocketLive(t *testing.T) {
	fx := newFixture(t)
	srv := httptest.NewServer(fx.server.Handler())
	defer srv.Close()

	conn, _, err := dial(t, srv, "/ws/scoreboard", nil)
	require.NoError(t, err)
	defer conn.Close()

	first := readUntil(t, conn, func(m pushMessage) bool { return m.HTML != "" })
	assert.Contains(t, first.HTML, "team-1-row")

	require.NoError(t, fx.watcher.RunOnce(context.Background()))
	second := readUntil(t, conn, func(m pushMessage) bool { return m.HTML != "" })
	assert.Equal(t, "loaded", second.Outcome)
}

func TestWebsocketRejectsForeignOrigin(t *testing.T) {
	fx := newFixture(t)
	srv := httptest.NewServer(fx.server.Handler())
	defer srv.Close()

	_, resp, err := dial(t, srv, "/ws/scoreboard", http.Header{"Origin": {"http://evil.example"}})
	require.Error(t, err)
	require.NotNil(t, resp)
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestInitialTicks(t *testing.T) {
	minTick, maxTick := initialTicks(view.KindHistory, 40)
	assert.Equal(t, 10, minTick)
	assert.Equal(t, 40, maxTick)

	minTick, maxTick = initialTicks(view.KindMissingChecks, 40)
	assert.Equal(t, 9, minTick)
	assert.Equal(t, 39, maxTick)

	minTick, maxTick = initialTicks(view.KindMissingChecks, 0)
	assert.Equal(t, 0, minTick)
	assert.Equal(t, -1, maxTick)
}
