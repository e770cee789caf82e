package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"scoreview/internal/loader"
	"scoreview/internal/query"
	"scoreview/internal/view"
)

const (
	sessionWriteTimeout = 5 * time.Second
	sessionReadLimit    = 4096
	// outcomePending is pushed for public views the watcher has not rendered yet.
	outcomePending = "pending"
)

var sessionUpgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		u, err := url.Parse(origin)
		if err != nil {
			return false
		}
		host := strings.ToLower(strings.TrimSpace(r.Host))
		originHost := strings.ToLower(strings.TrimSpace(u.Host))
		return host == originHost
	},
}

// pushMessage is sent to the browser. Controls mirror the loader state; HTML replaces
// the view content.
type pushMessage struct {
	Outcome  string           `json:"outcome,omitempty"`
	Controls *loader.Controls `json:"controls,omitempty"`
	Form     *query.Form      `json:"form,omitempty"`
	HTML     string           `json:"html,omitempty"`
	Error    string           `json:"error,omitempty"`
}

// wsConn serialises writes; loads push from their own goroutines.
type wsConn struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

func (c *wsConn) push(msg pushMessage) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	_ = c.conn.SetWriteDeadline(time.Now().Add(sessionWriteTimeout))
	return c.conn.WriteJSON(msg)
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	kind := chi.URLParam(r, "view")
	if _, ok := s.cfg.Endpoint(kind); !ok {
		writeError(w, http.StatusNotFound, "unknown view")
		return
	}
	form := s.formFromRequest(r, kind)

	conn, err := sessionUpgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	conn.SetReadLimit(sessionReadLimit)
	c := &wsConn{conn: conn}
	defer conn.Close()

	logger := s.logger.With().Str("view", kind).Str("remote", r.RemoteAddr).Logger()
	if view.Selectable(kind) {
		s.serveSession(c, kind, form, logger)
		return
	}
	s.serveLive(c, kind, logger)
}

// serveSession runs one loader session per connection. Every inbound event is handled
// in its own goroutine, so field events arriving during a load see disabled controls
// and are ignored, while hash changes supersede the load in flight.
func (s *Server) serveSession(c *wsConn, kind string, form query.Form, logger zerolog.Logger) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	v, err := view.New(kind, s.viewOptions())
	if err != nil {
		_ = c.push(pushMessage{Error: err.Error()})
		return
	}
	endpoint, _ := s.cfg.Endpoint(kind)
	observer := func(controls loader.Controls) {
		_ = c.push(pushMessage{Controls: &controls})
	}

	session, res := loader.Setup(ctx, s.fetcher, endpoint, v, form,
		loader.WithLogger(logger), loader.WithObserver(observer))
	if err := s.pushResult(c, session, v, res); err != nil {
		return
	}

	var wg sync.WaitGroup
	defer wg.Wait()
	defer cancel()

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			return
		}
		var ev loader.Event
		if err := json.Unmarshal(data, &ev); err != nil {
			_ = c.push(pushMessage{Error: "invalid event"})
			continue
		}
		wg.Add(1)
		go func(ev loader.Event) {
			defer wg.Done()
			res := session.Dispatch(ctx, ev)
			logger.Debug().Str("event", ev.Name).Str("outcome", res.Outcome.String()).Msg("event handled")
			_ = s.pushResult(c, session, v, res)
		}(ev)
	}
}

func (s *Server) pushResult(c *wsConn, session *loader.Session, v view.View, res loader.Result) error {
	form := session.Form()
	msg := pushMessage{Outcome: res.Outcome.String(), Form: &form}
	switch res.Outcome {
	case loader.Stale:
		return nil
	case loader.Loaded:
		html, err := s.renderContent(pageData{Kind: v.Page().Kind, Page: v.Page()})
		if err != nil {
			msg.Error = err.Error()
			break
		}
		msg.HTML = html
	case loader.Failed:
		msg.Error = errorText(res.Err)
	case loader.Ignored:
		if errors.Is(res.Err, loader.ErrUnknownEvent) {
			msg.Error = res.Err.Error()
		}
	}
	return c.push(msg)
}

// serveLive pushes the watcher's page of a public view after every watcher pass.
func (s *Server) serveLive(c *wsConn, kind string, logger zerolog.Logger) {
	if s.watcher == nil {
		_ = s.pushLive(c, kind)
		return
	}
	updates, unsubscribe := s.watcher.Subscribe()
	defer unsubscribe()

	if err := s.pushLive(c, kind); err != nil {
		return
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := c.conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case <-updates:
			if err := s.pushLive(c, kind); err != nil {
				logger.Debug().Err(err).Msg("push failed")
				return
			}
		case <-done:
			return
		}
	}
}

func (s *Server) pushLive(c *wsConn, kind string) error {
	page, ok := s.watchedPage(kind)
	if !ok {
		return c.push(pushMessage{Outcome: outcomePending})
	}
	html, err := s.renderContent(pageData{Kind: kind, Page: page})
	if err != nil {
		return c.push(pushMessage{Error: err.Error()})
	}
	return c.push(pushMessage{Outcome: loader.Loaded.String(), HTML: html})
}
