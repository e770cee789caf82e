package server

import (
	"bytes"
	"context"
	"html/template"
	"net/http"
	"strconv"
	"strings"

	"scoreview/internal/config"
	"scoreview/internal/loader"
	"scoreview/internal/query"
	"scoreview/internal/view"
)

var templateFuncs = template.FuncMap{
	"pct": func(v float64) string { return strconv.FormatFloat(v, 'f', 2, 64) + "%" },
}

type pageData struct {
	Title      string
	Kind       string
	Views      []string
	Services   []config.Service
	Selectable bool
	Slug       string
	Form       query.Form
	Controls   loader.Controls
	Page       view.Page
	Error      string
}

func (s *Server) handleIndex(w http.ResponseWriter, _ *http.Request) {
	s.renderTemplate(w, "index", pageData{
		Title:    "Scoreboard viewer",
		Views:    view.Kinds,
		Services: s.cfg.Services,
	})
}

// handlePage renders the full document of a view. Public views show the watcher's
// latest render; selectable views are rendered server-side when ?service= is given and
// otherwise left to the websocket session.
func (s *Server) handlePage(w http.ResponseWriter, r *http.Request, kind string) {
	data := pageData{
		Kind:       kind,
		Views:      view.Kinds,
		Services:   s.cfg.Services,
		Selectable: view.Selectable(kind),
		Controls:   loader.Controls{Editable: true},
	}

	if data.Selectable {
		data.Form = s.formFromRequest(r, kind)
		data.Slug = query.SlugFromFragment(data.Form.Fragment)
		page, res := s.loadPage(r.Context(), kind, data.Form, false)
		data.Page = page
		if res.Outcome == loader.Failed {
			data.Error = errorText(res.Err)
		}
		if res.Outcome == loader.Loaded {
			if minTick, maxTick := page.MinTick, page.MaxTick; minTick != nil && maxTick != nil {
				data.Form.MinTick = strconv.Itoa(*minTick)
				data.Form.MaxTick = strconv.Itoa(*maxTick)
			}
		}
	} else if page, ok := s.watchedPage(kind); ok {
		data.Page = page
	} else {
		page, res := s.loadPage(r.Context(), kind, query.Form{}, false)
		data.Page = page
		if res.Outcome == loader.Failed {
			data.Error = errorText(res.Err)
		}
	}

	data.Title = pageTitle(kind, data.Page)
	s.renderTemplate(w, "layout", data)
}

// loadPage renders a view once into a fresh renderer.
func (s *Server) loadPage(ctx context.Context, kind string, form query.Form, ignoreUpperTick bool) (view.Page, loader.Result) {
	v, err := view.New(kind, s.viewOptions())
	if err != nil {
		return view.Page{Kind: kind, Hidden: true}, loader.Result{Outcome: loader.Failed, Err: err}
	}
	endpoint, _ := s.cfg.Endpoint(kind)

	if view.Selectable(kind) {
		res := loader.New(s.fetcher, endpoint, v, loader.WithLogger(s.logger)).Load(ctx, form, ignoreUpperTick)
		return v.Page(), res
	}

	body, err := s.fetcher.FetchJSON(ctx, endpoint, nil)
	if err == nil {
		err = v.Render(body)
	}
	if err != nil {
		s.logger.Warn().Err(err).Str("view", kind).Msg("load failed")
		return v.Page(), loader.Result{Outcome: loader.Failed, Err: err}
	}
	return v.Page(), loader.Result{Outcome: loader.Loaded, Payload: body}
}

// formFromRequest builds the form of a selectable view from query parameters. Missing
// tick fields default to the last ticks before the current one.
func (s *Server) formFromRequest(r *http.Request, kind string) query.Form {
	q := r.URL.Query()
	form := query.Form{Fragment: q.Get("fragment")}
	if service := q.Get(query.ParamService); service != "" {
		form.Fragment = "#" + service
	}

	minTick, maxTick := initialTicks(kind, s.currentTick())
	form.MinTick = firstNonEmpty(q.Get("min-tick"), q.Get(query.ParamFromTick), strconv.Itoa(minTick))
	form.MaxTick = firstNonEmpty(q.Get("max-tick"), exclusiveToInclusive(q.Get(query.ParamToTick)), strconv.Itoa(maxTick))
	return form
}

// currentTick is taken from the watched scoreboard, or 0 before the first pass.
func (s *Server) currentTick() int {
	if page, ok := s.watchedPage(view.KindScoreboard); ok && page.Tick != nil {
		return *page.Tick
	}
	return 0
}

// initialTicks mirrors the gameserver's own forms: history ends at the current tick,
// missing checks at the one before, since the current tick may still be checked.
func initialTicks(kind string, current int) (int, int) {
	return query.DefaultBounds(current, kind == view.KindMissingChecks)
}

func exclusiveToInclusive(raw string) string {
	if raw == "" {
		return ""
	}
	v, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return raw
	}
	return strconv.Itoa(v - 1)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func pageTitle(kind string, page view.Page) string {
	switch {
	case page.Title != "" && view.Selectable(kind):
		return page.Title + " " + kind
	case page.Title != "":
		return page.Title
	default:
		return kind
	}
}

func (s *Server) renderTemplate(w http.ResponseWriter, name string, data pageData) {
	var buf bytes.Buffer
	if err := s.templates.ExecuteTemplate(&buf, name, data); err != nil {
		s.logger.Error().Err(err).Str("template", name).Msg("render page")
		http.Error(w, "render failed", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(buf.Bytes())
}

// renderContent renders the content fragment pushed over websockets.
func (s *Server) renderContent(data pageData) (string, error) {
	var buf bytes.Buffer
	if err := s.templates.ExecuteTemplate(&buf, "content", data); err != nil {
		return "", err
	}
	return buf.String(), nil
}
