// Package server exposes the rendered views over HTTP and websockets.
package server

import (
	"context"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
	httpSwagger "github.com/swaggo/http-swagger"

	"scoreview/internal/config"
	"scoreview/internal/gameserver"
	"scoreview/internal/loader"
	"scoreview/internal/storage"
	"scoreview/internal/view"
	"scoreview/internal/watch"
)

//go:embed static/*
var embeddedStatic embed.FS

//go:embed templates/*.html
var embeddedTemplates embed.FS

const (
	defaultSnapshotLimit = 50
	maxSnapshotLimit     = 500
)

// Options are the collaborators of a Server. Watcher and Store are optional.
type Options struct {
	Config  config.Config
	Fetcher loader.Fetcher
	Watcher *watch.Watcher
	Store   storage.Store
	Logger  zerolog.Logger
}

// Server wraps HTTP serving of pages, API and websocket sessions.
type Server struct {
	httpServer *http.Server
	cfg        config.Config
	fetcher    loader.Fetcher
	watcher    *watch.Watcher
	store      storage.Store
	logger     zerolog.Logger
	staticFS   fs.FS
	templates  *template.Template
	router     chi.Router
}

// New creates a configured HTTP server.
func New(opts Options) (*Server, error) {
	if opts.Fetcher == nil {
		return nil, errors.New("server: fetcher is required")
	}
	staticFS, err := fs.Sub(embeddedStatic, "static")
	if err != nil {
		return nil, fmt.Errorf("static assets missing: %w", err)
	}
	tmpl, err := template.New("").Funcs(templateFuncs).ParseFS(embeddedTemplates, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}

	s := &Server{
		cfg:       opts.Config,
		fetcher:   opts.Fetcher,
		watcher:   opts.Watcher,
		store:     opts.Store,
		logger:    opts.Logger,
		staticFS:  staticFS,
		templates: tmpl,
	}
	s.router = s.routes()
	s.httpServer = &http.Server{
		Addr:              opts.Config.ListenAddr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s, nil
}

// Handler returns the root handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Run blocks and serves HTTP traffic.
func (s *Server) Run() error {
	s.logger.Info().Str("listen", s.httpServer.Addr).Msg("http server started")
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully shuts the server down.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(s.logRequests)

	r.Get("/", s.handleIndex)
	r.Get("/health", s.handleHealth)
	for _, kind := range view.Kinds {
		kind := kind
		r.Get("/"+kind, func(w http.ResponseWriter, r *http.Request) {
			s.handlePage(w, r, kind)
		})
	}
	r.Get("/ws/{view}", s.handleWS)

	r.Route("/api", func(r chi.Router) {
		r.Get("/views/{view}", s.handleViewJSON)
		r.Get("/snapshots", s.handleSnapshots)
		r.Get("/upstream", s.handleUpstream)
	})

	r.Get("/swagger/doc.json", s.handleOpenAPI)
	r.Get("/swagger/*", httpSwagger.Handler(httpSwagger.URL("/swagger/doc.json")))
	r.Handle("/static/*", http.StripPrefix("/static/", http.FileServer(http.FS(s.staticFS))))
	r.Get("/favicon.ico", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	return r
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		started := time.Now()
		next.ServeHTTP(ww, r)
		s.logger.Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Dur("duration", time.Since(started)).
			Msg("request")
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	resp := map[string]any{
		"status":       "ok",
		"generated_at": time.Now().UTC(),
	}
	if s.watcher != nil {
		if sample, ok := s.watcher.Latest(); ok {
			resp["upstream"] = sample
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

// handleViewJSON serves the view model of a view. Public views come from the watcher
// unless live=1 is given; selectable views are loaded for the request's query.
func (s *Server) handleViewJSON(w http.ResponseWriter, r *http.Request) {
	kind := chi.URLParam(r, "view")
	if _, ok := s.cfg.Endpoint(kind); !ok {
		writeError(w, http.StatusNotFound, fmt.Sprintf("unknown view %q", kind))
		return
	}

	if !view.Selectable(kind) && r.URL.Query().Get("live") == "" {
		if page, ok := s.watchedPage(kind); ok {
			writeJSON(w, http.StatusOK, page)
			return
		}
	}

	page, res := s.loadPage(r.Context(), kind, s.formFromRequest(r, kind), r.URL.Query().Get("current") == "1")
	switch res.Outcome {
	case loader.Loaded:
		writeJSON(w, http.StatusOK, page)
	case loader.NoSelection:
		writeError(w, http.StatusBadRequest, "service is required")
	case loader.InvalidBounds:
		writeError(w, http.StatusBadRequest, res.Err.Error())
	default:
		writeError(w, upstreamStatus(res.Err), errorText(res.Err))
	}
}

func (s *Server) handleSnapshots(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		writeError(w, http.StatusServiceUnavailable, "snapshot storage is disabled")
		return
	}
	limit := parseLimit(r, defaultSnapshotLimit, maxSnapshotLimit)
	kind := r.URL.Query().Get("view")
	if kind != "" {
		snap, err := s.store.Latest(kind, r.URL.Query().Get("service"))
		if errors.Is(err, storage.ErrNotFound) {
			writeError(w, http.StatusNotFound, err.Error())
			return
		}
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		writeJSON(w, http.StatusOK, []storage.Snapshot{snap})
		return
	}
	snaps, err := s.store.List(limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if snaps == nil {
		snaps = []storage.Snapshot{}
	}
	writeJSON(w, http.StatusOK, snaps)
}

func (s *Server) handleOpenAPI(w http.ResponseWriter, _ *http.Request) {
	data, err := fs.ReadFile(s.staticFS, "openapi.json")
	if err != nil {
		writeError(w, http.StatusInternalServerError, "openapi document missing")
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write(data)
}

func (s *Server) watchedPage(kind string) (view.Page, bool) {
	if s.watcher == nil {
		return view.Page{}, false
	}
	page, ok := s.watcher.Page(kind)
	if !ok || page.Hidden {
		return view.Page{}, false
	}
	return page, true
}

func (s *Server) viewOptions() view.Options {
	return view.Options{Density: s.cfg.Density, StatusPath: "/" + view.KindStatus}
}

func upstreamStatus(err error) int {
	if code := gameserver.StatusCode(err); code == http.StatusNotFound || code == http.StatusBadRequest {
		return code
	}
	return http.StatusBadGateway
}

func errorText(err error) string {
	if err == nil {
		return "load failed"
	}
	return err.Error()
}

func parseLimit(r *http.Request, fallback, ceiling int) int {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil || value <= 0 {
		return fallback
	}
	if value > ceiling {
		return ceiling
	}
	return value
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
