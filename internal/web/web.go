package web

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"tripcard/internal/card"
	"tripcard/internal/config"
	"tripcard/internal/dashboard"
	"tripcard/internal/format"
	"tripcard/internal/ics"
	appLog "tripcard/internal/log"
	"tripcard/internal/render"
)

// Server exposes the dashboard cards over HTTP.
type Server struct {
	cfg  *config.Config
	dash *dashboard.Dashboard
	loc  *time.Location
	mux  *http.ServeMux
}

// NewServer constructs a Server for the given dashboard.
func NewServer(cfg *config.Config, dash *dashboard.Dashboard, loc *time.Location) *Server {
	if loc == nil {
		loc = time.Local
	}
	s := &Server{
		cfg:  cfg,
		dash: dash,
		loc:  loc,
		mux:  http.NewServeMux(),
	}
	s.registerRoutes()
	return s
}

// Handler returns the root handler, traced and wrapped with basic auth when
// configured.
func (s *Server) Handler() http.Handler {
	h := otelhttp.NewHandler(s.mux, "tripcard",
		otelhttp.WithSpanNameFormatter(func(_ string, r *http.Request) string {
			return r.Method + " " + r.URL.Path
		}),
	)
	if s.basicAuthEnabled() {
		appLog.Info("HTTP basic auth enabled", "listen", "http://"+s.cfg.Listen)
		return s.basicAuthMiddleware(h)
	}
	return h
}

// basicAuthEnabled reports whether both credentials are configured.
func (s *Server) basicAuthEnabled() bool {
	if s.cfg == nil || s.cfg.BasicAuth == nil {
		return false
	}
	return s.cfg.BasicAuth.Username != "" && s.cfg.BasicAuth.Password != ""
}

// basicAuthMiddleware wraps all handlers except /health with HTTP Basic Auth.
func (s *Server) basicAuthMiddleware(next http.Handler) http.Handler {
	username := s.cfg.BasicAuth.Username
	password := s.cfg.BasicAuth.Password

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/health" {
			next.ServeHTTP(w, r)
			return
		}

		u, p, ok := r.BasicAuth()
		if !ok || !secureCompare(u, username) || !secureCompare(p, password) {
			w.Header().Set("WWW-Authenticate", `Basic realm="tripcard", charset="UTF-8"`)
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// secureCompare compares two strings in constant time.
func secureCompare(a, b string) bool {
	if len(a) != len(b) {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}

// Run serves on cfg.Listen until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Listen,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		appLog.Info("starting HTTP server", "listen", "http://"+s.cfg.Listen)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	appLog.Info("HTTP server stopped")
	return nil
}

func (s *Server) registerRoutes() {
	s.mux.HandleFunc("GET /health", s.handleHealth)
	s.mux.HandleFunc("GET /cards/{name}", s.handleCardPage)
	s.mux.HandleFunc("GET /cards/{name}/fragment", s.handleCardFragment)
	s.mux.HandleFunc("GET /cards/{name}/trip.ics", s.handleCardICS)
	s.mux.HandleFunc("GET /api/cards", s.handleCards)
	s.mux.HandleFunc("GET /api/card-types", s.handleCardTypes)
	s.mux.HandleFunc("GET /preview.png", s.handlePreview)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

func (s *Server) lookup(w http.ResponseWriter, r *http.Request) (dashboard.Entry, bool) {
	name := r.PathValue("name")
	e, ok := s.dash.Card(name)
	if !ok {
		writeError(w, http.StatusNotFound, "unknown card "+name)
		return dashboard.Entry{}, false
	}
	return e, true
}

// handleCardPage serves a standalone HTML document for one card. This is
// the page capture screenshots.
func (s *Server) handleCardPage(w http.ResponseWriter, r *http.Request) {
	e, ok := s.lookup(w, r)
	if !ok {
		return
	}
	page, err := render.Page(e.Name, e.Card.HTML())
	if err != nil {
		appLog.Error("page render failed", err, "card", e.Name)
		writeError(w, http.StatusInternalServerError, "failed to render page")
		return
	}
	writeHTML(w, page)
}

func (s *Server) handleCardFragment(w http.ResponseWriter, r *http.Request) {
	e, ok := s.lookup(w, r)
	if !ok {
		return
	}
	writeHTML(w, e.Card.HTML())
}

// handleCardICS exports the card's itinerary. A missing entity is a 404
// rather than an empty calendar.
func (s *Server) handleCardICS(w http.ResponseWriter, r *http.Request) {
	e, ok := s.lookup(w, r)
	if !ok {
		return
	}
	state, ok := e.Card.State()
	if !ok {
		cfg, _ := e.Card.Config()
		writeError(w, http.StatusNotFound, "entity "+cfg.Entity+" not found")
		return
	}

	name := state.Value
	if state.Offline() || name == "" {
		name = e.Name
	}
	x := ics.Exporter{Format: format.Formatter{Location: s.loc}}
	body := x.Export(name, state)

	w.Header().Set("Content-Type", "text/calendar; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="`+e.Name+`.ics"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(body))
}

type cardDTO struct {
	Name   string `json:"name"`
	Type   string `json:"type"`
	Entity string `json:"entity"`
	Mode   string `json:"mode"`
	Size   int    `json:"size"`
}

func (s *Server) handleCards(w http.ResponseWriter, _ *http.Request) {
	entries := s.dash.Cards()
	out := make([]cardDTO, 0, len(entries))
	for _, e := range entries {
		cfg, _ := e.Card.Config()
		out = append(out, cardDTO{
			Name:   e.Name,
			Type:   e.Type,
			Entity: cfg.Entity,
			Mode:   string(cfg.Mode),
			Size:   e.Card.Size(),
		})
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleCardTypes(w http.ResponseWriter, _ *http.Request) {
	var types []card.Descriptor
	if reg := s.dash.Registry(); reg != nil {
		types = reg.Descriptors()
	}
	if types == nil {
		types = []card.Descriptor{}
	}
	writeJSON(w, http.StatusOK, types)
}

// handlePreview serves the last captured PNG from disk.
func (s *Server) handlePreview(w http.ResponseWriter, r *http.Request) {
	http.ServeFile(w, r, s.cfg.Capture.Output)
}

func writeHTML(w http.ResponseWriter, body string) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(body))
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		appLog.Error("failed to write JSON response", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	type errResp struct {
		Error string `json:"error"`
	}
	writeJSON(w, status, errResp{Error: msg})
}
