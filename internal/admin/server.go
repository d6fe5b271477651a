// Package admin serves position lookups over HTTP.
package admin

import (
	"context"
	"embed"
	"encoding/json"
	"errors"
	"html/template"
	"math"
	"net"
	"net/http"
	"time"

	"github.com/rotisserie/eris"

	"cruisetrack/internal/logging"
	"cruisetrack/internal/positions"
	"cruisetrack/internal/track"
)

// Store resolves datetimes to positions.
type Store interface {
	Lookup(ctx context.Context, datetime string) (positions.Position, error)
	Count(ctx context.Context) (int, error)
}

type Server struct {
	Store Store
	tpl   *template.Template
}

//go:embed templates/index.html
var content embed.FS

func NewServer(store Store) *Server {
	tpl := template.Must(template.New("index.html").ParseFS(content, "templates/index.html"))
	return &Server{Store: store, tpl: tpl}
}

// Handler returns the server's routes.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", s.handleIndex)
	mux.HandleFunc("GET /position", s.handlePosition)
	mux.HandleFunc("GET /healthz", s.handleHealth)
	return mux
}

// Start serves on addr until ctx is cancelled.
func (s *Server) Start(ctx context.Context, addr string) error {
	log := logging.FromContext(ctx)
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}
	errCh := make(chan error, 1)
	go func() {
		log.Info("admin server listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()
	select {
	case err := <-errCh:
		return eris.Wrap(err, "admin: serve")
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return eris.Wrap(err, "admin: shutdown")
	}
	log.Info("admin server stopped")
	return nil
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	n, err := s.Store.Count(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.tpl.Execute(w, struct{ Rows int }{n})
}

type positionResponse struct {
	DateTime  string     `json:"datetime"`
	Latitude  *float64   `json:"latitude"`
	Longitude *float64   `json:"longitude"`
	DeviceID  string     `json:"device_id"`
	Overall   track.Flag `json:"overall"`
}

func (s *Server) handlePosition(w http.ResponseWriter, r *http.Request) {
	dt := r.URL.Query().Get("datetime")
	if dt == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "datetime is required"})
		return
	}
	p, err := s.Store.Lookup(r.Context(), dt)
	if errors.Is(err, positions.ErrNotFound) {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "no position for " + dt})
		return
	}
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, positionResponse{
		DateTime:  p.DateTime,
		Latitude:  finite(p.Latitude),
		Longitude: finite(p.Longitude),
		DeviceID:  p.DeviceID,
		Overall:   p.Overall,
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	n, err := s.Store.Count(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok", "rows": n})
}

func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	logging.FromContext(r.Context()).Error("admin request failed", "path", r.URL.Path, "err", err)
	writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func finite(v float64) *float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}
