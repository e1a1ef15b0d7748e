// Package web serves the port grid: an HTML page with the 54 digital and
// 16 analog ports laid out as tables, and the same state as JSON. Pages are
// rendered from a status.Tracker snapshot, never from the live store, so
// requests do not contend with the poll loop.
package web

import (
	"context"
	"log"
	"net"
	"net/http"

	"github.com/sweeney/port-monitor/internal/status"
)

// Server is the read-only HTTP front end for the port grid.
type Server struct {
	httpServer *http.Server
	tracker    *status.Tracker
}

// New returns a Server bound to addr. "/" and "/index.html" render the
// grid page; "/index.json" returns the configured ports, counts and
// connectivity.
func New(addr string, tracker *status.Tracker) *Server {
	s := &Server{tracker: tracker}

	mux := http.NewServeMux()
	mux.HandleFunc("/", readOnly(s.handleGrid))
	mux.HandleFunc("/index.html", readOnly(s.handleGrid))
	mux.HandleFunc("/index.json", readOnly(s.handleGridJSON))

	s.httpServer = &http.Server{
		Addr:    addr,
		Handler: mux,
	}
	return s
}

// Handler returns the router, for use with httptest.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// ListenAndServe blocks until Shutdown.
func (s *Server) ListenAndServe() error {
	return s.httpServer.ListenAndServe()
}

func (s *Server) Serve(ln net.Listener) error {
	return s.httpServer.Serve(ln)
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// readOnly rejects anything but GET and HEAD. Port writes go over MQTT.
func readOnly(h http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet && r.Method != http.MethodHead {
			w.Header().Set("Allow", "GET, HEAD")
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		// The grid changes every tick.
		w.Header().Set("Cache-Control", "no-store")
		h(w, r)
	}
}

func (s *Server) handleGrid(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" && r.URL.Path != "/index.html" {
		http.NotFound(w, r)
		return
	}
	snap := s.tracker.Snapshot()
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := renderHTML(w, snap); err != nil {
		log.Printf("web: render port grid: %v", err)
	}
}

func (s *Server) handleGridJSON(w http.ResponseWriter, r *http.Request) {
	snap := s.tracker.Snapshot()
	w.Header().Set("Content-Type", "application/json")
	w.Write(status.FormatJSON(snap))
}
