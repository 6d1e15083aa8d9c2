// Package web provides the HTTP control surface for the hotplate daemon:
// a status page, a JSON endpoint, a command API, and a websocket feed of
// live status frames.
package web

import (
	"context"
	"net"
	"net/http"
	"time"

	"github.com/sweeney/hotplate-controller/internal/notes"
	"github.com/sweeney/hotplate-controller/internal/status"
)

// Controls is the command interface the HTTP handlers dispatch into. The
// daemon's controller implements it; handlers never touch the control loop
// directly.
type Controls interface {
	SetHold(target, tolerance float64) error
	SetRamp(start, end float64, duration time.Duration, tolerance float64) error
	SetTimer(duration time.Duration, target float64, useTemp bool, tolerance float64) error
	HeaterOff() error
	StirrerStart() error
	StirrerStop() error
	SetStirrerRPM(rpm float64) error
}

// Server serves the status page and control API over HTTP.
type Server struct {
	httpServer *http.Server
	tracker    *status.Tracker
	controls   Controls
	notes      *notes.Store

	// pushInterval is how often the websocket feed sends a frame.
	pushInterval time.Duration
}

// New creates a Server that reads state from the given tracker and sends
// commands through controls. The notes store may be nil to disable the
// notes API.
func New(addr string, tracker *status.Tracker, controls Controls, noteStore *notes.Store) *Server {
	s := &Server{
		tracker:      tracker,
		controls:     controls,
		notes:        noteStore,
		pushInterval: time.Second,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handleIndex)
	mux.HandleFunc("/index.html", s.handleIndex)
	mux.HandleFunc("/index.json", s.handleJSON)
	mux.HandleFunc("/api/action", s.handleAction)
	mux.HandleFunc("/api/notes", s.handleNotes)
	mux.HandleFunc("/api/notes/", s.handleNote)
	mux.HandleFunc("/ws", s.handleWS)

	s.httpServer = &http.Server{
		Addr:    addr,
		Handler: mux,
	}
	return s
}

// ListenAndServe starts listening. It blocks until the server is shut down.
func (s *Server) ListenAndServe() error {
	return s.httpServer.ListenAndServe()
}

// Serve accepts connections on the given listener. Useful for tests.
func (s *Server) Serve(ln net.Listener) error {
	return s.httpServer.Serve(ln)
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" && r.URL.Path != "/index.html" {
		http.NotFound(w, r)
		return
	}
	snap := s.tracker.Snapshot()
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	renderHTML(w, snap)
}

func (s *Server) handleJSON(w http.ResponseWriter, r *http.Request) {
	snap := s.tracker.Snapshot()
	w.Header().Set("Content-Type", "application/json")
	w.Write(status.FormatJSON(snap))
}
