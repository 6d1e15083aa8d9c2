package web

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/sweeney/hotplate-controller/internal/notes"
)

// noteJSON is the wire shape for a run note.
type noteJSON struct {
	Name     string `json:"name"`
	Body     string `json:"body,omitempty"`
	Modified string `json:"modified"`
}

func toNoteJSON(n notes.Note) noteJSON {
	return noteJSON{
		Name:     n.Name,
		Body:     n.Body,
		Modified: n.Modified.UTC().Format(time.RFC3339),
	}
}

// handleNotes serves GET /api/notes: the note index without bodies.
func (s *Server) handleNotes(w http.ResponseWriter, r *http.Request) {
	if s.notes == nil {
		http.Error(w, "notes disabled", http.StatusNotFound)
		return
	}
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", http.MethodGet)
		http.Error(w, "GET required", http.StatusMethodNotAllowed)
		return
	}

	list, err := s.notes.List()
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	out := make([]noteJSON, 0, len(list))
	for _, n := range list {
		out = append(out, toNoteJSON(n))
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(out)
}

// handleNote serves /api/notes/<name>: GET loads, PUT saves, DELETE removes.
func (s *Server) handleNote(w http.ResponseWriter, r *http.Request) {
	if s.notes == nil {
		http.Error(w, "notes disabled", http.StatusNotFound)
		return
	}
	name := strings.TrimPrefix(r.URL.Path, "/api/notes/")

	switch r.Method {
	case http.MethodGet:
		note, err := s.notes.Load(name)
		if err != nil {
			writeNoteError(w, err)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(toNoteJSON(note))

	case http.MethodPut:
		body, err := io.ReadAll(io.LimitReader(r.Body, 64<<10))
		if err != nil {
			http.Error(w, "read body", http.StatusBadRequest)
			return
		}
		if err := s.notes.Save(name, string(body)); err != nil {
			writeNoteError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)

	case http.MethodDelete:
		if err := s.notes.Delete(name); err != nil {
			writeNoteError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)

	default:
		w.Header().Set("Allow", "GET, PUT, DELETE")
		http.Error(w, "unsupported method", http.StatusMethodNotAllowed)
	}
}

func writeNoteError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, notes.ErrNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, notes.ErrInvalidName):
		http.Error(w, err.Error(), http.StatusBadRequest)
	default:
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}
