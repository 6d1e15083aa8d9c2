// Package notes is a small file-backed store for run notes: free-text
// records an operator attaches to an experiment (what was on the plate,
// observations, anomalies). One file per note under a flat directory.
package notes

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"
)

// ErrNotFound is returned when the named note does not exist.
var ErrNotFound = errors.New("note not found")

// ErrInvalidName is returned for names that could escape the store
// directory or collide with the extension handling.
var ErrInvalidName = errors.New("invalid note name")

const noteExt = ".txt"

// Note is a stored run note.
type Note struct {
	Name     string
	Body     string
	Modified time.Time
}

// Store persists notes as flat files under dir.
type Store struct {
	dir string
	mu  sync.Mutex
}

// NewStore creates the directory if needed and returns a store over it.
func NewStore(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create notes dir: %w", err)
	}
	return &Store{dir: dir}, nil
}

// List returns all notes sorted by name. Bodies are not loaded.
func (s *Store) List() ([]Note, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("read notes dir: %w", err)
	}

	var out []Note
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), noteExt) {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		out = append(out, Note{
			Name:     strings.TrimSuffix(e.Name(), noteExt),
			Modified: info.ModTime(),
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// Load returns the named note with its body.
func (s *Store) Load(name string) (Note, error) {
	if !validName(name) {
		return Note{}, ErrInvalidName
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	path := filepath.Join(s.dir, name+noteExt)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Note{}, ErrNotFound
		}
		return Note{}, fmt.Errorf("read note: %w", err)
	}
	info, err := os.Stat(path)
	if err != nil {
		return Note{}, fmt.Errorf("stat note: %w", err)
	}
	return Note{Name: name, Body: string(data), Modified: info.ModTime()}, nil
}

// Save writes the note body, creating or replacing the file.
func (s *Store) Save(name, body string) error {
	if !validName(name) {
		return ErrInvalidName
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	path := filepath.Join(s.dir, name+noteExt)
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		return fmt.Errorf("write note: %w", err)
	}
	return nil
}

// Delete removes the named note.
func (s *Store) Delete(name string) error {
	if !validName(name) {
		return ErrInvalidName
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	err := os.Remove(filepath.Join(s.dir, name+noteExt))
	if os.IsNotExist(err) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("delete note: %w", err)
	}
	return nil
}

// validName accepts letters, digits, dash and underscore. Everything else
// is rejected so a name can never traverse out of the store directory.
func validName(name string) bool {
	if name == "" || len(name) > 128 {
		return false
	}
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z':
		case r >= 'A' && r <= 'Z':
		case r >= '0' && r <= '9':
		case r == '-' || r == '_':
		default:
			return false
		}
	}
	return true
}
