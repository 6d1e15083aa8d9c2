package notes

import (
	"errors"
	"testing"
)

func newStore(t *testing.T) *Store {
	t.Helper()
	s, err := NewStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	return s
}

func TestSaveAndLoad(t *testing.T) {
	s := newStore(t)

	if err := s.Save("run-42", "agar batch 3, stirrer at 900 rpm"); err != nil {
		t.Fatalf("Save: %v", err)
	}

	note, err := s.Load("run-42")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if note.Name != "run-42" {
		t.Errorf("name = %q", note.Name)
	}
	if note.Body != "agar batch 3, stirrer at 900 rpm" {
		t.Errorf("body = %q", note.Body)
	}
	if note.Modified.IsZero() {
		t.Error("modified time not set")
	}
}

func TestSaveReplaces(t *testing.T) {
	s := newStore(t)

	s.Save("run-1", "first")
	s.Save("run-1", "second")

	note, err := s.Load("run-1")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if note.Body != "second" {
		t.Errorf("body = %q, want second", note.Body)
	}
}

func TestLoadMissing(t *testing.T) {
	s := newStore(t)

	if _, err := s.Load("nothing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestList(t *testing.T) {
	s := newStore(t)

	if notes, err := s.List(); err != nil || len(notes) != 0 {
		t.Fatalf("empty store: notes=%v err=%v", notes, err)
	}

	s.Save("beta", "b")
	s.Save("alpha", "a")

	notes, err := s.List()
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(notes) != 2 {
		t.Fatalf("expected 2 notes, got %d", len(notes))
	}
	if notes[0].Name != "alpha" || notes[1].Name != "beta" {
		t.Errorf("order = %q, %q; want alpha, beta", notes[0].Name, notes[1].Name)
	}
	if notes[0].Body != "" {
		t.Error("List must not load bodies")
	}
}

func TestDelete(t *testing.T) {
	s := newStore(t)
	s.Save("gone", "x")

	if err := s.Delete("gone"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := s.Load("gone"); !errors.Is(err, ErrNotFound) {
		t.Errorf("after delete: err = %v, want ErrNotFound", err)
	}
	if err := s.Delete("gone"); !errors.Is(err, ErrNotFound) {
		t.Errorf("double delete: err = %v, want ErrNotFound", err)
	}
}

func TestInvalidNames(t *testing.T) {
	s := newStore(t)

	bad := []string{"", "../escape", "a/b", "dot.dot", "white space", "run\x00"}
	for _, name := range bad {
		if err := s.Save(name, "x"); !errors.Is(err, ErrInvalidName) {
			t.Errorf("Save(%q): err = %v, want ErrInvalidName", name, err)
		}
		if _, err := s.Load(name); !errors.Is(err, ErrInvalidName) {
			t.Errorf("Load(%q): err = %v, want ErrInvalidName", name, err)
		}
		if err := s.Delete(name); !errors.Is(err, ErrInvalidName) {
			t.Errorf("Delete(%q): err = %v, want ErrInvalidName", name, err)
		}
	}
}
