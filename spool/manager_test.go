package spool

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/lukeod/netprint/testutils"
)

// failingReader returns some bytes and then an error.
type failingReader struct{ sent bool }

func (f *failingReader) Read(p []byte) (int, error) {
	if f.sent {
		return 0, errors.New("connection reset")
	}
	f.sent = true
	return copy(p, "partial"), nil
}

func newTestManager(t *testing.T) *Manager {
	t.Helper()
	m, err := NewManager(filepath.Join(t.TempDir(), "uploads"))
	if err != nil {
		t.Fatalf("NewManager returned error: %v", err)
	}
	return m
}

func TestNewManager(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "uploads")
	m, err := NewManager(dir)
	if err != nil {
		t.Fatalf("NewManager returned error: %v", err)
	}
	if info, err := os.Stat(dir); err != nil || !info.IsDir() {
		t.Errorf("Expected %s to be created", dir)
	}
	if !filepath.IsAbs(m.Dir()) {
		t.Errorf("Expected an absolute dir, got %s", m.Dir())
	}
}

func TestStage(t *testing.T) {
	testutils.InitLogging()

	t.Run("Writes contents", func(t *testing.T) {
		m := newTestManager(t)

		path, err := m.Stage(strings.NewReader("hello printer"), "report.pdf")
		if err != nil {
			t.Fatalf("Stage returned error: %v", err)
		}
		if filepath.Dir(path) != m.Dir() {
			t.Errorf("Expected %s to be inside %s", path, m.Dir())
		}
		if !strings.HasSuffix(path, "-report.pdf") {
			t.Errorf("Expected the original name to be kept, got %s", path)
		}
		data, err := os.ReadFile(path)
		if err != nil {
			t.Fatalf("Failed to read staged file: %v", err)
		}
		if string(data) != "hello printer" {
			t.Errorf("Expected staged contents to match, got %q", data)
		}
	})

	t.Run("Unique names", func(t *testing.T) {
		m := newTestManager(t)

		a, err := m.Stage(strings.NewReader("a"), "same.txt")
		if err != nil {
			t.Fatalf("Stage returned error: %v", err)
		}
		b, err := m.Stage(strings.NewReader("b"), "same.txt")
		if err != nil {
			t.Fatalf("Stage returned error: %v", err)
		}
		if a == b {
			t.Errorf("Expected distinct paths, got %s twice", a)
		}
	})

	t.Run("Traversal in name is stripped", func(t *testing.T) {
		m := newTestManager(t)

		for _, name := range []string{"../../etc/passwd", `..\..\boot.ini`, "..", ""} {
			path, err := m.Stage(strings.NewReader("x"), name)
			if err != nil {
				t.Fatalf("Stage(%q) returned error: %v", name, err)
			}
			if filepath.Dir(path) != m.Dir() {
				t.Errorf("Stage(%q) escaped the staging dir: %s", name, path)
			}
		}
	})

	t.Run("Failed copy leaves nothing behind", func(t *testing.T) {
		m := newTestManager(t)

		if _, err := m.Stage(&failingReader{}, "broken.pdf"); err == nil {
			t.Fatal("Expected an error from a failing reader")
		}
		entries, err := os.ReadDir(m.Dir())
		if err != nil {
			t.Fatalf("ReadDir returned error: %v", err)
		}
		if len(entries) != 0 {
			t.Errorf("Expected an empty staging dir, found %d entries", len(entries))
		}
	})
}

func TestRemove(t *testing.T) {
	testutils.InitLogging()

	t.Run("Deletes staged file", func(t *testing.T) {
		m := newTestManager(t)
		path, err := m.Stage(strings.NewReader("x"), "a.txt")
		if err != nil {
			t.Fatalf("Stage returned error: %v", err)
		}

		if err := m.Remove(path); err != nil {
			t.Fatalf("Remove returned error: %v", err)
		}
		if _, err := os.Stat(path); !os.IsNotExist(err) {
			t.Errorf("Expected %s to be gone", path)
		}
	})

	t.Run("Missing file is not an error", func(t *testing.T) {
		m := newTestManager(t)
		if err := m.Remove(filepath.Join(m.Dir(), "never-existed")); err != nil {
			t.Errorf("Expected no error, got %v", err)
		}
	})

	t.Run("Refuses paths outside the dir", func(t *testing.T) {
		m := newTestManager(t)

		outside := filepath.Join(t.TempDir(), "keep.txt")
		if err := os.WriteFile(outside, []byte("keep"), 0644); err != nil {
			t.Fatalf("Failed to write file: %v", err)
		}

		for _, p := range []string{outside, filepath.Join(m.Dir(), "..", "x"), m.Dir()} {
			if err := m.Remove(p); !errors.Is(err, ErrOutsideSpool) {
				t.Errorf("Remove(%s) = %v, want ErrOutsideSpool", p, err)
			}
		}
		if _, err := os.Stat(outside); err != nil {
			t.Errorf("Expected %s to survive", outside)
		}
	})
}

func TestSanitize(t *testing.T) {
	tests := map[string]string{
		"report.pdf":       "report.pdf",
		"dir/photo.jpg":    "photo.jpg",
		`C:\docs\memo.txt`: "memo.txt",
		"../../etc/passwd": "passwd",
		"..":               "",
		"":                 "",
	}
	for in, want := range tests {
		if got := sanitize(in); got != want {
			t.Errorf("sanitize(%q) = %q, want %q", in, got, want)
		}
	}
}
