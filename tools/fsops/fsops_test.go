package fsops

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/trialbridge/toolhost/host"
)

func operationByName(t *testing.T, s *Service, name string) host.Operation {
	t.Helper()
	for _, op := range s.Operations() {
		if op.Name == name {
			return op
		}
	}
	t.Fatalf("operation %q not registered", name)
	return host.Operation{}
}

func invoke(t *testing.T, s *Service, name string, raw map[string]any) (map[string]any, error) {
	t.Helper()
	op := operationByName(t, s, name)
	args, err := op.Input.Validate(raw)
	if err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
	value, err := op.Handler(context.Background(), args)
	if err != nil {
		return nil, err
	}
	payload, ok := value.(map[string]any)
	if !ok {
		t.Fatalf("result type = %T, want map payload", value)
	}
	return payload, nil
}

func seedDir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "a.csv"), []byte("nct_id,title\n"), 0o644); err != nil {
		t.Fatalf("seed a.csv: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "b.txt"), []byte("notes"), 0o644); err != nil {
		t.Fatalf("seed b.txt: %v", err)
	}
	return dir
}

func TestReadFile(t *testing.T) {
	dir := seedDir(t)
	s := New(Config{Root: dir})

	payload, err := invoke(t, s, "read_file", map[string]any{"path": "a.csv"})
	if err != nil {
		t.Fatalf("read_file error = %v", err)
	}
	if payload["path"] != "a.csv" {
		t.Fatalf("path = %v, want a.csv", payload["path"])
	}
	if payload["content"] != "nct_id,title\n" {
		t.Fatalf("content = %q", payload["content"])
	}
	if payload["size"] != len("nct_id,title\n") {
		t.Fatalf("size = %v, want %d", payload["size"], len("nct_id,title\n"))
	}
}

func TestReadFileNotFound(t *testing.T) {
	s := New(Config{Root: t.TempDir()})

	_, err := invoke(t, s, "read_file", map[string]any{"path": "missing.csv"})
	if err == nil {
		t.Fatal("read_file error = nil, want not-found error")
	}
	if !strings.Contains(err.Error(), "read file") {
		t.Fatalf("error = %v, want read file mention", err)
	}
}

func TestListFilesWithPattern(t *testing.T) {
	dir := seedDir(t)
	s := New(Config{})

	payload, err := invoke(t, s, "list_files", map[string]any{
		"directory": dir,
		"pattern":   "*.csv",
	})
	if err != nil {
		t.Fatalf("list_files error = %v", err)
	}
	if payload["count"] != 1 {
		t.Fatalf("count = %v, want 1", payload["count"])
	}
	files, ok := payload["files"].([]FileEntry)
	if !ok || len(files) != 1 {
		t.Fatalf("files = %v, want single entry", payload["files"])
	}
	entry := files[0]
	if entry.Name != "a.csv" {
		t.Fatalf("name = %q, want a.csv", entry.Name)
	}
	if entry.IsDir {
		t.Fatal("is_dir = true for regular file")
	}
	if entry.Size != int64(len("nct_id,title\n")) {
		t.Fatalf("size = %d, want %d", entry.Size, len("nct_id,title\n"))
	}
	if len(entry.ModTime) != len(modTimeFormat) {
		t.Fatalf("mod_time = %q, want %q layout", entry.ModTime, modTimeFormat)
	}
}

func TestListFilesUnfiltered(t *testing.T) {
	dir := seedDir(t)
	s := New(Config{})

	payload, err := invoke(t, s, "list_files", map[string]any{"directory": dir})
	if err != nil {
		t.Fatalf("list_files error = %v", err)
	}
	// The walk includes the directory itself plus the two seeded files.
	if payload["count"] != 3 {
		t.Fatalf("count = %v, want 3", payload["count"])
	}
	if payload["directory"] != dir {
		t.Fatalf("directory = %v, want %q", payload["directory"], dir)
	}
}

func TestListFilesMissingDirectory(t *testing.T) {
	s := New(Config{})

	_, err := invoke(t, s, "list_files", map[string]any{
		"directory": filepath.Join(t.TempDir(), "absent"),
	})
	if err == nil {
		t.Fatal("list_files error = nil, want error for missing directory")
	}
}

func TestResolveAnchorsRelativePaths(t *testing.T) {
	dir := seedDir(t)
	s := New(Config{Root: dir})

	if got := s.resolve("a.csv"); got != filepath.Join(dir, "a.csv") {
		t.Fatalf("resolve relative = %q", got)
	}
	abs := filepath.Join(dir, "b.txt")
	if got := s.resolve(abs); got != abs {
		t.Fatalf("resolve absolute = %q, want unchanged", got)
	}
}

func TestHealthProbe(t *testing.T) {
	s := New(Config{Root: t.TempDir()})
	if err := s.Check(context.Background()); err != nil {
		t.Fatalf("Check() error = %v", err)
	}

	gone := New(Config{Root: filepath.Join(t.TempDir(), "gone")})
	if err := gone.Check(context.Background()); err == nil {
		t.Fatal("Check() on missing root error = nil, want error")
	}
}
