// Package fsops implements the filesystem operations: file read and
// recursive directory listing with optional glob filtering.
package fsops

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/trialbridge/toolhost/host"
)

const modTimeFormat = "2006-01-02 15:04:05"

// Config configures path resolution.
type Config struct {
	// Root, when set, anchors relative request paths. Absolute paths are
	// used as-is either way.
	Root string
}

// Service serves the filesystem operations.
type Service struct {
	root string
}

// New builds a Service.
func New(cfg Config) *Service {
	return &Service{root: cfg.Root}
}

// FileEntry is one listed file or directory.
type FileEntry struct {
	Path    string `json:"path"`
	Name    string `json:"name"`
	Size    int64  `json:"size"`
	IsDir   bool   `json:"is_dir"`
	ModTime string `json:"mod_time"`
}

// Operations returns the operation set this service serves.
func (s *Service) Operations() []host.Operation {
	return []host.Operation{
		{
			Name:        "read_file",
			Description: "Read content of a clinical trial document or data file",
			Input: host.InputSchema{
				"path": {
					Type:        host.TypeString,
					Required:    true,
					Description: "Path to the file to read",
				},
			},
			Handler: s.readFile,
		},
		{
			Name:        "list_files",
			Description: "List files in a directory, optionally filtered by pattern",
			Input: host.InputSchema{
				"directory": {
					Type:        host.TypeString,
					Required:    true,
					Description: "Directory path to list",
				},
				"pattern": {
					Type:        host.TypeString,
					Description: "Optional glob pattern to filter files (e.g., '*.csv', '*.pdf')",
				},
			},
			Handler: s.listFiles,
		},
	}
}

func (s *Service) readFile(ctx context.Context, args host.Args) (any, error) {
	path := args.String("path")
	content, err := os.ReadFile(s.resolve(path))
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}
	return map[string]any{
		"path":    path,
		"content": string(content),
		"size":    len(content),
	}, nil
}

func (s *Service) listFiles(ctx context.Context, args host.Args) (any, error) {
	directory := args.String("directory")
	pattern := args.String("pattern")

	files := make([]FileEntry, 0)
	err := filepath.WalkDir(s.resolve(directory), func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}

		if pattern != "" {
			// A bad pattern or non-matching name skips the entry; the
			// walk itself keeps going.
			matched, matchErr := filepath.Match(pattern, filepath.Base(path))
			if matchErr != nil || !matched {
				return nil
			}
		}

		info, err := d.Info()
		if err != nil {
			return err
		}
		files = append(files, FileEntry{
			Path:    path,
			Name:    info.Name(),
			Size:    info.Size(),
			IsDir:   info.IsDir(),
			ModTime: info.ModTime().Format(modTimeFormat),
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list files: %w", err)
	}

	return map[string]any{
		"directory": directory,
		"files":     files,
		"count":     len(files),
	}, nil
}

func (s *Service) resolve(path string) string {
	if s.root == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(s.root, path)
}

// Name identifies the service's health probe.
func (s *Service) Name() string { return "filesystem" }

// Check stats the configured root, or the working directory when no root
// is set.
func (s *Service) Check(ctx context.Context) error {
	target := s.root
	if target == "" {
		target = "."
	}
	_, err := os.Stat(target)
	return err
}

var _ host.Probe = (*Service)(nil)
