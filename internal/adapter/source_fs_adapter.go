// Package adapter contains the infrastructure and UI adapters of the xcheck
// CLI.
package adapter

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	m "xcheck.dev/pkg/xcheck/internal/model"
)

// SourceFSAdapter abstracts the filesystem operations the domain layer relies
// on when scanning and rewriting user projects. It hides direct `os` access
// so the workflow logic can be tested without touching the disk.
type SourceFSAdapter interface {
	// Discover walks the given roots concurrently and returns the files
	// matching any of the patterns.
	Discover(ctx context.Context, roots []string, patterns []string) ([]m.Path, error)

	// ReadFile loads a file from disk and returns its contents.
	ReadFile(path m.Path) ([]byte, error)

	// WriteFile writes content to a file with the given permissions.
	WriteFile(path m.Path, content []byte, perm os.FileMode) error

	// FileInfo returns metadata for a path so callers can check existence.
	FileInfo(path m.Path) (os.FileInfo, error)
}

// LocalSourceFSAdapter is the concrete SourceFSAdapter backed by the local
// filesystem.
type LocalSourceFSAdapter struct{}

// NewLocalSourceFSAdapter constructs a LocalSourceFSAdapter.
func NewLocalSourceFSAdapter() *LocalSourceFSAdapter {
	return &LocalSourceFSAdapter{}
}

// Discover walks each root in its own goroutine, collecting files that match
// the patterns. Hidden directories, vendor and testdata trees are skipped.
func (a *LocalSourceFSAdapter) Discover(ctx context.Context, roots []string, patterns []string) ([]m.Path, error) {
	if len(patterns) == 0 {
		patterns = []string{"*.go"}
	}

	var (
		mu    sync.Mutex
		paths []m.Path
	)

	g, ctx := errgroup.WithContext(ctx)

	for _, root := range roots {
		g.Go(func() error {
			return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
				if err != nil {
					return err
				}

				if cerr := ctx.Err(); cerr != nil {
					return cerr
				}

				if d.IsDir() {
					if skipDir(d.Name()) && path != root {
						return filepath.SkipDir
					}

					return nil
				}

				if !matchAny(patterns, d.Name()) {
					return nil
				}

				mu.Lock()
				paths = append(paths, m.Path(path))
				mu.Unlock()

				return nil
			})
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	return paths, nil
}

// ReadFile loads file contents from disk.
func (a *LocalSourceFSAdapter) ReadFile(path m.Path) ([]byte, error) {
	return os.ReadFile(string(path))
}

// WriteFile writes content to path with the given permissions.
func (a *LocalSourceFSAdapter) WriteFile(path m.Path, content []byte, perm os.FileMode) error {
	return os.WriteFile(string(path), content, perm)
}

// FileInfo returns metadata for the path.
func (a *LocalSourceFSAdapter) FileInfo(path m.Path) (os.FileInfo, error) {
	return os.Stat(string(path))
}

func skipDir(name string) bool {
	if name == "vendor" || name == "testdata" {
		return true
	}

	return strings.HasPrefix(name, ".") || strings.HasPrefix(name, "_")
}

func matchAny(patterns []string, name string) bool {
	for _, pattern := range patterns {
		if ok, err := filepath.Match(pattern, name); err == nil && ok {
			return true
		}
	}

	return false
}
