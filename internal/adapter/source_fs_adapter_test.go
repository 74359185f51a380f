package adapter

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	m "xcheck.dev/pkg/xcheck/internal/model"
)

func writeTree(t *testing.T, root string, files ...string) {
	t.Helper()

	for _, file := range files {
		path := filepath.Join(root, file)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte("package x\n"), 0o644))
	}
}

func discovered(t *testing.T, root string, patterns ...string) []string {
	t.Helper()

	a := NewLocalSourceFSAdapter()

	paths, err := a.Discover(context.Background(), []string{root}, patterns)
	require.NoError(t, err)

	var rel []string
	for _, p := range paths {
		r, err := filepath.Rel(root, string(p))
		require.NoError(t, err)
		rel = append(rel, r)
	}

	sort.Strings(rel)

	return rel
}

func TestDiscoverMatchesGoFilesByDefault(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root,
		"main.go",
		"lib/util.go",
		"lib/util.txt",
		"README.md",
	)

	assert.Equal(t, []string{filepath.Join("lib", "util.go"), "main.go"}, discovered(t, root))
}

func TestDiscoverSkipsHiddenVendorAndTestdata(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root,
		"keep.go",
		"vendor/dep/dep.go",
		"testdata/fixture.go",
		".git/objects/blob.go",
		"_build/gen.go",
	)

	assert.Equal(t, []string{"keep.go"}, discovered(t, root))
}

func TestDiscoverCustomPatterns(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root,
		"handler.go",
		"handler_test.go",
		"schema.sql",
	)

	assert.Equal(t, []string{"handler_test.go", "schema.sql"}, discovered(t, root, "*_test.go", "*.sql"))
}

func TestDiscoverMultipleRoots(t *testing.T) {
	rootA := t.TempDir()
	rootB := t.TempDir()
	writeTree(t, rootA, "a.go")
	writeTree(t, rootB, "b.go")

	a := NewLocalSourceFSAdapter()

	paths, err := a.Discover(context.Background(), []string{rootA, rootB}, nil)
	require.NoError(t, err)

	var names []string
	for _, p := range paths {
		names = append(names, filepath.Base(string(p)))
	}

	sort.Strings(names)
	assert.Equal(t, []string{"a.go", "b.go"}, names)
}

func TestDiscoverCanceledContext(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, "a.go")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	a := NewLocalSourceFSAdapter()

	_, err := a.Discover(ctx, []string{root}, nil)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestReadWriteRoundTrip(t *testing.T) {
	root := t.TempDir()
	path := m.Path(filepath.Join(root, "out.go"))

	a := NewLocalSourceFSAdapter()

	require.NoError(t, a.WriteFile(path, []byte("package out\n"), 0o644))

	content, err := a.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "package out\n", string(content))

	info, err := a.FileInfo(path)
	require.NoError(t, err)
	assert.False(t, info.IsDir())
}
