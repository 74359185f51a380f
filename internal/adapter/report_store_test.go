package adapter

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	m "xcheck.dev/pkg/xcheck/internal/model"
)

func TestReportStoreRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "report.yaml")
	store := NewLocalReportStore()

	report := m.Report{
		Files: []m.FileReport{
			{
				Path: "src/main.go",
				Items: []m.ItemReport{
					{Name: "Add", Kind: m.KindFunction, Line: 3, Checks: 5},
					{Name: "Point", Kind: m.KindStruct, Line: 7, Checks: 1},
					{Name: "Quiet", Kind: m.KindFunction, Line: 12, Skipped: true},
				},
			},
		},
	}

	require.NoError(t, store.Save(path, report))

	loaded, err := store.Load(path)
	require.NoError(t, err)
	assert.Equal(t, report, loaded)
}

func TestReportStoreLoadMissingFile(t *testing.T) {
	store := NewLocalReportStore()

	_, err := store.Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unable to read report")
}

func TestReportStoreLoadMalformed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "report.yaml")
	store := NewLocalReportStore()

	require.NoError(t, NewLocalSourceFSAdapter().WriteFile(m.Path(path), []byte("{unclosed"), 0o644))

	_, err := store.Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unable to decode report")
}
