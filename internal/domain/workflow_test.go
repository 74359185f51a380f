package domain

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"xcheck.dev/pkg/xcheck/internal/adapter"
)

func newTestWorkflow() *InstrumentWorkflow {
	return NewInstrumentWorkflow(
		adapter.NewLocalSourceFSAdapter(),
		adapter.NewLocalGoFileAdapter(),
		adapter.NewLocalReportStore(),
	)
}

func writeSource(t *testing.T, root, name, src string) string {
	t.Helper()

	path := filepath.Join(root, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(src), 0o644))

	return path
}

const workflowSource = `package demo

func Add(a, b int) int {
	return a + b
}
`

func TestWorkflowRewritesInPlace(t *testing.T) {
	root := t.TempDir()
	path := writeSource(t, root, "demo.go", workflowSource)

	report, err := newTestWorkflow().Run(context.Background(), InstrumentArgs{Roots: []string{root}})
	require.NoError(t, err)

	require.Len(t, report.Files, 1)
	assert.Equal(t, 1, report.TotalItems())
	assert.Equal(t, 5, report.TotalChecks())

	rewritten, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(rewritten), `hashrt.HashString("Add")`)
}

func TestWorkflowDryRunLeavesFilesUntouched(t *testing.T) {
	root := t.TempDir()
	path := writeSource(t, root, "demo.go", workflowSource)

	report, err := newTestWorkflow().Run(context.Background(), InstrumentArgs{
		Roots:  []string{root},
		DryRun: true,
		Diff:   true,
	})
	require.NoError(t, err)

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, workflowSource, string(content))

	require.Len(t, report.Files, 1)
	assert.Contains(t, report.Files[0].Diff, "+\thashrt.Check(")
	assert.Contains(t, report.Files[0].Diff, "demo.go (instrumented)")
}

func TestWorkflowProcessesFilesInPathOrder(t *testing.T) {
	root := t.TempDir()
	writeSource(t, root, "b.go", "package demo\n\nfunc B() {\n}\n")
	writeSource(t, root, "a.go", "package demo\n\nfunc A() {\n}\n")

	report, err := newTestWorkflow().Run(context.Background(), InstrumentArgs{Roots: []string{root}, DryRun: true})
	require.NoError(t, err)

	require.Len(t, report.Files, 2)
	assert.Equal(t, filepath.Join(root, "a.go"), string(report.Files[0].Path))
	assert.Equal(t, filepath.Join(root, "b.go"), string(report.Files[1].Path))
}

func TestWorkflowAppliesExternalConfig(t *testing.T) {
	root := t.TempDir()
	path := writeSource(t, root, "demo.go", workflowSource)

	cfgPath := filepath.Join(root, "checks.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte(`
files:
  `+path+`:
    - defaults:
        disabled: true
`), 0o644))

	report, err := newTestWorkflow().Run(context.Background(), InstrumentArgs{
		Roots:       []string{root},
		Patterns:    []string{"demo.go"},
		ConfigFiles: []string{cfgPath},
	})
	require.NoError(t, err)

	require.Len(t, report.Files, 1)
	require.Len(t, report.Files[0].Items, 1)
	assert.True(t, report.Files[0].Items[0].Skipped)

	// A disabled function keeps its hasher aliases but gets no checks.
	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(content), "type xcheckAggHasher = hashrt.JodyHasher")
	assert.NotContains(t, string(content), "hashrt.Check")
	assert.Contains(t, string(content), "return a + b")
}

func TestWorkflowSavesReport(t *testing.T) {
	root := t.TempDir()
	writeSource(t, root, "demo.go", workflowSource)
	reportPath := filepath.Join(t.TempDir(), "report.yaml")

	_, err := newTestWorkflow().Run(context.Background(), InstrumentArgs{
		Roots:      []string{root},
		DryRun:     true,
		ReportPath: reportPath,
	})
	require.NoError(t, err)

	loaded, err := adapter.NewLocalReportStore().Load(reportPath)
	require.NoError(t, err)
	assert.Equal(t, 5, loaded.TotalChecks())
}

func TestWorkflowReportsParseErrorWithPath(t *testing.T) {
	root := t.TempDir()
	writeSource(t, root, "broken.go", "package demo\n\nfunc {\n")

	_, err := newTestWorkflow().Run(context.Background(), InstrumentArgs{Roots: []string{root}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "broken.go")
}
