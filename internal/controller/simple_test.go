package controller

import (
	"bytes"
	"context"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	m "xcheck.dev/pkg/xcheck/internal/model"
)

func testReport() m.Report {
	return m.Report{
		Files: []m.FileReport{
			{
				Path: "src/main.go",
				Items: []m.ItemReport{
					{Name: "Add", Kind: m.KindFunction, Line: 3, Checks: 5},
					{Name: "Quiet", Kind: m.KindFunction, Line: 9, Skipped: true},
				},
				Diff: "-old\n+new\n",
			},
			{
				Path: "src/empty.go",
			},
		},
	}
}

func captureUI(t *testing.T) (*SimpleUI, *bytes.Buffer) {
	t.Helper()

	var out bytes.Buffer

	cmd := &cobra.Command{}
	cmd.SetOut(&out)

	return NewSimpleUI(cmd, false), &out
}

func TestDisplayReport(t *testing.T) {
	ui, out := captureUI(t)

	require.NoError(t, ui.DisplayReport(context.Background(), testReport()))

	assert.Contains(t, out.String(), "src/main.go")
	// tablewriter upper-cases footer cells.
	assert.Contains(t, out.String(), "TOTAL FILES 2")
}

func TestDisplayItems(t *testing.T) {
	ui, out := captureUI(t)

	require.NoError(t, ui.DisplayItems(context.Background(), testReport()))

	assert.Contains(t, out.String(), "src/main.go")
	assert.Contains(t, out.String(), "Add:3")
	assert.Contains(t, out.String(), "checks=5")
	assert.Contains(t, out.String(), "Quiet:9 (skipped)")
	assert.NotContains(t, out.String(), "src/empty.go")
}

func TestDisplayDiffs(t *testing.T) {
	ui, out := captureUI(t)

	require.NoError(t, ui.DisplayDiffs(context.Background(), testReport()))

	assert.Contains(t, out.String(), "--- src/main.go ---")
	assert.Contains(t, out.String(), "-old\n+new\n")
	assert.NotContains(t, out.String(), "src/empty.go")
}

func TestDisplayHonorsCanceledContext(t *testing.T) {
	ui, out := captureUI(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.ErrorIs(t, ui.DisplayReport(ctx, testReport()), context.Canceled)
	assert.ErrorIs(t, ui.DisplayItems(ctx, testReport()), context.Canceled)
	assert.ErrorIs(t, ui.DisplayDiffs(ctx, testReport()), context.Canceled)
	assert.Empty(t, out.String())
}
