// Package controller provides output adapters for displaying instrumentation
// results.
package controller

import (
	"context"
	"os"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	m "xcheck.dev/pkg/xcheck/internal/model"
)

// UI defines the interface for displaying instrumentation reports.
// Implementations can use different output methods (plain text, styled).
type UI interface {
	// DisplayReport prints the per-file summary table.
	DisplayReport(ctx context.Context, report m.Report) error

	// DisplayItems prints every instrumented item of the report.
	DisplayItems(ctx context.Context, report m.Report) error

	// DisplayDiffs prints the unified diffs attached to the report.
	DisplayDiffs(ctx context.Context, report m.Report) error
}

// NewUI creates the UI appropriate for the output, styled when attached to a
// terminal.
func NewUI(cmd *cobra.Command, tty bool) UI {
	return NewSimpleUI(cmd, tty)
}

// IsTTY reports whether f is attached to a terminal.
func IsTTY(f *os.File) bool {
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}
