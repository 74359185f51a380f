package controller

import (
	"bytes"
	"context"
	"fmt"

	"github.com/charmbracelet/lipgloss"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	m "xcheck.dev/pkg/xcheck/internal/model"
)

// SimpleUI implements UI using cobra Command's output writer.
type SimpleUI struct {
	cmd    *cobra.Command
	styles styles
}

type styles struct {
	header  lipgloss.Style
	path    lipgloss.Style
	skipped lipgloss.Style
}

func newStyles(tty bool) styles {
	if !tty {
		return styles{
			header:  lipgloss.NewStyle(),
			path:    lipgloss.NewStyle(),
			skipped: lipgloss.NewStyle(),
		}
	}

	return styles{
		header:  lipgloss.NewStyle().Bold(true),
		path:    lipgloss.NewStyle().Foreground(lipgloss.Color("12")),
		skipped: lipgloss.NewStyle().Faint(true),
	}
}

// NewSimpleUI creates a new SimpleUI, styled when tty is set.
func NewSimpleUI(cmd *cobra.Command, tty bool) *SimpleUI {
	return &SimpleUI{cmd: cmd, styles: newStyles(tty)}
}

// DisplayReport prints the per-file summary table with totals.
func (s *SimpleUI) DisplayReport(ctx context.Context, report m.Report) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	var tableBuffer bytes.Buffer

	table := tablewriter.NewWriter(&tableBuffer)
	table.SetHeader([]string{"Path", "Items", "Checks"})
	table.SetBorder(false)
	table.SetCenterSeparator("")
	table.SetColumnAlignment([]int{tablewriter.ALIGN_LEFT, tablewriter.ALIGN_CENTER, tablewriter.ALIGN_CENTER})

	for _, file := range report.Files {
		checks := 0
		for _, item := range file.Items {
			checks += item.Checks
		}

		table.Append([]string{string(file.Path), fmt.Sprintf("%d", len(file.Items)), fmt.Sprintf("%d", checks)})
	}

	table.SetFooter([]string{
		fmt.Sprintf("Total Files %d", len(report.Files)),
		fmt.Sprintf("%d", report.TotalItems()),
		fmt.Sprintf("%d", report.TotalChecks()),
	})

	table.Render()

	s.printf("\n%s", tableBuffer.String())

	return nil
}

// DisplayItems prints every instrumented item, grouped per file.
func (s *SimpleUI) DisplayItems(ctx context.Context, report m.Report) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	for _, file := range report.Files {
		if len(file.Items) == 0 {
			continue
		}

		s.printf("%s\n", s.styles.path.Render(string(file.Path)))

		for _, item := range file.Items {
			label := fmt.Sprintf("  %-12s %s:%d", item.Kind, item.Name, item.Line)

			if item.Skipped {
				s.printf("%s\n", s.styles.skipped.Render(label+" (skipped)"))
				continue
			}

			s.printf("%s checks=%d\n", label, item.Checks)
		}
	}

	return nil
}

// DisplayDiffs prints the unified diff of every changed file.
func (s *SimpleUI) DisplayDiffs(ctx context.Context, report m.Report) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	for _, file := range report.Files {
		if file.Diff == "" {
			continue
		}

		s.printf("%s\n%s\n", s.styles.header.Render("--- "+string(file.Path)+" ---"), file.Diff)
	}

	return nil
}

func (s *SimpleUI) printf(format string, args ...interface{}) {
	_, _ = fmt.Fprintf(s.cmd.OutOrStdout(), format, args...)
}
