package domain

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sort"

	"github.com/pmezard/go-difflib/difflib"

	"xcheck.dev/pkg/xcheck/internal/adapter"
	m "xcheck.dev/pkg/xcheck/internal/model"
	"xcheck.dev/pkg/xcheck/internal/xcfg"
)

// sourceFilePerm is used when writing instrumented files back in place.
const sourceFilePerm os.FileMode = 0o644

// InstrumentArgs are the parameters of one instrumentation run.
type InstrumentArgs struct {
	Roots       []string
	Patterns    []string
	ConfigFiles []string
	// DryRun computes the full report without writing any file back.
	DryRun bool
	// Diff attaches a unified diff per changed file to the report.
	Diff           bool
	CHashFunctions bool
	RuntimeImport  string
	// ReportPath, when set, is where the report is saved.
	ReportPath string
}

// InstrumentWorkflow wires the rewriting engine to the file system.
type InstrumentWorkflow struct {
	sources  adapter.SourceFSAdapter
	rewriter adapter.GoFileAdapter
	reports  adapter.ReportStore
}

// NewInstrumentWorkflow creates the workflow over its collaborators.
func NewInstrumentWorkflow(sources adapter.SourceFSAdapter, rewriter adapter.GoFileAdapter, reports adapter.ReportStore) *InstrumentWorkflow {
	return &InstrumentWorkflow{sources: sources, rewriter: rewriter, reports: reports}
}

// Run discovers the target files, instruments each one under a single shared
// session and returns the full report. Files are processed in path order so
// runs are deterministic.
func (w *InstrumentWorkflow) Run(ctx context.Context, args InstrumentArgs) (m.Report, error) {
	external, err := xcfg.ParseFiles(args.ConfigFiles)
	if err != nil {
		return m.Report{}, fmt.Errorf("unable to load configuration: %w", err)
	}

	paths, err := w.sources.Discover(ctx, args.Roots, args.Patterns)
	if err != nil {
		return m.Report{}, fmt.Errorf("unable to discover sources: %w", err)
	}

	sort.Slice(paths, func(i, j int) bool { return paths[i] < paths[j] })

	sess := NewSession(external, Options{
		CHashFunctions: args.CHashFunctions,
		RuntimeImport:  args.RuntimeImport,
	})

	var report m.Report

	for _, path := range paths {
		if err := ctx.Err(); err != nil {
			return m.Report{}, err
		}

		fileReport, err := w.runFile(sess, path, args)
		if err != nil {
			return m.Report{}, fmt.Errorf("%s: %w", path, err)
		}

		report.Files = append(report.Files, fileReport)
	}

	if args.ReportPath != "" {
		if err := w.reports.Save(args.ReportPath, report); err != nil {
			return m.Report{}, fmt.Errorf("unable to save report: %w", err)
		}
	}

	return report, nil
}

func (w *InstrumentWorkflow) runFile(sess *Session, path m.Path, args InstrumentArgs) (m.FileReport, error) {
	src, err := w.sources.ReadFile(path)
	if err != nil {
		return m.FileReport{}, err
	}

	fset, file, err := w.rewriter.Parse(path, src)
	if err != nil {
		return m.FileReport{}, err
	}

	result, err := sess.InstrumentFile(fset, file, path)
	if err != nil {
		return m.FileReport{}, err
	}

	if result.NeedsRuntime {
		w.rewriter.AddImport(fset, file, runtimeAlias, sess.RuntimeImport())
	}

	if result.NeedsUnsafe {
		w.rewriter.AddImport(fset, file, "", "unsafe")
	}

	out, err := w.rewriter.Render(fset, file)
	if err != nil {
		return m.FileReport{}, err
	}

	fileReport := result.Report

	if args.Diff {
		fileReport.Diff, err = unifiedDiff(path, src, out)
		if err != nil {
			return m.FileReport{}, err
		}
	}

	if args.DryRun || string(out) == string(src) {
		return fileReport, nil
	}

	slog.Debug("writing instrumented file", "path", path, "items", len(fileReport.Items))

	if err := w.sources.WriteFile(path, out, sourceFilePerm); err != nil {
		return m.FileReport{}, err
	}

	return fileReport, nil
}

func unifiedDiff(path m.Path, before, after []byte) (string, error) {
	diff, err := difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
		A:        difflib.SplitLines(string(before)),
		B:        difflib.SplitLines(string(after)),
		FromFile: string(path),
		ToFile:   string(path) + " (instrumented)",
		Context:  3,
	})
	if err != nil {
		return "", fmt.Errorf("unable to compute diff: %w", err)
	}

	return diff, nil
}
