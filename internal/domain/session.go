package domain

import (
	"go/ast"
	"go/token"
	"log/slog"

	m "xcheck.dev/pkg/xcheck/internal/model"
	"xcheck.dev/pkg/xcheck/internal/xcfg"
)

// DefaultRuntimeImport is the import path generated checks resolve against
// unless overridden.
const DefaultRuntimeImport = "xcheck.dev/pkg/xcheck/pkg/hashrt"

// Options configure one instrumentation session.
type Options struct {
	// CHashFunctions also synthesizes a C-ABI hash forwarder for every
	// instrumented aggregate, for builds checked against C code.
	CHashFunctions bool
	// RuntimeImport overrides the runtime package import path.
	RuntimeImport string
}

// Session holds the state shared across every file of one instrumentation
// pass: the merged external configuration, the span-to-scope map consulted
// when relocated declarations must recover their configuration, and the set
// of hash symbols already synthesized.
type Session struct {
	external xcfg.Config
	opts     Options
	spans    *SpanScopeMap
	emitted  *EmittedSymbolSet
}

// NewSession creates a session over the merged external configuration.
func NewSession(external xcfg.Config, opts Options) *Session {
	if opts.RuntimeImport == "" {
		opts.RuntimeImport = DefaultRuntimeImport
	}

	return &Session{
		external: external,
		opts:     opts,
		spans:    NewSpanScopeMap(),
		emitted:  NewEmittedSymbolSet(),
	}
}

// RuntimeImport returns the import path the rewritten files must import.
func (s *Session) RuntimeImport() string { return s.opts.RuntimeImport }

// FileResult reports what the engine did to one file.
type FileResult struct {
	Report m.FileReport
	// NeedsRuntime is set when any injected code references the runtime
	// package, so the caller must add its import.
	NeedsRuntime bool
	// NeedsUnsafe is set when synthesized declarations reference unsafe.
	NeedsUnsafe bool
}

// InstrumentFile rewrites one parsed file in place. The file must have been
// parsed under the name origin, since line-directive handling and external
// configuration lookups compare file names textually.
func (s *Session) InstrumentFile(fset *token.FileSet, file *ast.File, origin m.Path) (FileResult, error) {
	slog.Debug("instrumenting file", "path", origin)

	check := NewScopeCheckConfig()
	if defaults := xcfg.FileDefaults(s.external.GetFileItems(string(origin))); defaults != nil {
		check.ApplyItemConfig(&xcfg.ItemConfig{Defaults: defaults})
	}

	ins := &fileInstrumenter{
		sess:  s,
		fset:  fset,
		file:  file,
		index: buildDirectiveIndex(fset, file),
		report: m.FileReport{
			Path: origin,
		},
	}
	ins.push(NewScopeConfig(&s.external, string(origin), check))

	return ins.run()
}
