package adapter

import (
	"fmt"
	"go/ast"
	"go/format"
	"go/parser"
	"go/printer"
	"go/token"
	"strings"

	"golang.org/x/tools/go/ast/astutil"

	m "xcheck.dev/pkg/xcheck/internal/model"
)

// GoFileAdapter encapsulates Go-specific parsing and rendering so the domain
// layer can focus on rewriting rules while delegating compilation details to
// an infrastructure component.
type GoFileAdapter interface {
	// Parse builds an AST for the file, keeping comments so directives and
	// line mappings survive.
	Parse(origin m.Path, src []byte) (*token.FileSet, *ast.File, error)

	// Render turns a rewritten AST back into gofmt-formatted source.
	Render(fset *token.FileSet, file *ast.File) ([]byte, error)

	// AddImport ensures the file imports path, optionally under an alias.
	AddImport(fset *token.FileSet, file *ast.File, alias, path string)
}

// LocalGoFileAdapter provides a concrete GoFileAdapter backed by go/parser
// and go/printer.
type LocalGoFileAdapter struct{}

// NewLocalGoFileAdapter constructs a LocalGoFileAdapter.
func NewLocalGoFileAdapter() *LocalGoFileAdapter {
	return &LocalGoFileAdapter{}
}

// Parse builds an AST for the provided origin/source pair. The file set entry
// is named after origin, which the engine relies on when comparing file
// names.
func (a *LocalGoFileAdapter) Parse(origin m.Path, src []byte) (*token.FileSet, *ast.File, error) {
	fset := token.NewFileSet()

	file, err := parser.ParseFile(fset, string(origin), src, parser.ParseComments)
	if err != nil {
		return nil, nil, fmt.Errorf("unable to parse %s: %w", origin, err)
	}

	return fset, file, nil
}

// Render prints the file declaration by declaration and reformats the result.
// Printing per declaration keeps synthesized doc comments attached to the
// right declaration, which whole-file printing cannot guarantee once the
// declaration list has been rearranged.
func (a *LocalGoFileAdapter) Render(fset *token.FileSet, file *ast.File) ([]byte, error) {
	var buf strings.Builder

	if file.Doc != nil {
		writeDoc(&buf, file.Doc)
	}

	fmt.Fprintf(&buf, "package %s\n", file.Name.Name)

	cfg := printer.Config{Mode: printer.UseSpaces | printer.TabIndent, Tabwidth: 8}

	for _, decl := range file.Decls {
		buf.WriteString("\n")
		writeDoc(&buf, declDoc(decl))

		if err := cfg.Fprint(&buf, fset, stripDoc(decl)); err != nil {
			return nil, fmt.Errorf("unable to print declaration: %w", err)
		}

		buf.WriteString("\n")
	}

	out, err := format.Source([]byte(buf.String()))
	if err != nil {
		return nil, fmt.Errorf("unable to format rewritten source: %w", err)
	}

	return out, nil
}

// AddImport ensures the file imports path under the given alias.
func (a *LocalGoFileAdapter) AddImport(fset *token.FileSet, file *ast.File, alias, path string) {
	astutil.AddNamedImport(fset, file, alias, path)
}

func writeDoc(buf *strings.Builder, doc *ast.CommentGroup) {
	if doc == nil {
		return
	}

	for _, c := range doc.List {
		buf.WriteString(c.Text)
		buf.WriteString("\n")
	}
}

func declDoc(decl ast.Decl) *ast.CommentGroup {
	switch d := decl.(type) {
	case *ast.FuncDecl:
		return d.Doc
	case *ast.GenDecl:
		return d.Doc
	}

	return nil
}

// stripDoc returns a shallow copy of the declaration without its doc comment,
// since the doc lines are written out separately.
func stripDoc(decl ast.Decl) ast.Decl {
	switch d := decl.(type) {
	case *ast.FuncDecl:
		cp := *d
		cp.Doc = nil

		return &cp
	case *ast.GenDecl:
		cp := *d
		cp.Doc = nil

		return &cp
	}

	return decl
}
