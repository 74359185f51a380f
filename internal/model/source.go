package model

import (
	"fmt"
	"go/token"
)

// Path represents a file system path.
type Path string

// SourcePos is the stable identity of a source location, used as the key of
// the span-scope map. It intentionally carries only what two renderings of the
// same position agree on.
type SourcePos struct {
	File   string
	Line   int
	Column int
}

// PosOf converts a token position into a map key.
func PosOf(p token.Position) SourcePos {
	return SourcePos{File: p.Filename, Line: p.Line, Column: p.Column}
}

// String renders the position in the usual file:line:column form.
func (p SourcePos) String() string {
	return fmt.Sprintf("%s:%d:%d", p.File, p.Line, p.Column)
}

// IsZero reports whether the position is unset.
func (p SourcePos) IsZero() bool { return p.File == "" && p.Line == 0 && p.Column == 0 }
