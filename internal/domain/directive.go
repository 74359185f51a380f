package domain

import (
	"fmt"
	"go/ast"
	"go/token"
	"sort"
	"strconv"
	"strings"

	m "xcheck.dev/pkg/xcheck/internal/model"
)

// directiveMarker introduces an inline check directive in a comment.
const directiveMarker = "xcheck:check"

// valueMarker introduces a value check on a local binding.
const valueMarker = "xcheck:value"

// Directive is a parsed inline check directive. Nil pointer fields were not
// present in the inline form and pass the baseline through.
type Directive struct {
	Enabled     *bool
	Entry       *m.CheckType
	Exit        *m.CheckType
	Ret         *m.CheckType
	AllArgs     *m.CheckType
	Args        map[m.FieldIndex]m.CheckType
	AHasher     string
	SHasher     string
	EntryExtra  []string
	ExitExtra   []string
	FieldHasher string
	CustomHash  string
	Union       bool
	Foreign     bool
}

// ParseDirective parses the parameter list of an inline `//xcheck:check`
// directive. Malformed syntax is fatal to the whole pass.
func ParseDirective(params string) (*Directive, error) {
	d := &Directive{}

	tokens, err := splitParams(params)
	if err != nil {
		return nil, err
	}

	for _, tok := range tokens {
		if err := d.applyToken(tok); err != nil {
			return nil, fmt.Errorf("malformed check directive: %w", err)
		}
	}

	return d, nil
}

func (d *Directive) applyToken(tok string) error {
	name, value, hasValue := cutToken(tok)

	switch name {
	case "enabled", "yes":
		return d.setEnabled(value, hasValue, true)
	case "disabled", "no":
		return d.setEnabled(value, hasValue, false)
	case "entry":
		return assignSpec(&d.Entry, value)
	case "exit":
		return assignSpec(&d.Exit, value)
	case "ret":
		return assignSpec(&d.Ret, value)
	case "all_args":
		return assignSpec(&d.AllArgs, value)
	case "args":
		return d.parseArgs(value)
	case "ahasher":
		d.AHasher = value
		return nil
	case "shasher":
		d.SHasher = value
		return nil
	case "field_hasher":
		d.FieldHasher = value
		return nil
	case "custom_hash":
		d.CustomHash = value
		return nil
	case "entry_extra":
		d.EntryExtra = append(d.EntryExtra, splitExprList(value)...)
		return nil
	case "exit_extra":
		d.ExitExtra = append(d.ExitExtra, splitExprList(value)...)
		return nil
	case "union":
		d.Union = true
		return nil
	case "foreign":
		d.Foreign = true
		return nil
	}

	return fmt.Errorf("unknown parameter %q", name)
}

func (d *Directive) setEnabled(value string, hasValue, dflt bool) error {
	enabled := dflt

	if hasValue {
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("invalid enabled value %q", value)
		}

		enabled = b
		if !dflt {
			enabled = !b
		}
	}

	d.Enabled = &enabled

	return nil
}

// parseArgs handles args(x=spec, y=spec): per-argument directive overrides.
func (d *Directive) parseArgs(value string) error {
	for _, part := range splitList(value, ',') {
		name, spec, ok := strings.Cut(part, "=")
		if !ok {
			return fmt.Errorf("argument override %q must be name=spec", part)
		}

		check, err := parseCheckSpec(strings.TrimSpace(spec))
		if err != nil {
			return err
		}

		if d.Args == nil {
			d.Args = make(map[m.FieldIndex]m.CheckType)
		}

		d.Args[m.FieldName(strings.TrimSpace(name))] = check
	}

	return nil
}

func assignSpec(dst **m.CheckType, value string) error {
	check, err := parseCheckSpec(value)
	if err != nil {
		return err
	}

	*dst = &check

	return nil
}

// parseCheckSpec parses one check-action spec: default, disabled, none,
// fixed(N), as_type(T), custom(expr) or djb2(name).
func parseCheckSpec(s string) (m.CheckType, error) {
	switch s {
	case "default", "":
		return m.Default(), nil
	case "disabled", "none":
		return m.Disabled(), nil
	}

	name, payload, ok := cutCall(s)
	if !ok {
		return m.CheckType{}, fmt.Errorf("invalid check spec %q", s)
	}

	switch name {
	case "fixed":
		v, err := strconv.ParseUint(payload, 0, 64)
		if err != nil {
			return m.CheckType{}, fmt.Errorf("invalid fixed value %q: %w", payload, err)
		}

		return m.Fixed(v), nil
	case "as_type":
		return m.AsType(payload), nil
	case "custom":
		return m.Custom(payload), nil
	case "djb2":
		return m.Named(payload), nil
	}

	return m.CheckType{}, fmt.Errorf("invalid check spec %q", s)
}

// cutToken splits one directive token into name and payload. Both name=value
// and name(value) spellings are accepted; the paren form keeps spaces.
func cutToken(tok string) (name, value string, hasValue bool) {
	if n, payload, ok := cutCall(tok); ok {
		return n, payload, true
	}

	if n, v, ok := strings.Cut(tok, "="); ok {
		return n, v, true
	}

	return tok, "", false
}

// cutCall matches name(payload) with balanced parentheses.
func cutCall(s string) (name, payload string, ok bool) {
	open := strings.IndexByte(s, '(')
	if open <= 0 || !strings.HasSuffix(s, ")") {
		return "", "", false
	}

	name = s[:open]
	if strings.ContainsAny(name, "=() ") {
		return "", "", false
	}

	return name, s[open+1 : len(s)-1], true
}

// splitParams splits a parameter list on spaces outside parentheses and
// quotes, so custom expressions survive intact.
func splitParams(s string) ([]string, error) {
	tokens := splitList(s, ' ')

	for _, tok := range tokens {
		if strings.Count(tok, "(") != strings.Count(tok, ")") {
			return nil, fmt.Errorf("malformed check directive: unbalanced parentheses in %q", tok)
		}
	}

	return tokens, nil
}

// splitExprList splits extra-check expressions on semicolons, since the
// expressions themselves may contain commas.
func splitExprList(s string) []string {
	var exprs []string

	for _, part := range splitList(s, ';') {
		if part != "" {
			exprs = append(exprs, part)
		}
	}

	return exprs
}

// splitList splits on sep at parenthesis depth zero, outside string quotes,
// trimming surrounding space from each element.
func splitList(s string, sep byte) []string {
	var (
		parts   []string
		depth   int
		quote   byte
		current strings.Builder
	)

	flush := func() {
		if part := strings.TrimSpace(current.String()); part != "" {
			parts = append(parts, part)
		}

		current.Reset()
	}

	for i := 0; i < len(s); i++ {
		ch := s[i]

		switch {
		case quote != 0:
			if ch == quote {
				quote = 0
			}
		case ch == '"' || ch == '\'' || ch == '`':
			quote = ch
		case ch == '(':
			depth++
		case ch == ')':
			depth--
		case ch == sep && depth == 0:
			flush()
			continue
		}

		current.WriteByte(ch)
	}

	flush()

	return parts
}

// findDirective scans a doc comment group for an inline check directive.
func findDirective(doc *ast.CommentGroup) (*Directive, error) {
	if doc == nil {
		return nil, nil
	}

	for _, c := range doc.List {
		text := strings.TrimSpace(strings.TrimPrefix(c.Text, "//"))
		if rest, ok := strings.CutPrefix(text, directiveMarker); ok {
			return ParseDirective(strings.TrimSpace(rest))
		}
	}

	return nil, nil
}

// directiveIndex provides the per-line lookup for value checks on local
// bindings: a trailing or leading `//xcheck:value` comment marks the binding.
type directiveIndex struct {
	valueLines map[int]bool
}

// buildDirectiveIndex scans a parsed file's comments once.
func buildDirectiveIndex(fset *token.FileSet, file *ast.File) *directiveIndex {
	idx := &directiveIndex{valueLines: make(map[int]bool)}

	for _, group := range file.Comments {
		for _, c := range group.List {
			text := strings.TrimSpace(strings.TrimPrefix(c.Text, "//"))
			if strings.HasPrefix(text, valueMarker) {
				idx.valueLines[fset.Position(c.Pos()).Line] = true
			}
		}
	}

	return idx
}

// valueCheckAt reports whether a binding on the given line carries a value
// directive.
func (idx *directiveIndex) valueCheckAt(line int) bool {
	return idx.valueLines[line]
}

// valueLinesIn returns the marked lines within [from, to], in order.
func (idx *directiveIndex) valueLinesIn(from, to int) []int {
	var lines []int

	for line := range idx.valueLines {
		if line >= from && line <= to {
			lines = append(lines, line)
		}
	}

	sort.Ints(lines)

	return lines
}
