package domain

import (
	"fmt"
	"go/ast"
	"go/parser"
	"go/token"
	"reflect"
	"strconv"
	"strings"

	m "xcheck.dev/pkg/xcheck/internal/model"
)

// Names used by generated code. The runtime package is imported under a fixed
// alias so injected statements resolve regardless of the import path's base.
const (
	runtimeAlias    = "hashrt"
	aggAliasName    = "xcheckAggHasher"
	simpleAliasName = "xcheckSimpleHasher"
	fnBodyName      = "xcheckFnBody"
	fnResultPrefix  = "xcheckFnResult"
	hashMethodName  = "CrossCheckHash"
	hashFnPrefix    = "__xcheck_hash_"
)

// Engine-wide default hasher type expressions, used when a scope leaves the
// hasher roles unset.
const (
	defaultAggHasher    = runtimeAlias + ".JodyHasher"
	defaultSimpleHasher = runtimeAlias + ".SimpleHasher"
)

// parseTypeExpr parses a hash-algorithm (or as_type) type expression.
func parseTypeExpr(s string) (ast.Expr, error) {
	expr, err := parser.ParseExpr(s)
	if err != nil {
		return nil, fmt.Errorf("invalid type expression %q: %w", s, err)
	}

	return expr, nil
}

// parseCustomExpr parses a user-supplied check expression.
func parseCustomExpr(s string) (ast.Expr, error) {
	expr, err := parser.ParseExpr(s)
	if err != nil {
		return nil, fmt.Errorf("invalid custom expression %q: %w", s, err)
	}

	return expr, nil
}

func runtimeSel(name string) ast.Expr {
	return &ast.SelectorExpr{X: ast.NewIdent(runtimeAlias), Sel: ast.NewIdent(name)}
}

func tagExpr(tag m.Tag) ast.Expr {
	return runtimeSel(tag.RuntimeName())
}

func uintLit(v uint64) ast.Expr {
	return &ast.BasicLit{Kind: token.INT, Value: fmt.Sprintf("%#x", v)}
}

func callStmt(fn ast.Expr, args ...ast.Expr) ast.Stmt {
	return &ast.ExprStmt{X: &ast.CallExpr{Fun: fn, Args: args}}
}

// hasherPair returns the effective hasher type expressions for a scope,
// falling back to the engine defaults.
func hasherPair(cfg *InheritedConfig) (agg, simple string) {
	agg, simple = cfg.AHasher, cfg.SHasher

	if agg == "" {
		agg = defaultAggHasher
	}

	if simple == "" {
		simple = defaultSimpleHasher
	}

	return agg, simple
}

// hasherAliasStmts declares the two hasher type aliases at the top of an
// instrumented function body. They are emitted whether or not checking is
// enabled, so nested and injected code can reference them uniformly.
func hasherAliasStmts(cfg *InheritedConfig) ([]ast.Stmt, error) {
	agg, simple := hasherPair(cfg)

	aggExpr, err := parseTypeExpr(agg)
	if err != nil {
		return nil, err
	}

	simpleExpr, err := parseTypeExpr(simple)
	if err != nil {
		return nil, err
	}

	alias := func(name string, typ ast.Expr) ast.Stmt {
		return &ast.DeclStmt{Decl: &ast.GenDecl{
			Tok: token.TYPE,
			Specs: []ast.Spec{&ast.TypeSpec{
				Name:   ast.NewIdent(name),
				Assign: 1,
				Type:   typ,
			}},
		}}
	}

	return []ast.Stmt{
		alias(aggAliasName, aggExpr),
		alias(simpleAliasName, simpleExpr),
	}, nil
}

// checkValueFn builds hashrt.CheckValue[xcheckAggHasher, xcheckSimpleHasher].
func checkValueFn() ast.Expr {
	return &ast.IndexListExpr{
		X:       runtimeSel("CheckValue"),
		Indices: []ast.Expr{ast.NewIdent(aggAliasName), ast.NewIdent(simpleAliasName)},
	}
}

// identCheckStmt builds the check for a function name point (entry or exit):
// by default the djb2 hash of the name.
func identCheckStmt(check m.CheckType, tag m.Tag, name string) (ast.Stmt, error) {
	switch check.Kind {
	case m.CheckDisabled:
		return nil, nil

	case m.CheckDefault:
		return callStmt(runtimeSel("Check"), tagExpr(tag),
			&ast.CallExpr{
				Fun:  runtimeSel("HashString"),
				Args: []ast.Expr{&ast.BasicLit{Kind: token.STRING, Value: strconv.Quote(name)}},
			}), nil

	case m.CheckFixed:
		return callStmt(runtimeSel("Check"), tagExpr(tag), uintLit(check.Fixed)), nil

	case m.CheckCustom:
		expr, err := parseCustomExpr(check.Custom)
		if err != nil {
			return nil, err
		}

		return callStmt(runtimeSel("Check"), tagExpr(tag), expr), nil

	case m.CheckNamed:
		return nil, fmt.Errorf("%s check for %s: %w", tag.RuntimeName(), name, m.ErrReservedCheck)
	}

	return nil, fmt.Errorf("%s check for %s: as_type does not apply to a name check", tag.RuntimeName(), name)
}

// valueCheckStmt builds the check for a value point (argument, return value,
// local binding).
func valueCheckStmt(check m.CheckType, tag m.Tag, value ast.Expr) (ast.Stmt, error) {
	switch check.Kind {
	case m.CheckDisabled:
		return nil, nil

	case m.CheckDefault:
		return callStmt(checkValueFn(), tagExpr(tag), value), nil

	case m.CheckAsType:
		typ, err := parseTypeExpr(check.Type)
		if err != nil {
			return nil, err
		}

		converted := &ast.CallExpr{Fun: typ, Args: []ast.Expr{value}}

		return callStmt(checkValueFn(), tagExpr(tag), converted), nil

	case m.CheckFixed:
		return callStmt(runtimeSel("Check"), tagExpr(tag), uintLit(check.Fixed)), nil

	case m.CheckCustom:
		expr, err := parseCustomExpr(check.Custom)
		if err != nil {
			return nil, err
		}

		return callStmt(runtimeSel("Check"), tagExpr(tag), expr), nil
	}

	return nil, m.ErrReservedCheck
}

// extraCheckStmt builds one custom entry/exit check, tagged as such.
func extraCheckStmt(ec m.ExtraCheck) (ast.Stmt, error) {
	expr, err := parseCustomExpr(ec.Expr)
	if err != nil {
		return nil, err
	}

	return callStmt(runtimeSel("Check"), tagExpr(ec.Tag), expr), nil
}

// hashAttrArgs collects the configuration marker key/value pairs for an
// aggregate: only keys explicitly set in the scope are included.
func hashAttrArgs(cfg *ScopeCheckConfig) []string {
	var args []string

	if cfg.Inherited.AHasher != "" {
		args = append(args, fmt.Sprintf("ahasher=%q", cfg.Inherited.AHasher))
	}

	if cfg.Inherited.SHasher != "" {
		args = append(args, fmt.Sprintf("shasher=%q", cfg.Inherited.SHasher))
	}

	if cfg.Struct.FieldHasher != "" {
		args = append(args, fmt.Sprintf("field_hasher=%q", cfg.Struct.FieldHasher))
	}

	if cfg.Struct.CustomHash != "" {
		args = append(args, fmt.Sprintf("custom_hash=%q", cfg.Struct.CustomHash))
	}

	return args
}

// appendDocLine attaches one more marker line to a declaration's doc comment.
func appendDocLine(doc *ast.CommentGroup, line string) *ast.CommentGroup {
	comment := &ast.Comment{Text: "//" + line}

	if doc == nil {
		return &ast.CommentGroup{List: []*ast.Comment{comment}}
	}

	doc.List = append(doc.List, comment)

	return doc
}

// unionHashDecl synthesizes the explicit hash method for a union-marked type.
// Unions must not derive field-wise hashing, since reading an inactive member
// is unsound; the body is the configured custom hash expression or the
// depth-gated sentinel pair.
func unionHashDecl(typeName, customHash string) (*ast.FuncDecl, error) {
	var body []ast.Stmt

	if customHash != "" {
		expr, err := parseCustomExpr(customHash)
		if err != nil {
			return nil, fmt.Errorf("unable to build hash method for union %q: %w", typeName, err)
		}

		body = []ast.Stmt{&ast.ReturnStmt{Results: []ast.Expr{expr}}}
	} else {
		body = []ast.Stmt{
			&ast.IfStmt{
				Cond: &ast.BinaryExpr{X: ast.NewIdent("depth"), Op: token.EQL, Y: &ast.BasicLit{Kind: token.INT, Value: "0"}},
				Body: &ast.BlockStmt{List: []ast.Stmt{
					&ast.ReturnStmt{Results: []ast.Expr{runtimeSel("LeafRecordHash")}},
				}},
			},
			&ast.ReturnStmt{Results: []ast.Expr{runtimeSel("AnyUnionHash")}},
		}
	}

	return hashMethodDecl(typeName, body), nil
}

// foreignHashDecls synthesizes the hash method for an externally declared
// type: an unsafe linkage declaration of __xcheck_hash_<T> (supplied
// elsewhere) plus a method forwarding the receiver pointer and depth to it.
func foreignHashDecls(typeName string) []ast.Decl {
	fnName := hashFnPrefix + typeName

	linkDecl := &ast.FuncDecl{
		Doc:  &ast.CommentGroup{List: []*ast.Comment{{Text: "//go:linkname " + fnName + " " + fnName}}},
		Name: ast.NewIdent(fnName),
		Type: &ast.FuncType{
			Params: &ast.FieldList{List: []*ast.Field{
				{Names: []*ast.Ident{ast.NewIdent("x")}, Type: &ast.SelectorExpr{X: ast.NewIdent("unsafe"), Sel: ast.NewIdent("Pointer")}},
				{Names: []*ast.Ident{ast.NewIdent("depth")}, Type: ast.NewIdent("uint")},
			}},
			Results: &ast.FieldList{List: []*ast.Field{{Type: ast.NewIdent("uint64")}}},
		},
	}

	forward := &ast.ReturnStmt{Results: []ast.Expr{&ast.CallExpr{
		Fun: ast.NewIdent(fnName),
		Args: []ast.Expr{
			&ast.CallExpr{
				Fun:  &ast.SelectorExpr{X: ast.NewIdent("unsafe"), Sel: ast.NewIdent("Pointer")},
				Args: []ast.Expr{ast.NewIdent("x")},
			},
			ast.NewIdent("depth"),
		},
	}}}

	return []ast.Decl{linkDecl, hashMethodDecl(typeName, []ast.Stmt{forward})}
}

// hashMethodDecl builds `func (x *T) CrossCheckHash(depth uint) uint64`.
func hashMethodDecl(typeName string, body []ast.Stmt) *ast.FuncDecl {
	return &ast.FuncDecl{
		Recv: &ast.FieldList{List: []*ast.Field{{
			Names: []*ast.Ident{ast.NewIdent("x")},
			Type:  &ast.StarExpr{X: ast.NewIdent(typeName)},
		}}},
		Name: ast.NewIdent(hashMethodName),
		Type: &ast.FuncType{
			Params: &ast.FieldList{List: []*ast.Field{
				{Names: []*ast.Ident{ast.NewIdent("depth")}, Type: ast.NewIdent("uint")},
			}},
			Results: &ast.FieldList{List: []*ast.Field{{Type: ast.NewIdent("uint64")}}},
		},
		Body: &ast.BlockStmt{List: body},
	}
}

// cExportDecl synthesizes the C-ABI hash forwarder for a type, hashing
// through the scope's hasher pair at the requested depth.
func cExportDecl(typeName string, cfg *InheritedConfig) (*ast.FuncDecl, error) {
	agg, simple := hasherPair(cfg)

	aggExpr, err := parseTypeExpr(agg)
	if err != nil {
		return nil, fmt.Errorf("unable to build C hash function for type %q: %w", typeName, err)
	}

	simpleExpr, err := parseTypeExpr(simple)
	if err != nil {
		return nil, fmt.Errorf("unable to build C hash function for type %q: %w", typeName, err)
	}

	fnName := hashFnPrefix + typeName

	body := &ast.ReturnStmt{Results: []ast.Expr{&ast.CallExpr{
		Fun: &ast.IndexListExpr{
			X:       runtimeSel("HashValueDepth"),
			Indices: []ast.Expr{aggExpr, simpleExpr},
		},
		Args: []ast.Expr{ast.NewIdent("x"), ast.NewIdent("depth")},
	}}}

	return &ast.FuncDecl{
		Doc:  &ast.CommentGroup{List: []*ast.Comment{{Text: "//export " + fnName}}},
		Name: ast.NewIdent(fnName),
		Type: &ast.FuncType{
			Params: &ast.FieldList{List: []*ast.Field{
				{Names: []*ast.Ident{ast.NewIdent("x")}, Type: &ast.StarExpr{X: ast.NewIdent(typeName)}},
				{Names: []*ast.Ident{ast.NewIdent("depth")}, Type: ast.NewIdent("uint")},
			}},
			Results: &ast.FieldList{List: []*ast.Field{{Type: ast.NewIdent("uint64")}}},
		},
		Body: &ast.BlockStmt{List: []ast.Stmt{body}},
	}, nil
}

// fieldMarker translates a resolved field directive into the generated
// field-level marker value, or "" for Default.
func fieldMarker(check m.CheckType) (string, error) {
	switch check.Kind {
	case m.CheckDefault:
		return "", nil
	case m.CheckDisabled:
		return "none", nil
	case m.CheckAsType:
		return "as_type=" + check.Type, nil
	case m.CheckFixed:
		return fmt.Sprintf("fixed_hash=%#x", check.Fixed), nil
	case m.CheckCustom:
		return "custom_hash=" + check.Custom, nil
	}

	return "", m.ErrReservedCheck
}

// fieldTagCheck extracts the inline field directive from a field's tag.
func fieldTagCheck(field *ast.Field) (*m.CheckType, error) {
	value, ok := lookupTag(field, "xcheck")
	if !ok {
		return nil, nil
	}

	check, err := parseCheckSpec(value)
	if err != nil {
		return nil, err
	}

	return &check, nil
}

// rewriteFieldTag removes the inline xcheck tag and attaches the marker tag,
// if any. The inline directive must not reach later passes unprocessed.
func rewriteFieldTag(field *ast.Field, marker string) {
	entries := tagEntries(field)

	kept := entries[:0]
	for _, e := range entries {
		if !strings.HasPrefix(e, `xcheck:"`) {
			kept = append(kept, e)
		}
	}

	if marker != "" {
		kept = append(kept, fmt.Sprintf("xcheckhash:%q", marker))
	}

	if len(kept) == 0 {
		field.Tag = nil
		return
	}

	field.Tag = &ast.BasicLit{Kind: token.STRING, Value: "`" + strings.Join(kept, " ") + "`"}
}

// tagEntries splits a field tag into its key:"value" parts.
func tagEntries(field *ast.Field) []string {
	if field.Tag == nil {
		return nil
	}

	raw, err := strconv.Unquote(field.Tag.Value)
	if err != nil {
		return nil
	}

	var entries []string

	for raw != "" {
		raw = strings.TrimLeft(raw, " ")

		colon := strings.Index(raw, `:"`)
		if colon < 0 {
			break
		}

		end := colon + 2
		for end < len(raw) && raw[end] != '"' {
			if raw[end] == '\\' {
				end++
			}

			end++
		}

		if end >= len(raw) {
			break
		}

		entries = append(entries, raw[:end+1])
		raw = raw[end+1:]
	}

	return entries
}

// lookupTag reads one key's value from a field tag.
func lookupTag(field *ast.Field, key string) (string, bool) {
	if field.Tag == nil {
		return "", false
	}

	raw, err := strconv.Unquote(field.Tag.Value)
	if err != nil {
		return "", false
	}

	value, ok := reflect.StructTag(raw).Lookup(key)

	return value, ok
}
