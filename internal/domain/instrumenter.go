package domain

import (
	"fmt"
	"go/ast"
	"go/token"
	"strings"

	m "xcheck.dev/pkg/xcheck/internal/model"
	"xcheck.dev/pkg/xcheck/internal/xcfg"
)

// fileInstrumenter runs the rewriting engine over one parsed file. A fresh
// instance is built per file; cross-file state lives on the Session.
type fileInstrumenter struct {
	sess  *Session
	fset  *token.FileSet
	file  *ast.File
	index *directiveIndex

	scopes  []*ScopeConfig
	pending []ast.Decl

	report       m.FileReport
	needsRuntime bool
	needsUnsafe  bool
}

func (f *fileInstrumenter) top() *ScopeConfig { return f.scopes[len(f.scopes)-1] }

func (f *fileInstrumenter) push(s *ScopeConfig) { f.scopes = append(f.scopes, s) }

func (f *fileInstrumenter) pop() { f.scopes = f.scopes[:len(f.scopes)-1] }

// recordSpan snapshots the inherited configuration under both renderings of a
// position, so relocated declarations can recover it from either one.
func (f *fileInstrumenter) recordSpan(pos token.Pos, cfg *InheritedConfig) {
	f.sess.spans.Record(m.PosOf(f.fset.PositionFor(pos, true)), cfg)
	f.sess.spans.Record(m.PosOf(f.fset.PositionFor(pos, false)), cfg)
}

func (f *fileInstrumenter) run() (FileResult, error) {
	decls := make([]ast.Decl, 0, len(f.file.Decls))

	for _, decl := range f.file.Decls {
		if err := f.topDecl(decl); err != nil {
			return FileResult{}, err
		}

		decls = append(decls, decl)
		decls = append(decls, f.pending...)
		f.pending = nil
	}

	f.file.Decls = decls

	return FileResult{
		Report:       f.report,
		NeedsRuntime: f.needsRuntime,
		NeedsUnsafe:  f.needsUnsafe,
	}, nil
}

// topDecl dispatches one top-level declaration, enforcing the file-unit
// boundary: a declaration whose adjusted position names another file is
// processed only when it carries its own check directive, under the scope
// recovered for that position.
func (f *fileInstrumenter) topDecl(decl ast.Decl) error {
	adjusted := f.fset.PositionFor(decl.Pos(), true)
	if f.top().SameFile(adjusted.Filename) {
		return f.decl(decl)
	}

	directive, err := findDirective(declDoc(decl))
	if err != nil {
		return err
	}

	if directive == nil {
		return fmt.Errorf("declaration at %s is mapped into file %q outside the current unit %q and carries no check directive",
			adjusted, adjusted.Filename, f.top().FileName)
	}

	raw := f.fset.PositionFor(decl.Pos(), false)

	check := NewScopeCheckConfig()
	if inherited := f.sess.spans.Lookup(m.PosOf(adjusted), m.PosOf(raw)); inherited != nil {
		check = ScopeCheckConfig{Inherited: inherited}
	}

	frame := NewScopeConfig(&f.sess.external, adjusted.Filename, check)
	if defaults := xcfg.FileDefaults(f.sess.external.GetFileItems(adjusted.Filename)); defaults != nil {
		frame.Check.ApplyItemConfig(&xcfg.ItemConfig{Defaults: defaults})
	}

	f.push(frame)
	defer f.pop()

	return f.decl(decl)
}

func (f *fileInstrumenter) decl(decl ast.Decl) error {
	switch d := decl.(type) {
	case *ast.FuncDecl:
		return f.funcDecl(d)
	case *ast.GenDecl:
		if d.Tok == token.TYPE {
			return f.typeDecl(d)
		}
	}

	return nil
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

func (f *fileInstrumenter) funcDecl(fd *ast.FuncDecl) error {
	if fd.Body == nil {
		return nil
	}

	name := fd.Name.Name
	parent := f.top()

	directive, err := findDirective(fd.Doc)
	if err != nil {
		return fmt.Errorf("function %s: %w", name, err)
	}

	check := parent.Check.Inherit()
	check.ApplyDirective(directive)

	item := f.lookupFuncConfig(parent, fd)
	check.ApplyItemConfig(item)

	scope := parent.FromItem(item, check)
	f.push(scope)
	defer f.pop()

	f.recordSpan(fd.Pos(), check.Inherited)

	kind := m.KindFunction
	if fd.Recv != nil {
		kind = m.KindMethod
	}

	line := f.fset.Position(fd.Pos()).Line

	if !check.Inherited.Enabled {
		// The hasher aliases are declared even in disabled functions, so
		// manually written checks inside them keep resolving.
		aliases, err := hasherAliasStmts(check.Inherited)
		if err != nil {
			return fmt.Errorf("function %s: %w", name, err)
		}

		fd.Body.List = append(aliases, fd.Body.List...)
		f.needsRuntime = true

		f.report.Items = append(f.report.Items, m.ItemReport{Name: name, Kind: kind, Line: line, Skipped: true})

		return nil
	}

	checks, err := f.instrumentBody(fd, scope)
	if err != nil {
		return fmt.Errorf("function %s: %w", name, err)
	}

	f.report.Items = append(f.report.Items, m.ItemReport{Name: name, Kind: kind, Line: line, Checks: checks})
	f.needsRuntime = true

	return nil
}

// lookupFuncConfig finds the external entry for a function. Methods are
// looked up in the entry table nested under their receiver type's entry.
func (f *fileInstrumenter) lookupFuncConfig(parent *ScopeConfig, fd *ast.FuncDecl) *xcfg.ItemConfig {
	if fd.Recv == nil {
		return parent.GetItemConfig(fd.Name.Name)
	}

	recv := receiverTypeName(fd.Recv)
	if recv == "" {
		return nil
	}

	owner := parent.GetItemConfig(recv)
	if owner == nil {
		return nil
	}

	nested := owner.NestedItems()
	if nested == nil {
		return nil
	}

	return xcfg.NewNamedItemList(nested).Get(fd.Name.Name)
}

func receiverTypeName(recv *ast.FieldList) string {
	if len(recv.List) == 0 {
		return ""
	}

	typ := recv.List[0].Type

	for {
		switch t := typ.(type) {
		case *ast.StarExpr:
			typ = t.X
		case *ast.IndexExpr:
			typ = t.X
		case *ast.IndexListExpr:
			typ = t.X
		case *ast.Ident:
			return t.Name
		default:
			return ""
		}
	}
}

// funcArg is one checkable argument: the receiver counts as argument zero.
type funcArg struct {
	name string
	pos  int
}

func funcArgs(fd *ast.FuncDecl) []funcArg {
	var (
		args []funcArg
		pos  int
	)

	collect := func(list *ast.FieldList) {
		if list == nil {
			return
		}

		for _, field := range list.List {
			if len(field.Names) == 0 {
				pos++
				continue
			}

			for _, name := range field.Names {
				if name.Name != "_" {
					args = append(args, funcArg{name: name.Name, pos: pos})
				}

				pos++
			}
		}
	}

	collect(fd.Recv)
	collect(fd.Type.Params)

	return args
}

// argCheck resolves one argument's directive: the per-argument table first by
// name then by position, falling back to the scope's all_args directive.
func argCheck(cfg *ScopeCheckConfig, arg funcArg) m.CheckType {
	if check, ok := cfg.Function.Args[m.FieldName(arg.name)]; ok {
		return check
	}

	if check, ok := cfg.Function.Args[m.FieldPos(arg.pos)]; ok {
		return check
	}

	return cfg.Inherited.AllArgs
}

// instrumentBody rebuilds a function body around the original statements:
// hasher aliases, the entry check, argument checks, custom entry checks, the
// original body captured in a closure, then the exit check, per-result return
// checks and custom exit checks before the final return.
func (f *fileInstrumenter) instrumentBody(fd *ast.FuncDecl, scope *ScopeConfig) (int, error) {
	cfg := scope.Check
	checks := 0

	if err := f.walkBody(fd, scope); err != nil {
		return 0, err
	}

	stmts, err := hasherAliasStmts(cfg.Inherited)
	if err != nil {
		return 0, err
	}

	add := func(stmt ast.Stmt) {
		if stmt != nil {
			stmts = append(stmts, stmt)
			checks++
		}
	}

	entry, err := identCheckStmt(cfg.Inherited.Entry, m.TagFunctionEntry, fd.Name.Name)
	if err != nil {
		return 0, err
	}

	add(entry)

	for _, arg := range funcArgs(fd) {
		stmt, err := valueCheckStmt(argCheck(&cfg, arg), m.TagFunctionArg, ast.NewIdent(arg.name))
		if err != nil {
			return 0, fmt.Errorf("argument %s: %w", arg.name, err)
		}

		add(stmt)
	}

	for _, ec := range cfg.Function.EntryExtra {
		stmt, err := extraCheckStmt(ec)
		if err != nil {
			return 0, err
		}

		add(stmt)
	}

	// The original body runs inside a closure so every return path funnels
	// through the exit and return checks. Named results keep their names on
	// the closure, preserving naked returns.
	closure := &ast.FuncLit{
		Type: &ast.FuncType{Params: &ast.FieldList{}, Results: fd.Type.Results},
		Body: &ast.BlockStmt{List: fd.Body.List},
	}

	stmts = append(stmts, &ast.AssignStmt{
		Lhs: []ast.Expr{ast.NewIdent(fnBodyName)},
		Tok: token.DEFINE,
		Rhs: []ast.Expr{closure},
	})

	call := &ast.CallExpr{Fun: ast.NewIdent(fnBodyName)}
	nresults := resultCount(fd.Type.Results)

	var results []ast.Expr

	if nresults == 0 {
		stmts = append(stmts, &ast.ExprStmt{X: call})
	} else {
		for i := 0; i < nresults; i++ {
			results = append(results, ast.NewIdent(fmt.Sprintf("%s%d", fnResultPrefix, i)))
		}

		stmts = append(stmts, &ast.AssignStmt{Lhs: results, Tok: token.DEFINE, Rhs: []ast.Expr{call}})
	}

	exit, err := identCheckStmt(cfg.Inherited.Exit, m.TagFunctionExit, fd.Name.Name)
	if err != nil {
		return 0, err
	}

	add(exit)

	for _, result := range results {
		stmt, err := valueCheckStmt(cfg.Inherited.Ret, m.TagFunctionReturn, result)
		if err != nil {
			return 0, err
		}

		add(stmt)
	}

	for _, ec := range cfg.Function.ExitExtra {
		stmt, err := extraCheckStmt(ec)
		if err != nil {
			return 0, err
		}

		add(stmt)
	}

	if nresults > 0 {
		stmts = append(stmts, &ast.ReturnStmt{Results: results})
	}

	fd.Body = &ast.BlockStmt{List: stmts}

	return checks, nil
}

func resultCount(results *ast.FieldList) int {
	if results == nil {
		return 0
	}

	count := 0
	for _, field := range results.List {
		if len(field.Names) == 0 {
			count++
			continue
		}

		count += len(field.Names)
	}

	return count
}

// walkBody processes the inside of a function body before it is captured:
// local type declarations get their field tags resolved, and bindings marked
// with a value directive get a check injected right after them. A value
// directive that yields no check is a hard error, never a silent no-op.
func (f *fileInstrumenter) walkBody(fd *ast.FuncDecl, scope *ScopeConfig) error {
	var werr error

	satisfied := make(map[int]bool)

	ast.Inspect(fd.Body, func(n ast.Node) bool {
		if werr != nil {
			return false
		}

		block, ok := n.(*ast.BlockStmt)
		if !ok {
			return true
		}

		var out []ast.Stmt

		changed := false

		for _, stmt := range block.List {
			out = append(out, stmt)

			if ds, ok := stmt.(*ast.DeclStmt); ok {
				if gd, ok := ds.Decl.(*ast.GenDecl); ok && gd.Tok == token.TYPE {
					if err := f.localTypeDecl(gd, scope); err != nil {
						werr = err
						return false
					}
				}

				continue
			}

			as, ok := stmt.(*ast.AssignStmt)
			if !ok || !f.index.valueCheckAt(f.fset.Position(stmt.End()).Line) {
				continue
			}

			line := f.fset.Position(stmt.End()).Line

			for _, lhs := range as.Lhs {
				id, ok := lhs.(*ast.Ident)
				if !ok || id.Name == "_" {
					continue
				}

				chk, err := valueCheckStmt(m.Default(), m.TagUnknown, ast.NewIdent(id.Name))
				if err != nil {
					werr = err
					return false
				}

				out = append(out, chk)
				changed = true
				satisfied[line] = true

				f.report.Items = append(f.report.Items, m.ItemReport{
					Name:   id.Name,
					Kind:   m.KindLocal,
					Line:   f.fset.Position(id.Pos()).Line,
					Checks: 1,
				})
			}
		}

		if changed {
			block.List = out
		}

		return true
	})

	if werr != nil {
		return werr
	}

	from := f.fset.Position(fd.Body.Pos()).Line
	to := f.fset.Position(fd.Body.End()).Line

	for _, line := range f.index.valueLinesIn(from, to) {
		if !satisfied[line] {
			return fmt.Errorf("value check directive at %s:%d is not attached to a simple binding",
				f.fset.Position(fd.Body.Pos()).Filename, line)
		}
	}

	return nil
}

// localTypeDecl resolves field tags for types declared inside a function.
// Local types get no derived hashing and no synthesized declarations.
func (f *fileInstrumenter) localTypeDecl(gd *ast.GenDecl, scope *ScopeConfig) error {
	for _, spec := range gd.Specs {
		ts, ok := spec.(*ast.TypeSpec)
		if !ok {
			continue
		}

		st, ok := ts.Type.(*ast.StructType)
		if !ok {
			continue
		}

		if err := f.structFields(ts.Name.Name, st, scope, scope.Check.Inherited.Enabled); err != nil {
			return err
		}
	}

	return nil
}

func (f *fileInstrumenter) typeDecl(gd *ast.GenDecl) error {
	for _, spec := range gd.Specs {
		ts, ok := spec.(*ast.TypeSpec)
		if !ok {
			continue
		}

		doc := ts.Doc
		if doc == nil && len(gd.Specs) == 1 {
			doc = gd.Doc
		}

		directive, err := findDirective(doc)
		if err != nil {
			return fmt.Errorf("type %s: %w", ts.Name.Name, err)
		}

		parent := f.top()

		check := parent.Check.Inherit()
		check.ApplyDirective(directive)

		item := parent.GetItemConfig(ts.Name.Name)
		check.ApplyItemConfig(item)

		scope := parent.FromItem(item, check)
		f.push(scope)

		err = f.typeSpec(gd, ts, scope)
		f.pop()

		if err != nil {
			return fmt.Errorf("type %s: %w", ts.Name.Name, err)
		}
	}

	return nil
}

func (f *fileInstrumenter) typeSpec(gd *ast.GenDecl, ts *ast.TypeSpec, scope *ScopeConfig) error {
	name := ts.Name.Name
	cfg := scope.Check
	line := f.fset.Position(ts.Pos()).Line

	f.recordSpan(ts.Pos(), cfg.Inherited)

	// Externally defined types always get a forwarding hash method; their
	// definition is not visible, so nothing else can be derived for them.
	if cfg.Struct.Foreign {
		f.pending = append(f.pending, foreignHashDecls(name)...)
		f.needsUnsafe = true
		f.report.Items = append(f.report.Items, m.ItemReport{Name: name, Kind: m.KindForeignType, Line: line, Checks: 1})

		return nil
	}

	st, ok := ts.Type.(*ast.StructType)
	if !ok {
		return nil
	}

	enabled := cfg.Inherited.Enabled

	if err := f.structFields(name, st, scope, enabled); err != nil {
		return err
	}

	if cfg.Struct.Union {
		// Unions never derive field-wise hashing; reading an inactive
		// member is undefined. The hash method exists even under a
		// disabling scope, so union values stay hashable everywhere.
		decl, err := unionHashDecl(name, cfg.Struct.CustomHash)
		if err != nil {
			return err
		}

		f.pending = append(f.pending, decl)
		f.needsRuntime = true
		f.report.Items = append(f.report.Items, m.ItemReport{Name: name, Kind: m.KindUnion, Line: line, Checks: 1})
	} else if !enabled {
		f.report.Items = append(f.report.Items, m.ItemReport{Name: name, Kind: m.KindStruct, Line: line, Skipped: true})
		return nil
	} else {
		markers := []string{"xcheck:derive"}
		if args := hashAttrArgs(&cfg); len(args) > 0 {
			markers = append(markers, "xcheckhash:"+strings.Join(args, " "))
		}

		// In a grouped declaration every spec gets its own markers.
		for _, marker := range markers {
			if len(gd.Specs) > 1 {
				ts.Doc = appendDocLine(ts.Doc, marker)
			} else {
				gd.Doc = appendDocLine(gd.Doc, marker)
			}
		}

		f.report.Items = append(f.report.Items, m.ItemReport{Name: name, Kind: m.KindStruct, Line: line, Checks: 1})
	}

	if enabled && f.sess.opts.CHashFunctions && f.sess.emitted.Insert(name) {
		decl, err := cExportDecl(name, cfg.Inherited)
		if err != nil {
			return err
		}

		f.pending = append(f.pending, decl)
		f.needsRuntime = true
		f.report.Items = append(f.report.Items, m.ItemReport{Name: name, Kind: m.KindCExport, Line: line, Checks: 1})
	}

	return nil
}

// structFields resolves every field's directive and rewrites its tag. Inline
// directives are stripped even when the aggregate is disabled, so they never
// leak into the rewritten source; markers are only attached when enabled.
func (f *fileInstrumenter) structFields(typeName string, st *ast.StructType, scope *ScopeConfig, enabled bool) error {
	scope.ResetFieldIndex()

	for _, field := range st.Fields.List {
		inline, err := fieldTagCheck(field)
		if err != nil {
			return fmt.Errorf("field of %s: %w", typeName, err)
		}

		fieldName, pos := fieldIdentity(field, scope)

		if !enabled {
			rewriteFieldTag(field, "")
			continue
		}

		resolved, err := resolveFieldCheck(&scope.Check.Struct, inline, fieldName, pos)
		if err != nil {
			return fmt.Errorf("type %s: %w", typeName, err)
		}

		marker, err := fieldMarker(resolved)
		if err != nil {
			return fmt.Errorf("type %s, field %s: %w", typeName, fieldName, err)
		}

		rewriteFieldTag(field, marker)

		if marker != "" {
			f.report.Items = append(f.report.Items, m.ItemReport{
				Name: typeName + "." + fieldName.String(),
				Kind: m.KindField,
				Line: f.fset.Position(field.Pos()).Line,
			})
		}
	}

	return nil
}

// fieldIdentity assigns the name and positional identity of one field entry,
// advancing the scope's positional cursor per declared field. Blank fields
// are positional only; embedded fields are named after their type.
func fieldIdentity(field *ast.Field, scope *ScopeConfig) (name m.FieldIndex, pos m.FieldIndex) {
	if len(field.Names) == 0 {
		idx := scope.NextFieldIndex()
		pos = m.FieldPos(idx)

		if embedded := embeddedName(field.Type); embedded != "" {
			return m.FieldName(embedded), pos
		}

		return pos, pos
	}

	first := field.Names[0]
	firstPos := scope.NextFieldIndex()

	for range field.Names[1:] {
		scope.NextFieldIndex()
	}

	pos = m.FieldPos(firstPos)

	if first.Name == "_" {
		return pos, pos
	}

	return m.FieldName(first.Name), pos
}

func embeddedName(typ ast.Expr) string {
	for {
		switch t := typ.(type) {
		case *ast.StarExpr:
			typ = t.X
		case *ast.SelectorExpr:
			return t.Sel.Name
		case *ast.Ident:
			return t.Name
		default:
			return ""
		}
	}
}
