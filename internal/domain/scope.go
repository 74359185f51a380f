// Package domain contains the cross-check instrumentation core: configuration
// resolution, the AST rewriting engine and span-based scope recovery.
package domain

import (
	"fmt"

	m "xcheck.dev/pkg/xcheck/internal/model"
	"xcheck.dev/pkg/xcheck/internal/xcfg"
)

// InheritedConfig is the per-scope record shared by reference with every
// descendant scope that does not override it. It is immutable once a scope is
// finalized: overriding any field clones the whole record first.
type InheritedConfig struct {
	Enabled bool
	// AHasher and SHasher are hash-algorithm type expressions; empty means
	// "use the engine default".
	AHasher string
	SHasher string
	Entry   m.CheckType
	Exit    m.CheckType
	AllArgs m.CheckType
	Ret     m.CheckType
}

func newInheritedConfig() *InheritedConfig {
	return &InheritedConfig{Enabled: true}
}

func (c *InheritedConfig) clone() *InheritedConfig {
	cp := *c
	return &cp
}

// FunctionCheckConfig is the item-specific configuration of one function.
type FunctionCheckConfig struct {
	Args       map[m.FieldIndex]m.CheckType
	EntryExtra []m.ExtraCheck
	ExitExtra  []m.ExtraCheck
}

// StructCheckConfig is the item-specific configuration of one aggregate.
type StructCheckConfig struct {
	Fields      map[m.FieldIndex]m.CheckType
	FieldHasher string
	CustomHash  string
	Union       bool
	Foreign     bool
}

// ScopeCheckConfig pairs the inherited record with the current item's
// non-inherited settings.
type ScopeCheckConfig struct {
	Inherited *InheritedConfig
	Function  FunctionCheckConfig
	Struct    StructCheckConfig
}

// NewScopeCheckConfig builds a fresh top-level configuration with engine
// defaults: checks enabled, every directive at Default.
func NewScopeCheckConfig() ScopeCheckConfig {
	return ScopeCheckConfig{Inherited: newInheritedConfig()}
}

// Inherit derives a child configuration sharing the inherited record and
// starting with empty item-specific settings.
func (c ScopeCheckConfig) Inherit() ScopeCheckConfig {
	return ScopeCheckConfig{Inherited: c.Inherited}
}

// mutableInherited clones the shared record on first write so ancestors keep
// their finalized view.
func (c *ScopeCheckConfig) mutableInherited(cloned *bool) *InheritedConfig {
	if !*cloned {
		c.Inherited = c.Inherited.clone()
		*cloned = true
	}

	return c.Inherited
}

// ApplyDirective merges an inline directive into the configuration; fields
// present in the directive overwrite the corresponding inherited or
// item-specific fields, absent fields pass through.
func (c *ScopeCheckConfig) ApplyDirective(d *Directive) {
	if d == nil {
		return
	}

	cloned := false

	if d.Enabled != nil {
		c.mutableInherited(&cloned).Enabled = *d.Enabled
	}

	if d.Entry != nil {
		c.mutableInherited(&cloned).Entry = *d.Entry
	}

	if d.Exit != nil {
		c.mutableInherited(&cloned).Exit = *d.Exit
	}

	if d.Ret != nil {
		c.mutableInherited(&cloned).Ret = *d.Ret
	}

	if d.AllArgs != nil {
		c.mutableInherited(&cloned).AllArgs = *d.AllArgs
	}

	if d.AHasher != "" {
		c.mutableInherited(&cloned).AHasher = d.AHasher
	}

	if d.SHasher != "" {
		c.mutableInherited(&cloned).SHasher = d.SHasher
	}

	for idx, check := range d.Args {
		if c.Function.Args == nil {
			c.Function.Args = make(map[m.FieldIndex]m.CheckType)
		}

		c.Function.Args[idx] = check
	}

	for _, expr := range d.EntryExtra {
		c.Function.EntryExtra = append(c.Function.EntryExtra, m.ExtraCheck{Expr: expr, Tag: m.TagFunctionEntry})
	}

	for _, expr := range d.ExitExtra {
		c.Function.ExitExtra = append(c.Function.ExitExtra, m.ExtraCheck{Expr: expr, Tag: m.TagFunctionExit})
	}

	if d.FieldHasher != "" {
		c.Struct.FieldHasher = d.FieldHasher
	}

	if d.CustomHash != "" {
		c.Struct.CustomHash = d.CustomHash
	}

	if d.Union {
		c.Struct.Union = true
	}

	if d.Foreign {
		c.Struct.Foreign = true
	}
}

// ApplyItemConfig merges an external per-item entry with the same
// overwrite-if-present rule. Applied after ApplyDirective, so external
// configuration wins over inline directives for any field both touch.
func (c *ScopeCheckConfig) ApplyItemConfig(item *xcfg.ItemConfig) {
	if item == nil {
		return
	}

	switch {
	case item.Defaults != nil:
		c.applyDefaults(item.Defaults)
	case item.Function != nil:
		c.applyFunction(item.Function)
	case item.Struct != nil:
		c.applyStruct(item.Struct)
	}
}

func (c *ScopeCheckConfig) applyDefaults(d *xcfg.DefaultsConfig) {
	cloned := false

	if d.Disabled != nil {
		c.mutableInherited(&cloned).Enabled = !*d.Disabled
	}

	if d.Entry != nil {
		c.mutableInherited(&cloned).Entry = d.Entry.CheckType
	}

	if d.Exit != nil {
		c.mutableInherited(&cloned).Exit = d.Exit.CheckType
	}

	if d.Ret != nil {
		c.mutableInherited(&cloned).Ret = d.Ret.CheckType
	}

	if d.AllArgs != nil {
		c.mutableInherited(&cloned).AllArgs = d.AllArgs.CheckType
	}

	if d.AHasher != "" {
		c.mutableInherited(&cloned).AHasher = d.AHasher
	}

	if d.SHasher != "" {
		c.mutableInherited(&cloned).SHasher = d.SHasher
	}
}

func (c *ScopeCheckConfig) applyFunction(f *xcfg.FunctionConfig) {
	cloned := false

	if f.Disabled != nil {
		c.mutableInherited(&cloned).Enabled = !*f.Disabled
	}

	if f.Entry != nil {
		c.mutableInherited(&cloned).Entry = f.Entry.CheckType
	}

	if f.Exit != nil {
		c.mutableInherited(&cloned).Exit = f.Exit.CheckType
	}

	if f.Ret != nil {
		c.mutableInherited(&cloned).Ret = f.Ret.CheckType
	}

	if f.AllArgs != nil {
		c.mutableInherited(&cloned).AllArgs = f.AllArgs.CheckType
	}

	if f.AHasher != "" {
		c.mutableInherited(&cloned).AHasher = f.AHasher
	}

	if f.SHasher != "" {
		c.mutableInherited(&cloned).SHasher = f.SHasher
	}

	for idx, check := range f.ArgChecks() {
		if c.Function.Args == nil {
			c.Function.Args = make(map[m.FieldIndex]m.CheckType)
		}

		c.Function.Args[idx] = check
	}

	for _, expr := range f.EntryExtra {
		c.Function.EntryExtra = append(c.Function.EntryExtra, m.ExtraCheck{Expr: expr, Tag: m.TagFunctionEntry})
	}

	for _, expr := range f.ExitExtra {
		c.Function.ExitExtra = append(c.Function.ExitExtra, m.ExtraCheck{Expr: expr, Tag: m.TagFunctionExit})
	}
}

func (c *ScopeCheckConfig) applyStruct(s *xcfg.StructConfig) {
	cloned := false

	if s.Disabled != nil {
		c.mutableInherited(&cloned).Enabled = !*s.Disabled
	}

	if s.AHasher != "" {
		c.mutableInherited(&cloned).AHasher = s.AHasher
	}

	if s.SHasher != "" {
		c.mutableInherited(&cloned).SHasher = s.SHasher
	}

	if s.FieldHasher != "" {
		c.Struct.FieldHasher = s.FieldHasher
	}

	if s.CustomHash != "" {
		c.Struct.CustomHash = s.CustomHash
	}

	if s.Union {
		c.Struct.Union = true
	}

	if s.Foreign {
		c.Struct.Foreign = true
	}

	for idx, check := range s.FieldChecks() {
		if c.Struct.Fields == nil {
			c.Struct.Fields = make(map[m.FieldIndex]m.CheckType)
		}

		c.Struct.Fields[idx] = check
	}
}

// ScopeConfig is one frame of the scope stack: the file unit being traversed,
// the external item table scoped to it, the resolved check configuration and
// the positional field cursor of the aggregate currently open in this scope.
type ScopeConfig struct {
	FileName string
	Items    *xcfg.NamedItemList
	Check    ScopeCheckConfig

	fieldIdx int
}

// NewScopeConfig creates the frame for a new file unit, indexing the external
// configuration's entries for that file.
func NewScopeConfig(cfg *xcfg.Config, fileName string, check ScopeCheckConfig) *ScopeConfig {
	var items *xcfg.NamedItemList
	if fileItems := cfg.GetFileItems(fileName); fileItems != nil {
		items = xcfg.NewNamedItemList(fileItems)
	}

	return &ScopeConfig{FileName: fileName, Items: items, Check: check}
}

// FromItem creates a child frame in the same file, scoped to the given item's
// nested entries (method tables of an aggregate).
func (s *ScopeConfig) FromItem(item *xcfg.ItemConfig, check ScopeCheckConfig) *ScopeConfig {
	var items *xcfg.NamedItemList
	if item != nil {
		if nested := item.NestedItems(); nested != nil {
			items = xcfg.NewNamedItemList(nested)
		}
	}

	return &ScopeConfig{FileName: s.FileName, Items: items, Check: check}
}

// GetItemConfig looks up the external entry for a named item in this scope.
func (s *ScopeConfig) GetItemConfig(name string) *xcfg.ItemConfig {
	return s.Items.Get(name)
}

// SameFile reports whether fileName matches this scope's file unit.
func (s *ScopeConfig) SameFile(fileName string) bool {
	return s.FileName == fileName
}

// ResetFieldIndex restarts the positional cursor at the start of an aggregate
// body. Indices are never shared across aggregates.
func (s *ScopeConfig) ResetFieldIndex() { s.fieldIdx = 0 }

// NextFieldIndex returns the next positional index within the open aggregate.
func (s *ScopeConfig) NextFieldIndex() int {
	idx := s.fieldIdx
	s.fieldIdx++

	return idx
}

// resolveFieldCheck applies field-level precedence: the inline tag directive
// first, then the external per-field entry, with the external one winning.
// Named fields may also be addressed positionally by the external table.
func resolveFieldCheck(cfg *StructCheckConfig, inline *m.CheckType, name m.FieldIndex, pos m.FieldIndex) (m.CheckType, error) {
	resolved := m.Default()
	if inline != nil {
		resolved = *inline
	}

	if ext, ok := cfg.Fields[name]; ok {
		resolved = ext
	} else if ext, ok := cfg.Fields[pos]; ok {
		resolved = ext
	}

	if resolved.Kind == m.CheckNamed {
		return m.CheckType{}, fmt.Errorf("field %s: %w", name, m.ErrReservedCheck)
	}

	return resolved, nil
}
