// Package xcfg models the externally supplied cross-check configuration:
// per-file item tables, file-wide defaults and per-item check settings, loaded
// from YAML or TOML files.
package xcfg

import (
	"fmt"

	m "xcheck.dev/pkg/xcheck/internal/model"
)

// FunctionConfig carries the externally supplied settings for one function or
// method.
type FunctionConfig struct {
	Name       string           `yaml:"name" toml:"name"`
	Disabled   *bool            `yaml:"disabled,omitempty" toml:"disabled"`
	Entry      *Check           `yaml:"entry,omitempty" toml:"entry"`
	Exit       *Check           `yaml:"exit,omitempty" toml:"exit"`
	Ret        *Check           `yaml:"ret,omitempty" toml:"ret"`
	AllArgs    *Check           `yaml:"all_args,omitempty" toml:"all_args"`
	Args       map[string]Check `yaml:"args,omitempty" toml:"args"`
	AHasher    string           `yaml:"ahasher,omitempty" toml:"ahasher"`
	SHasher    string           `yaml:"shasher,omitempty" toml:"shasher"`
	EntryExtra []string         `yaml:"entry_extra,omitempty" toml:"entry_extra"`
	ExitExtra  []string         `yaml:"exit_extra,omitempty" toml:"exit_extra"`
}

// ArgChecks converts the per-argument overrides to engine field identities.
func (f *FunctionConfig) ArgChecks() map[m.FieldIndex]m.CheckType {
	if len(f.Args) == 0 {
		return nil
	}

	args := make(map[m.FieldIndex]m.CheckType, len(f.Args))
	for key, check := range f.Args {
		args[m.ParseFieldIndex(key)] = check.CheckType
	}

	return args
}

// StructConfig carries the externally supplied settings for one aggregate
// type, including nested method configuration (keyed under the type name the
// way impl-block members are).
type StructConfig struct {
	Name        string           `yaml:"name" toml:"name"`
	Disabled    *bool            `yaml:"disabled,omitempty" toml:"disabled"`
	AHasher     string           `yaml:"ahasher,omitempty" toml:"ahasher"`
	SHasher     string           `yaml:"shasher,omitempty" toml:"shasher"`
	FieldHasher string           `yaml:"field_hasher,omitempty" toml:"field_hasher"`
	CustomHash  string           `yaml:"custom_hash,omitempty" toml:"custom_hash"`
	Union       bool             `yaml:"union,omitempty" toml:"union"`
	Foreign     bool             `yaml:"foreign,omitempty" toml:"foreign"`
	Fields      map[string]Check `yaml:"fields,omitempty" toml:"fields"`
	Items       []ItemConfig     `yaml:"items,omitempty" toml:"items"`
}

// FieldChecks converts the per-field overrides to engine field identities.
func (s *StructConfig) FieldChecks() map[m.FieldIndex]m.CheckType {
	if len(s.Fields) == 0 {
		return nil
	}

	fields := make(map[m.FieldIndex]m.CheckType, len(s.Fields))
	for key, check := range s.Fields {
		fields[m.ParseFieldIndex(key)] = check.CheckType
	}

	return fields
}

// DefaultsConfig is a file-wide defaults record.
type DefaultsConfig struct {
	Disabled *bool  `yaml:"disabled,omitempty" toml:"disabled"`
	Entry    *Check `yaml:"entry,omitempty" toml:"entry"`
	Exit     *Check `yaml:"exit,omitempty" toml:"exit"`
	Ret      *Check `yaml:"ret,omitempty" toml:"ret"`
	AllArgs  *Check `yaml:"all_args,omitempty" toml:"all_args"`
	AHasher  string `yaml:"ahasher,omitempty" toml:"ahasher"`
	SHasher  string `yaml:"shasher,omitempty" toml:"shasher"`
}

// Merge folds other into d, with other's present fields winning.
func (d *DefaultsConfig) Merge(other *DefaultsConfig) {
	if other == nil {
		return
	}

	if other.Disabled != nil {
		d.Disabled = other.Disabled
	}

	if other.Entry != nil {
		d.Entry = other.Entry
	}

	if other.Exit != nil {
		d.Exit = other.Exit
	}

	if other.Ret != nil {
		d.Ret = other.Ret
	}

	if other.AllArgs != nil {
		d.AllArgs = other.AllArgs
	}

	if other.AHasher != "" {
		d.AHasher = other.AHasher
	}

	if other.SHasher != "" {
		d.SHasher = other.SHasher
	}
}

// ItemConfig is the tagged union of per-item configuration entries: exactly
// one of Function, Struct or Defaults is set.
type ItemConfig struct {
	Function *FunctionConfig `yaml:"function,omitempty" toml:"function"`
	Struct   *StructConfig   `yaml:"struct,omitempty" toml:"struct"`
	Defaults *DefaultsConfig `yaml:"defaults,omitempty" toml:"defaults"`
}

// Name returns the configured item's name, or "" for defaults records.
func (i *ItemConfig) Name() string {
	switch {
	case i.Function != nil:
		return i.Function.Name
	case i.Struct != nil:
		return i.Struct.Name
	}

	return ""
}

// NestedItems returns the item table scoped under this item, if any.
func (i *ItemConfig) NestedItems() []ItemConfig {
	if i.Struct != nil {
		return i.Struct.Items
	}

	return nil
}

func (i *ItemConfig) validate() error {
	set := 0

	if i.Function != nil {
		set++
	}

	if i.Struct != nil {
		set++
	}

	if i.Defaults != nil {
		set++
	}

	if set != 1 {
		return fmt.Errorf("item entry must set exactly one of function, struct or defaults")
	}

	return nil
}

// Config is the merged external configuration: item lists keyed by file name.
type Config struct {
	Files map[string][]ItemConfig `yaml:"files" toml:"files"`
}

// GetFileItems returns the item list for a file, or nil when the file has no
// external configuration.
func (c *Config) GetFileItems(file string) []ItemConfig {
	if c == nil || c.Files == nil {
		return nil
	}

	return c.Files[file]
}

// Merge appends other's per-file item lists onto c's; later entries win during
// name resolution, so configuration files given later override earlier ones.
func (c *Config) Merge(other Config) {
	if len(other.Files) == 0 {
		return
	}

	if c.Files == nil {
		c.Files = make(map[string][]ItemConfig, len(other.Files))
	}

	for file, items := range other.Files {
		c.Files[file] = append(c.Files[file], items...)
	}
}

// FileDefaults folds every defaults record of a file's item list into one.
func FileDefaults(items []ItemConfig) *DefaultsConfig {
	var merged *DefaultsConfig

	for i := range items {
		if items[i].Defaults == nil {
			continue
		}

		if merged == nil {
			merged = &DefaultsConfig{}
		}

		merged.Merge(items[i].Defaults)
	}

	return merged
}

// NamedItemList is a by-name lookup table over one item list. Built once per
// scope; later entries shadow earlier ones.
type NamedItemList struct {
	nameMap map[string]*ItemConfig
}

// NewNamedItemList indexes items by name, skipping defaults records.
func NewNamedItemList(items []ItemConfig) *NamedItemList {
	nameMap := make(map[string]*ItemConfig, len(items))

	for i := range items {
		if name := items[i].Name(); name != "" {
			nameMap[name] = &items[i]
		}
	}

	return &NamedItemList{nameMap: nameMap}
}

// Get returns the configuration entry for the named item.
func (n *NamedItemList) Get(name string) *ItemConfig {
	if n == nil {
		return nil
	}

	return n.nameMap[name]
}
