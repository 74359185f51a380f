package xcfg

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	m "xcheck.dev/pkg/xcheck/internal/model"
)

const yamlConfig = `
files:
  src/main.go:
    - defaults:
        disabled: true
        ahasher: myhash.Hasher
    - function:
        name: Add
        entry: disabled
        ret:
          fixed: 42
        args:
          a: none
          "1":
            as_type: uint64
    - struct:
        name: Point
        field_hasher: myhash.FieldHasher
        fields:
          X:
            custom: hashX(x)
        items:
          - function:
              name: Scale
              all_args: none
`

func TestParseYAML(t *testing.T) {
	cfg, err := ParseYAML([]byte(yamlConfig))
	require.NoError(t, err)

	items := cfg.GetFileItems("src/main.go")
	require.Len(t, items, 3)

	t.Run("defaults record", func(t *testing.T) {
		defaults := FileDefaults(items)
		require.NotNil(t, defaults)
		require.NotNil(t, defaults.Disabled)
		assert.True(t, *defaults.Disabled)
		assert.Equal(t, "myhash.Hasher", defaults.AHasher)
	})

	t.Run("function entry", func(t *testing.T) {
		list := NewNamedItemList(items)

		item := list.Get("Add")
		require.NotNil(t, item)
		require.NotNil(t, item.Function)

		assert.Equal(t, m.CheckDisabled, item.Function.Entry.Kind)
		assert.Equal(t, m.Fixed(42), item.Function.Ret.CheckType)

		args := item.Function.ArgChecks()
		assert.Equal(t, m.Disabled(), args[m.FieldName("a")])
		assert.Equal(t, m.AsType("uint64"), args[m.FieldPos(1)])
	})

	t.Run("struct entry with nested items", func(t *testing.T) {
		list := NewNamedItemList(items)

		item := list.Get("Point")
		require.NotNil(t, item)
		require.NotNil(t, item.Struct)

		assert.Equal(t, "myhash.FieldHasher", item.Struct.FieldHasher)
		assert.Equal(t, m.Custom("hashX(x)"), item.Struct.FieldChecks()[m.FieldName("X")])

		nested := NewNamedItemList(item.NestedItems())
		scale := nested.Get("Scale")
		require.NotNil(t, scale)
		assert.Equal(t, m.CheckDisabled, scale.Function.AllArgs.Kind)
	})
}

const tomlConfig = `
[[files."src/main.go"]]
[files."src/main.go".function]
name = "Mul"
exit = "disabled"

[[files."src/main.go"]]
[files."src/main.go".struct]
name = "Raw"
union = true
custom_hash = "hashRaw(x)"
`

func TestParseTOML(t *testing.T) {
	cfg, err := ParseTOML([]byte(tomlConfig))
	require.NoError(t, err)

	list := NewNamedItemList(cfg.GetFileItems("src/main.go"))

	mul := list.Get("Mul")
	require.NotNil(t, mul)
	require.NotNil(t, mul.Function)
	assert.Equal(t, m.CheckDisabled, mul.Function.Exit.Kind)

	raw := list.Get("Raw")
	require.NotNil(t, raw)
	require.NotNil(t, raw.Struct)
	assert.True(t, raw.Struct.Union)
	assert.Equal(t, "hashRaw(x)", raw.Struct.CustomHash)
}

func TestParseFileDispatchesOnExtension(t *testing.T) {
	dir := t.TempDir()

	yamlPath := filepath.Join(dir, "checks.yaml")
	require.NoError(t, os.WriteFile(yamlPath, []byte("files:\n  a.go:\n    - function:\n        name: F\n"), 0o644))

	tomlPath := filepath.Join(dir, "checks.toml")
	require.NoError(t, os.WriteFile(tomlPath, []byte("[[files.\"a.go\"]]\n[files.\"a.go\".function]\nname = \"G\"\n"), 0o644))

	yamlCfg, err := ParseFile(yamlPath)
	require.NoError(t, err)
	assert.NotNil(t, NewNamedItemList(yamlCfg.GetFileItems("a.go")).Get("F"))

	tomlCfg, err := ParseFile(tomlPath)
	require.NoError(t, err)
	assert.NotNil(t, NewNamedItemList(tomlCfg.GetFileItems("a.go")).Get("G"))

	_, err = ParseFile(filepath.Join(dir, "missing.yaml"))
	assert.Error(t, err)
}

func TestParseFilesMergeOrder(t *testing.T) {
	dir := t.TempDir()

	first := filepath.Join(dir, "first.yaml")
	require.NoError(t, os.WriteFile(first, []byte(`
files:
  a.go:
    - function:
        name: F
        entry:
          fixed: 1
`), 0o644))

	second := filepath.Join(dir, "second.yaml")
	require.NoError(t, os.WriteFile(second, []byte(`
files:
  a.go:
    - function:
        name: F
        entry:
          fixed: 2
`), 0o644))

	cfg, err := ParseFiles([]string{first, second})
	require.NoError(t, err)

	// Later files shadow earlier ones during name resolution.
	item := NewNamedItemList(cfg.GetFileItems("a.go")).Get("F")
	require.NotNil(t, item)
	assert.Equal(t, m.Fixed(2), item.Function.Entry.CheckType)
}

func TestValidateRejectsAmbiguousItems(t *testing.T) {
	_, err := ParseYAML([]byte(`
files:
  a.go:
    - function:
        name: F
      struct:
        name: S
`))
	assert.Error(t, err)
}

func TestCheckScalarSpellings(t *testing.T) {
	tests := []struct {
		in   string
		want m.CheckType
	}{
		{"default", m.Default()},
		{"", m.Default()},
		{"yes", m.Default()},
		{"disabled", m.Disabled()},
		{"none", m.Disabled()},
		{"no", m.Disabled()},
	}

	for _, tt := range tests {
		got, err := checkFromScalar(tt.in)
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}

	_, err := checkFromScalar("bogus")
	assert.Error(t, err)
}

func TestCheckKeyValueSpellings(t *testing.T) {
	fixed, err := checkFromKeyValue("fixed", "0x2A")
	require.NoError(t, err)
	assert.Equal(t, m.Fixed(0x2A), fixed)

	named, err := checkFromKeyValue("djb2", "name")
	require.NoError(t, err)
	assert.Equal(t, m.CheckNamed, named.Kind)

	_, err = checkFromKeyValue("bogus", "x")
	assert.Error(t, err)
}
