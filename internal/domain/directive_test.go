package domain

import (
	"go/parser"
	"go/token"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	m "xcheck.dev/pkg/xcheck/internal/model"
)

func TestParseDirectiveEnabled(t *testing.T) {
	tests := []struct {
		params string
		want   bool
	}{
		{"enabled", true},
		{"yes", true},
		{"disabled", false},
		{"no", false},
		{"enabled=false", false},
		{"disabled=false", true},
	}

	for _, tt := range tests {
		d, err := ParseDirective(tt.params)
		require.NoError(t, err, tt.params)
		require.NotNil(t, d.Enabled, tt.params)
		assert.Equal(t, tt.want, *d.Enabled, tt.params)
	}
}

func TestParseDirectiveCheckSpecs(t *testing.T) {
	d, err := ParseDirective("entry(fixed(0x2A)) exit(disabled) ret(as_type(uint64)) all_args(none)")
	require.NoError(t, err)

	assert.Equal(t, m.Fixed(0x2A), *d.Entry)
	assert.Equal(t, m.Disabled(), *d.Exit)
	assert.Equal(t, m.AsType("uint64"), *d.Ret)
	assert.Equal(t, m.Disabled(), *d.AllArgs)
}

func TestParseDirectiveArgs(t *testing.T) {
	d, err := ParseDirective("args(a=custom(hashA(a, 1)), b=none)")
	require.NoError(t, err)

	assert.Equal(t, m.Custom("hashA(a, 1)"), d.Args[m.FieldName("a")])
	assert.Equal(t, m.Disabled(), d.Args[m.FieldName("b")])
}

func TestParseDirectiveHashersAndExtras(t *testing.T) {
	d, err := ParseDirective(`ahasher(myhash.Agg) shasher(myhash.Simple) entry_extra(seen(a); count()) exit_extra(done(r))`)
	require.NoError(t, err)

	assert.Equal(t, "myhash.Agg", d.AHasher)
	assert.Equal(t, "myhash.Simple", d.SHasher)
	assert.Equal(t, []string{"seen(a)", "count()"}, d.EntryExtra)
	assert.Equal(t, []string{"done(r)"}, d.ExitExtra)
}

func TestParseDirectiveStructParams(t *testing.T) {
	d, err := ParseDirective(`union foreign field_hasher(fh.H) custom_hash(hashMe(x))`)
	require.NoError(t, err)

	assert.True(t, d.Union)
	assert.True(t, d.Foreign)
	assert.Equal(t, "fh.H", d.FieldHasher)
	assert.Equal(t, "hashMe(x)", d.CustomHash)
}

func TestParseDirectiveErrors(t *testing.T) {
	for _, params := range []string{
		"bogus",
		"entry(fixed(notanumber))",
		"entry(unknownspec)",
		"args(noequalsign)",
		"entry(fixed(1)",
	} {
		_, err := ParseDirective(params)
		assert.Error(t, err, params)
	}
}

func TestParseCheckSpecReserved(t *testing.T) {
	check, err := parseCheckSpec("djb2(name)")
	require.NoError(t, err)
	assert.Equal(t, m.CheckNamed, check.Kind)
}

func TestFindDirective(t *testing.T) {
	src := `package p

// Add sums two numbers.
//xcheck:check entry(disabled) ret(fixed(7))
func Add(a, b int) int { return a + b }

func Sub(a, b int) int { return a - b }
`

	fset := token.NewFileSet()
	file, err := parser.ParseFile(fset, "p.go", src, parser.ParseComments)
	require.NoError(t, err)

	d, err := findDirective(declDoc(file.Decls[0]))
	require.NoError(t, err)
	require.NotNil(t, d)
	assert.Equal(t, m.Disabled(), *d.Entry)
	assert.Equal(t, m.Fixed(7), *d.Ret)

	d, err = findDirective(declDoc(file.Decls[1]))
	require.NoError(t, err)
	assert.Nil(t, d)
}

func TestDirectiveIndexValueLines(t *testing.T) {
	src := `package p

func f() int {
	total := 1 //xcheck:value
	other := 2

	return total + other
}
`

	fset := token.NewFileSet()
	file, err := parser.ParseFile(fset, "p.go", src, parser.ParseComments)
	require.NoError(t, err)

	idx := buildDirectiveIndex(fset, file)
	assert.True(t, idx.valueCheckAt(4))
	assert.False(t, idx.valueCheckAt(5))
}
