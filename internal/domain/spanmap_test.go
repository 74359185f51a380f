package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"

	m "xcheck.dev/pkg/xcheck/internal/model"
)

func TestSpanScopeMapLookupChain(t *testing.T) {
	spans := NewSpanScopeMap()

	recorded := newInheritedConfig()
	recorded.AHasher = "myhash.Agg"

	adjusted := m.SourcePos{File: "gen.go", Line: 10, Column: 1}
	raw := m.SourcePos{File: "src.go", Line: 42, Column: 1}

	spans.Record(raw, recorded)

	// The remapped position misses, the raw origin hits.
	assert.Same(t, recorded, spans.Lookup(adjusted, raw))
	assert.Same(t, recorded, spans.Lookup(raw))

	// The chain is searched front to back.
	front := newInheritedConfig()
	spans.Record(adjusted, front)
	assert.Same(t, front, spans.Lookup(adjusted, raw))

	assert.Nil(t, spans.Lookup(m.SourcePos{File: "other.go", Line: 1, Column: 1}))
	assert.Equal(t, 2, spans.Len())
}

func TestSpanScopeMapIgnoresZeroEntries(t *testing.T) {
	spans := NewSpanScopeMap()

	spans.Record(m.SourcePos{}, newInheritedConfig())
	spans.Record(m.SourcePos{File: "a.go", Line: 1}, nil)

	assert.Equal(t, 0, spans.Len())
	assert.Nil(t, spans.Lookup(m.SourcePos{}))
}

func TestEmittedSymbolSet(t *testing.T) {
	emitted := NewEmittedSymbolSet()

	assert.True(t, emitted.Insert("__xcheck_hash_Point"))
	assert.False(t, emitted.Insert("__xcheck_hash_Point"))
	assert.True(t, emitted.Insert("__xcheck_hash_Line"))
}
