package domain

import (
	m "xcheck.dev/pkg/xcheck/internal/model"
)

// SpanScopeMap records, per source location, the inherited configuration that
// was active when the engine passed that location. Later lookups re-associate
// line-directive-remapped nodes with the scope they logically belong to.
// The map is append-only for the duration of one pass.
type SpanScopeMap struct {
	scopes map[m.SourcePos]*InheritedConfig
}

// NewSpanScopeMap returns an empty map.
func NewSpanScopeMap() *SpanScopeMap {
	return &SpanScopeMap{scopes: make(map[m.SourcePos]*InheritedConfig)}
}

// Record stores a snapshot of the inherited configuration for pos. The
// snapshot is the shared immutable record itself, so recording is cheap and
// later overrides in child scopes cannot disturb it.
func (s *SpanScopeMap) Record(pos m.SourcePos, cfg *InheritedConfig) {
	if pos.IsZero() || cfg == nil {
		return
	}

	s.scopes[pos] = cfg
}

// Lookup finds the configuration recorded for pos, walking the chain of
// expansion call sites when the exact position is absent. The chain is given
// front-to-back: the remapped position first, then each successively rawer
// origin. An exhausted chain yields nil: the caller is at the true top level.
func (s *SpanScopeMap) Lookup(chain ...m.SourcePos) *InheritedConfig {
	for _, pos := range chain {
		if pos.IsZero() {
			continue
		}

		if cfg, ok := s.scopes[pos]; ok {
			return cfg
		}
	}

	return nil
}

// Len returns the number of recorded positions.
func (s *SpanScopeMap) Len() int { return len(s.scopes) }

// EmittedSymbolSet tracks the externally linked hash functions already
// synthesized in this pass, so repeated requests for the same type name stay
// idempotent. Append-only.
type EmittedSymbolSet struct {
	names map[string]struct{}
}

// NewEmittedSymbolSet returns an empty set.
func NewEmittedSymbolSet() *EmittedSymbolSet {
	return &EmittedSymbolSet{names: make(map[string]struct{})}
}

// Insert adds name and reports whether it was newly added. A false return
// means the symbol was emitted before; the caller must skip synthesis.
func (e *EmittedSymbolSet) Insert(name string) bool {
	if _, ok := e.names[name]; ok {
		return false
	}

	e.names[name] = struct{}{}

	return true
}
