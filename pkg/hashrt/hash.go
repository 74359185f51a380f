// Package hashrt provides the runtime half of cross-check instrumentation:
// the hasher roles, the default hash algorithms and the check emission entry
// points referenced by instrumented code.
package hashrt

import (
	"math"
	"reflect"
)

// Sentinel hashes emitted for values that cannot be recursed into.
const (
	// LeafRecordHash stands in for an aggregate at recursion depth zero.
	LeafRecordHash uint64 = 0xDEADBEEFA5A5A5A5
	// AnyUnionHash is the opaque hash of a union whose active member is unknown.
	AnyUnionHash uint64 = 0xA5A5A5A5A5A5A5A5
	// LeafPointerHash stands in for a pointer at recursion depth zero.
	LeafPointerHash uint64 = 0xDEADBEEFDEADBEEF
	// NullPointerHash is emitted for nil pointers.
	NullPointerHash uint64 = 0x5EED1357900DF00D
)

// DefaultDepth is the recursion depth used by CheckValue when the call site
// does not pick one.
const DefaultDepth uint = 8

// CrossCheckHasher is the role contract for the two pluggable hash algorithms:
// the aggregate hasher combines multiple hashed values, the simple hasher
// hashes a single primitive. Implementations are stateless algorithm tags so
// instrumented code can name them as type arguments.
type CrossCheckHasher interface {
	// Init returns the starting state.
	Init() uint64
	// Absorb folds one 64-bit value into the state.
	Absorb(state, value uint64) uint64
}

// Hashable is implemented by types with a derived or synthesized content hash.
type Hashable interface {
	CrossCheckHash(depth uint) uint64
}

const jodyPrime uint64 = 0x9E3779B97F4A7C15

// JodyHasher is the default aggregate hasher: an additive-multiplicative mix
// in the jodyhash family.
type JodyHasher struct{}

// Init returns the jodyhash seed state.
func (JodyHasher) Init() uint64 { return 0 }

// Absorb mixes one value into the running state.
func (JodyHasher) Absorb(state, value uint64) uint64 {
	return (state + value) * jodyPrime
}

// SimpleHasher is the default simple hasher: it passes a single primitive
// value through unchanged, so scalar cross-checks stay directly comparable.
type SimpleHasher struct{}

// Init returns the zero state.
func (SimpleHasher) Init() uint64 { return 0 }

// Absorb replaces the state with the absorbed value.
func (SimpleHasher) Absorb(_, value uint64) uint64 { return value }

// HashString hashes a string with the djb2 algorithm. Function entry and exit
// checks hash the function name this way.
func HashString(s string) uint64 {
	h := uint64(5381)
	for i := 0; i < len(s); i++ {
		h = h*33 + uint64(s[i])
	}

	return h
}

// HashValue hashes v at the default recursion depth.
func HashValue[HA, HS CrossCheckHasher](v any) uint64 {
	return HashValueDepth[HA, HS](v, DefaultDepth)
}

// HashValueDepth produces the 64-bit content hash of v at the given recursion
// depth, using HA to combine aggregate members and HS for single primitives.
func HashValueDepth[HA, HS CrossCheckHasher](v any, depth uint) uint64 {
	var simple HS

	switch x := v.(type) {
	case Hashable:
		return x.CrossCheckHash(depth)
	case bool:
		b := uint64(0)
		if x {
			b = 1
		}

		return simple.Absorb(simple.Init(), b)
	case int:
		return simple.Absorb(simple.Init(), uint64(int64(x)))
	case int8:
		return simple.Absorb(simple.Init(), uint64(int64(x)))
	case int16:
		return simple.Absorb(simple.Init(), uint64(int64(x)))
	case int32:
		return simple.Absorb(simple.Init(), uint64(int64(x)))
	case int64:
		return simple.Absorb(simple.Init(), uint64(x))
	case uint:
		return simple.Absorb(simple.Init(), uint64(x))
	case uint8:
		return simple.Absorb(simple.Init(), uint64(x))
	case uint16:
		return simple.Absorb(simple.Init(), uint64(x))
	case uint32:
		return simple.Absorb(simple.Init(), uint64(x))
	case uint64:
		return simple.Absorb(simple.Init(), x)
	case uintptr:
		return simple.Absorb(simple.Init(), uint64(x))
	case float32:
		return simple.Absorb(simple.Init(), uint64(math.Float32bits(x)))
	case float64:
		return simple.Absorb(simple.Init(), math.Float64bits(x))
	case string:
		return HashString(x)
	case nil:
		return NullPointerHash
	}

	return hashReflected[HA, HS](reflect.ValueOf(v), depth)
}

// hashReflected covers values without a synthesized hash method: pointers,
// slices, arrays and plain structs fold their members with the aggregate
// hasher; anything else degrades to the leaf-record sentinel.
func hashReflected[HA, HS CrossCheckHasher](rv reflect.Value, depth uint) uint64 {
	var agg HA

	switch rv.Kind() {
	case reflect.Pointer, reflect.Interface:
		if rv.IsNil() {
			return NullPointerHash
		}

		if depth == 0 {
			return LeafPointerHash
		}

		return HashValueDepth[HA, HS](rv.Elem().Interface(), depth-1)

	case reflect.Slice, reflect.Array:
		if depth == 0 {
			return LeafRecordHash
		}

		state := agg.Init()
		for i := 0; i < rv.Len(); i++ {
			state = agg.Absorb(state, HashValueDepth[HA, HS](rv.Index(i).Interface(), depth-1))
		}

		return state

	case reflect.Struct:
		if depth == 0 {
			return LeafRecordHash
		}

		state := agg.Init()

		for i := 0; i < rv.NumField(); i++ {
			f := rv.Field(i)
			if !f.CanInterface() {
				continue
			}

			state = agg.Absorb(state, HashValueDepth[HA, HS](f.Interface(), depth-1))
		}

		return state
	}

	return LeafRecordHash
}
