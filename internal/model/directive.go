// Package model defines the value types shared by the cross-check
// instrumentation engine: check directives, field identities and source
// positions.
package model

import (
	"fmt"
	"strconv"
)

// CheckKind enumerates the resolved actions for one checkable point.
type CheckKind int

const (
	// CheckDefault hashes the value with the scope's hasher pair.
	CheckDefault CheckKind = iota
	// CheckDisabled emits no check for the point.
	CheckDisabled
	// CheckFixed emits a fixed 64-bit value instead of a computed hash.
	CheckFixed
	// CheckAsType converts the value to another type before hashing.
	CheckAsType
	// CheckCustom evaluates a user-supplied expression as the hash.
	CheckCustom
	// CheckNamed selects a hash algorithm by name. Reserved: attempting to
	// construct or resolve it is a checked failure, never a silent no-op.
	CheckNamed
)

// String returns the configuration-file spelling of the kind.
func (k CheckKind) String() string {
	switch k {
	case CheckDefault:
		return "default"
	case CheckDisabled:
		return "disabled"
	case CheckFixed:
		return "fixed"
	case CheckAsType:
		return "as_type"
	case CheckCustom:
		return "custom"
	case CheckNamed:
		return "djb2"
	}

	return fmt.Sprintf("check(%d)", int(k))
}

// CheckType is the tagged directive variant attached to one checkable point.
// Exactly one resolved CheckType applies per point after merging.
type CheckType struct {
	Kind   CheckKind
	Fixed  uint64 // CheckFixed payload
	Type   string // CheckAsType payload: a Go type expression
	Custom string // CheckCustom payload: a Go expression
	Name   string // CheckNamed payload (reserved)
}

// Default returns the pass-through directive.
func Default() CheckType { return CheckType{Kind: CheckDefault} }

// Disabled returns the directive that suppresses the check.
func Disabled() CheckType { return CheckType{Kind: CheckDisabled} }

// Fixed returns a directive emitting the given value as the hash.
func Fixed(v uint64) CheckType { return CheckType{Kind: CheckFixed, Fixed: v} }

// AsType returns a directive hashing the value converted to typeExpr.
func AsType(typeExpr string) CheckType { return CheckType{Kind: CheckAsType, Type: typeExpr} }

// Custom returns a directive evaluating expr as the hash value.
func Custom(expr string) CheckType { return CheckType{Kind: CheckCustom, Custom: expr} }

// Named returns the reserved named-algorithm directive. Resolving it fails.
func Named(name string) CheckType { return CheckType{Kind: CheckNamed, Name: name} }

// IsDefault reports whether the directive leaves the point at its default.
func (c CheckType) IsDefault() bool { return c.Kind == CheckDefault }

// ErrReservedCheck is returned when the reserved named-algorithm variant is
// selected for a point that must be resolved.
var ErrReservedCheck = fmt.Errorf("named hash algorithm checks are reserved and not implemented")

// Tag identifies the program point a check payload belongs to.
type Tag int

// Check tags, mirrored by the runtime collaborator.
const (
	TagUnknown Tag = iota
	TagFunctionEntry
	TagFunctionExit
	TagFunctionArg
	TagFunctionReturn
)

// RuntimeName returns the identifier of the tag constant in the runtime
// package, used when generating check statements.
func (t Tag) RuntimeName() string {
	switch t {
	case TagFunctionEntry:
		return "TagFunctionEntry"
	case TagFunctionExit:
		return "TagFunctionExit"
	case TagFunctionArg:
		return "TagFunctionArg"
	case TagFunctionReturn:
		return "TagFunctionReturn"
	}

	return "TagUnknown"
}

// ExtraCheck is a custom expression evaluated at function entry or exit in
// addition to the standard checks.
type ExtraCheck struct {
	Expr string
	Tag  Tag
}

// FieldIndex identifies one field or argument within an aggregate: either a
// declared name or a positional index. Positional indices are assigned in
// declaration order and reset to zero at the start of every aggregate body.
type FieldIndex struct {
	Name  string
	Index int
	named bool
}

// FieldName builds the identity of a named field or argument.
func FieldName(name string) FieldIndex { return FieldIndex{Name: name, named: true} }

// FieldPos builds the identity of a positional (unnamed or blank) field.
func FieldPos(idx int) FieldIndex { return FieldIndex{Index: idx} }

// IsNamed reports whether the identity carries a declared name.
func (f FieldIndex) IsNamed() bool { return f.named }

// String renders the identity the way configuration files spell it.
func (f FieldIndex) String() string {
	if f.named {
		return f.Name
	}

	return strconv.Itoa(f.Index)
}

// ParseFieldIndex interprets a configuration key as a field identity: an
// all-digit key addresses a field by position, anything else by name.
func ParseFieldIndex(key string) FieldIndex {
	if n, err := strconv.Atoi(key); err == nil && n >= 0 {
		return FieldPos(n)
	}

	return FieldName(key)
}
