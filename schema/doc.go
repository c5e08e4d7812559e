// Package schema holds the declaration model that codecs are derived from.
//
// A declaration (RecordDecl or EnumDecl) names its fields by type reference
// and attaches raw attribute groups to fields, variants and enums. Resolve
// validates those attributes, classifies every field type into a Node and
// allocates enum discriminants, producing immutable Record and Enum values.
// Every validation failure is an errors.PhaseResolve error carrying the
// declaration's source position.
//
// Type references are written in Go type syntax. Classification is purely
// structural:
//
//	*T               optional T
//	string           string
//	wire.RawString   borrowed string
//	[]T              sequence
//	wire.RawBytes    borrowed byte slice
//	map[K]V          map
//	map[K]struct{}   set
//	[N]T             fixed array
//	bool, ints, floats, rune
//	                 primitive
//	anything else    opaque, delegated to the type's own codec
package schema
