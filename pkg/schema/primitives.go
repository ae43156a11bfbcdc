package schema

// DefaultRange is assumed when a slot declares no range.
const DefaultRange = "string"

// builtinTypes are the primitive range names recognized without a
// TypeDefinition entry in the schema.
var builtinTypes = map[string]struct{}{
	"string":           {},
	"integer":          {},
	"float":            {},
	"double":           {},
	"decimal":          {},
	"boolean":          {},
	"date":             {},
	"datetime":         {},
	"time":             {},
	"uri":              {},
	"uriorcurie":       {},
	"curie":            {},
	"ncname":           {},
	"objectidentifier": {},
}

// IsBuiltinType reports whether name is a recognized primitive type.
func IsBuiltinType(name string) bool {
	_, ok := builtinTypes[name]
	return ok
}

// EffectiveRange returns the slot's range, falling back to DefaultRange.
func (s *SlotDefinition) EffectiveRange() string {
	if s.Range == "" {
		return DefaultRange
	}
	return s.Range
}

// ResolveType follows typeof chains to the underlying builtin type name.
// Returns the input unchanged when it is already builtin or unknown.
func (sd *SchemaDefinition) ResolveType(name string) string {
	seen := make(map[string]struct{})
	for {
		if IsBuiltinType(name) {
			return name
		}
		td, ok := sd.Types[name]
		if !ok || td.TypeOf == "" {
			return name
		}
		if _, dup := seen[name]; dup {
			return name
		}
		seen[name] = struct{}{}
		name = td.TypeOf
	}
}
