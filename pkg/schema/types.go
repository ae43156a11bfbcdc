// Package schema defines the in-memory model for lattice schemas: classes,
// slots, enumerations, types, and class-level rules. The model is what a
// schema loader hands to the resolver and validator; this package does not
// parse any textual schema syntax.
package schema

// SchemaDefinition is the root of a schema: named collections of classes,
// slots, enums, and primitive type definitions. A schema is treated as
// immutable once handed to a resolver.
type SchemaDefinition struct {
	Name        string                      `json:"name" yaml:"name"`
	ID          string                      `json:"id,omitempty" yaml:"id,omitempty"`
	Description string                      `json:"description,omitempty" yaml:"description,omitempty"`
	Classes     map[string]*ClassDefinition `json:"classes,omitempty" yaml:"classes,omitempty"`
	Slots       map[string]*SlotDefinition  `json:"slots,omitempty" yaml:"slots,omitempty"`
	Enums       map[string]*EnumDefinition  `json:"enums,omitempty" yaml:"enums,omitempty"`
	Types       map[string]*TypeDefinition  `json:"types,omitempty" yaml:"types,omitempty"`
}

// ClassDefinition describes one class: its place in the inheritance graph,
// the slots it declares, per-slot overrides, and attached rules.
type ClassDefinition struct {
	Name        string `json:"name" yaml:"name"`
	Description string `json:"description,omitempty" yaml:"description,omitempty"`

	// IsA names the single primary parent class, if any.
	IsA string `json:"is_a,omitempty" yaml:"is_a,omitempty"`
	// Mixins name classes contributing slots without being ancestors.
	Mixins   []string `json:"mixins,omitempty" yaml:"mixins,omitempty"`
	Abstract bool     `json:"abstract,omitempty" yaml:"abstract,omitempty"`
	// Mixin marks this class as intended for use as a mixin.
	Mixin bool `json:"mixin,omitempty" yaml:"mixin,omitempty"`

	// Slots lists names of schema-level slots this class uses.
	Slots []string `json:"slots,omitempty" yaml:"slots,omitempty"`
	// SlotUsage carries per-class partial overrides of slot definitions.
	SlotUsage map[string]*SlotDefinition `json:"slot_usage,omitempty" yaml:"slot_usage,omitempty"`
	// Attributes are slot definitions declared inline on this class.
	Attributes map[string]*SlotDefinition `json:"attributes,omitempty" yaml:"attributes,omitempty"`

	Rules []*Rule `json:"rules,omitempty" yaml:"rules,omitempty"`

	TreeRoot bool `json:"tree_root,omitempty" yaml:"tree_root,omitempty"`
}

// SlotDefinition describes one named, typed, constrained field. Optional
// constraint fields use pointers so that per-class overrides can distinguish
// "not set" from an explicit value.
type SlotDefinition struct {
	Name        string `json:"name" yaml:"name"`
	Description string `json:"description,omitempty" yaml:"description,omitempty"`

	// Range names the target primitive type, class, or enum.
	Range string `json:"range,omitempty" yaml:"range,omitempty"`

	Required    *bool `json:"required,omitempty" yaml:"required,omitempty"`
	Recommended *bool `json:"recommended,omitempty" yaml:"recommended,omitempty"`
	Multivalued *bool `json:"multivalued,omitempty" yaml:"multivalued,omitempty"`
	Identifier  *bool `json:"identifier,omitempty" yaml:"identifier,omitempty"`

	Pattern      string   `json:"pattern,omitempty" yaml:"pattern,omitempty"`
	MinimumValue *float64 `json:"minimum_value,omitempty" yaml:"minimum_value,omitempty"`
	MaximumValue *float64 `json:"maximum_value,omitempty" yaml:"maximum_value,omitempty"`

	MinimumCardinality *int `json:"minimum_cardinality,omitempty" yaml:"minimum_cardinality,omitempty"`
	MaximumCardinality *int `json:"maximum_cardinality,omitempty" yaml:"maximum_cardinality,omitempty"`

	EqualsString *string  `json:"equals_string,omitempty" yaml:"equals_string,omitempty"`
	EqualsNumber *float64 `json:"equals_number,omitempty" yaml:"equals_number,omitempty"`
	// EqualsExpression computes the expected value via the expression
	// language; a mismatch with the actual value is a validation error.
	EqualsExpression string `json:"equals_expression,omitempty" yaml:"equals_expression,omitempty"`

	AnyOf        []*SlotCondition `json:"any_of,omitempty" yaml:"any_of,omitempty"`
	AllOf        []*SlotCondition `json:"all_of,omitempty" yaml:"all_of,omitempty"`
	ExactlyOneOf []*SlotCondition `json:"exactly_one_of,omitempty" yaml:"exactly_one_of,omitempty"`
	NoneOf       []*SlotCondition `json:"none_of,omitempty" yaml:"none_of,omitempty"`
}

// IsRequired reports whether the slot is marked required.
func (s *SlotDefinition) IsRequired() bool { return s.Required != nil && *s.Required }

// IsRecommended reports whether the slot is marked recommended.
func (s *SlotDefinition) IsRecommended() bool { return s.Recommended != nil && *s.Recommended }

// IsMultivalued reports whether the slot holds a list of values.
func (s *SlotDefinition) IsMultivalued() bool { return s.Multivalued != nil && *s.Multivalued }

// IsIdentifier reports whether the slot is the class identifier.
func (s *SlotDefinition) IsIdentifier() bool { return s.Identifier != nil && *s.Identifier }

// SlotCondition is a partial slot constraint. It is used both as an element
// of boolean composition constraints (any_of/all_of/exactly_one_of/none_of)
// and as a per-slot condition inside rule pre/postconditions.
type SlotCondition struct {
	Range        string   `json:"range,omitempty" yaml:"range,omitempty"`
	Required     *bool    `json:"required,omitempty" yaml:"required,omitempty"`
	Pattern      string   `json:"pattern,omitempty" yaml:"pattern,omitempty"`
	EqualsString *string  `json:"equals_string,omitempty" yaml:"equals_string,omitempty"`
	EqualsNumber *float64 `json:"equals_number,omitempty" yaml:"equals_number,omitempty"`
	// EqualsExpression is evaluated against the enclosing instance; the
	// condition holds when the slot value equals the computed result.
	EqualsExpression string   `json:"equals_expression,omitempty" yaml:"equals_expression,omitempty"`
	MinimumValue     *float64 `json:"minimum_value,omitempty" yaml:"minimum_value,omitempty"`
	MaximumValue     *float64 `json:"maximum_value,omitempty" yaml:"maximum_value,omitempty"`

	AnyOf        []*SlotCondition `json:"any_of,omitempty" yaml:"any_of,omitempty"`
	AllOf        []*SlotCondition `json:"all_of,omitempty" yaml:"all_of,omitempty"`
	ExactlyOneOf []*SlotCondition `json:"exactly_one_of,omitempty" yaml:"exactly_one_of,omitempty"`
	NoneOf       []*SlotCondition `json:"none_of,omitempty" yaml:"none_of,omitempty"`
}

// Rule is a class-level conditional constraint: when the preconditions hold
// for an instance, the postconditions must also hold. ElseConditions, when
// present, must hold whenever the preconditions do not.
type Rule struct {
	Title       string `json:"title,omitempty" yaml:"title,omitempty"`
	Description string `json:"description,omitempty" yaml:"description,omitempty"`
	// Deactivated rules are skipped without evaluation.
	Deactivated bool `json:"deactivated,omitempty" yaml:"deactivated,omitempty"`
	// Priority orders evaluation: higher first, ties keep declaration order.
	Priority *int `json:"priority,omitempty" yaml:"priority,omitempty"`

	Preconditions  *RuleConditions `json:"preconditions,omitempty" yaml:"preconditions,omitempty"`
	Postconditions *RuleConditions `json:"postconditions,omitempty" yaml:"postconditions,omitempty"`
	ElseConditions *RuleConditions `json:"else_conditions,omitempty" yaml:"else_conditions,omitempty"`
}

// RuleConditions groups per-slot conditions with free-form expression
// conditions. All members must hold (implicit AND).
type RuleConditions struct {
	SlotConditions       map[string]*SlotCondition `json:"slot_conditions,omitempty" yaml:"slot_conditions,omitempty"`
	ExpressionConditions []string                  `json:"expression_conditions,omitempty" yaml:"expression_conditions,omitempty"`
}

// IsEmpty reports whether the condition set constrains nothing.
func (rc *RuleConditions) IsEmpty() bool {
	return rc == nil || (len(rc.SlotConditions) == 0 && len(rc.ExpressionConditions) == 0)
}

// EnumDefinition is an enumeration with a closed list of permissible values.
type EnumDefinition struct {
	Name              string             `json:"name" yaml:"name"`
	Description       string             `json:"description,omitempty" yaml:"description,omitempty"`
	PermissibleValues []PermissibleValue `json:"permissible_values,omitempty" yaml:"permissible_values,omitempty"`
}

// PermissibleValue is one allowed member of an enumeration.
type PermissibleValue struct {
	Text        string `json:"text" yaml:"text"`
	Description string `json:"description,omitempty" yaml:"description,omitempty"`
	Meaning     string `json:"meaning,omitempty" yaml:"meaning,omitempty"`
}

// Texts returns the permissible value texts in declaration order.
func (e *EnumDefinition) Texts() []string {
	out := make([]string, 0, len(e.PermissibleValues))
	for _, pv := range e.PermissibleValues {
		out = append(out, pv.Text)
	}
	return out
}

// TypeDefinition describes a named primitive type, optionally derived from
// another type and carrying a default pattern constraint.
type TypeDefinition struct {
	Name        string `json:"name" yaml:"name"`
	Description string `json:"description,omitempty" yaml:"description,omitempty"`
	TypeOf      string `json:"typeof,omitempty" yaml:"typeof,omitempty"`
	Base        string `json:"base,omitempty" yaml:"base,omitempty"`
	Pattern     string `json:"pattern,omitempty" yaml:"pattern,omitempty"`
}
