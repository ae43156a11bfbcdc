package schemaview

import (
	"sort"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/platinummonkey/lattice/pkg/schema"
)

// SchemaView resolves induced class views over one immutable schema.
// It is safe for concurrent use; resolved views are cached for the life of
// the SchemaView.
type SchemaView struct {
	schema *schema.SchemaDefinition
	log    *logrus.Logger

	mu      sync.RWMutex
	classes map[string]*ClassView
}

// New creates a SchemaView over the given schema. The schema must not be
// mutated afterwards. A nil logger defaults to a fresh logrus logger.
func New(sd *schema.SchemaDefinition, log *logrus.Logger) *SchemaView {
	if log == nil {
		log = logrus.New()
	}
	return &SchemaView{
		schema:  sd,
		log:     log,
		classes: make(map[string]*ClassView),
	}
}

// Schema returns the underlying schema definition.
func (v *SchemaView) Schema() *schema.SchemaDefinition {
	return v.schema
}

// InducedClass returns the fully resolved view of the named class,
// building and caching it on first request.
func (v *SchemaView) InducedClass(name string) (*ClassView, error) {
	v.mu.RLock()
	cv, ok := v.classes[name]
	v.mu.RUnlock()
	if ok {
		return cv, nil
	}

	cv, err := v.buildClassView(name, map[string]bool{})
	if err != nil {
		return nil, err
	}

	v.mu.Lock()
	defer v.mu.Unlock()
	// Another goroutine may have resolved the same class first.
	if existing, ok := v.classes[name]; ok {
		return existing, nil
	}
	v.classes[name] = cv
	return cv, nil
}

// ClassAncestors returns all transitive is_a parents, nearest first,
// excluding the class itself.
func (v *SchemaView) ClassAncestors(name string) ([]string, error) {
	if _, ok := v.schema.Classes[name]; !ok {
		return nil, &NotFoundError{Kind: "class", Name: name}
	}
	return v.ancestors(name)
}

// ClassDescendants returns the names of all classes whose ancestor chain
// includes the given class, sorted for determinism.
func (v *SchemaView) ClassDescendants(name string) ([]string, error) {
	if _, ok := v.schema.Classes[name]; !ok {
		return nil, &NotFoundError{Kind: "class", Name: name}
	}
	var out []string
	for candidate := range v.schema.Classes {
		if candidate == name {
			continue
		}
		anc, err := v.ancestors(candidate)
		if err != nil {
			continue // cycles elsewhere are reported when that class resolves
		}
		for _, a := range anc {
			if a == name {
				out = append(out, candidate)
				break
			}
		}
	}
	sort.Strings(out)
	return out, nil
}

// InducedSlot returns the definition of one slot as seen from the given
// class, with all overrides applied.
func (v *SchemaView) InducedSlot(slotName, className string) (*schema.SlotDefinition, error) {
	cv, err := v.InducedClass(className)
	if err != nil {
		return nil, err
	}
	sd, ok := cv.slots[slotName]
	if !ok {
		return nil, &NotFoundError{Kind: "slot", Name: slotName}
	}
	return sd, nil
}

// IdentifierSlot returns the name of the induced slot flagged as identifier,
// or "" when the class has none.
func (v *SchemaView) IdentifierSlot(className string) (string, error) {
	cv, err := v.InducedClass(className)
	if err != nil {
		return "", err
	}
	return cv.identifier, nil
}

// IsInlined reports whether instances of the class embed as objects rather
// than being referenced by identifier. A class with no identifier slot is
// always inlined.
func (v *SchemaView) IsInlined(className string) (bool, error) {
	cv, err := v.InducedClass(className)
	if err != nil {
		return false, err
	}
	return cv.identifier == "", nil
}

// Enum looks up an enumeration definition by name.
func (v *SchemaView) Enum(name string) (*schema.EnumDefinition, bool) {
	e, ok := v.schema.Enums[name]
	return e, ok
}

// ancestors walks the is_a chain iteratively, nearest first. A repeated
// name signals a cycle.
func (v *SchemaView) ancestors(name string) ([]string, error) {
	seen := map[string]bool{name: true}
	order := []string{name}
	var out []string

	cur := v.schema.Classes[name]
	for cur != nil && cur.IsA != "" {
		parent := cur.IsA
		if seen[parent] {
			return nil, &CyclicInheritanceError{Cycle: append(order, parent)}
		}
		pc, ok := v.schema.Classes[parent]
		if !ok {
			return nil, &NotFoundError{Kind: "class", Name: parent}
		}
		seen[parent] = true
		order = append(order, parent)
		out = append(out, parent)
		cur = pc
	}
	return out, nil
}

// buildClassView computes the induced view. building guards against
// mixin-induced re-entry, which indicates a cycle.
func (v *SchemaView) buildClassView(name string, building map[string]bool) (*ClassView, error) {
	if building[name] {
		cycle := make([]string, 0, len(building)+1)
		for n := range building {
			cycle = append(cycle, n)
		}
		sort.Strings(cycle)
		return nil, &CyclicInheritanceError{Cycle: append(cycle, name)}
	}
	building[name] = true
	defer delete(building, name)

	cls, ok := v.schema.Classes[name]
	if !ok {
		return nil, &NotFoundError{Kind: "class", Name: name}
	}

	anc, err := v.ancestors(name)
	if err != nil {
		return nil, err
	}

	acc := newSlotAccumulator()

	// Ancestor contributions, farthest first so nearer definitions win.
	// Each ancestor layers the same way the class itself does: its mixins,
	// then its own declarations, then its slot_usage.
	for i := len(anc) - 1; i >= 0; i-- {
		ac := v.schema.Classes[anc[i]]
		if err := v.applyClassLayer(acc, ac, building); err != nil {
			return nil, err
		}
	}

	mixins := append([]string(nil), cls.Mixins...)
	if err := v.applyClassLayer(acc, cls, building); err != nil {
		return nil, err
	}

	var identifier string
	var identifiers []string
	for _, sn := range acc.names {
		if acc.slots[sn].IsIdentifier() {
			identifiers = append(identifiers, sn)
		}
	}
	switch len(identifiers) {
	case 0:
	case 1:
		identifier = identifiers[0]
	default:
		return nil, &AmbiguousIdentifierError{Class: name, Slots: identifiers}
	}

	descendants, err := v.ClassDescendants(name)
	if err != nil {
		return nil, err
	}

	v.log.WithFields(logrus.Fields{
		"class":     name,
		"slots":     len(acc.names),
		"ancestors": len(anc),
		"mixins":    len(mixins),
	}).Debug("resolved induced class view")

	return &ClassView{
		name:        name,
		def:         cls,
		ancestors:   anc,
		mixins:      mixins,
		descendants: descendants,
		slotNames:   acc.names,
		slots:       acc.slots,
		identifier:  identifier,
	}, nil
}

// applyClassLayer overlays one class's full contribution: mixin induced
// views override what came before, the class's own attribute declarations
// override the mixins, and slot_usage overrides everything. Slots listed by
// name only seed missing entries with their schema-level definition.
func (v *SchemaView) applyClassLayer(acc *slotAccumulator, cls *schema.ClassDefinition, building map[string]bool) error {
	for _, mixin := range cls.Mixins {
		mv, err := v.inducedForMixin(mixin, building)
		if err != nil {
			return err
		}
		for _, sn := range mv.slotNames {
			acc.merge(sn, mv.slots[sn])
		}
	}
	if err := v.applyOwnSlots(acc, cls); err != nil {
		return err
	}
	v.applySlotUsage(acc, cls)
	return nil
}

// inducedForMixin resolves a mixin's view, reusing the cache when possible
// but carrying the building set for cycle detection.
func (v *SchemaView) inducedForMixin(name string, building map[string]bool) (*ClassView, error) {
	v.mu.RLock()
	cv, ok := v.classes[name]
	v.mu.RUnlock()
	if ok {
		return cv, nil
	}
	return v.buildClassView(name, building)
}

// applyOwnSlots adds a class's declared slots and inline attributes.
// A slot listed in slots refers to the schema-level definition, which ranks
// below every override; re-listing an inherited slot only seeds the entry
// and never clobbers slot_usage already layered by mixins or ancestors.
// Attributes are class-local declarations and do override earlier layers.
func (v *SchemaView) applyOwnSlots(acc *slotAccumulator, cls *schema.ClassDefinition) error {
	for _, sn := range cls.Slots {
		base, ok := v.schema.Slots[sn]
		if !ok {
			return &NotFoundError{Kind: "slot", Name: sn}
		}
		acc.insert(sn, base)
	}
	attrNames := make([]string, 0, len(cls.Attributes))
	for an := range cls.Attributes {
		attrNames = append(attrNames, an)
	}
	sort.Strings(attrNames)
	for _, an := range attrNames {
		def := cls.Attributes[an]
		acc.merge(an, def)
	}
	return nil
}

// applySlotUsage overlays a class's per-slot overrides. Usage for a slot
// the class cannot see falls back to the schema-level definition when one
// exists, otherwise the override stands alone.
func (v *SchemaView) applySlotUsage(acc *slotAccumulator, cls *schema.ClassDefinition) {
	usageNames := make([]string, 0, len(cls.SlotUsage))
	for un := range cls.SlotUsage {
		usageNames = append(usageNames, un)
	}
	sort.Strings(usageNames)
	for _, un := range usageNames {
		if _, present := acc.slots[un]; !present {
			if base, ok := v.schema.Slots[un]; ok {
				acc.insert(un, base)
			}
		}
		acc.merge(un, cls.SlotUsage[un])
	}
}

// slotAccumulator layers slot definitions while preserving first-seen order.
type slotAccumulator struct {
	names []string
	slots map[string]*schema.SlotDefinition
}

func newSlotAccumulator() *slotAccumulator {
	return &slotAccumulator{slots: make(map[string]*schema.SlotDefinition)}
}

// merge overlays def onto the current entry for name. Fields set on def win;
// unset fields keep the prior value.
func (a *slotAccumulator) merge(name string, def *schema.SlotDefinition) {
	cur, ok := a.slots[name]
	if !ok {
		a.insert(name, def)
		return
	}
	merged := *cur
	overlaySlot(&merged, def)
	a.slots[name] = &merged
}

// insert records def for name only when no entry exists yet. Used for
// schema-level base definitions, which never displace layered overrides.
func (a *slotAccumulator) insert(name string, def *schema.SlotDefinition) {
	if _, ok := a.slots[name]; ok {
		return
	}
	cp := *def
	cp.Name = name
	a.slots[name] = &cp
	a.names = append(a.names, name)
}

// overlaySlot copies every set field of src onto dst.
func overlaySlot(dst, src *schema.SlotDefinition) {
	if src.Description != "" {
		dst.Description = src.Description
	}
	if src.Range != "" {
		dst.Range = src.Range
	}
	if src.Required != nil {
		dst.Required = src.Required
	}
	if src.Recommended != nil {
		dst.Recommended = src.Recommended
	}
	if src.Multivalued != nil {
		dst.Multivalued = src.Multivalued
	}
	if src.Identifier != nil {
		dst.Identifier = src.Identifier
	}
	if src.Pattern != "" {
		dst.Pattern = src.Pattern
	}
	if src.MinimumValue != nil {
		dst.MinimumValue = src.MinimumValue
	}
	if src.MaximumValue != nil {
		dst.MaximumValue = src.MaximumValue
	}
	if src.MinimumCardinality != nil {
		dst.MinimumCardinality = src.MinimumCardinality
	}
	if src.MaximumCardinality != nil {
		dst.MaximumCardinality = src.MaximumCardinality
	}
	if src.EqualsString != nil {
		dst.EqualsString = src.EqualsString
	}
	if src.EqualsNumber != nil {
		dst.EqualsNumber = src.EqualsNumber
	}
	if src.EqualsExpression != "" {
		dst.EqualsExpression = src.EqualsExpression
	}
	if src.AnyOf != nil {
		dst.AnyOf = src.AnyOf
	}
	if src.AllOf != nil {
		dst.AllOf = src.AllOf
	}
	if src.ExactlyOneOf != nil {
		dst.ExactlyOneOf = src.ExactlyOneOf
	}
	if src.NoneOf != nil {
		dst.NoneOf = src.NoneOf
	}
}
