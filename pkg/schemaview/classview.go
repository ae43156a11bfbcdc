package schemaview

import (
	"github.com/platinummonkey/lattice/pkg/schema"
)

// ClassView is the read-only induced view of one class: inheritance fully
// resolved, overrides applied. Views are built by SchemaView and shared;
// callers must not mutate returned slices or maps.
type ClassView struct {
	name        string
	def         *schema.ClassDefinition
	ancestors   []string
	mixins      []string
	descendants []string
	slotNames   []string
	slots       map[string]*schema.SlotDefinition
	identifier  string
}

// Name returns the class name.
func (cv *ClassView) Name() string { return cv.name }

// Definition returns the raw class definition.
func (cv *ClassView) Definition() *schema.ClassDefinition { return cv.def }

// IsAbstract reports whether the class is abstract.
func (cv *ClassView) IsAbstract() bool { return cv.def.Abstract }

// Parent returns the direct is_a parent, or "".
func (cv *ClassView) Parent() string { return cv.def.IsA }

// Ancestors returns all transitive is_a parents, nearest first.
func (cv *ClassView) Ancestors() []string { return cv.ancestors }

// Mixins returns the class's declared mixins in order.
func (cv *ClassView) Mixins() []string { return cv.mixins }

// Descendants returns all classes whose ancestor chain includes this class.
func (cv *ClassView) Descendants() []string { return cv.descendants }

// IsDescendantOf reports whether name appears in the ancestor chain.
func (cv *ClassView) IsDescendantOf(name string) bool {
	for _, a := range cv.ancestors {
		if a == name {
			return true
		}
	}
	return false
}

// SlotNames returns all applicable slot names in resolution order.
func (cv *ClassView) SlotNames() []string { return cv.slotNames }

// Slot returns the induced definition for one slot, or nil.
func (cv *ClassView) Slot(name string) *schema.SlotDefinition { return cv.slots[name] }

// Slots returns the full induced name-to-definition map.
func (cv *ClassView) Slots() map[string]*schema.SlotDefinition { return cv.slots }

// HasSlot reports whether the slot is visible on this class.
func (cv *ClassView) HasSlot(name string) bool {
	_, ok := cv.slots[name]
	return ok
}

// IdentifierSlot returns the identifier slot name, or "".
func (cv *ClassView) IdentifierSlot() string { return cv.identifier }

// IsInlined reports whether the class embeds as an object rather than being
// referenced by identifier.
func (cv *ClassView) IsInlined() bool { return cv.identifier == "" }

// RequiredSlots returns the names of slots marked required.
func (cv *ClassView) RequiredSlots() []string {
	var out []string
	for _, sn := range cv.slotNames {
		if cv.slots[sn].IsRequired() {
			out = append(out, sn)
		}
	}
	return out
}

// MultivaluedSlots returns the names of list-valued slots.
func (cv *ClassView) MultivaluedSlots() []string {
	var out []string
	for _, sn := range cv.slotNames {
		if cv.slots[sn].IsMultivalued() {
			out = append(out, sn)
		}
	}
	return out
}

// OwnSlots returns the slot names declared directly on the class, either in
// its slot list or as inline attributes.
func (cv *ClassView) OwnSlots() []string {
	own := make(map[string]bool, len(cv.def.Slots)+len(cv.def.Attributes))
	for _, sn := range cv.def.Slots {
		own[sn] = true
	}
	for an := range cv.def.Attributes {
		own[an] = true
	}
	var out []string
	for _, sn := range cv.slotNames {
		if own[sn] {
			out = append(out, sn)
		}
	}
	return out
}

// InheritedSlots returns the slot names contributed only by ancestors or
// mixins.
func (cv *ClassView) InheritedSlots() []string {
	own := make(map[string]bool)
	for _, sn := range cv.OwnSlots() {
		own[sn] = true
	}
	var out []string
	for _, sn := range cv.slotNames {
		if !own[sn] {
			out = append(out, sn)
		}
	}
	return out
}

// Rules returns the rules declared directly on the class. The rule engine
// combines these with ancestor rules at compile time.
func (cv *ClassView) Rules() []*schema.Rule { return cv.def.Rules }
