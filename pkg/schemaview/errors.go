package schemaview

import (
	"fmt"
	"strings"
)

// NotFoundError reports a reference to a schema element that does not exist.
type NotFoundError struct {
	Kind string // "class", "slot", "enum"
	Name string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found: %q", e.Kind, e.Name)
}

// CyclicInheritanceError reports a loop in is_a or mixin chains.
type CyclicInheritanceError struct {
	Cycle []string
}

func (e *CyclicInheritanceError) Error() string {
	return fmt.Sprintf("cyclic inheritance: %s", strings.Join(e.Cycle, " -> "))
}

// AmbiguousIdentifierError reports a class whose induced view carries more
// than one identifier slot.
type AmbiguousIdentifierError struct {
	Class string
	Slots []string
}

func (e *AmbiguousIdentifierError) Error() string {
	return fmt.Sprintf("class %q has multiple identifier slots: %s", e.Class, strings.Join(e.Slots, ", "))
}
