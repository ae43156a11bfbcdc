package expression

import (
	"errors"
	"fmt"
)

// Evaluation failure categories. Callers classify with errors.Is.
var (
	ErrUnknownVariable  = errors.New("unknown variable")
	ErrFieldNotFound    = errors.New("field not found")
	ErrNotAnObject      = errors.New("not an object")
	ErrUnknownFunction  = errors.New("unknown function")
	ErrArityMismatch    = errors.New("wrong number of arguments")
	ErrDivisionByZero   = errors.New("division by zero")
	ErrTypeMismatch     = errors.New("type mismatch")
	ErrMaxDepthExceeded = errors.New("maximum expression depth exceeded")
	ErrTimeout          = errors.New("expression evaluation timed out")
	ErrRegistryLocked   = errors.New("function registry is locked")
)

// ParseError reports malformed expression syntax with the offending
// position in the source text.
type ParseError struct {
	Expr    string
	Pos     int
	Message string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse error at offset %d: %s", e.Pos, e.Message)
}
