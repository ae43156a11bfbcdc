// Package constraints holds the stateless condition-check primitives shared
// by the validation pipeline and the rule engine: presence, equality,
// pattern, numeric range, enum membership, and boolean composition over
// partial slot constraints.
package constraints

import (
	"fmt"
	"regexp"
	"sync"

	"github.com/platinummonkey/lattice/pkg/schema"
)

// Failure describes one failed check in a machine-readable way.
type Failure struct {
	Check  string // "required", "pattern", "minimum_value", ...
	Detail string
}

func (f Failure) String() string { return fmt.Sprintf("%s: %s", f.Check, f.Detail) }

// compiled regexps are cached process-wide; pattern text is immutable.
var (
	patternMu    sync.RWMutex
	patternCache = make(map[string]*regexp.Regexp)
)

func compilePattern(pattern string) (*regexp.Regexp, error) {
	patternMu.RLock()
	re, ok := patternCache[pattern]
	patternMu.RUnlock()
	if ok {
		return re, nil
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, err
	}
	patternMu.Lock()
	patternCache[pattern] = re
	patternMu.Unlock()
	return re, nil
}

// IsPresent reports whether a value counts as present. nil is absent;
// empty strings and empty lists are present.
func IsPresent(v any) bool { return v != nil }

// ToNumber widens any supported numeric representation to float64.
func ToNumber(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	}
	return 0, false
}

// Equals compares two values with numeric widening, so int64(3) equals
// float64(3).
func Equals(a, b any) bool {
	if af, aok := ToNumber(a); aok {
		bf, bok := ToNumber(b)
		return bok && af == bf
	}
	switch av := a.(type) {
	case nil:
		return b == nil
	case string:
		bv, ok := b.(string)
		return ok && av == bv
	case bool:
		bv, ok := b.(bool)
		return ok && av == bv
	}
	return false
}

// MatchesPattern checks a string value against an anchored-as-written
// regular expression. Non-string values never match.
func MatchesPattern(v any, pattern string) (bool, error) {
	s, ok := v.(string)
	if !ok {
		return false, nil
	}
	re, err := compilePattern(pattern)
	if err != nil {
		return false, fmt.Errorf("invalid pattern %q: %w", pattern, err)
	}
	return re.MatchString(s), nil
}

// InRange checks numeric bounds. A nil bound is unbounded. Non-numeric
// values fail closed when any bound is set.
func InRange(v any, minimum, maximum *float64) (bool, string) {
	if minimum == nil && maximum == nil {
		return true, ""
	}
	n, ok := ToNumber(v)
	if !ok {
		return false, fmt.Sprintf("value %v is not numeric", v)
	}
	if minimum != nil && n < *minimum {
		return false, fmt.Sprintf("value %v is below minimum %v", n, *minimum)
	}
	if maximum != nil && n > *maximum {
		return false, fmt.Sprintf("value %v exceeds maximum %v", n, *maximum)
	}
	return true, ""
}

// MemberOf checks exact, case-sensitive membership in a permissible value
// list. No normalization is applied.
func MemberOf(v any, allowed []string) bool {
	s, ok := v.(string)
	if !ok {
		return false
	}
	for _, a := range allowed {
		if a == s {
			return true
		}
	}
	return false
}

// CheckCardinality verifies list length bounds.
func CheckCardinality(count int, minimum, maximum *int) (bool, string) {
	if minimum != nil && count < *minimum {
		return false, fmt.Sprintf("%d values, minimum cardinality is %d", count, *minimum)
	}
	if maximum != nil && count > *maximum {
		return false, fmt.Sprintf("%d values, maximum cardinality is %d", count, *maximum)
	}
	return true, ""
}

// ExprFunc evaluates an expression in the caller's context; it lets this
// package stay free of the expression engine while still honoring
// equals_expression conditions.
type ExprFunc func(expr string) (any, error)

// CheckSlotCondition evaluates the declarative parts of a partial slot
// condition against a value. expr may be nil, in which case
// equals_expression conditions are skipped. Returns one Failure per failed
// check; an empty slice means the condition holds.
func CheckSlotCondition(value any, cond *schema.SlotCondition, expr ExprFunc) ([]Failure, error) {
	if cond == nil {
		return nil, nil
	}
	var failures []Failure

	if cond.Required != nil {
		if *cond.Required && !IsPresent(value) {
			failures = append(failures, Failure{Check: "required", Detail: "value is missing"})
		}
		if !*cond.Required && IsPresent(value) {
			failures = append(failures, Failure{Check: "absent", Detail: "value must be absent"})
		}
	}

	// A value-level constraint cannot hold for an absent value.
	if !IsPresent(value) {
		if hasValueConstraints(cond) {
			failures = append(failures, Failure{Check: "present", Detail: "no value to check"})
		}
		return failures, nil
	}

	if cond.EqualsString != nil && !Equals(value, *cond.EqualsString) {
		failures = append(failures, Failure{
			Check:  "equals_string",
			Detail: fmt.Sprintf("value %v != %q", value, *cond.EqualsString),
		})
	}
	if cond.EqualsNumber != nil && !Equals(value, *cond.EqualsNumber) {
		failures = append(failures, Failure{
			Check:  "equals_number",
			Detail: fmt.Sprintf("value %v != %v", value, *cond.EqualsNumber),
		})
	}
	if cond.EqualsExpression != "" && expr != nil {
		expected, err := expr(cond.EqualsExpression)
		if err != nil {
			return failures, err
		}
		if !Equals(value, expected) {
			failures = append(failures, Failure{
				Check:  "equals_expression",
				Detail: fmt.Sprintf("value %v != computed %v", value, expected),
			})
		}
	}
	if cond.Pattern != "" {
		ok, err := MatchesPattern(value, cond.Pattern)
		if err != nil {
			return failures, err
		}
		if !ok {
			failures = append(failures, Failure{
				Check:  "pattern",
				Detail: fmt.Sprintf("value %v does not match %q", value, cond.Pattern),
			})
		}
	}
	if ok, detail := InRange(value, cond.MinimumValue, cond.MaximumValue); !ok {
		failures = append(failures, Failure{Check: "range", Detail: detail})
	}

	composed, err := checkComposition(value, cond, expr)
	if err != nil {
		return failures, err
	}
	failures = append(failures, composed...)
	return failures, nil
}

func hasValueConstraints(cond *schema.SlotCondition) bool {
	return cond.EqualsString != nil || cond.EqualsNumber != nil || cond.EqualsExpression != "" ||
		cond.Pattern != "" || cond.MinimumValue != nil || cond.MaximumValue != nil ||
		len(cond.AnyOf) > 0 || len(cond.AllOf) > 0 || len(cond.ExactlyOneOf) > 0 || len(cond.NoneOf) > 0
}

// checkComposition applies any_of/all_of/exactly_one_of/none_of over the
// nested partial conditions.
func checkComposition(value any, cond *schema.SlotCondition, expr ExprFunc) ([]Failure, error) {
	var failures []Failure

	if len(cond.AnyOf) > 0 {
		passed, _, err := countPassing(value, cond.AnyOf, expr)
		if err != nil {
			return nil, err
		}
		if passed == 0 {
			failures = append(failures, Failure{
				Check:  "any_of",
				Detail: fmt.Sprintf("none of %d branches passed", len(cond.AnyOf)),
			})
		}
	}
	if len(cond.AllOf) > 0 {
		passed, failed, err := countPassing(value, cond.AllOf, expr)
		if err != nil {
			return nil, err
		}
		if passed < len(cond.AllOf) {
			failures = append(failures, Failure{
				Check:  "all_of",
				Detail: fmt.Sprintf("branches %v failed", failed),
			})
		}
	}
	if len(cond.ExactlyOneOf) > 0 {
		passed, _, err := countPassing(value, cond.ExactlyOneOf, expr)
		if err != nil {
			return nil, err
		}
		if passed != 1 {
			failures = append(failures, Failure{
				Check:  "exactly_one_of",
				Detail: fmt.Sprintf("%d branches passed, expected exactly 1", passed),
			})
		}
	}
	if len(cond.NoneOf) > 0 {
		passed, _, err := countPassing(value, cond.NoneOf, expr)
		if err != nil {
			return nil, err
		}
		if passed > 0 {
			failures = append(failures, Failure{
				Check:  "none_of",
				Detail: fmt.Sprintf("%d branches passed, expected none", passed),
			})
		}
	}
	return failures, nil
}

// countPassing evaluates each branch condition and returns how many held,
// plus the indices of failing branches.
func countPassing(value any, branches []*schema.SlotCondition, expr ExprFunc) (int, []int, error) {
	passed := 0
	var failed []int
	for i, branch := range branches {
		fs, err := CheckSlotCondition(value, branch, expr)
		if err != nil {
			return 0, nil, err
		}
		if len(fs) == 0 {
			passed++
		} else {
			failed = append(failed, i)
		}
	}
	return passed, failed, nil
}
