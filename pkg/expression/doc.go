// Package expression implements the sandboxed expression language used for
// computed-field assertions and rule conditions.
//
// # Overview
//
// The language covers numeric, string, boolean, and null literals; variable
// references written {name} or {name.field.subfield}; arithmetic (+ - * / %);
// comparisons (==, !=, <, <=, >, >=); short-circuit and/or/not; and calls to
// registered functions such as len(x) or contains(s, sub).
//
// # Usage Example
//
//	eval := expression.NewEvaluator(expression.DefaultConfig(), nil)
//	out, err := eval.Evaluate(`{parent.first_name} + " " + {parent.last_name}`, map[string]any{
//		"parent": map[string]any{"first_name": "Ada", "last_name": "Lovelace"},
//	})
//
// # Sandbox Guarantees
//
// Evaluation is bounded by a configurable nesting depth and wall-clock
// timeout. The function registry can be locked after setup, after which no
// further functions may be registered; a locked registry gives a fixed,
// auditable function surface for a deployment.
//
// # Caching
//
// Parsed expressions are cached by source text in a bounded LRU. Cache hits
// skip re-parsing but always re-evaluate against the supplied context.
package expression
