// Package rules evaluates class-level conditional constraints: when a
// rule's preconditions hold for an instance, its postconditions must also
// hold; otherwise any else-conditions must hold.
//
// Rules are compiled per class (expression conditions parsed up front) and
// evaluated in descending priority order, ties keeping declaration order.
// Evaluation is side-effect-free: rule order affects only the order of
// findings, never their content. Compiled rule sets can be cached per class
// with a TTL-bounded LRU.
//
// Failures to evaluate (bad expression at runtime, unresolvable reference)
// are reported as findings flagged EvaluationError so one broken rule does
// not hide the rest of the instance's findings.
package rules
