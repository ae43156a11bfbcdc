// Package validator checks instance data against resolved class
// definitions and produces severity-classified reports.
//
// # Overview
//
// The engine runs a fixed pipeline per slot of the induced class:
//
//   - structural checks: required slots, declared range conformance,
//     multivalued shape, cardinality bounds
//   - value checks: regex patterns, numeric bounds, enum membership
//   - boolean composition: any_of / all_of / exactly_one_of / none_of over
//     partial constraints
//   - computed values: equals_expression assertions via the expression
//     evaluator
//   - class rules via the rule engine
//
// # Error Model
//
// Invalid data never returns a Go error; it always yields a Report with
// issues. Hard errors are reserved for unusable schemas (unknown class,
// cyclic inheritance). A failure while evaluating a rule or expression
// against one instance is downgraded to an Error issue with the codes
// EXPRESSION_EVALUATION_ERROR or RULE_EVALUATION_ERROR, so one broken
// constraint does not hide the rest of the findings.
//
// # Usage Example
//
//	engine := validator.NewEngine(sch, validator.DefaultOptions(), nil)
//	report, err := engine.Validate(instance, "Person")
//	if err != nil {
//		// the schema itself is broken
//	}
//	for _, issue := range report.Issues {
//		fmt.Println(issue)
//	}
//
// # Concurrency
//
// One engine serves one schema and any number of concurrent Validate calls;
// mutable state is per call. ValidateAll fans independent instances out to
// a bounded worker pool.
package validator
