package validator

import (
	"fmt"

	"github.com/google/uuid"
)

// Severity classifies a validation issue. Ordering is ascending badness.
type Severity int

const (
	SeverityInfo Severity = iota
	SeverityWarning
	SeverityError
	SeverityCritical
)

func (s Severity) String() string {
	switch s {
	case SeverityInfo:
		return "INFO"
	case SeverityWarning:
		return "WARNING"
	case SeverityError:
		return "ERROR"
	case SeverityCritical:
		return "CRITICAL"
	}
	return fmt.Sprintf("SEVERITY(%d)", int(s))
}

// Machine-readable issue codes.
const (
	CodeRequiredMissing      = "REQUIRED_MISSING"
	CodeRecommendedMissing   = "RECOMMENDED_MISSING"
	CodeTypeMismatch         = "TYPE_MISMATCH"
	CodeExpectedList         = "EXPECTED_LIST"
	CodeCardinality          = "CARDINALITY_VIOLATION"
	CodePatternMismatch      = "PATTERN_MISMATCH"
	CodeValueOutOfRange      = "VALUE_OUT_OF_RANGE"
	CodeEqualsViolation      = "EQUALS_VIOLATION"
	CodePermissibleValue     = "PERMISSIBLE_VALUE_VIOLATION"
	CodeCompositionFailed    = "COMPOSITION_FAILED"
	CodeEqualsExpression     = "EQUALS_EXPRESSION_MISMATCH"
	CodeExpressionError      = "EXPRESSION_EVALUATION_ERROR"
	CodeRuleViolation        = "RULE_VIOLATION"
	CodeRuleEvaluationError  = "RULE_EVALUATION_ERROR"
	CodeUnknownRange         = "UNKNOWN_RANGE"
	CodeUnknownField         = "UNKNOWN_FIELD"
	CodeMaxDepthExceeded     = "MAX_RECURSION_DEPTH_EXCEEDED"
	CodeAbstractInstantiated = "ABSTRACT_CLASS_INSTANTIATED"
)

// Issue is one validation finding.
type Issue struct {
	Severity Severity       `json:"severity" yaml:"severity"`
	Message  string         `json:"message" yaml:"message"`
	Path     string         `json:"path,omitempty" yaml:"path,omitempty"`
	Code     string         `json:"code,omitempty" yaml:"code,omitempty"`
	Context  map[string]any `json:"context,omitempty" yaml:"context,omitempty"`
}

func (i *Issue) String() string {
	if i.Path != "" {
		return fmt.Sprintf("[%s] %s at %s: %s", i.Severity, i.Code, i.Path, i.Message)
	}
	return fmt.Sprintf("[%s] %s: %s", i.Severity, i.Code, i.Message)
}

// Report aggregates the issues from one validate call. Reports are created
// fresh per call and immutable once returned.
type Report struct {
	// ID correlates a report with log output.
	ID        string   `json:"id" yaml:"id"`
	ClassName string   `json:"class_name" yaml:"class_name"`
	Issues    []*Issue `json:"issues" yaml:"issues"`
	// Truncated is set when the issue budget was exhausted; the report is
	// still marked invalid but later issues were dropped.
	Truncated bool `json:"truncated,omitempty" yaml:"truncated,omitempty"`
}

func newReport(className string) *Report {
	return &Report{
		ID:        uuid.NewString(),
		ClassName: className,
		Issues:    make([]*Issue, 0),
	}
}

// Valid reports whether the instance passed: no Error or Critical issues
// and no truncation (a truncated report may be hiding errors).
func (r *Report) Valid() bool {
	if r.Truncated {
		return false
	}
	for _, issue := range r.Issues {
		if issue.Severity >= SeverityError {
			return false
		}
	}
	return true
}

// Summary returns the issue count per severity.
func (r *Report) Summary() map[Severity]int {
	out := make(map[Severity]int)
	for _, issue := range r.Issues {
		out[issue.Severity]++
	}
	return out
}

// IssuesAtOrAbove returns issues with at least the given severity.
func (r *Report) IssuesAtOrAbove(s Severity) []*Issue {
	var out []*Issue
	for _, issue := range r.Issues {
		if issue.Severity >= s {
			out = append(out, issue)
		}
	}
	return out
}
