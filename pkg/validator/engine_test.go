package validator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/platinummonkey/lattice/pkg/schema"
	"github.com/platinummonkey/lattice/pkg/schemaview"
)

func boolPtr(b bool) *bool        { return &b }
func floatPtr(f float64) *float64 { return &f }
func intPtr(i int) *int           { return &i }

func testSchema() *schema.SchemaDefinition {
	return &schema.SchemaDefinition{
		Name: "people",
		Classes: map[string]*schema.ClassDefinition{
			"Person": {
				Name: "Person",
				Attributes: map[string]*schema.SlotDefinition{
					"id":   {Identifier: boolPtr(true), Range: "string"},
					"name": {Required: boolPtr(true), Range: "string"},
					"email": {
						Recommended: boolPtr(true),
						Pattern:     `^\S+@\S+\.\S+$`,
					},
					"age": {
						Range:        "integer",
						MinimumValue: floatPtr(0),
						MaximumValue: floatPtr(150),
					},
					"status": {Range: "StatusEnum"},
					"addresses": {
						Range:              "Address",
						Multivalued:        boolPtr(true),
						MaximumCardinality: intPtr(2),
					},
					"best_friend":   {Range: "Person"},
					"guardian_name": {Range: "string"},
				},
				Rules: []*schema.Rule{{
					Title: "minors need a guardian",
					Preconditions: &schema.RuleConditions{
						SlotConditions: map[string]*schema.SlotCondition{
							"age": {MaximumValue: floatPtr(17)},
						},
					},
					Postconditions: &schema.RuleConditions{
						SlotConditions: map[string]*schema.SlotCondition{
							"guardian_name": {Required: boolPtr(true)},
						},
					},
				}},
			},
			"Address": {
				Name: "Address",
				Attributes: map[string]*schema.SlotDefinition{
					"street": {Required: boolPtr(true), Range: "string"},
					"city":   {Required: boolPtr(true), Range: "string"},
				},
			},
			"Shape": {
				Name:     "Shape",
				Abstract: true,
				Attributes: map[string]*schema.SlotDefinition{
					"label": {Range: "string"},
				},
			},
		},
		Enums: map[string]*schema.EnumDefinition{
			"StatusEnum": {
				Name: "StatusEnum",
				PermissibleValues: []schema.PermissibleValue{
					{Text: "ACTIVE"}, {Text: "INACTIVE"},
				},
			},
		},
	}
}

func validPerson() map[string]any {
	return map[string]any{
		"id":    "P1",
		"name":  "Ada",
		"email": "ada@example.com",
		"age":   36.0,
	}
}

func issueCodes(r *Report) []string {
	out := make([]string, len(r.Issues))
	for i, issue := range r.Issues {
		out[i] = issue.Code
	}
	return out
}

func TestValidate_ValidInstance(t *testing.T) {
	e := NewEngine(testSchema(), nil, nil)

	report, err := e.Validate(validPerson(), "Person")
	require.NoError(t, err)
	assert.True(t, report.Valid(), "issues: %v", report.Issues)
	assert.Empty(t, report.Issues)
	assert.NotEmpty(t, report.ID)
	assert.Equal(t, "Person", report.ClassName)
}

func TestValidate_RequiredMissing(t *testing.T) {
	e := NewEngine(testSchema(), nil, nil)
	inst := validPerson()
	delete(inst, "name")

	report, err := e.Validate(inst, "Person")
	require.NoError(t, err)
	assert.False(t, report.Valid())
	assert.Contains(t, issueCodes(report), CodeRequiredMissing)
}

func TestValidate_RecommendedMissingIsWarning(t *testing.T) {
	e := NewEngine(testSchema(), nil, nil)
	inst := validPerson()
	delete(inst, "email")

	report, err := e.Validate(inst, "Person")
	require.NoError(t, err)
	// A warning does not invalidate the instance.
	assert.True(t, report.Valid())
	require.Len(t, report.Issues, 1)
	assert.Equal(t, CodeRecommendedMissing, report.Issues[0].Code)
	assert.Equal(t, SeverityWarning, report.Issues[0].Severity)
}

func TestValidate_PatternMismatch(t *testing.T) {
	e := NewEngine(testSchema(), nil, nil)
	inst := validPerson()
	inst["email"] = "not-an-email"

	report, err := e.Validate(inst, "Person")
	require.NoError(t, err)
	assert.False(t, report.Valid())
	require.Len(t, report.Issues, 1)
	assert.Equal(t, CodePatternMismatch, report.Issues[0].Code)
	assert.Equal(t, "email", report.Issues[0].Path)
}

func TestValidate_RangeViolations(t *testing.T) {
	e := NewEngine(testSchema(), nil, nil)

	inst := validPerson()
	inst["age"] = 200.0
	report, err := e.Validate(inst, "Person")
	require.NoError(t, err)
	assert.Contains(t, issueCodes(report), CodeValueOutOfRange)

	inst = validPerson()
	inst["age"] = "thirty"
	report, err = e.Validate(inst, "Person")
	require.NoError(t, err)
	assert.Contains(t, issueCodes(report), CodeTypeMismatch)

	// A whole float is an acceptable integer; JSON numbers decode as float64.
	inst = validPerson()
	inst["age"] = 30.5
	report, err = e.Validate(inst, "Person")
	require.NoError(t, err)
	assert.Contains(t, issueCodes(report), CodeTypeMismatch)
}

func TestValidate_EnumMembership(t *testing.T) {
	e := NewEngine(testSchema(), nil, nil)

	inst := validPerson()
	inst["status"] = "ACTIVE"
	report, err := e.Validate(inst, "Person")
	require.NoError(t, err)
	assert.True(t, report.Valid())

	// Exact match only; no case normalization.
	inst["status"] = "active"
	report, err = e.Validate(inst, "Person")
	require.NoError(t, err)
	assert.Contains(t, issueCodes(report), CodePermissibleValue)
}

func TestValidate_MultivaluedSlots(t *testing.T) {
	e := NewEngine(testSchema(), nil, nil)

	inst := validPerson()
	inst["addresses"] = map[string]any{"street": "1 Main", "city": "Springfield"}
	report, err := e.Validate(inst, "Person")
	require.NoError(t, err)
	assert.Contains(t, issueCodes(report), CodeExpectedList)

	inst = validPerson()
	inst["addresses"] = []any{
		map[string]any{"street": "1 Main", "city": "Springfield"},
		map[string]any{"street": "2 Main", "city": "Springfield"},
		map[string]any{"street": "3 Main", "city": "Springfield"},
	}
	report, err = e.Validate(inst, "Person")
	require.NoError(t, err)
	assert.Contains(t, issueCodes(report), CodeCardinality)
}

func TestValidate_NestedObjects(t *testing.T) {
	e := NewEngine(testSchema(), nil, nil)

	inst := validPerson()
	inst["addresses"] = []any{
		map[string]any{"street": "1 Main"}, // city missing
	}
	report, err := e.Validate(inst, "Person")
	require.NoError(t, err)
	assert.False(t, report.Valid())
	require.Len(t, report.Issues, 1)
	assert.Equal(t, CodeRequiredMissing, report.Issues[0].Code)
	assert.Equal(t, "addresses[0].city", report.Issues[0].Path)
}

func TestValidate_ClassReferences(t *testing.T) {
	e := NewEngine(testSchema(), nil, nil)

	// Person has an identifier, so a string reference is acceptable.
	inst := validPerson()
	inst["best_friend"] = "P2"
	report, err := e.Validate(inst, "Person")
	require.NoError(t, err)
	assert.True(t, report.Valid(), "issues: %v", report.Issues)

	// An embedded object validates recursively.
	inst["best_friend"] = map[string]any{"id": "P2"} // name missing
	report, err = e.Validate(inst, "Person")
	require.NoError(t, err)
	assert.Contains(t, issueCodes(report), CodeRequiredMissing)

	// Address has no identifier, so a reference string is rejected.
	inst = validPerson()
	inst["addresses"] = []any{"some-address-id"}
	report, err = e.Validate(inst, "Person")
	require.NoError(t, err)
	assert.Contains(t, issueCodes(report), CodeTypeMismatch)
}

func TestValidate_UnknownFieldWarning(t *testing.T) {
	e := NewEngine(testSchema(), nil, nil)

	inst := validPerson()
	inst["nickname"] = "Addie"
	report, err := e.Validate(inst, "Person")
	require.NoError(t, err)
	assert.True(t, report.Valid())
	require.Len(t, report.Issues, 1)
	assert.Equal(t, CodeUnknownField, report.Issues[0].Code)
	assert.Equal(t, SeverityWarning, report.Issues[0].Severity)
	assert.Equal(t, "nickname", report.Issues[0].Path)
}

func TestValidate_AbstractClass(t *testing.T) {
	e := NewEngine(testSchema(), nil, nil)

	report, err := e.Validate(map[string]any{"label": "x"}, "Shape")
	require.NoError(t, err)
	assert.False(t, report.Valid())
	assert.Contains(t, issueCodes(report), CodeAbstractInstantiated)
}

func TestValidate_RuleTriggering(t *testing.T) {
	e := NewEngine(testSchema(), nil, nil)

	inst := map[string]any{"id": "P9", "name": "Kim", "age": 12.0}
	report, err := e.Validate(inst, "Person")
	require.NoError(t, err)
	assert.False(t, report.Valid())
	var ruleIssue *Issue
	for _, issue := range report.Issues {
		if issue.Code == CodeRuleViolation {
			ruleIssue = issue
		}
	}
	require.NotNil(t, ruleIssue)
	assert.Equal(t, "guardian_name", ruleIssue.Path)
	assert.Equal(t, "minors need a guardian", ruleIssue.Context["rule"])

	inst["guardian_name"] = "Pat"
	report, err = e.Validate(inst, "Person")
	require.NoError(t, err)
	for _, issue := range report.Issues {
		assert.NotEqual(t, CodeRuleViolation, issue.Code)
	}
}

func TestValidate_NestedRuleSeesDocumentRoot(t *testing.T) {
	sd := &schema.SchemaDefinition{
		Name: "orders",
		Classes: map[string]*schema.ClassDefinition{
			"Order": {
				Name: "Order",
				Attributes: map[string]*schema.SlotDefinition{
					"total": {Range: "float"},
					"lines": {Range: "Line", Multivalued: boolPtr(true)},
				},
			},
			"Line": {
				Name: "Line",
				Attributes: map[string]*schema.SlotDefinition{
					"amount": {Range: "float"},
				},
				Rules: []*schema.Rule{{
					Title: "line stays within the order total",
					Postconditions: &schema.RuleConditions{
						ExpressionConditions: []string{"{amount} <= {root.total} and {amount} <= {parent.total}"},
					},
				}},
			},
		},
	}
	e := NewEngine(sd, nil, nil)

	report, err := e.Validate(map[string]any{
		"total": 100.0,
		"lines": []any{
			map[string]any{"amount": 50.0},
			map[string]any{"amount": 150.0},
		},
	}, "Order")
	require.NoError(t, err)
	assert.False(t, report.Valid())
	require.Len(t, report.Issues, 1)
	assert.Equal(t, CodeRuleViolation, report.Issues[0].Code)
	assert.Equal(t, "lines[1]", report.Issues[0].Path)
}

func TestValidate_NonObjectInstance(t *testing.T) {
	e := NewEngine(testSchema(), nil, nil)

	report, err := e.Validate("just a string", "Person")
	require.NoError(t, err)
	assert.False(t, report.Valid())
	assert.Contains(t, issueCodes(report), CodeTypeMismatch)
}

func TestValidate_UnknownClass(t *testing.T) {
	e := NewEngine(testSchema(), nil, nil)

	_, err := e.Validate(map[string]any{}, "Ghost")
	require.Error(t, err)
	var nf *schemaview.NotFoundError
	assert.ErrorAs(t, err, &nf)
}

func TestValidate_FailFast(t *testing.T) {
	opts := DefaultOptions()
	opts.FailFast = true
	opts.CollectWarnings = false
	e := NewEngine(testSchema(), opts, nil)

	inst := map[string]any{} // several required/rule violations at once
	report, err := e.Validate(inst, "Person")
	require.NoError(t, err)
	assert.False(t, report.Valid())
	assert.Len(t, report.Issues, 1)
	assert.Equal(t, CodeRequiredMissing, report.Issues[0].Code)
}

func TestValidate_MaxErrorsTruncation(t *testing.T) {
	opts := DefaultOptions()
	opts.MaxErrors = 2
	e := NewEngine(testSchema(), opts, nil)

	inst := validPerson()
	inst["email"] = "bad"
	inst["age"] = 999.0
	inst["status"] = "bogus"
	delete(inst, "name")

	report, err := e.Validate(inst, "Person")
	require.NoError(t, err)
	assert.True(t, report.Truncated)
	assert.False(t, report.Valid())
	assert.Len(t, report.Issues, 2)
}

func TestValidate_WarningsSuppressed(t *testing.T) {
	opts := DefaultOptions()
	opts.CollectWarnings = false
	e := NewEngine(testSchema(), opts, nil)

	inst := validPerson()
	delete(inst, "email")    // recommended warning
	inst["nickname"] = "..." // unknown field warning
	report, err := e.Validate(inst, "Person")
	require.NoError(t, err)
	assert.Empty(t, report.Issues)
	assert.True(t, report.Valid())
}

func TestValidate_RecursionDepthLimit(t *testing.T) {
	opts := DefaultOptions()
	opts.MaxRecursionDepth = 3
	e := NewEngine(testSchema(), opts, nil)

	// Build a chain of nested best_friend objects deeper than the limit.
	inst := validPerson()
	cur := inst
	for i := 0; i < 6; i++ {
		friend := map[string]any{"id": "P", "name": "N"}
		cur["best_friend"] = friend
		cur = friend
	}
	report, err := e.Validate(inst, "Person")
	require.NoError(t, err)
	assert.Contains(t, issueCodes(report), CodeMaxDepthExceeded)
}

func TestValidate_Idempotent(t *testing.T) {
	e := NewEngine(testSchema(), nil, nil)
	inst := validPerson()
	inst["email"] = "bad"
	delete(inst, "name")

	first, err := e.Validate(inst, "Person")
	require.NoError(t, err)
	second, err := e.Validate(inst, "Person")
	require.NoError(t, err)

	assert.Equal(t, issueCodes(first), issueCodes(second))
	assert.NotEqual(t, first.ID, second.ID)
}

func TestCompileRules_Preflight(t *testing.T) {
	sd := testSchema()
	sd.Classes["Person"].Rules = append(sd.Classes["Person"].Rules, &schema.Rule{
		Title: "broken",
		Postconditions: &schema.RuleConditions{
			ExpressionConditions: []string{"1 +"},
		},
	})
	e := NewEngine(sd, nil, nil)

	err := e.CompileRules("Person")
	require.Error(t, err)

	// Validation still produces a report; the broken rule set downgrades to
	// an evaluation-error issue instead of failing the call.
	report, err := e.Validate(validPerson(), "Person")
	require.NoError(t, err)
	assert.Contains(t, issueCodes(report), CodeRuleEvaluationError)
}

func TestReport_Summary(t *testing.T) {
	e := NewEngine(testSchema(), nil, nil)
	inst := validPerson()
	delete(inst, "name")  // error
	delete(inst, "email") // warning

	report, err := e.Validate(inst, "Person")
	require.NoError(t, err)
	summary := report.Summary()
	assert.Equal(t, 1, summary[SeverityError])
	assert.Equal(t, 1, summary[SeverityWarning])
	assert.Len(t, report.IssuesAtOrAbove(SeverityError), 1)
}
