package rules

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/platinummonkey/lattice/pkg/expression"
	"github.com/platinummonkey/lattice/pkg/schema"
	"github.com/platinummonkey/lattice/pkg/schemaview"
)

func boolPtr(b bool) *bool        { return &b }
func floatPtr(f float64) *float64 { return &f }
func intPtr(i int) *int           { return &i }

func newTestEngine(t *testing.T, classes map[string]*schema.ClassDefinition) *Engine {
	t.Helper()
	sd := &schema.SchemaDefinition{
		Classes: classes,
		Slots: map[string]*schema.SlotDefinition{
			"age":           {Range: "integer"},
			"guardian_name": {Range: "string"},
			"status":        {Range: "string"},
		},
	}
	view := schemaview.New(sd, nil)
	eval := expression.NewEvaluator(expression.DefaultConfig(), nil)
	return NewEngine(view, eval, nil, nil)
}

func minorGuardianRule() *schema.Rule {
	return &schema.Rule{
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
	}
}

func TestEvaluate_Triggering(t *testing.T) {
	engine := newTestEngine(t, map[string]*schema.ClassDefinition{
		"Person": {
			Name:  "Person",
			Slots: []string{"age", "guardian_name"},
			Rules: []*schema.Rule{minorGuardianRule()},
		},
	})

	tests := []struct {
		name     string
		instance map[string]any
		findings int
	}{
		{"minor without guardian", map[string]any{"age": 10.0}, 1},
		{"minor with guardian", map[string]any{"age": 10.0, "guardian_name": "Pat"}, 0},
		{"adult without guardian", map[string]any{"age": 30.0}, 0},
		{"age absent", map[string]any{}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			findings, err := engine.Evaluate("Person", tt.instance)
			require.NoError(t, err)
			assert.Len(t, findings, tt.findings)
			if tt.findings > 0 {
				assert.Equal(t, "minors need a guardian", findings[0].Rule)
				assert.Equal(t, "guardian_name", findings[0].Slot)
				assert.False(t, findings[0].EvaluationError)
			}
		})
	}
}

func TestEvaluate_ExpressionConditions(t *testing.T) {
	engine := newTestEngine(t, map[string]*schema.ClassDefinition{
		"Account": {
			Name:  "Account",
			Slots: []string{"status"},
			Attributes: map[string]*schema.SlotDefinition{
				"balance": {Range: "float"},
				"limit":   {Range: "float"},
			},
			Rules: []*schema.Rule{{
				Title: "active accounts stay within limit",
				Preconditions: &schema.RuleConditions{
					ExpressionConditions: []string{`{status} == "active"`},
				},
				Postconditions: &schema.RuleConditions{
					ExpressionConditions: []string{"{balance} <= {limit}"},
				},
			}},
		},
	})

	findings, err := engine.Evaluate("Account", map[string]any{
		"status": "active", "balance": 150.0, "limit": 100.0,
	})
	require.NoError(t, err)
	require.Len(t, findings, 1)
	assert.Equal(t, "{balance} <= {limit}", findings[0].Expression)

	findings, err = engine.Evaluate("Account", map[string]any{
		"status": "closed", "balance": 150.0, "limit": 100.0,
	})
	require.NoError(t, err)
	assert.Empty(t, findings)
}

func TestEvaluate_ElseConditions(t *testing.T) {
	engine := newTestEngine(t, map[string]*schema.ClassDefinition{
		"Person": {
			Name:  "Person",
			Slots: []string{"age", "status"},
			Rules: []*schema.Rule{{
				Title: "adults declare a status",
				Preconditions: &schema.RuleConditions{
					SlotConditions: map[string]*schema.SlotCondition{
						"age": {MaximumValue: floatPtr(17)},
					},
				},
				Postconditions: &schema.RuleConditions{
					SlotConditions: map[string]*schema.SlotCondition{
						"status": {Required: boolPtr(false)},
					},
				},
				ElseConditions: &schema.RuleConditions{
					SlotConditions: map[string]*schema.SlotCondition{
						"status": {Required: boolPtr(true)},
					},
				},
			}},
		},
	})

	// Adult without status: preconditions fail, else branch applies.
	findings, err := engine.Evaluate("Person", map[string]any{"age": 40.0})
	require.NoError(t, err)
	require.Len(t, findings, 1)
	assert.Equal(t, "status", findings[0].Slot)

	// Minor with status: triggered, status must be absent.
	findings, err = engine.Evaluate("Person", map[string]any{"age": 10.0, "status": "employed"})
	require.NoError(t, err)
	require.Len(t, findings, 1)

	// Adult with status satisfies the else branch.
	findings, err = engine.Evaluate("Person", map[string]any{"age": 40.0, "status": "employed"})
	require.NoError(t, err)
	assert.Empty(t, findings)
}

func TestEvaluateScoped_RootAndParent(t *testing.T) {
	engine := newTestEngine(t, map[string]*schema.ClassDefinition{
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
	})

	order := map[string]any{"total": 100.0}

	findings, err := engine.EvaluateScoped("Line", map[string]any{"amount": 150.0}, Scope{Root: order, Parent: order})
	require.NoError(t, err)
	require.Len(t, findings, 1)
	assert.Equal(t, "line stays within the order total", findings[0].Rule)

	findings, err = engine.EvaluateScoped("Line", map[string]any{"amount": 50.0}, Scope{Root: order, Parent: order})
	require.NoError(t, err)
	assert.Empty(t, findings)
}

func TestEvaluate_RootDefaultsToInstance(t *testing.T) {
	engine := newTestEngine(t, map[string]*schema.ClassDefinition{
		"Person": {
			Name:  "Person",
			Slots: []string{"age"},
			Rules: []*schema.Rule{{
				Title: "adults only",
				Postconditions: &schema.RuleConditions{
					ExpressionConditions: []string{"{root.age} >= 18"},
				},
			}},
		},
	})

	findings, err := engine.Evaluate("Person", map[string]any{"age": 30.0})
	require.NoError(t, err)
	assert.Empty(t, findings)

	findings, err = engine.Evaluate("Person", map[string]any{"age": 12.0})
	require.NoError(t, err)
	require.Len(t, findings, 1)
}

func TestEvaluate_Deactivated(t *testing.T) {
	rule := minorGuardianRule()
	rule.Deactivated = true
	engine := newTestEngine(t, map[string]*schema.ClassDefinition{
		"Person": {Name: "Person", Slots: []string{"age", "guardian_name"}, Rules: []*schema.Rule{rule}},
	})

	findings, err := engine.Evaluate("Person", map[string]any{"age": 10.0})
	require.NoError(t, err)
	assert.Empty(t, findings)
}

func TestEvaluate_PriorityOrder(t *testing.T) {
	low := &schema.Rule{
		Title:          "low",
		Priority:       intPtr(1),
		Postconditions: &schema.RuleConditions{ExpressionConditions: []string{"false"}},
	}
	high := &schema.Rule{
		Title:          "high",
		Priority:       intPtr(10),
		Postconditions: &schema.RuleConditions{ExpressionConditions: []string{"false"}},
	}
	engine := newTestEngine(t, map[string]*schema.ClassDefinition{
		"Thing": {Name: "Thing", Rules: []*schema.Rule{low, high}},
	})

	findings, err := engine.Evaluate("Thing", map[string]any{})
	require.NoError(t, err)
	require.Len(t, findings, 2)
	assert.Equal(t, "high", findings[0].Rule)
	assert.Equal(t, "low", findings[1].Rule)
}

func TestEvaluate_UnconditionalRule(t *testing.T) {
	// No preconditions means the rule always triggers.
	engine := newTestEngine(t, map[string]*schema.ClassDefinition{
		"Thing": {
			Name: "Thing",
			Rules: []*schema.Rule{{
				Postconditions: &schema.RuleConditions{
					SlotConditions: map[string]*schema.SlotCondition{
						"status": {Required: boolPtr(true)},
					},
				},
			}},
		},
	})

	findings, err := engine.Evaluate("Thing", map[string]any{})
	require.NoError(t, err)
	require.Len(t, findings, 1)
	assert.Equal(t, "rule[0]", findings[0].Rule)
}

func TestEvaluate_PreconditionEvalError(t *testing.T) {
	engine := newTestEngine(t, map[string]*schema.ClassDefinition{
		"Thing": {
			Name: "Thing",
			Rules: []*schema.Rule{{
				Title: "broken precondition",
				Preconditions: &schema.RuleConditions{
					ExpressionConditions: []string{"{missing} > 1"},
				},
				Postconditions: &schema.RuleConditions{
					ExpressionConditions: []string{"false"},
				},
			}},
		},
	})

	findings, err := engine.Evaluate("Thing", map[string]any{})
	require.NoError(t, err)
	require.Len(t, findings, 1)
	assert.True(t, findings[0].EvaluationError)
}

func TestCompileClass_ParseErrorFailsCompilation(t *testing.T) {
	engine := newTestEngine(t, map[string]*schema.ClassDefinition{
		"Thing": {
			Name: "Thing",
			Rules: []*schema.Rule{{
				Title: "bad syntax",
				Postconditions: &schema.RuleConditions{
					ExpressionConditions: []string{"1 +"},
				},
			}},
		},
	})

	_, err := engine.CompileClass("Thing")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bad syntax")
}

func TestCompileClass_InheritedRules(t *testing.T) {
	engine := newTestEngine(t, map[string]*schema.ClassDefinition{
		"Person":  {Name: "Person", Slots: []string{"age", "guardian_name"}, Rules: []*schema.Rule{minorGuardianRule()}},
		"Student": {Name: "Student", IsA: "Person"},
	})

	findings, err := engine.Evaluate("Student", map[string]any{"age": 12.0})
	require.NoError(t, err)
	require.Len(t, findings, 1)
}

func TestCompileClass_Cached(t *testing.T) {
	engine := newTestEngine(t, map[string]*schema.ClassDefinition{
		"Person": {Name: "Person", Slots: []string{"age", "guardian_name"}, Rules: []*schema.Rule{minorGuardianRule()}},
	})

	first, err := engine.CompileClass("Person")
	require.NoError(t, err)
	second, err := engine.CompileClass("Person")
	require.NoError(t, err)
	require.Len(t, first, 1)
	assert.Same(t, first[0], second[0])
}
