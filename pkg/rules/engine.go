package rules

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/sirupsen/logrus"

	"github.com/platinummonkey/lattice/pkg/constraints"
	"github.com/platinummonkey/lattice/pkg/expression"
	"github.com/platinummonkey/lattice/pkg/schema"
	"github.com/platinummonkey/lattice/pkg/schemaview"
)

// Finding is one rule violation or evaluation failure for an instance.
type Finding struct {
	// Rule names the offending rule: its title, description, or rule[N].
	Rule string
	// Slot is the failing slot for slot-condition findings, "" otherwise.
	Slot string
	// Expression is the failing expression text, "" otherwise.
	Expression string
	Detail     string
	// EvaluationError marks findings caused by a broken rule rather than
	// invalid data.
	EvaluationError bool
}

// Config bounds the per-class compiled-rule cache.
type Config struct {
	EnableCache     bool
	CacheTTL        time.Duration
	CacheMaxEntries int
}

// DefaultConfig enables a small TTL-bounded cache.
func DefaultConfig() *Config {
	return &Config{
		EnableCache:     true,
		CacheTTL:        5 * time.Minute,
		CacheMaxEntries: 256,
	}
}

// Engine compiles and evaluates class rules. Safe for concurrent use.
type Engine struct {
	view  *schemaview.SchemaView
	eval  *expression.Evaluator
	log   *logrus.Logger
	cache *expirable.LRU[string, []*CompiledRule]
}

// NewEngine creates a rule engine over a resolved schema view. A nil config
// gets DefaultConfig; a nil logger gets a fresh logrus logger.
func NewEngine(view *schemaview.SchemaView, eval *expression.Evaluator, config *Config, log *logrus.Logger) *Engine {
	if config == nil {
		config = DefaultConfig()
	}
	if log == nil {
		log = logrus.New()
	}
	e := &Engine{view: view, eval: eval, log: log}
	if config.EnableCache && config.CacheMaxEntries > 0 {
		e.cache = expirable.NewLRU[string, []*CompiledRule](config.CacheMaxEntries, nil, config.CacheTTL)
	}
	return e
}

// CompiledRule is one rule with its expression conditions pre-parsed and
// its evaluation order resolved.
type CompiledRule struct {
	Rule     *schema.Rule
	Name     string
	Priority int

	pre  *compiledConditions
	post *compiledConditions
	els  *compiledConditions
}

type compiledConditions struct {
	slotNames []string
	slots     map[string]*schema.SlotCondition
	exprs     []compiledExpr
}

type compiledExpr struct {
	source string
	node   expression.Node
}

// CompileClass compiles the rules declared on a class, sorted into
// evaluation order. Malformed expressions fail compilation; that is a
// schema-authoring error, not a data finding.
func (e *Engine) CompileClass(className string) ([]*CompiledRule, error) {
	if e.cache != nil {
		if compiled, ok := e.cache.Get(className); ok {
			return compiled, nil
		}
	}

	cv, err := e.view.InducedClass(className)
	if err != nil {
		return nil, err
	}

	// Ancestor rules apply to subclass instances too. Farthest ancestor
	// first, own rules last, so declaration order matches specialization.
	var declared []*schema.Rule
	anc := cv.Ancestors()
	for i := len(anc) - 1; i >= 0; i-- {
		av, err := e.view.InducedClass(anc[i])
		if err != nil {
			return nil, err
		}
		declared = append(declared, av.Rules()...)
	}
	declared = append(declared, cv.Rules()...)

	var compiled []*CompiledRule
	for i, rule := range declared {
		cr, err := e.compileRule(rule, i)
		if err != nil {
			return nil, fmt.Errorf("class %q rule %s: %w", className, cr.Name, err)
		}
		compiled = append(compiled, cr)
	}

	// Higher priority first; ties keep declaration order.
	sort.SliceStable(compiled, func(a, b int) bool {
		return compiled[a].Priority > compiled[b].Priority
	})

	if e.cache != nil {
		e.cache.Add(className, compiled)
	}
	return compiled, nil
}

func (e *Engine) compileRule(rule *schema.Rule, index int) (*CompiledRule, error) {
	cr := &CompiledRule{Rule: rule, Name: ruleName(rule, index)}
	if rule.Priority != nil {
		cr.Priority = *rule.Priority
	}

	var err error
	if cr.pre, err = e.compileConditions(rule.Preconditions); err != nil {
		return cr, err
	}
	if cr.post, err = e.compileConditions(rule.Postconditions); err != nil {
		return cr, err
	}
	if cr.els, err = e.compileConditions(rule.ElseConditions); err != nil {
		return cr, err
	}
	return cr, nil
}

func (e *Engine) compileConditions(rc *schema.RuleConditions) (*compiledConditions, error) {
	if rc.IsEmpty() {
		return nil, nil
	}
	cc := &compiledConditions{slots: rc.SlotConditions}
	for name := range rc.SlotConditions {
		cc.slotNames = append(cc.slotNames, name)
	}
	sort.Strings(cc.slotNames)
	for _, src := range rc.ExpressionConditions {
		node, err := e.eval.Parse(src)
		if err != nil {
			return nil, err
		}
		cc.exprs = append(cc.exprs, compiledExpr{source: src, node: node})
	}
	return cc, nil
}

func ruleName(rule *schema.Rule, index int) string {
	if rule.Title != "" {
		return rule.Title
	}
	if rule.Description != "" {
		return rule.Description
	}
	return fmt.Sprintf("rule[%d]", index)
}

// Scope binds the document context for rule expressions. Root is the
// top-level instance and Parent the object enclosing the one under
// evaluation; either left nil defaults to the instance itself.
type Scope struct {
	Root   any
	Parent any
}

// Evaluate runs a class's compiled rules against a top-level instance and
// returns all findings, in rule evaluation order.
func (e *Engine) Evaluate(className string, instance map[string]any) ([]Finding, error) {
	return e.EvaluateScoped(className, instance, Scope{})
}

// EvaluateScoped evaluates rules for an instance nested inside a larger
// document, so rule expressions resolve root and parent against the
// document rather than the nested object.
func (e *Engine) EvaluateScoped(className string, instance map[string]any, scope Scope) ([]Finding, error) {
	compiled, err := e.CompileClass(className)
	if err != nil {
		return nil, err
	}
	return e.EvaluateCompiled(compiled, instance, scope), nil
}

// EvaluateCompiled runs pre-compiled rules against an instance.
func (e *Engine) EvaluateCompiled(compiled []*CompiledRule, instance map[string]any, scope Scope) []Finding {
	var findings []Finding
	vars := exprContext(instance, scope)

	for _, cr := range compiled {
		if cr.Rule.Deactivated {
			continue
		}

		triggered := true
		if cr.pre != nil {
			held, evalErr := e.conditionsHold(cr.pre, instance, vars)
			if evalErr != nil {
				findings = append(findings, Finding{
					Rule:            cr.Name,
					Detail:          evalErr.Error(),
					EvaluationError: true,
				})
				continue
			}
			triggered = held
		}

		target := cr.post
		if !triggered {
			target = cr.els
		}
		if target == nil {
			continue
		}
		findings = append(findings, e.checkConditions(cr, target, instance, vars)...)
	}
	return findings
}

// conditionsHold reports whether every condition in the set passes. Used
// for preconditions, where failure means "not triggered", not "invalid".
func (e *Engine) conditionsHold(cc *compiledConditions, instance map[string]any, vars map[string]any) (bool, error) {
	for _, slot := range cc.slotNames {
		failures, err := constraints.CheckSlotCondition(instance[slot], cc.slots[slot], e.slotExprFunc(vars, instance[slot]))
		if err != nil {
			return false, err
		}
		if len(failures) > 0 {
			return false, nil
		}
	}
	for _, ce := range cc.exprs {
		held, err := e.boolExpr(ce, vars)
		if err != nil {
			return false, err
		}
		if !held {
			return false, nil
		}
	}
	return true, nil
}

// checkConditions produces one finding per failing condition. Used for
// post- and else-conditions, where failure means the instance is invalid.
func (e *Engine) checkConditions(cr *CompiledRule, cc *compiledConditions, instance map[string]any, vars map[string]any) []Finding {
	var findings []Finding
	for _, slot := range cc.slotNames {
		failures, err := constraints.CheckSlotCondition(instance[slot], cc.slots[slot], e.slotExprFunc(vars, instance[slot]))
		if err != nil {
			findings = append(findings, Finding{
				Rule:            cr.Name,
				Slot:            slot,
				Detail:          err.Error(),
				EvaluationError: true,
			})
			continue
		}
		if len(failures) > 0 {
			details := make([]string, len(failures))
			for i, f := range failures {
				details[i] = f.String()
			}
			findings = append(findings, Finding{
				Rule:   cr.Name,
				Slot:   slot,
				Detail: strings.Join(details, "; "),
			})
		}
	}
	for _, ce := range cc.exprs {
		held, err := e.boolExpr(ce, vars)
		if err != nil {
			findings = append(findings, Finding{
				Rule:            cr.Name,
				Expression:      ce.source,
				Detail:          err.Error(),
				EvaluationError: true,
			})
			continue
		}
		if !held {
			findings = append(findings, Finding{
				Rule:       cr.Name,
				Expression: ce.source,
				Detail:     "expression evaluated to false",
			})
		}
	}
	return findings
}

func (e *Engine) boolExpr(ce compiledExpr, vars map[string]any) (bool, error) {
	out, err := e.eval.EvaluateNode(ce.node, vars)
	if err != nil {
		return false, fmt.Errorf("evaluating %q: %w", ce.source, err)
	}
	b, ok := out.(bool)
	if !ok {
		return false, fmt.Errorf("condition %q is not boolean (got %T)", ce.source, out)
	}
	return b, nil
}

// slotExprFunc builds the context for a slot condition's equals_expression:
// the rule variables plus value bound to the slot's current value.
func (e *Engine) slotExprFunc(vars map[string]any, value any) constraints.ExprFunc {
	return func(expr string) (any, error) {
		bound := make(map[string]any, len(vars)+1)
		for k, v := range vars {
			bound[k] = v
		}
		bound["value"] = value
		return e.eval.Evaluate(expr, bound)
	}
}

// exprContext exposes top-level instance fields as variables, plus root and
// parent resolved against the enclosing document.
func exprContext(instance map[string]any, scope Scope) map[string]any {
	vars := make(map[string]any, len(instance)+2)
	for k, v := range instance {
		vars[k] = v
	}
	root := scope.Root
	if root == nil {
		root = instance
	}
	parent := scope.Parent
	if parent == nil {
		parent = instance
	}
	vars["root"] = root
	vars["parent"] = parent
	return vars
}
