package validator

import (
	"fmt"
	"sort"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/platinummonkey/lattice/pkg/constraints"
	"github.com/platinummonkey/lattice/pkg/expression"
	"github.com/platinummonkey/lattice/pkg/rules"
	"github.com/platinummonkey/lattice/pkg/schema"
	"github.com/platinummonkey/lattice/pkg/schemaview"
)

// checkKind enumerates the closed set of validator kinds in the pipeline.
// Dispatch is a single switch so the pipeline is exhaustive-checkable.
type checkKind int

const (
	checkRequired checkKind = iota
	checkRange
	checkPattern
	checkEnum
	checkComposition
	checkComputed
	checkRule
)

// valueCheckOrder is the per-value portion of the pipeline, run for each
// present slot value after the required check.
var valueCheckOrder = [...]checkKind{checkRange, checkPattern, checkEnum, checkComposition, checkComputed}

// Engine validates instances against resolved class definitions. One engine
// serves one schema; it is safe for concurrent Validate calls.
type Engine struct {
	view    *schemaview.SchemaView
	eval    *expression.Evaluator
	rules   *rules.Engine
	opts    *Options
	log     *logrus.Logger
	metrics *Metrics
}

// NewEngine builds an engine (and its schema view) for one schema. A nil
// opts gets DefaultOptions, a nil logger a fresh logrus logger.
func NewEngine(sd *schema.SchemaDefinition, opts *Options, log *logrus.Logger) *Engine {
	if log == nil {
		log = logrus.New()
	}
	return NewEngineWithView(schemaview.New(sd, log), opts, log)
}

// NewEngineWithView builds an engine over an existing schema view, sharing
// its resolution cache with other consumers.
func NewEngineWithView(view *schemaview.SchemaView, opts *Options, log *logrus.Logger) *Engine {
	if opts == nil {
		opts = DefaultOptions()
	}
	if log == nil {
		log = logrus.New()
	}
	cacheSize := 0
	if opts.EnableCache {
		cacheSize = expression.DefaultCacheSize
	}
	eval := expression.NewEvaluator(expression.Config{
		MaxDepth:  opts.MaxExpressionDepth,
		Timeout:   opts.ExpressionTimeout,
		CacheSize: cacheSize,
	}, nil)
	ruleEngine := rules.NewEngine(view, eval, &rules.Config{
		EnableCache:     opts.EnableCache,
		CacheTTL:        opts.CacheTTL,
		CacheMaxEntries: opts.CacheMaxEntries,
	}, log)
	return &Engine{
		view:  view,
		eval:  eval,
		rules: ruleEngine,
		opts:  opts,
		log:   log,
	}
}

// View returns the engine's schema view.
func (e *Engine) View() *schemaview.SchemaView { return e.view }

// Evaluator returns the engine's expression evaluator, e.g. to register and
// lock custom functions before validating.
func (e *Engine) Evaluator() *expression.Evaluator { return e.eval }

// SetMetrics attaches prometheus metrics. Must be called before the engine
// is shared across goroutines.
func (e *Engine) SetMetrics(m *Metrics) { e.metrics = m }

// CompileRules pre-compiles a class's rules so schema-authoring errors
// surface before any data is validated.
func (e *Engine) CompileRules(className string) error {
	_, err := e.rules.CompileClass(className)
	return err
}

// Validate checks one instance against a class and returns a report.
// An error return means the schema itself is unusable (unknown class,
// cyclic inheritance); invalid data never returns an error.
func (e *Engine) Validate(instance any, className string) (*Report, error) {
	start := time.Now()

	cv, err := e.view.InducedClass(className)
	if err != nil {
		return nil, err
	}

	report := newReport(className)
	ctx := newValidationContext(e.opts, report, instance)
	e.validateAgainstClass(ctx, cv, instance, 0)

	elapsed := time.Since(start)
	if e.metrics != nil {
		e.metrics.observe(className, report, elapsed)
	}
	e.log.WithFields(logrus.Fields{
		"report":   report.ID,
		"class":    className,
		"issues":   len(report.Issues),
		"valid":    report.Valid(),
		"duration": elapsed,
	}).Debug("validated instance")

	return report, nil
}

// validateAgainstClass runs the full pipeline for one object value.
func (e *Engine) validateAgainstClass(ctx *validationContext, cv *schemaview.ClassView, value any, depth int) {
	if depth > e.opts.MaxRecursionDepth {
		ctx.add(SeverityError, CodeMaxDepthExceeded,
			fmt.Sprintf("nesting exceeds the maximum depth of %d", e.opts.MaxRecursionDepth), nil)
		return
	}

	obj, ok := value.(map[string]any)
	if !ok {
		ctx.add(SeverityError, CodeTypeMismatch,
			fmt.Sprintf("instance of class %q must be an object, got %T", cv.Name(), value), nil)
		return
	}

	if cv.IsAbstract() {
		ctx.add(SeverityError, CodeAbstractInstantiated,
			fmt.Sprintf("class %q is abstract and cannot be instantiated", cv.Name()), nil)
	}

	ctx.pushParent(obj)
	defer ctx.popParent()

	for _, slotName := range cv.SlotNames() {
		if ctx.stopped {
			return
		}
		slot := cv.Slot(slotName)
		slotValue, present := obj[slotName]
		ctx.pushField(slotName)
		e.validateSlot(ctx, slot, slotValue, present, depth)
		ctx.pop()
	}

	e.reportUnknownFields(ctx, cv, obj)

	if !ctx.stopped {
		e.runCheck(checkRule, ctx, cv, obj)
	}
}

// validateSlot applies the required check, then the per-value checks for
// each value of the slot.
func (e *Engine) validateSlot(ctx *validationContext, slot *schema.SlotDefinition, value any, present bool, depth int) {
	if !present || value == nil {
		if slot.IsRequired() {
			ctx.add(SeverityError, CodeRequiredMissing,
				fmt.Sprintf("required slot %q is missing", slot.Name), nil)
		} else if slot.IsRecommended() {
			ctx.add(SeverityWarning, CodeRecommendedMissing,
				fmt.Sprintf("recommended slot %q is missing", slot.Name), nil)
		}
		return
	}

	if slot.IsMultivalued() {
		list, ok := value.([]any)
		if !ok {
			ctx.add(SeverityError, CodeExpectedList,
				fmt.Sprintf("slot %q is multivalued and expects a list, got %T", slot.Name, value), nil)
			return
		}
		if ok, detail := constraints.CheckCardinality(len(list), slot.MinimumCardinality, slot.MaximumCardinality); !ok {
			ctx.add(SeverityError, CodeCardinality,
				fmt.Sprintf("slot %q has %s", slot.Name, detail), nil)
		}
		for i, elem := range list {
			if ctx.stopped {
				return
			}
			ctx.pushIndex(i)
			e.validateValue(ctx, slot, elem, depth)
			ctx.pop()
		}
		return
	}

	if _, isList := value.([]any); isList {
		ctx.add(SeverityError, CodeTypeMismatch,
			fmt.Sprintf("slot %q is single-valued but got a list", slot.Name), nil)
		return
	}
	e.validateValue(ctx, slot, value, depth)
}

// validateValue runs the per-value checks in pipeline order.
func (e *Engine) validateValue(ctx *validationContext, slot *schema.SlotDefinition, value any, depth int) {
	for _, kind := range valueCheckOrder {
		if ctx.stopped {
			return
		}
		switch kind {
		case checkRange:
			e.checkRangeConformance(ctx, slot, value, depth)
		case checkPattern:
			e.checkPattern(ctx, slot, value)
		case checkEnum:
			e.checkEnumMembership(ctx, slot, value)
		case checkComposition:
			e.checkComposition(ctx, slot, value)
		case checkComputed:
			e.checkComputedValue(ctx, slot, value)
		default:
			// required and rule checks run outside the per-value loop
		}
	}
}

// checkRangeConformance verifies the declared range (primitive type, class
// shape, or reference) plus declared value bounds and exact-value
// constraints. Enum membership has its own pipeline step.
func (e *Engine) checkRangeConformance(ctx *validationContext, slot *schema.SlotDefinition, value any, depth int) {
	sd := e.view.Schema()
	rng := slot.EffectiveRange()

	if _, isEnum := sd.Enums[rng]; isEnum {
		e.checkValueConstraints(ctx, slot, value)
		return
	}

	if cls, isClass := sd.Classes[rng]; isClass {
		e.checkClassValue(ctx, slot, cls.Name, value, depth)
		return
	}

	resolved := sd.ResolveType(rng)
	if !schema.IsBuiltinType(resolved) {
		ctx.add(SeverityError, CodeUnknownRange,
			fmt.Sprintf("slot %q has unknown range %q", slot.Name, rng), nil)
		return
	}
	if ok, want := primitiveConforms(resolved, value); !ok {
		ctx.add(SeverityError, CodeTypeMismatch,
			fmt.Sprintf("slot %q expects %s, got %T", slot.Name, want, value),
			map[string]any{"range": rng, "value": value})
		return
	}
	e.checkValueConstraints(ctx, slot, value)
}

// checkValueConstraints applies numeric bounds and exact-value constraints.
func (e *Engine) checkValueConstraints(ctx *validationContext, slot *schema.SlotDefinition, value any) {
	if ok, detail := constraints.InRange(value, slot.MinimumValue, slot.MaximumValue); !ok {
		ctx.add(SeverityError, CodeValueOutOfRange,
			fmt.Sprintf("slot %q: %s", slot.Name, detail),
			map[string]any{"value": value})
	}
	if slot.EqualsString != nil && !constraints.Equals(value, *slot.EqualsString) {
		ctx.add(SeverityError, CodeEqualsViolation,
			fmt.Sprintf("slot %q must equal %q", slot.Name, *slot.EqualsString),
			map[string]any{"expected": *slot.EqualsString, "actual": value})
	}
	if slot.EqualsNumber != nil && !constraints.Equals(value, *slot.EqualsNumber) {
		ctx.add(SeverityError, CodeEqualsViolation,
			fmt.Sprintf("slot %q must equal %v", slot.Name, *slot.EqualsNumber),
			map[string]any{"expected": *slot.EqualsNumber, "actual": value})
	}
}

// checkClassValue validates a value whose range is a class: inlined classes
// require an embedded object, identifier-bearing classes accept a string
// reference or an embedded object.
func (e *Engine) checkClassValue(ctx *validationContext, slot *schema.SlotDefinition, className string, value any, depth int) {
	target, err := e.view.InducedClass(className)
	if err != nil {
		// A broken target class surfaces as a finding so the rest of the
		// instance still gets reported.
		ctx.add(SeverityError, CodeUnknownRange,
			fmt.Sprintf("slot %q range %q cannot be resolved: %v", slot.Name, className, err), nil)
		return
	}

	switch v := value.(type) {
	case map[string]any:
		e.validateAgainstClass(ctx, target, v, depth+1)
	case string:
		if target.IsInlined() {
			ctx.add(SeverityError, CodeTypeMismatch,
				fmt.Sprintf("slot %q expects an inlined %s object, got a reference %q", slot.Name, className, v), nil)
		}
	default:
		ctx.add(SeverityError, CodeTypeMismatch,
			fmt.Sprintf("slot %q expects a %s object or reference, got %T", slot.Name, className, value), nil)
	}
}

func (e *Engine) checkPattern(ctx *validationContext, slot *schema.SlotDefinition, value any) {
	if slot.Pattern == "" {
		return
	}
	ok, err := constraints.MatchesPattern(value, slot.Pattern)
	if err != nil {
		ctx.add(SeverityError, CodePatternMismatch,
			fmt.Sprintf("slot %q: %v", slot.Name, err), nil)
		return
	}
	if !ok {
		ctx.add(SeverityError, CodePatternMismatch,
			fmt.Sprintf("slot %q value does not match pattern %q", slot.Name, slot.Pattern),
			map[string]any{"pattern": slot.Pattern, "value": value})
	}
}

func (e *Engine) checkEnumMembership(ctx *validationContext, slot *schema.SlotDefinition, value any) {
	enum, ok := e.view.Enum(slot.EffectiveRange())
	if !ok {
		return
	}
	allowed := enum.Texts()
	if !constraints.MemberOf(value, allowed) {
		ctx.add(SeverityError, CodePermissibleValue,
			fmt.Sprintf("slot %q value %v is not a permissible value of %s", slot.Name, value, enum.Name),
			map[string]any{"value": value, "permissible_values": allowed})
	}
}

func (e *Engine) checkComposition(ctx *validationContext, slot *schema.SlotDefinition, value any) {
	if len(slot.AnyOf) == 0 && len(slot.AllOf) == 0 && len(slot.ExactlyOneOf) == 0 && len(slot.NoneOf) == 0 {
		return
	}
	cond := &schema.SlotCondition{
		AnyOf:        slot.AnyOf,
		AllOf:        slot.AllOf,
		ExactlyOneOf: slot.ExactlyOneOf,
		NoneOf:       slot.NoneOf,
	}
	failures, err := constraints.CheckSlotCondition(value, cond, e.slotExprFunc(ctx, value))
	if err != nil {
		ctx.add(SeverityError, CodeExpressionError,
			fmt.Sprintf("slot %q composition check failed: %v", slot.Name, err), nil)
		return
	}
	for _, f := range failures {
		ctx.add(SeverityError, CodeCompositionFailed,
			fmt.Sprintf("slot %q failed %s: %s", slot.Name, f.Check, f.Detail),
			map[string]any{"operator": f.Check, "value": value})
		if ctx.stopped {
			return
		}
	}
}

func (e *Engine) checkComputedValue(ctx *validationContext, slot *schema.SlotDefinition, value any) {
	if slot.EqualsExpression == "" {
		return
	}
	computed, err := e.eval.Evaluate(slot.EqualsExpression, e.exprVars(ctx, value))
	if err != nil {
		ctx.add(SeverityError, CodeExpressionError,
			fmt.Sprintf("slot %q: evaluating %q: %v", slot.Name, slot.EqualsExpression, err),
			map[string]any{"expression": slot.EqualsExpression})
		return
	}
	if !constraints.Equals(value, computed) {
		ctx.add(SeverityError, CodeEqualsExpression,
			fmt.Sprintf("slot %q value does not match its computed value", slot.Name),
			map[string]any{
				"expression": slot.EqualsExpression,
				"expected":   computed,
				"actual":     value,
			})
	}
}

// runCheck dispatches the class-level pipeline steps. Only checkRule runs
// here today; the switch keeps the kind set closed.
func (e *Engine) runCheck(kind checkKind, ctx *validationContext, cv *schemaview.ClassView, obj map[string]any) {
	switch kind {
	case checkRule:
		e.checkRules(ctx, cv, obj)
	default:
	}
}

// checkRules delegates to the rule engine and merges findings. Broken rules
// become findings rather than aborting the report. The document root and
// enclosing object are passed along so rule expressions on nested classes
// resolve root and parent the same way computed-field expressions do.
func (e *Engine) checkRules(ctx *validationContext, cv *schemaview.ClassView, obj map[string]any) {
	scope := rules.Scope{Root: ctx.root, Parent: ctx.enclosing()}
	findings, err := e.rules.EvaluateScoped(cv.Name(), obj, scope)
	if err != nil {
		e.log.WithError(err).WithField("class", cv.Name()).Warn("rule compilation failed")
		ctx.add(SeverityError, CodeRuleEvaluationError,
			fmt.Sprintf("rules for class %q could not be compiled: %v", cv.Name(), err), nil)
		return
	}
	for _, f := range findings {
		if ctx.stopped {
			return
		}
		code := CodeRuleViolation
		if f.EvaluationError {
			code = CodeRuleEvaluationError
		}
		issueCtx := map[string]any{"rule": f.Rule}
		if f.Expression != "" {
			issueCtx["expression"] = f.Expression
		}
		if f.Slot != "" {
			ctx.pushField(f.Slot)
		}
		ctx.add(SeverityError, code,
			fmt.Sprintf("rule %q: %s", f.Rule, f.Detail), issueCtx)
		if f.Slot != "" {
			ctx.pop()
		}
	}
}

// reportUnknownFields warns about instance fields the class does not know.
func (e *Engine) reportUnknownFields(ctx *validationContext, cv *schemaview.ClassView, obj map[string]any) {
	if ctx.stopped {
		return
	}
	var unknown []string
	for key := range obj {
		if !cv.HasSlot(key) {
			unknown = append(unknown, key)
		}
	}
	sort.Strings(unknown)
	for _, key := range unknown {
		ctx.pushField(key)
		ctx.add(SeverityWarning, CodeUnknownField,
			fmt.Sprintf("field %q is not a slot of class %q", key, cv.Name()), nil)
		ctx.pop()
	}
}

// exprVars builds the computed-field expression context.
func (e *Engine) exprVars(ctx *validationContext, value any) map[string]any {
	return map[string]any{
		"value":  value,
		"parent": ctx.parent(),
		"root":   ctx.root,
		"path":   ctx.pathString(),
	}
}

func (e *Engine) slotExprFunc(ctx *validationContext, value any) constraints.ExprFunc {
	return func(expr string) (any, error) {
		return e.eval.Evaluate(expr, e.exprVars(ctx, value))
	}
}
