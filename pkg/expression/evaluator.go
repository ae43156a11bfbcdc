package expression

import (
	"fmt"
	"strings"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

// Default sandbox limits.
const (
	DefaultMaxDepth  = 100
	DefaultTimeout   = 100 * time.Millisecond
	DefaultCacheSize = 1024
)

// Config bounds evaluation. All limits are caller-supplied, never hardcoded
// into the evaluation loop.
type Config struct {
	// MaxDepth bounds both parse nesting and evaluation recursion.
	MaxDepth int
	// Timeout is the wall-clock budget for one evaluation.
	Timeout time.Duration
	// CacheSize bounds the compiled-expression LRU; 0 disables caching.
	CacheSize int
}

// DefaultConfig returns the default sandbox limits.
func DefaultConfig() Config {
	return Config{
		MaxDepth:  DefaultMaxDepth,
		Timeout:   DefaultTimeout,
		CacheSize: DefaultCacheSize,
	}
}

// Evaluator parses and evaluates expressions against a variable context.
// It is safe for concurrent use.
type Evaluator struct {
	config   Config
	registry *FunctionRegistry
	cache    *lru.Cache[string, Node]
}

// NewEvaluator creates an evaluator. A nil registry gets the default
// built-in registry.
func NewEvaluator(config Config, registry *FunctionRegistry) *Evaluator {
	if config.MaxDepth < 1 {
		config.MaxDepth = DefaultMaxDepth
	}
	if config.Timeout <= 0 {
		config.Timeout = DefaultTimeout
	}
	if registry == nil {
		registry = NewFunctionRegistry()
	}
	e := &Evaluator{config: config, registry: registry}
	if config.CacheSize > 0 {
		// lru.New only fails on a non-positive size.
		e.cache, _ = lru.New[string, Node](config.CacheSize)
	}
	return e
}

// Registry returns the evaluator's function registry.
func (e *Evaluator) Registry() *FunctionRegistry { return e.registry }

// Parse compiles source text, consulting the compiled-expression cache.
func (e *Evaluator) Parse(input string) (Node, error) {
	if e.cache != nil {
		if node, ok := e.cache.Get(input); ok {
			return node, nil
		}
	}
	node, err := Parse(input, e.config.MaxDepth)
	if err != nil {
		return nil, err
	}
	if e.cache != nil {
		e.cache.Add(input, node)
	}
	return node, nil
}

// Evaluate parses (or fetches from cache) and evaluates an expression
// against the given variable context.
func (e *Evaluator) Evaluate(input string, vars map[string]any) (any, error) {
	node, err := e.Parse(input)
	if err != nil {
		return nil, err
	}
	return e.EvaluateNode(node, vars)
}

// EvaluateNode evaluates an already-parsed expression.
func (e *Evaluator) EvaluateNode(node Node, vars map[string]any) (any, error) {
	ev := &evaluation{
		evaluator: e,
		vars:      vars,
		deadline:  time.Now().Add(e.config.Timeout),
	}
	return ev.eval(node, 0)
}

// evaluation carries per-call state: the variable context and the deadline.
type evaluation struct {
	evaluator *Evaluator
	vars      map[string]any
	deadline  time.Time
}

func (ev *evaluation) eval(node Node, depth int) (any, error) {
	if depth > ev.evaluator.config.MaxDepth {
		return nil, ErrMaxDepthExceeded
	}
	if time.Now().After(ev.deadline) {
		return nil, ErrTimeout
	}

	switch n := node.(type) {
	case *Literal:
		return n.Value, nil

	case *Variable:
		return ev.resolveVariable(n.Path)

	case *Unary:
		operand, err := ev.eval(n.Operand, depth+1)
		if err != nil {
			return nil, err
		}
		return applyUnary(n.Op, operand)

	case *Binary:
		return ev.evalBinary(n, depth)

	case *Call:
		args := make([]any, len(n.Args))
		for i, argNode := range n.Args {
			arg, err := ev.eval(argNode, depth+1)
			if err != nil {
				return nil, err
			}
			args[i] = arg
		}
		return ev.evaluator.registry.CallFunction(n.Name, args)
	}
	return nil, fmt.Errorf("unsupported expression node %T", node)
}

func (ev *evaluation) evalBinary(n *Binary, depth int) (any, error) {
	// and/or short-circuit on the left operand.
	if n.Op == OpAnd || n.Op == OpOr {
		left, err := ev.eval(n.Left, depth+1)
		if err != nil {
			return nil, err
		}
		lb, ok := left.(bool)
		if !ok {
			return nil, fmt.Errorf("%w: %s expects boolean operands", ErrTypeMismatch, n.Op)
		}
		if (n.Op == OpAnd && !lb) || (n.Op == OpOr && lb) {
			return lb, nil
		}
		right, err := ev.eval(n.Right, depth+1)
		if err != nil {
			return nil, err
		}
		rb, ok := right.(bool)
		if !ok {
			return nil, fmt.Errorf("%w: %s expects boolean operands", ErrTypeMismatch, n.Op)
		}
		return rb, nil
	}

	left, err := ev.eval(n.Left, depth+1)
	if err != nil {
		return nil, err
	}
	right, err := ev.eval(n.Right, depth+1)
	if err != nil {
		return nil, err
	}
	return applyBinary(n.Op, left, right)
}

// resolveVariable descends a dotted path. The first element must exist in
// the context; later elements must land on object values.
func (ev *evaluation) resolveVariable(path []string) (any, error) {
	cur, ok := ev.vars[path[0]]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownVariable, path[0])
	}
	for i := 1; i < len(path); i++ {
		obj, ok := cur.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("%w: %s is not an object", ErrNotAnObject, strings.Join(path[:i], "."))
		}
		cur, ok = obj[path[i]]
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrFieldNotFound, strings.Join(path[:i+1], "."))
		}
	}
	return cur, nil
}

func applyUnary(op UnaryOp, operand any) (any, error) {
	switch op {
	case OpNeg:
		switch v := operand.(type) {
		case int64:
			return -v, nil
		case float64:
			return -v, nil
		}
		return nil, fmt.Errorf("%w: cannot negate %T", ErrTypeMismatch, operand)
	case OpNot:
		b, ok := operand.(bool)
		if !ok {
			return nil, fmt.Errorf("%w: not expects a boolean", ErrTypeMismatch)
		}
		return !b, nil
	}
	return nil, fmt.Errorf("unsupported unary operator %d", op)
}

func applyBinary(op BinaryOp, left, right any) (any, error) {
	switch op {
	case OpAdd:
		if ls, ok := left.(string); ok {
			rs, ok := right.(string)
			if !ok {
				return nil, fmt.Errorf("%w: cannot concatenate string and %T", ErrTypeMismatch, right)
			}
			return ls + rs, nil
		}
		return arith(op, left, right)
	case OpSub, OpMul, OpDiv, OpMod:
		return arith(op, left, right)
	case OpEq:
		return valuesEqual(left, right), nil
	case OpNe:
		return !valuesEqual(left, right), nil
	case OpLt, OpLe, OpGt, OpGe:
		return compare(op, left, right)
	}
	return nil, fmt.Errorf("unsupported binary operator %d", op)
}

// arith applies numeric operators with int-preserving promotion: int op int
// stays int except division, which always yields a float.
func arith(op BinaryOp, left, right any) (any, error) {
	lf, lok := toFloat(left)
	rf, rok := toFloat(right)
	if !lok || !rok {
		return nil, fmt.Errorf("%w: %s expects numeric operands", ErrTypeMismatch, op)
	}
	ints := isInt(left) && isInt(right)

	switch op {
	case OpAdd:
		if ints {
			return int64(lf) + int64(rf), nil
		}
		return lf + rf, nil
	case OpSub:
		if ints {
			return int64(lf) - int64(rf), nil
		}
		return lf - rf, nil
	case OpMul:
		if ints {
			return int64(lf) * int64(rf), nil
		}
		return lf * rf, nil
	case OpDiv:
		if rf == 0 {
			return nil, ErrDivisionByZero
		}
		return lf / rf, nil
	case OpMod:
		if rf == 0 {
			return nil, ErrDivisionByZero
		}
		if ints {
			return int64(lf) % int64(rf), nil
		}
		return nil, fmt.Errorf("%w: %% expects integer operands", ErrTypeMismatch)
	}
	return nil, fmt.Errorf("unsupported arithmetic operator %d", op)
}

func compare(op BinaryOp, left, right any) (any, error) {
	if lf, lok := toFloat(left); lok {
		rf, rok := toFloat(right)
		if !rok {
			return nil, fmt.Errorf("%w: cannot compare number with %T", ErrTypeMismatch, right)
		}
		switch op {
		case OpLt:
			return lf < rf, nil
		case OpLe:
			return lf <= rf, nil
		case OpGt:
			return lf > rf, nil
		case OpGe:
			return lf >= rf, nil
		}
	}
	if ls, ok := left.(string); ok {
		rs, rok := right.(string)
		if !rok {
			return nil, fmt.Errorf("%w: cannot compare string with %T", ErrTypeMismatch, right)
		}
		switch op {
		case OpLt:
			return ls < rs, nil
		case OpLe:
			return ls <= rs, nil
		case OpGt:
			return ls > rs, nil
		case OpGe:
			return ls >= rs, nil
		}
	}
	return nil, fmt.Errorf("%w: cannot order %T values", ErrTypeMismatch, left)
}

// toFloat widens any supported numeric representation to float64. JSON
// decoding yields float64; schema constants may carry int or int64.
func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case float64:
		return n, true
	case float32:
		return float64(n), true
	}
	return 0, false
}

func isInt(v any) bool {
	switch v.(type) {
	case int, int64:
		return true
	}
	return false
}

// valuesEqual compares two values, treating all numeric representations of
// the same quantity as equal.
func valuesEqual(a, b any) bool {
	if af, aok := toFloat(a); aok {
		bf, bok := toFloat(b)
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
	case []any:
		bv, ok := b.([]any)
		if !ok || len(av) != len(bv) {
			return false
		}
		for i := range av {
			if !valuesEqual(av[i], bv[i]) {
				return false
			}
		}
		return true
	case map[string]any:
		bv, ok := b.(map[string]any)
		if !ok || len(av) != len(bv) {
			return false
		}
		for k, v := range av {
			bvv, ok := bv[k]
			if !ok || !valuesEqual(v, bvv) {
				return false
			}
		}
		return true
	}
	return false
}
