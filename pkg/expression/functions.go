package expression

import (
	"fmt"
	"math"
	"regexp"
	"strings"
	"sync"
)

// Function is one callable entry of the registry. MaxArgs of -1 means
// variadic with no upper bound.
type Function struct {
	Name    string
	MinArgs int
	MaxArgs int
	Call    func(args []any) (any, error)
}

// FunctionRegistry holds the named built-ins available to expressions.
// Once locked, no further registrations are accepted; locking fixes the
// callable surface for a deployment.
type FunctionRegistry struct {
	mu     sync.RWMutex
	funcs  map[string]Function
	locked bool
}

// NewFunctionRegistry returns a registry preloaded with the built-ins.
func NewFunctionRegistry() *FunctionRegistry {
	r := &FunctionRegistry{funcs: make(map[string]Function)}
	for _, fn := range builtins() {
		r.funcs[fn.Name] = fn
	}
	return r
}

// Register adds a function. Fails with ErrRegistryLocked once Lock has
// been called.
func (r *FunctionRegistry) Register(fn Function) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.locked {
		return ErrRegistryLocked
	}
	if fn.Name == "" || fn.Call == nil {
		return fmt.Errorf("function needs a name and an implementation")
	}
	r.funcs[fn.Name] = fn
	return nil
}

// Lock freezes the registry. Irreversible.
func (r *FunctionRegistry) Lock() {
	r.mu.Lock()
	r.locked = true
	r.mu.Unlock()
}

// Locked reports whether the registry has been frozen.
func (r *FunctionRegistry) Locked() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.locked
}

// Names returns the registered function names, unordered.
func (r *FunctionRegistry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.funcs))
	for name := range r.funcs {
		out = append(out, name)
	}
	return out
}

// CallFunction invokes a registered function, enforcing its arity range.
func (r *FunctionRegistry) CallFunction(name string, args []any) (any, error) {
	r.mu.RLock()
	fn, ok := r.funcs[name]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownFunction, name)
	}
	if len(args) < fn.MinArgs || (fn.MaxArgs >= 0 && len(args) > fn.MaxArgs) {
		return nil, fmt.Errorf("%w: %s expects %s, got %d",
			ErrArityMismatch, name, arityRange(fn.MinArgs, fn.MaxArgs), len(args))
	}
	return fn.Call(args)
}

func arityRange(minArgs, maxArgs int) string {
	switch {
	case maxArgs < 0:
		return fmt.Sprintf("at least %d arguments", minArgs)
	case minArgs == maxArgs:
		return fmt.Sprintf("%d arguments", minArgs)
	default:
		return fmt.Sprintf("%d to %d arguments", minArgs, maxArgs)
	}
}

func builtins() []Function {
	return []Function{
		{Name: "len", MinArgs: 1, MaxArgs: 1, Call: fnLen},
		{Name: "contains", MinArgs: 2, MaxArgs: 2, Call: fnContains},
		{Name: "matches", MinArgs: 2, MaxArgs: 2, Call: fnMatches},
		{Name: "max", MinArgs: 1, MaxArgs: -1, Call: fnMax},
		{Name: "min", MinArgs: 1, MaxArgs: -1, Call: fnMin},
		{Name: "abs", MinArgs: 1, MaxArgs: 1, Call: numericUnary(math.Abs)},
		{Name: "ceil", MinArgs: 1, MaxArgs: 1, Call: numericUnary(math.Ceil)},
		{Name: "floor", MinArgs: 1, MaxArgs: 1, Call: numericUnary(math.Floor)},
		{Name: "round", MinArgs: 1, MaxArgs: 1, Call: numericUnary(math.Round)},
		{Name: "sqrt", MinArgs: 1, MaxArgs: 1, Call: fnSqrt},
		{Name: "pow", MinArgs: 2, MaxArgs: 2, Call: fnPow},
		{Name: "mod", MinArgs: 2, MaxArgs: 2, Call: fnModFn},
		{Name: "upper", MinArgs: 1, MaxArgs: 1, Call: stringUnary(strings.ToUpper)},
		{Name: "lower", MinArgs: 1, MaxArgs: 1, Call: stringUnary(strings.ToLower)},
		{Name: "trim", MinArgs: 1, MaxArgs: 1, Call: stringUnary(strings.TrimSpace)},
	}
}

func fnLen(args []any) (any, error) {
	switch v := args[0].(type) {
	case nil:
		return int64(0), nil
	case string:
		return int64(len(v)), nil
	case []any:
		return int64(len(v)), nil
	case map[string]any:
		return int64(len(v)), nil
	}
	return nil, fmt.Errorf("%w: len expects a string, list, or object", ErrTypeMismatch)
}

func fnContains(args []any) (any, error) {
	switch haystack := args[0].(type) {
	case string:
		needle, ok := args[1].(string)
		if !ok {
			return nil, fmt.Errorf("%w: contains on a string needs a string argument", ErrTypeMismatch)
		}
		return strings.Contains(haystack, needle), nil
	case []any:
		for _, elem := range haystack {
			if valuesEqual(elem, args[1]) {
				return true, nil
			}
		}
		return false, nil
	}
	return nil, fmt.Errorf("%w: contains expects a string or list", ErrTypeMismatch)
}

func fnMatches(args []any) (any, error) {
	s, ok := args[0].(string)
	if !ok {
		return nil, fmt.Errorf("%w: matches expects a string value", ErrTypeMismatch)
	}
	pattern, ok := args[1].(string)
	if !ok {
		return nil, fmt.Errorf("%w: matches expects a string pattern", ErrTypeMismatch)
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, fmt.Errorf("invalid pattern %q: %w", pattern, err)
	}
	return re.MatchString(s), nil
}

func fnMax(args []any) (any, error) { return fold(args, "max", math.Max) }
func fnMin(args []any) (any, error) { return fold(args, "min", math.Min) }

func fold(args []any, name string, pick func(a, b float64) float64) (any, error) {
	best, ok := toFloat(args[0])
	if !ok {
		return nil, fmt.Errorf("%w: %s expects numeric arguments", ErrTypeMismatch, name)
	}
	allInt := isInt(args[0])
	for _, arg := range args[1:] {
		f, ok := toFloat(arg)
		if !ok {
			return nil, fmt.Errorf("%w: %s expects numeric arguments", ErrTypeMismatch, name)
		}
		allInt = allInt && isInt(arg)
		best = pick(best, f)
	}
	if allInt {
		return int64(best), nil
	}
	return best, nil
}

func fnSqrt(args []any) (any, error) {
	f, ok := toFloat(args[0])
	if !ok {
		return nil, fmt.Errorf("%w: sqrt expects a number", ErrTypeMismatch)
	}
	if f < 0 {
		return nil, fmt.Errorf("%w: sqrt of a negative number", ErrTypeMismatch)
	}
	return math.Sqrt(f), nil
}

func fnPow(args []any) (any, error) {
	base, ok1 := toFloat(args[0])
	exp, ok2 := toFloat(args[1])
	if !ok1 || !ok2 {
		return nil, fmt.Errorf("%w: pow expects numbers", ErrTypeMismatch)
	}
	return math.Pow(base, exp), nil
}

func fnModFn(args []any) (any, error) {
	a, ok1 := toFloat(args[0])
	b, ok2 := toFloat(args[1])
	if !ok1 || !ok2 {
		return nil, fmt.Errorf("%w: mod expects numbers", ErrTypeMismatch)
	}
	if b == 0 {
		return nil, ErrDivisionByZero
	}
	if isInt(args[0]) && isInt(args[1]) {
		return int64(a) % int64(b), nil
	}
	return math.Mod(a, b), nil
}

func numericUnary(f func(float64) float64) func([]any) (any, error) {
	return func(args []any) (any, error) {
		v, ok := toFloat(args[0])
		if !ok {
			return nil, fmt.Errorf("%w: expected a number", ErrTypeMismatch)
		}
		out := f(v)
		if isInt(args[0]) {
			return int64(out), nil
		}
		return out, nil
	}
}

func stringUnary(f func(string) string) func([]any) (any, error) {
	return func(args []any) (any, error) {
		s, ok := args[0].(string)
		if !ok {
			return nil, fmt.Errorf("%w: expected a string", ErrTypeMismatch)
		}
		return f(s), nil
	}
}
