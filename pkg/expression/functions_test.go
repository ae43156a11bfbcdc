package expression

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuiltins(t *testing.T) {
	e := NewEvaluator(DefaultConfig(), nil)
	vars := map[string]any{
		"name": "Ada Lovelace",
		"tags": []any{"math", "pioneer"},
	}

	tests := []struct {
		expr string
		want any
	}{
		{"len({name})", int64(12)},
		{"len({tags})", int64(2)},
		{`contains({name}, "Love")`, true},
		{`contains({tags}, "math")`, true},
		{`contains({tags}, "physics")`, false},
		{`matches({name}, "^[A-Z]")`, true},
		{"max(3, 1, 2)", int64(3)},
		{"min(3, 1, 2)", int64(1)},
		{"max(1, 2.5)", 2.5},
		{"abs(-4)", int64(4)},
		{"abs(-4.5)", 4.5},
		{"ceil(1.2)", 2.0},
		{"floor(1.8)", 1.0},
		{"round(2.5)", 3.0},
		{"sqrt(16)", 4.0},
		{"pow(2, 10)", 1024.0},
		{"mod(10, 3)", int64(1)},
		{`upper("abc")`, "ABC"},
		{`lower("ABC")`, "abc"},
		{`trim("  x  ")`, "x"},
	}
	for _, tt := range tests {
		got, err := e.Evaluate(tt.expr, vars)
		require.NoError(t, err, tt.expr)
		assert.Equal(t, tt.want, got, tt.expr)
	}
}

func TestBuiltins_Errors(t *testing.T) {
	e := NewEvaluator(DefaultConfig(), nil)

	_, err := e.Evaluate("len(1)", nil)
	assert.ErrorIs(t, err, ErrTypeMismatch)

	_, err = e.Evaluate("sqrt(-1)", nil)
	assert.ErrorIs(t, err, ErrTypeMismatch)

	_, err = e.Evaluate("mod(1, 0)", nil)
	assert.ErrorIs(t, err, ErrDivisionByZero)

	_, err = e.Evaluate("nope(1)", nil)
	assert.ErrorIs(t, err, ErrUnknownFunction)

	_, err = e.Evaluate("len()", nil)
	assert.ErrorIs(t, err, ErrArityMismatch)

	_, err = e.Evaluate("pow(1, 2, 3)", nil)
	assert.ErrorIs(t, err, ErrArityMismatch)
}

func TestRegistry_Lock(t *testing.T) {
	r := NewFunctionRegistry()
	require.False(t, r.Locked())

	err := r.Register(Function{
		Name:    "double",
		MinArgs: 1,
		MaxArgs: 1,
		Call: func(args []any) (any, error) {
			f, _ := toFloat(args[0])
			return f * 2, nil
		},
	})
	require.NoError(t, err)

	e := NewEvaluator(DefaultConfig(), r)
	got, err := e.Evaluate("double(21)", nil)
	require.NoError(t, err)
	assert.Equal(t, 42.0, got)

	r.Lock()
	assert.True(t, r.Locked())

	err = r.Register(Function{Name: "late", MinArgs: 0, MaxArgs: 0, Call: func([]any) (any, error) { return nil, nil }})
	assert.ErrorIs(t, err, ErrRegistryLocked)

	// Locked registries still serve registered functions.
	got, err = e.Evaluate("double(2)", nil)
	require.NoError(t, err)
	assert.Equal(t, 4.0, got)
}

func TestRegistry_Names(t *testing.T) {
	r := NewFunctionRegistry()
	names := r.Names()
	assert.Contains(t, names, "len")
	assert.Contains(t, names, "matches")
	assert.Len(t, names, 15)
}
