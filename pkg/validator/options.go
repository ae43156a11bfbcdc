package validator

import "time"

// Options configures one validation engine. All limits are supplied here;
// nothing is hardcoded in the pipeline.
type Options struct {
	// FailFast stops validation at the first Error or Critical issue.
	FailFast bool
	// MaxErrors bounds the issues collected per report; once reached,
	// further issues are dropped and the report is marked truncated.
	MaxErrors int
	// CollectWarnings enables Warning/Info issues (recommended-slot and
	// unknown-field findings).
	CollectWarnings bool
	// MaxRecursionDepth bounds nested object validation.
	MaxRecursionDepth int

	// EnableCache turns on the compiled rule cache.
	EnableCache     bool
	CacheTTL        time.Duration
	CacheMaxEntries int

	// ExpressionTimeout is the wall-clock budget per expression evaluation.
	ExpressionTimeout time.Duration
	// MaxExpressionDepth bounds expression nesting and evaluation depth.
	MaxExpressionDepth int
}

// DefaultOptions returns the defaults: collect everything, generous but
// bounded budgets.
func DefaultOptions() *Options {
	return &Options{
		FailFast:           false,
		MaxErrors:          100,
		CollectWarnings:    true,
		MaxRecursionDepth:  32,
		EnableCache:        true,
		CacheTTL:           5 * time.Minute,
		CacheMaxEntries:    256,
		ExpressionTimeout:  100 * time.Millisecond,
		MaxExpressionDepth: 100,
	}
}
