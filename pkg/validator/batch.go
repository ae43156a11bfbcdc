package validator

import (
	"context"
	"runtime"

	"golang.org/x/sync/errgroup"
)

// ValidateAll validates independent instances against one class in
// parallel. Each instance gets its own validation context; the shared
// schema view is read-only, so no further synchronization is needed.
// Reports are returned in input order. workers <= 0 uses GOMAXPROCS.
func (e *Engine) ValidateAll(ctx context.Context, instances []any, className string, workers int) ([]*Report, error) {
	// Resolve once up front so a broken schema fails before any work starts.
	if _, err := e.view.InducedClass(className); err != nil {
		return nil, err
	}
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	reports := make([]*Report, len(instances))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	for i, instance := range instances {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			report, err := e.Validate(instance, className)
			if err != nil {
				return err
			}
			reports[i] = report
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return reports, nil
}
