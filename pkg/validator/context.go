package validator

import (
	"fmt"
	"strings"
)

// validationContext is the mutable state of one validate call: the current
// path for issue locations, the instance root and parent chain for
// expression references, and the issue budget.
type validationContext struct {
	opts    *Options
	report  *Report
	root    any
	parents []any
	path    []string
	// stopped is set when fail-fast tripped; remaining checks are skipped.
	stopped bool
}

func newValidationContext(opts *Options, report *Report, root any) *validationContext {
	return &validationContext{
		opts:   opts,
		report: report,
		root:   root,
	}
}

func (c *validationContext) pushField(name string) {
	c.path = append(c.path, name)
}

func (c *validationContext) pushIndex(i int) {
	c.path = append(c.path, fmt.Sprintf("[%d]", i))
}

func (c *validationContext) pop() {
	c.path = c.path[:len(c.path)-1]
}

func (c *validationContext) pushParent(v any) {
	c.parents = append(c.parents, v)
}

func (c *validationContext) popParent() {
	c.parents = c.parents[:len(c.parents)-1]
}

// parent returns the innermost enclosing object, or nil at the root.
func (c *validationContext) parent() any {
	if len(c.parents) == 0 {
		return nil
	}
	return c.parents[len(c.parents)-1]
}

// enclosing returns the object containing the current one, or nil at the
// document root. The current object is always the top of the parent stack
// when class-level checks run.
func (c *validationContext) enclosing() any {
	if len(c.parents) < 2 {
		return nil
	}
	return c.parents[len(c.parents)-2]
}

// pathString renders the current location, e.g. "person.addresses[2].city".
func (c *validationContext) pathString() string {
	var sb strings.Builder
	for _, seg := range c.path {
		if strings.HasPrefix(seg, "[") {
			sb.WriteString(seg)
			continue
		}
		if sb.Len() > 0 {
			sb.WriteByte('.')
		}
		sb.WriteString(seg)
	}
	return sb.String()
}

// add records an issue, honoring the budget and fail-fast. Returns false
// when validation should stop.
func (c *validationContext) add(severity Severity, code, message string, issueCtx map[string]any) bool {
	if c.stopped {
		return false
	}
	if severity < SeverityError && !c.opts.CollectWarnings {
		return true
	}
	if len(c.report.Issues) >= c.opts.MaxErrors {
		c.report.Truncated = true
		c.stopped = true
		return false
	}
	c.report.Issues = append(c.report.Issues, &Issue{
		Severity: severity,
		Message:  message,
		Path:     c.pathString(),
		Code:     code,
		Context:  issueCtx,
	})
	if c.opts.FailFast && severity >= SeverityError {
		c.stopped = true
		return false
	}
	return true
}
