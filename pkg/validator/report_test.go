package validator

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestReport_ValidityMonotonicity(t *testing.T) {
	r := newReport("Person")
	assert.True(t, r.Valid())

	r.Issues = append(r.Issues, &Issue{Severity: SeverityInfo, Code: "X"})
	assert.True(t, r.Valid())

	r.Issues = append(r.Issues, &Issue{Severity: SeverityWarning, Code: "X"})
	assert.True(t, r.Valid())

	r.Issues = append(r.Issues, &Issue{Severity: SeverityError, Code: "X"})
	assert.False(t, r.Valid())

	// Once invalid, further issues never restore validity.
	r.Issues = append(r.Issues, &Issue{Severity: SeverityInfo, Code: "X"})
	assert.False(t, r.Valid())
}

func TestReport_TruncatedIsInvalid(t *testing.T) {
	r := newReport("Person")
	r.Truncated = true
	assert.False(t, r.Valid())
}

func TestSeverity_String(t *testing.T) {
	assert.Equal(t, "INFO", SeverityInfo.String())
	assert.Equal(t, "WARNING", SeverityWarning.String())
	assert.Equal(t, "ERROR", SeverityError.String())
	assert.Equal(t, "CRITICAL", SeverityCritical.String())
}

func TestIssue_String(t *testing.T) {
	i := &Issue{Severity: SeverityError, Code: CodeRequiredMissing, Path: "name", Message: "required slot \"name\" is missing"}
	assert.Contains(t, i.String(), "ERROR")
	assert.Contains(t, i.String(), "name")
}
