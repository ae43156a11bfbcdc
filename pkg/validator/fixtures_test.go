package validator

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

type fixtureCase struct {
	Name        string         `yaml:"name"`
	Class       string         `yaml:"class"`
	Valid       bool           `yaml:"valid"`
	ExpectCodes []string       `yaml:"expect_codes"`
	ForbidCodes []string       `yaml:"forbid_codes"`
	Instance    map[string]any `yaml:"instance"`
}

type fixtureFile struct {
	Cases []fixtureCase `yaml:"cases"`
}

func TestValidate_Fixtures(t *testing.T) {
	raw, err := os.ReadFile(filepath.Join("testdata", "validation_cases.yaml"))
	require.NoError(t, err)

	var fixtures fixtureFile
	require.NoError(t, yaml.Unmarshal(raw, &fixtures))
	require.NotEmpty(t, fixtures.Cases)

	e := NewEngine(testSchema(), nil, nil)
	for _, tc := range fixtures.Cases {
		t.Run(tc.Name, func(t *testing.T) {
			report, err := e.Validate(tc.Instance, tc.Class)
			require.NoError(t, err)
			assert.Equal(t, tc.Valid, report.Valid(), "issues: %v", report.Issues)

			codes := issueCodes(report)
			for _, want := range tc.ExpectCodes {
				assert.Contains(t, codes, want)
			}
			for _, forbid := range tc.ForbidCodes {
				assert.NotContains(t, codes, forbid)
			}
		})
	}
}
