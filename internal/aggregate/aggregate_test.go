package aggregate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wormsign/internal/model"
)

func TestAggregateFindings(t *testing.T) {
	f1 := model.Finding{
		Message:  "Suspicious script detected in 'install': Pipe to bash",
		Severity: model.SeverityHigh,
		RuleID:   "WS102",
		File:     "package.json",
	}
	f2 := f1 // Duplicate

	f3 := model.Finding{
		Message:  "CONFIRMED MALWARE file detected: 'setup_bun.js' (Hash match: abc)",
		Severity: model.SeverityCritical,
		RuleID:   "WS203",
		File:     "setup_bun.js",
	}

	f4 := model.Finding{
		Message:  "Suspicious script detected in 'ping': IP address detected",
		Severity: model.SeverityLow,
		RuleID:   "WS109",
		File:     "package.json",
	}

	result := AggregateFindings([]model.Finding{f1, f4, f2, f3}, Filter{})
	require.Len(t, result, 3)

	// Critical -> High -> Low
	assert.Equal(t, model.SeverityCritical, result[0].Severity)
	assert.Equal(t, model.SeverityHigh, result[1].Severity)
	assert.Equal(t, model.SeverityLow, result[2].Severity)
}

func TestAggregateFindingsFilter(t *testing.T) {
	findings := []model.Finding{
		{RuleID: "WS101", Severity: model.SeverityMedium, Message: "a"},
		{RuleID: "WS102", Severity: model.SeverityHigh, Message: "b"},
		{RuleID: "WS109", Severity: model.SeverityLow, Message: "c"},
	}

	result := AggregateFindings(findings, Filter{Threshold: model.SeverityMedium})
	assert.Len(t, result, 2)

	result = AggregateFindings(findings, Filter{SuppressedRules: []string{"WS102"}, Threshold: model.SeverityMedium})
	require.Len(t, result, 1)
	assert.Equal(t, "WS101", result[0].RuleID)

	assert.Empty(t, AggregateFindings(nil, Filter{}))
}

func TestAggregateMatches(t *testing.T) {
	result := AggregateMatches([]model.ScanMatch{
		{Name: "b", Version: "1.0.0", Section: "dependencies"},
		{Name: "a", Version: "2.0.0", Section: "transitive"},
		{Name: "b", Version: "1.0.0", Section: "devDependencies"},
		{Name: "a", Version: "1.0.0", Section: "transitive"},
	})
	assert.Equal(t, []model.ScanMatch{
		{Name: "a", Version: "1.0.0", Section: "transitive"},
		{Name: "a", Version: "2.0.0", Section: "transitive"},
		{Name: "b", Version: "1.0.0", Section: "dependencies"},
	}, result)
}

func TestAggregateWarnings(t *testing.T) {
	assert.Equal(t, []string{"x", "y"}, AggregateWarnings([]string{"x", "y", "x"}))
	assert.Equal(t, []string{}, AggregateWarnings(nil))
}
