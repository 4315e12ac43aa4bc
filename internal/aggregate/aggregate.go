package aggregate

import (
	"fmt"
	"sort"

	"wormsign/internal/model"
)

// Filter selects which findings survive aggregation.
type Filter struct {
	// SuppressedRules drops findings by rule id.
	SuppressedRules []string
	// Threshold drops findings less severe than it. Unknown keeps all.
	Threshold model.Severity
}

// AggregateFindings filters, deduplicates and sorts findings.
func AggregateFindings(findings []model.Finding, filter Filter) []model.Finding {
	suppressed := make(map[string]struct{}, len(filter.SuppressedRules))
	for _, id := range filter.SuppressedRules {
		suppressed[id] = struct{}{}
	}

	unique := make(map[string]model.Finding)
	for _, f := range findings {
		if _, off := suppressed[f.RuleID]; off {
			continue
		}
		if !f.Severity.AtLeast(filter.Threshold) {
			continue
		}
		key := dedupeKey(f)
		if _, exists := unique[key]; !exists {
			unique[key] = f
		}
	}

	result := make([]model.Finding, 0, len(unique))
	for _, f := range unique {
		result = append(result, f)
	}

	sort.Slice(result, func(i, j int) bool {
		fi, fj := result[i], result[j]

		// Severity DESC (Critical > High ...)
		ri := fi.Severity.Rank()
		rj := fj.Severity.Rank()
		if ri != rj {
			return ri > rj
		}

		if fi.RuleID != fj.RuleID {
			return fi.RuleID < fj.RuleID
		}
		if fi.File != fj.File {
			return fi.File < fj.File
		}
		return fi.Message < fj.Message
	})

	return result
}

func dedupeKey(f model.Finding) string {
	// ruleId|file|severity|message
	return fmt.Sprintf("%s|%s|%s|%s", f.RuleID, f.File, f.Severity, f.Message)
}

// AggregateMatches deduplicates matches on name and version, keeping the
// first section seen, and sorts by name then version.
func AggregateMatches(matches []model.ScanMatch) []model.ScanMatch {
	seen := make(map[string]struct{}, len(matches))
	result := make([]model.ScanMatch, 0, len(matches))
	for _, m := range matches {
		key := m.Name + "@" + m.Version
		if _, exists := seen[key]; exists {
			continue
		}
		seen[key] = struct{}{}
		result = append(result, m)
	}

	sort.SliceStable(result, func(i, j int) bool {
		if result[i].Name != result[j].Name {
			return result[i].Name < result[j].Name
		}
		return result[i].Version < result[j].Version
	})
	return result
}

// AggregateWarnings drops repeated warnings, keeping first-seen order.
func AggregateWarnings(warnings []string) []string {
	seen := make(map[string]struct{}, len(warnings))
	result := make([]string, 0, len(warnings))
	for _, w := range warnings {
		if _, exists := seen[w]; exists {
			continue
		}
		seen[w] = struct{}{}
		result = append(result, w)
	}
	return result
}
