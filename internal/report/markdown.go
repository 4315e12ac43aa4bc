package report

import (
	"fmt"
	"strings"

	"wormsign/internal/model"
)

func escapeCell(s string) string {
	s = strings.ReplaceAll(s, "|", "\\|")
	return strings.ReplaceAll(s, "\n", " ")
}

func generateMarkdown(meta ReportMeta, res model.ScanResult) string {
	var sb strings.Builder

	sb.WriteString("# worm-sign Report\n\n")
	fmt.Fprintf(&sb, "**Target:** `%s`\n", meta.ScannedPath)
	fmt.Fprintf(&sb, "**Timestamp:** %s\n", meta.Timestamp)
	if meta.ScanID != "" {
		fmt.Fprintf(&sb, "**Scan ID:** %s\n", meta.ScanID)
	}
	if len(meta.Sources) > 0 {
		fmt.Fprintf(&sb, "**Sources:** %s\n", strings.Join(meta.Sources, ", "))
	}
	sb.WriteString("\n")

	// Counts
	counts := make(map[model.Severity]int)
	for _, f := range res.Findings {
		counts[f.Severity]++
	}

	sb.WriteString("## Summary\n\n")
	sb.WriteString("| Item | Count |\n")
	sb.WriteString("| :--- | :--- |\n")
	fmt.Fprintf(&sb, "| Compromised packages | %d |\n", len(res.Matches))
	fmt.Fprintf(&sb, "| Critical findings | %d |\n", counts[model.SeverityCritical])
	fmt.Fprintf(&sb, "| High findings | %d |\n", counts[model.SeverityHigh])
	fmt.Fprintf(&sb, "| Medium findings | %d |\n", counts[model.SeverityMedium])
	fmt.Fprintf(&sb, "| Low findings | %d |\n", counts[model.SeverityLow])
	fmt.Fprintf(&sb, "| Warnings | %d |\n", len(res.Warnings))
	sb.WriteString("\n")

	sb.WriteString("## Compromised Packages\n\n")
	if len(res.Matches) == 0 {
		sb.WriteString("_No compromised packages._\n")
	} else {
		sb.WriteString("| Package | Version | Location |\n")
		sb.WriteString("| :--- | :--- | :--- |\n")
		for _, m := range res.Matches {
			fmt.Fprintf(&sb, "| %s | %s | %s |\n", m.Name, m.Version, m.Section)
		}
	}

	if len(res.Findings) > 0 {
		fmt.Fprintf(&sb, "\n## Heuristic Findings (%d)\n\n", len(res.Findings))
		sb.WriteString("| Severity | Rule | File | Message |\n")
		sb.WriteString("|---|---|---|---|\n")
		for _, f := range res.Findings {
			fmt.Fprintf(&sb, "| %s | %s | %s | %s |\n", f.Severity, f.RuleID, f.File, escapeCell(f.Message))
		}
	}

	if len(res.Warnings) > 0 {
		fmt.Fprintf(&sb, "\n## ⚠️ Warnings (%d)\n\n", len(res.Warnings))
		for _, w := range res.Warnings {
			fmt.Fprintf(&sb, "- %s\n", escapeCell(w))
		}
	}

	return sb.String()
}
