package report

import (
	"fmt"
	"sort"

	"github.com/google/uuid"

	"wormsign/internal/heuristics"
	"wormsign/internal/model"
)

const (
	sarifSchema  = "https://raw.githubusercontent.com/oasis-tcs/sarif-spec/master/Schemata/sarif-schema-2.1.0.json"
	sarifVersion = "2.1.0"
	driverName   = "worm-sign"

	RuleCompromisedPackage = "WS001"
	RuleScanWarning        = "WS002"
)

type sarifLog struct {
	Schema  string     `json:"$schema"`
	Version string     `json:"version"`
	Runs    []sarifRun `json:"runs"`
}

type sarifRun struct {
	Tool              sarifTool       `json:"tool"`
	AutomationDetails sarifAutomation `json:"automationDetails"`
	Results           []sarifResult   `json:"results"`
}

type sarifAutomation struct {
	GUID string `json:"guid"`
}

type sarifTool struct {
	Driver sarifDriver `json:"driver"`
}

type sarifDriver struct {
	Name  string      `json:"name"`
	Rules []sarifRule `json:"rules"`
}

type sarifRule struct {
	ID               string          `json:"id"`
	Name             string          `json:"name"`
	ShortDescription sarifText       `json:"shortDescription"`
	FullDescription  *sarifText      `json:"fullDescription,omitempty"`
	Properties       sarifProperties `json:"properties"`
}

type sarifProperties struct {
	Tags      []string `json:"tags"`
	Precision string   `json:"precision"`
	Severity  string   `json:"severity"`
}

type sarifText struct {
	Text string `json:"text"`
}

type sarifResult struct {
	RuleID    string          `json:"ruleId"`
	Level     string          `json:"level"`
	Message   sarifText       `json:"message"`
	Locations []sarifLocation `json:"locations"`
}

type sarifLocation struct {
	PhysicalLocation sarifPhysical `json:"physicalLocation"`
}

type sarifPhysical struct {
	ArtifactLocation sarifArtifact `json:"artifactLocation"`
}

type sarifArtifact struct {
	URI       string `json:"uri"`
	URIBaseID string `json:"uriBaseId"`
}

func location(uri string) []sarifLocation {
	if uri == "" {
		uri = "package.json"
	}
	return []sarifLocation{{PhysicalLocation: sarifPhysical{
		ArtifactLocation: sarifArtifact{URI: uri, URIBaseID: "%SRCROOT%"},
	}}}
}

// sarifLevel maps a finding severity onto the three SARIF levels.
func sarifLevel(s model.Severity) string {
	switch s {
	case model.SeverityCritical, model.SeverityHigh:
		return "error"
	case model.SeverityMedium:
		return "warning"
	default:
		return "note"
	}
}

func generateSarif(meta ReportMeta, res model.ScanResult) sarifLog {
	rules := []sarifRule{
		{
			ID:               RuleCompromisedPackage,
			Name:             "CompromisedPackage",
			ShortDescription: sarifText{"Compromised package detected"},
			FullDescription:  &sarifText{"A package known to be compromised by a supply-chain attack was found in the lockfile."},
			Properties:       sarifProperties{Tags: []string{"security", "malware", "supply-chain"}, Precision: "very-high", Severity: "error"},
		},
		{
			ID:               RuleScanWarning,
			Name:             "ScanWarning",
			ShortDescription: sarifText{"Scan warning"},
			FullDescription:  &sarifText{"The scan completed with a caveat, such as an ambiguous or missing lockfile."},
			Properties:       sarifProperties{Tags: []string{"security", "heuristic"}, Precision: "medium", Severity: "warning"},
		},
	}

	results := make([]sarifResult, 0, len(res.Matches)+len(res.Warnings)+len(res.Findings))
	for _, m := range res.Matches {
		results = append(results, sarifResult{
			RuleID:    RuleCompromisedPackage,
			Level:     "error",
			Message:   sarifText{fmt.Sprintf("Package '%s@%s' is compromised (found in %s).", m.Name, m.Version, m.Section)},
			Locations: location("package.json"),
		})
	}
	for _, w := range res.Warnings {
		results = append(results, sarifResult{
			RuleID:    RuleScanWarning,
			Level:     "warning",
			Message:   sarifText{w},
			Locations: location("package.json"),
		})
	}

	// one rule per distinct heuristic id, at its most severe level
	heuristic := make(map[string]model.Severity)
	for _, f := range res.Findings {
		results = append(results, sarifResult{
			RuleID:    f.RuleID,
			Level:     sarifLevel(f.Severity),
			Message:   sarifText{f.Message},
			Locations: location(f.File),
		})
		if prev, ok := heuristic[f.RuleID]; !ok || f.Severity.Rank() > prev.Rank() {
			heuristic[f.RuleID] = f.Severity
		}
	}
	ids := make([]string, 0, len(heuristic))
	for id := range heuristic {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		label, ok := heuristics.Describe(id)
		if !ok {
			label = id
		}
		rules = append(rules, sarifRule{
			ID:               id,
			Name:             "Heuristic" + id,
			ShortDescription: sarifText{label},
			Properties:       sarifProperties{Tags: []string{"security", "heuristic"}, Precision: "medium", Severity: sarifLevel(heuristic[id])},
		})
	}

	guid := meta.ScanID
	if _, err := uuid.Parse(guid); err != nil {
		guid = uuid.NewString()
	}

	return sarifLog{
		Schema:  sarifSchema,
		Version: sarifVersion,
		Runs: []sarifRun{{
			Tool:              sarifTool{Driver: sarifDriver{Name: driverName, Rules: rules}},
			AutomationDetails: sarifAutomation{GUID: guid},
			Results:           results,
		}},
	}
}
