package model

// Finding is a heuristic observation about the scanned project: a
// suspicious script, a known malware file, a high-entropy payload.
type Finding struct {
	Message  string   `json:"message"`
	Severity Severity `json:"severity"`
	RuleID   string   `json:"ruleId"`
	File     string   `json:"file"`
}

// Section values reported on a ScanMatch besides the package.json
// dependency sections.
const (
	SectionTransitive = "transitive"
	SectionLocked     = "locked"
)

// DependencySections lists the package.json sections that declare direct
// dependencies, in lookup order.
var DependencySections = []string{
	"dependencies",
	"devDependencies",
	"peerDependencies",
	"optionalDependencies",
}

// ScanMatch is a locked dependency that matched the compromise list.
type ScanMatch struct {
	Name    string `json:"name"`
	Version string `json:"version"`
	Section string `json:"section"`
}

// CompromiseRecord describes one known-bad package. An empty Version, "*"
// or "any" means every version of Name is compromised.
type CompromiseRecord struct {
	Name      string `json:"name"`
	Version   string `json:"version,omitempty"`
	Reason    string `json:"reason,omitempty"`
	Integrity string `json:"integrity,omitempty"`
}

// ScanResult is everything one scan produces.
type ScanResult struct {
	Matches  []ScanMatch `json:"matches"`
	Warnings []string    `json:"warnings"`
	Findings []Finding   `json:"findings"`
}
