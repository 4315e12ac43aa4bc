package heuristics

import (
	"encoding/json"
	"fmt"
	"regexp"
	"sort"
	"strings"

	"wormsign/internal/model"
)

// Rule ids for script findings.
const (
	RuleNetworkRequest   = "WS101"
	RulePipeToShell      = "WS102"
	RuleBase64Blob       = "WS103"
	RuleHexEscape        = "WS104"
	RuleEval             = "WS105"
	RuleDestructiveCmd   = "WS106"
	RuleNetcatShell      = "WS107"
	RuleInlineExec       = "WS108"
	RuleIPAddress        = "WS109"
	RuleScriptEntropy    = "WS110"
	RuleMalwareSignature = "WS111"
)

const (
	// ScriptEntropyThreshold is the bits/symbol above which a script is
	// treated as a possible packed payload.
	ScriptEntropyThreshold = 5.2
	// minEntropyLen: shorter strings give unreliable estimates.
	minEntropyLen = 50
)

// ScriptRule is one regex check run against every package.json script.
type ScriptRule struct {
	ID       string
	Label    string
	Severity model.Severity
	Pattern  *regexp.Regexp
}

// ScriptRules is evaluated in order; every matching rule emits a finding.
var ScriptRules = []ScriptRule{
	{RuleNetworkRequest, "Network request (curl/wget)", model.SeverityMedium, regexp.MustCompile(`(curl|wget)\s+`)},
	{RulePipeToShell, "Pipe to bash", model.SeverityHigh, regexp.MustCompile(`\|\s*bash`)},
	{RuleBase64Blob, "Potential Base64 encoded string", model.SeverityMedium, regexp.MustCompile(`[A-Za-z0-9+/]{60,}={0,2}`)},
	{RuleHexEscape, "Hex escape sequence (obfuscation)", model.SeverityMedium, regexp.MustCompile(`\\x[0-9a-fA-F]{2}`)},
	{RuleEval, "Use of eval()", model.SeverityHigh, regexp.MustCompile(`eval\s*\(`)},
	{RuleDestructiveCmd, "Destructive command (rm -rf)", model.SeverityHigh, regexp.MustCompile(`rm\s+(-rf|-fr)\s+`)},
	{RuleNetcatShell, "Netcat reverse shell", model.SeverityCritical, regexp.MustCompile(`nc\s+.*-e\s+`)},
	{RuleInlineExec, "Inline code execution", model.SeverityMedium, regexp.MustCompile(`(python|perl|ruby|node|sh|bash)\s+-[ce]\s+`)},
	{RuleIPAddress, "IP address detected", model.SeverityLow, regexp.MustCompile(`\d{1,3}\.\d{1,3}\.\d{1,3}\.\d{1,3}`)},
}

// AnalyzeScripts inspects the "scripts" map of a decoded package.json.
// Scripts are visited in name order. A rule id in suppressed emits
// nothing. A missing or malformed scripts map yields no findings.
func AnalyzeScripts(pkg map[string]json.RawMessage, suppressed []string) []model.Finding {
	raw, ok := pkg["scripts"]
	if !ok {
		return nil
	}
	var scripts map[string]string
	if err := json.Unmarshal(raw, &scripts); err != nil {
		return nil
	}

	skip := toSet(suppressed)
	names := make([]string, 0, len(scripts))
	for name := range scripts {
		names = append(names, name)
	}
	sort.Strings(names)

	var findings []model.Finding
	emit := func(ruleID string, sev model.Severity, script, label string) {
		if _, off := skip[ruleID]; off {
			return
		}
		findings = append(findings, model.Finding{
			Message:  fmt.Sprintf("Suspicious script detected in '%s': %s", script, label),
			Severity: sev,
			RuleID:   ruleID,
			File:     "package.json",
		})
	}

	for _, name := range names {
		body := scripts[name]

		for _, rule := range ScriptRules {
			if rule.Pattern.MatchString(body) {
				emit(rule.ID, rule.Severity, name, rule.Label)
			}
		}

		if len(body) >= minEntropyLen && EntropyOf([]byte(body)) > ScriptEntropyThreshold {
			emit(RuleScriptEntropy, model.SeverityHigh, name, "High Entropy (Potential Obfuscated Payload)")
		}

		for _, sig := range MalwareSignatures {
			if strings.Contains(body, sig) {
				emit(RuleMalwareSignature, model.SeverityCritical, name, "Known Malware Signature Match")
				break
			}
		}
	}
	return findings
}

func toSet(ids []string) map[string]struct{} {
	set := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return set
}
