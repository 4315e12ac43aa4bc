package heuristics

// Indicators of the Shai-Hulud npm worm campaigns.

// MalwareFilenames are payload files dropped into compromised packages.
var MalwareFilenames = []string{
	"setup_bun.js",
	"bun_environment.js",
}

// KnownMalwareHashes are SHA-256 digests of confirmed payloads.
var KnownMalwareHashes = map[string]string{
	"a3894003ad1d293ba96d77881ccd2071446dc3f65f434669b49b3da92421901a": "setup_bun.js",
	"62ee164b9b306250c1172583f138c9614139264f889fa99614903c12755468d0": "bun_environment.js",
	"cbb9bc5a8496243e02f3cc080efbe3e4a1430ba0671f2e43a202bf45b05479cd": "bun_environment.js",
	"f099c5d9ec417d4445a0328ac0ada9cde79fc37410914103ae9c609cbc0ee068": "bun_environment.js",
}

// MalwareSignatures are substrings whose presence in a lifecycle script
// is treated as a known-malware match.
var MalwareSignatures = []string{
	"node setup_bun.js",
	"bun_environment.js",
	"bun.sh/install",
	"irm bun.sh/install.ps1|iex",
	"downloadAndSetupBun",
	"Sha1-Hulud",
	"SHA1HULUD",
	"Shai-Hulud",
	"The Second Coming",
	"shred -uvz",
	"del /F /Q /S",
	"github.event.discussion.body",
}

var fileRuleLabels = map[string]string{
	RuleSuspiciousFile:  "Known malware filename present",
	RuleHighEntropyFile: "High entropy payload file",
	RuleConfirmedFile:   "Confirmed malware file (hash match)",
	RuleUnreadableFile:  "Known malware filename present but unreadable",
}

// Describe returns the short human description of a heuristic rule id.
func Describe(ruleID string) (string, bool) {
	for _, r := range ScriptRules {
		if r.ID == ruleID {
			return r.Label, true
		}
	}
	switch ruleID {
	case RuleScriptEntropy:
		return "High entropy script (potential obfuscated payload)", true
	case RuleMalwareSignature:
		return "Known malware signature in script", true
	}
	label, ok := fileRuleLabels[ruleID]
	return label, ok
}
