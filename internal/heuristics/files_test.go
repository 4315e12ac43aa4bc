package heuristics

import (
	"bytes"
	"context"
	"crypto/rand"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wormsign/internal/model"
)

const sixMB = 6 * 1024 * 1024

func ruleIDs(findings []model.Finding) []string {
	out := make([]string, len(findings))
	for i, f := range findings {
		out[i] = f.RuleID
	}
	return out
}

func TestScanFilesHighEntropyPayload(t *testing.T) {
	root := t.TempDir()
	payload := make([]byte, sixMB)
	_, err := rand.Read(payload)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(root, "bun_environment.js"), payload, 0o644))

	findings, warnings := ScanFiles(context.Background(), root, nil)
	assert.Empty(t, warnings)
	require.Len(t, findings, 2)

	assert.Equal(t, RuleHighEntropyFile, findings[0].RuleID)
	assert.Equal(t, model.SeverityHigh, findings[0].Severity)
	assert.Contains(t, findings[0].Message, "HIGH RISK file detected: 'bun_environment.js' (High Entropy: ")
	assert.Contains(t, findings[0].Message, "Size: 6291456 bytes")

	assert.Equal(t, RuleSuspiciousFile, findings[1].RuleID)
	assert.Equal(t, model.SeverityLow, findings[1].Severity)
}

func TestScanFilesLowEntropyLargeFile(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "bun_environment.js"), bytes.Repeat([]byte("A"), sixMB), 0o644))

	findings, warnings := ScanFiles(context.Background(), root, nil)
	assert.Empty(t, warnings)
	require.Len(t, findings, 1)
	assert.Equal(t, "Suspicious file detected: 'bun_environment.js' (associated with Shai Hulud)", findings[0].Message)
	assert.Equal(t, model.SeverityLow, findings[0].Severity)
}

func TestScanFilesConfirmedHash(t *testing.T) {
	root := t.TempDir()
	content := []byte("console.log('payload')")
	require.NoError(t, os.WriteFile(filepath.Join(root, "setup_bun.js"), content, 0o644))

	// unregistered digest: only the floor finding
	findings, _ := ScanFiles(context.Background(), root, nil)
	assert.Equal(t, []string{RuleSuspiciousFile}, ruleIDs(findings))

	v := inspectFile(context.Background(), filepath.Join(root, "setup_bun.js"), "setup_bun.js")
	require.NoError(t, v.readErr)
	KnownMalwareHashes[v.digest] = "test"
	t.Cleanup(func() { delete(KnownMalwareHashes, v.digest) })

	findings, _ = ScanFiles(context.Background(), root, nil)
	require.Len(t, findings, 1)
	assert.Equal(t, RuleConfirmedFile, findings[0].RuleID)
	assert.Equal(t, model.SeverityCritical, findings[0].Severity)
	assert.Equal(t, "CONFIRMED MALWARE file detected: 'setup_bun.js' (Hash match: "+v.digest+")", findings[0].Message)
}

func TestScanFilesOrderAndSuppression(t *testing.T) {
	root := t.TempDir()
	for _, name := range MalwareFilenames {
		require.NoError(t, os.WriteFile(filepath.Join(root, name), []byte("x"), 0o644))
	}

	findings, _ := ScanFiles(context.Background(), root, nil)
	require.Len(t, findings, 2)
	assert.Equal(t, "setup_bun.js", findings[0].File)
	assert.Equal(t, "bun_environment.js", findings[1].File)

	findings, _ = ScanFiles(context.Background(), root, []string{RuleSuspiciousFile})
	assert.Empty(t, findings)
}

func TestScanFilesUnreadable(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(root, "setup_bun.js"), 0o755))

	findings, warnings := ScanFiles(context.Background(), root, nil)
	require.Len(t, warnings, 1)
	assert.True(t, strings.HasPrefix(warnings[0], "Suspicious file detected: 'setup_bun.js' (associated with Shai Hulud) - could not read: "))
	require.Len(t, findings, 1)
	assert.Equal(t, RuleUnreadableFile, findings[0].RuleID)
}

func TestScanFilesCleanRoot(t *testing.T) {
	findings, warnings := ScanFiles(context.Background(), t.TempDir(), nil)
	assert.Empty(t, findings)
	assert.Empty(t, warnings)
}
