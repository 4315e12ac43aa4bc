package heuristics

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"golang.org/x/sync/errgroup"

	"wormsign/internal/model"
)

// Rule ids for file findings.
const (
	RuleSuspiciousFile  = "WS201"
	RuleHighEntropyFile = "WS202"
	RuleConfirmedFile   = "WS203"
	RuleUnreadableFile  = "WS204"
)

const (
	// LargeFileSize is the size above which entropy is measured.
	LargeFileSize = 5 * 1024 * 1024
	// FileEntropyThreshold in bits/byte for packed payloads.
	FileEntropyThreshold = 7.0

	maxConcurrentFiles = 4
)

// fileVerdict is what a single streaming pass over a candidate learned.
type fileVerdict struct {
	name    string
	present bool
	size    int64
	digest  string
	entropy float64
	large   bool
	readErr error
}

// ScanFiles looks for known malware filenames directly under root. Each
// present file is read once, feeding SHA-256 and (for large files) the
// entropy accumulator together. Findings come back in MalwareFilenames
// order. Files that cannot be read add a warning; ScanFiles itself never
// fails.
func ScanFiles(ctx context.Context, root string, suppressed []string) ([]model.Finding, []string) {
	verdicts := make([]fileVerdict, len(MalwareFilenames))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrentFiles)
	for i, name := range MalwareFilenames {
		i, name := i, name
		g.Go(func() error {
			verdicts[i] = inspectFile(ctx, filepath.Join(root, name), name)
			return nil
		})
	}
	_ = g.Wait()

	skip := toSet(suppressed)
	var findings []model.Finding
	var warnings []string
	emit := func(f model.Finding) {
		if _, off := skip[f.RuleID]; !off {
			findings = append(findings, f)
		}
	}

	for _, v := range verdicts {
		if !v.present {
			continue
		}
		suspicious := model.Finding{
			Message:  fmt.Sprintf("Suspicious file detected: '%s' (associated with Shai Hulud)", v.name),
			Severity: model.SeverityLow,
			RuleID:   RuleSuspiciousFile,
			File:     v.name,
		}

		switch {
		case v.readErr != nil:
			msg := fmt.Sprintf("%s - could not read: %v", suspicious.Message, v.readErr)
			warnings = append(warnings, msg)
			emit(model.Finding{Message: msg, Severity: model.SeverityLow, RuleID: RuleUnreadableFile, File: v.name})

		case KnownMalwareHashes[v.digest] != "":
			emit(model.Finding{
				Message:  fmt.Sprintf("CONFIRMED MALWARE file detected: '%s' (Hash match: %s)", v.name, v.digest),
				Severity: model.SeverityCritical,
				RuleID:   RuleConfirmedFile,
				File:     v.name,
			})

		case v.large && v.entropy > FileEntropyThreshold:
			emit(model.Finding{
				Message:  fmt.Sprintf("HIGH RISK file detected: '%s' (High Entropy: %.2f, Size: %d bytes)", v.name, v.entropy, v.size),
				Severity: model.SeverityHigh,
				RuleID:   RuleHighEntropyFile,
				File:     v.name,
			})
			emit(suspicious)

		default:
			emit(suspicious)
		}
	}
	return findings, warnings
}

func inspectFile(ctx context.Context, path, name string) fileVerdict {
	v := fileVerdict{name: name}

	info, err := os.Stat(path)
	if errors.Is(err, fs.ErrNotExist) {
		return v
	}
	v.present = true
	if err != nil {
		v.readErr = err
		return v
	}
	if info.IsDir() {
		v.readErr = fmt.Errorf("%s is a directory", name)
		return v
	}
	v.size = info.Size()
	v.large = v.size > LargeFileSize

	f, err := os.Open(path)
	if err != nil {
		v.readErr = err
		return v
	}
	defer f.Close()

	h := sha256.New()
	var ent Entropy
	var w io.Writer = h
	if v.large {
		w = io.MultiWriter(h, &ent)
	}
	if _, err := io.Copy(w, &ctxReader{ctx: ctx, r: f}); err != nil {
		v.readErr = err
		return v
	}

	v.digest = hex.EncodeToString(h.Sum(nil))
	if v.large {
		v.entropy = ent.Sum()
	}
	return v
}

// ctxReader stops a long copy once ctx is done.
type ctxReader struct {
	ctx context.Context
	r   io.Reader
}

func (c *ctxReader) Read(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}
	return c.r.Read(p)
}
