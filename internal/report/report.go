package report

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"wormsign/internal/model"
)

// Output formats understood by Render.
const (
	FormatText     = "text"
	FormatMarkdown = "markdown"
	FormatJSON     = "json"
	FormatSARIF    = "sarif"
)

type ReportMeta struct {
	ScanID      string   `json:"scan_id"`
	ScannedPath string   `json:"scanned_path"`
	Timestamp   string   `json:"timestamp"`
	Sources     []string `json:"sources,omitempty"`
}

type Report struct {
	Meta     ReportMeta        `json:"meta"`
	Matches  []model.ScanMatch `json:"matches"`
	Warnings []string          `json:"warnings"`
	Findings []model.Finding   `json:"findings"`
}

// NewMeta stamps a scan of path with a fresh id and the current time.
func NewMeta(path string, sources []string) ReportMeta {
	return ReportMeta{
		ScanID:      uuid.NewString(),
		ScannedPath: path,
		Timestamp:   time.Now().UTC().Format(time.RFC3339),
		Sources:     sources,
	}
}

func newReport(meta ReportMeta, res model.ScanResult) Report {
	rep := Report{
		Meta:     meta,
		Matches:  res.Matches,
		Warnings: res.Warnings,
		Findings: res.Findings,
	}
	if rep.Matches == nil {
		rep.Matches = []model.ScanMatch{}
	}
	if rep.Warnings == nil {
		rep.Warnings = []string{}
	}
	if rep.Findings == nil {
		rep.Findings = []model.Finding{}
	}
	return rep
}

// Render writes res to w in format.
func Render(w io.Writer, format string, meta ReportMeta, res model.ScanResult) error {
	switch strings.ToLower(format) {
	case FormatText, "":
		return renderText(w, res)
	case FormatMarkdown, "md":
		_, err := io.WriteString(w, generateMarkdown(meta, res))
		return err
	case FormatJSON:
		return writeJSON(w, newReport(meta, res))
	case FormatSARIF:
		return writeJSON(w, generateSarif(meta, res))
	default:
		return fmt.Errorf("unknown report format %q (want text, markdown, json or sarif)", format)
	}
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// Generate writes report.json, report.md and report.sarif into outDir.
func Generate(outDir string, meta ReportMeta, res model.ScanResult) error {
	if err := os.MkdirAll(outDir, 0755); err != nil {
		return err
	}

	// 1. JSON Report
	jsonBytes, err := json.MarshalIndent(newReport(meta, res), "", "  ")
	if err != nil {
		return err
	}
	if err := os.WriteFile(filepath.Join(outDir, "report.json"), jsonBytes, 0644); err != nil {
		return err
	}

	// 2. Markdown Report
	md := generateMarkdown(meta, res)
	if err := os.WriteFile(filepath.Join(outDir, "report.md"), []byte(md), 0644); err != nil {
		return err
	}

	// 3. SARIF
	sarifBytes, err := json.MarshalIndent(generateSarif(meta, res), "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(outDir, "report.sarif"), sarifBytes, 0644)
}
