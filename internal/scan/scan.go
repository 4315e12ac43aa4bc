package scan

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"

	"wormsign/internal/aggregate"
	"wormsign/internal/compromise"
	"wormsign/internal/detect"
	"wormsign/internal/heuristics"
	"wormsign/internal/lockfile"
	"wormsign/internal/match"
	"wormsign/internal/model"
)

var (
	ErrProjectRootNotFound    = errors.New("project root not found")
	ErrPackageJSONNotFound    = errors.New("package.json not found")
	ErrCompromiseListNotFound = errors.New("compromise list not found")
	ErrNoPackageManager       = errors.New("unable to determine package manager")
	ErrNoLockfile             = errors.New("no lockfile found")
	ErrLockfileUnparseable    = errors.New("lockfile could not be parsed")
)

// Options tune a scan. The zero value scans with every rule enabled and
// logs nothing.
type Options struct {
	SuppressedRules []string
	Threshold       model.Severity
	Logger          *zerolog.Logger
}

func (o Options) logger() zerolog.Logger {
	if o.Logger == nil {
		return zerolog.Nop()
	}
	return o.Logger.With().Str("component", "scan").Logger()
}

// Project scans the JavaScript project at root against the compromise
// list from source. Missing inputs are fatal and reported through the
// package's sentinel errors; everything recoverable ends up in the
// result's warnings.
func Project(ctx context.Context, root string, source compromise.Source, opts Options) (model.ScanResult, error) {
	log := opts.logger()
	var res model.ScanResult

	// 1. Project root
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return res, fmt.Errorf("%w: %s: %v", ErrProjectRootNotFound, root, err)
	}
	info, err := os.Stat(absRoot)
	if err != nil || !info.IsDir() {
		return res, fmt.Errorf("%w: %s", ErrProjectRootNotFound, absRoot)
	}

	// 2. Compromise list
	if source == nil {
		return res, fmt.Errorf("%w: no source given", ErrCompromiseListNotFound)
	}
	records, err := source.Load()
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return res, fmt.Errorf("%w at %v", ErrCompromiseListNotFound, source)
		}
		return res, fmt.Errorf("load compromise list: %w", err)
	}
	log.Debug().Int("records", len(records)).Msg("Loaded compromise list")

	// 3. package.json
	pkgPath := filepath.Join(absRoot, "package.json")
	raw, err := os.ReadFile(pkgPath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return res, fmt.Errorf("%w at %s", ErrPackageJSONNotFound, pkgPath)
		}
		return res, fmt.Errorf("read %s: %w", pkgPath, err)
	}
	var pkg map[string]json.RawMessage
	if err := json.Unmarshal(raw, &pkg); err != nil {
		return res, fmt.Errorf("parse %s: %w", pkgPath, err)
	}

	var warnings []string
	var findings []model.Finding

	// 4. Heuristics
	findings = append(findings, heuristics.AnalyzeScripts(pkg, opts.SuppressedRules)...)
	fileFindings, fileWarnings := heuristics.ScanFiles(ctx, absRoot, opts.SuppressedRules)
	findings = append(findings, fileFindings...)
	warnings = append(warnings, fileWarnings...)
	log.Debug().Int("findings", len(findings)).Msg("Heuristics complete")

	// 5. Package manager and lockfile
	detected := detect.Detect(absRoot, packageManagerField(pkg))
	warnings = append(warnings, detected.Warnings...)
	if detected.Handler == nil {
		return res, ErrNoPackageManager
	}
	if detected.LockPath == "" {
		return res, fmt.Errorf("%w for %s: %s", ErrNoLockfile, detected.Handler.Label(), strings.Join(detected.Warnings, " "))
	}
	log.Debug().Str("manager", detected.Handler.ID()).Str("lockfile", detected.LockPath).Msg("Detected package manager")

	ix, parseWarnings, err := loadLockfile(detected, log)
	warnings = append(warnings, parseWarnings...)
	if err != nil {
		return res, err
	}
	log.Debug().Int("packages", ix.Len()).Int("pairs", ix.Pairs()).Msg("Parsed lockfile")

	// 6. Match
	matches := match.Match(ix, compromise.BuildIndex(records), match.Declared(pkg))

	if err := ctx.Err(); err != nil {
		return res, err
	}

	res.Matches = aggregate.AggregateMatches(matches)
	res.Warnings = aggregate.AggregateWarnings(warnings)
	res.Findings = aggregate.AggregateFindings(findings, aggregate.Filter{
		SuppressedRules: opts.SuppressedRules,
		Threshold:       opts.Threshold,
	})
	log.Debug().Int("matches", len(res.Matches)).Msg("Scan complete")
	return res, nil
}

// loadLockfile parses the detected lockfile, moving on to the other
// lockfiles present when it fails. Each failure becomes a warning; the
// error is returned only when no candidate parses.
func loadLockfile(detected detect.Result, log zerolog.Logger) (*lockfile.Index, []string, error) {
	candidates := append([]detect.Candidate{{Handler: detected.Handler, LockPath: detected.LockPath}}, detected.Fallbacks...)

	var warnings []string
	var errs []error
	for i, c := range candidates {
		ix, parseWarnings, err := lockfile.Load(c.Handler, c.LockPath)
		warnings = append(warnings, parseWarnings...)
		if err == nil {
			return ix, warnings, nil
		}
		log.Debug().Err(err).Str("lockfile", c.LockPath).Msg("Lockfile rejected")
		errs = append(errs, err)
		if i+1 < len(candidates) {
			warnings = append(warnings, fmt.Sprintf("Could not read %s lockfile (%v); trying %s.",
				c.Handler.Label(), err, candidates[i+1].Handler.Label()))
		}
	}
	return nil, warnings, fmt.Errorf("%w: %w", ErrLockfileUnparseable, errors.Join(errs...))
}

func packageManagerField(pkg map[string]json.RawMessage) string {
	raw, ok := pkg["packageManager"]
	if !ok {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return ""
	}
	return s
}
