package compromise

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"wormsign/internal/model"
)

const (
	// SourcesDir holds one CSV per upstream list inside a data directory.
	SourcesDir = "sources"
	// LegacyList is the single-file list used when SourcesDir is empty.
	LegacyList = "vuls.csv"
	// ConsolidatedList is the merged output of Consolidate.
	ConsolidatedList = "known-threats.csv"
)

// ErrNoLocalList is returned by LoadDir when the data directory has
// neither source CSVs nor a legacy list.
var ErrNoLocalList = errors.New("no local compromise list found")

// DirResult describes what LoadDir read.
type DirResult struct {
	Records  []model.CompromiseRecord
	Files    []string
	Warnings []string
}

// LoadDir reads every CSV in dataDir/sources. If none yields records it
// falls back to dataDir/vuls.csv. Unreadable source files become warnings.
func LoadDir(dataDir string) (DirResult, error) {
	var res DirResult

	files, err := sourceFiles(filepath.Join(dataDir, SourcesDir), "")
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return res, err
	}
	for _, path := range files {
		records, err := LoadCSV(path)
		if err != nil {
			res.Warnings = append(res.Warnings, fmt.Sprintf("Failed to load %s: %v", filepath.Base(path), err))
			continue
		}
		if len(records) == 0 {
			continue
		}
		res.Records = append(res.Records, records...)
		res.Files = append(res.Files, path)
	}
	if len(res.Files) > 0 {
		return res, nil
	}

	legacy := filepath.Join(dataDir, LegacyList)
	records, err := LoadCSV(legacy)
	if errors.Is(err, fs.ErrNotExist) {
		return res, fmt.Errorf("%w in %s", ErrNoLocalList, dataDir)
	}
	if err != nil {
		return res, err
	}
	res.Records = records
	res.Files = []string{legacy}
	return res, nil
}

// sourceFiles lists *.csv in dir, sorted, minus exclude.
func sourceFiles(dir, exclude string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var out []string
	for _, e := range entries {
		if e.IsDir() || !strings.EqualFold(filepath.Ext(e.Name()), ".csv") {
			continue
		}
		if exclude != "" && e.Name() == exclude {
			continue
		}
		out = append(out, filepath.Join(dir, e.Name()))
	}
	sort.Strings(out)
	return out, nil
}

// Dedupe keeps the first record for each name@version.
func Dedupe(records []model.CompromiseRecord) []model.CompromiseRecord {
	seen := make(map[string]struct{}, len(records))
	out := make([]model.CompromiseRecord, 0, len(records))
	for _, r := range records {
		key := r.Name + "@" + r.Version
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, r)
	}
	return out
}

// Consolidate merges every source CSV in sourcesDir (except a previous
// consolidated list) into out, deduplicated and sorted by name then
// version. It returns the number of records written.
func Consolidate(sourcesDir, out string) (int, error) {
	files, err := sourceFiles(sourcesDir, filepath.Base(out))
	if err != nil {
		return 0, fmt.Errorf("list sources: %w", err)
	}

	var all []model.CompromiseRecord
	for _, path := range files {
		records, err := LoadCSV(path)
		if err != nil {
			return 0, err
		}
		all = append(all, records...)
	}

	unique := Dedupe(all)
	if err := writeSorted(out, unique); err != nil {
		return 0, err
	}
	return len(unique), nil
}

func writeSorted(out string, records []model.CompromiseRecord) error {
	sort.SliceStable(records, func(i, j int) bool {
		if records[i].Name != records[j].Name {
			return records[i].Name < records[j].Name
		}
		return records[i].Version < records[j].Version
	})

	f, err := os.Create(out)
	if err != nil {
		return err
	}
	if err := WriteCSV(f, records); err != nil {
		f.Close()
		return fmt.Errorf("write %s: %w", out, err)
	}
	return f.Close()
}

// Merge appends records to the list at out (created when missing),
// deduplicates by name@version keeping existing rows, and rewrites it
// sorted. It returns how many rows were new and the resulting total.
func Merge(out string, records []model.CompromiseRecord) (added, total int, err error) {
	existing, err := LoadCSV(out)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return 0, 0, err
	}

	unique := Dedupe(append(existing, records...))
	if err := writeSorted(out, unique); err != nil {
		return 0, 0, err
	}
	return len(unique) - len(Dedupe(existing)), len(unique), nil
}
