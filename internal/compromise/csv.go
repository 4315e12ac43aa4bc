package compromise

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"wormsign/internal/model"
)

// Header spellings seen across published IOC lists, lower-cased.
var (
	nameHeaders      = []string{"name", "package name", "package_name", "package"}
	versionHeaders   = []string{"version", "package version", "package_version", "package_versions", "versions"}
	reasonHeaders    = []string{"reason", "msc id", "sources", "source"}
	integrityHeaders = []string{"integrity", "hash", "shasum"}
)

type columns struct {
	name, version, reason, integrity int
}

func findColumn(header []string, aliases []string) int {
	for _, alias := range aliases {
		for i, h := range header {
			if strings.EqualFold(strings.TrimSpace(h), alias) {
				return i
			}
		}
	}
	return -1
}

func resolveColumns(header []string) columns {
	c := columns{
		name:      findColumn(header, nameHeaders),
		version:   findColumn(header, versionHeaders),
		reason:    findColumn(header, reasonHeaders),
		integrity: findColumn(header, integrityHeaders),
	}
	if c.name < 0 {
		c.name = 0
	}
	if c.version < 0 && c.name != 1 {
		c.version = 1
	}
	return c
}

func cell(row []string, i int) string {
	if i < 0 || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

// ParseCSV reads compromise records. The first row is a header; unknown
// headers fall back to name and version in the first two columns. Rows
// may be ragged and lines starting with '#' are comments. A version cell
// listing several versions ("= 1.0.1 || = 1.0.2", "1.0.1, 1.0.2") yields
// one record per version.
func ParseCSV(r io.Reader) ([]model.CompromiseRecord, error) {
	cr := csv.NewReader(r)
	cr.Comment = '#'
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true
	cr.LazyQuotes = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read csv header: %w", err)
	}
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], "\ufeff")
	}
	cols := resolveColumns(header)

	var out []model.CompromiseRecord
	for {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return out, fmt.Errorf("read csv row: %w", err)
		}

		name := cell(row, cols.name)
		if name == "" {
			continue
		}
		base := model.CompromiseRecord{
			Name:      name,
			Reason:    cell(row, cols.reason),
			Integrity: cell(row, cols.integrity),
		}
		for _, v := range SplitVersions(cell(row, cols.version)) {
			rec := base
			rec.Version = v
			out = append(out, rec)
		}
	}
	return out, nil
}

// SplitVersions expands a version cell into individual versions. An
// empty cell is a single wildcard ("").
func SplitVersions(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return []string{""}
	}
	fields := strings.FieldsFunc(raw, func(r rune) bool {
		return r == ',' || r == '|' || r == ';'
	})
	var out []string
	for _, f := range fields {
		v := strings.TrimSpace(strings.TrimLeft(strings.TrimSpace(f), "=v"))
		if v != "" {
			out = append(out, v)
		}
	}
	if len(out) == 0 {
		return []string{""}
	}
	return out
}

// LoadCSV reads compromise records from a CSV file.
func LoadCSV(path string) ([]model.CompromiseRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	records, err := ParseCSV(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return records, nil
}

// WriteCSV writes records with the canonical name,version,reason,integrity
// header.
func WriteCSV(w io.Writer, records []model.CompromiseRecord) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"name", "version", "reason", "integrity"}); err != nil {
		return err
	}
	for _, r := range records {
		if err := cw.Write([]string{r.Name, r.Version, r.Reason, r.Integrity}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
