package compromise

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"wormsign/internal/model"
)

// ErrNoPackages is returned for a JSON document that is neither an array
// of records nor an object carrying a "packages" array.
var ErrNoPackages = errors.New("json feed has no packages array")

// ParseJSON decodes records from either a bare array or {"packages": [...]}.
func ParseJSON(data []byte) ([]model.CompromiseRecord, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, ErrNoPackages
	}

	var records []model.CompromiseRecord
	if trimmed[0] == '[' {
		if err := json.Unmarshal(trimmed, &records); err != nil {
			return nil, fmt.Errorf("decode json records: %w", err)
		}
		return keepNamed(records), nil
	}

	var doc struct {
		Packages *[]model.CompromiseRecord `json:"packages"`
	}
	if err := json.Unmarshal(trimmed, &doc); err != nil {
		return nil, fmt.Errorf("decode json records: %w", err)
	}
	if doc.Packages == nil {
		return nil, ErrNoPackages
	}
	return keepNamed(*doc.Packages), nil
}

// LoadJSON reads compromise records from a JSON file.
func LoadJSON(path string) ([]model.CompromiseRecord, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	records, err := ParseJSON(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return records, nil
}

func keepNamed(in []model.CompromiseRecord) []model.CompromiseRecord {
	out := in[:0]
	for _, r := range in {
		if r.Name != "" {
			out = append(out, r)
		}
	}
	return out
}
