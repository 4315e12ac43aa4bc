package compromise

import (
	"path/filepath"
	"strings"

	"wormsign/internal/model"
)

// Source yields compromise records for a scan.
type Source interface {
	Load() ([]model.CompromiseRecord, error)
}

// File is a compromise list on disk. Files ending in .json are decoded as
// JSON, everything else as CSV. A missing file surfaces as an error
// wrapping fs.ErrNotExist.
type File string

func (f File) Load() ([]model.CompromiseRecord, error) {
	if strings.EqualFold(filepath.Ext(string(f)), ".json") {
		return LoadJSON(string(f))
	}
	return LoadCSV(string(f))
}

// Records is an in-memory compromise list.
type Records []model.CompromiseRecord

func (r Records) Load() ([]model.CompromiseRecord, error) {
	return r, nil
}
