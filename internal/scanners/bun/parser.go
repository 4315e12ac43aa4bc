package bun

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/tailscale/hujson"

	"wormsign/internal/lockfile"
)

// BunLock is the subset of bun.lock (text lockfile, JSON with comments
// and trailing commas) needed to enumerate installed packages.
type BunLock struct {
	LockfileVersion int                          `json:"lockfileVersion"`
	Packages        map[string][]json.RawMessage `json:"packages"`
}

// ParseBunLock builds a lockfile index from bun.lock content. Each
// package entry is a tuple whose first element is the "name@version"
// identifier and whose last string element, for registry packages, is
// the integrity hash.
func ParseBunLock(content []byte) (*lockfile.Index, []string, error) {
	std, err := hujson.Standardize(content)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: invalid bun.lock: %v", lockfile.ErrParse, err)
	}

	var lock BunLock
	if err := json.Unmarshal(std, &lock); err != nil {
		return nil, nil, fmt.Errorf("%w: invalid bun.lock: %v", lockfile.ErrParse, err)
	}

	ix := lockfile.NewIndex()
	var warnings []string

	keys := make([]string, 0, len(lock.Packages))
	for key := range lock.Packages {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	for _, key := range keys {
		tuple := lock.Packages[key]
		if len(tuple) == 0 {
			continue
		}
		var ident string
		if err := json.Unmarshal(tuple[0], &ident); err != nil {
			warnings = append(warnings, fmt.Sprintf("Skipping bun entry %q: malformed identifier", key))
			continue
		}

		name, version := SplitIdent(ident)
		if name == "" {
			continue
		}

		dep := lockfile.Dependency{Name: name, Version: version}
		if len(tuple) >= 4 {
			var hash string
			if json.Unmarshal(tuple[len(tuple)-1], &hash) == nil {
				dep.Integrity = hash
			}
		}
		if !ix.Add(dep) {
			warnings = append(warnings, lockfile.Unresolved(name, version))
		}
	}

	return ix, warnings, nil
}

// SplitIdent splits "name@version" at the last "@" that is not the
// leading character of a scoped name.
func SplitIdent(ident string) (string, string) {
	at := strings.LastIndex(ident, "@")
	if at <= 0 {
		return ident, ""
	}
	return ident[:at], ident[at+1:]
}
