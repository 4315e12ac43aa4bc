package compromise

import (
	"sort"
	"strings"

	"wormsign/internal/model"
)

// Entry is everything known about one compromised package name. Records
// sharing a name are unioned into a single Entry.
type Entry struct {
	Wildcard bool
	Versions map[string]struct{}
	Hashes   map[string]struct{}
}

// Index maps package names to their Entry.
type Index struct {
	entries map[string]*Entry
}

// IsWildcard reports whether a record version flags every version.
func IsWildcard(version string) bool {
	v := strings.TrimSpace(version)
	return v == "" || v == "*" || strings.EqualFold(v, "any")
}

// BuildIndex folds records into an Index. Records without a name are
// ignored; duplicates are harmless.
func BuildIndex(records []model.CompromiseRecord) *Index {
	ix := &Index{entries: make(map[string]*Entry)}
	for _, r := range records {
		name := strings.TrimSpace(r.Name)
		if name == "" {
			continue
		}
		e, ok := ix.entries[name]
		if !ok {
			e = &Entry{
				Versions: make(map[string]struct{}),
				Hashes:   make(map[string]struct{}),
			}
			ix.entries[name] = e
		}

		if IsWildcard(r.Version) {
			e.Wildcard = true
		} else {
			e.Versions[strings.TrimSpace(r.Version)] = struct{}{}
		}
		if h := strings.TrimSpace(r.Integrity); h != "" {
			e.Hashes[h] = struct{}{}
		}
	}
	return ix
}

// Lookup returns the entry for name.
func (ix *Index) Lookup(name string) (*Entry, bool) {
	e, ok := ix.entries[name]
	return e, ok
}

// Len is the number of distinct compromised names.
func (ix *Index) Len() int { return len(ix.entries) }

// Names returns the indexed names in sorted order.
func (ix *Index) Names() []string {
	out := make([]string, 0, len(ix.entries))
	for name := range ix.entries {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// HashList returns the entry's hashes sorted, for deterministic matching.
func (e *Entry) HashList() []string {
	out := make([]string, 0, len(e.Hashes))
	for h := range e.Hashes {
		out = append(out, h)
	}
	sort.Strings(out)
	return out
}
