package match

import (
	"encoding/json"
	"sort"
	"strings"

	"wormsign/internal/compromise"
	"wormsign/internal/lockfile"
	"wormsign/internal/model"
)

// Rule names why a locked dependency was flagged.
type Rule int

const (
	NoMatch Rule = iota
	Wildcard
	ExactVersion
	IntegrityHash
)

// Check applies the flagging rules for one locked name/version, in
// priority order: wildcard, exact version, then integrity containment.
func Check(e *compromise.Entry, version, integrity string) Rule {
	if e == nil {
		return NoMatch
	}
	if e.Wildcard {
		return Wildcard
	}
	if _, ok := e.Versions[version]; ok {
		return ExactVersion
	}
	if integrity != "" {
		for _, h := range e.HashList() {
			if strings.Contains(integrity, h) {
				return IntegrityHash
			}
		}
	}
	return NoMatch
}

// Match reconciles a lockfile index against the compromise index. Each
// match carries the package.json section that declares it; a name not
// declared anywhere is "transitive" and, when declared is nil, every
// match is "locked". Output is deduplicated on name and version and
// sorted by name, then version.
func Match(lock *lockfile.Index, ci *compromise.Index, declared map[string]string) []model.ScanMatch {
	matches := []model.ScanMatch{}
	if lock == nil || ci == nil {
		return matches
	}

	for _, name := range lock.Names() {
		entry, ok := ci.Lookup(name)
		if !ok {
			continue
		}
		for _, version := range lock.Versions(name) {
			integrity, _ := lock.Integrity(name, version)
			if Check(entry, version, integrity) == NoMatch {
				continue
			}
			matches = append(matches, model.ScanMatch{
				Name:    name,
				Version: version,
				Section: sectionFor(declared, name),
			})
		}
	}

	sort.SliceStable(matches, func(i, j int) bool {
		if matches[i].Name != matches[j].Name {
			return matches[i].Name < matches[j].Name
		}
		return matches[i].Version < matches[j].Version
	})
	return dedupe(matches)
}

func sectionFor(declared map[string]string, name string) string {
	if declared == nil {
		return model.SectionLocked
	}
	if section, ok := declared[name]; ok {
		return section
	}
	return model.SectionTransitive
}

func dedupe(in []model.ScanMatch) []model.ScanMatch {
	out := in[:0]
	for _, m := range in {
		if n := len(out); n > 0 && out[n-1].Name == m.Name && out[n-1].Version == m.Version {
			continue
		}
		out = append(out, m)
	}
	return out
}

// Declared maps each direct dependency named in package.json to the first
// section (dependencies, devDependencies, peerDependencies,
// optionalDependencies) that lists it. Malformed sections are ignored.
func Declared(pkg map[string]json.RawMessage) map[string]string {
	out := make(map[string]string)
	for _, section := range model.DependencySections {
		raw, ok := pkg[section]
		if !ok {
			continue
		}
		var deps map[string]json.RawMessage
		if err := json.Unmarshal(raw, &deps); err != nil {
			continue
		}
		for name := range deps {
			if _, seen := out[name]; !seen {
				out[name] = section
			}
		}
	}
	return out
}
