// Package lockfile holds the package-manager independent view of a
// lockfile: which versions of which packages were resolved, and the
// integrity hash recorded for each of them.
package lockfile

import (
	"errors"
	"sort"
	"strings"
)

// ErrParse marks lockfile content that is structurally invalid for the
// format it claims to be.
var ErrParse = errors.New("lockfile parse error")

// Dependency is one resolved package occurrence.
type Dependency struct {
	Name      string
	Version   string
	Integrity string
}

// Index maps package names to the set of versions resolved for them
// anywhere in the dependency graph. Integrity hashes are sparse.
type Index struct {
	packages  map[string]map[string]struct{}
	integrity map[string]map[string]string
}

func NewIndex() *Index {
	return &Index{
		packages:  make(map[string]map[string]struct{}),
		integrity: make(map[string]map[string]string),
	}
}

// Add records a dependency. The version is normalized first; the call
// reports false and records nothing when the name is empty or the
// version is not a concrete pin.
func (ix *Index) Add(dep Dependency) bool {
	name := strings.TrimSpace(dep.Name)
	version := NormalizeVersion(dep.Version)
	if name == "" || !IsConcrete(version) {
		return false
	}

	versions, ok := ix.packages[name]
	if !ok {
		versions = make(map[string]struct{})
		ix.packages[name] = versions
	}
	versions[version] = struct{}{}

	if hash := strings.TrimSpace(dep.Integrity); hash != "" {
		byVersion, ok := ix.integrity[name]
		if !ok {
			byVersion = make(map[string]string)
			ix.integrity[name] = byVersion
		}
		// first hash seen for a name+version wins
		if _, exists := byVersion[version]; !exists {
			byVersion[version] = hash
		}
	}
	return true
}

// Names returns every package name, sorted.
func (ix *Index) Names() []string {
	names := make([]string, 0, len(ix.packages))
	for name := range ix.packages {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Versions returns the versions resolved for name, sorted.
func (ix *Index) Versions(name string) []string {
	set := ix.packages[name]
	versions := make([]string, 0, len(set))
	for v := range set {
		versions = append(versions, v)
	}
	sort.Strings(versions)
	return versions
}

func (ix *Index) Has(name, version string) bool {
	_, ok := ix.packages[name][version]
	return ok
}

// Integrity returns the hash recorded for name at version, if any.
func (ix *Index) Integrity(name, version string) (string, bool) {
	hash, ok := ix.integrity[name][version]
	return hash, ok
}

// Len returns the number of distinct package names.
func (ix *Index) Len() int {
	return len(ix.packages)
}

// Pairs returns the number of distinct (name, version) pairs.
func (ix *Index) Pairs() int {
	n := 0
	for _, versions := range ix.packages {
		n += len(versions)
	}
	return n
}

// Dependencies flattens the index, sorted by name then version.
func (ix *Index) Dependencies() []Dependency {
	var deps []Dependency
	for _, name := range ix.Names() {
		for _, version := range ix.Versions(name) {
			hash, _ := ix.Integrity(name, version)
			deps = append(deps, Dependency{Name: name, Version: version, Integrity: hash})
		}
	}
	return deps
}

// NormalizeVersion trims a version and strips a parenthesised peer
// dependency suffix such as "1.0.0(react@18.2.0)".
func NormalizeVersion(raw string) string {
	v := strings.TrimSpace(raw)
	if i := strings.Index(v, "("); i >= 0 {
		v = v[:i]
	}
	return strings.TrimSpace(v)
}

var unresolved = map[string]struct{}{
	"":        {},
	"*":       {},
	"x":       {},
	"latest":  {},
	"next":    {},
	"unknown": {},
}

// IsConcrete reports whether v pins a single registry resolution rather
// than a range, a tag, or a protocol/path reference such as "file:../x",
// "workspace:*" or a git URL.
func IsConcrete(v string) bool {
	if _, bad := unresolved[strings.ToLower(v)]; bad {
		return false
	}
	switch v[0] {
	case '^', '~', '>', '<', '=':
		return false
	}
	if strings.ContainsAny(v, " \t:/") || strings.Contains(v, "||") {
		return false
	}
	if strings.HasSuffix(v, ".x") || strings.HasSuffix(v, ".*") {
		return false
	}
	return true
}
