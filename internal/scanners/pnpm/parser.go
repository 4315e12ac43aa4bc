package pnpm

import (
	"fmt"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"wormsign/internal/lockfile"
)

// PnpmLock covers lockfile formats 5.x through 9.x. v9 splits resolution
// data (packages) from the dependency graph (snapshots); both are read.
type PnpmLock struct {
	LockfileVersion any                     `yaml:"lockfileVersion"`
	Packages        map[string]*PackageInfo `yaml:"packages"`
	Snapshots       map[string]*PackageInfo `yaml:"snapshots"`
}

type PackageInfo struct {
	Name       string     `yaml:"name"`
	Version    string     `yaml:"version"`
	Resolution Resolution `yaml:"resolution"`
}

type Resolution struct {
	Integrity string `yaml:"integrity"`
	Tarball   string `yaml:"tarball"`
}

// ParsePnpmLock builds a lockfile index from pnpm-lock.yaml content.
func ParsePnpmLock(content []byte) (*lockfile.Index, []string, error) {
	var lock PnpmLock
	if err := yaml.Unmarshal(content, &lock); err != nil {
		return nil, nil, fmt.Errorf("%w: invalid pnpm-lock.yaml: %v", lockfile.ErrParse, err)
	}

	ix := lockfile.NewIndex()
	var warnings []string

	for _, section := range []map[string]*PackageInfo{lock.Packages, lock.Snapshots} {
		keys := make([]string, 0, len(section))
		for k := range section {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		for _, key := range keys {
			info := section[key]
			name, version := ParseKey(key)
			dep := lockfile.Dependency{Name: name, Version: version}
			if info != nil {
				if info.Name != "" {
					dep.Name = info.Name
				}
				if info.Version != "" && info.Name != "" {
					dep.Version = info.Version
				}
				dep.Integrity = info.Resolution.Integrity
			}
			if dep.Name == "" {
				continue
			}
			// file:, link: and URL versions are rejected here with a warning
			if !ix.Add(dep) {
				warnings = append(warnings, lockfile.Unresolved(dep.Name, dep.Version))
			}
		}
	}

	return ix, dedupe(warnings), nil
}

// ParseKey extracts name and version from a packages/snapshots key.
//
//	/left-pad/1.3.0                   (v5)
//	/@babel/core/7.22.5_debug@4.3.4   (v5, peer suffix)
//	/@babel/core@7.22.5(debug@4.3.4)  (v6)
//	left-pad@1.3.0                    (v9)
//	registry.npmjs.org/left-pad/1.3.0 (v5, non-default registry)
func ParseKey(key string) (string, string) {
	k := strings.TrimPrefix(key, "/")
	if i := strings.Index(k, "("); i >= 0 {
		k = k[:i]
	}
	if !strings.HasPrefix(key, "/") {
		k = stripRegistryHost(k)
	}

	// the name ends at the first "@" or "/" past the scope separator
	nameStart := 0
	if strings.HasPrefix(k, "@") {
		slash := strings.Index(k, "/")
		if slash < 0 {
			return "", ""
		}
		nameStart = slash + 1
	}
	sep := strings.IndexAny(k[nameStart:], "@/")
	if sep < 0 {
		return "", ""
	}
	sep += nameStart
	name, version := k[:sep], k[sep+1:]

	if k[sep] == '/' {
		if i := strings.Index(version, "_"); i >= 0 {
			version = version[:i]
		}
	}
	return name, version
}

// stripRegistryHost drops a leading "host/" segment. Only unslashed keys
// carry one, and a host always contains a dot and never an "@".
func stripRegistryHost(k string) string {
	if strings.HasPrefix(k, "@") {
		return k
	}
	slash := strings.Index(k, "/")
	if slash < 0 {
		return k
	}
	host := k[:slash]
	if !strings.Contains(host, ".") || strings.ContainsAny(host, "@:") {
		return k
	}
	return k[slash+1:]
}

func dedupe(in []string) []string {
	seen := make(map[string]struct{}, len(in))
	out := in[:0]
	for _, s := range in {
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}
