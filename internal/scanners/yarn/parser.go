package yarn

import (
	"bufio"
	"bytes"
	"fmt"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"wormsign/internal/lockfile"
)

// ParseYarnLock builds a lockfile index from yarn.lock content. Berry
// lockfiles (v2+) are YAML and carry a __metadata block; everything else
// is treated as the classic v1 format.
func ParseYarnLock(content []byte) (*lockfile.Index, []string, error) {
	if isBerry(content) {
		return parseBerry(content)
	}
	return parseClassic(content)
}

func isBerry(content []byte) bool {
	sc := bufio.NewScanner(bytes.NewReader(content))
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if strings.HasPrefix(line, "__metadata:") || strings.HasPrefix(line, `"__metadata":`) {
			return true
		}
	}
	return false
}

type berryEntry struct {
	Version    string `yaml:"version"`
	Resolution string `yaml:"resolution"`
	Checksum   string `yaml:"checksum"`
}

func parseBerry(content []byte) (*lockfile.Index, []string, error) {
	var doc map[string]yaml.Node
	if err := yaml.Unmarshal(content, &doc); err != nil {
		return nil, nil, fmt.Errorf("%w: invalid yarn berry lockfile: %v", lockfile.ErrParse, err)
	}

	ix := lockfile.NewIndex()
	var warnings []string

	keys := make([]string, 0, len(doc))
	for key := range doc {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	for _, key := range keys {
		node := doc[key]
		if key == "__metadata" || node.Kind != yaml.MappingNode {
			continue
		}
		var entry berryEntry
		if err := node.Decode(&entry); err != nil {
			warnings = append(warnings, fmt.Sprintf("Skipping yarn entry %q: %v", key, err))
			continue
		}
		warnings = append(warnings, addEntry(ix, splitDescriptors(key), entry.Version, entry.Checksum)...)
	}
	return ix, warnings, nil
}

// addEntry contributes version (and hash) to the name of every
// descriptor in an entry header.
func addEntry(ix *lockfile.Index, descriptors []string, version, hash string) []string {
	var warnings []string
	seen := make(map[string]struct{}, len(descriptors))
	for _, d := range descriptors {
		name := DescriptorName(d)
		if name == "" {
			continue
		}
		if _, dup := seen[name]; dup {
			continue
		}
		seen[name] = struct{}{}
		if !ix.Add(lockfile.Dependency{Name: name, Version: version, Integrity: hash}) {
			warnings = append(warnings, lockfile.Unresolved(name, version))
		}
	}
	return warnings
}
