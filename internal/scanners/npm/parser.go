package npm

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"wormsign/internal/lockfile"
)

// PackageLock covers the package-lock.json / npm-shrinkwrap.json shapes:
// the flat "packages" map of lockfile v2+ and the nested "dependencies"
// tree of lockfile v1. v2 files carry both.
type PackageLock struct {
	LockfileVersion int                        `json:"lockfileVersion"`
	Packages        map[string]*LockPackage    `json:"packages"`
	Dependencies    map[string]json.RawMessage `json:"dependencies"`
}

// LockPackage is one entry of the flat "packages" map.
type LockPackage struct {
	Name      string `json:"name"`
	Version   string `json:"version"`
	Resolved  string `json:"resolved"`
	Integrity string `json:"integrity"`
	Link      bool   `json:"link"`
}

// treeNode is one entry of the nested v1 tree. Children are kept raw
// because "requires" maps names to range strings, not objects.
type treeNode struct {
	Version      string                     `json:"version"`
	Integrity    string                     `json:"integrity"`
	Dependencies map[string]json.RawMessage `json:"dependencies"`
	Requires     map[string]json.RawMessage `json:"requires"`
}

// ParsePackageLock builds a lockfile index from package-lock.json content.
func ParsePackageLock(content []byte) (*lockfile.Index, []string, error) {
	var lock PackageLock
	if err := json.Unmarshal(content, &lock); err != nil {
		return nil, nil, fmt.Errorf("%w: invalid package-lock json: %v", lockfile.ErrParse, err)
	}

	ix := lockfile.NewIndex()
	var warnings []string

	for _, pkgPath := range sortedKeys(lock.Packages) {
		info := lock.Packages[pkgPath]
		// "" is the project itself
		if pkgPath == "" || info == nil || info.Link {
			continue
		}
		name := info.Name
		if name == "" {
			name = InferNameFromPath(pkgPath)
		}
		if name == "" {
			continue
		}
		if !ix.Add(lockfile.Dependency{Name: name, Version: info.Version, Integrity: info.Integrity}) {
			warnings = append(warnings, lockfile.Unresolved(name, info.Version))
		}
	}

	warnings = append(warnings, walkTree(lock.Dependencies, ix)...)

	return ix, dedupeStrings(warnings), nil
}

type frame struct {
	name string
	raw  json.RawMessage
}

// walkTree visits the nested v1 tree depth-first with an explicit stack,
// adding every resolution it meets. Siblings are visited in name order.
func walkTree(root map[string]json.RawMessage, ix *lockfile.Index) []string {
	var warnings []string
	stack := pushChildren(nil, root)

	for len(stack) > 0 {
		top := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		var node treeNode
		if err := json.Unmarshal(top.raw, &node); err != nil {
			// range strings under "requires" are not resolutions
			continue
		}
		if !ix.Add(lockfile.Dependency{Name: top.name, Version: node.Version, Integrity: node.Integrity}) {
			warnings = append(warnings, lockfile.Unresolved(top.name, node.Version))
		}
		stack = pushChildren(stack, node.Dependencies)
		stack = pushChildren(stack, node.Requires)
	}
	return warnings
}

func pushChildren(stack []frame, children map[string]json.RawMessage) []frame {
	names := sortedKeys(children)
	for i := len(names) - 1; i >= 0; i-- {
		name, raw := names[i], children[names[i]]
		trimmed := strings.TrimSpace(string(raw))
		if !strings.HasPrefix(trimmed, "{") {
			continue
		}
		stack = append(stack, frame{name: name, raw: raw})
	}
	return stack
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// InferNameFromPath takes the package name from a node_modules path such
// as "node_modules/a/node_modules/@scope/b", keeping scoped names whole.
func InferNameFromPath(pkgPath string) string {
	const marker = "node_modules/"
	i := strings.LastIndex(pkgPath, marker)
	if i < 0 {
		return ""
	}
	rest := strings.Trim(pkgPath[i+len(marker):], "/")
	if rest == "" {
		return ""
	}
	segments := strings.Split(rest, "/")
	if strings.HasPrefix(segments[0], "@") {
		if len(segments) < 2 {
			return segments[0]
		}
		return segments[0] + "/" + segments[1]
	}
	return segments[0]
}

func dedupeStrings(in []string) []string {
	if len(in) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}
