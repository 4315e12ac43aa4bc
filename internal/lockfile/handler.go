package lockfile

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
)

// Handler is one package-manager family. Implementations live under
// internal/scanners; adding a manager means adding a Handler.
type Handler interface {
	// ID is the short machine name ("npm", "yarn", ...).
	ID() string
	// Label is the human name used in warnings.
	Label() string
	// LockfileNames lists the lockfile names probed in a project root,
	// in preference order.
	LockfileNames() []string
	// DetectPreference reports whether a package.json "packageManager"
	// value selects this handler.
	DetectPreference(field string) bool
	// FindLockfile returns the first lockfile present in root.
	FindLockfile(root string) (string, bool)
	// Parse turns raw lockfile content into an Index plus warnings.
	// Structurally invalid content yields an error wrapping ErrParse.
	Parse(content []byte) (*Index, []string, error)
}

// FindFirst returns the first of names that exists as a regular file in
// root.
func FindFirst(root string, names []string) (string, bool) {
	for _, name := range names {
		candidate := filepath.Join(root, name)
		info, err := os.Stat(candidate)
		if err == nil && info.Mode().IsRegular() {
			return candidate, true
		}
	}
	return "", false
}

// Load reads and parses the lockfile at path with h. A parse that yields
// nothing from non-empty content gets a warning appended.
func Load(h Handler, path string) (*Index, []string, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("unable to read %s: %w", filepath.Base(path), err)
	}
	ix, warnings, err := h.Parse(content)
	if err != nil {
		return nil, warnings, fmt.Errorf("unable to parse %s: %w", filepath.Base(path), err)
	}
	if ix.Len() == 0 && len(bytes.TrimSpace(content)) > 0 {
		warnings = append(warnings, fmt.Sprintf("No packages parsed from %s; unsupported format?", filepath.Base(path)))
	}
	return ix, warnings, nil
}

// Unresolved formats the warning emitted when a parser drops an entry
// whose version is not a concrete pin.
func Unresolved(name, version string) string {
	return fmt.Sprintf("Skipping %s: unresolved version %q", name, version)
}
