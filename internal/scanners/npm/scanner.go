package npm

import (
	"strings"

	"wormsign/internal/lockfile"
)

// Handler reads npm lockfiles.
type Handler struct{}

func (Handler) ID() string    { return "npm" }
func (Handler) Label() string { return "npm" }

func (Handler) LockfileNames() []string {
	return []string{"package-lock.json", "npm-shrinkwrap.json"}
}

func (Handler) DetectPreference(field string) bool {
	return strings.HasPrefix(strings.TrimSpace(field), "npm")
}

func (h Handler) FindLockfile(root string) (string, bool) {
	return lockfile.FindFirst(root, h.LockfileNames())
}

func (Handler) Parse(content []byte) (*lockfile.Index, []string, error) {
	return ParsePackageLock(content)
}
