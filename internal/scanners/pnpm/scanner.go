package pnpm

import (
	"strings"

	"wormsign/internal/lockfile"
)

// Handler reads pnpm-lock.yaml.
type Handler struct{}

func (Handler) ID() string    { return "pnpm" }
func (Handler) Label() string { return "pnpm" }

func (Handler) LockfileNames() []string {
	return []string{"pnpm-lock.yaml"}
}

func (Handler) DetectPreference(field string) bool {
	return strings.HasPrefix(strings.TrimSpace(field), "pnpm")
}

func (h Handler) FindLockfile(root string) (string, bool) {
	return lockfile.FindFirst(root, h.LockfileNames())
}

func (Handler) Parse(content []byte) (*lockfile.Index, []string, error) {
	return ParsePnpmLock(content)
}
