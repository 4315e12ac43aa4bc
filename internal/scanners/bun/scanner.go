package bun

import (
	"strings"

	"wormsign/internal/lockfile"
)

// Handler reads the text bun.lock. The binary bun.lockb is not supported.
type Handler struct{}

func (Handler) ID() string    { return "bun" }
func (Handler) Label() string { return "Bun" }

func (Handler) LockfileNames() []string {
	return []string{"bun.lock"}
}

func (Handler) DetectPreference(field string) bool {
	return strings.HasPrefix(strings.TrimSpace(field), "bun")
}

func (h Handler) FindLockfile(root string) (string, bool) {
	return lockfile.FindFirst(root, h.LockfileNames())
}

func (Handler) Parse(content []byte) (*lockfile.Index, []string, error) {
	return ParseBunLock(content)
}
