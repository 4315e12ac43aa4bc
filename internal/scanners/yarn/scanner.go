package yarn

import (
	"strings"

	"wormsign/internal/lockfile"
)

// Handler reads yarn.lock, classic and Berry.
type Handler struct{}

func (Handler) ID() string    { return "yarn" }
func (Handler) Label() string { return "Yarn" }

func (Handler) LockfileNames() []string {
	return []string{"yarn.lock"}
}

func (Handler) DetectPreference(field string) bool {
	return strings.HasPrefix(strings.TrimSpace(field), "yarn")
}

func (h Handler) FindLockfile(root string) (string, bool) {
	return lockfile.FindFirst(root, h.LockfileNames())
}

func (Handler) Parse(content []byte) (*lockfile.Index, []string, error) {
	return ParseYarnLock(content)
}
