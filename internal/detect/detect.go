package detect

import (
	"fmt"
	"strings"

	"wormsign/internal/lockfile"
	"wormsign/internal/scanners/bun"
	"wormsign/internal/scanners/npm"
	"wormsign/internal/scanners/pnpm"
	"wormsign/internal/scanners/yarn"
)

// Handlers is the fixed detection order. When several lockfiles are
// present and package.json does not say which manager owns the project,
// the first one in this list wins.
var Handlers = []lockfile.Handler{
	pnpm.Handler{},
	yarn.Handler{},
	bun.Handler{},
	npm.Handler{},
}

// Result is the outcome of package manager detection. Handler is nil
// when nothing could be detected. LockPath is empty when the declared
// manager has no lockfile on disk. Fallbacks holds the other lockfiles
// found, in handler order, to try when LockPath cannot be parsed.
type Result struct {
	Handler   lockfile.Handler
	LockPath  string
	Fallbacks []Candidate
	Warnings  []string
}

// Candidate is a handler whose lockfile exists in the project root.
type Candidate struct {
	Handler  lockfile.Handler
	LockPath string
}

func (r *Result) choose(c Candidate, available []Candidate) {
	r.Handler, r.LockPath = c.Handler, c.LockPath
	for _, other := range available {
		if other.Handler.ID() != c.Handler.ID() {
			r.Fallbacks = append(r.Fallbacks, other)
		}
	}
}

// Detect picks the handler for the project at root. packageManager is
// the raw value of package.json's "packageManager" field, possibly empty.
func Detect(root, packageManager string) Result {
	return detectWith(Handlers, root, packageManager)
}

func detectWith(handlers []lockfile.Handler, root, packageManager string) Result {
	var res Result

	// 1. Declared preference
	var preferred lockfile.Handler
	if field := strings.TrimSpace(packageManager); field != "" {
		for _, h := range handlers {
			if h.DetectPreference(field) {
				preferred = h
				break
			}
		}
	}

	// 2. Lockfiles on disk
	var available []Candidate
	for _, h := range handlers {
		if path, ok := h.FindLockfile(root); ok {
			available = append(available, Candidate{Handler: h, LockPath: path})
		}
	}

	// 3. Policy
	if preferred != nil {
		for _, c := range available {
			if c.Handler.ID() == preferred.ID() {
				res.choose(c, available)
				return res
			}
		}
		if len(available) > 0 {
			fallback := available[0]
			res.Warnings = append(res.Warnings, fmt.Sprintf(
				"package.json declares %s, but its lockfile is missing; falling back to %s.",
				preferred.Label(), fallback.Handler.Label()))
			res.choose(fallback, available)
			return res
		}
		res.Warnings = append(res.Warnings, fmt.Sprintf(
			"package.json declares %s, but no matching lockfile was found.", preferred.Label()))
		res.Handler = preferred
		return res
	}

	switch len(available) {
	case 0:
		return res
	case 1:
		res.choose(available[0], available)
		return res
	}

	labels := make([]string, len(available))
	for i, c := range available {
		labels[i] = c.Handler.Label()
	}
	res.Warnings = append(res.Warnings, fmt.Sprintf(
		"Multiple lockfiles detected (%s); defaulting to %s.",
		strings.Join(labels, ", "), available[0].Handler.Label()))
	res.choose(available[0], available)
	return res
}
