package bun

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wormsign/internal/lockfile"
)

const sampleLock = `{
  "lockfileVersion": 1,
  "workspaces": {
    "": {
      "name": "demo",
      "dependencies": {
        "left-pad": "^1.3.0",
      },
    },
  },
  // trailing commas and comments are legal in bun.lock
  "packages": {
    "left-pad": ["left-pad@1.3.0", "", {}, "sha512-leftpad"],
    "@babel/core": ["@babel/core@7.22.5", "", { "dependencies": { "debug": "^4.1.0" } }, "sha512-core"],
    "@babel/core/debug": ["debug@4.3.4", "", {}, "sha512-debug"],
    "local-lib": ["local-lib@workspace:packages/local-lib"],
    "from-git": ["from-git@github:user/repo#abc123", {}],
  },
}
`

func TestParseBunLock(t *testing.T) {
	ix, warnings, err := ParseBunLock([]byte(sampleLock))
	require.NoError(t, err)
	assert.Equal(t, []string{
		`Skipping from-git: unresolved version "github:user/repo#abc123"`,
		`Skipping local-lib: unresolved version "workspace:packages/local-lib"`,
	}, warnings)

	assert.Equal(t, []string{"@babel/core", "debug", "left-pad"}, ix.Names())
	assert.True(t, ix.Has("@babel/core", "7.22.5"))
	assert.True(t, ix.Has("debug", "4.3.4"))

	hash, ok := ix.Integrity("left-pad", "1.3.0")
	require.True(t, ok)
	assert.Equal(t, "sha512-leftpad", hash)
}

func TestParseBunLockInvalid(t *testing.T) {
	_, _, err := ParseBunLock([]byte(`{"packages": {`))
	require.Error(t, err)
	assert.True(t, errors.Is(err, lockfile.ErrParse))
}

func TestParseBunLockUnresolved(t *testing.T) {
	ix, warnings, err := ParseBunLock([]byte(`{"packages": {"x": ["x@latest", "", {}, "sha512-x"]}}`))
	require.NoError(t, err)
	assert.Equal(t, 0, ix.Len())
	assert.Equal(t, []string{`Skipping x: unresolved version "latest"`}, warnings)
}

func TestSplitIdent(t *testing.T) {
	name, version := SplitIdent("@scope/pkg@2.0.1")
	assert.Equal(t, "@scope/pkg", name)
	assert.Equal(t, "2.0.1", version)

	name, version = SplitIdent("left-pad@1.3.0")
	assert.Equal(t, "left-pad", name)
	assert.Equal(t, "1.3.0", version)

	name, version = SplitIdent("@scope/pkg")
	assert.Equal(t, "@scope/pkg", name)
	assert.Equal(t, "", version)
}
