package yarn

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wormsign/internal/lockfile"
)

const classicLock = `# THIS IS AN AUTOGENERATED FILE. DO NOT EDIT THIS FILE DIRECTLY.
# yarn lockfile v1


"@babel/core@^7.0.0", "@babel/core@^7.1.0":
  version "7.22.5"
  resolved "https://registry.yarnpkg.com/@babel/core/-/core-7.22.5.tgz#abc123"
  integrity sha512-core
  dependencies:
    debug "^4.1.0"
    version "9.9.9"

left-pad@^1.3.0:
  version "1.3.0"
  resolved "https://registry.yarnpkg.com/left-pad/-/left-pad-1.3.0.tgz#5b8a3a7765dfe001261dde915589e782f8c94d1e"

debug@^4.1.0:
  version "4.3.4"
  integrity sha512-debug
`

func TestParseClassic(t *testing.T) {
	ix, warnings, err := ParseYarnLock([]byte(classicLock))
	require.NoError(t, err)
	assert.Empty(t, warnings)

	assert.Equal(t, []string{"@babel/core", "debug", "left-pad"}, ix.Names())
	assert.Equal(t, []string{"7.22.5"}, ix.Versions("@babel/core"))
	assert.Equal(t, []string{"4.3.4"}, ix.Versions("debug"), "nested dependency block must not leak into the entry")

	hash, ok := ix.Integrity("@babel/core", "7.22.5")
	require.True(t, ok)
	assert.Equal(t, "sha512-core", hash)

	hash, ok = ix.Integrity("left-pad", "1.3.0")
	require.True(t, ok)
	assert.Equal(t, "5b8a3a7765dfe001261dde915589e782f8c94d1e", hash, "resolved fragment is the fallback hash")
}

func TestParseClassicWithoutTrailingBlankLine(t *testing.T) {
	ix, _, err := ParseYarnLock([]byte("foo@^1.0.0:\n  version \"1.0.1\""))
	require.NoError(t, err)
	assert.True(t, ix.Has("foo", "1.0.1"))
}

func TestParseClassicMalformed(t *testing.T) {
	_, _, err := ParseYarnLock([]byte("foo@^1.0.0\n  version \"1.0.1\"\n"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, lockfile.ErrParse))

	_, _, err = ParseYarnLock([]byte("  version \"1.0.1\"\n"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, lockfile.ErrParse))
}

const berryLock = `__metadata:
  version: 8
  cacheKey: 10c0

"@scope/pkg@npm:^2.0.0":
  version: 2.0.1
  resolution: "@scope/pkg@npm:2.0.1"
  checksum: 10c0/deadbeef
  languageName: node
  linkType: hard

"left-pad@npm:^1.2.0, left-pad@npm:^1.3.0":
  version: 1.3.0
  resolution: "left-pad@npm:1.3.0"
  checksum: 10c0/cafe
  languageName: node
  linkType: hard

"alias@npm:real-pkg@^1.0.0":
  version: 1.0.4
  resolution: "real-pkg@npm:1.0.4"
  languageName: node
  linkType: hard

"my-app@workspace:.":
  version: 0.0.0-use.local
  resolution: "my-app@workspace:."
  languageName: unknown
  linkType: soft
`

func TestParseBerry(t *testing.T) {
	ix, warnings, err := ParseYarnLock([]byte(berryLock))
	require.NoError(t, err)
	assert.Empty(t, warnings)

	assert.Equal(t, []string{"@scope/pkg", "left-pad", "real-pkg"}, ix.Names())
	assert.True(t, ix.Has("left-pad", "1.3.0"))
	assert.True(t, ix.Has("real-pkg", "1.0.4"))

	hash, ok := ix.Integrity("@scope/pkg", "2.0.1")
	require.True(t, ok)
	assert.Equal(t, "10c0/deadbeef", hash)
}

const berryConflictingChecksums = `__metadata:
  version: 8

"dup@npm:~1.0.0":
  version: 1.0.0
  resolution: "dup@npm:1.0.0"
  checksum: 10c0/second

"dup@npm:^1.0.0":
  version: 1.0.0
  resolution: "dup@npm:1.0.0"
  checksum: 10c0/first
`

func TestParseBerryChecksumIsDeterministic(t *testing.T) {
	for i := 0; i < 20; i++ {
		ix, _, err := ParseYarnLock([]byte(berryConflictingChecksums))
		require.NoError(t, err)
		hash, ok := ix.Integrity("dup", "1.0.0")
		require.True(t, ok)
		assert.Equal(t, "10c0/first", hash)
	}
}

func TestParseBerryInvalid(t *testing.T) {
	_, _, err := ParseYarnLock([]byte("__metadata:\n  version: [\n"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, lockfile.ErrParse))
}

func TestDescriptorName(t *testing.T) {
	cases := map[string]string{
		"left-pad@^1.3.0":                     "left-pad",
		"@scope/pkg@npm:^2.0.0":               "@scope/pkg",
		"patch:left-pad@npm%3A1.3.0#~builtin": "left-pad",
		"alias@npm:real-pkg@^1.0.0":           "real-pkg",
		"alias@npm:@s/real@^1.0.0":            "@s/real",
		"my-app@workspace:.":                  "",
		"local@link:../local":                 "",
		"bare":                                "bare",
	}
	for in, want := range cases {
		assert.Equal(t, want, DescriptorName(in), in)
	}
}

func TestDetectPreference(t *testing.T) {
	h := Handler{}
	assert.True(t, h.DetectPreference("yarn@4.1.0"))
	assert.True(t, h.DetectPreference("yarn"))
	assert.False(t, h.DetectPreference("pnpm@9"))
}
