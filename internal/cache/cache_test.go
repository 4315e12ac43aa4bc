package cache

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wormsign/internal/model"
)

func openTemp(t *testing.T) *FeedCache {
	t.Helper()
	c, err := Open(filepath.Join(t.TempDir(), FileName))
	require.NoError(t, err)
	t.Cleanup(func() { c.Close() })
	return c
}

func TestKey(t *testing.T) {
	assert.Equal(t, "datadog,koi", Key([]string{"koi", " datadog ", ""}))
	assert.Equal(t, Key([]string{"a", "b"}), Key([]string{"b", "a"}))
}

func TestPutGet(t *testing.T) {
	c := openTemp(t)
	records := []model.CompromiseRecord{{Name: "left-pad", Version: "1.3.0"}}

	_, ok, err := c.Get([]string{"koi"})
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, c.Put([]string{"koi", "datadog"}, records))

	got, ok, err := c.Get([]string{"datadog", "koi"})
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, records, got)

	_, ok, err = c.Get([]string{"koi"})
	require.NoError(t, err)
	assert.False(t, ok, "different source set is a different key")
}

func TestExpiry(t *testing.T) {
	c := openTemp(t)
	now := time.Date(2025, 11, 24, 12, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }

	require.NoError(t, c.Put([]string{"koi"}, []model.CompromiseRecord{{Name: "x"}}))

	now = now.Add(59 * time.Minute)
	_, ok, err := c.Get([]string{"koi"})
	require.NoError(t, err)
	assert.True(t, ok)

	now = now.Add(2 * time.Minute)
	_, ok, err = c.Get([]string{"koi"})
	require.NoError(t, err)
	assert.False(t, ok)
}
