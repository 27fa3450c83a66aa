package doccache

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testCache(t *testing.T) *Cache {
	t.Helper()
	c, err := Open(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { c.Close() })
	return c
}

func strPtr(s string) *string { return &s }

func TestCacheRoundTrip(t *testing.T) {
	c := testCache(t)

	_, ok, err := c.Get("react", strPtr("hooks"), 1)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, c.Set("react", strPtr("hooks"), 1, "useEffect runs after paint"))

	content, ok, err := c.Get("react", strPtr("hooks"), 1)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "useEffect runs after paint", content)
}

func TestCacheKeyVariants(t *testing.T) {
	assert.Equal(t, "react::hooks::2", Key("react", strPtr("hooks"), 2))
	assert.Equal(t, "react::::1", Key("react", nil, 1))
	// page 0 and nil topic normalize to the defaults
	assert.Equal(t, Key("react", nil, 1), Key("react", nil, 0))
}

func TestCacheSeparateKeysDoNotCollide(t *testing.T) {
	c := testCache(t)
	require.NoError(t, c.Set("react", strPtr("hooks"), 1, "page one"))
	require.NoError(t, c.Set("react", strPtr("hooks"), 2, "page two"))
	require.NoError(t, c.Set("react", nil, 1, "overview"))

	content, ok, _ := c.Get("react", strPtr("hooks"), 2)
	assert.True(t, ok)
	assert.Equal(t, "page two", content)

	content, ok, _ = c.Get("react", nil, 1)
	assert.True(t, ok)
	assert.Equal(t, "overview", content)
}

func TestCacheSetReplaces(t *testing.T) {
	c := testCache(t)
	require.NoError(t, c.Set("vue", nil, 1, "old"))
	require.NoError(t, c.Set("vue", nil, 1, "new"))

	content, ok, _ := c.Get("vue", nil, 1)
	assert.True(t, ok)
	assert.Equal(t, "new", content)
}

func TestCachePurge(t *testing.T) {
	c := testCache(t)
	require.NoError(t, c.Set("react", strPtr("hooks"), 1, "a"))
	require.NoError(t, c.Set("react", strPtr("state"), 1, "b"))
	require.NoError(t, c.Set("vue", nil, 1, "c"))

	n, err := c.Purge("react")
	require.NoError(t, err)
	assert.EqualValues(t, 2, n)

	_, ok, _ := c.Get("react", strPtr("hooks"), 1)
	assert.False(t, ok)
	_, ok, _ = c.Get("vue", nil, 1)
	assert.True(t, ok)
}
