package utils

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestTTLCache_Expiry(t *testing.T) {
	c, err := NewTTLCache[uint, bool](2, time.Minute)
	require.NoError(t, err)

	now := time.Now()
	c.now = func() time.Time { return now }

	c.Set(1, true)
	v, ok := c.Get(1)
	require.True(t, ok)
	require.True(t, v)

	now = now.Add(2 * time.Minute)
	_, ok = c.Get(1)
	require.False(t, ok)
	require.Zero(t, c.Len())
}

func TestTTLCache_Evicts(t *testing.T) {
	c, err := NewTTLCache[string, int](2, 0)
	require.NoError(t, err)

	c.Set("a", 1)
	c.Set("b", 2)
	c.Set("c", 3)

	_, ok := c.Get("a")
	require.False(t, ok)
	v, ok := c.Get("c")
	require.True(t, ok)
	require.Equal(t, 3, v)

	c.Delete("c")
	_, ok = c.Get("c")
	require.False(t, ok)
}

func TestRenderMarkdown(t *testing.T) {
	out := RenderMarkdown("**great** talk\nsee you")
	require.Contains(t, out, "<strong>great</strong>")
	require.Contains(t, out, "<br")

	out = RenderMarkdown("[x](javascript:alert(1))")
	require.False(t, strings.Contains(out, "javascript:"))
}

func TestParseID(t *testing.T) {
	id, err := ParseID("42")
	require.NoError(t, err)
	require.EqualValues(t, 42, id)

	for _, bad := range []string{"", "0", "-1", "abc", "1.5"} {
		_, err := ParseID(bad)
		require.Error(t, err, bad)
	}
	require.Equal(t, 0, StringToInt("x"))
	require.Equal(t, 3, StringToInt("3"))
}
