package design

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Test Plan for the report cache:
// - Keys depend on both source and top module
// - Put then Get returns the report and counts a hit
// - Invalidate clears everything

func TestReportKey(t *testing.T) {
	t.Parallel()

	k1 := ReportKey("module a; endmodule", "a")
	assert.Len(t, k1, 64)
	assert.Equal(t, k1, ReportKey("module a; endmodule", "a"))
	assert.NotEqual(t, k1, ReportKey("module a; endmodule", "b"))
	assert.NotEqual(t, k1, ReportKey("module a; endmodule ", "a"))
}

func TestReportCache(t *testing.T) {
	t.Parallel()

	c, err := NewReportCache(1<<20, 0)
	require.NoError(t, err)
	defer c.Close()

	key := ReportKey("src", "top")
	_, ok := c.Get(key)
	assert.False(t, ok)

	c.Put(key, "Top module: \\top\n")
	report, ok := c.Get(key)
	require.True(t, ok)
	assert.Equal(t, "Top module: \\top\n", report)

	hits, misses := c.Stats()
	assert.Equal(t, int64(1), hits)
	assert.Equal(t, int64(1), misses)

	c.Invalidate()
	_, ok = c.Get(key)
	assert.False(t, ok)
}
