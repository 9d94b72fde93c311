package plugins

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolve(t *testing.T) {
	assert.Equal(t, "AlteryxBasePluginsGui.DbFileInput.DbFileInput", Resolve("DbFileInput"))
	assert.Equal(t, "AlteryxBasePluginsGui.BrowseV2.BrowseV2", Resolve("Browse"))
	// Full paths and unknown names pass through.
	assert.Equal(t, "Vendor.Custom.Custom", Resolve("Vendor.Custom.Custom"))
	assert.Equal(t, "NotATool", Resolve("NotATool"))
}

func TestShortName(t *testing.T) {
	assert.Equal(t, "DbFileInput", ShortName("AlteryxBasePluginsGui.DbFileInput.DbFileInput"))
	assert.Equal(t, "Filter", ShortName("Filter"))
	assert.Equal(t, "Unknown", ShortName(""))
}

func TestIsContainer(t *testing.T) {
	assert.True(t, IsContainer("AlteryxGuiToolkit.ToolContainer.ToolContainer"))
	assert.False(t, IsContainer("AlteryxBasePluginsGui.Filter.Filter"))
	assert.False(t, IsContainer(""))
}

func TestMatches(t *testing.T) {
	full := "AlteryxBasePluginsGui.Sample.Sample"
	assert.True(t, Matches(full, "Sample"))
	assert.True(t, Matches(full, full))
	assert.True(t, Matches(full, ""))
	assert.False(t, Matches(full, "Filter"))
	assert.True(t, Matches("AlteryxBasePluginsGui.BrowseV2.BrowseV2", "Browse"))
}

func TestLoad(t *testing.T) {
	tbl, err := Load([]byte("plugins:\n  A: X.A.A\n"))
	require.NoError(t, err)
	assert.Equal(t, "X.A.A", tbl.Resolve("A"))
	assert.Equal(t, []string{"A"}, tbl.Names())

	_, err = Load([]byte("plugins: {}\n"))
	assert.Error(t, err)

	_, err = Load([]byte("plugins: [unclosed\n"))
	assert.Error(t, err)
}

func TestDefaultTableNames(t *testing.T) {
	names := Default().Names()
	assert.Contains(t, names, Container)
	assert.Contains(t, names, "DbFileOutput")
	assert.Len(t, names, 18)
}
