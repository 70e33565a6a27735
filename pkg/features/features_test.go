package features

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	flags := Parse("use_memory_data_cache, OTHER\nthird")

	require.True(t, flags.IsEnabled(UseMemoryDataCache))
	require.True(t, flags.IsEnabled("other"))
	require.True(t, flags.IsEnabled("THIRD"))
	require.False(t, flags.IsEnabled("missing"))
}

func TestStatic_ZeroAndNil(t *testing.T) {
	var nilFlags *Static
	require.False(t, nilFlags.IsEnabled(UseMemoryDataCache))

	var zero Static
	require.False(t, zero.IsEnabled(UseMemoryDataCache))
	zero.Set(UseMemoryDataCache, true)
	require.True(t, zero.IsEnabled(UseMemoryDataCache))
}
