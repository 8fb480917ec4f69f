package runtime_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SovereignSatellite/Spider/internal/luau/runtime"
)

func TestPreambleIncludesTransitiveDeps(t *testing.T) {
	out := runtime.Preamble(map[string]bool{"i64_extend8_s": true})

	for _, want := range []string{"function i64(", "function extend_i32_s(", "function i32_extend8_s(", "function i64_extend8_s("} {
		assert.Contains(t, out, want)
	}
}

func TestPreambleOrdersDependenciesBeforeDependents(t *testing.T) {
	out := runtime.Preamble(map[string]bool{"i64_extend8_s": true})

	depIdx := strings.Index(out, "function i32_extend8_s(")
	userIdx := strings.Index(out, "function i64_extend8_s(")
	require.GreaterOrEqual(t, depIdx, 0)
	require.GreaterOrEqual(t, userIdx, 0)
	assert.Less(t, depIdx, userIdx)
}

func TestPreambleOmitsUnusedHelpers(t *testing.T) {
	out := runtime.Preamble(map[string]bool{"trap": true})

	assert.Contains(t, out, "function trap(")
	assert.NotContains(t, out, "function i64(")
	assert.NotContains(t, out, "function memory_new(")
}

func TestPreambleIsDeterministicRegardlessOfMapIterationOrder(t *testing.T) {
	used := map[string]bool{"i64_extend8_s": true, "memory_new": true, "table_grow": true}

	first := runtime.Preamble(used)
	second := runtime.Preamble(used)

	assert.Equal(t, first, second)
}

func TestPreambleEmptyUsedProducesEmptyOutput(t *testing.T) {
	out := runtime.Preamble(map[string]bool{})
	assert.Empty(t, out)
}

func TestPreambleUnknownNameIsIgnored(t *testing.T) {
	out := runtime.Preamble(map[string]bool{"does_not_exist": true})
	assert.Empty(t, out)
}
