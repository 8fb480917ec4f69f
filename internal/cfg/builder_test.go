package cfg_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SovereignSatellite/Spider/internal/cfg"
	"github.com/SovereignSatellite/Spider/internal/wasm"
)

// addModule returns a one-function module: func add(a, b i32) i32 { return
// a + b }, straight-line with no branches.
func addModule() *wasm.Module {
	return &wasm.Module{
		Types: []wasm.FuncType{
			{Params: []wasm.ValueType{wasm.I32, wasm.I32}, Results: []wasm.ValueType{wasm.I32}},
		},
		Functions: []wasm.Function{
			{
				TypeIndex: 0,
				Body: []wasm.Operator{
					{Op: wasm.OpLocalGet, Index: 0},
					{Op: wasm.OpLocalGet, Index: 1},
					{Op: wasm.OpBinary, NumOp: wasm.NumAdd, Type: wasm.I32},
					{Op: wasm.OpReturn},
				},
			},
		},
	}
}

func TestBuildStraightLineFunction(t *testing.T) {
	mod := addModule()

	fn, err := cfg.Build(mod, 0)
	require.NoError(t, err)

	assert.Equal(t, 2, fn.NumParams)
	assert.Equal(t, 0, fn.NumLocals)
	assert.Equal(t, 1, fn.ResultCount)
	assert.NotEmpty(t, fn.Blocks)
	assert.NotEqual(t, fn.Entry, fn.Exit)

	// Every block but the entry must have at least one predecessor, since
	// Build drops unreachable blocks and fills predecessor lists after the
	// whole function is built.
	for id, b := range fn.Blocks {
		if cfg.BlockID(id) == fn.Entry {
			continue
		}
		assert.NotEmpty(t, b.Preds, "block %d has no predecessors", id)
	}
}

func TestValueTypeOfRoundTrips(t *testing.T) {
	mod := addModule()
	fn, err := cfg.Build(mod, 0)
	require.NoError(t, err)

	for _, lt := range fn.LocalTypes {
		vt := cfg.ValueTypeOf(lt)
		assert.Equal(t, wasm.I32, vt)
	}
}
