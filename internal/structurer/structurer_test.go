package structurer_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SovereignSatellite/Spider/internal/cfg"
	"github.com/SovereignSatellite/Spider/internal/structurer"
	"github.com/SovereignSatellite/Spider/internal/wasm"
)

func buildAddFunction(t *testing.T) *cfg.Function {
	t.Helper()
	mod := &wasm.Module{
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

	fn, err := cfg.Build(mod, 0)
	require.NoError(t, err)
	return fn
}

func TestRunOnStraightLineFunctionFindsNoLoops(t *testing.T) {
	fn := buildAddFunction(t)

	g := structurer.NewGraph(fn)
	s := structurer.New()
	s.Run(g, fn.Entry, fn.Exit)

	assert.Empty(t, s.Repeats())
}

func TestDisableEnableRepeatsRoundTrips(t *testing.T) {
	fn := buildAddFunction(t)

	g := structurer.NewGraph(fn)
	s := structurer.New()
	s.HandleRepeats(g, fn.Entry, fn.Exit)

	before := append([]cfg.BlockID(nil), g.Successors(fn.Entry)...)

	s.DisableRepeats(g)
	s.EnableRepeats(g)

	after := g.Successors(fn.Entry)
	assert.Equal(t, before, after)
}

func TestHandleExitsGivesEveryDeadEndAnEdgeToExit(t *testing.T) {
	fn := buildAddFunction(t)

	g := structurer.NewGraph(fn)
	s := structurer.New()
	s.HandleRepeats(g, fn.Entry, fn.Exit)
	s.HandleExits(g, fn.Entry, fn.Exit)

	for id := range fn.Blocks {
		bid := cfg.BlockID(id)
		if bid == fn.Exit {
			continue
		}
		assert.NotEmpty(t, g.Successors(bid), "block %d has no successor after exit patching", bid)
	}
}
