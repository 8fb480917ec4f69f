package liveness_test

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SovereignSatellite/Spider/internal/cfg"
	"github.com/SovereignSatellite/Spider/internal/liveness"
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

func TestComputeMarksParamsLiveAtEntry(t *testing.T) {
	fn := buildAddFunction(t)

	locals := liveness.Compute(fn, fn.ResultCount)
	liveAtEntry := locals.Get(fn.Entry)

	assert.Contains(t, liveAtEntry, cfg.LocalBase)
	assert.Contains(t, liveAtEntry, cfg.LocalBase+1)
}

func TestComputeIsDeterministic(t *testing.T) {
	fn := buildAddFunction(t)

	first := liveness.Compute(fn, fn.ResultCount)
	second := liveness.Compute(fn, fn.ResultCount)

	assert.ElementsMatch(t, first.Get(fn.Entry), second.Get(fn.Entry))
	assert.ElementsMatch(t, first.Get(fn.Exit), second.Get(fn.Exit))
}

func TestUnionDeduplicatesAcrossBlocks(t *testing.T) {
	fn := buildAddFunction(t)
	locals := liveness.Compute(fn, fn.ResultCount)

	union := locals.Union([]cfg.BlockID{fn.Entry, fn.Entry})
	single := locals.Get(fn.Entry)
	assert.ElementsMatch(t, single, union)
}

func TestTrackIsEmptyForPureArithmetic(t *testing.T) {
	fn := buildAddFunction(t)
	refs := liveness.Track(fn.Instructions)
	assert.Empty(t, refs)
}

func TestTrackCollectsGlobalTouches(t *testing.T) {
	insts := []cfg.Instruction{
		{Kind: cfg.InstGlobalGet, Index: 3},
		{Kind: cfg.InstGlobalGet, Index: 1},
		{Kind: cfg.InstGlobalSet, Index: 1},
	}

	refs := liveness.Track(insts)

	want := []liveness.Reference{
		{Kind: liveness.RefGlobal, ID: 1},
		{Kind: liveness.RefGlobal, ID: 3},
	}
	if diff := cmp.Diff(want, refs); diff != "" {
		t.Errorf("Track result mismatch (-want +got):\n%s", diff)
	}
}

func TestTrackSortsAcrossResourceKinds(t *testing.T) {
	insts := []cfg.Instruction{
		{Kind: cfg.InstMemoryLoad, Index: 0},
		{Kind: cfg.InstTableGet, Index: 0},
		{Kind: cfg.InstGlobalGet, Index: 0},
		{Kind: cfg.InstRefFunc, Index: 0},
	}

	refs := liveness.Track(insts)

	want := []liveness.Reference{
		{Kind: liveness.RefFunction, ID: 0},
		{Kind: liveness.RefGlobal, ID: 0},
		{Kind: liveness.RefTable, ID: 0},
		{Kind: liveness.RefMemory, ID: 0},
	}
	if diff := cmp.Diff(want, refs); diff != "" {
		t.Errorf("Track result mismatch (-want +got):\n%s", diff)
	}
}
