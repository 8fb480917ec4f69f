package rvsdg_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SovereignSatellite/Spider/internal/liveness"
	"github.com/SovereignSatellite/Spider/internal/rvsdg"
	"github.com/SovereignSatellite/Spider/internal/wasm"
)

func sampleModule() *wasm.Module {
	return &wasm.Module{
		Globals:  []wasm.Global{{Type: wasm.I32}, {Type: wasm.I32}},
		Tables:   []wasm.Table{{}},
		Memories: []wasm.Memory{{}},
		Elements: []wasm.Element{{}},
		Datas:    []wasm.Data{{}},
	}
}

func TestDependenciesCoversEveryResourceKind(t *testing.T) {
	mod := sampleModule()

	refs := rvsdg.Dependencies(mod)

	var globals, tables, memories, elements, datas int
	for _, r := range refs {
		switch r.Kind {
		case liveness.RefGlobal:
			globals++
		case liveness.RefTable:
			tables++
		case liveness.RefMemory:
			memories++
		case liveness.RefElements:
			elements++
		case liveness.RefData:
			datas++
		}
	}
	assert.Equal(t, 2, globals)
	assert.Equal(t, 1, tables)
	assert.Equal(t, 1, memories)
	assert.Equal(t, 1, elements)
	assert.Equal(t, 1, datas)
}

func TestBuildOmegaOutputPortsCoverEveryEntry(t *testing.T) {
	mod := sampleModule()

	g := rvsdg.BuildOmega(mod)
	require.NotNil(t, g)

	omegaIn := g.Root.Start
	n := g.At(omegaIn)
	require.Equal(t, rvsdg.KindOmegaIn, n.Kind)

	// environment + state + one port per global/table/memory/element/data.
	want := 2 + len(mod.Globals) + len(mod.Tables) + len(mod.Memories) + len(mod.Elements) + len(mod.Datas)
	assert.Equal(t, want, n.Outputs)
}

func TestNormalizeIsIdempotent(t *testing.T) {
	mod := sampleModule()
	g := rvsdg.BuildOmega(mod)

	rvsdg.Normalize(g)
	first := len(g.Nodes)
	rvsdg.Normalize(g)
	second := len(g.Nodes)

	assert.Equal(t, first, second)
}
