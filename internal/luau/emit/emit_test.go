package emit

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/SovereignSatellite/Spider/internal/luau/ast"
	"github.com/SovereignSatellite/Spider/internal/rvsdg"
	"github.com/SovereignSatellite/Spider/internal/wasm"
)

func TestIsFloat(t *testing.T) {
	assert.True(t, isFloat(wasm.F32))
	assert.True(t, isFloat(wasm.F64))
	assert.False(t, isFloat(wasm.I32))
	assert.False(t, isFloat(wasm.I64))
}

func TestAddOffsetZeroIsIdentity(t *testing.T) {
	addr := ast.I32{Value: 4}
	assert.Equal(t, ast.Expression(addr), addOffset(addr, 0))
}

func TestAddOffsetNonZeroWrapsInAdd(t *testing.T) {
	addr := ast.I32{Value: 4}
	got := addOffset(addr, 8)

	bin, ok := got.(*ast.IntegerBinaryOperation)
	if assert.True(t, ok, "expected *ast.IntegerBinaryOperation, got %T", got) {
		assert.Equal(t, wasm.NumAdd, bin.Op)
		assert.Equal(t, wasm.I32, bin.Type)
		assert.Equal(t, ast.Expression(addr), bin.Lhs)
		assert.Equal(t, ast.I32{Value: 8}, bin.Rhs)
	}
}

func TestResultCountVariesByKind(t *testing.T) {
	call := &rvsdg.Node{Kind: rvsdg.KindCall, Outputs: 3, Index2: 2}
	assert.Equal(t, 2, resultCount(call))

	grow := &rvsdg.Node{Kind: rvsdg.KindTableGrow, Outputs: 2}
	assert.Equal(t, 1, resultCount(grow))

	set := &rvsdg.Node{Kind: rvsdg.KindGlobalSet, Outputs: 1}
	assert.Equal(t, 0, resultCount(set))

	plain := &rvsdg.Node{Kind: rvsdg.KindI32, Outputs: 1}
	assert.Equal(t, 1, resultCount(plain))
}

func TestReferenceFinderCountsUsesAcrossConsumers(t *testing.T) {
	g := &rvsdg.Graph{Nodes: []rvsdg.Node{
		{Kind: rvsdg.KindI32, Outputs: 1},
		{Kind: rvsdg.KindI32, Outputs: 1},
		{Kind: rvsdg.KindBinary, Outputs: 1, Inputs: []rvsdg.Link{{Node: 0, Port: 0}, {Node: 0, Port: 0}}},
		{Kind: rvsdg.KindBinary, Outputs: 1, Inputs: []rvsdg.Link{{Node: 1, Port: 0}, {Node: 2, Port: 0}}},
	}}

	rf := newReferenceFinder(g)

	assert.True(t, rf.hasManyUses(0, &g.Nodes[0]), "node 0 is read twice by node 2")
	assert.False(t, rf.hasManyUses(1, &g.Nodes[1]), "node 1 is read once by node 3")

	until, ok := rf.lastUse(rvsdg.Link{Node: 0, Port: 0})
	assert.True(t, ok)
	assert.Equal(t, rvsdg.NodeID(2), until)

	assert.True(t, rf.hasResultAt(1, 0))
	assert.False(t, rf.isUsed(rvsdg.Link{Node: 3, Port: 0}))
}

func TestReferenceFinderHasManyResultsOnlyCountsRealPorts(t *testing.T) {
	g := &rvsdg.Graph{Nodes: []rvsdg.Node{
		{Kind: rvsdg.KindCall, Outputs: 2, Index2: 2},
		{Kind: rvsdg.KindBinary, Outputs: 1, Inputs: []rvsdg.Link{{Node: 0, Port: 0}}},
		{Kind: rvsdg.KindBinary, Outputs: 1, Inputs: []rvsdg.Link{{Node: 0, Port: 1}}},
	}}

	rf := newReferenceFinder(g)
	call := &g.Nodes[0]

	assert.True(t, rf.hasManyResults(0, call), "both real result ports of the call are read")
}
