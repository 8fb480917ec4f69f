// Package structurer turns an acyclic-looking-but-really-cyclic basic-block
// CFG into one with well-nested repeat (loop) and branch (if/else) regions,
// so the data-flow builder (internal/rvsdg) can walk it recursively instead
// of hunting for back-edges itself.
package structurer

import (
	"fmt"

	"github.com/SovereignSatellite/Spider/internal/cfg"
)

// edge is a lightweight (from, to) pair used by the branch structurer to
// collect candidate continuation edges before committing them.
type edge struct {
	From, To cfg.BlockID
}

// Graph adapts a cfg.Function's block successor/predecessor lists to the
// handful of mutating operations the structuring passes need: adding and
// retargeting edges, and inserting three kinds of synthetic control-flow
// node (selection, assignment, no-op) that the Luau emitter later lowers
// into if/elseif chains over the A/B/C selector registers.
type Graph struct {
	fn *cfg.Function
}

// NewGraph wraps fn for structuring. fn.Blocks grows as synthetic nodes are
// inserted; existing block indices remain valid.
func NewGraph(fn *cfg.Function) *Graph {
	return &Graph{fn: fn}
}

// Successors returns id's successor block IDs, in order.
func (g *Graph) Successors(id cfg.BlockID) []cfg.BlockID {
	return g.fn.Blocks[id].Succs
}

// Predecessors returns id's predecessor block IDs, in order.
func (g *Graph) Predecessors(id cfg.BlockID) []cfg.BlockID {
	return g.fn.Blocks[id].Preds
}

// AddEdge appends a new from->to edge.
func (g *Graph) AddEdge(from, to cfg.BlockID) {
	g.fn.Blocks[from].Succs = append(g.fn.Blocks[from].Succs, to)
	g.fn.Blocks[to].Preds = append(g.fn.Blocks[to].Preds, from)
}

// ReplaceEdge retargets the existing from->old edge to from->new, keeping
// from's successor order (so selection-block branch indices stay stable).
func (g *Graph) ReplaceEdge(from, old, new cfg.BlockID) {
	succs := g.fn.Blocks[from].Succs
	for i, s := range succs {
		if s == old {
			succs[i] = new
			break
		}
	}
	g.removePred(old, from)
	g.fn.Blocks[new].Preds = append(g.fn.Blocks[new].Preds, from)
}

func (g *Graph) removePred(id, pred cfg.BlockID) {
	preds := g.fn.Blocks[id].Preds
	for i, p := range preds {
		if p == pred {
			g.fn.Blocks[id].Preds = append(preds[:i], preds[i+1:]...)
			return
		}
	}
}

func (g *Graph) newSyntheticBlock(tag string) cfg.BlockID {
	id := cfg.BlockID(len(g.fn.Blocks))
	n := len(g.fn.Instructions)
	g.fn.Blocks = append(g.fn.Blocks, cfg.Block{Start: n, End: n, Synthetic: tag})
	return id
}

// AddSelection inserts a multi-way selection node reading register name:
// its Nth successor (added later via AddEdge, in order) is taken when name
// holds N. The node holds a single InstLocalBranch on name, which is where
// the data-flow builder reads the branch condition from.
func (g *Graph) AddSelection(name cfg.Register) cfg.BlockID {
	id := g.newSyntheticBlock(fmt.Sprintf("select:%d", name))
	g.fn.Emit(id, cfg.Instruction{Kind: cfg.InstLocalBranch, Src0: name})
	g.fn.Blocks[id].Branch = true
	return id
}

// AddAssignment inserts a node that stores the constant value into register
// name, then falls through to its single successor (added via AddEdge).
func (g *Graph) AddAssignment(name cfg.Register, value int) cfg.BlockID {
	id := g.newSyntheticBlock(fmt.Sprintf("assign:%d=%d", name, value))
	g.fn.Emit(id, cfg.Instruction{Kind: cfg.InstConstI32, Dst: name, ConstI32: int32(value)})
	return id
}

// AddNoOperation inserts an empty pass-through node, used to give an
// otherwise-bare merge point somewhere to attach a single successor edge.
func (g *Graph) AddNoOperation() cfg.BlockID {
	return g.newSyntheticBlock("nop")
}

// HasAssignment reports whether id is an AddAssignment node writing to
// register name (any constant).
func (g *Graph) HasAssignment(id cfg.BlockID, name cfg.Register) bool {
	prefix := fmt.Sprintf("assign:%d=", name)
	tag := g.fn.Blocks[id].Synthetic
	return len(tag) > len(prefix) && tag[:len(prefix)] == prefix
}
