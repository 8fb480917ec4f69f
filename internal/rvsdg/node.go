// Package rvsdg builds and normalizes the Regionalized Value-State
// Dependence Graph (spec §3's "Data-flow node", §4.4, §4.5): a sea-of-nodes
// representation of a function's data and state flow, with explicit nested
// regions standing in for loops and branches instead of basic blocks.
package rvsdg

import "github.com/SovereignSatellite/Spider/internal/wasm"

// Kind tags a Node's variant (spec §3 "Data-flow node").
type Kind int

const (
	// Region boundaries.
	KindLambdaIn Kind = iota
	KindLambdaOut
	KindRegionIn
	KindRegionOut
	KindGammaIn
	KindGammaOut
	KindThetaIn
	KindThetaOut
	KindOmegaIn
	KindOmegaOut

	// Leaves.
	KindImport
	KindFuncRef
	KindTrap
	KindNull
	KindI32
	KindI64
	KindF32
	KindF64
	KindDataNew
	KindMemoryNew

	// Pure operations.
	KindUnary
	KindBinary
	KindCompare
	KindConvert
	KindTransmute
	KindNarrow
	KindWiden
	KindExtend
	KindRefIsNull
	KindIdentity

	// Stateful operations.
	KindCall
	KindMerge
	KindGlobalGet
	KindGlobalSet
	KindTableGet
	KindTableSet
	KindTableSize
	KindTableGrow
	KindTableFill
	KindTableCopy
	KindTableInit
	KindElemDrop
	KindMemoryLoad
	KindMemoryStore
	KindMemorySize
	KindMemoryGrow
	KindMemoryFill
	KindMemoryCopy
	KindMemoryInit
	KindDataDrop
)

// NodeID indexes a Node within a Graph's single flat node arena. Regions
// are logical sub-ranges of that arena (see Region), not separate storage —
// every node, wherever it's nested, lives in the same Graph.Nodes slice, so
// a Link is always a plain, globally valid (node, port) pair, the same
// shape the original arena-of-nodes RVSDG representation uses.
type NodeID int

// Dangling is the sentinel Link marking an unconnected input during
// construction (spec §3 "Link... a reserved sentinel DANGLING").
var Dangling = Link{Node: -1}

// Link identifies one output port of one node (spec §3 "Link").
type Link struct {
	Node NodeID
	Port uint16
}

// IsDangling reports whether l is the unconnected sentinel.
func (l Link) IsDangling() bool { return l.Node < 0 }

// StatePort is the output port index carrying a stateful op's state
// result, kept out of the low value-port range (spec §3 "their state
// output is a distinct port").
const StatePort = 0xFFFF

// Region names a contiguous sub-range [Start, End) of a Graph's node
// arena: a Gamma arm, a Theta body, a Lambda body, or the module-level
// Omega body. Boundary nodes (the *In/*Out pair) sit at Start and End-1.
type Region struct {
	Start, End NodeID
}

// Node is one entry in a Graph's node arena. Which fields are meaningful
// depends on Kind; this mirrors internal/cfg.Instruction's tagged-struct
// shape (a single type switched on Kind, not a Go interface hierarchy),
// which keeps both construction and the visitors' rewrite passes
// straightforward slice walks.
type Node struct {
	Kind Kind

	Inputs  []Link
	Outputs int // number of value output ports this node exposes

	// Region payload. GammaIn carries one Region per arm, each starting
	// with that arm's RegionIn and ending with its RegionOut. LambdaIn
	// carries its single Body region, which it sits at the start of
	// (Body.Start == this node's own id). ThetaIn carries its body both as
	// Regions[0] and as Body; that region starts at the body's own
	// RegionIn, not at ThetaIn.
	Regions []Region
	Body    Region

	// Partner names the matching boundary node for a region-boundary
	// pair (LambdaIn<->LambdaOut, GammaIn<->GammaOut, ThetaIn<->ThetaOut,
	// RegionIn<->RegionOut, OmegaIn<->OmegaOut), for visitors that need to
	// walk from one half to the other.
	Partner NodeID

	// Leaf/op payload, reusing the cfg.Instruction vocabulary directly
	// since both describe the same Wasm-derived operations.
	ConstI32 int32
	ConstI64 int64
	ConstF32 float32
	ConstF64 float64

	Index  uint32
	Index2 uint32

	// Indirect marks a Call node resolved through a table-fetched funcref
	// (the first value input) rather than a static Index into the
	// module's function space.
	Indirect bool

	NumOp   wasm.NumOp
	RefType wasm.RefType
	Mem     wasm.MemArg

	TrapMessage string

	// LocalType records the Wasm value type a constant/Null/Import node
	// produces, needed by the emitter to pick the right Luau literal form.
	// It doubles as the operand type for Unary/Binary/Compare/Convert/
	// Transmute, which NumOp alone doesn't disambiguate between i32/i64 or
	// f32/f64.
	LocalType wasm.ValueType

	// LocalType2 carries Convert's destination type for the trunc/convert
	// members whose result width LocalType+NumOp don't imply (both source
	// and destination width vary independently across the trunc_f*_{s,u}
	// and convert_i*_{s,u} opcodes).
	LocalType2 wasm.ValueType
}

// Graph is one function's (or the module's) RVSDG: a flat node arena plus
// the id of its outermost region's boundary-in node.
type Graph struct {
	Nodes []Node
	Root  Region
}

// Add appends n to the arena and returns its new NodeID.
func (g *Graph) Add(n Node) NodeID {
	id := NodeID(len(g.Nodes))
	g.Nodes = append(g.Nodes, n)
	return id
}

// At returns a pointer to node id for in-place mutation (e.g. setting
// Partner once both halves of a boundary pair exist).
func (g *Graph) At(id NodeID) *Node {
	return &g.Nodes[id]
}

// Last returns the id of the most recently added node.
func (g *Graph) Last() NodeID {
	return NodeID(len(g.Nodes) - 1)
}
