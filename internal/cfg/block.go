package cfg

// BlockID identifies a basic block. After sorting, IDs are in
// reverse-postorder (spec §4.2 "Sorter").
type BlockID int

// Block is a half-open range [Start, End) over a Function's instruction
// vector, plus predecessor/successor lists (spec §3 "Basic block").
// Predecessors are filled once the CFG is closed (all blocks built).
type Block struct {
	Start, End int

	Preds []BlockID
	Succs []BlockID

	// Branch, when true, means the last instruction in [Start,End) is an
	// InstLocalBranch with one successor per entry in Succs (2 for
	// if/br_if, N+1 for br_table encoded as N branch instructions chained,
	// or natively via BrTableTargets below).
	Branch bool
	// BrTableTargets holds the branch's successor-ordered target list when
	// this block ends a br_table lowering (len(Succs) == len(BrTableTargets)).
	BrTableTargets []uint32

	// Synthetic marks blocks inserted by the structurer (shim, header
	// selection, latch selection, continuation selection, dummy merge) so
	// later passes can distinguish "real" Wasm-derived code from
	// structuring scaffolding when that matters (e.g. diagnostics).
	Synthetic string
}

// Function is the Control-Flow Builder's output for one Wasm function:
// the flat instruction vector plus the set of basic blocks built over it.
// The structurer (internal/structurer) mutates Blocks in place, inserting
// new ones; the instruction vector only grows (new shim/selector blocks
// append instructions, never edit existing ones in ways that change their
// meaning).
type Function struct {
	Instructions []Instruction
	Blocks       []Block

	Entry BlockID
	Exit  BlockID // the single function-exit sentinel block

	NumParams int
	NumLocals int // additional locals beyond params
	// LocalTypes gives every register from LocalBase up its Wasm value
	// type, needed by the data-flow builder to pick a zero constant type.
	LocalTypes map[Register]localType

	ResultCount int
}

type localType int

const (
	LocalI32 localType = iota
	LocalI64
	LocalF32
	LocalF64
	LocalRefFunc
	LocalRefExtern
)

// block returns a pointer to the block with the given ID for in-place
// mutation.
func (f *Function) block(id BlockID) *Block { return &f.Blocks[id] }

// NewBlock appends a fresh empty block starting at the current end of the
// instruction vector and returns its ID.
func (f *Function) NewBlock() BlockID {
	id := BlockID(len(f.Blocks))
	f.Blocks = append(f.Blocks, Block{Start: len(f.Instructions), End: len(f.Instructions)})
	return id
}

// Emit appends inst to the current end of the instruction vector and to
// block id's range.
func (f *Function) Emit(id BlockID, inst Instruction) {
	f.Instructions = append(f.Instructions, inst)
	b := f.block(id)
	if b.Start == b.End && b.End != len(f.Instructions)-1 {
		// Block was created before other instructions were appended
		// elsewhere (shouldn't happen in single-pass building, but keep
		// Start honest if it does).
		b.Start = len(f.Instructions) - 1
	}
	b.End = len(f.Instructions)
}

// AddEdge records a CFG edge id -> to, appending to both sides' adjacency
// lists. Idempotent for a given pair is not checked; callers add each edge
// exactly once by construction.
func (f *Function) AddEdge(from, to BlockID) {
	f.block(from).Succs = append(f.block(from).Succs, to)
	f.block(to).Preds = append(f.block(to).Preds, from)
}

// Insts returns the instruction slice for block id.
func (f *Function) Insts(id BlockID) []Instruction {
	b := f.Blocks[id]
	return f.Instructions[b.Start:b.End]
}
