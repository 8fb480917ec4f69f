package rvsdg

import (
	"github.com/SovereignSatellite/Spider/internal/cfg"
	"github.com/SovereignSatellite/Spider/internal/liveness"
	"github.com/SovereignSatellite/Spider/internal/wasm"
)

// LoopInfo records one structured loop's header/latch pair. The caller
// (cmd/spiderc, wiring internal/structurer's output into this package)
// translates structurer.RepeatInfo into this shape so internal/rvsdg never
// has to import internal/structurer.
type LoopInfo struct {
	Entry, Latch cfg.BlockID
}

type depKey struct {
	Kind liveness.ReferenceKind
	ID   uint32
}

// FunctionInputs groups what BuildLambda needs beyond the structured CFG
// itself (spec §4.4 "Setup"): the function's own dependency vector
// (internal/liveness.Track'd and unioned across every block) and the
// loop header/latch pairs the structurer found. Parameter and local
// types come straight from fn.LocalTypes.
type FunctionInputs struct {
	Dependencies []liveness.Reference
	Loops        []LoopInfo
	Live         *liveness.Locals
}

// BuildLambda converts one structured function into a Lambda region (spec
// §4.4): a LambdaIn exposing dependencies++arguments++trap as output
// ports, the function body converted block by block with Gamma/Theta
// regions standing in for its (by now diamond/tail-loop shaped) branches
// and loops, and a LambdaOut collecting the function's results, the final
// state of every dependency, and the final trap link.
func BuildLambda(fn *cfg.Function, in FunctionInputs) *Graph {
	g := &Graph{}

	depCount := len(in.Dependencies)
	paramCount := fn.NumParams
	outputs := depCount + paramCount + 1

	// Index2 records the real Wasm parameter count, distinguishing the
	// function's actual arguments (ports [depCount, depCount+paramCount))
	// from the leading dependency-passthrough ports: only the former are
	// "real" results a caller can legitimately treat as a fresh value, the
	// same split Call's Index2 draws for its own trailing ports.
	lambdaIn := g.Add(Node{Kind: KindLambdaIn, Outputs: outputs, Index2: uint32(paramCount)})

	locals := map[cfg.Register]Link{}
	deps := map[depKey]Link{}
	depOrder := make([]depKey, len(in.Dependencies))

	for i, d := range in.Dependencies {
		k := depKey{d.Kind, d.ID}
		deps[k] = Link{Node: lambdaIn, Port: uint16(i)}
		depOrder[i] = k
	}
	for i := 0; i < paramCount; i++ {
		locals[cfg.LocalBase+cfg.Register(i)] = Link{Node: lambdaIn, Port: uint16(depCount + i)}
	}
	trap := Link{Node: lambdaIn, Port: uint16(outputs - 1)}

	for i := 0; i < fn.NumLocals; i++ {
		reg := cfg.LocalBase + cfg.Register(fn.NumParams+i)
		locals[reg] = zeroConstant(g, cfg.ValueTypeOf(fn.LocalTypes[reg]))
	}

	loops := map[cfg.BlockID]cfg.BlockID{}
	for _, l := range in.Loops {
		loops[l.Entry] = l.Latch
	}

	c := &converter{
		fn:      fn,
		graph:   g,
		live:    in.Live,
		loops:   loops,
		postdom: postDominators(fn),
		locals:   locals,
		deps:     deps,
		trap:     trap,
		depOrder: depOrder,
	}
	c.run(fn.Entry, fn.Exit)

	resultLinks := make([]Link, 0, fn.ResultCount+depCount+1)
	for i := 0; i < fn.ResultCount; i++ {
		resultLinks = append(resultLinks, c.locals[cfg.LocalBase+cfg.Register(i)])
	}
	for _, d := range in.Dependencies {
		resultLinks = append(resultLinks, c.deps[depKey{d.Kind, d.ID}])
	}
	resultLinks = append(resultLinks, c.trap)

	lambdaOut := g.Add(Node{Kind: KindLambdaOut, Inputs: resultLinks})

	body := Region{Start: lambdaIn, End: lambdaOut + 1}
	g.At(lambdaIn).Body = body
	g.At(lambdaIn).Partner = lambdaOut
	g.At(lambdaOut).Partner = lambdaIn
	g.Root = body

	return g
}

func zeroConstant(g *Graph, typ wasm.ValueType) Link {
	var n Node
	switch typ {
	case wasm.I32:
		n = Node{Kind: KindI32, Outputs: 1, LocalType: typ}
	case wasm.I64:
		n = Node{Kind: KindI64, Outputs: 1, LocalType: typ}
	case wasm.F32:
		n = Node{Kind: KindF32, Outputs: 1, LocalType: typ}
	case wasm.F64:
		n = Node{Kind: KindF64, Outputs: 1, LocalType: typ}
	default:
		n = Node{Kind: KindNull, Outputs: 1, LocalType: typ}
	}
	id := g.Add(n)
	return Link{Node: id, Port: 0}
}

// converter walks a structured cfg.Function once, threading per-register
// data links and per-resource state links through straight-line runs,
// Gamma regions (diamonds), and Theta regions (tail-controlled loops) in
// the order spec §4.4 "Region transitions" describes.
type converter struct {
	fn      *cfg.Function
	graph   *Graph
	live    *liveness.Locals
	loops   map[cfg.BlockID]cfg.BlockID
	postdom []cfg.BlockID

	locals map[cfg.Register]Link
	deps   map[depKey]Link
	trap   Link

	// depOrder fixes the iteration order every Call/Gamma/Theta boundary
	// walks the dependency map in: the function's own FunctionInputs.
	// Dependencies order, which every caller of this function must also
	// use for the trailing state arguments/results of its Call node. A
	// plain `range c.deps` would give Go's randomized map order instead,
	// silently different between two call sites to the same callee.
	depOrder []depKey
}

func (c *converter) run(entry, exit cfg.BlockID) {
	current := entry

	for current != exit {
		if latch, ok := c.loops[current]; ok {
			c.buildTheta(current, latch)
			current = c.loopExit(current, latch)
			continue
		}

		succs := c.fn.Blocks[current].Succs
		if len(succs) <= 1 {
			c.convertBlock(current)
			if len(succs) == 0 {
				return
			}
			current = succs[0]
			continue
		}

		join := c.postdom[current]
		c.buildGamma(current, succs, join)
		current = join
	}
}

// loopExit finds the latch's successor that isn't the loop entry: the
// break target, per the tail-controlled-loop invariant (spec §3 "a single
// entry dominates a single latch whose two successors are the entry
// (continue) and a single exit (break)").
func (c *converter) loopExit(entry, latch cfg.BlockID) cfg.BlockID {
	for _, succ := range c.fn.Blocks[latch].Succs {
		if succ != entry {
			return succ
		}
	}
	return entry
}

// convertBlock lowers every instruction in block id, except a trailing
// InstLocalBranch (the caller pulls that one's condition separately for
// Gamma construction).
func (c *converter) convertBlock(id cfg.BlockID) cfg.Register {
	insts := c.fn.Insts(id)
	condReg := cfg.Register(0)

	for i, in := range insts {
		if in.Kind == cfg.InstLocalBranch && i == len(insts)-1 {
			condReg = in.Src0
			continue
		}
		c.lower(&insts[i])
	}

	return condReg
}

func (c *converter) link(r cfg.Register) Link {
	if l, ok := c.locals[r]; ok {
		return l
	}
	return Dangling
}

// lower converts one cfg.Instruction into a Node, wiring its inputs from
// the converter's current register/dependency links and updating those
// maps from its outputs (spec §4.4 "Per-block conversion").
func (c *converter) lower(in *cfg.Instruction) {
	g := c.graph

	switch in.Kind {
	case cfg.InstLocalMove:
		c.locals[in.Dst] = c.link(in.Src0)

	case cfg.InstConstI32:
		id := g.Add(Node{Kind: KindI32, Outputs: 1, ConstI32: in.ConstI32})
		c.locals[in.Dst] = Link{Node: id, Port: 0}
	case cfg.InstConstI64:
		id := g.Add(Node{Kind: KindI64, Outputs: 1, ConstI64: in.ConstI64})
		c.locals[in.Dst] = Link{Node: id, Port: 0}
	case cfg.InstConstF32:
		id := g.Add(Node{Kind: KindF32, Outputs: 1, ConstF32: in.ConstF32})
		c.locals[in.Dst] = Link{Node: id, Port: 0}
	case cfg.InstConstF64:
		id := g.Add(Node{Kind: KindF64, Outputs: 1, ConstF64: in.ConstF64})
		c.locals[in.Dst] = Link{Node: id, Port: 0}

	case cfg.InstUnreachable:
		id := g.Add(Node{Kind: KindTrap, Inputs: []Link{c.trap}, Outputs: 1, TrapMessage: in.TrapMessage})
		c.trap = Link{Node: id, Port: 0}

	case cfg.InstRefNull:
		id := g.Add(Node{Kind: KindNull, Outputs: 1, RefType: in.RefType})
		c.locals[in.Dst] = Link{Node: id, Port: 0}
	case cfg.InstRefIsNull:
		id := g.Add(Node{Kind: KindRefIsNull, Inputs: []Link{c.link(in.Src0)}, Outputs: 1})
		c.locals[in.Dst] = Link{Node: id, Port: 0}
	case cfg.InstRefFunc:
		id := g.Add(Node{Kind: KindFuncRef, Outputs: 1, Index: in.Index})
		c.locals[in.Dst] = Link{Node: id, Port: 0}

	case cfg.InstUnary:
		id := g.Add(Node{Kind: KindUnary, Inputs: []Link{c.link(in.Src0)}, Outputs: 1, NumOp: in.NumOp, LocalType: in.Type})
		c.locals[in.Dst] = Link{Node: id, Port: 0}
	case cfg.InstBinary:
		id := g.Add(Node{Kind: KindBinary, Inputs: []Link{c.link(in.Src0), c.link(in.Src1)}, Outputs: 1, NumOp: in.NumOp, LocalType: in.Type})
		c.locals[in.Dst] = Link{Node: id, Port: 0}
	case cfg.InstCompare:
		id := g.Add(Node{Kind: KindCompare, Inputs: []Link{c.link(in.Src0), c.link(in.Src1)}, Outputs: 1, NumOp: in.NumOp, LocalType: in.Type})
		c.locals[in.Dst] = Link{Node: id, Port: 0}
	case cfg.InstConvert:
		id := g.Add(Node{Kind: KindConvert, Inputs: []Link{c.link(in.Src0)}, Outputs: 1, NumOp: in.NumOp, LocalType: in.Type, LocalType2: in.Type2})
		c.locals[in.Dst] = Link{Node: id, Port: 0}
	case cfg.InstTransmute:
		id := g.Add(Node{Kind: KindTransmute, Inputs: []Link{c.link(in.Src0)}, Outputs: 1, NumOp: in.NumOp, LocalType: in.Type})
		c.locals[in.Dst] = Link{Node: id, Port: 0}

	case cfg.InstCall:
		c.lowerCall(in, false)
	case cfg.InstCallIndirect:
		c.lowerCall(in, true)

	case cfg.InstGlobalGet:
		state := c.deps[depKey{liveness.RefGlobal, in.Index}]
		id := g.Add(Node{Kind: KindGlobalGet, Inputs: []Link{state}, Outputs: 1, Index: in.Index})
		c.locals[in.Dst] = Link{Node: id, Port: 0}
	case cfg.InstGlobalSet:
		state := c.deps[depKey{liveness.RefGlobal, in.Index}]
		id := g.Add(Node{Kind: KindGlobalSet, Inputs: []Link{state, c.link(in.Src0)}, Outputs: 1, Index: in.Index})
		c.deps[depKey{liveness.RefGlobal, in.Index}] = Link{Node: id, Port: StatePort}

	case cfg.InstTableGet:
		state := c.deps[depKey{liveness.RefTable, in.Index}]
		id := g.Add(Node{Kind: KindTableGet, Inputs: []Link{state, c.link(in.Src0)}, Outputs: 1, Index: in.Index})
		c.locals[in.Dst] = Link{Node: id, Port: 0}
	case cfg.InstTableSet:
		state := c.deps[depKey{liveness.RefTable, in.Index}]
		id := g.Add(Node{Kind: KindTableSet, Inputs: []Link{state, c.link(in.Src0), c.link(in.Src1)}, Outputs: 1, Index: in.Index})
		c.deps[depKey{liveness.RefTable, in.Index}] = Link{Node: id, Port: StatePort}
	case cfg.InstTableSize:
		state := c.deps[depKey{liveness.RefTable, in.Index}]
		id := g.Add(Node{Kind: KindTableSize, Inputs: []Link{state}, Outputs: 1, Index: in.Index})
		c.locals[in.Dst] = Link{Node: id, Port: 0}
	case cfg.InstTableGrow:
		state := c.deps[depKey{liveness.RefTable, in.Index}]
		id := g.Add(Node{Kind: KindTableGrow, Inputs: []Link{state, c.link(in.Src0), c.link(in.FuncLocal)}, Outputs: 2, Index: in.Index})
		c.locals[in.Dst] = Link{Node: id, Port: 0}
		c.deps[depKey{liveness.RefTable, in.Index}] = Link{Node: id, Port: StatePort}
	case cfg.InstTableFill:
		state := c.deps[depKey{liveness.RefTable, in.Index}]
		id := g.Add(Node{Kind: KindTableFill, Inputs: []Link{state, c.link(in.Src0), c.link(in.Src1), c.link(in.FuncLocal)}, Outputs: 1, Index: in.Index})
		c.deps[depKey{liveness.RefTable, in.Index}] = Link{Node: id, Port: StatePort}
	case cfg.InstTableCopy:
		src := c.deps[depKey{liveness.RefTable, in.Index2}]
		dst := c.deps[depKey{liveness.RefTable, in.Index}]
		id := g.Add(Node{Kind: KindTableCopy, Inputs: []Link{dst, src, c.link(in.Src0), c.link(in.Src1), c.link(in.FuncLocal)}, Outputs: 1, Index: in.Index, Index2: in.Index2})
		c.deps[depKey{liveness.RefTable, in.Index}] = Link{Node: id, Port: StatePort}
	case cfg.InstTableInit:
		elems := c.deps[depKey{liveness.RefElements, in.Index2}]
		dst := c.deps[depKey{liveness.RefTable, in.Index}]
		id := g.Add(Node{Kind: KindTableInit, Inputs: []Link{dst, elems, c.link(in.Src0), c.link(in.Src1), c.link(in.FuncLocal)}, Outputs: 1, Index: in.Index, Index2: in.Index2})
		c.deps[depKey{liveness.RefTable, in.Index}] = Link{Node: id, Port: StatePort}
	case cfg.InstElemDrop:
		state := c.deps[depKey{liveness.RefElements, in.Index}]
		id := g.Add(Node{Kind: KindElemDrop, Inputs: []Link{state}, Outputs: 1, Index: in.Index})
		c.deps[depKey{liveness.RefElements, in.Index}] = Link{Node: id, Port: StatePort}

	case cfg.InstMemoryLoad:
		state := c.deps[depKey{liveness.RefMemory, in.Mem.MemoryIndex}]
		id := g.Add(Node{Kind: KindMemoryLoad, Inputs: []Link{state, c.link(in.Src0)}, Outputs: 1, Mem: in.Mem})
		c.locals[in.Dst] = Link{Node: id, Port: 0}
	case cfg.InstMemoryStore:
		state := c.deps[depKey{liveness.RefMemory, in.Mem.MemoryIndex}]
		id := g.Add(Node{Kind: KindMemoryStore, Inputs: []Link{state, c.link(in.Src0), c.link(in.Src1)}, Outputs: 1, Mem: in.Mem})
		c.deps[depKey{liveness.RefMemory, in.Mem.MemoryIndex}] = Link{Node: id, Port: StatePort}
	case cfg.InstMemorySize:
		state := c.deps[depKey{liveness.RefMemory, in.Index}]
		id := g.Add(Node{Kind: KindMemorySize, Inputs: []Link{state}, Outputs: 1, Index: in.Index})
		c.locals[in.Dst] = Link{Node: id, Port: 0}
	case cfg.InstMemoryGrow:
		state := c.deps[depKey{liveness.RefMemory, in.Index}]
		id := g.Add(Node{Kind: KindMemoryGrow, Inputs: []Link{state, c.link(in.Src0)}, Outputs: 2, Index: in.Index})
		c.locals[in.Dst] = Link{Node: id, Port: 0}
		c.deps[depKey{liveness.RefMemory, in.Index}] = Link{Node: id, Port: StatePort}
	case cfg.InstMemoryFill:
		state := c.deps[depKey{liveness.RefMemory, in.Index}]
		id := g.Add(Node{Kind: KindMemoryFill, Inputs: []Link{state, c.link(in.Src0), c.link(in.Src1), c.link(in.FuncLocal)}, Outputs: 1, Mem: in.Mem})
		c.deps[depKey{liveness.RefMemory, in.Index}] = Link{Node: id, Port: StatePort}
	case cfg.InstMemoryCopy:
		src := c.deps[depKey{liveness.RefMemory, in.Index2}]
		dst := c.deps[depKey{liveness.RefMemory, in.Index}]
		id := g.Add(Node{Kind: KindMemoryCopy, Inputs: []Link{dst, src, c.link(in.Src0), c.link(in.Src1), c.link(in.FuncLocal)}, Outputs: 1, Index: in.Index, Index2: in.Index2})
		c.deps[depKey{liveness.RefMemory, in.Index}] = Link{Node: id, Port: StatePort}
	case cfg.InstMemoryInit:
		data := c.deps[depKey{liveness.RefData, in.Index2}]
		dst := c.deps[depKey{liveness.RefMemory, in.Index}]
		id := g.Add(Node{Kind: KindMemoryInit, Inputs: []Link{dst, data, c.link(in.Src0), c.link(in.Src1), c.link(in.FuncLocal)}, Outputs: 1, Index: in.Index, Index2: in.Index2})
		c.deps[depKey{liveness.RefMemory, in.Index}] = Link{Node: id, Port: StatePort}
	case cfg.InstDataDrop:
		state := c.deps[depKey{liveness.RefData, in.Index}]
		id := g.Add(Node{Kind: KindDataDrop, Inputs: []Link{state}, Outputs: 1, Index: in.Index})
		c.deps[depKey{liveness.RefData, in.Index}] = Link{Node: id, Port: StatePort}
	}
}

// lowerCall wires a Call node: nominal arguments, then every dependency's
// current state link trailing, per spec §4.4 "Calls receive, as extra
// trailing arguments, every state link from the dependency map; they
// produce, after their nominal results, a fresh state link per dependency
// and a fresh trap link." indirect is handled identically here since
// cfg's call_indirect lowering has already resolved the callee through a
// table_get into FuncLocal before the call instruction itself runs.
func (c *converter) lowerCall(in *cfg.Instruction, indirect bool) {
	var inputs []Link
	if indirect {
		inputs = append(inputs, c.link(in.FuncLocal))
	}
	for r := in.CallSrcStart; r < in.CallSrcEnd; r++ {
		inputs = append(inputs, c.link(r))
	}

	for _, k := range c.depOrder {
		inputs = append(inputs, c.deps[k])
	}
	inputs = append(inputs, c.trap)

	resultCount := int(in.CallDstEnd - in.CallDstStart)
	outputs := resultCount + len(c.depOrder) + 1

	// Index2 records the nominal Wasm result count, distinguishing a
	// call's real results (ports [0, Index2)) from its trailing
	// dependency/trap passthrough ports, the same split Index2 carries
	// for other stateful ops' resource index.
	id := c.graph.Add(Node{Kind: KindCall, Inputs: inputs, Outputs: outputs, Index: in.Index, Index2: uint32(resultCount), Indirect: indirect})

	port := uint16(0)
	for r := in.CallDstStart; r < in.CallDstEnd; r++ {
		c.locals[r] = Link{Node: id, Port: port}
		port++
	}
	for _, k := range c.depOrder {
		c.deps[k] = Link{Node: id, Port: port}
		port++
	}
	c.trap = Link{Node: id, Port: port}
}
