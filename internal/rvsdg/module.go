package rvsdg

import (
	"github.com/SovereignSatellite/Spider/internal/liveness"
	"github.com/SovereignSatellite/Spider/internal/wasm"
)

// Dependencies returns the canonical, module-wide resource order every
// Lambda's FunctionInputs.Dependencies must use (cmd/spiderc's
// responsibility): every global, then table, then memory (each spanning
// its full absolute imports-then-defined index space), then every element
// segment, then every data segment. BuildOmega's start-function Call
// threads this same order, so sharing it is what keeps a function's
// LambdaIn/LambdaOut ports lined up with every Call site that invokes it,
// including the module-level one.
func Dependencies(mod *wasm.Module) []liveness.Reference {
	var refs []liveness.Reference

	globalCount := mod.NumGlobalImports() + len(mod.Globals)
	tableCount := mod.NumTableImports() + len(mod.Tables)
	memoryCount := mod.NumMemoryImports() + len(mod.Memories)

	for i := 0; i < globalCount; i++ {
		refs = append(refs, liveness.Reference{Kind: liveness.RefGlobal, ID: uint32(i)})
	}
	for i := 0; i < tableCount; i++ {
		refs = append(refs, liveness.Reference{Kind: liveness.RefTable, ID: uint32(i)})
	}
	for i := 0; i < memoryCount; i++ {
		refs = append(refs, liveness.Reference{Kind: liveness.RefMemory, ID: uint32(i)})
	}
	for i := range mod.Elements {
		refs = append(refs, liveness.Reference{Kind: liveness.RefElements, ID: uint32(i)})
	}
	for i := range mod.Datas {
		refs = append(refs, liveness.Reference{Kind: liveness.RefData, ID: uint32(i)})
	}

	return refs
}

// EnvironmentPort and StateRootPort are OmegaIn's two fixed output ports
// (ENVIRONMENT_PORT=0, STATE_PORT=1 per spec §4.4 "Top level"): the
// opaque host environment handle every Import consumes, and the
// module-level state root every global/table/memory/elements/data
// dependency link ultimately threads from. Distinct from the generic
// per-node StatePort sentinel above, which tags a stateful op's own
// state output port, not this fixed Omega-level port index.
const (
	EnvironmentPort uint16 = 0
	StateRootPort   uint16 = 1
)

// BuildOmega assembles the module-level graph (spec §4.4 "Omega
// construction"): an OmegaIn exposing the environment handle and the
// initial state of every global, table, memory, element segment, and
// data segment as output ports, followed by a sequence of data-flow
// nodes realizing each global/table/memory/elements/data initializer and
// the start function call (if any), and an OmegaOut collecting the final
// state of every resource.
//
// Each function's own Lambda (BuildLambda) is a separate Graph; Omega
// only refers to functions by index (through Import leaves and the start
// Call), the same arm's-length relationship a linker has with the object
// files it links — internal/luau's emitter is what turns a function index
// back into a callable value when it prints each Lambda and the module
// chunk that closes over all of them.
func BuildOmega(mod *wasm.Module) *Graph {
	g := &Graph{}

	numGlobalImports := mod.NumGlobalImports()
	numTableImports := mod.NumTableImports()
	numMemoryImports := mod.NumMemoryImports()

	globalCount := len(mod.Globals)
	tableCount := len(mod.Tables)
	memoryCount := len(mod.Memories)
	elementCount := len(mod.Elements)
	dataCount := len(mod.Datas)

	outputs := 2 + globalCount + tableCount + memoryCount + elementCount + dataCount
	omegaIn := g.Add(Node{Kind: KindOmegaIn, Outputs: outputs})

	port := func(i int) Link { return Link{Node: omegaIn, Port: uint16(i)} }

	env := Link{Node: omegaIn, Port: EnvironmentPort}
	state := Link{Node: omegaIn, Port: StateRootPort}
	trap := Dangling

	// globals/tables/memories are indexed by absolute Wasm index (imports
	// first, then module-defined entries); OmegaIn only carries a port per
	// module-defined entry, so an imported slot instead gets an Import
	// leaf reading its initial value out of env.
	globals := make([]Link, numGlobalImports+globalCount)
	tables := make([]Link, numTableImports+tableCount)
	memories := make([]Link, numMemoryImports+memoryCount)
	elements := make([]Link, elementCount)
	datas := make([]Link, dataCount)

	for i := range globals[:numGlobalImports] {
		globals[i] = g.importLink(uint32(i), liveness.RefGlobal, env)
	}
	for i := range tables[:numTableImports] {
		tables[i] = g.importLink(uint32(i), liveness.RefTable, env)
	}
	for i := range memories[:numMemoryImports] {
		memories[i] = g.importLink(uint32(i), liveness.RefMemory, env)
	}

	base := 2
	for i := range mod.Globals {
		globals[numGlobalImports+i] = port(base + i)
	}
	base += globalCount
	for i := range mod.Tables {
		tables[numTableImports+i] = port(base + i)
	}
	base += tableCount
	for i := range mod.Memories {
		memories[numMemoryImports+i] = port(base + i)
	}
	base += memoryCount
	for i := range elements {
		elements[i] = port(base + i)
	}
	base += elementCount
	for i := range datas {
		datas[i] = port(base + i)
	}

	// Every function index gets a FuncRef leaf regardless of whether it
	// names an import or a module-defined function: Omega's own graph
	// never embeds a Lambda, so a defined function's callable value isn't
	// reachable through env at all — the emitter resolves a FuncRef by
	// index, reading env for idx < NumFuncImports and the sibling
	// closure local the module chunk declared for it otherwise.
	funcs := make([]Link, len(mod.Functions)+mod.NumFuncImports())
	for i := range funcs {
		funcs[i] = g.funcRefLink(uint32(i))
	}

	for i, glob := range mod.Globals {
		idx := numGlobalImports + i
		val := constExprLink(g, glob.Init, globals, funcs, env)
		id := g.Add(Node{Kind: KindGlobalSet, Inputs: []Link{globals[idx], val}, Outputs: 1, Index: uint32(idx)})
		globals[idx] = Link{Node: id, Port: StatePort}
	}

	for i, elem := range mod.Elements {
		if elem.Offset == nil {
			continue
		}
		segLen := len(elem.FuncIndices) + len(elem.Exprs)
		offset := constExprLink(g, *elem.Offset, globals, funcs, env)
		zero := Link{Node: g.Add(Node{Kind: KindI32, Outputs: 1}), Port: 0}
		size := Link{Node: g.Add(Node{Kind: KindI32, Outputs: 1, ConstI32: int32(segLen)}), Port: 0}
		id := g.Add(Node{Kind: KindTableInit, Inputs: []Link{tables[elem.TableIndex], elements[i], offset, zero, size}, Outputs: 1, Index: elem.TableIndex, Index2: uint32(i)})
		tables[elem.TableIndex] = Link{Node: id, Port: StatePort}

		dropID := g.Add(Node{Kind: KindElemDrop, Inputs: []Link{elements[i]}, Outputs: 1, Index: uint32(i)})
		elements[i] = Link{Node: dropID, Port: StatePort}
	}

	for i, data := range mod.Datas {
		if data.Offset == nil {
			continue
		}
		offset := constExprLink(g, *data.Offset, globals, funcs, env)
		zero := Link{Node: g.Add(Node{Kind: KindI32, Outputs: 1}), Port: 0}
		size := Link{Node: g.Add(Node{Kind: KindI32, Outputs: 1, ConstI32: int32(len(data.Bytes))}), Port: 0}
		id := g.Add(Node{Kind: KindMemoryInit, Inputs: []Link{memories[data.MemoryIndex], datas[i], offset, zero, size}, Outputs: 1, Index: data.MemoryIndex, Index2: uint32(i)})
		memories[data.MemoryIndex] = Link{Node: id, Port: StatePort}

		dropID := g.Add(Node{Kind: KindDataDrop, Inputs: []Link{datas[i]}, Outputs: 1, Index: uint32(i)})
		datas[i] = Link{Node: dropID, Port: StatePort}
	}

	// The start function's own Lambda must have been built with its
	// Dependencies set to this same global/table/memory/elements/data
	// order (cmd/spiderc's responsibility) so this Call's ports line up
	// with that Lambda's LambdaIn/LambdaOut — the start function runs
	// with the whole instance's state in scope, not just what its body
	// directly touches, since Wasm lets it observe prior initializers'
	// effects. Its trap output is discarded rather than threaded to
	// OmegaOut: a trapping start function aborts instantiation outright,
	// which the emitter realizes as an uncaught Luau error, not a value
	// any other Omega-level node needs to observe.
	if mod.Start != nil {
		var depInputs []Link
		depInputs = append(depInputs, globals...)
		depInputs = append(depInputs, tables...)
		depInputs = append(depInputs, memories...)
		depInputs = append(depInputs, elements...)
		depInputs = append(depInputs, datas...)
		depInputs = append(depInputs, trap)

		id := g.Add(Node{Kind: KindCall, Inputs: depInputs, Outputs: len(depInputs), Index: *mod.Start})
		p := uint16(0)
		for i := range globals {
			globals[i] = Link{Node: id, Port: p}
			p++
		}
		for i := range tables {
			tables[i] = Link{Node: id, Port: p}
			p++
		}
		for i := range memories {
			memories[i] = Link{Node: id, Port: p}
			p++
		}
		for i := range elements {
			elements[i] = Link{Node: id, Port: p}
			p++
		}
		for i := range datas {
			datas[i] = Link{Node: id, Port: p}
			p++
		}
	}

	resultLinks := make([]Link, 0, outputs)
	resultLinks = append(resultLinks, env, state)
	resultLinks = append(resultLinks, globals...)
	resultLinks = append(resultLinks, tables...)
	resultLinks = append(resultLinks, memories...)
	resultLinks = append(resultLinks, elements...)
	resultLinks = append(resultLinks, datas...)

	omegaOut := g.Add(Node{Kind: KindOmegaOut, Inputs: resultLinks})
	g.At(omegaIn).Partner = omegaOut
	g.At(omegaOut).Partner = omegaIn
	g.Root = Region{Start: omegaIn, End: omegaOut + 1}

	return g
}

// importLink materializes an Import leaf for the idx-th import of the
// given resource kind (global/table/memory; idx is relative to that kind's
// own import count, not the absolute module-wide index space). Index2
// carries the ReferenceKind so the emitter, which otherwise only sees a
// bare (Kind, Index) pair on the node, can tell a global import apart from
// a table or memory import sharing the same Index and look up the right
// entry in mod.Imports.
func (g *Graph) importLink(idx uint32, kind liveness.ReferenceKind, env Link) Link {
	id := g.Add(Node{Kind: KindImport, Inputs: []Link{env}, Outputs: 1, Index: idx, Index2: uint32(kind)})
	return Link{Node: id, Port: 0}
}

// funcRefLink materializes the callable value of the function at absolute
// index idx, without committing to where that value ultimately comes from
// (env vs. a sibling closure local) — that choice belongs to the emitter,
// which is the first stage to see the whole module's Lambdas at once.
func (g *Graph) funcRefLink(idx uint32) Link {
	id := g.Add(Node{Kind: KindFuncRef, Outputs: 1, Index: idx})
	return Link{Node: id, Port: 0}
}

// constExprLink realizes a Wasm constant expression (global/element/data
// initializer) as a leaf or reference node.
func constExprLink(g *Graph, ce wasm.ConstExpr, globals, funcs []Link, env Link) Link {
	switch ce.Kind {
	case wasm.ConstExprI32:
		return Link{Node: g.Add(Node{Kind: KindI32, Outputs: 1, ConstI32: ce.I32}), Port: 0}
	case wasm.ConstExprI64:
		return Link{Node: g.Add(Node{Kind: KindI64, Outputs: 1, ConstI64: ce.I64}), Port: 0}
	case wasm.ConstExprF32:
		return Link{Node: g.Add(Node{Kind: KindF32, Outputs: 1, ConstF32: ce.F32}), Port: 0}
	case wasm.ConstExprF64:
		return Link{Node: g.Add(Node{Kind: KindF64, Outputs: 1, ConstF64: ce.F64}), Port: 0}
	case wasm.ConstExprGlobalGet:
		return globals[ce.GlobalIndex]
	case wasm.ConstExprRefFunc:
		return funcs[ce.FuncIndex]
	default:
		return Link{Node: g.Add(Node{Kind: KindNull, Outputs: 1}), Port: 0}
	}
}
