package emit

import (
	"github.com/SovereignSatellite/Spider/internal/config"
	"github.com/SovereignSatellite/Spider/internal/liveness"
	"github.com/SovereignSatellite/Spider/internal/luau/ast"
	"github.com/SovereignSatellite/Spider/internal/rvsdg"
	"github.com/SovereignSatellite/Spider/internal/wasm"
)

// noMax stands in for Limits.Max when a table or memory declares no upper
// bound; the runtime library treats it as "unbounded" the same way the
// decoder's HasMax flag does on the wasm side.
const noMax = 0xFFFFFFFF

// emitter walks one or more normalized rvsdg.Graphs and accumulates the
// ast.Module they lower to. Module-scoped state (the place allocator, the
// function-name table) outlives any one graph; the rest is reset by
// setGraph before each Lambda and before the Omega body itself.
type emitter struct {
	mod      *wasm.Module
	places   *scopedProvider
	funcNames []ast.Name // one per absolute function index (imports, then defined)
	depCount int

	g         *rvsdg.Graph
	rf        *referenceFinder
	must      map[rvsdg.NodeID]bool
	lifetimes map[rvsdg.Link]int
	values    map[rvsdg.Link]ast.Expression
	named     map[rvsdg.Link]Place
}

// Module lowers mod's Omega graph and every function's Lambda graph into
// the Luau module chunk the printer renders (spec §4.6 "Emission"): Gamma
// becomes MatchStmt, Theta becomes Repeat, and each Lambda becomes a
// Scoped closure literal bound to a top-level fast local, the same
// upvalue-capture shape the teacher's own interpreter values use for
// closures. funcs must be in module-defined-function order (index 0 is
// the first entry after every function import).
func Module(mod *wasm.Module, omega *rvsdg.Graph, funcs []*rvsdg.Graph, budget int) *ast.Module {
	if budget <= 0 {
		budget = config.DefaultLocalBudget
	}

	e := &emitter{
		mod:      mod,
		places:   newScopedProvider(budget),
		depCount: len(rvsdg.Dependencies(mod)),
	}
	e.funcNames = make([]ast.Name, len(mod.Functions)+mod.NumFuncImports())

	e.places.pushFunctionScope()
	e.places.pushLocalScope()

	envPlace := e.places.pull(1 << 30)

	var body []ast.Statement

	impIdx := uint32(0)
	for i := range mod.Imports {
		imp := &mod.Imports[i]
		if imp.Kind != wasm.ImportFunc {
			continue
		}
		place := e.places.pull(1 << 30)
		e.funcNames[impIdx] = place.Name
		body = append(body, e.define(place, &ast.Import{
			Environment: ast.LocalExpr{Local: envPlace.Local()},
			Namespace:   imp.Module,
			Identifier:  imp.Name,
		}))
		impIdx++
	}

	base := uint32(mod.NumFuncImports())
	for i, fn := range funcs {
		scoped := e.emitLambda(fn)
		place := e.places.pull(1 << 30)
		e.funcNames[base+uint32(i)] = place.Name
		body = append(body, e.define(place, scoped))
	}

	e.setGraph(omega)
	layout := definedLayout(mod)
	omegaIn := omega.Root.Start
	e.values[rvsdg.Link{Node: omegaIn, Port: rvsdg.EnvironmentPort}] = ast.LocalExpr{Local: envPlace.Local()}
	e.values[rvsdg.Link{Node: omegaIn, Port: rvsdg.StateRootPort}] = ast.Null{}
	for p := 2; p < omega.Nodes[omegaIn].Outputs; p++ {
		e.values[rvsdg.Link{Node: omegaIn, Port: uint16(p)}] = e.synthesizePort(layout, p)
	}

	e.emitRange(omega.Root.Start+1, omega.Root.End-1, &body)

	omegaOut := &omega.Nodes[omega.Root.End-1]
	exports := e.buildExports(omegaOut)

	e.places.popLocalScope()
	e.places.popFunctionScope()

	return &ast.Module{Environment: envPlace.Name, Code: ast.Sequence{List: body}, Exports: exports}
}

func (e *emitter) setGraph(g *rvsdg.Graph) {
	rf := newReferenceFinder(g)
	e.g = g
	e.rf = rf
	e.must = findLocals(g, rf)
	e.lifetimes = findLifetimes(g, rf, e.must)
	e.values = map[rvsdg.Link]ast.Expression{}
	e.named = map[rvsdg.Link]Place{}
}

// emitLambda lowers one function's Lambda graph into a closure literal
// (spec §4.6 "Lambda -> a closure literal... emitted as Scoped"). Its
// parameters mirror LambdaIn's output ports (dependencies, then real
// arguments, then the incoming trap link); its multi-value return mirrors
// LambdaOut's inputs (results, then each dependency's final state, then
// the final trap link).
func (e *emitter) emitLambda(g *rvsdg.Graph) *ast.Scoped {
	e.places.pushFunctionScope()
	e.places.pushLocalScope()
	e.setGraph(g)

	lambdaIn := g.Root.Start
	outputs := g.Nodes[lambdaIn].Outputs

	args := make([]ast.Name, outputs)
	for p := 0; p < outputs; p++ {
		l := rvsdg.Link{Node: lambdaIn, Port: uint16(p)}
		place := e.places.pull(e.until(l))
		e.named[l] = place
		args[p] = place.Name
	}

	var body []ast.Statement
	e.emitRange(lambdaIn+1, g.Root.End-1, &body)

	lambdaOut := &g.Nodes[g.Root.End-1]
	returns := make([]ast.Local, len(lambdaOut.Inputs))
	for i, l := range lambdaOut.Inputs {
		returns[i] = e.localOf(l, &body)
	}

	e.places.popLocalScope()
	tableName, tableLen, hasTable := e.places.popFunctionScope()
	if hasTable {
		body = append([]ast.Statement{&ast.SlowDefine{Name: tableName, Len: tableLen}}, body...)
	}

	return &ast.Scoped{Function: ast.Function{Arguments: args, Code: ast.Sequence{List: body}, Returns: returns}}
}

// emitRange lowers every node in [start, end) into stmts in the
// already-topological order Normalize leaves them in, recursing into
// Gamma/Theta sub-structures as they're encountered rather than treating
// their contents as ordinary straight-line nodes.
func (e *emitter) emitRange(start, end rvsdg.NodeID, stmts *[]ast.Statement) {
	for id := start; id < end; {
		var next rvsdg.NodeID
		switch e.g.Nodes[id].Kind {
		case rvsdg.KindGammaIn:
			next = e.emitGamma(id, stmts)
		case rvsdg.KindThetaIn:
			next = e.emitTheta(id, stmts)
		default:
			e.emitSimple(id, stmts)
			next = id + 1
		}
		for i := id; i < next; i++ {
			e.places.pushUntil(int(i))
		}
		id = next
	}
}

// value resolves link to the ast.Expression the rest of the walk should
// read: a reference to its named Place if the local finder gave it one,
// otherwise the inline expression cached when its producer was visited.
// Producers are always visited before their consumers (the graph is
// walked in the topological order Normalize leaves it in), so both maps
// are already populated by the time any consumer asks.
func (e *emitter) value(l rvsdg.Link) ast.Expression {
	if l.IsDangling() {
		return ast.Null{}
	}
	if p, ok := e.named[l]; ok {
		return ast.LocalExpr{Local: p.Local()}
	}
	return e.values[l]
}

// localOf forces link's value into a Local, materializing a fresh place
// for it first if the local finder hadn't already given it one. Used
// where the ast only accepts a Local rather than any Expression (a
// Function's Returns, a Repeat's Post moves).
func (e *emitter) localOf(l rvsdg.Link, stmts *[]ast.Statement) ast.Local {
	if p, ok := e.named[l]; ok {
		return p.Local()
	}
	expr := e.values[l]
	p := e.places.pull(e.until(l))
	e.named[l] = p
	*stmts = append(*stmts, e.define(p, expr))
	return p.Local()
}

// until reports the last node id that still reads link, the place
// allocator's expiry for whatever gets stored there.
func (e *emitter) until(l rvsdg.Link) int {
	if u, ok := e.lifetimes[l]; ok {
		return u
	}
	if u, ok := e.rf.lastUse(l); ok {
		return int(u)
	}
	return int(l.Node)
}

// define renders a Place's first write: a fresh fast local gets `local
// x = ...`, a reused fast local (still in lexical scope, per
// scopedProvider's forgetFree discipline) just gets `x = ...`, and an
// overflow slot is always a plain table-index assignment.
func (e *emitter) define(p Place, src ast.Expression) ast.Statement {
	if p.Kind == PlaceDefinition {
		return &ast.FastDefine{Name: p.Name, Source: src}
	}
	return &ast.Assign{Local: p.Local(), Source: src}
}

// materialize records id's value at port: inline if the local finder
// never marked it as needing a name, otherwise bound to a fresh Place by
// a statement appended to stmts.
func (e *emitter) materialize(id rvsdg.NodeID, port uint16, expr ast.Expression, stmts *[]ast.Statement) {
	l := rvsdg.Link{Node: id, Port: port}
	if !e.must[id] {
		e.values[l] = expr
		return
	}
	p := e.places.pull(e.until(l))
	e.named[l] = p
	*stmts = append(*stmts, e.define(p, expr))
}

func (e *emitter) funcLocal(idx uint32) ast.Local {
	return ast.Local{Fast: true, Name: e.funcNames[idx]}
}

func isFloat(t wasm.ValueType) bool { return t == wasm.F32 || t == wasm.F64 }

func addOffset(addr ast.Expression, off uint32) ast.Expression {
	if off == 0 {
		return addr
	}
	return &ast.IntegerBinaryOperation{Lhs: addr, Rhs: ast.I32{Value: int32(off)}, Type: wasm.I32, Op: wasm.NumAdd}
}

// emitSimple lowers every node kind that isn't a Gamma/Theta boundary:
// leaves, pure operations, and stateful operations, one ast node per
// rvsdg node (spec §4.6's "one statement or inline expression per node").
func (e *emitter) emitSimple(id rvsdg.NodeID, stmts *[]ast.Statement) {
	n := &e.g.Nodes[id]

	switch n.Kind {
	case rvsdg.KindImport:
		kind := liveness.ReferenceKind(n.Index2)
		imp := e.resolveImport(kind, n.Index)
		expr := &ast.Import{Environment: e.value(n.Inputs[0]), Namespace: imp.Module, Identifier: imp.Name}
		e.materialize(id, 0, expr, stmts)

	case rvsdg.KindFuncRef:
		e.values[rvsdg.Link{Node: id, Port: 0}] = ast.LocalExpr{Local: e.funcLocal(n.Index)}

	case rvsdg.KindTrap:
		e.materialize(id, 0, ast.Trap{Message: n.TrapMessage}, stmts)
	case rvsdg.KindNull:
		e.values[rvsdg.Link{Node: id, Port: 0}] = ast.Null{}
	case rvsdg.KindI32:
		e.values[rvsdg.Link{Node: id, Port: 0}] = ast.I32{Value: n.ConstI32}
	case rvsdg.KindI64:
		e.values[rvsdg.Link{Node: id, Port: 0}] = ast.I64{Value: n.ConstI64}
	case rvsdg.KindF32:
		e.values[rvsdg.Link{Node: id, Port: 0}] = ast.F32{Value: n.ConstF32}
	case rvsdg.KindF64:
		e.values[rvsdg.Link{Node: id, Port: 0}] = ast.F64{Value: n.ConstF64}

	case rvsdg.KindIdentity:
		e.values[rvsdg.Link{Node: id, Port: 0}] = e.value(n.Inputs[0])

	case rvsdg.KindRefIsNull:
		e.materialize(id, 0, &ast.RefIsNull{Source: e.value(n.Inputs[0])}, stmts)

	case rvsdg.KindUnary:
		src := e.value(n.Inputs[0])
		var expr ast.Expression
		if isFloat(n.LocalType) {
			expr = &ast.NumberUnaryOperation{Source: src, Type: n.LocalType, Op: n.NumOp}
		} else {
			expr = &ast.IntegerUnaryOperation{Source: src, Type: n.LocalType, Op: n.NumOp}
		}
		e.materialize(id, 0, expr, stmts)

	case rvsdg.KindBinary:
		lhs, rhs := e.value(n.Inputs[0]), e.value(n.Inputs[1])
		var expr ast.Expression
		if isFloat(n.LocalType) {
			expr = &ast.NumberBinaryOperation{Lhs: lhs, Rhs: rhs, Type: n.LocalType, Op: n.NumOp}
		} else {
			expr = &ast.IntegerBinaryOperation{Lhs: lhs, Rhs: rhs, Type: n.LocalType, Op: n.NumOp}
		}
		e.materialize(id, 0, expr, stmts)

	case rvsdg.KindCompare:
		lhs, rhs := e.value(n.Inputs[0]), e.value(n.Inputs[1])
		var expr ast.Expression
		if isFloat(n.LocalType) {
			expr = &ast.NumberCompareOperation{Lhs: lhs, Rhs: rhs, Type: n.LocalType, Op: n.NumOp}
		} else {
			expr = &ast.IntegerCompareOperation{Lhs: lhs, Rhs: rhs, Type: n.LocalType, Op: n.NumOp}
		}
		e.materialize(id, 0, expr, stmts)

	case rvsdg.KindConvert:
		src := e.value(n.Inputs[0])
		var expr ast.Expression
		switch n.NumOp {
		case wasm.NumConvertS, wasm.NumConvertU:
			expr = &ast.IntegerConvertToNumber{Source: src, Signed: n.NumOp == wasm.NumConvertS, From: n.LocalType, To: n.LocalType2}
		default:
			signed := n.NumOp == wasm.NumTruncS || n.NumOp == wasm.NumTruncSatS
			saturate := n.NumOp == wasm.NumTruncSatS || n.NumOp == wasm.NumTruncSatU
			expr = &ast.NumberTruncateToInteger{Source: src, Signed: signed, Saturate: saturate, From: n.LocalType, To: n.LocalType2}
		}
		e.materialize(id, 0, expr, stmts)

	case rvsdg.KindTransmute:
		src := e.value(n.Inputs[0])
		var expr ast.Expression
		if isFloat(n.LocalType) {
			expr = &ast.NumberTransmuteToInteger{Source: src, From: n.LocalType}
		} else {
			expr = &ast.IntegerTransmuteToNumber{Source: src, From: n.LocalType}
		}
		e.materialize(id, 0, expr, stmts)

	case rvsdg.KindNarrow:
		src := e.value(n.Inputs[0])
		var expr ast.Expression
		if n.LocalType == wasm.F64 {
			expr = &ast.NumberNarrow{Source: src}
		} else {
			expr = &ast.IntegerNarrow{Source: src}
		}
		e.materialize(id, 0, expr, stmts)

	case rvsdg.KindWiden:
		src := e.value(n.Inputs[0])
		var expr ast.Expression
		if n.LocalType == wasm.F32 {
			expr = &ast.NumberWiden{Source: src}
		} else {
			expr = &ast.IntegerWiden{Source: src, Signed: n.NumOp == wasm.NumExtendS}
		}
		e.materialize(id, 0, expr, stmts)

	case rvsdg.KindExtend:
		e.materialize(id, 0, &ast.IntegerExtend{Source: e.value(n.Inputs[0]), Type: n.LocalType, Op: n.NumOp}, stmts)

	case rvsdg.KindCall:
		e.emitCall(id, n, stmts)

	case rvsdg.KindGlobalGet:
		handle := e.value(n.Inputs[0])
		e.materialize(id, 0, &ast.GlobalGet{Source: handle}, stmts)
	case rvsdg.KindGlobalSet:
		dst, src := e.value(n.Inputs[0]), e.value(n.Inputs[1])
		*stmts = append(*stmts, &ast.GlobalSet{Destination: dst, Source: src})
		e.values[rvsdg.Link{Node: id, Port: rvsdg.StatePort}] = src

	case rvsdg.KindTableGet:
		handle, idx := e.value(n.Inputs[0]), e.value(n.Inputs[1])
		e.materialize(id, 0, &ast.TableGet{Source: ast.Location{Reference: handle, Offset: idx}}, stmts)
	case rvsdg.KindTableSet:
		handle, idx, val := e.value(n.Inputs[0]), e.value(n.Inputs[1]), e.value(n.Inputs[2])
		*stmts = append(*stmts, &ast.TableSet{Destination: ast.Location{Reference: handle, Offset: idx}, Source: val})
		e.values[rvsdg.Link{Node: id, Port: rvsdg.StatePort}] = handle
	case rvsdg.KindTableSize:
		handle := e.value(n.Inputs[0])
		e.materialize(id, 0, &ast.TableSize{Source: handle}, stmts)
	case rvsdg.KindTableGrow:
		handle, size, init := e.value(n.Inputs[0]), e.value(n.Inputs[1]), e.value(n.Inputs[2])
		e.materialize(id, 0, &ast.TableGrow{Destination: handle, Initializer: init, Size: size}, stmts)
		e.values[rvsdg.Link{Node: id, Port: rvsdg.StatePort}] = handle
	case rvsdg.KindTableFill:
		handle, idx, val, size := e.value(n.Inputs[0]), e.value(n.Inputs[1]), e.value(n.Inputs[2]), e.value(n.Inputs[3])
		*stmts = append(*stmts, &ast.TableFill{Destination: ast.Location{Reference: handle, Offset: idx}, Source: val, Size: size})
		e.values[rvsdg.Link{Node: id, Port: rvsdg.StatePort}] = handle
	case rvsdg.KindTableCopy:
		dst, src := e.value(n.Inputs[0]), e.value(n.Inputs[1])
		dstOff, srcOff, size := e.value(n.Inputs[2]), e.value(n.Inputs[3]), e.value(n.Inputs[4])
		*stmts = append(*stmts, &ast.TableCopy{
			Destination: ast.Location{Reference: dst, Offset: dstOff},
			Source:      ast.Location{Reference: src, Offset: srcOff},
			Size:        size,
		})
		e.values[rvsdg.Link{Node: id, Port: rvsdg.StatePort}] = dst
	case rvsdg.KindTableInit:
		dst, elems := e.value(n.Inputs[0]), e.value(n.Inputs[1])
		dstOff, srcOff, size := e.value(n.Inputs[2]), e.value(n.Inputs[3]), e.value(n.Inputs[4])
		*stmts = append(*stmts, &ast.TableInit{
			Destination: ast.Location{Reference: dst, Offset: dstOff},
			Source:      ast.Location{Reference: elems, Offset: srcOff},
			Size:        size,
		})
		e.values[rvsdg.Link{Node: id, Port: rvsdg.StatePort}] = dst
	case rvsdg.KindElemDrop:
		handle := e.value(n.Inputs[0])
		*stmts = append(*stmts, &ast.ElementsDrop{Source: handle})
		e.values[rvsdg.Link{Node: id, Port: rvsdg.StatePort}] = handle

	case rvsdg.KindMemoryLoad:
		handle := e.value(n.Inputs[0])
		addr := addOffset(e.value(n.Inputs[1]), n.Mem.Offset)
		e.materialize(id, 0, &ast.MemoryLoad{Source: ast.Location{Reference: handle, Offset: addr}, Access: n.Mem.Access}, stmts)
	case rvsdg.KindMemoryStore:
		handle := e.value(n.Inputs[0])
		addr := addOffset(e.value(n.Inputs[1]), n.Mem.Offset)
		val := e.value(n.Inputs[2])
		*stmts = append(*stmts, &ast.MemoryStore{Destination: ast.Location{Reference: handle, Offset: addr}, Source: val, Access: n.Mem.Access})
		e.values[rvsdg.Link{Node: id, Port: rvsdg.StatePort}] = handle
	case rvsdg.KindMemorySize:
		handle := e.value(n.Inputs[0])
		e.materialize(id, 0, &ast.MemorySize{Source: handle}, stmts)
	case rvsdg.KindMemoryGrow:
		handle, size := e.value(n.Inputs[0]), e.value(n.Inputs[1])
		e.materialize(id, 0, &ast.MemoryGrow{Destination: handle, Size: size}, stmts)
		e.values[rvsdg.Link{Node: id, Port: rvsdg.StatePort}] = handle
	case rvsdg.KindMemoryFill:
		handle := e.value(n.Inputs[0])
		addr := addOffset(e.value(n.Inputs[1]), n.Mem.Offset)
		b, size := e.value(n.Inputs[2]), e.value(n.Inputs[3])
		*stmts = append(*stmts, &ast.MemoryFill{Destination: ast.Location{Reference: handle, Offset: addr}, Byte: b, Size: size})
		e.values[rvsdg.Link{Node: id, Port: rvsdg.StatePort}] = handle
	case rvsdg.KindMemoryCopy:
		dst, src := e.value(n.Inputs[0]), e.value(n.Inputs[1])
		dstAddr, srcAddr, size := e.value(n.Inputs[2]), e.value(n.Inputs[3]), e.value(n.Inputs[4])
		*stmts = append(*stmts, &ast.MemoryCopy{
			Destination: ast.Location{Reference: dst, Offset: dstAddr},
			Source:      ast.Location{Reference: src, Offset: srcAddr},
			Size:        size,
		})
		e.values[rvsdg.Link{Node: id, Port: rvsdg.StatePort}] = dst
	case rvsdg.KindMemoryInit:
		dst, data := e.value(n.Inputs[0]), e.value(n.Inputs[1])
		dstAddr, srcOff, size := e.value(n.Inputs[2]), e.value(n.Inputs[3]), e.value(n.Inputs[4])
		*stmts = append(*stmts, &ast.MemoryInit{
			Destination: ast.Location{Reference: dst, Offset: dstAddr},
			Source:      ast.Location{Reference: data, Offset: srcOff},
			Size:        size,
		})
		e.values[rvsdg.Link{Node: id, Port: rvsdg.StatePort}] = dst
	case rvsdg.KindDataDrop:
		handle := e.value(n.Inputs[0])
		*stmts = append(*stmts, &ast.DataDrop{Source: handle})
		e.values[rvsdg.Link{Node: id, Port: rvsdg.StatePort}] = handle

	case rvsdg.KindMerge:
		// Not constructed by BuildOmega/BuildLambda today; kept as a
		// defensive passthrough so a future producer of KindMerge still
		// lowers to something well-formed instead of panicking.
		if len(n.Inputs) > 0 {
			e.values[rvsdg.Link{Node: id, Port: rvsdg.StatePort}] = e.value(n.Inputs[0])
		}
	}
}

// emitCall lowers a Call node into a CallStmt: its trailing dependency
// and trap ports always need a name (there's always at least the trap
// port), so unlike every other stateful kind a Call is never folded into
// an inline expression (spec's "side-effecting nodes always emit
// statements").
func (e *emitter) emitCall(id rvsdg.NodeID, n *rvsdg.Node, stmts *[]ast.Statement) {
	argsStart := 0
	if n.Indirect {
		argsStart = 1
	}
	argsEnd := len(n.Inputs) - e.depCount - 1

	var fn ast.Expression
	if n.Indirect {
		fn = e.value(n.Inputs[0])
	} else {
		fn = ast.LocalExpr{Local: e.funcLocal(n.Index)}
	}

	args := make([]ast.Expression, 0, argsEnd-argsStart)
	for i := argsStart; i < argsEnd; i++ {
		args = append(args, e.value(n.Inputs[i]))
	}

	results := make([]ast.Local, n.Outputs)
	for p := 0; p < n.Outputs; p++ {
		l := rvsdg.Link{Node: id, Port: uint16(p)}
		place := e.places.pull(e.until(l))
		e.named[l] = place
		results[p] = place.Local()
	}

	*stmts = append(*stmts, &ast.CallStmt{Function: fn, Results: results, Arguments: args})
}

// emitGamma lowers a diamond branch into a MatchStmt (spec §4.6 "Gamma ->
// Match condition emission"): every output slot is pre-declared once
// before the match (so it stays in scope past it), each arm assigns into
// those same places from the values GammaOut's inputs already name, and
// it returns the node id just past GammaOut.
func (e *emitter) emitGamma(id rvsdg.NodeID, stmts *[]ast.Statement) rvsdg.NodeID {
	n := &e.g.Nodes[id]
	slotCount := n.Outputs
	cond := e.value(n.Inputs[0])

	for i := 0; i < slotCount; i++ {
		e.values[rvsdg.Link{Node: id, Port: uint16(i)}] = e.value(n.Inputs[1+i])
	}

	var lastEnd rvsdg.NodeID
	branches := make([]ast.Sequence, len(n.Regions))
	for a, region := range n.Regions {
		regionIn := region.Start
		for i := 0; i < slotCount; i++ {
			e.values[rvsdg.Link{Node: regionIn, Port: uint16(i)}] = e.values[rvsdg.Link{Node: id, Port: uint16(i)}]
		}
		var armStmts []ast.Statement
		e.emitRange(regionIn+1, region.End-1, &armStmts)
		branches[a] = ast.Sequence{List: armStmts}
		lastEnd = region.End
	}

	gammaOut := lastEnd
	gout := &e.g.Nodes[gammaOut]

	places := make([]Place, slotCount)
	for i := 0; i < slotCount; i++ {
		places[i] = e.places.pull(e.until(rvsdg.Link{Node: gammaOut, Port: uint16(i)}))
		*stmts = append(*stmts, e.define(places[i], ast.Null{}))
	}
	for a := range n.Regions {
		for i := 0; i < slotCount; i++ {
			val := e.value(gout.Inputs[a*slotCount+i])
			branches[a].List = append(branches[a].List, &ast.Assign{Local: places[i].Local(), Source: val})
		}
	}

	*stmts = append(*stmts, &ast.MatchStmt{Condition: cond, Branches: branches})

	for i := 0; i < slotCount; i++ {
		e.named[rvsdg.Link{Node: gammaOut, Port: uint16(i)}] = places[i]
	}

	return gammaOut + 1
}

// emitTheta lowers a tail-controlled loop into a Repeat (spec §4.6 "Theta
// -> Repeat"): each loop-carried slot keeps the same Place across every
// iteration, the body's final per-slot values move into those places in
// one parallel AssignAll, and the loop exits once Condition (the body's
// continue/break predicate) is false.
func (e *emitter) emitTheta(id rvsdg.NodeID, stmts *[]ast.Statement) rvsdg.NodeID {
	n := &e.g.Nodes[id]
	slotCount := n.Outputs
	region := n.Body
	regionIn := region.Start

	places := make([]Place, slotCount)
	for i := 0; i < slotCount; i++ {
		pre := e.value(n.Inputs[i])
		p := e.places.pull(e.until(rvsdg.Link{Node: region.End, Port: uint16(i)}))
		*stmts = append(*stmts, e.define(p, pre))
		places[i] = p
		e.values[rvsdg.Link{Node: regionIn, Port: uint16(i)}] = ast.LocalExpr{Local: p.Local()}
	}

	var body []ast.Statement
	e.emitRange(regionIn+1, region.End-1, &body)

	regionOut := &e.g.Nodes[region.End-1]
	moves := make([][2]ast.Local, slotCount)
	for i := 0; i < slotCount; i++ {
		moves[i] = [2]ast.Local{places[i].Local(), e.localOf(regionOut.Inputs[i], &body)}
	}
	cond := e.value(regionOut.Inputs[len(regionOut.Inputs)-1])

	*stmts = append(*stmts, &ast.Repeat{
		Code:      ast.Sequence{List: body},
		Post:      ast.AssignAll{Assignments: moves},
		Condition: cond,
	})

	thetaOut := region.End
	for i := 0; i < slotCount; i++ {
		e.named[rvsdg.Link{Node: thetaOut, Port: uint16(i)}] = places[i]
	}
	return thetaOut + 1
}

func (e *emitter) resolveImport(kind liveness.ReferenceKind, idx uint32) *wasm.Import {
	want := wasm.ImportGlobal
	switch kind {
	case liveness.RefTable:
		want = wasm.ImportTable
	case liveness.RefMemory:
		want = wasm.ImportMemory
	}
	count := uint32(0)
	for i := range e.mod.Imports {
		imp := &e.mod.Imports[i]
		if imp.Kind != want {
			continue
		}
		if count == idx {
			return imp
		}
		count++
	}
	return &wasm.Import{}
}

// resourceLayout maps an OmegaIn output port, or an OmegaOut input port,
// back to the mod.Globals/Tables/Memories/Elements/Datas entry it
// corresponds to. BuildOmega computes these same base offsets inline
// when it builds the ports in the first place (see module.go); the
// emitter has to recompute them since the graph itself carries no back
// reference from a port index to the wasm.Module entry it came from.
type resourceLayout struct {
	globalBase, tableBase, memoryBase, elementBase, dataBase int
	globalEnd, tableEnd, memoryEnd, elementEnd, dataEnd      int
}

// definedLayout spans only module-defined entries (OmegaIn's own output
// ports skip imports, which are separate Import leaf nodes instead).
func definedLayout(mod *wasm.Module) resourceLayout {
	var l resourceLayout
	base := 2
	l.globalBase, base = base, base+len(mod.Globals)
	l.globalEnd = base
	l.tableBase, base = base, base+len(mod.Tables)
	l.tableEnd = base
	l.memoryBase, base = base, base+len(mod.Memories)
	l.memoryEnd = base
	l.elementBase, base = base, base+len(mod.Elements)
	l.elementEnd = base
	l.dataBase, base = base, base+len(mod.Datas)
	l.dataEnd = base
	return l
}

// absoluteLayout spans the full imports-then-defined index space, the
// shape OmegaOut's inputs (and every export index) use.
func absoluteLayout(mod *wasm.Module) resourceLayout {
	var l resourceLayout
	base := 2
	l.globalBase, base = base, base+mod.NumGlobalImports()+len(mod.Globals)
	l.globalEnd = base
	l.tableBase, base = base, base+mod.NumTableImports()+len(mod.Tables)
	l.tableEnd = base
	l.memoryBase, base = base, base+mod.NumMemoryImports()+len(mod.Memories)
	l.memoryEnd = base
	l.elementBase, base = base, base+len(mod.Elements)
	l.elementEnd = base
	l.dataBase, base = base, base+len(mod.Datas)
	l.dataEnd = base
	return l
}

// synthesizePort builds the *New expression for one of OmegaIn's
// module-defined-resource output ports (spec §4.4's "*New leaves,
// emitted at the top of the module chunk"). BuildOmega never constructs
// a dedicated node for these; it represents a module-defined resource
// purely as an OmegaIn port, leaving the emitter to read the resource's
// declared shape straight out of mod at the point it's first referenced.
func (e *emitter) synthesizePort(l resourceLayout, port int) ast.Expression {
	mod := e.mod
	switch {
	case port >= l.globalBase && port < l.globalEnd:
		return &ast.GlobalNew{Initializer: zeroValue(mod.Globals[port-l.globalBase].Type)}
	case port >= l.tableBase && port < l.tableEnd:
		lim := mod.Tables[port-l.tableBase].Limits
		max := lim.Max
		if !lim.HasMax {
			max = noMax
		}
		return &ast.TableNew{Initializer: ast.Null{}, Minimum: lim.Min, Maximum: max}
	case port >= l.memoryBase && port < l.memoryEnd:
		lim := mod.Memories[port-l.memoryBase].Limits
		max := lim.Max
		if !lim.HasMax {
			max = noMax
		}
		return ast.MemoryNew{Minimum: lim.Min, Maximum: max}
	case port >= l.elementBase && port < l.elementEnd:
		return &ast.ElementsNew{Content: e.elementContent(&mod.Elements[port-l.elementBase])}
	case port >= l.dataBase && port < l.dataEnd:
		return ast.DataNew{Bytes: mod.Datas[port-l.dataBase].Bytes}
	default:
		return ast.Null{}
	}
}

func zeroValue(t wasm.ValueType) ast.Expression {
	switch t {
	case wasm.I32:
		return ast.I32{}
	case wasm.I64:
		return ast.I64{}
	case wasm.F32:
		return ast.F32{}
	case wasm.F64:
		return ast.F64{}
	default:
		return ast.Null{}
	}
}

func (e *emitter) elementContent(el *wasm.Element) []ast.Expression {
	if len(el.FuncIndices) > 0 {
		out := make([]ast.Expression, len(el.FuncIndices))
		for i, idx := range el.FuncIndices {
			out[i] = ast.LocalExpr{Local: e.funcLocal(idx)}
		}
		return out
	}
	out := make([]ast.Expression, len(el.Exprs))
	for i, ce := range el.Exprs {
		out[i] = e.constExpr(ce)
	}
	return out
}

// constExpr lowers a segment/global initializer const-expr directly,
// without going through the graph: BuildOmega only ever threads these
// through graph Links for globals it defines itself, never for element
// or data content, which the emitter must synthesize straight from mod
// (see synthesizePort). A global.get here can only name an imported,
// immutable global (Wasm's const-expr validation rule), so it's always
// resolved through that import's own Import leaf, never a later value.
func (e *emitter) constExpr(ce wasm.ConstExpr) ast.Expression {
	switch ce.Kind {
	case wasm.ConstExprI32:
		return ast.I32{Value: ce.I32}
	case wasm.ConstExprI64:
		return ast.I64{Value: ce.I64}
	case wasm.ConstExprF32:
		return ast.F32{Value: ce.F32}
	case wasm.ConstExprF64:
		return ast.F64{Value: ce.F64}
	case wasm.ConstExprGlobalGet:
		return e.globalImportValue(ce.GlobalIndex)
	case wasm.ConstExprRefFunc:
		return ast.LocalExpr{Local: e.funcLocal(ce.FuncIndex)}
	default:
		return ast.Null{}
	}
}

// globalImportValue reads the already-lowered value of the idx-th global
// import: BuildOmega adds one Import leaf per global import, in order,
// immediately after OmegaIn, before any table/memory import or *New
// port — so its node id is always the omega graph's root start plus one
// plus idx.
func (e *emitter) globalImportValue(idx uint32) ast.Expression {
	if idx >= uint32(e.mod.NumGlobalImports()) {
		return ast.Null{}
	}
	return e.value(rvsdg.Link{Node: e.g.Root.Start + 1 + rvsdg.NodeID(idx), Port: 0})
}

func (e *emitter) buildExports(omegaOut *rvsdg.Node) []ast.Export {
	l := absoluteLayout(e.mod)
	exports := make([]ast.Export, 0, len(e.mod.Exports))
	for _, exp := range e.mod.Exports {
		var src ast.Expression
		switch exp.Kind {
		case wasm.ExportFunc:
			src = ast.LocalExpr{Local: e.funcLocal(exp.Index)}
		case wasm.ExportGlobal:
			src = e.value(omegaOut.Inputs[l.globalBase+int(exp.Index)])
		case wasm.ExportTable:
			src = e.value(omegaOut.Inputs[l.tableBase+int(exp.Index)])
		case wasm.ExportMemory:
			src = e.value(omegaOut.Inputs[l.memoryBase+int(exp.Index)])
		}
		exports = append(exports, ast.Export{Identifier: exp.Name, Source: src})
	}
	return exports
}
