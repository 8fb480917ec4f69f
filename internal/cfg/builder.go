package cfg

import (
	"github.com/SovereignSatellite/Spider/internal/diagnostics"
	"github.com/SovereignSatellite/Spider/internal/wasm"
)

// Build runs the Control-Flow Builder and Sorter (spec §4.1, §2 stages 2-4)
// over one function's validated operator stream, producing a CFG numbered
// in reverse-postorder with unreachable blocks dropped, predecessor lists
// filled, and the function-exit sentinel block resolved.
func Build(mod *wasm.Module, funcIdx uint32) (*Function, error) {
	ty := mod.Types[mod.FuncTypeIndex(funcIdx)]
	body := mod.Functions[funcIdx-uint32(mod.NumFuncImports())]

	b := &builder{
		mod: mod,
		cb:  newCodeBuilder(),
		sb:  NewStackBuilder(),
	}
	b.cb.fn.NumParams = len(ty.Params)
	b.cb.fn.NumLocals = len(body.Locals)
	b.cb.fn.ResultCount = len(ty.Results)
	b.cb.fn.LocalTypes = make(map[Register]localType)

	for i, p := range ty.Params {
		b.cb.fn.LocalTypes[LocalBase+Register(i)] = valueLocalType(p)
	}
	for i, l := range body.Locals {
		b.cb.fn.LocalTypes[LocalBase+Register(len(ty.Params)+i)] = valueLocalType(l)
	}

	b.sb.SetFunctionData(len(ty.Params), len(ty.Results), len(body.Locals))

	// The function body is itself the outermost level; open its entry
	// block before walking operators.
	b.cb.fn.Entry = b.cb.addBasicBlock(1)
	b.cb.fn.Blocks[b.cb.fn.Entry].Start = 0

	if err := b.walk(body.Body); err != nil {
		return nil, err
	}

	// Close the implicit function-level `end`; every jump it resolves
	// lands on the empty sentinel block closed here.
	b.handleEnd()
	b.cb.fn.Exit = b.cb.addBasicBlock(0)

	Sort(b.cb.fn)
	return b.cb.fn, nil
}

// ValueTypeOf converts a register's localType back into a wasm.ValueType,
// the direction the data-flow builder needs when it has to materialize a
// zero constant for a local that's dead on entry to the function.
func ValueTypeOf(lt localType) wasm.ValueType {
	switch lt {
	case LocalI32:
		return wasm.I32
	case LocalI64:
		return wasm.I64
	case LocalF32:
		return wasm.F32
	case LocalF64:
		return wasm.F64
	case LocalRefExtern:
		return wasm.ExternRef
	default:
		return wasm.FuncRefValue
	}
}

func valueLocalType(v wasm.ValueType) localType {
	switch v {
	case wasm.I32:
		return LocalI32
	case wasm.I64:
		return LocalI64
	case wasm.F32:
		return LocalF32
	case wasm.F64:
		return LocalF64
	case wasm.ExternRef:
		return LocalRefExtern
	default:
		return LocalRefFunc
	}
}

type builder struct {
	mod *wasm.Module
	cb  *codeBuilder
	sb  *StackBuilder
}

func (b *builder) blockArity(op wasm.Operator) (params, results int) {
	switch {
	case op.HasNoResult:
		return 0, 0
	case op.HasInlineType:
		return 0, 1
	default:
		ty := b.mod.Types[op.TypeIndex]
		return len(ty.Params), len(ty.Results)
	}
}

func (b *builder) walk(ops []wasm.Operator) error {
	for _, op := range ops {
		if err := b.step(op); err != nil {
			return err
		}
	}
	return nil
}

func (b *builder) step(op wasm.Operator) error {
	switch op.Op {
	case wasm.OpUnreachable:
		b.handleUnreachable()
	case wasm.OpNop:
		// no-op at the IR level
	case wasm.OpBlock:
		p, r := b.blockArity(op)
		b.sb.PushLevel(p, r, nil)
	case wasm.OpLoop:
		p, r := b.blockArity(op)
		id := b.cb.addBasicBlock(1)
		header := id + 1 // the block opened here, where the loop body begins
		b.sb.PushLevel(p, r, &header)
	case wasm.OpIf:
		b.handleIf(op)
	case wasm.OpElse:
		b.handleElse()
	case wasm.OpEnd:
		b.handleEnd()
	case wasm.OpBr:
		b.handleBr(op.LabelIndex)
	case wasm.OpBrIf:
		b.handleBrIf(op.LabelIndex)
	case wasm.OpBrTable:
		b.handleBrTable(op.BrTable, op.LabelIndex)
	case wasm.OpReturn:
		b.handleReturn()
	case wasm.OpCall:
		b.handleCall(op.Index)
	case wasm.OpCallIndirect:
		b.handleCallIndirect(op.Index, op.Index2)
	case wasm.OpDrop:
		b.sb.PullLocal()
	case wasm.OpSelect:
		b.handleSelect()
	case wasm.OpLocalGet:
		b.handleLocalGet(Register(op.Index))
	case wasm.OpLocalSet:
		b.handleLocalSet(Register(op.Index))
	case wasm.OpLocalTee:
		b.handleLocalTee(Register(op.Index))
	case wasm.OpGlobalGet:
		dst := b.sb.PushLocal()
		b.cb.emit(Instruction{Kind: InstGlobalGet, Dst: dst, Index: op.Index})
	case wasm.OpGlobalSet:
		src := b.sb.PullLocal()
		b.cb.emit(Instruction{Kind: InstGlobalSet, Src0: src, Index: op.Index})
	case wasm.OpI32Const:
		dst := b.sb.PushLocal()
		b.cb.emit(Instruction{Kind: InstConstI32, Dst: dst, ConstI32: op.I32})
	case wasm.OpI64Const:
		dst := b.sb.PushLocal()
		b.cb.emit(Instruction{Kind: InstConstI64, Dst: dst, ConstI64: op.I64})
	case wasm.OpF32Const:
		dst := b.sb.PushLocal()
		b.cb.emit(Instruction{Kind: InstConstF32, Dst: dst, ConstF32: op.F32})
	case wasm.OpF64Const:
		dst := b.sb.PushLocal()
		b.cb.emit(Instruction{Kind: InstConstF64, Dst: dst, ConstF64: op.F64})
	case wasm.OpRefNull:
		dst := b.sb.PushLocal()
		b.cb.emit(Instruction{Kind: InstRefNull, Dst: dst, RefType: op.RefType})
	case wasm.OpRefIsNull:
		src := b.sb.PullLocal()
		dst := b.sb.PushLocal()
		b.cb.emit(Instruction{Kind: InstRefIsNull, Dst: dst, Src0: src})
	case wasm.OpRefFunc:
		dst := b.sb.PushLocal()
		b.cb.emit(Instruction{Kind: InstRefFunc, Dst: dst, Index: op.Index})
	case wasm.OpUnary:
		src := b.sb.PullLocal()
		dst := b.sb.PushLocal()
		b.cb.emit(Instruction{Kind: InstUnary, Dst: dst, Src0: src, NumOp: op.NumOp, Type: op.Type})
	case wasm.OpBinary:
		rhs := b.sb.PullLocal()
		lhs := b.sb.PullLocal()
		dst := b.sb.PushLocal()
		b.cb.emit(Instruction{Kind: InstBinary, Dst: dst, Src0: lhs, Src1: rhs, NumOp: op.NumOp, Type: op.Type})
	case wasm.OpCompare:
		rhs := b.sb.PullLocal()
		lhs := b.sb.PullLocal()
		dst := b.sb.PushLocal()
		b.cb.emit(Instruction{Kind: InstCompare, Dst: dst, Src0: lhs, Src1: rhs, NumOp: op.NumOp, Type: op.Type})
	case wasm.OpConvert:
		src := b.sb.PullLocal()
		dst := b.sb.PushLocal()
		b.cb.emit(Instruction{Kind: InstConvert, Dst: dst, Src0: src, NumOp: op.NumOp, Type: op.Type, Type2: op.Type2})
	case wasm.OpTransmute:
		src := b.sb.PullLocal()
		dst := b.sb.PushLocal()
		b.cb.emit(Instruction{Kind: InstTransmute, Dst: dst, Src0: src, NumOp: op.NumOp, Type: op.Type})
	case wasm.OpTableGet:
		src := b.sb.PullLocal()
		dst := b.sb.PushLocal()
		b.cb.emit(Instruction{Kind: InstTableGet, Dst: dst, Src0: src, Index: op.Index})
	case wasm.OpTableSet:
		value := b.sb.PullLocal()
		index := b.sb.PullLocal()
		b.cb.emit(Instruction{Kind: InstTableSet, Src0: index, Src1: value, Index: op.Index})
	case wasm.OpTableSize:
		dst := b.sb.PushLocal()
		b.cb.emit(Instruction{Kind: InstTableSize, Dst: dst, Index: op.Index})
	case wasm.OpTableGrow:
		initv := b.sb.PullLocal()
		size := b.sb.PullLocal()
		dst := b.sb.PushLocal()
		b.cb.emit(Instruction{Kind: InstTableGrow, Dst: dst, Src0: size, Src1: initv, Index: op.Index})
	case wasm.OpTableFill:
		size := b.sb.PullLocal()
		value := b.sb.PullLocal()
		index := b.sb.PullLocal()
		b.cb.emit(Instruction{Kind: InstTableFill, Src0: index, Src1: value, FuncLocal: size, Index: op.Index})
	case wasm.OpTableCopy:
		size := b.sb.PullLocal()
		src := b.sb.PullLocal()
		dst := b.sb.PullLocal()
		b.cb.emit(Instruction{Kind: InstTableCopy, Src0: dst, Src1: src, FuncLocal: size, Index: op.Index, Index2: op.Index2})
	case wasm.OpTableInit:
		size := b.sb.PullLocal()
		src := b.sb.PullLocal()
		dst := b.sb.PullLocal()
		b.cb.emit(Instruction{Kind: InstTableInit, Src0: dst, Src1: src, FuncLocal: size, Index: op.Index, Index2: op.Index2})
	case wasm.OpElemDrop:
		b.cb.emit(Instruction{Kind: InstElemDrop, Index: op.Index})
	case wasm.OpMemoryLoad:
		addr := b.sb.PullLocal()
		b.addMemoryOffset(addr, op.Mem.Offset)
		mem := op.Mem
		mem.Offset = 0 // already folded into addr
		dst := b.sb.PushLocal()
		b.cb.emit(Instruction{Kind: InstMemoryLoad, Dst: dst, Src0: addr, Index: mem.MemoryIndex, Mem: mem})
	case wasm.OpMemoryStore:
		value := b.sb.PullLocal()
		addr := b.sb.PullLocal()
		b.addMemoryOffset(addr, op.Mem.Offset)
		mem := op.Mem
		mem.Offset = 0 // already folded into addr
		b.cb.emit(Instruction{Kind: InstMemoryStore, Src0: addr, Src1: value, Index: mem.MemoryIndex, Mem: mem})
	case wasm.OpMemorySize:
		dst := b.sb.PushLocal()
		b.cb.emit(Instruction{Kind: InstMemorySize, Dst: dst, Index: op.Index})
	case wasm.OpMemoryGrow:
		src := b.sb.PullLocal()
		dst := b.sb.PushLocal()
		b.cb.emit(Instruction{Kind: InstMemoryGrow, Dst: dst, Src0: src, Index: op.Index})
	case wasm.OpMemoryFill:
		size := b.sb.PullLocal()
		value := b.sb.PullLocal()
		dst := b.sb.PullLocal()
		b.cb.emit(Instruction{Kind: InstMemoryFill, Src0: dst, Src1: value, FuncLocal: size, Index: op.Index})
	case wasm.OpMemoryCopy:
		size := b.sb.PullLocal()
		src := b.sb.PullLocal()
		dst := b.sb.PullLocal()
		b.cb.emit(Instruction{Kind: InstMemoryCopy, Src0: dst, Src1: src, FuncLocal: size, Index: op.Index, Index2: op.Index2})
	case wasm.OpMemoryInit:
		size := b.sb.PullLocal()
		src := b.sb.PullLocal()
		dst := b.sb.PullLocal()
		b.cb.emit(Instruction{Kind: InstMemoryInit, Src0: dst, Src1: src, FuncLocal: size, Index: op.Index, Index2: op.Index2})
	case wasm.OpDataDrop:
		b.cb.emit(Instruction{Kind: InstDataDrop, Index: op.Index})
	default:
		return diagnostics.Invariant("cfg.Build", "unhandled operator %v", op.Op)
	}
	return nil
}

// addMemoryOffset lowers a nonzero immediate offset into a scratch-D
// i32.add that rewrites addrReg in place (spec §4.1: "loads/stores with
// nonzero immediate offset generate a scratch-register i32.add before the
// access"). Leaving the stack top untouched matters for stores, where the
// value to store sits above the address on the operand stack.
func (b *builder) addMemoryOffset(addrReg Register, offset uint32) {
	if offset == 0 {
		return
	}
	b.cb.emit(Instruction{Kind: InstConstI32, Dst: RegD, ConstI32: int32(offset)})
	b.cb.emit(Instruction{Kind: InstBinary, Dst: addrReg, Src0: addrReg, Src1: RegD, NumOp: wasm.NumAdd, Type: wasm.I32})
}

func (b *builder) handleUnreachable() {
	id := b.cb.addUnreachable()
	b.sb.SetTop(0xFFFF)
	b.sb.JumpToLevel(id, 0, 0)
}

func (b *builder) handleIf(op wasm.Operator) {
	cond := b.sb.PullLocal()
	id := b.cb.addLocalBranch(cond, 2)
	p, r := b.blockArity(op)
	b.sb.PushLevel(p, r, nil)
	b.sb.JumpToDepth(id, 0, 0)
}

func (b *builder) handleElse() {
	lvl := b.sb.PeekLevel()
	top := lvl.Base + Register(lvl.Parameters)

	j := lvl.Jumps[0]
	lvl.Jumps = lvl.Jumps[1:]

	skip := b.cb.addBasicBlock(1)
	b.sb.JumpToDepth(skip, 0, 0)

	b.cb.setJumpDestination(j.Source, j.Branch, skip+1)
	b.sb.SetTop(top)
}

func (b *builder) handleEnd() {
	top := b.sb.Top()
	level := b.sb.PullLevel()
	b.cb.handleLevel(level, top)
}

func (b *builder) handleBr(depth uint32) {
	id := b.cb.addBasicBlock(1)
	b.sb.JumpToDepth(id, 0, depth)
}

func (b *builder) handleBrIf(depth uint32) {
	cond := b.sb.PullLocal()
	id := b.cb.addLocalBranch(cond, 2)
	b.sb.JumpToDepth(id, 1, depth)
}

func (b *builder) handleBrTable(targets []uint32, def uint32) {
	cond := b.sb.PullLocal()
	id := b.cb.addLocalBranch(cond, len(targets)+1)
	b.cb.fn.Blocks[id].BrTableTargets = append(append([]uint32{}, targets...), def)
	b.sb.JumpToDepth(id, len(targets), def)
	for branch, depth := range targets {
		b.sb.JumpToDepth(id, branch, depth)
	}
}

func (b *builder) handleReturn() {
	id := b.cb.addBasicBlock(1)
	b.sb.JumpToLevel(id, 0, 0)
}

func (b *builder) handleCall(funcIdx uint32) {
	ty := b.mod.Types[b.mod.FuncTypeIndex(funcIdx)]
	dst, src := b.sb.LoadFunctionType(len(ty.Params), len(ty.Results))
	b.cb.emit(Instruction{Kind: InstRefFunc, Dst: RegD, Index: funcIdx})
	b.cb.emit(Instruction{
		Kind: InstCall, FuncLocal: RegD,
		CallDstStart: dst[0], CallDstEnd: dst[1],
		CallSrcStart: src[0], CallSrcEnd: src[1],
		Index: funcIdx,
	})
}

func (b *builder) handleCallIndirect(typeIdx, tableIdx uint32) {
	offset := b.sb.PullLocal()
	ty := b.mod.Types[typeIdx]
	dst, src := b.sb.LoadFunctionType(len(ty.Params), len(ty.Results))
	b.cb.emit(Instruction{Kind: InstTableGet, Dst: RegD, Src0: offset, Index: tableIdx})
	b.cb.emit(Instruction{
		Kind: InstCallIndirect, FuncLocal: RegD,
		CallDstStart: dst[0], CallDstEnd: dst[1],
		CallSrcStart: src[0], CallSrcEnd: src[1],
		Index: typeIdx, Index2: tableIdx,
	})
}

func (b *builder) handleSelect() {
	cond := b.sb.PullLocal()
	onFalse := b.sb.PullLocal()
	onTrue := b.sb.PullLocal()
	dst := b.sb.PushLocal()

	condition := b.cb.addLocalBranch(cond, 2)

	b.cb.emit(Instruction{Kind: InstLocalMove, Dst: dst, Src0: onFalse})
	falseArm := b.cb.addBasicBlock(1)

	b.cb.emit(Instruction{Kind: InstLocalMove, Dst: dst, Src0: onTrue})
	trueArm := b.cb.addBasicBlock(1)

	// falseArm's default fallthrough would lead into trueArm; redirect it
	// to the join point (one past trueArm) instead.
	b.cb.setJumpDestination(falseArm, 0, trueArm+1)
	b.cb.setJumpDestination(condition, 0, falseArm)
	b.cb.setJumpDestination(condition, 1, trueArm)
}

func (b *builder) handleLocalGet(r Register) {
	src := r + LocalBase
	dst := b.sb.PushLocal()
	b.cb.emit(Instruction{Kind: InstLocalMove, Dst: dst, Src0: src})
}

func (b *builder) handleLocalSet(r Register) {
	src := b.sb.PullLocal()
	dst := r + LocalBase
	b.cb.emit(Instruction{Kind: InstLocalMove, Dst: dst, Src0: src})
}

func (b *builder) handleLocalTee(r Register) {
	src := b.sb.PullLocal()
	dst := r + LocalBase
	b.sb.PushLocal() // restores top to `src`; local.tee leaves the value in place
	b.cb.emit(Instruction{Kind: InstLocalMove, Dst: dst, Src0: src})
}
