package cfg

import "github.com/SovereignSatellite/Spider/internal/wasm"

// InstKind tags an Instruction's variant. The value arity is fixed per
// kind, matching spec §3's "tagged variant whose value arity is fixed per
// kind."
type InstKind int

const (
	InstLocalMove InstKind = iota
	InstConstI32
	InstConstI64
	InstConstF32
	InstConstF64
	InstLocalBranch // branch-on-local: two or more successors, selected elsewhere
	InstUnreachable
	InstCall
	InstCallIndirect // lowered per spec 4.1: table_get into D, then call through D
	InstRefNull
	InstRefIsNull
	InstRefFunc
	InstUnary
	InstBinary
	InstCompare
	InstConvert
	InstTransmute
	InstGlobalGet
	InstGlobalSet
	InstTableGet
	InstTableSet
	InstTableSize
	InstTableGrow
	InstTableFill
	InstTableCopy
	InstTableInit
	InstElemDrop
	InstMemoryLoad
	InstMemoryStore
	InstMemorySize
	InstMemoryGrow
	InstMemoryFill
	InstMemoryCopy
	InstMemoryInit
	InstDataDrop
)

// Instruction is one three-address entry in a function's flat instruction
// vector (spec §3). Dst/Src0/Src1 are registers; which are meaningful
// depends on Kind. CallDstStart/CallDstEnd/CallSrcStart/CallSrcEnd give
// InstCall/InstCallIndirect their destination and source register ranges.
type Instruction struct {
	Kind InstKind

	Dst  Register
	Src0 Register
	Src1 Register

	// ConstI32/I64/F32/F64 hold the literal for the matching Const* kind.
	ConstI32 int32
	ConstI64 int64
	ConstF32 float32
	ConstF64 float64

	// Index is the global/table/elements/memory/data/function index this
	// instruction references, for the kinds that reference one.
	Index  uint32
	Index2 uint32 // second index, e.g. table.copy's source table

	// FuncLocal holds the callee register (RegD, loaded by a ref_func for
	// InstCall or a table_get for InstCallIndirect), and the size operand
	// for the table/memory fill, copy and init kinds.
	FuncLocal Register

	CallDstStart, CallDstEnd Register
	CallSrcStart, CallSrcEnd Register

	Mem wasm.MemArg

	NumOp   wasm.NumOp
	RefType wasm.RefType

	// Type carries the operand value type for InstUnary/InstBinary/
	// InstCompare/InstConvert/InstTransmute, whose NumOp alone doesn't
	// distinguish i32 from i64 or f32 from f64 (spec §6 numeric core).
	// Type2 additionally carries InstConvert's destination type for the
	// trunc/convert members whose result width Type+NumOp don't imply.
	Type  wasm.ValueType
	Type2 wasm.ValueType

	// TrapMessage carries the lowered Trap node's message (spec §7). The
	// control-flow builder sets it only on InstUnreachable.
	TrapMessage string
}

// ReadsLocal reports whether register r is read by this instruction,
// excluding destination-only writes. Used by the liveness analyzer
// (internal/liveness) and by the data-flow builder when wiring inputs.
func (in *Instruction) ReadsLocal(r Register) bool {
	switch in.Kind {
	case InstConstI32, InstConstI64, InstConstF32, InstConstF64, InstUnreachable,
		InstRefNull, InstTableSize, InstMemorySize:
		return false
	case InstLocalMove, InstLocalBranch, InstRefIsNull, InstGlobalSet:
		return in.Src0 == r
	case InstUnary, InstConvert, InstTransmute:
		return in.Src0 == r
	case InstBinary, InstCompare:
		return in.Src0 == r || in.Src1 == r
	case InstCall:
		return r >= in.CallSrcStart && r < in.CallSrcEnd
	case InstCallIndirect:
		return (r >= in.CallSrcStart && r < in.CallSrcEnd) || in.FuncLocal == r
	case InstTableGet, InstTableGrow, InstMemoryLoad:
		return in.Src0 == r
	case InstTableSet, InstMemoryStore:
		return in.Src0 == r || in.Src1 == r
	case InstTableFill, InstMemoryFill:
		return in.Src0 == r || in.Src1 == r || in.FuncLocal == r
	case InstTableCopy, InstTableInit, InstMemoryCopy, InstMemoryInit:
		return in.Src0 == r || in.Src1 == r || in.FuncLocal == r
	case InstMemoryGrow:
		return in.Src0 == r
	default:
		return false
	}
}

// WritesLocal reports the register this instruction defines, if any, and
// whether it defines one at all. Calls report none: their results fill the
// range CallDstStart..CallDstEnd, which a single register cannot describe.
func (in *Instruction) WritesLocal() (Register, bool) {
	switch in.Kind {
	case InstGlobalSet, InstTableSet, InstTableFill, InstTableCopy, InstTableInit,
		InstElemDrop, InstMemoryStore, InstMemoryFill, InstMemoryCopy, InstMemoryInit,
		InstDataDrop, InstUnreachable, InstLocalBranch, InstCall, InstCallIndirect:
		return 0, false
	default:
		return in.Dst, true
	}
}
