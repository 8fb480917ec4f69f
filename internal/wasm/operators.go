package wasm

// OpCode enumerates the Wasm operators the Control-Flow Builder consumes.
// This is not the full MVP-plus opcode space (folding every numeric op
// into a generic NumericOp keeps the switch in cfg.Builder manageable);
// rather it groups operators the way the instruction kinds in spec §3
// group them, so one OpCode usually maps to one Instruction kind.
type OpCode int

const (
	OpUnreachable OpCode = iota
	OpNop

	OpBlock
	OpLoop
	OpIf
	OpElse
	OpEnd

	OpBr
	OpBrIf
	OpBrTable
	OpReturn

	OpCall
	OpCallIndirect

	OpDrop
	OpSelect

	OpLocalGet
	OpLocalSet
	OpLocalTee
	OpGlobalGet
	OpGlobalSet

	OpTableGet
	OpTableSet
	OpTableSize
	OpTableGrow
	OpTableFill
	OpTableCopy
	OpTableInit
	OpElemDrop

	OpMemoryLoad  // typed by MemArg.Access
	OpMemoryStore // typed by MemArg.Access
	OpMemorySize
	OpMemoryGrow
	OpMemoryFill
	OpMemoryCopy
	OpMemoryInit
	OpDataDrop

	OpI32Const
	OpI64Const
	OpF32Const
	OpF64Const

	OpRefNull
	OpRefIsNull
	OpRefFunc

	// Numeric ops are folded into one opcode family per spec §3's
	// grouping ("integer and number unary/binary/compare"); NumOp
	// distinguishes the operation.
	OpUnary
	OpBinary
	OpCompare
	OpConvert  // narrow/widen/extend/saturating/non-saturating conversions
	OpTransmute
)

// AccessType tags a memory load or store with its sign-and-width (spec §3:
// "I32_S8, I32_U8, …, F64"; load and store tags are distinct sets since
// stores never sign-extend).
type AccessType int

const (
	AccessI32 AccessType = iota
	AccessI64
	AccessF32
	AccessF64
	AccessI32S8
	AccessI32U8
	AccessI32S16
	AccessI32U16
	AccessI64S8
	AccessI64U8
	AccessI64S16
	AccessI64U16
	AccessI64S32
	AccessI64U32
)

// IsStoreValid reports whether access is a legal store tag (stores cannot
// sign-extend, so the S* variants are load-only).
func (a AccessType) IsStoreValid() bool {
	switch a {
	case AccessI32, AccessI64, AccessF32, AccessF64,
		AccessI32U8, AccessI32U16, AccessI64U8, AccessI64U16, AccessI64U32:
		return true
	default:
		return false
	}
}

// MemArg is a memory instruction's static operand: byte offset, alignment
// hint, the memory index (multi-memory, spec §6), and the access tag.
type MemArg struct {
	Offset      uint32
	Align       uint32
	MemoryIndex uint32
	Access      AccessType
}

// NumOp identifies one arithmetic/compare/convert/transmute operator
// within the OpUnary/OpBinary/OpCompare/OpConvert/OpTransmute families.
// Values are stringly documented where used; kept as a flat int rather
// than re-deriving the 150+ entry Wasm numeric-opcode table here, since
// the Control-Flow and RVSDG stages only dispatch on it opaquely.
type NumOp int

const (
	NumAdd NumOp = iota
	NumSub
	NumMul
	NumDivS
	NumDivU
	NumRemS
	NumRemU
	NumAnd
	NumOr
	NumXor
	NumShl
	NumShrS
	NumShrU
	NumRotl
	NumRotr
	NumClz
	NumCtz
	NumPopcnt
	NumEqz
	NumEq
	NumNe
	NumLtS
	NumLtU
	NumGtS
	NumGtU
	NumLeS
	NumLeU
	NumGeS
	NumGeU
	NumAbs
	NumNeg
	NumCeil
	NumFloor
	NumTrunc
	NumNearest
	NumSqrt
	NumMin
	NumMax
	NumCopysign
	NumDiv // float division; integer division always goes through NumDivS/NumDivU
	NumLt
	NumGt
	NumLe
	NumGe
	// Convert ops: wrap/extend/truncate/convert/demote/promote/reinterpret
	NumWrap
	NumExtendS
	NumExtendU
	NumTruncS
	NumTruncU
	NumTruncSatS
	NumTruncSatU
	NumConvertS
	NumConvertU
	NumDemote
	NumPromote
	NumReinterpret
	NumExtend8S
	NumExtend16S
	NumExtend32S
)

// Operator is one element of a function body's operator stream. Operand
// payloads vary by Op; only the fields relevant to Op are populated.
type Operator struct {
	Op OpCode

	// BlockType is the block/loop/if result arity (spec §4.1 "bt"),
	// expressed directly as a FuncType index or an inline value type;
	// InlineType/HasInlineType cover the zero/one-result inline encodings
	// bulk Wasm modules overwhelmingly use, TypeIndex the general case.
	HasInlineType bool
	InlineType    ValueType
	HasNoResult   bool
	TypeIndex     uint32

	// LabelIndex is the relative block depth for br/br_if, and the default
	// target's depth for br_table.
	LabelIndex uint32
	BrTable    []uint32 // br_table's non-default targets, in order

	// Index is a local/global/function/table/element/memory/data index,
	// reused across the ops that take exactly one.
	Index uint32
	// Index2 is a second index for two-index ops (table.copy source,
	// table.init elem segment alongside table index via Index).
	Index2 uint32

	Mem MemArg

	I32 int32
	I64 int64
	F32 float32
	F64 float64

	NumOp   NumOp
	RefType RefType

	// Type is the operand value type for OpUnary/OpBinary/OpCompare's NumOp,
	// and the source type for OpConvert/OpTransmute (whose NumOp already
	// implies the destination). NumOp alone is ambiguous between i32/i64
	// (e.g. NumAdd, NumShl is integer-only but NumAdd spans both integer and
	// float) and between f32/f64, so Type is what the decoder tags the
	// operator with to carry the width/family the opcode actually encoded.
	//
	// Type2 is the destination type for the OpConvert family members whose
	// result width NumOp doesn't imply on its own: trunc_f*_{s,u} and
	// convert_i*_{s,u} each have two source widths and two destination
	// widths that vary independently (e.g. i32.trunc_f64_s vs.
	// i64.trunc_f64_s share NumTruncS and Type=F64 but differ in Type2).
	Type  ValueType
	Type2 ValueType
}
