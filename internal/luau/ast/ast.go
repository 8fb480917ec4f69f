// Package ast models the Luau syntax tree the emitter builds and the
// printer walks (spec §4.6 "Emission"): a small expression/statement
// grammar shaped directly after the teacher's own stack-of-structs CFG
// nodes, generalized to a tree instead of a flat arena since Luau source
// nests lexically the way the Gamma/Theta regions it's printed from do.
package ast

import "github.com/SovereignSatellite/Spider/internal/wasm"

// Name is a synthetic local/upvalue identifier, numbered rather than
// string-named until the printer renders it (spec §4.6 "Local provider").
type Name struct {
	ID uint32
}

// Local is a place a value can be stored: a fast register-like local, or
// an index into a per-function overflow table once the local budget is
// exhausted (spec §4.6, "table provider").
type Local struct {
	Fast  bool
	Name  Name
	Table Name
	Index uint16
}

// Expression is any Luau expression node. The marker method keeps the
// set closed to this package, mirroring the teacher's tagged-node style
// (internal/cfg.Instruction) rather than an open interface hierarchy.
type Expression interface{ isExpression() }

// Statement is any Luau statement node.
type Statement interface{ isStatement() }

// Sequence is a straight-line list of statements: a Gamma arm, a Theta
// body, or a function body.
type Sequence struct {
	List []Statement
}

// Function is a Luau function literal's shape: parameter names, body,
// and (for multi-value returns) the locals it returns.
type Function struct {
	Arguments []Name
	Code      Sequence
	Returns   []Local
}

// Scoped wraps a Function in the FastDefine locals its up-values close
// over (spec §4.6 "Lambda -> a closure literal... emitted as Scoped").
type Scoped struct {
	Locals   []FastDefine
	Function Function
}

// MatchExpr selects one of branches by evaluating condition against a
// recursive binary-tree of range tests (spec §4.6 "Match condition
// emission"); used where a Gamma's result is consumed as a value rather
// than reached through statements.
type MatchExpr struct {
	Condition Expression
	Branches  []Expression
}

// Import reads environment[namespace][identifier] (spec §6 "Environment
// imports").
type Import struct {
	Environment Expression
	Namespace   string
	Identifier  string
}

// Call invokes function with arguments, used as an expression when its
// single result is consumed directly.
type Call struct {
	Function  Expression
	Arguments []Expression
}

// Location is a table/memory reference plus byte or element offset,
// shared by every load/store/size/fill/copy/init expression and
// statement.
type Location struct {
	Reference Expression
	Offset    Expression
}

// RefIsNull tests whether source, a Luau nil-or-userdata reference, is
// nil.
type RefIsNull struct{ Source Expression }

// IntegerUnaryOperation, IntegerBinaryOperation, and IntegerCompareOperation
// realize Wasm's i32/i64 numeric ops (spec §3's NumOp family) as calls
// into the runtime library rather than native Luau operators, since i32
// wraps modulo 2^32 and i64 has no native Luau representation.
type IntegerUnaryOperation struct {
	Source Expression
	Type   wasm.ValueType
	Op     wasm.NumOp
}

type IntegerBinaryOperation struct {
	Lhs, Rhs Expression
	Type     wasm.ValueType
	Op       wasm.NumOp
}

type IntegerCompareOperation struct {
	Lhs, Rhs Expression
	Type     wasm.ValueType
	Op       wasm.NumOp
}

// IntegerNarrow truncates an i64 record down to its low i32 (Wasm's
// i32.wrap_i64).
type IntegerNarrow struct{ Source Expression }

// IntegerWiden zero/sign-extends an i32 up to an i64 record.
type IntegerWiden struct {
	Source Expression
	Signed bool
}

// IntegerExtend sign-extends a narrower integer stored in a wider
// representation (Wasm's i32.extend8_s and friends). Type is the result
// width (i32 or i64); Op picks which byte/halfword/word is taken as the
// signed source.
type IntegerExtend struct {
	Source Expression
	Type   wasm.ValueType
	Op     wasm.NumOp
}

// IntegerConvertToNumber converts an integer to a float (Wasm's
// {i32,i64}.convert_{s,u}/Fxx).
type IntegerConvertToNumber struct {
	Source Expression
	Signed bool
	From   wasm.ValueType
	To     wasm.ValueType
}

// IntegerTransmuteToNumber reinterprets an i32/i64 bit pattern as f32/f64
// (Wasm's {f32,f64}.reinterpret_i{32,64}).
type IntegerTransmuteToNumber struct {
	Source Expression
	From   wasm.ValueType
}

// NumberUnaryOperation, NumberBinaryOperation, and NumberCompareOperation
// realize Wasm's f32/f64 numeric ops. f64 ops print as native Luau
// operators; f32 ops route through the runtime library to preserve
// single-precision rounding and NaN-boxing (spec §6 "f32... non-finite
// f32 values use a transmute helper").
type NumberUnaryOperation struct {
	Source Expression
	Type   wasm.ValueType
	Op     wasm.NumOp
}

type NumberBinaryOperation struct {
	Lhs, Rhs Expression
	Type     wasm.ValueType
	Op       wasm.NumOp
}

type NumberCompareOperation struct {
	Lhs, Rhs Expression
	Type     wasm.ValueType
	Op       wasm.NumOp
}

// NumberNarrow demotes f64 to f32 (Wasm's f32.demote_f64).
type NumberNarrow struct{ Source Expression }

// NumberWiden promotes f32 to f64 (Wasm's f64.promote_f32).
type NumberWiden struct{ Source Expression }

// NumberTruncateToInteger converts a float to an integer, optionally
// saturating instead of trapping on overflow (Wasm's trunc/trunc_sat).
type NumberTruncateToInteger struct {
	Source   Expression
	Signed   bool
	Saturate bool
	From     wasm.ValueType
	To       wasm.ValueType
}

// NumberTransmuteToInteger reinterprets an f32/f64 bit pattern as
// i32/i64.
type NumberTransmuteToInteger struct {
	Source Expression
	From   wasm.ValueType
}

// GlobalNew, TableNew, MemoryNew, ElementsNew, and DataNew realize each
// resource's creation expression (spec §4.4's `*New` leaves), emitted at
// the top of the module chunk before the start call.
type GlobalNew struct{ Initializer Expression }

type GlobalGet struct{ Source Expression }

type TableNew struct {
	Initializer      Expression
	Minimum, Maximum uint32
}

type TableGet struct{ Source Location }

type TableSize struct{ Source Expression }

type TableGrow struct {
	Destination Expression
	Initializer Expression
	Size        Expression
}

type ElementsNew struct{ Content []Expression }

type MemoryNew struct{ Minimum, Maximum uint32 }

type MemoryLoad struct {
	Source Location
	Access wasm.AccessType
}

type MemorySize struct{ Source Expression }

type MemoryGrow struct {
	Destination Expression
	Size        Expression
}

type DataNew struct{ Bytes []byte }

// Trap is the single sentinel expression every `error(...)` call in the
// emitted chunk ultimately threads through the trap state link.
type Trap struct{ Message string }

// Null prints as Luau `nil`.
type Null struct{}

// I32, I64, F32, F64 are literal constants (i64 prints through the
// runtime's two-u32 record constructor).
type I32 struct{ Value int32 }
type I64 struct{ Value int64 }
type F32 struct{ Value float32 }
type F64 struct{ Value float64 }

// LocalExpr reads a Local as a value.
type LocalExpr struct{ Local Local }

func (*Function) isExpression()                 {}
func (*Scoped) isExpression()                    {}
func (*MatchExpr) isExpression()                 {}
func (*Import) isExpression()                    {}
func (Trap) isExpression()                       {}
func (Null) isExpression()                       {}
func (LocalExpr) isExpression()                  {}
func (I32) isExpression()                        {}
func (I64) isExpression()                        {}
func (F32) isExpression()                        {}
func (F64) isExpression()                        {}
func (*Call) isExpression()                      {}
func (*RefIsNull) isExpression()                 {}
func (*IntegerUnaryOperation) isExpression()     {}
func (*IntegerBinaryOperation) isExpression()    {}
func (*IntegerCompareOperation) isExpression()   {}
func (*IntegerNarrow) isExpression()             {}
func (*IntegerWiden) isExpression()              {}
func (*IntegerExtend) isExpression()             {}
func (*IntegerConvertToNumber) isExpression()    {}
func (*IntegerTransmuteToNumber) isExpression()  {}
func (*NumberUnaryOperation) isExpression()      {}
func (*NumberBinaryOperation) isExpression()     {}
func (*NumberCompareOperation) isExpression()    {}
func (*NumberNarrow) isExpression()              {}
func (*NumberWiden) isExpression()               {}
func (*NumberTruncateToInteger) isExpression()   {}
func (*NumberTransmuteToInteger) isExpression()  {}
func (*GlobalNew) isExpression()                 {}
func (*GlobalGet) isExpression()                 {}
func (*TableNew) isExpression()                  {}
func (*TableGet) isExpression()                  {}
func (*TableSize) isExpression()                 {}
func (*TableGrow) isExpression()                 {}
func (*ElementsNew) isExpression()                {}
func (MemoryNew) isExpression()                  {}
func (*MemoryLoad) isExpression()                {}
func (*MemorySize) isExpression()                {}
func (*MemoryGrow) isExpression()                {}
func (DataNew) isExpression()                    {}

// MatchStmt is Gamma lowered as a statement: one Sequence per branch,
// followed (by the emitter, not this node) by assignments into the
// region's output places.
type MatchStmt struct {
	Branches  []Sequence
	Condition Expression
}

// Repeat is Theta lowered as a statement (spec §4.6 "Theta -> Repeat"):
// the body runs once per iteration, Post assigns the latch results back
// to the loop locals, and the loop exits when Condition is zero.
type Repeat struct {
	Code      Sequence
	Post      AssignAll
	Condition Expression
}

// FastDefine declares and initializes a new fast local in one statement.
type FastDefine struct {
	Name   Name
	Source Expression
}

// SlowDefine declares a function's overflow table with Len pre-sized
// slots.
type SlowDefine struct {
	Name Name
	Len  uint32
}

// Assign stores into an already-declared Local.
type Assign struct {
	Local  Local
	Source Expression
}

// AssignAll performs several Local-to-Local moves as one parallel
// assignment (Luau evaluates the right side of `a, b = b, a` before any
// store, the same semantics a Gamma/Theta merge point needs).
type AssignAll struct {
	Assignments [][2]Local // [dst, src]
}

// CallStmt invokes function for its side effects/results, binding each
// result to a Local (spec's "side-effecting nodes always emit
// statements").
type CallStmt struct {
	Function  Expression
	Results   []Local
	Arguments []Expression
}

type GlobalSet struct{ Destination, Source Expression }

type TableSet struct {
	Destination Location
	Source      Expression
}

type TableFill struct {
	Destination Location
	Source      Expression
	Size        Expression
}

type TableCopy struct{ Destination, Source Location; Size Expression }

type TableInit struct{ Destination, Source Location; Size Expression }

type ElementsDrop struct{ Source Expression }

type MemoryStore struct {
	Destination Location
	Source      Expression
	Access      wasm.AccessType
}

type MemoryFill struct {
	Destination Location
	Byte        Expression
	Size        Expression
}

type MemoryCopy struct{ Destination, Source Location; Size Expression }

type MemoryInit struct{ Destination, Source Location; Size Expression }

type DataDrop struct{ Source Expression }

// Export binds identifier to source in the module's returned export
// table (spec §6 "Export table contract").
type Export struct {
	Identifier string
	Source     Expression
}

// Module is the emitter's final output: the environment parameter name,
// the module chunk's body, and its export list.
type Module struct {
	Environment Name
	Code        Sequence
	Exports     []Export
}

func (*MatchStmt) isStatement()     {}
func (*Repeat) isStatement()        {}
func (*FastDefine) isStatement()    {}
func (*SlowDefine) isStatement()    {}
func (*Assign) isStatement()        {}
func (*AssignAll) isStatement()     {}
func (*CallStmt) isStatement()      {}
func (*GlobalSet) isStatement()     {}
func (*TableSet) isStatement()      {}
func (*TableFill) isStatement()     {}
func (*TableCopy) isStatement()     {}
func (*TableInit) isStatement()     {}
func (*ElementsDrop) isStatement()  {}
func (*MemoryStore) isStatement()   {}
func (*MemoryFill) isStatement()    {}
func (*MemoryCopy) isStatement()    {}
func (*MemoryInit) isStatement()    {}
func (*DataDrop) isStatement()      {}
