// Package wasm models a parsed Wasm module: the input boundary for the
// rest of the pipeline (spec §2 stage 1, "types table"). Decode (see
// decode.go) reads the binary format itself — no pack example exposes a
// public decoder that hands back this shape, so cmd/spiderc can't borrow
// one wholesale — but the Module/Import/Export/Global shapes it produces
// still borrow their value-type vocabulary from
// github.com/tetratelabs/wazero's public api package (the pack's closest
// real Wasm-runtime dependency) rather than inventing one, and Module is
// shaped the way wazero's own decoded wasm.Module is, without importing
// wazero's internal decoder.
package wasm

import "github.com/tetratelabs/wazero/api"

// ValueType re-exports wazero's value-type byte vocabulary so the rest of
// the pipeline names types the same way the upstream parser would.
type ValueType = api.ValueType

const (
	I32       = api.ValueTypeI32
	I64       = api.ValueTypeI64
	F32       = api.ValueTypeF32
	F64       = api.ValueTypeF64
	ExternRef = api.ValueTypeExternref
	FuncRefValue = api.ValueTypeFuncref
)

// RefType distinguishes the two Wasm reference types; wazero's api package
// does not separate them from ExternRef, so the pipeline tracks the
// distinction itself where it matters (table element type, ref.null).
type RefType int

const (
	RefFunc RefType = iota
	RefExtern
)

// FuncType is a function signature: the Types Table entry every call site
// and signature check consults (spec §2 stage 1).
type FuncType struct {
	Params  []ValueType
	Results []ValueType
}

// Limits bounds a table or memory's size, in elements or 64KiB pages
// respectively.
type Limits struct {
	Min uint32
	Max uint32 // 0 means unbounded; HasMax distinguishes "max is 0" from "no max"
	HasMax bool
}

// Table describes one table section/import entry.
type Table struct {
	ElemType RefType
	Limits   Limits
}

// Memory describes one memory section/import entry. Spec §6 requires
// multiple-memory support.
type Memory struct {
	Limits Limits
}

// Global describes one global section/import entry.
type Global struct {
	Type    ValueType
	Mutable bool
	Init    ConstExpr
}

// ConstExpr is a restricted constant expression: the only initializers
// Wasm permits for globals, element offsets, and data offsets.
type ConstExpr struct {
	// Kind is one of the ConstExpr* constants below.
	Kind ConstExprKind
	// I32/I64/F32/F64 hold the literal per Kind.
	I32 int32
	I64 int64
	F32 float32
	F64 float64
	// GlobalIndex is used when Kind == ConstExprGlobalGet (an imported
	// immutable global may initialize another global).
	GlobalIndex uint32
	// FuncIndex is used when Kind == ConstExprRefFunc.
	FuncIndex uint32
}

// ConstExprKind enumerates the constant-expression forms.
type ConstExprKind int

const (
	ConstExprI32 ConstExprKind = iota
	ConstExprI64
	ConstExprF32
	ConstExprF64
	ConstExprGlobalGet
	ConstExprRefNull
	ConstExprRefFunc
)

// Element describes one element segment (spec §3 "elements").
type Element struct {
	// TableIndex and Offset are present for active segments; Offset is nil
	// for passive/declarative segments.
	TableIndex uint32
	Offset     *ConstExpr
	Passive    bool
	Declarative bool
	Type       RefType
	// FuncIndices holds func indices when every entry is ref.func; Exprs
	// holds general const-exprs otherwise (bulk-memory allows either).
	FuncIndices []uint32
	Exprs       []ConstExpr
}

// Data describes one data segment (spec §3 "datas").
type Data struct {
	MemoryIndex uint32
	Offset      *ConstExpr // nil for passive segments
	Passive     bool
	Bytes       []byte
}

// ImportKind enumerates what an import resolves to.
type ImportKind int

const (
	ImportFunc ImportKind = iota
	ImportTable
	ImportMemory
	ImportGlobal
)

// Import describes one imported entity, resolved at runtime from
// environment[Module][Name] (spec §6 "Environment imports").
type Import struct {
	Module string
	Name   string
	Kind   ImportKind
	// TypeIndex, TableType, MemoryType, GlobalType hold the entity's
	// declared shape, exactly one populated per Kind.
	TypeIndex  uint32
	TableType  Table
	MemoryType Memory
	GlobalType Global
}

// ExportKind enumerates what an export refers to.
type ExportKind int

const (
	ExportFunc ExportKind = iota
	ExportTable
	ExportMemory
	ExportGlobal
)

// Export describes one exported entity (spec §6 "Export table contract").
type Export struct {
	Name  string
	Kind  ExportKind
	Index uint32
}

// Function is one module-defined function: its declared type plus the
// validated operator stream the Control-Flow Builder consumes.
type Function struct {
	TypeIndex uint32
	Locals    []ValueType // additional locals beyond the params, in declared order
	Body      []Operator
}

// Module is the pipeline's entire input: a fully validated, already-parsed
// Wasm module. Index spaces (funcs, tables, memories, globals) are the
// concatenation of imports then module-defined entries, per the Wasm
// module structure.
type Module struct {
	Types     []FuncType
	Imports   []Import
	Functions []Function
	Tables    []Table
	Memories  []Memory
	Globals   []Global
	Exports   []Export
	Start     *uint32 // nil if the module has no start function
	Elements  []Element
	Datas     []Data
}

// NumFuncImports reports how many of Imports are function imports; used to
// map a module-relative function index to an entry in Functions.
func (m *Module) NumFuncImports() int { return m.numImports(ImportFunc) }

// NumTableImports reports how many of Imports are table imports; a table
// index less than this refers to an import, otherwise to
// Tables[idx-NumTableImports].
func (m *Module) NumTableImports() int { return m.numImports(ImportTable) }

// NumMemoryImports reports how many of Imports are memory imports; a
// memory index less than this refers to an import, otherwise to
// Memories[idx-NumMemoryImports].
func (m *Module) NumMemoryImports() int { return m.numImports(ImportMemory) }

// NumGlobalImports reports how many of Imports are global imports; a
// global index less than this refers to an import, otherwise to
// Globals[idx-NumGlobalImports].
func (m *Module) NumGlobalImports() int { return m.numImports(ImportGlobal) }

func (m *Module) numImports(kind ImportKind) int {
	n := 0
	for _, imp := range m.Imports {
		if imp.Kind == kind {
			n++
		}
	}
	return n
}

// FuncTypeIndex returns the Types Table index for function index idx
// across the combined import+defined function index space.
func (m *Module) FuncTypeIndex(idx uint32) uint32 {
	nImports := uint32(m.NumFuncImports())
	if idx < nImports {
		count := uint32(0)
		for _, imp := range m.Imports {
			if imp.Kind == ImportFunc {
				if count == idx {
					return imp.TypeIndex
				}
				count++
			}
		}
	}
	return m.Functions[idx-nImports].TypeIndex
}
