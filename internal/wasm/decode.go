package wasm

import (
	"encoding/binary"
	"fmt"
	"io"
	"math"
)

// Decode parses a binary Wasm module into the pipeline's own Module shape.
// Earlier revisions of this package assumed a third-party parser would
// hand the rest of the pipeline an already-decoded Module (spec §1); in
// practice nothing in the examined ecosystem exposes the low-level
// instruction stream this compiler needs (wazero keeps its own decoder
// under an unexported internal/wasm package), so this reader fills that
// gap itself, grounded directly in the core Wasm binary format (the MVP
// section layout plus the bulk-memory/sign-extension/reference-types/
// saturating-truncation opcodes spec §6 requires).
func Decode(r io.Reader) (*Module, error) {
	d := &decoder{r: r}
	if err := d.readHeader(); err != nil {
		return nil, err
	}

	mod := &Module{}
	var funcTypeIndices []uint32

	for {
		id, ok, err := d.readSectionHeader()
		if err != nil {
			return nil, err
		}
		if !ok {
			break
		}
		body := d.sectionBytes
		sd := &decoder{r: nil, buf: body}

		switch id {
		case sectionType:
			if err := sd.readTypeSection(mod); err != nil {
				return nil, err
			}
		case sectionImport:
			if err := sd.readImportSection(mod); err != nil {
				return nil, err
			}
		case sectionFunction:
			n, err := sd.readVarU32()
			if err != nil {
				return nil, err
			}
			funcTypeIndices = make([]uint32, n)
			for i := range funcTypeIndices {
				v, err := sd.readVarU32()
				if err != nil {
					return nil, err
				}
				funcTypeIndices[i] = v
			}
		case sectionTable:
			if err := sd.readTableSection(mod); err != nil {
				return nil, err
			}
		case sectionMemory:
			if err := sd.readMemorySection(mod); err != nil {
				return nil, err
			}
		case sectionGlobal:
			if err := sd.readGlobalSection(mod); err != nil {
				return nil, err
			}
		case sectionExport:
			if err := sd.readExportSection(mod); err != nil {
				return nil, err
			}
		case sectionStart:
			idx, err := sd.readVarU32()
			if err != nil {
				return nil, err
			}
			mod.Start = &idx
		case sectionElement:
			if err := sd.readElementSection(mod); err != nil {
				return nil, err
			}
		case sectionCode:
			if err := sd.readCodeSection(mod, funcTypeIndices); err != nil {
				return nil, err
			}
		case sectionData:
			if err := sd.readDataSection(mod); err != nil {
				return nil, err
			}
		default:
			// Custom sections (0) and any future/unknown section id: the
			// pipeline has no use for producer metadata or the name
			// section, so these are skipped wholesale.
		}
	}

	if len(mod.Functions) == 0 && len(funcTypeIndices) > 0 {
		mod.Functions = make([]Function, len(funcTypeIndices))
		for i, t := range funcTypeIndices {
			mod.Functions[i].TypeIndex = t
		}
	}

	return mod, nil
}

const (
	sectionCustom = iota
	sectionType
	sectionImport
	sectionFunction
	sectionTable
	sectionMemory
	sectionGlobal
	sectionExport
	sectionStart
	sectionElement
	sectionCode
	sectionData
)

// decoder walks either the top-level stream (r set) or a section's byte
// slice already sliced out of it (buf set, r nil, pos tracks position).
type decoder struct {
	r   io.Reader
	buf []byte
	pos int

	sectionBytes []byte
}

func (d *decoder) readHeader() error {
	var magic [4]byte
	var version [4]byte
	if _, err := io.ReadFull(d.r, magic[:]); err != nil {
		return Malformed(err)
	}
	if magic != [4]byte{0x00, 0x61, 0x73, 0x6D} {
		return Malformed(fmt.Errorf("not a Wasm module: bad magic %x", magic))
	}
	if _, err := io.ReadFull(d.r, version[:]); err != nil {
		return Malformed(err)
	}
	if version != [4]byte{0x01, 0x00, 0x00, 0x00} {
		return Malformed(fmt.Errorf("unsupported Wasm version %x", version))
	}
	return nil
}

// readSectionHeader reads one top-level section's id and size, and slices
// d.sectionBytes to exactly that section's body. Returns ok=false at EOF.
func (d *decoder) readSectionHeader() (int, bool, error) {
	var idByte [1]byte
	n, err := io.ReadFull(d.r, idByte[:])
	if n == 0 && err != nil {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, Malformed(err)
	}

	size, err := readVarU32Reader(d.r)
	if err != nil {
		return 0, false, err
	}
	body := make([]byte, size)
	if _, err := io.ReadFull(d.r, body); err != nil {
		return 0, false, Malformed(err)
	}
	d.sectionBytes = body
	return int(idByte[0]), true, nil
}

// Malformed tags a decode error as spec §7's malformed-input kind without
// importing internal/diagnostics (that package sits above internal/wasm
// in the dependency order; this package returns a plain wrapped error and
// lets cmd/spiderc classify it at the call site instead).
func Malformed(err error) error { return fmt.Errorf("malformed wasm module: %w", err) }

func readVarU32Reader(r io.Reader) (uint32, error) {
	var result uint32
	var shift uint
	var b [1]byte
	for {
		if _, err := io.ReadFull(r, b[:]); err != nil {
			return 0, Malformed(err)
		}
		result |= uint32(b[0]&0x7F) << shift
		if b[0]&0x80 == 0 {
			return result, nil
		}
		shift += 7
		if shift >= 35 {
			return 0, Malformed(fmt.Errorf("varuint32 too long"))
		}
	}
}

func (d *decoder) byte() (byte, error) {
	if d.pos >= len(d.buf) {
		return 0, Malformed(fmt.Errorf("unexpected end of section"))
	}
	b := d.buf[d.pos]
	d.pos++
	return b, nil
}

func (d *decoder) bytes(n int) ([]byte, error) {
	if d.pos+n > len(d.buf) {
		return nil, Malformed(fmt.Errorf("unexpected end of section"))
	}
	b := d.buf[d.pos : d.pos+n]
	d.pos += n
	return b, nil
}

func (d *decoder) readVarU32() (uint32, error) {
	var result uint32
	var shift uint
	for {
		b, err := d.byte()
		if err != nil {
			return 0, err
		}
		result |= uint32(b&0x7F) << shift
		if b&0x80 == 0 {
			return result, nil
		}
		shift += 7
		if shift >= 35 {
			return 0, Malformed(fmt.Errorf("varuint32 too long"))
		}
	}
}

func (d *decoder) readVarS32() (int32, error) {
	var result int32
	var shift uint
	var b byte
	var err error
	for {
		b, err = d.byte()
		if err != nil {
			return 0, err
		}
		result |= int32(b&0x7F) << shift
		shift += 7
		if b&0x80 == 0 {
			break
		}
		if shift >= 35 {
			return 0, Malformed(fmt.Errorf("varint32 too long"))
		}
	}
	if shift < 32 && b&0x40 != 0 {
		result |= -1 << shift
	}
	return result, nil
}

func (d *decoder) readVarS64() (int64, error) {
	var result int64
	var shift uint
	var b byte
	var err error
	for {
		b, err = d.byte()
		if err != nil {
			return 0, err
		}
		result |= int64(b&0x7F) << shift
		shift += 7
		if b&0x80 == 0 {
			break
		}
		if shift >= 70 {
			return 0, Malformed(fmt.Errorf("varint64 too long"))
		}
	}
	if shift < 64 && b&0x40 != 0 {
		result |= -1 << shift
	}
	return result, nil
}

func (d *decoder) readF32() (float32, error) {
	b, err := d.bytes(4)
	if err != nil {
		return 0, err
	}
	return math.Float32frombits(binary.LittleEndian.Uint32(b)), nil
}

func (d *decoder) readF64() (float64, error) {
	b, err := d.bytes(8)
	if err != nil {
		return 0, err
	}
	return math.Float64frombits(binary.LittleEndian.Uint64(b)), nil
}

func (d *decoder) readName() (string, error) {
	n, err := d.readVarU32()
	if err != nil {
		return "", err
	}
	b, err := d.bytes(int(n))
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func (d *decoder) readValueType() (ValueType, error) {
	b, err := d.byte()
	if err != nil {
		return 0, err
	}
	switch b {
	case 0x7F:
		return I32, nil
	case 0x7E:
		return I64, nil
	case 0x7D:
		return F32, nil
	case 0x7C:
		return F64, nil
	case 0x70:
		return FuncRefValue, nil
	case 0x6F:
		return ExternRef, nil
	default:
		return 0, Malformed(fmt.Errorf("unknown value type 0x%x", b))
	}
}

func (d *decoder) readRefType() (RefType, error) {
	b, err := d.byte()
	if err != nil {
		return 0, err
	}
	switch b {
	case 0x70:
		return RefFunc, nil
	case 0x6F:
		return RefExtern, nil
	default:
		return 0, Malformed(fmt.Errorf("unknown reference type 0x%x", b))
	}
}

func (d *decoder) readLimits() (Limits, error) {
	flag, err := d.byte()
	if err != nil {
		return Limits{}, err
	}
	min, err := d.readVarU32()
	if err != nil {
		return Limits{}, err
	}
	l := Limits{Min: min}
	if flag&0x01 != 0 {
		max, err := d.readVarU32()
		if err != nil {
			return Limits{}, err
		}
		l.Max = max
		l.HasMax = true
	}
	return l, nil
}

func (d *decoder) readTypeSection(mod *Module) error {
	n, err := d.readVarU32()
	if err != nil {
		return err
	}
	mod.Types = make([]FuncType, n)
	for i := range mod.Types {
		form, err := d.byte()
		if err != nil {
			return err
		}
		if form != 0x60 {
			return Malformed(fmt.Errorf("expected func type tag 0x60, got 0x%x", form))
		}
		np, err := d.readVarU32()
		if err != nil {
			return err
		}
		params := make([]ValueType, np)
		for j := range params {
			if params[j], err = d.readValueType(); err != nil {
				return err
			}
		}
		nr, err := d.readVarU32()
		if err != nil {
			return err
		}
		results := make([]ValueType, nr)
		for j := range results {
			if results[j], err = d.readValueType(); err != nil {
				return err
			}
		}
		mod.Types[i] = FuncType{Params: params, Results: results}
	}
	return nil
}

func (d *decoder) readImportSection(mod *Module) error {
	n, err := d.readVarU32()
	if err != nil {
		return err
	}
	mod.Imports = make([]Import, n)
	for i := range mod.Imports {
		modName, err := d.readName()
		if err != nil {
			return err
		}
		field, err := d.readName()
		if err != nil {
			return err
		}
		kind, err := d.byte()
		if err != nil {
			return err
		}
		imp := Import{Module: modName, Name: field}
		switch kind {
		case 0x00:
			imp.Kind = ImportFunc
			if imp.TypeIndex, err = d.readVarU32(); err != nil {
				return err
			}
		case 0x01:
			imp.Kind = ImportTable
			if imp.TableType.ElemType, err = d.readRefType(); err != nil {
				return err
			}
			if imp.TableType.Limits, err = d.readLimits(); err != nil {
				return err
			}
		case 0x02:
			imp.Kind = ImportMemory
			if imp.MemoryType.Limits, err = d.readLimits(); err != nil {
				return err
			}
		case 0x03:
			imp.Kind = ImportGlobal
			if imp.GlobalType.Type, err = d.readValueType(); err != nil {
				return err
			}
			mut, err := d.byte()
			if err != nil {
				return err
			}
			imp.GlobalType.Mutable = mut != 0
		default:
			return Malformed(fmt.Errorf("unknown import kind 0x%x", kind))
		}
		mod.Imports[i] = imp
	}
	return nil
}

func (d *decoder) readTableSection(mod *Module) error {
	n, err := d.readVarU32()
	if err != nil {
		return err
	}
	mod.Tables = make([]Table, n)
	for i := range mod.Tables {
		et, err := d.readRefType()
		if err != nil {
			return err
		}
		lim, err := d.readLimits()
		if err != nil {
			return err
		}
		mod.Tables[i] = Table{ElemType: et, Limits: lim}
	}
	return nil
}

func (d *decoder) readMemorySection(mod *Module) error {
	n, err := d.readVarU32()
	if err != nil {
		return err
	}
	mod.Memories = make([]Memory, n)
	for i := range mod.Memories {
		lim, err := d.readLimits()
		if err != nil {
			return err
		}
		mod.Memories[i] = Memory{Limits: lim}
	}
	return nil
}

// readConstExpr reads a restricted constant expression: exactly one
// instruction producing a value, followed by the 0x0B end opcode.
func (d *decoder) readConstExpr() (ConstExpr, error) {
	op, err := d.byte()
	if err != nil {
		return ConstExpr{}, err
	}
	var ce ConstExpr
	switch op {
	case 0x41:
		v, err := d.readVarS32()
		if err != nil {
			return ConstExpr{}, err
		}
		ce = ConstExpr{Kind: ConstExprI32, I32: v}
	case 0x42:
		v, err := d.readVarS64()
		if err != nil {
			return ConstExpr{}, err
		}
		ce = ConstExpr{Kind: ConstExprI64, I64: v}
	case 0x43:
		v, err := d.readF32()
		if err != nil {
			return ConstExpr{}, err
		}
		ce = ConstExpr{Kind: ConstExprF32, F32: v}
	case 0x44:
		v, err := d.readF64()
		if err != nil {
			return ConstExpr{}, err
		}
		ce = ConstExpr{Kind: ConstExprF64, F64: v}
	case 0x23:
		idx, err := d.readVarU32()
		if err != nil {
			return ConstExpr{}, err
		}
		ce = ConstExpr{Kind: ConstExprGlobalGet, GlobalIndex: idx}
	case 0xD0:
		if _, err := d.readRefType(); err != nil {
			return ConstExpr{}, err
		}
		ce = ConstExpr{Kind: ConstExprRefNull}
	case 0xD2:
		idx, err := d.readVarU32()
		if err != nil {
			return ConstExpr{}, err
		}
		ce = ConstExpr{Kind: ConstExprRefFunc, FuncIndex: idx}
	default:
		return ConstExpr{}, Malformed(fmt.Errorf("unsupported const-expr opcode 0x%x", op))
	}
	end, err := d.byte()
	if err != nil {
		return ConstExpr{}, err
	}
	if end != 0x0B {
		return ConstExpr{}, Malformed(fmt.Errorf("const-expr missing end opcode"))
	}
	return ce, nil
}

func (d *decoder) readGlobalSection(mod *Module) error {
	n, err := d.readVarU32()
	if err != nil {
		return err
	}
	mod.Globals = make([]Global, n)
	for i := range mod.Globals {
		typ, err := d.readValueType()
		if err != nil {
			return err
		}
		mut, err := d.byte()
		if err != nil {
			return err
		}
		init, err := d.readConstExpr()
		if err != nil {
			return err
		}
		mod.Globals[i] = Global{Type: typ, Mutable: mut != 0, Init: init}
	}
	return nil
}

func (d *decoder) readExportSection(mod *Module) error {
	n, err := d.readVarU32()
	if err != nil {
		return err
	}
	mod.Exports = make([]Export, n)
	for i := range mod.Exports {
		name, err := d.readName()
		if err != nil {
			return err
		}
		kind, err := d.byte()
		if err != nil {
			return err
		}
		idx, err := d.readVarU32()
		if err != nil {
			return err
		}
		var ek ExportKind
		switch kind {
		case 0x00:
			ek = ExportFunc
		case 0x01:
			ek = ExportTable
		case 0x02:
			ek = ExportMemory
		case 0x03:
			ek = ExportGlobal
		default:
			return Malformed(fmt.Errorf("unknown export kind 0x%x", kind))
		}
		mod.Exports[i] = Export{Name: name, Kind: ek, Index: idx}
	}
	return nil
}

func (d *decoder) readElementSection(mod *Module) error {
	n, err := d.readVarU32()
	if err != nil {
		return err
	}
	mod.Elements = make([]Element, n)
	for i := range mod.Elements {
		flags, err := d.readVarU32()
		if err != nil {
			return err
		}
		el := Element{Type: RefFunc}
		switch flags {
		case 0:
			off, err := d.readConstExpr()
			if err != nil {
				return err
			}
			el.Offset = &off
			if el.FuncIndices, err = d.readU32Vec(); err != nil {
				return err
			}
		case 1:
			if _, err := d.byte(); err != nil { // elemkind, always funcref
				return err
			}
			el.Passive = true
			if el.FuncIndices, err = d.readU32Vec(); err != nil {
				return err
			}
		case 2:
			if el.TableIndex, err = d.readVarU32(); err != nil {
				return err
			}
			off, err := d.readConstExpr()
			if err != nil {
				return err
			}
			el.Offset = &off
			if _, err := d.byte(); err != nil {
				return err
			}
			if el.FuncIndices, err = d.readU32Vec(); err != nil {
				return err
			}
		case 3:
			if _, err := d.byte(); err != nil {
				return err
			}
			el.Declarative = true
			if el.FuncIndices, err = d.readU32Vec(); err != nil {
				return err
			}
		case 4:
			off, err := d.readConstExpr()
			if err != nil {
				return err
			}
			el.Offset = &off
			if el.Exprs, err = d.readConstExprVec(); err != nil {
				return err
			}
		case 5:
			if el.Type, err = d.readRefType(); err != nil {
				return err
			}
			el.Passive = true
			if el.Exprs, err = d.readConstExprVec(); err != nil {
				return err
			}
		case 6:
			if el.TableIndex, err = d.readVarU32(); err != nil {
				return err
			}
			off, err := d.readConstExpr()
			if err != nil {
				return err
			}
			el.Offset = &off
			if el.Type, err = d.readRefType(); err != nil {
				return err
			}
			if el.Exprs, err = d.readConstExprVec(); err != nil {
				return err
			}
		case 7:
			if el.Type, err = d.readRefType(); err != nil {
				return err
			}
			el.Declarative = true
			if el.Exprs, err = d.readConstExprVec(); err != nil {
				return err
			}
		default:
			return Malformed(fmt.Errorf("unknown element segment flags %d", flags))
		}
		mod.Elements[i] = el
	}
	return nil
}

func (d *decoder) readU32Vec() ([]uint32, error) {
	n, err := d.readVarU32()
	if err != nil {
		return nil, err
	}
	out := make([]uint32, n)
	for i := range out {
		if out[i], err = d.readVarU32(); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func (d *decoder) readConstExprVec() ([]ConstExpr, error) {
	n, err := d.readVarU32()
	if err != nil {
		return nil, err
	}
	out := make([]ConstExpr, n)
	for i := range out {
		if out[i], err = d.readConstExpr(); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func (d *decoder) readDataSection(mod *Module) error {
	n, err := d.readVarU32()
	if err != nil {
		return err
	}
	mod.Datas = make([]Data, n)
	for i := range mod.Datas {
		flags, err := d.readVarU32()
		if err != nil {
			return err
		}
		var data Data
		switch flags {
		case 0:
			off, err := d.readConstExpr()
			if err != nil {
				return err
			}
			data.Offset = &off
		case 1:
			data.Passive = true
		case 2:
			if data.MemoryIndex, err = d.readVarU32(); err != nil {
				return err
			}
			off, err := d.readConstExpr()
			if err != nil {
				return err
			}
			data.Offset = &off
		default:
			return Malformed(fmt.Errorf("unknown data segment flags %d", flags))
		}
		blen, err := d.readVarU32()
		if err != nil {
			return err
		}
		bytes, err := d.bytes(int(blen))
		if err != nil {
			return err
		}
		data.Bytes = append([]byte(nil), bytes...)
		mod.Datas[i] = data
	}
	return nil
}

func (d *decoder) readCodeSection(mod *Module, typeIndices []uint32) error {
	n, err := d.readVarU32()
	if err != nil {
		return err
	}
	if int(n) != len(typeIndices) {
		return Malformed(fmt.Errorf("code section count %d doesn't match function section count %d", n, len(typeIndices)))
	}
	mod.Functions = make([]Function, n)
	for i := range mod.Functions {
		size, err := d.readVarU32()
		if err != nil {
			return err
		}
		body, err := d.bytes(int(size))
		if err != nil {
			return err
		}
		fd := &decoder{buf: body}
		locals, err := fd.readLocalsVec()
		if err != nil {
			return err
		}
		ops, err := fd.readOperators()
		if err != nil {
			return err
		}
		mod.Functions[i] = Function{TypeIndex: typeIndices[i], Locals: locals, Body: ops}
	}
	return nil
}

// readOperators decodes a function body's flat instruction stream. Block
// structure is preserved exactly as encoded (OpBlock/OpLoop/OpIf/OpElse/
// OpEnd interleaved with the rest), since cfg.Builder walks the stream
// linearly and reconstructs nesting itself via its StackBuilder.
func (d *decoder) readOperators() ([]Operator, error) {
	var ops []Operator
	for {
		if d.pos >= len(d.buf) {
			return ops, nil
		}
		op, err := d.readOperator()
		if err != nil {
			return nil, err
		}
		ops = append(ops, op)
	}
}

func (d *decoder) readBlockType() (Operator, error) {
	var op Operator
	b, err := d.byte()
	if err != nil {
		return op, err
	}
	switch b {
	case 0x40:
		op.HasNoResult = true
	case 0x7F, 0x7E, 0x7D, 0x7C, 0x70, 0x6F:
		op.HasInlineType = true
		op.InlineType = ValueType(b)
	default:
		d.pos--
		idx, err := d.readVarS32()
		if err != nil {
			return op, err
		}
		op.TypeIndex = uint32(idx)
	}
	return op, nil
}

func (d *decoder) readMemArg() (MemArg, error) {
	flags, err := d.readVarU32()
	if err != nil {
		return MemArg{}, err
	}
	var mem MemArg
	if flags&0x40 != 0 {
		idx, err := d.readVarU32()
		if err != nil {
			return MemArg{}, err
		}
		mem.MemoryIndex = idx
	}
	mem.Align = flags &^ 0x40
	off, err := d.readVarU32()
	if err != nil {
		return MemArg{}, err
	}
	mem.Offset = off
	return mem, nil
}

func memOp(kind OpCode, mem MemArg, access AccessType) Operator {
	mem.Access = access
	return Operator{Op: kind, Mem: mem}
}

func numUnary(op NumOp, t ValueType) Operator  { return Operator{Op: OpUnary, NumOp: op, Type: t} }
func numBinary(op NumOp, t ValueType) Operator { return Operator{Op: OpBinary, NumOp: op, Type: t} }
func numCompare(op NumOp, t ValueType) Operator {
	return Operator{Op: OpCompare, NumOp: op, Type: t}
}
func numConvert(op NumOp, from, to ValueType) Operator {
	return Operator{Op: OpConvert, NumOp: op, Type: from, Type2: to}
}
func numTransmute(op NumOp, t ValueType) Operator {
	return Operator{Op: OpTransmute, NumOp: op, Type: t}
}

func (d *decoder) readOperator() (Operator, error) {
	code, err := d.byte()
	if err != nil {
		return Operator{}, err
	}
	switch code {
	case 0x00:
		return Operator{Op: OpUnreachable}, nil
	case 0x01:
		return Operator{Op: OpNop}, nil
	case 0x02:
		bt, err := d.readBlockType()
		if err != nil {
			return Operator{}, err
		}
		bt.Op = OpBlock
		return bt, nil
	case 0x03:
		bt, err := d.readBlockType()
		if err != nil {
			return Operator{}, err
		}
		bt.Op = OpLoop
		return bt, nil
	case 0x04:
		bt, err := d.readBlockType()
		if err != nil {
			return Operator{}, err
		}
		bt.Op = OpIf
		return bt, nil
	case 0x05:
		return Operator{Op: OpElse}, nil
	case 0x0B:
		return Operator{Op: OpEnd}, nil
	case 0x0C:
		l, err := d.readVarU32()
		return Operator{Op: OpBr, LabelIndex: l}, err
	case 0x0D:
		l, err := d.readVarU32()
		return Operator{Op: OpBrIf, LabelIndex: l}, err
	case 0x0E:
		n, err := d.readVarU32()
		if err != nil {
			return Operator{}, err
		}
		targets := make([]uint32, n)
		for i := range targets {
			if targets[i], err = d.readVarU32(); err != nil {
				return Operator{}, err
			}
		}
		def, err := d.readVarU32()
		if err != nil {
			return Operator{}, err
		}
		return Operator{Op: OpBrTable, BrTable: targets, LabelIndex: def}, nil
	case 0x0F:
		return Operator{Op: OpReturn}, nil
	case 0x10:
		x, err := d.readVarU32()
		return Operator{Op: OpCall, Index: x}, err
	case 0x11:
		typeIdx, err := d.readVarU32()
		if err != nil {
			return Operator{}, err
		}
		tableIdx, err := d.readVarU32()
		if err != nil {
			return Operator{}, err
		}
		return Operator{Op: OpCallIndirect, Index: typeIdx, Index2: tableIdx}, nil
	case 0x1A:
		return Operator{Op: OpDrop}, nil
	case 0x1B:
		return Operator{Op: OpSelect}, nil
	case 0x1C:
		n, err := d.readVarU32()
		if err != nil {
			return Operator{}, err
		}
		for i := uint32(0); i < n; i++ {
			if _, err := d.readValueType(); err != nil {
				return Operator{}, err
			}
		}
		return Operator{Op: OpSelect}, nil
	case 0x20:
		x, err := d.readVarU32()
		return Operator{Op: OpLocalGet, Index: x}, err
	case 0x21:
		x, err := d.readVarU32()
		return Operator{Op: OpLocalSet, Index: x}, err
	case 0x22:
		x, err := d.readVarU32()
		return Operator{Op: OpLocalTee, Index: x}, err
	case 0x23:
		x, err := d.readVarU32()
		return Operator{Op: OpGlobalGet, Index: x}, err
	case 0x24:
		x, err := d.readVarU32()
		return Operator{Op: OpGlobalSet, Index: x}, err
	case 0x25:
		x, err := d.readVarU32()
		return Operator{Op: OpTableGet, Index: x}, err
	case 0x26:
		x, err := d.readVarU32()
		return Operator{Op: OpTableSet, Index: x}, err
	case 0x28, 0x29, 0x2A, 0x2B, 0x2C, 0x2D, 0x2E, 0x2F,
		0x30, 0x31, 0x32, 0x33, 0x34, 0x35,
		0x36, 0x37, 0x38, 0x39, 0x3A, 0x3B, 0x3C, 0x3D, 0x3E:
		mem, err := d.readMemArg()
		if err != nil {
			return Operator{}, err
		}
		kind := OpMemoryLoad
		var access AccessType
		switch code {
		case 0x28:
			access = AccessI32
		case 0x29:
			access = AccessI64
		case 0x2A:
			access = AccessF32
		case 0x2B:
			access = AccessF64
		case 0x2C:
			access = AccessI32S8
		case 0x2D:
			access = AccessI32U8
		case 0x2E:
			access = AccessI32S16
		case 0x2F:
			access = AccessI32U16
		case 0x30:
			access = AccessI64S8
		case 0x31:
			access = AccessI64U8
		case 0x32:
			access = AccessI64S16
		case 0x33:
			access = AccessI64U16
		case 0x34:
			access = AccessI64S32
		case 0x35:
			access = AccessI64U32
		case 0x36:
			kind, access = OpMemoryStore, AccessI32
		case 0x37:
			kind, access = OpMemoryStore, AccessI64
		case 0x38:
			kind, access = OpMemoryStore, AccessF32
		case 0x39:
			kind, access = OpMemoryStore, AccessF64
		case 0x3A:
			kind, access = OpMemoryStore, AccessI32U8
		case 0x3B:
			kind, access = OpMemoryStore, AccessI32U16
		case 0x3C:
			kind, access = OpMemoryStore, AccessI64U8
		case 0x3D:
			kind, access = OpMemoryStore, AccessI64U16
		case 0x3E:
			kind, access = OpMemoryStore, AccessI64U32
		}
		return memOp(kind, mem, access), nil
	case 0x3F:
		if _, err := d.byte(); err != nil {
			return Operator{}, err
		}
		return Operator{Op: OpMemorySize}, nil
	case 0x40:
		if _, err := d.byte(); err != nil {
			return Operator{}, err
		}
		return Operator{Op: OpMemoryGrow}, nil
	case 0x41:
		v, err := d.readVarS32()
		return Operator{Op: OpI32Const, I32: v}, err
	case 0x42:
		v, err := d.readVarS64()
		return Operator{Op: OpI64Const, I64: v}, err
	case 0x43:
		v, err := d.readF32()
		return Operator{Op: OpF32Const, F32: v}, err
	case 0x44:
		v, err := d.readF64()
		return Operator{Op: OpF64Const, F64: v}, err
	case 0x45:
		return numUnary(NumEqz, I32), nil
	case 0x46:
		return numCompare(NumEq, I32), nil
	case 0x47:
		return numCompare(NumNe, I32), nil
	case 0x48:
		return numCompare(NumLtS, I32), nil
	case 0x49:
		return numCompare(NumLtU, I32), nil
	case 0x4A:
		return numCompare(NumGtS, I32), nil
	case 0x4B:
		return numCompare(NumGtU, I32), nil
	case 0x4C:
		return numCompare(NumLeS, I32), nil
	case 0x4D:
		return numCompare(NumLeU, I32), nil
	case 0x4E:
		return numCompare(NumGeS, I32), nil
	case 0x4F:
		return numCompare(NumGeU, I32), nil
	case 0x50:
		return numUnary(NumEqz, I64), nil
	case 0x51:
		return numCompare(NumEq, I64), nil
	case 0x52:
		return numCompare(NumNe, I64), nil
	case 0x53:
		return numCompare(NumLtS, I64), nil
	case 0x54:
		return numCompare(NumLtU, I64), nil
	case 0x55:
		return numCompare(NumGtS, I64), nil
	case 0x56:
		return numCompare(NumGtU, I64), nil
	case 0x57:
		return numCompare(NumLeS, I64), nil
	case 0x58:
		return numCompare(NumLeU, I64), nil
	case 0x59:
		return numCompare(NumGeS, I64), nil
	case 0x5A:
		return numCompare(NumGeU, I64), nil
	case 0x5B:
		return numCompare(NumEq, F32), nil
	case 0x5C:
		return numCompare(NumNe, F32), nil
	case 0x5D:
		return numCompare(NumLt, F32), nil
	case 0x5E:
		return numCompare(NumGt, F32), nil
	case 0x5F:
		return numCompare(NumLe, F32), nil
	case 0x60:
		return numCompare(NumGe, F32), nil
	case 0x61:
		return numCompare(NumEq, F64), nil
	case 0x62:
		return numCompare(NumNe, F64), nil
	case 0x63:
		return numCompare(NumLt, F64), nil
	case 0x64:
		return numCompare(NumGt, F64), nil
	case 0x65:
		return numCompare(NumLe, F64), nil
	case 0x66:
		return numCompare(NumGe, F64), nil
	case 0x67:
		return numUnary(NumClz, I32), nil
	case 0x68:
		return numUnary(NumCtz, I32), nil
	case 0x69:
		return numUnary(NumPopcnt, I32), nil
	case 0x6A:
		return numBinary(NumAdd, I32), nil
	case 0x6B:
		return numBinary(NumSub, I32), nil
	case 0x6C:
		return numBinary(NumMul, I32), nil
	case 0x6D:
		return numBinary(NumDivS, I32), nil
	case 0x6E:
		return numBinary(NumDivU, I32), nil
	case 0x6F:
		return numBinary(NumRemS, I32), nil
	case 0x70:
		return numBinary(NumRemU, I32), nil
	case 0x71:
		return numBinary(NumAnd, I32), nil
	case 0x72:
		return numBinary(NumOr, I32), nil
	case 0x73:
		return numBinary(NumXor, I32), nil
	case 0x74:
		return numBinary(NumShl, I32), nil
	case 0x75:
		return numBinary(NumShrS, I32), nil
	case 0x76:
		return numBinary(NumShrU, I32), nil
	case 0x77:
		return numBinary(NumRotl, I32), nil
	case 0x78:
		return numBinary(NumRotr, I32), nil
	case 0x79:
		return numUnary(NumClz, I64), nil
	case 0x7A:
		return numUnary(NumCtz, I64), nil
	case 0x7B:
		return numUnary(NumPopcnt, I64), nil
	case 0x7C:
		return numBinary(NumAdd, I64), nil
	case 0x7D:
		return numBinary(NumSub, I64), nil
	case 0x7E:
		return numBinary(NumMul, I64), nil
	case 0x7F:
		return numBinary(NumDivS, I64), nil
	case 0x80:
		return numBinary(NumDivU, I64), nil
	case 0x81:
		return numBinary(NumRemS, I64), nil
	case 0x82:
		return numBinary(NumRemU, I64), nil
	case 0x83:
		return numBinary(NumAnd, I64), nil
	case 0x84:
		return numBinary(NumOr, I64), nil
	case 0x85:
		return numBinary(NumXor, I64), nil
	case 0x86:
		return numBinary(NumShl, I64), nil
	case 0x87:
		return numBinary(NumShrS, I64), nil
	case 0x88:
		return numBinary(NumShrU, I64), nil
	case 0x89:
		return numBinary(NumRotl, I64), nil
	case 0x8A:
		return numBinary(NumRotr, I64), nil
	case 0x8B:
		return numUnary(NumAbs, F32), nil
	case 0x8C:
		return numUnary(NumNeg, F32), nil
	case 0x8D:
		return numUnary(NumCeil, F32), nil
	case 0x8E:
		return numUnary(NumFloor, F32), nil
	case 0x8F:
		return numUnary(NumTrunc, F32), nil
	case 0x90:
		return numUnary(NumNearest, F32), nil
	case 0x91:
		return numUnary(NumSqrt, F32), nil
	case 0x92:
		return numBinary(NumAdd, F32), nil
	case 0x93:
		return numBinary(NumSub, F32), nil
	case 0x94:
		return numBinary(NumMul, F32), nil
	case 0x95:
		return numBinary(NumDiv, F32), nil
	case 0x96:
		return numBinary(NumMin, F32), nil
	case 0x97:
		return numBinary(NumMax, F32), nil
	case 0x98:
		return numBinary(NumCopysign, F32), nil
	case 0x99:
		return numUnary(NumAbs, F64), nil
	case 0x9A:
		return numUnary(NumNeg, F64), nil
	case 0x9B:
		return numUnary(NumCeil, F64), nil
	case 0x9C:
		return numUnary(NumFloor, F64), nil
	case 0x9D:
		return numUnary(NumTrunc, F64), nil
	case 0x9E:
		return numUnary(NumNearest, F64), nil
	case 0x9F:
		return numUnary(NumSqrt, F64), nil
	case 0xA0:
		return numBinary(NumAdd, F64), nil
	case 0xA1:
		return numBinary(NumSub, F64), nil
	case 0xA2:
		return numBinary(NumMul, F64), nil
	case 0xA3:
		return numBinary(NumDiv, F64), nil
	case 0xA4:
		return numBinary(NumMin, F64), nil
	case 0xA5:
		return numBinary(NumMax, F64), nil
	case 0xA6:
		return numBinary(NumCopysign, F64), nil
	case 0xA7:
		return numConvert(NumWrap, I64, I32), nil
	case 0xA8:
		return numConvert(NumTruncS, F32, I32), nil
	case 0xA9:
		return numConvert(NumTruncU, F32, I32), nil
	case 0xAA:
		return numConvert(NumTruncS, F64, I32), nil
	case 0xAB:
		return numConvert(NumTruncU, F64, I32), nil
	case 0xAC:
		return numConvert(NumExtendS, I32, I64), nil
	case 0xAD:
		return numConvert(NumExtendU, I32, I64), nil
	case 0xAE:
		return numConvert(NumTruncS, F32, I64), nil
	case 0xAF:
		return numConvert(NumTruncU, F32, I64), nil
	case 0xB0:
		return numConvert(NumTruncS, F64, I64), nil
	case 0xB1:
		return numConvert(NumTruncU, F64, I64), nil
	case 0xB2:
		return numConvert(NumConvertS, I32, F32), nil
	case 0xB3:
		return numConvert(NumConvertU, I32, F32), nil
	case 0xB4:
		return numConvert(NumConvertS, I64, F32), nil
	case 0xB5:
		return numConvert(NumConvertU, I64, F32), nil
	case 0xB6:
		return numConvert(NumDemote, F64, F32), nil
	case 0xB7:
		return numConvert(NumConvertS, I32, F64), nil
	case 0xB8:
		return numConvert(NumConvertU, I32, F64), nil
	case 0xB9:
		return numConvert(NumConvertS, I64, F64), nil
	case 0xBA:
		return numConvert(NumConvertU, I64, F64), nil
	case 0xBB:
		return numConvert(NumPromote, F32, F64), nil
	case 0xBC:
		return numTransmute(NumReinterpret, F32), nil
	case 0xBD:
		return numTransmute(NumReinterpret, F64), nil
	case 0xBE:
		return numTransmute(NumReinterpret, I32), nil
	case 0xBF:
		return numTransmute(NumReinterpret, I64), nil
	case 0xC0:
		return numUnary(NumExtend8S, I32), nil
	case 0xC1:
		return numUnary(NumExtend16S, I32), nil
	case 0xC2:
		return numUnary(NumExtend8S, I64), nil
	case 0xC3:
		return numUnary(NumExtend16S, I64), nil
	case 0xC4:
		return numUnary(NumExtend32S, I64), nil
	case 0xD0:
		rt, err := d.readRefType()
		return Operator{Op: OpRefNull, RefType: rt}, err
	case 0xD1:
		return Operator{Op: OpRefIsNull}, nil
	case 0xD2:
		x, err := d.readVarU32()
		return Operator{Op: OpRefFunc, Index: x}, err
	case 0xFC:
		return d.readExtendedOperator()
	default:
		return Operator{}, Malformed(fmt.Errorf("unknown opcode 0x%x", code))
	}
}

func (d *decoder) readExtendedOperator() (Operator, error) {
	sub, err := d.readVarU32()
	if err != nil {
		return Operator{}, err
	}
	switch sub {
	case 0:
		return numConvert(NumTruncSatS, F32, I32), nil
	case 1:
		return numConvert(NumTruncSatU, F32, I32), nil
	case 2:
		return numConvert(NumTruncSatS, F64, I32), nil
	case 3:
		return numConvert(NumTruncSatU, F64, I32), nil
	case 4:
		return numConvert(NumTruncSatS, F32, I64), nil
	case 5:
		return numConvert(NumTruncSatU, F32, I64), nil
	case 6:
		return numConvert(NumTruncSatS, F64, I64), nil
	case 7:
		return numConvert(NumTruncSatU, F64, I64), nil
	case 8:
		dataIdx, err := d.readVarU32()
		if err != nil {
			return Operator{}, err
		}
		memIdx, err := d.readVarU32()
		if err != nil {
			return Operator{}, err
		}
		return Operator{Op: OpMemoryInit, Index: memIdx, Index2: dataIdx}, nil
	case 9:
		x, err := d.readVarU32()
		return Operator{Op: OpDataDrop, Index: x}, err
	case 10:
		dst, err := d.readVarU32()
		if err != nil {
			return Operator{}, err
		}
		src, err := d.readVarU32()
		if err != nil {
			return Operator{}, err
		}
		return Operator{Op: OpMemoryCopy, Index: dst, Index2: src}, nil
	case 11:
		x, err := d.readVarU32()
		if err != nil {
			return Operator{}, err
		}
		return Operator{Op: OpMemoryFill, Index: x}, nil
	case 12:
		elemIdx, err := d.readVarU32()
		if err != nil {
			return Operator{}, err
		}
		tableIdx, err := d.readVarU32()
		if err != nil {
			return Operator{}, err
		}
		return Operator{Op: OpTableInit, Index: tableIdx, Index2: elemIdx}, nil
	case 13:
		x, err := d.readVarU32()
		return Operator{Op: OpElemDrop, Index: x}, err
	case 14:
		dst, err := d.readVarU32()
		if err != nil {
			return Operator{}, err
		}
		src, err := d.readVarU32()
		if err != nil {
			return Operator{}, err
		}
		return Operator{Op: OpTableCopy, Index: dst, Index2: src}, nil
	case 15:
		x, err := d.readVarU32()
		return Operator{Op: OpTableGrow, Index: x}, err
	case 16:
		x, err := d.readVarU32()
		return Operator{Op: OpTableSize, Index: x}, err
	case 17:
		x, err := d.readVarU32()
		return Operator{Op: OpTableFill, Index: x}, err
	default:
		return Operator{}, Malformed(fmt.Errorf("unknown 0xFC sub-opcode %d", sub))
	}
}

func (d *decoder) readLocalsVec() ([]ValueType, error) {
	n, err := d.readVarU32()
	if err != nil {
		return nil, err
	}
	var out []ValueType
	for i := uint32(0); i < n; i++ {
		count, err := d.readVarU32()
		if err != nil {
			return nil, err
		}
		typ, err := d.readValueType()
		if err != nil {
			return nil, err
		}
		for j := uint32(0); j < count; j++ {
			out = append(out, typ)
		}
	}
	return out, nil
}
