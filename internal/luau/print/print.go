// Package print renders an ast.Module as Luau source text (spec §4.6
// "Emission" -> printer stage). Grounded on the teacher's own
// generateIRText (internal/compiler/backend_ir.go): a strings.Builder
// filled incrementally through small per-node-kind helpers, rather than
// a template engine or an AST-to-AST lowering into some other printer
// library.
package print

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/SovereignSatellite/Spider/internal/luau/ast"
	"github.com/SovereignSatellite/Spider/internal/luau/runtime"
	"github.com/SovereignSatellite/Spider/internal/wasm"
)

// Module renders mod as a complete Luau chunk: a function literal taking
// the sandbox environment table and returning the module's export table,
// preceded by the runtime-library preamble the rendered body actually
// calls into (spec §6 "Environment imports", "Export table contract").
func Module(mod *ast.Module) string {
	p := &printer{used: map[string]bool{}}
	body := &strings.Builder{}
	p.sb = body

	p.writeLine(fmt.Sprintf("return function(%s)", p.name(mod.Environment)))
	p.indent++
	p.statements(mod.Code.List)
	p.writeLine("local __exports = {}")
	for _, exp := range mod.Exports {
		p.writeLine(fmt.Sprintf("__exports[%s] = %s", quote(exp.Identifier), p.expr(exp.Source)))
	}
	p.writeLine("return __exports")
	p.indent--
	p.writeLine("end")

	return runtime.Preamble(p.used) + body.String()
}

// printer accumulates rendered text for one in-progress scope. sb is
// swapped out (never copied) when a nested function literal needs its
// own buffer to build into before being spliced in as an expression.
type printer struct {
	sb     *strings.Builder
	indent int
	used   map[string]bool
}

func (p *printer) use(name string) { p.used[name] = true }

func (p *printer) writeLine(s string) {
	p.sb.WriteString(strings.Repeat("\t", p.indent))
	p.sb.WriteString(s)
	p.sb.WriteByte('\n')
}

func (p *printer) name(n ast.Name) string { return fmt.Sprintf("v%d", n.ID) }

func (p *printer) local(l ast.Local) string {
	if l.Fast {
		return p.name(l.Name)
	}
	return fmt.Sprintf("%s[%d]", p.name(l.Table), l.Index+1)
}

func quote(s string) string { return strconv.Quote(s) }

func quoteBytes(b []byte) string {
	var sb strings.Builder
	sb.WriteByte('"')
	for _, c := range b {
		switch c {
		case '\\':
			sb.WriteString(`\\`)
		case '"':
			sb.WriteString(`\"`)
		case '\n':
			sb.WriteString(`\n`)
		case '\r':
			sb.WriteString(`\r`)
		case '\t':
			sb.WriteString(`\t`)
		default:
			if c < 0x20 || c > 0x7e {
				sb.WriteString(fmt.Sprintf(`\%d`, c))
			} else {
				sb.WriteByte(c)
			}
		}
	}
	sb.WriteByte('"')
	return sb.String()
}

func formatFloat(f float64) string {
	switch {
	case math.IsNaN(f):
		return "(0/0)"
	case math.IsInf(f, 1):
		return "math.huge"
	case math.IsInf(f, -1):
		return "-math.huge"
	default:
		return strconv.FormatFloat(f, 'g', -1, 64)
	}
}

func (p *printer) statements(list []ast.Statement) {
	for _, s := range list {
		p.statement(s)
	}
}

func (p *printer) statement(s ast.Statement) {
	switch n := s.(type) {
	case *ast.FastDefine:
		p.writeLine(fmt.Sprintf("local %s = %s", p.name(n.Name), p.expr(n.Source)))
	case *ast.SlowDefine:
		p.writeLine(fmt.Sprintf("local %s = table.create(%d)", p.name(n.Name), n.Len))
	case *ast.Assign:
		p.writeLine(fmt.Sprintf("%s = %s", p.local(n.Local), p.expr(n.Source)))
	case *ast.AssignAll:
		p.assignAll(n)
	case *ast.CallStmt:
		p.callStmt(n)
	case *ast.MatchStmt:
		p.matchStmt(n)
	case *ast.Repeat:
		p.repeat(n)
	case *ast.GlobalSet:
		p.use("global_set")
		p.writeLine(fmt.Sprintf("global_set(%s, %s)", p.expr(n.Destination), p.expr(n.Source)))
	case *ast.TableSet:
		p.use("table_set")
		p.writeLine(fmt.Sprintf("table_set(%s, %s, %s)", p.expr(n.Destination.Reference), p.expr(n.Destination.Offset), p.expr(n.Source)))
	case *ast.TableFill:
		p.use("table_fill")
		p.writeLine(fmt.Sprintf("table_fill(%s, %s, %s, %s)", p.expr(n.Destination.Reference), p.expr(n.Destination.Offset), p.expr(n.Source), p.expr(n.Size)))
	case *ast.TableCopy:
		p.use("table_copy")
		p.writeLine(fmt.Sprintf("table_copy(%s, %s, %s, %s, %s)",
			p.expr(n.Destination.Reference), p.expr(n.Destination.Offset),
			p.expr(n.Source.Reference), p.expr(n.Source.Offset), p.expr(n.Size)))
	case *ast.TableInit:
		p.use("table_init")
		p.writeLine(fmt.Sprintf("table_init(%s, %s, %s, %s, %s)",
			p.expr(n.Destination.Reference), p.expr(n.Destination.Offset),
			p.expr(n.Source.Reference), p.expr(n.Source.Offset), p.expr(n.Size)))
	case *ast.ElementsDrop:
		p.use("elements_drop")
		p.writeLine(fmt.Sprintf("elements_drop(%s)", p.expr(n.Source)))
	case *ast.MemoryStore:
		helper := memoryStoreHelper(n.Access)
		p.use(helper)
		p.writeLine(fmt.Sprintf("%s(%s, %s, %s)", helper, p.expr(n.Destination.Reference), p.expr(n.Destination.Offset), p.expr(n.Source)))
	case *ast.MemoryFill:
		p.use("memory_fill")
		p.writeLine(fmt.Sprintf("memory_fill(%s, %s, %s, %s)", p.expr(n.Destination.Reference), p.expr(n.Destination.Offset), p.expr(n.Byte), p.expr(n.Size)))
	case *ast.MemoryCopy:
		p.use("memory_copy")
		p.writeLine(fmt.Sprintf("memory_copy(%s, %s, %s, %s, %s)",
			p.expr(n.Destination.Reference), p.expr(n.Destination.Offset),
			p.expr(n.Source.Reference), p.expr(n.Source.Offset), p.expr(n.Size)))
	case *ast.MemoryInit:
		p.use("memory_init")
		p.writeLine(fmt.Sprintf("memory_init(%s, %s, %s, %s, %s)",
			p.expr(n.Destination.Reference), p.expr(n.Destination.Offset),
			p.expr(n.Source.Reference), p.expr(n.Source.Offset), p.expr(n.Size)))
	case *ast.DataDrop:
		p.use("data_drop")
		p.writeLine(fmt.Sprintf("data_drop(%s)", p.expr(n.Source)))
	}
}

func (p *printer) assignAll(n *ast.AssignAll) {
	if len(n.Assignments) == 0 {
		return
	}
	dsts := make([]string, len(n.Assignments))
	srcs := make([]string, len(n.Assignments))
	for i, a := range n.Assignments {
		dsts[i] = p.local(a[0])
		srcs[i] = p.local(a[1])
	}
	p.writeLine(fmt.Sprintf("%s = %s", strings.Join(dsts, ", "), strings.Join(srcs, ", ")))
}

func (p *printer) callStmt(n *ast.CallStmt) {
	call := p.call(n.Function, n.Arguments)
	if len(n.Results) == 0 {
		p.writeLine(call)
		return
	}
	results := make([]string, len(n.Results))
	for i, r := range n.Results {
		results[i] = p.local(r)
	}
	p.writeLine(fmt.Sprintf("local %s = %s", strings.Join(results, ", "), call))
}

func (p *printer) call(fn ast.Expression, args []ast.Expression) string {
	strs := make([]string, len(args))
	for i, a := range args {
		strs[i] = p.expr(a)
	}
	return fmt.Sprintf("%s(%s)", p.expr(fn), strings.Join(strs, ", "))
}

// matchStmt lowers a Gamma's MatchStmt as a Luau if/elseif chain over the
// arm index (spec §4.6 "Match condition emission"). Condition is read
// once per arm rather than hoisted to a temporary: local.go already
// forces a multi-arm condition's producer to be named, so every
// occurrence here is a cheap local reference, not a recomputation.
func (p *printer) matchStmt(n *ast.MatchStmt) {
	cond := p.expr(n.Condition)
	for i, branch := range n.Branches {
		kw := "elseif"
		if i == 0 {
			kw = "if"
		}
		p.writeLine(fmt.Sprintf("%s %s == %d then", kw, cond, i))
		p.indent++
		p.statements(branch.List)
		p.indent--
	}
	p.writeLine("end")
}

// repeat lowers a Theta as Luau's repeat/until (spec §4.6 "Theta ->
// Repeat"): Condition true means continue, so the until test negates it.
func (p *printer) repeat(n *ast.Repeat) {
	p.writeLine("repeat")
	p.indent++
	p.statements(n.Code.List)
	p.assignAll(&n.Post)
	p.indent--
	p.writeLine(fmt.Sprintf("until not (%s)", p.expr(n.Condition)))
}

func (p *printer) expr(e ast.Expression) string {
	switch n := e.(type) {
	case ast.Null:
		return "nil"
	case ast.Trap:
		p.use("trap")
		return fmt.Sprintf("trap(%s)", quote(n.Message))
	case ast.I32:
		return strconv.FormatInt(int64(n.Value), 10)
	case ast.I64:
		lo := uint32(uint64(n.Value))
		hi := uint32(uint64(n.Value) >> 32)
		p.use("i64")
		return fmt.Sprintf("i64(%d, %d)", lo, hi)
	case ast.F32:
		return formatFloat(float64(n.Value))
	case ast.F64:
		return formatFloat(n.Value)
	case ast.LocalExpr:
		return p.local(n.Local)
	case *ast.Scoped:
		return p.function(&n.Function)
	case *ast.Function:
		return p.function(n)
	case *ast.MatchExpr:
		return p.matchExpr(n)
	case *ast.Import:
		return fmt.Sprintf("%s[%s][%s]", p.expr(n.Environment), quote(n.Namespace), quote(n.Identifier))
	case *ast.Call:
		return p.call(n.Function, n.Arguments)
	case *ast.RefIsNull:
		return fmt.Sprintf("(%s == nil)", p.expr(n.Source))
	case *ast.IntegerUnaryOperation:
		return p.numOpCall(n.Op, n.Type, n.Source)
	case *ast.IntegerBinaryOperation:
		return p.numOpCall(n.Op, n.Type, n.Lhs, n.Rhs)
	case *ast.IntegerCompareOperation:
		return p.numOpCall(n.Op, n.Type, n.Lhs, n.Rhs)
	case *ast.IntegerNarrow:
		p.use("wrap_i64")
		return fmt.Sprintf("wrap_i64(%s)", p.expr(n.Source))
	case *ast.IntegerWiden:
		helper := "extend_i32_u"
		if n.Signed {
			helper = "extend_i32_s"
		}
		p.use(helper)
		return fmt.Sprintf("%s(%s)", helper, p.expr(n.Source))
	case *ast.IntegerExtend:
		helper := fmt.Sprintf("%s_%s", typePrefix(n.Type), extendSuffix(n.Op))
		p.use(helper)
		return fmt.Sprintf("%s(%s)", helper, p.expr(n.Source))
	case *ast.IntegerConvertToNumber:
		helper := convertHelperName(n.Signed, n.From, n.To)
		p.use(helper)
		return fmt.Sprintf("%s(%s)", helper, p.expr(n.Source))
	case *ast.IntegerTransmuteToNumber:
		helper := fmt.Sprintf("reinterpret_%s", typePrefix(n.From))
		p.use(helper)
		return fmt.Sprintf("%s(%s)", helper, p.expr(n.Source))
	case *ast.NumberUnaryOperation:
		return p.numOpCall(n.Op, n.Type, n.Source)
	case *ast.NumberBinaryOperation:
		if n.Type == wasm.F64 {
			if sym, ok := nativeBinaryOp(n.Op); ok {
				return fmt.Sprintf("(%s %s %s)", p.expr(n.Lhs), sym, p.expr(n.Rhs))
			}
		}
		return p.numOpCall(n.Op, n.Type, n.Lhs, n.Rhs)
	case *ast.NumberCompareOperation:
		if n.Type == wasm.F64 {
			if sym, ok := nativeCompareOp(n.Op); ok {
				return fmt.Sprintf("(%s %s %s)", p.expr(n.Lhs), sym, p.expr(n.Rhs))
			}
		}
		return p.numOpCall(n.Op, n.Type, n.Lhs, n.Rhs)
	case *ast.NumberNarrow:
		p.use("demote_f64")
		return fmt.Sprintf("demote_f64(%s)", p.expr(n.Source))
	case *ast.NumberWiden:
		p.use("promote_f32")
		return fmt.Sprintf("promote_f32(%s)", p.expr(n.Source))
	case *ast.NumberTruncateToInteger:
		helper := truncHelperName(n.Signed, n.Saturate, n.From, n.To)
		p.use(helper)
		return fmt.Sprintf("%s(%s)", helper, p.expr(n.Source))
	case *ast.NumberTransmuteToInteger:
		helper := fmt.Sprintf("reinterpret_%s", typePrefix(n.From))
		p.use(helper)
		return fmt.Sprintf("%s(%s)", helper, p.expr(n.Source))
	case *ast.GlobalNew:
		p.use("global_new")
		return fmt.Sprintf("global_new(%s)", p.expr(n.Initializer))
	case *ast.GlobalGet:
		p.use("global_get")
		return fmt.Sprintf("global_get(%s)", p.expr(n.Source))
	case *ast.TableNew:
		p.use("table_new")
		return fmt.Sprintf("table_new(%s, %d, %d)", p.expr(n.Initializer), n.Minimum, n.Maximum)
	case *ast.TableGet:
		p.use("table_get")
		return fmt.Sprintf("table_get(%s, %s)", p.expr(n.Source.Reference), p.expr(n.Source.Offset))
	case *ast.TableSize:
		p.use("table_size")
		return fmt.Sprintf("table_size(%s)", p.expr(n.Source))
	case *ast.TableGrow:
		p.use("table_grow")
		return fmt.Sprintf("table_grow(%s, %s, %s)", p.expr(n.Destination), p.expr(n.Initializer), p.expr(n.Size))
	case *ast.ElementsNew:
		p.use("elements_new")
		items := make([]string, len(n.Content))
		for i, c := range n.Content {
			items[i] = p.expr(c)
		}
		return fmt.Sprintf("elements_new({%s})", strings.Join(items, ", "))
	case ast.MemoryNew:
		p.use("memory_new")
		return fmt.Sprintf("memory_new(%d, %d)", n.Minimum, n.Maximum)
	case *ast.MemoryLoad:
		helper := memoryLoadHelper(n.Access)
		p.use(helper)
		return fmt.Sprintf("%s(%s, %s)", helper, p.expr(n.Source.Reference), p.expr(n.Source.Offset))
	case *ast.MemorySize:
		p.use("memory_size")
		return fmt.Sprintf("memory_size(%s)", p.expr(n.Source))
	case *ast.MemoryGrow:
		p.use("memory_grow")
		return fmt.Sprintf("memory_grow(%s, %s)", p.expr(n.Destination), p.expr(n.Size))
	case ast.DataNew:
		p.use("data_new")
		return fmt.Sprintf("data_new(%s)", quoteBytes(n.Bytes))
	default:
		return "nil"
	}
}

// matchExpr renders a Gamma consumed as a value via a recursive
// binary-tree of range tests rather than a statement-level if chain,
// used for the rare spot the emitter needs a branch inline.
func (p *printer) matchExpr(n *ast.MatchExpr) string {
	return p.matchExprRange(n.Condition, n.Branches, 0, len(n.Branches))
}

func (p *printer) matchExprRange(cond ast.Expression, branches []ast.Expression, lo, hi int) string {
	if hi-lo == 1 {
		return p.expr(branches[lo])
	}
	mid := lo + (hi-lo)/2
	condStr := p.expr(cond)
	return fmt.Sprintf("(%s < %d and %s or %s)", condStr, mid,
		p.matchExprRange(cond, branches, lo, mid), p.matchExprRange(cond, branches, mid, hi))
}

// function renders a Luau function literal's full text: header, body,
// and (if Returns is non-empty) its trailing multi-value return.
func (p *printer) function(fn *ast.Function) string {
	args := make([]string, len(fn.Arguments))
	for i, a := range fn.Arguments {
		args[i] = p.name(a)
	}

	saved := p.sb
	local := &strings.Builder{}
	p.sb = local
	p.indent++
	p.statements(fn.Code.List)
	if len(fn.Returns) > 0 {
		rets := make([]string, len(fn.Returns))
		for i, r := range fn.Returns {
			rets[i] = p.local(r)
		}
		p.writeLine("return " + strings.Join(rets, ", "))
	}
	p.indent--
	body := local.String()
	p.sb = saved

	var sb strings.Builder
	sb.WriteString("function(")
	sb.WriteString(strings.Join(args, ", "))
	sb.WriteString(")\n")
	sb.WriteString(body)
	sb.WriteString(strings.Repeat("\t", p.indent))
	sb.WriteString("end")
	return sb.String()
}
