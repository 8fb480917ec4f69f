package print

import (
	"fmt"
	"strings"

	"github.com/SovereignSatellite/Spider/internal/luau/ast"
	"github.com/SovereignSatellite/Spider/internal/wasm"
)

// numOpCall renders a Wasm numeric op as a call into the type-specific
// runtime helper the printer's expr switch can't render as a native
// Luau operator (i32/i64/f32 always; f64 only for the ops nativeBinaryOp
// and nativeCompareOp don't cover).
func (p *printer) numOpCall(op wasm.NumOp, t wasm.ValueType, args ...ast.Expression) string {
	helper := fmt.Sprintf("%s_%s", typePrefix(t), numOpName(op))
	p.use(helper)
	strs := make([]string, len(args))
	for i, a := range args {
		strs[i] = p.expr(a)
	}
	return fmt.Sprintf("%s(%s)", helper, strings.Join(strs, ", "))
}

func typePrefix(t wasm.ValueType) string {
	switch t {
	case wasm.I32:
		return "i32"
	case wasm.I64:
		return "i64"
	case wasm.F32:
		return "f32"
	default:
		return "f64"
	}
}

func numOpName(op wasm.NumOp) string {
	switch op {
	case wasm.NumAdd:
		return "add"
	case wasm.NumSub:
		return "sub"
	case wasm.NumMul:
		return "mul"
	case wasm.NumDivS:
		return "div_s"
	case wasm.NumDivU:
		return "div_u"
	case wasm.NumRemS:
		return "rem_s"
	case wasm.NumRemU:
		return "rem_u"
	case wasm.NumAnd:
		return "and"
	case wasm.NumOr:
		return "or"
	case wasm.NumXor:
		return "xor"
	case wasm.NumShl:
		return "shl"
	case wasm.NumShrS:
		return "shr_s"
	case wasm.NumShrU:
		return "shr_u"
	case wasm.NumRotl:
		return "rotl"
	case wasm.NumRotr:
		return "rotr"
	case wasm.NumClz:
		return "clz"
	case wasm.NumCtz:
		return "ctz"
	case wasm.NumPopcnt:
		return "popcnt"
	case wasm.NumEqz:
		return "eqz"
	case wasm.NumEq:
		return "eq"
	case wasm.NumNe:
		return "ne"
	case wasm.NumLtS:
		return "lt_s"
	case wasm.NumLtU:
		return "lt_u"
	case wasm.NumGtS:
		return "gt_s"
	case wasm.NumGtU:
		return "gt_u"
	case wasm.NumLeS:
		return "le_s"
	case wasm.NumLeU:
		return "le_u"
	case wasm.NumGeS:
		return "ge_s"
	case wasm.NumGeU:
		return "ge_u"
	case wasm.NumAbs:
		return "abs"
	case wasm.NumNeg:
		return "neg"
	case wasm.NumCeil:
		return "ceil"
	case wasm.NumFloor:
		return "floor"
	case wasm.NumTrunc:
		return "trunc"
	case wasm.NumNearest:
		return "nearest"
	case wasm.NumSqrt:
		return "sqrt"
	case wasm.NumMin:
		return "min"
	case wasm.NumMax:
		return "max"
	case wasm.NumCopysign:
		return "copysign"
	case wasm.NumDiv:
		return "div"
	case wasm.NumLt:
		return "lt"
	case wasm.NumGt:
		return "gt"
	case wasm.NumLe:
		return "le"
	case wasm.NumGe:
		return "ge"
	default:
		return "op"
	}
}

func extendSuffix(op wasm.NumOp) string {
	switch op {
	case wasm.NumExtend16S:
		return "extend16_s"
	case wasm.NumExtend32S:
		return "extend32_s"
	default:
		return "extend8_s"
	}
}

func nativeBinaryOp(op wasm.NumOp) (string, bool) {
	switch op {
	case wasm.NumAdd:
		return "+", true
	case wasm.NumSub:
		return "-", true
	case wasm.NumMul:
		return "*", true
	case wasm.NumDiv:
		return "/", true
	default:
		return "", false
	}
}

func nativeCompareOp(op wasm.NumOp) (string, bool) {
	switch op {
	case wasm.NumEq:
		return "==", true
	case wasm.NumNe:
		return "~=", true
	case wasm.NumLt:
		return "<", true
	case wasm.NumGt:
		return ">", true
	case wasm.NumLe:
		return "<=", true
	case wasm.NumGe:
		return ">=", true
	default:
		return "", false
	}
}

func convertHelperName(signed bool, from, to wasm.ValueType) string {
	sign := "u"
	if signed {
		sign = "s"
	}
	return fmt.Sprintf("convert_%s_%s_%s", typePrefix(from), typePrefix(to), sign)
}

func truncHelperName(signed, saturate bool, from, to wasm.ValueType) string {
	sign := "u"
	if signed {
		sign = "s"
	}
	kind := "trunc"
	if saturate {
		kind = "trunc_sat"
	}
	return fmt.Sprintf("%s_%s_%s_%s", typePrefix(to), kind, typePrefix(from), sign)
}

func memoryLoadHelper(a wasm.AccessType) string {
	switch a {
	case wasm.AccessI32:
		return "load_i32"
	case wasm.AccessI64:
		return "load_i64"
	case wasm.AccessF32:
		return "load_f32"
	case wasm.AccessF64:
		return "load_f64"
	case wasm.AccessI32S8:
		return "load_i32_s8"
	case wasm.AccessI32U8:
		return "load_i32_u8"
	case wasm.AccessI32S16:
		return "load_i32_s16"
	case wasm.AccessI32U16:
		return "load_i32_u16"
	case wasm.AccessI64S8:
		return "load_i64_s8"
	case wasm.AccessI64U8:
		return "load_i64_u8"
	case wasm.AccessI64S16:
		return "load_i64_s16"
	case wasm.AccessI64U16:
		return "load_i64_u16"
	case wasm.AccessI64S32:
		return "load_i64_s32"
	case wasm.AccessI64U32:
		return "load_i64_u32"
	default:
		return "load_i32"
	}
}

func memoryStoreHelper(a wasm.AccessType) string {
	switch a {
	case wasm.AccessI32:
		return "store_i32"
	case wasm.AccessI64:
		return "store_i64"
	case wasm.AccessF32:
		return "store_f32"
	case wasm.AccessF64:
		return "store_f64"
	case wasm.AccessI32S8, wasm.AccessI32U8:
		return "store_i32_8"
	case wasm.AccessI32S16, wasm.AccessI32U16:
		return "store_i32_16"
	case wasm.AccessI64S8, wasm.AccessI64U8:
		return "store_i64_8"
	case wasm.AccessI64S16, wasm.AccessI64U16:
		return "store_i64_16"
	case wasm.AccessI64S32, wasm.AccessI64U32:
		return "store_i64_32"
	default:
		return "store_i32"
	}
}
