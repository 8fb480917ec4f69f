package print

import (
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/SovereignSatellite/Spider/internal/luau/ast"
	"github.com/SovereignSatellite/Spider/internal/wasm"
)

func TestModuleRendersHeaderBodyAndExports(t *testing.T) {
	v0 := ast.Name{ID: 0}
	mod := &ast.Module{
		Environment: ast.Name{ID: 1},
		Code: ast.Sequence{List: []ast.Statement{
			&ast.FastDefine{Name: v0, Source: ast.I32{Value: 42}},
		}},
		Exports: []ast.Export{
			{Identifier: "answer", Source: ast.LocalExpr{Local: ast.Local{Fast: true, Name: v0}}},
		},
	}

	out := Module(mod)

	assert.Contains(t, out, "return function(v1)")
	assert.Contains(t, out, "local v0 = 42")
	assert.Contains(t, out, `__exports["answer"] = v0`)
	assert.Contains(t, out, "return __exports")
}

func TestMatchStmtRendersIfElseifChain(t *testing.T) {
	p := &printer{used: map[string]bool{}}
	p.sb = &strings.Builder{}

	n := &ast.MatchStmt{
		Condition: ast.LocalExpr{Local: ast.Local{Fast: true, Name: ast.Name{ID: 2}}},
		Branches: []ast.Sequence{
			{List: []ast.Statement{&ast.FastDefine{Name: ast.Name{ID: 3}, Source: ast.I32{Value: 1}}}},
			{List: []ast.Statement{&ast.FastDefine{Name: ast.Name{ID: 3}, Source: ast.I32{Value: 2}}}},
		},
	}
	p.statement(n)

	out := p.sb.String()
	assert.Contains(t, out, "if v2 == 0 then")
	assert.Contains(t, out, "elseif v2 == 1 then")
	assert.Contains(t, out, "end")
}

func TestRepeatNegatesCondition(t *testing.T) {
	p := &printer{used: map[string]bool{}}
	p.sb = &strings.Builder{}

	n := &ast.Repeat{
		Code:      ast.Sequence{},
		Post:      ast.AssignAll{},
		Condition: ast.LocalExpr{Local: ast.Local{Fast: true, Name: ast.Name{ID: 5}}},
	}
	p.repeat(n)

	out := p.sb.String()
	assert.Contains(t, out, "repeat")
	assert.Contains(t, out, "until not (v5)")
}

func TestI64LiteralSplitsLoAndHiWords(t *testing.T) {
	p := &printer{used: map[string]bool{}}
	out := p.expr(ast.I64{Value: -1})
	assert.Equal(t, "i64(4294967295, 4294967295)", out)
	assert.True(t, p.used["i64"])
}

func TestFormatFloatSpecialCases(t *testing.T) {
	assert.Equal(t, "(0/0)", formatFloat(math.NaN()))
	assert.Equal(t, "math.huge", formatFloat(math.Inf(1)))
	assert.Equal(t, "-math.huge", formatFloat(math.Inf(-1)))
	assert.Equal(t, "1.5", formatFloat(1.5))
}

func TestQuoteBytesEscapesControlCharacters(t *testing.T) {
	out := quoteBytes([]byte{'a', 0, '"', '\\'})
	assert.Equal(t, `"a\0\"\\"`, out)
}

func TestNativeBinaryOpUsedForF64(t *testing.T) {
	p := &printer{used: map[string]bool{}}
	lhs := ast.LocalExpr{Local: ast.Local{Fast: true, Name: ast.Name{ID: 6}}}
	rhs := ast.LocalExpr{Local: ast.Local{Fast: true, Name: ast.Name{ID: 7}}}
	n := &ast.NumberBinaryOperation{Lhs: lhs, Rhs: rhs, Type: wasm.F64, Op: wasm.NumAdd}

	out := p.expr(n)
	assert.Equal(t, "(v6 + v7)", out)
	assert.False(t, p.used["f64_add"])
}

func TestF32BinaryAlwaysGoesThroughHelper(t *testing.T) {
	p := &printer{used: map[string]bool{}}
	lhs := ast.LocalExpr{Local: ast.Local{Fast: true, Name: ast.Name{ID: 6}}}
	rhs := ast.LocalExpr{Local: ast.Local{Fast: true, Name: ast.Name{ID: 7}}}
	n := &ast.NumberBinaryOperation{Lhs: lhs, Rhs: rhs, Type: wasm.F32, Op: wasm.NumAdd}

	out := p.expr(n)
	assert.Equal(t, "f32_add(v6, v7)", out)
	assert.True(t, p.used["f32_add"])
}
