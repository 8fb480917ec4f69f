package runtime

// registry is assembled lazily from the per-concern tables below so each
// file can stay focused on one slice of the numeric/resource model.
func registry() map[string]snippet {
	reg := map[string]snippet{}
	addAll(reg, coreSnippets)
	addAll(reg, resourceSnippets)
	addAll(reg, arithSnippets())
	return reg
}

func addAll(dst map[string]snippet, src map[string]snippet) {
	for k, v := range src {
		dst[k] = v
	}
}

var coreSnippets = map[string]snippet{
	"trap": {body: `local function trap(message)
	error(message, 0)
end`},

	"i64": {body: `local function i64(lo, hi)
	return { lo = lo, hi = hi }
end`},

	"wrap_i64": {body: `local function wrap_i64(v)
	return v.lo
end`, deps: []string{"i64"}},

	"extend_i32_u": {body: `local function extend_i32_u(v)
	return i64(v, 0)
end`, deps: []string{"i64"}},

	"extend_i32_s": {body: `local function extend_i32_s(v)
	if v >= 0x80000000 then
		return i64(v, 0xFFFFFFFF)
	end
	return i64(v, 0)
end`, deps: []string{"i64"}},

	"i32_extend8_s": {body: `local function i32_extend8_s(v)
	local b = bit32.band(v, 0xFF)
	if b >= 0x80 then
		return bit32.bor(b, 0xFFFFFF00)
	end
	return b
end`},

	"i32_extend16_s": {body: `local function i32_extend16_s(v)
	local h = bit32.band(v, 0xFFFF)
	if h >= 0x8000 then
		return bit32.bor(h, 0xFFFF0000)
	end
	return h
end`},

	"i32_extend32_s": {body: `local function i32_extend32_s(v)
	return bit32.band(v, 0xFFFFFFFF)
end`},

	"i64_extend8_s": {body: `local function i64_extend8_s(v)
	return extend_i32_s(i32_extend8_s(v.lo))
end`, deps: []string{"i64", "extend_i32_s", "i32_extend8_s"}},

	"i64_extend16_s": {body: `local function i64_extend16_s(v)
	return extend_i32_s(i32_extend16_s(v.lo))
end`, deps: []string{"i64", "extend_i32_s", "i32_extend16_s"}},

	"i64_extend32_s": {body: `local function i64_extend32_s(v)
	return extend_i32_s(v.lo)
end`, deps: []string{"i64", "extend_i32_s"}},

	// f32_scratch/f64_scratch round-trip a value through a buffer to get
	// exact IEEE754 bit patterns: single-precision rounding for f32 ops,
	// and bit-for-bit reinterpretation between integers and floats.
	"__f32_scratch": {body: `local __f32_scratch = buffer.create(4)`},
	"__f64_scratch": {body: `local __f64_scratch = buffer.create(8)`},

	"round_f32": {body: `local function round_f32(v)
	buffer.writef32(__f32_scratch, 0, v)
	return buffer.readf32(__f32_scratch, 0)
end`, deps: []string{"__f32_scratch"}},

	"reinterpret_i32": {body: `local function reinterpret_i32(v)
	buffer.writeu32(__f32_scratch, 0, v)
	return buffer.readf32(__f32_scratch, 0)
end`, deps: []string{"__f32_scratch"}},

	"reinterpret_f32": {body: `local function reinterpret_f32(v)
	buffer.writef32(__f32_scratch, 0, v)
	return buffer.readu32(__f32_scratch, 0)
end`, deps: []string{"__f32_scratch"}},

	"reinterpret_i64": {body: `local function reinterpret_i64(v)
	buffer.writeu32(__f64_scratch, 0, v.lo)
	buffer.writeu32(__f64_scratch, 4, v.hi)
	return buffer.readf64(__f64_scratch, 0)
end`, deps: []string{"__f64_scratch", "i64"}},

	"reinterpret_f64": {body: `local function reinterpret_f64(v)
	buffer.writef64(__f64_scratch, 0, v)
	return i64(buffer.readu32(__f64_scratch, 0), buffer.readu32(__f64_scratch, 4))
end`, deps: []string{"__f64_scratch", "i64"}},

	"demote_f64": {body: `local function demote_f64(v)
	return round_f32(v)
end`, deps: []string{"round_f32"}},

	"promote_f32": {body: `local function promote_f32(v)
	return v
end`},

	"i32_to_signed": {body: `local function i32_to_signed(v)
	if v >= 0x80000000 then
		return v - 4294967296
	end
	return v
end`},

	"i64_to_number_u": {body: `local function i64_to_number_u(v)
	return v.lo + v.hi * 4294967296
end`, deps: []string{"i64"}},

	"i64_to_number": {body: `local function i64_to_number(v)
	local n = v.lo + v.hi * 4294967296
	if v.hi >= 0x80000000 then
		n = n - 18446744073709551616
	end
	return n
end`, deps: []string{"i64"}},

	"number_to_i64": {body: `local function number_to_i64(v)
	v = math.floor(v)
	if v < 0 then
		v = v + 18446744073709551616
	end
	local hi = math.floor(v / 4294967296)
	local lo = v - hi * 4294967296
	return i64(lo, bit32.band(hi, 0xFFFFFFFF))
end`, deps: []string{"i64"}},
}
