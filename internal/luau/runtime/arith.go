package runtime

// arithSnippets covers the i32/i64/f32/f64 unary/binary/compare families
// (spec §3's NumOp vocabulary). i32 values are plain Luau numbers held as
// an unsigned 0..2^32-1 magnitude; i64 values are {lo,hi} records of two
// such words. bit32's native lrotate/rrotate/countlz/countrz back the
// rotate/clz/ctz ops directly rather than hand-rolled loops.
func arithSnippets() map[string]snippet {
	reg := map[string]snippet{}
	addAll(reg, i32Snippets)
	addAll(reg, i64Snippets)
	addAll(reg, f32Snippets)
	addAll(reg, f64Snippets)
	return reg
}

var i32Snippets = map[string]snippet{
	"i32_add": {body: `local function i32_add(a, b)
	return bit32.band(a + b, 0xFFFFFFFF)
end`},
	"i32_sub": {body: `local function i32_sub(a, b)
	return bit32.band(a - b, 0xFFFFFFFF)
end`},
	"i32_mul": {body: `local function i32_mul(a, b)
	local alo, ahi = bit32.band(a, 0xFFFF), bit32.rshift(a, 16)
	local blo, bhi = bit32.band(b, 0xFFFF), bit32.rshift(b, 16)
	return bit32.band(alo * blo + bit32.lshift(alo * bhi + ahi * blo, 16), 0xFFFFFFFF)
end`},
	"i32_div_u": {body: `local function i32_div_u(a, b)
	if b == 0 then
		trap("integer divide by zero")
	end
	return bit32.band(math.floor(a / b), 0xFFFFFFFF)
end`, deps: []string{"trap"}},
	"i32_div_s": {body: `local function i32_div_s(a, b)
	if b == 0 then
		trap("integer divide by zero")
	end
	local as, bs = i32_to_signed(a), i32_to_signed(b)
	if bs == -1 and as == -2147483648 then
		trap("integer overflow")
	end
	local q = as / bs
	if q >= 0 then q = math.floor(q) else q = math.ceil(q) end
	return bit32.band(q, 0xFFFFFFFF)
end`, deps: []string{"trap", "i32_to_signed"}},
	"i32_rem_u": {body: `local function i32_rem_u(a, b)
	if b == 0 then
		trap("integer divide by zero")
	end
	return a - math.floor(a / b) * b
end`, deps: []string{"trap"}},
	"i32_rem_s": {body: `local function i32_rem_s(a, b)
	if b == 0 then
		trap("integer divide by zero")
	end
	local as, bs = i32_to_signed(a), i32_to_signed(b)
	local q = as / bs
	if q >= 0 then q = math.floor(q) else q = math.ceil(q) end
	return bit32.band(as - q * bs, 0xFFFFFFFF)
end`, deps: []string{"trap", "i32_to_signed"}},
	"i32_and": {body: `local function i32_and(a, b)
	return bit32.band(a, b)
end`},
	"i32_or": {body: `local function i32_or(a, b)
	return bit32.bor(a, b)
end`},
	"i32_xor": {body: `local function i32_xor(a, b)
	return bit32.bxor(a, b)
end`},
	"i32_shl": {body: `local function i32_shl(a, b)
	return bit32.lshift(a, b % 32)
end`},
	"i32_shr_u": {body: `local function i32_shr_u(a, b)
	return bit32.rshift(a, b % 32)
end`},
	"i32_shr_s": {body: `local function i32_shr_s(a, b)
	return bit32.arshift(a, b % 32)
end`},
	"i32_rotl": {body: `local function i32_rotl(a, b)
	return bit32.lrotate(a, b % 32)
end`},
	"i32_rotr": {body: `local function i32_rotr(a, b)
	return bit32.rrotate(a, b % 32)
end`},
	"i32_clz": {body: `local function i32_clz(v)
	return bit32.countlz(v)
end`},
	"i32_ctz": {body: `local function i32_ctz(v)
	return bit32.countrz(v)
end`},
	"i32_popcnt": {body: `local function i32_popcnt(v)
	local n, x = 0, v
	while x ~= 0 do
		x = bit32.band(x, x - 1)
		n = n + 1
	end
	return n
end`},
	"i32_eqz": {body: `local function i32_eqz(v)
	return v == 0 and 1 or 0
end`},
	"i32_eq": {body: `local function i32_eq(a, b)
	return a == b and 1 or 0
end`},
	"i32_ne": {body: `local function i32_ne(a, b)
	return a ~= b and 1 or 0
end`},
	"i32_lt_u": {body: `local function i32_lt_u(a, b)
	return a < b and 1 or 0
end`},
	"i32_gt_u": {body: `local function i32_gt_u(a, b)
	return a > b and 1 or 0
end`},
	"i32_le_u": {body: `local function i32_le_u(a, b)
	return a <= b and 1 or 0
end`},
	"i32_ge_u": {body: `local function i32_ge_u(a, b)
	return a >= b and 1 or 0
end`},
	"i32_lt_s": {body: `local function i32_lt_s(a, b)
	return i32_to_signed(a) < i32_to_signed(b) and 1 or 0
end`, deps: []string{"i32_to_signed"}},
	"i32_gt_s": {body: `local function i32_gt_s(a, b)
	return i32_to_signed(a) > i32_to_signed(b) and 1 or 0
end`, deps: []string{"i32_to_signed"}},
	"i32_le_s": {body: `local function i32_le_s(a, b)
	return i32_to_signed(a) <= i32_to_signed(b) and 1 or 0
end`, deps: []string{"i32_to_signed"}},
	"i32_ge_s": {body: `local function i32_ge_s(a, b)
	return i32_to_signed(a) >= i32_to_signed(b) and 1 or 0
end`, deps: []string{"i32_to_signed"}},
}

var i64Snippets = map[string]snippet{
	"i64_add": {body: `local function i64_add(a, b)
	local lo, carry = a.lo + b.lo, 0
	if lo >= 4294967296 then
		lo, carry = lo - 4294967296, 1
	end
	return i64(lo, bit32.band(a.hi + b.hi + carry, 0xFFFFFFFF))
end`, deps: []string{"i64"}},
	"i64_sub": {body: `local function i64_sub(a, b)
	local lo, borrow = a.lo - b.lo, 0
	if lo < 0 then
		lo, borrow = lo + 4294967296, 1
	end
	return i64(lo, bit32.band(a.hi - b.hi - borrow, 0xFFFFFFFF))
end`, deps: []string{"i64"}},
	"i64_mul": {body: `local function i64_mul(a, b)
	local alo0, alo1 = bit32.band(a.lo, 0xFFFF), bit32.rshift(a.lo, 16)
	local ahi0, ahi1 = bit32.band(a.hi, 0xFFFF), bit32.rshift(a.hi, 16)
	local blo0, blo1 = bit32.band(b.lo, 0xFFFF), bit32.rshift(b.lo, 16)
	local bhi0, bhi1 = bit32.band(b.hi, 0xFFFF), bit32.rshift(b.hi, 16)

	local w0 = alo0 * blo0
	local c = math.floor(w0 / 65536)
	w0 = w0 % 65536

	local w1 = alo0 * blo1 + alo1 * blo0 + c
	c = math.floor(w1 / 65536)
	w1 = w1 % 65536

	local w2 = alo1 * blo1 + alo0 * bhi0 + ahi0 * blo0 + c
	c = math.floor(w2 / 65536)
	w2 = w2 % 65536

	local w3 = (alo0 * bhi1 + alo1 * bhi0 + ahi0 * blo1 + ahi1 * blo0 + c) % 65536

	local lo = w0 + w1 * 65536
	local hi = w2 + w3 * 65536
	return i64(lo, hi)
end`, deps: []string{"i64"}},
	"i64_div_u": {body: `local function i64_div_u(a, b)
	if b.lo == 0 and b.hi == 0 then
		trap("integer divide by zero")
	end
	return number_to_i64(math.floor(i64_to_number_u(a) / i64_to_number_u(b)))
end`, deps: []string{"trap", "number_to_i64", "i64_to_number_u"}},
	"i64_div_s": {body: `local function i64_div_s(a, b)
	if b.lo == 0 and b.hi == 0 then
		trap("integer divide by zero")
	end
	local as, bs = i64_to_number(a), i64_to_number(b)
	local q = as / bs
	if q >= 0 then q = math.floor(q) else q = math.ceil(q) end
	return number_to_i64(q)
end`, deps: []string{"trap", "number_to_i64", "i64_to_number"}},
	"i64_rem_u": {body: `local function i64_rem_u(a, b)
	if b.lo == 0 and b.hi == 0 then
		trap("integer divide by zero")
	end
	local an, bn = i64_to_number_u(a), i64_to_number_u(b)
	return number_to_i64(an - math.floor(an / bn) * bn)
end`, deps: []string{"trap", "number_to_i64", "i64_to_number_u"}},
	"i64_rem_s": {body: `local function i64_rem_s(a, b)
	if b.lo == 0 and b.hi == 0 then
		trap("integer divide by zero")
	end
	local an, bn = i64_to_number(a), i64_to_number(b)
	local q = an / bn
	if q >= 0 then q = math.floor(q) else q = math.ceil(q) end
	return number_to_i64(an - q * bn)
end`, deps: []string{"trap", "number_to_i64", "i64_to_number"}},
	"i64_and": {body: `local function i64_and(a, b)
	return i64(bit32.band(a.lo, b.lo), bit32.band(a.hi, b.hi))
end`, deps: []string{"i64"}},
	"i64_or": {body: `local function i64_or(a, b)
	return i64(bit32.bor(a.lo, b.lo), bit32.bor(a.hi, b.hi))
end`, deps: []string{"i64"}},
	"i64_xor": {body: `local function i64_xor(a, b)
	return i64(bit32.bxor(a.lo, b.lo), bit32.bxor(a.hi, b.hi))
end`, deps: []string{"i64"}},
	"i64_shl": {body: `local function i64_shl(a, b)
	local n = b.lo % 64
	if n == 0 then
		return i64(a.lo, a.hi)
	elseif n < 32 then
		return i64(bit32.lshift(a.lo, n), bit32.band(bit32.bor(bit32.lshift(a.hi, n), bit32.rshift(a.lo, 32 - n)), 0xFFFFFFFF))
	else
		return i64(0, bit32.band(bit32.lshift(a.lo, n - 32), 0xFFFFFFFF))
	end
end`, deps: []string{"i64"}},
	"i64_shr_u": {body: `local function i64_shr_u(a, b)
	local n = b.lo % 64
	if n == 0 then
		return i64(a.lo, a.hi)
	elseif n < 32 then
		return i64(bit32.band(bit32.bor(bit32.rshift(a.lo, n), bit32.lshift(a.hi, 32 - n)), 0xFFFFFFFF), bit32.rshift(a.hi, n))
	else
		return i64(bit32.rshift(a.hi, n - 32), 0)
	end
end`, deps: []string{"i64"}},
	"i64_shr_s": {body: `local function i64_shr_s(a, b)
	local n = b.lo % 64
	if n == 0 then
		return i64(a.lo, a.hi)
	elseif n < 32 then
		return i64(bit32.band(bit32.bor(bit32.rshift(a.lo, n), bit32.lshift(a.hi, 32 - n)), 0xFFFFFFFF), bit32.arshift(a.hi, n))
	else
		return i64(bit32.arshift(a.hi, math.min(n - 32, 31)), bit32.band(bit32.arshift(a.hi, 31), 0xFFFFFFFF))
	end
end`, deps: []string{"i64"}},
	"i64_rotl": {body: `local function i64_rotl(a, b)
	local n = b.lo % 64
	local left = i64_shl(a, i64(n, 0))
	local right = i64_shr_u(a, i64(64 - n, 0))
	if n == 0 then
		return i64(a.lo, a.hi)
	end
	return i64_or(left, right)
end`, deps: []string{"i64", "i64_shl", "i64_shr_u", "i64_or"}},
	"i64_rotr": {body: `local function i64_rotr(a, b)
	local n = b.lo % 64
	if n == 0 then
		return i64(a.lo, a.hi)
	end
	local right = i64_shr_u(a, i64(n, 0))
	local left = i64_shl(a, i64(64 - n, 0))
	return i64_or(left, right)
end`, deps: []string{"i64", "i64_shl", "i64_shr_u", "i64_or"}},
	"i64_clz": {body: `local function i64_clz(v)
	if v.hi ~= 0 then
		return bit32.countlz(v.hi)
	end
	return 32 + bit32.countlz(v.lo)
end`},
	"i64_ctz": {body: `local function i64_ctz(v)
	if v.lo ~= 0 then
		return bit32.countrz(v.lo)
	end
	return 32 + bit32.countrz(v.hi)
end`},
	"i64_popcnt": {body: `local function i64_popcnt(v)
	return i32_popcnt(v.lo) + i32_popcnt(v.hi)
end`, deps: []string{"i32_popcnt"}},
	"i64_eqz": {body: `local function i64_eqz(v)
	return (v.lo == 0 and v.hi == 0) and 1 or 0
end`},
	"i64_eq": {body: `local function i64_eq(a, b)
	return (a.lo == b.lo and a.hi == b.hi) and 1 or 0
end`},
	"i64_ne": {body: `local function i64_ne(a, b)
	return (a.lo ~= b.lo or a.hi ~= b.hi) and 1 or 0
end`},
	"i64_lt_u": {body: `local function i64_lt_u(a, b)
	if a.hi ~= b.hi then return a.hi < b.hi and 1 or 0 end
	return a.lo < b.lo and 1 or 0
end`},
	"i64_gt_u": {body: `local function i64_gt_u(a, b)
	if a.hi ~= b.hi then return a.hi > b.hi and 1 or 0 end
	return a.lo > b.lo and 1 or 0
end`},
	"i64_le_u": {body: `local function i64_le_u(a, b)
	if a.hi ~= b.hi then return a.hi < b.hi and 1 or 0 end
	return a.lo <= b.lo and 1 or 0
end`},
	"i64_ge_u": {body: `local function i64_ge_u(a, b)
	if a.hi ~= b.hi then return a.hi > b.hi and 1 or 0 end
	return a.lo >= b.lo and 1 or 0
end`},
	"i64_lt_s": {body: `local function i64_lt_s(a, b)
	return i64_to_number(a) < i64_to_number(b) and 1 or 0
end`, deps: []string{"i64_to_number"}},
	"i64_gt_s": {body: `local function i64_gt_s(a, b)
	return i64_to_number(a) > i64_to_number(b) and 1 or 0
end`, deps: []string{"i64_to_number"}},
	"i64_le_s": {body: `local function i64_le_s(a, b)
	return i64_to_number(a) <= i64_to_number(b) and 1 or 0
end`, deps: []string{"i64_to_number"}},
	"i64_ge_s": {body: `local function i64_ge_s(a, b)
	return i64_to_number(a) >= i64_to_number(b) and 1 or 0
end`, deps: []string{"i64_to_number"}},
}

var f32Snippets = map[string]snippet{
	"f32_abs": {body: `local function f32_abs(v)
	return math.abs(v)
end`},
	"f32_neg": {body: `local function f32_neg(v)
	return -v
end`},
	"f32_ceil": {body: `local function f32_ceil(v)
	return math.ceil(v)
end`},
	"f32_floor": {body: `local function f32_floor(v)
	return math.floor(v)
end`},
	"f32_trunc": {body: `local function f32_trunc(v)
	if v >= 0 then return math.floor(v) end
	return math.ceil(v)
end`},
	"f32_nearest": {body: `local function f32_nearest(v)
	return math.round(v)
end`},
	"f32_sqrt": {body: `local function f32_sqrt(v)
	return round_f32(math.sqrt(v))
end`, deps: []string{"round_f32"}},
	"f32_add": {body: `local function f32_add(a, b)
	return round_f32(a + b)
end`, deps: []string{"round_f32"}},
	"f32_sub": {body: `local function f32_sub(a, b)
	return round_f32(a - b)
end`, deps: []string{"round_f32"}},
	"f32_mul": {body: `local function f32_mul(a, b)
	return round_f32(a * b)
end`, deps: []string{"round_f32"}},
	"f32_div": {body: `local function f32_div(a, b)
	return round_f32(a / b)
end`, deps: []string{"round_f32"}},
	"f32_min": {body: `local function f32_min(a, b)
	if a ~= a then return a end
	if b ~= b then return b end
	return math.min(a, b)
end`},
	"f32_max": {body: `local function f32_max(a, b)
	if a ~= a then return a end
	if b ~= b then return b end
	return math.max(a, b)
end`},
	"f32_copysign": {body: `local function f32_copysign(a, b)
	if b < 0 or (b == 0 and 1 / b < 0) then
		return -math.abs(a)
	end
	return math.abs(a)
end`},
	"f32_eq": {body: `local function f32_eq(a, b)
	return a == b and 1 or 0
end`},
	"f32_ne": {body: `local function f32_ne(a, b)
	return a ~= b and 1 or 0
end`},
	"f32_lt": {body: `local function f32_lt(a, b)
	return a < b and 1 or 0
end`},
	"f32_gt": {body: `local function f32_gt(a, b)
	return a > b and 1 or 0
end`},
	"f32_le": {body: `local function f32_le(a, b)
	return a <= b and 1 or 0
end`},
	"f32_ge": {body: `local function f32_ge(a, b)
	return a >= b and 1 or 0
end`},
}

var f64Snippets = map[string]snippet{
	"f64_abs": {body: `local function f64_abs(v)
	return math.abs(v)
end`},
	"f64_neg": {body: `local function f64_neg(v)
	return -v
end`},
	"f64_ceil": {body: `local function f64_ceil(v)
	return math.ceil(v)
end`},
	"f64_floor": {body: `local function f64_floor(v)
	return math.floor(v)
end`},
	"f64_trunc": {body: `local function f64_trunc(v)
	if v >= 0 then return math.floor(v) end
	return math.ceil(v)
end`},
	"f64_nearest": {body: `local function f64_nearest(v)
	return math.round(v)
end`},
	"f64_sqrt": {body: `local function f64_sqrt(v)
	return math.sqrt(v)
end`},
	"f64_min": {body: `local function f64_min(a, b)
	if a ~= a then return a end
	if b ~= b then return b end
	return math.min(a, b)
end`},
	"f64_max": {body: `local function f64_max(a, b)
	if a ~= a then return a end
	if b ~= b then return b end
	return math.max(a, b)
end`},
	"f64_copysign": {body: `local function f64_copysign(a, b)
	if b < 0 or (b == 0 and 1 / b < 0) then
		return -math.abs(a)
	end
	return math.abs(a)
end`},
}
