package runtime

import "fmt"

// convertSnippets and truncSnippets cover wasm's int<->float conversion
// opcodes. A float value is always a plain Luau double at this point
// (f32 values already round-tripped through round_f32), so the only
// thing that varies between an f32-sourced and f64-sourced conversion
// is the helper's name, never its body.
func init() {
	addAll(coreSnippets, convertSnippets())
	addAll(coreSnippets, truncSnippets())
}

func convertSnippets() map[string]snippet {
	reg := map[string]snippet{}

	reg["convert_i32_f64_u"] = snippet{body: `local function convert_i32_f64_u(v)
	return v
end`}
	reg["convert_i32_f64_s"] = snippet{body: `local function convert_i32_f64_s(v)
	return i32_to_signed(v)
end`, deps: []string{"i32_to_signed"}}
	reg["convert_i32_f32_u"] = snippet{body: `local function convert_i32_f32_u(v)
	return round_f32(v)
end`, deps: []string{"round_f32"}}
	reg["convert_i32_f32_s"] = snippet{body: `local function convert_i32_f32_s(v)
	return round_f32(i32_to_signed(v))
end`, deps: []string{"round_f32", "i32_to_signed"}}

	reg["convert_i64_f64_u"] = snippet{body: `local function convert_i64_f64_u(v)
	return i64_to_number_u(v)
end`, deps: []string{"i64_to_number_u"}}
	reg["convert_i64_f64_s"] = snippet{body: `local function convert_i64_f64_s(v)
	return i64_to_number(v)
end`, deps: []string{"i64_to_number"}}
	reg["convert_i64_f32_u"] = snippet{body: `local function convert_i64_f32_u(v)
	return round_f32(i64_to_number_u(v))
end`, deps: []string{"round_f32", "i64_to_number_u"}}
	reg["convert_i64_f32_s"] = snippet{body: `local function convert_i64_f32_s(v)
	return round_f32(i64_to_number(v))
end`, deps: []string{"round_f32", "i64_to_number"}}

	return reg
}

// truncSnippets builds the 16 {i32,i64} x {f32,f64} x {s,u} x
// {trunc,trunc_sat} helper names. Two names always share one body (the
// f32-sourced and f64-sourced variants), since by the time a trunc runs
// its source is already a plain Luau double either way.
func truncSnippets() map[string]snippet {
	reg := map[string]snippet{}
	for _, to := range []string{"i32", "i64"} {
		for _, sign := range []string{"s", "u"} {
			for _, sat := range []bool{false, true} {
				body, deps := truncBody(to, sign, sat)
				kind := "trunc"
				if sat {
					kind = "trunc_sat"
				}
				for _, from := range []string{"f32", "f64"} {
					name := fmt.Sprintf("%s_%s_%s_%s", to, kind, from, sign)
					reg[name] = snippet{body: fmt.Sprintf(body, name), deps: deps}
				}
			}
		}
	}
	return reg
}

func truncBody(to, sign string, sat bool) (string, []string) {
	var limitLo, limitHi string
	switch {
	case to == "i32" && sign == "s":
		limitLo, limitHi = "-2147483648", "2147483647"
	case to == "i32" && sign == "u":
		limitLo, limitHi = "0", "4294967295"
	case to == "i64" && sign == "s":
		limitLo, limitHi = "-9223372036854775808", "9223372036854775807"
	default:
		limitLo, limitHi = "0", "18446744073709551615"
	}

	toI64 := to == "i64"
	var deps []string
	var toInt string
	if toI64 {
		toInt = "number_to_i64(t)"
		deps = append(deps, "number_to_i64")
	} else if sign == "s" {
		toInt = "bit32.band(t, 0xFFFFFFFF)"
	} else {
		toInt = "bit32.band(t, 0xFFFFFFFF)"
	}

	if sat {
		zero := "0"
		if toI64 {
			zero = "i64(0, 0)"
			deps = append(deps, "i64")
		}
		body := fmt.Sprintf(`local function %%s(v)
	if v ~= v then
		return %s
	end
	local t = v
	if t < %s then
		t = %s
	elseif t > %s then
		t = %s
	else
		if t >= 0 then t = math.floor(t) else t = math.ceil(t) end
	end
	return %s
end`, zero, limitLo, limitLo, limitHi, limitHi, toInt)
		return body, dedupe(deps)
	}

	body := fmt.Sprintf(`local function %%s(v)
	if v ~= v or v < %s or v > %s then
		trap("integer overflow")
	end
	local t = v
	if t >= 0 then t = math.floor(t) else t = math.ceil(t) end
	return %s
end`, limitLo, limitHi, toInt)
	deps = append(deps, "trap")
	return body, dedupe(deps)
}

func dedupe(deps []string) []string {
	seen := map[string]bool{}
	out := make([]string, 0, len(deps))
	for _, d := range deps {
		if seen[d] {
			continue
		}
		seen[d] = true
		out = append(out, d)
	}
	return out
}
