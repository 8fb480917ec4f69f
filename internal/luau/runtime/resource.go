package runtime

// resourceSnippets models each Wasm resource kind as a small Luau
// table wrapping the native primitive closest to it: buffer for linear
// memory (spec §6 "memory"), a plain array table for Wasm tables and
// element segments, buffer.fromstring for data segments.
var resourceSnippets = map[string]snippet{
	"global_new": {body: `local function global_new(init)
	return { value = init }
end`},
	"global_get": {body: `local function global_get(handle)
	return handle.value
end`},
	"global_set": {body: `local function global_set(handle, v)
	handle.value = v
end`},

	"table_new": {body: `local function table_new(init, minimum, maximum)
	local items = table.create(minimum, init)
	return { items = items, minimum = minimum, maximum = maximum }
end`},
	"table_get": {body: `local function table_get(handle, idx)
	return handle.items[idx + 1]
end`},
	"table_set": {body: `local function table_set(handle, idx, v)
	handle.items[idx + 1] = v
end`},
	"table_size": {body: `local function table_size(handle)
	return #handle.items
end`},
	"table_grow": {body: `local function table_grow(handle, init, delta)
	local old = #handle.items
	if handle.maximum ~= 0xFFFFFFFF and old + delta > handle.maximum then
		return 0xFFFFFFFF
	end
	for i = 1, delta do
		handle.items[old + i] = init
	end
	return old
end`},
	"table_fill": {body: `local function table_fill(handle, idx, v, size)
	for i = 0, size - 1 do
		handle.items[idx + i + 1] = v
	end
end`},
	"table_copy": {body: `local function table_copy(dst, dstOff, src, srcOff, size)
	if dst == src and dstOff > srcOff then
		for i = size - 1, 0, -1 do
			dst.items[dstOff + i + 1] = src.items[srcOff + i + 1]
		end
	else
		for i = 0, size - 1 do
			dst.items[dstOff + i + 1] = src.items[srcOff + i + 1]
		end
	end
end`},
	"table_init": {body: `local function table_init(dst, dstOff, elems, srcOff, size)
	for i = 0, size - 1 do
		dst.items[dstOff + i + 1] = elems.items[srcOff + i + 1]
	end
end`},

	"elements_new": {body: `local function elements_new(content)
	return { items = content }
end`},
	"elements_drop": {body: `local function elements_drop(handle)
	handle.items = {}
end`},

	"memory_new": {body: `local function memory_new(minimum, maximum)
	return { buf = buffer.create(minimum * 65536), minimum = minimum, maximum = maximum }
end`},
	"memory_size": {body: `local function memory_size(handle)
	return buffer.len(handle.buf) // 65536
end`},
	"memory_grow": {body: `local function memory_grow(handle, delta)
	local old = buffer.len(handle.buf) // 65536
	if handle.maximum ~= 0xFFFFFFFF and old + delta > handle.maximum then
		return 0xFFFFFFFF
	end
	local grown = buffer.create((old + delta) * 65536)
	buffer.copy(grown, 0, handle.buf, 0, buffer.len(handle.buf))
	handle.buf = grown
	return old
end`},
	"memory_fill": {body: `local function memory_fill(handle, addr, value, size)
	buffer.fill(handle.buf, addr, value, size)
end`},
	"memory_copy": {body: `local function memory_copy(dst, dstAddr, src, srcAddr, size)
	buffer.copy(dst.buf, dstAddr, src.buf, srcAddr, size)
end`},
	"memory_init": {body: `local function memory_init(dst, dstAddr, data, srcOff, size)
	buffer.copy(dst.buf, dstAddr, data.buf, srcOff, size)
end`},

	"data_new": {body: `local function data_new(bytes)
	return { buf = buffer.fromstring(bytes) }
end`},
	"data_drop": {body: `local function data_drop(handle)
	handle.buf = buffer.create(0)
end`},

	"load_i32": {body: `local function load_i32(handle, addr)
	return buffer.readu32(handle.buf, addr)
end`},
	"load_i32_s8": {body: `local function load_i32_s8(handle, addr)
	return bit32.band(buffer.readi8(handle.buf, addr), 0xFFFFFFFF)
end`},
	"load_i32_u8": {body: `local function load_i32_u8(handle, addr)
	return buffer.readu8(handle.buf, addr)
end`},
	"load_i32_s16": {body: `local function load_i32_s16(handle, addr)
	return bit32.band(buffer.readi16(handle.buf, addr), 0xFFFFFFFF)
end`},
	"load_i32_u16": {body: `local function load_i32_u16(handle, addr)
	return buffer.readu16(handle.buf, addr)
end`},
	"load_f32": {body: `local function load_f32(handle, addr)
	return buffer.readf32(handle.buf, addr)
end`},
	"load_f64": {body: `local function load_f64(handle, addr)
	return buffer.readf64(handle.buf, addr)
end`},
	"load_i64": {body: `local function load_i64(handle, addr)
	return i64(buffer.readu32(handle.buf, addr), buffer.readu32(handle.buf, addr + 4))
end`, deps: []string{"i64"}},
	"load_i64_s8": {body: `local function load_i64_s8(handle, addr)
	return extend_i32_s(bit32.band(buffer.readi8(handle.buf, addr), 0xFFFFFFFF))
end`, deps: []string{"extend_i32_s"}},
	"load_i64_u8": {body: `local function load_i64_u8(handle, addr)
	return extend_i32_u(buffer.readu8(handle.buf, addr))
end`, deps: []string{"extend_i32_u"}},
	"load_i64_s16": {body: `local function load_i64_s16(handle, addr)
	return extend_i32_s(bit32.band(buffer.readi16(handle.buf, addr), 0xFFFFFFFF))
end`, deps: []string{"extend_i32_s"}},
	"load_i64_u16": {body: `local function load_i64_u16(handle, addr)
	return extend_i32_u(buffer.readu16(handle.buf, addr))
end`, deps: []string{"extend_i32_u"}},
	"load_i64_s32": {body: `local function load_i64_s32(handle, addr)
	return extend_i32_s(buffer.readu32(handle.buf, addr))
end`, deps: []string{"extend_i32_s"}},
	"load_i64_u32": {body: `local function load_i64_u32(handle, addr)
	return extend_i32_u(buffer.readu32(handle.buf, addr))
end`, deps: []string{"extend_i32_u"}},

	"store_i32": {body: `local function store_i32(handle, addr, v)
	buffer.writeu32(handle.buf, addr, v)
end`},
	"store_i32_8": {body: `local function store_i32_8(handle, addr, v)
	buffer.writeu8(handle.buf, addr, bit32.band(v, 0xFF))
end`},
	"store_i32_16": {body: `local function store_i32_16(handle, addr, v)
	buffer.writeu16(handle.buf, addr, bit32.band(v, 0xFFFF))
end`},
	"store_f32": {body: `local function store_f32(handle, addr, v)
	buffer.writef32(handle.buf, addr, v)
end`},
	"store_f64": {body: `local function store_f64(handle, addr, v)
	buffer.writef64(handle.buf, addr, v)
end`},
	"store_i64": {body: `local function store_i64(handle, addr, v)
	buffer.writeu32(handle.buf, addr, v.lo)
	buffer.writeu32(handle.buf, addr + 4, v.hi)
end`},
	"store_i64_8": {body: `local function store_i64_8(handle, addr, v)
	buffer.writeu8(handle.buf, addr, bit32.band(v.lo, 0xFF))
end`},
	"store_i64_16": {body: `local function store_i64_16(handle, addr, v)
	buffer.writeu16(handle.buf, addr, bit32.band(v.lo, 0xFFFF))
end`},
	"store_i64_32": {body: `local function store_i64_32(handle, addr, v)
	buffer.writeu32(handle.buf, addr, v.lo)
end`},
}
