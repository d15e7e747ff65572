// Package wasmgen assembles small WebAssembly binaries in memory.
// It covers what test modules need: function imports and bodies, one
// memory, i32 globals, exports and active data segments.
package wasmgen

import (
	"bytes"
	"fmt"
)

// ValType is a wasm value type
type ValType byte

const (
	I32 ValType = 0x7f
	I64 ValType = 0x7e
)

const (
	magic   = "\x00asm"
	version = "\x01\x00\x00\x00"

	sectionType     = 1
	sectionImport   = 2
	sectionFunction = 3
	sectionMemory   = 5
	sectionGlobal   = 6
	sectionExport   = 7
	sectionCode     = 10
	sectionData     = 11

	kindFunc   = 0x00
	kindMemory = 0x02
	kindGlobal = 0x03

	funcTypeByte = 0x60
)

// FuncType is a function signature
type FuncType struct {
	Params  []ValType
	Results []ValType
}

// Sig builds a FuncType from params and results
func Sig(params []ValType, results ...ValType) FuncType {
	return FuncType{Params: params, Results: results}
}

func (t FuncType) key() string {
	return string(valBytes(t.Params)) + "|" + string(valBytes(t.Results))
}

func valBytes(vs []ValType) []byte {
	b := make([]byte, len(vs))
	for i, v := range vs {
		b[i] = byte(v)
	}
	return b
}

type funcImport struct {
	module, name string
	typeIdx      uint32
}

type function struct {
	typeIdx uint32
	locals  []ValType
	body    []byte
}

type global struct {
	typ     ValType
	mutable bool
	init    int32
}

type export struct {
	name string
	kind byte
	idx  uint32
}

type segment struct {
	offset uint32
	data   []byte
}

// Module accumulates the contents of a wasm module.
// Function imports must be declared before any function is defined.
type Module struct {
	types     []FuncType
	typeIndex map[string]uint32
	imports   []funcImport
	funcs     []function
	globals   []global
	exports   []export
	data      []segment
	memMin    uint32
	memMax    uint32
	hasMemory bool
	hasMax    bool
}

// New creates an empty module
func New() *Module {
	return &Module{typeIndex: make(map[string]uint32)}
}

func (m *Module) typeOf(ft FuncType) uint32 {
	if idx, ok := m.typeIndex[ft.key()]; ok {
		return idx
	}
	idx := uint32(len(m.types))
	m.types = append(m.types, ft)
	m.typeIndex[ft.key()] = idx
	return idx
}

// ImportFunc declares a function import and returns its function index
func (m *Module) ImportFunc(module, name string, ft FuncType) uint32 {
	if len(m.funcs) > 0 {
		panic(fmt.Sprintf("wasmgen: import %s.%s declared after a function body", module, name))
	}
	m.imports = append(m.imports, funcImport{module: module, name: name, typeIdx: m.typeOf(ft)})
	return uint32(len(m.imports) - 1)
}

// Func defines a function and returns its index. A non-empty name exports it.
func (m *Module) Func(name string, ft FuncType, locals []ValType, body *Code) uint32 {
	m.funcs = append(m.funcs, function{typeIdx: m.typeOf(ft), locals: locals, body: body.Bytes()})
	idx := uint32(len(m.imports) + len(m.funcs) - 1)
	if name != "" {
		m.exports = append(m.exports, export{name: name, kind: kindFunc, idx: idx})
	}
	return idx
}

// Memory declares the module's memory with minPages pages and exports it as
// name. A zero maxPages leaves the memory unbounded.
func (m *Module) Memory(name string, minPages, maxPages uint32) {
	m.hasMemory = true
	m.memMin, m.memMax, m.hasMax = minPages, maxPages, maxPages > 0
	if name != "" {
		m.exports = append(m.exports, export{name: name, kind: kindMemory})
	}
}

// Global declares an i32 global and returns its index
func (m *Module) Global(name string, mutable bool, init int32) uint32 {
	m.globals = append(m.globals, global{typ: I32, mutable: mutable, init: init})
	idx := uint32(len(m.globals) - 1)
	if name != "" {
		m.exports = append(m.exports, export{name: name, kind: kindGlobal, idx: idx})
	}
	return idx
}

// Data places b at offset in memory on instantiation
func (m *Module) Data(offset uint32, b []byte) {
	m.data = append(m.data, segment{offset: offset, data: append([]byte(nil), b...)})
}

// Encode renders the module in the wasm binary format
func (m *Module) Encode() []byte {
	var w bytes.Buffer
	w.WriteString(magic)
	w.WriteString(version)

	if len(m.types) > 0 {
		var sec bytes.Buffer
		writeU32(&sec, uint32(len(m.types)))
		for _, ft := range m.types {
			sec.WriteByte(funcTypeByte)
			writeValTypes(&sec, ft.Params)
			writeValTypes(&sec, ft.Results)
		}
		writeSection(&w, sectionType, sec.Bytes())
	}

	if len(m.imports) > 0 {
		var sec bytes.Buffer
		writeU32(&sec, uint32(len(m.imports)))
		for _, imp := range m.imports {
			writeName(&sec, imp.module)
			writeName(&sec, imp.name)
			sec.WriteByte(kindFunc)
			writeU32(&sec, imp.typeIdx)
		}
		writeSection(&w, sectionImport, sec.Bytes())
	}

	if len(m.funcs) > 0 {
		var sec bytes.Buffer
		writeU32(&sec, uint32(len(m.funcs)))
		for _, f := range m.funcs {
			writeU32(&sec, f.typeIdx)
		}
		writeSection(&w, sectionFunction, sec.Bytes())
	}

	if m.hasMemory {
		var sec bytes.Buffer
		writeU32(&sec, 1)
		if m.hasMax {
			sec.WriteByte(0x01)
			writeU32(&sec, m.memMin)
			writeU32(&sec, m.memMax)
		} else {
			sec.WriteByte(0x00)
			writeU32(&sec, m.memMin)
		}
		writeSection(&w, sectionMemory, sec.Bytes())
	}

	if len(m.globals) > 0 {
		var sec bytes.Buffer
		writeU32(&sec, uint32(len(m.globals)))
		for _, g := range m.globals {
			sec.WriteByte(byte(g.typ))
			if g.mutable {
				sec.WriteByte(0x01)
			} else {
				sec.WriteByte(0x00)
			}
			sec.WriteByte(opI32Const)
			writeS32(&sec, g.init)
			sec.WriteByte(opEnd)
		}
		writeSection(&w, sectionGlobal, sec.Bytes())
	}

	if len(m.exports) > 0 {
		var sec bytes.Buffer
		writeU32(&sec, uint32(len(m.exports)))
		for _, e := range m.exports {
			writeName(&sec, e.name)
			sec.WriteByte(e.kind)
			writeU32(&sec, e.idx)
		}
		writeSection(&w, sectionExport, sec.Bytes())
	}

	if len(m.funcs) > 0 {
		var sec bytes.Buffer
		writeU32(&sec, uint32(len(m.funcs)))
		for _, f := range m.funcs {
			var body bytes.Buffer
			writeLocals(&body, f.locals)
			body.Write(f.body)
			body.WriteByte(opEnd)
			writeU32(&sec, uint32(body.Len()))
			sec.Write(body.Bytes())
		}
		writeSection(&w, sectionCode, sec.Bytes())
	}

	if len(m.data) > 0 {
		var sec bytes.Buffer
		writeU32(&sec, uint32(len(m.data)))
		for _, d := range m.data {
			sec.WriteByte(0x00) // active, memory 0
			sec.WriteByte(opI32Const)
			writeS32(&sec, int32(d.offset))
			sec.WriteByte(opEnd)
			writeU32(&sec, uint32(len(d.data)))
			sec.Write(d.data)
		}
		writeSection(&w, sectionData, sec.Bytes())
	}

	return w.Bytes()
}

func writeSection(w *bytes.Buffer, id byte, content []byte) {
	w.WriteByte(id)
	writeU32(w, uint32(len(content)))
	w.Write(content)
}

func writeValTypes(w *bytes.Buffer, vs []ValType) {
	writeU32(w, uint32(len(vs)))
	for _, v := range vs {
		w.WriteByte(byte(v))
	}
}

// writeLocals groups consecutive locals of the same type
func writeLocals(w *bytes.Buffer, locals []ValType) {
	type group struct {
		n   uint32
		typ ValType
	}
	var groups []group
	for _, v := range locals {
		if len(groups) > 0 && groups[len(groups)-1].typ == v {
			groups[len(groups)-1].n++
			continue
		}
		groups = append(groups, group{n: 1, typ: v})
	}
	writeU32(w, uint32(len(groups)))
	for _, g := range groups {
		writeU32(w, g.n)
		w.WriteByte(byte(g.typ))
	}
}
