package wasmgen

import "bytes"

const (
	opUnreachable = 0x00
	opBlock       = 0x02
	opLoop        = 0x03
	opIf          = 0x04
	opElse        = 0x05
	opEnd         = 0x0b
	opBr          = 0x0c
	opBrIf        = 0x0d
	opReturn      = 0x0f
	opCall        = 0x10
	opDrop        = 0x1a
	opLocalGet    = 0x20
	opLocalSet    = 0x21
	opLocalTee    = 0x22
	opGlobalGet   = 0x23
	opGlobalSet   = 0x24
	opI32Load     = 0x28
	opI32Load8U   = 0x2d
	opI32Store    = 0x36
	opI32Store8   = 0x3a
	opMemorySize  = 0x3f
	opMemoryGrow  = 0x40
	opI32Const    = 0x41
	opI32Eqz      = 0x45
	opI32Eq       = 0x46
	opI32Ne       = 0x47
	opI32LtU      = 0x49
	opI32GtU      = 0x4b
	opI32Add      = 0x6a
	opI32Sub      = 0x6b
	opI32Mul      = 0x6c
	opI32And      = 0x71
	opI32Or       = 0x72
	opI32Xor      = 0x73
	opI32Shl      = 0x74
	opI32ShrU     = 0x76
	opPrefixFC    = 0xfc
	opMemoryCopy  = 0x0a
	opMemoryFill  = 0x0b

	blockEmpty = 0x40
)

// Code is a function body under construction. Methods append one
// instruction each and return the receiver for chaining. The final end
// opcode is added by Module.Func.
type Code struct {
	buf bytes.Buffer
}

// NewCode starts an empty body
func NewCode() *Code { return &Code{} }

// Bytes returns the encoded instructions
func (c *Code) Bytes() []byte { return c.buf.Bytes() }

func (c *Code) op(b byte) *Code {
	c.buf.WriteByte(b)
	return c
}

func (c *Code) opIdx(b byte, idx uint32) *Code {
	c.buf.WriteByte(b)
	writeU32(&c.buf, idx)
	return c
}

func (c *Code) memarg(b byte, align, offset uint32) *Code {
	c.buf.WriteByte(b)
	writeU32(&c.buf, align)
	writeU32(&c.buf, offset)
	return c
}

func (c *Code) Unreachable() *Code { return c.op(opUnreachable) }
func (c *Code) Return() *Code      { return c.op(opReturn) }
func (c *Code) Drop() *Code        { return c.op(opDrop) }
func (c *Code) End() *Code         { return c.op(opEnd) }
func (c *Code) Else() *Code        { return c.op(opElse) }

// Block opens a block with no result
func (c *Code) Block() *Code { return c.op(opBlock).op(blockEmpty) }

// Loop opens a loop with no result
func (c *Code) Loop() *Code { return c.op(opLoop).op(blockEmpty) }

// If opens an if with no result
func (c *Code) If() *Code { return c.op(opIf).op(blockEmpty) }

func (c *Code) Br(depth uint32) *Code   { return c.opIdx(opBr, depth) }
func (c *Code) BrIf(depth uint32) *Code { return c.opIdx(opBrIf, depth) }
func (c *Code) Call(fn uint32) *Code    { return c.opIdx(opCall, fn) }

func (c *Code) LocalGet(i uint32) *Code  { return c.opIdx(opLocalGet, i) }
func (c *Code) LocalSet(i uint32) *Code  { return c.opIdx(opLocalSet, i) }
func (c *Code) LocalTee(i uint32) *Code  { return c.opIdx(opLocalTee, i) }
func (c *Code) GlobalGet(i uint32) *Code { return c.opIdx(opGlobalGet, i) }
func (c *Code) GlobalSet(i uint32) *Code { return c.opIdx(opGlobalSet, i) }

// I32Load loads a little-endian i32 at the address on the stack plus offset
func (c *Code) I32Load(offset uint32) *Code   { return c.memarg(opI32Load, 2, offset) }
func (c *Code) I32Load8U(offset uint32) *Code { return c.memarg(opI32Load8U, 0, offset) }
func (c *Code) I32Store(offset uint32) *Code  { return c.memarg(opI32Store, 2, offset) }
func (c *Code) I32Store8(offset uint32) *Code { return c.memarg(opI32Store8, 0, offset) }

func (c *Code) MemorySize() *Code { return c.op(opMemorySize).op(0x00) }
func (c *Code) MemoryGrow() *Code { return c.op(opMemoryGrow).op(0x00) }

// MemoryCopy pops (dst, src, n)
func (c *Code) MemoryCopy() *Code {
	c.buf.WriteByte(opPrefixFC)
	writeU32(&c.buf, opMemoryCopy)
	c.buf.WriteByte(0x00)
	c.buf.WriteByte(0x00)
	return c
}

// MemoryFill pops (dst, value, n)
func (c *Code) MemoryFill() *Code {
	c.buf.WriteByte(opPrefixFC)
	writeU32(&c.buf, opMemoryFill)
	c.buf.WriteByte(0x00)
	return c
}

func (c *Code) I32Const(v int32) *Code {
	c.buf.WriteByte(opI32Const)
	writeS32(&c.buf, v)
	return c
}

func (c *Code) I32Eqz() *Code  { return c.op(opI32Eqz) }
func (c *Code) I32Eq() *Code   { return c.op(opI32Eq) }
func (c *Code) I32Ne() *Code   { return c.op(opI32Ne) }
func (c *Code) I32LtU() *Code  { return c.op(opI32LtU) }
func (c *Code) I32GtU() *Code  { return c.op(opI32GtU) }
func (c *Code) I32Add() *Code  { return c.op(opI32Add) }
func (c *Code) I32Sub() *Code  { return c.op(opI32Sub) }
func (c *Code) I32Mul() *Code  { return c.op(opI32Mul) }
func (c *Code) I32And() *Code  { return c.op(opI32And) }
func (c *Code) I32Or() *Code   { return c.op(opI32Or) }
func (c *Code) I32Xor() *Code  { return c.op(opI32Xor) }
func (c *Code) I32Shl() *Code  { return c.op(opI32Shl) }
func (c *Code) I32ShrU() *Code { return c.op(opI32ShrU) }
