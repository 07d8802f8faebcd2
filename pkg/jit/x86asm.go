package jit

import (
	"encoding/binary"
)

// x86-64 register encoding
type Reg byte

const (
	RAX Reg = 0
	RCX Reg = 1
	RDX Reg = 2
	RBX Reg = 3
	RSP Reg = 4
	RBP Reg = 5
	RSI Reg = 6
	RDI Reg = 7
	R8  Reg = 8
	R9  Reg = 9
	R10 Reg = 10
	R11 Reg = 11
	R12 Reg = 12
	R13 Reg = 13
	R14 Reg = 14
	R15 Reg = 15
)

// Assembler emits x86-64 machine code into a growing buffer
type Assembler struct {
	buf []byte
}

// NewAssembler creates an assembler with room for sizeHint bytes
func NewAssembler(sizeHint int) *Assembler {
	return &Assembler{buf: make([]byte, 0, sizeHint)}
}

// Offset returns current write position
func (a *Assembler) Offset() int {
	return len(a.buf)
}

// Bytes returns the assembled code
func (a *Assembler) Bytes() []byte {
	return a.buf
}

// emit appends opcode bytes
func (a *Assembler) emit(bytes ...byte) {
	a.buf = append(a.buf, bytes...)
}

// emitInt32 appends a little-endian int32
func (a *Assembler) emitInt32(v int32) {
	a.buf = binary.LittleEndian.AppendUint32(a.buf, uint32(v))
}

// emitUint64 appends a little-endian uint64
func (a *Assembler) emitUint64(v uint64) {
	a.buf = binary.LittleEndian.AppendUint64(a.buf, v)
}

// PatchInt32 overwrites the 4 bytes at a previously recorded offset
func (a *Assembler) PatchInt32(at int, v int32) {
	binary.LittleEndian.PutUint32(a.buf[at:at+4], uint32(v))
}

// rex builds REX prefix: 0100WRXB
// W=1 for 64-bit operand size
// R=1 if reg field uses R8-R15
// X=1 if SIB index uses R8-R15
// B=1 if rm field uses R8-R15
func rex(w, r, x, b bool) byte {
	var prefix byte = 0x40
	if w {
		prefix |= 0x08
	}
	if r {
		prefix |= 0x04
	}
	if x {
		prefix |= 0x02
	}
	if b {
		prefix |= 0x01
	}
	return prefix
}

// rexW returns REX.W prefix for 64-bit operations
func rexW(reg, rm Reg) byte {
	return rex(true, reg >= 8, false, rm >= 8)
}

// modRM builds ModR/M byte: [mod:2][reg:3][rm:3]
// mod should be pre-shifted: 0x00=no disp, 0x40=disp8, 0x80=disp32, 0xC0=register
func modRM(mod byte, reg, rm Reg) byte {
	return mod | ((byte(reg) & 7) << 3) | (byte(rm) & 7)
}

// emitMemOperand emits ModR/M and displacement for [base + disp]
func (a *Assembler) emitMemOperand(reg, base Reg, disp int32) {
	if base == RSP || base == R12 {
		if disp == 0 {
			a.emit(modRM(0x00, reg, RSP), 0x24)
		} else if disp >= -128 && disp <= 127 {
			a.emit(modRM(0x40, reg, RSP), 0x24, byte(disp))
		} else {
			a.emit(modRM(0x80, reg, RSP), 0x24)
			a.emitInt32(disp)
		}
	} else if base == RBP || base == R13 {
		// mod=00 with rm=101 means RIP-relative, so RBP always takes a displacement
		if disp >= -128 && disp <= 127 {
			a.emit(modRM(0x40, reg, base), byte(disp))
		} else {
			a.emit(modRM(0x80, reg, base))
			a.emitInt32(disp)
		}
	} else if disp == 0 {
		a.emit(modRM(0x00, reg, base))
	} else if disp >= -128 && disp <= 127 {
		a.emit(modRM(0x40, reg, base), byte(disp))
	} else {
		a.emit(modRM(0x80, reg, base))
		a.emitInt32(disp)
	}
}

// MovRegReg: mov dst, src (64-bit)
func (a *Assembler) MovRegReg(dst, src Reg) {
	a.emit(rexW(src, dst), 0x89, modRM(0xC0, src, dst))
}

// MovRegImm64: movabs reg, imm64. Returns the offset of the immediate so
// it can be relocated later.
func (a *Assembler) MovRegImm64(reg Reg, imm uint64) int {
	// REX.W + B8+rd + imm64
	a.emit(rex(true, false, false, reg >= 8), 0xB8|byte(reg&7))
	at := a.Offset()
	a.emitUint64(imm)
	return at
}

// MovMemReg64: mov [base + disp], reg (64-bit store)
func (a *Assembler) MovMemReg64(base Reg, disp int32, reg Reg) {
	a.emit(rexW(reg, base), 0x89)
	a.emitMemOperand(reg, base, disp)
}

// MovzxRegMem8: movzx reg, byte [base + disp]
func (a *Assembler) MovzxRegMem8(reg, base Reg, disp int32) {
	a.emit(rexW(reg, base), 0x0F, 0xB6)
	a.emitMemOperand(reg, base, disp)
}

// MovMem8Reg: mov byte [base + disp], reg8
func (a *Assembler) MovMem8Reg(base Reg, disp int32, reg Reg) {
	// Need REX for R8-R15 or to access SPL/BPL/SIL/DIL
	if reg >= 8 || base >= 8 || reg >= RSP {
		a.emit(rex(false, reg >= 8, false, base >= 8))
	}
	a.emit(0x88)
	a.emitMemOperand(reg, base, disp)
}

// AddRegReg: add dst, src (64-bit)
func (a *Assembler) AddRegReg(dst, src Reg) {
	a.emit(rexW(src, dst), 0x01, modRM(0xC0, src, dst))
}

// AddRegImm8: add reg, imm8 (sign-extended, 64-bit)
func (a *Assembler) AddRegImm8(reg Reg, imm int8) {
	a.emit(rexW(0, reg), 0x83, modRM(0xC0, 0, reg), byte(imm))
}

// SubRegImm8: sub reg, imm8 (sign-extended, 64-bit)
func (a *Assembler) SubRegImm8(reg Reg, imm int8) {
	a.emit(rexW(0, reg), 0x83, modRM(0xC0, 5, reg), byte(imm))
}

// AddMem8Imm8: add byte [base + disp], imm8
func (a *Assembler) AddMem8Imm8(base Reg, disp int32, imm int8) {
	if base >= 8 {
		a.emit(rex(false, false, false, true))
	}
	a.emit(0x80)
	a.emitMemOperand(0, base, disp)
	a.emit(byte(imm))
}

// CmpMem8Imm8: cmp byte [base + disp], imm8
func (a *Assembler) CmpMem8Imm8(base Reg, disp int32, imm int8) {
	if base >= 8 {
		a.emit(rex(false, false, false, true))
	}
	a.emit(0x80)
	a.emitMemOperand(7, base, disp)
	a.emit(byte(imm))
}

// CallMem: call qword [base + disp]
func (a *Assembler) CallMem(base Reg, disp int32) {
	if base >= 8 {
		a.emit(rex(false, false, false, true))
	}
	a.emit(0xFF)
	a.emitMemOperand(2, base, disp)
}

// JeNear: je rel32. Returns the offset of the displacement field.
func (a *Assembler) JeNear(rel32 int32) int {
	a.emit(0x0F, 0x84)
	at := a.Offset()
	a.emitInt32(rel32)
	return at
}

// JneNear: jne rel32. Returns the offset of the displacement field.
func (a *Assembler) JneNear(rel32 int32) int {
	a.emit(0x0F, 0x85)
	at := a.Offset()
	a.emitInt32(rel32)
	return at
}

func (a *Assembler) Push(reg Reg) {
	if reg >= 8 {
		a.emit(rex(false, false, false, true))
	}
	a.emit(0x50 | byte(reg&7))
}

func (a *Assembler) Pop(reg Reg) {
	if reg >= 8 {
		a.emit(rex(false, false, false, true))
	}
	a.emit(0x58 | byte(reg&7))
}

func (a *Assembler) Ret() {
	a.emit(0xC3)
}
