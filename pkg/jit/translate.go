package jit

import (
	"encoding/binary"
	"fmt"

	"github.com/aHeraud/bf/pkg/types"
)

// Register plan for translated routines (System V AMD64 ABI):
//
//	RAX = cursor, the address of the current cell. Loaded once from RDI.
//	RCX = scratch for 64-bit immediates and call results
//	RDI = first argument: cell base on entry, byte to write for output
//
// RAX is caller-saved, so it is pushed around the I/O calls. Each push is
// paired with an 8-byte pad to keep RSP 16-byte aligned at the call.
const (
	CursorReg  = RAX
	ScratchReg = RCX
	ArgReg     = RDI
)

// Stack frame: two 8-byte slots below RBP hold the trampoline addresses.
const (
	frameSize = 16
	writeSlot = -8
	readSlot  = -16
)

// Symbol names a host function a routine calls.
type Symbol byte

const (
	SymbolWriteByte Symbol = iota
	SymbolReadByte
)

func (s Symbol) String() string {
	switch s {
	case SymbolWriteByte:
		return "write_byte"
	case SymbolReadByte:
		return "read_byte"
	default:
		return fmt.Sprintf("symbol(%d)", byte(s))
	}
}

// Reloc marks an 8-byte absolute address in the code that must be filled
// with the address of Symbol before the code runs.
type Reloc struct {
	Offset int    `cbor:"1,keyasint"`
	Symbol Symbol `cbor:"2,keyasint"`
}

// Code is a translated routine: position independent machine code except
// for the trampoline addresses listed in Relocs.
type Code struct {
	Bytes        []byte  `cbor:"1,keyasint"`
	Relocs       []Reloc `cbor:"2,keyasint"`
	Instructions int     `cbor:"3,keyasint"`
}

// Link returns a copy of the code with every relocation resolved.
func (c *Code) Link(readByte, writeByte uint64) []byte {
	linked := make([]byte, len(c.Bytes))
	copy(linked, c.Bytes)
	for _, r := range c.Relocs {
		addr := writeByte
		if r.Symbol == SymbolReadByte {
			addr = readByte
		}
		binary.LittleEndian.PutUint64(linked[r.Offset:r.Offset+8], addr)
	}
	return linked
}

// jumpFixup records a forward branch whose displacement is not yet known.
type jumpFixup struct {
	field int // offset of the rel32 field
	next  int // offset of the instruction after the jump (its landing point)
}

// Translator generates x86-64 code from a program
type Translator struct {
	asm       *Assembler
	jumpStack []jumpFixup
	relocs    []Reloc
}

// Translate compiles a program into a self-contained routine taking the
// cell base address as its only argument. The program must be well formed;
// unmatched branches are an invariant violation and panic.
func Translate(program types.Program) *Code {
	t := &Translator{
		// ~12 bytes per instruction covers the common mix
		asm: NewAssembler(64 + 12*len(program)),
	}

	t.emitPrologue()
	for _, instr := range program {
		t.translate(instr)
	}
	if len(t.jumpStack) != 0 {
		panic(fmt.Sprintf("invalid program: %d forward branches without a matching backward branch", len(t.jumpStack)))
	}
	t.emitEpilogue()

	return &Code{
		Bytes:        t.asm.Bytes(),
		Relocs:       t.relocs,
		Instructions: len(program),
	}
}

// emitPrologue sets up the frame, loads the cursor and stores the
// trampoline addresses into their stack slots.
func (t *Translator) emitPrologue() {
	a := t.asm
	a.Push(RBP)
	a.MovRegReg(RBP, RSP)
	a.SubRegImm8(RSP, frameSize)
	a.MovRegReg(CursorReg, ArgReg)

	t.emitSlot(SymbolWriteByte, writeSlot)
	t.emitSlot(SymbolReadByte, readSlot)
}

func (t *Translator) emitSlot(sym Symbol, slot int32) {
	// immediate is zero until Link
	at := t.asm.MovRegImm64(ScratchReg, 0)
	t.relocs = append(t.relocs, Reloc{Offset: at, Symbol: sym})
	t.asm.MovMemReg64(RBP, slot, ScratchReg)
}

func (t *Translator) emitEpilogue() {
	t.asm.MovRegReg(RSP, RBP)
	t.asm.Pop(RBP)
	t.asm.Ret()
}

func (t *Translator) translate(instr types.Instruction) {
	a := t.asm
	switch instr.Op {
	case types.AddCell:
		// wraps naturally in 8 bits
		a.AddMem8Imm8(CursorReg, 0, instr.Delta)

	case types.MovePointer:
		a.MovRegImm64(ScratchReg, uint64(int64(instr.Offset)))
		a.AddRegReg(CursorReg, ScratchReg)

	case types.ReadByte:
		a.Push(CursorReg)
		a.SubRegImm8(RSP, 8)
		a.CallMem(RBP, readSlot)
		a.AddRegImm8(RSP, 8)
		a.MovRegReg(ScratchReg, RAX)
		a.Pop(CursorReg)
		a.MovMem8Reg(CursorReg, 0, ScratchReg)

	case types.WriteByte:
		a.MovzxRegMem8(ArgReg, CursorReg, 0)
		a.Push(CursorReg)
		a.SubRegImm8(RSP, 8)
		a.CallMem(RBP, writeSlot)
		a.AddRegImm8(RSP, 8)
		a.Pop(CursorReg)

	case types.Branch:
		t.translateBranch(instr.Direction)

	default:
		panic(fmt.Sprintf("invalid program: unknown opcode %d", instr.Op))
	}
}

// translateBranch emits cmp/jcc pairs. Forward jumps are emitted with a
// zero displacement and patched when the matching backward jump is seen.
// Both displacements are relative to the instruction after the jump.
func (t *Translator) translateBranch(direction types.Direction) {
	a := t.asm
	switch direction {
	case types.Forward:
		a.CmpMem8Imm8(CursorReg, 0, 0)
		field := a.JeNear(0)
		t.jumpStack = append(t.jumpStack, jumpFixup{field: field, next: a.Offset()})

	case types.Backward:
		if len(t.jumpStack) == 0 {
			panic("invalid program: mismatched jumps (']' missing '[')")
		}
		fixup := t.jumpStack[len(t.jumpStack)-1]
		t.jumpStack = t.jumpStack[:len(t.jumpStack)-1]

		a.CmpMem8Imm8(CursorReg, 0, 0)
		// jne is 6 bytes: 0F 85 rel32
		next := a.Offset() + 6
		a.JneNear(int32(fixup.next - next))

		// now the forward jump can skip past this one
		a.PatchInt32(fixup.field, int32(next-fixup.next))

	default:
		panic(fmt.Sprintf("invalid program: unknown branch direction %d", direction))
	}
}
