package jit

import (
	"fmt"
	"strings"

	"golang.org/x/arch/x86/x86asm"
)

// Disassemble renders translated code one instruction per line with its
// offset and raw bytes. Relocated immediates are annotated with the symbol
// they will hold once linked. Undecodable bytes are emitted as db.
func Disassemble(code *Code) string {
	relocAt := make(map[int]Symbol, len(code.Relocs))
	for _, r := range code.Relocs {
		relocAt[r.Offset] = r.Symbol
	}

	var sb strings.Builder
	offset := 0
	for offset < len(code.Bytes) {
		inst, err := x86asm.Decode(code.Bytes[offset:], 64)
		if err != nil {
			sb.WriteString(fmt.Sprintf("0x%04x: db 0x%02x\n", offset, code.Bytes[offset]))
			offset++
			continue
		}

		var hexBytes []string
		for i := 0; i < inst.Len; i++ {
			hexBytes = append(hexBytes, fmt.Sprintf("%02x", code.Bytes[offset+i]))
		}
		sb.WriteString(fmt.Sprintf("0x%04x: %-32s %s", offset, strings.Join(hexBytes, " "), inst.String()))
		// movabs immediates start after REX.W and the opcode
		if sym, ok := relocAt[offset+2]; ok {
			sb.WriteString("  ; " + sym.String())
		}
		sb.WriteByte('\n')
		offset += inst.Len
	}
	return sb.String()
}

// decode splits code into instructions, stopping at the first byte that
// does not decode.
func decode(code []byte) ([]x86asm.Inst, error) {
	var insts []x86asm.Inst
	for offset := 0; offset < len(code); {
		inst, err := x86asm.Decode(code[offset:], 64)
		if err != nil {
			return insts, fmt.Errorf("decode at 0x%04x: %w", offset, err)
		}
		insts = append(insts, inst)
		offset += inst.Len
	}
	return insts, nil
}
