package types

import (
	"fmt"
	"strings"
)

// MemorySize is the number of cells available to a running program.
const MemorySize = 30000

type Opcode byte

const (
	MovePointer Opcode = iota // cursor += Offset
	AddCell                   // cells[cursor] += Delta (wrapping)
	ReadByte                  // cells[cursor] = next input byte
	WriteByte                 // emit cells[cursor]
	Branch                    // conditional jump to Target
)

func (op Opcode) String() string {
	switch op {
	case MovePointer:
		return "move"
	case AddCell:
		return "add"
	case ReadByte:
		return "read"
	case WriteByte:
		return "write"
	case Branch:
		return "branch"
	default:
		return fmt.Sprintf("opcode(%d)", byte(op))
	}
}

type Direction byte

const (
	Forward  Direction = iota // taken when the current cell is zero
	Backward                  // taken when the current cell is nonzero
)

func (d Direction) String() string {
	if d == Forward {
		return "forward"
	}
	return "backward"
}

// Instruction is one operation of a Program. Only the fields that belong
// to Op are meaningful.
type Instruction struct {
	Op        Opcode    `cbor:"1,keyasint"`
	Offset    int       `cbor:"2,keyasint,omitempty"`
	Delta     int8      `cbor:"3,keyasint,omitempty"`
	Target    int       `cbor:"4,keyasint,omitempty"`
	Direction Direction `cbor:"5,keyasint,omitempty"`
}

func Move(offset int) Instruction {
	return Instruction{Op: MovePointer, Offset: offset}
}

func Add(delta int8) Instruction {
	return Instruction{Op: AddCell, Delta: delta}
}

func Read() Instruction {
	return Instruction{Op: ReadByte}
}

func Write() Instruction {
	return Instruction{Op: WriteByte}
}

func Jump(target int, direction Direction) Instruction {
	return Instruction{Op: Branch, Target: target, Direction: direction}
}

func (i Instruction) String() string {
	switch i.Op {
	case MovePointer:
		return fmt.Sprintf("move %d", i.Offset)
	case AddCell:
		return fmt.Sprintf("add %d", i.Delta)
	case Branch:
		return fmt.Sprintf("branch %s -> %d", i.Direction, i.Target)
	default:
		return i.Op.String()
	}
}

// Program is an instruction sequence whose branch targets are already
// resolved to indices.
type Program []Instruction

func (p Program) String() string {
	var sb strings.Builder
	for idx, instr := range p {
		fmt.Fprintf(&sb, "%5d  %s\n", idx, instr)
	}
	return sb.String()
}

// Validate checks that branches are perfectly nested and that every
// forward branch targets the instruction after its backward partner and
// vice versa.
func (p Program) Validate() error {
	var open []int
	for idx, instr := range p {
		switch instr.Op {
		case MovePointer, AddCell, ReadByte, WriteByte:
		case Branch:
			if instr.Target < 0 || instr.Target > len(p) {
				return fmt.Errorf("instruction %d: branch target %d out of range [0, %d]", idx, instr.Target, len(p))
			}
			switch instr.Direction {
			case Forward:
				open = append(open, idx)
			case Backward:
				if len(open) == 0 {
					return fmt.Errorf("instruction %d: backward branch has no matching forward branch", idx)
				}
				match := open[len(open)-1]
				open = open[:len(open)-1]
				if instr.Target != match+1 {
					return fmt.Errorf("instruction %d: backward branch targets %d, want %d", idx, instr.Target, match+1)
				}
				if p[match].Target != idx+1 {
					return fmt.Errorf("instruction %d: forward branch targets %d, want %d", match, p[match].Target, idx+1)
				}
			default:
				return fmt.Errorf("instruction %d: unknown branch direction %d", idx, instr.Direction)
			}
		default:
			return fmt.Errorf("instruction %d: unknown opcode %d", idx, instr.Op)
		}
	}
	if len(open) > 0 {
		return fmt.Errorf("instruction %d: forward branch has no matching backward branch", open[len(open)-1])
	}
	return nil
}
