package interpreter

import (
	"bufio"
	"io"

	bferrors "github.com/aHeraud/bf/pkg/errors"
	"github.com/aHeraud/bf/pkg/types"
)

// EOFByte is stored in the current cell when a read hits end of input or
// fails. It is the low byte of the -1 sentinel the native read trampoline
// returns, so both backends agree.
const EOFByte = 0xFF

// Interpreter executes a program one instruction at a time. It is the
// reference the native backend is checked against.
type Interpreter struct {
	program            types.Program
	memory             [types.MemorySize]byte
	dataPointer        int
	instructionPointer int

	in  *bufio.Reader
	out *bufio.Writer
}

func New(program types.Program, in io.Reader, out io.Writer) *Interpreter {
	return &Interpreter{
		program: program,
		in:      bufio.NewReader(in),
		out:     bufio.NewWriter(out),
	}
}

func (it *Interpreter) dataIndex() (int, error) {
	if it.dataPointer >= 0 && it.dataPointer < len(it.memory) {
		return it.dataPointer, nil
	}
	return 0, &bferrors.BoundsError{Index: it.dataPointer, Size: len(it.memory)}
}

// Step executes the instruction at the instruction pointer. It returns
// true once the end of the program has been reached.
func (it *Interpreter) Step() (bool, error) {
	if it.instructionPointer < 0 || it.instructionPointer >= len(it.program) {
		// end of program
		return true, nil
	}

	instr := it.program[it.instructionPointer]
	switch instr.Op {
	case types.MovePointer:
		it.dataPointer += instr.Offset
	case types.AddCell:
		idx, err := it.dataIndex()
		if err != nil {
			return false, err
		}
		it.memory[idx] += byte(instr.Delta)
	case types.ReadByte:
		idx, err := it.dataIndex()
		if err != nil {
			return false, err
		}
		// interactive programs must see their prompt before blocking
		if err := it.out.Flush(); err != nil {
			return false, err
		}
		b, err := it.in.ReadByte()
		if err != nil {
			b = EOFByte
		}
		it.memory[idx] = b
	case types.WriteByte:
		idx, err := it.dataIndex()
		if err != nil {
			return false, err
		}
		if err := it.out.WriteByte(it.memory[idx]); err != nil {
			return false, err
		}
	case types.Branch:
		idx, err := it.dataIndex()
		if err != nil {
			return false, err
		}
		cell := it.memory[idx]
		if (instr.Direction == types.Forward && cell == 0) || (instr.Direction == types.Backward && cell != 0) {
			if instr.Target < 0 || instr.Target > len(it.program) {
				return false, bferrors.ErrInvalidJump
			}
			it.instructionPointer = instr.Target
			return false, nil
		}
	}
	it.instructionPointer++

	return false, nil
}

// Run steps until the program ends or fails. Buffered output is flushed in
// both cases.
func (it *Interpreter) Run() error {
	for {
		done, err := it.Step()
		if err != nil {
			it.out.Flush()
			return err
		}
		if done {
			return it.out.Flush()
		}
	}
}

// Cell returns the value of a cell, for inspection after a run.
func (it *Interpreter) Cell(idx int) byte {
	return it.memory[idx]
}

// DataPointer returns the current cursor position.
func (it *Interpreter) DataPointer() int {
	return it.dataPointer
}

// Run is a convenience wrapper that interprets program from in to out.
func Run(program types.Program, in io.Reader, out io.Writer) error {
	return New(program, in, out).Run()
}
