package interpreter

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	bferrors "github.com/aHeraud/bf/pkg/errors"
	"github.com/aHeraud/bf/pkg/parser"
	"github.com/aHeraud/bf/pkg/types"
)

const helloWorld = `++++++++[>++++[>++>+++>+++>+<<<<-]>+>+>->>+[<]<-]>>.>---.+++++++..+++.>>.<-.<.+++.------.--------.>>+.>++.`

func run(t *testing.T, source, input string) (string, error) {
	t.Helper()
	program, err := parser.Parse(source)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	var out bytes.Buffer
	err = Run(program, strings.NewReader(input), &out)
	return out.String(), err
}

func TestHelloWorld(t *testing.T) {
	got, err := run(t, helloWorld, "")
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if want := "Hello World!\n"; got != want {
		t.Errorf("output = %q, want %q", got, want)
	}
}

func TestWraparound(t *testing.T) {
	var out bytes.Buffer
	program := types.Program{types.Add(-1), types.Write()}
	if err := Run(program, strings.NewReader(""), &out); err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if got := out.Bytes(); len(got) != 1 || got[0] != 255 {
		t.Errorf("output = %v, want [255]", got)
	}

	out.Reset()
	program = types.Program{types.Add(127), types.Add(127), types.Add(3), types.Write()}
	if err := Run(program, strings.NewReader(""), &out); err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if got := out.Bytes(); len(got) != 1 || got[0] != 1 {
		t.Errorf("output = %v, want [1]", got)
	}
}

func TestEcho(t *testing.T) {
	got, err := run(t, ",[.,]", "echo me\x00ignored")
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if want := "echo me"; got != want {
		t.Errorf("output = %q, want %q", got, want)
	}
}

func TestReadAtEOFStoresSentinel(t *testing.T) {
	var out bytes.Buffer
	it := New(types.Program{types.Read(), types.Write()}, strings.NewReader(""), &out)
	if err := it.Run(); err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if got := it.Cell(0); got != EOFByte {
		t.Errorf("cell 0 = %d, want %d", got, EOFByte)
	}
	if got := out.Bytes(); len(got) != 1 || got[0] != EOFByte {
		t.Errorf("output = %v, want [%d]", got, EOFByte)
	}
}

func TestBoundsErrors(t *testing.T) {
	tests := []struct {
		source string
		index  int
	}{
		{"<+", -1},
		{"<.", -1},
		{"<[]", -1},
		{"<,", -1},
	}
	for _, tt := range tests {
		t.Run(tt.source, func(t *testing.T) {
			_, err := run(t, tt.source, "x")
			var be *bferrors.BoundsError
			if !errors.As(err, &be) {
				t.Fatalf("Run error = %v, want *errors.BoundsError", err)
			}
			if be.Index != tt.index || be.Size != types.MemorySize {
				t.Errorf("BoundsError = %+v, want index %d size %d", be, tt.index, types.MemorySize)
			}
		})
	}

	// moving past the end is only an error once the cell is touched
	var out bytes.Buffer
	program := types.Program{types.Move(types.MemorySize), types.Move(-1), types.Add(1)}
	it := New(program, strings.NewReader(""), &out)
	if err := it.Run(); err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if got := it.Cell(types.MemorySize - 1); got != 1 {
		t.Errorf("last cell = %d, want 1", got)
	}
}

func TestInvalidJump(t *testing.T) {
	var out bytes.Buffer
	program := types.Program{types.Jump(7, types.Forward)}
	err := Run(program, strings.NewReader(""), &out)
	if !errors.Is(err, bferrors.ErrInvalidJump) {
		t.Errorf("Run error = %v, want ErrInvalidJump", err)
	}
}

func TestStepReportsEnd(t *testing.T) {
	var out bytes.Buffer
	it := New(types.Program{types.Move(3)}, strings.NewReader(""), &out)
	done, err := it.Step()
	if err != nil || done {
		t.Fatalf("first Step = (%v, %v), want (false, nil)", done, err)
	}
	done, err = it.Step()
	if err != nil || !done {
		t.Fatalf("second Step = (%v, %v), want (true, nil)", done, err)
	}
	if got := it.DataPointer(); got != 3 {
		t.Errorf("DataPointer = %d, want 3", got)
	}
}
