package parser

import (
	"math/rand"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	bferrors "github.com/aHeraud/bf/pkg/errors"
	"github.com/aHeraud/bf/pkg/types"
)

func TestParseSimpleProgramNoLoops(t *testing.T) {
	program, err := Parse(">><<+-,.")
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	want := types.Program{
		types.Move(1),
		types.Move(1),
		types.Move(-1),
		types.Move(-1),
		types.Add(1),
		types.Add(-1),
		types.Read(),
		types.Write(),
	}
	if diff := cmp.Diff(want, program); diff != "" {
		t.Errorf("Parse mismatch (-want +got):\n%s", diff)
	}
}

func TestParseLoops(t *testing.T) {
	tests := []struct {
		source string
		want   types.Program
	}{
		{"[]", types.Program{
			types.Jump(2, types.Forward),
			types.Jump(1, types.Backward),
		}},
		{"[[]]", types.Program{
			types.Jump(4, types.Forward),
			types.Jump(3, types.Forward),
			types.Jump(2, types.Backward),
			types.Jump(1, types.Backward),
		}},
		{"+[->+<]", types.Program{
			types.Add(1),
			types.Jump(7, types.Forward),
			types.Add(-1),
			types.Move(1),
			types.Add(1),
			types.Move(-1),
			types.Jump(2, types.Backward),
		}},
	}
	for _, tt := range tests {
		t.Run(tt.source, func(t *testing.T) {
			program, err := Parse(tt.source)
			if err != nil {
				t.Fatalf("Parse(%q) failed: %v", tt.source, err)
			}
			if diff := cmp.Diff(tt.want, program); diff != "" {
				t.Errorf("Parse(%q) mismatch (-want +got):\n%s", tt.source, diff)
			}
		})
	}
}

func TestParseIgnoresComments(t *testing.T) {
	program, err := Parse(">hello world<\n+")
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	want := types.Program{types.Move(1), types.Move(-1), types.Add(1)}
	if diff := cmp.Diff(want, program); diff != "" {
		t.Errorf("Parse mismatch (-want +got):\n%s", diff)
	}
}

func TestParseUnmatchedOpen(t *testing.T) {
	_, err := Parse("[[")
	pe, ok := err.(*bferrors.ParseError)
	if !ok {
		t.Fatalf("Parse error = %v (%T), want *errors.ParseError", err, err)
	}
	want := []string{
		"'[' at line 0, col 1 has no matching ']'.",
		"'[' at line 0, col 0 has no matching ']'.",
	}
	if diff := cmp.Diff(want, pe.Diagnostics); diff != "" {
		t.Errorf("diagnostics mismatch (-want +got):\n%s", diff)
	}
}

func TestParseUnmatchedOpenReportsOwnLine(t *testing.T) {
	_, err := Parse("[\n  [\n]\n\n")
	pe, ok := err.(*bferrors.ParseError)
	if !ok {
		t.Fatalf("Parse error = %v (%T), want *errors.ParseError", err, err)
	}
	want := []string{"'[' at line 0, col 0 has no matching ']'."}
	if diff := cmp.Diff(want, pe.Diagnostics); diff != "" {
		t.Errorf("diagnostics mismatch (-want +got):\n%s", diff)
	}
}

func TestParseUnmatchedCloseStopsImmediately(t *testing.T) {
	_, err := Parse("][")
	pe, ok := err.(*bferrors.ParseError)
	if !ok {
		t.Fatalf("Parse error = %v (%T), want *errors.ParseError", err, err)
	}
	want := []string{"']' at line 0, col 0 has no matching '['."}
	if diff := cmp.Diff(want, pe.Diagnostics); diff != "" {
		t.Errorf("diagnostics mismatch (-want +got):\n%s", diff)
	}

	_, err = Parse("+\n+]][[[")
	pe, ok = err.(*bferrors.ParseError)
	if !ok {
		t.Fatalf("Parse error = %v (%T), want *errors.ParseError", err, err)
	}
	if len(pe.Diagnostics) != 1 {
		t.Fatalf("got %d diagnostics, want 1: %v", len(pe.Diagnostics), pe.Diagnostics)
	}
	if want := "']' at line 1, col 2 has no matching '['."; pe.Diagnostics[0] != want {
		t.Errorf("diagnostic = %q, want %q", pe.Diagnostics[0], want)
	}
}

func TestParseUnbalanced(t *testing.T) {
	for _, source := range []string{"[[]", "][]", "]", "[", "[]]["} {
		if program, err := Parse(source); err == nil {
			t.Errorf("Parse(%q) = %v, want error", source, program)
		} else if program != nil {
			t.Errorf("Parse(%q) returned a partial program alongside %v", source, err)
		}
	}
}

// randomNested returns a string with well nested brackets mixed with
// commands and comment characters.
func randomNested(rng *rand.Rand, n int) string {
	const filler = "<>+-,. xyz\n"
	var sb strings.Builder
	depth := 0
	for i := 0; i < n; i++ {
		switch r := rng.Intn(10); {
		case r < 2:
			sb.WriteByte('[')
			depth++
		case r < 4 && depth > 0:
			sb.WriteByte(']')
			depth--
		default:
			sb.WriteByte(filler[rng.Intn(len(filler))])
		}
	}
	sb.WriteString(strings.Repeat("]", depth))
	return sb.String()
}

func TestParseBracketRoundTrip(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	for i := 0; i < 200; i++ {
		source := randomNested(rng, 1+rng.Intn(300))
		program, err := Parse(source)
		if err != nil {
			t.Fatalf("Parse(%q) failed: %v", source, err)
		}
		if err := program.Validate(); err != nil {
			t.Fatalf("Parse(%q) produced an invalid program: %v", source, err)
		}
		for idx, instr := range program {
			if instr.Op != types.Branch {
				continue
			}
			partner := program[instr.Target-1]
			if partner.Op != types.Branch || partner.Target != idx+1 || partner.Direction == instr.Direction {
				t.Fatalf("Parse(%q): branch %d (%v) and its partner %v do not point at each other", source, idx, instr, partner)
			}
		}
	}
}

func FuzzParse(f *testing.F) {
	for _, seed := range []string{"", "[]", "][", "[[", "+[->+<]>.", "a\nb[\n]"} {
		f.Add(seed)
	}
	f.Fuzz(func(t *testing.T, source string) {
		program, err := Parse(source)
		if err != nil {
			if !bferrors.IsParseError(err) {
				t.Fatalf("Parse(%q) error %v is not a ParseError", source, err)
			}
			return
		}
		if err := program.Validate(); err != nil {
			t.Fatalf("Parse(%q) produced an invalid program: %v", source, err)
		}
	})
}
