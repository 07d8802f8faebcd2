package parser

import (
	"fmt"

	bferrors "github.com/aHeraud/bf/pkg/errors"
	"github.com/aHeraud/bf/pkg/types"
)

// position of a character in the source. col is measured from the offset
// of the most recent newline.
type position struct {
	line      int
	lineStart int
}

type openBracket struct {
	index int // instruction index of the forward branch
	line  int
	col   int
}

// Parse builds a program from source text. Characters other than the eight
// commands are comments. Branch targets are resolved before returning.
//
// An unmatched ']' stops the scan immediately with a single diagnostic.
// Unmatched '[' are all reported, most recent first. On failure the
// returned error is a *errors.ParseError and no program is returned.
func Parse(source string) (types.Program, error) {
	var program types.Program
	var stack []openBracket
	pos := position{}

	for charIndex, c := range source {
		switch c {
		case '<':
			program = append(program, types.Move(-1))
		case '>':
			program = append(program, types.Move(1))
		case '+':
			program = append(program, types.Add(1))
		case '-':
			program = append(program, types.Add(-1))
		case ',':
			program = append(program, types.Read())
		case '.':
			program = append(program, types.Write())
		case '[':
			// target is unknown until the matching ']' is seen
			stack = append(stack, openBracket{
				index: len(program),
				line:  pos.line,
				col:   charIndex - pos.lineStart,
			})
			program = append(program, types.Jump(0, types.Forward))
		case ']':
			if len(stack) == 0 {
				return nil, &bferrors.ParseError{Diagnostics: []string{
					fmt.Sprintf("']' at line %d, col %d has no matching '['.", pos.line, charIndex-pos.lineStart),
				}}
			}
			open := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			program = append(program, types.Jump(open.index+1, types.Backward))
			program[open.index].Target = len(program)
		case '\n':
			pos.line++
			pos.lineStart = charIndex
		}
	}

	if len(stack) > 0 {
		diagnostics := make([]string, 0, len(stack))
		for i := len(stack) - 1; i >= 0; i-- {
			diagnostics = append(diagnostics,
				fmt.Sprintf("'[' at line %d, col %d has no matching ']'.", stack[i].line, stack[i].col))
		}
		return nil, &bferrors.ParseError{Diagnostics: diagnostics}
	}

	return program, nil
}
