package optimizer

import (
	"github.com/tliron/commonlog"

	"github.com/aHeraud/bf/pkg/types"
)

// Stats describes what a call to Optimize did.
type Stats struct {
	Before int
	After  int
	Passes int
}

// Optimize returns an equivalent program in which runs of adjacent
// MovePointer and AddCell instructions are fused. Branch targets are
// re-resolved against the shorter output. The input is not modified.
func Optimize(program types.Program) types.Program {
	out, _ := OptimizeWithStats(program)
	return out
}

// OptimizeWithStats is Optimize, also reporting the size reduction.
// Merge passes are repeated until one no longer shrinks the program.
func OptimizeWithStats(program types.Program) (types.Program, Stats) {
	stats := Stats{Before: len(program)}
	out := program
	for {
		next := mergeInstructions(out)
		stats.Passes++
		if len(next) == len(out) {
			out = next
			break
		}
		out = next
	}
	stats.After = len(out)
	commonlog.GetLogger("bf.optimizer").Debugf("optimized %d instructions to %d in %d passes", stats.Before, stats.After, stats.Passes)
	return out, stats
}

// mergeInstructions folds each instruction into the tail of the output
// when both are MovePointer or both are AddCell. For example
// [add 1, add -1, add 1] becomes [add 1].
func mergeInstructions(program types.Program) types.Program {
	instructions := make(types.Program, 0, len(program))
	var jumpStack []int

	for _, ins := range program {
		last := len(instructions) - 1
		switch {
		case ins.Op == types.MovePointer && last >= 0 && instructions[last].Op == types.MovePointer:
			instructions[last].Offset += ins.Offset
		case ins.Op == types.AddCell && last >= 0 && instructions[last].Op == types.AddCell:
			// int8 addition wraps, which is exactly the cell arithmetic
			instructions[last].Delta += ins.Delta
		case ins.Op == types.Branch && ins.Direction == types.Forward:
			jumpStack = append(jumpStack, len(instructions))
			instructions = append(instructions, types.Jump(0, types.Forward))
		case ins.Op == types.Branch:
			if len(jumpStack) == 0 {
				panic("optimizer: backward branch without a matching forward branch")
			}
			target := jumpStack[len(jumpStack)-1]
			jumpStack = jumpStack[:len(jumpStack)-1]
			instructions = append(instructions, types.Jump(target+1, types.Backward))
			// update the target index of the forward jump
			instructions[target].Target = len(instructions)
		default:
			instructions = append(instructions, ins)
		}
	}

	return instructions
}
