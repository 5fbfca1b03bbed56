package verifier

import (
	"fmt"
)

// TraceCycle occurs when following predecessors from a witness
// revisits a state.
type TraceCycle struct {
	Hash  uint64
	Steps int
}

func (e *TraceCycle) Error() string {
	return fmt.Sprintf("predecessor cycle at state %x after %d steps", e.Hash, e.Steps)
}

// TraceBroken occurs when a predecessor isn't in the Passed list.
type TraceBroken struct {
	Hash uint64
}

func (e *TraceBroken) Error() string {
	return fmt.Sprintf("predecessor %x not found", e.Hash)
}
