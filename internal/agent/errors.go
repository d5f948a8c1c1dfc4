package agent

import (
	"errors"
	"fmt"
)

// ErrLoopBound signals that the reasoning loop hit its iteration bound.
// It never reaches the caller: the loop converts it into a degraded
// final answer instead of failing the run.
var ErrLoopBound = errors.New("agent: iteration bound reached")

// FormatError marks reasoner output that could not be parsed into a
// decision. The loop recovers once by re-prompting with a format
// reminder; a second consecutive failure force-stops the run into
// degraded synthesis.
type FormatError struct {
	Reason string
}

func (e *FormatError) Error() string {
	return fmt.Sprintf("unparseable reasoner output: %s", e.Reason)
}
