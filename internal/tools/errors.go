package tools

import "fmt"

// ArgumentError marks tool arguments that failed schema validation. The
// tool returns it before doing any work, so the loop records a failure
// observation without an execution having happened.
type ArgumentError struct {
	Tool   string
	Reason string
}

func (e *ArgumentError) Error() string {
	return fmt.Sprintf("invalid arguments for %s: %s", e.Tool, e.Reason)
}

// NewArgumentError builds an ArgumentError.
func NewArgumentError(tool, format string, args ...any) *ArgumentError {
	return &ArgumentError{Tool: tool, Reason: fmt.Sprintf(format, args...)}
}
