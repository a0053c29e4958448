package frontend

import (
	"fmt"

	"github.com/trustfall/trustfall-go/internal/language"
)

// CompileError is any query compilation failure: malformed directives,
// unresolved schema references, bad filter operands, type mismatches.
// The interpreter never raises it.
type CompileError struct {
	Message string
	Line    int
	Column  int
}

func (e *CompileError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("%d:%d: %s", e.Line, e.Column, e.Message)
	}
	return e.Message
}

func errAt(pos *language.Position, format string, args ...any) *CompileError {
	e := &CompileError{Message: fmt.Sprintf(format, args...)}
	if pos != nil {
		e.Line = pos.Line
		e.Column = pos.Column
	}
	return e
}
