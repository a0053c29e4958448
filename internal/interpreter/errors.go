package interpreter

import "fmt"

// ArgumentErrorKind classifies argument binding failures.
type ArgumentErrorKind string

const (
	ArgumentMissing  ArgumentErrorKind = "missing"
	ArgumentExtra    ArgumentErrorKind = "extra"
	ArgumentIllTyped ArgumentErrorKind = "ill-typed"
)

// ArgumentError reports a missing, extra, or ill-typed query argument.
// It is raised once, before any row is produced.
type ArgumentError struct {
	Kind   ArgumentErrorKind
	Name   string
	Detail string
}

func (e *ArgumentError) Error() string {
	msg := fmt.Sprintf("%s argument $%s", e.Kind, e.Name)
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	return msg
}

// AdapterError reports that the adapter returned a value of unexpected
// shape. It surfaces on the result iterator and terminates the stream.
type AdapterError struct {
	Operation string // the resolver that misbehaved
	TypeName  string
	Field     string
	Detail    string
}

func (e *AdapterError) Error() string {
	return fmt.Sprintf("adapter error in %s on %s.%s: %s", e.Operation, e.TypeName, e.Field, e.Detail)
}

// ResourceExhaustedError terminates the stream when an implementation
// guard trips, e.g. an IR-declared recursion depth above the engine's
// limit.
type ResourceExhaustedError struct {
	Detail string
}

func (e *ResourceExhaustedError) Error() string {
	return "resource exhausted: " + e.Detail
}
