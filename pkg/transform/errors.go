package transform

import (
	"errors"
	"fmt"
)

var (
	// ErrUnknownEngine is returned when no engine is registered under a name.
	ErrUnknownEngine = errors.New("unknown transform engine")

	// ErrCompile matches every *CompileError.
	ErrCompile = errors.New("transform compile failed")

	// ErrTransform matches every *Error.
	ErrTransform = errors.New("transform failed")

	// ErrInvalidStylesheet is returned when a stylesheet cannot be parsed or
	// does not match the stylesheet schema.
	ErrInvalidStylesheet = errors.New("invalid stylesheet")
)

// CompileError reports a stylesheet that could not be compiled.
type CompileError struct {
	Engine string
	Err    error
}

func (e *CompileError) Error() string {
	return fmt.Sprintf("transform: compile %s stylesheet: %v", e.Engine, e.Err)
}

func (e *CompileError) Unwrap() error { return e.Err }

func (e *CompileError) Is(target error) bool { return target == ErrCompile }

// Error reports a failure while executing a compiled program. Rule is the
// 1-based index of the failing rule, or 0 for the select and strip stages.
type Error struct {
	Rule int
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e.Rule == 0 {
		return fmt.Sprintf("transform: %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("transform: rule %d (%s): %v", e.Rule, e.Op, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

func (e *Error) Is(target error) bool { return target == ErrTransform }
