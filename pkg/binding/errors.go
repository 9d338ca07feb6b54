package binding

import (
	"errors"
)

var (
	// ErrMapping matches every *MappingError.
	ErrMapping = errors.New("mapping failed")

	// ErrUnboundElement is returned when no type is registered for a root element.
	ErrUnboundElement = errors.New("no type bound to element")

	// ErrMissingAttachment is returned when an xop:Include references an
	// attachment that is not available.
	ErrMissingAttachment = errors.New("missing attachment")

	// ErrEmptySource is returned when a source holds neither bytes nor a tree.
	ErrEmptySource = errors.New("empty source")

	// ErrNotStruct is returned when registering a prototype that is not a struct.
	ErrNotStruct = errors.New("prototype is not a struct")

	// ErrDuplicateBinding is returned when an element name is already bound.
	ErrDuplicateBinding = errors.New("element already bound")
)

// MappingError reports a payload that could not be turned into a value.
type MappingError struct {
	// Op is the stage that failed: read, lookup, attachment, decode or transform.
	Op  string
	Msg string
	Err error
}

func (e *MappingError) Error() string {
	s := "binding: " + e.Op
	if e.Msg != "" {
		s += ": " + e.Msg
	}
	if e.Err != nil {
		s += ": " + e.Err.Error()
	}
	return s
}

func (e *MappingError) Unwrap() error { return e.Err }

func (e *MappingError) Is(target error) bool { return target == ErrMapping }
