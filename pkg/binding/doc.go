// Package binding turns XML payloads into Go values.
//
// A Binder maps root elements to registered struct types and decodes them
// with encoding/xml, inlining MTOM/XOP attachments on the way. A
// TransformingUnmarshaller wraps any Unmarshaller with an optional compiled
// transform from package transform, applied to every payload before binding.
//
// Every failure to produce a value is reported as a *MappingError, so
// callers can test for errors.Is(err, ErrMapping) regardless of the stage
// that failed.
package binding
