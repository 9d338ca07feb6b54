package cli

import "errors"

// Common CLI errors
var (
	ErrNoMatches     = errors.New("no files match")
	ErrSomeFailed    = errors.New("one or more inputs failed")
	ErrNoPayload     = errors.New("message has no payload or detail entry")
	ErrNoStylesheet  = errors.New("no stylesheet given - use --stylesheet or transform.stylesheet in the config")
	ErrFaultReceived = errors.New("call returned a SOAP fault")
)
