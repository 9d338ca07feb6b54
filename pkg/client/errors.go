package client

import (
	"errors"
	"fmt"
)

var (
	// ErrNoEndpoint is returned when a client is created without an endpoint.
	ErrNoEndpoint = errors.New("no endpoint configured")

	// ErrResponseTooLarge is returned when a reply exceeds the size limit.
	ErrResponseTooLarge = errors.New("response too large")
)

// StatusError reports an HTTP error status whose body was not a SOAP fault.
type StatusError struct {
	StatusCode int
	Status     string
	// Body is the start of the response body.
	Body string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("unexpected HTTP status %s", e.Status)
	}
	return fmt.Sprintf("unexpected HTTP status %s: %s", e.Status, e.Body)
}
