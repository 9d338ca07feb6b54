package fault

import (
	"errors"
)

// GenericMessage is the message reported when the fault carries no MessageID.
const GenericMessage = "Unable to unmarshal or decode webservice exception"

// ErrMissingUnmarshaller is returned when a decoder is configured without an
// unmarshaller.
var ErrMissingUnmarshaller = errors.New("fault decoder object not configured correctly: missing unmarshaller")

// Error is the failure reported for a SOAP fault that no decoder consumed.
type Error struct {
	// Message is the diagnostic built from the extracted fields.
	Message string

	// Fields holds the values found in the fault document.
	Fields ExtractedFields

	// Cause is the client fault error of the received message.
	Cause error

	// Suppressed is the decode failure, if a decoder was tried and failed.
	Suppressed error
}

func (e *Error) Error() string { return e.Message }

// Unwrap returns the cause. Suppressed is not part of the chain.
func (e *Error) Unwrap() error { return e.Cause }
