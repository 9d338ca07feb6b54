// Package fault explains SOAP faults received by a client.
//
// A Resolver turns every fault into a single descriptive error. When a
// Decoder is configured, the first detail entry is unmarshalled and handed
// to the decoder, which usually returns its own application error. Otherwise,
// or when decoding fails, the resolver searches the whole fault document for
// MessageID, StatusCode and DefaultMessage elements and reports them in an
// *Error. A failed decode is kept on that error as Suppressed.
package fault
