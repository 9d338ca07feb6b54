// Package soap provides the client-side SOAP message model used by soapkit.
//
// A Message wraps a parsed SOAP 1.1 or SOAP 1.2 envelope held as a
// beevik/etree document. It exposes the Body, the first payload element of
// successful responses and, for fault responses, the Fault with its detail
// entries.
//
// # Parsing
//
//	msg, err := soap.ParseMessage(responseBody)
//	if err != nil {
//	    return err
//	}
//	if msg.HasFault() {
//	    entries := msg.DetailEntries()
//	    ...
//	}
//
// Documents declaring a non-UTF-8 encoding (ISO-8859-1 is common on older
// ERP endpoints) are decoded transparently.
//
// # SOAP Versions
//
// The version is detected from the envelope namespace:
//   - SOAP 1.1: http://schemas.xmlsoap.org/soap/envelope/
//   - SOAP 1.2: http://www.w3.org/2003/05/soap-envelope
//
// Fault fields are read from either shape: faultcode/faultstring/faultactor/
// detail for 1.1 and Code/Value, Reason/Text, Role, Detail for 1.2.
//
// # Faults as errors
//
// Message.ClientFault returns a *ClientFaultError that references the
// message. The fault resolver uses it as the cause of every reported fault.
package soap
