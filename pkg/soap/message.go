package soap

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/beevik/etree"
	"github.com/getmockd/soapkit/internal/xmltree"
)

// Errors returned while reading a SOAP message.
var (
	ErrNotEnvelope = errors.New("root element must be a SOAP Envelope")
	ErrNoBody      = errors.New("SOAP Body not found")
)

// Message is a parsed SOAP response. It is read-only once constructed and
// may be shared between goroutines.
type Message struct {
	doc     *etree.Document
	version Version
	body    *etree.Element
	fault   *Fault
}

// ParseMessage parses a SOAP envelope. Non-UTF-8 encodings declared in the
// XML prolog are decoded.
func ParseMessage(data []byte) (*Message, error) {
	doc, err := xmltree.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("invalid XML: %w", err)
	}
	return NewMessage(doc)
}

// ReadMessage parses a SOAP envelope from r.
func ReadMessage(r io.Reader) (*Message, error) {
	doc := xmltree.NewDocument()
	if _, err := doc.ReadFrom(r); err != nil {
		return nil, fmt.Errorf("invalid XML: %w", err)
	}
	return NewMessage(doc)
}

// NewMessage wraps an already parsed envelope document.
func NewMessage(doc *etree.Document) (*Message, error) {
	if doc == nil || doc.Root() == nil {
		return nil, fmt.Errorf("%w: empty document", ErrNotEnvelope)
	}
	root := doc.Root()
	if root.Tag != "Envelope" {
		return nil, fmt.Errorf("%w, got %s", ErrNotEnvelope, root.Tag)
	}

	body := root.SelectElement("Body")
	if body == nil {
		return nil, ErrNoBody
	}

	m := &Message{
		doc:     doc,
		version: detectVersion(root),
		body:    body,
	}
	if f := body.SelectElement("Fault"); f != nil {
		m.fault = parseFault(f)
	}
	return m, nil
}

// detectVersion detects the SOAP version from the envelope namespace.
func detectVersion(root *etree.Element) Version {
	if root.NamespaceURI() == SOAP12Namespace {
		return SOAP12
	}
	return SOAP11
}

// Document returns the document that owns the message.
func (m *Message) Document() *etree.Document { return m.doc }

// Version returns the SOAP version of the envelope.
func (m *Message) Version() Version { return m.version }

// Body returns the SOAP Body element.
func (m *Message) Body() *etree.Element { return m.body }

// Fault returns the fault carried by the message, or nil.
func (m *Message) Fault() *Fault { return m.fault }

// HasFault reports whether the body carries a SOAP Fault.
func (m *Message) HasFault() bool { return m.fault != nil }

// DetailEntries returns the fault detail entries in document order. It is
// empty for non-fault messages and for faults without a detail section.
func (m *Message) DetailEntries() []*etree.Element {
	return m.fault.DetailEntries()
}

// Payload returns the first element inside the Body of a non-fault
// message, or nil.
func (m *Message) Payload() *etree.Element {
	if m.fault != nil {
		return nil
	}
	children := m.body.ChildElements()
	if len(children) == 0 {
		return nil
	}
	return children[0]
}

// ClientFault returns an error describing the received fault, suitable as
// the cause of a higher level failure.
func (m *Message) ClientFault() error {
	return &ClientFaultError{Message: m}
}

// Extract returns the trimmed text at the given etree path, or an empty
// string if the path is invalid or has no match. Attribute selection with a
// trailing "/@name" is supported.
func (m *Message) Extract(path string) string {
	if path == "" {
		return ""
	}
	if el := findElement(m.doc, path); el != nil {
		return trimmedText(el)
	}

	if elemPath, attrName, ok := strings.Cut(path, "/@"); ok {
		if el := findElement(m.doc, elemPath); el != nil {
			if attr := el.SelectAttr(attrName); attr != nil {
				return attr.Value
			}
		}
	}
	return ""
}

func findElement(doc *etree.Document, path string) *etree.Element {
	p, err := etree.CompilePath(path)
	if err != nil {
		return nil
	}
	return doc.FindElementPath(p)
}

// ClientFaultError reports that a SOAP fault was received. It keeps a
// reference to the full message for callers that need more than the reason.
type ClientFaultError struct {
	Message *Message
}

func (e *ClientFaultError) Error() string {
	if e.Message == nil {
		return "client received SOAP fault"
	}
	if f := e.Message.Fault(); f != nil {
		switch {
		case f.Code != "" && f.Reason != "":
			return fmt.Sprintf("client received SOAP fault: %s: %s", f.Code, f.Reason)
		case f.Reason != "":
			return "client received SOAP fault: " + f.Reason
		}
	}
	return "client received SOAP fault"
}

func trimmedText(el *etree.Element) string {
	return strings.TrimSpace(xmltree.TextContent(el))
}
