package fault

import (
	"fmt"

	"github.com/beevik/etree"

	"github.com/getmockd/soapkit/internal/xmltree"
)

// Element names searched in every fault document.
const (
	MessageIDTag      = "MessageID"
	StatusCodeTag     = "StatusCode"
	DefaultMessageTag = "DefaultMessage"
)

// ExtractedFields maps element names to the text of their first occurrence.
// A name is present only if a matching element was found.
type ExtractedFields map[string]string

// Get returns the value for name and whether it was found.
func (f ExtractedFields) Get(name string) (string, bool) {
	v, ok := f[name]
	return v, ok
}

// ExtractFields searches doc depth-first for each of the standard fault
// fields. Each field is located independently of the others.
func ExtractFields(doc *etree.Document) ExtractedFields {
	fields := make(ExtractedFields, 3)
	if doc == nil {
		return fields
	}
	for _, tag := range []string{MessageIDTag, StatusCodeTag, DefaultMessageTag} {
		if v, ok := FindText(&doc.Element, tag); ok {
			fields[tag] = v
		}
	}
	return fields
}

// FindText returns the text content of the first element in document order
// below el, or el itself, whose local name is tag. Namespace prefixes are
// ignored. An element with empty text still counts as found.
func FindText(el *etree.Element, tag string) (string, bool) {
	if el == nil {
		return "", false
	}
	if el.Tag == tag {
		return xmltree.TextContent(el), true
	}
	for _, child := range el.ChildElements() {
		if v, ok := FindText(child, tag); ok {
			return v, true
		}
	}
	return "", false
}

// Message formats the diagnostic for the fields. Absent fields render as
// empty strings.
func (f ExtractedFields) Message() string {
	id, ok := f[MessageIDTag]
	if !ok {
		return GenericMessage
	}
	return fmt.Sprintf("MessageID: %s, StatusCode: %s, DefaultMessage: %s", id, f[StatusCodeTag], f[DefaultMessageTag])
}
