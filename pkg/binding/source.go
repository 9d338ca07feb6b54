package binding

import (
	"github.com/beevik/etree"

	"github.com/getmockd/soapkit/internal/xmltree"
)

// Source is an XML payload in serialized or tree form.
type Source struct {
	data []byte
	root *etree.Element
}

// BytesSource returns a source backed by serialized XML.
func BytesSource(data []byte) Source {
	return Source{data: data}
}

// TreeSource returns a source backed by an element tree. The element is
// shared, not copied; consumers must not modify it.
func TreeSource(root *etree.Element) Source {
	return Source{root: root}
}

// IsTree reports whether the source is backed by an element tree.
func (s Source) IsTree() bool { return s.root != nil }

// Tree returns the root element. Serialized sources are parsed on every call.
func (s Source) Tree() (*etree.Element, error) {
	if s.root != nil {
		return s.root, nil
	}
	if len(s.data) == 0 {
		return nil, ErrEmptySource
	}
	doc, err := xmltree.Parse(s.data)
	if err != nil {
		return nil, err
	}
	if doc.Root() == nil {
		return nil, ErrEmptySource
	}
	return doc.Root(), nil
}

// Bytes returns the serialized payload. Tree sources are serialized as a
// standalone document carrying the namespaces in scope at the root.
func (s Source) Bytes() ([]byte, error) {
	if s.root == nil {
		if len(s.data) == 0 {
			return nil, ErrEmptySource
		}
		return s.data, nil
	}
	return xmltree.WithRoot(xmltree.Isolate(s.root)).WriteToBytes()
}

// Attachments gives access to the MIME parts of a multipart message by
// content id.
type Attachments interface {
	Attachment(id string) ([]byte, bool)
}

// MapAttachments is an in-memory Attachments keyed by content id.
type MapAttachments map[string][]byte

// Attachment implements Attachments.
func (m MapAttachments) Attachment(id string) ([]byte, bool) {
	data, ok := m[id]
	return data, ok
}
