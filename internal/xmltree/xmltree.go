package xmltree

import (
	"strings"

	"github.com/beevik/etree"
	"golang.org/x/net/html/charset"
)

// NewDocument returns an empty document whose reader accepts any charset
// label known to golang.org/x/net (ISO-8859-1, windows-1252, ...).
func NewDocument() *etree.Document {
	doc := etree.NewDocument()
	doc.ReadSettings.CharsetReader = charset.NewReaderLabel
	return doc
}

// Parse reads an XML document from data.
func Parse(data []byte) (*etree.Document, error) {
	doc := NewDocument()
	if err := doc.ReadFromBytes(data); err != nil {
		return nil, err
	}
	return doc, nil
}

// WithRoot wraps el in a new document.
func WithRoot(el *etree.Element) *etree.Document {
	doc := etree.NewDocument()
	doc.SetRoot(el)
	return doc
}

// Isolate returns a deep copy of el that can stand alone as a document root.
// Namespace declarations that are in scope at el's original position but
// declared on an ancestor are re-declared on the copy.
func Isolate(el *etree.Element) *etree.Element {
	if el == nil {
		return nil
	}
	cp := el.Copy()

	declared := make(map[string]bool)
	for _, a := range cp.Attr {
		if prefix, ok := nsDecl(a); ok {
			declared[prefix] = true
		}
	}
	for p := el.Parent(); p != nil; p = p.Parent() {
		for _, a := range p.Attr {
			prefix, ok := nsDecl(a)
			if !ok || declared[prefix] {
				continue
			}
			declared[prefix] = true
			cp.CreateAttr(a.FullKey(), a.Value)
		}
	}
	return cp
}

// nsDecl reports whether a is a namespace declaration and returns the
// declared prefix ("" for the default namespace).
func nsDecl(a etree.Attr) (string, bool) {
	switch {
	case a.Space == "" && a.Key == "xmlns":
		return "", true
	case a.Space == "xmlns":
		return a.Key, true
	}
	return "", false
}

// TextContent returns the concatenated character data (text and CDATA) of
// el and all of its descendants in document order.
func TextContent(el *etree.Element) string {
	if el == nil {
		return ""
	}
	var sb strings.Builder
	appendText(&sb, el)
	return sb.String()
}

func appendText(sb *strings.Builder, el *etree.Element) {
	for _, tok := range el.Child {
		switch t := tok.(type) {
		case *etree.CharData:
			sb.WriteString(t.Data)
		case *etree.Element:
			appendText(sb, t)
		}
	}
}
