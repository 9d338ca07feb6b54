package soap

import (
	"fmt"

	"github.com/beevik/etree"
)

// Version represents the SOAP protocol version.
type Version string

const (
	// SOAP11 represents SOAP 1.1 protocol.
	SOAP11 Version = "1.1"
	// SOAP12 represents SOAP 1.2 protocol.
	SOAP12 Version = "1.2"
)

// SOAP namespace URIs
const (
	SOAP11Namespace = "http://schemas.xmlsoap.org/soap/envelope/"
	SOAP12Namespace = "http://www.w3.org/2003/05/soap-envelope"
)

// ContentTypes for SOAP versions
const (
	SOAP11ContentType = "text/xml; charset=utf-8"
	SOAP12ContentType = "application/soap+xml; charset=utf-8"
)

// ParseVersion parses "1.1" or "1.2". An empty string selects SOAP 1.1.
func ParseVersion(s string) (Version, error) {
	switch s {
	case "", "1.1", "11":
		return SOAP11, nil
	case "1.2", "12":
		return SOAP12, nil
	}
	return "", fmt.Errorf("unsupported SOAP version %q", s)
}

// Namespace returns the envelope namespace URI for v.
func (v Version) Namespace() string {
	if v == SOAP12 {
		return SOAP12Namespace
	}
	return SOAP11Namespace
}

// ContentType returns the request Content-Type for v. For SOAP 1.2 a
// non-empty action is carried as the action parameter.
func (v Version) ContentType(action string) string {
	if v == SOAP12 {
		if action != "" {
			return fmt.Sprintf("%s; action=%q", SOAP12ContentType, action)
		}
		return SOAP12ContentType
	}
	return SOAP11ContentType
}

// Fault is a SOAP fault read from a response body. Both the SOAP 1.1
// (faultcode/faultstring/faultactor/detail) and the SOAP 1.2
// (Code/Reason/Role/Detail) shapes are accepted.
type Fault struct {
	Code   string
	Reason string
	Actor  string

	detail *etree.Element
}

// Detail returns the fault's detail element, or nil when there is none.
func (f *Fault) Detail() *etree.Element {
	if f == nil {
		return nil
	}
	return f.detail
}

// DetailEntries returns the child elements of the detail section in
// document order. The returned elements still belong to the message tree.
func (f *Fault) DetailEntries() []*etree.Element {
	if f == nil || f.detail == nil {
		return nil
	}
	return f.detail.ChildElements()
}

func parseFault(el *etree.Element) *Fault {
	f := &Fault{}

	if c := el.SelectElement("faultcode"); c != nil {
		f.Code = trimmedText(c)
	} else if c := el.SelectElement("Code"); c != nil {
		if v := c.SelectElement("Value"); v != nil {
			f.Code = trimmedText(v)
		}
	}

	if r := el.SelectElement("faultstring"); r != nil {
		f.Reason = trimmedText(r)
	} else if r := el.SelectElement("Reason"); r != nil {
		if t := r.SelectElement("Text"); t != nil {
			f.Reason = trimmedText(t)
		}
	}

	if a := el.SelectElement("faultactor"); a != nil {
		f.Actor = trimmedText(a)
	} else if a := el.SelectElement("Role"); a != nil {
		f.Actor = trimmedText(a)
	}

	f.detail = el.SelectElement("detail")
	if f.detail == nil {
		f.detail = el.SelectElement("Detail")
	}
	return f
}
