package binding

import (
	"encoding/base64"
	"encoding/xml"
	"fmt"
	"log/slog"
	"net/url"
	"reflect"
	"strings"
	"sync"

	"github.com/beevik/etree"

	"github.com/getmockd/soapkit/internal/xmltree"
	"github.com/getmockd/soapkit/pkg/logging"
)

// XOPNamespace is the namespace of xop:Include elements.
const XOPNamespace = "http://www.w3.org/2004/08/xop/include"

// Unmarshaller converts a source into a value.
type Unmarshaller interface {
	Unmarshal(src Source, att Attachments) (any, error)
}

// UnmarshalFunc adapts a function to the Unmarshaller interface.
type UnmarshalFunc func(src Source, att Attachments) (any, error)

// Unmarshal implements Unmarshaller.
func (f UnmarshalFunc) Unmarshal(src Source, att Attachments) (any, error) {
	return f(src, att)
}

var xmlNameType = reflect.TypeOf(xml.Name{})

// Binder decodes payloads into struct types registered by root element name.
// Registration is expected at setup time; Unmarshal is safe for concurrent use.
type Binder struct {
	mu     sync.RWMutex
	types  map[xml.Name]reflect.Type
	logger *slog.Logger
}

// BinderOption configures a Binder.
type BinderOption func(*Binder)

// WithBinderLogger sets the binder's logger.
func WithBinderLogger(logger *slog.Logger) BinderOption {
	return func(b *Binder) {
		if logger != nil {
			b.logger = logger
		}
	}
}

// NewBinder creates an empty binder.
func NewBinder(opts ...BinderOption) *Binder {
	b := &Binder{
		types:  make(map[xml.Name]reflect.Type),
		logger: logging.Nop(),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Register binds the prototype's type to the element named by its XMLName
// field tag ("namespace local" or "local"). Types without an XMLName tag are
// bound to their Go type name in any namespace.
func (b *Binder) Register(prototype any) error {
	typ, err := structType(prototype)
	if err != nil {
		return err
	}

	name := xml.Name{Local: typ.Name()}
	if f, ok := typ.FieldByName("XMLName"); ok && f.Type == xmlNameType {
		tag, _, _ := strings.Cut(f.Tag.Get("xml"), ",")
		if space, local, ok := strings.Cut(tag, " "); ok {
			name = xml.Name{Space: space, Local: local}
		} else if tag != "" {
			name = xml.Name{Local: tag}
		}
	}
	return b.bind(name, typ)
}

// RegisterName binds the prototype's type to an explicit element name. An
// empty space matches the local name in any namespace.
func (b *Binder) RegisterName(space, local string, prototype any) error {
	typ, err := structType(prototype)
	if err != nil {
		return err
	}
	return b.bind(xml.Name{Space: space, Local: local}, typ)
}

func (b *Binder) bind(name xml.Name, typ reflect.Type) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if existing, ok := b.types[name]; ok {
		return fmt.Errorf("%w: {%s}%s is bound to %s", ErrDuplicateBinding, name.Space, name.Local, existing)
	}
	b.types[name] = typ
	b.logger.Debug("bound element", "namespace", name.Space, "element", name.Local, "type", typ.String())
	return nil
}

func structType(prototype any) (reflect.Type, error) {
	typ := reflect.TypeOf(prototype)
	for typ != nil && typ.Kind() == reflect.Pointer {
		typ = typ.Elem()
	}
	if typ == nil || typ.Kind() != reflect.Struct {
		return nil, fmt.Errorf("%w: %T", ErrNotStruct, prototype)
	}
	return typ, nil
}

// Lookup returns the type bound to the element, trying the exact namespace
// first and then the any-namespace binding.
func (b *Binder) Lookup(space, local string) (reflect.Type, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if typ, ok := b.types[xml.Name{Space: space, Local: local}]; ok {
		return typ, true
	}
	typ, ok := b.types[xml.Name{Local: local}]
	return typ, ok
}

// Unmarshal decodes src into a new value of the type bound to its root
// element and returns a pointer to it.
func (b *Binder) Unmarshal(src Source, att Attachments) (any, error) {
	root, err := src.Tree()
	if err != nil {
		return nil, &MappingError{Op: "read", Err: err}
	}

	space := root.NamespaceURI()
	typ, ok := b.Lookup(space, root.Tag)
	if !ok {
		return nil, &MappingError{Op: "lookup", Err: fmt.Errorf("%w: {%s}%s", ErrUnboundElement, space, root.Tag)}
	}

	el := xmltree.Isolate(root)
	if err := resolveIncludes(el, att); err != nil {
		return nil, &MappingError{Op: "attachment", Err: err}
	}
	data, err := xmltree.WithRoot(el).WriteToBytes()
	if err != nil {
		return nil, &MappingError{Op: "decode", Err: err}
	}

	v := reflect.New(typ)
	if err := xml.Unmarshal(data, v.Interface()); err != nil {
		return nil, &MappingError{Op: "decode", Msg: "into " + typ.String(), Err: err}
	}
	return v.Interface(), nil
}

// resolveIncludes replaces every xop:Include below el with the base64 text
// of the attachment it references.
func resolveIncludes(el *etree.Element, att Attachments) error {
	for i := 0; i < len(el.Child); i++ {
		child, ok := el.Child[i].(*etree.Element)
		if !ok {
			continue
		}
		if child.Tag != "Include" || child.NamespaceURI() != XOPNamespace {
			if err := resolveIncludes(child, att); err != nil {
				return err
			}
			continue
		}

		href := child.SelectAttrValue("href", "")
		data, err := attachment(href, att)
		if err != nil {
			return err
		}
		el.RemoveChildAt(i)
		el.InsertChildAt(i, etree.NewText(base64.StdEncoding.EncodeToString(data)))
	}
	return nil
}

func attachment(href string, att Attachments) ([]byte, error) {
	id, ok := strings.CutPrefix(href, "cid:")
	if !ok {
		return nil, fmt.Errorf("%w: unsupported href %q", ErrMissingAttachment, href)
	}
	if unescaped, err := url.PathUnescape(id); err == nil {
		id = unescaped
	}
	if att != nil {
		if data, ok := att.Attachment(id); ok {
			return data, nil
		}
		if data, ok := att.Attachment("<" + id + ">"); ok {
			return data, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrMissingAttachment, id)
}

// Base64Binary is a []byte field type that decodes xs:base64Binary content,
// including content inlined from xop:Include attachments.
type Base64Binary []byte

// UnmarshalText implements encoding.TextUnmarshaler.
func (b *Base64Binary) UnmarshalText(text []byte) error {
	clean := strings.Join(strings.Fields(string(text)), "")
	data, err := base64.StdEncoding.DecodeString(clean)
	if err != nil {
		return err
	}
	*b = data
	return nil
}

// MarshalText implements encoding.TextMarshaler.
func (b Base64Binary) MarshalText() ([]byte, error) {
	return []byte(base64.StdEncoding.EncodeToString(b)), nil
}

// Raw returns the payload as a standalone *etree.Document.
type Raw struct{}

// Unmarshal implements Unmarshaller.
func (Raw) Unmarshal(src Source, _ Attachments) (any, error) {
	root, err := src.Tree()
	if err != nil {
		return nil, &MappingError{Op: "read", Err: err}
	}
	return xmltree.WithRoot(xmltree.Isolate(root)), nil
}
