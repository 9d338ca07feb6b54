package fault

import (
	"errors"
	"fmt"
	"log/slog"
	"reflect"
	"sync"

	"github.com/beevik/etree"

	"github.com/getmockd/soapkit/pkg/binding"
	"github.com/getmockd/soapkit/pkg/logging"
	"github.com/getmockd/soapkit/pkg/metrics"
)

// Message is the received fault as seen by the resolver. *soap.Message
// implements it.
type Message interface {
	// DetailEntries returns the child elements of the fault detail in order.
	DetailEntries() []*etree.Element
	// Document returns the whole response document.
	Document() *etree.Document
	// ClientFault returns the error describing the fault as a client fault.
	ClientFault() error
}

// Decoder turns a fault detail into an application error.
type Decoder interface {
	// ResolveFault handles the decoded detail. It normally returns the
	// application's own error. Returning nil hands the fault back to the
	// generic extraction. A returned error matching binding.ErrMapping is
	// treated as a decode failure.
	ResolveFault(msg Message, decoded any) error

	// FaultUnmarshaller returns the unmarshaller for the detail entry.
	FaultUnmarshaller() binding.Unmarshaller
}

// FuncDecoder is a Decoder built from an unmarshaller and a function.
type FuncDecoder struct {
	Unmarshaller binding.Unmarshaller
	Resolve      func(msg Message, decoded any) error
}

// ResolveFault implements Decoder.
func (d FuncDecoder) ResolveFault(msg Message, decoded any) error {
	if d.Resolve == nil {
		return nil
	}
	return d.Resolve(msg, decoded)
}

// FaultUnmarshaller implements Decoder.
func (d FuncDecoder) FaultUnmarshaller() binding.Unmarshaller { return d.Unmarshaller }

// Resolver reports SOAP faults. It is safe for concurrent use.
type Resolver struct {
	mu      sync.RWMutex
	decoder Decoder
	logger  *slog.Logger
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithDecoder sets the custom fault decoder.
func WithDecoder(d Decoder) Option {
	return func(r *Resolver) {
		r.decoder = d
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Resolver) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// NewResolver creates a resolver. Without a decoder every fault goes
// through generic extraction.
func NewResolver(opts ...Option) *Resolver {
	r := &Resolver{logger: logging.Nop()}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// SetDecoder replaces the custom fault decoder. nil removes it.
func (r *Resolver) SetDecoder(d Decoder) {
	r.mu.Lock()
	r.decoder = d
	r.mu.Unlock()
}

// Decoder returns the configured decoder, if any.
func (r *Resolver) Decoder() Decoder {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.decoder
}

// Resolve explains msg. It never returns nil: the result is the decoder's
// own error, ErrMissingUnmarshaller for a misconfigured decoder, a wrapped
// unmarshaller failure that is not a mapping error, or an *Error.
//
// If msg also implements binding.Attachments, it is passed to the
// unmarshaller so detail entries can reference attachments.
func (r *Resolver) Resolve(msg Message) error {
	if msg == nil {
		metrics.RecordFault("generic")
		return &Error{Message: GenericMessage, Fields: ExtractedFields{}}
	}

	var suppressed error
	if dec := r.Decoder(); dec != nil {
		var um binding.Unmarshaller
		if !isNil(dec) {
			um = dec.FaultUnmarshaller()
		}
		if isNil(um) {
			metrics.RecordFault("config_error")
			return fmt.Errorf("%w (%T)", ErrMissingUnmarshaller, dec)
		}

		entries := msg.DetailEntries()
		if len(entries) == 0 {
			r.logger.Debug("fault has no detail entry, skipping decoder")
		} else {
			att, _ := msg.(binding.Attachments)
			decoded, err := um.Unmarshal(binding.TreeSource(entries[0]), att)
			switch {
			case errors.Is(err, binding.ErrMapping):
				suppressed = err
			case err != nil:
				metrics.RecordFault("decode_error")
				return fmt.Errorf("fault: decode detail: %w", err)
			default:
				r.logger.Debug("fault detail decoded", "type", fmt.Sprintf("%T", decoded))
				if err := dec.ResolveFault(msg, decoded); err != nil {
					if !errors.Is(err, binding.ErrMapping) {
						metrics.RecordFault("custom")
						return err
					}
					suppressed = err
				} else {
					r.logger.Debug("decoder did not report the fault, using generic extraction")
				}
			}
			if suppressed != nil {
				r.logger.Warn("fault detail could not be decoded", "error", suppressed)
			}
		}
	}

	fields := ExtractFields(msg.Document())
	metrics.RecordFault("generic")
	return &Error{
		Message:    fields.Message(),
		Fields:     fields,
		Cause:      msg.ClientFault(),
		Suppressed: suppressed,
	}
}

func isNil(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Func, reflect.Interface, reflect.Slice, reflect.Chan:
		return rv.IsNil()
	}
	return false
}
