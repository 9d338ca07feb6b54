package binding

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/getmockd/soapkit/pkg/logging"
	"github.com/getmockd/soapkit/pkg/metrics"
	"github.com/getmockd/soapkit/pkg/transform"
)

// compiledProgram pairs a program with the engine that compiled it.
type compiledProgram struct {
	engine string
	prog   transform.Program
}

// TransformingUnmarshaller runs an optional compiled transform over every
// payload before handing the result to the wrapped Unmarshaller.
//
// The compiled program is shared by all calls; each call gets its own
// executor. Unmarshal is safe for concurrent use, including concurrently
// with the setters.
type TransformingUnmarshaller struct {
	next    Unmarshaller
	logger  *slog.Logger
	program atomic.Pointer[compiledProgram]

	mu     sync.Mutex
	engine string
}

// Option configures a TransformingUnmarshaller.
type Option func(*TransformingUnmarshaller)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(t *TransformingUnmarshaller) {
		if logger != nil {
			t.logger = logger
		}
	}
}

// WithEngine selects the transform engine used by SetTransformProgram.
func WithEngine(name string) Option {
	return func(t *TransformingUnmarshaller) {
		t.engine = name
	}
}

// NewTransformingUnmarshaller wraps next. Without a transform program it
// passes every call straight through.
func NewTransformingUnmarshaller(next Unmarshaller, opts ...Option) *TransformingUnmarshaller {
	t := &TransformingUnmarshaller{
		next:   next,
		logger: logging.Nop(),
		engine: transform.DefaultEngine,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// SetEngine selects the engine for subsequent SetTransformProgram calls.
// An empty name selects transform.DefaultEngine.
func (t *TransformingUnmarshaller) SetEngine(name string) {
	if name == "" {
		name = transform.DefaultEngine
	}
	t.mu.Lock()
	t.engine = name
	t.mu.Unlock()
}

// Engine returns the selected engine name.
func (t *TransformingUnmarshaller) Engine() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.engine
}

// SetTransformProgram compiles the stylesheet read from r with the selected
// engine and installs it. On failure the previous program stays in place.
func (t *TransformingUnmarshaller) SetTransformProgram(r io.Reader) error {
	engine := t.Engine()
	prog, err := transform.Compile(engine, r)
	if err != nil {
		return err
	}
	t.program.Store(&compiledProgram{engine: engine, prog: prog})
	t.logger.Debug("transform program installed", "engine", engine)
	return nil
}

// SetTransformFile compiles and installs the stylesheet at path.
func (t *TransformingUnmarshaller) SetTransformFile(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open stylesheet: %w", err)
	}
	defer f.Close()
	return t.SetTransformProgram(f)
}

// SetProgram installs an already compiled program under the selected engine
// name. A nil program restores pass-through behavior.
func (t *TransformingUnmarshaller) SetProgram(prog transform.Program) {
	if prog == nil {
		t.program.Store(nil)
		return
	}
	t.program.Store(&compiledProgram{engine: t.Engine(), prog: prog})
}

// HasTransform reports whether a transform program is installed.
func (t *TransformingUnmarshaller) HasTransform() bool {
	return t.program.Load() != nil
}

// Unmarshal transforms src, if a program is installed, and unmarshals the
// result with the wrapped Unmarshaller. Transform failures are returned as
// a *MappingError wrapping the *transform.Error.
func (t *TransformingUnmarshaller) Unmarshal(src Source, att Attachments) (any, error) {
	if t.next == nil {
		return nil, &MappingError{Op: "decode", Err: errors.New("no unmarshaller configured")}
	}

	cp := t.program.Load()
	if cp == nil {
		v, err := t.next.Unmarshal(src, att)
		metrics.RecordUnmarshal("direct", status(err))
		return v, err
	}

	root, err := src.Tree()
	if err != nil {
		metrics.RecordUnmarshal("transformed", "error")
		return nil, &MappingError{Op: "read", Err: err}
	}

	start := time.Now()
	out, err := cp.prog.NewExecutor().Transform(root)
	elapsed := time.Since(start)
	metrics.ObserveTransform(cp.engine, elapsed)
	if err == nil && (out == nil || out.Root() == nil) {
		err = &transform.Error{Op: "output", Err: errors.New("transform produced no root element")}
	}
	if err != nil {
		t.logger.Debug("transform failed", "engine", cp.engine, "error", err)
		metrics.RecordUnmarshal("transformed", "error")
		return nil, &MappingError{Op: "transform", Msg: "could not unmarshal due to a transform failure", Err: err}
	}
	t.logger.Debug("payload transformed", "engine", cp.engine, "duration", elapsed, "root", out.Root().FullTag())

	v, err := t.next.Unmarshal(TreeSource(out.Root()), att)
	metrics.RecordUnmarshal("transformed", status(err))
	return v, err
}

func status(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
