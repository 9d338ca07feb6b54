package transform

import (
	"errors"
	"fmt"
	"io"
	"sort"
	"sync"

	"github.com/beevik/etree"
)

// DefaultEngine is the engine used when no engine name is given.
const DefaultEngine = RulesEngine

// Engine compiles stylesheet sources into reusable programs.
type Engine interface {
	Compile(r io.Reader) (Program, error)
}

// Program is a compiled, immutable transform. A Program is safe for
// concurrent use; each execution must go through its own Executor.
type Program interface {
	NewExecutor() Executor
}

// Executor runs a Program once against an input tree. The input is never
// modified; the result is a new document. Executors hold per-run state and
// must not be shared between goroutines.
type Executor interface {
	Transform(root *etree.Element) (*etree.Document, error)
}

var (
	registryMu sync.RWMutex
	engines    = make(map[string]Engine)
)

// Register makes an engine available by name. It panics if the name is
// already taken or the engine is nil.
func Register(name string, e Engine) {
	registryMu.Lock()
	defer registryMu.Unlock()
	if e == nil {
		panic("transform: Register engine is nil")
	}
	if _, dup := engines[name]; dup {
		panic("transform: Register called twice for engine " + name)
	}
	engines[name] = e
}

// Lookup returns the engine registered under name. An empty name selects
// DefaultEngine.
func Lookup(name string) (Engine, error) {
	if name == "" {
		name = DefaultEngine
	}
	registryMu.RLock()
	e, ok := engines[name]
	registryMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownEngine, name)
	}
	return e, nil
}

// Engines returns the sorted names of all registered engines.
func Engines() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	names := make([]string, 0, len(engines))
	for name := range engines {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Compile looks up the named engine and compiles r with it. Any failure,
// including an unknown engine, is returned as a *CompileError.
func Compile(name string, r io.Reader) (Program, error) {
	if name == "" {
		name = DefaultEngine
	}
	e, err := Lookup(name)
	if err != nil {
		return nil, &CompileError{Engine: name, Err: err}
	}
	p, err := e.Compile(r)
	if err != nil {
		var ce *CompileError
		if errors.As(err, &ce) {
			return nil, err
		}
		return nil, &CompileError{Engine: name, Err: err}
	}
	return p, nil
}
