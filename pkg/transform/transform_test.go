package transform

import (
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubEngine struct{ err error }

func (s stubEngine) Compile(io.Reader) (Program, error) { return nil, s.err }

func TestLookup(t *testing.T) {
	e, err := Lookup("")
	require.NoError(t, err)
	assert.IsType(t, Rules{}, e)

	e, err = Lookup(RulesEngine)
	require.NoError(t, err)
	assert.IsType(t, Rules{}, e)

	_, err = Lookup("xslt")
	assert.ErrorIs(t, err, ErrUnknownEngine)
	assert.Contains(t, err.Error(), `"xslt"`)
}

func TestEngines(t *testing.T) {
	assert.Contains(t, Engines(), RulesEngine)
}

func TestRegister_Panics(t *testing.T) {
	assert.Panics(t, func() { Register(RulesEngine, Rules{}) })
	assert.Panics(t, func() { Register("nil-engine", nil) })
}

func TestCompile_Errors(t *testing.T) {
	t.Run("unknown engine", func(t *testing.T) {
		_, err := Compile("missing", strings.NewReader("version: 1"))
		require.Error(t, err)

		var ce *CompileError
		require.True(t, errors.As(err, &ce))
		assert.Equal(t, "missing", ce.Engine)
		assert.ErrorIs(t, err, ErrCompile)
		assert.ErrorIs(t, err, ErrUnknownEngine)
	})

	t.Run("engine error is wrapped", func(t *testing.T) {
		if _, err := Lookup("stub-failing"); err != nil {
			Register("stub-failing", stubEngine{err: errors.New("boom")})
		}

		_, err := Compile("stub-failing", strings.NewReader(""))
		var ce *CompileError
		require.True(t, errors.As(err, &ce))
		assert.Equal(t, "stub-failing", ce.Engine)
		assert.EqualError(t, err, "transform: compile stub-failing stylesheet: boom")
	})

	t.Run("default engine", func(t *testing.T) {
		p, err := Compile("", strings.NewReader("version: 1"))
		require.NoError(t, err)
		assert.NotNil(t, p.NewExecutor())
	})
}

func TestError_Message(t *testing.T) {
	err := &Error{Op: "select", Err: errors.New("nothing")}
	assert.EqualError(t, err, "transform: select: nothing")
	assert.ErrorIs(t, err, ErrTransform)

	err = &Error{Rule: 2, Op: "remove", Err: errors.New("root")}
	assert.EqualError(t, err, "transform: rule 2 (remove): root")
}
