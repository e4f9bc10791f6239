// Package script runs Starlark programs against a dispatch session.
//
// Scripts see tensors as values of type "tensor" supporting + - * / and
// methods such as sin, sum and matmul, plus the builtins registered by
// Env: tensor constructors and the function transforms vmap, grad,
// grad_and_value, vjp, jvp, jacrev, jacfwd and hessian. Transforms accept
// any Starlark callable and return builtins, so they compose by nesting
// exactly like their Go counterparts.
package script

import (
	"fmt"
	"io"
	"os"

	"go.starlark.net/starlark"
	"go.starlark.net/syntax"

	"github.com/born-ml/xform/internal/dispatch"
)

// Env executes scripts against one session.
type Env struct {
	s   *dispatch.Session
	out io.Writer
}

// Option configures an Env.
type Option func(*Env)

// WithOutput redirects the output of print.
func WithOutput(w io.Writer) Option {
	return func(e *Env) {
		e.out = w
	}
}

// New returns an environment bound to s.
func New(s *dispatch.Session, opts ...Option) *Env {
	e := &Env{s: s, out: os.Stdout}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Globals returns the predeclared names visible to scripts.
func (e *Env) Globals() starlark.StringDict {
	globals := starlark.StringDict{}
	for name, fn := range e.constructors() {
		globals[name] = starlark.NewBuiltin(name, fn)
	}
	for name, fn := range e.transforms() {
		globals[name] = starlark.NewBuiltin(name, fn)
	}
	return globals
}

// Exec runs the program in src (a string, []byte or nil to read filename)
// and returns its globals.
func (e *Env) Exec(filename string, src any) (starlark.StringDict, error) {
	thread := &starlark.Thread{
		Name: filename,
		Print: func(_ *starlark.Thread, msg string) {
			fmt.Fprintln(e.out, msg)
		},
	}
	opts := &syntax.FileOptions{
		Set:             true,
		While:           true,
		TopLevelControl: true,
		GlobalReassign:  true,
	}
	e.s.Logger().Debug("exec script", "file", filename)
	globals, err := starlark.ExecFileOptions(opts, thread, filename, src, e.Globals())
	if err != nil {
		e.s.Logger().Debug("script failed", "file", filename, "error", err)
		return nil, err
	}
	return globals, nil
}

// Result returns the tensor or pytree bound to name in globals, converted
// back to Go values.
func Result(globals starlark.StringDict, name string) (any, error) {
	v, ok := globals[name]
	if !ok {
		return nil, fmt.Errorf("script does not define %q", name)
	}
	return toGo(v)
}

type builtinFunc = func(*starlark.Thread, *starlark.Builtin, starlark.Tuple, []starlark.Tuple) (starlark.Value, error)
