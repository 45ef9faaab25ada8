package scripterr

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/dop251/goja"
)

// Static messages reported to callers.
const (
	MsgNeedsCode        = "needs at least 'code' argument."
	MsgNeedsContext     = "needs a 'context' argument."
	MsgNotMethod        = "Must be called as a method of Script."
	MsgNotCompiled      = "'this' must be a result of previous new Script(code) call."
	MsgContextNotObject = "Argument to Context constructor must be an object."
	MsgContextArity     = "Wrong number of arguments passed to Context constructor"
	MsgContextClosed    = "context has been disposed."
)

// Kind classifies an error for metrics and transport mapping.
type Kind string

const (
	KindArgument Kind = "argument"
	KindCompile  Kind = "compile"
	KindRuntime  Kind = "runtime"
	KindMisuse   Kind = "misuse"
	KindInternal Kind = "internal"
)

// ArgumentError reports a positional argument of the wrong arity or type.
// It is raised before any environment is touched.
type ArgumentError struct {
	Message string
}

func (e *ArgumentError) Error() string { return e.Message }

// Argument returns an ArgumentError with msg.
func Argument(msg string) error {
	return &ArgumentError{Message: msg}
}

// MisuseError reports a run method invoked on something that is not a
// compiled script, or against a context that can no longer be used.
type MisuseError struct {
	Message string
	Err     error
}

func (e *MisuseError) Error() string { return e.Message }

func (e *MisuseError) Unwrap() error { return e.Err }

// Misuse returns a MisuseError with msg.
func Misuse(msg string) error {
	return &MisuseError{Message: msg}
}

// CompileError is a syntax error. It has a location but no stack.
type CompileError struct {
	Filename   string
	Line       int
	Column     int
	Message    string
	SourceLine string
	Err        error
}

func (e *CompileError) Error() string {
	if e.Line == 0 {
		return fmt.Sprintf("%s: SyntaxError: %s", e.Filename, e.Message)
	}
	return fmt.Sprintf("%s:%d:%d: SyntaxError: %s", e.Filename, e.Line, e.Column, e.Message)
}

func (e *CompileError) Unwrap() error { return e.Err }

// Render writes the offending line with a caret under the error column,
// followed by the error itself:
//
//	file.js:1
//	var x = {;
//	         ^
//	SyntaxError: Unexpected token ;
func (e *CompileError) Render(w io.Writer) error {
	var b strings.Builder
	fmt.Fprintf(&b, "%s:%d\n", e.Filename, e.Line)
	if e.SourceLine != "" {
		b.WriteString(e.SourceLine)
		b.WriteByte('\n')
		b.WriteString(caretPad(e.SourceLine, e.Column))
		b.WriteString("^\n")
	}
	fmt.Fprintf(&b, "SyntaxError: %s\n", e.Message)
	_, err := io.WriteString(w, b.String())
	return err
}

// caretPad keeps tabs so the caret lines up with the source line.
func caretPad(line string, column int) string {
	if column <= 1 {
		return ""
	}
	var b strings.Builder
	for i, r := range line {
		if i >= column-1 {
			break
		}
		if r == '\t' {
			b.WriteByte('\t')
		} else {
			b.WriteByte(' ')
		}
	}
	return b.String()
}

// RuntimeError is an exception raised by executing code. Value is the thrown
// value as a host value.
type RuntimeError struct {
	Filename  string
	Exception *goja.Exception
	Value     any
}

func (e *RuntimeError) Error() string {
	if e.Exception == nil {
		return fmt.Sprintf("%s: uncaught exception", e.Filename)
	}
	return e.Exception.Error()
}

func (e *RuntimeError) Unwrap() error {
	if e.Exception == nil {
		return nil
	}
	return e.Exception
}

// Render writes the exception with its stack trace.
func (e *RuntimeError) Render(w io.Writer) error {
	msg := e.Error()
	if e.Exception != nil {
		msg = e.Exception.String()
	}
	_, err := io.WriteString(w, strings.TrimRight(msg, "\n")+"\n")
	return err
}

// KindOf classifies err. Errors outside the taxonomy are internal.
func KindOf(err error) Kind {
	var (
		argErr     *ArgumentError
		compileErr *CompileError
		runtimeErr *RuntimeError
		misuseErr  *MisuseError
	)
	switch {
	case err == nil:
		return ""
	case errors.As(err, &argErr):
		return KindArgument
	case errors.As(err, &compileErr):
		return KindCompile
	case errors.As(err, &runtimeErr):
		return KindRuntime
	case errors.As(err, &misuseErr):
		return KindMisuse
	}
	return KindInternal
}
