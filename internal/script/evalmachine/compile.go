package evalmachine

import (
	"errors"
	"strings"

	"github.com/dop251/goja"
	"github.com/dop251/goja/file"
	"github.com/dop251/goja/parser"

	"github.com/GriffinCanCode/evalmachine/internal/script/scripterr"
)

// compile parses and compiles code. Parsing first keeps the position of
// syntax errors, which goja.Compile would discard.
func compile(code, filename string) (*goja.Program, error) {
	ast, err := parser.ParseFile(nil, filename, code, 0, parser.WithDisableSourceMaps)
	if err != nil {
		return nil, compileError(code, filename, err)
	}
	p, err := goja.CompileAST(ast, false)
	if err != nil {
		return nil, compileError(code, filename, err)
	}
	return p, nil
}

func compileError(code, filename string, err error) *scripterr.CompileError {
	ce := &scripterr.CompileError{Filename: filename, Message: err.Error(), Err: err}

	var pos file.Position
	var list parser.ErrorList
	var perr *parser.Error
	var syntaxErr *goja.CompilerSyntaxError
	var refErr *goja.CompilerReferenceError
	switch {
	case errors.As(err, &list) && len(list) > 0:
		pos, ce.Message = list[0].Position, list[0].Message
	case errors.As(err, &perr):
		pos, ce.Message = perr.Position, perr.Message
	case errors.As(err, &syntaxErr):
		ce.Message = syntaxErr.Message
		if syntaxErr.File != nil {
			pos = syntaxErr.File.Position(syntaxErr.Offset)
		}
	case errors.As(err, &refErr):
		ce.Message = refErr.Message
		if refErr.File != nil {
			pos = refErr.File.Position(refErr.Offset)
		}
	}

	ce.Line, ce.Column = pos.Line, pos.Column
	ce.SourceLine = sourceLine(code, pos.Line)
	return ce
}

func sourceLine(code string, line int) string {
	if line < 1 {
		return ""
	}
	lines := strings.Split(code, "\n")
	if line > len(lines) {
		return ""
	}
	return strings.TrimRight(lines[line-1], "\r")
}
