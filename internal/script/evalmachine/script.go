package evalmachine

import (
	"sync"

	"github.com/dop251/goja"

	"github.com/GriffinCanCode/evalmachine/internal/script/object"
	"github.com/GriffinCanCode/evalmachine/internal/script/sandbox"
)

// Script holds a compiled program that can be run any number of times in
// any environment. Compilation is independent of the environment it later
// runs in.
type Script struct {
	machine *Machine

	mu       sync.RWMutex
	program  *goja.Program
	filename string
	source   string
}

func (s *Script) store(p *goja.Program, filename, source string) {
	s.mu.Lock()
	s.program, s.filename, s.source = p, filename, source
	s.mu.Unlock()
}

// Program returns the compiled program, or nil before compilation.
func (s *Script) Program() *goja.Program {
	if s == nil {
		return nil
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.program
}

// Filename returns the name the script was compiled under.
func (s *Script) Filename() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.filename
}

func (s *Script) Source() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.source
}

// RunInThisContext runs the script in the machine's host environment.
func (s *Script) RunInThisContext(opts ...RunOption) (any, error) {
	return s.machine.Eval(RunInThisContext, s, positional(nil, opts)...)
}

// RunInNewContext runs the script in a fresh environment seeded from sb.
func (s *Script) RunInNewContext(sb object.Object, opts ...RunOption) (any, error) {
	return s.machine.Eval(RunInNewContext, s, positional([]any{sb}, opts)...)
}

// RunInContext runs the script in ctx's environment.
func (s *Script) RunInContext(ctx *sandbox.Context, opts ...RunOption) (any, error) {
	return s.machine.Eval(RunInContext, s, positional([]any{ctx}, opts)...)
}
