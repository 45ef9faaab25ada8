package env

import (
	"fmt"
	"sync"
)

// Stack is the LIFO of entered environments. Only the top is current.
type Stack struct {
	mu      sync.Mutex
	entries []*Environment
}

func (s *Stack) push(e *Environment) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = append(s.entries, e)
	return len(s.entries)
}

// pop removes e, which must be the top entry.
func (s *Stack) pop(e *Environment) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := len(s.entries)
	if n == 0 || s.entries[n-1] != e {
		return n, fmt.Errorf("%w: environment %d", ErrNotCurrent, e.id)
	}
	s.entries[n-1] = nil
	s.entries = s.entries[:n-1]
	return n - 1, nil
}

// Current returns the top entry, or nil when nothing is entered.
func (s *Stack) Current() *Environment {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.entries) == 0 {
		return nil
	}
	return s.entries[len(s.entries)-1]
}

// Depth returns the number of entered environments.
func (s *Stack) Depth() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}
