package env

import (
	"errors"
	"sync"
)

var ErrPoolClosed = errors.New("environment pool is closed")

// Pool keeps a number of prepared, never-used environments so that fresh
// environment runs do not pay for runtime construction. Environments are
// handed out once and never returned; the pool refills in the background.
type Pool struct {
	ready        chan *Environment
	size         int
	maxCallStack int

	mu      sync.RWMutex
	closed  bool
	created uint64
	served  uint64
	misses  uint64
}

// NewPool creates a pool and fills it.
func NewPool(size, maxCallStack int) *Pool {
	if size <= 0 {
		size = 4
	}
	p := &Pool{
		ready:        make(chan *Environment, size),
		size:         size,
		maxCallStack: maxCallStack,
	}
	for i := 0; i < size; i++ {
		p.ready <- p.build()
	}
	return p
}

func (p *Pool) build() *Environment {
	p.mu.Lock()
	p.created++
	p.mu.Unlock()
	return newEnvironment(nil, p.maxCallStack)
}

// Acquire takes a prepared environment, building one on the spot when the
// pool is empty.
func (p *Pool) Acquire() (*Environment, error) {
	p.mu.RLock()
	closed := p.closed
	p.mu.RUnlock()
	if closed {
		return nil, ErrPoolClosed
	}

	select {
	case e, ok := <-p.ready:
		if !ok {
			return nil, ErrPoolClosed
		}
		p.mu.Lock()
		p.served++
		p.mu.Unlock()
		go p.refill()
		return e, nil
	default:
		p.mu.Lock()
		p.served++
		p.misses++
		p.mu.Unlock()
		return p.build(), nil
	}
}

func (p *Pool) refill() {
	e := p.build()

	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return
	}
	select {
	case p.ready <- e:
	default:
	}
}

// Close drops all prepared environments.
func (p *Pool) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return nil
	}
	p.closed = true
	close(p.ready)
	for range p.ready {
	}
	return nil
}

// Stats returns pool statistics.
func (p *Pool) Stats() map[string]interface{} {
	p.mu.RLock()
	defer p.mu.RUnlock()

	return map[string]interface{}{
		"size":      p.size,
		"available": len(p.ready),
		"created":   p.created,
		"served":    p.served,
		"misses":    p.misses,
		"closed":    p.closed,
	}
}
