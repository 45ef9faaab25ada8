package env

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPoolHandsOutDistinctEnvironments(t *testing.T) {
	p := NewPool(2, 0)
	defer p.Close()

	seen := make(map[*Environment]bool)
	for i := 0; i < 5; i++ {
		e, err := p.Acquire()
		require.NoError(t, err)
		assert.False(t, seen[e], "environment handed out twice")
		seen[e] = true
	}

	stats := p.Stats()
	assert.Equal(t, 2, stats["size"])
	assert.Equal(t, uint64(5), stats["served"])
}

func TestPoolClosed(t *testing.T) {
	p := NewPool(1, 0)
	require.NoError(t, p.Close())
	require.NoError(t, p.Close())

	_, err := p.Acquire()
	assert.ErrorIs(t, err, ErrPoolClosed)
	assert.Equal(t, true, p.Stats()["closed"])
}

func TestManagerFallsBackWhenPoolClosed(t *testing.T) {
	p := NewPool(1, 0)
	require.NoError(t, p.Close())

	log := &EventLog{}
	m := NewManager(WithPool(p), WithObserver(log))
	e := m.Create()
	require.NotNil(t, e)
	assert.Equal(t, 1, log.Count(EventCreated, e.ID()))
}

func TestManagerUsesPool(t *testing.T) {
	p := NewPool(1, 0)
	defer p.Close()
	m := NewManager(WithPool(p))

	e := m.Create()
	v, err := e.Run(compile(t, "typeof Object"))
	require.NoError(t, err)
	assert.Equal(t, "function", v.String())
	assert.GreaterOrEqual(t, p.Stats()["served"], uint64(1))
}
