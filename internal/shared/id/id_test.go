package id

import (
	"bytes"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateWithPrefix(t *testing.T) {
	gen := NewGenerator()

	for _, prefix := range []string{ContextPrefix, ScriptPrefix, RequestPrefix, SessionPrefix} {
		id := gen.GenerateWithPrefix(prefix)
		assert.True(t, HasPrefix(id, prefix), id)
		assert.Len(t, strings.TrimPrefix(id, prefix+"_"), 26)
	}
}

func TestTypedIDs(t *testing.T) {
	assert.True(t, HasPrefix(NewContextID().String(), "ctx"))
	assert.True(t, HasPrefix(NewScriptID().String(), "scr"))
	assert.True(t, HasPrefix(NewRequestID().String(), "req"))
	assert.True(t, HasPrefix(NewSessionID().String(), "repl"))
	assert.False(t, HasPrefix(NewScriptID().String(), "ctx"))
	assert.False(t, HasPrefix("ctx_notaulid", "ctx"))
}

func TestTimestamp(t *testing.T) {
	before := time.Now().Add(-time.Second)
	ts, err := Timestamp(NewContextID().String())
	require.NoError(t, err)
	assert.True(t, ts.After(before))

	_, err = Timestamp("ctx_bad")
	assert.Error(t, err)
}

func TestDeterministicEntropy(t *testing.T) {
	a := NewGeneratorWithEntropy(bytes.NewReader(make([]byte, 64))).Generate()
	b := NewGeneratorWithEntropy(bytes.NewReader(make([]byte, 64))).Generate()
	assert.Equal(t, a.Entropy(), b.Entropy())
}

func TestConcurrentGeneration(t *testing.T) {
	gen := NewGenerator()
	const workers, perWorker = 8, 100

	var mu sync.Mutex
	seen := make(map[string]bool, workers*perWorker)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < perWorker; j++ {
				id := gen.GenerateString()
				mu.Lock()
				seen[id] = true
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	assert.Len(t, seen, workers*perWorker)
}

func TestSortsByCreation(t *testing.T) {
	var ids []string
	for i := 0; i < 3; i++ {
		ids = append(ids, NewScriptID().String())
		time.Sleep(2 * time.Millisecond)
	}
	sorted := append([]string(nil), ids...)
	sort.Strings(sorted)
	assert.Equal(t, ids, sorted)
}

func BenchmarkGenerateWithPrefix(b *testing.B) {
	gen := NewGenerator()
	for i := 0; i < b.N; i++ {
		_ = gen.GenerateWithPrefix(ContextPrefix)
	}
}
