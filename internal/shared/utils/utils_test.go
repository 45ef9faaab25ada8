package utils

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func nested(depth int) map[string]any {
	m := map[string]any{"leaf": 1}
	for i := 0; i < depth; i++ {
		m = map[string]any{"next": m}
	}
	return m
}

func TestValidateRequest(t *testing.T) {
	many := make(map[string]any, MaxSandboxKeys+1)
	for i := 0; i <= MaxSandboxKeys; i++ {
		many[fmt.Sprintf("k%d", i)] = i
	}

	tests := []struct {
		name     string
		code     string
		filename string
		sandbox  map[string]any
		wantErr  string
	}{
		{"ok", "1 + 1", "a.js", map[string]any{"a": []any{1, 2}}, ""},
		{"empty filename", "1", "", nil, ""},
		{"code too large", strings.Repeat("x", MaxCodeSize+1), "", nil, "code size"},
		{"long filename", "1", strings.Repeat("f", MaxFilenameLength+1), nil, "filename must not exceed"},
		{"newline in filename", "1", "a\nb.js", nil, "control characters"},
		{"deep sandbox", "1", "", nested(MaxSandboxDepth + 1), "nesting depth"},
		{"max depth ok", "1", "", nested(MaxSandboxDepth - 1), ""},
		{"too many keys", "1", "", many, "more than"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateRequest(tt.code, tt.filename, tt.sandbox)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			assert.ErrorContains(t, err, tt.wantErr)
		})
	}
}

func TestDigest(t *testing.T) {
	a := Digest("1 + 1")
	assert.Len(t, a, 64)
	assert.Equal(t, a, Digest("1 + 1"))
	assert.NotEqual(t, a, Digest("1 + 2"))
	assert.Equal(t, a[:12], ShortDigest(a))
	assert.Equal(t, "abc", ShortDigest("abc"))
}
