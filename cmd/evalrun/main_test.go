package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestRun(t *testing.T) {
	seedFile := writeFile(t, "seed.yaml", "n: 2\nuser:\n  name: ada\n")
	script := writeFile(t, "double.js", "console.log('doubling'); n = n * 2; user.name + ':' + n")

	tests := []struct {
		name       string
		args       []string
		wantCode   int
		wantStdout string
		wantStderr string
	}{
		{
			name:       "inline this",
			args:       []string{"-mode", "this", "-e", "1 + 2"},
			wantStdout: "3\n",
		},
		{
			name:       "file with sandbox",
			args:       []string{"-sandbox", seedFile, script},
			wantStdout: "doubling\n\"ada:4\"\n",
		},
		{
			name:       "sandbox printed as json",
			args:       []string{"-sandbox", seedFile, "-out", "json", "-e", "n += 1; undefined"},
			wantStdout: "null\n{\n  \"n\": 3,\n  \"user\": {\n    \"name\": \"ada\"\n  }\n}",
		},
		{
			name:       "syntax error",
			args:       []string{"-e", "var = 1"},
			wantCode:   exitCompile,
			wantStderr: "SyntaxError",
		},
		{
			name:       "syntax error displayed",
			args:       []string{"-display-errors", "-e", "var = 1"},
			wantCode:   exitCompile,
			wantStderr: "var = 1\n",
		},
		{
			name:       "runtime error",
			args:       []string{"-e", "throw new RangeError('too far')"},
			wantCode:   exitRuntime,
			wantStderr: "RangeError: too far",
		},
		{
			name:       "unknown mode",
			args:       []string{"-mode", "context", "-e", "1"},
			wantCode:   exitUsage,
			wantStderr: "unknown mode",
		},
		{
			name:       "sandbox needs new mode",
			args:       []string{"-mode", "this", "-sandbox", seedFile, "-e", "1"},
			wantCode:   exitUsage,
			wantStderr: "-sandbox needs -mode new",
		},
		{
			name:       "unknown output format",
			args:       []string{"-out", "xml", "-e", "1"},
			wantCode:   exitUsage,
			wantStderr: "unsupported seed format",
		},
		{
			name:     "no input",
			args:     []string{},
			wantCode: exitUsage,
		},
		{
			name:       "missing file",
			args:       []string{filepath.Join(t.TempDir(), "nope.js")},
			wantCode:   exitFailure,
			wantStderr: "nope.js",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var stdout, stderr bytes.Buffer
			code := run(tt.args, &stdout, &stderr)

			assert.Equal(t, tt.wantCode, code, stderr.String())
			if tt.wantStdout != "" {
				assert.Equal(t, tt.wantStdout, stdout.String())
			}
			if tt.wantStderr != "" {
				assert.Contains(t, stderr.String(), tt.wantStderr)
			}
		})
	}
}

func TestRunTOMLOutput(t *testing.T) {
	var stdout, stderr bytes.Buffer
	code := run([]string{"-out", "toml", "-e", "greeting = 'hi'; count = 3"}, &stdout, &stderr)
	require.Equal(t, exitOK, code, stderr.String())
	assert.Contains(t, stdout.String(), "greeting = 'hi'")
	assert.Contains(t, stdout.String(), "count = 3")
}
