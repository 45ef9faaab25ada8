package utils

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// Request limits.
const (
	MaxCodeSize       = 1 * 1024 * 1024 // 1MB of source per request
	MaxFilenameLength = 256
	MaxSandboxDepth   = 32
	MaxSandboxKeys    = 10_000
)

// ValidateCode bounds the size of script source.
func ValidateCode(code string) error {
	if len(code) > MaxCodeSize {
		return fmt.Errorf("code size %d bytes exceeds maximum %d bytes", len(code), MaxCodeSize)
	}
	return nil
}

// ValidateFilename checks a script name. Filenames end up in diagnostics
// as "name:line", so control characters are rejected.
func ValidateFilename(name string) error {
	if name == "" {
		return nil
	}
	if utf8.RuneCountInString(name) > MaxFilenameLength {
		return fmt.Errorf("filename must not exceed %d characters", MaxFilenameLength)
	}
	if strings.ContainsFunc(name, func(r rune) bool { return r < 0x20 || r == 0x7f }) {
		return fmt.Errorf("filename contains control characters")
	}
	return nil
}

// ValidateSandbox bounds the nesting depth and total key count of a
// sandbox seed.
func ValidateSandbox(sandbox map[string]any) error {
	keys := 0
	return checkDepth(sandbox, 0, &keys)
}

func checkDepth(data any, depth int, keys *int) error {
	if depth > MaxSandboxDepth {
		return fmt.Errorf("sandbox nesting depth exceeds maximum %d", MaxSandboxDepth)
	}

	switch v := data.(type) {
	case map[string]any:
		*keys += len(v)
		if *keys > MaxSandboxKeys {
			return fmt.Errorf("sandbox has more than %d keys", MaxSandboxKeys)
		}
		for _, value := range v {
			if err := checkDepth(value, depth+1, keys); err != nil {
				return err
			}
		}
	case []any:
		for _, value := range v {
			if err := checkDepth(value, depth+1, keys); err != nil {
				return err
			}
		}
	}
	return nil
}

// ValidateRequest checks the parts of an evaluation request.
func ValidateRequest(code, filename string, sandbox map[string]any) error {
	if err := ValidateCode(code); err != nil {
		return err
	}
	if err := ValidateFilename(filename); err != nil {
		return err
	}
	return ValidateSandbox(sandbox)
}
