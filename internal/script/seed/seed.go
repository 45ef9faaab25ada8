package seed

import (
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"

	"github.com/bytedance/sonic"
	"github.com/goccy/go-yaml"
	"github.com/pelletier/go-toml/v2"

	"github.com/GriffinCanCode/evalmachine/internal/script/object"
)

// Format is a seed document encoding.
type Format string

const (
	JSON Format = "json"
	YAML Format = "yaml"
	TOML Format = "toml"
)

// FormatOf picks the format from a file extension.
func FormatOf(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return JSON, nil
	case ".yaml", ".yml":
		return YAML, nil
	case ".toml":
		return TOML, nil
	}
	return "", fmt.Errorf("unsupported seed file %q", path)
}

// Decode parses a document whose top level is a table or mapping into a
// sandbox. Nested tables become nested Maps.
func Decode(f Format, data []byte) (*object.Map, error) {
	values := make(map[string]any)
	var err error
	switch f {
	case JSON:
		err = sonic.Unmarshal(data, &values)
	case YAML:
		err = yaml.Unmarshal(data, &values)
	case TOML:
		err = toml.Unmarshal(data, &values)
	default:
		return nil, fmt.Errorf("unsupported seed format %q", f)
	}
	if err != nil {
		return nil, fmt.Errorf("%s parse error: %w", f, err)
	}
	return object.FromMap(normalize(values).(map[string]any)), nil
}

// Load reads and decodes a seed file.
func Load(path string) (*object.Map, error) {
	f, err := FormatOf(path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read seed: %w", err)
	}
	return Decode(f, data)
}

// Encode writes the enumerable data properties of o. Functions are left out.
func Encode(f Format, o object.Object) ([]byte, error) {
	snap := Snapshot(o)
	switch f {
	case JSON:
		return sonic.ConfigStd.MarshalIndent(snap, "", "  ")
	case YAML:
		return yaml.Marshal(snap)
	case TOML:
		return toml.Marshal(snap)
	}
	return nil, fmt.Errorf("unsupported seed format %q", f)
}

// Snapshot exports the enumerable data properties of o as plain Go data.
// Values that have no data representation, such as functions, are dropped.
func Snapshot(o object.Object) map[string]any {
	out := make(map[string]any)
	if o == nil {
		return out
	}
	for _, k := range o.OwnKeys() {
		p, ok := o.GetOwnProperty(k)
		if !ok || !p.Enumerable || p.IsAccessor() {
			continue
		}
		if v, keep := clean(object.Export(p.Value)); keep {
			out[k] = v
		}
	}
	return out
}

// Plain exports one host value as plain Go data, or nil when it has no data
// representation.
func Plain(v any) any {
	c, _ := clean(object.Export(v))
	return c
}

func clean(v any) (any, bool) {
	switch x := v.(type) {
	case nil:
		return nil, true
	case map[string]any:
		out := make(map[string]any, len(x))
		for k, e := range x {
			if c, keep := clean(e); keep {
				out[k] = c
			}
		}
		return out, true
	case []any:
		out := make([]any, 0, len(x))
		for _, e := range x {
			if c, keep := clean(e); keep {
				out = append(out, c)
			}
		}
		return out, true
	}
	if reflect.TypeOf(v).Kind() == reflect.Func {
		return nil, false
	}
	return v, true
}

// normalize rewrites map[any]any values, which YAML produces for mappings
// with non-string keys, as map[string]any.
func normalize(v any) any {
	switch x := v.(type) {
	case map[string]any:
		for k, e := range x {
			x[k] = normalize(e)
		}
		return x
	case map[any]any:
		out := make(map[string]any, len(x))
		for k, e := range x {
			out[fmt.Sprint(k)] = normalize(e)
		}
		return out
	case []any:
		for i, e := range x {
			x[i] = normalize(e)
		}
	}
	return v
}
