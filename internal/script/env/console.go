package env

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/dop251/goja"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/evalmachine/internal/script/object"
)

// LogEntry is one line written through a Console.
type LogEntry struct {
	Level   string    `json:"level"` // log, info, warn, error
	Message string    `json:"message"`
	Time    time.Time `json:"time"`
}

// Console captures console.* output of scripts. Its Object works in any
// environment because it is a host object.
type Console struct {
	mu      sync.Mutex
	entries []LogEntry
	log     *zap.Logger
}

// NewConsole creates a Console that also forwards lines to log at debug
// level when log is not nil.
func NewConsole(log *zap.Logger) *Console {
	if log == nil {
		log = zap.NewNop()
	}
	return &Console{log: log}
}

// Object builds a console object with log, info, warn and error methods.
func (c *Console) Object() *object.Map {
	m := object.NewMap()
	for _, level := range []string{"log", "info", "warn", "error"} {
		_ = m.DefineOwnProperty(level, object.Property{
			Value:        object.Func(c.writer(level)),
			Writable:     true,
			Configurable: true,
		})
	}
	return m
}

func (c *Console) writer(level string) object.Func {
	return func(_ any, args ...any) (any, error) {
		parts := make([]string, len(args))
		for i, a := range args {
			parts[i] = format(a)
		}
		entry := LogEntry{Level: level, Message: strings.Join(parts, " "), Time: time.Now()}

		c.mu.Lock()
		c.entries = append(c.entries, entry)
		c.mu.Unlock()

		c.log.Debug("script console", zap.String("level", level), zap.String("message", entry.Message))
		return nil, nil
	}
}

func format(v any) string {
	switch x := v.(type) {
	case nil:
		return "undefined"
	case goja.Value:
		return x.String()
	case object.Ref:
		return x.Object().String()
	}
	return fmt.Sprint(object.Export(v))
}

// Drain returns the captured entries and clears them.
func (c *Console) Drain() []LogEntry {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := c.entries
	c.entries = nil
	return out
}
