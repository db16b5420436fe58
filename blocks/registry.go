// ABOUTME: Built-in block catalog registration and shared input coercion helpers.
// ABOUTME: DefaultRegistry wires the standard blocks into an engine.Registry at process start.
package blocks

import (
	"fmt"
	"strconv"

	"github.com/flumehq/flume/engine"
)

// DefaultRegistry creates a registry with all built-in blocks registered.
func DefaultRegistry() *engine.Registry {
	reg := engine.NewRegistry()
	reg.Register(&ThresholdBlock{})
	reg.Register(&BranchBlock{})
	reg.Register(NewNotifyBlock(nil))
	reg.Register(&TransformBlock{})
	reg.Register(&LoopBlock{})
	reg.Register(&MemoryGetBlock{})
	reg.Register(&MemorySetBlock{})
	reg.Register(NewHTTPRequestBlock(nil))
	return reg
}

// toFloat coerces a numeric or numeric-string input value to float64.
func toFloat(v any) (float64, error) {
	switch t := v.(type) {
	case float64:
		return t, nil
	case float32:
		return float64(t), nil
	case int:
		return float64(t), nil
	case int64:
		return float64(t), nil
	case string:
		f, err := strconv.ParseFloat(t, 64)
		if err != nil {
			return 0, fmt.Errorf("value %q is not a number", t)
		}
		return f, nil
	default:
		return 0, fmt.Errorf("value %v (%T) is not a number", v, v)
	}
}

// stringInput reads a string field from inputs, with a default for absent values.
func stringInput(inputs map[string]any, key, defaultVal string) string {
	v, ok := inputs[key]
	if !ok || v == nil {
		return defaultVal
	}
	s, ok := v.(string)
	if !ok {
		return engine.Stringify(v)
	}
	return s
}
