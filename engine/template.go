// ABOUTME: Template resolver for {{namespace.path}} references inside nested input structures.
// ABOUTME: Whole-string references preserve the referenced value's type; mixed text interpolates string forms.
package engine

import (
	"encoding/json"
	"regexp"
	"strconv"
	"strings"
)

// refPattern matches one {{namespace.path}} token. The inner capture is the
// dotted reference without braces or surrounding whitespace.
var refPattern = regexp.MustCompile(`\{\{\s*([^{}\s]+)\s*\}\}`)

// Resolve recursively resolves template references in value against the run
// state. Strings are templated, maps have their values resolved (keys are
// never templated), slices have their elements resolved, and every other
// type passes through unchanged.
//
// A string that is exactly one reference returns the referenced value with
// its original type. A string mixing references with literal text replaces
// each reference with the string form of its value, absent references
// becoming the empty string. Missing references never raise; absence is a
// valid terminal outcome so pipelines tolerate optional upstream fields.
func Resolve(value any, state *RunState) any {
	switch v := value.(type) {
	case string:
		return resolveString(v, state)
	case map[string]any:
		out := make(map[string]any, len(v))
		for k, elem := range v {
			out[k] = Resolve(elem, state)
		}
		return out
	case []any:
		out := make([]any, len(v))
		for i, elem := range v {
			out[i] = Resolve(elem, state)
		}
		return out
	default:
		return value
	}
}

// resolveString handles the two string shapes: whole-reference and interpolation.
func resolveString(s string, state *RunState) any {
	trimmed := strings.TrimSpace(s)
	if m := refPattern.FindStringSubmatch(trimmed); m != nil && m[0] == trimmed {
		v, _ := lookupRef(m[1], state)
		return v
	}

	if !strings.Contains(s, "{{") {
		return s
	}

	return refPattern.ReplaceAllStringFunc(s, func(tok string) string {
		inner := refPattern.FindStringSubmatch(tok)[1]
		v, ok := lookupRef(inner, state)
		if !ok {
			return ""
		}
		return Stringify(v)
	})
}

// lookupRef resolves a dotted "namespace.path" reference against the state.
// The first segment selects the namespace root; remaining segments descend
// through nested maps. Descending into a non-map or a missing key yields
// (nil, false).
func lookupRef(ref string, state *RunState) (any, bool) {
	namespace, path, _ := strings.Cut(ref, ".")
	root, ok := state.refRoot(namespace)
	if !ok {
		return nil, false
	}
	if path == "" {
		return root, true
	}

	current := root
	for _, segment := range strings.Split(path, ".") {
		m, ok := current.(map[string]any)
		if !ok {
			return nil, false
		}
		next, ok := m[segment]
		if !ok {
			return nil, false
		}
		current = next
	}
	return current, true
}

// Stringify renders a resolved value for interpolation into literal text.
// Nil becomes the empty string, numbers drop insignificant zeros, and
// composite values render as compact JSON.
func Stringify(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case bool:
		return strconv.FormatBool(t)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(t), 'f', -1, 32)
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	case json.Number:
		return t.String()
	default:
		data, err := json.Marshal(v)
		if err != nil {
			return ""
		}
		return string(data)
	}
}
