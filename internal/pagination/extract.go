package pagination

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Extract walks a dotted path ("customer.name", "items.0.id") through value
// and returns def when any segment is missing, nil, or not a container.
// Structs are viewed through their JSON encoding.
func Extract(value any, path string, def any) any {
	current, ok := normalize(value)
	if !ok {
		return def
	}
	path = strings.TrimSpace(path)
	if path == "" {
		if current == nil {
			return def
		}
		return current
	}

	for _, segment := range strings.Split(path, ".") {
		switch node := current.(type) {
		case map[string]any:
			next, found := node[segment]
			if !found {
				return def
			}
			current = next
		case []any:
			idx, err := strconv.Atoi(segment)
			if err != nil || idx < 0 || idx >= len(node) {
				return def
			}
			current = node[idx]
		default:
			return def
		}
		if current == nil {
			return def
		}
	}
	return current
}

// Format renders an extracted value as cell text.
func Format(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case json.Number:
		return x.String()
	case bool:
		return strconv.FormatBool(x)
	case map[string]any, []any:
		b, err := json.Marshal(x)
		if err != nil {
			return ""
		}
		return string(b)
	default:
		return fmt.Sprint(x)
	}
}

func normalize(value any) (any, bool) {
	switch value.(type) {
	case nil:
		return nil, true
	case map[string]any, []any, string, bool, json.Number:
		return value, true
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return nil, false
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var out any
	if err := dec.Decode(&out); err != nil {
		return nil, false
	}
	return out, true
}
