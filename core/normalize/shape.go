// ABOUTME: Shape resolution locates the listing collection inside an upstream body
// ABOUTME: A closed set of rules is tried in priority order: array, keyed object, single object

package normalize

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// DefaultListKeys are the object keys checked for a listing collection, in order
var DefaultListKeys = []string{"listings", "properties", "results"}

// ShapeKind tags a shape rule
type ShapeKind int

const (
	// ShapeArray matches a top-level JSON array
	ShapeArray ShapeKind = iota

	// ShapeObjectWithKey matches an object holding an array under Key
	ShapeObjectWithKey

	// ShapeSingleObject treats a whole object as one listing
	ShapeSingleObject
)

// ShapeRule is one step of shape resolution
type ShapeRule struct {
	Kind ShapeKind

	// Key is a dotted path used by ShapeObjectWithKey, e.g. "data.home_search.results"
	Key string
}

func (r ShapeRule) String() string {
	switch r.Kind {
	case ShapeArray:
		return "array"
	case ShapeObjectWithKey:
		return "object[" + r.Key + "]"
	default:
		return "single_object"
	}
}

// Rules returns the resolution order for a source. A non-empty hint is tried
// before the default keys.
func Rules(hint string) []ShapeRule {
	rules := []ShapeRule{{Kind: ShapeArray}}
	if hint != "" {
		rules = append(rules, ShapeRule{Kind: ShapeObjectWithKey, Key: hint})
	}
	for _, k := range DefaultListKeys {
		if k != hint {
			rules = append(rules, ShapeRule{Kind: ShapeObjectWithKey, Key: k})
		}
	}
	return append(rules, ShapeRule{Kind: ShapeSingleObject})
}

// resolve returns the raw elements of the listing collection and the rule that matched
func resolve(body []byte, rules []ShapeRule) ([]json.RawMessage, ShapeRule, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return nil, ShapeRule{}, fmt.Errorf("empty body")
	}
	if !json.Valid(trimmed) {
		return nil, ShapeRule{}, fmt.Errorf("body is not valid JSON")
	}

	var object map[string]json.RawMessage
	switch trimmed[0] {
	case '[':
	case '{':
		if err := json.Unmarshal(trimmed, &object); err != nil {
			return nil, ShapeRule{}, err
		}
	default:
		return nil, ShapeRule{}, fmt.Errorf("top-level value is neither an array nor an object")
	}

	for _, rule := range rules {
		switch rule.Kind {
		case ShapeArray:
			if object != nil {
				continue
			}
			var elems []json.RawMessage
			if err := json.Unmarshal(trimmed, &elems); err != nil {
				return nil, rule, err
			}
			return elems, rule, nil

		case ShapeObjectWithKey:
			if object == nil {
				continue
			}
			raw, ok := lookupPath(object, rule.Key)
			if !ok {
				continue
			}
			if len(raw) == 0 || raw[0] != '[' {
				return nil, rule, fmt.Errorf("key %q is present but does not hold an array", rule.Key)
			}
			var elems []json.RawMessage
			if err := json.Unmarshal(raw, &elems); err != nil {
				return nil, rule, fmt.Errorf("key %q: %w", rule.Key, err)
			}
			return elems, rule, nil

		case ShapeSingleObject:
			if object == nil {
				continue
			}
			return []json.RawMessage{json.RawMessage(trimmed)}, rule, nil
		}
	}

	return nil, ShapeRule{}, fmt.Errorf("no shape rule matched")
}

// lookupPath follows a dotted key path and reports whether the final key is present
func lookupPath(object map[string]json.RawMessage, path string) (json.RawMessage, bool) {
	parts := strings.Split(path, ".")
	current := object
	for i, part := range parts {
		raw, ok := current[part]
		if !ok {
			return nil, false
		}
		raw = bytes.TrimSpace(raw)
		if i == len(parts)-1 {
			return raw, true
		}
		if len(raw) == 0 || raw[0] != '{' {
			return nil, false
		}
		var next map[string]json.RawMessage
		if err := json.Unmarshal(raw, &next); err != nil {
			return nil, false
		}
		current = next
	}
	return nil, false
}
