package facts

import (
	"fmt"
	"math"
)

// FromSnapshot rebuilds a FactSet from a snapshot map, such as one submitted
// directly by a caller or read back from storage. The fact kind is inferred
// from the JSON value type: strings become scalar facts, arrays become tag
// sets, booleans become flags, and numbers become counts. Numbers must be
// non-negative integers.
func FromSnapshot(snapshot map[string]interface{}) (*FactSet, error) {
	fs := NewFactSet()
	for fact, value := range snapshot {
		switch v := value.(type) {
		case string:
			fs.SetScalar(fact, v)
		case bool:
			fs.SetBool(fact, v)
		case float64:
			if v < 0 || v != math.Trunc(v) {
				return nil, fmt.Errorf("fact %q: count must be a non-negative integer, got %v", fact, v)
			}
			fs.SetCount(fact, int(v))
		case int:
			if v < 0 {
				return nil, fmt.Errorf("fact %q: count must be non-negative, got %d", fact, v)
			}
			fs.SetCount(fact, v)
		case []interface{}:
			for _, item := range v {
				tag, ok := item.(string)
				if !ok {
					return nil, fmt.Errorf("fact %q: set members must be strings, got %T", fact, item)
				}
				fs.AddTag(fact, tag)
			}
		case []string:
			for _, tag := range v {
				fs.AddTag(fact, tag)
			}
		default:
			return nil, fmt.Errorf("fact %q: unsupported value type %T", fact, value)
		}
	}
	return fs, nil
}
