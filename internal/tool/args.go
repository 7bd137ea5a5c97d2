package tool

import "fmt"

// stringArg returns the first non-empty string value among the given keys.
func stringArg(input map[string]any, keys ...string) string {
	for _, key := range keys {
		if v, ok := input[key].(string); ok && v != "" {
			return v
		}
	}
	return ""
}

// requireString returns the first non-empty string value among the given
// keys, or an error naming the primary key.
func requireString(input map[string]any, keys ...string) (string, error) {
	if v := stringArg(input, keys...); v != "" {
		return v, nil
	}
	return "", fmt.Errorf("missing required input %q", keys[0])
}
