// Package attrs provides helpers for slog-style key-value attribute slices.
package attrs

// ExtractString returns the string value for key in a [k1, v1, k2, v2, ...]
// attribute slice. Missing keys and non-string values yield "".
func ExtractString(attrs []any, key string) string {
	for i := 0; i+1 < len(attrs); i += 2 {
		if k, ok := attrs[i].(string); !ok || k != key {
			continue
		}
		if v, ok := attrs[i+1].(string); ok {
			return v
		}
	}
	return ""
}
