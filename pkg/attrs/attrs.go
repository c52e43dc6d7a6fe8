// Package attrs converts slog-style key/value audit attributes into other
// representations.
package attrs

import "go.opentelemetry.io/otel/attribute"

// ExtractString returns the string value paired with key in a flat
// [key1, value1, key2, value2, ...] slice, or "" when absent or not a string.
func ExtractString(kv []any, key string) string {
	for i := 0; i+1 < len(kv); i += 2 {
		if k, ok := kv[i].(string); ok && k == key {
			v, _ := kv[i+1].(string)
			return v
		}
	}
	return ""
}

// SpanAttributes picks the named keys out of kv as string span attributes.
// Keys missing from kv are skipped.
func SpanAttributes(kv []any, keys ...string) []attribute.KeyValue {
	out := make([]attribute.KeyValue, 0, len(keys))
	for _, key := range keys {
		if v := ExtractString(kv, key); v != "" {
			out = append(out, attribute.String(key, v))
		}
	}
	return out
}
