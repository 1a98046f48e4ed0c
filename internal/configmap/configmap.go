// Package configmap reads typed values from the map[string]any instance
// configs that YAML decoding produces.
package configmap

import (
	"fmt"
	"time"
)

// String returns cfg[key] as a string, or "".
func String(cfg map[string]any, key string) string {
	return StringDefault(cfg, key, "")
}

// StringDefault returns cfg[key] as a string, or def.
func StringDefault(cfg map[string]any, key, def string) string {
	if v, ok := cfg[key].(string); ok && v != "" {
		return v
	}
	return def
}

// Int returns cfg[key] as an int, or def.
func Int(cfg map[string]any, key string, def int) int {
	switch v := cfg[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	}
	return def
}

// Int64 returns cfg[key] as an int64, or def.
func Int64(cfg map[string]any, key string, def int64) int64 {
	switch v := cfg[key].(type) {
	case int:
		return int64(v)
	case int64:
		return v
	case float64:
		return int64(v)
	}
	return def
}

// Bool returns cfg[key] as a bool, or def.
func Bool(cfg map[string]any, key string, def bool) bool {
	if v, ok := cfg[key].(bool); ok {
		return v
	}
	return def
}

// Duration parses cfg[key] as a duration string, or as whole seconds when
// numeric. A missing key returns def.
func Duration(cfg map[string]any, key string, def time.Duration) (time.Duration, error) {
	switch v := cfg[key].(type) {
	case string:
		d, err := time.ParseDuration(v)
		if err != nil {
			return 0, fmt.Errorf("parsing %s %q: %w", key, v, err)
		}
		return d, nil
	case int:
		return time.Duration(v) * time.Second, nil
	case float64:
		return time.Duration(v * float64(time.Second)), nil
	}
	return def, nil
}

// Strings returns cfg[key] as a string slice, skipping non-string items.
func Strings(cfg map[string]any, key string) []string {
	switch v := cfg[key].(type) {
	case []string:
		return v
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}
