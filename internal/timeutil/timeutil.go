// Package timeutil holds the pure time helpers shared across the engine:
// relative formatting for display and coercion of the timestamp
// representations that arrive from the document store and local storage.
package timeutil

import (
	"fmt"
	"time"
)

// Coerce converts the timestamp representations seen in practice into a
// time.Time: native time values, RFC 3339 strings (local-store JSON), and
// epoch milliseconds (legacy locally-generated ids reused as timestamps).
// Returns false when the value cannot be interpreted as a time.
func Coerce(v any) (time.Time, bool) {
	switch t := v.(type) {
	case time.Time:
		return t, true
	case *time.Time:
		if t == nil {
			return time.Time{}, false
		}
		return *t, true
	case string:
		if parsed, err := time.Parse(time.RFC3339Nano, t); err == nil {
			return parsed, true
		}
		if parsed, err := time.Parse(time.RFC3339, t); err == nil {
			return parsed, true
		}
		return time.Time{}, false
	case int64:
		return time.UnixMilli(t), true
	case float64:
		return time.UnixMilli(int64(t)), true
	}
	return time.Time{}, false
}

// Ago formats the distance between then and now the way the feed displays
// it: 42s, 7m, 3h, 12d. Times in the future (clock skew against the
// server-assigned timestamp) render as "just now".
func Ago(then, now time.Time) string {
	seconds := int64(now.Sub(then).Seconds())
	switch {
	case seconds < 0:
		return "just now"
	case seconds < 60:
		return fmt.Sprintf("%ds", seconds)
	case seconds < 3600:
		return fmt.Sprintf("%dm", seconds/60)
	case seconds < 86400:
		return fmt.Sprintf("%dh", seconds/3600)
	default:
		return fmt.Sprintf("%dd", seconds/86400)
	}
}
