package eventlog

import (
	"encoding/json"
	"fmt"
	"reflect"
	"sort"
	"strings"
	"unicode/utf8"
)

const (
	truncationSuffix = "..."
	// DepthMarker replaces containers nested deeper than Limits.MaxDepth.
	DepthMarker = "[max depth exceeded]"
)

// Limits bounds the size of a sanitized event.
type Limits struct {
	MaxStringLength int
	MaxDepth        int
	MaxItems        int
}

// DefaultLimits returns the limits used when none are configured.
func DefaultLimits() Limits {
	return Limits{MaxStringLength: 1000, MaxDepth: 5, MaxItems: 50}
}

func (l Limits) withDefaults() Limits {
	def := DefaultLimits()
	if l.MaxStringLength <= 0 {
		l.MaxStringLength = def.MaxStringLength
	}
	if l.MaxDepth <= 0 {
		l.MaxDepth = def.MaxDepth
	}
	if l.MaxItems <= 0 {
		l.MaxItems = def.MaxItems
	}
	return l
}

// Sanitize returns a bounded copy of ev. The input is not modified.
func Sanitize(ev Event, limits Limits) Event {
	limits = limits.withDefaults()
	out := Event{
		EventType:   SanitizeString(ev.EventType, limits.MaxStringLength),
		EventSource: SanitizeString(ev.EventSource, limits.MaxStringLength),
	}
	if ev.Metadata != nil {
		if m, ok := sanitizeValue(ev.Metadata, limits, 0).(map[string]any); ok {
			out.Metadata = m
		}
	}
	return out
}

// SanitizeString strips angle brackets and truncates to max runes. When
// truncated, the suffix counts toward max.
func SanitizeString(s string, max int) string {
	if strings.ContainsAny(s, "<>") {
		s = strings.NewReplacer("<", "", ">", "").Replace(s)
	}
	if max <= 0 || utf8.RuneCountInString(s) <= max {
		return s
	}
	keep := max - len(truncationSuffix)
	if keep <= 0 {
		return string([]rune(s)[:max])
	}
	return string([]rune(s)[:keep]) + truncationSuffix
}

func sanitizeValue(v any, limits Limits, depth int) any {
	switch val := v.(type) {
	case nil:
		return nil
	case string:
		return SanitizeString(val, limits.MaxStringLength)
	case bool, int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64, float32, float64:
		return val
	case json.Number:
		return val
	case map[string]any:
		if depth >= limits.MaxDepth {
			return SanitizeString(DepthMarker, limits.MaxStringLength)
		}
		return sanitizeMap(val, limits, depth)
	case []any:
		if depth >= limits.MaxDepth {
			return SanitizeString(DepthMarker, limits.MaxStringLength)
		}
		return sanitizeSlice(val, limits, depth)
	case error:
		return SanitizeString(val.Error(), limits.MaxStringLength)
	case fmt.Stringer:
		return SanitizeString(val.String(), limits.MaxStringLength)
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Slice, reflect.Array:
		items := make([]any, rv.Len())
		for i := range items {
			items[i] = rv.Index(i).Interface()
		}
		return sanitizeValue(items, limits, depth)
	case reflect.Map:
		if rv.Type().Key().Kind() != reflect.String {
			break
		}
		m := make(map[string]any, rv.Len())
		iter := rv.MapRange()
		for iter.Next() {
			m[iter.Key().String()] = iter.Value().Interface()
		}
		return sanitizeValue(m, limits, depth)
	case reflect.Pointer:
		if rv.IsNil() {
			return nil
		}
		return sanitizeValue(rv.Elem().Interface(), limits, depth)
	}
	return SanitizeString(fmt.Sprintf("%v", v), limits.MaxStringLength)
}

func sanitizeMap(m map[string]any, limits Limits, depth int) map[string]any {
	keys := make([]string, 0, len(m))
	for key := range m {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	out := make(map[string]any, min(len(keys), limits.MaxItems))
	for _, key := range keys {
		if len(out) >= limits.MaxItems {
			break
		}
		clean := SanitizeString(key, limits.MaxStringLength)
		if clean == "" {
			continue
		}
		if _, exists := out[clean]; exists {
			continue
		}
		out[clean] = sanitizeValue(m[key], limits, depth+1)
	}
	return out
}

func sanitizeSlice(items []any, limits Limits, depth int) []any {
	n := min(len(items), limits.MaxItems)
	out := make([]any, n)
	for i := range n {
		out[i] = sanitizeValue(items[i], limits, depth+1)
	}
	return out
}
