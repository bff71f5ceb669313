package main

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

func secondsDuration(seconds int) time.Duration {
	return time.Duration(seconds) * time.Second
}

// parsePairs splits repeated key=value flags. Later keys win.
func parsePairs(flag string, values []string) (map[string]string, error) {
	if len(values) == 0 {
		return nil, nil
	}
	out := make(map[string]string, len(values))
	for _, raw := range values {
		key, value, ok := strings.Cut(raw, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			return nil, fmt.Errorf("--%s expects key=value, got %q", flag, raw)
		}
		out[key] = strings.TrimSpace(value)
	}
	return out, nil
}

// typedValue turns flag text into a bool or number when it reads as one.
func typedValue(raw string) any {
	switch raw {
	case "true":
		return true
	case "false":
		return false
	}
	if n, err := strconv.ParseInt(raw, 10, 64); err == nil {
		return n
	}
	return raw
}

func formatCell(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	default:
		return fmt.Sprint(v)
	}
}

func dash(value string) string {
	if strings.TrimSpace(value) == "" {
		return "-"
	}
	return value
}
