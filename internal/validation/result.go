package validation

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// FieldError names the offending field and what is wrong with it.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (e FieldError) Error() string {
	return e.Field + ": " + e.Message
}

// Result lists every problem found. IsValid is true only when Errors is empty.
type Result struct {
	IsValid bool         `json:"isValid"`
	Errors  []FieldError `json:"errors,omitempty"`
}

// Err flattens the result into a single error, or nil when valid.
func (r Result) Err() error {
	if r.IsValid {
		return nil
	}
	msgs := make([]string, len(r.Errors))
	for i, fe := range r.Errors {
		msgs[i] = fe.Error()
	}
	return fmt.Errorf("invalid input: %s", strings.Join(msgs, "; "))
}

// Has reports whether field produced at least one error.
func (r Result) Has(field string) bool {
	for _, fe := range r.Errors {
		if fe.Field == field {
			return true
		}
	}
	return false
}

type collector struct {
	errors []FieldError
}

func (c *collector) add(field, format string, args ...any) {
	c.errors = append(c.errors, FieldError{Field: field, Message: fmt.Sprintf(format, args...)})
}

// length checks a trimmed string against [min, max] runes. A zero min makes
// the field optional.
func (c *collector) length(field, value string, min, max int) {
	n := utf8.RuneCountInString(strings.TrimSpace(value))
	switch {
	case min > 0 && n == 0:
		c.add(field, "is required")
	case n < min:
		c.add(field, "must be at least %d characters", min)
	case max > 0 && n > max:
		c.add(field, "must be at most %d characters", max)
	}
}

func (c *collector) oneOf(field, value string, allowed []string) {
	for _, candidate := range allowed {
		if value == candidate {
			return
		}
	}
	c.add(field, "must be one of %s", strings.Join(allowed, ", "))
}

func (c *collector) result() Result {
	return Result{IsValid: len(c.errors) == 0, Errors: c.errors}
}
