package common

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/teemow/calreminder/internal/reminder"
)

// OptionalString returns the trimmed string argument name. ok is false when
// the argument is missing, not a string, or blank.
func OptionalString(args map[string]any, name string) (string, bool) {
	s, ok := args[name].(string)
	if !ok {
		return "", false
	}
	s = strings.TrimSpace(s)
	return s, s != ""
}

// RequiredString returns the string argument name or a ValidationError.
func RequiredString(args map[string]any, name string) (string, error) {
	s, ok := OptionalString(args, name)
	if !ok {
		return "", reminder.NewValidationError(name, "is required")
	}
	return s, nil
}

// StringPtr returns a pointer to the argument when it is present, including
// the empty string, so callers can clear optional fields.
func StringPtr(args map[string]any, name string) *string {
	s, ok := args[name].(string)
	if !ok {
		return nil
	}
	s = strings.TrimSpace(s)
	return &s
}

// BoolPtr returns a pointer to the boolean argument when it is present.
func BoolPtr(args map[string]any, name string) *bool {
	switch v := args[name].(type) {
	case bool:
		return &v
	case string:
		if b, err := strconv.ParseBool(strings.TrimSpace(v)); err == nil {
			return &b
		}
	}
	return nil
}

// StringList reads a list argument given either as an array or as a
// comma-separated string. ok is false when the argument is absent.
func StringList(args map[string]any, name string) (list []string, ok bool, err error) {
	raw, present := args[name]
	if !present || raw == nil {
		return nil, false, nil
	}

	switch v := raw.(type) {
	case string:
		return ParseCommaSeparatedList(v), true, nil
	case []string:
		return trimAll(v), true, nil
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			s, isString := item.(string)
			if !isString {
				return nil, true, reminder.NewValidationError(name, "must be a list of strings")
			}
			if s = strings.TrimSpace(s); s != "" {
				out = append(out, s)
			}
		}
		return out, true, nil
	}
	return nil, true, reminder.NewValidationError(name, "must be a list of strings")
}

// IntList reads a list of whole numbers given either as an array or as a
// comma-separated string.
func IntList(args map[string]any, name string) (list []int, ok bool, err error) {
	raw, present := args[name]
	if !present || raw == nil {
		return nil, false, nil
	}

	var items []any
	switch v := raw.(type) {
	case string:
		for _, s := range ParseCommaSeparatedList(v) {
			items = append(items, s)
		}
	case []any:
		items = v
	case []int:
		return v, true, nil
	case float64:
		items = []any{v}
	default:
		return nil, true, reminder.NewValidationError(name, "must be a list of integers")
	}

	out := make([]int, 0, len(items))
	for _, item := range items {
		n, err := toInt(item)
		if err != nil {
			return nil, true, reminder.NewValidationError(name, "%v", err)
		}
		out = append(out, n)
	}
	return out, true, nil
}

func toInt(v any) (int, error) {
	switch n := v.(type) {
	case float64:
		if n != math.Trunc(n) {
			return 0, fmt.Errorf("%v is not a whole number", n)
		}
		return int(n), nil
	case int:
		return n, nil
	case string:
		i, err := strconv.Atoi(strings.TrimSpace(n))
		if err != nil {
			return 0, fmt.Errorf("%q is not a whole number", n)
		}
		return i, nil
	}
	return 0, fmt.Errorf("%v is not a whole number", v)
}

// ParseCommaSeparatedList splits s on commas, trimming whitespace and
// dropping empty entries.
func ParseCommaSeparatedList(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	return trimAll(parts)
}

func trimAll(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
