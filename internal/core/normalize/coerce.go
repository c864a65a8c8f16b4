// Package normalize maps upstream payloads of any recognized shape onto the
// fixed records in package core. Every function is pure and never fails:
// unrecoverable fields fall back to their zero or default value.
package normalize

import (
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/tidwall/gjson"
)

var numericPrefix = regexp.MustCompile(`^[+-]?(\d+\.?\d*|\.\d+)([eE][+-]?\d+)?`)

// Float coerces a JSON value to float64 with parseFloat semantics; NaN maps to 0.
func Float(value gjson.Result) float64 {
	f, ok := parseFloat(value)
	if !ok {
		return 0
	}
	return f
}

// Int coerces a JSON value to int64 with parseInt semantics; NaN maps to 0.
func Int(value gjson.Result) int64 {
	f, ok := parseFloat(value)
	if !ok {
		return 0
	}
	return int64(f)
}

// String returns value as text, or fallback when it is absent, null or empty.
func String(value gjson.Result, fallback string) string {
	switch value.Type {
	case gjson.Null:
		return fallback
	case gjson.String:
		if value.Str == "" {
			return fallback
		}
		return value.Str
	case gjson.False:
		return fallback
	}
	if !value.Exists() {
		return fallback
	}
	if raw := value.String(); raw != "" {
		return raw
	}
	return fallback
}

// First returns the first truthy value among the given paths.
func First(record gjson.Result, paths ...string) gjson.Result {
	for _, path := range paths {
		if value := record.Get(path); truthy(value) {
			return value
		}
	}
	return gjson.Result{}
}

func parseFloat(value gjson.Result) (float64, bool) {
	switch value.Type {
	case gjson.Number:
		return value.Num, !math.IsNaN(value.Num)
	case gjson.True:
		return 0, false
	case gjson.String:
		return parseFloatString(value.Str)
	default:
		return 0, false
	}
}

func parseFloatString(raw string) (float64, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, false
	}
	if f, err := strconv.ParseFloat(raw, 64); err == nil && !math.IsInf(f, 0) {
		return f, true
	}
	prefix := numericPrefix.FindString(raw)
	if prefix == "" {
		return 0, false
	}
	f, err := strconv.ParseFloat(prefix, 64)
	if err != nil || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

func truthy(r gjson.Result) bool {
	if !r.Exists() {
		return false
	}
	switch r.Type {
	case gjson.Null, gjson.False:
		return false
	case gjson.Number:
		return r.Num != 0
	case gjson.String:
		return r.Str != ""
	default:
		return true
	}
}
