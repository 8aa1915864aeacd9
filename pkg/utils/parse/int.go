// ABOUTME: Utility functions for parsing numbers from loosely typed upstream values
// ABOUTME: Accepts JSON numbers and strings with thousands separators or currency symbols

package parse

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// Digits reports whether s is a non-empty run of ASCII digits
func Digits(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

// Float extracts a float from a decoded JSON value.
// Strings like "$1,250,000" and "2.5" are accepted; anything else reports false.
func Float(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, !math.IsNaN(n) && !math.IsInf(n, 0)
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case string:
		cleaned := strings.TrimSpace(n)
		cleaned = strings.TrimPrefix(cleaned, "$")
		cleaned = strings.ReplaceAll(cleaned, ",", "")
		cleaned = strings.ReplaceAll(cleaned, "_", "")
		if cleaned == "" {
			return 0, false
		}
		f, err := strconv.ParseFloat(cleaned, 64)
		if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
			return 0, false
		}
		return f, true
	default:
		return 0, false
	}
}

// Int extracts a whole number from a decoded JSON value. Fractional values report false.
func Int(v interface{}) (int, bool) {
	f, ok := Float(v)
	if !ok || f != math.Trunc(f) || f > math.MaxInt32 || f < math.MinInt32 {
		return 0, false
	}
	return int(f), true
}

// String returns a trimmed string for string and numeric JSON values
func String(v interface{}) (string, bool) {
	switch s := v.(type) {
	case string:
		s = strings.TrimSpace(s)
		return s, s != ""
	case float64:
		return strconv.FormatFloat(s, 'f', -1, 64), true
	case json.Number:
		return s.String(), true
	default:
		return "", false
	}
}
