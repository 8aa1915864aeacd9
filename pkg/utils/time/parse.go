// ABOUTME: Time parsing utilities for flexible date/time parsing
// ABOUTME: Handles the date layouts and epoch values returned by listing APIs

package time

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"
)

// Common date layouts returned by listing providers
var timeFormats = []string{
	time.RFC3339,
	time.RFC3339Nano,
	time.RFC1123,
	time.RFC1123Z,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04:05.000Z",
	"2006-01-02 15:04:05",
	"2006-01-02",
	"01/02/2006",
	"Jan 2, 2006",
	"January 2, 2006",
}

// ParseFlexibleTime attempts to parse a time string using various formats
func ParseFlexibleTime(timeStr string) time.Time {
	timeStr = strings.TrimSpace(timeStr)
	if timeStr == "" {
		return time.Time{}
	}

	for _, format := range timeFormats {
		if t, err := time.Parse(format, timeStr); err == nil {
			return t.UTC()
		}
	}

	return time.Time{}
}

// ParseEpoch interprets n as Unix seconds, or milliseconds when it is too large to be seconds
func ParseEpoch(n float64) time.Time {
	if n <= 0 {
		return time.Time{}
	}
	if n > 1e11 {
		return time.UnixMilli(int64(n)).UTC()
	}
	return time.Unix(int64(n), 0).UTC()
}

// ParseValue parses a decoded JSON value that is either a date string or an epoch number.
// Numbers may arrive as float64 or json.Number.
func ParseValue(v interface{}) (time.Time, bool) {
	switch t := v.(type) {
	case string:
		if n, err := strconv.ParseFloat(t, 64); err == nil {
			parsed := ParseEpoch(n)
			return parsed, !parsed.IsZero()
		}
		parsed := ParseFlexibleTime(t)
		return parsed, !parsed.IsZero()
	case float64:
		parsed := ParseEpoch(t)
		return parsed, !parsed.IsZero()
	case json.Number:
		n, err := t.Float64()
		if err != nil {
			return time.Time{}, false
		}
		parsed := ParseEpoch(n)
		return parsed, !parsed.IsZero()
	default:
		return time.Time{}, false
	}
}
