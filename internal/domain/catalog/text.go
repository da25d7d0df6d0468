package catalog

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// CleanText normalizes a loosely typed value into trimmed text. Null and
// blank values both report ok=false.
func CleanText(v any) (string, bool) {
	var s string
	switch t := v.(type) {
	case nil:
		return "", false
	case string:
		s = t
	case json.Number:
		s = t.String()
	case float64:
		s = strconv.FormatFloat(t, 'f', -1, 64)
	case float32:
		s = strconv.FormatFloat(float64(t), 'f', -1, 32)
	case int:
		s = strconv.Itoa(t)
	case int64:
		s = strconv.FormatInt(t, 10)
	case bool:
		s = strconv.FormatBool(t)
	case fmt.Stringer:
		s = t.String()
	default:
		s = fmt.Sprint(t)
	}
	s = strings.TrimSpace(s)
	if s == "" {
		return "", false
	}
	return s, true
}

// CleanTextPtr is CleanText returning nil for absent values
func CleanTextPtr(v any) *string {
	s, ok := CleanText(v)
	if !ok {
		return nil
	}
	return &s
}

// HasNonASCII reports whether s contains any non-ASCII character
func HasNonASCII(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] >= 0x80 {
			return true
		}
	}
	return false
}
