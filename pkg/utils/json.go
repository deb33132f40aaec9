package utils

import (
	"encoding/json"
	"math"
	"unicode/utf8"
)

// Truthy reports whether a decoded JSON value counts as present: false,
// zero, the empty string and null do not; arrays and objects always do.
func Truthy(value any) bool {
	switch v := value.(type) {
	case nil:
		return false
	case bool:
		return v
	case string:
		return v != ""
	case float64:
		return v != 0 && !math.IsNaN(v)
	case json.Number:
		f, err := v.Float64()
		if err != nil {
			return v.String() != ""
		}
		return f != 0 && !math.IsNaN(f)
	case int:
		return v != 0
	case int64:
		return v != 0
	default:
		return true
	}
}

// TruthyRaw is Truthy for an undecoded JSON value. Missing (nil) and
// malformed values are falsy.
func TruthyRaw(raw json.RawMessage) bool {
	if len(raw) == 0 {
		return false
	}
	var value any
	if err := json.Unmarshal(raw, &value); err != nil {
		return false
	}
	return Truthy(value)
}

// RepairMojibake undoes UTF-8 text that was decoded as Latin-1 upstream
// ("CafÃ©" becomes "Café"). Text that is not in that shape is returned
// unchanged.
func RepairMojibake(text string) string {
	raw := make([]byte, 0, len(text))
	for _, r := range text {
		if r > 0xFF {
			return text
		}
		raw = append(raw, byte(r))
	}
	if !utf8.Valid(raw) {
		return text
	}
	return string(raw)
}
