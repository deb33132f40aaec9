package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// StringSet is an ordered set of strings. It decodes from either a JSON
// array or a comma-joined string and always encodes as an array.
type StringSet []string

func NewStringSet(values ...string) StringSet {
	seen := make(map[string]struct{}, len(values))
	set := make(StringSet, 0, len(values))
	for _, value := range values {
		value = strings.TrimSpace(value)
		if value == "" {
			continue
		}
		if _, ok := seen[value]; ok {
			continue
		}
		seen[value] = struct{}{}
		set = append(set, value)
	}
	return set
}

func ParseStringSet(joined string) StringSet {
	return NewStringSet(strings.Split(joined, ",")...)
}

func (s StringSet) Join() string {
	return strings.Join(s, ",")
}

func (s StringSet) Contains(value string) bool {
	for _, item := range s {
		if item == value {
			return true
		}
	}
	return false
}

func (s StringSet) MarshalJSON() ([]byte, error) {
	if s == nil {
		return []byte("[]"), nil
	}
	return json.Marshal([]string(s))
}

func (s *StringSet) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*s = StringSet{}
		return nil
	}

	if len(data) > 0 && data[0] == '"' {
		var joined string
		if err := json.Unmarshal(data, &joined); err != nil {
			return err
		}
		*s = ParseStringSet(joined)
		return nil
	}

	var values []string
	if err := json.Unmarshal(data, &values); err != nil {
		return fmt.Errorf("string set: %w", err)
	}
	*s = NewStringSet(values...)
	return nil
}

// FlexInt decodes integers sent either as JSON numbers or numeric strings.
// Empty or non-numeric strings decode to zero, fractional values truncate.
type FlexInt int

func (i *FlexInt) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*i = 0
		return nil
	}

	raw := string(data)
	if len(data) > 0 && data[0] == '"' {
		if err := json.Unmarshal(data, &raw); err != nil {
			return err
		}
	}

	*i = FlexInt(ParseLeadingInt(raw))
	return nil
}

// ParseLeadingInt parses the integer prefix of value ("34", "34.9", "34kg"),
// returning zero when there is none.
func ParseLeadingInt(value string) int {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0
	}
	if n, err := strconv.Atoi(value); err == nil {
		return n
	}
	if f, err := strconv.ParseFloat(value, 64); err == nil && !math.IsNaN(f) && !math.IsInf(f, 0) {
		if f >= math.MaxInt32 || f <= math.MinInt32 {
			return 0
		}
		return int(f)
	}

	end := 0
	if value[0] == '-' || value[0] == '+' {
		end = 1
	}
	for end < len(value) && value[end] >= '0' && value[end] <= '9' {
		end++
	}
	n, err := strconv.Atoi(value[:end])
	if err != nil {
		return 0
	}
	return n
}

// FlexString decodes a JSON string or number into its textual form.
type FlexString string

func (s *FlexString) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case bytes.Equal(data, []byte("null")):
		*s = ""
	case len(data) > 0 && data[0] == '"':
		var value string
		if err := json.Unmarshal(data, &value); err != nil {
			return err
		}
		*s = FlexString(value)
	default:
		var number json.Number
		if err := json.Unmarshal(data, &number); err != nil {
			return fmt.Errorf("flex string: %w", err)
		}
		*s = FlexString(number.String())
	}
	return nil
}

func (s FlexString) String() string {
	return string(s)
}
