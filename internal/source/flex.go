package source

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// flexValue holds a scalar that exports deliver either as a JSON number or a
// JSON string. It keeps the raw text so prices are parsed exactly once, by
// model.ParsePrice.
type flexValue struct {
	raw   string
	valid bool
}

func (f *flexValue) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*f = flexValue{}
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = flexValue{raw: s, valid: strings.TrimSpace(s) != ""}
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("expected number or string, got %s", data)
	}
	*f = flexValue{raw: n.String(), valid: true}
	return nil
}

// String returns the raw text, or "" when absent.
func (f flexValue) String() string {
	return f.raw
}

// Int parses the value as an integer. Fractional text is truncated toward zero.
func (f flexValue) Int() (int, bool, error) {
	if !f.valid {
		return 0, false, nil
	}
	s := strings.TrimSpace(f.raw)
	if i, err := strconv.Atoi(s); err == nil {
		return i, true, nil
	}
	fl, err := strconv.ParseFloat(strings.Replace(s, ",", ".", 1), 64)
	if err != nil {
		return 0, false, fmt.Errorf("not an integer: %q", f.raw)
	}
	return int(fl), true, nil
}

// flexString accepts a JSON string or number, as Capital sometimes returns
// numeric codes unquoted.
type flexString string

func (f *flexString) UnmarshalJSON(data []byte) error {
	var v flexValue
	if err := v.UnmarshalJSON(data); err != nil {
		return err
	}
	*f = flexString(v.raw)
	return nil
}
