package types

import (
	"encoding/json"
	"strconv"
)

// Value is a parsed numeric reading, or NotAvailable. The zero value is
// NotAvailable, so a Value that was never filled in cannot be mistaken for 0.
type Value struct {
	v  float64
	ok bool
}

// NotAvailable marks a metric that could not be extracted
var NotAvailable = Value{}

// Number wraps a float as an available Value
func Number(f float64) Value {
	return Value{v: f, ok: true}
}

// Available reports whether the value holds a number
func (v Value) Available() bool {
	return v.ok
}

// Float returns the number and whether it is available
func (v Value) Float() (float64, bool) {
	return v.v, v.ok
}

func (v Value) String() string {
	if !v.ok {
		return "NA"
	}
	return strconv.FormatFloat(v.v, 'f', -1, 64)
}

// MarshalJSON encodes NotAvailable as null
func (v Value) MarshalJSON() ([]byte, error) {
	if !v.ok {
		return []byte("null"), nil
	}
	return json.Marshal(v.v)
}

// UnmarshalJSON decodes null as NotAvailable
func (v *Value) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*v = NotAvailable
		return nil
	}
	var f float64
	if err := json.Unmarshal(data, &f); err != nil {
		return err
	}
	*v = Number(f)
	return nil
}
