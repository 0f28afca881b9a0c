package types

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
)

const metricUndefined = "undefined"

// Metric is a derived number that might not have a real solution (for
// example an IRR on a cash flow that never changes sign). An undefined Metric
// marshals to the string "undefined" instead of being coerced to 0 or null.
type Metric struct {
	value   float64
	defined bool
}

// Defined returns a Metric holding v. NaN and infinities are undefined.
func Defined(v float64) Metric {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return Metric{}
	}
	return Metric{value: v, defined: true}
}

// Undefined returns a Metric without a value.
func Undefined() Metric {
	return Metric{}
}

// IsDefined reports whether the metric holds a value.
func (m Metric) IsDefined() bool {
	return m.defined
}

// Value returns the value and whether it is defined.
func (m Metric) Value() (float64, bool) {
	return m.value, m.defined
}

func (m Metric) String() string {
	if !m.defined {
		return metricUndefined
	}
	return fmt.Sprintf("%g", m.value)
}

// MarshalJSON implements json.Marshaler.
func (m Metric) MarshalJSON() ([]byte, error) {
	if !m.defined {
		return json.Marshal(metricUndefined)
	}
	return json.Marshal(m.value)
}

// UnmarshalJSON implements json.Unmarshaler.
func (m *Metric) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		if s != metricUndefined {
			return fmt.Errorf("invalid metric value: %q", s)
		}
		*m = Undefined()
		return nil
	}
	var v float64
	if err := json.Unmarshal(b, &v); err != nil {
		return fmt.Errorf("invalid metric value: %w", err)
	}
	*m = Defined(v)
	return nil
}
