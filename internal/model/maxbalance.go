package model

import (
	"encoding/json"
	"strconv"
	"strings"
)

// MaxBalanceValue decodes the max_balance field of inbound JSON bodies.
// Callers send it as a number, a numeric string, free text, or null; only a
// non-negative integer survives as a value, everything else decodes to
// absent. This mirrors the tolerant-input policy of ParseMaxBalance instead
// of failing the whole request.
type MaxBalanceValue struct {
	Value *int64
}

// UnmarshalJSON implements json.Unmarshaler.
func (m *MaxBalanceValue) UnmarshalJSON(data []byte) error {
	m.Value = nil
	s := strings.TrimSpace(string(data))
	if s == "null" {
		return nil
	}
	if strings.HasPrefix(s, `"`) {
		var raw string
		if err := json.Unmarshal(data, &raw); err != nil {
			return err
		}
		m.Value = ParseMaxBalance(raw)
		return nil
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil || n < 0 {
		// Non-integer JSON (floats, objects, booleans) is discarded, not fatal.
		return nil
	}
	m.Value = &n
	return nil
}

// MarshalJSON implements json.Marshaler.
func (m MaxBalanceValue) MarshalJSON() ([]byte, error) {
	if m.Value == nil {
		return []byte("null"), nil
	}
	return json.Marshal(*m.Value)
}
