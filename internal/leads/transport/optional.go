package transport

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

// FlexString accepts either a JSON string ("3+") or a JSON number (3).
type FlexString struct {
	Value string
	Set   bool
}

func (f FlexString) IsZero() bool {
	return !f.Set
}

func (f *FlexString) UnmarshalJSON(data []byte) error {
	f.Set = true
	if bytes.Equal(data, []byte("null")) {
		f.Value = ""
		return nil
	}

	var raw string
	if err := json.Unmarshal(data, &raw); err == nil {
		f.Value = raw
		return nil
	}

	var num float64
	if err := json.Unmarshal(data, &num); err != nil {
		return fmt.Errorf("expected string or number, got %s", data)
	}

	f.Value = strconv.FormatFloat(num, 'f', -1, 64)
	return nil
}

func (f FlexString) MarshalJSON() ([]byte, error) {
	return json.Marshal(f.Value)
}
