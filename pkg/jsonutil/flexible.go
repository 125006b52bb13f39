// Package jsonutil smooths over loosely typed JSON in model-emitted
// tool arguments.
package jsonutil

import (
	"bytes"
	"encoding/json"
	"strconv"
)

// FlexibleStringValue renders a raw JSON scalar as a string. Models
// regularly emit numbers or booleans where a tool schema declares a
// string; those are formatted instead of rejected. Null and empty
// input become "". Numbers keep their literal form, so precision never
// degrades through a float round-trip.
func FlexibleStringValue(raw json.RawMessage) string {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return ""
	}

	var s string
	if json.Unmarshal(trimmed, &s) == nil {
		return s
	}

	dec := json.NewDecoder(bytes.NewReader(trimmed))
	dec.UseNumber()
	var v any
	if dec.Decode(&v) == nil {
		switch val := v.(type) {
		case json.Number:
			return val.String()
		case bool:
			return strconv.FormatBool(val)
		}
	}

	// Objects and arrays pass through verbatim.
	return string(trimmed)
}
