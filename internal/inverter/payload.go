package inverter

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Payload is a parsed telemetry document. Only its Data array is interpreted.
type Payload struct {
	data []json.RawMessage
}

// rawPayload mirrors the wire document. Other keys (type, SN, ver) are ignored.
type rawPayload struct {
	Data []json.RawMessage `json:"Data"`
}

// ParsePayload decodes a telemetry document.
//
// Returns:
//   - *Payload: Parsed document
//   - error: wrapping ErrPayloadParse if raw is not JSON or has no Data array
func ParsePayload(raw []byte) (*Payload, error) {
	var doc rawPayload
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrPayloadParse, err)
	}
	if doc.Data == nil {
		return nil, fmt.Errorf("%w: missing Data array", ErrPayloadParse)
	}
	return &Payload{data: doc.Data}, nil
}

// NewPayload builds a payload from already-rendered values, for tests and tools.
func NewPayload(values ...string) *Payload {
	data := make([]json.RawMessage, len(values))
	for i, v := range values {
		b, _ := json.Marshal(v) //nolint:errcheck // strings always marshal
		data[i] = b
	}
	return &Payload{data: data}
}

// Len returns the number of elements in the Data array.
func (p *Payload) Len() int {
	return len(p.data)
}

// Field renders Data[offset] as a string: JSON strings are unquoted, numbers
// and booleans keep their literal text.
func (p *Payload) Field(offset int) (string, error) {
	if offset < 0 || offset >= len(p.data) {
		return "", fmt.Errorf("%w: offset %d, Data has %d elements", ErrFieldOffset, offset, len(p.data))
	}

	raw := bytes.TrimSpace(p.data[offset])
	switch {
	case len(raw) == 0, bytes.Equal(raw, []byte("null")):
		return "", fmt.Errorf("%w: offset %d is null", ErrFieldOffset, offset)
	case raw[0] == '"':
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return "", fmt.Errorf("%w: offset %d: %w", ErrFieldOffset, offset, err)
		}
		return s, nil
	case raw[0] == '{' || raw[0] == '[':
		return "", fmt.Errorf("%w: offset %d is not a scalar", ErrFieldOffset, offset)
	default:
		return string(raw), nil
	}
}
