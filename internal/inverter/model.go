package inverter

import (
	"fmt"
	"strings"
)

// ExtractorKind enumerates the ways a sensor value is read from a payload.
type ExtractorKind int

const (
	// ExtractField renders Data[Offset] verbatim.
	ExtractField ExtractorKind = iota + 1

	// ExtractStatus decodes the code at Data[Offset] through the model's status table.
	ExtractStatus
)

// String returns the kind name used in definition files and the status API.
func (k ExtractorKind) String() string {
	switch k {
	case ExtractField:
		return "field"
	case ExtractStatus:
		return "status"
	default:
		return fmt.Sprintf("ExtractorKind(%d)", int(k))
	}
}

// MarshalText implements encoding.TextMarshaler.
func (k ExtractorKind) MarshalText() ([]byte, error) {
	switch k {
	case ExtractField, ExtractStatus:
		return []byte(k.String()), nil
	default:
		return nil, fmt.Errorf("%w: extractor kind %d", ErrInvalidModel, int(k))
	}
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (k *ExtractorKind) UnmarshalText(text []byte) error {
	switch strings.ToLower(string(text)) {
	case "", "field":
		*k = ExtractField
	case "status":
		*k = ExtractStatus
	default:
		return fmt.Errorf("%w: unknown extractor kind %q", ErrInvalidModel, text)
	}
	return nil
}

// Extractor addresses one position of the Data array.
type Extractor struct {
	Kind   ExtractorKind `json:"kind"`
	Offset int           `json:"offset"`
}

// Field returns a fixed-offset extractor.
func Field(offset int) Extractor {
	return Extractor{Kind: ExtractField, Offset: offset}
}

// StatusAt returns an extractor that decodes the status code at offset.
func StatusAt(offset int) Extractor {
	return Extractor{Kind: ExtractStatus, Offset: offset}
}

// Sensor describes one named quantity derived from the Data array.
// Empty class and unit strings mean "absent".
type Sensor struct {
	Name              string    `json:"name"`
	Identifier        string    `json:"identifier"`
	DeviceClass       string    `json:"device_class,omitempty"`
	StateClass        string    `json:"state_class,omitempty"`
	UnitOfMeasurement string    `json:"unit_of_measurement,omitempty"`
	Extractor         Extractor `json:"extractor"`
	AlwaysAvailable   bool      `json:"always_available"`

	// Default is published while the inverter is inactive; nil means the
	// sensor is left untouched.
	Default *string `json:"default,omitempty"`
}

// Default returns a pointer to v, for sensor tables.
func Default(v string) *string {
	return &v
}

// StatusTable decodes the inverter status code.
type StatusTable struct {
	// Offset of the status code in the Data array.
	Offset int `json:"offset"`

	// Labels maps known codes to human labels.
	Labels map[string]string `json:"labels"`

	// Unknown is the label for any code outside Labels.
	Unknown string `json:"unknown"`

	// ActiveCode is the code meaning normal operation.
	ActiveCode string `json:"active_code"`
}

// Decode returns the label for code, or the Unknown label.
func (t StatusTable) Decode(code string) string {
	if label, ok := t.Labels[code]; ok {
		return label
	}
	return t.Unknown
}

// Model is the sensor table, status decoder and activity rule of one
// inverter family. Models are immutable once registered and are shared by
// concurrent message handlers without locking.
type Model struct {
	// Name is the registry key, e.g. "x3".
	Name string `json:"name"`

	// Model is the display name used as device.model in discovery.
	Model string `json:"model"`

	Manufacturer string      `json:"manufacturer"`
	Sensors      []Sensor    `json:"sensors"`
	Status       StatusTable `json:"status"`
}

// StatusCode returns the raw status code of p.
func (m *Model) StatusCode(p *Payload) (string, error) {
	return p.Field(m.Status.Offset)
}

// StatusOf returns the decoded status label of p. Unrecognised codes give
// the Unknown label; only a missing status field is an error.
func (m *Model) StatusOf(p *Payload) (string, error) {
	code, err := m.StatusCode(p)
	if err != nil {
		return "", fmt.Errorf("reading status: %w", err)
	}
	return m.Status.Decode(code), nil
}

// IsActive reports whether p carries the normal-operation status code.
func (m *Model) IsActive(p *Payload) (bool, error) {
	code, err := m.StatusCode(p)
	if err != nil {
		return false, fmt.Errorf("reading status: %w", err)
	}
	return code == m.Status.ActiveCode, nil
}

// ActiveLabel is the status label of the active code.
func (m *Model) ActiveLabel() string {
	return m.Status.Decode(m.Status.ActiveCode)
}

// Value runs the sensor's extractor against p.
func (m *Model) Value(s Sensor, p *Payload) (string, error) {
	switch s.Extractor.Kind {
	case ExtractField:
		return p.Field(s.Extractor.Offset)
	case ExtractStatus:
		code, err := p.Field(s.Extractor.Offset)
		if err != nil {
			return "", err
		}
		return m.Status.Decode(code), nil
	default:
		return "", fmt.Errorf("%w: sensor %q has extractor kind %d", ErrInvalidModel, s.Identifier, int(s.Extractor.Kind))
	}
}

// Sensor returns the sensor with the given identifier.
func (m *Model) Sensor(identifier string) (Sensor, bool) {
	for _, s := range m.Sensors {
		if s.Identifier == identifier {
			return s, true
		}
	}
	return Sensor{}, false
}

// MaxOffset returns the highest Data index any extractor reads.
func (m *Model) MaxOffset() int {
	highest := m.Status.Offset
	for _, s := range m.Sensors {
		if s.Extractor.Offset > highest {
			highest = s.Extractor.Offset
		}
	}
	return highest
}

// Validate checks the model invariants: a name, a decodable active code,
// and unique, non-empty sensor identifiers with valid extractors.
func (m *Model) Validate() error {
	if m.Name == "" {
		return fmt.Errorf("%w: model name is required", ErrInvalidModel)
	}
	if m.Model == "" {
		return fmt.Errorf("%w: %s: display model is required", ErrInvalidModel, m.Name)
	}
	if m.Status.Offset < 0 {
		return fmt.Errorf("%w: %s: negative status offset", ErrInvalidModel, m.Name)
	}
	if m.Status.Unknown == "" {
		return fmt.Errorf("%w: %s: unknown status label is required", ErrInvalidModel, m.Name)
	}
	if _, ok := m.Status.Labels[m.Status.ActiveCode]; !ok {
		return fmt.Errorf("%w: %s: active code %q has no status label", ErrInvalidModel, m.Name, m.Status.ActiveCode)
	}

	seen := make(map[string]string, len(m.Sensors))
	for _, s := range m.Sensors {
		if s.Identifier == "" {
			return fmt.Errorf("%w: %s: sensor %q has no identifier", ErrInvalidModel, m.Name, s.Name)
		}
		if strings.ContainsAny(s.Identifier, "/#+ ") {
			return fmt.Errorf("%w: %s: identifier %q is not a single topic level", ErrInvalidModel, m.Name, s.Identifier)
		}
		if prev, dup := seen[s.Identifier]; dup {
			return fmt.Errorf("%w: %s: %q used by %q and %q", ErrDuplicateIdentifier, m.Name, s.Identifier, prev, s.Name)
		}
		seen[s.Identifier] = s.Name

		switch s.Extractor.Kind {
		case ExtractField:
			// The status topic belongs to the decoded status; a raw field there would clash.
			if s.Identifier == StatusIdentifier {
				return fmt.Errorf("%w: %s: identifier %q is reserved for the status sensor", ErrInvalidModel, m.Name, s.Identifier)
			}
		case ExtractStatus:
		default:
			return fmt.Errorf("%w: %s: sensor %q has no extractor", ErrInvalidModel, m.Name, s.Identifier)
		}
		if s.Extractor.Offset < 0 {
			return fmt.Errorf("%w: %s: sensor %q has negative offset", ErrInvalidModel, m.Name, s.Identifier)
		}
	}

	return nil
}
