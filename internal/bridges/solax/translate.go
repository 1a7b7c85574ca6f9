package solax

import (
	"errors"
	"fmt"

	"github.com/nerrad567/solax-bridge/internal/inverter"
)

// Reading is one sensor value ready to publish.
type Reading struct {
	ID    string
	Value string
}

// Translation is the outcome of evaluating one telemetry payload.
type Translation struct {
	// Status is the decoded status label.
	Status string

	// Active is true when the inverter reported normal operation.
	Active bool

	// Readings holds measured values when active, or the declared defaults
	// when inactive, in sensor order.
	Readings []Reading
}

// Translate evaluates a payload against a model. Status and activity are
// read once. A sensor whose field is missing is skipped and reported in the
// joined error while the others are still translated; a missing status
// field abandons the payload.
//
// Returns:
//   - *Translation: nil only when the status could not be read
//   - error: wrapping inverter.ErrFieldOffset for missing fields
func Translate(m *inverter.Model, p *inverter.Payload) (*Translation, error) {
	code, err := m.StatusCode(p)
	if err != nil {
		return nil, fmt.Errorf("reading status: %w", err)
	}

	t := &Translation{
		Status: m.Status.Decode(code),
		Active: code == m.Status.ActiveCode,
	}

	if !t.Active {
		for _, s := range m.Sensors {
			if s.Default != nil {
				t.Readings = append(t.Readings, Reading{ID: s.Identifier, Value: *s.Default})
			}
		}
		return t, nil
	}

	var errs []error
	t.Readings = make([]Reading, 0, len(m.Sensors))
	for _, s := range m.Sensors {
		v, err := m.Value(s, p)
		if err != nil {
			errs = append(errs, fmt.Errorf("sensor %s: %w", s.Identifier, err))
			continue
		}
		t.Readings = append(t.Readings, Reading{ID: s.Identifier, Value: v})
	}
	return t, errors.Join(errs...)
}
