package inverter

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// definitionsFile is the YAML layout of a custom model file:
//
//	models:
//	  - name: x1
//	    model: X1 Mini
//	    manufacturer: Solax
//	    status:
//	      offset: 20
//	      active: "2"
//	      labels: {"0": Waiting, "2": Normal}
//	    sensors:
//	      - {name: PV Power, id: pv_power, device_class: power, state_class: measurement, unit: W, offset: 3, default: "0"}
type definitionsFile struct {
	Models []modelDefinition `yaml:"models"`
}

type modelDefinition struct {
	Name         string             `yaml:"name"`
	Model        string             `yaml:"model"`
	Manufacturer string             `yaml:"manufacturer"`
	Status       statusDefinition   `yaml:"status"`
	Sensors      []sensorDefinition `yaml:"sensors"`
}

type statusDefinition struct {
	Offset  int               `yaml:"offset"`
	Active  string            `yaml:"active"`
	Unknown string            `yaml:"unknown"`
	Labels  map[string]string `yaml:"labels"`
}

type sensorDefinition struct {
	Name            string  `yaml:"name"`
	ID              string  `yaml:"id"`
	DeviceClass     string  `yaml:"device_class"`
	StateClass      string  `yaml:"state_class"`
	Unit            string  `yaml:"unit"`
	Extract         string  `yaml:"extract"`
	Offset          int     `yaml:"offset"`
	Default         *string `yaml:"default"`
	AlwaysAvailable bool    `yaml:"always_available"`
}

// LoadDefinitions reads custom model tables from a YAML file.
//
// Parameters:
//   - path: Path to the definitions file
//
// Returns:
//   - []*Model: Validated models in file order
//   - error: If the file cannot be read or a model is invalid
func LoadDefinitions(path string) ([]*Model, error) {
	data, err := os.ReadFile(path) //nolint:gosec // Path comes from operator config
	if err != nil {
		return nil, fmt.Errorf("reading model definitions: %w", err)
	}
	models, err := ParseDefinitions(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return models, nil
}

// ParseDefinitions decodes model tables from YAML.
func ParseDefinitions(data []byte) ([]*Model, error) {
	var file definitionsFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("%w: parsing definitions: %w", ErrInvalidModel, err)
	}

	models := make([]*Model, 0, len(file.Models))
	for i, def := range file.Models {
		m, err := def.model()
		if err != nil {
			return nil, fmt.Errorf("model %d: %w", i, err)
		}
		if err := m.Validate(); err != nil {
			return nil, err
		}
		models = append(models, m)
	}
	return models, nil
}

func (d modelDefinition) model() (*Model, error) {
	m := &Model{
		Name:         d.Name,
		Model:        d.Model,
		Manufacturer: d.Manufacturer,
		Status: StatusTable{
			Offset:     d.Status.Offset,
			Labels:     d.Status.Labels,
			Unknown:    d.Status.Unknown,
			ActiveCode: d.Status.Active,
		},
	}
	if m.Model == "" {
		m.Model = d.Name
	}
	if m.Manufacturer == "" {
		m.Manufacturer = "Solax"
	}
	if m.Status.Unknown == "" {
		m.Status.Unknown = statusUnknown
	}

	for _, s := range d.Sensors {
		var kind ExtractorKind
		if err := kind.UnmarshalText([]byte(s.Extract)); err != nil {
			return nil, fmt.Errorf("sensor %q: %w", s.ID, err)
		}
		offset := s.Offset
		if kind == ExtractStatus && offset == 0 {
			offset = m.Status.Offset
		}
		m.Sensors = append(m.Sensors, Sensor{
			Name:              s.Name,
			Identifier:        s.ID,
			DeviceClass:       s.DeviceClass,
			StateClass:        s.StateClass,
			UnitOfMeasurement: s.Unit,
			Extractor:         Extractor{Kind: kind, Offset: offset},
			AlwaysAvailable:   s.AlwaysAvailable,
			Default:           s.Default,
		})
	}
	return m, nil
}
