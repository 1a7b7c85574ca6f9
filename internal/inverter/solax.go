package inverter

import "fmt"

// StatusIdentifier is the identifier of the decoded status sensor. The
// status topic <root>/sensor/status is shared by the router's status publish
// and, when enabled, the Status sensor.
const StatusIdentifier = "status"

// Grid power device classes.
const (
	GridPowerEnergy = "energy"
	GridPowerPower  = "power"
)

// Solax status codes as reported by the X3 at Data[68].
const (
	x3StatusOffset = 68
	x3ActiveCode   = "2"
	statusUnknown  = "Unknown"
)

// Options adjusts the built-in model tables.
type Options struct {
	// GridPowerClass is GridPowerEnergy (kWh, default) or GridPowerPower (W).
	GridPowerClass string

	// StatusSensor appends an always-available Status sensor to every model.
	StatusSensor bool
}

// gridPower returns the device class and unit for the grid power sensor.
func (o Options) gridPower() (class, unit string) {
	if o.GridPowerClass == GridPowerPower {
		return "power", "W"
	}
	return "energy", "kWh"
}

// X3 returns the Solax X3 three-phase model.
func X3(opts Options) *Model {
	gridClass, gridUnit := opts.gridPower()

	m := &Model{
		Name:         "x3",
		Model:        "X3",
		Manufacturer: "Solax",
		Status: StatusTable{
			Offset: x3StatusOffset,
			Labels: map[string]string{
				"0": "Waiting",
				"1": "Grid sync",
				"2": "Normal",
				"3": "Lost grid",
			},
			Unknown:    statusUnknown,
			ActiveCode: x3ActiveCode,
		},
	}

	m.Sensors = []Sensor{
		measurement("PV 1 Current", "pv1_current", "current", "A", 0, Default("0")),
		measurement("PV 2 Current", "pv2_current", "current", "A", 1, Default("0")),
		measurement("PV 1 Voltage", "pv1_voltage", "voltage", "V", 2, nil),
		measurement("PV 2 Voltage", "pv2_voltage", "voltage", "V", 3, nil),
		measurement("PV 1 Power", "pv1_power", "power", "W", 11, Default("0")),
		measurement("PV 2 Power", "pv2_power", "power", "W", 12, Default("0")),
	}
	phaseCurrent := []int{4, 46, 47}
	phaseVoltage := []int{5, 48, 49}
	phasePower := []int{43, 44, 45}
	phaseFrequency := []int{50, 51, 52}
	for i := range 3 {
		n := i + 1
		m.Sensors = append(m.Sensors,
			measurement(fmt.Sprintf("Phase %d Current", n), fmt.Sprintf("phase%d_current", n), "current", "A", phaseCurrent[i], Default("0")),
			measurement(fmt.Sprintf("Phase %d Voltage", n), fmt.Sprintf("phase%d_voltage", n), "voltage", "V", phaseVoltage[i], nil),
			measurement(fmt.Sprintf("Phase %d Power", n), fmt.Sprintf("phase%d_power", n), "power", "W", phasePower[i], Default("0")),
			measurement(fmt.Sprintf("Phase %d Frequency", n), fmt.Sprintf("phase%d_frequency", n), "frequency", "Hz", phaseFrequency[i], nil),
		)
	}
	m.Sensors = append(m.Sensors,
		measurement("Grid Power", "grid_power", gridClass, gridUnit, 6, Default("0")),
		measurement("Temperature", "temperature", "temperature", "°C", 7, nil),
		Sensor{
			Name:              "Yield Today",
			Identifier:        "yield_today",
			DeviceClass:       "energy",
			StateClass:        "total_increasing",
			UnitOfMeasurement: "kWh",
			Extractor:         Field(8),
			AlwaysAvailable:   true,
		},
		Sensor{
			Name:              "Yield Total",
			Identifier:        "yield_total",
			DeviceClass:       "energy",
			StateClass:        "total",
			UnitOfMeasurement: "kWh",
			Extractor:         Field(9),
			AlwaysAvailable:   true,
		},
	)

	return m
}

func measurement(name, id, class, unit string, offset int, def *string) Sensor {
	return Sensor{
		Name:              name,
		Identifier:        id,
		DeviceClass:       class,
		StateClass:        "measurement",
		UnitOfMeasurement: unit,
		Extractor:         Field(offset),
		Default:           def,
	}
}

// withStatusSensor returns a copy of m carrying the Status sensor. Models
// that already declare one are returned unchanged.
func withStatusSensor(m *Model) *Model {
	if _, ok := m.Sensor(StatusIdentifier); ok {
		return m
	}
	out := *m
	out.Sensors = append(append([]Sensor(nil), m.Sensors...), Sensor{
		Name:            "Status",
		Identifier:      StatusIdentifier,
		Extractor:       StatusAt(m.Status.Offset),
		AlwaysAvailable: true,
	})
	return &out
}
