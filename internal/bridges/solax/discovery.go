package solax

import (
	"encoding/json"
	"fmt"

	"github.com/nerrad567/solax-bridge/internal/inverter"
)

// DiscoveryMessage is one retained Home Assistant discovery config.
type DiscoveryMessage struct {
	Topic   string          `json:"topic"`
	Payload json.RawMessage `json:"payload"`
}

// discoveryConfig is the Home Assistant MQTT sensor config. Absent values
// are omitted, never sent as null: Home Assistant treats an explicit null
// differently from a missing key.
type discoveryConfig struct {
	Name              string                 `json:"name"`
	UniqueID          string                 `json:"unique_id"`
	ObjectID          string                 `json:"object_id"`
	DeviceClass       string                 `json:"device_class,omitempty"`
	StateClass        string                 `json:"state_class,omitempty"`
	Availability      *discoveryAvailability `json:"availability,omitempty"`
	UnitOfMeasurement string                 `json:"unit_of_measurement,omitempty"`
	StateTopic        string                 `json:"state_topic"`
	Device            discoveryDevice        `json:"device"`
}

type discoveryAvailability struct {
	Topic         string `json:"topic"`
	ValueTemplate string `json:"value_template"`
}

type discoveryDevice struct {
	Name         string `json:"name"`
	Identifiers  string `json:"identifiers"`
	Manufacturer string `json:"manufacturer"`
	Model        string `json:"model"`
}

// BuildDiscovery returns the status config followed by one config per
// sensor, in sensor order. A model declaring its own status sensor has that
// sensor's config published in place of the built-in one.
func BuildDiscovery(m *inverter.Model, ns Namespace) []DiscoveryMessage {
	device := discoveryDevice{
		Name:         ns.SensorRoot,
		Identifiers:  ns.SensorRoot,
		Manufacturer: m.Manufacturer,
		Model:        m.Model,
	}
	availability := &discoveryAvailability{
		Topic:         ns.StatusTopic(),
		ValueTemplate: fmt.Sprintf(`{{ "online" if value == %q else "offline" }}`, m.ActiveLabel()),
	}
	sensorConfig := func(s inverter.Sensor) DiscoveryMessage {
		cfg := discoveryConfig{
			Name:              s.Name,
			UniqueID:          ns.ObjectID(s.Identifier),
			ObjectID:          ns.ObjectID(s.Identifier),
			DeviceClass:       s.DeviceClass,
			StateClass:        s.StateClass,
			UnitOfMeasurement: s.UnitOfMeasurement,
			StateTopic:        ns.SensorTopic(s.Identifier),
			Device:            device,
		}
		if !s.AlwaysAvailable {
			cfg.Availability = availability
		}
		return discoveryMessage(ns.DiscoveryTopic(s.Identifier), cfg)
	}

	msgs := make([]DiscoveryMessage, 0, len(m.Sensors)+1)
	if s, ok := m.Sensor(inverter.StatusIdentifier); ok {
		msgs = append(msgs, sensorConfig(s))
	} else {
		msgs = append(msgs, discoveryMessage(ns.DiscoveryTopic(inverter.StatusIdentifier), discoveryConfig{
			Name:       "Status",
			UniqueID:   ns.ObjectID(inverter.StatusIdentifier),
			ObjectID:   ns.ObjectID(inverter.StatusIdentifier),
			StateTopic: ns.StatusTopic(),
			Device:     device,
		}))
	}

	for _, s := range m.Sensors {
		if s.Identifier == inverter.StatusIdentifier {
			continue
		}
		msgs = append(msgs, sensorConfig(s))
	}

	return msgs
}

func discoveryMessage(topic string, cfg discoveryConfig) DiscoveryMessage {
	payload, _ := json.Marshal(cfg) //nolint:errcheck // plain struct always marshals
	return DiscoveryMessage{Topic: topic, Payload: payload}
}
