package solax

import (
	"encoding/json"
	"testing"

	"github.com/nerrad567/solax-bridge/internal/inverter"
)

func decodeConfig(t *testing.T, m DiscoveryMessage) map[string]any {
	t.Helper()
	var cfg map[string]any
	if err := json.Unmarshal(m.Payload, &cfg); err != nil {
		t.Fatalf("payload for %s is not JSON: %v", m.Topic, err)
	}
	return cfg
}

func TestBuildDiscoveryStatus(t *testing.T) {
	ns := NewNamespace("solax", "homeassistant")
	msgs := BuildDiscovery(inverter.X3(inverter.Options{}), ns)

	status := msgs[0]
	if status.Topic != "homeassistant/sensor/solax/status/config" {
		t.Errorf("topic = %s", status.Topic)
	}

	cfg := decodeConfig(t, status)
	want := map[string]any{
		"name":        "Status",
		"unique_id":   "solax_status",
		"object_id":   "solax_status",
		"state_topic": "solax/sensor/status",
	}
	for k, v := range want {
		if cfg[k] != v {
			t.Errorf("%s = %v, want %v", k, cfg[k], v)
		}
	}
	for _, k := range []string{"device_class", "state_class", "unit_of_measurement", "availability"} {
		if _, ok := cfg[k]; ok {
			t.Errorf("status config carries %s", k)
		}
	}
}

func TestBuildDiscoverySensors(t *testing.T) {
	ns := NewNamespace("solax", "homeassistant")
	msgs := BuildDiscovery(inverter.X3(inverter.Options{}), ns)

	byTopic := make(map[string]map[string]any)
	for _, m := range msgs {
		byTopic[m.Topic] = decodeConfig(t, m)
	}

	pv := byTopic["homeassistant/sensor/solax/pv1_power/config"]
	if pv == nil {
		t.Fatal("pv1_power config missing")
	}
	checks := map[string]any{
		"name":                "PV 1 Power",
		"unique_id":           "solax_pv1_power",
		"object_id":           "solax_pv1_power",
		"device_class":        "power",
		"state_class":         "measurement",
		"unit_of_measurement": "W",
		"state_topic":         "solax/sensor/pv1_power",
	}
	for k, v := range checks {
		if pv[k] != v {
			t.Errorf("pv1_power %s = %v, want %v", k, pv[k], v)
		}
	}

	avail, ok := pv["availability"].(map[string]any)
	if !ok {
		t.Fatal("pv1_power has no availability")
	}
	if avail["topic"] != "solax/sensor/status" {
		t.Errorf("availability topic = %v", avail["topic"])
	}
	if want := `{{ "online" if value == "Normal" else "offline" }}`; avail["value_template"] != want {
		t.Errorf("value_template = %v, want %s", avail["value_template"], want)
	}

	device, ok := pv["device"].(map[string]any)
	if !ok {
		t.Fatal("pv1_power has no device")
	}
	wantDevice := map[string]any{"name": "solax", "identifiers": "solax", "manufacturer": "Solax", "model": "X3"}
	for k, v := range wantDevice {
		if device[k] != v {
			t.Errorf("device %s = %v, want %v", k, device[k], v)
		}
	}

	yield := byTopic["homeassistant/sensor/solax/yield_total/config"]
	if _, ok := yield["availability"]; ok {
		t.Error("always-available yield_total carries availability")
	}
	if yield["state_class"] != "total" {
		t.Errorf("yield_total state_class = %v", yield["state_class"])
	}
}

func TestBuildDiscoveryOmitsAbsentFields(t *testing.T) {
	m := &inverter.Model{
		Name:         "bare",
		Model:        "Bare",
		Manufacturer: "Solax",
		Status: inverter.StatusTable{
			Offset:     1,
			Labels:     map[string]string{"1": "Running"},
			Unknown:    "Unknown",
			ActiveCode: "1",
		},
		Sensors: []inverter.Sensor{
			{Name: "Raw", Identifier: "raw", Extractor: inverter.Field(0)},
		},
	}

	msgs := BuildDiscovery(m, NewNamespace("home/pv", "ha"))
	if len(msgs) != 2 {
		t.Fatalf("len = %d, want 2", len(msgs))
	}

	cfg := decodeConfig(t, msgs[1])
	for _, k := range []string{"device_class", "state_class", "unit_of_measurement"} {
		if _, ok := cfg[k]; ok {
			t.Errorf("config carries %s", k)
		}
	}
	avail := cfg["availability"].(map[string]any)
	if want := `{{ "online" if value == "Running" else "offline" }}`; avail["value_template"] != want {
		t.Errorf("value_template = %v", avail["value_template"])
	}
	if msgs[1].Topic != "ha/sensor/home/pv/raw/config" {
		t.Errorf("topic = %s", msgs[1].Topic)
	}
}

func TestBuildDiscoveryStatusSensor(t *testing.T) {
	reg, err := inverter.DefaultRegistry(inverter.Options{StatusSensor: true})
	if err != nil {
		t.Fatalf("DefaultRegistry() error = %v", err)
	}
	m, _ := reg.Lookup("x3")

	msgs := BuildDiscovery(m, NewNamespace("solax", "homeassistant"))
	if len(msgs) != len(m.Sensors) {
		t.Errorf("len(msgs) = %d, want %d", len(msgs), len(m.Sensors))
	}
	if msgs[0].Topic != "homeassistant/sensor/solax/status/config" {
		t.Errorf("first config = %s, want status", msgs[0].Topic)
	}
	var statusConfigs int
	for _, msg := range msgs {
		if msg.Topic == "homeassistant/sensor/solax/status/config" {
			statusConfigs++
			if _, ok := decodeConfig(t, msg)["availability"]; ok {
				t.Error("status config carries availability")
			}
		}
	}
	if statusConfigs != 1 {
		t.Errorf("status configs = %d, want 1", statusConfigs)
	}
}

func TestNamespace(t *testing.T) {
	ns := NewNamespace("//solax/", "/homeassistant")
	if ns.SensorRoot != "solax" || ns.DiscoveryRoot != "homeassistant" {
		t.Errorf("NewNamespace() = %+v", ns)
	}

	tests := []struct {
		got  string
		want string
	}{
		{ns.StatusTopic(), "solax/sensor/status"},
		{ns.SensorTopic("pv1_power"), "solax/sensor/pv1_power"},
		{ns.DiscoveryTopic("pv1_power"), "homeassistant/sensor/solax/pv1_power/config"},
		{ns.StateTopic(), "solax/bridge/state"},
		{ns.ObjectID("pv1_power"), "solax_pv1_power"},
	}
	for _, tt := range tests {
		if tt.got != tt.want {
			t.Errorf("got %q, want %q", tt.got, tt.want)
		}
	}
}

func TestTranslate(t *testing.T) {
	m := inverter.X3(inverter.Options{})

	tests := []struct {
		name         string
		status       string
		wantActive   bool
		wantReadings int
	}{
		{name: "normal", status: "2", wantActive: true, wantReadings: 22},
		{name: "waiting", status: "0", wantReadings: 11},
		{name: "unknown code", status: "9", wantReadings: 11},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := inverter.ParsePayload(telemetry(tt.status))
			if err != nil {
				t.Fatalf("ParsePayload() error = %v", err)
			}
			tr, err := Translate(m, p)
			if err != nil {
				t.Fatalf("Translate() error = %v", err)
			}
			if tr.Active != tt.wantActive {
				t.Errorf("Active = %v, want %v", tr.Active, tt.wantActive)
			}
			if len(tr.Readings) != tt.wantReadings {
				t.Errorf("len(Readings) = %d, want %d", len(tr.Readings), tt.wantReadings)
			}
		})
	}
}
