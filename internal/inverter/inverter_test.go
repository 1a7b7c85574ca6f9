package inverter

import (
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"testing"
)

// x3Payload returns a 69-element X3 Data array with Data[i] = i and the
// given overrides applied.
func x3Payload(status string, overrides map[int]string) *Payload {
	values := make([]string, x3StatusOffset+1)
	for i := range values {
		values[i] = strconv.Itoa(i)
	}
	for i, v := range overrides {
		values[i] = v
	}
	values[x3StatusOffset] = status
	return NewPayload(values...)
}

func TestParsePayload(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		wantErr error
		wantLen int
	}{
		{name: "full document", raw: `{"type":"X3-Hybiyd-G4","SN":"SX123","ver":"v2","Data":[1.5,"2",true]}`, wantLen: 3},
		{name: "empty data", raw: `{"Data":[]}`, wantLen: 0},
		{name: "not json", raw: `not json`, wantErr: ErrPayloadParse},
		{name: "missing data", raw: `{"SN":"SX123"}`, wantErr: ErrPayloadParse},
		{name: "data not an array", raw: `{"Data":"x"}`, wantErr: ErrPayloadParse},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := ParsePayload([]byte(tt.raw))
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("ParsePayload() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParsePayload() error = %v", err)
			}
			if p.Len() != tt.wantLen {
				t.Errorf("Len() = %d, want %d", p.Len(), tt.wantLen)
			}
		})
	}
}

func TestPayloadField(t *testing.T) {
	p, err := ParsePayload([]byte(`{"Data":[1.5,"2",true,null,{"a":1},[1],-3,"Normal"]}`))
	if err != nil {
		t.Fatalf("ParsePayload() error = %v", err)
	}

	tests := []struct {
		offset  int
		want    string
		wantErr bool
	}{
		{offset: 0, want: "1.5"},
		{offset: 1, want: "2"},
		{offset: 2, want: "true"},
		{offset: 3, wantErr: true},
		{offset: 4, wantErr: true},
		{offset: 5, wantErr: true},
		{offset: 6, want: "-3"},
		{offset: 7, want: "Normal"},
		{offset: 8, wantErr: true},
		{offset: -1, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(strconv.Itoa(tt.offset), func(t *testing.T) {
			got, err := p.Field(tt.offset)
			if tt.wantErr {
				if !errors.Is(err, ErrFieldOffset) {
					t.Fatalf("Field(%d) error = %v, want ErrFieldOffset", tt.offset, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Field(%d) error = %v", tt.offset, err)
			}
			if got != tt.want {
				t.Errorf("Field(%d) = %q, want %q", tt.offset, got, tt.want)
			}
		})
	}
}

func TestX3Status(t *testing.T) {
	m := X3(Options{})

	tests := []struct {
		code       string
		wantLabel  string
		wantActive bool
	}{
		{code: "0", wantLabel: "Waiting"},
		{code: "1", wantLabel: "Grid sync"},
		{code: "2", wantLabel: "Normal", wantActive: true},
		{code: "3", wantLabel: "Lost grid"},
		{code: "7", wantLabel: "Unknown"},
		{code: "", wantLabel: "Unknown"},
	}

	for _, tt := range tests {
		t.Run(tt.wantLabel+"_"+tt.code, func(t *testing.T) {
			p := x3Payload(tt.code, nil)

			label, err := m.StatusOf(p)
			if err != nil {
				t.Fatalf("StatusOf() error = %v", err)
			}
			if label != tt.wantLabel {
				t.Errorf("StatusOf() = %q, want %q", label, tt.wantLabel)
			}

			active, err := m.IsActive(p)
			if err != nil {
				t.Fatalf("IsActive() error = %v", err)
			}
			if active != tt.wantActive {
				t.Errorf("IsActive() = %v, want %v", active, tt.wantActive)
			}
		})
	}

	if got := m.ActiveLabel(); got != "Normal" {
		t.Errorf("ActiveLabel() = %q, want Normal", got)
	}
}

func TestX3StatusMissing(t *testing.T) {
	m := X3(Options{})
	p := NewPayload("1", "2", "3")

	if _, err := m.StatusOf(p); !errors.Is(err, ErrFieldOffset) {
		t.Errorf("StatusOf() error = %v, want ErrFieldOffset", err)
	}
	if _, err := m.IsActive(p); !errors.Is(err, ErrFieldOffset) {
		t.Errorf("IsActive() error = %v, want ErrFieldOffset", err)
	}
}

func TestX3Table(t *testing.T) {
	m := X3(Options{})
	if err := m.Validate(); err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
	if len(m.Sensors) != 22 {
		t.Errorf("len(Sensors) = %d, want 22", len(m.Sensors))
	}
	if m.MaxOffset() != 68 {
		t.Errorf("MaxOffset() = %d, want 68", m.MaxOffset())
	}

	p := x3Payload("2", map[int]string{0: "3.4", 6: "-120"})

	tests := []struct {
		id          string
		want        string
		wantDefault bool
		wantAlways  bool
	}{
		{id: "pv1_current", want: "3.4", wantDefault: true},
		{id: "pv2_current", want: "1", wantDefault: true},
		{id: "pv1_voltage", want: "2"},
		{id: "pv1_power", want: "11", wantDefault: true},
		{id: "phase2_current", want: "46", wantDefault: true},
		{id: "phase3_voltage", want: "49"},
		{id: "phase1_power", want: "43", wantDefault: true},
		{id: "phase2_frequency", want: "51"},
		{id: "grid_power", want: "-120", wantDefault: true},
		{id: "temperature", want: "7"},
		{id: "yield_today", want: "8", wantAlways: true},
		{id: "yield_total", want: "9", wantAlways: true},
	}

	for _, tt := range tests {
		t.Run(tt.id, func(t *testing.T) {
			s, ok := m.Sensor(tt.id)
			if !ok {
				t.Fatalf("Sensor(%q) not found", tt.id)
			}
			got, err := m.Value(s, p)
			if err != nil {
				t.Fatalf("Value() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("Value() = %q, want %q", got, tt.want)
			}
			if (s.Default != nil) != tt.wantDefault {
				t.Errorf("Default = %v, want present=%v", s.Default, tt.wantDefault)
			}
			if s.Default != nil && *s.Default != "0" {
				t.Errorf("Default = %q, want 0", *s.Default)
			}
			if s.AlwaysAvailable != tt.wantAlways {
				t.Errorf("AlwaysAvailable = %v, want %v", s.AlwaysAvailable, tt.wantAlways)
			}
		})
	}
}

func TestGridPowerClass(t *testing.T) {
	tests := []struct {
		class     string
		wantClass string
		wantUnit  string
	}{
		{class: "", wantClass: "energy", wantUnit: "kWh"},
		{class: GridPowerEnergy, wantClass: "energy", wantUnit: "kWh"},
		{class: GridPowerPower, wantClass: "power", wantUnit: "W"},
	}

	for _, tt := range tests {
		t.Run(tt.wantClass, func(t *testing.T) {
			s, _ := X3(Options{GridPowerClass: tt.class}).Sensor("grid_power")
			if s.DeviceClass != tt.wantClass || s.UnitOfMeasurement != tt.wantUnit {
				t.Errorf("grid_power = %s/%s, want %s/%s", s.DeviceClass, s.UnitOfMeasurement, tt.wantClass, tt.wantUnit)
			}
		})
	}
}

func TestStatusSensorOption(t *testing.T) {
	reg, err := DefaultRegistry(Options{StatusSensor: true})
	if err != nil {
		t.Fatalf("DefaultRegistry() error = %v", err)
	}
	m, err := reg.Lookup("x3")
	if err != nil {
		t.Fatalf("Lookup() error = %v", err)
	}

	s, ok := m.Sensor(StatusIdentifier)
	if !ok {
		t.Fatal("status sensor missing")
	}
	if s.Extractor.Kind != ExtractStatus || s.Extractor.Offset != 68 || !s.AlwaysAvailable {
		t.Errorf("status sensor = %+v", s)
	}

	got, err := m.Value(s, x3Payload("3", nil))
	if err != nil {
		t.Fatalf("Value() error = %v", err)
	}
	if got != "Lost grid" {
		t.Errorf("Value() = %q, want Lost grid", got)
	}

	// The built-in table itself is not modified.
	if _, ok := X3(Options{}).Sensor(StatusIdentifier); ok {
		t.Error("X3() without option carries a status sensor")
	}
}

func TestValidate(t *testing.T) {
	base := func() *Model {
		return &Model{
			Name:  "test",
			Model: "Test",
			Status: StatusTable{
				Offset:     2,
				Labels:     map[string]string{"1": "Normal"},
				Unknown:    "Unknown",
				ActiveCode: "1",
			},
			Sensors: []Sensor{
				{Name: "A", Identifier: "a", Extractor: Field(0)},
				{Name: "B", Identifier: "b", Extractor: Field(1)},
			},
		}
	}

	tests := []struct {
		name    string
		mutate  func(m *Model)
		wantErr error
	}{
		{name: "valid", mutate: func(*Model) {}},
		{name: "duplicate identifier", mutate: func(m *Model) { m.Sensors[1].Identifier = "a" }, wantErr: ErrDuplicateIdentifier},
		{name: "empty identifier", mutate: func(m *Model) { m.Sensors[0].Identifier = "" }, wantErr: ErrInvalidModel},
		{name: "identifier with slash", mutate: func(m *Model) { m.Sensors[0].Identifier = "a/b" }, wantErr: ErrInvalidModel},
		{name: "negative offset", mutate: func(m *Model) { m.Sensors[0].Extractor.Offset = -1 }, wantErr: ErrInvalidModel},
		{name: "no extractor", mutate: func(m *Model) { m.Sensors[0].Extractor = Extractor{} }, wantErr: ErrInvalidModel},
		{name: "active code unlabelled", mutate: func(m *Model) { m.Status.ActiveCode = "9" }, wantErr: ErrInvalidModel},
		{name: "no name", mutate: func(m *Model) { m.Name = "" }, wantErr: ErrInvalidModel},
		{name: "raw field on status id", mutate: func(m *Model) { m.Sensors[0].Identifier = StatusIdentifier }, wantErr: ErrInvalidModel},
		{name: "status extractor on status id", mutate: func(m *Model) {
			m.Sensors[0] = Sensor{Name: "Status", Identifier: StatusIdentifier, Extractor: StatusAt(2)}
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := base()
			tt.mutate(m)
			err := m.Validate()
			if tt.wantErr == nil {
				if err != nil {
					t.Errorf("Validate() error = %v", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Validate() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestRegistry(t *testing.T) {
	reg, err := DefaultRegistry(Options{})
	if err != nil {
		t.Fatalf("DefaultRegistry() error = %v", err)
	}

	if _, err := reg.Lookup("X3"); err != nil {
		t.Errorf("Lookup(X3) error = %v", err)
	}
	if _, err := reg.Lookup("x9"); !errors.Is(err, ErrUnknownModel) {
		t.Errorf("Lookup(x9) error = %v, want ErrUnknownModel", err)
	}
	if names := reg.Names(); len(names) != 1 || names[0] != "x3" {
		t.Errorf("Names() = %v", names)
	}

	if _, err := NewRegistry(X3(Options{}), X3(Options{})); !errors.Is(err, ErrInvalidModel) {
		t.Errorf("NewRegistry(dup) error = %v, want ErrInvalidModel", err)
	}

	bad := X3(Options{})
	bad.Sensors = append(bad.Sensors, bad.Sensors[0])
	if _, err := NewRegistry(bad); !errors.Is(err, ErrDuplicateIdentifier) {
		t.Errorf("NewRegistry(bad) error = %v, want ErrDuplicateIdentifier", err)
	}
}

const testDefinitions = `
models:
  - name: x1
    model: X1 Mini
    status:
      offset: 4
      active: "2"
      labels:
        0: Waiting
        2: Normal
    sensors:
      - name: PV Power
        id: pv_power
        device_class: power
        state_class: measurement
        unit: W
        offset: 1
        default: "0"
      - name: Yield Today
        id: yield_today
        device_class: energy
        state_class: total_increasing
        unit: kWh
        offset: 2
        always_available: true
      - name: Status
        id: status
        extract: status
`

func TestParseDefinitions(t *testing.T) {
	models, err := ParseDefinitions([]byte(testDefinitions))
	if err != nil {
		t.Fatalf("ParseDefinitions() error = %v", err)
	}
	if len(models) != 1 {
		t.Fatalf("len(models) = %d, want 1", len(models))
	}

	m := models[0]
	if m.Model != "X1 Mini" || m.Manufacturer != "Solax" || m.Status.Unknown != "Unknown" {
		t.Errorf("model = %+v", m)
	}

	p := NewPayload("a", "150", "3.2", "x", "0")
	if active, _ := m.IsActive(p); active {
		t.Error("IsActive() = true for code 0")
	}

	pv, _ := m.Sensor("pv_power")
	if pv.Default == nil || *pv.Default != "0" {
		t.Errorf("pv_power default = %v", pv.Default)
	}
	if v, _ := m.Value(pv, p); v != "150" {
		t.Errorf("pv_power = %q, want 150", v)
	}

	status, _ := m.Sensor("status")
	if status.Extractor != StatusAt(4) {
		t.Errorf("status extractor = %+v, want offset 4", status.Extractor)
	}
	if v, _ := m.Value(status, p); v != "Waiting" {
		t.Errorf("status = %q, want Waiting", v)
	}

	reg, err := DefaultRegistry(Options{StatusSensor: true}, models...)
	if err != nil {
		t.Fatalf("DefaultRegistry() error = %v", err)
	}
	if names := reg.Names(); len(names) != 2 {
		t.Errorf("Names() = %v, want x1 and x3", names)
	}
}

func TestParseDefinitionsErrors(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		wantErr error
	}{
		{name: "bad yaml", yaml: "models: [", wantErr: ErrInvalidModel},
		{name: "bad extractor", yaml: `
models:
  - name: x1
    status: {offset: 0, active: "1", labels: {1: Normal}}
    sensors: [{name: A, id: a, extract: bogus}]
`, wantErr: ErrInvalidModel},
		{name: "duplicate id", yaml: `
models:
  - name: x1
    status: {offset: 0, active: "1", labels: {1: Normal}}
    sensors: [{name: A, id: a, offset: 1}, {name: B, id: a, offset: 2}]
`, wantErr: ErrDuplicateIdentifier},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ParseDefinitions([]byte(tt.yaml)); !errors.Is(err, tt.wantErr) {
				t.Errorf("ParseDefinitions() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestLoadDefinitions(t *testing.T) {
	path := filepath.Join(t.TempDir(), "models.yaml")
	if err := os.WriteFile(path, []byte(testDefinitions), 0o600); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	models, err := LoadDefinitions(path)
	if err != nil {
		t.Fatalf("LoadDefinitions() error = %v", err)
	}
	if len(models) != 1 || models[0].Name != "x1" {
		t.Errorf("LoadDefinitions() = %v", models)
	}

	if _, err := LoadDefinitions(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("LoadDefinitions(missing) error = nil")
	}
}

func TestExtractorKindText(t *testing.T) {
	for _, k := range []ExtractorKind{ExtractField, ExtractStatus} {
		text, err := k.MarshalText()
		if err != nil {
			t.Fatalf("MarshalText(%v) error = %v", k, err)
		}
		var got ExtractorKind
		if err := got.UnmarshalText(text); err != nil || got != k {
			t.Errorf("UnmarshalText(%s) = %v, %v", text, got, err)
		}
	}
	if _, err := ExtractorKind(0).MarshalText(); !errors.Is(err, ErrInvalidModel) {
		t.Errorf("MarshalText(0) error = %v", err)
	}
}
