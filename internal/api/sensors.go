package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/nerrad567/solax-bridge/internal/inverter"
)

// SensorInfo describes one sensor of the active model.
type SensorInfo struct {
	inverter.Sensor
	StateTopic string `json:"state_topic"`
}

// SensorList is the response of GET /sensors.
type SensorList struct {
	Model        string               `json:"model"`
	Manufacturer string               `json:"manufacturer"`
	Status       inverter.StatusTable `json:"status"`
	StatusTopic  string               `json:"status_topic"`
	Sensors      []SensorInfo         `json:"sensors"`
}

// handleListSensors returns the active model's sensor table.
func (s *Server) handleListSensors(w http.ResponseWriter, _ *http.Request) {
	m := s.bridge.Model()
	ns := s.bridge.Namespace()

	list := SensorList{
		Model:        m.Model,
		Manufacturer: m.Manufacturer,
		Status:       m.Status,
		StatusTopic:  ns.StatusTopic(),
		Sensors:      make([]SensorInfo, 0, len(m.Sensors)),
	}
	for _, sensor := range m.Sensors {
		list.Sensors = append(list.Sensors, SensorInfo{Sensor: sensor, StateTopic: ns.SensorTopic(sensor.Identifier)})
	}

	writeJSON(w, http.StatusOK, list)
}

// handleGetSensor returns one sensor by identifier.
func (s *Server) handleGetSensor(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	m := s.bridge.Model()
	sensor, ok := m.Sensor(id)
	if !ok {
		known := make([]string, 0, len(m.Sensors))
		for _, sn := range m.Sensors {
			known = append(known, sn.Identifier)
		}
		writeUnknownSensor(w, r, id, known)
		return
	}
	writeJSON(w, http.StatusOK, SensorInfo{Sensor: sensor, StateTopic: s.bridge.Namespace().SensorTopic(id)})
}
